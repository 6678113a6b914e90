package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"contact-gateway/middleware/ratelimit/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript faz remoção/contagem/inserção num único EVAL, então a
// janela fica correta mesmo com várias instâncias do gateway usando o mesmo Redis.
//
// KEYS[1] = chave do sorted set
// ARGV    = now(ms), window(ms), limit, member
// Retorno = {allowed(0|1), remaining, reset(ms)}
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  count = count + 1
  allowed = 1
end
if count > 0 then
  redis.call('PEXPIRE', key, window)
end

local reset = now + window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if oldest[2] then
  reset = tonumber(oldest[2]) + window
end
return {allowed, limit - count, reset}
`)

// RedisWindow é a janela deslizante hospedada (sorted set por chave).
type RedisWindow struct {
	rdb    redis.Scripter
	policy domain.Policy
	prefix string
	now    func() time.Time
}

type RedisWindowOption func(*RedisWindow)

func WithWindowPrefix(prefix string) RedisWindowOption {
	return func(w *RedisWindow) {
		w.prefix = strings.Trim(prefix, ":")
	}
}

func WithWindowClock(now func() time.Time) RedisWindowOption {
	return func(w *RedisWindow) { w.now = now }
}

func NewRedisWindow(rdb redis.Scripter, policy domain.Policy, opts ...RedisWindowOption) *RedisWindow {
	w := &RedisWindow{
		rdb:    rdb,
		policy: policy,
		prefix: "ratelimit:window",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *RedisWindow) Policy() domain.Policy { return w.policy }

func (w *RedisWindow) redisKey(key domain.Key) string {
	return w.prefix + ":" + string(key)
}

// Take implementa domain.Window.
func (w *RedisWindow) Take(ctx context.Context, key domain.Key) (domain.Decision, error) {
	now := w.now().UnixMilli()
	member := fmt.Sprintf("%d-%s", now, uuid.NewString())

	res, err := slidingWindowScript.Run(ctx, w.rdb,
		[]string{w.redisKey(key)},
		now, w.policy.Window.Milliseconds(), w.policy.Limit, member,
	).Int64Slice()
	if err != nil {
		return domain.Decision{}, fmt.Errorf("redis sliding window: %w", err)
	}
	if len(res) != 3 {
		return domain.Decision{}, fmt.Errorf("redis sliding window: unexpected reply %v", res)
	}

	remaining := int(res[1])
	if remaining < 0 {
		remaining = 0
	}
	return domain.Decision{
		Allowed:   res[0] == 1,
		Limit:     w.policy.Limit,
		Remaining: remaining,
		ResetAt:   time.UnixMilli(res[2]),
	}, nil
}
