package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"contact-gateway/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore grava contadores allowed/denied em hashes do Redis,
// separados por escopo:
//
//	<prefix>:<scope>:total                 cumulativo, não expira
//	<prefix>:<scope>:minute:200601021504   série por minuto (bucket="minute")
//	<prefix>:<scope>:key:<ip>              por chave (trackKeys)
type RedisStatsStore struct {
	rdb redis.UniversalClient

	prefix string
	// ttl aplica apenas em chaves de série temporal / por key.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(rdb redis.UniversalClient, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "ratelimit:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) scopePrefix(scope string) string {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		scope = "default"
	}
	return s.prefix + ":" + scope
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}
	base := s.scopePrefix(ev.Scope)

	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, base+":total", field, 1)

		if s.bucket == "minute" {
			s.incrExpiring(ctx, pipe, fmt.Sprintf("%s:minute:%s", base, at.UTC().Format("200601021504")), field)
		}
		if k := strings.TrimSpace(string(ev.Key)); s.trackKeys && k != "" {
			s.incrExpiring(ctx, pipe, base+":key:"+k, field)
		}
		return nil
	})
	return err
}

func (s *RedisStatsStore) incrExpiring(ctx context.Context, pipe redis.Pipeliner, key, field string) {
	pipe.HIncrBy(ctx, key, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
}

// Totals lê os contadores cumulativos de um escopo.
func (s *RedisStatsStore) Totals(ctx context.Context, scope string) (Counters, error) {
	var c Counters
	vals, err := s.rdb.HGetAll(ctx, s.scopePrefix(scope)+":total").Result()
	if err != nil {
		return c, err
	}
	if _, err := fmt.Sscan(orZero(vals["allowed"]), &c.Allowed); err != nil {
		return c, fmt.Errorf("parse allowed: %w", err)
	}
	if _, err := fmt.Sscan(orZero(vals["denied"]), &c.Denied); err != nil {
		return c, fmt.Errorf("parse denied: %w", err)
	}
	return c, nil
}

func orZero(v string) string {
	if v == "" {
		return "0"
	}
	return v
}
