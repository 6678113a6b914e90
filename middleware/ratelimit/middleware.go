package ratelimit

import (
	"context"
	"net/http"
	"time"

	"contact-gateway/middleware/ratelimit/application"
	"contact-gateway/middleware/ratelimit/domain"
)

type Options struct {
	Window              domain.Window
	Stats               domain.StatsStore
	Scope               string
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	RejectStatus        int
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
	// FailOpen deixa a request passar quando o Window devolve erro
	// (ex.: Redis fora). Padrão: responde 503.
	FailOpen bool
	// OnError é chamado com o erro do Window (log).
	OnError func(r *http.Request, err error)
}

// Middleware aplica a janela deslizante por chave antes de chamar next.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.Scope == "" {
		opts.Scope = "global"
	}

	svc := application.Service{
		Window:     opts.Window,
		Stats:      opts.Stats,
		Scope:      opts.Scope,
		RetryAfter: opts.RetryAfter,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)

			dec, err := svc.Decide(r.Context(), domain.Key(key))
			if err != nil {
				if opts.OnError != nil {
					opts.OnError(r, err)
				}
				if opts.FailOpen {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Key", key)
				SetHeaders(w.Header(), dec)
			}
			if !dec.Allowed {
				w.Header().Set("Retry-After", formatInt(RetryAfterSeconds(dec)))
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithDecision(r.Context(), dec)))
		})
	}
}

// SetHeaders escreve X-RateLimit-Limit/Remaining/Reset (reset em epoch millis).
func SetHeaders(h http.Header, dec domain.Decision) {
	h.Set("X-RateLimit-Limit", formatInt(dec.Limit))
	h.Set("X-RateLimit-Remaining", formatInt(dec.Remaining))
	h.Set("X-RateLimit-Reset", formatInt64(dec.ResetMillis()))
}

// RetryAfterSeconds converte a recomendação em segundos inteiros (mínimo 1).
func RetryAfterSeconds(dec domain.Decision) int {
	secs := int(dec.RetryAfter / time.Second)
	if dec.RetryAfter%time.Second != 0 {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return secs
}

type decisionKey struct{}

// WithDecision guarda a decisão no contexto para handlers seguintes.
func WithDecision(ctx context.Context, dec domain.Decision) context.Context {
	return context.WithValue(ctx, decisionKey{}, dec)
}

// DecisionFrom devolve a decisão do middleware, se houver.
func DecisionFrom(ctx context.Context) (domain.Decision, bool) {
	dec, ok := ctx.Value(decisionKey{}).(domain.Decision)
	return dec, ok
}
