package application

import (
	"context"
	"time"

	"contact-gateway/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
// Erros do Window são devolvidos para quem chama decidir (fail-open/closed).
type Service struct {
	Window     domain.Window
	Stats      domain.StatsStore
	Scope      string
	RetryAfter time.Duration

	// Now é usado para calcular RetryAfter a partir de ResetAt. Padrão: time.Now.
	Now func() time.Time
}

func (s Service) Decide(ctx context.Context, key domain.Key) (domain.Decision, error) {
	if s.Window == nil {
		return domain.Decision{Allowed: true}, nil
	}
	if s.RetryAfter <= 0 {
		s.RetryAfter = 1 * time.Second
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	dec, err := s.Window.Take(ctx, key)
	if err != nil {
		return domain.Decision{}, err
	}

	if s.Stats != nil {
		_ = s.Stats.Record(ctx, domain.StatsEvent{
			Key:     key,
			Allowed: dec.Allowed,
			Scope:   s.Scope,
			At:      now(),
		})
	}

	if dec.Allowed {
		dec.RetryAfter = 0
		return dec, nil
	}

	dec.RetryAfter = s.RetryAfter
	if !dec.ResetAt.IsZero() {
		// arredonda para cima: Retry-After é em segundos inteiros
		if wait := dec.ResetAt.Sub(now()); wait > 0 {
			dec.RetryAfter = wait.Truncate(time.Second)
			if dec.RetryAfter < wait {
				dec.RetryAfter += time.Second
			}
		}
	}
	return dec, nil
}
