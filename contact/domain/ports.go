package domain

import (
	"context"
	"time"

	rldomain "contact-gateway/middleware/ratelimit/domain"
)

// RateLimiter decide se o chamador pode enviar agora.
// Implementado por ratelimit/application.Service.
type RateLimiter interface {
	Decide(ctx context.Context, key rldomain.Key) (rldomain.Decision, error)
}

// Validator transforma o corpo bruto (JSON) numa Submission ou devolve
// todos os campos inválidos. Deve ser puro.
type Validator interface {
	Validate(raw []byte) (Submission, []FieldError)
}

// Sanitizer remove/escapa markup de um texto livre. Deve ser idempotente.
type Sanitizer interface {
	Sanitize(s string) string
}

// Mailer entrega um Email ao provedor e devolve o id da mensagem.
type Mailer interface {
	Send(ctx context.Context, e Email) (messageID string, err error)
}

// Metrics observa o resultado de cada envio ("success" ou um Kind).
type Metrics interface {
	Observe(outcome string, elapsed time.Duration)
}
