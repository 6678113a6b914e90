package infra

import (
	"context"

	"contact-gateway/contact/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogMailer não envia nada: registra o e-mail no log e devolve um uuid.
// Usado em desenvolvimento (sem RESEND_API_KEY) e no example-server.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger.With(zap.String("component", "log_mailer"))}
}

func (m *LogMailer) Send(ctx context.Context, e domain.Email) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	m.logger.Info("email not sent (log mailer)",
		zap.String("message_id", id),
		zap.String("from", e.From),
		zap.String("to", e.To),
		zap.String("reply_to", e.ReplyTo),
		zap.String("subject", e.Subject),
		zap.String("text", e.Text),
	)
	return id, nil
}
