package infra

import (
	"context"
	"errors"
	"fmt"

	"contact-gateway/contact/domain"

	"github.com/resend/resend-go/v2"
	"golang.org/x/time/rate"
)

// emailSender é o pedaço do SDK do Resend que usamos (permite fake em testes).
type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendMailer envia pelo Resend respeitando o limite de requests/s da conta
// (token bucket local via x/time/rate).
type ResendMailer struct {
	emails  emailSender
	limiter *rate.Limiter
}

type ResendOption func(*ResendMailer)

// WithSendRate limita o envio a rps requests/s com rajada burst.
// rps <= 0 desliga o limite.
func WithSendRate(rps float64, burst int) ResendOption {
	return func(m *ResendMailer) {
		if rps <= 0 {
			m.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst <= 0 {
			burst = 1
		}
		m.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func withEmailSender(s emailSender) ResendOption {
	return func(m *ResendMailer) { m.emails = s }
}

func NewResendMailer(apiKey string, opts ...ResendOption) *ResendMailer {
	m := &ResendMailer{
		emails:  resend.NewClient(apiKey).Emails,
		limiter: rate.NewLimiter(2, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Send implementa domain.Mailer.
func (m *ResendMailer) Send(ctx context.Context, e domain.Email) (string, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		// Wait falha sem ctx encerrado quando a espera passaria do deadline
		return "", fmt.Errorf("resend throttle: %v: %w", err, context.DeadlineExceeded)
	}

	resp, err := m.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    e.From,
		To:      []string{e.To},
		ReplyTo: e.ReplyTo,
		Subject: e.Subject,
		Text:    e.Text,
		Html:    e.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("resend send: %w", err)
	}
	if resp == nil {
		return "", errors.New("resend send: empty response")
	}
	return resp.Id, nil
}
