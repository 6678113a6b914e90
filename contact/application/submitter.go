package application

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"contact-gateway/contact/domain"
	rldomain "contact-gateway/middleware/ratelimit/domain"

	"go.uber.org/zap"
)

// DefaultTimeout limita a cadeia inteira (rate limit + envio).
const DefaultTimeout = 10 * time.Second

// Submitter executa um envio do formulário de contato.
//
// Ordem fixa: rate limit (antes de qualquer trabalho), validação do corpo
// bruto, sanitização campo a campo, montagem do e-mail e envio.
// Não guarda estado mutável; pode ser usado por várias goroutines.
type Submitter struct {
	Limiter   domain.RateLimiter
	Validator domain.Validator
	Sanitizer domain.Sanitizer
	Mailer    domain.Mailer
	Metrics   domain.Metrics
	Logger    *zap.Logger

	Sender   string
	Receiver string
	Timeout  time.Duration

	Now func() time.Time
}

// Submit processa raw (JSON {name,email,message}) vindo de callerIP.
// Qualquer erro devolvido é *domain.SubmissionError.
func (s Submitter) Submit(ctx context.Context, raw []byte, callerIP string) (domain.Receipt, error) {
	return s.SubmitBody(ctx, bytes.NewReader(raw), callerIP)
}

// SubmitBody é Submit lendo o corpo só depois do rate limit; erro de leitura
// (ex.: *http.MaxBytesError) vira KindInvalidInput com a causa em Err.
func (s Submitter) SubmitBody(ctx context.Context, body io.Reader, callerIP string) (rec domain.Receipt, err error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if callerIP == "" {
		callerIP = "127.0.0.1"
	}
	log = log.With(zap.String("ip", callerIP))

	started := now()
	if s.Metrics != nil {
		defer func() {
			outcome := "success"
			if err != nil {
				outcome = string(domain.KindOf(err))
			}
			s.Metrics.Observe(outcome, now().Sub(started))
		}()
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if s.Limiter != nil {
		dec, err := s.Limiter.Decide(ctx, rldomain.Key(callerIP))
		if err != nil {
			log.Error("rate limit store failed", zap.Error(err))
			return rec, classify(ctx, err, domain.Unknown)
		}
		if !dec.Allowed {
			log.Info("contact submission rate limited", zap.Duration("retry_after", dec.RetryAfter))
			return rec, domain.RateLimited(dec)
		}
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		log.Info("contact body unreadable", zap.Error(err))
		return rec, domain.UnreadableBody(err)
	}

	sub, fields := s.Validator.Validate(raw)
	if len(fields) > 0 {
		log.Debug("contact submission rejected", zap.Any("fields", fields))
		return rec, domain.InvalidInput(fields)
	}

	sub = s.sanitize(sub)
	email := ComposeEmail(sub, s.Sender, s.Receiver)

	id, err := s.Mailer.Send(ctx, email)
	if err != nil {
		log.Error("email dispatch failed", zap.Error(err))
		return rec, classify(ctx, err, domain.DispatchFailed)
	}

	rec = domain.Receipt{MessageID: id, Timestamp: now()}
	log.Info("contact email sent", zap.String("message_id", id))
	return rec, nil
}

func (s Submitter) sanitize(sub domain.Submission) domain.Submission {
	if s.Sanitizer == nil {
		return sub
	}
	return domain.Submission{
		Name:    s.Sanitizer.Sanitize(sub.Name),
		Email:   s.Sanitizer.Sanitize(sub.Email),
		Message: s.Sanitizer.Sanitize(sub.Message),
	}
}

// classify troca o Kind por Timeout quando o prazo do envio estourou.
func classify(ctx context.Context, err error, otherwise func(error) *domain.SubmissionError) *domain.SubmissionError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.Timeout(err)
	}
	return otherwise(err)
}
