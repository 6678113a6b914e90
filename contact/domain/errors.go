package domain

import (
	"errors"
	"fmt"
	"time"

	rldomain "contact-gateway/middleware/ratelimit/domain"
)

// Kind classifica a falha de um envio.
type Kind string

const (
	KindRateLimited         Kind = "RATE_LIMITED"
	KindInvalidInput        Kind = "INVALID_INPUT"
	KindEmailDispatchFailed Kind = "EMAIL_DISPATCH_FAILED"
	KindTimeout             Kind = "TIMEOUT"
	KindUnknown             Kind = "UNKNOWN"
)

// SubmissionError é o único tipo de erro devolvido por Submitter.Submit.
//
// Fields e RateLimit são seguros para expor ao cliente; Err não é.
type SubmissionError struct {
	Kind Kind

	// KindRateLimited
	RateLimit rldomain.Decision
	// KindInvalidInput
	Fields []FieldError

	Err error
}

func (e *SubmissionError) Error() string {
	switch {
	case e.Kind == KindInvalidInput:
		return fmt.Sprintf("%s: %d invalid field(s)", e.Kind, len(e.Fields))
	case e.Kind == KindRateLimited:
		return fmt.Sprintf("%s: retry after %s", e.Kind, e.RateLimit.RetryAfter)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// RetryAfter é o tempo recomendado de espera para KindRateLimited.
func (e *SubmissionError) RetryAfter() time.Duration { return e.RateLimit.RetryAfter }

func RateLimited(dec rldomain.Decision) *SubmissionError {
	return &SubmissionError{Kind: KindRateLimited, RateLimit: dec}
}

func InvalidInput(fields []FieldError) *SubmissionError {
	return &SubmissionError{Kind: KindInvalidInput, Fields: fields}
}

// UnreadableBody é KindInvalidInput para um corpo que não pôde ser lido.
func UnreadableBody(err error) *SubmissionError {
	return &SubmissionError{
		Kind:   KindInvalidInput,
		Fields: []FieldError{{Field: "body", Message: "Could not read request body"}},
		Err:    err,
	}
}

func DispatchFailed(err error) *SubmissionError {
	return &SubmissionError{Kind: KindEmailDispatchFailed, Err: err}
}

func Timeout(err error) *SubmissionError {
	return &SubmissionError{Kind: KindTimeout, Err: err}
}

func Unknown(err error) *SubmissionError {
	return &SubmissionError{Kind: KindUnknown, Err: err}
}

// KindOf devolve o Kind de err (KindUnknown se não for SubmissionError).
func KindOf(err error) Kind {
	var se *SubmissionError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}
