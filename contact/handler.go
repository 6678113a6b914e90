package contact

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"contact-gateway/contact/domain"
	"contact-gateway/middleware/ratelimit"

	"go.uber.org/zap"
)

const defaultMaxBodyBytes = 16 << 10

// Submitter é o caso de uso chamado pelo Handler (application.Submitter).
// O corpo só é lido depois do rate limit.
type Submitter interface {
	SubmitBody(ctx context.Context, body io.Reader, callerIP string) (domain.Receipt, error)
}

type Options struct {
	Submitter    Submitter
	KeyFn        ratelimit.KeyFunc
	MaxBodyBytes int64
	Logger       *zap.Logger
}

type successResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Timestamp string `json:"timestamp"`
}

type errorResponse struct {
	Error      string              `json:"error"`
	Code       string              `json:"code"`
	Details    []domain.FieldError `json:"details,omitempty"`
	RetryAfter int                 `json:"retryAfter,omitempty"`
}

// Handler devolve o http.Handler do endpoint de contato.
func Handler(opts Options) http.Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.KeyFn == nil {
		opts.KeyFn = ratelimit.DefaultKeyFunc("", true)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed", Code: "METHOD_NOT_ALLOWED"})
			return
		}

		body := http.MaxBytesReader(w, r.Body, opts.MaxBodyBytes)
		rec, err := opts.Submitter.SubmitBody(r.Context(), body, opts.KeyFn(r))
		if err != nil {
			writeError(w, err, opts.Logger)
			return
		}

		writeJSON(w, http.StatusOK, successResponse{
			Success:   true,
			MessageID: rec.MessageID,
			Timestamp: rec.TimestampISO(),
		})
	})
}

func writeError(w http.ResponseWriter, err error, log *zap.Logger) {
	var se *domain.SubmissionError
	if !errors.As(err, &se) {
		// o Submitter já loga os próprios erros; este não passou por ele
		log.Error("contact submission failed", zap.Error(err))
		se = domain.Unknown(err)
	}

	switch se.Kind {
	case domain.KindRateLimited:
		secs := ratelimit.RetryAfterSeconds(se.RateLimit)
		ratelimit.SetHeaders(w.Header(), se.RateLimit)
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Too many requests", Code: "TOO_MANY_REQUESTS", RetryAfter: secs})
	case domain.KindInvalidInput:
		var tooLarge *http.MaxBytesError
		if errors.As(se, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "Request body too large", Code: "PAYLOAD_TOO_LARGE"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid form data", Code: "BAD_REQUEST", Details: se.Fields})
	case domain.KindTimeout:
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: "Request timed out", Code: "TIMEOUT"})
	case domain.KindEmailDispatchFailed:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to send email", Code: "INTERNAL_SERVER_ERROR"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to send email", Code: "INTERNAL_SERVER_ERROR"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
