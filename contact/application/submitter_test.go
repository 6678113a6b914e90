package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"contact-gateway/contact/domain"
	"contact-gateway/contact/infra"
	rlapp "contact-gateway/middleware/ratelimit/application"
	rldomain "contact-gateway/middleware/ratelimit/domain"
	rlinfra "contact-gateway/middleware/ratelimit/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeMailer struct {
	mu    sync.Mutex
	sent  []domain.Email
	err   error
	block bool
}

func (m *fakeMailer) Send(ctx context.Context, e domain.Email) (string, error) {
	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, e)
	return "msg-" + string(rune('0'+len(m.sent))), nil
}

type fakeLimiter struct {
	dec   rldomain.Decision
	err   error
	calls int
}

func (l *fakeLimiter) Decide(context.Context, rldomain.Key) (rldomain.Decision, error) {
	l.calls++
	return l.dec, l.err
}

type countingValidator struct {
	domain.Validator
	calls int
}

func (v *countingValidator) Validate(raw []byte) (domain.Submission, []domain.FieldError) {
	v.calls++
	return v.Validator.Validate(raw)
}

type recordingMetrics struct {
	outcomes []string
}

func (m *recordingMetrics) Observe(outcome string, _ time.Duration) {
	m.outcomes = append(m.outcomes, outcome)
}

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newSubmitter(t *testing.T, lim domain.RateLimiter, mailer domain.Mailer) Submitter {
	return Submitter{
		Limiter:   lim,
		Validator: infra.NewSchemaValidator(),
		Sanitizer: infra.NewHTMLSanitizer(),
		Mailer:    mailer,
		Logger:    zaptest.NewLogger(t),
		Sender:    "noreply@portfolio.dev",
		Receiver:  "me@portfolio.dev",
		Now:       func() time.Time { return fixedNow },
	}
}

func slidingLimiter(limit int) rlapp.Service {
	return rlapp.Service{
		Window: rlinfra.NewMemoryWindow(rldomain.Policy{Limit: limit, Window: time.Minute}),
		Scope:  "contact",
	}
}

const validBody = `{"name":"Jane Doe","email":"jane@example.com","message":"Hello"}`

func TestSubmit_ValidInputSendsExactlyOneEmail(t *testing.T) {
	mailer := &fakeMailer{}
	s := newSubmitter(t, slidingLimiter(3), mailer)

	rec, err := s.Submit(context.Background(), []byte(validBody), "203.0.113.7")
	require.NoError(t, err)

	assert.Equal(t, "msg-1", rec.MessageID)
	assert.Equal(t, "2026-10-19T12:00:00.000Z", rec.TimestampISO())
	require.Len(t, mailer.sent, 1)

	e := mailer.sent[0]
	assert.Equal(t, "Portfolio Contact <noreply@portfolio.dev>", e.From)
	assert.Equal(t, "me@portfolio.dev", e.To)
	assert.Equal(t, "jane@example.com", e.ReplyTo)
	assert.Equal(t, "New message from Jane Doe", e.Subject)
	assert.Equal(t, "Name: Jane Doe\nEmail: jane@example.com\nMessage: Hello", e.Text)
	assert.Contains(t, e.HTML, "<p><strong>Name:</strong> Jane Doe</p>")
	assert.Contains(t, e.HTML, "<p>Hello</p>")
}

func TestSubmit_RateLimitedBeforeAnyOtherWork(t *testing.T) {
	lim := &fakeLimiter{dec: rldomain.Decision{Allowed: false, Limit: 3, RetryAfter: 30 * time.Second}}
	mailer := &fakeMailer{}
	s := newSubmitter(t, lim, mailer)
	v := &countingValidator{Validator: s.Validator}
	s.Validator = v

	_, err := s.Submit(context.Background(), []byte(`not even json`), "203.0.113.7")

	var se *domain.SubmissionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, domain.KindRateLimited, se.Kind)
	assert.Equal(t, 30*time.Second, se.RetryAfter())
	assert.Zero(t, v.calls, "validation must not run when rate limited")
	assert.Empty(t, mailer.sent)
}

type trackingReader struct {
	err   error
	reads int
}

func (r *trackingReader) Read([]byte) (int, error) {
	r.reads++
	return 0, r.err
}

func TestSubmitBody_NotReadWhenRateLimited(t *testing.T) {
	lim := &fakeLimiter{dec: rldomain.Decision{Allowed: false, Limit: 3, RetryAfter: time.Second}}
	s := newSubmitter(t, lim, &fakeMailer{})
	body := &trackingReader{err: errors.New("must not be read")}

	_, err := s.SubmitBody(context.Background(), body, "203.0.113.7")

	assert.Equal(t, domain.KindRateLimited, domain.KindOf(err))
	assert.Zero(t, body.reads)
}

func TestSubmitBody_ReadErrorIsInvalidInputWithCause(t *testing.T) {
	mailer := &fakeMailer{}
	s := newSubmitter(t, slidingLimiter(3), mailer)
	cause := errors.New("body too large")

	_, err := s.SubmitBody(context.Background(), &trackingReader{err: cause}, "203.0.113.7")

	var se *domain.SubmissionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, domain.KindInvalidInput, se.Kind)
	assert.Equal(t, []domain.FieldError{{Field: "body", Message: "Could not read request body"}}, se.Fields)
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, mailer.sent)
}

func TestSubmit_NthSucceedsAndNextIsRateLimited(t *testing.T) {
	const n = 3
	mailer := &fakeMailer{}
	s := newSubmitter(t, slidingLimiter(n), mailer)

	for i := 0; i < n; i++ {
		_, err := s.Submit(context.Background(), []byte(validBody), "198.51.100.1")
		require.NoError(t, err, "submission %d", i+1)
	}
	_, err := s.Submit(context.Background(), []byte(validBody), "198.51.100.1")
	require.Equal(t, domain.KindRateLimited, domain.KindOf(err))

	var se *domain.SubmissionError
	require.ErrorAs(t, err, &se)
	assert.Greater(t, se.RetryAfter(), time.Duration(0))
	assert.Len(t, mailer.sent, n)

	// outro IP não é afetado
	_, err = s.Submit(context.Background(), []byte(validBody), "198.51.100.2")
	assert.NoError(t, err)
}

func TestSubmit_EmptyCallerIPUsesLoopback(t *testing.T) {
	s := newSubmitter(t, slidingLimiter(1), &fakeMailer{})

	_, err := s.Submit(context.Background(), []byte(validBody), "")
	require.NoError(t, err)
	_, err = s.Submit(context.Background(), []byte(validBody), "127.0.0.1")
	assert.Equal(t, domain.KindRateLimited, domain.KindOf(err))
}

func TestSubmit_InvalidInputReportsEveryField(t *testing.T) {
	mailer := &fakeMailer{}
	s := newSubmitter(t, nil, mailer)

	body := `{"name":"R2-D2","email":"nope","message":""}`
	_, err := s.Submit(context.Background(), []byte(body), "203.0.113.7")

	var se *domain.SubmissionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, domain.KindInvalidInput, se.Kind)
	assert.Equal(t, []domain.FieldError{
		{Field: "name", Message: "Name can only contain letters, spaces, and hyphens"},
		{Field: "email", Message: "Valid email is required"},
		{Field: "message", Message: "Message is required"},
	}, se.Fields)
	assert.Empty(t, mailer.sent)
}

func TestSubmit_ScriptInNameNeverReachesEmail(t *testing.T) {
	mailer := &fakeMailer{}
	s := newSubmitter(t, nil, mailer)
	// sanitização direta: o nome com <script> já é barrado pela validação,
	// então verificamos a composição com a Submission sanitizada
	sub := s.sanitize(domain.Submission{
		Name:    "Robert<script>alert(1)</script>",
		Email:   "bob@example.com",
		Message: "<b>hi</b><script>steal()</script>",
	})
	e := ComposeEmail(sub, s.Sender, s.Receiver)

	for _, body := range []string{e.HTML, e.Text, e.Subject} {
		assert.NotContains(t, strings.ToLower(body), "<script")
	}

	_, err := s.Submit(context.Background(), []byte(`{"name":"Robert<script>alert(1)</script>","email":"bob@example.com","message":"hi"}`), "203.0.113.9")
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
	assert.Empty(t, mailer.sent)
}

func TestSubmit_MessageMarkupIsSanitizedBeforeDispatch(t *testing.T) {
	mailer := &fakeMailer{}
	s := newSubmitter(t, nil, mailer)

	body := `{"name":"Jane","email":"jane@example.com","message":"Hi <img src=x onerror=alert(1)> & bye"}`
	_, err := s.Submit(context.Background(), []byte(body), "203.0.113.7")
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)

	assert.NotContains(t, mailer.sent[0].HTML, "<img")
	assert.Contains(t, mailer.sent[0].Text, "Hi  &amp; bye")
}

func TestSubmit_ApostrophesSurviveSanitization(t *testing.T) {
	mailer := &fakeMailer{}
	s := newSubmitter(t, nil, mailer)

	body := `{"name":"Jane Doe","email":"o'brien@example.com","message":"I don't think \"this\" is right"}`
	_, err := s.Submit(context.Background(), []byte(body), "203.0.113.7")
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)

	e := mailer.sent[0]
	assert.Equal(t, "o'brien@example.com", e.ReplyTo)
	assert.Equal(t, "Name: Jane Doe\nEmail: o'brien@example.com\nMessage: I don't think \"this\" is right", e.Text)
	assert.Contains(t, e.HTML, "<p>I don't think \"this\" is right</p>")
}

func TestSubmit_DispatchFailureIsCoarse(t *testing.T) {
	s := newSubmitter(t, nil, &fakeMailer{err: errors.New("resend: 422 invalid from address")})

	_, err := s.Submit(context.Background(), []byte(validBody), "203.0.113.7")
	assert.Equal(t, domain.KindEmailDispatchFailed, domain.KindOf(err))
}

func TestSubmit_RateStoreFailureIsUnknown(t *testing.T) {
	mailer := &fakeMailer{}
	s := newSubmitter(t, &fakeLimiter{err: errors.New("dial tcp: connection refused")}, mailer)

	_, err := s.Submit(context.Background(), []byte(validBody), "203.0.113.7")
	assert.Equal(t, domain.KindUnknown, domain.KindOf(err))
	assert.Empty(t, mailer.sent)
}

func TestSubmit_TimesOut(t *testing.T) {
	s := newSubmitter(t, nil, &fakeMailer{block: true})
	s.Timeout = 20 * time.Millisecond

	started := time.Now()
	_, err := s.Submit(context.Background(), []byte(validBody), "203.0.113.7")

	assert.Equal(t, domain.KindTimeout, domain.KindOf(err))
	assert.Less(t, time.Since(started), time.Second)
}

func TestSubmit_ObservesOutcome(t *testing.T) {
	m := &recordingMetrics{}
	s := newSubmitter(t, slidingLimiter(1), &fakeMailer{})
	s.Metrics = m

	_, _ = s.Submit(context.Background(), []byte(validBody), "203.0.113.7")
	_, _ = s.Submit(context.Background(), []byte(validBody), "203.0.113.7")
	_, _ = s.Submit(context.Background(), []byte(`{}`), "203.0.113.8")

	assert.Equal(t, []string{"success", "RATE_LIMITED", "INVALID_INPUT"}, m.outcomes)
}
