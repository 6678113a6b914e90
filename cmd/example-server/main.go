package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contact-gateway/contact"
	"contact-gateway/contact/application"
	contactinfra "contact-gateway/contact/infra"
	"contact-gateway/logging"
	"contact-gateway/middleware/ratelimit"
	rlapp "contact-gateway/middleware/ratelimit/application"
	"contact-gateway/middleware/ratelimit/domain"
	"contact-gateway/middleware/ratelimit/infra"

	"go.uber.org/zap"
)

func main() {
	// Exemplo: endpoint de contato sem serviços externos (janela em memória,
	// e-mails só no log). Útil para testar o formulário localmente:
	//
	//   curl -XPOST localhost:8081/api/send-email \
	//     -d '{"name":"Jane Doe","email":"jane@example.com","message":"Hello"}'
	log, closeLog, err := logging.New(logging.Config{Level: "debug", Format: "console"})
	if err != nil {
		panic(err)
	}
	defer closeLog()

	window := infra.NewMemoryWindow(domain.Policy{Limit: 3, Window: time.Minute})
	stats := infra.NewMemoryStatsStore(infra.WithTrackKeys(true))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	window.StartJanitor(ctx)

	keyFn := ratelimit.DefaultKeyFunc("", true)
	submitter := application.Submitter{
		Limiter:   rlapp.Service{Window: window, Stats: stats, Scope: "contact"},
		Validator: contactinfra.NewSchemaValidator(),
		Sanitizer: contactinfra.NewHTMLSanitizer(),
		Mailer:    contactinfra.NewLogMailer(log),
		Logger:    log,
		Sender:    "noreply@localhost",
		Receiver:  "inbox@localhost",
	}

	mux := http.NewServeMux()
	mux.Handle("/api/send-email", contact.Handler(contact.Options{Submitter: submitter, KeyFn: keyFn, Logger: log}))
	mux.HandleFunc("/debug/ratelimit", func(w http.ResponseWriter, r *http.Request) {
		// decisão do guard global para esta própria request
		you, _ := ratelimit.DecisionFrom(r.Context())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"total":   stats.Total(),
			"byScope": stats.ByScope(),
			"byKey":   stats.ByKey(),
			"keys":    window.Len(),
			"policy":  window.Policy(),
			"you": map[string]any{
				"limit":     you.Limit,
				"remaining": you.Remaining,
				"resetAt":   you.ResetAt,
			},
		})
	})

	global := infra.NewMemoryWindow(domain.Policy{Limit: 60, Window: time.Minute})
	global.StartJanitor(ctx)

	h := http.Handler(mux)
	h = ratelimit.Middleware(ratelimit.Options{
		Window:              global,
		Stats:               stats,
		KeyFn:               keyFn,
		AddRateLimitHeaders: true,
	})(h)
	h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{Max: 50})(h)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("example server listening",
		zap.String("addr", addr),
		zap.Int("contact_limit", window.Policy().Limit),
		zap.Duration("contact_window", window.Policy().Window),
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server error", zap.Error(err))
	}
}
