package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contact-gateway/contact"
	"contact-gateway/contact/application"
	contactdomain "contact-gateway/contact/domain"
	contactinfra "contact-gateway/contact/infra"
	"contact-gateway/logging"
	"contact-gateway/middleware/ratelimit"
	rlapp "contact-gateway/middleware/ratelimit/application"
	"contact-gateway/middleware/ratelimit/domain"
	"contact-gateway/middleware/ratelimit/infra"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before reading the environment (ignored if missing)")
	listen := pflag.String("listen", "", "listen address (overrides LISTEN_ADDR)")
	pflag.Parse()

	cfg, err := readConfig(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}

	log, closeLog, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg, log); err != nil {
		log.Error("gateway stopped", zap.Error(err))
		closeLog()
		os.Exit(1)
	}
}

func run(cfg config, log *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	if cfg.MetricsEnabled {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	var rdb redis.UniversalClient
	if cfg.usesRedis() {
		c, err := newRedisClient(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = c.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		rdb = c
	}

	var stats domain.MultiStats
	if cfg.MetricsEnabled {
		ps, err := infra.NewPrometheusStatsStore(reg)
		if err != nil {
			return err
		}
		stats = append(stats, ps)
	}
	if cfg.RateStatsEnabled {
		stats = append(stats, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.RateStatsPrefix),
			infra.WithStatsTTL(cfg.RateStatsTTL),
			infra.WithStatsBucket(cfg.RateStatsBucket),
			infra.WithStatsTrackKeys(cfg.RateStatsTrackKeys),
		))
	}

	policy := domain.Policy{Limit: cfg.RateLimit, Window: cfg.RateWindow}
	var window policyWindow
	switch cfg.RateBackend {
	case "redis":
		window = infra.NewRedisWindow(rdb, policy, infra.WithWindowPrefix(cfg.RatePrefix))
	default:
		mw := infra.NewMemoryWindow(policy)
		mw.StartJanitor(ctx)
		window = mw
	}

	var mailer contactdomain.Mailer
	if cfg.ResendAPIKey != "" {
		mailer = contactinfra.NewResendMailer(cfg.ResendAPIKey, contactinfra.WithSendRate(cfg.EmailSendRPS, cfg.EmailSendBurst))
	} else {
		log.Warn("RESEND_API_KEY not set: emails will only be logged")
		mailer = contactinfra.NewLogMailer(log)
	}

	var metrics contactdomain.Metrics
	if cfg.MetricsEnabled {
		m, err := contactinfra.NewPrometheusMetrics(reg)
		if err != nil {
			return err
		}
		metrics = m
	}

	keyFn := ratelimit.DefaultKeyFunc(cfg.RateKeyHeader, cfg.TrustXFF)
	submitter := application.Submitter{
		Limiter: rlapp.Service{
			Window: window,
			Stats:  statsOrNil(stats),
			Scope:  "contact",
		},
		Validator: contactinfra.NewSchemaValidator(),
		Sanitizer: contactinfra.NewHTMLSanitizer(),
		Mailer:    mailer,
		Metrics:   metrics,
		Logger:    log.With(zap.String("component", "contact")),
		Sender:    cfg.EmailSender,
		Receiver:  cfg.EmailReceiver,
		Timeout:   cfg.SubmitTimeout,
	}

	mux := http.NewServeMux()
	mux.Handle("/api/send-email", contact.Handler(contact.Options{
		Submitter:    submitter,
		KeyFn:        keyFn,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Logger:       log,
	}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}

	h := http.Handler(mux)
	pool := infra.NewChanPool(max(cfg.ConcurrencyMax, 1))
	if cfg.ConcurrencyMax > 0 {
		if cfg.MetricsEnabled {
			reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "gateway_inflight_requests",
				Help: "Requests holding a concurrency slot",
			}, func() float64 { return float64(pool.InUse()) }))
		}
		h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
			Pool:           pool,
			RejectStatus:   http.StatusServiceUnavailable,
			AcquireTimeout: cfg.ConcurrencyTimeout,
		})(h)
	}
	if cfg.GlobalRateLimit > 0 {
		global := infra.NewMemoryWindow(domain.Policy{Limit: cfg.GlobalRateLimit, Window: cfg.GlobalRateWindow})
		global.StartJanitor(ctx)
		log.Info("global rate limit", zap.Int("limit", global.Policy().Limit), zap.Duration("window", global.Policy().Window))
		h = ratelimit.Middleware(ratelimit.Options{
			Window:   global,
			Stats:    statsOrNil(stats),
			Scope:    "global",
			KeyFn:    keyFn,
			FailOpen: true,
			OnError: func(r *http.Request, err error) {
				log.Warn("global rate limit failed", zap.Error(err), zap.String("path", r.URL.Path))
			},
		})(h)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("gateway listening", zap.String("addr", cfg.ListenAddr))
	log.Info("contact rate limit",
		zap.String("backend", cfg.RateBackend),
		zap.Int("limit", window.Policy().Limit),
		zap.Duration("window", window.Policy().Window),
		zap.Bool("trust_xff", cfg.TrustXFF),
		zap.String("key_header", cfg.RateKeyHeader),
	)
	log.Info("rate stats", zap.Bool("redis", cfg.RateStatsEnabled), zap.Bool("prometheus", cfg.MetricsEnabled))
	log.Info("concurrency", zap.Int("max", cfg.ConcurrencyMax), zap.Duration("acquire_timeout", cfg.ConcurrencyTimeout))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// policyWindow é uma Window que informa a política em vigor (para log).
type policyWindow interface {
	domain.Window
	Policy() domain.Policy
}

func newRedisClient(cfg config) (*redis.Client, error) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}), nil
}

// statsOrNil devolve nil quando nenhum store de stats foi configurado.
func statsOrNil(s domain.MultiStats) domain.StatsStore {
	if len(s) == 0 {
		return nil
	}
	return s
}
