package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	EmailSender    string  `env:"EMAIL_SENDER"`
	EmailReceiver  string  `env:"EMAIL_RECEIVER"`
	ResendAPIKey   string  `env:"RESEND_API_KEY"`
	EmailSendRPS   float64 `env:"EMAIL_SEND_RPS" envDefault:"2"`
	EmailSendBurst int     `env:"EMAIL_SEND_BURST" envDefault:"1"`

	// política canônica do envio: 3 por janela deslizante de 1 minuto
	RateLimit     int           `env:"RATE_LIMIT" envDefault:"3"`
	RateWindow    time.Duration `env:"RATE_WINDOW" envDefault:"1m"`
	RateBackend   string        `env:"RATE_BACKEND" envDefault:"memory"`
	RatePrefix    string        `env:"RATE_PREFIX" envDefault:"contact:ratelimit"`
	RateKeyHeader string        `env:"RATE_KEY_HEADER"`
	TrustXFF      bool          `env:"TRUST_XFF" envDefault:"true"`

	GlobalRateLimit  int           `env:"GLOBAL_RATE_LIMIT" envDefault:"120"`
	GlobalRateWindow time.Duration `env:"GLOBAL_RATE_WINDOW" envDefault:"1m"`

	RedisURL      string `env:"REDIS_URL"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	RateStatsEnabled   bool          `env:"RATE_STATS_ENABLED" envDefault:"false"`
	RateStatsPrefix    string        `env:"RATE_STATS_PREFIX" envDefault:"ratelimit:stats"`
	RateStatsTTL       time.Duration `env:"RATE_STATS_TTL" envDefault:"24h"`
	RateStatsBucket    string        `env:"RATE_STATS_BUCKET" envDefault:"minute"`
	RateStatsTrackKeys bool          `env:"RATE_STATS_TRACK_KEYS" envDefault:"false"`

	ConcurrencyMax     int           `env:"CONCURRENCY_MAX" envDefault:"100"`
	ConcurrencyTimeout time.Duration `env:"CONCURRENCY_TIMEOUT" envDefault:"0s"`

	SubmitTimeout time.Duration `env:"SUBMIT_TIMEOUT" envDefault:"10s"`
	MaxBodyBytes  int64         `env:"MAX_BODY_BYTES" envDefault:"16384"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogFile   string `env:"LOG_FILE"`

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// readConfig carrega envFile (se existir) e depois lê o ambiente.
// Variáveis já definidas no ambiente têm precedência sobre o arquivo.
func readConfig(envFile string) (config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return config{}, err
	}
	cfg.RateBackend = strings.ToLower(strings.TrimSpace(cfg.RateBackend))
	return cfg, cfg.validate()
}

func (c config) usesRedis() bool {
	return c.RateBackend == "redis" || c.RateStatsEnabled
}

func (c config) validate() error {
	if strings.TrimSpace(c.EmailSender) == "" {
		return errors.New("EMAIL_SENDER is required")
	}
	if strings.TrimSpace(c.EmailReceiver) == "" {
		return errors.New("EMAIL_RECEIVER is required")
	}
	if c.RateLimit <= 0 {
		return errors.New("RATE_LIMIT must be > 0")
	}
	if c.RateWindow <= 0 {
		return errors.New("RATE_WINDOW must be > 0")
	}
	switch c.RateBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("RATE_BACKEND must be memory or redis, got %q", c.RateBackend)
	}
	if c.usesRedis() && c.RedisURL == "" && c.RedisAddr == "" {
		return errors.New("REDIS_URL or REDIS_ADDR is required when RATE_BACKEND=redis or RATE_STATS_ENABLED=true")
	}
	if c.GlobalRateLimit < 0 {
		return errors.New("GLOBAL_RATE_LIMIT must be >= 0")
	}
	if c.GlobalRateLimit > 0 && c.GlobalRateWindow <= 0 {
		return errors.New("GLOBAL_RATE_WINDOW must be > 0")
	}
	if c.ConcurrencyMax < 0 {
		return errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if c.SubmitTimeout <= 0 {
		return errors.New("SUBMIT_TIMEOUT must be > 0")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("MAX_BODY_BYTES must be > 0")
	}
	return nil
}
