package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName           = "LumaPay"
	defaultEnv               = "development"
	defaultPort              = "8080"
	defaultLogLevel          = "info"
	defaultAccessTokenTTL    = 15 * time.Minute
	defaultRefreshTokenTTL   = 720 * time.Hour
	defaultAuthorizerTimeout = 5 * time.Second
	defaultNotifierTimeout   = 3 * time.Second
	defaultSweepInterval     = time.Minute
	defaultShutdownDelay     = 10 * time.Second
	defaultIdempotencyTTL    = 24 * time.Hour
	defaultWorkerMode        = WorkerModeMemory
	defaultKafkaTopic        = "transfers.scheduled"
	defaultKafkaGroupID      = "lumapay-settlement"
)

// Worker execution modes. Inline runs settlement in the request's own
// execution context, memory defers it to an in-process consumer, kafka
// defers it to a broker-backed consumer.
const (
	WorkerModeInline = "inline"
	WorkerModeMemory = "memory"
	WorkerModeKafka  = "kafka"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName  string
	Env      string
	Port     string
	LogLevel string

	DatabaseURL string
	RedisURL    string

	JWTSecret       string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	AuthorizerURL     string
	AuthorizerTimeout time.Duration
	NotifierURL       string
	NotifierTimeout   time.Duration

	WorkerMode    string
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaGroupID  string
	SweepInterval time.Duration

	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is honoured when present but never required.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getEnv("APP_NAME", defaultAppName),
		Env:               strings.ToLower(getEnv("APP_ENV", defaultEnv)),
		Port:              getEnv("PORT", defaultPort),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		JWTSecret:         getEnv("JWT_SECRET", "dev-secret"),
		RefreshSecret:     getEnv("REFRESH_SECRET", "dev-refresh-secret"),
		AccessTokenTTL:    defaultAccessTokenTTL,
		RefreshTokenTTL:   defaultRefreshTokenTTL,
		AuthorizerURL:     os.Getenv("AUTHORIZER_URL"),
		AuthorizerTimeout: defaultAuthorizerTimeout,
		NotifierURL:       os.Getenv("NOTIFIER_URL"),
		NotifierTimeout:   defaultNotifierTimeout,
		WorkerMode:        strings.ToLower(getEnv("WORKER_MODE", defaultWorkerMode)),
		KafkaTopic:        getEnv("KAFKA_TOPIC", defaultKafkaTopic),
		KafkaGroupID:      getEnv("KAFKA_GROUP_ID", defaultKafkaGroupID),
		SweepInterval:     defaultSweepInterval,
		ShutdownPeriod:    defaultShutdownDelay,
		IdempotencyTTL:    defaultIdempotencyTTL,
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.AccessTokenTTL, err = durationEnv("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = durationEnv("REFRESH_TOKEN_TTL", cfg.RefreshTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.AuthorizerTimeout, err = durationEnv("AUTHORIZER_TIMEOUT", cfg.AuthorizerTimeout); err != nil {
		return Config{}, err
	}
	if cfg.NotifierTimeout, err = durationEnv("NOTIFIER_TIMEOUT", cfg.NotifierTimeout); err != nil {
		return Config{}, err
	}
	if cfg.SweepInterval, err = durationEnv("SWEEP_INTERVAL", cfg.SweepInterval); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownPeriod, err = secondsOrDurationEnv("SHUTDOWN_TIMEOUT_SECONDS", "SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = secondsOrDurationEnv("IDEMPOTENCY_TTL_SECONDS", "IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}

	switch cfg.WorkerMode {
	case WorkerModeInline, WorkerModeMemory, WorkerModeKafka:
	default:
		return Config{}, fmt.Errorf("invalid WORKER_MODE %q", cfg.WorkerMode)
	}

	if cfg.WorkerMode == WorkerModeKafka && len(cfg.KafkaBrokers) == 0 {
		return Config{}, fmt.Errorf("KAFKA_BROKERS must be set when WORKER_MODE=kafka")
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.Env)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.Env)
		}
	}

	return cfg, nil
}

// IsDev reports whether the app runs in a local development environment,
// where Postgres and Redis may be replaced by in-memory backends.
func (c Config) IsDev() bool {
	switch c.Env {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func secondsOrDurationEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	return durationEnv(durationKey, fallback)
}
