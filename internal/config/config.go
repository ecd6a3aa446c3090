package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName       = "NilePay"
	defaultAppEnv        = "development"
	defaultPort          = "8080"
	defaultLogLevel      = "info"
	defaultShutdownDelay = 10 * time.Second
	defaultIdemTTL       = 24 * time.Hour
	defaultConnTimeout   = 5 * time.Second
	defaultDBMaxConns    = 10

	defaultReportInterval = 24 * time.Hour
	defaultReportRetries  = 3
	defaultReportBackoff  = 10 * time.Second
	defaultKafkaTopic     = "movement_recorded"
)

// Config captures application runtime configuration loaded from environment
// variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	DBMaxConns     int32
	ConnectTimeout time.Duration
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	// Report aggregation cadence and retry policy.
	ReportInterval     time.Duration
	ReportMaxRetries   int
	ReportRetryBackoff time.Duration

	// Movement event publishing. Empty brokers disable Kafka and fall back
	// to the logging publisher.
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration values from the environment.
func Load() (Config, error) {
	cfg := Config{
		AppName:            getEnv("APP_NAME", defaultAppName),
		AppEnv:             getEnv("APP_ENV", defaultAppEnv),
		Port:               getEnv("PORT", defaultPort),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		DBMaxConns:         defaultDBMaxConns,
		ConnectTimeout:     defaultConnTimeout,
		ShutdownPeriod:     defaultShutdownDelay,
		IdempotencyTTL:     defaultIdemTTL,
		ReportInterval:     defaultReportInterval,
		ReportMaxRetries:   defaultReportRetries,
		ReportRetryBackoff: defaultReportBackoff,
		KafkaTopic:         getEnv("KAFKA_TOPIC", defaultKafkaTopic),
	}

	var err error
	if cfg.ShutdownPeriod, err = getDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = getDuration("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.ReportInterval, err = getDuration("REPORT_INTERVAL", cfg.ReportInterval); err != nil {
		return Config{}, err
	}
	if cfg.ReportRetryBackoff, err = getDuration("REPORT_RETRY_BACKOFF", cfg.ReportRetryBackoff); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("REPORT_MAX_RETRIES"); v != "" {
		retries, err := strconv.Atoi(v)
		if err != nil || retries < 0 {
			return Config{}, fmt.Errorf("invalid REPORT_MAX_RETRIES: %q", v)
		}
		cfg.ReportMaxRetries = retries
	}

	if cfg.ConnectTimeout, err = getDuration("CONNECT_TIMEOUT", cfg.ConnectTimeout); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("DB_MAX_CONNS"); v != "" {
		conns, err := strconv.Atoi(v)
		if err != nil || conns <= 0 {
			return Config{}, fmt.Errorf("invalid DB_MAX_CONNS: %q", v)
		}
		cfg.DBMaxConns = int32(conns)
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		for _, broker := range strings.Split(v, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
	}

	// Development may run against the in-memory stores; everywhere else the
	// backing services are mandatory.
	if cfg.AppEnv != "development" {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
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

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
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
