package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Server captures process level configuration.
type Server struct {
	Addr     string
	LogLevel string

	Auth      Auth
	Business  Business
	Bootstrap Bootstrap
	Notify    Notify
	Redis     RedisConfig
	Kafka     KafkaConfig
	Postgres  PostgresConfig
}

// Auth configures session tokens and credential-failure escalation.
type Auth struct {
	// JWTSigningKey is empty when unset; the server then generates a random
	// key per process, so tokens do not survive a restart.
	JWTSigningKey string
	TokenTTL      time.Duration
	// FailureWindow bounds how long consecutive credential failures count
	// toward a security alert.
	FailureWindow time.Duration
}

// Business holds the initial global settings.
type Business struct {
	GoldRate       decimal.Decimal // per 10 g
	OperationsOpen bool
}

// Bootstrap creates the first owner account when both fields are set.
type Bootstrap struct {
	OwnerUsername string
	OwnerPassword string
}

// Notify configures the post-commit notification worker.
type Notify struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

type RedisConfig struct {
	URL          string
	Channel      string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// FromEnv builds a Server config from AURUM_* environment variables so main stays lean.
func FromEnv() (Server, error) {
	rate, err := decimal.NewFromString(getenv("AURUM_GOLD_RATE", "0"))
	if err != nil {
		return Server{}, fmt.Errorf("AURUM_GOLD_RATE: %w", err)
	}
	if rate.IsNegative() {
		return Server{}, fmt.Errorf("AURUM_GOLD_RATE must not be negative")
	}

	cfg := Server{
		Addr:     getenv("AURUM_ADDR", ":8080"),
		LogLevel: getenv("AURUM_LOG_LEVEL", "info"),
		Auth: Auth{
			JWTSigningKey: os.Getenv("AURUM_JWT_SIGNING_KEY"),
		},
		Business: Business{GoldRate: rate},
		Bootstrap: Bootstrap{
			OwnerUsername: os.Getenv("AURUM_BOOTSTRAP_OWNER"),
			OwnerPassword: os.Getenv("AURUM_BOOTSTRAP_OWNER_PASSWORD"),
		},
		Redis: RedisConfig{
			URL:     os.Getenv("AURUM_REDIS_URL"),
			Channel: getenv("AURUM_REDIS_CHANNEL", "aurum.audit"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("AURUM_KAFKA_BROKERS")),
			Topic:   getenv("AURUM_KAFKA_TOPIC", "aurum.audit"),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("AURUM_POSTGRES_DSN"),
		},
	}

	var errs []string
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	cfg.Business.OperationsOpen, err = getbool("AURUM_OPERATIONS_OPEN", false)
	collect(err)
	cfg.Auth.TokenTTL, err = getduration("AURUM_TOKEN_TTL", 12*time.Hour)
	collect(err)
	cfg.Auth.FailureWindow, err = getduration("AURUM_FAILURE_WINDOW", 15*time.Minute)
	collect(err)
	cfg.Notify.BufferSize, err = getint("AURUM_NOTIFY_BUFFER", 4096)
	collect(err)
	cfg.Notify.BatchSize, err = getint("AURUM_NOTIFY_BATCH", 64)
	collect(err)
	cfg.Notify.FlushInterval, err = getduration("AURUM_NOTIFY_FLUSH_INTERVAL", time.Second)
	collect(err)
	cfg.Redis.PoolSize, err = getint("AURUM_REDIS_POOL_SIZE", 10)
	collect(err)
	cfg.Redis.MinIdleConns, err = getint("AURUM_REDIS_MIN_IDLE", 2)
	collect(err)
	cfg.Redis.DialTimeout, err = getduration("AURUM_REDIS_DIAL_TIMEOUT", 5*time.Second)
	collect(err)
	cfg.Redis.ReadTimeout, err = getduration("AURUM_REDIS_READ_TIMEOUT", 3*time.Second)
	collect(err)
	cfg.Redis.WriteTimeout, err = getduration("AURUM_REDIS_WRITE_TIMEOUT", 3*time.Second)
	collect(err)
	cfg.Postgres.MaxOpenConns, err = getint("AURUM_POSTGRES_MAX_OPEN", 10)
	collect(err)
	cfg.Postgres.MaxIdleConns, err = getint("AURUM_POSTGRES_MAX_IDLE", 5)
	collect(err)
	cfg.Postgres.ConnMaxLifetime, err = getduration("AURUM_POSTGRES_CONN_LIFETIME", 30*time.Minute)
	collect(err)

	if len(errs) > 0 {
		return Server{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// HasBootstrapOwner reports whether an initial owner account should be created.
func (s Server) HasBootstrapOwner() bool {
	return s.Bootstrap.OwnerUsername != "" && s.Bootstrap.OwnerPassword != ""
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return n, nil
}

func getbool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", key)
	}
	return b, nil
}

func getduration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration", key)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
