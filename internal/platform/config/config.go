// Package config builds runtime configuration from the environment so main
// stays lean. Every section validates itself with ozzo-validation before the
// server starts.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config is the full runtime configuration for the taaruf core service.
type Config struct {
	Addr          string
	PostgresDSN   string
	JWTSigningKey string

	Redis Redis
	Kafka Kafka
	Abuse Abuse

	// RecomputeBatchSize bounds one page of the background trait sweep.
	RecomputeBatchSize int
	// RecomputeParallelism bounds concurrent per-user recomputations.
	RecomputeParallelism int
}

// Redis holds the counter-store connection settings. An empty URL means the
// in-memory counter store is used (single instance only).
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka holds the optional notification fan-out settings. No brokers means
// notifications stay in the store only.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Abuse holds the anti-abuse guard policy knobs.
type Abuse struct {
	// FailOpen controls degradation when the counter store errors: true lets
	// the decision through, false rejects it as rate limited.
	FailOpen bool

	DecisionLimit  int
	DecisionWindow time.Duration
	AddrLimit      int
	AddrWindow     time.Duration
	PairCooldown   time.Duration
	BurstThreshold int
	BurstWindow    time.Duration
	IdempotencyTTL time.Duration
}

func (c Config) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.JWTSigningKey, validation.Required),
		validation.Field(&c.RecomputeBatchSize, validation.Min(1)),
		validation.Field(&c.RecomputeParallelism, validation.Min(1)),
	); err != nil {
		return err
	}
	return c.Abuse.Validate()
}

func (a Abuse) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.DecisionLimit, validation.Min(1)),
		validation.Field(&a.AddrLimit, validation.Min(1)),
		validation.Field(&a.BurstThreshold, validation.Min(1)),
		validation.Field(&a.DecisionWindow, validation.Required),
		validation.Field(&a.AddrWindow, validation.Required),
		validation.Field(&a.BurstWindow, validation.Required),
	)
}

// FromEnv builds a Config from environment variables, applying defaults where
// a variable is unset.
func FromEnv() Config {
	return Config{
		Addr:          envString("TAARUF_ADDR", ":8080"),
		PostgresDSN:   os.Getenv("TAARUF_POSTGRES_DSN"),
		JWTSigningKey: envString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Redis: Redis{
			URL:          os.Getenv("TAARUF_REDIS_URL"),
			PoolSize:     envInt("TAARUF_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("TAARUF_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("TAARUF_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("TAARUF_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("TAARUF_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: envList("TAARUF_KAFKA_BROKERS"),
			Topic:   envString("TAARUF_KAFKA_TOPIC", "taaruf.notifications"),
		},
		Abuse: Abuse{
			FailOpen:       envString("ABUSE_FAIL_OPEN", "true") == "true",
			DecisionLimit:  envInt("ABUSE_DECISION_LIMIT", 30),
			DecisionWindow: envDuration("ABUSE_DECISION_WINDOW", time.Minute),
			AddrLimit:      envInt("ABUSE_ADDR_LIMIT", 100),
			AddrWindow:     envDuration("ABUSE_ADDR_WINDOW", time.Minute),
			PairCooldown:   envDuration("ABUSE_PAIR_COOLDOWN", 5*time.Second),
			BurstThreshold: envInt("ABUSE_BURST_THRESHOLD", 50),
			BurstWindow:    envDuration("ABUSE_BURST_WINDOW", 10*time.Minute),
			IdempotencyTTL: envDuration("ABUSE_IDEMPOTENCY_TTL", 24*time.Hour),
		},
		RecomputeBatchSize:   envInt("RECOMPUTE_BATCH_SIZE", 200),
		RecomputeParallelism: envInt("RECOMPUTE_PARALLELISM", 8),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
