// Package config builds construction-time configuration from the environment
// so main stays lean. Nothing here is hot-reloaded: the pattern catalogues,
// limits, and store endpoints are fixed for the lifetime of the process.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Redis captures connection settings for the optional Redis-backed stores.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures settings for the optional audit event publisher.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Server is the top-level service configuration.
type Server struct {
	Addr string

	// Admission limits.
	MaxRequests    int
	TimeWindow     time.Duration
	SessionTimeout time.Duration
	RetentionDays  int

	// Downstream query executor.
	ExecutorURL     string
	ExecutorTimeout time.Duration

	// Optional backing stores; empty means in-memory.
	Redis       Redis
	PostgresURL string
	Kafka       Kafka

	// bcrypt hash guarding the operations endpoints. Empty disables them.
	OpsKeyHash string

	// Policy overrides; empty slices fall back to package defaults.
	ProhibitedTopics []string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:            envString("GATEKEEPER_ADDR", ":8080"),
		MaxRequests:     envInt("GATEKEEPER_MAX_REQUESTS", 10),
		TimeWindow:      envSeconds("GATEKEEPER_TIME_WINDOW_SECONDS", 60),
		SessionTimeout:  envSeconds("GATEKEEPER_SESSION_TIMEOUT_SECONDS", 1800),
		RetentionDays:   envInt("GATEKEEPER_RETENTION_DAYS", 30),
		ExecutorURL:     os.Getenv("GATEKEEPER_EXECUTOR_URL"),
		ExecutorTimeout: envSeconds("GATEKEEPER_EXECUTOR_TIMEOUT_SECONDS", 30),
		Redis: Redis{
			URL:          os.Getenv("GATEKEEPER_REDIS_URL"),
			PoolSize:     envInt("GATEKEEPER_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("GATEKEEPER_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envSeconds("GATEKEEPER_REDIS_DIAL_TIMEOUT_SECONDS", 5),
			ReadTimeout:  envSeconds("GATEKEEPER_REDIS_READ_TIMEOUT_SECONDS", 3),
			WriteTimeout: envSeconds("GATEKEEPER_REDIS_WRITE_TIMEOUT_SECONDS", 3),
		},
		PostgresURL: os.Getenv("GATEKEEPER_POSTGRES_URL"),
		Kafka: Kafka{
			Brokers: envList("GATEKEEPER_KAFKA_BROKERS"),
			Topic:   envString("GATEKEEPER_KAFKA_AUDIT_TOPIC", "gatekeeper.audit"),
		},
		OpsKeyHash:       os.Getenv("GATEKEEPER_OPS_KEY_HASH"),
		ProhibitedTopics: envList("GATEKEEPER_PROHIBITED_TOPICS"),
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
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envSeconds(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Second
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
