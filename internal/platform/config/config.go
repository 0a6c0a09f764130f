package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration. FromEnv builds it from
// environment variables so main stays lean.
type Server struct {
	Addr          string
	LogLevel      string
	JWTSigningKey string

	PostgresURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	Cooldowns map[string]time.Duration
}

// RedisConfig holds connection tuning for the optional Redis-backed identity
// index. An empty URL disables Redis and falls back to the in-memory index.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds the audit sink settings. Empty brokers disable the sink.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Default cooldown windows per aid category. Overridable per category via
// RELIEFCORE_COOLDOWN_<CATEGORY> in Go duration syntax.
var defaultCooldowns = map[string]time.Duration{
	"FOOD":     72 * time.Hour,
	"WATER":    24 * time.Hour,
	"MEDICAL":  7 * 24 * time.Hour,
	"SHELTER":  30 * 24 * time.Hour,
	"CLOTHING": 30 * 24 * time.Hour,
	"CASH":     14 * 24 * time.Hour,
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:          envOr("RELIEFCORE_ADDR", ":8080"),
		LogLevel:      envOr("RELIEFCORE_LOG_LEVEL", "info"),
		JWTSigningKey: envOr("RELIEFCORE_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PostgresURL:   os.Getenv("RELIEFCORE_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("RELIEFCORE_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("RELIEFCORE_KAFKA_BROKERS")),
			Topic:   envOr("RELIEFCORE_KAFKA_AUDIT_TOPIC", "reliefcore.audit"),
		},
		Cooldowns: make(map[string]time.Duration, len(defaultCooldowns)),
	}

	for category, window := range defaultCooldowns {
		cfg.Cooldowns[category] = window
		if raw := os.Getenv("RELIEFCORE_COOLDOWN_" + category); raw != "" {
			if d, err := time.ParseDuration(raw); err == nil && d > 0 {
				cfg.Cooldowns[category] = d
			}
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
