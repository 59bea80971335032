package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pkgstrings "volunteerhub/pkg/platform/strings"
)

// Config captures process-level configuration. Values come from environment
// variables so main stays lean and deployments stay twelve-factor.
type Config struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string

	// BaseURL is the externally reachable URL embedded in certificate QR
	// payloads.
	BaseURL string

	Redis RedisConfig
	Kafka KafkaConfig

	// ProofUploadDir is where the filesystem proof store writes objects
	// when no remote object store is configured.
	ProofUploadDir string

	// StatsCacheTTL bounds staleness of the admin dashboard projection.
	StatsCacheTTL time.Duration
}

// RedisConfig configures the optional read-side cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional audit outbox relay.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables with development
// defaults.
func FromEnv() Config {
	cfg := Config{
		Addr:           envOr("VOLUNTEERHUB_ADDR", ":8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSigningKey:  envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		BaseURL:        envOr("VOLUNTEERHUB_BASE_URL", "http://localhost:8080"),
		ProofUploadDir: envOr("PROOF_UPLOAD_DIR", "uploads/submissions"),
		StatsCacheTTL:  envDurationOr("STATS_CACHE_TTL", 30*time.Second),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Topic: envOr("KAFKA_AUDIT_TOPIC", "volunteerhub.audit"),
		},
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = pkgstrings.DedupeAndTrim(strings.Split(brokers, ","))
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}
