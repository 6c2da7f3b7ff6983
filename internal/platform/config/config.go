package config

import (
	"os"
	"strings"
	"time"
)

// StoreMode selects the persistence backend for all four entity collections.
type StoreMode string

const (
	// StoreModeMemory keeps everything in process memory with deterministic
	// IDs - the development and test default.
	StoreModeMemory StoreMode = "memory"

	// StoreModePostgres persists through PostgreSQL.
	StoreModePostgres StoreMode = "postgres"
)

// RedisConfig configures the optional notification delivery queue.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional history feed.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Server captures process level configuration. Built once in main and passed
// down explicitly; nothing in this package is cached or mutated afterwards.
type Server struct {
	Addr          string
	StoreMode     StoreMode
	PostgresURL   string
	Redis         RedisConfig
	Kafka         KafkaConfig
	JWTSigningKey string
	// StaticActor backs identity resolution in memory mode, mirroring the
	// fixed development identity used before real auth is configured.
	StaticActorID   string
	StaticActorName string
	StaticActorRole string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("EVENTDESK_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	mode := StoreMode(os.Getenv("EVENTDESK_STORE_MODE"))
	if mode != StoreModePostgres {
		mode = StoreModeMemory
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	kafkaTopic := os.Getenv("EVENTDESK_KAFKA_TOPIC")
	if kafkaTopic == "" {
		kafkaTopic = "eventdesk.history"
	}
	var brokers []string
	if raw := os.Getenv("EVENTDESK_KAFKA_BROKERS"); raw != "" {
		for _, broker := range strings.Split(raw, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				brokers = append(brokers, broker)
			}
		}
	}

	staticID := os.Getenv("EVENTDESK_STATIC_ACTOR_ID")
	if staticID == "" {
		staticID = "00000000-0000-0000-0000-000000000001"
	}
	staticName := os.Getenv("EVENTDESK_STATIC_ACTOR_NAME")
	if staticName == "" {
		staticName = "Mock Employee"
	}
	staticRole := os.Getenv("EVENTDESK_STATIC_ACTOR_ROLE")
	if staticRole == "" {
		staticRole = "employee"
	}

	return Server{
		Addr:        addr,
		StoreMode:   mode,
		PostgresURL: os.Getenv("EVENTDESK_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("EVENTDESK_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   kafkaTopic,
		},
		JWTSigningKey:   jwtSigningKey,
		StaticActorID:   staticID,
		StaticActorName: staticName,
		StaticActorRole: staticRole,
	}
}
