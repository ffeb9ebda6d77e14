package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the service configuration loaded from the environment.
type Config struct {
	Port          string
	MongoURI      string
	MongoDatabase string
	JWTSecret     string
	TokenTTL      time.Duration
	AMQPURL       string
	AuditExchange string
	EventExchange string
	Environment   string
	OTLPEndpoint  string
	Debug         bool
}

// Load reads configuration from the environment, loading a .env file first
// when one is present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:          getEnv("PORT", "8083"),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "alumni_connect"),
		JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:      getDuration("TOKEN_TTL", 24*time.Hour),
		AMQPURL:       os.Getenv("AMQP_URL"),
		AuditExchange: getEnv("AUDIT_EXCHANGE", "audit_logs"),
		EventExchange: getEnv("EVENT_EXCHANGE", "chat_events"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Debug:         os.Getenv("DEBUG") == "true",
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
