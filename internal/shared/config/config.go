package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	EventStore EventStoreConfig
	Auth       AuthConfig
	Notify     NotifyConfig
	Media      MediaConfig
	RateLimit  RateLimitConfig
	Assistant  AssistantConfig
}

type ServerConfig struct {
	Port        int
	Env         string
	CORSOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// EventStoreConfig holds configuration for EventStoreDB, which carries the
// domain-event stream and the append-only audit log.
type EventStoreConfig struct {
	Host     string
	Port     int
	Insecure bool
	Username string
	Password string
	Enabled  bool
}

type AuthConfig struct {
	JWTSecret     string
	Issuer        string
	TokenTTLHours int
}

// NotifyConfig tunes the asynchronous notification dispatcher.
type NotifyConfig struct {
	Workers       int
	BufferSize    int
	RetryAttempts int
	RetryDelaySec int
}

// MediaConfig points at the directory holding uploaded complaint photos.
type MediaConfig struct {
	Dir         string
	MaxUploadMB int
}

type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// AssistantConfig points at the retrieval-augmented assistant sidecar.
type AssistantConfig struct {
	URL     string
	Enabled bool
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port:        getEnvInt("SERVER_PORT", 8080),
			Env:         getEnv("ENV", "development"),
			CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "civicdesk"),
			Password: getEnv("DB_PASSWORD", "civicdesk"),
			Database: getEnv("DB_NAME", "civicdesk"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		EventStore: EventStoreConfig{
			Host:     getEnv("EVENTSTORE_HOST", "localhost"),
			Port:     getEnvInt("EVENTSTORE_PORT", 2113),
			Insecure: getEnvBool("EVENTSTORE_INSECURE", true),
			Username: getEnv("EVENTSTORE_USERNAME", ""),
			Password: getEnv("EVENTSTORE_PASSWORD", ""),
			Enabled:  getEnvBool("EVENTSTORE_ENABLED", true),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
			Issuer:        getEnv("JWT_ISSUER", "civicdesk"),
			TokenTTLHours: getEnvInt("JWT_TTL_HOURS", 12),
		},
		Notify: NotifyConfig{
			Workers:       getEnvInt("NOTIFY_WORKERS", 4),
			BufferSize:    getEnvInt("NOTIFY_BUFFER", 1000),
			RetryAttempts: getEnvInt("NOTIFY_RETRIES", 3),
			RetryDelaySec: getEnvInt("NOTIFY_RETRY_DELAY_SEC", 30),
		},
		Media: MediaConfig{
			Dir:         getEnv("MEDIA_DIR", "./media"),
			MaxUploadMB: getEnvInt("MEDIA_MAX_UPLOAD_MB", 10),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvInt("RATE_LIMIT_RPS", 50),
			Burst:             getEnvInt("RATE_LIMIT_BURST", 100),
		},
		Assistant: AssistantConfig{
			URL:     getEnv("ASSISTANT_SERVICE_URL", "http://localhost:5000"),
			Enabled: getEnvBool("ASSISTANT_ENABLED", false),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, v := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
