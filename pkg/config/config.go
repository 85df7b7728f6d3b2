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
	StoreBackendFirestore = "firestore"
	StoreBackendMemory    = "memory"
)

type Config struct {
	ServerPort  string
	Environment string
	LogLevel    string

	FirebaseProject            string
	FirebaseApiKey             string
	FirebaseServiceAccountJSON string
	FirebaseServiceAccountPath string
	StorageBucket              string

	StoreBackend   string
	AllowedOrigins []string

	StatusTTL              time.Duration
	MarkAllReadConcurrency int
	MessagesPerMinute      int
	ChatsPerHour           int
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", ""),

		FirebaseProject:            getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseApiKey:             getEnv("FIREBASE_API_KEY", ""),
		FirebaseServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		FirebaseServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		StorageBucket:              getEnv("STORAGE_BUCKET", ""),

		StoreBackend:   strings.ToLower(getEnv("STORE_BACKEND", StoreBackendFirestore)),
		AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS"),

		StatusTTL:              time.Duration(getEnvAsInt64("STATUS_TTL_HOURS", 24)) * time.Hour,
		MarkAllReadConcurrency: int(getEnvAsInt64("MARK_ALL_READ_CONCURRENCY", 8)),
		MessagesPerMinute:      int(getEnvAsInt64("RATE_LIMIT_MESSAGES_PER_MINUTE", 60)),
		ChatsPerHour:           int(getEnvAsInt64("RATE_LIMIT_CHATS_PER_HOUR", 30)),
	}

	switch config.StoreBackend {
	case StoreBackendMemory:
	case StoreBackendFirestore:
		if config.FirebaseProject == "" {
			return nil, fmt.Errorf("FIREBASE_PROJECT_ID is required for the %s backend", StoreBackendFirestore)
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", config.StoreBackend)
	}

	return config, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) UsesMemoryStore() bool {
	return c.StoreBackend == StoreBackendMemory
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
