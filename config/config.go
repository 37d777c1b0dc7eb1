package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUUID         string

	// Seat lock configuration
	SeatLockTTL time.Duration

	// Admission queue configuration
	MaxActiveSelectors int
	SelectionTimeout   time.Duration
	QueueSweepInterval time.Duration

	// Monitoring and ops
	EnableMetrics  bool
	MetricsPort    string
	AdminTokenHash string

	// Rate limiting
	RateLimitPerMinute int
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUUID:         getEnv("PUBNUB_UUID", "cinebook-server"),

		// Seat locks
		SeatLockTTL: getEnvAsDuration("SEAT_LOCK_TTL", "2m"),

		// Admission queue
		MaxActiveSelectors: getEnvAsInt("MAX_ACTIVE_SELECTORS", 10),
		SelectionTimeout:   getEnvAsDuration("SELECTION_TIMEOUT", "5m"),
		QueueSweepInterval: getEnvAsDuration("QUEUE_SWEEP_INTERVAL", "15s"),

		// Monitoring and ops
		EnableMetrics:  getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
		AdminTokenHash: getEnv("ADMIN_TOKEN_HASH", ""),

		// Rate limiting
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
