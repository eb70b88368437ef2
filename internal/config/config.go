package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Client    ClientConfig
	Storage   StorageConfig
	DevServer DevServerConfig
}

type ClientConfig struct {
	APIBaseURL        string
	SocketURL         string
	HTTPTimeout       time.Duration
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	Locale            string
	MetricsAddr       string

	// Both default to off.
	RejoinOnReconnect      bool
	QueueWhileDisconnected bool
}

type StorageConfig struct {
	Path      string
	RedisAddr string
	CacheDSN  string
}

type DevServerConfig struct {
	Port      string
	JWTSecret []byte
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("WARNING: no .env file loaded: %v", err)
	}

	return &Config{
		Client: ClientConfig{
			APIBaseURL:             getEnvOrDefault("CHERRYPICK_API_URL", "http://localhost:8080/api"),
			SocketURL:              getEnvOrDefault("CHERRYPICK_SOCKET_URL", "ws://localhost:8080/ws"),
			HTTPTimeout:            getDurationOrDefault("CHERRYPICK_HTTP_TIMEOUT", DefaultHTTPTimeout),
			ReconnectAttempts:      getIntOrDefault("CHERRYPICK_RECONNECT_ATTEMPTS", DefaultReconnectAttempts),
			ReconnectDelay:         getDurationOrDefault("CHERRYPICK_RECONNECT_DELAY", DefaultReconnectDelay),
			Locale:                 getEnvOrDefault("CHERRYPICK_LOCALE", "ko"),
			MetricsAddr:            os.Getenv("CHERRYPICK_METRICS_ADDR"),
			RejoinOnReconnect:      getBoolOrDefault("CHERRYPICK_REJOIN_ON_RECONNECT", false),
			QueueWhileDisconnected: getBoolOrDefault("CHERRYPICK_QUEUE_WHILE_DISCONNECTED", false),
		},
		Storage: StorageConfig{
			Path:      getEnvOrDefault("CHERRYPICK_STORE_PATH", "cherrypick.db"),
			RedisAddr: os.Getenv("CHERRYPICK_REDIS_ADDR"),
			CacheDSN:  os.Getenv("CHERRYPICK_CACHE_DSN"),
		},
		DevServer: DevServerConfig{
			Port:      getEnvOrDefault("DEVSERVER_PORT", ":8080"),
			JWTSecret: []byte(getEnvOrDefault("DEVSERVER_JWT_SECRET", "dev-secret")),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("WARNING: invalid duration for %s (%q), using %s", key, value, defaultValue)
		return defaultValue
	}
	return duration
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("WARNING: invalid integer for %s (%q), using %d", key, value, defaultValue)
		return defaultValue
	}
	return intValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("WARNING: invalid bool for %s (%q), using %t", key, value, defaultValue)
		return defaultValue
	}
	return boolValue
}
