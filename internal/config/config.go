package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	ServerPort string
	LogLevel   string

	// AuthJWTSecret verifies session tokens minted by the identity provider's JWT template.
	AuthJWTSecret string
	// WebhookSecret is the identity provider's signing secret ("whsec_..." form).
	WebhookSecret string

	RedisURL string
	// WorkerInstance names this process's stream consumers. Defaults to the hostname.
	WorkerInstance string

	StorageEndpoint        string
	StorageRegion          string
	StorageAccessKeyID     string
	StorageSecretAccessKey string
	StorageBucket          string
	StoragePublicURL       string

	MapsAPIKey  string
	MapsBaseURL string

	ExpoPushURL string

	FollowRequestRatePerMin int
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Not fatal: production injects plain environment variables.
		fmt.Fprintln(os.Stderr, "no .env file loaded, relying on environment variables")
	}

	followRate, err := strconv.Atoi(os.Getenv("FOLLOW_REQUEST_RATE_PER_MIN"))
	if err != nil || followRate <= 0 {
		followRate = 20
	}

	return &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBHost:      os.Getenv("DB_HOST"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      os.Getenv("DB_USER"),
		DBPassword:  os.Getenv("DB_PASSWORD"),
		DBName:      os.Getenv("DB_NAME"),
		DBSSLMode:   getEnv("DB_SSLMODE", "require"),

		ServerPort: getEnv("SERVER_PORT", "8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		AuthJWTSecret: os.Getenv("AUTH_JWT_SECRET"),
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),

		RedisURL:       os.Getenv("REDIS_URL"),
		WorkerInstance: os.Getenv("WORKER_INSTANCE"),

		StorageEndpoint:        os.Getenv("STORAGE_ENDPOINT"),
		StorageRegion:          getEnv("STORAGE_REGION", "auto"),
		StorageAccessKeyID:     os.Getenv("STORAGE_ACCESS_KEY_ID"),
		StorageSecretAccessKey: os.Getenv("STORAGE_SECRET_ACCESS_KEY"),
		StorageBucket:          getEnv("STORAGE_BUCKET", "files"),
		StoragePublicURL:       os.Getenv("STORAGE_PUBLIC_URL"),

		MapsAPIKey:  os.Getenv("MAPS_API_KEY"),
		MapsBaseURL: getEnv("MAPS_BASE_URL", "https://maps.googleapis.com/maps/api"),

		ExpoPushURL: getEnv("EXPO_PUSH_URL", "https://exp.host/--/api/v2/push/send"),

		FollowRequestRatePerMin: followRate,
	}, nil
}

// DSN returns DATABASE_URL when set, otherwise a postgres URL assembled from the DB_* keys.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// Validate checks the settings the HTTP server cannot start without.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" && (c.DBHost == "" || c.DBName == "") {
		return errors.New("database is not configured: set DATABASE_URL or DB_HOST and DB_NAME")
	}
	if c.AuthJWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}
	return nil
}

// StorageEnabled reports whether object storage credentials are present.
func (c *Config) StorageEnabled() bool {
	return c.StorageAccessKeyID != "" && c.StorageSecretAccessKey != "" && c.StoragePublicURL != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
