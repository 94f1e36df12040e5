package config

import (
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"strconv"
	"time"
)

// ErrMissingDatabaseURL is returned by Load when DATABASE_URL is not set.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL environment variable is required")

// Config holds all configuration for the prediction service.
// It is read once at startup and never modified afterwards.
type Config struct {
	// Server
	APIHost     string
	APIPort     int
	GRPCPort    int
	Environment string

	// Storage
	DatabaseURL string
	RedisURL    string
	CacheTTL    time.Duration

	// Model
	ModelPath           string
	ModelVersion        string
	ConfidenceThreshold float64

	// Observability
	LogLevel     string
	OTLPEndpoint string

	// Messaging
	NATSURL string

	// Security
	JWTSecret string
}

// Load reads configuration from environment variables.
// DATABASE_URL is required; everything else falls back to a default.
func Load() (*Config, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}

	threshold, err := getEnvFloat("CONFIDENCE_THRESHOLD", 0.75)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("CONFIDENCE_THRESHOLD must be between 0.0 and 1.0, got %v", threshold)
	}

	apiPort, err := getEnvInt("API_PORT", 8000)
	if err != nil {
		return nil, err
	}
	grpcPort, err := getEnvInt("GRPC_PORT", 9090)
	if err != nil {
		return nil, err
	}
	if err := checkPort("API_PORT", apiPort); err != nil {
		return nil, err
	}
	if err := checkPort("GRPC_PORT", grpcPort); err != nil {
		return nil, err
	}
	ttlSeconds, err := getEnvInt("PREDICTION_CACHE_TTL", 300)
	if err != nil {
		return nil, err
	}
	if ttlSeconds <= 0 {
		return nil, fmt.Errorf("PREDICTION_CACHE_TTL must be a positive number of seconds, got %d", ttlSeconds)
	}

	return &Config{
		APIHost:             getEnv("API_HOST", "0.0.0.0"),
		APIPort:             apiPort,
		GRPCPort:            grpcPort,
		Environment:         getEnv("GO_ENV", "development"),
		DatabaseURL:         databaseURL,
		RedisURL:            getEnv("REDIS_URL", ""),
		CacheTTL:            time.Duration(ttlSeconds) * time.Second,
		ModelPath:           getEnv("MODEL_PATH", "/models/icd10_classifier.pkl"),
		ModelVersion:        getEnv("MODEL_VERSION", "mock-0.1.0"),
		ConfidenceThreshold: threshold,
		LogLevel:            getEnv("LOG_LEVEL", "INFO"),
		OTLPEndpoint:        getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		NATSURL:             getEnv("NATS_URL", ""),
		JWTSecret:           getEnv("JWT_SECRET", ""),
	}, nil
}

// Validate checks that the configured model file exists on disk.
func (c *Config) Validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("model path %q does not exist", c.ModelPath)
	}
	if _, err := os.Stat(c.ModelPath); err != nil {
		return fmt.Errorf("model path %s does not exist: %w", c.ModelPath, err)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.APIHost, strconv.Itoa(c.APIPort))
}

// GRPCAddr returns the gRPC bind address.
func (c *Config) GRPCAddr() string {
	return net.JoinHostPort(c.APIHost, strconv.Itoa(c.GRPCPort))
}

// IsProduction reports whether GO_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func checkPort(key string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", key, port)
	}
	return nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return f, nil
}
