package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"surveystats/internal/errors"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Analysis AnalysisConfig
	Input    InputConfig
	Server   ServerConfig
	Database DatabaseConfig
	LogLevel string
}

// AnalysisConfig holds estimation defaults
type AnalysisConfig struct {
	MinN            int
	ConfidenceLevel float64
	SEEstimator     string
	Workers         int
}

// InputConfig holds table reading settings
type InputConfig struct {
	MissingTokens []string
	Sheet         string
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Port            string
	GinMode         string
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
}

// DatabaseConfig holds result store settings. An empty URL disables persistence.
type DatabaseConfig struct {
	Driver string
	URL    string
}

// DefaultMissingTokens are cell contents read as missing values.
var DefaultMissingTokens = []string{"", "NA", "N/A", "NaN", "."}

// Load reads an optional .env file, then configuration from environment
// variables, and validates it
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return nil, errors.Wrapf(err, "failed to load %s", f)
			}
		}
	}

	config := &Config{
		Analysis: loadAnalysisConfig(),
		Input:    loadInputConfig(),
		Server:   loadServerConfig(),
		Database: loadDatabaseConfig(),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		MinN:            getEnvIntOrDefault("SURVEY_MIN_N", 30),
		ConfidenceLevel: getEnvFloatOrDefault("SURVEY_CONFIDENCE_LEVEL", 0.95),
		SEEstimator:     getEnvOrDefault("SURVEY_SE_ESTIMATOR", "linearization"),
		Workers:         getEnvIntOrDefault("SURVEY_WORKERS", 4),
	}
}

func loadInputConfig() InputConfig {
	tokens := DefaultMissingTokens
	if raw, ok := os.LookupEnv("SURVEY_MISSING_TOKENS"); ok {
		tokens = nil
		for _, tok := range strings.Split(raw, ",") {
			tokens = append(tokens, strings.TrimSpace(tok))
		}
	}
	return InputConfig{
		MissingTokens: tokens,
		Sheet:         getEnvOrDefault("SURVEY_SHEET", "Sheet1"),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:            getEnvOrDefault("PORT", "8080"),
		GinMode:         getEnvOrDefault("GIN_MODE", "release"),
		ShutdownTimeout: getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxBodyBytes:    int64(getEnvIntOrDefault("MAX_BODY_BYTES", 32<<20)),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver: getEnvOrDefault("DATABASE_DRIVER", "sqlite"),
		URL:    getEnvOrDefault("DATABASE_URL", ""),
	}
}

func validateConfig(config *Config) error {
	a := config.Analysis
	if a.MinN < 0 {
		return errors.ConfigInvalid("SURVEY_MIN_N must not be negative")
	}
	if !(a.ConfidenceLevel > 0 && a.ConfidenceLevel < 1) {
		return errors.ConfigInvalid("SURVEY_CONFIDENCE_LEVEL must be in (0,1)")
	}
	switch a.SEEstimator {
	case "linearization", "kish":
	default:
		return errors.ConfigInvalid("SURVEY_SE_ESTIMATOR must be linearization or kish")
	}
	if a.Workers < 1 {
		return errors.ConfigInvalid("SURVEY_WORKERS must be at least 1")
	}
	switch config.Database.Driver {
	case "sqlite", "postgres":
	default:
		return errors.ConfigInvalid("DATABASE_DRIVER must be sqlite or postgres")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
