package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // ROLLUP_TIMEZONE must resolve in slim images

	"github.com/joho/godotenv"
)

// Storage backends
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port           int
	MaxWorkers     int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	SwaggerEnabled bool

	// Logging configuration
	LogFormat string
	LogLevel  string

	// Storage configuration
	StorageBackend   string
	PostgresURL      string
	PostgresMaxConns int

	// Ingestion configuration
	RollupMaxAttempts int
	RollupRetryDelay  time.Duration
	IngestRatePerSec  float64
	IngestBurst       int
	CORSOrigins       []string

	// Classification pipeline configuration
	MergeProximity    float64
	MinShapeArea      float64
	TopCategoryLimit  int
	AnomalyPriceBands string
	RollupTimezone    string
}

// LoadConfig loads the application configuration from environment variables
func LoadConfig() (*Config, error) {
	// Get the executable directory
	execPath, err := os.Executable()
	if err != nil {
		log.Printf("Warning: Could not determine executable path: %v", err)
	}

	// Determine project root directory
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(execPath)))
	envPath := filepath.Join(projectRoot, ".env")

	// Load .env file if it exists
	if err := godotenv.Load(envPath); err != nil {
		// Try loading from current directory as fallback
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found or error loading .env file. Using environment variables.")
		} else {
			log.Println("Loaded environment variables from current directory .env file")
		}
	} else {
		log.Printf("Loaded environment variables from %s", envPath)
	}

	config := FromEnv()

	// Validate critical configuration
	validateConfig(config)

	return config, nil
}

// FromEnv builds the configuration from the current environment only
func FromEnv() *Config {
	return &Config{
		Port:         getEnvInt("PORT", 8080),
		MaxWorkers:   getEnvInt("MAX_WORKERS", 5),
		ReadTimeout:  getEnvDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout: getEnvDuration("WRITE_TIMEOUT", 15*time.Second),

		SwaggerEnabled: getEnvBool("SWAGGER_ENABLED", true),

		LogFormat: getEnvString("LOG_FORMAT", "json"),
		LogLevel:  getEnvString("LOG_LEVEL", "info"),

		StorageBackend:   strings.ToLower(getEnvString("STORAGE_BACKEND", StoragePostgres)),
		PostgresURL:      os.Getenv("POSTGRES_DB_URL"),
		PostgresMaxConns: getEnvInt("POSTGRES_MAX_CONNS", 0),

		RollupMaxAttempts: getEnvInt("ROLLUP_MAX_ATTEMPTS", 3),
		RollupRetryDelay:  time.Duration(getEnvInt("ROLLUP_RETRY_DELAY_MS", 50)) * time.Millisecond,
		IngestRatePerSec:  getEnvFloat("INGEST_RATE_PER_SEC", 10),
		IngestBurst:       getEnvInt("INGEST_BURST", 20),
		CORSOrigins:       getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),

		MergeProximity:    getEnvFloat("MERGE_PROXIMITY", 100),
		MinShapeArea:      getEnvFloat("MIN_SHAPE_AREA", 1000),
		TopCategoryLimit:  getEnvInt("TOP_CATEGORY_LIMIT", 10),
		AnomalyPriceBands: os.Getenv("ANOMALY_PRICE_BANDS"),
		RollupTimezone:    getEnvString("ROLLUP_TIMEZONE", "UTC"),
	}
}

// Location resolves RollupTimezone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.RollupTimezone)
	if err != nil {
		log.Printf("Invalid ROLLUP_TIMEZONE %q, using UTC: %v", c.RollupTimezone, err)
		return time.UTC
	}
	return loc
}

// validateConfig checks if critical configuration values are set and logs warnings if they're missing
func validateConfig(config *Config) {
	if config.StorageBackend != StoragePostgres && config.StorageBackend != StorageMemory {
		log.Printf("Warning: Unknown STORAGE_BACKEND %q, using %s.", config.StorageBackend, StorageMemory)
		config.StorageBackend = StorageMemory
	}

	// Check if the database URL is provided
	if config.StorageBackend == StoragePostgres && config.PostgresURL == "" {
		log.Println("Warning: No POSTGRES_DB_URL provided. Falling back to in-memory storage.")
		config.StorageBackend = StorageMemory
	}

	if config.RollupMaxAttempts < 1 {
		config.RollupMaxAttempts = 1
	}
	if config.IngestRatePerSec <= 0 {
		log.Println("Warning: INGEST_RATE_PER_SEC is not positive. Per-device rate limiting is disabled.")
	}
}

// getEnvInt gets an integer from an environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

// getEnvFloat gets a float from an environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid value for %s: %s, using default: %g", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

// getEnvDuration accepts Go durations ("30s") or a bare number of seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid value for %s: %s, using default: %s", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

// getEnvBool gets a boolean from an environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	valueStr = strings.ToLower(valueStr)
	return valueStr == "true" || valueStr == "1" || valueStr == "yes"
}

// getEnvString gets a string from an environment variable with a default value
func getEnvString(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvStringSlice gets a string slice from a comma-separated environment variable
func getEnvStringSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			values = append(values, p)
		}
	}
	return values
}
