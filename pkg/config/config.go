package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// API
	API APIConfig

	// Risk engine defaults
	Risk RiskConfig

	// Scheduler
	ScenarioDir string

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	CacheTTL time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// APIConfig holds HTTP API limits
type APIConfig struct {
	RateLimit float64 // requests per second (token bucket)
	RateBurst int
	MaxCells  int // PathCount * HorizonSteps 상한
}

// RiskConfig holds EVT calibration defaults
type RiskConfig struct {
	ThresholdPercentile float64
	MinExceedances      int
	Confidence          float64
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			CacheTTL: getEnvAsDuration("REDIS_CACHE_TTL", "1h"),
		},

		// API
		API: APIConfig{
			RateLimit: getEnvAsFloat("API_RATE_LIMIT", 10),
			RateBurst: getEnvAsInt("API_RATE_BURST", 20),
			MaxCells:  getEnvAsInt("SIM_MAX_CELLS", 5_000_000),
		},

		// Risk
		Risk: RiskConfig{
			ThresholdPercentile: getEnvAsFloat("EVT_THRESHOLD_PCT", 95),
			MinExceedances:      getEnvAsInt("EVT_MIN_EXCEEDANCES", 30),
			Confidence:          getEnvAsFloat("EVT_CONFIDENCE", 0.99),
		},

		ScenarioDir: getEnv("SCENARIO_DIR", "config/scenario"),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks ranges; DATABASE_URL is checked lazily by RequireDatabase
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.API.RateLimit <= 0 {
		return fmt.Errorf("API_RATE_LIMIT must be > 0, got %v", c.API.RateLimit)
	}
	if c.API.RateBurst < 1 {
		return fmt.Errorf("API_RATE_BURST must be >= 1, got %d", c.API.RateBurst)
	}
	if c.API.MaxCells < 1 {
		return fmt.Errorf("SIM_MAX_CELLS must be >= 1, got %d", c.API.MaxCells)
	}

	if c.Risk.ThresholdPercentile <= 0 || c.Risk.ThresholdPercentile >= 100 {
		return fmt.Errorf("EVT_THRESHOLD_PCT must be in (0, 100), got %v", c.Risk.ThresholdPercentile)
	}
	if c.Risk.MinExceedances < 1 {
		return fmt.Errorf("EVT_MIN_EXCEEDANCES must be >= 1, got %d", c.Risk.MinExceedances)
	}
	if c.Risk.Confidence <= 0 || c.Risk.Confidence >= 1 {
		return fmt.Errorf("EVT_CONFIDENCE must be in (0, 1), got %v", c.Risk.Confidence)
	}

	return nil
}

// RequireDatabase DB를 쓰는 명령(report 저장, scheduler)에서만 호출
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
