// Package config has the configuration for the app. Every setting comes from the
// environment, optionally seeded from a .env file, with defaults baked in.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment types
const (
	EnvDevelopment = "dev"
	EnvStaging     = "staging"
	EnvProduction  = "prod"
	EnvTest        = "test"
)

// PlaceholderAPIKey is the unconfigured value the launcher refuses to start with
const PlaceholderAPIKey = "YOUR_GEMINI_API_KEY_HERE"

// Config holds all application configuration
type Config struct {
	Port              string
	Address           string
	Env               string
	LogLevel          string
	LogDir            string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes
	MaxRequestBody    int64 // Maximum request body size in bytes (MAX_CONTENT_LENGTH)
	MaxHeaderSize     int64 // Maximum header size in bytes

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	GeminiTimeout time.Duration // 0 waits for the provider indefinitely

	SecretKey string
	Debug     bool

	UploadDir           string
	TemplatesDir        string
	AllowedExtensions   []string
	UploadSweepInterval time.Duration
	UploadMaxAge        time.Duration
}

// LoadDotEnv loads variables from a .env file in the working directory when present.
// Variables already set in the environment win.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: failed to parse .env file: %v\n", err)
	}
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	debug := getBoolEnvWithDefault("DEBUG", getBoolEnvWithDefault("FLASK_DEBUG", true))

	logLevel := getEnvWithDefault("LOG_LEVEL", "")
	if logLevel == "" {
		logLevel = "info"
		if debug {
			logLevel = "debug"
		}
	}

	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "5000"),
		Address:           getEnvWithDefault("ADDRESS", "0.0.0.0"),
		Env:               strings.ToLower(getEnvWithDefault("ENV", EnvDevelopment)),
		LogLevel:          strings.ToLower(logLevel),
		LogDir:            getEnvWithDefault("LOG_DIR", "logs"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),                   // 4 weeks default
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 100*1024*1024),       // 100MB default
		MaxRequestBody:    getInt64EnvWithDefault("MAX_CONTENT_LENGTH", 16*1024*1024),       // 16MB default
		MaxHeaderSize:     getInt64EnvWithDefault("MAX_HEADER_SIZE", 1024*1024),             // 1MB default

		GeminiAPIKey:  getEnvWithDefault("GEMINI_API_KEY", PlaceholderAPIKey),
		GeminiModel:   getEnvWithDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL: os.Getenv("GEMINI_BASE_URL"),
		GeminiTimeout: getDurationEnvWithDefault("GEMINI_TIMEOUT", 0),

		SecretKey: getEnvWithDefault("SECRET_KEY", "your-secret-key-change-in-production"),
		Debug:     debug,

		UploadDir:           getEnvWithDefault("UPLOAD_FOLDER", "uploads"),
		TemplatesDir:        getEnvWithDefault("TEMPLATES_DIR", "templates"),
		AllowedExtensions:   parseExtensions(getEnvWithDefault("ALLOWED_EXTENSIONS", "png,jpg,jpeg,gif")),
		UploadSweepInterval: getDurationEnvWithDefault("UPLOAD_SWEEP_INTERVAL", 15*time.Minute),
		UploadMaxAge:        getDurationEnvWithDefault("UPLOAD_MAX_AGE", time.Hour),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	if err := validateEnv(cfg.Env); err != nil {
		return fmt.Errorf("invalid ENV: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_CONTENT_LENGTH"); err != nil {
		return fmt.Errorf("invalid MAX_CONTENT_LENGTH: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: %w", err)
	}

	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	if err := validateExtensions(cfg.AllowedExtensions); err != nil {
		return fmt.Errorf("invalid ALLOWED_EXTENSIONS: %w", err)
	}

	if cfg.GeminiTimeout < 0 {
		return fmt.Errorf("invalid GEMINI_TIMEOUT: must not be negative, got: %s", cfg.GeminiTimeout)
	}

	if cfg.UploadSweepInterval <= 0 {
		return fmt.Errorf("invalid UPLOAD_SWEEP_INTERVAL: must be positive, got: %s", cfg.UploadSweepInterval)
	}

	if cfg.UploadMaxAge < time.Minute {
		return fmt.Errorf("invalid UPLOAD_MAX_AGE: must be at least 1m, got: %s", cfg.UploadMaxAge)
	}

	if strings.TrimSpace(cfg.UploadDir) == "" {
		return fmt.Errorf("UPLOAD_FOLDER cannot be empty")
	}

	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "localhost" {
		return nil
	}

	if ip := net.ParseIP(address); ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	return nil
}

// validateEnv validates the ENV environment variable
func validateEnv(env string) error {
	if env == "" {
		return fmt.Errorf("ENV cannot be empty")
	}

	validEnvs := []string{EnvDevelopment, EnvStaging, EnvProduction, EnvTest}
	if slices.Contains(validEnvs, env) {
		return nil
	}

	return fmt.Errorf("ENV must be one of: %v, got: %s", validEnvs, env)
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if slices.Contains(validLevels, logLevel) {
		return nil
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

// validateSizeLimit validates size limit configuration values
func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}

	if size > 100*1024*1024 { // 100MB
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}

	return nil
}

// validateLogRetentionWeeks validates the LOG_RETENTION_WEEKS environment variable
func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 {
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

// validateMaxLogFileSize validates the MAX_LOG_FILE_SIZE environment variable
func validateMaxLogFileSize(size int64) error {
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

// validateExtensions requires at least one plain alphanumeric extension
func validateExtensions(exts []string) error {
	if len(exts) == 0 {
		return fmt.Errorf("at least one extension is required")
	}

	for _, ext := range exts {
		for _, r := range ext {
			if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
				return fmt.Errorf("extension %q must be alphanumeric without a leading dot", ext)
			}
		}
	}

	return nil
}

// parseExtensions splits a comma separated list, lower-cases it and drops blanks and dots
func parseExtensions(value string) []string {
	var exts []string
	for _, part := range strings.Split(value, ",") {
		ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(part), "."))
		if ext != "" && !slices.Contains(exts, ext) {
			exts = append(exts, ext)
		}
	}
	return exts
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getBoolEnvWithDefault gets an environment variable as bool with a default value
func getBoolEnvWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getDurationEnvWithDefault gets an environment variable as a Go duration with a default value
func getDurationEnvWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"LOG_DIR",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"MAX_CONTENT_LENGTH",
		"MAX_HEADER_SIZE",
		"GEMINI_API_KEY",
		"GEMINI_MODEL",
		"GEMINI_BASE_URL",
		"GEMINI_TIMEOUT",
		"SECRET_KEY",
		"DEBUG",
		"FLASK_DEBUG",
		"UPLOAD_FOLDER",
		"TEMPLATES_DIR",
		"ALLOWED_EXTENSIONS",
		"UPLOAD_SWEEP_INTERVAL",
		"UPLOAD_MAX_AGE",
	}
}
