package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string

	// Database configuration
	DBPath string

	// Logging
	LogLevel string

	// Carrier credentials and endpoints
	CdekAccount  string
	CdekSecure   string
	CdekAPIURL   string
	CdekTrackURL string

	// Tracking strategy: api, scrape, or auto
	TrackingMode string

	// Cache configuration
	CacheTTL      time.Duration
	DisableCache  bool

	// Throttling of upstream carrier fetches
	FetchMinInterval time.Duration
	DisableRateLimit bool

	// Headless browser tuning
	BrowserTimeout time.Duration
	BrowserSettle  time.Duration

	// Background refresh of active shipments
	AutoRefreshEnabled  bool
	AutoRefreshInterval time.Duration
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if _, err := strconv.Atoi(c.ServerPort); err != nil {
		return fmt.Errorf("invalid server port: %s", c.ServerPort)
	}

	if c.DBPath == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	isValidLogLevel := false
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			isValidLogLevel = true
			break
		}
	}
	if !isValidLogLevel {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	switch c.TrackingMode {
	case "api", "scrape", "auto":
	default:
		return fmt.Errorf("invalid tracking mode: %s (must be one of: api, scrape, auto)", c.TrackingMode)
	}

	if c.TrackingMode == "api" && (c.CdekAccount == "" || c.CdekSecure == "") {
		return fmt.Errorf("tracking mode 'api' requires carrier credentials")
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.FetchMinInterval <= 0 {
		return fmt.Errorf("fetch min interval must be positive")
	}
	if c.BrowserTimeout <= 0 {
		return fmt.Errorf("browser timeout must be positive")
	}
	if c.BrowserSettle <= 0 {
		return fmt.Errorf("browser settle delay must be positive")
	}
	if c.AutoRefreshEnabled && c.AutoRefreshInterval <= 0 {
		return fmt.Errorf("auto refresh interval must be positive")
	}

	return nil
}

// Address returns the full server address
func (c *Config) Address() string {
	return c.ServerHost + ":" + c.ServerPort
}

// HasCarrierCredentials reports whether API-mode tracking can authenticate.
func (c *Config) HasCarrierCredentials() bool {
	return c.CdekAccount != "" && c.CdekSecure != ""
}

// GetDisableRateLimit returns the rate limit disable flag
func (c *Config) GetDisableRateLimit() bool {
	return c.DisableRateLimit
}

// GetDisableCache returns the cache disable flag
func (c *Config) GetDisableCache() bool {
	return c.DisableCache
}

// LoadEnvFile loads environment variables from a .env file. A missing file
// is not an error; already-set variables are never overridden.
func LoadEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if (strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"")) ||
			(strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'")) {
			value = value[1 : len(value)-1]
		}

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}
