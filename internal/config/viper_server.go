package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LoadServerConfigWithViper loads server configuration using Viper
func LoadServerConfigWithViper(v *viper.Viper) (*Config, error) {
	setServerDefaults(v)
	setupServerEnvBinding(v)

	if err := loadConfigFile(v); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	config := &Config{}
	if err := unmarshalServerConfig(v, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setServerDefaults sets default values for server configuration
func setServerDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.host", "localhost")

	v.SetDefault("database.path", "./portal.db")

	v.SetDefault("logging.level", "info")

	v.SetDefault("cdek.api_url", "https://api.cdek.ru/v2")
	v.SetDefault("cdek.track_url", "https://www.cdek.ru/ru/tracking")
	v.SetDefault("cdek.account", "")
	v.SetDefault("cdek.secure", "")

	v.SetDefault("tracking.mode", "auto")

	v.SetDefault("cache.ttl", "8m")
	v.SetDefault("cache.disabled", false)

	v.SetDefault("rate_limit.min_interval", "4s")
	v.SetDefault("rate_limit.disabled", false)

	v.SetDefault("browser.timeout", "20s")
	v.SetDefault("browser.settle", "1600ms")

	v.SetDefault("auto_refresh.enabled", false)
	v.SetDefault("auto_refresh.interval", "30m")
}

// setupServerEnvBinding sets up environment variable binding for server configuration
func setupServerEnvBinding(v *viper.Viper) {
	v.SetEnvPrefix("CRM_PORTAL")
	v.AutomaticEnv()

	envBindings := map[string]string{
		"server.port":             "SERVER_PORT",
		"server.host":             "SERVER_HOST",
		"database.path":           "DATABASE_PATH",
		"logging.level":           "LOGGING_LEVEL",
		"cdek.api_url":            "CDEK_API_URL",
		"cdek.track_url":          "CDEK_TRACK_URL",
		"cdek.account":            "CDEK_ACCOUNT",
		"cdek.secure":             "CDEK_SECURE",
		"tracking.mode":           "TRACKING_MODE",
		"cache.ttl":               "CACHE_TTL",
		"cache.disabled":          "CACHE_DISABLED",
		"rate_limit.min_interval": "RATE_LIMIT_MIN_INTERVAL",
		"rate_limit.disabled":     "RATE_LIMIT_DISABLED",
		"browser.timeout":         "BROWSER_TIMEOUT",
		"browser.settle":          "BROWSER_SETTLE",
		"auto_refresh.enabled":    "AUTO_REFRESH_ENABLED",
		"auto_refresh.interval":   "AUTO_REFRESH_INTERVAL",
	}

	for configKey, envSuffix := range envBindings {
		v.BindEnv(configKey, "CRM_PORTAL_"+envSuffix)
	}

	// Bare variable names kept for deployments predating the prefix.
	oldEnvBindings := map[string]string{
		"server.port":    "SERVER_PORT",
		"server.host":    "SERVER_HOST",
		"database.path":  "DB_PATH",
		"logging.level":  "LOG_LEVEL",
		"cdek.api_url":   "CDEK_API_URL",
		"cdek.track_url": "CDEK_TRACK_URL",
		"cdek.account":   "CDEK_ACCOUNT",
		"cdek.secure":    "CDEK_SECURE",
		"tracking.mode":  "TRACKING_MODE",
		"cache.disabled": "DISABLE_CACHE",
		"rate_limit.disabled": "DISABLE_RATE_LIMIT",
	}

	for configKey, envVar := range oldEnvBindings {
		v.BindEnv(configKey, envVar)
	}
}

// loadConfigFile loads configuration file if it exists
func loadConfigFile(v *viper.Viper) error {
	if v.ConfigFileUsed() == "" {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.crm-portal")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	return nil
}

// unmarshalServerConfig unmarshals Viper configuration into Config struct
func unmarshalServerConfig(v *viper.Viper, config *Config) error {
	config.ServerPort = v.GetString("server.port")
	config.ServerHost = v.GetString("server.host")
	config.DBPath = v.GetString("database.path")
	config.LogLevel = v.GetString("logging.level")

	config.CdekAPIURL = v.GetString("cdek.api_url")
	config.CdekTrackURL = v.GetString("cdek.track_url")
	config.CdekAccount = v.GetString("cdek.account")
	config.CdekSecure = v.GetString("cdek.secure")

	config.TrackingMode = v.GetString("tracking.mode")

	var err error
	config.CacheTTL, err = time.ParseDuration(v.GetString("cache.ttl"))
	if err != nil {
		return fmt.Errorf("invalid cache TTL: %w", err)
	}

	config.FetchMinInterval, err = time.ParseDuration(v.GetString("rate_limit.min_interval"))
	if err != nil {
		return fmt.Errorf("invalid fetch min interval: %w", err)
	}

	config.BrowserTimeout, err = time.ParseDuration(v.GetString("browser.timeout"))
	if err != nil {
		return fmt.Errorf("invalid browser timeout: %w", err)
	}

	config.BrowserSettle, err = time.ParseDuration(v.GetString("browser.settle"))
	if err != nil {
		return fmt.Errorf("invalid browser settle delay: %w", err)
	}

	config.AutoRefreshInterval, err = time.ParseDuration(v.GetString("auto_refresh.interval"))
	if err != nil {
		return fmt.Errorf("invalid auto refresh interval: %w", err)
	}

	config.DisableCache = v.GetBool("cache.disabled")
	config.DisableRateLimit = v.GetBool("rate_limit.disabled")
	config.AutoRefreshEnabled = v.GetBool("auto_refresh.enabled")

	return nil
}

// LoadServerConfig loads server configuration using default Viper instance
func LoadServerConfig() (*Config, error) {
	v := viper.New()
	return LoadServerConfigWithViper(v)
}

// LoadServerConfigWithFile loads server configuration from a specific file
func LoadServerConfigWithFile(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	return LoadServerConfigWithViper(v)
}

// LoadServerConfigWithEnvFile loads server configuration with .env file support
func LoadServerConfigWithEnvFile(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := LoadEnvFile(envFile); err != nil {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	v := viper.New()
	return LoadServerConfigWithViper(v)
}
