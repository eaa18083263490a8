package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "config/config.yml"

// PlaceholderAPIKey is treated the same as a missing credential.
const PlaceholderAPIKey = "mock_key"

type Config struct {
	App        AppConfig        `yaml:"app"`
	Provider   ProviderConfig   `yaml:"provider"`
	Validation ValidationConfig `yaml:"validation"`
	Mock       MockConfig       `yaml:"mock"`
	Query      QueryConfig      `yaml:"query"`
	Dashboard  DashboardConfig  `yaml:"dashboard"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// ProviderConfig configures the external generative model. An empty or
// placeholder APIKey selects the mock data path.
type ProviderConfig struct {
	APIKey    string          `yaml:"api_key"`
	Model     string          `yaml:"model"`
	Timeout   time.Duration   `yaml:"timeout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size"`
}

type ValidationConfig struct {
	AllowIrregularTrend bool `yaml:"allow_irregular_trend"`
	VerifyKPIs          bool `yaml:"verify_kpis"`
}

type MockConfig struct {
	DeriveKPIs bool `yaml:"derive_kpis"`
}

type QueryConfig struct {
	DefaultOrigin      string `yaml:"default_origin"`
	DefaultDestination string `yaml:"default_destination"`
	NormalizeICAO      bool   `yaml:"normalize_icao"`
}

type DashboardConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Address         string        `yaml:"address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	History         int           `yaml:"history"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type MetricsConfig struct {
	Prometheus bool             `yaml:"prometheus"`
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

// HasCredential reports whether a usable API key is configured.
func (p ProviderConfig) HasCredential() bool {
	key := strings.TrimSpace(p.APIKey)
	return key != "" && key != PlaceholderAPIKey
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		App: AppConfig{Name: "airdemand", Version: "dev"},
		Provider: ProviderConfig{
			Model:   "gemini-2.5-flash",
			Timeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 10,
				BurstSize:         2,
			},
		},
		Query: QueryConfig{DefaultOrigin: "JFK", DefaultDestination: "LAX"},
		Dashboard: DashboardConfig{
			Enabled:         true,
			Address:         "0.0.0.0:8080",
			ShutdownTimeout: 5 * time.Second,
			History:         200,
		},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
		Metrics: MetricsConfig{
			Prometheus: true,
			CloudWatch: CloudWatchConfig{Namespace: "AirDemand"},
		},
	}
}

// LoadConfig reads the yaml file at path on top of Default and applies
// environment overrides. A missing file at the default path is not an error.
func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, DefaultConfigPath, environmentPaths())

	config := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err) && path == DefaultConfigPath:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnvOverrides(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Provider.APIKey = strings.TrimSpace(v)
	} else if v := os.Getenv("API_KEY"); v != "" {
		cfg.Provider.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.Provider.Model = strings.TrimSpace(v)
	}
	if v := os.Getenv("DASHBOARD_ADDRESS"); v != "" {
		cfg.Dashboard.Address = strings.TrimSpace(v)
	}
	if cfg.Metrics.CloudWatch.Enabled {
		if v := os.Getenv("AWS_REGION"); v != "" && cfg.Metrics.CloudWatch.Region == "" {
			cfg.Metrics.CloudWatch.Region = strings.TrimSpace(v)
		}
	}
}

func validateConfig(cfg *Config) error {
	if cfg.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	if cfg.Provider.Timeout <= 0 {
		return fmt.Errorf("provider.timeout must be greater than 0")
	}
	if cfg.Provider.HasCredential() && strings.TrimSpace(cfg.Provider.Model) == "" {
		return fmt.Errorf("provider.model is required when an api key is configured")
	}
	if cfg.Provider.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("provider.rate_limit.requests_per_minute must not be negative")
	}
	if cfg.Provider.RateLimit.BurstSize < 0 {
		return fmt.Errorf("provider.rate_limit.burst_size must not be negative")
	}
	if cfg.Dashboard.ShutdownTimeout <= 0 {
		return fmt.Errorf("dashboard.shutdown_timeout must be greater than 0")
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", cfg.Logging.Format)
	}
	if cfg.Metrics.CloudWatch.Enabled && cfg.Metrics.CloudWatch.Namespace == "" {
		return fmt.Errorf("metrics.cloudwatch.namespace is required when cloudwatch is enabled")
	}
	return nil
}
