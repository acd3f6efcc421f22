package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL      = "https://api.coingecko.com/api/v3"
	DefaultAPIKeyHeader = "x-cg-demo-api-key"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Logging  LoggingConfig  `yaml:"logging"`
	Provider ProviderConfig `yaml:"provider"`
	Server   ServerConfig   `yaml:"server"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type LoggingConfig struct {
	Level          string        `yaml:"level"`
	Format         string        `yaml:"format"`
	Output         string        `yaml:"output"`
	MaxAge         int           `yaml:"max_age"`
	ReportInterval time.Duration `yaml:"report_interval"`
}

// ProviderConfig describes the upstream market-data API.
type ProviderConfig struct {
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`
	APIKeyHeader string        `yaml:"api_key_header"`
	UserAgent    string        `yaml:"user_agent"`
	Timeout      time.Duration `yaml:"timeout"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	NewsLength   int           `yaml:"news_length"`
}

type ServerConfig struct {
	Address            string          `yaml:"address"`
	RateLimit          RateLimitConfig `yaml:"rate_limit"`
	CORS               CORSConfig      `yaml:"cors"`
	SessionIdleTimeout time.Duration   `yaml:"session_idle_timeout"`
	MaxSessions        int             `yaml:"max_sessions"`
	LogHistory         int             `yaml:"log_history"`
	MetricsHistory     int             `yaml:"metrics_history"`
	ResourceInterval   time.Duration   `yaml:"resource_interval"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

// Default returns the configuration used when no file overrides a value.
func Default() Config {
	return Config{
		App: AppConfig{
			Name:    "cryptoguide",
			Version: "dev",
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "json",
			Output:         "stdout",
			ReportInterval: 30 * time.Second,
		},
		Provider: ProviderConfig{
			BaseURL:      DefaultBaseURL,
			APIKeyHeader: DefaultAPIKeyHeader,
			UserAgent:    "cryptoguide/1.0",
			Timeout:      10 * time.Second,
			CacheTTL:     60 * time.Second,
			NewsLength:   200,
		},
		Server: ServerConfig{
			Address: "0.0.0.0:8080",
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 2,
				BurstSize:         5,
			},
			SessionIdleTimeout: 30 * time.Minute,
			MaxSessions:        1000,
			LogHistory:         200,
			MetricsHistory:     200,
			ResourceInterval:   5 * time.Second,
		},
		Metrics: MetricsConfig{
			CloudWatch: CloudWatchConfig{Namespace: "CryptoGuide"},
		},
	}
}

// LoadConfig reads the YAML file at path on top of Default. An empty path
// skips the file and only applies defaults and environment overrides.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	if path != "" {
		path = ResolvePath(path)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func applyEnvOverrides(config *Config) {
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		config.Provider.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("COINGECKO_BASE_URL"); v != "" {
		config.Provider.BaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("SERVER_ADDRESS"); v != "" {
		config.Server.Address = strings.TrimSpace(v)
	}
	if config.Metrics.CloudWatch.Enabled && config.Metrics.CloudWatch.Region == "" {
		config.Metrics.CloudWatch.Region = strings.TrimSpace(os.Getenv("AWS_REGION"))
	}
	config.Provider.BaseURL = strings.TrimRight(config.Provider.BaseURL, "/")
}

func validateConfig(cfg *Config) error {
	if cfg.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	if cfg.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if u, err := url.Parse(cfg.Provider.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("provider.base_url '%s' is not an absolute URL", cfg.Provider.BaseURL)
	}
	if cfg.Provider.Timeout <= 0 {
		return fmt.Errorf("provider.timeout must be greater than 0")
	}
	if cfg.Provider.CacheTTL < 0 {
		return fmt.Errorf("provider.cache_ttl must not be negative")
	}
	if cfg.Provider.NewsLength <= 0 {
		return fmt.Errorf("provider.news_length must be greater than 0")
	}
	if cfg.Provider.APIKey != "" && cfg.Provider.APIKeyHeader == "" {
		return fmt.Errorf("provider.api_key_header is required when provider.api_key is set")
	}

	if cfg.Server.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must not be negative")
	}
	if cfg.Server.RateLimit.RequestsPerSecond > 0 && cfg.Server.RateLimit.BurstSize <= 0 {
		return fmt.Errorf("server.rate_limit.burst_size must be greater than 0")
	}
	if cfg.Server.MaxSessions <= 0 {
		return fmt.Errorf("server.max_sessions must be greater than 0")
	}

	if cfg.Metrics.CloudWatch.Enabled && cfg.Metrics.CloudWatch.Region == "" {
		return fmt.Errorf("metrics.cloudwatch.region is required when CloudWatch is enabled")
	}

	return nil
}
