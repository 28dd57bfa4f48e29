package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// FileEnv names the environment variable pointing at an optional YAML config file.
const FileEnv = "STOREFRONT_CONFIG"

// Config holds all configuration for the storefront daemon
type Config struct {
	ServiceName     string        `yaml:"service_name"`
	APIBaseURL      string        `yaml:"api_base_url"`
	APITimeout      time.Duration `yaml:"api_timeout"`
	APIRateLimit    float64       `yaml:"api_rate_limit"`
	APIRateBurst    int           `yaml:"api_rate_burst"`
	StateDSN        string        `yaml:"state_dsn"`
	RabbitMQURL     string        `yaml:"rabbitmq_url"`
	HTTPPort        string        `yaml:"http_port"`
	GRPCPort        string        `yaml:"grpc_port"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		ServiceName:     "storefront",
		APIBaseURL:      "http://127.0.0.1:5555",
		APITimeout:      10 * time.Second,
		APIRateLimit:    20,
		APIRateBurst:    10,
		StateDSN:        "sqlite://storefront.db",
		HTTPPort:        "8080",
		GRPCPort:        "50051",
		RefreshInterval: 5 * time.Minute,
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// STOREFRONT_CONFIG (if any), then environment variables
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.ServiceName = getEnv("SERVICE_NAME", c.ServiceName)
	c.APIBaseURL = getEnv("API_BASE_URL", c.APIBaseURL)
	c.StateDSN = getEnv("STATE_DSN", c.StateDSN)
	c.RabbitMQURL = getEnv("RABBITMQ_URL", c.RabbitMQURL)
	c.HTTPPort = getEnv("HTTP_PORT", c.HTTPPort)
	c.GRPCPort = getEnv("GRPC_PORT", c.GRPCPort)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	var err error
	if c.APITimeout, err = getDuration("API_TIMEOUT", c.APITimeout); err != nil {
		return err
	}
	if c.RefreshInterval, err = getDuration("REFRESH_INTERVAL", c.RefreshInterval); err != nil {
		return err
	}
	if v := os.Getenv("API_RATE_LIMIT"); v != "" {
		if c.APIRateLimit, err = strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("invalid API_RATE_LIMIT %q: %w", v, err)
		}
	}
	if v := os.Getenv("API_RATE_BURST"); v != "" {
		if c.APIRateBurst, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid API_RATE_BURST %q: %w", v, err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
