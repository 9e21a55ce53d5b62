// Package config loads the application configuration from environment
// variables layered over an optional YAML file. Environment variables
// use the LICENSER prefix and take precedence over file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix for all environment variables.
const EnvPrefix = "LICENSER"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Client    ClientConfig    `yaml:"client" envconfig:"CLIENT"`
	Database  DatabaseConfig  `yaml:"database" envconfig:"DATABASE"`
	Auth      AuthConfig      `yaml:"auth" envconfig:"AUTH"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Scheduler SchedulerConfig `yaml:"scheduler" envconfig:"SCHEDULER"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// ClientConfig contains the SDK client configuration. APIBaseURL and
// AuthorityURL are required when the client is constructed; ProductName
// is required only for the license operations that key off it.
type ClientConfig struct {
	APIBaseURL      string        `yaml:"api_base_url" envconfig:"API_BASE_URL"`
	AuthorityURL    string        `yaml:"authority_url" envconfig:"AUTHORITY_URL"`
	ClientID        string        `yaml:"client_id" envconfig:"CLIENT_ID" default:"licenser-client"`
	ClientSecret    string        `yaml:"client_secret" envconfig:"CLIENT_SECRET"`
	Scope           string        `yaml:"scope" envconfig:"SCOPE" default:"licenser-api offline_access"`
	ProductName     string        `yaml:"product_name" envconfig:"PRODUCT_NAME"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"30s"`
	CredentialsFile string        `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE" default:"ClientCredentials.dat"`
	ActivatorPath   string        `yaml:"activator_path" envconfig:"ACTIVATOR_PATH"`
}

// DatabaseConfig contains the sqlite store configuration
type DatabaseConfig struct {
	Path string `yaml:"path" envconfig:"PATH" default:"data/licenser.db"`
}

// AuthConfig contains the resource-server token validation settings.
// Token issuance belongs to the external identity provider; the API
// only verifies bearer tokens signed with this secret.
type AuthConfig struct {
	TokenSecret string `yaml:"token_secret" envconfig:"TOKEN_SECRET"`
	Issuer      string `yaml:"issuer" envconfig:"ISSUER" default:"licenser-identity"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/licenser.log"`
}

// SchedulerConfig controls the periodic license revalidation job.
type SchedulerConfig struct {
	StartAfter time.Duration `yaml:"start_after" envconfig:"START_AFTER" default:"12h"`
	Interval   time.Duration `yaml:"interval" envconfig:"INTERVAL" default:"12h"`
}

// Load loads configuration from environment variables and, when
// present, the YAML file at LICENSER_CONFIG_FILE (default config.yaml).
func Load() (*Config, error) {
	var cfg Config

	configFile := configFilePath()
	if _, err := os.Stat(configFile); err == nil {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = *fileCfg
	}

	// Environment variables override file values.
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func configFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}
	return "config.yaml"
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if c.Scheduler.StartAfter < 0 {
		return fmt.Errorf("scheduler start_after must not be negative")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	return nil
}

// EnsureDataDir creates the directory holding the sqlite database.
func (c *Config) EnsureDataDir() error {
	dir := filepath.Dir(c.Database.Path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
