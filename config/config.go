// Package config loads the server configuration from defaults, an optional
// YAML file and CONFSRV_* environment variables, in that order of
// precedence (environment wins).
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment variable, e.g. CONFSRV_SERVER_PORT.
const EnvPrefix = "CONFSRV"

// Config represents the complete application configuration
type Config struct {
	Server         ServerConfig         `yaml:"server" envconfig:"SERVER"`
	Logging        LoggingConfig        `yaml:"logging" envconfig:"LOGGING"`
	Store          StoreConfig          `yaml:"store" envconfig:"STORE"`
	Auth           AuthConfig           `yaml:"auth" envconfig:"AUTH"`
	Configurations ConfigurationsConfig `yaml:"configurations" envconfig:"CONFIGURATIONS"`
	HTTP           HTTPConfig           `yaml:"http" envconfig:"HTTP"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
}

// StoreConfig selects the persistence backend and the documents it holds.
type StoreConfig struct {
	Backend            string `yaml:"backend" envconfig:"BACKEND" validate:"oneof=json sqlite badger memory"`
	DataDir            string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	UsersFile          string `yaml:"users_file" envconfig:"USERS_FILE" validate:"required"`
	ConfigurationsFile string `yaml:"configurations_file" envconfig:"CONFIGURATIONS_FILE" validate:"required"`
}

// AuthConfig configures the login endpoints and the access token header.
type AuthConfig struct {
	BaseURL           string  `yaml:"base_url" envconfig:"BASE_URL" validate:"required,startswith=/"`
	AccessTokenHeader string  `yaml:"access_token_header" envconfig:"ACCESS_TOKEN_HEADER" validate:"required"`
	LoginRPS          float64 `yaml:"login_rps" envconfig:"LOGIN_RPS" validate:"gte=0"`
	LoginBurst        int     `yaml:"login_burst" envconfig:"LOGIN_BURST" validate:"gte=0"`
}

// ConfigurationsConfig configures the configuration REST endpoints.
type ConfigurationsConfig struct {
	BaseURL string `yaml:"base_url" envconfig:"BASE_URL" validate:"required,startswith=/"`
}

// HTTPConfig contains request handling limits and static content.
type HTTPConfig struct {
	BodyLimit      int64    `yaml:"body_limit" envconfig:"BODY_LIMIT" validate:"gt=0"`
	IndexFile      string   `yaml:"index_file" envconfig:"INDEX_FILE"`
	AllowedOrigins []string `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Backend:            "json",
			DataDir:            "./data",
			UsersFile:          "users.json",
			ConfigurationsFile: "configurations.json",
		},
		Auth: AuthConfig{
			BaseURL:           "/v1/auth",
			AccessTokenHeader: "x-access-token",
			LoginRPS:          5,
			LoginBurst:        10,
		},
		Configurations: ConfigurationsConfig{
			BaseURL: "/v1/configurations",
		},
		HTTP: HTTPConfig{
			BodyLimit:      1000000,
			IndexFile:      "client/test.html",
			AllowedOrigins: []string{"*"},
		},
	}
}

// Load builds the configuration. path names an optional YAML file; an empty
// path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys absent from the file
// keep their current values.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// Addr returns the host:port the server listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
