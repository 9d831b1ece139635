// Package config loads the server configuration from a JSON file, applying
// the documented defaults for anything the file omits. A missing file is not
// an error; the server then runs entirely on defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Defaults for every key the config file may carry.
const (
	DefaultPort           = 6697
	DefaultMaxConnections = 100
	DefaultRateLimit      = 10
)

// Config holds the validated server configuration.
type Config struct {
	Port           int    `mapstructure:"port"`
	CertFile       string `mapstructure:"certFile"`
	KeyFile        string `mapstructure:"keyFile"`
	UsersFile      string `mapstructure:"usersFile"`
	TokensFile     string `mapstructure:"tokensFile"`
	MaxConnections int    `mapstructure:"maxConnections"`
	RateLimit      int    `mapstructure:"rateLimit"`

	// Operational extras; all optional.
	LogLevel     string `mapstructure:"logLevel"`
	Development  bool   `mapstructure:"development"`
	MetricsAddr  string `mapstructure:"metricsAddr"`
	OTLPEndpoint string `mapstructure:"otlpEndpoint"`
}

// Load reads the JSON config at path. Environment variables prefixed with
// SECIRC_ override file values (SECIRC_PORT, SECIRC_CERTFILE, ...).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetDefault("port", DefaultPort)
	v.SetDefault("certFile", "cert.pem")
	v.SetDefault("keyFile", "key.pem")
	v.SetDefault("usersFile", "users.json")
	v.SetDefault("tokensFile", "tokens.json")
	v.SetDefault("maxConnections", DefaultMaxConnections)
	v.SetDefault("rateLimit", DefaultRateLimit)
	v.SetDefault("logLevel", "info")
	v.SetDefault("development", false)
	v.SetDefault("metricsAddr", "")
	v.SetDefault("otlpEndpoint", "")

	v.SetEnvPrefix("SECIRC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing file means all defaults; anything else is fatal.
		if !errors.Is(err, os.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var problems []string

	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port must be between 1 and 65535 (got %d)", c.Port))
	}
	if c.MaxConnections < 1 {
		problems = append(problems, fmt.Sprintf("maxConnections must be positive (got %d)", c.MaxConnections))
	}
	if c.RateLimit < 1 {
		problems = append(problems, fmt.Sprintf("rateLimit must be positive (got %d)", c.RateLimit))
	}
	if c.UsersFile == "" {
		problems = append(problems, "usersFile must not be empty")
	}
	if c.TokensFile == "" {
		problems = append(problems, "tokensFile must not be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// CheckCertificates verifies the certificate and key files exist. The server
// refuses to start without them; secircctl does not call this.
func (c *Config) CheckCertificates() error {
	for _, path := range []string{c.CertFile, c.KeyFile} {
		if path == "" {
			return fmt.Errorf("certFile and keyFile must be set")
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("certificate material unavailable: %w", err)
		}
	}
	return nil
}
