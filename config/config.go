// Package config provides YAML configuration parsing for the chimestock CLI.
//
// This package enables running chimestock as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	poll_interval: 15m
//	marker: In stock
//
//	urls:
//	  - https://shop.example.com/item/1
//	  - https://shop.example.com/item/2
//
//	smtp:
//	  sender: me@example.com
//	  password: ${CHIMESTOCK_PASSWORD:-}
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by [Parse] when the file omits a value.
const (
	DefaultPollInterval   = 15 * time.Minute
	DefaultTimeout        = 10 * time.Second
	DefaultMaxConcurrency = 10
	DefaultMarker         = "In stock"
	DefaultSMTPServer     = "smtp.gmail.com"
	DefaultSMTPPort       = 587
)

// minPollInterval is the minimum allowed polling interval. Polling a shop
// more often than this risks the watcher being blacklisted.
const minPollInterval = 1 * time.Minute

// Config is the root configuration structure for chimestock.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// PollInterval is the time between poll cycles.
	// Accepts duration strings like "15m", "1h", "90s". Defaults to 15m.
	PollInterval Duration `yaml:"poll_interval"`

	// Timeout is the per-fetch HTTP timeout. Defaults to 10s.
	Timeout Duration `yaml:"timeout"`

	// MaxConcurrency limits concurrent page fetches within a poll cycle.
	// Defaults to 10.
	MaxConcurrency int `yaml:"max_concurrency"`

	// Marker is the pattern whose presence denotes availability,
	// compiled as a regular expression. Defaults to "In stock".
	Marker string `yaml:"marker"`

	// Debug forces every poll cycle to report all items as newly in
	// stock, exercising the notification path. Defaults to false.
	Debug bool `yaml:"debug"`

	// URLs are the pages to watch. At least one is required.
	// Values support environment variable substitution: ${VAR} or
	// ${VAR:-default}.
	URLs []string `yaml:"urls"`

	// SMTP holds the email account used for notifications.
	SMTP SMTPConfig `yaml:"smtp"`
}

// SMTPConfig holds the SMTP submission account for notifications.
type SMTPConfig struct {
	// Server is the SMTP submission server. Defaults to smtp.gmail.com.
	Server string `yaml:"server"`

	// Port is the SMTP submission port. Defaults to 587.
	Port int `yaml:"port"`

	// Sender is the notification sender address and SMTP username.
	// May be left empty in the file; the CLI prompts for it.
	// Supports environment variable substitution.
	Sender string `yaml:"sender"`

	// Recipient is the notification destination. Empty means loopback:
	// notifications are sent from the sender address to itself.
	// Supports environment variable substitution.
	Recipient string `yaml:"recipient"`

	// Password authenticates the sender account. May be left empty in
	// the file; the CLI prompts for it securely.
	// Supports environment variable substitution.
	Password string `yaml:"password"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before validation.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in URLs and SMTP fields. Defaults are
// applied for the poll interval (15m), fetch timeout (10s), max concurrency
// (10), marker ("In stock"), SMTP server (smtp.gmail.com), and SMTP port
// (587). The sender and password are allowed to be empty here; the CLI
// prompts for them before the watcher starts.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.PollInterval == 0 {
		cfg.PollInterval = Duration(DefaultPollInterval)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = Duration(DefaultTimeout)
	}
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.Marker == "" {
		cfg.Marker = DefaultMarker
	}
	if cfg.SMTP.Server == "" {
		cfg.SMTP.Server = DefaultSMTPServer
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = DefaultSMTPPort
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}

	if c.Timeout.Duration() < time.Second {
		return fmt.Errorf("timeout must be at least 1s, got %s", c.Timeout.Duration())
	}

	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be positive, got %d", c.MaxConcurrency)
	}

	if _, err := regexp.Compile(c.Marker); err != nil {
		return fmt.Errorf("invalid marker pattern %q: %w", c.Marker, err)
	}

	if len(c.URLs) == 0 {
		return errors.New("at least one url must be defined")
	}

	for i, raw := range c.URLs {
		expanded, err := expandEnvVars(raw)
		if err != nil {
			return fmt.Errorf("urls[%d]: %w", i, err)
		}
		c.URLs[i] = expanded

		parsed, err := url.Parse(expanded)
		if err != nil {
			return fmt.Errorf("urls[%d]: invalid url: %w", i, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("urls[%d] (%s): url scheme must be http or https", i, expanded)
		}
		if parsed.Host == "" {
			return fmt.Errorf("urls[%d] (%s): url has no host", i, expanded)
		}
	}

	if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
		return fmt.Errorf("smtp: port must be between 1 and 65535, got %d", c.SMTP.Port)
	}

	for _, field := range []struct {
		name  string
		value *string
	}{
		{"server", &c.SMTP.Server},
		{"sender", &c.SMTP.Sender},
		{"recipient", &c.SMTP.Recipient},
		{"password", &c.SMTP.Password},
	} {
		expanded, err := expandEnvVars(*field.value)
		if err != nil {
			return fmt.Errorf("smtp: %s: %w", field.name, err)
		}
		*field.value = expanded
	}

	return nil
}
