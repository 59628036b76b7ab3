package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "alpha1 < 0.5", "artifact_pct > 5",
	// "cert_days_left < 14", "zone == anaerobic".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | pagerduty | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Default values for the server configuration.
const (
	DefaultHTTPPort     = 8080
	DefaultReadingTTL   = 2 * time.Minute
	DefaultHistoryLimit = 1800
	DefaultRecordEvery  = 2 * time.Second
)

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml. The `monitor:` and `engine:` keys in the same file are ignored.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the ingest endpoint, REST API and WebSocket hub
	// listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Auth configures how the server authenticates incoming clients.
	Auth AuthConfig `yaml:"auth"`

	// Reading controls in-memory reading retention.
	Reading ReadingConfig `yaml:"reading"`

	// Alerts holds rule definitions and webhook delivery targets.
	Alerts AlertsConfig `yaml:"alerts"`
}

// AuthConfig controls client authentication on the server side.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	// Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header name to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// ReadingConfig controls in-memory reading retention.
type ReadingConfig struct {
	// TTL is how long a device's latest reading remains in the store after
	// its last update. A device that goes silent for TTL is evicted and
	// disappears from the dashboard. Default: 2m.
	TTL time.Duration `yaml:"ttl"`

	// HistoryLimit caps how many historical points are kept per device.
	// At the default recording cadence 1800 points is about an hour.
	HistoryLimit int `yaml:"history_limit"`

	// RecordEvery throttles history recording: at most one point per device
	// per interval is kept, regardless of how fast readings arrive.
	// Default: 2s.
	RecordEvery time.Duration `yaml:"record_every"`
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			Reading: ReadingConfig{
				TTL:          DefaultReadingTTL,
				HistoryLimit: DefaultHistoryLimit,
				RecordEvery:  DefaultRecordEvery,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", cfg.Server.Auth.Mode)
	}
	if cfg.Server.Reading.TTL < 0 {
		return fmt.Errorf("server.reading.ttl must not be negative")
	}
	if cfg.Server.Reading.HistoryLimit < 0 {
		return fmt.Errorf("server.reading.history_limit must not be negative")
	}
	if cfg.Server.Reading.RecordEvery < 0 {
		return fmt.Errorf("server.reading.record_every must not be negative")
	}
	for i, r := range cfg.Server.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("alerts.rules[%d]: name is required", i)
		}
		if r.Condition == "" {
			return fmt.Errorf("alerts.rules[%d] %q: condition is required", i, r.Name)
		}
		switch r.Severity {
		case "critical", "warning", "info", "":
		default:
			return fmt.Errorf("alerts.rules[%d] %q: severity %q unknown", i, r.Name, r.Severity)
		}
	}
	for i, w := range cfg.Server.Alerts.Webhooks {
		switch w.Type {
		case "teams", "slack", "pagerduty", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: type %q unknown", i, w.Type)
		}
	}
	return nil
}
