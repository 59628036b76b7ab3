package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hrvstack/hrvstack/monitor/internal/dfa"
	"github.com/hrvstack/hrvstack/monitor/internal/window"
	"github.com/hrvstack/hrvstack/pkg/types"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultPollInterval = 1 * time.Second
	DefaultBufferSize   = 1000
)

// Config is the top-level monitor configuration.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	Monitor MonitorConfig `yaml:"monitor"`
	Engine  EngineConfig  `yaml:"engine"`
}

// MonitorConfig holds the collector-side settings.
type MonitorConfig struct {
	// ServerEndpoint is the base URL of hrvstack-server (http://host:port).
	ServerEndpoint string `yaml:"server_endpoint"`

	// PollInterval controls how often each source is sampled. Heart-rate
	// sensors emit roughly one beat per second, so the default is 1s.
	PollInterval time.Duration `yaml:"poll_interval"`

	// BufferSize is the maximum number of readings held in memory when the
	// server is unreachable.
	BufferSize int `yaml:"buffer_size"`

	// Sources is the list of heart-rate sources to monitor.
	Sources []Source `yaml:"sources"`

	// ServerAuth configures how the monitor authenticates to hrvstack-server.
	ServerAuth AuthConfig `yaml:"server_auth"`
}

// Source describes one monitored heart-rate source.
type Source struct {
	// ID is a unique, human-readable identifier for this device.
	ID string `yaml:"id"`

	// Type is the source type: sim | bridge | replay.
	Type string `yaml:"type"`

	// Endpoint is the metrics URL of a bridge exporter (bridge type only).
	Endpoint string `yaml:"endpoint"`

	// Path is the RR interval log file to replay (replay type only).
	Path string `yaml:"path"`

	// Auth configures how the monitor authenticates to a bridge endpoint.
	Auth AuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options for the bridge endpoint.
	TLS TLSConfig `yaml:"tls"`

	// Sim tunes the simulated source (sim type only).
	Sim SimConfig `yaml:"sim"`
}

// SimConfig tunes the deterministic RR simulator.
type SimConfig struct {
	// BaseIntervalMS is the mean RR interval in milliseconds (default 800,
	// i.e. 75 bpm).
	BaseIntervalMS float64 `yaml:"base_interval_ms"`

	// SwayMS is the amplitude of the slow respiratory modulation. Absent
	// picks the simulator default; an explicit 0 yields a metronome-steady
	// stream.
	SwayMS *float64 `yaml:"sway_ms"`

	// NoiseMS is the amplitude of the beat-to-beat noise. Absent picks the
	// default; an explicit 0 disables the noise.
	NoiseMS *float64 `yaml:"noise_ms"`

	// Seed makes the noise stream reproducible; 0 picks a fixed default.
	Seed int64 `yaml:"seed"`
}

// AuthConfig specifies the authentication mode for an endpoint.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// mTLS fields — used when Mode == "mtls".
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// API key fields — used when Mode == "apikey".
	// Header is the HTTP header name to send the key in.
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// Bearer token fields — used when Mode == "bearer".
	TokenEnv string `yaml:"token_env"`

	// Basic auth fields — used when Mode == "basic".
	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// EffectiveHeader returns the configured API key header name, or the
// default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// TLSConfig holds per-source TLS dial options.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for internal CAs in development environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// EngineConfig exposes every named constant of the numeric core. Values are
// overridable individually; absent fields keep the documented defaults.
type EngineConfig struct {
	// WindowWidth is the number of recent samples each computation uses.
	WindowWidth int `yaml:"window_width"`

	// BufferHeadroom is how many samples the rolling buffer keeps beyond
	// WindowWidth before truncating from the front.
	BufferHeadroom int `yaml:"buffer_headroom"`

	// MinSamples is the minimum cleaned sample count required for a value.
	MinSamples int `yaml:"min_samples"`

	// MinIntervalMS and MaxIntervalMS bound plausible RR intervals.
	MinIntervalMS float64 `yaml:"min_interval_ms"`
	MaxIntervalMS float64 `yaml:"max_interval_ms"`

	// JumpTolerance is the relative beat-to-beat change rejection threshold.
	JumpTolerance float64 `yaml:"jump_tolerance"`

	// BoxMin and BoxMax bound the inclusive DFA box-size range.
	BoxMin int `yaml:"box_min"`
	BoxMax int `yaml:"box_max"`

	// AerobicThreshold and AnaerobicThreshold are the display-only zone
	// boundaries applied to the exponent.
	AerobicThreshold   float64 `yaml:"aerobic_threshold"`
	AnaerobicThreshold float64 `yaml:"anaerobic_threshold"`
}

// Params converts the engine section into the core's parameter struct.
func (e EngineConfig) Params() dfa.Params {
	return dfa.Params{
		MinIntervalMS: e.MinIntervalMS,
		MaxIntervalMS: e.MaxIntervalMS,
		JumpTolerance: e.JumpTolerance,
		MinSamples:    e.MinSamples,
		BoxMin:        e.BoxMin,
		BoxMax:        e.BoxMax,
	}
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	p := dfa.DefaultParams()
	return &Config{
		Monitor: MonitorConfig{
			PollInterval: DefaultPollInterval,
			BufferSize:   DefaultBufferSize,
		},
		Engine: EngineConfig{
			WindowWidth:        window.DefaultWidth,
			BufferHeadroom:     window.DefaultHeadroom,
			MinSamples:         p.MinSamples,
			MinIntervalMS:      p.MinIntervalMS,
			MaxIntervalMS:      p.MaxIntervalMS,
			JumpTolerance:      p.JumpTolerance,
			BoxMin:             p.BoxMin,
			BoxMax:             p.BoxMax,
			AerobicThreshold:   types.DefaultAerobicThreshold,
			AnaerobicThreshold: types.DefaultAnaerobicThreshold,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Monitor.ServerEndpoint == "" {
		return fmt.Errorf("monitor.server_endpoint is required")
	}
	if cfg.Monitor.PollInterval <= 0 {
		return fmt.Errorf("monitor.poll_interval must be positive")
	}
	if cfg.Monitor.BufferSize <= 0 {
		return fmt.Errorf("monitor.buffer_size must be positive")
	}
	for i, src := range cfg.Monitor.Sources {
		if src.ID == "" {
			return fmt.Errorf("sources[%d]: id is required", i)
		}
		switch src.Type {
		case "sim":
		case "bridge":
			if src.Endpoint == "" {
				return fmt.Errorf("sources[%d] %q: endpoint is required for bridge sources", i, src.ID)
			}
		case "replay":
			if src.Path == "" {
				return fmt.Errorf("sources[%d] %q: path is required for replay sources", i, src.ID)
			}
		default:
			return fmt.Errorf("sources[%d] %q: unknown type %q", i, src.ID, src.Type)
		}
		switch src.Auth.Mode {
		case "mtls", "apikey", "bearer", "basic", "none", "":
		default:
			return fmt.Errorf("sources[%d] %q: unknown auth mode %q", i, src.ID, src.Auth.Mode)
		}
	}

	e := cfg.Engine
	if e.BoxMin < 2 {
		return fmt.Errorf("engine.box_min %d too small: the detrending fit needs at least 2 points", e.BoxMin)
	}
	if e.BoxMax < e.BoxMin {
		return fmt.Errorf("engine.box_max %d must be >= box_min %d", e.BoxMax, e.BoxMin)
	}
	if e.WindowWidth < e.BoxMax {
		// A window narrower than the largest box can never fill a single
		// box at that scale.
		return fmt.Errorf("engine.window_width %d must be >= box_max %d", e.WindowWidth, e.BoxMax)
	}
	if e.BufferHeadroom < 0 {
		return fmt.Errorf("engine.buffer_headroom must not be negative")
	}
	if e.MinSamples < 2 {
		return fmt.Errorf("engine.min_samples %d too small", e.MinSamples)
	}
	if e.MinIntervalMS <= 0 || e.MaxIntervalMS <= e.MinIntervalMS {
		return fmt.Errorf("engine interval bounds [%v, %v] are not an ascending positive range",
			e.MinIntervalMS, e.MaxIntervalMS)
	}
	if e.JumpTolerance <= 0 || e.JumpTolerance >= 1 {
		return fmt.Errorf("engine.jump_tolerance %v must be in (0, 1)", e.JumpTolerance)
	}
	if e.AerobicThreshold <= e.AnaerobicThreshold {
		return fmt.Errorf("engine.aerobic_threshold %v must be above anaerobic_threshold %v",
			e.AerobicThreshold, e.AnaerobicThreshold)
	}
	return nil
}
