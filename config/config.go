// Package config assembles relay settings from defaults, a TOML or YAML file,
// and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/vinayprograms/relaykit/credentials"
	"github.com/vinayprograms/relaykit/dispatch"
	"github.com/vinayprograms/relaykit/llm"
	"github.com/vinayprograms/relaykit/logging"
	"github.com/vinayprograms/relaykit/ratelimit"
)

// BackendConfig selects the provider and model every credential talks to.
type BackendConfig struct {
	Provider string   `json:"provider" toml:"provider" yaml:"provider"`
	Model    string   `json:"model" toml:"model" yaml:"model"`
	BaseURL  string   `json:"base_url,omitempty" toml:"base_url" yaml:"base_url,omitempty"`
	APIKeys  []string `json:"-" toml:"api_keys" yaml:"api_keys,omitempty"`
}

// PoolConfig tunes credential rotation and idle-client sweeping.
type PoolConfig struct {
	RotationDelay   time.Duration `json:"rotation_delay" toml:"rotation_delay" yaml:"rotation_delay"`
	JanitorSchedule string        `json:"janitor_schedule" toml:"janitor_schedule" yaml:"janitor_schedule"`
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	Addr            string        `json:"addr" toml:"addr" yaml:"addr"`
	RequestTimeout  time.Duration `json:"request_timeout" toml:"request_timeout" yaml:"request_timeout"`
	MaxPromptChars  int           `json:"max_prompt_chars" toml:"max_prompt_chars" yaml:"max_prompt_chars"`
	MaxPersonaChars int           `json:"max_persona_chars" toml:"max_persona_chars" yaml:"max_persona_chars"`
	MaxBodyBytes    int64         `json:"max_body_bytes" toml:"max_body_bytes" yaml:"max_body_bytes"`

	// TrustProxy takes the client address from X-Real-IP or X-Forwarded-For.
	// Enable only behind a proxy that overwrites those headers; otherwise
	// clients can pick their own throttle key.
	TrustProxy bool `json:"trust_proxy" toml:"trust_proxy" yaml:"trust_proxy"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `json:"level" toml:"level" yaml:"level"`
	Pretty bool   `json:"pretty" toml:"pretty" yaml:"pretty"`
}

// Config is the complete relay configuration.
type Config struct {
	Backend  BackendConfig    `json:"backend" toml:"backend" yaml:"backend"`
	Pool     PoolConfig       `json:"pool" toml:"pool" yaml:"pool"`
	Throttle ratelimit.Config `json:"throttle" toml:"throttle" yaml:"throttle"`
	Dispatch dispatch.Config  `json:"dispatch" toml:"dispatch" yaml:"dispatch"`
	Server   ServerConfig     `json:"server" toml:"server" yaml:"server"`
	Logging  LoggingConfig    `json:"logging" toml:"logging" yaml:"logging"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Provider: llm.ProviderGoogle,
			Model:    "gemini-1.5-flash",
		},
		Pool: PoolConfig{
			RotationDelay:   credentials.DefaultRotationDelay,
			JanitorSchedule: ratelimit.DefaultJanitorSchedule,
		},
		Throttle: ratelimit.DefaultConfig(),
		Dispatch: dispatch.DefaultConfig(),
		Server: ServerConfig{
			Addr:            ":3000",
			RequestTimeout:  time.Minute,
			MaxPromptChars:  1000,
			MaxPersonaChars: 500,
			MaxBodyBytes:    10 << 10,
			TrustProxy:      true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load returns the defaults overlaid with the file at path. Keys present in
// the file replace defaults, including explicit zeros; absent keys keep their
// default. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path) //#nosec G304 -- operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("failed to read config %q: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (want .toml, .yaml or .yml)", filepath.Ext(path))
	}
	return cfg, nil
}

// Override merges the non-zero fields of o over c. The environment and
// command-line flags are applied this way, so an unset value never clears
// one from the file.
func (c *Config) Override(o Config) error {
	if err := mergo.Merge(c, o, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// Environment variables read by ApplyEnv.
const (
	EnvProvider = "RELAY_PROVIDER"
	EnvModel    = "RELAY_MODEL"
	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"
)

// ApplyEnv overrides settings from the environment. The provider's key
// variable (GOOGLE_API_KEY for google) holds a comma-separated key list.
func (c *Config) ApplyEnv() error {
	var env Config
	env.Backend.Provider = strings.ToLower(strings.TrimSpace(os.Getenv(EnvProvider)))
	env.Backend.Model = strings.TrimSpace(os.Getenv(EnvModel))

	provider := c.Backend.Provider
	if env.Backend.Provider != "" {
		provider = env.Backend.Provider
	}
	env.Backend.APIKeys = credentials.ParseKeyList(os.Getenv(credentials.EnvVarForProvider(provider)))

	if v := strings.TrimSpace(os.Getenv(EnvPort)); v != "" {
		env.Server.Addr = ":" + v
	}
	env.Logging.Level = strings.TrimSpace(os.Getenv(EnvLogLevel))

	return c.Override(env)
}

// ResolveKeys fills the key list from a credentials file when neither the
// config nor the environment supplied one.
func (c *Config) ResolveKeys(creds *credentials.Credentials) {
	if len(c.Backend.APIKeys) > 0 {
		return
	}
	c.Backend.APIKeys = creds.Keys(c.Backend.Provider)
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	switch c.Backend.Provider {
	case llm.ProviderGoogle, llm.ProviderOpenAI, llm.ProviderAnthropic:
	default:
		return fmt.Errorf("backend: unknown provider %q", c.Backend.Provider)
	}
	if c.Backend.Model == "" {
		return fmt.Errorf("backend: model is required")
	}
	if len(c.Backend.APIKeys) == 0 {
		return fmt.Errorf("backend: %w (set %s or a credentials file)",
			credentials.ErrNoCredentials, credentials.EnvVarForProvider(c.Backend.Provider))
	}
	if c.Pool.RotationDelay < 0 {
		return fmt.Errorf("pool: rotation delay must not be negative")
	}
	if _, err := ratelimit.ParseSchedule(c.Pool.JanitorSchedule); err != nil {
		return fmt.Errorf("pool: %w", err)
	}
	if err := c.Throttle.Validate(); err != nil {
		return fmt.Errorf("throttle: %w", err)
	}
	if err := c.Dispatch.Validate(); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server: addr is required")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server: request timeout must be positive")
	}
	if c.Server.MaxPromptChars <= 0 || c.Server.MaxPersonaChars <= 0 || c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server: size limits must be positive")
	}
	return nil
}

// BackendTemplate returns the per-key backend settings without a key.
func (c *Config) BackendTemplate() llm.BackendConfig {
	return llm.BackendConfig{
		Provider: c.Backend.Provider,
		Model:    c.Backend.Model,
		BaseURL:  c.Backend.BaseURL,
	}
}

// NewLogger builds the root logger from the logging settings.
func (c *Config) NewLogger() *logging.Logger {
	log := logging.New()
	log.SetLevel(logging.ParseLevel(c.Logging.Level))
	log.SetPretty(c.Logging.Pretty)
	return log
}
