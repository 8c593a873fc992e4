package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultBaseURL is where the backend listens in local development
	DefaultBaseURL = "http://localhost:8000"
	// DefaultRefreshDelay is how long a new chat waits before refreshing the list
	DefaultRefreshDelay = 500 * time.Millisecond

	MinTimeout = 60 * time.Second
	MaxTimeout = 180 * time.Second
)

// Environment variables read by LoadConfig
const (
	EnvAPIURL  = "JONAS_API_URL"
	EnvTimeout = "JONAS_TIMEOUT"
	EnvDataDir = "JONAS_DATA_DIR"
)

// APIConfig configures the remote backend
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Endpoints Endpoints     `yaml:"endpoints"`
	Timeout   time.Duration `yaml:"timeout"`
}

// UnmarshalYAML reads timeout the way ParseTimeout does, so bare seconds
// work in the file as they do in JONAS_TIMEOUT and --timeout
func (a *APIConfig) UnmarshalYAML(value *yaml.Node) error {
	wire := struct {
		BaseURL   string    `yaml:"base_url"`
		Endpoints Endpoints `yaml:"endpoints"`
		Timeout   string    `yaml:"timeout"`
	}{BaseURL: a.BaseURL, Endpoints: a.Endpoints}
	if err := value.Decode(&wire); err != nil {
		return err
	}

	a.BaseURL = wire.BaseURL
	a.Endpoints = wire.Endpoints
	if wire.Timeout != "" {
		d, err := ParseTimeout(wire.Timeout)
		if err != nil {
			return fmt.Errorf("invalid api.timeout %q: %w", wire.Timeout, err)
		}
		a.Timeout = d
	}
	return nil
}

// Config is the complete client configuration
type Config struct {
	API          APIConfig     `yaml:"api"`
	DataDir      string        `yaml:"data_dir"`
	CacheDir     string        `yaml:"cache_dir"`
	RefreshDelay time.Duration `yaml:"refresh_delay"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	cfg := &Config{
		API: APIConfig{
			BaseURL:   DefaultBaseURL,
			Endpoints: DefaultEndpoints(),
			Timeout:   DefaultTimeout,
		},
		RefreshDelay: DefaultRefreshDelay,
	}
	if paths, err := DetectPaths(); err == nil {
		cfg.DataDir = paths.DataDir
		cfg.CacheDir = paths.CacheDir
	}
	return cfg
}

// LoadConfig layers the config file, the .env file and the environment over
// the defaults. An empty configPath uses the per-user config file; a missing
// file is not an error. envFile may be empty to skip .env loading.
func LoadConfig(configPath, envFile string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := configPath != ""
	if !explicit {
		if paths, err := DetectPaths(); err == nil {
			configPath = paths.ConfigFile()
		}
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, &ParseError{Source: "config", Key: configPath, Err: err}
			}
			LogDebug("Loaded config from %s", configPath)
		case explicit || !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
		}
	}

	if envFile != "" {
		// variables already set in the environment win over .env
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			LogWarn("Failed to load %s: %v", envFile, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := ParseTimeout(v)
		if err != nil {
			return &ParseError{Source: "config", Key: EnvTimeout, Err: err}
		}
		cfg.API.Timeout = d
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	return nil
}

// ParseTimeout accepts a Go duration ("90s") or a number of seconds ("90")
func ParseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// SetTimeout applies a timeout, clamping it to the supported range
func (c *Config) SetTimeout(d time.Duration) {
	c.API.Timeout = d
	c.normalize()
}

func (c *Config) normalize() {
	c.API.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}

	switch {
	case c.API.Timeout <= 0:
		c.API.Timeout = DefaultTimeout
	case c.API.Timeout < MinTimeout:
		LogWarn("Timeout %s below minimum, using %s", c.API.Timeout, MinTimeout)
		c.API.Timeout = MinTimeout
	case c.API.Timeout > MaxTimeout:
		LogWarn("Timeout %s above maximum, using %s", c.API.Timeout, MaxTimeout)
		c.API.Timeout = MaxTimeout
	}

	if c.RefreshDelay <= 0 {
		c.RefreshDelay = DefaultRefreshDelay
	}
}

// ClientConfig returns the API client settings
func (c *Config) ClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:   c.API.BaseURL,
		Endpoints: c.API.Endpoints,
		Timeout:   c.API.Timeout,
	}
}

// StateDBPath returns the client state database path
func (c *Config) StateDBPath() string {
	return StateDBPath(c.DataDir)
}
