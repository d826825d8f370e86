package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration shared by the workers, the starter and the
// fake backend.
type Config struct {
	Temporal    TemporalConfig    `mapstructure:"temporal"`
	Backend     BackendConfig     `mapstructure:"backend"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Log         LogConfig         `mapstructure:"log"`
	FakeBackend FakeBackendConfig `mapstructure:"fake_backend"`
}

// TemporalConfig contains the Temporal client settings
type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
}

// BackendConfig points the gateway at the two backends
type BackendConfig struct {
	FiscalBaseURL    string        `mapstructure:"fiscal_base_url"`
	DocumentsBaseURL string        `mapstructure:"documents_base_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

// MetricsConfig contains the Prometheus listener of the activity worker
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// FakeBackendConfig configures the local stand-in for both backends
type FakeBackendConfig struct {
	Addr          string `mapstructure:"addr"`
	DocumentsAddr string `mapstructure:"documents_addr"`
	// PollsUntilDone is the number of reads a request stays Criado.
	PollsUntilDone int `mapstructure:"polls_until_done"`
}

// EnvPrefix prefixes every environment override, e.g.
// FISCAL_BACKEND_FISCAL_BASE_URL.
const EnvPrefix = "FISCAL"

// Load reads fiscal.yaml from the working directory or ./config when present,
// then applies FISCAL_* environment overrides on top of the defaults.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("fiscal")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the processes cannot start with.
func (c Config) Validate() error {
	if c.Temporal.HostPort == "" {
		return errors.New("temporal.host_port is required")
	}
	if c.Backend.FiscalBaseURL == "" || c.Backend.DocumentsBaseURL == "" {
		return errors.New("backend.fiscal_base_url and backend.documents_base_url are required")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive, got %s", c.Backend.Timeout)
	}
	if c.FakeBackend.PollsUntilDone < 0 {
		return fmt.Errorf("fake_backend.polls_until_done must not be negative, got %d", c.FakeBackend.PollsUntilDone)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Temporal
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")

	// Backends
	v.SetDefault("backend.fiscal_base_url", "http://localhost:5100/api")
	v.SetDefault("backend.documents_base_url", "http://localhost:5001/api")
	v.SetDefault("backend.timeout", "30s")

	// Metrics
	v.SetDefault("metrics.addr", ":9464")

	// Logging
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	// Fake backend
	v.SetDefault("fake_backend.addr", ":5100")
	v.SetDefault("fake_backend.documents_addr", ":5001")
	v.SetDefault("fake_backend.polls_until_done", 2)
}
