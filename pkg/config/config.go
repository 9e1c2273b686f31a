package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	stenoerrors "github.com/stenoweb/steno/pkg/errors"
)

// Default configuration values exported for documentation and validation
const (
	DefaultBind                 = "127.0.0.1:4590"
	DefaultMaxEventCount        = 10000
	DefaultIdleTimeout          = 30 * time.Minute
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultRetryQueueCapacity   = 50
	DefaultRetryBatchSize       = 5
	DefaultRetryMaxAge          = 5 * time.Minute
	DefaultRetryInterval        = 10 * time.Second
	DefaultLogDir               = ".steno/logs"
)

// Config represents the complete steno configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig controls the HTTP/WebSocket listener
type ServerConfig struct {
	Bind           string   `yaml:"bind"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	PublicMetrics  bool     `yaml:"public_metrics"`
}

// RecordingConfig controls session admission
type RecordingConfig struct {
	MaxEventCount int           `yaml:"max_event_count"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
}

// TransportConfig tunes the capture agent's delivery behavior
type TransportConfig struct {
	HeartbeatInterval    time.Duration `yaml:"heartbeat_interval"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	RetryQueueCapacity   int           `yaml:"retry_queue_capacity"`
	RetryBatchSize       int           `yaml:"retry_batch_size"`
	RetryMaxAge          time.Duration `yaml:"retry_max_age"`
	RetryInterval        time.Duration `yaml:"retry_interval"`
}

// LoggingConfig controls structured logging output
type LoggingConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

// Default returns a Config populated with default values
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Bind:           DefaultBind,
			AllowedOrigins: []string{"http://localhost", "http://127.0.0.1"},
		},
		Recording: RecordingConfig{
			MaxEventCount: DefaultMaxEventCount,
			IdleTimeout:   DefaultIdleTimeout,
		},
		Transport: TransportConfig{
			HeartbeatInterval:    DefaultHeartbeatInterval,
			MaxReconnectAttempts: DefaultMaxReconnectAttempts,
			RetryQueueCapacity:   DefaultRetryQueueCapacity,
			RetryBatchSize:       DefaultRetryBatchSize,
			RetryMaxAge:          DefaultRetryMaxAge,
			RetryInterval:        DefaultRetryInterval,
		},
		Logging: LoggingConfig{
			Dir:   DefaultLogDir,
			Level: "info",
		},
	}
}

// Load reads configuration from path, overlaying defaults. A missing file is
// not an error; the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, stenoerrors.Wrap(err, stenoerrors.ErrCodeConfigLoad, "failed to read config file").
			WithContext("path", path)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, stenoerrors.Wrap(err, stenoerrors.ErrCodeConfigParse, "failed to parse config file").
			WithContext("path", path)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(cfg *Config) {
	if bind := os.Getenv("STENO_BIND"); bind != "" {
		cfg.Server.Bind = bind
	}
	if dir := os.Getenv("STENO_LOG_DIR"); dir != "" {
		cfg.Logging.Dir = dir
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return stenoerrors.New(stenoerrors.ErrCodeConfigInvalid, fmt.Sprintf("invalid bind address %q", c.Server.Bind))
	}
	if c.Recording.MaxEventCount <= 0 {
		return stenoerrors.New(stenoerrors.ErrCodeConfigInvalid, "recording.max_event_count must be positive")
	}
	if c.Transport.MaxReconnectAttempts <= 0 {
		return stenoerrors.New(stenoerrors.ErrCodeConfigInvalid, "transport.max_reconnect_attempts must be positive")
	}
	if c.Transport.RetryQueueCapacity <= 0 {
		return stenoerrors.New(stenoerrors.ErrCodeConfigInvalid, "transport.retry_queue_capacity must be positive")
	}
	if c.Transport.RetryBatchSize <= 0 {
		return stenoerrors.New(stenoerrors.ErrCodeConfigInvalid, "transport.retry_batch_size must be positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return stenoerrors.New(stenoerrors.ErrCodeConfigInvalid, fmt.Sprintf("unknown log level %q", c.Logging.Level))
	}
	return nil
}
