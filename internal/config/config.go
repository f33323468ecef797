// Package config loads server configuration from a YAML file with
// CLASH_-prefixed environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root server configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Match   MatchConfig   `mapstructure:"match"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Logging LoggingConfig `mapstructure:"logging"`
	Journal JournalConfig `mapstructure:"journal"`
}

// ServerConfig holds the transport listeners.
type ServerConfig struct {
	GRPC       GRPCConfig      `mapstructure:"grpc"`
	WebSocket  WebSocketConfig `mapstructure:"websocket"`
	MaxMatches int             `mapstructure:"max_matches"`
}

// GRPCConfig configures the gRPC listener.
type GRPCConfig struct {
	Address              string `mapstructure:"address"`
	MaxConcurrentStreams int    `mapstructure:"max_concurrent_streams"`
}

// WebSocketConfig configures the WebSocket listener.
type WebSocketConfig struct {
	Address        string   `mapstructure:"address"`
	Path           string   `mapstructure:"path"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	SendBuffer     int      `mapstructure:"send_buffer"`
}

// MatchConfig tunes every match actor.
type MatchConfig struct {
	InterruptWindow time.Duration `mapstructure:"interrupt_window"`
	QueueSize       int           `mapstructure:"queue_size"`
	// Retention is how long a finished or aborted match stays readable
	// before it is retired.
	Retention time.Duration `mapstructure:"retention"`
	// Seed fixes the base seed for all matches. Zero draws one per match.
	Seed uint64 `mapstructure:"seed"`
}

// CatalogConfig points at a card catalog. Empty uses the embedded default.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig selects log level and encoding.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// JournalConfig selects the turn log backend: postgres, sqlite or none.
type JournalConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Buffer int    `mapstructure:"buffer"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.grpc.address", ":50051")
	v.SetDefault("server.grpc.max_concurrent_streams", 1000)
	v.SetDefault("server.websocket.address", ":8080")
	v.SetDefault("server.websocket.path", "/ws")
	v.SetDefault("server.websocket.send_buffer", 64)
	v.SetDefault("server.max_matches", 1000)

	v.SetDefault("match.interrupt_window", "15s")
	v.SetDefault("match.queue_size", 64)
	v.SetDefault("match.retention", "1m")
	v.SetDefault("match.seed", 0)

	v.SetDefault("catalog.path", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("journal.driver", "none")
	v.SetDefault("journal.dsn", "")
	v.SetDefault("journal.buffer", 256)
}

// Load reads path (a missing file means defaults only) on top of the defaults and applies
// environment overrides such as CLASH_MATCH_INTERRUPT_WINDOW=5s.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CLASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Match.InterruptWindow <= 0 {
		return fmt.Errorf("match.interrupt_window must be positive, got %s", c.Match.InterruptWindow)
	}
	if c.Match.QueueSize <= 0 {
		return fmt.Errorf("match.queue_size must be positive, got %d", c.Match.QueueSize)
	}
	if c.Match.Retention <= 0 {
		return fmt.Errorf("match.retention must be positive, got %s", c.Match.Retention)
	}
	if c.Server.MaxMatches <= 0 {
		return fmt.Errorf("server.max_matches must be positive, got %d", c.Server.MaxMatches)
	}
	switch c.Journal.Driver {
	case "", "none":
	case "postgres", "sqlite":
		if c.Journal.DSN == "" {
			return fmt.Errorf("journal.dsn is required for driver %q", c.Journal.Driver)
		}
	default:
		return fmt.Errorf("unknown journal driver %q", c.Journal.Driver)
	}
	return nil
}
