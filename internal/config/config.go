// Package config loads the solace-sense configuration from
// ~/.solace-sense/config.yaml with SOLACE_SENSE_* environment overrides.
// The persona rule tables live in their own YAML document (see
// internal/rules); this file covers everything else.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/solacehub/solace-sense/internal/rules"
)

// Config holds all runtime configuration for the trigger engine service.
type Config struct {
	Persona   string        `mapstructure:"persona" yaml:"persona"`
	RulesPath string        `mapstructure:"rules_path" yaml:"rules_path"`
	Queue     QueueConfig   `mapstructure:"queue" yaml:"queue"`
	Source    SourceConfig  `mapstructure:"source" yaml:"source"`
	Backend   BackendConfig `mapstructure:"backend" yaml:"backend"`
	Haptic    HapticConfig  `mapstructure:"haptic" yaml:"haptic"`
	Notify    NotifyConfig  `mapstructure:"notify" yaml:"notify"`
	Bridge    BridgeConfig  `mapstructure:"bridge" yaml:"bridge"`
	Journal   JournalConfig `mapstructure:"journal" yaml:"journal"`
	Server    ServerConfig  `mapstructure:"server" yaml:"server"`
	Logging   LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// QueueConfig sizes the two bounded queues in the pipeline.
type QueueConfig struct {
	// IngestSize is the sample queue capacity between sources and the
	// engine's run loop.
	IngestSize int `mapstructure:"ingest_size" yaml:"ingest_size"`
	// DispatchSize is the event queue capacity between the evaluator
	// and the dispatcher worker.
	DispatchSize int `mapstructure:"dispatch_size" yaml:"dispatch_size"`
}

// SourceConfig selects where telemetry comes from.
type SourceConfig struct {
	// Kind is "websocket", "simulator", or "none".
	Kind string `mapstructure:"kind" yaml:"kind"`
	// URL is the device stream endpoint for the websocket source.
	URL string `mapstructure:"url" yaml:"url,omitempty"`
	// Scenario, Seed and IntervalMs drive the simulator source.
	Scenario   string `mapstructure:"scenario" yaml:"scenario,omitempty"`
	Seed       int64  `mapstructure:"seed" yaml:"seed,omitempty"`
	IntervalMs int    `mapstructure:"interval_ms" yaml:"interval_ms,omitempty"`
}

// BackendConfig points at the analytics/logging endpoint.
type BackendConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	URL        string `mapstructure:"url" yaml:"url"`
	APIToken   string `mapstructure:"api_token" yaml:"api_token,omitempty"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec,omitempty"`
}

// HapticConfig points at the local device haptic bridge.
type HapticConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	URL        string `mapstructure:"url" yaml:"url"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec,omitempty"`
}

// NotifyConfig toggles desktop notifications.
type NotifyConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// BridgeConfig configures the optional Redis action stream.
type BridgeConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	DB       int    `mapstructure:"db" yaml:"db,omitempty"`
}

// JournalConfig configures the SQLite action journal.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
	// RetentionDays auto-deletes journal entries after N days.
	RetentionDays int `mapstructure:"retention_days" yaml:"retention_days"`
}

// ServerConfig configures the HTTP status server.
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// LoggingConfig selects log level and writer format.
type LoggingConfig struct {
	// Level is "debug", "info", "warn", or "error".
	Level string `mapstructure:"level" yaml:"level"`
	// Format is "console" or "json".
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns the configuration used when no file exists yet.
func Default() *Config {
	return &Config{
		Persona:   rules.DefaultPersona,
		RulesPath: "~/.solace-sense/rules.yaml",
		Queue: QueueConfig{
			IngestSize:   256,
			DispatchSize: 64,
		},
		Source: SourceConfig{
			Kind:       "simulator",
			Scenario:   "calm_morning",
			Seed:       1,
			IntervalMs: 1000,
		},
		Backend: BackendConfig{
			Enabled:    false,
			URL:        "http://localhost:8080",
			TimeoutSec: 5,
		},
		Haptic: HapticConfig{
			Enabled:    false,
			URL:        "http://localhost:9457",
			TimeoutSec: 2,
		},
		Notify: NotifyConfig{
			Enabled: true,
		},
		Bridge: BridgeConfig{
			Enabled: false,
			Addr:    "127.0.0.1:6379",
		},
		Journal: JournalConfig{
			Enabled:       true,
			Path:          "~/.solace-sense/journal.db",
			RetentionDays: 30,
		},
		Server: ServerConfig{
			Enabled: true,
			Addr:    ":8090",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads ~/.solace-sense/config.yaml, creating it with defaults when
// missing.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	return LoadFromPath(filepath.Join(homeDir, ".solace-sense", "config.yaml"))
}

// LoadFromPath reads a specific config file, merging SOLACE_SENSE_*
// environment variables over it. A missing file is created from Default.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeConfigFile(path, Default()); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Example: SOLACE_SENSE_BRIDGE_ADDR overrides bridge.addr.
	v.SetEnvPrefix("SOLACE_SENSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.RulesPath = expandPath(cfg.RulesPath)
	cfg.Journal.Path = expandPath(cfg.Journal.Path)
	return cfg, nil
}

// Validate rejects configurations the service could not run with.
func (c *Config) Validate() error {
	if c.Persona == "" {
		return fmt.Errorf("persona cannot be empty")
	}
	if c.Queue.IngestSize <= 0 {
		return fmt.Errorf("queue.ingest_size must be positive")
	}
	if c.Queue.DispatchSize <= 0 {
		return fmt.Errorf("queue.dispatch_size must be positive")
	}

	switch c.Source.Kind {
	case "websocket":
		if c.Source.URL == "" {
			return fmt.Errorf("source.url is required for the websocket source")
		}
	case "simulator":
		if c.Source.IntervalMs <= 0 {
			return fmt.Errorf("source.interval_ms must be positive for the simulator")
		}
	case "none":
	default:
		return fmt.Errorf("invalid source.kind %q, must be websocket, simulator or none", c.Source.Kind)
	}

	if c.Backend.Enabled && c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required when the backend collaborator is enabled")
	}
	if c.Haptic.Enabled && c.Haptic.URL == "" {
		return fmt.Errorf("haptic.url is required when the haptic collaborator is enabled")
	}
	if c.Bridge.Enabled && c.Bridge.Addr == "" {
		return fmt.Errorf("bridge.addr is required when the bridge is enabled")
	}
	if c.Journal.Enabled {
		if c.Journal.Path == "" {
			return fmt.Errorf("journal.path is required when the journal is enabled")
		}
		if c.Journal.RetentionDays <= 0 {
			return fmt.Errorf("journal.retention_days must be positive")
		}
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required when the server is enabled")
	}

	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid logging.format %q, must be 'console' or 'json'", c.Logging.Format)
	}
	return nil
}

func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := "# solace-sense configuration. Persona rule tables live in rules.yaml.\n"
	return os.WriteFile(path, append([]byte(header), data...), 0o644)
}

// expandPath resolves a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/"))
	}
	return path
}
