package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/solacehub/solace-sense/internal/rules"
)

func TestLoadFromPath(t *testing.T) {
	yaml := []byte(`
persona: ember
source:
  kind: websocket
  url: ws://device.local:9300/stream
journal:
  enabled: true
  path: /tmp/solace-journal.db
  retention_days: 7
logging:
  level: debug
  format: json
`)
	f, _ := os.CreateTemp("", "config-*.yaml")
	f.Write(yaml)
	f.Close()
	defer os.Remove(f.Name())

	cfg, err := LoadFromPath(f.Name())
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Persona != "ember" {
		t.Errorf("Expected persona ember, got %s", cfg.Persona)
	}
	if cfg.Source.Kind != "websocket" {
		t.Errorf("Expected source kind websocket, got %s", cfg.Source.Kind)
	}
	if cfg.Source.URL != "ws://device.local:9300/stream" {
		t.Errorf("Unexpected source url %s", cfg.Source.URL)
	}
	if cfg.Journal.RetentionDays != 7 {
		t.Errorf("Expected retention_days 7, got %d", cfg.Journal.RetentionDays)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected logging format json, got %s", cfg.Logging.Format)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Queue.IngestSize != 256 {
		t.Errorf("Expected default ingest_size 256, got %d", cfg.Queue.IngestSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestLoadFromPathCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected default config file to be written: %v", err)
	}
	if cfg.Persona != rules.DefaultPersona {
		t.Errorf("Expected default persona %s, got %s", rules.DefaultPersona, cfg.Persona)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}

	// Reading the generated file back must yield the same config.
	again, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("Second LoadFromPath failed: %v", err)
	}
	if again.Journal.RetentionDays != cfg.Journal.RetentionDays {
		t.Errorf("Round-trip changed retention: %d != %d", again.Journal.RetentionDays, cfg.Journal.RetentionDays)
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("SOLACE_SENSE_PERSONA", "willow")
	t.Setenv("SOLACE_SENSE_SERVER_ADDR", ":7070")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Persona != "willow" {
		t.Errorf("Expected env persona willow, got %s", cfg.Persona)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("Expected env server addr :7070, got %s", cfg.Server.Addr)
	}
}

func TestValidateDefault(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestValidateInvalidSourceKind(t *testing.T) {
	cfg := Default()
	cfg.Source.Kind = "carrier_pigeon"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for invalid source kind")
	}
}

func TestValidateWebsocketNeedsURL(t *testing.T) {
	cfg := Default()
	cfg.Source.Kind = "websocket"
	cfg.Source.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for missing websocket url")
	}
}

func TestValidateInvalidLoggingFormat(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for invalid logging format")
	}
}

func TestValidateJournalRetention(t *testing.T) {
	cfg := Default()
	cfg.Journal.RetentionDays = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for zero retention")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	got := expandPath("~/.solace-sense/rules.yaml")
	want := filepath.Join(home, ".solace-sense", "rules.yaml")
	if got != want {
		t.Errorf("expandPath = %s, want %s", got, want)
	}
	if expandPath("/etc/solace/config.yaml") != "/etc/solace/config.yaml" {
		t.Error("Absolute paths must pass through unchanged")
	}
}
