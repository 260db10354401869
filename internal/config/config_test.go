package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if len(cfg.Languages.Enabled) == 0 {
		t.Error("Languages.Enabled should not be empty")
	}
	if cfg.Watch.DebounceMs <= 0 {
		t.Error("Watch.DebounceMs should be positive")
	}
	if cfg.Watch.QueueSize <= 0 {
		t.Error("Watch.QueueSize should be positive")
	}
	if cfg.Impact.MaxVisited <= 0 {
		t.Error("Impact.MaxVisited should be positive")
	}
	if !cfg.Vector.Enabled {
		t.Error("Vector should be enabled by default")
	}
	if cfg.Vector.Model != "nomic-embed-text" {
		t.Errorf("Vector.Model = %q, want nomic-embed-text", cfg.Vector.Model)
	}
	if cfg.Index.DegradedThreshold != 0.5 {
		t.Errorf("Index.DegradedThreshold = %v, want 0.5", cfg.Index.DegradedThreshold)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	root := t.TempDir()

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig with no file should return defaults, got error: %v", err)
	}
	if cfg.Version != 1 {
		t.Errorf("Version = %d, want default 1", cfg.Version)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	root := t.TempDir()
	stateDir := filepath.Join(root, StateDirName)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		t.Fatal(err)
	}

	configJSON := `{
  "version": 1,
  "languages": {"enabled": ["python"]},
  "watch": {"enabled": false, "debounceMs": 250, "queueSize": 64},
  "vector": {"enabled": false, "dimensions": 128},
  "server": {"addr": "127.0.0.1:9999"}
}`
	if err := os.WriteFile(filepath.Join(stateDir, "config.json"), []byte(configJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if len(cfg.Languages.Enabled) != 1 || cfg.Languages.Enabled[0] != "python" {
		t.Errorf("Languages.Enabled = %v, want [python]", cfg.Languages.Enabled)
	}
	if cfg.Watch.Enabled {
		t.Error("Watch.Enabled should be false from file")
	}
	if cfg.Watch.DebounceMs != 250 {
		t.Errorf("Watch.DebounceMs = %d, want 250", cfg.Watch.DebounceMs)
	}
	if cfg.Server.Addr != "127.0.0.1:9999" {
		t.Errorf("Server.Addr = %q, want 127.0.0.1:9999", cfg.Server.Addr)
	}
	// Sections absent from the file keep their defaults
	if cfg.Impact.MaxVisited != 5000 {
		t.Errorf("Impact.MaxVisited = %d, want default 5000", cfg.Impact.MaxVisited)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	root := t.TempDir()

	cfg := DefaultConfig()
	cfg.Server.Addr = "127.0.0.1:7777"
	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig after Save failed: %v", err)
	}
	if loaded.Server.Addr != "127.0.0.1:7777" {
		t.Errorf("Server.Addr = %q, want 127.0.0.1:7777", loaded.Server.Addr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad version", func(c *Config) { c.Version = 99 }, true},
		{"zero queue", func(c *Config) { c.Watch.QueueSize = 0 }, true},
		{"zero max visited", func(c *Config) { c.Impact.MaxVisited = 0 }, true},
		{"threshold too high", func(c *Config) { c.Index.DegradedThreshold = 1.5 }, true},
		{"zero dimensions", func(c *Config) { c.Vector.Dimensions = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
