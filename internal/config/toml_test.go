package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg.Experiment.Trials != nil {
		t.Fatalf("expected unset trials")
	}
}

func TestLoadConfigSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[experiment]
trials = 5
entry-type = "PinchT9"

[gesture]
threshold = 0.005
min-samples = 12

[input]
poke-debounce-ms = 200
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Experiment.Trials == nil || *cfg.Experiment.Trials != 5 {
		t.Fatalf("expected trials 5, got %v", cfg.Experiment.Trials)
	}
	if cfg.Experiment.EntryType == nil || *cfg.Experiment.EntryType != "PinchT9" {
		t.Fatalf("unexpected entry type %v", cfg.Experiment.EntryType)
	}
	if cfg.Gesture.Threshold == nil || *cfg.Gesture.Threshold != 0.005 {
		t.Fatalf("unexpected threshold %v", cfg.Gesture.Threshold)
	}
	if cfg.Gesture.MinSamples == nil || *cfg.Gesture.MinSamples != 12 {
		t.Fatalf("unexpected min samples %v", cfg.Gesture.MinSamples)
	}
	if cfg.Input.PokeDebounceMs == nil || *cfg.Input.PokeDebounceMs != 200 {
		t.Fatalf("unexpected poke debounce %v", cfg.Input.PokeDebounceMs)
	}
	if cfg.Input.KeyDebounceMs != nil {
		t.Fatalf("expected unset key debounce")
	}
}

func TestLoadConfigRejectsUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[experiment]\ntrails = 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for misspelled key")
	}
}
