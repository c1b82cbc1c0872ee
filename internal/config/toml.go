// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Experiment ExperimentConfig `toml:"experiment"`
	Gesture    GestureConfig    `toml:"gesture"`
	Input      InputConfig      `toml:"input"`
}

// ExperimentConfig maps session-related settings.
type ExperimentConfig struct {
	Trials    *int    `toml:"trials"`
	EntryType *string `toml:"entry-type"`
	Assets    *string `toml:"assets"`
	Phrases   *string `toml:"phrases"`
	Output    *string `toml:"output"`
}

// GestureConfig maps palm-writing capture settings.
type GestureConfig struct {
	Threshold  *float64 `toml:"threshold"`
	MinSamples *int     `toml:"min-samples"`
	Templates  *string  `toml:"templates"`
}

// InputConfig maps debounce settings.
type InputConfig struct {
	KeyDebounceMs  *int `toml:"key-debounce-ms"`
	PokeDebounceMs *int `toml:"poke-debounce-ms"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
