// Package config provides XDG path helpers.
package config

import (
	"os"
	"path/filepath"
)

const appName = "entrylab"

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// DefaultAssetsDir returns the directory holding phrases.txt.
func DefaultAssetsDir() string {
	return filepath.Join(XDGConfigHome(), appName, "assets")
}

// DefaultTemplatesDir returns the directory holding gesture templates.
func DefaultTemplatesDir() string {
	return filepath.Join(XDGConfigHome(), appName, "gestures")
}

// DefaultDBPath returns the default path for the SQLite database.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), appName, appName+".db")
}

// DefaultOutputDir returns the directory session records are written to.
func DefaultOutputDir() string {
	return filepath.Join(XDGDataHome(), appName, "sessions")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appName, "config.toml")
}
