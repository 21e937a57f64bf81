package config

import (
	"os"
	"path/filepath"
)

// Paths provides all tokun-related filesystem paths.
type Paths struct {
	ConfigDir     string // ~/.config/tokun
	DataDir       string // ~/.local/share/tokun
	ConfigFile    string // ~/.config/tokun/config.yaml
	StoreFile     string // ~/.local/share/tokun/tokun.db
	SecretKeyFile string // ~/.local/share/tokun/secret.key
}

// NewPaths creates Paths using ~/.config and ~/.local/share directories.
// We use these paths explicitly for cross-platform consistency rather than
// platform-specific defaults (like ~/Library/Application Support on macOS).
func NewPaths() *Paths {
	home := os.Getenv("HOME")
	return NewPathsWithOverrides(
		filepath.Join(home, ".config", "tokun"),
		filepath.Join(home, ".local", "share", "tokun"),
	)
}

// NewPathsWithOverrides allows overriding directories for testing.
func NewPathsWithOverrides(configDir, dataDir string) *Paths {
	return &Paths{
		ConfigDir:     configDir,
		DataDir:       dataDir,
		ConfigFile:    filepath.Join(configDir, "config.yaml"),
		StoreFile:     filepath.Join(dataDir, "tokun.db"),
		SecretKeyFile: filepath.Join(dataDir, "secret.key"),
	}
}
