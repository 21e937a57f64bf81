package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewPaths(t *testing.T) {
	home := os.Getenv("HOME")
	paths := NewPaths()

	if want := filepath.Join(home, ".config", "tokun", "config.yaml"); paths.ConfigFile != want {
		t.Errorf("ConfigFile = %q, want %q", paths.ConfigFile, want)
	}
	if want := filepath.Join(home, ".local", "share", "tokun"); paths.DataDir != want {
		t.Errorf("DataDir = %q, want %q", paths.DataDir, want)
	}
}

func TestPaths_DataFilesInsideDataDir(t *testing.T) {
	paths := NewPaths()

	for name, path := range map[string]string{
		"StoreFile":     paths.StoreFile,
		"SecretKeyFile": paths.SecretKeyFile,
	} {
		if !strings.HasPrefix(path, paths.DataDir) {
			t.Errorf("%s = %q, not inside DataDir %q", name, path, paths.DataDir)
		}
	}
}

func TestNewPathsWithOverrides(t *testing.T) {
	configDir := t.TempDir()
	dataDir := t.TempDir()
	paths := NewPathsWithOverrides(configDir, dataDir)

	if want := filepath.Join(configDir, "config.yaml"); paths.ConfigFile != want {
		t.Errorf("ConfigFile with override = %q, want %q", paths.ConfigFile, want)
	}
	if want := filepath.Join(dataDir, "tokun.db"); paths.StoreFile != want {
		t.Errorf("StoreFile with override = %q, want %q", paths.StoreFile, want)
	}
	if want := filepath.Join(dataDir, "secret.key"); paths.SecretKeyFile != want {
		t.Errorf("SecretKeyFile with override = %q, want %q", paths.SecretKeyFile, want)
	}
}
