// Package xdg resolves XDG Base Directory paths for sqlai.
// Unset XDG variables fall back to the traditional locations under $HOME.
package xdg

import (
	"os"
	"path/filepath"
)

const appDir = "sqlai"

// ConfigDir returns the XDG config directory for sqlai.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.config/sqlai when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	return resolve("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the XDG state directory for sqlai. The "auto" metrics
// textfile is written there.
// It falls back to ~/.local/state/sqlai when XDG_STATE_HOME is unset.
func StateDir() (string, error) {
	return resolve("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func resolve(envKey, homeFallback string) (string, error) {
	base := os.Getenv(envKey)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, homeFallback)
	}
	dir := filepath.Join(base, appDir)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
