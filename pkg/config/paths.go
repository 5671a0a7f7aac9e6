package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigDir returns the path to the cruxrec config directory (~/.cruxrec).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".cruxrec"), nil
}

// EnsureConfigDir creates the config directory if it does not exist.
func EnsureConfigDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	return dir, nil
}

// DefaultPath resolves the path for a named config file. Absolute paths are
// returned as-is; otherwise the working directory is checked first, then
// ~/.cruxrec/.
func DefaultPath(name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}

	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	homePath := filepath.Join(dir, name)
	if _, err := os.Stat(homePath); err == nil {
		return homePath, nil
	}

	// Return the home location as default even if it doesn't exist yet so
	// error messages point at the expected place.
	return homePath, nil
}
