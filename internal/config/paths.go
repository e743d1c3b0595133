package config

import (
	"os"
	"path/filepath"
)

// Paths holds the standard directories used by the server.
type Paths struct {
	// Config is the global configuration directory.
	Config string
	// Data is the root directory for durable chat records.
	Data string
}

// GetPaths resolves the XDG-style directories for chattutor.
func GetPaths() Paths {
	home, _ := os.UserHomeDir()

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(home, ".config")
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = filepath.Join(home, ".local", "share")
	}

	return Paths{
		Config: filepath.Join(configHome, "chattutor"),
		Data:   filepath.Join(dataHome, "chattutor"),
	}
}

// EnsurePaths creates the data directory if it does not exist.
func (p Paths) EnsurePaths() error {
	return os.MkdirAll(p.Data, 0755)
}
