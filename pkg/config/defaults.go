package config

import (
	"os"
	"path/filepath"
)

// defaultScopes returns the default search scopes.
//
// Returns the user's home directory if available, otherwise the current
// directory.
func defaultScopes() []string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return []string{"."}
	}
	return []string{homeDir}
}

// defaultDBPath returns the default value cache path.
//
// Returns: ~/.config/mdq/values.db.
func defaultDBPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./values.db"
	}

	return filepath.Join(homeDir, ".config", "mdq", "values.db")
}

// defaultConfigPath returns the default configuration file path.
//
// Returns: ~/.config/mdq/config.yaml.
func defaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}

	return filepath.Join(homeDir, ".config", "mdq", "config.yaml")
}
