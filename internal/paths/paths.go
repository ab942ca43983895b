package paths

import (
	"os"
	"path/filepath"
)

// StateDir returns the per-user directory holding the registry, history
// database and optional settings file. PHPVHOST_HOME overrides the default
// for tests and non-standard setups.
func StateDir() string {
	if h := os.Getenv("PHPVHOST_HOME"); h != "" {
		return h
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".phpvhost")
}

// DefaultCertDir is where issued certificates and keys live. This matches
// the directory used by earlier versions of the tool so existing
// certificates keep being reused.
func DefaultCertDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".localhost-ssl")
}

func RegistryPath() string { return filepath.Join(StateDir(), "registry.json") }
func HistoryPath() string  { return filepath.Join(StateDir(), "history.db") }
func SettingsPath() string { return filepath.Join(StateDir(), "config.yaml") }
