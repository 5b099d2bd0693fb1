// Package paths resolves the checklist configuration and data directories.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName is the directory name used under platform config locations.
const AppName = "checklist"

// DefaultDataDirName is the CWD-relative data directory used when nothing
// else is configured.
const DefaultDataDirName = ".checklist"

// ConfigFileName is the configuration file inside the config directory.
const ConfigFileName = "config.yaml"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "CHECKLIST_CONFIG_DIR"
	EnvDataDir   = "CHECKLIST_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/checklist (fallback ~/.config/checklist)
// macOS:   ~/Library/Application Support/checklist
// Windows: %APPDATA%/checklist
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", AppName), nil
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > CHECKLIST_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > configYAMLValue > CHECKLIST_DATA_DIR env > $(CWD)/.checklist.
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ConfigFile returns the config.yaml path inside configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}
