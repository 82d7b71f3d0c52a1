// Package paths resolves the configuration and output directory locations.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user configuration directory.
const AppName = "squidnote-unpack"

// ConfigFileName is the configuration file inside the config directory.
const ConfigFileName = "config.yaml"

// EnvConfigDir overrides the configuration directory.
const EnvConfigDir = "SQUIDNOTE_CONFIG_DIR"

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	workingDir    func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	workingDir:    os.Getwd,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/squidnote-unpack (fallback ~/.config/squidnote-unpack)
// macOS:   ~/Library/Application Support/squidnote-unpack
// Windows: %APPDATA%/squidnote-unpack
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", AppName), nil
	default:
		// ~/Library/Application Support on macOS, %APPDATA% on Windows.
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > SQUIDNOTE_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ConfigFile returns the path of config.yaml inside dir.
func ConfigFile(dir string) string {
	return filepath.Join(dir, ConfigFileName)
}

// ResolveOutputDir returns dir as an absolute path. An empty dir means the
// working directory, where the containers are written by default.
func ResolveOutputDir(dir string) (string, error) {
	if dir == "" {
		return platformDir.workingDir()
	}
	return filepath.Abs(dir)
}
