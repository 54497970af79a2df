package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const DefaultConfigFile = "pixie.toml"

// ResolveConfigPath picks the TOML file to load: the explicit path, then
// PIXIE_CONFIG, then ./pixie.toml when present. Returns "" when there is none.
func ResolveConfigPath(explicit string) string {
	if explicit != "" {
		return ExpandPath(explicit)
	}
	if env := os.Getenv("PIXIE_CONFIG"); env != "" {
		return ExpandPath(env)
	}
	if FileExists(DefaultConfigFile) {
		return DefaultConfigFile
	}
	return ""
}

// GetHomeDir returns the user's home directory across platforms
// Windows: %USERPROFILE% (C:\Users\username)
// Linux/Mac: $HOME (/home/username)
func GetHomeDir() string {
	if runtime.GOOS == "windows" {
		home := os.Getenv("USERPROFILE")
		if home == "" {
			home = os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
		}
		if home == "" {
			home = "C:\\"
		}
		return home
	}
	home := os.Getenv("HOME")
	if home == "" {
		home = "/"
	}
	return home
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" || strings.HasPrefix(path, "file:") || path == ":memory:" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		path = filepath.Join(GetHomeDir(), path[2:])
	}

	path = os.ExpandEnv(path)

	return filepath.Clean(path)
}

// EnsureDir creates a directory if it doesn't exist (0700 - user-only access)
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0700)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
