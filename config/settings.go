package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// LoadFile decodes the TOML file at path over cfg. Keys absent from the file
// keep their current values.
func LoadFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		Logger("config").Warn("unknown keys in config file", "path", path, "keys", fmt.Sprint(undecoded))
	}

	return nil
}

// SaveFile encodes cfg as TOML at path.
func SaveFile(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := EnsureDir(dir); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	// 0600: the file may contain API keys
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// WriteTemplate writes the commented default configuration to path. An
// existing file is left untouched unless force is set.
func WriteTemplate(path string, force bool) error {
	if FileExists(path) && !force {
		return fmt.Errorf("config file %s already exists", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := EnsureDir(dir); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(GenerateConfigTemplate()), 0600); err != nil {
		return fmt.Errorf("failed to write config template: %w", err)
	}

	return nil
}
