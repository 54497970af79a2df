package config

import (
	"fmt"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnvFiles loads dir/.env without overriding the process environment and
// then dir/.env.local with override, so .env.local wins over .env. Missing
// files are skipped.
func LoadEnvFiles(dir string) error {
	if dir == "" {
		dir = "."
	}

	envFile := filepath.Join(dir, ".env")
	if FileExists(envFile) {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	envLocal := filepath.Join(dir, ".env.local")
	if FileExists(envLocal) {
		if err := godotenv.Overload(envLocal); err != nil {
			return fmt.Errorf("failed to load %s: %w", envLocal, err)
		}
	}

	return nil
}
