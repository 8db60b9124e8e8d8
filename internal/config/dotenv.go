package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// DotEnvPath returns the absolute path to tailor's dotenv file (~/.tailor/.env).
func DotEnvPath() (string, error) {
	tailorDir, err := TailorDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(tailorDir, ".env"), nil
}

// LoadDotEnv reads ~/.tailor/.env and returns its key/value pairs.
// A missing file is not an error; it yields an empty map.
func LoadDotEnv() (map[string]string, error) {
	p, err := DotEnvPath()
	if err != nil {
		return nil, err
	}
	env, err := godotenv.Read(p)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("cannot read dotenv file %s: %w", p, err)
	}
	return env, nil
}

// GetConfigValue returns the effective value for key, using process environment
// variables first and falling back to ~/.tailor/.env.
func GetConfigValue(key string) (string, error) {
	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	dotenv, err := LoadDotEnv()
	if err != nil {
		return "", err
	}
	return dotenv[key], nil
}

// EnsureDotEnvTemplate creates ~/.tailor/.env if it does not already exist.
//
// The template contains configuration keys with empty values so users can fill
// them in when they want to use embeddings-powered retrieval.
func EnsureDotEnvTemplate() error {
	p, err := DotEnvPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(p); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("cannot stat dotenv file %s: %w", p, err)
	}

	body := "" +
		"TAILOR_EMBEDDINGS_PROVIDER=\n" +
		"TAILOR_EMBEDDINGS_MODEL=\n" +
		"TAILOR_EMBEDDINGS_API_KEY=\n" +
		"TAILOR_EMBEDDINGS_BASE_URL=\n"

	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		return fmt.Errorf("cannot write dotenv template %s: %w", p, err)
	}
	return nil
}
