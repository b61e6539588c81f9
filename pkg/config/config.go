// Package config loads flowboard's YAML configuration. ${VAR} references are
// expanded from the environment before parsing, and targets implementing
// Validator are checked after.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is implemented by configs that can check themselves after load.
type Validator interface {
	Validate() error
}

// Load reads filename into target.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read flowboard config %s: %w", filename, err)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), target); err != nil {
		return fmt.Errorf("parse flowboard config %s: %w", filename, err)
	}

	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("invalid flowboard config %s: %w", filename, err)
		}
	}
	return nil
}

// LoadWithDefaults loads filename, or defaultFile when filename does not
// exist. It returns the path that was actually read so callers can watch it.
func LoadWithDefaults[T any](filename, defaultFile string, target *T) (string, error) {
	path := filename
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		if defaultFile == "" || defaultFile == filename {
			return "", fmt.Errorf("flowboard config not found: %s", filename)
		}
		path = defaultFile
	}
	if err := Load(path, target); err != nil {
		return "", err
	}
	return path, nil
}
