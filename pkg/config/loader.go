package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound     = errors.New("configuration file not found")
	ErrEmptyFile        = errors.New("configuration file is empty")
	ErrInvalidExtension = errors.New("invalid file extension")
	ErrInvalidJSON      = errors.New("invalid JSON syntax")
	ErrInvalidYAML      = errors.New("invalid YAML syntax")
)

// Load reads a Config from a JSON or YAML file. The format is selected
// by file extension: .json, .yaml, or .yml; anything else is rejected.
// The document is checked against the embedded JSON Schema and then
// semantically validated before being returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidExtension, path)
	}
}

// ParseJSON parses JSON bytes into a validated Config.
func ParseJSON(data []byte) (*Config, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if err := validateSchema(doc); err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return validated(&cfg)
}

// ParseYAML parses YAML bytes into a validated Config.
func ParseYAML(data []byte) (*Config, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	jsonDoc, err := toJSONValue(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	if err := validateSchema(jsonDoc); err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return validated(&cfg)
}

func validated(cfg *Config) (*Config, error) {
	if result := cfg.Validate(); !result.IsValid() {
		return nil, fmt.Errorf("validation failed:\n%s", result.Error())
	}
	return cfg, nil
}

// toJSONValue round-trips a YAML-decoded value through encoding/json so
// the schema validator sees the value types it expects (float64 numbers,
// string-keyed maps).
func toJSONValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
