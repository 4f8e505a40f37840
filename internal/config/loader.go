package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/atlanticdynamic/scriptgate/internal/interpolation"
	"github.com/pelletier/go-toml/v2"
)

// NewConfig loads and validates configuration from a TOML file
func NewConfig(filePath string) (*Config, error) {
	if ext := filepath.Ext(filePath); ext != ".toml" {
		return nil, fmt.Errorf("%w: %s, only .toml is supported", ErrUnsupportedExtension, ext)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToLoadConfig, err)
	}
	return NewConfigFromBytes(data)
}

// NewConfigFromReader loads and validates configuration from TOML data
func NewConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToLoadConfig, err)
	}
	return NewConfigFromBytes(data)
}

// NewConfigFromBytes loads and validates configuration from TOML bytes.
// Environment references in tagged fields are expanded before validation.
func NewConfigFromBytes(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToLoadConfig, err)
	}

	if cfg.Version == "" {
		cfg.Version = VersionLatest
	}
	if err := interpolation.InterpolateStruct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToLoadConfig, err)
	}
	for i := range cfg.Schedules {
		input, err := interpolation.ExpandValue(cfg.Schedules[i].Input)
		if err != nil {
			return nil, fmt.Errorf("%w: schedule %q input: %w", ErrFailedToLoadConfig, cfg.Schedules[i].Name, err)
		}
		cfg.Schedules[i].Input = input
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToValidateConfig, err)
	}
	return cfg, nil
}
