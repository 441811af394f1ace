// Copyright (C) 2025 Adam Hlaváček
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the httpdb server configuration.
//
// The config lives in a YAML file (default ~/.httpdb/httpdb.yaml, created
// with defaults on first run). Flags and the X_PATH_APP_DB environment
// variable override the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the httpdb server configuration.
type Config struct {
	// Listen is the HTTP listen address, e.g. ":8080".
	Listen string `yaml:"listen" validate:"required"`

	Database Database `yaml:"database"`
	Log      Log      `yaml:"log"`
}

// Database configures the embedded item store.
type Database struct {
	// Path is the BadgerDB directory. Overridable with X_PATH_APP_DB.
	Path string `yaml:"path" validate:"required"`
}

// Log configures structured logging.
type Log struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`

	// Dir enables file logging when non-empty. Supports ~ expansion.
	Dir string `yaml:"dir"`

	// JSON switches stderr output to JSON format.
	JSON bool `yaml:"json"`
}

var validate = validator.New()

// Default returns the configuration written on first run.
func Default() Config {
	return Config{
		Listen: ":8080",
		Database: Database{
			Path: "~/.httpdb/db",
		},
		Log: Log{
			Level: "info",
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".httpdb", "httpdb.yaml"), nil
}

// Load reads the config from path, creating it with defaults when absent.
//
// Outputs:
//
//	Config - The loaded configuration with env overrides applied.
//	error - Non-nil if the file cannot be read, parsed or validated.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("First run detected, creating the config at %s\n", path)
		if err := writeDefault(path); err != nil {
			return Config{}, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse the config file: %w", err)
	}

	// The original honors X_PATH_APP_DB for the database location.
	if dbPath := os.Getenv("X_PATH_APP_DB"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	if err := validate.Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0640); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}
