// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Operator OperatorConfig `toml:"operator"`
	Playback PlaybackConfig `toml:"playback"`
}

// OperatorConfig maps the live operating settings.
type OperatorConfig struct {
	Station *string `toml:"station"`
	Wire    *int    `toml:"wire"`
	Server  *string `toml:"server"`
	WPM     *int    `toml:"wpm"`
	Sound   *bool   `toml:"sound"`
	Local   *bool   `toml:"local"`
	Remote  *bool   `toml:"remote"`
}

// PlaybackConfig maps playback settings.
type PlaybackConfig struct {
	MaxSilence *int `toml:"max-silence"`
	Speed      *int `toml:"speed"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
