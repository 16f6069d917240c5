// Package config handles importer configuration loading and management.
package config

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/Faultbox/midgard-gltf/pkg/scene"
)

// Config holds all importer settings.
type Config struct {
	Import  ImportConfig  `yaml:"import"`
	Logging LoggingConfig `yaml:"logging"`
}

// ImportConfig holds decoding settings.
type ImportConfig struct {
	Mode            string          `yaml:"mode"`    // "sync" or "async"
	Workers         int             `yaml:"workers"` // 0 = GOMAXPROCS
	GenerateNormals bool            `yaml:"generate_normals"`
	SearchPaths     []string        `yaml:"search_paths"` // Extra roots for external files
	Shaders         scene.ShaderSet `yaml:"shaders"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Import: ImportConfig{
			Mode:    "sync",
			Workers: 0,
			Shaders: scene.DefaultShaderSet(),
		},
		Logging: LoggingConfig{
			Level:      "info",
			LogFile:    "",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var err error
	switch c.Import.Mode {
	case "", "sync", "async":
	default:
		err = multierr.Append(err, fmt.Errorf("import.mode: unknown mode %q", c.Import.Mode))
	}
	if c.Import.Workers < 0 {
		err = multierr.Append(err, fmt.Errorf("import.workers: must not be negative, got %d", c.Import.Workers))
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		err = multierr.Append(err, fmt.Errorf("logging: rotation limits must not be negative"))
	}
	return err
}
