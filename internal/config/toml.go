// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/splitstats/internal/model"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Render RenderConfig `toml:"render"`
	Export ExportConfig `toml:"export"`
}

// RenderConfig maps chart output settings.
type RenderConfig struct {
	TrimLow  *float64 `toml:"trim-low"`
	TrimHigh *float64 `toml:"trim-high"`
	Timing   *string  `toml:"timing"`
	Format   *string  `toml:"format"`
	Width    *int     `toml:"width"`
	Height   *int     `toml:"height"`
	OutDir   *string  `toml:"out-dir"`
}

// ExportConfig maps archive settings.
type ExportConfig struct {
	DB *string `toml:"db"`
}

// Template is written by `splitstats config` when no file exists yet.
const Template = `# splitstats configuration

[render]
# Quantile band kept when trimming outliers.
# trim-low = 0.0
# trim-high = 0.95
# real or game
# timing = "real"
# png, html or both
# format = "png"
# width = 1024
# height = 600
# Defaults to the input file name without its extension.
# out-dir = ""

[export]
# db = "~/.local/share/splitstats/splitstats.db"
`

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
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// Apply copies every value set in the file onto base.
func (c RenderConfig) Apply(base model.RenderConfig) (model.RenderConfig, error) {
	if c.TrimLow != nil {
		base.TrimLow = *c.TrimLow
	}
	if c.TrimHigh != nil {
		base.TrimHigh = *c.TrimHigh
	}
	if c.Timing != nil {
		base.Timing = *c.Timing
	}
	if c.Format != nil {
		f, err := model.ParseOutputFormat(*c.Format)
		if err != nil {
			return base, err
		}
		base.Format = f
	}
	if c.Width != nil {
		base.Width = *c.Width
	}
	if c.Height != nil {
		base.Height = *c.Height
	}
	if c.OutDir != nil {
		base.OutDir = *c.OutDir
	}
	return base, nil
}

// EnsureFile writes Template to path unless a file already exists there.
func EnsureFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(Template), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
