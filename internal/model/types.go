// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// OutputFormat selects which chart renderers run.
type OutputFormat string

const (
	FormatPNG  OutputFormat = "png"
	FormatHTML OutputFormat = "html"
	FormatBoth OutputFormat = "both"
)

// ParseOutputFormat accepts png, html or both, case-insensitively.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPNG, FormatHTML, FormatBoth:
		return f, nil
	case "":
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want png, html or both)", s)
	}
}

// PNG reports whether PNG files are written.
func (f OutputFormat) PNG() bool { return f == FormatPNG || f == FormatBoth }

// HTML reports whether the HTML page is written.
func (f OutputFormat) HTML() bool { return f == FormatHTML || f == FormatBoth }

// RenderConfig defines chart output settings after flags and file are merged.
type RenderConfig struct {
	Timing   string
	TrimLow  float64
	TrimHigh float64
	Format   OutputFormat
	Width    int
	Height   int
	// OutDir is empty when it should follow the input file name.
	OutDir string
}

// DefaultRenderConfig returns the built-in defaults.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Timing:   "real",
		TrimLow:  0,
		TrimHigh: 0.95,
		Format:   FormatPNG,
		Width:    1024,
		Height:   600,
	}
}

// Validate checks the trim band, sizes and format.
func (c RenderConfig) Validate() error {
	if c.TrimLow < 0 || c.TrimHigh > 1 || c.TrimLow >= c.TrimHigh {
		return fmt.Errorf("trim band must satisfy 0 <= trim-low < trim-high <= 1, got [%g, %g]", c.TrimLow, c.TrimHigh)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("width and height must be positive, got %dx%d", c.Width, c.Height)
	}
	if _, err := ParseOutputFormat(string(c.Format)); err != nil {
		return err
	}
	return nil
}

// ImportSummary describes one archived import.
type ImportSummary struct {
	ID         int64
	Source     string
	Game       string
	Category   string
	Timing     string
	ImportedAt time.Time
	Attempts   int
	Completed  int
}
