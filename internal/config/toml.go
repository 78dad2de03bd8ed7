// Package config provides configuration helpers and file parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/gazereport/internal/aoi"
)

// Built-in defaults used when neither flags nor the config file set a value.
const (
	DefaultInputDir  = "data"
	DefaultOutputDir = "reports"
	DefaultVariant   = "basic"
	DefaultTask      = "Airbag Housing Assembly"
)

// DefaultExtensions lists the input file extensions picked up by a run.
var DefaultExtensions = []string{".csv", ".tsv"}

// FileConfig represents the configuration file.
type FileConfig struct {
	Paths    PathsConfig    `toml:"paths" yaml:"paths"`
	Analysis AnalysisConfig `toml:"analysis" yaml:"analysis"`
	Export   ExportConfig   `toml:"export" yaml:"export"`
	AOIs     []AOIConfig    `toml:"aoi" yaml:"aoi"`
}

// PathsConfig maps directory and file locations.
type PathsConfig struct {
	Input     *string `toml:"input" yaml:"input"`
	Output    *string `toml:"output" yaml:"output"`
	HistoryDB *string `toml:"history_db" yaml:"history_db"`
	LogFile   *string `toml:"log_file" yaml:"log_file"`
}

// AnalysisConfig maps metric pipeline settings.
type AnalysisConfig struct {
	Variant    *string  `toml:"variant" yaml:"variant"`
	Task       *string  `toml:"task" yaml:"task"`
	Extensions []string `toml:"extensions" yaml:"extensions"`
	FailFast   *bool    `toml:"fail_fast" yaml:"fail_fast"`
}

// ExportConfig maps optional side outputs.
type ExportConfig struct {
	PromTextfile *string `toml:"prom_textfile" yaml:"prom_textfile"`
	Charts       *bool   `toml:"charts" yaml:"charts"`
}

// AOIConfig is one area of interest entry.
type AOIConfig struct {
	Name string  `toml:"name" yaml:"name"`
	X1   float64 `toml:"x1" yaml:"x1"`
	Y1   float64 `toml:"y1" yaml:"y1"`
	X2   float64 `toml:"x2" yaml:"x2"`
	Y2   float64 `toml:"y2" yaml:"y2"`
}

// LoadConfig reads a config from the given path. Missing file is not an error.
// Files ending in .yaml or .yml are decoded as YAML, anything else as TOML.
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
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return FileConfig{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
		}
	default:
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
		}
	}
	return cfg, nil
}

// Registry returns the configured AOI registry, or the built-in one when the
// file lists no regions.
func (c FileConfig) Registry() (aoi.Registry, error) {
	if len(c.AOIs) == 0 {
		return aoi.DefaultRegistry(), nil
	}
	reg := make(aoi.Registry, 0, len(c.AOIs))
	for _, entry := range c.AOIs {
		reg = append(reg, aoi.AOI{
			Name:   strings.TrimSpace(entry.Name),
			Bounds: aoi.Rect{X1: entry.X1, Y1: entry.Y1, X2: entry.X2, Y2: entry.Y2},
		})
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid aoi registry: %w", err)
	}
	return reg, nil
}
