// Package config carries the tunable parameters of a conversion run.
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

// Config captures everything the batch pipeline needs for one run.
type Config struct {
	Detail     DetailConfig     `json:"detail" yaml:"detail"`
	Vegetation VegetationConfig `json:"vegetation" yaml:"vegetation"`
	Output     OutputConfig     `json:"output" yaml:"output"`
	Batch      BatchConfig      `json:"batch" yaml:"batch"`
}

// DetailConfig drives the procedural detail synthesizer.
type DetailConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	ScaleFactor int     `json:"scaleFactor" yaml:"scaleFactor"` // 1..10
	Intensity   float64 `json:"intensity" yaml:"intensity"`     // meters, 0..100
	Seed        int     `json:"seed" yaml:"seed"`
	Source      string  `json:"source" yaml:"source"` // value | perlin | simplex
}

// VegetationConfig drives the density estimator.
type VegetationConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Biome   string `json:"biome" yaml:"biome"`
}

// OutputConfig selects the encoder's formats and mapping.
type OutputConfig struct {
	Bits16      bool    `json:"bits16" yaml:"bits16"`
	AlphaNoData bool    `json:"alphaNoData" yaml:"alphaNoData"`
	Raw16       bool    `json:"raw16" yaml:"raw16"`
	Zstd        bool    `json:"zstd" yaml:"zstd"`
	Curve       string  `json:"curve" yaml:"curve"` // linear | log
	Gamma       float64 `json:"gamma" yaml:"gamma"`
	MinHeight   int     `json:"minHeight" yaml:"minHeight"` // -1 = batch auto
	MaxHeight   int     `json:"maxHeight" yaml:"maxHeight"` // -1 = batch auto
	Metadata    string  `json:"metadata" yaml:"metadata"`   // none | json | txt
	Dir         string  `json:"dir" yaml:"dir"`             // output directory, empty = cwd
}

// BatchConfig sizes the worker pools.
type BatchConfig struct {
	Threads    int `json:"threads" yaml:"threads"`       // file-level workers, 1..16
	RowWorkers int `json:"rowWorkers" yaml:"rowWorkers"` // per-file row parallelism, 0 = auto
}

// Load reads configuration from a JSON or YAML file, chosen by extension.
// An empty path returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	return &Config{
		Detail: DetailConfig{
			Enabled:     true,
			ScaleFactor: 3,
			Intensity:   15,
			Seed:        12345,
			Source:      "value",
		},
		Vegetation: VegetationConfig{
			Enabled: false,
			Biome:   "temperate",
		},
		Output: OutputConfig{
			Curve:     "linear",
			Gamma:     1.0,
			MinHeight: -1,
			MaxHeight: -1,
			Metadata:  "none",
		},
		Batch: BatchConfig{
			Threads: 4,
		},
	}
}

func (c *Config) Validate() error {
	if c.Detail.ScaleFactor < 1 || c.Detail.ScaleFactor > 10 {
		return errors.New("detail.scaleFactor must be between 1 and 10")
	}
	if c.Detail.Intensity < 0 || c.Detail.Intensity > 100 {
		return errors.New("detail.intensity must be between 0 and 100")
	}
	switch c.Detail.Source {
	case "", "value", "perlin", "simplex":
	default:
		return fmt.Errorf("detail.source %q must be value, perlin or simplex", c.Detail.Source)
	}
	if c.Batch.Threads < 1 || c.Batch.Threads > 16 {
		return errors.New("batch.threads must be between 1 and 16")
	}
	if c.Batch.RowWorkers < 0 {
		return errors.New("batch.rowWorkers cannot be negative")
	}
	if c.Output.Gamma <= 0.1 || c.Output.Gamma > 10 {
		return errors.New("output.gamma must be between 0.1 and 10.0")
	}
	switch c.Output.Curve {
	case "", "linear", "log":
	default:
		return fmt.Errorf("output.curve %q must be linear or log", c.Output.Curve)
	}
	switch c.Output.Metadata {
	case "", "none", "json", "txt":
	default:
		return fmt.Errorf("output.metadata %q must be none, json or txt", c.Output.Metadata)
	}
	if c.Output.MinHeight != -1 && c.Output.MaxHeight != -1 && c.Output.MaxHeight <= c.Output.MinHeight {
		return errors.New("output.maxHeight must be greater than output.minHeight")
	}
	return nil
}
