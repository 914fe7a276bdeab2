// Package config handles engine configuration loading and management.
package config

import (
	"runtime"
	"time"

	"github.com/rsiegemit/MorphoStruct-sub001/pkg/scaffold"
)

// Config holds all engine settings.
type Config struct {
	Engine   EngineConfig         `yaml:"engine"`
	Preview  scaffold.PreviewCaps `yaml:"preview"`
	Export   ExportConfig         `yaml:"export"`
	Validate ValidateConfig       `yaml:"validate"`
	Logging  LoggingConfig        `yaml:"logging"`
}

// EngineConfig holds generation pipeline settings.
type EngineConfig struct {
	Workers        int           `yaml:"workers"`         // concurrent generation jobs, 0 = GOMAXPROCS
	DefaultTimeout time.Duration `yaml:"default_timeout"` // applied when a request carries none
	MaxTimeout     time.Duration `yaml:"max_timeout"`     // hard ceiling on per-request timeouts
}

// ExportConfig holds mesh export settings.
type ExportConfig struct {
	SolidName string `yaml:"solid_name"` // name written into ASCII STL headers
	ASCII     bool   `yaml:"ascii"`      // emit ASCII instead of binary STL
}

// ValidateConfig holds printability check settings.
type ValidateConfig struct {
	MinWallMM   float64 `yaml:"min_wall_mm"`
	OverhangDeg float64 `yaml:"overhang_deg"`
	SampleLimit int     `yaml:"sample_limit"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Workers:        runtime.GOMAXPROCS(0),
			DefaultTimeout: 60 * time.Second,
			MaxTimeout:     10 * time.Minute,
		},
		Preview: scaffold.DefaultPreviewCaps(),
		Export: ExportConfig{
			SolidName: "scaffold",
			ASCII:     false,
		},
		Validate: ValidateConfig{
			MinWallMM:   0.2,
			OverhangDeg: 45,
			SampleLimit: 2000,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
