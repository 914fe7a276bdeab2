package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test engine defaults
	if cfg.Engine.Workers <= 0 {
		t.Errorf("expected positive worker count, got %d", cfg.Engine.Workers)
	}
	if cfg.Engine.DefaultTimeout != 60*time.Second {
		t.Errorf("expected default timeout 60s, got %v", cfg.Engine.DefaultTimeout)
	}
	if cfg.Engine.MaxTimeout != 10*time.Minute {
		t.Errorf("expected max timeout 10m, got %v", cfg.Engine.MaxTimeout)
	}

	// Test preview defaults
	if cfg.Preview.MaxResolution != 48 {
		t.Errorf("expected preview resolution cap 48, got %d", cfg.Preview.MaxResolution)
	}
	if cfg.Preview.MaxLevels != 3 {
		t.Errorf("expected preview level cap 3, got %d", cfg.Preview.MaxLevels)
	}

	// Test export defaults
	if cfg.Export.SolidName != "scaffold" {
		t.Errorf("expected solid name 'scaffold', got %s", cfg.Export.SolidName)
	}
	if cfg.Export.ASCII {
		t.Error("expected binary STL export by default")
	}

	// Test validation defaults
	if cfg.Validate.MinWallMM != 0.2 {
		t.Errorf("expected min wall 0.2, got %f", cfg.Validate.MinWallMM)
	}
	if cfg.Validate.OverhangDeg != 45 {
		t.Errorf("expected overhang limit 45, got %f", cfg.Validate.OverhangDeg)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
engine:
  workers: 4
  default_timeout: 30s
  max_timeout: 5m

preview:
  max_resolution: 32
  max_levels: 2
  max_segments: 8

export:
  solid_name: "femur_plug"
  ascii: true

validate:
  min_wall_mm: 0.4
  overhang_deg: 50
  sample_limit: 500

logging:
  level: "debug"
  log_file: "engine.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Load config
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify values were loaded
	if cfg.Engine.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Engine.Workers)
	}
	if cfg.Engine.DefaultTimeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %v", cfg.Engine.DefaultTimeout)
	}
	if cfg.Engine.MaxTimeout != 5*time.Minute {
		t.Errorf("expected max timeout 5m, got %v", cfg.Engine.MaxTimeout)
	}

	if cfg.Preview.MaxResolution != 32 {
		t.Errorf("expected preview resolution cap 32, got %d", cfg.Preview.MaxResolution)
	}
	if cfg.Preview.MaxSegments != 8 {
		t.Errorf("expected preview segment cap 8, got %d", cfg.Preview.MaxSegments)
	}

	if cfg.Export.SolidName != "femur_plug" {
		t.Errorf("expected solid name 'femur_plug', got %s", cfg.Export.SolidName)
	}
	if !cfg.Export.ASCII {
		t.Error("expected ascii export to be true")
	}

	if cfg.Validate.MinWallMM != 0.4 {
		t.Errorf("expected min wall 0.4, got %f", cfg.Validate.MinWallMM)
	}
	if cfg.Validate.SampleLimit != 500 {
		t.Errorf("expected sample limit 500, got %d", cfg.Validate.SampleLimit)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "engine.log" {
		t.Errorf("expected log file 'engine.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	// Create temporary config file with invalid YAML
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
engine:
  workers: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Try to load - should error
	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Just verify it returns a non-empty path
	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}

	// Verify path is absolute
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	// Save current directory
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	// Create temp directory and change to it
	tmpDir := t.TempDir()
	os.Chdir(tmpDir)

	// No config file exists - should return empty
	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	// Create config.yaml in current directory
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("engine:\n  workers: 2\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	// Should find it now
	path = findConfigFile()
	if path == "" {
		t.Error("expected to find config.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config) error
		teardown func()
	}{
		{
			name: "debug flag",
			setup: func() {
				*flagDebug = true
			},
			verify: func(cfg *Config) error {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
				return nil
			},
			teardown: func() {
				*flagDebug = false
			},
		},
		{
			name: "workers flag",
			setup: func() {
				*flagWorkers = 3
			},
			verify: func(cfg *Config) error {
				if cfg.Engine.Workers != 3 {
					t.Errorf("expected 3 workers, got %d", cfg.Engine.Workers)
				}
				return nil
			},
			teardown: func() {
				*flagWorkers = 0
			},
		},
		{
			name: "timeout flag",
			setup: func() {
				*flagTimeout = 90 * time.Second
			},
			verify: func(cfg *Config) error {
				if cfg.Engine.DefaultTimeout != 90*time.Second {
					t.Errorf("expected timeout 90s, got %v", cfg.Engine.DefaultTimeout)
				}
				return nil
			},
			teardown: func() {
				*flagTimeout = 0
			},
		},
		{
			name: "ascii flag",
			setup: func() {
				*flagASCII = true
			},
			verify: func(cfg *Config) error {
				if !cfg.Export.ASCII {
					t.Error("expected ascii export to be enabled")
				}
				return nil
			},
			teardown: func() {
				*flagASCII = false
			},
		},
		{
			name: "logfile flag",
			setup: func() {
				*flagLogFile = "run.log"
			},
			verify: func(cfg *Config) error {
				if cfg.Logging.LogFile != "run.log" {
					t.Errorf("expected log file 'run.log', got %s", cfg.Logging.LogFile)
				}
				return nil
			},
			teardown: func() {
				*flagLogFile = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			tt.setup()
			defer tt.teardown()

			// Apply flags to default config
			cfg := Default()
			applyFlags(cfg)

			// Verify
			tt.verify(cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
engine:
  workers: 2
  default_timeout: 45s
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Set flag to override config file
	*flagConfig = configPath
	*flagWorkers = 8
	defer func() {
		*flagConfig = ""
		*flagWorkers = 0
	}()

	// Load config
	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Worker count should be from flag (8), not file (2)
	if cfg.Engine.Workers != 8 {
		t.Errorf("expected 8 workers from flag, got %d", cfg.Engine.Workers)
	}

	// Timeout should be from file (45s) since no flag override
	if cfg.Engine.DefaultTimeout != 45*time.Second {
		t.Errorf("expected timeout 45s from file, got %v", cfg.Engine.DefaultTimeout)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := Default()
	cfg.Engine.Workers = 6
	cfg.Export.SolidName = "femur_plug"
	cfg.Validate.MinWallMM = 0.35

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	// Load it back and verify the values survived
	loaded := Default()
	if err := loadFromFile(loaded, configPath); err != nil {
		t.Fatalf("failed to reload saved config: %v", err)
	}
	if loaded.Engine.Workers != 6 {
		t.Errorf("expected 6 workers after round trip, got %d", loaded.Engine.Workers)
	}
	if loaded.Export.SolidName != "femur_plug" {
		t.Errorf("expected solid name 'femur_plug', got %s", loaded.Export.SolidName)
	}
	if loaded.Validate.MinWallMM != 0.35 {
		t.Errorf("expected min wall 0.35, got %f", loaded.Validate.MinWallMM)
	}
}
