package config

import (
	"flag"
	"time"
)

var (
	flagConfig  = flag.String("config", "", "Path to config file")
	flagDebug   = flag.Bool("debug", false, "Enable debug logging")
	flagWorkers = flag.Int("workers", 0, "Concurrent generation jobs")
	flagTimeout = flag.Duration("timeout", 0, "Default per-request timeout")
	flagASCII   = flag.Bool("ascii", false, "Export ASCII STL instead of binary")
	flagLogFile = flag.String("logfile", "", "Write logs to this file")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagWorkers > 0 {
		cfg.Engine.Workers = *flagWorkers
	}
	if *flagTimeout > time.Duration(0) {
		cfg.Engine.DefaultTimeout = *flagTimeout
	}
	if *flagASCII {
		cfg.Export.ASCII = true
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
}
