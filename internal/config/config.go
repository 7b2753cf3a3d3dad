// Package config loads cpscan configuration from .cpscan/config.yml with
// CPSCAN_* environment variable overrides.
//
// Priority, highest first:
//  1. Environment variables (CPSCAN_SCAN_MAX_NESTING_DEPTH, ...)
//  2. Project config (.cpscan/config.yml or .cpscan/config.yaml)
//  3. Built-in defaults
//
// List values such as scan.classpath accept comma separated environment
// values.
package config

import "github.com/mvp-joe/classpath-scanner/internal/classpath"

// Config represents the complete cpscan configuration.
type Config struct {
	Scan    ScanConfig    `yaml:"scan" mapstructure:"scan"`
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Watch   WatchConfig   `yaml:"watch" mapstructure:"watch"`
}

// ScanConfig controls element resolution and archive traversal.
type ScanConfig struct {
	Classpath       []string `yaml:"classpath" mapstructure:"classpath"`                 // search roots offered every prefix
	Prefixes        []string `yaml:"prefixes" mapstructure:"prefixes"`                   // default prefixes when none are given
	MaxNestingDepth int      `yaml:"max_nesting_depth" mapstructure:"max_nesting_depth"` // 0 disables the limit
}

// CatalogConfig configures the SQLite artifact catalog.
type CatalogConfig struct {
	Path      string `yaml:"path" mapstructure:"path"`             // empty disables recording
	KeepScans int    `yaml:"keep_scans" mapstructure:"keep_scans"` // 0 keeps every scan
}

// WatchConfig configures rescans on filesystem changes.
type WatchConfig struct {
	DebounceMs int      `yaml:"debounce_ms" mapstructure:"debounce_ms"`
	Patterns   []string `yaml:"patterns" mapstructure:"patterns"` // slash separated globs relative to a watched root
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			Classpath:       []string{},
			Prefixes:        []string{},
			MaxNestingDepth: classpath.DefaultMaxNestingDepth,
		},
		Catalog: CatalogConfig{
			Path:      "",
			KeepScans: 20,
		},
		Watch: WatchConfig{
			DebounceMs: 500,
			Patterns: []string{
				"**/*.class",
				"**/*.jar",
				"**/*.zip",
			},
		},
	}
}
