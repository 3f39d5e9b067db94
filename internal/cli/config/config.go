// Package config loads the kiln configuration from kiln.yml and the
// environment.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Sloppiness is a set of caller-requested relaxations that trade correctness
// guarantees for higher hit rates.
type Sloppiness uint32

const (
	// SloppyTimeMacros disables temporal-macro detection: sources using
	// __DATE__, __TIME__ or __TIMESTAMP__ are hashed as if they did not.
	SloppyTimeMacros Sloppiness = 1 << iota

	// SloppyPCHDefines ignores macro definitions when hashing precompiled
	// headers.
	SloppyPCHDefines

	// SloppyFileStatMatches accepts a stat match (size + mtime) without
	// rehashing file content.
	SloppyFileStatMatches
)

var sloppinessNames = map[string]Sloppiness{
	"time_macros":       SloppyTimeMacros,
	"pch_defines":       SloppyPCHDefines,
	"file_stat_matches": SloppyFileStatMatches,
}

// ParseSloppiness converts a comma-separated relaxation list to a flag set.
// Unknown names are an error so that typos do not silently relax caching.
func ParseSloppiness(s string) (Sloppiness, error) {
	var flags Sloppiness
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		flag, ok := sloppinessNames[name]
		if !ok {
			return 0, fmt.Errorf("unknown sloppiness %q", name)
		}
		flags |= flag
	}
	return flags, nil
}

// Config represents the kiln configuration.
type Config struct {
	CacheDir   string `mapstructure:"cache_dir"`
	Sloppiness string `mapstructure:"sloppiness"`
	ScanPath   string `mapstructure:"scan_path"`
	Verbose    bool   `mapstructure:"verbose"`

	sloppy Sloppiness
}

// Sloppy returns the parsed sloppiness flag set.
func (c *Config) Sloppy() Sloppiness { return c.sloppy }

// Load loads the configuration from kiln.yml or kiln.yaml, falling back to
// defaults when no config file exists.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("cache_dir", ".kiln")
	v.SetDefault("sloppiness", "")
	v.SetDefault("scan_path", "auto")
	v.SetDefault("verbose", false)

	v.SetConfigName("kiln")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("kiln")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validateConfig(c *Config) error {
	sloppy, err := ParseSloppiness(c.Sloppiness)
	if err != nil {
		return err
	}
	c.sloppy = sloppy

	switch c.ScanPath {
	case "auto", "block", "scalar":
	default:
		return fmt.Errorf("invalid scan_path %q (want auto, block or scalar)", c.ScanPath)
	}
	return nil
}
