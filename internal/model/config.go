package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// ErrInvalidConfig indicates a configuration that cannot be run.
// It is a programmer error and is reported before any essay is processed.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete spaneval configuration
type Config struct {
	Parse       ParseConfig       `yaml:"parse" mapstructure:"parse" json:"parse"`
	Locate      LocateConfig      `yaml:"locate" mapstructure:"locate" json:"locate"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency" json:"concurrency"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache" json:"cache"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output" json:"output"`
}

// ParseConfig selects the annotation grammar of the model output
type ParseConfig struct {
	Grammar         string `yaml:"grammar" mapstructure:"grammar" json:"grammar"`                            // bracket, tag, dict
	Duplicates      string `yaml:"duplicates" mapstructure:"duplicates" json:"duplicates"`                   // keep-last, keep-first, keep-all
	NormalizeOutput bool   `yaml:"normalize_output" mapstructure:"normalize_output" json:"normalize_output"` // fold quotes and nbsp in spans
}

// LocateConfig tunes span localization
type LocateConfig struct {
	FuzzyFactor     int `yaml:"fuzzy_factor" mapstructure:"fuzzy_factor" json:"fuzzy_factor"`             // characters per allowed edit
	RepairTolerance int `yaml:"repair_tolerance" mapstructure:"repair_tolerance" json:"repair_tolerance"` // ground truth start offset slack
}

// ConcurrencyConfig controls essay fan-out
type ConcurrencyConfig struct {
	Workers       int `yaml:"workers" mapstructure:"workers" json:"workers"`
	PartitionSize int `yaml:"partition_size" mapstructure:"partition_size" json:"partition_size"` // 0 processes all essays as one partition
}

// CacheConfig controls the span location cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir" json:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl" json:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl" json:"disk_ttl"`
}

// OutputConfig controls what is written at the end of a run
type OutputConfig struct {
	Dir     string   `yaml:"dir" mapstructure:"dir" json:"dir"`
	Formats []string `yaml:"formats" mapstructure:"formats" json:"formats"` // json, md, csv
	Verbose bool     `yaml:"verbose" mapstructure:"verbose" json:"verbose"`
}

// DefaultConfig returns the defaults used by the scoring protocol
func DefaultConfig() *Config {
	cacheDir := filepath.Join(os.TempDir(), "spaneval-cache")
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".spaneval", "cache")
	}

	return &Config{
		Parse: ParseConfig{
			Grammar:         "tag",
			Duplicates:      "keep-last",
			NormalizeOutput: false,
		},
		Locate: LocateConfig{
			FuzzyFactor:     7,
			RepairTolerance: 25,
		},
		Concurrency: ConcurrencyConfig{
			Workers:       runtime.NumCPU(),
			PartitionSize: 0,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       cacheDir,
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Output: OutputConfig{
			Dir:     "./spaneval-results",
			Formats: []string{"json", "md", "csv"},
		},
	}
}

// Validate reports the first setting that cannot be run
func (c *Config) Validate() error {
	switch c.Parse.Grammar {
	case "bracket", "tag", "dict":
	default:
		return fmt.Errorf("%w: unknown grammar %q (supported: bracket, tag, dict)", ErrInvalidConfig, c.Parse.Grammar)
	}

	switch c.Parse.Duplicates {
	case "keep-last", "keep-first", "keep-all":
	default:
		return fmt.Errorf("%w: unknown duplicate policy %q (supported: keep-last, keep-first, keep-all)", ErrInvalidConfig, c.Parse.Duplicates)
	}

	if c.Locate.FuzzyFactor <= 0 {
		return fmt.Errorf("%w: fuzzy_factor must be positive, got %d", ErrInvalidConfig, c.Locate.FuzzyFactor)
	}
	if c.Locate.RepairTolerance < 0 {
		return fmt.Errorf("%w: repair_tolerance must not be negative, got %d", ErrInvalidConfig, c.Locate.RepairTolerance)
	}
	if c.Concurrency.PartitionSize < 0 {
		return fmt.Errorf("%w: partition_size must be positive or 0 (unpartitioned), got %d", ErrInvalidConfig, c.Concurrency.PartitionSize)
	}

	for _, f := range c.Output.Formats {
		switch f {
		case "json", "md", "csv":
		default:
			return fmt.Errorf("%w: unknown output format %q", ErrInvalidConfig, f)
		}
	}

	return nil
}
