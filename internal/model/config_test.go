package model

import (
	"errors"
	"testing"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.Locate.FuzzyFactor != 7 {
		t.Errorf("expected default fuzzy factor 7, got %d", cfg.Locate.FuzzyFactor)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown grammar", func(c *Config) { c.Parse.Grammar = "yaml" }},
		{"unknown duplicates", func(c *Config) { c.Parse.Duplicates = "keep-some" }},
		{"zero fuzzy factor", func(c *Config) { c.Locate.FuzzyFactor = 0 }},
		{"negative tolerance", func(c *Config) { c.Locate.RepairTolerance = -1 }},
		{"negative partition", func(c *Config) { c.Concurrency.PartitionSize = -3 }},
		{"unknown format", func(c *Config) { c.Output.Formats = []string{"xlsx"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLabel_Valid(t *testing.T) {
	if !LabelConcludingStatement.Valid() {
		t.Error("Concluding Statement should be valid")
	}
	if LabelNone.Valid() {
		t.Error("empty label should not be valid")
	}
	if Label("Thesis").Valid() {
		t.Error("Thesis is not part of the label set")
	}
}

func TestStatistics_Derived(t *testing.T) {
	s := Statistics{ClassifiedUnits: 10, VerbatimUnits: 6, FuzzyUnits: 3}
	s.Add(Statistics{ClassifiedUnits: 2, VerbatimUnits: 1, Unparsable: []string{"E1"}})

	if s.UsableUnits() != 10 {
		t.Errorf("expected 10 usable units, got %d", s.UsableUnits())
	}
	if s.NonVerbatimUnits() != 5 {
		t.Errorf("expected 5 non-verbatim units, got %d", s.NonVerbatimUnits())
	}
	if s.UnparsableEssays() != 1 {
		t.Errorf("expected 1 unparsable essay, got %d", s.UnparsableEssays())
	}
}
