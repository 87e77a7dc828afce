package model

import "time"

// Report is the complete outcome of one scoring run
type Report struct {
	RunID     string     `json:"run_id"`
	CreatedAt time.Time  `json:"created_at"`
	Config    Config     `json:"config"`
	Stats     Statistics `json:"statistics"`
	Metrics   *Metrics   `json:"metrics,omitempty"` // nil when predictions could not be evaluated
	Note      string     `json:"note,omitempty"`
}

// Statistics counts what happened to every discourse unit of a run.
// Units lost to a failure are counted, never silently dropped.
type Statistics struct {
	GroundTruthUnits int      `json:"total_ground_truth_units"`
	ClassifiedUnits  int      `json:"total_classified_units"`
	VerbatimUnits    int      `json:"verbatim_units"`
	FuzzyUnits       int      `json:"fuzzy_matched_units"`
	UnmatchedUnits   int      `json:"unmatched_units"`
	AmbiguousUnits   int      `json:"ambiguous_units"`
	UnknownLabel     int      `json:"unknown_label_units"`
	Essays           int      `json:"total_essays"`
	Unparsable       []string `json:"unparsable_essays,omitempty"`
}

// UsableUnits is the number of units that were located in the essay text
func (s Statistics) UsableUnits() int {
	return s.VerbatimUnits + s.FuzzyUnits
}

// NonVerbatimUnits is the number of classified units that were not exact substrings
func (s Statistics) NonVerbatimUnits() int {
	return s.ClassifiedUnits - s.VerbatimUnits
}

// UnparsableEssays is the number of essays whose output could not be parsed
func (s Statistics) UnparsableEssays() int {
	return len(s.Unparsable)
}

// Add accumulates other into s
func (s *Statistics) Add(other Statistics) {
	s.GroundTruthUnits += other.GroundTruthUnits
	s.ClassifiedUnits += other.ClassifiedUnits
	s.VerbatimUnits += other.VerbatimUnits
	s.FuzzyUnits += other.FuzzyUnits
	s.UnmatchedUnits += other.UnmatchedUnits
	s.AmbiguousUnits += other.AmbiguousUnits
	s.UnknownLabel += other.UnknownLabel
	s.Essays += other.Essays
	s.Unparsable = append(s.Unparsable, other.Unparsable...)
}

// StatRow is one named value of the statistics summary
type StatRow struct {
	Name  string
	Value int
}

// Rows returns the statistics summary in display order
func (s Statistics) Rows() []StatRow {
	return []StatRow{
		{"Total DUs in ground truth", s.GroundTruthUnits},
		{"Total classified DUs", s.ClassifiedUnits},
		{"Total usable discourse units", s.UsableUnits()},
		{"Verbatim DUs", s.VerbatimUnits},
		{"Total non-verbatim DUs", s.NonVerbatimUnits()},
		{"Non-verbatim DUs matched with fuzzy search", s.FuzzyUnits},
		{"Non-verbatim DUs without a match", s.UnmatchedUnits},
		{"Non-verbatim DUs with ambiguous matches", s.AmbiguousUnits},
		{"DUs with unknown type", s.UnknownLabel},
		{"Total number of essays", s.Essays},
		{"Number of unparsable essays", s.UnparsableEssays()},
	}
}

// Counts are the pooled match outcomes of one class
type Counts struct {
	TruePositives  int `json:"tp"`
	FalsePositives int `json:"fp"`
	FalseNegatives int `json:"fn"`
}

// ClassMetrics holds the F1 scores of one label at both granularities.
// A score whose Defined flag is false has nothing to compare (no ground
// truth and no prediction at that granularity) and is reported empty.
type ClassMetrics struct {
	Label       string  `json:"label"`
	F1Span      float64 `json:"f1_span"`
	F1Word      float64 `json:"f1_word"`
	SpanDefined bool    `json:"span_defined"`
	WordDefined bool    `json:"word_defined"`
	Span        Counts  `json:"span_counts"`
	Word        Counts  `json:"word_counts"`
}

// AllLabel names the aggregate row of the metrics table
const AllLabel = "All"

// Metrics is the class x {F1_span, F1_word} table plus the "All" row
type Metrics struct {
	Classes []ClassMetrics `json:"classes"`
	All     ClassMetrics   `json:"all"`
}

// Class returns the metrics for label, if the label was scored
func (m *Metrics) Class(label Label) (ClassMetrics, bool) {
	for _, c := range m.Classes {
		if c.Label == string(label) {
			return c, true
		}
	}
	return ClassMetrics{}, false
}
