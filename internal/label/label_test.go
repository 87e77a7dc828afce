package label

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/spaneval/internal/model"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw  string
		want model.Label
	}{
		{"concludingstatement", model.LabelConcludingStatement},
		{"concluding statement", model.LabelConcludingStatement},
		{"Concludingstatement", model.LabelConcludingStatement},
		{"Concluding Statement", model.LabelConcludingStatement},
		{"CONCLUDING STATEMENT", model.LabelConcludingStatement},
		{"concluding_statement", model.LabelConcludingStatement},
		{"something else", model.LabelNone},
		{"lead", model.LabelLead},
		{"COUNTER CLAIM", model.LabelCounterclaim},
		{"counter claim", model.LabelCounterclaim},
		{"counter-claim", model.LabelCounterclaim},
		{"Claims", model.LabelClaim},
		{"Rebutal", model.LabelRebuttal},
		{"Evidences", model.LabelEvidence},
		{"position", model.LabelPosition},
		{"", model.LabelNone},
		{"   ", model.LabelNone},
		{"xyz", model.LabelNone},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.raw))
		})
	}
}

func TestParse_Idempotent(t *testing.T) {
	inputs := []string{"concluding statement", "COUNTER CLAIM", "lead", "Evidences", "nonsense"}
	for _, in := range inputs {
		once := Parse(in)
		twice := Parse(once.String())
		assert.Equal(t, once, twice, "input %q", in)
	}
}

func TestParse_CanonicalLabelsMapToThemselves(t *testing.T) {
	for _, l := range model.Labels() {
		assert.Equal(t, l, Parse(l.String()))
	}
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity("claim", "claim"), 1e-9)
	assert.InDelta(t, 1.0, Similarity("", ""), 1e-9)
	assert.InDelta(t, 0.8, Similarity("claim", "clain"), 1e-9)
	assert.InDelta(t, 0.0, Similarity("abc", ""), 1e-9)
}
