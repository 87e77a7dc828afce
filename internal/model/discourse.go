package model

// Label is a discourse unit type from the closed annotation scheme
type Label string

const (
	LabelNone                Label = "" // Unmatched or unrecognized type
	LabelLead                Label = "Lead"
	LabelPosition            Label = "Position"
	LabelClaim               Label = "Claim"
	LabelCounterclaim        Label = "Counterclaim"
	LabelRebuttal            Label = "Rebuttal"
	LabelEvidence            Label = "Evidence"
	LabelConcludingStatement Label = "Concluding Statement"
)

// Labels returns the closed label set in canonical order
func Labels() []Label {
	return []Label{
		LabelLead,
		LabelPosition,
		LabelClaim,
		LabelCounterclaim,
		LabelRebuttal,
		LabelEvidence,
		LabelConcludingStatement,
	}
}

// Valid reports whether l is a member of the closed label set
func (l Label) Valid() bool {
	for _, known := range Labels() {
		if l == known {
			return true
		}
	}
	return false
}

func (l Label) String() string {
	return string(l)
}

// Source records how a predicted span was resolved against the essay text
type Source string

const (
	SourceVerbatim  Source = "verbatim"  // Exact substring of the essay
	SourceFuzzy     Source = "fuzzy"     // Unique approximate match
	SourceUnmatched Source = "unmatched" // No usable location
)

// DiscourseUnit is a labeled span of an essay.
// Start and End are rune offsets into the essay text, End exclusive.
type DiscourseUnit struct {
	EssayID string `json:"essay_id"`
	Start   int    `json:"discourse_start"`
	End     int    `json:"discourse_end"`
	Text    string `json:"discourse_text"`
	Label   Label  `json:"discourse_type"`
	Source  Source `json:"source,omitempty"`
}

// Len returns the span length in runes
func (u DiscourseUnit) Len() int {
	return u.End - u.Start
}
