package model

// Essay is a source text that model output and ground truth refer to
type Essay struct {
	ID   string `json:"essay_id"`
	Text string `json:"full_text"`
}

// GroundTruth is an annotated discourse unit together with its essay text
type GroundTruth struct {
	DiscourseUnit
	EssayText string `json:"full_text"`
}

// ModelOutput is the raw annotated text produced for one essay
type ModelOutput struct {
	EssayID string `json:"essay_id"`
	Output  string `json:"llm_output"`
}

// ResultRow is one located discourse unit in the result table
type ResultRow struct {
	DiscourseUnit
	EssayText string `json:"original_essay_text"`
	Output    string `json:"llm_output"`
}

// EssaysFromGroundTruth returns the distinct essays referenced by gts,
// in order of first appearance
func EssaysFromGroundTruth(gts []GroundTruth) []Essay {
	seen := make(map[string]bool)
	var essays []Essay
	for _, gt := range gts {
		if seen[gt.EssayID] {
			continue
		}
		seen[gt.EssayID] = true
		essays = append(essays, Essay{ID: gt.EssayID, Text: gt.EssayText})
	}
	return essays
}
