package dataset

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ppiankov/spaneval/internal/model"
)

func csvText(t *testing.T, records [][]string) string {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.WriteAll(records))
	return buf.String()
}

func TestGroundTruthLoader_CleanText(t *testing.T) {
	in := csvText(t, [][]string{
		{"", "essay_id", "full_text_clean", "discourse_start", "discourse_end", "discourse_text", "discourse_type"},
		{"0", "E1", "Cars are bad. They pollute.", "0", "13", "Cars are bad.", "Position"},
		{"1", "E1", "Cars are bad. They pollute.", "14.0", "27.0", "They pollute.", "Claim"},
		{"2", "E1", "Cars are bad. They pollute.", "27", "27", "", "Unannotated"},
	})

	gts, stats, err := NewGroundTruthLoader(zap.NewNop(), 25).Load(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, gts, 2)

	assert.Equal(t, model.LabelPosition, gts[0].Label)
	assert.Equal(t, 14, gts[1].Start)
	assert.Equal(t, 27, gts[1].End)
	assert.Equal(t, "Cars are bad. They pollute.", gts[1].EssayText)
	assert.Equal(t, LoadStats{Units: 2, Skipped: 1}, stats)
}

func TestGroundTruthLoader_RepairsRawText(t *testing.T) {
	raw := "\u00a0Cars are bad.  They\u2019re loud."
	in := csvText(t, [][]string{
		{"essay_id", "full_text", "discourse_start", "discourse_end", "discourse_text", "discourse_type"},
		{"E1", raw, "1", "14", "Cars are bad.", "Position"},
		{"E1", raw, "16", "29", "They\u2019re loud. ", "Claim"},
		{"E1", raw, "0", "5", "missing text", "Evidence"},
	})

	gts, stats, err := NewGroundTruthLoader(zap.NewNop(), 25).Load(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, gts, 3)

	clean := "Cars are bad.  They're loud."
	for _, gt := range gts {
		assert.Equal(t, clean, gt.EssayText)
	}

	assert.Equal(t, 0, gts[0].Start)
	assert.Equal(t, 13, gts[0].End)

	assert.Equal(t, "They're loud.", gts[1].Text)
	assert.Equal(t, 15, gts[1].Start)
	assert.Equal(t, 28, gts[1].End)
	assert.Equal(t, gts[1].Text, string([]rune(clean)[gts[1].Start:gts[1].End]))

	assert.Equal(t, 3, stats.Cleaned)
	assert.Equal(t, 2, stats.Repaired)
	assert.Equal(t, 1, stats.Unresolved)
}

func TestGroundTruthLoader_Errors(t *testing.T) {
	loader := NewGroundTruthLoader(nil, 25)

	_, _, err := loader.Load(strings.NewReader("essay_id,discourse_start\nE1,0\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)

	noText := csvText(t, [][]string{
		{"essay_id", "discourse_start", "discourse_end", "discourse_text", "discourse_type"},
		{"E1", "0", "1", "a", "Lead"},
	})
	_, _, err = loader.Load(strings.NewReader(noText))
	assert.ErrorIs(t, err, ErrMissingColumn)

	badOffset := csvText(t, [][]string{
		{"essay_id", "full_text_clean", "discourse_start", "discourse_end", "discourse_text", "discourse_type"},
		{"E1", "a b", "1.5", "3", "b", "Lead"},
	})
	_, _, err = loader.Load(strings.NewReader(badOffset))
	assert.ErrorContains(t, err, "row 2")

	_, _, err = loader.Load(strings.NewReader(""))
	assert.Error(t, err)
}

func TestReadOutputsCSV(t *testing.T) {
	in := csvText(t, [][]string{
		{"essay_id", "llm_output"},
		{"E1", "[Cars are bad.|Position]"},
		{"E2", "line one\nline two"},
	})

	outputs, err := ReadOutputsCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []model.ModelOutput{
		{EssayID: "E1", Output: "[Cars are bad.|Position]"},
		{EssayID: "E2", Output: "line one\nline two"},
	}, outputs)
}

const batchResults = `{"id":"batch_req_1","custom_id":"E1","response":{"status_code":200,"request_id":"r1","body":{"id":"c1","object":"chat.completion","model":"gpt-3.5-turbo","choices":[{"index":0,"message":{"role":"assistant","content":"<Claim>x</Claim>"},"finish_reason":"stop"}]}},"error":null}

{"id":"batch_req_2","custom_id":"E2","response":null,"error":{"code":"server_error","message":"boom"}}
{"id":"batch_req_3","custom_id":"E3","response":{"status_code":200,"request_id":"r3","body":{"choices":[]}},"error":null}
{"id":"batch_req_4","custom_id":"E4","response":{"status_code":429,"request_id":"r4","body":{}},"error":null}
`

func TestReadBatchResults(t *testing.T) {
	outputs, failures, err := ReadBatchResults(strings.NewReader(batchResults))
	require.NoError(t, err)

	assert.Equal(t, []model.ModelOutput{{EssayID: "E1", Output: "<Claim>x</Claim>"}}, outputs)
	require.Len(t, failures, 3)
	assert.Equal(t, BatchFailure{EssayID: "E2", Reason: "server_error: boom"}, failures[0])
	assert.Equal(t, "E3", failures[1].EssayID)
	assert.Equal(t, "status 429", failures[2].Reason)

	_, _, err = ReadBatchResults(strings.NewReader("{not json}\n"))
	assert.ErrorContains(t, err, "line 1")
}

func TestReadOutputFiles(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "outputs.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(csvText(t, [][]string{
		{"essay_id", "llm_output"},
		{"E1", "old"},
		{"E9", "kept"},
	})), 0o644))
	jsonlPath := filepath.Join(dir, "batch_0.jsonl")
	require.NoError(t, os.WriteFile(jsonlPath, []byte(batchResults), 0o644))

	outputs, failures, err := ReadOutputFiles(csvPath, jsonlPath)
	require.NoError(t, err)
	assert.Equal(t, []model.ModelOutput{
		{EssayID: "E1", Output: "<Claim>x</Claim>"},
		{EssayID: "E9", Output: "kept"},
	}, outputs)
	assert.Len(t, failures, 3)

	_, _, err = ReadOutputFiles(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestWriters(t *testing.T) {
	var results bytes.Buffer
	require.NoError(t, WriteResults(&results, []model.ResultRow{{
		DiscourseUnit: model.DiscourseUnit{EssayID: "E1", Start: 0, End: 4, Text: "Cars", Label: model.LabelLead, Source: model.SourceVerbatim},
		EssayText:     "Cars, everywhere",
		Output:        "[Cars|Lead]",
	}}))
	recs, err := csv.NewReader(&results).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, []string{"E1", "0", "4", "Cars", "Lead", "verbatim", "Cars, everywhere", "[Cars|Lead]"}, recs[1])

	var metrics bytes.Buffer
	require.NoError(t, WriteMetrics(&metrics, &model.Metrics{
		Classes: []model.ClassMetrics{
			{Label: "Claim", F1Span: 0.5, F1Word: 0.25, SpanDefined: true, WordDefined: true},
			{Label: "Lead", F1Span: 0, SpanDefined: true},
		},
		All: model.ClassMetrics{Label: model.AllLabel, F1Span: 0.25, F1Word: 0.25, SpanDefined: true, WordDefined: true},
	}))
	assert.Equal(t, ",Claim,Lead,All\nF1_span,0.500000,0.000000,0.250000\nF1_word,0.250000,,0.250000\n", metrics.String())

	var stats bytes.Buffer
	require.NoError(t, WriteStatistics(&stats, model.Statistics{GroundTruthUnits: 7, Unparsable: []string{"E2"}}))
	assert.Contains(t, stats.String(), "Total DUs in ground truth,7\n")
	assert.Contains(t, stats.String(), "Number of unparsable essays,1\n")
}
