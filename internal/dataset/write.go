package dataset

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/ppiankov/spaneval/internal/model"
)

// WriteResults writes the result table, one row per located discourse unit
func WriteResults(w io.Writer, rows []model.ResultRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"essay_id", "discourse_start", "discourse_end", "discourse_text",
		"discourse_type", "source", "original_essay_text", "llm_output",
	}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{
			r.EssayID,
			strconv.Itoa(r.Start),
			strconv.Itoa(r.End),
			r.Text,
			string(r.Label),
			string(r.Source),
			r.EssayText,
			r.Output,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMetrics writes the metrics table: rows F1_span and F1_word, one
// column per class and a final "All" column. Undefined cells are empty.
func WriteMetrics(w io.Writer, m *model.Metrics) error {
	cw := csv.NewWriter(w)

	header := []string{""}
	span := []string{"F1_span"}
	word := []string{"F1_word"}
	for _, c := range append(append([]model.ClassMetrics{}, m.Classes...), m.All) {
		header = append(header, c.Label)
		span = append(span, formatScore(c.F1Span, c.SpanDefined))
		word = append(word, formatScore(c.F1Word, c.WordDefined))
	}

	for _, rec := range [][]string{header, span, word} {
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteStatistics writes the statistics summary as name,value rows
func WriteStatistics(w io.Writer, s model.Statistics) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"statistic", "value"}); err != nil {
		return err
	}
	for _, r := range s.Rows() {
		if err := cw.Write([]string{r.Name, strconv.Itoa(r.Value)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatScore leaves undefined scores empty
func formatScore(f float64, defined bool) string {
	if !defined {
		return ""
	}
	return strconv.FormatFloat(f, 'f', 6, 64)
}
