package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/spaneval/internal/dataset"
	"github.com/ppiankov/spaneval/internal/model"
)

// Renderer writes evaluation results to files and a summary to out
type Renderer struct {
	out io.Writer
}

// NewRenderer creates a renderer printing summaries to out
func NewRenderer(out io.Writer) *Renderer {
	if out == nil {
		out = io.Discard
	}
	return &Renderer{out: out}
}

// RenderAll writes every requested format into dir and returns the paths
// written. Supported formats are json, md and csv.
func (r *Renderer) RenderAll(eval *Evaluation, dir string, formats []string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var written []string
	for _, format := range formats {
		switch format {
		case "json":
			path := filepath.Join(dir, "report.json")
			if err := r.RenderJSON(eval.Report, path); err != nil {
				return written, fmt.Errorf("render JSON: %w", err)
			}
			written = append(written, path)
		case "md":
			path := filepath.Join(dir, "report.md")
			if err := r.RenderMarkdown(eval.Report, path); err != nil {
				return written, fmt.Errorf("render markdown: %w", err)
			}
			written = append(written, path)
		case "csv":
			paths, err := r.RenderCSV(eval, dir)
			written = append(written, paths...)
			if err != nil {
				return written, fmt.Errorf("render CSV: %w", err)
			}
		default:
			return written, fmt.Errorf("%w: unknown output format %q", model.ErrInvalidConfig, format)
		}
	}
	return written, nil
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// RenderMarkdown writes the report as a Markdown document
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return os.WriteFile(path, []byte(Markdown(report)), 0644)
}

// RenderCSV writes the result, metrics and statistics tables into dir
func (r *Renderer) RenderCSV(eval *Evaluation, dir string) ([]string, error) {
	var written []string

	write := func(name string, fn func(io.Writer) error) error {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("write %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	if err := write("result_df.csv", func(w io.Writer) error {
		return dataset.WriteResults(w, eval.Rows)
	}); err != nil {
		return written, err
	}
	if err := write("statistics_df.csv", func(w io.Writer) error {
		return dataset.WriteStatistics(w, eval.Report.Stats)
	}); err != nil {
		return written, err
	}
	if eval.Report.Metrics != nil {
		if err := write("metrics_df.csv", func(w io.Writer) error {
			return dataset.WriteMetrics(w, eval.Report.Metrics)
		}); err != nil {
			return written, err
		}
	}
	return written, nil
}

// RenderSummary prints the statistics and metrics tables
func (r *Renderer) RenderSummary(report *model.Report) {
	fmt.Fprintf(r.out, "\nRun %s\n\n", report.RunID)
	for _, row := range report.Stats.Rows() {
		fmt.Fprintf(r.out, "  %-45s %d\n", row.Name, row.Value)
	}

	if report.Metrics == nil {
		fmt.Fprintf(r.out, "\n%s\n", report.Note)
		return
	}

	fmt.Fprintf(r.out, "\n  %-22s %8s %8s\n", "Class", "F1_span", "F1_word")
	for _, c := range append(append([]model.ClassMetrics{}, report.Metrics.Classes...), report.Metrics.All) {
		fmt.Fprintf(r.out, "  %-22s %8s %8s\n", c.Label, formatF1(c.F1Span, c.SpanDefined), formatF1(c.F1Word, c.WordDefined))
	}
	fmt.Fprintln(r.out)
}

// Markdown renders the report as a Markdown document
func Markdown(report *model.Report) string {
	var b strings.Builder

	b.WriteString("# Span evaluation report\n\n")
	fmt.Fprintf(&b, "- **Run:** `%s`\n", report.RunID)
	fmt.Fprintf(&b, "- **Created:** %s\n", report.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- **Grammar:** %s (duplicates: %s)\n", report.Config.Parse.Grammar, report.Config.Parse.Duplicates)
	fmt.Fprintf(&b, "- **Fuzzy factor:** %d\n\n", report.Config.Locate.FuzzyFactor)

	b.WriteString("## Statistics\n\n")
	b.WriteString("| Statistic | Value |\n|---|---:|\n")
	for _, row := range report.Stats.Rows() {
		fmt.Fprintf(&b, "| %s | %d |\n", row.Name, row.Value)
	}
	b.WriteString("\n")

	b.WriteString("## Metrics\n\n")
	if report.Metrics == nil {
		fmt.Fprintf(&b, "%s\n", report.Note)
		return b.String()
	}

	b.WriteString("| Class | F1_span | F1_word | TP/FP/FN span | TP/FP/FN word |\n|---|---:|---:|---:|---:|\n")
	for _, c := range append(append([]model.ClassMetrics{}, report.Metrics.Classes...), report.Metrics.All) {
		name := c.Label
		if name == model.AllLabel {
			name = "**All**"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", name, formatF1(c.F1Span, c.SpanDefined), formatF1(c.F1Word, c.WordDefined), counts(c.Span), counts(c.Word))
	}

	if len(report.Stats.Unparsable) > 0 {
		b.WriteString("\n## Unparsable essays\n\n")
		for _, id := range report.Stats.Unparsable {
			fmt.Fprintf(&b, "- %s\n", id)
		}
	}
	return b.String()
}

func formatF1(f float64, defined bool) string {
	if !defined {
		return "-"
	}
	return fmt.Sprintf("%.4f", f)
}

func counts(c model.Counts) string {
	return fmt.Sprintf("%d/%d/%d", c.TruePositives, c.FalsePositives, c.FalseNegatives)
}
