package dataset

import (
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ppiankov/spaneval/internal/label"
	"github.com/ppiankov/spaneval/internal/locate"
	"github.com/ppiankov/spaneval/internal/model"
)

// unannotated marks essay text outside every discourse unit in the raw corpus
const unannotated = "Unannotated"

// LoadStats reports what loading ground truth had to correct
type LoadStats struct {
	Units      int // units loaded
	Cleaned    int // units whose essay text was cleaned while loading
	Repaired   int // units whose start offset moved
	Unresolved int // units whose text was not found in the cleaned essay
	Skipped    int // unannotated or unlabeled rows
}

// GroundTruthLoader reads annotated discourse units.
//
// Tables carrying full_text_clean are taken as they are. Tables carrying
// only the raw full_text are cleaned with locate.Clean, and every unit's
// start offset is repaired against the cleaned text, because the raw
// offsets are often a few characters off.
type GroundTruthLoader struct {
	logger    *zap.Logger
	tolerance int
}

// NewGroundTruthLoader creates a loader; tolerance is the initial repair slack
func NewGroundTruthLoader(logger *zap.Logger, tolerance int) *GroundTruthLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroundTruthLoader{logger: logger, tolerance: tolerance}
}

// LoadFile loads ground truth from a CSV file
func (l *GroundTruthLoader) LoadFile(path string) ([]model.GroundTruth, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("open ground truth: %w", err)
	}
	defer func() { _ = f.Close() }()

	gts, stats, err := l.Load(f)
	if err != nil {
		return nil, stats, fmt.Errorf("load %s: %w", path, err)
	}
	return gts, stats, nil
}

// Load reads ground truth rows from CSV
func (l *GroundTruthLoader) Load(r io.Reader) ([]model.GroundTruth, LoadStats, error) {
	var stats LoadStats

	t, err := readTable(r)
	if err != nil {
		return nil, stats, err
	}
	if err := t.require("essay_id", "discourse_start", "discourse_end", "discourse_text", "discourse_type"); err != nil {
		return nil, stats, err
	}

	textColumn := "full_text_clean"
	needsCleaning := false
	if !t.has(textColumn) {
		if !t.has("full_text") {
			return nil, stats, fmt.Errorf("%w %q or %q", ErrMissingColumn, "full_text_clean", "full_text")
		}
		textColumn = "full_text"
		needsCleaning = true
	}

	cleaned := make(map[string]string)
	var gts []model.GroundTruth
	for i, rec := range t.records {
		row := i + 2 // header is line 1

		rawType := t.get(rec, "discourse_type")
		if rawType == unannotated {
			stats.Skipped++
			continue
		}
		lbl := label.Parse(rawType)
		if lbl == model.LabelNone {
			stats.Skipped++
			l.logger.Warn("ground truth row without a known label",
				zap.Int("row", row),
				zap.String("discourse_type", rawType),
			)
			continue
		}

		start, err := parseOffset(t.get(rec, "discourse_start"))
		if err != nil {
			return nil, stats, fmt.Errorf("row %d: discourse_start: %w", row, err)
		}
		end, err := parseOffset(t.get(rec, "discourse_end"))
		if err != nil {
			return nil, stats, fmt.Errorf("row %d: discourse_end: %w", row, err)
		}

		gt := model.GroundTruth{
			DiscourseUnit: model.DiscourseUnit{
				EssayID: t.get(rec, "essay_id"),
				Start:   start,
				End:     end,
				Text:    t.get(rec, "discourse_text"),
				Label:   lbl,
			},
			EssayText: t.get(rec, textColumn),
		}

		if needsCleaning {
			l.clean(&gt, cleaned, &stats)
		}

		gts = append(gts, gt)
		stats.Units++
	}

	l.logger.Info("ground truth loaded",
		zap.Int("units", stats.Units),
		zap.Int("cleaned", stats.Cleaned),
		zap.Int("repaired", stats.Repaired),
		zap.Int("unresolved", stats.Unresolved),
		zap.Int("skipped", stats.Skipped),
	)
	return gts, stats, nil
}

// clean rewrites one unit against its cleaned essay text
func (l *GroundTruthLoader) clean(gt *model.GroundTruth, cache map[string]string, stats *LoadStats) {
	text, ok := cache[gt.EssayID]
	if !ok {
		text = locate.Clean(gt.EssayText)
		cache[gt.EssayID] = text
	}
	gt.EssayText = text
	stats.Cleaned++

	snippet := locate.Clean(gt.Text)
	start, iterations, tolerance := locate.RepairStartEscalating(text, snippet, gt.Start, l.tolerance, 10)
	if start < 0 {
		stats.Unresolved++
		l.logger.Warn("ground truth unit not found in essay",
			zap.String("essay_id", gt.EssayID),
			zap.Int("discourse_start", gt.Start),
		)
		return
	}

	if start != gt.Start {
		stats.Repaired++
		l.logger.Debug("ground truth start repaired",
			zap.String("essay_id", gt.EssayID),
			zap.Int("from", gt.Start),
			zap.Int("to", start),
			zap.Int("iterations", iterations),
			zap.Int("tolerance", tolerance),
		)
	}
	gt.Text = snippet
	gt.Start = start
	gt.End = start + utf8.RuneCountInString(snippet)
}
