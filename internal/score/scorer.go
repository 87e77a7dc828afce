// Package score computes the Feedback Prize micro F1 between predicted and
// ground truth discourse units.
package score

import (
	"errors"
	"slices"

	"go.uber.org/zap"

	"github.com/ppiankov/spaneval/internal/model"
	"github.com/ppiankov/spaneval/internal/predstring"
)

// MatchThreshold is the minimum coverage, in both directions, for a
// prediction to match a ground truth unit
const MatchThreshold = 0.5

// ErrNothingToEvaluate is returned when there are no predictions at all
var ErrNothingToEvaluate = errors.New("score: prediction set is empty, results cannot be evaluated")

// MicroScore is the pooled outcome of one class
type MicroScore struct {
	model.Counts
	F1        float64 `json:"f1"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Defined   bool    `json:"defined"` // false when there was nothing to count
}

type gtKey struct {
	essayID string
	words   string
}

type selection struct {
	pred    int
	overlap float64
}

// Micro scores predictions against ground truth rows of a single class.
//
// Every prediction is compared with every ground truth unit of the same
// essay. A pair is a potential match when the intersection covers at least
// half of both word sets. For each distinct (essay, ground truth
// predictionstring) only the potential match with the highest coverage is
// kept, ties going to the lowest prediction id. Kept predictions are true
// positives, all other predictions false positives, and ground truth units
// without any potential match false negatives.
func Micro(preds, gts []predstring.Row) MicroScore {
	best, falseNegatives := selectMatches(preds, gts)

	selected := make(map[int]struct{}, len(best))
	for _, s := range best {
		selected[s.pred] = struct{}{}
	}

	return newMicroScore(model.Counts{
		TruePositives:  len(selected),
		FalsePositives: len(preds) - len(selected),
		FalseNegatives: falseNegatives,
	})
}

// selectMatches returns the kept match per ground truth group, as indices
// into preds, and the number of ground truth rows without a potential match
func selectMatches(preds, gts []predstring.Row) (map[gtKey]selection, int) {
	byEssay := make(map[string][]int)
	predSets := make([]map[int]struct{}, len(preds))
	for i, p := range preds {
		byEssay[p.EssayID] = append(byEssay[p.EssayID], i)
		predSets[i] = toSet(p.Words)
	}

	best := make(map[gtKey]selection)
	var falseNegatives int
	for _, g := range gts {
		gset := toSet(g.Words)
		matched := false

		for _, pi := range byEssay[g.EssayID] {
			o1, o2 := coverage(gset, predSets[pi])
			if o1 < MatchThreshold || o2 < MatchThreshold {
				continue
			}
			matched = true

			key := gtKey{essayID: g.EssayID, words: g.Key()}
			overlap := max(o1, o2)
			cur, ok := best[key]
			if !ok || overlap > cur.overlap || (overlap == cur.overlap && preds[pi].ID < preds[cur.pred].ID) {
				best[key] = selection{pred: pi, overlap: overlap}
			}
		}

		if !matched {
			falseNegatives++
		}
	}
	return best, falseNegatives
}

func newMicroScore(c model.Counts) MicroScore {
	s := MicroScore{Counts: c}
	tp := float64(c.TruePositives)
	if c.TruePositives+c.FalsePositives+c.FalseNegatives == 0 {
		return s
	}
	s.Defined = true
	s.F1 = tp / (tp + 0.5*float64(c.FalsePositives+c.FalseNegatives))
	if n := c.TruePositives + c.FalsePositives; n > 0 {
		s.Precision = tp / float64(n)
	}
	if n := c.TruePositives + c.FalseNegatives; n > 0 {
		s.Recall = tp / float64(n)
	}
	return s
}

// coverage returns |gt ∩ pred| / |gt| and |gt ∩ pred| / |pred|. An empty set
// covers nothing and is covered by nothing.
func coverage(gt, pred map[int]struct{}) (float64, float64) {
	if len(gt) == 0 || len(pred) == 0 {
		return 0, 0
	}
	inter := 0
	for w := range pred {
		if _, ok := gt[w]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(gt)), float64(inter) / float64(len(pred))
}

func toSet(words []int) map[int]struct{} {
	set := make(map[int]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// ClassScores holds the micro scores of every ground truth label
type ClassScores struct {
	Labels  []string              // sorted
	Classes map[string]MicroScore // keyed by label
	Mean    float64               // unweighted mean over defined classes
	Defined bool                  // at least one class is defined
	Total   model.Counts
}

// ByClass runs Micro separately for every label present in the ground
// truth. Predictions with other labels are never compared.
func ByClass(preds, gts []predstring.Row) ClassScores {
	gtByLabel := make(map[string][]predstring.Row)
	for _, g := range gts {
		gtByLabel[g.Label] = append(gtByLabel[g.Label], g)
	}
	predByLabel := make(map[string][]predstring.Row)
	for _, p := range preds {
		predByLabel[p.Label] = append(predByLabel[p.Label], p)
	}

	scores := ClassScores{Classes: make(map[string]MicroScore, len(gtByLabel))}
	for l := range gtByLabel {
		scores.Labels = append(scores.Labels, l)
	}
	slices.Sort(scores.Labels)

	var sum float64
	var defined int
	for _, l := range scores.Labels {
		s := Micro(predByLabel[l], gtByLabel[l])
		scores.Classes[l] = s
		scores.Total.TruePositives += s.TruePositives
		scores.Total.FalsePositives += s.FalsePositives
		scores.Total.FalseNegatives += s.FalseNegatives
		if s.Defined {
			sum += s.F1
			defined++
		}
	}
	if defined > 0 {
		scores.Mean = sum / float64(defined)
		scores.Defined = true
	}
	return scores
}

// Scorer evaluates located predictions at span and word granularity
type Scorer struct {
	logger *zap.Logger
}

// NewScorer creates a new scorer
func NewScorer(logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{logger: logger}
}

// Evaluate builds the class x {F1_span, F1_word} table. Prediction offsets
// refer to each row's essay text, ground truth offsets to the cleaned essay
// text carried by the ground truth.
func (s *Scorer) Evaluate(preds []model.ResultRow, gts []model.GroundTruth) (*model.Metrics, error) {
	if len(preds) == 0 {
		return nil, ErrNothingToEvaluate
	}

	predTexts := make(predstring.TextIndex)
	predUnits := make([]model.DiscourseUnit, len(preds))
	for i, p := range preds {
		predTexts[p.EssayID] = p.EssayText
		predUnits[i] = p.DiscourseUnit
	}
	gtTexts := make(predstring.TextIndex)
	gtUnits := make([]model.DiscourseUnit, len(gts))
	for i, g := range gts {
		gtTexts[g.EssayID] = g.EssayText
		gtUnits[i] = g.DiscourseUnit
	}

	span := ByClass(predstring.SpanRows(predUnits, predTexts.Lookup), predstring.SpanRows(gtUnits, gtTexts.Lookup))
	word := ByClass(predstring.WordRows(predUnits, predTexts.Lookup), predstring.WordRows(gtUnits, gtTexts.Lookup))

	metrics := &model.Metrics{
		All: model.ClassMetrics{
			Label:       model.AllLabel,
			F1Span:      span.Mean,
			F1Word:      word.Mean,
			SpanDefined: span.Defined,
			WordDefined: word.Defined,
			Span:        span.Total,
			Word:        word.Total,
		},
	}
	for _, l := range span.Labels {
		// a class whose units all fall inside single tokens has no word rows
		ws := word.Classes[l]
		cm := model.ClassMetrics{
			Label:       l,
			F1Span:      span.Classes[l].F1,
			F1Word:      ws.F1,
			SpanDefined: span.Classes[l].Defined,
			WordDefined: ws.Defined,
			Span:        span.Classes[l].Counts,
			Word:        ws.Counts,
		}
		metrics.Classes = append(metrics.Classes, cm)

		s.logger.Debug("class scored",
			zap.String("label", l),
			zap.Float64("f1_span", cm.F1Span),
			zap.Float64("f1_word", cm.F1Word),
			zap.Bool("word_defined", cm.WordDefined),
			zap.Int("span_tp", cm.Span.TruePositives),
			zap.Int("span_fp", cm.Span.FalsePositives),
			zap.Int("span_fn", cm.Span.FalseNegatives),
		)
	}

	return metrics, nil
}
