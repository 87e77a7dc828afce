// Package pipeline drives a scoring run: model outputs are parsed and their
// spans located per essay in parallel, then the collected units are scored
// against ground truth.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/spaneval/internal/cache"
	"github.com/ppiankov/spaneval/internal/label"
	"github.com/ppiankov/spaneval/internal/locate"
	"github.com/ppiankov/spaneval/internal/model"
	"github.com/ppiankov/spaneval/internal/parse"
	"github.com/ppiankov/spaneval/internal/score"
	"github.com/ppiankov/spaneval/internal/worker"
)

// ErrNoOutput marks an essay for which no model output was supplied
var ErrNoOutput = errors.New("no model output for essay")

// progressInterval bounds how often progress lines are logged
const progressInterval = 5 * time.Second

// Pipeline orchestrates a complete scoring run
type Pipeline struct {
	config  *model.Config
	parser  parse.Parser
	locator locate.SpanLocator
	scorer  *score.Scorer
	logger  *zap.Logger
	runID   string
	now     func() time.Time
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithLocator replaces the locator built from the configuration
func WithLocator(l locate.SpanLocator) Option {
	return func(p *Pipeline) {
		p.locator = l
	}
}

// WithRunID fixes the run id instead of generating one
func WithRunID(id string) Option {
	return func(p *Pipeline) {
		p.runID = id
	}
}

// WithClock replaces the clock used to stamp reports
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// NewPipeline validates cfg and builds the pipeline. An invalid
// configuration is reported before any essay is touched.
func NewPipeline(cfg *model.Config, logger *zap.Logger, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	policy, err := parse.ParsePolicy(cfg.Parse.Duplicates)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidConfig, err)
	}
	parser, err := parse.ForGrammar(cfg.Parse.Grammar, policy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidConfig, err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pipeline{
		config: cfg,
		parser: parser,
		runID:  uuid.NewString(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.logger = logger.With(zap.String("run_id", p.runID))
	p.scorer = score.NewScorer(p.logger.With(zap.String("stage", "score")))

	if p.locator == nil {
		locator := locate.NewLocator(cfg.Locate.FuzzyFactor)
		if c := cache.New(cfg.Cache); c != nil {
			p.locator = locate.NewCachedLocator(locator, c)
		} else {
			p.locator = locator
		}
	}

	return p, nil
}

// RunID identifies this run in logs and reports
func (p *Pipeline) RunID() string {
	return p.runID
}

// Run is the outcome of parsing and locating every essay
type Run struct {
	Rows  []model.ResultRow
	Stats model.Statistics
}

// Evaluation is a finished run with its report
type Evaluation struct {
	Report *model.Report
	Rows   []model.ResultRow
}

// Evaluate runs every essay referenced by the ground truth and scores the
// located units. If no unit could be located the report carries statistics
// but no metrics, and the error wraps score.ErrNothingToEvaluate.
func (p *Pipeline) Evaluate(ctx context.Context, gts []model.GroundTruth, outputs []model.ModelOutput) (*Evaluation, error) {
	run, err := p.Run(ctx, model.EssaysFromGroundTruth(gts), outputs)
	if err != nil {
		return nil, err
	}

	report, err := p.Score(run, gts)
	return &Evaluation{Report: report, Rows: run.Rows}, err
}

// Run parses and locates the output of every essay. Essays are processed in
// partitions; within a partition they run in parallel and their results are
// collected in essay order.
func (p *Pipeline) Run(ctx context.Context, essays []model.Essay, outputs []model.ModelOutput) (*Run, error) {
	byEssay := make(map[string]string, len(outputs))
	for _, o := range outputs {
		byEssay[o.EssayID] = o.Output
	}

	tasks := make([]worker.EssayTask, 0, len(essays))
	for _, e := range essays {
		out, ok := byEssay[e.ID]
		tasks = append(tasks, worker.EssayTask{Essay: e, Output: out, HasOutput: ok})
	}
	if extra := len(byEssay) - countPresent(tasks); extra > 0 {
		p.logger.Debug("model outputs without ground truth ignored", zap.Int("count", extra))
	}

	partitions := [][]worker.EssayTask{tasks}
	if size := p.config.Concurrency.PartitionSize; size != 0 {
		var err error
		partitions, err = worker.Partition(tasks, size)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidConfig, err)
		}
	}

	p.logger.Info("run started",
		zap.Int("essays", len(essays)),
		zap.Int("partitions", len(partitions)),
		zap.Int("workers", p.config.Concurrency.Workers),
		zap.String("grammar", p.parser.Name()),
	)

	progress := worker.NewProgress(p.logger.With(zap.String("stage", "locate")), len(tasks), progressInterval)
	processor := worker.NewBatchProcessor(p, p.config.Concurrency.Workers, progress)

	run := &Run{Stats: model.Statistics{Essays: len(essays)}}
	for i, part := range partitions {
		outcomes, err := processor.Process(ctx, part)
		if err != nil {
			return nil, fmt.Errorf("partition %d: %w", i, err)
		}
		for _, out := range outcomes {
			run.Rows = append(run.Rows, out.Rows...)
			run.Stats.Add(out.Stats)
		}
	}

	p.logger.Info("run finished",
		zap.Int("classified_units", run.Stats.ClassifiedUnits),
		zap.Int("usable_units", run.Stats.UsableUnits()),
		zap.Int("unparsable_essays", run.Stats.UnparsableEssays()),
	)
	return run, nil
}

func countPresent(tasks []worker.EssayTask) int {
	n := 0
	for _, t := range tasks {
		if t.HasOutput {
			n++
		}
	}
	return n
}

// ProcessEssay parses one essay's model output and locates every span
func (p *Pipeline) ProcessEssay(ctx context.Context, task worker.EssayTask) *worker.EssayOutcome {
	essay := task.Essay
	out := &worker.EssayOutcome{EssayID: essay.ID}
	logger := p.logger.With(zap.String("essay_id", essay.ID))

	if !task.HasOutput {
		out.Stats.Unparsable = []string{essay.ID}
		out.Error = ErrNoOutput
		return out
	}

	pairs, err := p.parser.Parse(task.Output)
	if err != nil {
		out.Stats.Unparsable = []string{essay.ID}
		out.Error = fmt.Errorf("parse: %w", err)
		return out
	}
	out.Stats.ClassifiedUnits = len(pairs)
	if len(pairs) == 0 {
		logger.Debug("no discourse units classified", zap.String("stage", "parse"))
	}

	logger = logger.With(zap.String("stage", "locate"))
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			out.Error = err
			return out
		}

		span := pair.Span
		if p.config.Parse.NormalizeOutput {
			span = locate.Clean(span)
		}

		m, err := p.locator.Locate(span, essay.Text)
		if err != nil {
			var ambiguous *locate.AmbiguousError
			if errors.As(err, &ambiguous) {
				out.Stats.AmbiguousUnits++
			} else {
				out.Stats.UnmatchedUnits++
			}
			logger.Debug("span dropped", zap.Error(err))
			continue
		}

		switch m.Source {
		case model.SourceVerbatim:
			out.Stats.VerbatimUnits++
		case model.SourceFuzzy:
			out.Stats.FuzzyUnits++
		}

		lbl := label.Parse(pair.Label)
		if lbl == model.LabelNone {
			out.Stats.UnknownLabel++
			logger.Debug("unknown discourse type", zap.String("discourse_type", pair.Label))
		}

		out.Rows = append(out.Rows, model.ResultRow{
			DiscourseUnit: model.DiscourseUnit{
				EssayID: essay.ID,
				Start:   m.Start,
				End:     m.End,
				Text:    m.Text,
				Label:   lbl,
				Source:  m.Source,
			},
			EssayText: essay.Text,
			Output:    task.Output,
		})
	}

	logger.Debug("essay processed",
		zap.Int("classified", out.Stats.ClassifiedUnits),
		zap.Int("verbatim", out.Stats.VerbatimUnits),
		zap.Int("fuzzy", out.Stats.FuzzyUnits),
	)
	return out
}

// Score evaluates a run against ground truth and builds the report
func (p *Pipeline) Score(run *Run, gts []model.GroundTruth) (*model.Report, error) {
	stats := run.Stats
	stats.GroundTruthUnits = len(gts)

	report := &model.Report{
		RunID:     p.runID,
		CreatedAt: p.now().UTC(),
		Config:    *p.config,
		Stats:     stats,
	}

	metrics, err := p.scorer.Evaluate(run.Rows, gts)
	if err != nil {
		if errors.Is(err, score.ErrNothingToEvaluate) {
			report.Note = "No discourse unit could be located. Results cannot be evaluated."
			p.logger.Warn("result table is empty, results cannot be evaluated")
		}
		return report, fmt.Errorf("score: %w", err)
	}
	report.Metrics = metrics

	p.logger.Info("scored",
		zap.Float64("f1_span", metrics.All.F1Span),
		zap.Float64("f1_word", metrics.All.F1Word),
	)
	return report, nil
}
