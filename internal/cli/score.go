package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/spaneval/internal/dataset"
	"github.com/ppiankov/spaneval/internal/model"
	"github.com/ppiankov/spaneval/internal/pipeline"
	"github.com/ppiankov/spaneval/internal/score"
)

var (
	gtPath      string
	outputPaths []string
	timeout     time.Duration
	noCache     bool
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score model outputs against ground truth",
	Long: `Score parses the model output of every essay in the ground truth, locates
each annotated span in the essay text and reports micro F1 per discourse type
at span and word level, together with parsing statistics.

Model outputs are read from CSV tables (essay_id, llm_output) or from OpenAI
Batch API result files (*.jsonl); several files may be given.

Example:
  spaneval score --gt test_dus.csv --outputs outputs.csv
  spaneval score --gt test_dus.csv --outputs batch_0.jsonl --outputs batch_1.jsonl --grammar dict
  spaneval score --gt test_dus.csv --outputs outputs.csv --format md --out results/`,
	Args: cobra.NoArgs,
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	defaults := model.DefaultConfig()
	flags := scoreCmd.Flags()

	flags.StringVar(&gtPath, "gt", "", "ground truth CSV (required)")
	flags.StringArrayVar(&outputPaths, "outputs", nil, "model output CSV or batch result JSONL (repeatable, required)")
	flags.DurationVar(&timeout, "timeout", 0, "abort the run after this duration (0 for no limit)")
	flags.BoolVar(&noCache, "no-cache", false, "disable the span location cache")

	flags.String("grammar", defaults.Parse.Grammar, "annotation grammar (bracket, tag, dict)")
	flags.String("duplicates", defaults.Parse.Duplicates, "duplicate span policy (keep-last, keep-first, keep-all)")
	flags.Bool("normalize-output", defaults.Parse.NormalizeOutput, "fold typographic quotes and non-breaking spaces in spans before locating")
	flags.Int("fuzzy-factor", defaults.Locate.FuzzyFactor, "span characters per allowed edit in approximate search")
	flags.Int("repair-tolerance", defaults.Locate.RepairTolerance, "initial offset slack when repairing raw ground truth")
	flags.Int("workers", defaults.Concurrency.Workers, "essays processed in parallel")
	flags.Int("partition-size", defaults.Concurrency.PartitionSize, "essays per partition (0 for one partition)")
	flags.String("out", defaults.Output.Dir, "output directory")
	flags.StringSlice("format", defaults.Output.Formats, "output formats (json, md, csv)")

	bind := map[string]string{
		"parse.grammar":              "grammar",
		"parse.duplicates":           "duplicates",
		"parse.normalize_output":     "normalize-output",
		"locate.fuzzy_factor":        "fuzzy-factor",
		"locate.repair_tolerance":    "repair-tolerance",
		"concurrency.workers":        "workers",
		"concurrency.partition_size": "partition-size",
		"output.dir":                 "out",
		"output.formats":             "format",
	}
	for key, flag := range bind {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}

	_ = scoreCmd.MarkFlagRequired("gt")
	_ = scoreCmd.MarkFlagRequired("outputs")
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if noCache {
		cfg.Cache.Enabled = false
	}

	logger, err := newLogger(cfg.Output.Verbose)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	p, err := pipeline.NewPipeline(cfg, logger)
	if err != nil {
		return err
	}
	runLogger := logger.With(zap.String("run_id", p.RunID()))

	gts, loadStats, err := dataset.NewGroundTruthLoader(runLogger.With(zap.String("stage", "load")), cfg.Locate.RepairTolerance).LoadFile(gtPath)
	if err != nil {
		return err
	}
	if loadStats.Unresolved > 0 {
		runLogger.Warn("ground truth units could not be aligned with their essay", zap.Int("count", loadStats.Unresolved))
	}

	outputs, failures, err := dataset.ReadOutputFiles(outputPaths...)
	if err != nil {
		return err
	}
	for _, f := range failures {
		runLogger.Warn("batch request without output",
			zap.String("essay_id", f.EssayID),
			zap.String("reason", f.Reason),
		)
	}

	eval, evalErr := p.Evaluate(ctx, gts, outputs)
	if evalErr != nil && !errors.Is(evalErr, score.ErrNothingToEvaluate) {
		return evalErr
	}

	renderer := pipeline.NewRenderer(cmd.OutOrStdout())
	written, err := renderer.RenderAll(eval, cfg.Output.Dir, cfg.Output.Formats)
	if err != nil {
		return err
	}
	renderer.RenderSummary(eval.Report)
	for _, path := range written {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
	}

	return evalErr
}
