package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/spaneval/internal/dataset"
	"github.com/ppiankov/spaneval/internal/label"
	"github.com/ppiankov/spaneval/internal/locate"
	"github.com/ppiankov/spaneval/internal/model"
	"github.com/ppiankov/spaneval/internal/parse"
)

var (
	parseGrammar    string
	parseDuplicates string
	parseEssayPath  string
	parseFactor     int

	formatGrammar string
	formatGTPath  string
	formatEssayID string
)

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse [output-file]",
	Short: "Parse one model output and print its annotated spans",
	Long: `Parse reads a single model output from a file, or from stdin when no file is
given, and prints the (span, label) pairs the selected grammar extracts.

With --essay the spans are also located in the essay text and their rune
offsets and match source are printed.

Example:
  spaneval parse output.txt --grammar bracket
  cat output.txt | spaneval parse --grammar dict --essay essay.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

// formatCmd represents the format command
var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Render the ground truth of an essay in an annotation grammar",
	Long: `Format renders the ground truth units of one essay the way a model is
expected to annotate them. The result parses back to the same units and is
used to build few-shot examples and to check a grammar end to end.

Example:
  spaneval format --gt test_dus.csv --essay-id 3A4E5F --grammar tag`,
	Args: cobra.NoArgs,
	RunE: runFormat,
}

func init() {
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(formatCmd)

	defaults := model.DefaultConfig()

	parseCmd.Flags().StringVar(&parseGrammar, "grammar", defaults.Parse.Grammar, "annotation grammar (bracket, tag, dict)")
	parseCmd.Flags().StringVar(&parseDuplicates, "duplicates", defaults.Parse.Duplicates, "duplicate span policy (keep-last, keep-first, keep-all)")
	parseCmd.Flags().StringVar(&parseEssayPath, "essay", "", "essay text file to locate spans in")
	parseCmd.Flags().IntVar(&parseFactor, "fuzzy-factor", defaults.Locate.FuzzyFactor, "span characters per allowed edit in approximate search")

	formatCmd.Flags().StringVar(&formatGrammar, "grammar", defaults.Parse.Grammar, "annotation grammar (bracket, tag, dict)")
	formatCmd.Flags().StringVar(&formatGTPath, "gt", "", "ground truth CSV (required)")
	formatCmd.Flags().StringVar(&formatEssayID, "essay-id", "", "essay to render (required)")
	_ = formatCmd.MarkFlagRequired("gt")
	_ = formatCmd.MarkFlagRequired("essay-id")
}

func runParse(cmd *cobra.Command, args []string) error {
	policy, err := parse.ParsePolicy(parseDuplicates)
	if err != nil {
		return err
	}
	parser, err := parse.ForGrammar(parseGrammar, policy)
	if err != nil {
		return err
	}

	output, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	pairs, err := parser.Parse(output)
	if err != nil {
		return err
	}

	var essay string
	if parseEssayPath != "" {
		data, err := os.ReadFile(parseEssayPath)
		if err != nil {
			return fmt.Errorf("read essay: %w", err)
		}
		essay = string(data)
	}

	return printPairs(cmd.OutOrStdout(), pairs, essay, locate.NewLocator(parseFactor))
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read output: %w", err)
	}
	return string(data), nil
}

// printPairs writes one row per pair; with an essay each span is located too
func printPairs(w io.Writer, pairs []parse.Pair, essay string, locator locate.SpanLocator) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if essay == "" {
		fmt.Fprintln(tw, "LABEL\tRAW LABEL\tSPAN")
		for _, p := range pairs {
			fmt.Fprintf(tw, "%s\t%s\t%q\n", displayLabel(label.Parse(p.Label)), p.Label, p.Span)
		}
		return tw.Flush()
	}

	fmt.Fprintln(tw, "LABEL\tSTART\tEND\tSOURCE\tSPAN")
	for _, p := range pairs {
		l := displayLabel(label.Parse(p.Label))
		m, err := locator.Locate(p.Span, essay)
		var amb *locate.AmbiguousError
		switch {
		case errors.As(err, &amb):
			fmt.Fprintf(tw, "%s\t-\t-\tambiguous (%d)\t%q\n", l, amb.Candidates, p.Span)
		case err != nil:
			fmt.Fprintf(tw, "%s\t-\t-\t%s\t%q\n", l, model.SourceUnmatched, p.Span)
		default:
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%q\n", l, m.Start, m.End, m.Source, p.Span)
		}
	}
	return tw.Flush()
}

func displayLabel(l model.Label) string {
	if l == model.LabelNone {
		return "?"
	}
	return l.String()
}

func runFormat(cmd *cobra.Command, args []string) error {
	defaults := model.DefaultConfig()
	loader := dataset.NewGroundTruthLoader(zap.NewNop(), defaults.Locate.RepairTolerance)
	gts, _, err := loader.LoadFile(formatGTPath)
	if err != nil {
		return err
	}

	var essay string
	var units []model.DiscourseUnit
	for _, gt := range gts {
		if gt.EssayID != formatEssayID {
			continue
		}
		essay = gt.EssayText
		units = append(units, gt.DiscourseUnit)
	}
	if len(units) == 0 {
		return fmt.Errorf("essay %q has no ground truth units in %s", formatEssayID, formatGTPath)
	}

	formatted, err := parse.Format(formatGrammar, essay, units)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatted)
	return nil
}
