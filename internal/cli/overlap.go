package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ppiankov/spaneval/internal/locate"
)

// overlapCmd represents the overlap command
var overlapCmd = &cobra.Command{
	Use:   "overlap <start1> <end1> <start2> <end2>",
	Short: "Print the overlap of two half-open intervals",
	Long: `Overlap prints the intersection of [start1, end1) and [start2, end2),
or "none" when the intervals do not share a position. Argument order does not
matter.

Example:
  spaneval overlap 0 10 5 15`,
	Args: cobra.ExactArgs(4),
	RunE: runOverlap,
}

func init() {
	rootCmd.AddCommand(overlapCmd)
}

func runOverlap(cmd *cobra.Command, args []string) error {
	var bounds [4]int
	for i, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid bound %q: %w", arg, err)
		}
		bounds[i] = n
	}

	iv, ok := locate.CheckOverlap(bounds[0], bounds[1], bounds[2], bounds[3])
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "none")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[%d, %d)\n", iv.Start, iv.End)
	return nil
}
