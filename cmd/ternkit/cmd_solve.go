package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/ternkit/internal/format"
	"github.com/nvandessel/ternkit/internal/sudoku"
)

func newSolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve [puzzle]",
		Short: "Solve a 9x9 Sudoku puzzle",
		Long: `Solve a 9x9 Sudoku puzzle by constraint propagation and search.

The puzzle is an 81-character string in reading order, digits 1-9 for
clues and 0 or . for blanks. Whitespace is ignored, so multi-line grids
work. Give the puzzle as an argument or with --file.

The solver runs naked-singles and hidden-singles propagation to a
fixpoint, then searches minimum-candidate cells. The search is bounded
by solver.timeout from the configuration.

Examples:
  ternkit solve 00000001040000000002...
  ternkit solve --file puzzle.txt
  ternkit solve --file puzzle.txt --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			file, _ := cmd.Flags().GetString("file")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			var puzzle string
			switch {
			case len(args) == 1 && file != "":
				return fmt.Errorf("give the puzzle as an argument or with --file, not both")
			case len(args) == 1:
				puzzle = args[0]
			case file != "":
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read puzzle file: %w", err)
				}
				puzzle = string(data)
			default:
				return fmt.Errorf("no puzzle given; pass an 81-character grid or --file")
			}

			grid, err := sudoku.ParseGrid(puzzle)
			if err != nil {
				return err
			}
			clues := grid.Filled()

			ctx, cancel := context.WithTimeout(context.Background(), cfg.Solver.Timeout)
			defer cancel()

			start := time.Now()
			solveErr := sudoku.Solve(ctx, grid)
			elapsed := time.Since(start)

			if jsonOut {
				out := map[string]interface{}{
					"clues":      clues,
					"elapsed_ms": elapsed.Milliseconds(),
					"solved":     solveErr == nil,
				}
				if solveErr != nil {
					out["error"] = solveErr.Error()
				} else {
					result := grid.Result()
					out["solution"] = digitString(result)
					out["valid"] = sudoku.Validate(result)
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
			}

			if solveErr != nil {
				return solveErr
			}

			w := cmd.OutOrStdout()
			fmt.Fprint(w, grid.String())
			fmt.Fprintf(w, "\nSolved from %d clues in %s", clues, format.FmtDuration(elapsed))
			if !sudoku.Validate(grid.Result()) {
				fmt.Fprint(w, " (validation failed)")
			}
			fmt.Fprintln(w)
			return nil
		},
	}

	cmd.Flags().StringP("file", "f", "", "File containing the puzzle")

	return cmd
}

// digitString renders a result slice as an 81-character digit string.
func digitString(result []int) string {
	var b strings.Builder
	b.Grow(len(result))
	for _, d := range result {
		b.WriteByte('0' + byte(d))
	}
	return b.String()
}
