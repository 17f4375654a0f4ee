package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/ternkit/internal/format"
	"github.com/nvandessel/ternkit/internal/sudoku"
)

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Batch-solve puzzles with a bounded worker pool",
		Long: `Batch-solve Sudoku puzzles with a bounded worker pool.

The puzzle file holds one 81-character puzzle per line; blank lines and
lines starting with # are skipped. Each puzzle gets its own grid and its
own timeout (solver.timeout), so a pathological puzzle cannot stall the
batch. Ctrl+C aborts the remaining puzzles cleanly.

Worker count comes from --workers, then solver.workers in the
configuration, then the CPU count.

Examples:
  ternkit bench --file puzzles.txt
  ternkit bench --file puzzles.txt --workers 4 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			file, _ := cmd.Flags().GetString("file")
			workersFlag, _ := cmd.Flags().GetInt("workers")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			puzzles, err := readPuzzleFile(file)
			if err != nil {
				return err
			}
			if len(puzzles) == 0 {
				return fmt.Errorf("no puzzles in %s", file)
			}

			workers := workersFlag
			if workers <= 0 {
				workers = cfg.Solver.Workers
			}
			if workers <= 0 {
				workers = runtime.NumCPU()
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			notifySignals(sigCh)
			defer signal.Stop(sigCh)

			go func() {
				select {
				case <-sigCh:
					cancel()
				case <-ctx.Done():
				}
			}()

			results := make([]benchResult, len(puzzles))
			start := time.Now()

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(workers)
			for i, line := range puzzles {
				i, line := i, line
				g.Go(func() error {
					solveCtx, solveCancel := context.WithTimeout(gctx, cfg.Solver.Timeout)
					defer solveCancel()
					results[i] = solveOne(solveCtx, line)
					results[i].Index = i
					return nil
				})
			}
			_ = g.Wait() // per-puzzle failures live in benchResult.Err
			total := time.Since(start)

			solved := 0
			for _, r := range results {
				if r.Status == "solved" {
					solved++
				}
			}

			if jsonOut {
				type jsonResult struct {
					Index     int    `json:"index"`
					Clues     int    `json:"clues"`
					Status    string `json:"status"`
					Valid     bool   `json:"valid"`
					ElapsedMS int64  `json:"elapsed_ms"`
					Error     string `json:"error,omitempty"`
				}
				jr := make([]jsonResult, len(results))
				for i, r := range results {
					jr[i] = jsonResult{
						Index:     r.Index,
						Clues:     r.Clues,
						Status:    r.Status,
						Valid:     r.Valid,
						ElapsedMS: r.Elapsed.Milliseconds(),
					}
					if r.Err != nil {
						jr[i].Error = r.Err.Error()
					}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"puzzles":  len(puzzles),
					"solved":   solved,
					"workers":  workers,
					"total_ms": total.Milliseconds(),
					"results":  jr,
				})
			}

			out := cmd.OutOrStdout()
			tbl := format.NewTable(tableMode(cmd))
			tbl.Header("#", "Clues", "Status", "Time")
			for _, r := range results {
				status := r.Status
				if r.Status == "solved" && !r.Valid {
					status = "solved (validation failed)"
				}
				tbl.Row(r.Index+1, r.Clues, status, format.FmtDuration(r.Elapsed))
			}
			tbl.Footer("", "", fmt.Sprintf("%d/%d", solved, len(results)), format.FmtDuration(total))
			fmt.Fprintln(out, tbl.String())
			fmt.Fprintf(out, "Solved %d of %d puzzles (%s) with %d workers in %s\n",
				solved, len(puzzles), format.Percent(float64(solved)/float64(len(puzzles))),
				workers, format.FmtDuration(total))
			return nil
		},
	}

	cmd.Flags().StringP("file", "f", "", "File with one puzzle per line")
	cmd.Flags().IntP("workers", "w", 0, "Concurrent solvers (0 = solver.workers, then CPU count)")
	cmd.MarkFlagRequired("file")

	return cmd
}

// benchResult is the outcome of one puzzle in a bench run.
type benchResult struct {
	Index   int
	Clues   int
	Status  string // solved, unsolvable, invalid, aborted, error
	Valid   bool
	Elapsed time.Duration
	Err     error
}

// solveOne parses and solves a single puzzle line. Every call builds its
// own grid, so pool workers never share mutable state.
func solveOne(ctx context.Context, line string) benchResult {
	grid, err := sudoku.ParseGrid(line)
	if err != nil {
		return benchResult{Status: "invalid", Err: err}
	}

	res := benchResult{Clues: grid.Filled()}
	start := time.Now()
	err = sudoku.Solve(ctx, grid)
	res.Elapsed = time.Since(start)

	switch {
	case err == nil:
		res.Status = "solved"
		res.Valid = sudoku.Validate(grid.Result())
	case errors.Is(err, sudoku.ErrResources):
		res.Status = "aborted"
		res.Err = err
	case errors.Is(err, sudoku.ErrUnsolvable):
		res.Status = "unsolvable"
		res.Err = err
	default:
		res.Status = "error"
		res.Err = err
	}
	return res
}

// readPuzzleFile loads one puzzle per line, skipping blank lines and
// # comments.
func readPuzzleFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read puzzle file: %w", err)
	}
	var puzzles []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		puzzles = append(puzzles, line)
	}
	return puzzles, nil
}
