package sudoku

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	"github.com/nvandessel/ternkit/internal/ternary"
)

// ErrUnsolvable reports that the search space is exhausted: no assignment
// of the open cells satisfies the constraints.
var ErrUnsolvable = errors.New("puzzle unsolvable")

// ErrResources reports that the search was cut short by its context before
// reaching a verdict.
var ErrResources = errors.New("search resources exhausted")

// Solve completes the grid in place by propagation and depth-first search
// over minimum-candidate cells. On ErrUnsolvable or ErrResources the grid
// is restored to its pre-call state; no partial assignment leaks. The
// context is checked on every search node, so cancellation and deadlines
// bound the search.
func Solve(ctx context.Context, g *Grid) error {
	if g == nil {
		return fmt.Errorf("sudoku: nil grid: %w", ternary.ErrContract)
	}
	snapshot := *g
	if err := solve(ctx, g); err != nil {
		*g = snapshot
		return err
	}
	return nil
}

func solve(ctx context.Context, g *Grid) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("sudoku: search aborted: %w: %w", ErrResources, err)
	}

	switch g.Propagate() {
	case OutcomeSolved:
		return nil
	case OutcomeContradiction:
		return ErrUnsolvable
	}

	cell := g.searchCell()
	mask := g.cells[cell]
	for digit := 1; digit <= 9; digit++ {
		if mask&(uint16(1)<<(digit-1)) == 0 {
			continue
		}
		snapshot := *g
		if err := g.Place(cell, digit); err == nil {
			err = solve(ctx, g)
			if err == nil {
				return nil
			}
			if errors.Is(err, ErrResources) {
				*g = snapshot
				return err
			}
		}
		*g = snapshot
	}
	return ErrUnsolvable
}

// searchCell picks the open cell with the fewest candidates, lowest index
// winning ties. Propagation has already taken every single-candidate cell,
// so two candidates is the floor and an early exit.
func (g *Grid) searchCell() int {
	best, bestCount := -1, GroupSize+1
	for cell := 0; cell < Cells; cell++ {
		if g.digits[cell] != 0 {
			continue
		}
		n := bits.OnesCount16(g.cells[cell])
		if n < bestCount {
			best, bestCount = cell, n
			if n == 2 {
				break
			}
		}
	}
	return best
}

// Validate checks a completed assignment for row, column, and box
// uniqueness. Wrong-sized input, blanks, and out-of-range digits fail.
func Validate(result []int) bool {
	if len(result) != Cells {
		return false
	}
	var rows, cols, boxes [GroupSize]uint16
	for cell, d := range result {
		if d < 1 || d > 9 {
			return false
		}
		bit := uint16(1) << (d - 1)
		row, col := cell/GroupSize, cell%GroupSize
		box := boxIndex(row, col)
		if rows[row]&bit != 0 || cols[col]&bit != 0 || boxes[box]&bit != 0 {
			return false
		}
		rows[row] |= bit
		cols[col] |= bit
		boxes[box] |= bit
	}
	return true
}
