package sudoku

import (
	"fmt"
	"math/bits"
)

// Outcome is the result of a propagation run.
type Outcome int

const (
	// OutcomeFixpoint means a full sweep changed nothing and open cells
	// remain.
	OutcomeFixpoint Outcome = iota
	// OutcomeSolved means every cell holds a digit.
	OutcomeSolved
	// OutcomeContradiction means propagation proved the grid inconsistent.
	OutcomeContradiction
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFixpoint:
		return "fixpoint"
	case OutcomeSolved:
		return "solved"
	case OutcomeContradiction:
		return "contradiction"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// groups lists the cell indices of each constraint group: rows 0-8,
// columns 9-17, boxes 18-26.
var groups [3 * GroupSize][GroupSize]int

func init() {
	for i := 0; i < GroupSize; i++ {
		for j := 0; j < GroupSize; j++ {
			groups[i][j] = i*GroupSize + j
			groups[GroupSize+i][j] = j*GroupSize + i
			row := (i/3)*3 + j/3
			col := (i%3)*3 + j%3
			groups[2*GroupSize+i][j] = row*GroupSize + col
		}
	}
}

// groupUsed returns the digit usage mask of group gi.
func (g *Grid) groupUsed(gi int) uint16 {
	switch {
	case gi < GroupSize:
		return g.rowUsed[gi]
	case gi < 2*GroupSize:
		return g.colUsed[gi-GroupSize]
	default:
		return g.boxUsed[gi-2*GroupSize]
	}
}

// Propagate runs naked-single and hidden-single sweeps to fixpoint. It
// stops as soon as the grid is solved or a placement contradicts, and all
// mask changes go through Place and Eliminate.
func (g *Grid) Propagate() Outcome {
	for {
		changed := false

		// Naked singles: cells down to one candidate take it.
		for cell := 0; cell < Cells; cell++ {
			if g.digits[cell] != 0 {
				continue
			}
			mask := g.cells[cell]
			if bits.OnesCount16(mask) != 1 {
				continue
			}
			if err := g.Place(cell, bits.TrailingZeros16(mask)+1); err != nil {
				return OutcomeContradiction
			}
			changed = true
		}
		if g.filled == Cells {
			return OutcomeSolved
		}

		// Hidden singles: a digit with exactly one home in a group moves in.
		for gi := range groups {
			used := g.groupUsed(gi)
			for digit := 1; digit <= 9; digit++ {
				bit := uint16(1) << (digit - 1)
				if used&bit != 0 {
					continue
				}
				count, home := 0, -1
				for _, cell := range groups[gi] {
					if g.digits[cell] == 0 && g.cells[cell]&bit != 0 {
						count++
						home = cell
					}
				}
				if count == 1 {
					if err := g.Place(home, digit); err != nil {
						return OutcomeContradiction
					}
					used = g.groupUsed(gi)
					changed = true
				}
			}
		}
		if g.filled == Cells {
			return OutcomeSolved
		}
		if !changed {
			return OutcomeFixpoint
		}
	}
}
