// Package sudoku implements a bit-packed three-valued cell grid with
// constraint propagation and a backtracking solver on top.
//
// Each of the 81 cells carries a 9-bit candidate mask; bit d-1 set means
// digit d is still possible. A cell is the grid's three-valued unit: a
// placed digit is TRUE for that digit and FALSE for the rest, an open
// candidate is UNKNOWN. Place and Eliminate are the only two operations
// that move a candidate between those states; the propagator and solver
// are built strictly on top of them.
package sudoku

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/nvandessel/ternkit/internal/ternary"
)

const (
	// Cells is the number of cells in the grid.
	Cells = 81
	// GroupSize is the number of cells per row, column, or box.
	GroupSize = 9

	fullMask = 0x1FF
)

// ErrContradiction reports that the grid became inconsistent: some cell
// lost its last candidate, or a placement violated a group constraint.
// The solver recovers from it by backtracking; callers see it only when
// the inconsistency is already present in their inputs.
var ErrContradiction = errors.New("grid contradiction")

// Grid is the bit-packed candidate grid. The zero value is not usable;
// construct with NewGrid or BuildGrid. Grid is a plain value: assignment
// snapshots it and assigning back restores it, which is exactly how the
// solver backtracks.
type Grid struct {
	cells   [Cells]uint16
	digits  [Cells]uint8
	rowUsed [GroupSize]uint16
	colUsed [GroupSize]uint16
	boxUsed [GroupSize]uint16
	filled  int
}

// NewGrid returns an empty grid with every digit possible in every cell.
func NewGrid() *Grid {
	g := &Grid{}
	for i := range g.cells {
		g.cells[i] = fullMask
	}
	return g
}

// BuildGrid places the given clues on an empty grid, 0 meaning blank.
// Clues inconsistent with each other surface as ErrContradiction; anything
// outside 0..9 or a wrong-sized slice is ErrContract. Clues that earlier
// placements already forced are accepted when they agree.
func BuildGrid(clues []int) (*Grid, error) {
	if len(clues) != Cells {
		return nil, fmt.Errorf("sudoku: %d clues, want %d: %w", len(clues), Cells, ternary.ErrContract)
	}
	g := NewGrid()
	for cell, d := range clues {
		if d == 0 {
			continue
		}
		if d < 1 || d > 9 {
			return nil, fmt.Errorf("sudoku: clue %d at cell %d outside 0..9: %w", d, cell, ternary.ErrContract)
		}
		if int(g.digits[cell]) == d {
			continue
		}
		if err := g.Place(cell, d); err != nil {
			return nil, fmt.Errorf("sudoku: clue %d at cell %d: %w", d, cell, err)
		}
	}
	return g, nil
}

// ParseGrid builds a grid from an 81-character string in reading order.
// Digits 1..9 are clues; '0' and '.' are blanks; whitespace is ignored.
func ParseGrid(s string) (*Grid, error) {
	clues := make([]int, 0, Cells)
	for _, r := range s {
		switch {
		case r == '.' || r == '0':
			clues = append(clues, 0)
		case r >= '1' && r <= '9':
			clues = append(clues, int(r-'0'))
		case r == ' ' || r == '\n' || r == '\t' || r == '\r':
		default:
			return nil, fmt.Errorf("sudoku: unexpected character %q: %w", r, ternary.ErrContract)
		}
	}
	if len(clues) != Cells {
		return nil, fmt.Errorf("sudoku: %d cells in puzzle string, want %d: %w", len(clues), Cells, ternary.ErrContract)
	}
	return BuildGrid(clues)
}

// Place assigns digit to cell and eliminates it from all peers. It demands
// an unassigned cell, the digit still a candidate there, and the digit
// unused in the cell's row, column, and box; violations on a live grid are
// contradictions. Out-of-range cell or digit is a contract violation.
func (g *Grid) Place(cell, digit int) error {
	if cell < 0 || cell >= Cells {
		return fmt.Errorf("sudoku: cell %d outside grid: %w", cell, ternary.ErrContract)
	}
	if digit < 1 || digit > 9 {
		return fmt.Errorf("sudoku: digit %d outside 1..9: %w", digit, ternary.ErrContract)
	}
	bit := uint16(1) << (digit - 1)
	row, col := cell/GroupSize, cell%GroupSize
	box := boxIndex(row, col)

	if g.digits[cell] != 0 {
		return fmt.Errorf("sudoku: cell %d already holds %d: %w", cell, g.digits[cell], ErrContradiction)
	}
	if g.cells[cell]&bit == 0 {
		return fmt.Errorf("sudoku: digit %d eliminated from cell %d: %w", digit, cell, ErrContradiction)
	}
	if g.rowUsed[row]&bit != 0 || g.colUsed[col]&bit != 0 || g.boxUsed[box]&bit != 0 {
		return fmt.Errorf("sudoku: digit %d already used in a group of cell %d: %w", digit, cell, ErrContradiction)
	}

	g.digits[cell] = uint8(digit)
	g.cells[cell] = bit
	g.rowUsed[row] |= bit
	g.colUsed[col] |= bit
	g.boxUsed[box] |= bit
	g.filled++

	// Eliminate from peers. Assigned cells no-op, so the cell itself and
	// the row/column/box overlaps need no special casing.
	for i := 0; i < GroupSize; i++ {
		if err := g.Eliminate(row*GroupSize+i, digit); err != nil {
			return err
		}
		if err := g.Eliminate(i*GroupSize+col, digit); err != nil {
			return err
		}
	}
	baseRow, baseCol := (row/3)*3, (col/3)*3
	for dr := 0; dr < 3; dr++ {
		for dc := 0; dc < 3; dc++ {
			if err := g.Eliminate((baseRow+dr)*GroupSize+baseCol+dc, digit); err != nil {
				return err
			}
		}
	}
	return nil
}

// Eliminate removes digit from cell's candidates. It is idempotent: an
// assigned cell or an already-cleared bit is a no-op. Emptying a mask is a
// contradiction; narrowing it to one candidate places that candidate
// immediately.
func (g *Grid) Eliminate(cell, digit int) error {
	if cell < 0 || cell >= Cells {
		return fmt.Errorf("sudoku: cell %d outside grid: %w", cell, ternary.ErrContract)
	}
	if digit < 1 || digit > 9 {
		return fmt.Errorf("sudoku: digit %d outside 1..9: %w", digit, ternary.ErrContract)
	}
	if g.digits[cell] != 0 {
		return nil
	}
	bit := uint16(1) << (digit - 1)
	if g.cells[cell]&bit == 0 {
		return nil
	}
	g.cells[cell] &^= bit
	rest := g.cells[cell]
	if rest == 0 {
		return fmt.Errorf("sudoku: cell %d has no candidates left: %w", cell, ErrContradiction)
	}
	if bits.OnesCount16(rest) == 1 {
		return g.Place(cell, bits.TrailingZeros16(rest)+1)
	}
	return nil
}

// Filled returns how many cells hold a digit.
func (g *Grid) Filled() int {
	return g.filled
}

// Solved reports whether every cell holds a digit.
func (g *Grid) Solved() bool {
	return g.filled == Cells
}

// Result returns the grid contents in reading order, 0 for open cells.
func (g *Grid) Result() []int {
	out := make([]int, Cells)
	for i, d := range g.digits {
		out[i] = int(d)
	}
	return out
}

// Candidates returns the number of digits still possible in cell.
func (g *Grid) Candidates(cell int) (int, error) {
	if cell < 0 || cell >= Cells {
		return 0, fmt.Errorf("sudoku: cell %d outside grid: %w", cell, ternary.ErrContract)
	}
	return bits.OnesCount16(g.cells[cell]), nil
}

// CandidateState is the three-valued view of one (cell, digit) pair: TRUE
// when the digit is placed there, FALSE when it is impossible, UNKNOWN
// while it remains an open candidate.
func (g *Grid) CandidateState(cell, digit int) (ternary.Value, error) {
	if cell < 0 || cell >= Cells {
		return ternary.Unknown, fmt.Errorf("sudoku: cell %d outside grid: %w", cell, ternary.ErrContract)
	}
	if digit < 1 || digit > 9 {
		return ternary.Unknown, fmt.Errorf("sudoku: digit %d outside 1..9: %w", digit, ternary.ErrContract)
	}
	bit := uint16(1) << (digit - 1)
	if g.cells[cell]&bit == 0 {
		return ternary.False, nil
	}
	if g.digits[cell] != 0 {
		return ternary.True, nil
	}
	return ternary.Unknown, nil
}

// String renders the grid with '.' for open cells and light box spacing.
func (g *Grid) String() string {
	var b strings.Builder
	for row := 0; row < GroupSize; row++ {
		if row > 0 && row%3 == 0 {
			b.WriteString("\n")
		}
		for col := 0; col < GroupSize; col++ {
			if col > 0 && col%3 == 0 {
				b.WriteByte(' ')
			}
			d := g.digits[row*GroupSize+col]
			if d == 0 {
				b.WriteByte('.')
			} else {
				b.WriteByte('0' + d)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func boxIndex(row, col int) int {
	return (row/3)*3 + col/3
}
