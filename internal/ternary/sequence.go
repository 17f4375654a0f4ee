package ternary

import (
	"fmt"
	"math"
)

// Op selects the operator for a sequence fold.
type Op int

const (
	OpAnd Op = iota
	OpOr
	OpEquiv
)

func (op Op) String() string {
	switch op {
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpEquiv:
		return "EQUIV"
	default:
		return fmt.Sprintf("Op(%d)", int(op))
	}
}

// absorbing returns the operator's absorbing element and whether one exists.
// Once the running value reaches it, no later operand can move it.
func (op Op) absorbing() (Value, bool) {
	switch op {
	case OpAnd:
		return False, true
	case OpOr:
		return True, true
	case OpEquiv:
		return Unknown, true
	default:
		return Unknown, false
	}
}

// EvalSequence folds states left to right under op, stopping early once the
// running value hits the operator's absorbing element. The returned
// confidence reflects the operands consumed before the stop; operands after
// the stop cannot change the value and are never inspected.
func EvalSequence(op Op, states []State) (State, error) {
	if len(states) == 0 {
		return State{Value: Unknown}, fmt.Errorf("ternary: empty sequence for %s: %w", op, ErrContract)
	}
	absorb, ok := op.absorbing()
	if !ok {
		return State{Value: Unknown}, fmt.Errorf("ternary: unknown operator %d: %w", int(op), ErrContract)
	}

	acc := NewState(states[0].Value, states[0].Confidence)
	if !acc.Value.Valid() {
		return State{Value: Unknown}, fmt.Errorf("ternary: operand 0 value %d: %w", int8(acc.Value), ErrContract)
	}
	for i, s := range states[1:] {
		if acc.Value == absorb {
			return acc, nil
		}
		if !s.Value.Valid() {
			return State{Value: Unknown}, fmt.Errorf("ternary: operand %d value %d: %w", i+1, int8(s.Value), ErrContract)
		}
		switch op {
		case OpAnd:
			acc = AndState(acc, s)
		case OpOr:
			acc = OrState(acc, s)
		case OpEquiv:
			acc = EquivState(acc, s)
		}
	}
	return acc, nil
}

// UnknownPersistence returns the probability that a fold over n operands
// drawn uniformly from {FALSE, UNKNOWN, TRUE} stays UNKNOWN under the
// Kleene operators: (2/3)^(n-1). Sequences of length zero or one persist
// with probability 1.
func UnknownPersistence(n int) float64 {
	if n <= 1 {
		return 1
	}
	return math.Pow(2.0/3.0, float64(n-1))
}
