// Package ternary implements three-valued Kleene logic with per-value
// confidence. Values are encoded as False=-1, Unknown=0, True=+1, and the
// encoding is load-bearing: conjunction is integer min, disjunction is
// integer max, negation is arithmetic negation, and equivalence is the
// arithmetic product. Confidence lives in [0, 1] and combines under the
// per-operator rules in confidence.go.
package ternary

import (
	"errors"
	"fmt"
)

// ErrContract marks contract violations: inputs the kernel refuses to
// interpret rather than silently repair, such as encodings outside
// {-1, 0, +1} or cell indices outside a grid. Callers fix their inputs;
// nothing is recovered internally.
var ErrContract = errors.New("contract violation")

// Value is a single Kleene logic value.
type Value int8

const (
	False   Value = -1
	Unknown Value = 0
	True    Value = 1
)

// Valid reports whether v uses the canonical encoding.
func (v Value) Valid() bool {
	return v >= False && v <= True
}

func (v Value) String() string {
	switch v {
	case False:
		return "FALSE"
	case Unknown:
		return "UNKNOWN"
	case True:
		return "TRUE"
	default:
		return fmt.Sprintf("Value(%d)", int8(v))
	}
}

// FromInt converts an integer encoding to a Value, rejecting anything
// outside {-1, 0, +1}.
func FromInt(n int) (Value, error) {
	if n < -1 || n > 1 {
		return Unknown, fmt.Errorf("ternary: value %d outside {-1, 0, +1}: %w", n, ErrContract)
	}
	return Value(n), nil
}

// And is Kleene conjunction: the minimum of the two encodings. False
// absorbs; Unknown absorbs everything but False.
func And(a, b Value) Value {
	if a < b {
		return a
	}
	return b
}

// Or is Kleene disjunction: the maximum of the two encodings. True absorbs.
func Or(a, b Value) Value {
	if a > b {
		return a
	}
	return b
}

// Not negates a value. Unknown is a fixed point.
func Not(a Value) Value {
	return -a
}

// Equiv is Kleene equivalence: the arithmetic product of the encodings.
// Unknown on either side yields Unknown.
func Equiv(a, b Value) Value {
	return a * b
}

// Imply is material implication, defined as Or(Not(a), b).
func Imply(a, b Value) Value {
	return Or(Not(a), b)
}
