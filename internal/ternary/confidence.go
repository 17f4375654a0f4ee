package ternary

import "math"

// Clamp forces a confidence into [0, 1]. NaN clamps to 0 so that corrupt
// upstream arithmetic degrades to "no information" instead of spreading.
func Clamp(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// AndConfidence combines conjunction operand confidences multiplicatively:
// every operand must hold, so belief compounds downward.
func AndConfidence(confs ...float64) float64 {
	p := 1.0
	for _, c := range confs {
		p *= Clamp(c)
	}
	return Clamp(p)
}

// OrConfidence combines disjunction operand confidences by inclusion-
// exclusion: 1 - prod(1 - c_i). One strong operand dominates.
func OrConfidence(confs ...float64) float64 {
	p := 1.0
	for _, c := range confs {
		p *= 1 - Clamp(c)
	}
	return Clamp(1 - p)
}

// NotConfidence passes confidence through unchanged. Negating a belief does
// not weaken it.
func NotConfidence(c float64) float64 {
	return Clamp(c)
}

// EquivConfidence is the geometric mean of the operand confidences. The
// mean is a heuristic: it keeps the result symmetric and zero whenever
// either side carries no information, but it is not derived from an
// independence model the way the conjunction and disjunction rules are.
func EquivConfidence(a, b float64) float64 {
	return Clamp(math.Sqrt(Clamp(a) * Clamp(b)))
}

// ImplyConfidence combines implication operand confidences with the
// disjunction rule, mirroring Imply's definition as Or(Not(a), b).
func ImplyConfidence(a, b float64) float64 {
	return OrConfidence(a, b)
}

// State pairs a value with the caller's confidence in it.
type State struct {
	Value      Value
	Confidence float64
}

// NewState builds a State with the confidence clamped to [0, 1].
func NewState(v Value, confidence float64) State {
	return State{Value: v, Confidence: Clamp(confidence)}
}

// AndState evaluates a AND b with confidence propagation.
func AndState(a, b State) State {
	return State{And(a.Value, b.Value), AndConfidence(a.Confidence, b.Confidence)}
}

// OrState evaluates a OR b with confidence propagation.
func OrState(a, b State) State {
	return State{Or(a.Value, b.Value), OrConfidence(a.Confidence, b.Confidence)}
}

// NotState evaluates NOT a with confidence propagation.
func NotState(a State) State {
	return State{Not(a.Value), NotConfidence(a.Confidence)}
}

// EquivState evaluates a EQUIV b with confidence propagation.
func EquivState(a, b State) State {
	return State{Equiv(a.Value, b.Value), EquivConfidence(a.Confidence, b.Confidence)}
}

// ImplyState evaluates a IMPLY b with confidence propagation.
func ImplyState(a, b State) State {
	return State{Imply(a.Value, b.Value), ImplyConfidence(a.Confidence, b.Confidence)}
}
