package control

import (
	"fmt"
	"math"

	"github.com/nvandessel/ternkit/internal/constants"
	"github.com/nvandessel/ternkit/internal/ternary"
)

// OutputParams shape one mode's piecewise-linear confidence-to-output map,
// its output range, and its per-tick slew limit.
type OutputParams struct {
	// CLow and CHigh bound the dead band. Confidence inside [CLow, CHigh]
	// commands UNominal; below CLow the output ramps toward UMax, above
	// CHigh it ramps toward UMin.
	CLow  float64
	CHigh float64

	// UMin, UNominal, UMax are the output range and resting point.
	UMin     float64
	UNominal float64
	UMax     float64

	// GainLow scales the ramp below CLow, GainHigh the ramp above CHigh.
	GainLow  float64
	GainHigh float64

	// RateLimit bounds the per-tick output change.
	RateLimit float64
}

// Validate rejects maps that cannot produce a well-defined output.
func (p OutputParams) Validate() error {
	if p.CLow < 0 || p.CHigh > 1 || p.CLow > p.CHigh {
		return fmt.Errorf("confidence band [%.3f, %.3f] invalid: %w", p.CLow, p.CHigh, ternary.ErrContract)
	}
	if p.UMin > p.UNominal || p.UNominal > p.UMax {
		return fmt.Errorf("output range min=%.3f nominal=%.3f max=%.3f not ordered: %w", p.UMin, p.UNominal, p.UMax, ternary.ErrContract)
	}
	if p.GainLow < 0 || p.GainHigh < 0 {
		return fmt.Errorf("gains %.3f/%.3f must be non-negative: %w", p.GainLow, p.GainHigh, ternary.ErrContract)
	}
	if p.RateLimit < 0 {
		return fmt.Errorf("rate limit %.3f must be non-negative: %w", p.RateLimit, ternary.ErrContract)
	}
	return nil
}

// computeOutput maps a fused confidence through the piecewise-linear curve:
// low confidence commands corrective action toward UMax, high confidence
// relaxes toward UMin, the band between rests at UNominal. The result is
// clamped to [UMin, UMax].
func computeOutput(p OutputParams, confidence float64) float64 {
	var u float64
	switch {
	case confidence < p.CLow:
		u = p.UNominal + p.GainLow*(p.CLow-confidence)*(p.UMax-p.UNominal)
	case confidence > p.CHigh:
		u = p.UNominal - p.GainHigh*(confidence-p.CHigh)*(p.UNominal-p.UMin)
	default:
		u = p.UNominal
	}
	return clamp(u, p.UMin, p.UMax)
}

// saturated reports whether the mapped output sits against either bound.
func saturated(u float64, p OutputParams) bool {
	return math.Abs(u-p.UMin) < constants.SaturationEpsilon ||
		math.Abs(u-p.UMax) < constants.SaturationEpsilon
}

// rateLimit slews the output toward raw by at most limit per tick.
func rateLimit(raw, prev, limit float64) float64 {
	delta := raw - prev
	if math.Abs(delta) > limit {
		return prev + math.Copysign(limit, delta)
	}
	return raw
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
