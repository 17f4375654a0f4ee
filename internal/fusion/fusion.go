// Package fusion implements variance-weighted fusion of confident ternary
// sensor readings. A Fuser folds a reading set into one (value, confidence)
// pair: values average under weights that discount noisy sensors,
// confidences combine by inclusion-exclusion, and the result routes through
// the kernel's adaptive threshold before it reaches the caller.
package fusion

import (
	"math"

	"github.com/nvandessel/ternkit/internal/constants"
	"github.com/nvandessel/ternkit/internal/kernel"
	"github.com/nvandessel/ternkit/internal/ternary"
)

// Reading is one sensor sample for a single tick.
type Reading struct {
	Value      ternary.Value
	Confidence float64
	Variance   float64
}

// Config tunes a Fuser.
type Config struct {
	// FastFirstTrue stops the scan at the first TRUE reading whose
	// confidence clears the adaptive threshold. The fused confidence then
	// covers only the readings seen, and the pass skips threshold coercion,
	// outcome observation, and variance drift, so results differ from the
	// exact scan. Off by default.
	FastFirstTrue bool

	// Epsilon guards the consensus division when every reading carries zero
	// confidence.
	Epsilon float64
}

// DefaultConfig returns the exact-scan configuration.
func DefaultConfig() Config {
	return Config{
		FastFirstTrue: false,
		Epsilon:       constants.WeightSumEpsilon,
	}
}

// Result is the outcome of one fusion pass.
type Result struct {
	Value      ternary.Value
	Confidence float64

	// MeanVariance is the mean sensor variance over the readings consumed.
	MeanVariance float64

	// Readings is how many readings were consumed; smaller than the input
	// when the fast path stopped early.
	Readings int
}

// Fuser fuses reading sets against a kernel context. Safe for concurrent
// use when the underlying context is shared.
type Fuser struct {
	kctx *kernel.Context
	cfg  Config
}

// New builds a Fuser. A nil context selects the process default kernel.
func New(kctx *kernel.Context, cfg Config) *Fuser {
	if kctx == nil {
		kctx = kernel.Default()
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = constants.WeightSumEpsilon
	}
	return &Fuser{kctx: kctx, cfg: cfg}
}

// Kernel returns the context this Fuser adapts.
func (f *Fuser) Kernel() *kernel.Context {
	return f.kctx
}

// Fuse folds the readings into a single decision. An empty set fuses to
// UNKNOWN with zero confidence. Confidences are clamped to [0, 1] and
// variances to non-negative on the way in.
func (f *Fuser) Fuse(readings []Reading) Result {
	n := len(readings)
	if n == 0 {
		return Result{Value: ternary.Unknown}
	}

	theta := f.kctx.Theta()
	var weightedSum, weightSum, varianceSum float64
	confProduct := 1.0 // prod(1 - c_i), for inclusion-exclusion
	confGeoProduct := 1.0

	for i, r := range readings {
		conf := ternary.Clamp(r.Confidence)
		variance := sanitizeVariance(r.Variance)
		w := f.kctx.VarianceWeight(variance)

		weightedSum += float64(r.Value) * w * conf
		weightSum += conf
		varianceSum += variance
		confProduct *= 1 - conf
		confGeoProduct *= conf

		if f.cfg.FastFirstTrue && r.Value == ternary.True && conf >= theta {
			seen := i + 1
			return Result{
				Value:        ternary.True,
				Confidence:   ternary.Clamp(1 - confProduct),
				MeanVariance: varianceSum / float64(seen),
				Readings:     seen,
			}
		}
	}

	consensus := weightedSum / math.Max(weightSum, f.cfg.Epsilon)
	value := quantize(consensus)

	confidence := 1 - confProduct
	if value == ternary.Unknown {
		// Disagreement damping: the geometric mean of the inputs scaled by
		// how far consensus sits from either band edge.
		geo := math.Pow(confGeoProduct, 1/float64(n))
		confidence = geo * (1 - math.Abs(consensus)/constants.ConsensusBand)
	}
	confidence = ternary.Clamp(confidence)

	meanVariance := varianceSum / float64(n)
	coerced := f.kctx.Coerce(value, confidence)
	f.kctx.Observe(confidence > 0.5)
	f.kctx.NoteMeanVariance(meanVariance)

	return Result{
		Value:        coerced,
		Confidence:   confidence,
		MeanVariance: meanVariance,
		Readings:     n,
	}
}

// quantize maps weighted consensus back to a ternary value. The open band
// (-0.5, +0.5) reads as UNKNOWN.
func quantize(consensus float64) ternary.Value {
	switch {
	case consensus > constants.ConsensusBand:
		return ternary.True
	case consensus < -constants.ConsensusBand:
		return ternary.False
	default:
		return ternary.Unknown
	}
}

// sanitizeVariance clamps variance to non-negative and absorbs NaN. +Inf
// passes through; the weight table maps it to zero weight.
func sanitizeVariance(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
