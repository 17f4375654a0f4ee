package kernel

import (
	"math"

	"github.com/nvandessel/ternkit/internal/constants"
	"github.com/nvandessel/ternkit/internal/ternary"
)

// rebuildSigmoidLocked fills the coercion table with the logistic curve
// sigma(x) = 1 / (1 + exp(-k*(x - x0))) sampled over confidence [0, 1].
// Callers must hold mu (or own the Context exclusively, as NewContext does).
func (c *Context) rebuildSigmoidLocked() {
	k := c.params.SigmoidSteepness
	x0 := c.params.SigmoidOffset
	for i := range c.sigmoid {
		x := float64(i) / float64(len(c.sigmoid)-1)
		c.sigmoid[i] = 1.0 / (1.0 + math.Exp(-k*(x-x0)))
	}
}

// sigmoidLocked interpolates the table linearly between adjacent entries.
func (c *Context) sigmoidLocked(x float64) float64 {
	pos := ternary.Clamp(x) * float64(len(c.sigmoid)-1)
	idx := int(pos)
	if idx >= len(c.sigmoid)-1 {
		return c.sigmoid[len(c.sigmoid)-1]
	}
	frac := pos - float64(idx)
	return c.sigmoid[idx] + frac*(c.sigmoid[idx+1]-c.sigmoid[idx])
}

// Coerce applies the adaptive threshold to a decision. Values whose
// confidence clears theta pass through. Below theta, coercion strength
// 1 - sigma(confidence) decides: strengths above the cutoff demote the
// value to UNKNOWN, weaker ones let it stand. Disabled contexts pass
// everything through.
func (c *Context) Coerce(v ternary.Value, confidence float64) ternary.Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.params.Enabled {
		return v
	}
	confidence = ternary.Clamp(confidence)
	if confidence >= c.params.Theta {
		return v
	}
	if 1.0-c.sigmoidLocked(confidence) > constants.CoercionCutoff {
		return ternary.Unknown
	}
	return v
}

// Observe feeds one decision outcome into the pseudo-counts, smooths theta
// toward the posterior mean alpha/(alpha+beta), and recenters the sigmoid
// at SigmoidOffsetFactor*theta.
func (c *Context) Observe(correct bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if correct {
		c.params.Alpha++
	} else {
		c.params.Beta++
	}
	mean := c.params.Alpha / (c.params.Alpha + c.params.Beta)
	c.params.Theta = constants.ThetaSmoothing*c.params.Theta + (1-constants.ThetaSmoothing)*mean
	c.params.SigmoidOffset = constants.SigmoidOffsetFactor * c.params.Theta
	c.rebuildSigmoidLocked()
	c.observed++
}

// VarianceWeight maps a sensor variance to its fusion weight 1/(1+v) via
// the precomputed table. Negative and NaN variances read as zero variance.
// Finite variances beyond the table range clamp to the last entry; +Inf
// weighs nothing.
func (c *Context) VarianceWeight(variance float64) float64 {
	if math.IsInf(variance, 1) {
		return 0
	}
	if math.IsNaN(variance) || variance < 0 {
		variance = 0
	}
	if variance > 1 {
		variance = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.varWeight[int(variance*float64(len(c.varWeight)-1))]
}

// VarianceThreshold returns the current drift trigger level.
func (c *Context) VarianceThreshold() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params.VarianceThreshold
}

// NoteMeanVariance reports the mean variance of a fusion pass. Means above
// the current threshold inflate it by the drift factor, so sustained noisy
// input progressively demands more agreement before drifting again.
func (c *Context) NoteMeanVariance(mean float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if mean > c.params.VarianceThreshold {
		c.params.VarianceThreshold *= constants.VarianceDriftFactor
	}
}
