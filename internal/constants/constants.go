// Package constants provides named constants used throughout the ternkit codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// Adaptive threshold defaults seed kernel.Context instances.
const (
	// DefaultTheta is the starting confidence floor for threshold coercion.
	DefaultTheta = 0.5

	// DefaultAlpha is the starting pseudo-count of correct decisions.
	DefaultAlpha = 1.0

	// DefaultBeta is the starting pseudo-count of incorrect decisions.
	DefaultBeta = 1.0

	// DefaultSigmoidSteepness controls how sharply coercion strength ramps
	// around the sigmoid offset.
	DefaultSigmoidSteepness = 10.0

	// DefaultSigmoidOffset is the initial inflection point of the coercion
	// sigmoid. Observe recenters it at SigmoidOffsetFactor times theta.
	DefaultSigmoidOffset = 0.35

	// DefaultVarianceThreshold is the mean sensor variance above which the
	// fusion path inflates the threshold.
	DefaultVarianceThreshold = 0.1
)

// Threshold adaptation parameters.
const (
	// ThetaSmoothing is the exponential smoothing weight applied to the old
	// theta on each observation. The posterior mean gets the complement.
	ThetaSmoothing = 0.9

	// SigmoidOffsetFactor positions the sigmoid inflection relative to the
	// current theta after each observation.
	SigmoidOffsetFactor = 0.7

	// CoercionCutoff is the coercion strength above which a low-confidence
	// value is demoted to UNKNOWN.
	CoercionCutoff = 0.8

	// VarianceDriftFactor is the multiplicative step applied to the variance
	// threshold when mean sensor variance exceeds it.
	VarianceDriftFactor = 1.1
)

// Lookup table sizing. Both the coercion sigmoid and the variance weight
// tables cover their domain in steps of 0.01.
const (
	// LUTSize is the number of entries in the sigmoid and variance tables.
	LUTSize = 101
)

// Fusion constants.
const (
	// ConsensusBand is the half-width of the UNKNOWN band around zero when
	// quantizing weighted consensus back to a ternary value.
	ConsensusBand = 0.5

	// WeightSumEpsilon guards the consensus division when every reading
	// carries zero confidence.
	WeightSumEpsilon = 1e-10
)

// Control loop constants.
const (
	// SaturationEpsilon is the distance from an output bound within which
	// the command counts as saturated, and the raw-versus-limited gap above
	// which a tick counts as rate limited.
	SaturationEpsilon = 0.01

	// MovingAverageAlpha is the exponential weight on the running average
	// confidence kept by the controller.
	MovingAverageAlpha = 0.95

	// ConfidenceHistorySize is the length of the mode controller's ring of
	// recent fused confidences.
	ConfidenceHistorySize = 16
)
