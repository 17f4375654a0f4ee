package simulation

import (
	"github.com/nvandessel/ternkit/internal/fusion"
	"github.com/nvandessel/ternkit/internal/ternary"
)

// UniformReadings builds n identical readings.
func UniformReadings(n int, v ternary.Value, confidence, variance float64) []fusion.Reading {
	readings := make([]fusion.Reading, n)
	for i := range readings {
		readings[i] = fusion.Reading{Value: v, Confidence: confidence, Variance: variance}
	}
	return readings
}

// SteadyPhase is a phase fed with a single TRUE reading at the given
// confidence. With one reading the fused confidence equals the reading's,
// which makes mode thresholds exact in assertions.
func SteadyPhase(label string, ticks int, confidence float64) Phase {
	return Phase{
		Label:    label,
		Ticks:    ticks,
		Readings: UniformReadings(1, ternary.True, confidence, 0.001),
	}
}

// SilentPhase is a phase with no readings at all, the shape of a total
// sensor outage.
func SilentPhase(label string, ticks int) Phase {
	return Phase{Label: label, Ticks: ticks}
}
