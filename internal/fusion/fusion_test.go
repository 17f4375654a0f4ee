package fusion

import (
	"math"
	"testing"

	"github.com/nvandessel/ternkit/internal/kernel"
	"github.com/nvandessel/ternkit/internal/ternary"
)

const fuseTol = 1e-9

// newTestFuser builds a Fuser on a fresh kernel context so tests never
// share adaptation state.
func newTestFuser(t *testing.T, coercion bool, cfg Config) *Fuser {
	t.Helper()
	params := kernel.DefaultParams()
	params.Enabled = coercion
	kctx, err := kernel.NewContext(params)
	if err != nil {
		t.Fatalf("kernel context: %v", err)
	}
	return New(kctx, cfg)
}

func TestFuse_Empty(t *testing.T) {
	f := newTestFuser(t, true, DefaultConfig())
	got := f.Fuse(nil)
	if got.Value != ternary.Unknown || got.Confidence != 0 || got.MeanVariance != 0 || got.Readings != 0 {
		t.Errorf("empty fuse = %+v, want zero UNKNOWN result", got)
	}
}

// A single zero-variance reading with positive confidence passes through
// unchanged.
func TestFuse_SingleReadingIdentity(t *testing.T) {
	f := newTestFuser(t, false, DefaultConfig())
	values := []ternary.Value{ternary.False, ternary.Unknown, ternary.True}
	confs := []float64{0.05, 0.3, 0.5, 0.9, 1.0}
	for _, v := range values {
		for _, c := range confs {
			got := f.Fuse([]Reading{{Value: v, Confidence: c}})
			if got.Value != v {
				t.Errorf("Fuse({%v, %v, 0}) value = %v, want %v", v, c, got.Value, v)
			}
			if math.Abs(got.Confidence-c) > fuseTol {
				t.Errorf("Fuse({%v, %v, 0}) confidence = %v, want %v", v, c, got.Confidence, c)
			}
		}
	}
}

func TestFuse_UnanimousAgreement(t *testing.T) {
	f := newTestFuser(t, false, DefaultConfig())
	readings := make([]Reading, 5)
	for i := range readings {
		readings[i] = Reading{Value: ternary.True, Confidence: 0.9}
	}
	got := f.Fuse(readings)
	if got.Value != ternary.True {
		t.Errorf("value = %v, want TRUE", got.Value)
	}
	if want := 1 - math.Pow(0.1, 5); math.Abs(got.Confidence-want) > fuseTol {
		t.Errorf("confidence = %v, want %v", got.Confidence, want)
	}
	if got.MeanVariance != 0 {
		t.Errorf("mean variance = %v, want 0", got.MeanVariance)
	}
	if got.Readings != 5 {
		t.Errorf("readings consumed = %d, want 5", got.Readings)
	}
}

func TestFuse_DissentDampsConfidence(t *testing.T) {
	f := newTestFuser(t, false, DefaultConfig())
	readings := []Reading{
		{Value: ternary.True, Confidence: 0.8},
		{Value: ternary.False, Confidence: 0.8},
		{Value: ternary.Unknown, Confidence: 0.5},
	}
	got := f.Fuse(readings)
	if got.Value != ternary.Unknown {
		t.Errorf("value = %v, want UNKNOWN", got.Value)
	}
	// Consensus sits at zero, so the damping factor is 1 and the
	// confidence is the plain geometric mean of the inputs.
	want := math.Pow(0.8*0.8*0.5, 1.0/3.0)
	if math.Abs(got.Confidence-want) > fuseTol {
		t.Errorf("confidence = %v, want %v", got.Confidence, want)
	}
	if inclExcl := 1 - 0.2*0.2*0.5; got.Confidence >= inclExcl {
		t.Errorf("dissent confidence %v not damped below %v", got.Confidence, inclExcl)
	}
}

// Variance placement alone can decide between TRUE and UNKNOWN for the
// same values and confidences.
func TestFuse_VarianceWeighting(t *testing.T) {
	f := newTestFuser(t, false, DefaultConfig())

	noisyDissenter := []Reading{
		{Value: ternary.True, Confidence: 0.9, Variance: 0},
		{Value: ternary.False, Confidence: 0.3, Variance: 1},
	}
	got := f.Fuse(noisyDissenter)
	if got.Value != ternary.True {
		t.Errorf("noisy dissenter: value = %v, want TRUE", got.Value)
	}

	noisySupporter := []Reading{
		{Value: ternary.True, Confidence: 0.9, Variance: 1},
		{Value: ternary.False, Confidence: 0.3, Variance: 0},
	}
	got = f.Fuse(noisySupporter)
	if got.Value != ternary.Unknown {
		t.Errorf("noisy supporter: value = %v, want UNKNOWN", got.Value)
	}
}

func TestFuse_InfiniteVariance(t *testing.T) {
	f := newTestFuser(t, false, DefaultConfig())
	got := f.Fuse([]Reading{{Value: ternary.True, Confidence: 0.9, Variance: math.Inf(1)}})
	// Weight zero removes the value from consensus entirely.
	if got.Value != ternary.Unknown {
		t.Errorf("value = %v, want UNKNOWN", got.Value)
	}
	if !math.IsInf(got.MeanVariance, 1) {
		t.Errorf("mean variance = %v, want +Inf", got.MeanVariance)
	}
}

func TestFuse_ZeroConfidenceReadings(t *testing.T) {
	f := newTestFuser(t, false, DefaultConfig())
	readings := []Reading{
		{Value: ternary.True, Confidence: 0},
		{Value: ternary.False, Confidence: 0},
	}
	got := f.Fuse(readings)
	if got.Value != ternary.Unknown || got.Confidence != 0 {
		t.Errorf("zero-confidence fuse = %+v, want (UNKNOWN, 0)", got)
	}
	if math.IsNaN(got.Confidence) {
		t.Error("confidence must not be NaN")
	}
}

func TestFuse_ClampsCorruptInputs(t *testing.T) {
	f := newTestFuser(t, false, DefaultConfig())
	got := f.Fuse([]Reading{{Value: ternary.True, Confidence: math.NaN(), Variance: -5}})
	if got.Value != ternary.Unknown || got.Confidence != 0 {
		t.Errorf("NaN confidence fuse = %+v, want (UNKNOWN, 0)", got)
	}
	if got.MeanVariance != 0 {
		t.Errorf("negative variance not clamped: %v", got.MeanVariance)
	}

	got = f.Fuse([]Reading{{Value: ternary.True, Confidence: 1.5}})
	if got.Value != ternary.True || got.Confidence != 1 {
		t.Errorf("overrange confidence fuse = %+v, want (TRUE, 1)", got)
	}
}

func TestFuse_CoercionDemotesWeakDecision(t *testing.T) {
	f := newTestFuser(t, true, DefaultConfig())
	got := f.Fuse([]Reading{{Value: ternary.True, Confidence: 0.1}})
	if got.Value != ternary.Unknown {
		t.Errorf("value = %v, want UNKNOWN after coercion", got.Value)
	}
	if math.Abs(got.Confidence-0.1) > fuseTol {
		t.Errorf("confidence = %v, want 0.1 reported unchanged", got.Confidence)
	}
}

func TestFuse_FeedsKernelAdaptation(t *testing.T) {
	f := newTestFuser(t, true, DefaultConfig())
	kctx := f.Kernel()

	f.Fuse([]Reading{{Value: ternary.True, Confidence: 0.9, Variance: 0.4}})

	if got := kctx.Observations(); got != 1 {
		t.Errorf("observations = %d, want 1", got)
	}
	if got := kctx.Theta(); got <= 0.5 {
		t.Errorf("theta = %v, want raised above 0.5 by a correct outcome", got)
	}
	// Mean variance 0.4 exceeds the default 0.1 threshold, so it drifts.
	if got := kctx.VarianceThreshold(); math.Abs(got-0.11) > fuseTol {
		t.Errorf("variance threshold = %v, want 0.11", got)
	}
}

func TestFuse_FastFirstTrue(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FastFirstTrue = true
	f := newTestFuser(t, true, cfg)

	readings := []Reading{
		{Value: ternary.False, Confidence: 0.3},
		{Value: ternary.True, Confidence: 0.9},
		{Value: ternary.False, Confidence: 0.99},
	}
	got := f.Fuse(readings)
	if got.Value != ternary.True {
		t.Errorf("value = %v, want TRUE", got.Value)
	}
	if got.Readings != 2 {
		t.Errorf("readings consumed = %d, want 2", got.Readings)
	}
	if want := 1 - 0.7*0.1; math.Abs(got.Confidence-want) > fuseTol {
		t.Errorf("confidence = %v, want %v over the readings seen", got.Confidence, want)
	}
	// The fast path skips adaptation entirely.
	if got := f.Kernel().Observations(); got != 0 {
		t.Errorf("observations = %d, want 0 on early stop", got)
	}

	// A TRUE below theta does not stop the scan.
	readings[1].Confidence = 0.4
	got = f.Fuse(readings)
	if got.Readings != 3 {
		t.Errorf("readings consumed = %d, want 3 when no TRUE clears theta", got.Readings)
	}
}

func TestFuse_ExactScanConsumesEverything(t *testing.T) {
	f := newTestFuser(t, true, DefaultConfig())
	readings := []Reading{
		{Value: ternary.True, Confidence: 0.99},
		{Value: ternary.True, Confidence: 0.99},
		{Value: ternary.True, Confidence: 0.99},
	}
	if got := f.Fuse(readings); got.Readings != 3 {
		t.Errorf("readings consumed = %d, want 3 on the exact path", got.Readings)
	}
}
