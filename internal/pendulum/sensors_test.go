package pendulum

import (
	"math"
	"testing"

	"github.com/nvandessel/ternkit/internal/fusion"
	"github.com/nvandessel/ternkit/internal/kernel"
	"github.com/nvandessel/ternkit/internal/ternary"
)

func testRig() Rig {
	return Rig{EncoderNoise: 0.001, GyroNoise: 0.01, AccelNoise: 0.1}
}

func checkConfidences(t *testing.T, readings []fusion.Reading, want [SensorCount]float64) {
	t.Helper()
	if len(readings) != SensorCount {
		t.Fatalf("rig produced %d readings, want %d", len(readings), SensorCount)
	}
	for i, r := range readings {
		if r.Value != ternary.True {
			t.Errorf("sensor %d value = %v, health belongs in confidence", i, r.Value)
		}
		if math.Abs(r.Confidence-want[i]) > 1e-12 {
			t.Errorf("sensor %d confidence = %v, want %v", i, r.Confidence, want[i])
		}
	}
}

func TestRig_AtRestFullTrust(t *testing.T) {
	rig := testRig()
	p := mustPlant(t, DefaultParams())

	readings := rig.Readings(p)
	checkConfidences(t, readings, [SensorCount]float64{0.90, 0.90, 0.85, 0.85, 0.80})

	wantVar := [SensorCount]float64{
		rig.EncoderNoise * rig.EncoderNoise,
		rig.EncoderNoise * rig.EncoderNoise,
		rig.GyroNoise * rig.GyroNoise,
		rig.GyroNoise * rig.GyroNoise,
		rig.AccelNoise * rig.AccelNoise,
	}
	for i, r := range readings {
		if r.Variance != wantVar[i] {
			t.Errorf("sensor %d variance = %v, want %v", i, r.Variance, wantVar[i])
		}
	}
}

func TestRig_UncontrollableDerate(t *testing.T) {
	p := mustPlant(t, DefaultParams())
	p.SetState(State{Theta1: 1.0})
	if p.Controllable() {
		t.Fatal("test state should be uncontrollable")
	}

	// Gyros still read slow rates and the energy stays low, so only the
	// region derate applies.
	checkConfidences(t, testRig().Readings(p), [SensorCount]float64{
		0.30 * 0.3, 0.30 * 0.3, 0.85 * 0.3, 0.85 * 0.3, 0.80 * 0.3,
	})
}

func TestRig_FastGyroDegrades(t *testing.T) {
	p := mustPlant(t, DefaultParams())
	p.SetState(State{Omega1: 6.0})
	if e := p.Energy(); e >= imuEnergyLimit {
		t.Fatalf("energy %v should stay below the IMU limit for this state", e)
	}

	// Joint 1 spins past the gyro's trusted range; joint 2 does not. The
	// rate alone also leaves the controllable region.
	checkConfidences(t, testRig().Readings(p), [SensorCount]float64{
		0.30 * 0.3, 0.30 * 0.3, 0.40 * 0.3, 0.85 * 0.3, 0.80 * 0.3,
	})
}

func TestRig_HighEnergyDerate(t *testing.T) {
	p := mustPlant(t, DefaultParams())
	p.SetState(State{Omega1: 8.0})
	if e := p.Energy(); e <= highEnergyLimit {
		t.Fatalf("energy %v should exceed the derate limit for this state", e)
	}

	// Both derates stack: the plant is uncontrollable and hot.
	checkConfidences(t, testRig().Readings(p), [SensorCount]float64{
		0.30 * 0.3 * 0.5, 0.30 * 0.3 * 0.5, 0.40 * 0.3 * 0.5, 0.85 * 0.3 * 0.5, 0.20 * 0.3 * 0.5,
	})
}

func TestRig_FeedsFusion(t *testing.T) {
	kctx, err := kernel.NewContext(kernel.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	fuser := fusion.New(kctx, fusion.DefaultConfig())

	p := mustPlant(t, DefaultParams())
	result := fuser.Fuse(testRig().Readings(p))
	if result.Value != ternary.True {
		t.Errorf("healthy rig fused to %v, want TRUE", result.Value)
	}
	// 1 - (0.1 * 0.1 * 0.15 * 0.15 * 0.2)
	if want := 1 - 4.5e-5; math.Abs(result.Confidence-want) > 1e-12 {
		t.Errorf("fused confidence = %v, want %v", result.Confidence, want)
	}
	if result.Readings != SensorCount {
		t.Errorf("consumed %d readings, want %d", result.Readings, SensorCount)
	}
}

func TestRig_FailedSensorOverride(t *testing.T) {
	// Failure injection replaces a slot wholesale, the way a health
	// monitor would mark a dead gyro. A zero-confidence FALSE carries no
	// weight, so the healthy sensors keep the consensus.
	p := mustPlant(t, DefaultParams())
	readings := testRig().Readings(p)
	readings[SensorGyro1] = fusion.Reading{Value: ternary.False, Confidence: 0, Variance: readings[SensorGyro1].Variance}

	kctx, err := kernel.NewContext(kernel.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	result := fusion.New(kctx, fusion.DefaultConfig()).Fuse(readings)
	if result.Value != ternary.True {
		t.Errorf("zero-confidence failure flipped the consensus to %v", result.Value)
	}
	if result.Confidence >= 1-4.5e-5 {
		t.Error("dead sensor should not raise fused confidence")
	}
}
