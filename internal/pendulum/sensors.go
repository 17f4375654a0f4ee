package pendulum

import (
	"math"

	"github.com/nvandessel/ternkit/internal/fusion"
	"github.com/nvandessel/ternkit/internal/ternary"
)

// Sensor slots in rig order. Failure injection and per-sensor assertions
// address readings by these indices.
const (
	SensorEncoder1 = iota // theta1 angle encoder
	SensorEncoder2        // theta2 angle encoder
	SensorGyro1           // omega1 rate gyro
	SensorGyro2           // omega2 rate gyro
	SensorIMU             // accelerometer
	SensorCount
)

// Confidence model. Each sensor trusts its own operating region; the
// whole rig derates when the plant leaves the controllable envelope or
// carries too much energy.
const (
	encoderTrusted  = 0.90
	encoderDegraded = 0.30
	gyroTrusted     = 0.85
	gyroDegraded    = 0.40
	imuTrusted      = 0.80
	imuDegraded     = 0.20

	// gyroRateLimit is the angular rate beyond which a gyro reading
	// degrades, in radians per second.
	gyroRateLimit = 5.0

	// imuEnergyLimit is the plant energy beyond which the accelerometer
	// reading degrades, in joules.
	imuEnergyLimit = 10.0

	// uncontrollableDerate scales every confidence while the plant is
	// outside the controllable region.
	uncontrollableDerate = 0.3

	// highEnergyLimit and highEnergyDerate scale every confidence while
	// the plant energy exceeds the limit.
	highEnergyLimit  = 20.0
	highEnergyDerate = 0.5
)

// Rig models the pendulum's sensor suite. Noise values are standard
// deviations: radians for the encoders, radians per second for the
// gyros, and meters per second squared for the accelerometer. Reading
// variance is the square of the corresponding noise.
type Rig struct {
	EncoderNoise float64
	GyroNoise    float64
	AccelNoise   float64
}

// Readings samples the rig against the current plant state. Every sensor
// reports TRUE; health shows up in the confidence, not the value, so the
// fusion engine grades trust instead of voting sensors out.
func (r Rig) Readings(p *Plant) []fusion.Reading {
	s := p.State()
	controllable := p.Controllable()
	energy := p.Energy()

	readings := make([]fusion.Reading, SensorCount)
	for i := range readings {
		readings[i].Value = ternary.True
	}

	readings[SensorEncoder1].Variance = r.EncoderNoise * r.EncoderNoise
	readings[SensorEncoder2].Variance = r.EncoderNoise * r.EncoderNoise
	readings[SensorGyro1].Variance = r.GyroNoise * r.GyroNoise
	readings[SensorGyro2].Variance = r.GyroNoise * r.GyroNoise
	readings[SensorIMU].Variance = r.AccelNoise * r.AccelNoise

	encoderConf := encoderDegraded
	if controllable {
		encoderConf = encoderTrusted
	}
	readings[SensorEncoder1].Confidence = encoderConf
	readings[SensorEncoder2].Confidence = encoderConf

	readings[SensorGyro1].Confidence = gyroConfidence(s.Omega1)
	readings[SensorGyro2].Confidence = gyroConfidence(s.Omega2)

	if energy < imuEnergyLimit {
		readings[SensorIMU].Confidence = imuTrusted
	} else {
		readings[SensorIMU].Confidence = imuDegraded
	}

	if !controllable {
		for i := range readings {
			readings[i].Confidence *= uncontrollableDerate
		}
	}
	if energy > highEnergyLimit {
		for i := range readings {
			readings[i].Confidence *= highEnergyDerate
		}
	}
	return readings
}

func gyroConfidence(omega float64) float64 {
	if math.Abs(omega) < gyroRateLimit {
		return gyroTrusted
	}
	return gyroDegraded
}
