// Package bench holds the test-bench configuration and operator-facing
// waveform summaries.
package bench

import (
	"math"

	"heartbench/waveform"
)

// Features summarizes the kinematics implied by a key-point set. Values come
// from successive finite differences, so they describe the piecewise-linear
// envelope of the points, not the fitted curve.
type Features struct {
	MaxVelocity     float64 // largest |velocity|
	MaxAcceleration float64 // largest positive acceleration
	MaxDeceleration float64 // most negative acceleration, <= 0
	MaxJerk         float64 // largest |jerk|
}

// ComputeFeatures derives the feature summary. Points are evaluated in time
// order; the input is not modified. Fewer than two points yield all zeros.
func ComputeFeatures(points []waveform.KeyPoint) Features {
	var f Features
	if len(points) < 2 {
		return f
	}

	sorted := waveform.SortPoints(points)

	dt := make([]float64, len(sorted)-1)
	vel := make([]float64, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		d := sorted[i].Time - sorted[i-1].Time
		if d == 0 {
			d = 1e-6
		}
		dt[i-1] = d
		vel[i-1] = (sorted[i].Position - sorted[i-1].Position) / d
		if v := math.Abs(vel[i-1]); v > f.MaxVelocity {
			f.MaxVelocity = v
		}
	}

	accel := make([]float64, 0, len(vel)-1)
	for i := 1; i < len(vel); i++ {
		a := (vel[i] - vel[i-1]) / dt[i-1]
		accel = append(accel, a)
		if a > f.MaxAcceleration {
			f.MaxAcceleration = a
		}
		if a < f.MaxDeceleration {
			f.MaxDeceleration = a
		}
	}

	for i := 1; i < len(accel); i++ {
		j := math.Abs((accel[i] - accel[i-1]) / dt[i-1])
		if j > f.MaxJerk {
			f.MaxJerk = j
		}
	}

	return f
}
