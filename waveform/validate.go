package waveform

import "math"

// Limits describe the actuator's physical envelope. Zero-valued velocity or
// acceleration limits disable that check (useful for virtual benches).
type Limits struct {
	MinPosition float64 `json:"min_position"`
	MaxPosition float64 `json:"max_position"`
	MaxVelocity float64 `json:"max_velocity"`
	MaxAccel    float64 `json:"max_accel"`
}

// Validate checks a key-point set against the limits, in order: time
// strictly increasing, positions within travel, point-to-point implied
// velocity, then implied acceleration. It returns the first violation found
// with its offending point index.
func Validate(points []KeyPoint, limits Limits) error {
	for i := 1; i < len(points); i++ {
		if points[i].Time <= points[i-1].Time {
			return &ValidationError{Kind: NonIncreasingTime, Index: i, Value: points[i].Time, Limit: points[i-1].Time}
		}
	}

	for i, p := range points {
		if p.Position < limits.MinPosition || p.Position > limits.MaxPosition {
			lim := limits.MaxPosition
			if p.Position < limits.MinPosition {
				lim = limits.MinPosition
			}
			return &ValidationError{Kind: PositionOutOfTravel, Index: i, Value: p.Position, Limit: lim}
		}
	}

	if limits.MaxVelocity > 0 {
		for i := 1; i < len(points); i++ {
			v := (points[i].Position - points[i-1].Position) / (points[i].Time - points[i-1].Time)
			if math.Abs(v) > limits.MaxVelocity {
				return &ValidationError{Kind: VelocityExceeded, Index: i, Value: v, Limit: limits.MaxVelocity}
			}
		}
	}

	if limits.MaxAccel > 0 {
		prevV := 0.0
		for i := 1; i < len(points); i++ {
			dt := points[i].Time - points[i-1].Time
			v := (points[i].Position - points[i-1].Position) / dt
			if i > 1 {
				a := (v - prevV) / dt
				if math.Abs(a) > limits.MaxAccel {
					return &ValidationError{Kind: AccelerationExceeded, Index: i, Value: a, Limit: limits.MaxAccel}
				}
			}
			prevV = v
		}
	}

	return nil
}
