// Package waveform turns operator-defined key points into sampled motion
// curves: validation against actuator limits, Lagrange or cubic-spline
// fitting with analytic velocities, and the persisted waveform file format.
package waveform

import (
	"fmt"
	"sort"
)

// KeyPoint is one operator-specified (time, position) anchor the fitted
// curve must pass through.
type KeyPoint struct {
	Time     float64 `json:"time"`
	Position float64 `json:"position"`
}

// Method selects the fitting algorithm.
type Method int

const (
	// Lagrange fits the unique degree-(n-1) polynomial through all points.
	// Numerically unstable for large point counts (Runge phenomenon); the
	// bench UI keeps counts modest and this package does not mitigate it.
	Lagrange Method = iota

	// CubicSpline fits piecewise cubics with continuous first and second
	// derivatives at the interior points.
	CubicSpline
)

func (m Method) String() string {
	switch m {
	case Lagrange:
		return "Lagrange"
	case CubicSpline:
		return "CubicSpline"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod resolves a method name from config or a waveform file.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "Lagrange":
		return Lagrange, nil
	case "CubicSpline":
		return CubicSpline, nil
	default:
		return 0, fmt.Errorf("unknown interpolation method %q", s)
	}
}

// Sample is one point of a fitted curve at the fixed sample interval.
// Velocity is the analytic derivative of the fitted curve, not a finite
// difference.
type Sample struct {
	Time     float64 `json:"time"`
	Position float64 `json:"position"`
	Velocity float64 `json:"velocity"`
}

// SampledWaveform is a fitted curve sampled at a constant interval over the
// key points' time span. Instances are never mutated after Fit returns; a
// re-fit produces a fresh one.
type SampledWaveform struct {
	Interval float64
	Samples  []Sample
}

// Duration returns the covered time span.
func (w *SampledWaveform) Duration() float64 {
	if len(w.Samples) == 0 {
		return 0
	}
	return w.Samples[len(w.Samples)-1].Time - w.Samples[0].Time
}

// SortPoints returns a copy of points ordered by time with exact-duplicate
// points collapsed. Points sharing a time but not a position are left for
// Fit to reject.
func SortPoints(points []KeyPoint) []KeyPoint {
	sorted := make([]KeyPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	out := sorted[:0]
	for i, p := range sorted {
		if i > 0 && p == sorted[i-1] {
			continue
		}
		out = append(out, p)
	}
	return out
}
