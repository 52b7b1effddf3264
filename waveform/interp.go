package waveform

import (
	"fmt"
	"math"
)

// curve evaluates a fitted waveform at time t, returning position and its
// analytic first derivative.
type curve func(t float64) (pos, vel float64)

// Boundary selects the spline end condition.
type Boundary int

const (
	// NaturalBoundary forces zero second derivative at the first and last
	// key point.
	NaturalBoundary Boundary = iota

	// ClampedBoundary forces the configured end velocities instead.
	ClampedBoundary
)

// FitOptions carries the optional fit parameters. The zero value selects
// natural boundaries.
type FitOptions struct {
	Boundary      Boundary
	StartVelocity float64
	EndVelocity   float64
}

// Fit builds a curve through the key points with the selected method and
// samples it at the fixed interval. Points must already be time-sorted; the
// validator normally guarantees that, but Fit rejects unsorted or duplicate
// times on its own.
func Fit(points []KeyPoint, method Method, sampleInterval float64) (*SampledWaveform, error) {
	return FitWithOptions(points, method, sampleInterval, FitOptions{})
}

// FitWithOptions is Fit with an explicit boundary policy.
func FitWithOptions(points []KeyPoint, method Method, sampleInterval float64, opts FitOptions) (*SampledWaveform, error) {
	if len(points) < 2 {
		return nil, &FitError{Kind: InsufficientPoints, Index: -1}
	}
	if sampleInterval <= 0 {
		return nil, fmt.Errorf("fit: sample interval must be positive, got %g", sampleInterval)
	}
	for i := 1; i < len(points); i++ {
		if points[i].Time == points[i-1].Time {
			return nil, &FitError{Kind: DuplicateTime, Index: i}
		}
		if points[i].Time < points[i-1].Time {
			return nil, &FitError{Kind: NonMonotonic, Index: i}
		}
	}

	var c curve
	var err error
	switch method {
	case Lagrange:
		c = fitLagrange(points)
	case CubicSpline:
		c, err = fitSpline(points, opts)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("fit: unknown method %v", method)
	}

	return sampleCurve(c, points[0].Time, points[len(points)-1].Time, sampleInterval), nil
}

// sampleCurve evaluates the curve on a constant grid covering [t0, t1]. The
// final sample lands exactly on t1 so the last key point is reproduced even
// when the span is not a multiple of the interval.
func sampleCurve(c curve, t0, t1, interval float64) *SampledWaveform {
	span := t1 - t0
	n := int(math.Ceil(span/interval - 1e-9))
	if n < 1 {
		n = 1
	}

	samples := make([]Sample, 0, n+1)
	for i := 0; i < n; i++ {
		t := t0 + float64(i)*interval
		pos, vel := c(t)
		samples = append(samples, Sample{Time: t, Position: pos, Velocity: vel})
	}
	pos, vel := c(t1)
	samples = append(samples, Sample{Time: t1, Position: pos, Velocity: vel})

	return &SampledWaveform{Interval: interval, Samples: samples}
}
