package waveform

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// splineSegment holds one piecewise cubic on [start, start+h]:
// pos(start+dx) = a + b*dx + c*dx^2 + d*dx^3.
type splineSegment struct {
	start      float64
	a, b, c, d float64
}

// fitSpline builds a cubic spline with continuous first and second
// derivatives at the interior points. The second-derivative system is
// assembled as a dense matrix and solved with gonum; point counts are small
// enough that exploiting the tridiagonal structure buys nothing.
func fitSpline(points []KeyPoint, opts FitOptions) (curve, error) {
	n := len(points)

	// Two points carry no curvature information: degrade to the straight
	// line through them, as the original bench software does.
	if n == 2 {
		slope := (points[1].Position - points[0].Position) / (points[1].Time - points[0].Time)
		seg := splineSegment{start: points[0].Time, a: points[0].Position, b: slope}
		return evalSegments([]splineSegment{seg}, points[0].Time, points[1].Time), nil
	}

	h := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		h[i] = points[i+1].Time - points[i].Time
	}

	// Solve A*m = rhs for the second derivatives m at the key points.
	A := mat.NewDense(n, n, nil)
	rhs := mat.NewVecDense(n, nil)

	switch opts.Boundary {
	case NaturalBoundary:
		A.Set(0, 0, 1)
		A.Set(n-1, n-1, 1)
	case ClampedBoundary:
		A.Set(0, 0, 2*h[0])
		A.Set(0, 1, h[0])
		rhs.SetVec(0, 6*((points[1].Position-points[0].Position)/h[0]-opts.StartVelocity))
		A.Set(n-1, n-2, h[n-2])
		A.Set(n-1, n-1, 2*h[n-2])
		rhs.SetVec(n-1, 6*(opts.EndVelocity-(points[n-1].Position-points[n-2].Position)/h[n-2]))
	default:
		return nil, fmt.Errorf("fit: unknown boundary policy %d", opts.Boundary)
	}

	for i := 1; i < n-1; i++ {
		A.Set(i, i-1, h[i-1])
		A.Set(i, i, 2*(h[i-1]+h[i]))
		A.Set(i, i+1, h[i])
		rhs.SetVec(i, 6*((points[i+1].Position-points[i].Position)/h[i]-
			(points[i].Position-points[i-1].Position)/h[i-1]))
	}

	var m mat.VecDense
	if err := m.SolveVec(A, rhs); err != nil {
		return nil, fmt.Errorf("fit: spline system singular: %w", err)
	}

	segments := make([]splineSegment, n-1)
	for i := 0; i < n-1; i++ {
		mi, mi1 := m.AtVec(i), m.AtVec(i+1)
		segments[i] = splineSegment{
			start: points[i].Time,
			a:     points[i].Position,
			b:     (points[i+1].Position-points[i].Position)/h[i] - h[i]*(2*mi+mi1)/6,
			c:     mi / 2,
			d:     (mi1 - mi) / (6 * h[i]),
		}
	}

	return evalSegments(segments, points[0].Time, points[n-1].Time), nil
}

// evalSegments dispatches evaluation to the segment containing t, clamping
// to the fitted span. Times outside [t0, t1] never occur through Fit.
func evalSegments(segments []splineSegment, t0, t1 float64) curve {
	return func(t float64) (float64, float64) {
		if t < t0 {
			t = t0
		}
		if t > t1 {
			t = t1
		}
		i := sort.Search(len(segments), func(k int) bool { return segments[k].start > t }) - 1
		if i < 0 {
			i = 0
		}
		s := segments[i]
		dx := t - s.start
		pos := s.a + dx*(s.b+dx*(s.c+dx*s.d))
		vel := s.b + dx*(2*s.c+dx*3*s.d)
		return pos, vel
	}
}
