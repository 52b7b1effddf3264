package waveform

import (
	"errors"
	"math"
	"testing"
)

const tol = 1e-9

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestFitPassesThroughKeyPoints(t *testing.T) {
	points := []KeyPoint{{0, 0}, {0.4, 3.2}, {1.1, -1.5}, {2.0, 7.0}, {2.5, 0.25}}

	for _, method := range []Method{Lagrange, CubicSpline} {
		w, err := Fit(points, method, 0.05)
		if err != nil {
			t.Fatalf("%v: %v", method, err)
		}

		for _, kp := range points {
			found := false
			for _, s := range w.Samples {
				if almostEqual(s.Time, kp.Time, 1e-9) {
					found = true
					if !almostEqual(s.Position, kp.Position, 1e-6) {
						t.Errorf("%v: position(%g) = %g, want %g", method, kp.Time, s.Position, kp.Position)
					}
				}
			}
			if !found {
				t.Errorf("%v: no sample at key point time %g", method, kp.Time)
			}
		}
	}
}

func TestLagrangeReproducesPolynomial(t *testing.T) {
	// Key points on p(t) = 2t^3 - 3t + 1; the degree-3 interpolant through
	// any four of them is p itself, and velocity must be its derivative.
	p := func(t float64) float64 { return 2*t*t*t - 3*t + 1 }
	dp := func(t float64) float64 { return 6*t*t - 3 }

	points := []KeyPoint{{0, p(0)}, {0.5, p(0.5)}, {1.5, p(1.5)}, {2, p(2)}}
	w, err := Fit(points, Lagrange, 0.25)
	if err != nil {
		t.Fatal(err)
	}

	for _, s := range w.Samples {
		if !almostEqual(s.Position, p(s.Time), 1e-9) {
			t.Errorf("position(%g) = %g, want %g", s.Time, s.Position, p(s.Time))
		}
		if !almostEqual(s.Velocity, dp(s.Time), 1e-9) {
			t.Errorf("velocity(%g) = %g, want %g", s.Time, s.Velocity, dp(s.Time))
		}
	}
}

func TestSplineScenario(t *testing.T) {
	// (0,0), (1,10), (2,0) at interval 0.5: five samples, exact at the key
	// points, symmetric about t=1.
	points := []KeyPoint{{0, 0}, {1, 10}, {2, 0}}
	w, err := Fit(points, CubicSpline, 0.5)
	if err != nil {
		t.Fatal(err)
	}

	if len(w.Samples) != 5 {
		t.Fatalf("got %d samples, want 5", len(w.Samples))
	}

	wantTimes := []float64{0, 0.5, 1, 1.5, 2}
	for i, s := range w.Samples {
		if !almostEqual(s.Time, wantTimes[i], tol) {
			t.Errorf("sample %d at t=%g, want %g", i, s.Time, wantTimes[i])
		}
	}

	if !almostEqual(w.Samples[0].Position, 0, 1e-9) ||
		!almostEqual(w.Samples[2].Position, 10, 1e-9) ||
		!almostEqual(w.Samples[4].Position, 0, 1e-9) {
		t.Errorf("key point positions not reproduced: %+v", w.Samples)
	}

	if !almostEqual(w.Samples[1].Position, w.Samples[3].Position, 1e-9) {
		t.Errorf("shape not symmetric about t=1: pos(0.5)=%g pos(1.5)=%g",
			w.Samples[1].Position, w.Samples[3].Position)
	}
	if !almostEqual(w.Samples[1].Velocity, -w.Samples[3].Velocity, 1e-9) {
		t.Errorf("velocity not antisymmetric about t=1: vel(0.5)=%g vel(1.5)=%g",
			w.Samples[1].Velocity, w.Samples[3].Velocity)
	}
	if !almostEqual(w.Samples[2].Velocity, 0, 1e-9) {
		t.Errorf("velocity at apex = %g, want 0", w.Samples[2].Velocity)
	}
}

func TestSplineDerivativeContinuity(t *testing.T) {
	points := []KeyPoint{{0, 0}, {0.7, 4}, {1.3, -2}, {2.1, 5}, {3, 1}}
	const eps = 1e-5

	w, err := Fit(points, CubicSpline, eps)
	if err != nil {
		t.Fatal(err)
	}

	// Finite-difference first and second derivatives from the dense samples
	// on both sides of each interior key point must agree.
	at := func(time float64) int {
		return int(math.Round((time - points[0].Time) / eps))
	}

	for _, kp := range points[1 : len(points)-1] {
		i := at(kp.Time)
		if i < 2 || i > len(w.Samples)-3 {
			t.Fatalf("interior point %g too close to edge of samples", kp.Time)
		}

		// First derivative: analytic velocity is already checked to be
		// single-valued; verify it matches the position slope on each side.
		leftSlope := (w.Samples[i].Position - w.Samples[i-1].Position) / eps
		rightSlope := (w.Samples[i+1].Position - w.Samples[i].Position) / eps
		if !almostEqual(leftSlope, w.Samples[i].Velocity, 1e-3) ||
			!almostEqual(rightSlope, w.Samples[i].Velocity, 1e-3) {
			t.Errorf("first derivative discontinuous at %g: left %g, analytic %g, right %g",
				kp.Time, leftSlope, w.Samples[i].Velocity, rightSlope)
		}

		// Second derivative via velocity differences on each side.
		leftCurv := (w.Samples[i].Velocity - w.Samples[i-1].Velocity) / eps
		rightCurv := (w.Samples[i+1].Velocity - w.Samples[i].Velocity) / eps
		if !almostEqual(leftCurv, rightCurv, 1e-3*(1+math.Abs(leftCurv))) {
			t.Errorf("second derivative discontinuous at %g: left %g, right %g",
				kp.Time, leftCurv, rightCurv)
		}
	}
}

func TestSplineTwoPointsIsLinear(t *testing.T) {
	points := []KeyPoint{{0, 1}, {2, 5}}
	w, err := Fit(points, CubicSpline, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range w.Samples {
		if !almostEqual(s.Position, 1+2*s.Time, tol) {
			t.Errorf("position(%g) = %g, want %g", s.Time, s.Position, 1+2*s.Time)
		}
		if !almostEqual(s.Velocity, 2, tol) {
			t.Errorf("velocity(%g) = %g, want 2", s.Time, s.Velocity)
		}
	}
}

func TestClampedBoundary(t *testing.T) {
	points := []KeyPoint{{0, 0}, {1, 10}, {2, 0}}
	w, err := FitWithOptions(points, CubicSpline, 0.001, FitOptions{
		Boundary:      ClampedBoundary,
		StartVelocity: 0,
		EndVelocity:   0,
	})
	if err != nil {
		t.Fatal(err)
	}

	if !almostEqual(w.Samples[0].Velocity, 0, 1e-9) {
		t.Errorf("start velocity = %g, want 0", w.Samples[0].Velocity)
	}
	if !almostEqual(w.Samples[len(w.Samples)-1].Velocity, 0, 1e-9) {
		t.Errorf("end velocity = %g, want 0", w.Samples[len(w.Samples)-1].Velocity)
	}
}

func TestFitErrors(t *testing.T) {
	cases := []struct {
		name   string
		points []KeyPoint
		kind   FitErrorKind
		index  int
	}{
		{"too few", []KeyPoint{{0, 0}}, InsufficientPoints, -1},
		{"duplicate", []KeyPoint{{0, 0}, {1, 2}, {1, 3}}, DuplicateTime, 2},
		{"unsorted", []KeyPoint{{0, 0}, {2, 2}, {1, 3}}, NonMonotonic, 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Fit(tc.points, CubicSpline, 0.1)
			var fe *FitError
			if !errors.As(err, &fe) {
				t.Fatalf("got %v, want FitError", err)
			}
			if fe.Kind != tc.kind || fe.Index != tc.index {
				t.Errorf("got kind=%v index=%d, want kind=%v index=%d", fe.Kind, fe.Index, tc.kind, tc.index)
			}
		})
	}
}

func TestSampleCountNonDivisibleSpan(t *testing.T) {
	// Span 1.0 at interval 0.3: grid at 0, 0.3, 0.6, 0.9 plus the exact end.
	points := []KeyPoint{{0, 0}, {1, 1}}
	w, err := Fit(points, CubicSpline, 0.3)
	if err != nil {
		t.Fatal(err)
	}
	if len(w.Samples) != 5 {
		t.Fatalf("got %d samples, want 5", len(w.Samples))
	}
	last := w.Samples[len(w.Samples)-1]
	if last.Time != 1.0 {
		t.Errorf("last sample at %g, want exactly 1.0", last.Time)
	}
}

func TestSortPoints(t *testing.T) {
	points := []KeyPoint{{2, 5}, {0, 1}, {1, 3}, {1, 3}}
	sorted := SortPoints(points)
	if len(sorted) != 3 {
		t.Fatalf("got %d points, want 3 after dedup", len(sorted))
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Time <= sorted[i-1].Time {
			t.Errorf("not sorted at %d: %+v", i, sorted)
		}
	}
}
