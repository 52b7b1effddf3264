package waveform

// fitLagrange builds the unique degree-(n-1) polynomial through all key
// points via Newton divided differences expanded to monomial coefficients,
// then evaluates position and derivative by Horner's rule. Fine for the
// modest point counts the bench uses; large n suffers the usual Runge
// oscillation and ill-conditioning.
func fitLagrange(points []KeyPoint) curve {
	n := len(points)
	xs := make([]float64, n)
	dd := make([]float64, n)
	for i, p := range points {
		xs[i] = p.Time
		dd[i] = p.Position
	}

	// Divided-difference table, in place: dd[i] becomes f[x_0..x_i].
	for level := 1; level < n; level++ {
		for i := n - 1; i >= level; i-- {
			dd[i] = (dd[i] - dd[i-1]) / (xs[i] - xs[i-level])
		}
	}

	// Expand Newton form to monomial coefficients, lowest power first:
	// p(t) = (...((dd[n-1])(t-x_{n-2}) + dd[n-2])(t-x_{n-3}) + ...) + dd[0]
	coeffs := []float64{dd[n-1]}
	for i := n - 2; i >= 0; i-- {
		next := make([]float64, len(coeffs)+1)
		for k, c := range coeffs {
			next[k+1] += c
			next[k] -= c * xs[i]
		}
		next[0] += dd[i]
		coeffs = next
	}

	return func(t float64) (float64, float64) {
		// Horner with simultaneous derivative accumulation
		pos := coeffs[len(coeffs)-1]
		vel := 0.0
		for i := len(coeffs) - 2; i >= 0; i-- {
			vel = vel*t + pos
			pos = pos*t + coeffs[i]
		}
		return pos, vel
	}
}
