package profile

import (
	"math"
	"testing"

	"heartbench/waveform"
)

func fitOrDie(t *testing.T, points []waveform.KeyPoint, interval float64) *waveform.SampledWaveform {
	t.Helper()
	w, err := waveform.Fit(points, waveform.CubicSpline, interval)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func TestCompileCommandCount(t *testing.T) {
	cases := []struct {
		duration   float64
		tickPeriod float64
		want       int
	}{
		{2.0, 0.5, 5}, // divisible: ceil(4)+1
		{1.0, 0.3, 5}, // ceil(3.33)+1
		{1.0, 1.0, 2}, // single span
		{0.25, 0.001, 251},
	}

	for _, tc := range cases {
		w := fitOrDie(t, []waveform.KeyPoint{{Time: 0, Position: 0}, {Time: tc.duration, Position: 10}}, 0.05)
		p, err := Compile(w, tc.tickPeriod)
		if err != nil {
			t.Fatal(err)
		}
		if p.Len() != tc.want {
			t.Errorf("duration %g period %g: %d commands, want %d", tc.duration, tc.tickPeriod, p.Len(), tc.want)
		}
	}
}

func TestCommandsStrictlyIncreasingFromZero(t *testing.T) {
	w := fitOrDie(t, []waveform.KeyPoint{{Time: 0, Position: 0}, {Time: 1, Position: 10}, {Time: 2, Position: 0}}, 0.05)
	p, err := Compile(w, 0.01)
	if err != nil {
		t.Fatal(err)
	}

	var prev uint32
	first := true
	count := 0
	for {
		cmd, ok := p.Next()
		if !ok {
			break
		}
		if first {
			if cmd.Tick != 0 {
				t.Fatalf("first tick = %d, want 0", cmd.Tick)
			}
			first = false
		} else if cmd.Tick != prev+1 {
			t.Fatalf("tick gap: %d after %d", cmd.Tick, prev)
		}
		prev = cmd.Tick
		count++
	}
	if count != p.Len() {
		t.Errorf("iterated %d commands, Len() = %d", count, p.Len())
	}
}

func TestReplayIsIdentical(t *testing.T) {
	w := fitOrDie(t, []waveform.KeyPoint{{Time: 0, Position: 5}, {Time: 0.7, Position: 42}, {Time: 1.5, Position: 11}}, 0.02)
	p, err := Compile(w, 0.007)
	if err != nil {
		t.Fatal(err)
	}

	var run1 []Command
	for {
		cmd, ok := p.Next()
		if !ok {
			break
		}
		run1 = append(run1, cmd)
	}

	p.Reset()

	var run2 []Command
	for {
		cmd, ok := p.Next()
		if !ok {
			break
		}
		run2 = append(run2, cmd)
	}

	if len(run1) != len(run2) {
		t.Fatalf("runs differ in length: %d vs %d", len(run1), len(run2))
	}
	for i := range run1 {
		if run1[i] != run2[i] {
			t.Fatalf("command %d differs between replays: %+v vs %+v", i, run1[i], run2[i])
		}
	}
}

func TestResamplingTracksWaveform(t *testing.T) {
	// Tick grid finer than and offset from the sample grid: commands must
	// stay on the piecewise-linear blend of adjacent samples, and endpoints
	// must match the waveform exactly.
	points := []waveform.KeyPoint{{Time: 0, Position: 0}, {Time: 1, Position: 10}, {Time: 2, Position: 0}}
	w := fitOrDie(t, points, 0.25)
	p, err := Compile(w, 0.1)
	if err != nil {
		t.Fatal(err)
	}

	firstCmd := p.At(0)
	lastCmd := p.At(p.Len() - 1)
	if math.Abs(firstCmd.Position-w.Samples[0].Position) > 1e-12 {
		t.Errorf("first command position = %g, want %g", firstCmd.Position, w.Samples[0].Position)
	}
	wantLast := w.Samples[len(w.Samples)-1].Position
	if math.Abs(lastCmd.Position-wantLast) > 1e-12 {
		t.Errorf("last command position = %g, want %g", lastCmd.Position, wantLast)
	}

	// A tick landing exactly on a sample time reproduces that sample.
	cmd := p.At(5) // t = 0.5, sample index 2
	if math.Abs(cmd.Position-w.Samples[2].Position) > 1e-9 {
		t.Errorf("on-grid command position = %g, want %g", cmd.Position, w.Samples[2].Position)
	}

	// A tick between samples lies between the bracketing positions.
	cmd = p.At(3) // t = 0.3, between samples at 0.25 and 0.5
	lo, hi := w.Samples[1].Position, w.Samples[2].Position
	if lo > hi {
		lo, hi = hi, lo
	}
	if cmd.Position < lo-1e-9 || cmd.Position > hi+1e-9 {
		t.Errorf("off-grid command position %g outside [%g, %g]", cmd.Position, lo, hi)
	}
}

func TestCompileRejectsBadInput(t *testing.T) {
	w := fitOrDie(t, []waveform.KeyPoint{{Time: 0, Position: 0}, {Time: 1, Position: 1}}, 0.1)

	if _, err := Compile(w, 0); err != ErrBadTickPeriod {
		t.Errorf("zero tick period: got %v, want ErrBadTickPeriod", err)
	}
	if _, err := Compile(nil, 0.1); err != ErrEmptyWaveform {
		t.Errorf("nil waveform: got %v, want ErrEmptyWaveform", err)
	}
	if _, err := Compile(&waveform.SampledWaveform{}, 0.1); err != ErrEmptyWaveform {
		t.Errorf("empty waveform: got %v, want ErrEmptyWaveform", err)
	}
}
