// Package profile compiles a sampled waveform onto the controller's tick
// grid. The display-facing sample interval and the hardware tick period are
// independent; the compiler bridges them with linear interpolation between
// adjacent samples.
package profile

import (
	"errors"
	"math"

	"heartbench/waveform"
)

var (
	ErrEmptyWaveform = errors.New("profile: waveform has no samples")
	ErrBadTickPeriod = errors.New("profile: tick period must be positive")
)

// Command is one per-tick motion setpoint. Tick indices start at 0 and
// increase without gaps.
type Command struct {
	Tick     uint32
	Position float64
	Velocity float64
}

// Profile is a compiled command sequence. Commands are computed on demand
// from the retained samples, so the same profile can be replayed any number
// of times: Reset rewinds the cursor to tick 0 without recompiling.
//
// A Profile is not safe for concurrent use; each streaming session owns one
// cursor.
type Profile struct {
	samples    []waveform.Sample
	tickPeriod float64
	ticks      int
	cursor     int
}

// Compile plans a waveform onto the given tick period (seconds). A waveform
// of duration T yields exactly ceil(T/p)+1 commands, tick 0 through
// ceil(T/p).
func Compile(w *waveform.SampledWaveform, tickPeriod float64) (*Profile, error) {
	if w == nil || len(w.Samples) == 0 {
		return nil, ErrEmptyWaveform
	}
	if tickPeriod <= 0 {
		return nil, ErrBadTickPeriod
	}

	ticks := int(math.Ceil(w.Duration()/tickPeriod-1e-9)) + 1
	if ticks < 1 {
		ticks = 1
	}

	return &Profile{
		samples:    w.Samples,
		tickPeriod: tickPeriod,
		ticks:      ticks,
	}, nil
}

// Len returns the total number of commands in the profile.
func (p *Profile) Len() int {
	return p.ticks
}

// TickPeriod returns the tick period in seconds.
func (p *Profile) TickPeriod() float64 {
	return p.tickPeriod
}

// Reset rewinds the cursor to tick 0.
func (p *Profile) Reset() {
	p.cursor = 0
}

// Next returns the command at the cursor and advances it. ok is false once
// the profile is exhausted.
func (p *Profile) Next() (Command, bool) {
	if p.cursor >= p.ticks {
		return Command{}, false
	}
	cmd := p.At(p.cursor)
	p.cursor++
	return cmd, true
}

// Remaining returns how many commands the cursor has not yet produced.
func (p *Profile) Remaining() int {
	return p.ticks - p.cursor
}

// At computes the command for an arbitrary tick index without moving the
// cursor.
func (p *Profile) At(tick int) Command {
	t := p.samples[0].Time + float64(tick)*p.tickPeriod
	pos, vel := p.interpolate(t)
	return Command{Tick: uint32(tick), Position: pos, Velocity: vel}
}

// interpolate linearly blends between the two samples bracketing t. Times
// past the final sample (the last tick may overshoot by less than one
// period) hold the final position.
func (p *Profile) interpolate(t float64) (float64, float64) {
	s := p.samples
	last := s[len(s)-1]
	if t >= last.Time {
		return last.Position, last.Velocity
	}
	if t <= s[0].Time {
		return s[0].Position, s[0].Velocity
	}

	// Constant sample spacing makes the bracketing index arithmetic.
	i := int((t - s[0].Time) / (s[1].Time - s[0].Time))
	if i >= len(s)-1 {
		i = len(s) - 2
	}
	// Guard against rounding placing t just outside the computed cell.
	for i > 0 && t < s[i].Time {
		i--
	}
	for i < len(s)-2 && t >= s[i+1].Time {
		i++
	}

	frac := (t - s[i].Time) / (s[i+1].Time - s[i].Time)
	pos := s[i].Position + frac*(s[i+1].Position-s[i].Position)
	vel := s[i].Velocity + frac*(s[i+1].Velocity-s[i].Velocity)
	return pos, vel
}
