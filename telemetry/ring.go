// Package telemetry stores feedback samples arriving from the controller in
// a bounded, time-ordered ring for live display and recording.
package telemetry

import (
	"sync"
	"time"
)

// Sample is one decoded feedback frame plus the host receive time.
type Sample struct {
	Tick     uint32    `json:"tick"`
	Position float64   `json:"position"`
	Load     float64   `json:"load"`
	Status   uint8     `json:"status"`
	At       time.Time `json:"at"`
}

// Ring is a fixed-capacity feedback buffer. One writer (the controller
// link) appends; any number of readers take snapshots. When full, the
// oldest sample is evicted, so a reader only ever sees entries age out
// between reads, never disappear mid-read.
type Ring struct {
	mu    sync.RWMutex
	buf   []Sample
	start int
	count int
}

// NewRing creates a ring holding up to capacity samples.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]Sample, capacity)}
}

// Append adds a sample, evicting the oldest when full.
func (r *Ring) Append(s Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = s
		r.count++
		return
	}
	r.buf[r.start] = s
	r.start = (r.start + 1) % len(r.buf)
}

// Len returns the number of stored samples.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Snapshot returns the stored samples oldest-first as a fresh slice.
func (r *Ring) Snapshot() []Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Sample, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Last returns the most recent sample.
func (r *Ring) Last() (Sample, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.count == 0 {
		return Sample{}, false
	}
	return r.buf[(r.start+r.count-1)%len(r.buf)], true
}

// Since returns, oldest-first, the stored samples with tick greater than
// afterTick. Readers that poll use it to pick up only new samples.
func (r *Ring) Since(afterTick uint32) []Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Sample
	for i := 0; i < r.count; i++ {
		s := r.buf[(r.start+i)%len(r.buf)]
		if s.Tick > afterTick {
			out = append(out, s)
		}
	}
	return out
}
