package waveform

// Mapping projects a normalized waveform (time and position in [0,1]) onto
// the physical stroke of a specific motor: time scales with the beat
// frequency, position with the travel between zero and limit, adjusted by an
// amplitude scale and an offset. Mapped positions are clamped to the travel.
type Mapping struct {
	Frequency float64 `json:"frequency"` // beats per second; one normalized cycle spans 1/Frequency
	Scale     float64 `json:"scale"`     // amplitude scale on the stroke
	Offset    float64 `json:"offset"`    // position offset after scaling
	ZeroPos   float64 `json:"zero_pos"`  // stroke start
	LimitPos  float64 `json:"limit_pos"` // stroke end
}

// Apply returns a mapped copy of points; the input is not modified.
func (m Mapping) Apply(points []KeyPoint) []KeyPoint {
	stroke := m.LimitPos - m.ZeroPos
	out := make([]KeyPoint, len(points))
	for i, p := range points {
		pos := m.ZeroPos + p.Position*stroke*m.Scale + m.Offset
		if pos < m.ZeroPos {
			pos = m.ZeroPos
		}
		if pos > m.LimitPos {
			pos = m.LimitPos
		}
		out[i] = KeyPoint{
			Time:     p.Time / m.Frequency,
			Position: pos,
		}
	}
	return out
}
