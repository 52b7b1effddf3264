package protocol

import (
	"errors"
	"math"
)

// Positions, velocities and loads cross the wire as signed Q16.16 fixed
// point. The controller works in 16-bit registers, so each value occupies
// two of them; the quantization error stays below 1e-4 over the bench's
// travel range.

const fixedScale = 1 << 16

// fixedMax is the largest magnitude representable in Q16.16.
const fixedMax = math.MaxInt32 / float64(fixedScale)

var ErrFixedRange = errors.New("value outside fixed-point range")

// ToFixed converts a float to Q16.16, rounding to the nearest step.
func ToFixed(v float64) (int32, error) {
	if math.IsNaN(v) || v > fixedMax || v < -fixedMax-1 {
		return 0, ErrFixedRange
	}
	return int32(math.Round(v * fixedScale)), nil
}

// FromFixed converts a Q16.16 value back to a float.
func FromFixed(f int32) float64 {
	return float64(f) / fixedScale
}

// PutFixed appends a value in Q16.16 big-endian form (high register first,
// matching the controller's register order).
func PutFixed(output OutputBuffer, v float64) error {
	f, err := ToFixed(v)
	if err != nil {
		return err
	}
	u := uint32(f)
	output.Output([]byte{byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)})
	return nil
}

// TakeFixed decodes a Q16.16 value, advancing the data slice.
func TakeFixed(data *[]byte) (float64, error) {
	if len(*data) < 4 {
		return 0, ErrBufferTooSmall
	}
	b := *data
	u := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	*data = b[4:]
	return FromFixed(int32(u)), nil
}
