package waveform

import "fmt"

// FitErrorKind classifies bad input to the mathematical fit.
type FitErrorKind int

const (
	InsufficientPoints FitErrorKind = iota
	DuplicateTime
	NonMonotonic
)

func (k FitErrorKind) String() string {
	switch k {
	case InsufficientPoints:
		return "insufficient points"
	case DuplicateTime:
		return "duplicate time"
	case NonMonotonic:
		return "non-monotonic times"
	default:
		return fmt.Sprintf("FitErrorKind(%d)", int(k))
	}
}

// FitError reports why a key-point set cannot be fitted. Index is the
// offending point where one exists, -1 otherwise.
type FitError struct {
	Kind  FitErrorKind
	Index int
}

func (e *FitError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("fit: %s at point %d", e.Kind, e.Index)
	}
	return fmt.Sprintf("fit: %s", e.Kind)
}

// ValidationKind classifies physical-limit violations.
type ValidationKind int

const (
	NonIncreasingTime ValidationKind = iota
	PositionOutOfTravel
	VelocityExceeded
	AccelerationExceeded
)

func (k ValidationKind) String() string {
	switch k {
	case NonIncreasingTime:
		return "time not strictly increasing"
	case PositionOutOfTravel:
		return "position outside travel limits"
	case VelocityExceeded:
		return "implied velocity exceeds limit"
	case AccelerationExceeded:
		return "implied acceleration exceeds limit"
	default:
		return fmt.Sprintf("ValidationKind(%d)", int(k))
	}
}

// ValidationError is the first limit violation found in a key-point set.
// Validation is fail-fast: the caller re-validates after every edit, so one
// precise diagnostic beats an exhaustive report.
type ValidationError struct {
	Kind  ValidationKind
	Index int
	Value float64
	Limit float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate: %s at point %d (value %g, limit %g)", e.Kind, e.Index, e.Value, e.Limit)
}
