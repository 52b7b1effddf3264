package plc

import (
	"errors"
	"fmt"
)

var (
	// ErrProfileDone is returned by SendNext when the attached profile has
	// no commands left.
	ErrProfileDone = errors.New("plc: profile exhausted")

	// ErrSessionClosed is returned once a session has been stopped.
	ErrSessionClosed = errors.New("plc: session closed")

	// ErrNotStreaming is returned when a streaming call arrives before the
	// handshake completed.
	ErrNotStreaming = errors.New("plc: session not streaming")
)

// FaultKind classifies terminal link faults.
type FaultKind int

const (
	// FaultCorruption: framing or checksum rejects exceeded the retry
	// budget.
	FaultCorruption FaultKind = iota

	// FaultAckTimeout: a command went unacknowledged after the configured
	// retries.
	FaultAckTimeout

	// FaultTickGap: the controller's tick counter skipped, or acknowledged
	// a tick the session never sent.
	FaultTickGap

	// FaultTransport: the transport failed mid-stream.
	FaultTransport
)

func (k FaultKind) String() string {
	switch k {
	case FaultCorruption:
		return "frame corruption"
	case FaultAckTimeout:
		return "acknowledgment timeout"
	case FaultTickGap:
		return "tick gap"
	case FaultTransport:
		return "transport failure"
	default:
		return fmt.Sprintf("FaultKind(%d)", int(k))
	}
}

// LinkFault is a terminal streaming fault. The session that raised it can
// only be discarded; recovery is an explicit reconnect with the profile
// restarted from tick 0, never a resume.
type LinkFault struct {
	Kind         FaultKind
	Tick         uint32 // tick being processed when the fault hit
	LastGoodTick uint32 // last tick known to have been applied
	Detail       string
}

func (e *LinkFault) Error() string {
	msg := fmt.Sprintf("plc: link fault: %s at tick %d (last good tick %d)", e.Kind, e.Tick, e.LastGoodTick)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// TransportError reports a connect or handshake failure. Surfaced
// immediately; the session does not retry connects.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("plc: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
