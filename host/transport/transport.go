// Package transport provides the byte-stream link to the motor controller.
// The controller is reachable either over a serial line or a TCP socket;
// both sit behind the Port interface so the session and the tests can also
// run over in-memory pipes.
package transport

import (
	"io"
)

// Port is the transport resource a controller session exclusively owns.
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// SerialConfig holds serial port configuration.
type SerialConfig struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultSerialConfig returns the bench's standard serial settings.
func DefaultSerialConfig(device string) *SerialConfig {
	return &SerialConfig{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
	}
}
