package transport

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// SerialPort wraps the tarm/serial implementation
type SerialPort struct {
	port *serial.Port
	cfg  *SerialConfig
}

// OpenSerial opens a native serial port
func OpenSerial(cfg *SerialConfig) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	serialConfig := &serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	}

	port, err := serial.OpenPort(serialConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	return &SerialPort{
		port: port,
		cfg:  cfg,
	}, nil
}

// Read reads data from the serial port
func (p *SerialPort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write writes data to the serial port
func (p *SerialPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close closes the serial port
func (p *SerialPort) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// Flush flushes the serial port buffers
func (p *SerialPort) Flush() error {
	return p.port.Flush()
}
