package transport

import (
	"fmt"
	"net"
	"time"
)

// TCPPort adapts a network connection to the Port interface. The physical
// bench exposes the controller through a TCP gateway; the virtual
// controller listens on a socket directly.
type TCPPort struct {
	conn net.Conn
}

// DialTCP connects to a controller at addr (host:port). A connect failure
// is reported immediately; there is no retry beyond what the dialer itself
// does.
func DialTCP(addr string, timeout time.Duration) (Port, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to controller at %s: %w", addr, err)
	}
	return &TCPPort{conn: conn}, nil
}

// WrapConn adapts an established connection (or an in-memory pipe in tests)
// to the Port interface.
func WrapConn(conn net.Conn) Port {
	return &TCPPort{conn: conn}
}

// Read reads data from the connection
func (p *TCPPort) Read(b []byte) (int, error) {
	return p.conn.Read(b)
}

// Write writes data to the connection
func (p *TCPPort) Write(b []byte) (int, error) {
	return p.conn.Write(b)
}

// Close closes the connection
func (p *TCPPort) Close() error {
	return p.conn.Close()
}

// Flush is a no-op; the kernel flushes socket writes.
func (p *TCPPort) Flush() error {
	return nil
}
