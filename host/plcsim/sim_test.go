package plcsim

import (
	"math"
	"net"
	"testing"
	"time"

	"heartbench/protocol"
)

// scriptedHost drives a simulator over a pipe at the frame level.
type scriptedHost struct {
	t       *testing.T
	conn    net.Conn
	scanner *protocol.Scanner
	seq     uint8
}

func newScriptedHost(t *testing.T, conn net.Conn) *scriptedHost {
	return &scriptedHost{t: t, conn: conn, scanner: protocol.NewScanner(), seq: protocol.MessageSeqHost}
}

func (h *scriptedHost) send(payload []byte) {
	h.t.Helper()
	frame, err := protocol.EncodeFrame(h.seq, payload)
	if err != nil {
		h.t.Fatal(err)
	}
	h.seq = ((h.seq + 1) & protocol.MessageSeqMask) | protocol.MessageSeqHost
	if _, err := h.conn.Write(frame); err != nil {
		h.t.Fatal(err)
	}
}

func (h *scriptedHost) recv() protocol.Frame {
	h.t.Helper()
	buf := make([]byte, 256)
	deadline := time.Now().Add(time.Second)
	for {
		if frame, ok := h.scanner.Next(); ok {
			return frame
		}
		if time.Now().After(deadline) {
			h.t.Fatal("no frame from simulator within a second")
		}
		h.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, err := h.conn.Read(buf)
		if n > 0 {
			h.scanner.Write(buf[:n])
		}
		if err != nil && n == 0 {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			h.t.Fatalf("read: %v", err)
		}
	}
}

func TestSimulatorSession(t *testing.T) {
	hostConn, simConn := net.Pipe()
	done := make(chan error, 1)
	go func() { done <- New(DefaultOptions()).ServeConn(simConn) }()

	h := newScriptedHost(t, hostConn)

	h.send(protocol.EncodeSessionStart(10000))
	if frame := h.recv(); frame.Type() != protocol.FrameSessionStartAck {
		t.Fatalf("handshake reply type = %02X", frame.Type())
	}

	// First command: the motor snaps to the target, so feedback reports it
	// exactly with zero load.
	payload, err := protocol.EncodeCommand(protocol.Command{Tick: 0, TargetPos: 12.5, TargetVel: 0})
	if err != nil {
		t.Fatal(err)
	}
	h.send(payload)

	ack := h.recv()
	tick, err := protocol.DecodeCommandAck(ack.Payload)
	if err != nil || tick != 0 {
		t.Fatalf("ack tick = %d, err = %v", tick, err)
	}
	fb, err := protocol.DecodeFeedback(h.recv().Payload)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(fb.Position-12.5) > 1e-4 || math.Abs(fb.Load) > 1e-4 {
		t.Errorf("first feedback = %+v, want position 12.5, load 0", fb)
	}
	if fb.Status&protocol.StatusRunning == 0 || fb.Status&protocol.StatusPowered == 0 {
		t.Errorf("status = %02X, want running and powered", fb.Status)
	}

	// Second command: a step of 10 mm closes by the tracking gain.
	payload, err = protocol.EncodeCommand(protocol.Command{Tick: 1, TargetPos: 22.5, TargetVel: 0})
	if err != nil {
		t.Fatal(err)
	}
	h.send(payload)
	h.recv() // ack
	fb, err = protocol.DecodeFeedback(h.recv().Payload)
	if err != nil {
		t.Fatal(err)
	}
	wantPos := 12.5 + 10*DefaultOptions().TrackingGain
	if math.Abs(fb.Position-wantPos) > 1e-4 {
		t.Errorf("tracked position = %v, want %v", fb.Position, wantPos)
	}
	wantLoad := 10 * DefaultOptions().LoadGain
	if math.Abs(fb.Load-wantLoad) > 1e-4 {
		t.Errorf("load = %v, want %v", fb.Load, wantLoad)
	}

	h.send(protocol.EncodeSessionStop())
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("simulator exit: %v", err)
		}
	case <-time.After(time.Second):
		t.Error("simulator did not exit on session stop")
	}
}

func TestSimulatorDropsAcks(t *testing.T) {
	hostConn, simConn := net.Pipe()
	opts := DefaultOptions()
	opts.DropEveryNthAck = 2
	go New(opts).ServeConn(simConn)

	h := newScriptedHost(t, hostConn)
	h.send(protocol.EncodeSessionStart(10000))
	h.recv()

	sendCommand := func(tick uint32) {
		payload, err := protocol.EncodeCommand(protocol.Command{Tick: tick, TargetPos: 1, TargetVel: 0})
		if err != nil {
			t.Fatal(err)
		}
		h.send(payload)
	}

	// First command is acked; the second command's ack is dropped but its
	// feedback still arrives.
	sendCommand(0)
	if frame := h.recv(); frame.Type() != protocol.FrameCommandAck {
		t.Fatalf("first reply type = %02X, want ack", frame.Type())
	}
	if frame := h.recv(); frame.Type() != protocol.FrameFeedback {
		t.Fatalf("second reply type = %02X, want feedback", frame.Type())
	}

	sendCommand(1)
	if frame := h.recv(); frame.Type() != protocol.FrameFeedback {
		t.Fatalf("dropped-ack reply type = %02X, want feedback only", frame.Type())
	}
	hostConn.Close()
}
