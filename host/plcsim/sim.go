// Package plcsim emulates the linear-motor controller for bench software
// development. It speaks the real wire protocol over any connection and
// drives a simple first-order motor model, so the host stack can be
// exercised end to end without hardware.
package plcsim

import (
	"log"
	"net"
	"sync/atomic"

	"heartbench/protocol"
)

// Options tune the simulated controller.
type Options struct {
	// TrackingGain is the fraction of the position error closed per tick.
	// 1 tracks commands exactly; lower values lag like a real motor.
	TrackingGain float64

	// LoadGain scales the simulated load cell reading, which is
	// proportional to the position error.
	LoadGain float64

	// DropEveryNthAck, when > 0, silently drops every Nth command
	// acknowledgment. Used to exercise the host's resend path.
	DropEveryNthAck int

	// SkipFeedbackTick, when > 0, reports that feedback tick with a
	// counter jump. Used to exercise the host's tick-gap fault.
	SkipFeedbackTick uint32
}

// DefaultOptions returns a well-behaved controller.
func DefaultOptions() Options {
	return Options{
		TrackingGain: 0.8,
		LoadGain:     2.5,
	}
}

// Simulator emulates one controller. A Simulator may serve many
// connections over its lifetime but only one at a time per ServeConn call.
type Simulator struct {
	opts Options

	sessions atomic.Int64
}

// New creates a simulator.
func New(opts Options) *Simulator {
	if opts.TrackingGain <= 0 || opts.TrackingGain > 1 {
		opts.TrackingGain = DefaultOptions().TrackingGain
	}
	return &Simulator{opts: opts}
}

// Serve accepts connections and runs a session on each until the listener
// closes.
func (s *Simulator) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go func() {
			if err := s.ServeConn(conn); err != nil {
				log.Printf("plcsim: session ended: %v", err)
			}
		}()
	}
}

// ServeConn runs one controller session on an established connection. It
// returns nil when the host sends a session stop or disconnects, and the
// transport error otherwise. The connection is closed on return.
func (s *Simulator) ServeConn(conn net.Conn) error {
	defer conn.Close()

	n := s.sessions.Add(1)
	log.Printf("plcsim: session %d from %v", n, conn.RemoteAddr())

	m := &motor{gain: s.opts.TrackingGain, loadGain: s.opts.LoadGain}
	scanner := protocol.NewScanner()
	buf := make([]byte, 256)
	var seq uint8 = protocol.MessageSeqController
	acks := 0

	reply := func(payload []byte) error {
		frame, err := protocol.EncodeFrame(seq, payload)
		if err != nil {
			return err
		}
		seq = ((seq + 1) & protocol.MessageSeqMask) | protocol.MessageSeqController
		_, err = conn.Write(frame)
		return err
	}

	for {
		nr, err := conn.Read(buf)
		if nr > 0 {
			scanner.Write(buf[:nr])
			for {
				frame, ok := scanner.Next()
				if !ok {
					break
				}

				switch frame.Type() {
				case protocol.FrameSessionStart:
					period, derr := protocol.DecodeSessionStart(frame.Payload)
					if derr != nil {
						continue
					}
					log.Printf("plcsim: session start, tick period %d us", period)
					if werr := reply(protocol.EncodeSessionStartAck()); werr != nil {
						return werr
					}

				case protocol.FrameCommand:
					cmd, derr := protocol.DecodeCommand(frame.Payload)
					if derr != nil {
						continue
					}
					fb := m.step(cmd)

					acks++
					if s.opts.DropEveryNthAck > 0 && acks%s.opts.DropEveryNthAck == 0 {
						continue
					}
					if werr := reply(protocol.EncodeCommandAck(cmd.Tick)); werr != nil {
						return werr
					}

					if s.opts.SkipFeedbackTick > 0 && fb.Tick == s.opts.SkipFeedbackTick {
						fb.Tick += 2
					}
					payload, ferr := protocol.EncodeFeedback(fb)
					if ferr != nil {
						continue
					}
					if werr := reply(payload); werr != nil {
						return werr
					}

				case protocol.FrameSessionStop:
					log.Printf("plcsim: session stop")
					return nil
				}
			}
		}
		if err != nil {
			return nil
		}
	}
}

// motor is a first-order position tracker standing in for the linear
// actuator and its load cell.
type motor struct {
	gain     float64
	loadGain float64
	position float64
	started  bool
}

func (m *motor) step(cmd protocol.Command) protocol.Feedback {
	if !m.started {
		m.position = cmd.TargetPos
		m.started = true
	}
	err := cmd.TargetPos - m.position
	m.position += err * m.gain

	return protocol.Feedback{
		Tick:     cmd.Tick,
		Position: m.position,
		Load:     err * m.loadGain,
		Status:   protocol.StatusRunning | protocol.StatusPowered,
	}
}
