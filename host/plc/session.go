// Package plc manages the bidirectional streaming session with the motor
// controller: the connect handshake, tick-paced command emission with a
// bounded retry policy, and the independent feedback receive path.
package plc

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"heartbench/host/transport"
	"heartbench/profile"
	"heartbench/protocol"
	"heartbench/telemetry"
)

// State is the session lifecycle state.
type State int

const (
	Disconnected State = iota
	Connecting
	Streaming
	Faulted
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Streaming:
		return "Streaming"
	case Faulted:
		return "Faulted"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Config holds the session's timing and retry policy. Retry count and
// backoff are configuration rather than constants: they depend on the
// controller hardware.
type Config struct {
	// TickPeriod is the controller's update period.
	TickPeriod time.Duration

	// HandshakeTimeout bounds the wait for the session-start
	// acknowledgment.
	HandshakeTimeout time.Duration

	// AckTimeout bounds the wait for each command acknowledgment before a
	// resend.
	AckTimeout time.Duration

	// RetryLimit is the number of resends of one frame before the session
	// faults. Frame-corruption discards count against the same budget.
	RetryLimit int

	// RetryBackoff is the initial delay before a resend; it doubles per
	// attempt.
	RetryBackoff time.Duration

	// Notify, when set, observes every state transition. Called from
	// session goroutines; must not block.
	Notify func(State)
}

// DefaultConfig returns the bench's standard link policy.
func DefaultConfig() Config {
	return Config{
		TickPeriod:       10 * time.Millisecond,
		HandshakeTimeout: 2 * time.Second,
		AckTimeout:       250 * time.Millisecond,
		RetryLimit:       3,
		RetryBackoff:     20 * time.Millisecond,
	}
}

// Session owns one physical link to the controller. It is the exclusive
// owner of its transport Port and releases it on every exit path: stop,
// fault, or failed connect. A session streams one profile; replaying after
// a fault or stop requires a fresh session with the profile reset to tick 0.
type Session struct {
	cfg  Config
	port transport.Port
	prof *profile.Profile
	ring *telemetry.Ring

	mu           sync.Mutex
	state        State
	fault        *LinkFault
	seq          uint8
	lastFBTick   uint32
	haveFeedback bool
	lastGoodTick uint32
	haveAck      bool
	corrupt      int
	readerUp     bool

	ackCh      chan uint32
	hsCh       chan struct{}
	stopCh     chan struct{}
	faultCh    chan struct{}
	readerDone chan struct{}
	closeOnce  sync.Once
}

// NewSession creates a session over an open transport. The session takes
// ownership of the port.
func NewSession(port transport.Port, prof *profile.Profile, ring *telemetry.Ring, cfg Config) *Session {
	return &Session{
		cfg:        cfg,
		port:       port,
		prof:       prof,
		ring:       ring,
		state:      Disconnected,
		seq:        protocol.MessageSeqHost,
		ackCh:      make(chan uint32, 4),
		hsCh:       make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
		faultCh:    make(chan struct{}),
		readerDone: make(chan struct{}),
	}
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the terminal fault, if the session has one.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault != nil {
		return s.fault
	}
	return nil
}

// LastGoodTick returns the last tick the controller acknowledged.
func (s *Session) LastGoodTick() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastGoodTick
}

// Connect performs the session-start handshake: Disconnected -> Connecting,
// then Streaming once the controller acknowledges. On failure the transport
// is released and the session ends Closed; connect is never retried here.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Disconnected {
		st := s.state
		s.mu.Unlock()
		return &TransportError{Op: "connect", Err: errors.New("session already " + st.String())}
	}
	s.setStateLocked(Connecting)
	s.readerUp = true
	s.mu.Unlock()

	go s.readLoop()

	micros := uint32(s.cfg.TickPeriod / time.Microsecond)
	if err := s.writeFrame(protocol.EncodeSessionStart(micros)); err != nil {
		s.shutdown()
		s.setState(Closed)
		return &TransportError{Op: "connect", Err: err}
	}

	select {
	case <-s.hsCh:
		s.setState(Streaming)
		log.Printf("plc: session streaming, tick period %v", s.cfg.TickPeriod)
		return nil
	case <-time.After(s.cfg.HandshakeTimeout):
		s.shutdown()
		s.setState(Closed)
		return &TransportError{Op: "handshake", Err: errors.New("no session-start acknowledgment")}
	case <-ctx.Done():
		s.shutdown()
		s.setState(Closed)
		return &TransportError{Op: "connect", Err: ctx.Err()}
	case <-s.faultCh:
		return s.Err()
	}
}

// SendNext emits the profile's next command and waits for its
// acknowledgment, resending up to the retry limit with doubling backoff.
// Returns ErrProfileDone once the profile is exhausted.
func (s *Session) SendNext() error {
	s.mu.Lock()
	switch s.state {
	case Streaming:
	case Faulted:
		f := s.fault
		s.mu.Unlock()
		return f
	case Closed:
		s.mu.Unlock()
		return ErrSessionClosed
	default:
		s.mu.Unlock()
		return ErrNotStreaming
	}
	seq := s.seq
	s.mu.Unlock()

	cmd, ok := s.prof.Next()
	if !ok {
		return ErrProfileDone
	}

	payload, err := protocol.EncodeCommand(protocol.Command{
		Tick:      cmd.Tick,
		TargetPos: cmd.Position,
		TargetVel: cmd.Velocity,
	})
	if err != nil {
		return s.fail(&LinkFault{Kind: FaultTransport, Tick: cmd.Tick, LastGoodTick: s.LastGoodTick(), Detail: err.Error()})
	}
	frame, err := protocol.EncodeFrame(seq, payload)
	if err != nil {
		return s.fail(&LinkFault{Kind: FaultTransport, Tick: cmd.Tick, LastGoodTick: s.LastGoodTick(), Detail: err.Error()})
	}

	backoff := s.cfg.RetryBackoff
	for attempt := 0; ; attempt++ {
		if _, werr := s.port.Write(frame); werr != nil {
			return s.fail(&LinkFault{Kind: FaultTransport, Tick: cmd.Tick, LastGoodTick: s.LastGoodTick(), Detail: werr.Error()})
		}

		timer := time.NewTimer(s.cfg.AckTimeout)
	wait:
		for {
			select {
			case tick := <-s.ackCh:
				s.mu.Lock()
				stale := s.haveAck && tick <= s.lastGoodTick
				s.mu.Unlock()
				if stale {
					// Duplicate ack left over from a resend.
					continue wait
				}
				timer.Stop()
				if tick != cmd.Tick {
					return s.fail(&LinkFault{
						Kind:         FaultTickGap,
						Tick:         cmd.Tick,
						LastGoodTick: s.LastGoodTick(),
						Detail:       "acknowledgment for unsent tick",
					})
				}
				s.mu.Lock()
				s.lastGoodTick = tick
				s.haveAck = true
				s.seq = ((s.seq + 1) & protocol.MessageSeqMask) | protocol.MessageSeqHost
				s.mu.Unlock()
				return nil

			case <-timer.C:
				break wait

			case <-s.faultCh:
				timer.Stop()
				return s.Err()

			case <-s.stopCh:
				timer.Stop()
				return ErrSessionClosed
			}
		}

		if attempt >= s.cfg.RetryLimit {
			return s.fail(&LinkFault{
				Kind:         FaultAckTimeout,
				Tick:         cmd.Tick,
				LastGoodTick: s.LastGoodTick(),
			})
		}
		log.Printf("plc: tick %d unacknowledged, resend %d/%d", cmd.Tick, attempt+1, s.cfg.RetryLimit)
		time.Sleep(backoff)
		backoff *= 2
	}
}

// Run paces SendNext at the tick period until the profile is exhausted, the
// context is canceled, or the link faults. Cancellation is observed within
// one tick and leaves the session Closed with the transport released.
func (s *Session) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return s.Stop()
		case <-s.faultCh:
			return s.Err()
		case <-ticker.C:
			switch err := s.SendNext(); {
			case err == nil:
			case errors.Is(err, ErrProfileDone):
				log.Printf("plc: profile complete at tick %d", s.LastGoodTick())
				return s.Stop()
			default:
				return err
			}
		}
	}
}

// Stop ends the session: a best-effort stop frame, then the transport is
// closed before Stop returns. Safe to call in any state.
func (s *Session) Stop() error {
	s.mu.Lock()
	var sendStop bool
	switch s.state {
	case Streaming, Connecting:
		sendStop = true
		s.setStateLocked(Closed)
	case Disconnected:
		s.setStateLocked(Closed)
	default:
		s.mu.Unlock()
		return nil
	}
	seq := s.seq
	readerUp := s.readerUp
	s.mu.Unlock()

	// The write happens outside the lock: on a synchronous transport it
	// blocks until the peer reads, and the read loop needs the lock.
	if sendStop {
		if frame, err := protocol.EncodeFrame(seq, protocol.EncodeSessionStop()); err == nil {
			s.port.Write(frame) // best effort; the port closes next
		}
	}

	s.shutdown()
	if readerUp {
		<-s.readerDone
	}
	log.Printf("plc: session closed")
	return nil
}

// writeFrame frames a payload with the current sequence number and writes
// it to the transport.
func (s *Session) writeFrame(payload []byte) error {
	s.mu.Lock()
	seq := s.seq
	s.mu.Unlock()

	frame, err := protocol.EncodeFrame(seq, payload)
	if err != nil {
		return err
	}
	if _, err := s.port.Write(frame); err != nil {
		return err
	}
	return nil
}

// fail marks the session Faulted and releases the transport. The first
// fault wins; later calls return the original.
func (s *Session) fail(f *LinkFault) error {
	s.mu.Lock()
	if s.state == Faulted || s.state == Closed {
		err := s.fault
		s.mu.Unlock()
		if err != nil {
			return err
		}
		return ErrSessionClosed
	}
	s.fault = f
	s.setStateLocked(Faulted)
	s.mu.Unlock()

	close(s.faultCh)
	s.shutdown()
	log.Printf("plc: %v", f)
	return f
}

// shutdown releases the transport and stops the read loop. Idempotent.
func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		close(s.stopCh)
		s.port.Close()
	})
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.setStateLocked(st)
	s.mu.Unlock()
}

func (s *Session) setStateLocked(st State) {
	s.state = st
	if s.cfg.Notify != nil {
		s.cfg.Notify(st)
	}
}

// readLoop is the receive direction: it decodes controller frames and never
// blocks command emission. Feedback goes straight to the ring; acks go to
// the channel SendNext waits on.
func (s *Session) readLoop() {
	defer close(s.readerDone)

	scanner := protocol.NewScanner()
	buf := make([]byte, 256)

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		n, err := s.port.Read(buf)
		if n > 0 {
			scanner.Write(buf[:n])
			for {
				frame, ok := scanner.Next()
				if !ok {
					break
				}
				s.dispatch(frame)
			}
			if scanner.Discards > s.cfg.RetryLimit {
				s.fail(&LinkFault{
					Kind:         FaultCorruption,
					LastGoodTick: s.LastGoodTick(),
					Detail:       "corrupt frames exceeded retry budget",
				})
				return
			}
		}
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}
			if err == io.EOF || s.State() == Streaming || s.State() == Connecting {
				s.fail(&LinkFault{
					Kind:         FaultTransport,
					LastGoodTick: s.LastGoodTick(),
					Detail:       err.Error(),
				})
			}
			return
		}
	}
}

// dispatch routes one controller frame.
func (s *Session) dispatch(frame protocol.Frame) {
	switch frame.Type() {
	case protocol.FrameSessionStartAck:
		select {
		case s.hsCh <- struct{}{}:
		default:
		}

	case protocol.FrameCommandAck:
		tick, err := protocol.DecodeCommandAck(frame.Payload)
		if err != nil {
			s.noteCorrupt()
			return
		}
		select {
		case s.ackCh <- tick:
		default:
			// Nothing waiting; a stale ack after a resend is dropped.
		}

	case protocol.FrameFeedback:
		fb, err := protocol.DecodeFeedback(frame.Payload)
		if err != nil {
			s.noteCorrupt()
			return
		}

		s.mu.Lock()
		if s.haveFeedback && fb.Tick > s.lastFBTick+1 {
			last := s.lastFBTick
			s.mu.Unlock()
			s.fail(&LinkFault{
				Kind:         FaultTickGap,
				Tick:         fb.Tick,
				LastGoodTick: last,
				Detail:       "feedback tick counter skipped",
			})
			return
		}
		if !s.haveFeedback || fb.Tick > s.lastFBTick {
			s.lastFBTick = fb.Tick
			s.haveFeedback = true
		}
		s.mu.Unlock()

		s.ring.Append(telemetry.Sample{
			Tick:     fb.Tick,
			Position: fb.Position,
			Load:     fb.Load,
			Status:   uint8(fb.Status),
			At:       time.Now(),
		})

	default:
		s.noteCorrupt()
	}
}

// noteCorrupt charges an undecodable payload against the retry budget.
func (s *Session) noteCorrupt() {
	s.mu.Lock()
	s.corrupt++
	over := s.corrupt > s.cfg.RetryLimit
	s.mu.Unlock()

	if over {
		s.fail(&LinkFault{
			Kind:         FaultCorruption,
			LastGoodTick: s.LastGoodTick(),
			Detail:       "undecodable frames exceeded retry budget",
		})
	}
}
