package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrFrameTooLong   = errors.New("frame exceeds maximum length")
	ErrShortPayload   = errors.New("payload truncated")
	ErrWrongFrameType = errors.New("unexpected frame type")
)

// Frame is one parsed wire frame: sequence byte plus raw payload (frame type
// byte included, header/trailer stripped).
type Frame struct {
	Seq     uint8
	Payload []byte
}

// Type returns the frame type byte, or 0 for an empty payload.
func (f Frame) Type() uint8 {
	if len(f.Payload) == 0 {
		return 0
	}
	return f.Payload[0]
}

// EncodeFrame wraps a payload in the length/sequence header and the
// CRC16/sync trailer.
func EncodeFrame(seq uint8, payload []byte) ([]byte, error) {
	msgLen := MessageHeaderSize + len(payload) + MessageTrailerSize
	if msgLen > MessageLengthMax {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLong, msgLen, MessageLengthMax)
	}

	frame := make([]byte, 0, msgLen)
	frame = append(frame, uint8(msgLen), seq)
	frame = append(frame, payload...)

	crc := CRC16(frame)
	frame = append(frame, uint8(crc>>8), uint8(crc&0xFF), MessageValueSync)

	return frame, nil
}

// Scanner incrementally extracts frames from a raw byte stream. After a
// framing or checksum error it discards bytes until the next sync byte and
// counts the reject; the caller charges rejects against its retry budget.
type Scanner struct {
	buf    *FifoBuffer
	synced bool

	// Discards counts frames rejected for bad length, sequence or CRC.
	Discards int
}

// NewScanner creates a Scanner with a buffer sized for several frames.
func NewScanner() *Scanner {
	return &Scanner{
		buf:    NewFifoBuffer(512),
		synced: true,
	}
}

// Write feeds raw transport bytes to the scanner.
func (s *Scanner) Write(p []byte) {
	s.buf.Write(p)
}

// Next returns the next complete, CRC-valid frame, or ok=false when the
// buffered data holds no complete frame.
func (s *Scanner) Next() (Frame, bool) {
	data := s.buf.Data()
	consumed := 0

	defer func() {
		if consumed > 0 {
			s.buf.Pop(consumed)
		}
	}()

	for len(data) > 0 {
		if !s.synced {
			// Hunt for a sync byte to realign on
			syncPos := -1
			for i, b := range data {
				if b == MessageValueSync {
					syncPos = i
					break
				}
			}
			if syncPos < 0 {
				consumed += len(data)
				return Frame{}, false
			}
			consumed += syncPos + 1
			data = data[syncPos+1:]
			s.synced = true
			continue
		}

		// Skip idle sync bytes between frames
		if data[0] == MessageValueSync {
			consumed++
			data = data[1:]
			continue
		}

		if len(data) < MessageLengthMin {
			return Frame{}, false
		}

		msgLen := int(data[MessagePositionLen])
		if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
			s.desync(&consumed, &data)
			continue
		}

		if len(data) < msgLen {
			return Frame{}, false
		}

		if data[msgLen-MessageTrailerSync] != MessageValueSync {
			s.desync(&consumed, &data)
			continue
		}

		frameCRC := uint16(data[msgLen-MessageTrailerCRC])<<8 |
			uint16(data[msgLen-MessageTrailerCRC+1])
		if frameCRC != CRC16(data[:msgLen-MessageTrailerSize]) {
			s.desync(&consumed, &data)
			continue
		}

		payload := make([]byte, msgLen-MessageHeaderSize-MessageTrailerSize)
		copy(payload, data[MessageHeaderSize:msgLen-MessageTrailerSize])
		frame := Frame{
			Seq:     data[MessagePositionSeq],
			Payload: payload,
		}

		consumed += msgLen
		return frame, true
	}

	return Frame{}, false
}

func (s *Scanner) desync(consumed *int, data *[]byte) {
	s.Discards++
	s.synced = false
	// Drop the rejected length byte and let the sync hunt take over
	*consumed++
	*data = (*data)[1:]
}

// Command is one per-tick motion setpoint on the wire.
type Command struct {
	Tick      uint32
	TargetPos float64
	TargetVel float64
}

// Feedback is one telemetry sample reported by the controller.
type Feedback struct {
	Tick     uint32
	Position float64
	Load     float64
	Status   StatusFlags
}

// EncodeCommand builds a Command frame payload.
func EncodeCommand(c Command) ([]byte, error) {
	out := NewScratchOutput()
	out.Output([]byte{FrameCommand})
	EncodeVLQUint(out, c.Tick)
	if err := PutFixed(out, c.TargetPos); err != nil {
		return nil, fmt.Errorf("target position: %w", err)
	}
	if err := PutFixed(out, c.TargetVel); err != nil {
		return nil, fmt.Errorf("target velocity: %w", err)
	}
	return out.Result(), nil
}

// DecodeCommand parses a Command frame payload.
func DecodeCommand(payload []byte) (Command, error) {
	var c Command
	if len(payload) == 0 || payload[0] != FrameCommand {
		return c, ErrWrongFrameType
	}
	data := payload[1:]

	tick, err := DecodeVLQUint(&data)
	if err != nil {
		return c, err
	}
	pos, err := TakeFixed(&data)
	if err != nil {
		return c, err
	}
	vel, err := TakeFixed(&data)
	if err != nil {
		return c, err
	}

	c.Tick, c.TargetPos, c.TargetVel = tick, pos, vel
	return c, nil
}

// EncodeCommandAck builds a CommandAck frame payload.
func EncodeCommandAck(tick uint32) []byte {
	out := NewScratchOutput()
	out.Output([]byte{FrameCommandAck})
	EncodeVLQUint(out, tick)
	return out.Result()
}

// DecodeCommandAck parses a CommandAck frame payload.
func DecodeCommandAck(payload []byte) (uint32, error) {
	if len(payload) == 0 || payload[0] != FrameCommandAck {
		return 0, ErrWrongFrameType
	}
	data := payload[1:]
	return DecodeVLQUint(&data)
}

// EncodeFeedback builds a Feedback frame payload.
func EncodeFeedback(f Feedback) ([]byte, error) {
	out := NewScratchOutput()
	out.Output([]byte{FrameFeedback})
	EncodeVLQUint(out, f.Tick)
	if err := PutFixed(out, f.Position); err != nil {
		return nil, fmt.Errorf("position: %w", err)
	}
	if err := PutFixed(out, f.Load); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	out.Output([]byte{uint8(f.Status)})
	return out.Result(), nil
}

// DecodeFeedback parses a Feedback frame payload.
func DecodeFeedback(payload []byte) (Feedback, error) {
	var f Feedback
	if len(payload) == 0 || payload[0] != FrameFeedback {
		return f, ErrWrongFrameType
	}
	data := payload[1:]

	tick, err := DecodeVLQUint(&data)
	if err != nil {
		return f, err
	}
	pos, err := TakeFixed(&data)
	if err != nil {
		return f, err
	}
	load, err := TakeFixed(&data)
	if err != nil {
		return f, err
	}
	if len(data) < 1 {
		return f, ErrShortPayload
	}

	f.Tick, f.Position, f.Load, f.Status = tick, pos, load, StatusFlags(data[0])
	return f, nil
}

// EncodeSessionStart builds a SessionStart frame payload carrying the tick
// period in microseconds.
func EncodeSessionStart(tickPeriodMicros uint32) []byte {
	out := NewScratchOutput()
	out.Output([]byte{FrameSessionStart})
	EncodeVLQUint(out, tickPeriodMicros)
	return out.Result()
}

// DecodeSessionStart parses a SessionStart frame payload.
func DecodeSessionStart(payload []byte) (uint32, error) {
	if len(payload) == 0 || payload[0] != FrameSessionStart {
		return 0, ErrWrongFrameType
	}
	data := payload[1:]
	return DecodeVLQUint(&data)
}

// EncodeSessionStartAck builds a SessionStartAck frame payload.
func EncodeSessionStartAck() []byte {
	return []byte{FrameSessionStartAck}
}

// EncodeSessionStop builds a SessionStop frame payload.
func EncodeSessionStop() []byte {
	return []byte{FrameSessionStop}
}
