// Package protocol implements the framed wire protocol spoken between the
// bench host and the linear-motor controller.
package protocol

// Protocol constants
const (
	MessageHeaderSize  = 2 // length + sequence
	MessageTrailerSize = 3 // CRC16 + sync byte
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64

	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E

	// Sequence numbers carry a direction nibble: frames originated by the
	// host use 0x10-0x1F, frames originated by the controller use 0x00-0x0F.
	MessageSeqMask       = 0x0F
	MessageSeqHost       = 0x10
	MessageSeqController = 0x00
)

// Frame type identifiers, the first payload byte of every frame.
const (
	FrameSessionStart    = 0x01 // host -> controller: tick period in microseconds
	FrameSessionStartAck = 0x02 // controller -> host
	FrameCommand         = 0x03 // host -> controller: tick, target position, target velocity
	FrameCommandAck      = 0x04 // controller -> host: tick
	FrameFeedback        = 0x05 // controller -> host: tick, position, load, status
	FrameSessionStop     = 0x06 // host -> controller
)

// StatusFlags are the controller status bits carried in feedback frames.
type StatusFlags uint8

const (
	StatusRunning StatusFlags = 1 << 0
	StatusPowered StatusFlags = 1 << 1
	StatusFault   StatusFlags = 1 << 2
)
