// Package wire frames register monitor traffic between the host and a
// target. It uses the Klipper serial framing:
//
//	[len][seq][payload...][crc16 hi][crc16 lo][0x7E]
//
// The payload is a sequence of VLQ-encoded command IDs and arguments. A
// frame without payload acknowledges every frame before the sequence it
// carries.
package wire

import "errors"

// Frame layout
const (
	HeaderSize  = 2
	TrailerSize = 3
	FrameMin    = HeaderSize + TrailerSize
	FrameMax    = 64
	PayloadMax  = FrameMax - FrameMin

	SyncByte = 0x7E
	SeqDest  = 0x10 // High nibble of every sequence byte
	SeqMask  = 0x0F

	posLen = 0
	posSeq = 1
)

var (
	ErrFrameTooLong = errors.New("wire: frame too long")
	ErrShortBuffer  = errors.New("wire: buffer too short")
	ErrTimeout      = errors.New("wire: timeout")
	ErrClosed       = errors.New("wire: link closed")
	ErrNak          = errors.New("wire: frame not acknowledged")
)

// Message is one received frame
type Message struct {
	Sequence uint8
	Payload  []byte // Frame contents without header and trailer
}

// IsAck reports whether the frame is a bare acknowledgement
func (m Message) IsAck() bool {
	return len(m.Payload) == 0
}

// Command decodes the leading command ID of the payload and returns it
// together with the remaining arguments.
func (m Message) Command() (uint16, []byte, error) {
	args := m.Payload
	id, err := DecodeUint(&args)
	if err != nil {
		return 0, nil, err
	}
	return uint16(id), args, nil
}

// nextSeq returns the sequence following seq (0x10..0x1F, wrapping)
func nextSeq(seq uint8) uint8 {
	return ((seq + 1) & SeqMask) | SeqDest
}
