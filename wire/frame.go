package wire

import "bytes"

// EncodeFrame wraps payload into a complete frame with the given sequence
func EncodeFrame(seq uint8, payload []byte) ([]byte, error) {
	n := HeaderSize + len(payload) + TrailerSize
	if n > FrameMax {
		return nil, ErrFrameTooLong
	}

	frame := make([]byte, 0, n)
	frame = append(frame, byte(n), seq)
	frame = append(frame, payload...)
	crc := CRC16(frame)
	return append(frame, byte(crc>>8), byte(crc), SyncByte), nil
}

// Decoder splits a byte stream into frames. After a corrupt frame it drops
// input up to the next sync byte. A Decoder is not safe for concurrent use.
type Decoder struct {
	pending []byte
	synced  bool

	// OnResync is called when a sync byte ends a corrupt stretch
	OnResync func()

	// Frames and Dropped count accepted and rejected frames
	Frames  int
	Dropped int
}

// NewDecoder creates a Decoder that starts synchronized
func NewDecoder() *Decoder {
	return &Decoder{synced: true}
}

// Feed appends data to the stream and calls emit for every complete frame
func (d *Decoder) Feed(data []byte, emit func(Message)) {
	d.pending = append(d.pending, data...)
	buf := d.pending

	for len(buf) > 0 {
		if !d.synced {
			i := bytes.IndexByte(buf, SyncByte)
			if i < 0 {
				buf = nil
				break
			}
			buf = buf[i+1:]
			d.synced = true
			if d.OnResync != nil {
				d.OnResync()
			}
			continue
		}

		if buf[0] == SyncByte {
			buf = buf[1:]
			continue
		}
		if len(buf) < FrameMin {
			break
		}

		n := int(buf[posLen])
		if n < FrameMin || n > FrameMax || buf[posSeq]&^SeqMask != SeqDest {
			d.desync()
			continue
		}
		if len(buf) < n {
			break
		}
		if buf[n-1] != SyncByte {
			d.desync()
			continue
		}
		crc := uint16(buf[n-TrailerSize])<<8 | uint16(buf[n-TrailerSize+1])
		if crc != CRC16(buf[:n-TrailerSize]) {
			d.desync()
			continue
		}

		payload := make([]byte, n-FrameMin)
		copy(payload, buf[HeaderSize:n-TrailerSize])
		msg := Message{Sequence: buf[posSeq], Payload: payload}
		buf = buf[n:]

		d.Frames++
		emit(msg)
	}

	d.pending = append(d.pending[:0], buf...)
}

// Reset drops buffered input and resynchronizes
func (d *Decoder) Reset() {
	d.pending = d.pending[:0]
	d.synced = true
}

func (d *Decoder) desync() {
	d.synced = false
	d.Dropped++
}
