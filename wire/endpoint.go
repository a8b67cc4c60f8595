package wire

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// Handler executes one command. args starts at the command's arguments and
// must be advanced past the ones consumed, since a frame may carry several
// commands.
type Handler func(cmdID uint16, args *[]byte) error

// Endpoint is the target side of a link. It checks sequence numbers,
// dispatches commands in order and acknowledges every frame.
type Endpoint struct {
	mu      sync.Mutex
	w       io.Writer
	handler Handler
	dec     *Decoder
	nextSeq uint8
	err     error

	resetCallback func()
}

// NewEndpoint creates an endpoint writing acknowledgements and responses to w
func NewEndpoint(w io.Writer, handler Handler) *Endpoint {
	e := &Endpoint{
		w:       w,
		handler: handler,
		dec:     NewDecoder(),
		nextSeq: SeqDest,
	}
	e.dec.OnResync = e.ack
	return e
}

// SetResetCallback sets a function called when the host restarts its
// sequence numbering
func (e *Endpoint) SetResetCallback(f func()) {
	e.resetCallback = f
}

// Receive processes incoming bytes. It returns the first write error seen.
func (e *Endpoint) Receive(data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.dec.Feed(data, e.handleFrame)
	return e.err
}

// Serve reads from r until it reports EOF
func (e *Endpoint) Serve(r io.Reader) error {
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if werr := e.Receive(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return err
		}
	}
}

func (e *Endpoint) handleFrame(msg Message) {
	if msg.IsAck() {
		return
	}

	// A host restarting at the first sequence resets our state
	if msg.Sequence == SeqDest && e.nextSeq != SeqDest {
		e.nextSeq = SeqDest
		if e.resetCallback != nil {
			e.resetCallback()
		}
	}

	if msg.Sequence == e.nextSeq {
		e.nextSeq = nextSeq(msg.Sequence)
		_ = e.dispatch(msg.Payload)
	}

	// Out-of-order frames get the expected sequence back as a NAK
	e.ack()
}

func (e *Endpoint) dispatch(payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("wire: handler panic: %v", r)
		}
	}()

	for len(payload) > 0 {
		id, err := DecodeUint(&payload)
		if err != nil {
			return err
		}
		if e.handler == nil {
			return nil
		}
		if err := e.handler(uint16(id), &payload); err != nil {
			return err
		}
	}
	return nil
}

func (e *Endpoint) ack() {
	frame, _ := EncodeFrame(e.nextSeq, nil)
	e.write(frame)
}

// Respond sends a response frame. It is meant to be called from the Handler
// while a frame is being processed.
func (e *Endpoint) Respond(cmdID uint16, args []byte) error {
	payload := AppendUint(nil, uint32(cmdID))
	payload = append(payload, args...)

	frame, err := EncodeFrame(e.nextSeq, payload)
	if err != nil {
		return err
	}
	e.write(frame)
	return e.err
}

func (e *Endpoint) write(frame []byte) {
	if e.err != nil {
		return
	}
	if _, err := e.w.Write(frame); err != nil {
		e.err = err
	}
}
