package wire

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTimeout bounds the wait for an acknowledgement or a response
const DefaultTimeout = 2 * time.Second

// Link is the host side of a connection. Commands are sent one at a time and
// each waits for its acknowledgement; responses are queued by a background
// reader.
type Link struct {
	port io.ReadWriteCloser

	seq uint32 // Next sequence to send, 0x10..0x1F

	dec    *Decoder
	ackCh  chan Message
	respCh chan Message

	callMu  sync.Mutex
	writeMu sync.Mutex

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	readErr   atomic.Value
}

// NewLink starts a link over port
func NewLink(port io.ReadWriteCloser) *Link {
	l := &Link{
		port:   port,
		seq:    SeqDest,
		dec:    NewDecoder(),
		ackCh:  make(chan Message, 1),
		respCh: make(chan Message, 16),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go l.readLoop()
	return l
}

// Send transmits one command and waits for its acknowledgement
func (l *Link) Send(cmdID uint16, args []byte) error {
	l.callMu.Lock()
	defer l.callMu.Unlock()
	return l.send(cmdID, args, DefaultTimeout)
}

// Request transmits a command and waits for the next response frame
func (l *Link) Request(cmdID uint16, args []byte, timeout time.Duration) (Message, error) {
	l.callMu.Lock()
	defer l.callMu.Unlock()

	// Responses nobody waited for belong to earlier calls
	for len(l.respCh) > 0 {
		<-l.respCh
	}

	if err := l.send(cmdID, args, timeout); err != nil {
		return Message{}, err
	}
	return l.Receive(timeout)
}

func (l *Link) send(cmdID uint16, args []byte, timeout time.Duration) error {
	payload := AppendUint(nil, uint32(cmdID))
	payload = append(payload, args...)

	seq := uint8(atomic.LoadUint32(&l.seq))
	frame, err := EncodeFrame(seq, payload)
	if err != nil {
		return err
	}

	// Drop an acknowledgement that arrived after an earlier timeout
	select {
	case <-l.ackCh:
	default:
	}

	if err := l.write(frame); err != nil {
		return fmt.Errorf("wire: write: %w", err)
	}
	return l.waitAck(seq, timeout)
}

func (l *Link) write(frame []byte) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	n, err := l.port.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return fmt.Errorf("incomplete write: %d/%d bytes", n, len(frame))
	}
	return nil
}

// waitAck expects the acknowledgement carrying the sequence after sent
func (l *Link) waitAck(sent uint8, timeout time.Duration) error {
	want := nextSeq(sent)

	select {
	case ack := <-l.ackCh:
		// Continue from whatever the target expects
		atomic.StoreUint32(&l.seq, uint32(ack.Sequence))
		if ack.Sequence != want {
			return fmt.Errorf("%w: expected 0x%02x, got 0x%02x", ErrNak, want, ack.Sequence)
		}
		return nil

	case <-time.After(timeout):
		return fmt.Errorf("%w: no ACK after %v", ErrTimeout, timeout)

	case <-l.done:
		return l.closedErr()
	}
}

// Receive waits for the next response frame
func (l *Link) Receive(timeout time.Duration) (Message, error) {
	select {
	case msg := <-l.respCh:
		return msg, nil

	case <-time.After(timeout):
		return Message{}, fmt.Errorf("%w: no response after %v", ErrTimeout, timeout)

	case <-l.done:
		return Message{}, l.closedErr()
	}
}

// Sequence returns the next sequence number to be sent
func (l *Link) Sequence() uint8 {
	return uint8(atomic.LoadUint32(&l.seq))
}

// Close stops the reader and closes the port
func (l *Link) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.stop)
		err = l.port.Close()
		<-l.done
	})
	return err
}

func (l *Link) closedErr() error {
	if err, ok := l.readErr.Load().(error); ok {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return ErrClosed
}

func (l *Link) readLoop() {
	defer close(l.done)

	buf := make([]byte, 256)
	for {
		n, err := l.port.Read(buf)
		if n > 0 {
			l.dec.Feed(buf[:n], l.dispatch)
		}
		if err == nil {
			continue
		}

		select {
		case <-l.stop:
			return
		default:
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
			l.readErr.Store(err)
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (l *Link) dispatch(msg Message) {
	if msg.IsAck() {
		select {
		case l.ackCh <- msg:
		default:
		}
		return
	}

	select {
	case l.respCh <- msg:
	default:
		// Queue full, drop the oldest response
		select {
		case <-l.respCh:
		default:
		}
		l.respCh <- msg
	}
}
