package monitor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"aurixclk/scu"
	"aurixclk/wire"
)

// ErrRejected is returned when the target refuses a command
var ErrRejected = errors.New("monitor: command rejected")

// Client drives a remote monitor. Besides the explicit request methods it
// implements scu.Registers, scu.Watchdog and scu.Timer so a scu.Ccu can run
// against the target. Those interfaces have no error results: the first
// transport error is kept, later calls do nothing and return zero values,
// and Err reports it.
type Client struct {
	link *wire.Link

	// Timeout bounds each request
	Timeout time.Duration

	mu  sync.Mutex
	err error
}

// NewClient starts a client on an open port
func NewClient(port io.ReadWriteCloser) *Client {
	return &Client{
		link:    wire.NewLink(port),
		Timeout: wire.DefaultTimeout,
	}
}

// Close closes the link and its port
func (c *Client) Close() error {
	return c.link.Close()
}

// Err returns the first error recorded by the interface methods
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *Client) failed() bool {
	return c.Err() != nil
}

// request sends a command and decodes the arguments of the expected response
func (c *Client) request(cmdID uint16, args []byte, want uint16) ([]byte, error) {
	msg, err := c.link.Request(cmdID, args, c.Timeout)
	if err != nil {
		return nil, err
	}

	id, rest, err := msg.Command()
	if err != nil {
		return nil, fmt.Errorf("monitor: malformed response: %w", err)
	}
	if id == RespError {
		cmd, _ := wire.DecodeUint(&rest)
		code, _ := wire.DecodeUint(&rest)
		return nil, fmt.Errorf("%w: command %d, code %d", ErrRejected, cmd, code)
	}
	if id != want {
		return nil, fmt.Errorf("monitor: unexpected response %d (expected %d)", id, want)
	}
	return rest, nil
}

// Identify retrieves the target dictionary in chunks
func (c *Client) Identify() (*Dictionary, error) {
	var buf bytes.Buffer

	for offset := uint32(0); ; {
		args := wire.AppendUint(nil, offset)
		args = wire.AppendUint(args, identifyChunk)

		rest, err := c.request(CmdIdentify, args, RespIdentify)
		if err != nil {
			return nil, fmt.Errorf("identify at offset %d: %w", offset, err)
		}

		respOffset, err := wire.DecodeUint(&rest)
		if err != nil {
			return nil, err
		}
		if respOffset != offset {
			return nil, fmt.Errorf("offset mismatch: expected %d, got %d", offset, respOffset)
		}
		chunk, err := wire.DecodeString(&rest)
		if err != nil {
			return nil, err
		}

		buf.WriteString(chunk)
		offset += uint32(len(chunk))
		if len(chunk) < identifyChunk {
			break
		}
	}

	dict := &Dictionary{}
	if err := json.Unmarshal(buf.Bytes(), dict); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dictionary: %w", err)
	}
	return dict, nil
}

// ReadReg reads one register
func (c *Client) ReadReg(r scu.Reg) (uint32, error) {
	rest, err := c.request(CmdReadReg, wire.AppendUint(nil, uint32(r)), RespRegValue)
	if err != nil {
		return 0, err
	}

	got, err := wire.DecodeUint(&rest)
	if err != nil {
		return 0, err
	}
	if got != uint32(r) {
		return 0, fmt.Errorf("monitor: register mismatch: asked %s, got %d", r, got)
	}
	return wire.DecodeUint(&rest)
}

// WriteReg writes one register
func (c *Client) WriteReg(r scu.Reg, v uint32) error {
	args := wire.AppendUint(nil, uint32(r))
	args = wire.AppendUint(args, v)
	return c.link.Send(CmdWriteReg, args)
}

// GetPassword reads the current endinit password of a domain
func (c *Client) GetPassword(d scu.Domain) (uint16, error) {
	rest, err := c.request(CmdGetPassword, wire.AppendUint(nil, uint32(d)), RespPassword)
	if err != nil {
		return 0, err
	}
	if _, err := wire.DecodeUint(&rest); err != nil {
		return 0, err
	}
	pw, err := wire.DecodeUint(&rest)
	return uint16(pw), err
}

// Endinit clears (set=false) or sets the endinit bit of a domain
func (c *Client) Endinit(d scu.Domain, password uint16, set bool) error {
	args := wire.AppendUint(nil, uint32(d))
	args = wire.AppendUint(args, uint32(password))
	flag := uint32(0)
	if set {
		flag = 1
	}
	return c.link.Send(CmdEndinit, wire.AppendUint(args, flag))
}

// ReadTimer returns the target's STM tick count and tick rate
func (c *Client) ReadTimer() (ticks uint32, freq uint32, err error) {
	rest, err := c.request(CmdReadTimer, nil, RespTimer)
	if err != nil {
		return 0, 0, err
	}
	if ticks, err = wire.DecodeUint(&rest); err != nil {
		return 0, 0, err
	}
	freq, err = wire.DecodeUint(&rest)
	return ticks, freq, err
}

// Load implements scu.Registers
func (c *Client) Load(r scu.Reg) uint32 {
	if c.failed() {
		return 0
	}
	v, err := c.ReadReg(r)
	if err != nil {
		c.fail(fmt.Errorf("load %s: %w", r, err))
		return 0
	}
	return v
}

// Store implements scu.Registers
func (c *Client) Store(r scu.Reg, v uint32) {
	if c.failed() {
		return
	}
	if err := c.WriteReg(r, v); err != nil {
		c.fail(fmt.Errorf("store %s: %w", r, err))
	}
}

// Password implements scu.Watchdog
func (c *Client) Password(d scu.Domain) uint16 {
	if c.failed() {
		return 0
	}
	pw, err := c.GetPassword(d)
	if err != nil {
		c.fail(fmt.Errorf("password %s: %w", d, err))
		return 0
	}
	return pw
}

// ClearEndinit implements scu.Watchdog
func (c *Client) ClearEndinit(d scu.Domain, password uint16) {
	if c.failed() {
		return
	}
	if err := c.Endinit(d, password, false); err != nil {
		c.fail(fmt.Errorf("clear endinit %s: %w", d, err))
	}
}

// SetEndinit implements scu.Watchdog
func (c *Client) SetEndinit(d scu.Domain, password uint16) {
	if c.failed() {
		return
	}
	if err := c.Endinit(d, password, true); err != nil {
		c.fail(fmt.Errorf("set endinit %s: %w", d, err))
	}
}

// Now implements scu.Timer
func (c *Client) Now() uint32 {
	if c.failed() {
		return 0
	}
	ticks, _, err := c.ReadTimer()
	if err != nil {
		c.fail(fmt.Errorf("read timer: %w", err))
	}
	return ticks
}

// Frequency implements scu.Timer
func (c *Client) Frequency() float32 {
	if c.failed() {
		return 0
	}
	_, freq, err := c.ReadTimer()
	if err != nil {
		c.fail(fmt.Errorf("read timer: %w", err))
	}
	return float32(freq)
}
