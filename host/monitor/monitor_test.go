package monitor

import (
	"errors"
	"net"
	"testing"
	"time"

	"aurixclk/scu"
	"aurixclk/sim"
)

func startSim(t *testing.T, cfg sim.Config) (*Client, *sim.Board) {
	t.Helper()
	board := sim.NewBoard(cfg)
	host, target := net.Pipe()

	srv := NewServer("sim", board, board, board)
	go srv.Serve(target)

	c := NewClient(host)
	c.Timeout = time.Second
	t.Cleanup(func() {
		c.Close()
		target.Close()
	})
	return c, board
}

func TestIdentify(t *testing.T) {
	c, _ := startSim(t, sim.DefaultConfig())

	dict, err := c.Identify()
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if dict.Target != "sim" || dict.Version != Version {
		t.Errorf("Unexpected dictionary header: %+v", dict)
	}
	if addr := dict.Registers["CCUCON0"]; addr != scu.CCUCON0.Address() {
		t.Errorf("Expected CCUCON0 at 0x%08X, got 0x%08X", scu.CCUCON0.Address(), addr)
	}
	if id := dict.Commands["read_timer"]; id != CmdReadTimer {
		t.Errorf("Expected read_timer=%d, got %d", CmdReadTimer, id)
	}
}

func TestRegisterAccess(t *testing.T) {
	c, board := startSim(t, sim.DefaultConfig())

	pw, err := c.GetPassword(scu.DomainSafety)
	if err != nil {
		t.Fatalf("GetPassword failed: %v", err)
	}
	if err := c.Endinit(scu.DomainSafety, pw, false); err != nil {
		t.Fatalf("Endinit failed: %v", err)
	}
	if err := c.WriteReg(scu.CCUCON6, 0xFFFFFFFF); err != nil {
		t.Fatalf("WriteReg failed: %v", err)
	}
	if err := c.Endinit(scu.DomainSafety, pw, true); err != nil {
		t.Fatalf("Endinit failed: %v", err)
	}

	v, err := c.ReadReg(scu.CCUCON6)
	if err != nil {
		t.Fatalf("ReadReg failed: %v", err)
	}
	if v != 0xFFFFFFFF {
		t.Errorf("Expected 0xFFFFFFFF, got 0x%08X", v)
	}
	if board.Unlocked(scu.DomainSafety) {
		t.Error("Expected safety endinit set again")
	}
	if n := len(board.Violations()); n != 0 {
		t.Errorf("Expected no violations, got %d", n)
	}
}

func TestRejectsUnknownRegister(t *testing.T) {
	c, _ := startSim(t, sim.DefaultConfig())

	_, err := c.ReadReg(scu.NumRegs + 3)
	if !errors.Is(err, ErrRejected) {
		t.Errorf("Expected ErrRejected, got %v", err)
	}

	// The link stays usable
	if _, err := c.ReadReg(scu.CCUCON0); err != nil {
		t.Errorf("ReadReg after rejection failed: %v", err)
	}
}

func TestReadTimer(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.TimerStart = 500
	c, _ := startSim(t, cfg)

	ticks, freq, err := c.ReadTimer()
	if err != nil {
		t.Fatalf("ReadTimer failed: %v", err)
	}
	if ticks != 500 {
		t.Errorf("Expected 500 ticks, got %d", ticks)
	}
	if freq != uint32(cfg.TimerFrequency) {
		t.Errorf("Expected %v Hz, got %d", cfg.TimerFrequency, freq)
	}
}

func TestRemoteInit(t *testing.T) {
	c, board := startSim(t, sim.DefaultConfig())

	ccu := scu.New(c, c)
	if err := ccu.Init(scu.DefaultClockConfig()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := c.Err(); err != nil {
		t.Fatalf("Link error: %v", err)
	}

	if f := ccu.PllFrequency(); f < 299999000 || f > 300001000 {
		t.Errorf("Expected fPLL 300MHz, got %v", f)
	}
	if sel := scu.CCUCON0_CLKSEL.Get(board.Peek(scu.CCUCON0)); sel != scu.CLKSEL_Pll {
		t.Errorf("Expected CLKSEL=PLL on the board, got %d", sel)
	}
	if n := len(board.Violations()); n != 0 {
		t.Errorf("Expected no violations, got %+v", board.Violations())
	}
}

func TestStickyError(t *testing.T) {
	c, _ := startSim(t, sim.DefaultConfig())
	c.Timeout = 100 * time.Millisecond
	c.Close()

	if v := c.Load(scu.CCUCON0); v != 0 {
		t.Errorf("Expected 0 after failure, got %d", v)
	}
	first := c.Err()
	if first == nil {
		t.Fatal("Expected an error after the link closed")
	}

	c.Store(scu.CCUCON0, 1)
	if c.Err() != first {
		t.Errorf("Expected the first error to stick, got %v", c.Err())
	}
}
