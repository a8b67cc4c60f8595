package sim

import (
	"testing"

	"aurixclk/scu"
)

func TestProtectedWriteRequiresEndinit(t *testing.T) {
	b := NewBoard(DefaultConfig())

	b.Store(scu.CCUCON6, 5)
	if v := b.Peek(scu.CCUCON6); v != 0 {
		t.Errorf("Expected write to be dropped, got %d", v)
	}
	if n := len(b.Violations()); n != 1 {
		t.Fatalf("Expected 1 violation, got %d", n)
	}

	pw := b.Password(scu.DomainSafety)
	b.ClearEndinit(scu.DomainSafety, pw)
	b.Store(scu.CCUCON6, 5)
	b.SetEndinit(scu.DomainSafety, pw)

	if v := b.Peek(scu.CCUCON6); v != 5 {
		t.Errorf("Expected 5, got %d", v)
	}

	// STM0 is not protected
	b.Store(scu.STM0_TIM0, 100)
	if n := len(b.Violations()); n != 1 {
		t.Errorf("Expected no new violations, got %d", n)
	}
}

func TestWrongPassword(t *testing.T) {
	b := NewBoard(DefaultConfig())
	b.ClearEndinit(scu.DomainCPU, b.Password(scu.DomainCPU)+1)

	if b.Unlocked(scu.DomainCPU) {
		t.Error("Expected domain to stay locked")
	}
	v := b.Violations()
	if len(v) != 1 || v[0].Reason != "wrong password" {
		t.Errorf("Expected a wrong password violation, got %+v", v)
	}
}

func TestRotatingPasswords(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RotatePasswords = true
	b := NewBoard(cfg)

	pw := b.Password(scu.DomainSafety)
	b.ClearEndinit(scu.DomainSafety, pw)
	b.SetEndinit(scu.DomainSafety, pw)

	if b.Password(scu.DomainSafety) == pw {
		t.Error("Expected a new password after SetEndinit")
	}
}

func TestUpdateRaisesLock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LockPolls = 3
	b := NewBoard(cfg)

	pw := b.Password(scu.DomainSafety)
	b.ClearEndinit(scu.DomainSafety, pw)
	b.Store(scu.CCUCON0, scu.CCUCON_UP.Set(b.Peek(scu.CCUCON0), 1))
	b.SetEndinit(scu.DomainSafety, pw)

	if scu.CCUCON_UP.Get(b.Peek(scu.CCUCON0)) != 0 {
		t.Error("Expected UP to read back as 0")
	}
	for i := 0; i < 3; i++ {
		if scu.CCUCON_LCK.Get(b.Load(scu.CCUCON0)) != 1 {
			t.Errorf("Read %d: expected LCK set", i)
		}
	}
	if scu.CCUCON_LCK.Get(b.Load(scu.CCUCON0)) != 0 {
		t.Error("Expected LCK to clear")
	}
}

func TestOscillatorWatchdog(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OscPolls = 2
	b := NewBoard(cfg)

	pw := b.Password(scu.DomainSafety)
	b.ClearEndinit(scu.DomainSafety, pw)
	b.Store(scu.OSCCON, scu.OSCCON_OSCRES.Set(0, 1))
	b.SetEndinit(scu.DomainSafety, pw)

	ok := scu.OSCCON_PLLLV.Mask() | scu.OSCCON_PLLHV.Mask()
	for i := 0; i < 2; i++ {
		if b.Load(scu.OSCCON)&ok == ok {
			t.Fatalf("Read %d: oscillator reported stable too early", i)
		}
	}
	if b.Load(scu.OSCCON)&ok != ok {
		t.Error("Expected PLLLV and PLLHV after the watchdog restart")
	}
	if scu.OSCCON_OSCRES.Get(b.Peek(scu.OSCCON)) != 0 {
		t.Error("Expected OSCRES to read back as 0")
	}
}

func TestPllLockDetection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LockDetectPolls = 4
	b := NewBoard(cfg)

	pw := b.Password(scu.DomainSafety)
	b.ClearEndinit(scu.DomainSafety, pw)
	con0 := b.Peek(scu.PLLCON0)
	b.Store(scu.PLLCON0, scu.PLLCON0_CLRFINDIS.Set(con0, 1))
	b.Store(scu.PLLCON0, scu.PLLCON0_RESLD.Set(b.Peek(scu.PLLCON0), 1))
	b.SetEndinit(scu.DomainSafety, pw)

	reads := 0
	for scu.PLLSTAT_VCOLOCK.Get(b.Load(scu.PLLSTAT)) == 0 {
		reads++
		if reads > 100 {
			t.Fatal("PLL never locked")
		}
	}
	if reads != 5 {
		t.Errorf("Expected lock after 5 reads, got %d", reads)
	}
	if scu.PLLCON0_RESLD.Get(b.Peek(scu.PLLCON0)) != 0 {
		t.Error("Expected RESLD to read back as 0")
	}
}

func TestPllStaysUnlockedWhileDisconnected(t *testing.T) {
	b := NewBoard(DefaultConfig())

	pw := b.Password(scu.DomainSafety)
	b.ClearEndinit(scu.DomainSafety, pw)
	b.Store(scu.PLLCON0, scu.PLLCON0_RESLD.Set(b.Peek(scu.PLLCON0), 1))
	b.SetEndinit(scu.DomainSafety, pw)

	for i := 0; i < 50; i++ {
		if scu.PLLSTAT_VCOLOCK.Get(b.Load(scu.PLLSTAT)) != 0 {
			t.Fatal("Free-running PLL reported lock")
		}
	}
}

func TestK2ReadyDropsAfterWrite(t *testing.T) {
	cfg := DefaultConfig()
	cfg.K2Polls = 2
	b := NewBoard(cfg)

	pw := b.Password(scu.DomainSafety)
	b.ClearEndinit(scu.DomainSafety, pw)
	b.Store(scu.PLLCON1, scu.PLLCON1_K2DIV.Set(b.Peek(scu.PLLCON1), 5))
	b.SetEndinit(scu.DomainSafety, pw)

	for i := 0; i < 2; i++ {
		if scu.PLLSTAT_K2RDY.Get(b.Load(scu.PLLSTAT)) != 0 {
			t.Errorf("Read %d: expected K2RDY low", i)
		}
	}
	if scu.PLLSTAT_K2RDY.Get(b.Load(scu.PLLSTAT)) != 1 {
		t.Error("Expected K2RDY high again")
	}
}

func TestTimerAdvancesAndWraps(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickStep = 10
	cfg.TimerStart = 0xFFFFFFF6
	b := NewBoard(cfg)

	if now := b.Now(); now != 0xFFFFFFF6 {
		t.Errorf("Expected 0xFFFFFFF6, got %#x", now)
	}
	if now := b.Now(); now != 0 {
		t.Errorf("Expected wrap to 0, got %#x", now)
	}
	if f := b.Frequency(); f != cfg.TimerFrequency {
		t.Errorf("Expected %v, got %v", cfg.TimerFrequency, f)
	}
}

func TestCounters(t *testing.T) {
	b := NewBoard(DefaultConfig())
	b.Load(scu.CCUCON0)
	b.Load(scu.CCUCON0)
	b.Store(scu.STM0_TIM0, 1)

	if n := b.Loads(scu.CCUCON0); n != 2 {
		t.Errorf("Expected 2 loads, got %d", n)
	}
	if n := b.TotalStores(); n != 1 {
		t.Errorf("Expected 1 store, got %d", n)
	}

	b.ResetCounters()
	if b.Loads(scu.CCUCON0) != 0 || b.TotalStores() != 0 {
		t.Error("Expected counters cleared")
	}
}
