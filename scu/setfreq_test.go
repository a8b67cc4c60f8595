package scu

import "testing"

func TestBusDivider(t *testing.T) {
	tests := []struct {
		div, min, want uint32
	}{
		{0, 1, 1},
		{1, 2, 2},
		{6, 1, 6},
		{7, 1, 6},
		{8, 1, 8},
		{11, 1, 10},
		{13, 1, 12},
		{14, 1, 12},
		{15, 1, 15},
	}
	for _, tt := range tests {
		if got := busDivider(tt.div, tt.min); got != tt.want {
			t.Errorf("busDivider(%d, %d): expected %d, got %d", tt.div, tt.min, tt.want, got)
		}
	}
}

func TestSetCpuFrequency(t *testing.T) {
	c, regs, wdt := newFakeCcu()
	setPll300(regs)

	if f := c.SetCpuFrequency(Cpu1, 150000000); !near(f, 150000000) {
		t.Errorf("Expected 150MHz, got %v", f)
	}
	if regs.v[CCUCON7] != 32 {
		t.Errorf("Expected CCUCON7=32, got %d", regs.v[CCUCON7])
	}

	// At or above fSRI the core runs undivided
	if f := c.SetCpuFrequency(Cpu2, 400000000); !near(f, 300000000) {
		t.Errorf("Expected 300MHz, got %v", f)
	}
	if regs.v[CCUCON8] != 0 {
		t.Errorf("Expected CCUCON8=0, got %d", regs.v[CCUCON8])
	}

	if wdt.clears[DomainSafety] != 2 || wdt.sets[DomainSafety] != 2 {
		t.Errorf("Expected 2 safety clear/set pairs, got %d/%d", wdt.clears[DomainSafety], wdt.sets[DomainSafety])
	}
}

func TestSetSriFrequency(t *testing.T) {
	c, regs, wdt := newFakeCcu()
	setPll300(regs)

	if f := c.SetSriFrequency(100000000); !near(f, 100000000) {
		t.Errorf("Expected 100MHz, got %v", f)
	}
	if div := CCUCON0_SRIDIV.Get(regs.v[CCUCON0]); div != 3 {
		t.Errorf("Expected SRIDIV=3, got %d", div)
	}
	if CCUCON_UP.Get(regs.v[CCUCON0]) != 1 {
		t.Error("Expected update request bit in CCUCON0")
	}
	if wdt.open[DomainSafety] {
		t.Error("Safety endinit left cleared")
	}
}

func TestSetGtmFrequency(t *testing.T) {
	c, regs, _ := newFakeCcu()
	setPll300(regs)

	// 300 / 40 = 7.5 rounds to 8
	if f := c.SetGtmFrequency(40000000); !near(f, 37500000) {
		t.Errorf("Expected 37.5MHz, got %v", f)
	}
	if div := CCUCON1_GTMDIV.Get(regs.v[CCUCON1]); div != 8 {
		t.Errorf("Expected GTMDIV=8, got %d", div)
	}
	if CCUCON1_INSEL.Get(regs.v[CCUCON1]) != INSEL_Osc0 {
		t.Error("Expected INSEL to be preserved")
	}
}

func TestSetSpbFrequency(t *testing.T) {
	c, regs, wdt := newFakeCcu()
	setPll300(regs)
	regs.v[TRAPDIS] = 0x1

	tests := []struct {
		freq    float32
		wantDiv uint32
	}{
		{30000000, 10},
		{23000000, 12}, // 13 is not supported
		{500000000, 2}, // Minimum divider
	}
	for _, tt := range tests {
		c.SetSpbFrequency(tt.freq)
		if div := CCUCON0_SPBDIV.Get(regs.v[CCUCON0]); div != tt.wantDiv {
			t.Errorf("freq=%v: expected SPBDIV=%d, got %d", tt.freq, tt.wantDiv, div)
		}
	}

	if regs.v[TRAPDIS] != 0x1 {
		t.Errorf("Expected TRAPDIS restored to 0x1, got %#x", regs.v[TRAPDIS])
	}
	if wdt.clears[DomainCPU] != 6 || wdt.sets[DomainCPU] != 6 {
		t.Errorf("Expected 6 CPU clear/set pairs, got %d/%d", wdt.clears[DomainCPU], wdt.sets[DomainCPU])
	}
}

func TestSetPll2Frequency(t *testing.T) {
	c, regs, _ := newFakeCcu()
	setPll300(regs)

	if f := c.SetPll2Frequency(200000000); !near(f, 200000000) {
		t.Errorf("Expected 200MHz, got %v", f)
	}
	if k3 := PLLCON1_K3DIV.Get(regs.v[PLLCON1]); k3 != 2 {
		t.Errorf("Expected K3DIV=2, got %d", k3)
	}
	if k2 := PLLCON1_K2DIV.Get(regs.v[PLLCON1]); k2 != 1 {
		t.Errorf("Expected K2DIV untouched, got %d", k2)
	}
}

func TestSetPll2ErayFrequency(t *testing.T) {
	c, regs, _ := newFakeCcu()
	regs.v[CCUCON1] = CCUCON1_INSEL.Set(0, INSEL_Osc0)
	regs.v[PLLERAYCON0] = PLLERAYCON0_NDIV.Set(0, 23) // fVCO = 480MHz

	if f := c.SetPll2ErayFrequency(80000000); !near(f, 80000000) {
		t.Errorf("Expected 80MHz, got %v", f)
	}
	if k3 := PLLERAYCON1_K3DIV.Get(regs.v[PLLERAYCON1]); k3 != 5 {
		t.Errorf("Expected K3DIV=5, got %d", k3)
	}
}
