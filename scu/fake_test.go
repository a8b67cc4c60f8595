package scu

// fakeRegs is a plain register file without hardware side effects
type fakeRegs struct {
	v      [NumRegs]uint32
	stores []Reg
}

func (f *fakeRegs) Load(r Reg) uint32 {
	return f.v[r]
}

func (f *fakeRegs) Store(r Reg, v uint32) {
	f.v[r] = v
	f.stores = append(f.stores, r)
}

// fakeWatchdog tracks endinit calls per domain
type fakeWatchdog struct {
	clears [2]int
	sets   [2]int
	open   [2]bool
}

func (w *fakeWatchdog) Password(d Domain) uint16 {
	return 0x1234
}

func (w *fakeWatchdog) ClearEndinit(d Domain, pw uint16) {
	w.clears[d]++
	w.open[d] = true
}

func (w *fakeWatchdog) SetEndinit(d Domain, pw uint16) {
	w.sets[d]++
	w.open[d] = false
}

// fakeTimer advances by step on every read
type fakeTimer struct {
	now   uint32
	step  uint32
	freq  float32
	reads int
}

func (t *fakeTimer) Now() uint32 {
	t.reads++
	v := t.now
	t.now += t.step
	return v
}

func (t *fakeTimer) Frequency() float32 {
	return t.freq
}

func newFakeCcu() (*Ccu, *fakeRegs, *fakeWatchdog) {
	regs := &fakeRegs{}
	wdt := &fakeWatchdog{}
	return New(regs, wdt), regs, wdt
}

// setPll300 puts the fake register file in PLL mode at 300MHz from a 20MHz
// crystal (P=2, N=60, K2=2), SRI undivided.
func setPll300(regs *fakeRegs) {
	regs.v[CCUCON0] = CCUCON0_CLKSEL.Set(CCUCON0_SRIDIV.Set(0, 1), CLKSEL_Pll)
	regs.v[CCUCON1] = CCUCON1_INSEL.Set(0, INSEL_Osc0)
	regs.v[PLLCON0] = PLLCON0_PDIV.Set(PLLCON0_NDIV.Set(0, 59), 1)
	regs.v[PLLCON1] = PLLCON1_K2DIV.Set(0, 1)
}

func near(a, b float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	if b < 0 {
		b = -b
	}
	return d <= b*1e-6
}
