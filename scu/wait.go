package scu

// Timer is a free-running tick counter used for timed waits
type Timer interface {
	// Now returns the current tick count; it wraps at 2^32
	Now() uint32

	// Frequency returns the tick rate in Hz
	Frequency() float32
}

// stmTimer reads the STM0 lower word through the register file.
// Its rate follows the current STM divider, so it stays correct while
// the clock tree is being reprogrammed.
type stmTimer struct {
	c *Ccu
}

func (t stmTimer) Now() uint32 {
	return t.c.regs.Load(STM0_TIM0)
}

func (t stmTimer) Frequency() float32 {
	return t.c.StmFrequency()
}

// wait busy-waits for the given time in seconds.
// The unsigned difference stays correct across a counter wraparound.
func (c *Ccu) wait(seconds float32) {
	ticks := uint32(c.timer.Frequency() * seconds)
	begin := c.timer.Now()
	for c.timer.Now()-begin < ticks {
		c.pollHook()
	}
}

// spinUntil busy-waits until cond holds. There is no timeout: a flag that
// never changes is caught by the safety endinit trap on real hardware.
func (c *Ccu) spinUntil(cond func() bool) {
	for !cond() {
		c.pollHook()
	}
}

// waitFieldClear spins while the field reads non-zero
func (c *Ccu) waitFieldClear(r Reg, f Field) {
	c.spinUntil(func() bool { return f.Get(c.regs.Load(r)) == 0 })
}

// waitFieldSet spins while the field reads zero
func (c *Ccu) waitFieldSet(r Reg, f Field) {
	c.spinUntil(func() bool { return f.Get(c.regs.Load(r)) != 0 })
}

// waitUnlocked waits for a CCUCONx update to be applied
func (c *Ccu) waitUnlocked(r Reg) {
	c.waitFieldClear(r, CCUCON_LCK)
}

func (c *Ccu) pollHook() {
	if c.poll != nil {
		c.poll()
	}
}
