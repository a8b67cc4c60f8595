package scu

import "math"

// busDivider normalizes a requested CCUCON0/1 divider. Odd dividers from 7
// to 13 are not supported by the CCU and are rounded down to the next even
// one; 14 is replaced by 12.
func busDivider(div, min uint32) uint32 {
	if div < min {
		div = min
	}
	if div >= 7 && div < 14 && div&1 == 1 {
		div--
	}
	if div == 14 {
		div = 12
	}
	return div
}

// SetCpuFrequency programs the divider of a CPU core so that it runs close
// to freq, and returns the resulting frequency. A request at or above fSRI
// selects the undivided clock.
func (c *Ccu) SetCpuFrequency(cpu Cpu, freq float32) float32 {
	sri := c.SriFrequency()

	var div uint32
	if freq < sri {
		div = uint32((freq * 64) / sri)
	}

	if r, ok := cpuDividerReg(cpu); ok {
		pw := c.unlock(DomainSafety)
		c.regs.Store(r, div)
		c.lock(DomainSafety, pw)
	}

	if div != 0 {
		sri = sri * (float32(div) / 64)
	}
	return sri
}

// SetGtmFrequency selects the GTM divider closest to freq and returns fGTM
func (c *Ccu) SetGtmFrequency(freq float32) float32 {
	div := uint32(math.Round(float64(c.SourceFrequency() / freq)))
	div = busDivider(div, 1)

	pw := c.unlock(DomainSafety)
	c.waitUnlocked(CCUCON1)
	c.update(CCUCON1, CCUCON1_GTMDIV, div)
	c.lock(DomainSafety, pw)

	return c.GtmFrequency()
}

// SetSriFrequency selects the SRI divider closest to freq and returns fSRI
// once the update has been applied.
func (c *Ccu) SetSriFrequency(freq float32) float32 {
	div := uint32(math.Round(float64(c.SourceFrequency() / freq)))
	div = busDivider(div, 1)

	pw := c.unlock(DomainSafety)
	c.waitUnlocked(CCUCON0)
	c.update(CCUCON0, CCUCON0_SRIDIV, div)
	c.lock(DomainSafety, pw)

	c.waitUnlocked(CCUCON0)
	return c.SriFrequency()
}

// SetSpbFrequency programs the SPB divider for a clock not above freq and
// returns fSPB. The peripheral traps raised by the bus clock change are
// masked while the divider is written.
func (c *Ccu) SetSpbFrequency(freq float32) float32 {
	div := uint32(c.SourceFrequency() / freq)
	div = busDivider(div, 2)

	pw := c.unlock(DomainCPU)
	c.regs.Store(TRAPDIS, c.regs.Load(TRAPDIS)|trapdisSpbChangeMask)
	c.lock(DomainCPU, pw)

	spw := c.unlock(DomainSafety)
	c.waitUnlocked(CCUCON0)
	c.update(CCUCON0, CCUCON0_SPBDIV, div)
	c.lock(DomainSafety, spw)

	pw = c.unlock(DomainCPU)
	c.regs.Store(TRAPDIS, c.regs.Load(TRAPDIS)&^trapdisSpbChangeMask)
	c.lock(DomainCPU, pw)

	c.waitUnlocked(CCUCON0)
	return c.SpbFrequency()
}

// SetPll2Frequency sets the system PLL K3 divider and returns fPLL2
func (c *Ccu) SetPll2Frequency(freq float32) float32 {
	div := uint32(c.PllVcoFrequency()/freq - 1)

	pw := c.unlock(DomainSafety)
	c.setField(PLLCON1, PLLCON1_K3DIV, div)
	c.lock(DomainSafety, pw)

	return c.Pll2Frequency()
}

// SetPll2ErayFrequency sets the E-Ray PLL K3 divider and returns fPLL2ERAY
func (c *Ccu) SetPll2ErayFrequency(freq float32) float32 {
	div := uint32(c.PllErayVcoFrequency()/freq - 1)

	pw := c.unlock(DomainSafety)
	c.setField(PLLERAYCON1, PLLERAYCON1_K3DIV, div)
	c.lock(DomainSafety, pw)

	return c.Pll2ErayFrequency()
}
