package scu

// Fixed clock sources
const (
	EvrOscFrequency  = 100000000 // Backup clock fBACK
	VcoBaseFrequency = 400000000 // Free-running VCO base frequency
)

// Cpu selects a CPU core for the per-core clock dividers
type Cpu uint8

const (
	Cpu0 Cpu = iota
	Cpu1
	Cpu2
)

// cpuDividerReg maps a core to its CCUCON divider register
func cpuDividerReg(cpu Cpu) (Reg, bool) {
	switch cpu {
	case Cpu0:
		return CCUCON6, true
	case Cpu1:
		return CCUCON7, true
	case Cpu2:
		return CCUCON8, true
	}
	return 0, false
}

// lowPowerDivide applies the CCUCON0.LPDIV low-power divider table shared by
// the SRI, SPB and BBB clocks. In normal mode (LPDIV=0) the register divider
// div is used, with 0 meaning the clock is off.
func lowPowerDivide(source float32, lpdiv, div uint32) float32 {
	switch lpdiv {
	case 0:
		if div == 0 {
			return 0
		}
		return source / float32(div)
	case 1:
		return source / 30
	case 2:
		return source / 60
	case 3:
		return source / 120
	case 4:
		return source / 240
	default:
		return 0
	}
}

// divided returns source/div, or 0 for a disabled (zero) divider
func divided(source float32, div uint32) float32 {
	if div == 0 {
		return 0
	}
	return source / float32(div)
}

// EvrFrequency returns the backup (EVR) oscillator frequency
func (c *Ccu) EvrFrequency() float32 {
	return EvrOscFrequency
}

// Osc0Frequency returns the crystal frequency
func (c *Ccu) Osc0Frequency() float32 {
	return float32(c.xtalFrequency)
}

// OscFrequency returns the PLL input frequency selected by CCUCON1.INSEL
func (c *Ccu) OscFrequency() float32 {
	switch CCUCON1_INSEL.Get(c.regs.Load(CCUCON1)) {
	case INSEL_Evr:
		return EvrOscFrequency
	case INSEL_Osc0:
		return float32(c.xtalFrequency)
	default:
		return 0
	}
}

// SourceFrequency returns the CCU input clock selected by CCUCON0.CLKSEL
func (c *Ccu) SourceFrequency() float32 {
	switch CCUCON0_CLKSEL.Get(c.regs.Load(CCUCON0)) {
	case CLKSEL_Backup:
		return c.EvrFrequency()
	case CLKSEL_Pll:
		return c.PllFrequency()
	default:
		return 0
	}
}

// PllFrequency returns fPLL for the current PLL mode
func (c *Ccu) PllFrequency() float32 {
	stat := c.regs.Load(PLLSTAT)
	con0 := c.regs.Load(PLLCON0)
	con1 := c.regs.Load(PLLCON1)

	switch {
	case PLLSTAT_VCOBYST.Get(stat) == 1:
		// Prescaler mode
		return c.OscFrequency() / float32(PLLCON1_K1DIV.Get(con1)+1)
	case PLLSTAT_FINDIS.Get(stat) == 1:
		// Free running mode
		return VcoBaseFrequency / float32(PLLCON1_K2DIV.Get(con1)+1)
	default:
		n := float32(PLLCON0_NDIV.Get(con0) + 1)
		p := float32(PLLCON0_PDIV.Get(con0) + 1)
		k2 := float32(PLLCON1_K2DIV.Get(con1) + 1)
		return (c.OscFrequency() * n) / (k2 * p)
	}
}

// PllVcoFrequency returns fVCO of the system PLL
func (c *Ccu) PllVcoFrequency() float32 {
	if PLLSTAT_FINDIS.Get(c.regs.Load(PLLSTAT)) == 1 {
		return VcoBaseFrequency
	}
	con0 := c.regs.Load(PLLCON0)
	n := float32(PLLCON0_NDIV.Get(con0) + 1)
	p := float32(PLLCON0_PDIV.Get(con0) + 1)
	return (c.OscFrequency() * n) / p
}

// Pll2Frequency returns the K3 output of the system PLL
func (c *Ccu) Pll2Frequency() float32 {
	k3 := PLLCON1_K3DIV.Get(c.regs.Load(PLLCON1))
	return c.PllVcoFrequency() / float32(k3+1)
}

// PllErayFrequency returns the E-Ray PLL K2 output for its current mode
func (c *Ccu) PllErayFrequency() float32 {
	stat := c.regs.Load(PLLERAYSTAT)
	con0 := c.regs.Load(PLLERAYCON0)
	con1 := c.regs.Load(PLLERAYCON1)

	switch {
	case PLLSTAT_VCOBYST.Get(stat) == 1:
		return c.OscFrequency() / float32(PLLERAYCON1_K1DIV.Get(con1)+1)
	case PLLSTAT_FINDIS.Get(stat) == 1:
		return VcoBaseFrequency / float32(PLLERAYCON1_K2DIV.Get(con1)+1)
	default:
		// The E-Ray PLL output ignores P, as the hardware documents it
		n := float32(PLLERAYCON0_NDIV.Get(con0) + 1)
		return (c.OscFrequency() * n) / float32(PLLERAYCON1_K2DIV.Get(con1)+1)
	}
}

// PllErayVcoFrequency returns fVCO of the E-Ray PLL
func (c *Ccu) PllErayVcoFrequency() float32 {
	if PLLSTAT_FINDIS.Get(c.regs.Load(PLLERAYSTAT)) == 1 {
		return VcoBaseFrequency
	}
	con0 := c.regs.Load(PLLERAYCON0)
	n := float32(PLLERAYCON0_NDIV.Get(con0) + 1)
	p := float32(PLLERAYCON0_PDIV.Get(con0) + 1)
	return (c.OscFrequency() * n) / p
}

// Pll2ErayFrequency returns the K3 output of the E-Ray PLL
func (c *Ccu) Pll2ErayFrequency() float32 {
	k3 := PLLERAYCON1_K3DIV.Get(c.regs.Load(PLLERAYCON1))
	return c.PllErayVcoFrequency() / float32(k3+1)
}

// MaxFrequency returns fMAX. MAXDIV=0 passes the source clock through, and
// the low-power table is one step faster than for the other clocks.
func (c *Ccu) MaxFrequency() float32 {
	source := c.SourceFrequency()

	switch CCUCON0_LPDIV.Get(c.regs.Load(CCUCON0)) {
	case 0:
		div := CCUCON5_MAXDIV.Get(c.regs.Load(CCUCON5))
		if div == 0 {
			return source
		}
		return source / float32(div)
	case 1:
		return source / 15
	case 2:
		return source / 30
	case 3:
		return source / 60
	case 4:
		return source / 120
	default:
		return 0
	}
}

// SriFrequency returns fSRI
func (c *Ccu) SriFrequency() float32 {
	ccucon0 := c.regs.Load(CCUCON0)
	return lowPowerDivide(c.SourceFrequency(), CCUCON0_LPDIV.Get(ccucon0), CCUCON0_SRIDIV.Get(ccucon0))
}

// SpbFrequency returns fSPB
func (c *Ccu) SpbFrequency() float32 {
	ccucon0 := c.regs.Load(CCUCON0)
	return lowPowerDivide(c.SourceFrequency(), CCUCON0_LPDIV.Get(ccucon0), CCUCON0_SPBDIV.Get(ccucon0))
}

// BbbFrequency returns fBBB (back bone bus)
func (c *Ccu) BbbFrequency() float32 {
	lpdiv := CCUCON0_LPDIV.Get(c.regs.Load(CCUCON0))
	return lowPowerDivide(c.SourceFrequency(), lpdiv, CCUCON2_BBBDIV.Get(c.regs.Load(CCUCON2)))
}

// Baud1Frequency returns fBAUD1, derived from fMAX
func (c *Ccu) Baud1Frequency() float32 {
	return divided(c.MaxFrequency(), CCUCON0_BAUD1DIV.Get(c.regs.Load(CCUCON0)))
}

// Baud2Frequency returns fBAUD2, derived from fMAX
func (c *Ccu) Baud2Frequency() float32 {
	return divided(c.MaxFrequency(), CCUCON0_BAUD2DIV.Get(c.regs.Load(CCUCON0)))
}

// FsiFrequency returns fFSI. The FSI divider only applies while SRIDIV
// is 1 or 2; for slower SRI clocks fFSI equals fSRI.
func (c *Ccu) FsiFrequency() float32 {
	return c.fsiFrequency(CCUCON0_FSIDIV)
}

// Fsi2Frequency returns fFSI2, see FsiFrequency
func (c *Ccu) Fsi2Frequency() float32 {
	return c.fsiFrequency(CCUCON0_FSI2DIV)
}

func (c *Ccu) fsiFrequency(divField Field) float32 {
	ccucon0 := c.regs.Load(CCUCON0)
	div := divField.Get(ccucon0)
	if div == 0 {
		return 0
	}

	freq := c.SriFrequency()
	if sri := CCUCON0_SRIDIV.Get(ccucon0); sri == 1 || sri == 2 {
		freq /= float32(div)
	}
	return freq
}

// CpuFrequency returns the clock of a CPU core: fSRI * DIV / 64, where a
// zero divider runs the core at fSRI. Unknown cores report 0.
func (c *Ccu) CpuFrequency(cpu Cpu) float32 {
	r, ok := cpuDividerReg(cpu)
	if !ok {
		return 0
	}

	freq := c.SriFrequency()
	if div := c.regs.Load(r); div != 0 {
		freq = freq * (float32(div) / 64)
	}
	return freq
}

// GtmFrequency returns fGTM
func (c *Ccu) GtmFrequency() float32 {
	return divided(c.SourceFrequency(), CCUCON1_GTMDIV.Get(c.regs.Load(CCUCON1)))
}

// StmFrequency returns fSTM
func (c *Ccu) StmFrequency() float32 {
	return divided(c.SourceFrequency(), CCUCON1_STMDIV.Get(c.regs.Load(CCUCON1)))
}

// ModuleFrequency returns the fractional divider output derived from fSPB
func (c *Ccu) ModuleFrequency() float32 {
	fdr := c.regs.Load(FDR)
	spb := c.SpbFrequency()
	step := FDR_STEP.Get(fdr)

	switch FDR_DM.Get(fdr) {
	case 1:
		// Normal divider mode
		return spb / float32(1024-step)
	case 2:
		// Fractional divider mode
		return (spb * float32(step)) / 1024
	default:
		return 0
	}
}

// Frequencies is a snapshot of every clock tap
type Frequencies struct {
	Source  float32
	Pll     float32
	PllVco  float32
	Pll2    float32
	PllEray float32
	Max     float32
	Sri     float32
	Spb     float32
	Bbb     float32
	Baud1   float32
	Baud2   float32
	Fsi     float32
	Fsi2    float32
	Cpu     [3]float32
	Gtm     float32
	Stm     float32
	Module  float32
}

// Frequencies reads all clock taps at once
func (c *Ccu) Frequencies() Frequencies {
	return Frequencies{
		Source:  c.SourceFrequency(),
		Pll:     c.PllFrequency(),
		PllVco:  c.PllVcoFrequency(),
		Pll2:    c.Pll2Frequency(),
		PllEray: c.PllErayFrequency(),
		Max:     c.MaxFrequency(),
		Sri:     c.SriFrequency(),
		Spb:     c.SpbFrequency(),
		Bbb:     c.BbbFrequency(),
		Baud1:   c.Baud1Frequency(),
		Baud2:   c.Baud2Frequency(),
		Fsi:     c.FsiFrequency(),
		Fsi2:    c.Fsi2Frequency(),
		Cpu:     [3]float32{c.CpuFrequency(Cpu0), c.CpuFrequency(Cpu1), c.CpuFrequency(Cpu2)},
		Gtm:     c.GtmFrequency(),
		Stm:     c.StmFrequency(),
		Module:  c.ModuleFrequency(),
	}
}
