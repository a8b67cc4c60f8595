package sim

import "aurixclk/scu"

// pll models one of the two PLLs. The system and E-Ray PLL control
// registers share the bit positions used here.
type pll struct {
	stat, con0, con1 scu.Reg

	bypass  bool // VCOBYST follows PLLxCON0.VCOBYP
	findis  bool // Input disconnected, VCO free-running
	vcolock bool
	locking bool
	fault   bool

	lockPolls int
	k1Polls   int
	k2Polls   int
	pwdPolls  int
}

const pllTriggerBits = 1<<4 | 1<<5 | 1<<18 // SETFINDIS, CLRFINDIS, RESLD

func powered(con0 uint32) bool {
	return scu.PLLCON0_PLLPWD.Get(con0) == 1 && scu.PLLCON0_VCOPWD.Get(con0) == 0
}

func (p *pll) writeCon0(regs []uint32, v uint32, cfg Config) {
	old := regs[p.con0]

	if scu.PLLCON0_SETFINDIS.Get(v) != 0 {
		p.findis = true
		p.vcolock = false
		p.locking = false
	}
	if scu.PLLCON0_CLRFINDIS.Get(v) != 0 {
		p.findis = false
	}
	if scu.PLLCON0_RESLD.Get(v) != 0 {
		p.vcolock = false
		p.locking = true
		p.lockPolls = cfg.LockDetectPolls
	}
	p.bypass = scu.PLLCON0_VCOBYP.Get(v) != 0

	switch {
	case !powered(v):
		p.vcolock = false
	case !powered(old):
		p.pwdPolls = cfg.K2Polls
	}

	regs[p.con0] = v &^ pllTriggerBits
}

func (p *pll) writeCon1(regs []uint32, v uint32, cfg Config) {
	old := regs[p.con1]
	if scu.PLLCON1_K2DIV.Get(v) != scu.PLLCON1_K2DIV.Get(old) {
		p.k2Polls = cfg.K2Polls
	}
	if scu.PLLCON1_K1DIV.Get(v) != scu.PLLCON1_K1DIV.Get(old) {
		p.k1Polls = cfg.K2Polls
	}
	regs[p.con1] = v
}

// status assembles PLLxSTAT without advancing the model
func (p *pll) status(regs []uint32) uint32 {
	var s uint32
	set := func(f scu.Field, on bool) {
		if on {
			s = f.Set(s, 1)
		}
	}
	set(scu.PLLSTAT_VCOBYST, p.bypass)
	set(scu.PLLSTAT_PWDSTAT, !powered(regs[p.con0]) || p.pwdPolls > 0)
	set(scu.PLLSTAT_VCOLOCK, p.vcolock)
	set(scu.PLLSTAT_FINDIS, p.findis)
	set(scu.PLLSTAT_K1RDY, p.k1Polls == 0)
	set(scu.PLLSTAT_K2RDY, p.k2Polls == 0)
	return s
}

// poll returns PLLxSTAT and advances the pending hardware actions by one read
func (p *pll) poll(regs []uint32) uint32 {
	s := p.status(regs)

	if p.k1Polls > 0 {
		p.k1Polls--
	}
	if p.k2Polls > 0 {
		p.k2Polls--
	}

	on := powered(regs[p.con0])
	if on && p.pwdPolls > 0 {
		p.pwdPolls--
	}
	if p.locking && on && !p.findis && !p.fault {
		if p.lockPolls > 0 {
			p.lockPolls--
		} else {
			p.vcolock = true
			p.locking = false
		}
	}
	return s
}
