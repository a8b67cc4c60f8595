package scu

// Domain selects one of the two endinit write-protection domains
type Domain uint8

const (
	DomainCPU    Domain = iota // CPU watchdog endinit (traps, flash)
	DomainSafety               // Safety watchdog endinit (clock and PLL registers)
)

func (d Domain) String() string {
	switch d {
	case DomainCPU:
		return "cpu"
	case DomainSafety:
		return "safety"
	default:
		return "Domain(" + utoa(uint32(d)) + ")"
	}
}

// Watchdog is the password-gated endinit lock protecting SCU registers.
// ClearEndinit opens the domain for writes, SetEndinit closes it again.
type Watchdog interface {
	// Password returns the current password of the domain's watchdog
	Password(d Domain) uint16

	// ClearEndinit unlocks protected registers of the domain
	ClearEndinit(d Domain, password uint16)

	// SetEndinit locks protected registers of the domain
	SetEndinit(d Domain, password uint16)
}

// unlock fetches a fresh password and clears endinit for the domain.
// The returned password must be handed back to lock.
func (c *Ccu) unlock(d Domain) uint16 {
	pw := c.wdt.Password(d)
	c.wdt.ClearEndinit(d, pw)
	return pw
}

func (c *Ccu) lock(d Domain, pw uint16) {
	c.wdt.SetEndinit(d, pw)
}

// disableSmuTrap masks the SMU trap (oscillator watchdog and VCO unlock
// detection) and returns its previous state for restoreSmuTrap.
func (c *Ccu) disableSmuTrap() uint32 {
	pw := c.unlock(DomainCPU)
	prev := TRAP_SMUT.Get(c.regs.Load(TRAPDIS))
	c.setField(TRAPDIS, TRAP_SMUT, 1)
	c.lock(DomainCPU, pw)
	return prev
}

// restoreSmuTrap clears a pending SMU trap and restores the saved enable state
func (c *Ccu) restoreSmuTrap(prev uint32) {
	pw := c.unlock(DomainCPU)
	c.setField(TRAPCLR, TRAP_SMUT, 1)
	c.setField(TRAPDIS, TRAP_SMUT, prev)
	c.lock(DomainCPU, pw)
}
