package scu

import "errors"

// ErrErayPllUnlocked is returned when the E-Ray PLL does not lock
var ErrErayPllUnlocked = errors.New("scu: E-Ray PLL did not lock")

const (
	// VCOLOCK polls for the E-Ray PLL. Unlike the system PLL, this wait is
	// bounded in software and reported as an error.
	erayLockTimeout = 50000

	// Prescaler K1 used while the E-Ray VCO is bypassed
	erayPrescalerK1 = 3
)

// InitErayPll programs the E-Ray PLL from its single initial step.
func (c *Ccu) InitErayPll(cfg *ErayPllConfig) error {
	step := cfg.InitialStep
	var err error

	smuTrap := c.disableSmuTrap()
	pw := c.unlock(DomainSafety)

	// Leave power saving mode if the PLL or its VCO is powered down
	con0 := c.regs.Load(PLLERAYCON0)
	if PLLERAYCON0_PLLPWD.Get(con0) == 0 || PLLERAYCON0_VCOPWD.Get(con0) != 0 ||
		PLLSTAT_PWDSTAT.Get(c.regs.Load(PLLERAYSTAT)) != 0 {
		c.setField(PLLERAYCON0, PLLERAYCON0_PLLPWD, 1)
		c.setField(PLLERAYCON0, PLLERAYCON0_VCOPWD, 0)
		c.waitFieldClear(PLLERAYSTAT, PLLSTAT_PWDSTAT)
		c.wait(step.WaitTime)
	}

	// Enter prescaler mode with a safe K1 before touching K2, P and N
	if PLLSTAT_VCOBYST.Get(c.regs.Load(PLLERAYSTAT)) == 0 {
		c.waitFieldSet(PLLERAYSTAT, PLLSTAT_K1RDY)
		c.setField(PLLERAYCON1, PLLERAYCON1_K1DIV, erayPrescalerK1)
		c.setField(PLLERAYCON0, PLLERAYCON0_VCOBYP, 1)
	}

	c.waitFieldSet(PLLERAYSTAT, PLLSTAT_K2RDY)
	c.setField(PLLERAYCON1, PLLERAYCON1_K2DIV, uint32(step.K2Initial))
	c.setField(PLLERAYCON0, PLLERAYCON0_PDIV, uint32(step.PDivider))
	c.setField(PLLERAYCON0, PLLERAYCON0_NDIV, uint32(step.NDivider))

	c.setField(PLLERAYCON0, PLLERAYCON0_RESLD, 1)
	c.setField(PLLERAYCON0, PLLERAYCON0_CLRFINDIS, 1)
	c.lock(DomainSafety, pw)

	locked := false
	for budget := erayLockTimeout - 1; budget > 0; budget-- {
		if PLLSTAT_VCOLOCK.Get(c.regs.Load(PLLERAYSTAT)) != 0 {
			locked = true
			break
		}
		c.pollHook()
	}
	if !locked {
		c.debug("eray pll lock timeout")
		err = ErrErayPllUnlocked
	}

	pw = c.unlock(DomainSafety)
	c.setField(PLLERAYCON0, PLLERAYCON0_VCOBYP, 0)
	c.waitFieldClear(PLLERAYSTAT, PLLSTAT_VCOBYST)

	if PLLSTAT_VCOLOCK.Get(c.regs.Load(PLLERAYSTAT)) == 0 {
		err = ErrErayPllUnlocked
	}
	c.lock(DomainSafety, pw)

	c.restoreSmuTrap(smuTrap)

	if err == nil {
		c.debug("eray pll " + hz(c.PllErayFrequency()))
	}
	return err
}
