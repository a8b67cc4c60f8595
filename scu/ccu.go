package scu

import "errors"

// ErrOscillatorUnstable is returned by Init when the oscillator watchdog
// does not report a stable crystal in time. The PLL is left unprogrammed
// and the CCU keeps running from the backup clock.
var ErrOscillatorUnstable = errors.New("scu: oscillator not stable")

const (
	// Oscillator watchdog polls before the crystal is declared unstable
	oscStableCheckLimit = 640

	// The oscillator watchdog supervises fOSC / (OSCVAL + 1) ~ 2.5MHz
	oscWatchdogRefFrequency = 2500000

	// Settling time between restarting lock detection and polling VCOLOCK
	pllLockDetectDelay = 0.000050
)

// Ccu is a handle on one clock control unit.
//
// A Ccu is not safe for concurrent use. The sequences busy-wait on the
// calling goroutine and never yield while the clock tree is in transition.
type Ccu struct {
	regs  Registers
	wdt   Watchdog
	timer Timer
	poll  func()

	debugPrintln DebugWriter

	xtalFrequency uint32
	state         State
	step          int
}

// New creates a CCU handle over a register file and its endinit watchdog.
// Timed waits use the STM0 timer until SetTimer installs another source.
func New(regs Registers, wdt Watchdog) *Ccu {
	c := &Ccu{
		regs:          regs,
		wdt:           wdt,
		xtalFrequency: DefaultXtalFrequency,
		state:         StateBackupClock,
	}
	c.timer = stmTimer{c}
	return c
}

// SetTimer replaces the tick source used for timed waits
func (c *Ccu) SetTimer(t Timer) {
	if t == nil {
		c.timer = stmTimer{c}
		return
	}
	c.timer = t
}

// SetPollHook installs a function called on every busy-wait iteration
func (c *Ccu) SetPollHook(f func()) {
	c.poll = f
}

// SetXtalFrequency sets the crystal frequency used by the frequency queries.
// Init overrides it with the configured value.
func (c *Ccu) SetXtalFrequency(hz uint32) {
	c.xtalFrequency = hz
}

// XtalFrequency returns the crystal frequency in Hz
func (c *Ccu) XtalFrequency() uint32 {
	return c.xtalFrequency
}

// State returns the last sequencer state reached
func (c *Ccu) State() State {
	return c.state
}

// Step returns the index of the last ramp step applied
func (c *Ccu) Step() int {
	return c.step
}

// setField performs a read-modify-write of one register field
func (c *Ccu) setField(r Reg, f Field, v uint32) {
	c.regs.Store(r, f.Set(c.regs.Load(r), v))
}

// update writes a CCUCONx field together with the update request bit
func (c *Ccu) update(r Reg, f Field, v uint32) {
	c.regs.Store(r, CCUCON_UP.Set(f.Set(c.regs.Load(r), v), 1))
}

// Init switches the system clock from the backup oscillator to the PLL
// described by cfg, then walks the K2 ramp.
//
// Only an unstable oscillator is reported (ErrOscillatorUnstable); in that
// case the PLL is not programmed but the SMU trap and the oscillator
// disconnect feature are still restored. Waits on lock and ready flags have
// no timeout: if the hardware never responds, the safety endinit trap fires.
func (c *Ccu) Init(cfg *ClockConfig) error {
	c.xtalFrequency = cfg.XtalFrequency

	smuTrap := c.disableSmuTrap()

	// Run the CCU from fBACK and let the PLL free-run while its input changes
	pw := c.unlock(DomainSafety)
	c.waitUnlocked(CCUCON0)
	c.update(CCUCON0, CCUCON0_CLKSEL, CLKSEL_Backup)
	c.enter(StateBackupClock)

	c.setField(PLLCON0, PLLCON0_SETFINDIS, 1)

	c.waitUnlocked(CCUCON0)
	c.update(CCUCON1, CCUCON1_INSEL, INSEL_Osc0)
	c.enter(StatePllBypassConfigured)

	stable := c.isOscillatorStable()
	c.lock(DomainSafety, pw)

	var err error
	if stable {
		c.programSysPll(cfg)
		c.writeFlashWaitStates(cfg.FlashWaitStates)
		c.rampUp(cfg.SysPll.Steps)
		c.enter(StateSteadyState)
		c.debug("pll " + hz(c.PllFrequency()))
	} else {
		c.debug("oscillator unstable, PLL not programmed")
		err = ErrOscillatorUnstable
	}

	pw = c.unlock(DomainSafety)
	c.setField(PLLCON0, PLLCON0_OSCDISCDIS, 0)
	c.lock(DomainSafety, pw)

	c.restoreSmuTrap(smuTrap)
	return err
}

// programSysPll loads the initial dividers, waits for lock and moves the
// clock distribution onto the PLL.
func (c *Ccu) programSysPll(cfg *ClockConfig) {
	step := cfg.SysPll.InitialStep

	pw := c.unlock(DomainSafety)
	c.waitFieldSet(PLLSTAT, PLLSTAT_K2RDY)
	c.setField(PLLCON1, PLLCON1_K2DIV, uint32(step.K2Initial))
	c.setField(PLLCON0, PLLCON0_PDIV, uint32(step.PDivider))
	c.setField(PLLCON0, PLLCON0_NDIV, uint32(step.NDivider))

	// Keep the PLL on fREF if it loses lock during the transition
	c.setField(PLLCON0, PLLCON0_OSCDISCDIS, 1)

	// Errata PLL_TC.005: power the PLL down while reconnecting its input
	c.setField(PLLCON0, PLLCON0_PLLPWD, 0)
	c.setField(PLLCON0, PLLCON0_CLRFINDIS, 1)
	c.setField(PLLCON0, PLLCON0_PLLPWD, 1)

	c.setField(PLLCON0, PLLCON0_RESLD, 1)
	c.enter(StatePllLocking)

	c.wait(pllLockDetectDelay)
	c.waitFieldSet(PLLSTAT, PLLSTAT_VCOLOCK)

	c.setField(PLLCON0, PLLCON0_VCOBYP, 0)
	c.enter(StatePllLocked)

	c.waitUnlocked(CCUCON0)
	c.setField(CCUCON0, CCUCON0_CLKSEL, CLKSEL_Pll)
	c.waitUnlocked(CCUCON0)

	c.wait(step.WaitTime)
	c.writeClockDistribution(&cfg.ClockDistribution)
	c.lock(DomainSafety, pw)
	c.enter(StateClockDistributionConfigured)
}

// writeClockDistribution merges the CCUCON values. The PLL clock select,
// the crystal input select and the update request bits are forced whatever
// the configured masks say. Must be called with safety endinit cleared.
func (c *Ccu) writeClockDistribution(d *ClockDistribution) {
	v := d.CCUCON0.Apply(c.regs.Load(CCUCON0))
	v = CCUCON0_CLKSEL.Set(v, CLKSEL_Pll)
	c.regs.Store(CCUCON0, CCUCON_UP.Set(v, 1))

	c.waitUnlocked(CCUCON1)
	v = d.CCUCON1.Apply(c.regs.Load(CCUCON1))
	v = CCUCON1_INSEL.Set(v, INSEL_Osc0)
	c.regs.Store(CCUCON1, CCUCON_UP.Set(v, 1))

	c.waitUnlocked(CCUCON2)
	v = d.CCUCON2.Apply(c.regs.Load(CCUCON2))
	c.regs.Store(CCUCON2, CCUCON_UP.Set(v, 1))

	c.waitUnlocked(CCUCON5)
	v = d.CCUCON5.Apply(c.regs.Load(CCUCON5))
	c.regs.Store(CCUCON5, CCUCON_UP.Set(v, 1))

	// CPU dividers are overwritten in full, the mask is not consulted
	c.regs.Store(CCUCON6, d.CCUCON6.Value)
	c.regs.Store(CCUCON7, d.CCUCON7.Value)
	c.regs.Store(CCUCON8, d.CCUCON8.Value)
}

func (c *Ccu) writeFlashWaitStates(m MaskedValue) {
	fcon := m.Apply(c.regs.Load(FLASH0_FCON))

	pw := c.unlock(DomainCPU)
	c.regs.Store(FLASH0_FCON, fcon)
	c.lock(DomainCPU, pw)
}

// setK2 writes a new K2 divider once the divider accepts it
func (c *Ccu) setK2(k2 uint8) {
	pw := c.unlock(DomainSafety)
	c.waitFieldSet(PLLSTAT, PLLSTAT_K2RDY)
	c.setField(PLLCON1, PLLCON1_K2DIV, uint32(k2))
	c.lock(DomainSafety, pw)
}

func (c *Ccu) rampUp(steps []PllStep) {
	for i := range steps {
		st := &steps[i]
		c.enterStep(StateSteppingUp, i)
		c.setK2(st.K2)

		if st.Hook != nil {
			st.Hook()
		}

		c.wait(st.WaitTime)
	}
}

// isOscillatorStable restarts the oscillator watchdog and polls the PLL
// low/high voltage flags for a bounded number of iterations.
// Must be called with safety endinit cleared.
func (c *Ccu) isOscillatorStable() bool {
	// External crystal mode, oscillator power saving not entered
	c.setField(OSCCON, OSCCON_MODE, 0)
	c.setField(OSCCON, OSCCON_OSCVAL, c.xtalFrequency/oscWatchdogRefFrequency-1)
	c.setField(OSCCON, OSCCON_OSCRES, 1)

	stable := true
	budget := oscStableCheckLimit
	for {
		v := c.regs.Load(OSCCON)
		if OSCCON_PLLLV.Get(v) != 0 && OSCCON_PLLHV.Get(v) != 0 {
			break
		}
		budget--
		if budget == 0 {
			stable = false
			break
		}
		c.pollHook()
	}

	// The watchdog restart raised an SMU alarm; clear it and keep the trap off
	pw := c.unlock(DomainCPU)
	c.setField(TRAPCLR, TRAP_SMUT, 1)
	c.setField(TRAPDIS, TRAP_SMUT, 1)
	c.lock(DomainCPU, pw)

	return stable
}

// SwitchToBackupClock ramps the PLL down through cfg's K2 steps in reverse
// order and moves the clock distribution back to fBACK. The PLL input is
// disconnected and left free-running. Nothing is written when the CCU
// already runs from the backup clock.
func (c *Ccu) SwitchToBackupClock(cfg *ClockConfig) {
	if CCUCON0_CLKSEL.Get(c.regs.Load(CCUCON0)) == CLKSEL_Backup {
		c.state = StateBackupClock
		return
	}

	steps := cfg.SysPll.Steps
	for i := len(steps) - 1; i >= 0; i-- {
		c.enterStep(StateSteppingDown, i)
		c.setK2(steps[i].K2)
		c.wait(steps[i].WaitTime)
	}

	smuTrap := c.disableSmuTrap()

	pw := c.unlock(DomainSafety)
	c.waitUnlocked(CCUCON0)
	c.update(CCUCON0, CCUCON0_CLKSEL, CLKSEL_Backup)
	c.waitUnlocked(CCUCON0)

	c.setField(PLLCON0, PLLCON0_SETFINDIS, 1)
	c.setField(PLLCON0, PLLCON0_OSCDISCDIS, 0)
	c.lock(DomainSafety, pw)

	c.restoreSmuTrap(smuTrap)
	c.enter(StateBackupClock)
}
