package scu

// State is the position of the clock tree in the PLL bring-up sequence
type State uint8

const (
	StateBackupClock                 State = iota // CCU runs from fBACK, PLL not used
	StatePllBypassConfigured                      // PLL input disconnected, oscillator selected
	StatePllLocking                               // Dividers programmed, waiting for VCO lock
	StatePllLocked                                // VCO locked, bypass released
	StateClockDistributionConfigured              // CCU runs from fPLL with configured dividers
	StateSteppingUp                               // Walking the K2 ramp towards the target
	StateSteadyState                              // Target frequency reached
	StateSteppingDown                             // Walking the K2 ramp back before switching to fBACK
)

var stateNames = [...]string{
	StateBackupClock:                 "backup-clock",
	StatePllBypassConfigured:         "pll-bypass-configured",
	StatePllLocking:                  "pll-locking",
	StatePllLocked:                   "pll-locked",
	StateClockDistributionConfigured: "clock-distribution-configured",
	StateSteppingUp:                  "stepping-up",
	StateSteadyState:                 "steady-state",
	StateSteppingDown:                "stepping-down",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(" + utoa(uint32(s)) + ")"
}

// enter records a state transition and traces it
func (c *Ccu) enter(s State) {
	c.state = s
	c.debug("state " + s.String())
}

// enterStep records a ramp step transition
func (c *Ccu) enterStep(s State, step int) {
	c.state = s
	c.step = step
	c.debug("state " + s.String() + " step=" + utoa(uint32(step)))
}
