// Package sim models the TC29x SCU clock registers closely enough to run the
// clock sequences without hardware. A Board is a register file, an endinit
// watchdog and a timer in one value.
package sim

import (
	"sync"

	"aurixclk/scu"
)

// Config controls how fast the simulated hardware reacts. Poll counts are
// numbers of register reads, not time.
type Config struct {
	LockPolls       int // Reads of a CCUCONx register with LCK set after an update
	K2Polls         int // Reads of PLLxSTAT with K1RDY/K2RDY low after a divider write
	LockDetectPolls int // Reads of PLLxSTAT between RESLD and VCOLOCK
	OscPolls        int // Reads of OSCCON between OSCRES and PLLLV/PLLHV

	OscillatorFault bool // The oscillator watchdog never reports a stable crystal
	ErayLockFault   bool // The E-Ray PLL never locks

	TickStep       uint32  // STM0_TIM0 increment per read
	TimerStart     uint32  // Initial STM0_TIM0 value
	TimerFrequency float32 // Rate reported by Board.Frequency

	RotatePasswords bool // Change the domain password after every SetEndinit
}

// DefaultConfig returns a fast, fault-free board configuration
func DefaultConfig() Config {
	return Config{
		LockPolls:       2,
		K2Polls:         2,
		LockDetectPolls: 8,
		OscPolls:        4,
		TickStep:        1000,
		TimerFrequency:  100000000,
	}
}

// Violation is a write the real device would have answered with a trap
type Violation struct {
	Reg    scu.Reg
	Domain scu.Domain
	Value  uint32
	Reason string
}

// Board is a simulated SCU. It is safe for concurrent use.
type Board struct {
	mu  sync.Mutex
	cfg Config

	regs [scu.NumRegs]uint32
	tick uint32

	sys  pll
	eray pll

	lck       [scu.NumRegs]int
	oscPolls  int
	oscActive bool

	password  [2]uint16
	unlocked  [2]bool
	clears    [2]int
	sets      [2]int
	loads     [scu.NumRegs]int
	stores    [scu.NumRegs]int
	violation []Violation
}

// NewBoard creates a board in its reset state
func NewBoard(cfg Config) *Board {
	b := &Board{cfg: cfg}
	b.reset()
	return b
}

// Reset values. Registers not listed here reset to 0.
const (
	resetCCUCON0 = 0x01020000 | 1<<8  // FSIDIV=1, SPBDIV=2, SRIDIV=1, backup clock
	resetCCUCON1 = 0x00000100 | 1<<12 // STMDIV=1, GTMDIV=1, INSEL=EVR
	resetCCUCON2 = 0x00000002         // BBBDIV=2
	resetCCUCON5 = 0x00000001         // MAXDIV=1
	resetFCON    = 0x00E00000 | 0x0F  // Wait states at their maximum, upper control bits set
	resetTRAPDIS = 0x00000000
	resetPLLCON0 = 1<<0 | 1<<16 // VCOBYP, PLLPWD (normal behavior)
	resetPLLCON1 = 1<<8 | 1     // K3DIV=1, K2DIV=1
)

func (b *Board) reset() {
	b.regs = [scu.NumRegs]uint32{}
	b.regs[scu.CCUCON0] = resetCCUCON0
	b.regs[scu.CCUCON1] = resetCCUCON1
	b.regs[scu.CCUCON2] = resetCCUCON2
	b.regs[scu.CCUCON5] = resetCCUCON5
	b.regs[scu.FLASH0_FCON] = resetFCON
	b.regs[scu.TRAPDIS] = resetTRAPDIS
	b.regs[scu.PLLCON0] = resetPLLCON0
	b.regs[scu.PLLCON1] = resetPLLCON1

	// The E-Ray PLL comes out of reset powered down
	b.regs[scu.PLLERAYCON0] = scu.PLLERAYCON0_VCOBYP.Mask() | scu.PLLERAYCON0_VCOPWD.Mask()
	b.regs[scu.PLLERAYCON1] = resetPLLCON1

	b.tick = b.cfg.TimerStart
	b.sys = pll{
		stat: scu.PLLSTAT, con0: scu.PLLCON0, con1: scu.PLLCON1,
		findis: true, bypass: true,
	}
	b.eray = pll{
		stat: scu.PLLERAYSTAT, con0: scu.PLLERAYCON0, con1: scu.PLLERAYCON1,
		findis: true, bypass: true, fault: b.cfg.ErayLockFault,
	}

	b.lck = [scu.NumRegs]int{}
	b.oscPolls = 0
	b.oscActive = false
	b.password = [2]uint16{0x00F1, 0x00F3}
	b.unlocked = [2]bool{}
}

// Load implements scu.Registers
func (b *Board) Load(r scu.Reg) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r >= scu.NumRegs {
		return 0
	}
	b.loads[r]++

	switch r {
	case scu.PLLSTAT:
		return b.sys.poll(b.regs[:])
	case scu.PLLERAYSTAT:
		return b.eray.poll(b.regs[:])
	case scu.OSCCON:
		return b.pollOscillator()
	case scu.CCUCON0, scu.CCUCON1, scu.CCUCON2, scu.CCUCON5:
		v := b.regs[r]
		if b.lck[r] > 0 {
			b.lck[r]--
			v |= scu.CCUCON_LCK.Mask()
		}
		return v
	case scu.STM0_TIM0:
		v := b.tick
		b.tick += b.cfg.TickStep
		return v
	case scu.TRAPCLR:
		return 0
	}
	return b.regs[r]
}

// Store implements scu.Registers. Writes to a protected register while its
// endinit domain is locked are dropped and recorded as violations.
func (b *Board) Store(r scu.Reg, v uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r >= scu.NumRegs {
		return
	}
	b.stores[r]++

	if d, ok := r.Protection(); ok && !b.unlocked[d] {
		b.violation = append(b.violation, Violation{Reg: r, Domain: d, Value: v, Reason: "endinit set"})
		return
	}

	switch r {
	case scu.PLLCON0:
		b.sys.writeCon0(b.regs[:], v, b.cfg)
	case scu.PLLCON1:
		b.sys.writeCon1(b.regs[:], v, b.cfg)
	case scu.PLLERAYCON0:
		b.eray.writeCon0(b.regs[:], v, b.cfg)
	case scu.PLLERAYCON1:
		b.eray.writeCon1(b.regs[:], v, b.cfg)
	case scu.OSCCON:
		// PLLLV/PLLHV are owned by the oscillator watchdog
		status := scu.OSCCON_PLLLV.Mask() | scu.OSCCON_PLLHV.Mask()
		keep := b.regs[r] & status
		if scu.OSCCON_OSCRES.Get(v) != 0 {
			b.oscActive = true
			b.oscPolls = b.cfg.OscPolls
			keep = 0
		}
		b.regs[r] = v&^(status|scu.OSCCON_OSCRES.Mask()) | keep
	case scu.CCUCON0, scu.CCUCON1, scu.CCUCON2, scu.CCUCON5:
		if scu.CCUCON_UP.Get(v) != 0 {
			b.lck[r] = b.cfg.LockPolls
		}
		b.regs[r] = v &^ (scu.CCUCON_UP.Mask() | scu.CCUCON_LCK.Mask())
	case scu.TRAPCLR:
		// Write-only, clears pending trap flags
	case scu.STM0_TIM0:
		b.tick = v
	default:
		b.regs[r] = v
	}
}

func (b *Board) pollOscillator() uint32 {
	v := b.regs[scu.OSCCON]
	if !b.oscActive {
		return v
	}
	if b.oscPolls > 0 {
		b.oscPolls--
		return v
	}
	if !b.cfg.OscillatorFault {
		b.oscActive = false
		v |= scu.OSCCON_PLLLV.Mask() | scu.OSCCON_PLLHV.Mask()
		b.regs[scu.OSCCON] = v
	}
	return v
}

// Now implements scu.Timer
func (b *Board) Now() uint32 {
	return b.Load(scu.STM0_TIM0)
}

// Frequency implements scu.Timer
func (b *Board) Frequency() float32 {
	return b.cfg.TimerFrequency
}

// Password implements scu.Watchdog
func (b *Board) Password(d scu.Domain) uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if int(d) >= len(b.password) {
		return 0
	}
	return b.password[d]
}

// ClearEndinit implements scu.Watchdog
func (b *Board) ClearEndinit(d scu.Domain, password uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if int(d) >= len(b.password) {
		return
	}
	b.clears[d]++
	if password != b.password[d] {
		b.violation = append(b.violation, Violation{Domain: d, Value: uint32(password), Reason: "wrong password"})
		return
	}
	b.unlocked[d] = true
}

// SetEndinit implements scu.Watchdog
func (b *Board) SetEndinit(d scu.Domain, password uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if int(d) >= len(b.password) {
		return
	}
	b.sets[d]++
	if password != b.password[d] {
		b.violation = append(b.violation, Violation{Domain: d, Value: uint32(password), Reason: "wrong password"})
		return
	}
	b.unlocked[d] = false
	if b.cfg.RotatePasswords {
		b.password[d] = b.password[d]*5 + 0x31
	}
}

// Peek returns the raw register contents without read side effects
func (b *Board) Peek(r scu.Reg) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch r {
	case scu.PLLSTAT:
		return b.sys.status(b.regs[:])
	case scu.PLLERAYSTAT:
		return b.eray.status(b.regs[:])
	case scu.STM0_TIM0:
		return b.tick
	}
	if r >= scu.NumRegs {
		return 0
	}
	return b.regs[r]
}

// Poke sets the raw register contents, bypassing endinit and side effects
func (b *Board) Poke(r scu.Reg, v uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch r {
	case scu.STM0_TIM0:
		b.tick = v
	case scu.PLLSTAT, scu.PLLERAYSTAT:
		// Derived from the PLL model
	default:
		if r < scu.NumRegs {
			b.regs[r] = v
		}
	}
}

// Unlocked reports whether the domain's endinit is currently cleared
func (b *Board) Unlocked(d scu.Domain) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int(d) < len(b.unlocked) && b.unlocked[d]
}

// Clears returns the number of ClearEndinit calls for the domain
func (b *Board) Clears(d scu.Domain) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clears[d]
}

// Sets returns the number of SetEndinit calls for the domain
func (b *Board) Sets(d scu.Domain) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sets[d]
}

// Loads returns the number of reads of a register
func (b *Board) Loads(r scu.Reg) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loads[r]
}

// Stores returns the number of writes to a register, dropped writes included
func (b *Board) Stores(r scu.Reg) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stores[r]
}

// TotalStores returns the number of writes to all registers
func (b *Board) TotalStores() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, s := range b.stores {
		n += s
	}
	return n
}

// Violations returns the writes and endinit calls a device would trap on
func (b *Board) Violations() []Violation {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Violation, len(b.violation))
	copy(out, b.violation)
	return out
}

// ResetCounters clears the access counters and the violation log
func (b *Board) ResetCounters() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clears = [2]int{}
	b.sets = [2]int{}
	b.loads = [scu.NumRegs]int{}
	b.stores = [scu.NumRegs]int{}
	b.violation = nil
}
