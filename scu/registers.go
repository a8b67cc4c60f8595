// Package scu drives the TC29x clock control unit: PLL divider planning,
// the PLL bring-up and backup-clock sequences, and clock frequency readback.
//
// All hardware access goes through the Registers, Watchdog and Timer
// collaborators handed to New, so the same code runs against silicon, a
// remote monitor or the simulator in package sim.
package scu

// Reg identifies one 32-bit register used by the clock control unit
type Reg uint8

// Registers touched by the CCU driver
const (
	OSCCON Reg = iota
	PLLSTAT
	PLLCON0
	PLLCON1
	PLLERAYSTAT
	PLLERAYCON0
	PLLERAYCON1
	CCUCON0
	CCUCON1
	FDR
	CCUCON2
	CCUCON5
	CCUCON6
	CCUCON7
	CCUCON8
	TRAPCLR
	TRAPDIS
	FLASH0_FCON
	STM0_TIM0

	NumRegs
)

// Registers is the register file the driver reads and writes.
// Platform-specific implementations handle the actual bus access.
type Registers interface {
	// Load returns the current value of a register
	Load(r Reg) uint32

	// Store writes a full 32-bit value to a register
	Store(r Reg, v uint32)
}

// Peripheral base addresses (TC29x memory map)
const (
	SCUBase   = 0xF0036000
	FLASHBase = 0xF8002000
	STM0Base  = 0xF0000000
)

var regInfo = [NumRegs]struct {
	name string
	addr uint32
}{
	OSCCON:      {"OSCCON", SCUBase + 0x10},
	PLLSTAT:     {"PLLSTAT", SCUBase + 0x14},
	PLLCON0:     {"PLLCON0", SCUBase + 0x18},
	PLLCON1:     {"PLLCON1", SCUBase + 0x1C},
	PLLERAYSTAT: {"PLLERAYSTAT", SCUBase + 0x24},
	PLLERAYCON0: {"PLLERAYCON0", SCUBase + 0x28},
	PLLERAYCON1: {"PLLERAYCON1", SCUBase + 0x2C},
	CCUCON0:     {"CCUCON0", SCUBase + 0x30},
	CCUCON1:     {"CCUCON1", SCUBase + 0x34},
	FDR:         {"FDR", SCUBase + 0x38},
	CCUCON2:     {"CCUCON2", SCUBase + 0x40},
	CCUCON5:     {"CCUCON5", SCUBase + 0x4C},
	CCUCON6:     {"CCUCON6", SCUBase + 0x80},
	CCUCON7:     {"CCUCON7", SCUBase + 0x84},
	CCUCON8:     {"CCUCON8", SCUBase + 0x88},
	TRAPCLR:     {"TRAPCLR", SCUBase + 0x12C},
	TRAPDIS:     {"TRAPDIS", SCUBase + 0x130},
	FLASH0_FCON: {"FLASH0_FCON", FLASHBase + 0x14},
	STM0_TIM0:   {"STM0_TIM0", STM0Base + 0x10},
}

func (r Reg) String() string {
	if r >= NumRegs {
		return "Reg(" + utoa(uint32(r)) + ")"
	}
	return regInfo[r].name
}

// Address returns the absolute bus address of the register
func (r Reg) Address() uint32 {
	if r >= NumRegs {
		return 0
	}
	return regInfo[r].addr
}

// RegByName looks up a register by its name (e.g. "CCUCON0")
func RegByName(name string) (Reg, bool) {
	for r := Reg(0); r < NumRegs; r++ {
		if regInfo[r].name == name {
			return r, true
		}
	}
	return 0, false
}

// RegByAddress looks up a register by its absolute address
func RegByAddress(addr uint32) (Reg, bool) {
	for r := Reg(0); r < NumRegs; r++ {
		if regInfo[r].addr == addr {
			return r, true
		}
	}
	return 0, false
}

// Protection returns the endinit domain guarding writes to r.
// ok is false for registers that can be written at any time.
func (r Reg) Protection() (d Domain, ok bool) {
	switch r {
	case OSCCON, PLLCON0, PLLCON1, PLLERAYCON0, PLLERAYCON1,
		CCUCON0, CCUCON1, CCUCON2, CCUCON5, CCUCON6, CCUCON7, CCUCON8, FDR:
		return DomainSafety, true
	case TRAPCLR, TRAPDIS, FLASH0_FCON:
		return DomainCPU, true
	}
	return 0, false
}
