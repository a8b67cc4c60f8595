package scu

// SCU clock register bit fields
// Based on the TC29x B-step user manual register descriptions

// Field is a contiguous bit field inside a 32-bit register
type Field struct {
	Pos   uint8 // Position of the least significant bit
	Width uint8 // Number of bits
}

// Mask returns the in-place mask of the field
func (f Field) Mask() uint32 {
	return (uint32(1)<<f.Width - 1) << f.Pos
}

// Get extracts the field value from a register word
func (f Field) Get(v uint32) uint32 {
	return (v >> f.Pos) & (uint32(1)<<f.Width - 1)
}

// Set returns v with the field replaced by x (x is truncated to the field width)
func (f Field) Set(v, x uint32) uint32 {
	return v&^f.Mask() | (x<<f.Pos)&f.Mask()
}

var (
	// OSCCON - OSC control register
	OSCCON_PLLLV   = Field{1, 1}  // Oscillator frequency above PLL low-voltage threshold
	OSCCON_OSCRES  = Field{2, 1}  // Oscillator watchdog reset (write only)
	OSCCON_GAINSEL = Field{3, 2}  // Oscillator gain selection
	OSCCON_MODE    = Field{5, 2}  // Oscillator mode
	OSCCON_SHBY    = Field{7, 1}  // Shaper bypass
	OSCCON_PLLHV   = Field{8, 1}  // Oscillator frequency below PLL high-voltage threshold
	OSCCON_OSCVAL  = Field{16, 5} // Oscillator watchdog reference divider

	// PLLSTAT / PLLERAYSTAT - PLL status registers
	PLLSTAT_VCOBYST = Field{0, 1} // VCO bypass status (prescaler mode)
	PLLSTAT_PWDSTAT = Field{1, 1} // PLL power-saving mode status
	PLLSTAT_VCOLOCK = Field{2, 1} // PLL VCO lock status
	PLLSTAT_FINDIS  = Field{3, 1} // Input clock disconnected (free running)
	PLLSTAT_K1RDY   = Field{4, 1} // K1 divider ready
	PLLSTAT_K2RDY   = Field{5, 1} // K2 divider ready
	PLLSTAT_MODRUN  = Field{7, 1} // Modulation running

	// PLLCON0 - PLL configuration 0
	PLLCON0_VCOBYP     = Field{0, 1}  // VCO bypass
	PLLCON0_VCOPWD     = Field{1, 1}  // VCO power saving mode
	PLLCON0_MODEN      = Field{2, 1}  // Modulation enable
	PLLCON0_SETFINDIS  = Field{4, 1}  // Set input disconnect (write only)
	PLLCON0_CLRFINDIS  = Field{5, 1}  // Clear input disconnect (write only)
	PLLCON0_OSCDISCDIS = Field{6, 1}  // Oscillator disconnect disable
	PLLCON0_NDIV       = Field{9, 7}  // N divider (value - 1)
	PLLCON0_PLLPWD     = Field{16, 1} // PLL power saving mode (1 = normal)
	PLLCON0_RESLD      = Field{18, 1} // Restart VCO lock detection (write only)
	PLLCON0_PDIV       = Field{24, 4} // P divider (value - 1)

	// PLLCON1 - PLL configuration 1
	PLLCON1_K2DIV = Field{0, 7}  // K2 divider (value - 1)
	PLLCON1_K3DIV = Field{8, 7}  // K3 divider (value - 1)
	PLLCON1_K1DIV = Field{16, 7} // K1 divider (value - 1)

	// PLLERAYCON0 - E-Ray PLL configuration 0
	PLLERAYCON0_VCOBYP    = Field{0, 1}
	PLLERAYCON0_VCOPWD    = Field{1, 1}
	PLLERAYCON0_SETFINDIS = Field{4, 1}
	PLLERAYCON0_CLRFINDIS = Field{5, 1}
	PLLERAYCON0_NDIV      = Field{9, 5}
	PLLERAYCON0_PLLPWD    = Field{16, 1}
	PLLERAYCON0_RESLD     = Field{18, 1}
	PLLERAYCON0_PDIV      = Field{24, 4}

	// PLLERAYCON1 - E-Ray PLL configuration 1
	PLLERAYCON1_K2DIV = Field{0, 7}
	PLLERAYCON1_K3DIV = Field{8, 4}
	PLLERAYCON1_K1DIV = Field{16, 7}

	// CCUCON0 - CCU clock control 0
	CCUCON0_BAUD1DIV = Field{0, 4}
	CCUCON0_BAUD2DIV = Field{4, 4}
	CCUCON0_SRIDIV   = Field{8, 4}
	CCUCON0_LPDIV    = Field{12, 3}
	CCUCON0_SPBDIV   = Field{16, 4}
	CCUCON0_FSI2DIV  = Field{20, 2}
	CCUCON0_FSIDIV   = Field{24, 2}
	CCUCON0_CLKSEL   = Field{28, 2}

	// CCUCON1 - CCU clock control 1
	CCUCON1_CANDIV     = Field{0, 4}
	CCUCON1_ERAYDIV    = Field{4, 4}
	CCUCON1_STMDIV     = Field{8, 4}
	CCUCON1_GTMDIV     = Field{12, 4}
	CCUCON1_ETHDIV     = Field{16, 4}
	CCUCON1_ASCLINFDIV = Field{20, 4}
	CCUCON1_ASCLINSDIV = Field{24, 4}
	CCUCON1_INSEL      = Field{28, 2}

	// CCUCON2 / CCUCON5
	CCUCON2_BBBDIV = Field{0, 4}
	CCUCON5_MAXDIV = Field{0, 4}

	// Shared by CCUCON0/1/2/5
	CCUCON_UP  = Field{30, 1} // Update request (write only)
	CCUCON_LCK = Field{31, 1} // Register locked while an update is applied

	// CCUCON6/7/8 - CPUx divider (fCPU = fSRI * DIV / 64, 0 = fSRI)
	CCUCON_CPUDIV = Field{0, 6}

	// FDR - fractional divider
	FDR_STEP = Field{0, 10}
	FDR_DM   = Field{14, 2}

	// TRAPCLR / TRAPDIS
	TRAP_SMUT = Field{3, 1} // SMU alarm trap

	// FLASH0_FCON wait states
	FCON_WSPFLASH = Field{0, 4}
	FCON_WSECPF   = Field{4, 2}
	FCON_WSDFLASH = Field{6, 6}
	FCON_WSECDF   = Field{12, 3}
)

// Clock source selections
const (
	CLKSEL_Backup = 0 // fBACK (EVR oscillator)
	CLKSEL_Pll    = 1 // fPLL

	INSEL_Evr  = 0 // fOSC1 (EVR backup oscillator) as PLL input
	INSEL_Osc0 = 1 // fOSC0 (crystal) as PLL input
)

// Trap bits disabled while changing the SPB divider
const trapdisSpbChangeMask = 0x3E0
