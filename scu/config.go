package scu

// MaskedValue is a partial register write: only bits set in Mask are taken
// from Value, all other bits keep their current register contents.
type MaskedValue struct {
	Value uint32
	Mask  uint32
}

// Apply merges the masked value into the register word reg
func (m MaskedValue) Apply(reg uint32) uint32 {
	return reg&^m.Mask | m.Value&m.Mask
}

// With returns a copy that also sets field f to v
func (m MaskedValue) With(f Field, v uint32) MaskedValue {
	return MaskedValue{
		Value: f.Set(m.Value, v),
		Mask:  m.Mask | f.Mask(),
	}
}

// PllInitialStep holds the dividers programmed before the PLL locks.
// Dividers use the hardware encoding (value - 1).
type PllInitialStep struct {
	PDivider  uint8
	NDivider  uint8
	K2Initial uint8
	WaitTime  float32 // Seconds to wait after the clock tree is switched to the PLL
}

// PllStep is one K2 ramp step applied after the PLL runs the clock tree
type PllStep struct {
	K2       uint8   // K2 divider, hardware encoding (value - 1)
	WaitTime float32 // Seconds to wait after the step
	Hook     func()  // Optional, called after the K2 write and before the wait
}

// SysPllConfig describes how the system PLL is brought up
type SysPllConfig struct {
	InitialStep PllInitialStep
	Steps       []PllStep // Ramp-up order; walked backwards for ramp-down
}

// ClockDistribution holds the masked CCUCON register values
type ClockDistribution struct {
	CCUCON0 MaskedValue
	CCUCON1 MaskedValue
	CCUCON2 MaskedValue
	CCUCON5 MaskedValue
	CCUCON6 MaskedValue // CPU0 divider, written in full
	CCUCON7 MaskedValue // CPU1 divider, written in full
	CCUCON8 MaskedValue // CPU2 divider, written in full
}

// ClockConfig is the complete input of Init
type ClockConfig struct {
	XtalFrequency     uint32 // Crystal frequency in Hz
	SysPll            SysPllConfig
	ClockDistribution ClockDistribution
	FlashWaitStates   MaskedValue // FLASH0_FCON wait-state fields
}

// Clone returns a deep copy (hooks are shared)
func (cfg *ClockConfig) Clone() *ClockConfig {
	out := *cfg
	if cfg.SysPll.Steps != nil {
		out.SysPll.Steps = make([]PllStep, len(cfg.SysPll.Steps))
		copy(out.SysPll.Steps, cfg.SysPll.Steps)
	}
	return &out
}

// ErayPllConfig configures the E-Ray PLL in a single step
type ErayPllConfig struct {
	InitialStep PllInitialStep
}

// Default configuration constants
const (
	DefaultXtalFrequency = 20000000  // 20MHz crystal
	DefaultPllFrequency  = 300000000 // Target fPLL after the ramp
)

// DefaultClockConfig returns the 20MHz crystal / 300MHz PLL configuration.
//
//	fVCO = 20MHz / P(2) * N(60) = 600MHz
//	K2: 6 -> 4 -> 3 -> 2  =  100 -> 150 -> 200 -> 300MHz
func DefaultClockConfig() *ClockConfig {
	return &ClockConfig{
		XtalFrequency: DefaultXtalFrequency,
		SysPll: SysPllConfig{
			InitialStep: PllInitialStep{
				PDivider:  2 - 1,
				NDivider:  60 - 1,
				K2Initial: 6 - 1,
				WaitTime:  0.000200,
			},
			Steps: []PllStep{
				{K2: 4 - 1, WaitTime: 0.000100},
				{K2: 3 - 1, WaitTime: 0.000100},
				{K2: 2 - 1, WaitTime: 0.000100},
			},
		},
		ClockDistribution: ClockDistribution{
			CCUCON0: MaskedValue{}.
				With(CCUCON0_BAUD1DIV, 2).
				With(CCUCON0_BAUD2DIV, 1).
				With(CCUCON0_SRIDIV, 1).
				With(CCUCON0_LPDIV, 0).
				With(CCUCON0_SPBDIV, 3).
				With(CCUCON0_FSI2DIV, 1).
				With(CCUCON0_FSIDIV, 3),
			CCUCON1: MaskedValue{}.
				With(CCUCON1_CANDIV, 3).
				With(CCUCON1_ERAYDIV, 2).
				With(CCUCON1_STMDIV, 3).
				With(CCUCON1_GTMDIV, 3).
				With(CCUCON1_ETHDIV, 3).
				With(CCUCON1_ASCLINFDIV, 1).
				With(CCUCON1_ASCLINSDIV, 3),
			CCUCON2: MaskedValue{}.With(CCUCON2_BBBDIV, 3),
			CCUCON5: MaskedValue{}.With(CCUCON5_MAXDIV, 1),
			CCUCON6: MaskedValue{}.With(CCUCON_CPUDIV, 0),
			CCUCON7: MaskedValue{}.With(CCUCON_CPUDIV, 0),
			CCUCON8: MaskedValue{}.With(CCUCON_CPUDIV, 0),
		},
		FlashWaitStates: MaskedValue{}.
			With(FCON_WSPFLASH, 5).
			With(FCON_WSECPF, 1).
			With(FCON_WSDFLASH, 23).
			With(FCON_WSECDF, 1),
	}
}

// DefaultErayPllConfig returns the E-Ray PLL setup: P=1, N=24, K2=6
func DefaultErayPllConfig() *ErayPllConfig {
	return &ErayPllConfig{
		InitialStep: PllInitialStep{
			PDivider:  1 - 1,
			NDivider:  24 - 1,
			K2Initial: 6 - 1,
			WaitTime:  0,
		},
	}
}
