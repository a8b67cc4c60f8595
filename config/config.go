// Package config loads clock configurations from JSON.
//
// Dividers are written as natural values (a P divider of 2 is "p": 2) and
// converted to the hardware encoding. Anything left out keeps the value of
// scu.DefaultClockConfig.
//
//	{
//	  "xtal_frequency": 20000000,
//	  "target_frequency": 200000000,
//	  "dividers": {"SRIDIV": 1, "SPBDIV": 3, "CPU1DIV": 32},
//	  "flash_wait_states": {"WSPFLASH": 5}
//	}
package config

import (
	"encoding/json"
	"fmt"
	"sort"

	"aurixclk/scu"
)

// StepConfig is one K2 ramp step
type StepConfig struct {
	K2       uint32  `json:"k2"`
	WaitTime float32 `json:"wait_time"` // Seconds
}

// PllConfig is the PLL initial step plus an optional ramp
type PllConfig struct {
	P        uint32       `json:"p"`
	N        uint32       `json:"n"`
	K2       uint32       `json:"k2"`
	WaitTime float32      `json:"wait_time"` // Seconds
	Steps    []StepConfig `json:"steps,omitempty"`
}

// ClockFile is the JSON layout of a clock configuration
type ClockFile struct {
	XtalFrequency uint32 `json:"xtal_frequency"`

	// TargetFrequency, when set, replaces the PLL plan with solved dividers
	TargetFrequency uint32 `json:"target_frequency,omitempty"`

	SysPll          *PllConfig        `json:"sys_pll,omitempty"`
	Dividers        map[string]uint32 `json:"dividers,omitempty"`
	FlashWaitStates map[string]uint32 `json:"flash_wait_states,omitempty"`
}

// ErayFile is the JSON layout of an E-Ray PLL configuration
type ErayFile struct {
	P        uint32  `json:"p"`
	N        uint32  `json:"n"`
	K2       uint32  `json:"k2"`
	WaitTime float32 `json:"wait_time"`
}

type dividerField struct {
	reg   scu.Reg
	field scu.Field
}

// Clock distribution fields accepted in "dividers"
var dividerFields = map[string]dividerField{
	"BAUD1DIV":   {scu.CCUCON0, scu.CCUCON0_BAUD1DIV},
	"BAUD2DIV":   {scu.CCUCON0, scu.CCUCON0_BAUD2DIV},
	"SRIDIV":     {scu.CCUCON0, scu.CCUCON0_SRIDIV},
	"LPDIV":      {scu.CCUCON0, scu.CCUCON0_LPDIV},
	"SPBDIV":     {scu.CCUCON0, scu.CCUCON0_SPBDIV},
	"FSI2DIV":    {scu.CCUCON0, scu.CCUCON0_FSI2DIV},
	"FSIDIV":     {scu.CCUCON0, scu.CCUCON0_FSIDIV},
	"CANDIV":     {scu.CCUCON1, scu.CCUCON1_CANDIV},
	"ERAYDIV":    {scu.CCUCON1, scu.CCUCON1_ERAYDIV},
	"STMDIV":     {scu.CCUCON1, scu.CCUCON1_STMDIV},
	"GTMDIV":     {scu.CCUCON1, scu.CCUCON1_GTMDIV},
	"ETHDIV":     {scu.CCUCON1, scu.CCUCON1_ETHDIV},
	"ASCLINFDIV": {scu.CCUCON1, scu.CCUCON1_ASCLINFDIV},
	"ASCLINSDIV": {scu.CCUCON1, scu.CCUCON1_ASCLINSDIV},
	"BBBDIV":     {scu.CCUCON2, scu.CCUCON2_BBBDIV},
	"MAXDIV":     {scu.CCUCON5, scu.CCUCON5_MAXDIV},
	"CPU0DIV":    {scu.CCUCON6, scu.CCUCON_CPUDIV},
	"CPU1DIV":    {scu.CCUCON7, scu.CCUCON_CPUDIV},
	"CPU2DIV":    {scu.CCUCON8, scu.CCUCON_CPUDIV},
	"WSPFLASH":   {scu.FLASH0_FCON, scu.FCON_WSPFLASH},
	"WSECPF":     {scu.FLASH0_FCON, scu.FCON_WSECPF},
	"WSDFLASH":   {scu.FLASH0_FCON, scu.FCON_WSDFLASH},
	"WSECDF":     {scu.FLASH0_FCON, scu.FCON_WSECDF},
}

// Natural divider ranges
const (
	pMin, pMax   = 1, 16
	nMin, nMax   = 1, 128
	k2Min, k2Max = 1, 128

	erayNMax = 32
)

// LoadClockConfig parses a JSON clock configuration
func LoadClockConfig(data []byte) (*scu.ClockConfig, error) {
	var file ClockFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	cfg := scu.DefaultClockConfig()
	applyDefaults(&file, cfg)

	if file.SysPll != nil {
		if err := applyPll(cfg, file.SysPll); err != nil {
			return nil, err
		}
	}

	for _, name := range sortedKeys(file.Dividers) {
		if err := applyDivider(cfg, name, file.Dividers[name], false); err != nil {
			return nil, err
		}
	}
	for _, name := range sortedKeys(file.FlashWaitStates) {
		if err := applyDivider(cfg, name, file.FlashWaitStates[name], true); err != nil {
			return nil, err
		}
	}

	if file.TargetFrequency != 0 {
		if err := scu.CalculateSysPllDividers(cfg, file.TargetFrequency); err != nil {
			return nil, fmt.Errorf("target_frequency %d: %w", file.TargetFrequency, err)
		}
	}
	return cfg, nil
}

// LoadErayPllConfig parses a JSON E-Ray PLL configuration
func LoadErayPllConfig(data []byte) (*scu.ErayPllConfig, error) {
	var file ErayFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	cfg := scu.DefaultErayPllConfig()
	if file.P == 0 {
		file.P = uint32(cfg.InitialStep.PDivider) + 1
	}
	if file.N == 0 {
		file.N = uint32(cfg.InitialStep.NDivider) + 1
	}
	if file.K2 == 0 {
		file.K2 = uint32(cfg.InitialStep.K2Initial) + 1
	}

	if err := checkRange("p", file.P, pMin, pMax); err != nil {
		return nil, err
	}
	if err := checkRange("n", file.N, nMin, erayNMax); err != nil {
		return nil, err
	}
	if err := checkRange("k2", file.K2, k2Min, k2Max); err != nil {
		return nil, err
	}

	cfg.InitialStep = scu.PllInitialStep{
		PDivider:  uint8(file.P - 1),
		NDivider:  uint8(file.N - 1),
		K2Initial: uint8(file.K2 - 1),
		WaitTime:  file.WaitTime,
	}
	return cfg, nil
}

// applyDefaults fills in values the file leaves out
func applyDefaults(file *ClockFile, cfg *scu.ClockConfig) {
	if file.XtalFrequency == 0 {
		file.XtalFrequency = scu.DefaultXtalFrequency
	}
	cfg.XtalFrequency = file.XtalFrequency

	if pll := file.SysPll; pll != nil {
		def := cfg.SysPll.InitialStep
		if pll.P == 0 {
			pll.P = uint32(def.PDivider) + 1
		}
		if pll.N == 0 {
			pll.N = uint32(def.NDivider) + 1
		}
		if pll.K2 == 0 {
			pll.K2 = uint32(def.K2Initial) + 1
		}
	}
}

func applyPll(cfg *scu.ClockConfig, pll *PllConfig) error {
	if err := checkRange("sys_pll.p", pll.P, pMin, pMax); err != nil {
		return err
	}
	if err := checkRange("sys_pll.n", pll.N, nMin, nMax); err != nil {
		return err
	}
	if err := checkRange("sys_pll.k2", pll.K2, k2Min, k2Max); err != nil {
		return err
	}

	cfg.SysPll.InitialStep = scu.PllInitialStep{
		PDivider:  uint8(pll.P - 1),
		NDivider:  uint8(pll.N - 1),
		K2Initial: uint8(pll.K2 - 1),
		WaitTime:  pll.WaitTime,
	}

	cfg.SysPll.Steps = make([]scu.PllStep, 0, len(pll.Steps))
	for i, s := range pll.Steps {
		if err := checkRange(fmt.Sprintf("sys_pll.steps[%d].k2", i), s.K2, k2Min, k2Max); err != nil {
			return err
		}
		cfg.SysPll.Steps = append(cfg.SysPll.Steps, scu.PllStep{
			K2:       uint8(s.K2 - 1),
			WaitTime: s.WaitTime,
		})
	}
	return nil
}

func applyDivider(cfg *scu.ClockConfig, name string, v uint32, flash bool) error {
	df, ok := dividerFields[name]
	if !ok || (df.reg == scu.FLASH0_FCON) != flash {
		return fmt.Errorf("unknown field %q", name)
	}
	if limit := df.field.Mask() >> df.field.Pos; v > limit {
		return fmt.Errorf("%s: value %d out of range 0..%d", name, v, limit)
	}

	slot := distributionSlot(cfg, df.reg)
	if slot == nil {
		return fmt.Errorf("%s: %s is not part of the clock configuration", name, df.reg)
	}
	*slot = slot.With(df.field, v)
	return nil
}

// distributionSlot returns the masked value Init writes to r
func distributionSlot(cfg *scu.ClockConfig, r scu.Reg) *scu.MaskedValue {
	d := &cfg.ClockDistribution
	switch r {
	case scu.CCUCON0:
		return &d.CCUCON0
	case scu.CCUCON1:
		return &d.CCUCON1
	case scu.CCUCON2:
		return &d.CCUCON2
	case scu.CCUCON5:
		return &d.CCUCON5
	case scu.CCUCON6:
		return &d.CCUCON6
	case scu.CCUCON7:
		return &d.CCUCON7
	case scu.CCUCON8:
		return &d.CCUCON8
	case scu.FLASH0_FCON:
		return &cfg.FlashWaitStates
	}
	return nil
}

func checkRange(name string, v, lo, hi uint32) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s: %d out of range %d..%d", name, v, lo, hi)
	}
	return nil
}

func sortedKeys(m map[string]uint32) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
