package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"aurixclk/scu"
)

func TestLoadEmptyConfig(t *testing.T) {
	cfg, err := LoadClockConfig([]byte(`{}`))
	if err != nil {
		t.Fatalf("LoadClockConfig failed: %v", err)
	}

	want := scu.DefaultClockConfig()
	if diff := cmp.Diff(want, cfg, cmpopts.IgnoreFields(scu.PllStep{}, "Hook")); diff != "" {
		t.Errorf("Expected the default configuration (-want +got):\n%s", diff)
	}
}

func TestLoadPllPlan(t *testing.T) {
	data := []byte(`{
		"xtal_frequency": 16000000,
		"sys_pll": {
			"p": 1, "n": 30, "k2": 4, "wait_time": 0.0002,
			"steps": [{"k2": 2, "wait_time": 0.0001}]
		}
	}`)

	cfg, err := LoadClockConfig(data)
	if err != nil {
		t.Fatalf("LoadClockConfig failed: %v", err)
	}

	if cfg.XtalFrequency != 16000000 {
		t.Errorf("Expected xtal 16MHz, got %d", cfg.XtalFrequency)
	}
	wantStep := scu.PllInitialStep{PDivider: 0, NDivider: 29, K2Initial: 3, WaitTime: 0.0002}
	if diff := cmp.Diff(wantStep, cfg.SysPll.InitialStep); diff != "" {
		t.Errorf("Initial step mismatch (-want +got):\n%s", diff)
	}
	if len(cfg.SysPll.Steps) != 1 || cfg.SysPll.Steps[0].K2 != 1 {
		t.Errorf("Expected one ramp step with K2 encoding 1, got %+v", cfg.SysPll.Steps)
	}
}

func TestLoadPartialPllKeepsDefaults(t *testing.T) {
	cfg, err := LoadClockConfig([]byte(`{"sys_pll": {"k2": 4}}`))
	if err != nil {
		t.Fatalf("LoadClockConfig failed: %v", err)
	}

	step := cfg.SysPll.InitialStep
	if step.PDivider != 1 || step.NDivider != 59 || step.K2Initial != 3 {
		t.Errorf("Expected P=2 N=60 K2=4, got %+v", step)
	}
	if len(cfg.SysPll.Steps) != 0 {
		t.Errorf("Expected no ramp, got %d steps", len(cfg.SysPll.Steps))
	}
}

func TestLoadTargetFrequency(t *testing.T) {
	cfg, err := LoadClockConfig([]byte(`{"target_frequency": 200000000}`))
	if err != nil {
		t.Fatalf("LoadClockConfig failed: %v", err)
	}

	want := scu.PllInitialStep{PDivider: 1, NDivider: 59, K2Initial: 2}
	if diff := cmp.Diff(want, cfg.SysPll.InitialStep); diff != "" {
		t.Errorf("Solved step mismatch (-want +got):\n%s", diff)
	}
	if cfg.SysPll.Steps != nil {
		t.Errorf("Expected the ramp dropped, got %d steps", len(cfg.SysPll.Steps))
	}
}

func TestLoadUnreachableTarget(t *testing.T) {
	_, err := LoadClockConfig([]byte(`{"target_frequency": 1000000}`))
	if !errors.Is(err, scu.ErrNoPllDividers) {
		t.Errorf("Expected ErrNoPllDividers, got %v", err)
	}
}

func TestLoadDividers(t *testing.T) {
	data := []byte(`{
		"dividers": {"SRIDIV": 2, "CPU1DIV": 32},
		"flash_wait_states": {"WSPFLASH": 7}
	}`)

	cfg, err := LoadClockConfig(data)
	if err != nil {
		t.Fatalf("LoadClockConfig failed: %v", err)
	}

	d := cfg.ClockDistribution
	if v := scu.CCUCON0_SRIDIV.Get(d.CCUCON0.Value); v != 2 {
		t.Errorf("Expected SRIDIV=2, got %d", v)
	}
	// Other CCUCON0 fields keep their defaults
	if v := scu.CCUCON0_SPBDIV.Get(d.CCUCON0.Value); v != 3 {
		t.Errorf("Expected SPBDIV=3, got %d", v)
	}
	if v := scu.CCUCON_CPUDIV.Get(d.CCUCON7.Value); v != 32 {
		t.Errorf("Expected CPU1 divider 32, got %d", v)
	}
	if v := scu.FCON_WSPFLASH.Get(cfg.FlashWaitStates.Value); v != 7 {
		t.Errorf("Expected WSPFLASH=7, got %d", v)
	}
}

func TestLoadClockConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"bad json", `{`, "unexpected end"},
		{"p too large", `{"sys_pll": {"p": 17}}`, "sys_pll.p"},
		{"n too large", `{"sys_pll": {"n": 129}}`, "sys_pll.n"},
		{"step k2 too large", `{"sys_pll": {"steps": [{"k2": 200}]}}`, "sys_pll.steps[0].k2"},
		{"unknown divider", `{"dividers": {"FOODIV": 1}}`, "unknown field"},
		{"flash field as divider", `{"dividers": {"WSPFLASH": 1}}`, "unknown field"},
		{"divider too wide", `{"dividers": {"SRIDIV": 16}}`, "out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadClockConfig([]byte(tt.data))
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadErayPllConfig(t *testing.T) {
	cfg, err := LoadErayPllConfig([]byte(`{"n": 20, "wait_time": 0.001}`))
	if err != nil {
		t.Fatalf("LoadErayPllConfig failed: %v", err)
	}

	want := scu.PllInitialStep{PDivider: 0, NDivider: 19, K2Initial: 5, WaitTime: 0.001}
	if diff := cmp.Diff(want, cfg.InitialStep); diff != "" {
		t.Errorf("E-Ray step mismatch (-want +got):\n%s", diff)
	}

	if _, err := LoadErayPllConfig([]byte(`{"n": 33}`)); err == nil {
		t.Error("Expected N=33 to be rejected")
	}
}
