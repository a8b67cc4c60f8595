package scu

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSolvePllDividersKnownTargets(t *testing.T) {
	tests := []struct {
		fOsc, fPll uint32
		want       PllDividers
	}{
		{20000000, 300000000, PllDividers{P: 2, N: 60, K2: 2}},
		{20000000, 200000000, PllDividers{P: 2, N: 60, K2: 3}},
	}

	for _, tt := range tests {
		got, err := SolvePllDividers(tt.fOsc, tt.fPll)
		if err != nil {
			t.Fatalf("SolvePllDividers(%d, %d) failed: %v", tt.fOsc, tt.fPll, err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("SolvePllDividers(%d, %d) mismatch (-want +got):\n%s", tt.fOsc, tt.fPll, diff)
		}
	}
}

func TestSolvePllDividersDeterministic(t *testing.T) {
	first, err1 := SolvePllDividers(20000000, 250000000)
	second, err2 := SolvePllDividers(20000000, 250000000)
	if err1 != err2 {
		t.Fatalf("Expected identical errors, got %v and %v", err1, err2)
	}
	if first != second {
		t.Errorf("Expected identical dividers, got %+v and %+v", first, second)
	}
}

func TestSolvePllDividersWithinLimits(t *testing.T) {
	const fOsc = 20000000
	targets := []uint32{80000000, 133000000, 150000000, 180000000, 240000000, 250000000, 290000000}

	for _, fPll := range targets {
		d, err := SolvePllDividers(fOsc, fPll)
		if err != nil {
			continue
		}

		if d.Error >= fPll*2/100 {
			t.Errorf("fPll=%d: error %d not below 2%% bound", fPll, d.Error)
		}
		if d.P < 1 || d.P > 16 || d.N < 1 || d.N > 128 || d.K2 < 1 || d.K2 > 128 {
			t.Errorf("fPll=%d: dividers out of range: %+v", fPll, d)
		}
		if fRef := fOsc / d.P; fRef < 8000000 || fRef > 24000000 {
			t.Errorf("fPll=%d: fREF %d outside window", fPll, fRef)
		}
		if fVco := uint64(fPll) * uint64(d.K2); fVco < 400000000 || fVco > 800000000 {
			t.Errorf("fPll=%d: fVCO %d outside window", fPll, fVco)
		}
	}
}

func TestSolvePllDividersUnreachable(t *testing.T) {
	// fPll * K2 never reaches the VCO window
	_, err := SolvePllDividers(20000000, 1000000)
	if !errors.Is(err, ErrNoPllDividers) {
		t.Errorf("Expected ErrNoPllDividers, got %v", err)
	}
}

func TestCalculateSysPllDividers(t *testing.T) {
	cfg := DefaultClockConfig()
	if err := CalculateSysPllDividers(cfg, 200000000); err != nil {
		t.Fatalf("CalculateSysPllDividers failed: %v", err)
	}

	want := PllInitialStep{PDivider: 1, NDivider: 59, K2Initial: 2, WaitTime: 0}
	if diff := cmp.Diff(want, cfg.SysPll.InitialStep); diff != "" {
		t.Errorf("Initial step mismatch (-want +got):\n%s", diff)
	}
	if len(cfg.SysPll.Steps) != 0 {
		t.Errorf("Expected no ramp steps, got %d", len(cfg.SysPll.Steps))
	}
}

func TestCalculateSysPllDividersFailureLeavesConfig(t *testing.T) {
	cfg := DefaultClockConfig()
	before := cfg.Clone()

	err := CalculateSysPllDividers(cfg, 1000000)
	if !errors.Is(err, ErrNoPllDividers) {
		t.Fatalf("Expected ErrNoPllDividers, got %v", err)
	}

	if diff := cmp.Diff(before.SysPll.InitialStep, cfg.SysPll.InitialStep); diff != "" {
		t.Errorf("Initial step modified (-before +after):\n%s", diff)
	}
	if len(cfg.SysPll.Steps) != len(before.SysPll.Steps) {
		t.Errorf("Expected %d steps, got %d", len(before.SysPll.Steps), len(cfg.SysPll.Steps))
	}
}

func TestPllDividersFrequency(t *testing.T) {
	d := PllDividers{P: 2, N: 60, K2: 2}
	if f := d.Frequency(20000000); f != 300000000 {
		t.Errorf("Expected 300000000, got %v", f)
	}
}
