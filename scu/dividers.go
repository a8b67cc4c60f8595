package scu

import "errors"

// ErrNoPllDividers is returned when no P/N/K2 combination reaches the
// requested PLL frequency within the allowed deviation.
var ErrNoPllDividers = errors.New("scu: no PLL dividers within allowed deviation")

// System PLL limits (TC29x)
const (
	pllFreqMax = 300000000 // Initial least error, fPLL max for 29x
	pllRefMax  = 24000000  // fREF = fOSC / P upper bound (24MHz)
	pllRefMin  = 8000000
	pllVcoMin  = 400000000
	pllVcoMax  = 800000000
	pllPMin    = 1
	pllPMax    = 16 // 4 bits
	pllK2Min   = 1
	pllK2Max   = 128 // 7 bits
	pllNMin    = 1
	pllNMax    = 128 // 7 bits

	// Above this fPLL every K2 value is tried, below it only odd K2
	// (even K2-1 keeps a 50% duty cycle)
	pllK2FullStepAbove = 240000000

	pllDeviationPercent = 2
)

// PllDividers is a solved divider set in natural (not hardware) encoding
type PllDividers struct {
	P  uint32
	N  uint32
	K2 uint32

	// Error is the search metric of the chosen set, see SolvePllDividers
	Error uint32
}

// Frequency returns fOSC * N / (P * K2)
func (d PllDividers) Frequency(fOsc uint32) float64 {
	return float64(fOsc) * float64(d.N) / float64(d.P*d.K2)
}

// SolvePllDividers searches P, K2 and N so that (N / (P * K2)) * fOsc
// approximates fPll while fOsc/P stays inside the reference window and
// fPll*K2 inside the VCO window.
//
// The error metric is evaluated in 32-bit unsigned arithmetic, with the
// N/(P*K2) quotient truncated before it is scaled by fOsc, so a candidate
// below fPll wraps to a large error. The search visits P from 16 down to 1
// and K2, N upwards; the first zero error ends the search and otherwise
// the first candidate with the smallest error is kept.
func SolvePllDividers(fOsc, fPll uint32) (PllDividers, error) {
	var best PllDividers
	leastError := uint64(pllFreqMax)

	k2Step := uint32(2)
	if fPll > pllK2FullStepAbove {
		k2Step = 1
	}

search:
	for p := uint32(pllPMax); p >= pllPMin; p-- {
		fRef := fOsc / p
		if fRef < pllRefMin || fRef > pllRefMax {
			continue
		}

		for k2 := uint32(pllK2Min); k2 <= pllK2Max; k2 += k2Step {
			fVco := uint64(fPll) * uint64(k2)
			if fVco < pllVcoMin || fVco > pllVcoMax {
				continue
			}

			for n := uint32(pllNMin); n <= pllNMax; n++ {
				fPllError := uint64((n/(p*k2))*fOsc - fPll)

				if fPllError == 0 {
					leastError = 0
					best = PllDividers{P: p, N: n, K2: k2}
					break search
				}

				if leastError > fPllError {
					leastError = fPllError
					best = PllDividers{P: p, N: n, K2: k2}
				}
			}
		}
	}

	if leastError >= uint64(fPll*pllDeviationPercent/100) {
		return PllDividers{}, ErrNoPllDividers
	}

	best.Error = uint32(leastError)
	return best, nil
}

// CalculateSysPllDividers solves the dividers for fPll from the configured
// crystal and stores them in the initial PLL step. The resulting plan jumps
// straight to the target: the initial wait time is zeroed and the ramp steps
// are dropped. cfg is left unchanged when ErrNoPllDividers is returned.
func CalculateSysPllDividers(cfg *ClockConfig, fPll uint32) error {
	d, err := SolvePllDividers(cfg.XtalFrequency, fPll)
	if err != nil {
		return err
	}

	cfg.SysPll.InitialStep.PDivider = uint8(d.P - 1)
	cfg.SysPll.InitialStep.NDivider = uint8(d.N - 1)
	cfg.SysPll.InitialStep.K2Initial = uint8(d.K2 - 1)
	cfg.SysPll.InitialStep.WaitTime = 0
	cfg.SysPll.Steps = nil
	return nil
}
