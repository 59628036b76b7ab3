package dfa

import "math"

// Default engine constants. Bounds cover roughly 46–200 bpm; the jump
// tolerance rejects beat-to-beat changes larger than 30%, which at rest is
// almost always a missed or doubled beat rather than real variability.
const (
	DefaultMinIntervalMS = 300.0
	DefaultMaxIntervalMS = 1300.0
	DefaultJumpTolerance = 0.30
	DefaultMinSamples    = 50
	DefaultBoxMin        = 4
	DefaultBoxMax        = 16
)

// Params holds the tunable constants of the engine. The zero value is not
// usable; start from DefaultParams.
type Params struct {
	// MinIntervalMS and MaxIntervalMS bound physiologically plausible RR
	// intervals in milliseconds.
	MinIntervalMS float64
	MaxIntervalMS float64

	// JumpTolerance is the maximum allowed relative difference between a
	// sample and the most recently accepted sample (0.30 = 30%).
	JumpTolerance float64

	// MinSamples is the minimum cleaned-sequence length required before an
	// exponent is computed.
	MinSamples int

	// BoxMin and BoxMax bound the inclusive box-size range used for the
	// fluctuation scan.
	BoxMin int
	BoxMax int
}

// DefaultParams returns the standard short-term DFA parameter set.
func DefaultParams() Params {
	return Params{
		MinIntervalMS: DefaultMinIntervalMS,
		MaxIntervalMS: DefaultMaxIntervalMS,
		JumpTolerance: DefaultJumpTolerance,
		MinSamples:    DefaultMinSamples,
		BoxMin:        DefaultBoxMin,
		BoxMax:        DefaultBoxMax,
	}
}

// Clean validates and corrects a raw RR interval sequence.
//
// A sample is accepted as-is when it is finite, within
// [MinIntervalMS, MaxIntervalMS], and — once at least one sample has been
// accepted — within JumpTolerance relative difference of the most recently
// accepted value. Invalid samples are corrected rather than dropped so the
// beat timeline stays contiguous:
//
//   - with an accepted predecessor and a raw successor, the sample is
//     replaced by the mean of the two;
//   - at the end of the sequence, the previous accepted value is carried
//     forward;
//   - before any sample has been accepted there is nothing to interpolate
//     from, so leading invalid samples are dropped.
//
// A corrected value becomes the reference for the next jump comparison.
// Sequences shorter than 3 samples are returned unchanged — too short to
// validate meaningfully. corrected counts every sample not accepted as-is,
// including dropped leading ones.
//
// Clean never fails and never mutates rr; the returned slice is freshly
// allocated.
func (p Params) Clean(rr []float64) (cleaned []float64, corrected int) {
	if len(rr) < 3 {
		return append([]float64(nil), rr...), 0
	}

	cleaned = make([]float64, 0, len(rr))
	var last float64
	accepted := false

	for i, v := range rr {
		if p.acceptable(v, last, accepted) {
			cleaned = append(cleaned, v)
			last = v
			accepted = true
			continue
		}
		corrected++

		if !accepted {
			// No predecessor to interpolate from — drop it.
			continue
		}

		repl := last // clamp-forward
		if i+1 < len(rr) {
			if next := rr[i+1]; isUsable(next) {
				repl = (last + next) / 2
			}
		}
		cleaned = append(cleaned, repl)
		last = repl
	}
	return cleaned, corrected
}

// acceptable reports whether v passes both the range bound and, when a
// reference exists, the relative jump check.
func (p Params) acceptable(v, last float64, haveLast bool) bool {
	if !isUsable(v) || v < p.MinIntervalMS || v > p.MaxIntervalMS {
		return false
	}
	if !haveLast {
		return true
	}
	return math.Abs(v-last)/last <= p.JumpTolerance
}

// isUsable rejects malformed samples: non-positive, NaN, or infinite values
// are never accepted and never used as interpolation input.
func isUsable(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
