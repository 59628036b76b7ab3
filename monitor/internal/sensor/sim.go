package sensor

import (
	"context"
	"math"
	"math/rand"

	"github.com/hrvstack/hrvstack/monitor/internal/config"
)

// Simulator defaults: ~75 bpm with a gentle respiratory sway and a little
// beat-to-beat noise. Deliberately non-clinical — enough structure for the
// engine to produce a stable exponent during development.
const (
	defaultSimBaseMS  = 800.0
	defaultSimSwayMS  = 25.0
	defaultSimNoiseMS = 8.0
	defaultSimSeed    = 1
)

// simSource generates one synthetic RR interval per sample: a base interval
// modulated by a slow sine (respiratory sinus arrhythmia) plus seeded
// uniform noise. Two simulators with the same seed produce identical beat
// streams.
type simSource struct {
	src   config.Source
	base  float64
	sway  float64
	noise float64

	rng  *rand.Rand
	beat int
}

func newSimSource(src config.Source) *simSource {
	s := &simSource{
		src:   src,
		base:  src.Sim.BaseIntervalMS,
		sway:  defaultSimSwayMS,
		noise: defaultSimNoiseMS,
	}
	if s.base <= 0 {
		s.base = defaultSimBaseMS
	}
	// Zero is a meaningful amplitude (a perfectly steady stream); only an
	// absent or negative setting falls back to the default.
	if v := src.Sim.SwayMS; v != nil && *v >= 0 {
		s.sway = *v
	}
	if v := src.Sim.NoiseMS; v != nil && *v >= 0 {
		s.noise = *v
	}
	seed := src.Sim.Seed
	if seed == 0 {
		seed = defaultSimSeed
	}
	s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // reproducibility, not crypto
	return s
}

// Sample returns the next simulated beat.
func (s *simSource) Sample(_ context.Context) (*Batch, error) {
	// Breathing cycle of ~12 beats.
	phase := 2 * math.Pi * float64(s.beat) / 12
	rr := s.base + s.sway*math.Sin(phase) + s.noise*(2*s.rng.Float64()-1)
	s.beat++

	b := newBatch(s.src.ID, "sim")
	b.HeartRate = int(math.Round(60000 / rr))
	b.Intervals = []float64{rr}
	return b, nil
}
