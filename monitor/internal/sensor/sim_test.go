package sensor

import (
	"context"
	"testing"

	"github.com/hrvstack/hrvstack/monitor/internal/config"
)

func TestSimSource_Deterministic(t *testing.T) {
	src := config.Source{ID: "sim0", Type: "sim", Sim: config.SimConfig{Seed: 7}}
	a := newSimSource(src)
	b := newSimSource(src)

	for i := 0; i < 100; i++ {
		ba, _ := a.Sample(context.Background())
		bb, _ := b.Sample(context.Background())
		if ba.Intervals[0] != bb.Intervals[0] {
			t.Fatalf("beat %d: %v != %v", i, ba.Intervals[0], bb.Intervals[0])
		}
	}
}

func TestSimSource_IntervalsPlausible(t *testing.T) {
	s := newSimSource(config.Source{ID: "sim0", Type: "sim"})

	for i := 0; i < 500; i++ {
		b, err := s.Sample(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		rr := b.Intervals[0]
		// base 800 ± sway 25 ± noise 8
		if rr < 767 || rr > 833 {
			t.Fatalf("beat %d: rr = %v out of expected band", i, rr)
		}
		if b.HeartRate < 72 || b.HeartRate > 79 {
			t.Fatalf("beat %d: heart rate = %d out of expected band", i, b.HeartRate)
		}
	}
}

func amplitude(v float64) *float64 { return &v }

func TestSimSource_ConfigOverrides(t *testing.T) {
	s := newSimSource(config.Source{ID: "sim0", Type: "sim", Sim: config.SimConfig{
		BaseIntervalMS: 1000,
		SwayMS:         amplitude(1),
		NoiseMS:        amplitude(1),
	}})
	b, _ := s.Sample(context.Background())
	if rr := b.Intervals[0]; rr < 998 || rr > 1002 {
		t.Fatalf("rr = %v, want ~1000", rr)
	}
}

func TestSimSource_ZeroAmplitudesAreSteady(t *testing.T) {
	s := newSimSource(config.Source{ID: "sim0", Type: "sim", Sim: config.SimConfig{
		SwayMS:  amplitude(0),
		NoiseMS: amplitude(0),
	}})
	for i := 0; i < 50; i++ {
		b, err := s.Sample(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if rr := b.Intervals[0]; rr != defaultSimBaseMS {
			t.Fatalf("beat %d: rr = %v, want steady %v", i, rr, defaultSimBaseMS)
		}
		if b.HeartRate != 75 {
			t.Fatalf("beat %d: heart rate = %d, want 75", i, b.HeartRate)
		}
	}
}

func TestSimSource_NegativeAmplitudeFallsBack(t *testing.T) {
	s := newSimSource(config.Source{ID: "sim0", Type: "sim", Sim: config.SimConfig{
		SwayMS:  amplitude(-5),
		NoiseMS: amplitude(-5),
	}})
	steady := true
	for i := 0; i < 20; i++ {
		b, _ := s.Sample(context.Background())
		if b.Intervals[0] != defaultSimBaseMS {
			steady = false
		}
	}
	if steady {
		t.Fatal("negative amplitudes produced a steady stream, want defaults")
	}
}
