package session

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/hrvstack/hrvstack/pkg/types"

	"github.com/hrvstack/hrvstack/monitor/internal/config"
	"github.com/hrvstack/hrvstack/monitor/internal/dfa"
	"github.com/hrvstack/hrvstack/monitor/internal/sensor"
	"github.com/hrvstack/hrvstack/monitor/internal/window"
)

func testEngine() config.EngineConfig {
	p := dfa.DefaultParams()
	return config.EngineConfig{
		WindowWidth:        window.DefaultWidth,
		BufferHeadroom:     window.DefaultHeadroom,
		MinSamples:         p.MinSamples,
		MinIntervalMS:      p.MinIntervalMS,
		MaxIntervalMS:      p.MaxIntervalMS,
		JumpTolerance:      p.JumpTolerance,
		BoxMin:             p.BoxMin,
		BoxMax:             p.BoxMax,
		AerobicThreshold:   types.DefaultAerobicThreshold,
		AnaerobicThreshold: types.DefaultAnaerobicThreshold,
	}
}

func batch(intervals ...float64) *sensor.Batch {
	return &sensor.Batch{
		DeviceID:   "dev0",
		SourceType: "sim",
		At:         time.Now(),
		HeartRate:  75,
		Intervals:  intervals,
	}
}

func TestSession_WarmupThenEstimate(t *testing.T) {
	eng := testEngine()
	s := New("dev0", eng)
	now := time.Unix(1700000000, 0)

	rng := rand.New(rand.NewSource(3))
	beat := func() float64 { return 700 + 200*rng.Float64() }

	var res Result
	for i := 0; i < eng.WindowWidth-1; i++ {
		res = s.Process(batch(beat()), now)
		if res.Alpha1 != nil {
			t.Fatalf("beat %d: estimate produced during warmup", i)
		}
		if res.Zone != types.ZoneUnknown {
			t.Fatalf("beat %d: zone = %q during warmup", i, res.Zone)
		}
		if res.WindowFill != i+1 {
			t.Fatalf("beat %d: WindowFill = %d", i, res.WindowFill)
		}
	}

	res = s.Process(batch(beat()), now)
	if res.Alpha1 == nil {
		t.Fatal("window full but no estimate")
	}
	if res.Zone == types.ZoneUnknown {
		t.Error("estimate present but zone unknown")
	}
	if res.DeviceID != "dev0" || res.HeartRate != 75 {
		t.Errorf("result identity: %+v", res)
	}
	if res.WindowWidth != eng.WindowWidth {
		t.Errorf("WindowWidth = %d, want %d", res.WindowWidth, eng.WindowWidth)
	}
}

func TestSession_SensorErrorForwarded(t *testing.T) {
	s := New("dev0", testEngine())
	b := batch()
	b.Err = errors.New("strap unreachable")

	res := s.Process(b, time.Now())
	if res.ErrMessage != "strap unreachable" {
		t.Errorf("ErrMessage = %q", res.ErrMessage)
	}
	if res.WindowFill != 0 {
		t.Errorf("errored batch must not fill the window, fill = %d", res.WindowFill)
	}
}

func TestSession_NilBatch(t *testing.T) {
	s := New("dev0", testEngine())
	res := s.Process(nil, time.Now())
	if res.Alpha1 != nil || res.WindowFill != 0 {
		t.Errorf("nil batch result: %+v", res)
	}
}

func TestSession_ArtifactPct(t *testing.T) {
	eng := testEngine()
	s := New("dev0", eng)

	rng := rand.New(rand.NewSource(4))
	for i := 0; i < eng.WindowWidth; i++ {
		rr := 700 + 200*rng.Float64()
		if i%50 == 25 {
			rr = 40 // way below the physiological floor
		}
		s.Process(batch(rr), time.Now())
	}
	res := s.Process(batch(800), time.Now())
	if res.CorrectedCount == 0 {
		t.Fatal("expected corrections for injected artifacts")
	}
	want := 100 * float64(res.CorrectedCount) / float64(res.CleanedCount)
	if res.ArtifactPct != want {
		t.Errorf("ArtifactPct = %v, want %v", res.ArtifactPct, want)
	}
}

func TestSession_Reset(t *testing.T) {
	eng := testEngine()
	s := New("dev0", eng)
	for i := 0; i < eng.WindowWidth; i++ {
		s.Process(batch(800), time.Now())
	}
	s.Reset()
	res := s.Process(batch(800), time.Now())
	if res.WindowFill != 1 {
		t.Errorf("WindowFill after reset = %d, want 1", res.WindowFill)
	}
	if res.Alpha1 != nil {
		t.Error("estimate survived reset")
	}
}
