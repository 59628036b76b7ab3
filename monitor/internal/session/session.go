package session

import (
	"errors"
	"time"

	"github.com/hrvstack/hrvstack/pkg/types"

	"github.com/hrvstack/hrvstack/monitor/internal/config"
	"github.com/hrvstack/hrvstack/monitor/internal/dfa"
	"github.com/hrvstack/hrvstack/monitor/internal/sensor"
	"github.com/hrvstack/hrvstack/monitor/internal/window"
)

// Result is the outcome of one processing cycle for a device. Every cycle
// produces a Result so the server always sees a fresh heartbeat, even while
// the window is still warming up or the sensor is misbehaving.
type Result struct {
	DeviceID   string
	SourceType string
	At         time.Time

	HeartRate int

	// Alpha1 is nil until the window is full and the estimate succeeds.
	Alpha1 *float64
	Zone   types.Zone

	WindowFill  int
	WindowWidth int

	// CleanedCount and CorrectedCount describe the most recent estimate's
	// input, not the whole session.
	CleanedCount   int
	CorrectedCount int
	ArtifactPct    float64

	// ErrMessage carries a sensor or estimation failure for display.
	ErrMessage string
}

// Session accumulates one device's RR stream and computes the short-term
// scaling exponent over a rolling window.
type Session struct {
	deviceID string

	win    *window.Window
	params dfa.Params

	aerobic   float64
	anaerobic float64

	scratch []float64
}

// New builds a session for deviceID from the engine configuration.
func New(deviceID string, eng config.EngineConfig) *Session {
	return &Session{
		deviceID:  deviceID,
		win:       window.New(eng.WindowWidth, eng.BufferHeadroom),
		params:    eng.Params(),
		aerobic:   eng.AerobicThreshold,
		anaerobic: eng.AnaerobicThreshold,
	}
}

// Process folds one sensor batch into the window and computes the current
// estimate. It never returns an error: failures are carried in the Result
// so they reach the display.
func (s *Session) Process(b *sensor.Batch, now time.Time) Result {
	res := Result{
		DeviceID:    s.deviceID,
		At:          now,
		WindowWidth: s.win.Width(),
		Zone:        types.ZoneUnknown,
	}
	if b != nil {
		res.SourceType = b.SourceType
		res.HeartRate = b.HeartRate
		if b.Err != nil {
			res.ErrMessage = b.Err.Error()
		}
		if b.Err == nil && len(b.Intervals) > 0 {
			s.win.Append(b.Intervals...)
		}
	}
	res.WindowFill = s.win.Len()

	if !s.win.Ready() {
		return res
	}

	s.scratch = s.win.Latest(s.scratch)
	out, err := dfa.Compute(s.scratch, s.params)
	res.CleanedCount = out.CleanedCount
	res.CorrectedCount = out.CorrectedCount
	if out.CleanedCount > 0 {
		res.ArtifactPct = 100 * float64(out.CorrectedCount) / float64(out.CleanedCount)
	}
	if err != nil {
		if !errors.Is(err, dfa.ErrInsufficientData) && res.ErrMessage == "" {
			res.ErrMessage = err.Error()
		}
		return res
	}

	alpha := out.Alpha1
	res.Alpha1 = &alpha
	res.Zone = types.ZoneForAlpha(alpha, s.aerobic, s.anaerobic)
	return res
}

// Reset discards the window, e.g. when a strap reconnects after a gap long
// enough that stitching the two recordings together would be misleading.
func (s *Session) Reset() {
	s.win.Reset()
}
