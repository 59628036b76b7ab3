package shipper

import (
	"github.com/hrvstack/hrvstack/pkg/types"

	"github.com/hrvstack/hrvstack/monitor/internal/session"
)

// FromResult flattens a session result into the wire reading posted to the
// server. Cert status is attached separately by the caller because it is
// checked on its own cadence, not per beat.
func FromResult(res session.Result, cert *types.CertStatus) types.Reading {
	r := types.Reading{
		DeviceID:       res.DeviceID,
		SourceType:     res.SourceType,
		Timestamp:      res.At.Unix(),
		HeartRate:      res.HeartRate,
		Zone:           res.Zone,
		WindowFill:     res.WindowFill,
		WindowWidth:    res.WindowWidth,
		CleanedCount:   res.CleanedCount,
		CorrectedCount: res.CorrectedCount,
		ArtifactPct:    res.ArtifactPct,
		ErrorMessage:   res.ErrMessage,
		BridgeCert:     cert,
	}
	if res.Alpha1 != nil {
		a := *res.Alpha1
		r.Alpha1 = &a
	}
	return r
}
