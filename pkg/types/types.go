package types

// Zone is a training zone derived from the short-term scaling exponent.
//
// The zone names follow the DFA-alpha1 threshold model: values near 1.0
// indicate correlated, well-below-threshold intervals (aerobic), values
// near 0.5 indicate uncorrelated intervals (at or above the anaerobic
// threshold), and the band between the two thresholds maps to the
// aerobic-to-anaerobic transition.
type Zone string

const (
	ZoneAerobic    Zone = "aerobic"
	ZoneTransition Zone = "transition"
	ZoneAnaerobic  Zone = "anaerobic"

	// ZoneUnknown is reported while a device's window is still filling or
	// after a sensor error — no exponent is available yet.
	ZoneUnknown Zone = "unknown"
)

// Display classification thresholds. These are presentation constants, not
// inputs to the computation itself; they are overridable via config on both
// monitor and server.
const (
	DefaultAerobicThreshold   = 0.75
	DefaultAnaerobicThreshold = 0.50
)

// ZoneForAlpha maps a scaling exponent to a named training zone using the
// given thresholds. aerobic must be greater than anaerobic; callers that do
// not override the thresholds should pass the two defaults above.
func ZoneForAlpha(alpha, aerobic, anaerobic float64) Zone {
	switch {
	case alpha >= aerobic:
		return ZoneAerobic
	case alpha > anaerobic:
		return ZoneTransition
	default:
		return ZoneAnaerobic
	}
}

// Reading is one DFA-alpha1 computation result for one device, as shipped
// from the monitor to the server and served back out over the REST API.
//
// Alpha1 is nil while the rolling window has not produced a value yet
// (window still filling, too few cleaned samples, or degenerate regression).
// A nil Alpha1 with an empty ErrorMessage means "waiting for data" rather
// than failure.
type Reading struct {
	DeviceID   string `json:"device_id"`
	SourceType string `json:"source_type"`

	// Timestamp is the whole-second Unix time of the computation.
	Timestamp int64 `json:"timestamp"`

	// HeartRate is the instantaneous rate in bpm as decoded by the sensor
	// source. Carried through for display; never used by the math.
	HeartRate int `json:"heart_rate"`

	Alpha1 *float64 `json:"alpha1,omitempty"`
	Zone   Zone     `json:"zone"`

	// WindowFill is the number of interval samples currently buffered,
	// capped at the configured window width.
	WindowFill  int `json:"window_fill"`
	WindowWidth int `json:"window_width"`

	// CleanedCount and CorrectedCount describe the artifact filter's view of
	// the last computed window: how many samples survived cleaning and how
	// many of the raw samples were corrected or dropped.
	CleanedCount   int     `json:"cleaned_count"`
	CorrectedCount int     `json:"corrected_count"`
	ArtifactPct    float64 `json:"artifact_pct"`

	// ErrorMessage is non-empty when the sensor source failed to deliver a
	// batch; forwarded to the server for display.
	ErrorMessage string `json:"error_message,omitempty"`

	// BridgeCert describes the TLS certificate of an HTTPS bridge endpoint,
	// when the source has one.
	BridgeCert *CertStatus `json:"bridge_cert,omitempty"`
}

// CertStatus describes the TLS leaf certificate of a bridge endpoint.
type CertStatus struct {
	Endpoint string `json:"endpoint"`
	// Status is one of: valid | expiring | expired | unreachable.
	Status   string `json:"status"`
	Issuer   string `json:"issuer,omitempty"`
	NotAfter string `json:"not_after,omitempty"` // RFC3339
	DaysLeft int    `json:"days_left"`
}
