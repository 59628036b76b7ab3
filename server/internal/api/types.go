package api

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State           string   `json:"state"`
	DeviceCount     int      `json:"device_count"`
	AverageAlpha1   *float64 `json:"average_alpha1,omitempty"`
	AerobicCount    int      `json:"aerobic_count"`
	TransitionCount int      `json:"transition_count"`
	AnaerobicCount  int      `json:"anaerobic_count"`
	WarmingUpCount  int      `json:"warming_up_count"`
	AlertCount      int      `json:"alert_count"`
}

// DeviceResponse is one device entry in GET /api/v1/devices or
// GET /api/v1/devices/{id}.
type DeviceResponse struct {
	DeviceID       string           `json:"device_id"`
	SourceType     string           `json:"source_type"`
	HeartRate      int              `json:"heart_rate"`
	Alpha1         *float64         `json:"alpha1,omitempty"`
	Zone           string           `json:"zone"`
	WindowFill     int              `json:"window_fill"`
	WindowWidth    int              `json:"window_width"`
	CleanedCount   int              `json:"cleaned_count"`
	CorrectedCount int              `json:"corrected_count"`
	ArtifactPct    float64          `json:"artifact_pct"`
	ErrorMessage   string           `json:"error_message,omitempty"`
	Diagnostics    []DiagnosticHint `json:"diagnostics"`
	LastSeen       string           `json:"last_seen"` // RFC3339
}

// SnapshotResponse is the payload for GET /api/v1/snapshot.
type SnapshotResponse struct {
	Devices     []DeviceResponse `json:"devices"`
	GeneratedAt string           `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
