package receiver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hrvstack/hrvstack/pkg/types"

	"github.com/hrvstack/hrvstack/server/internal/alerts"
	"github.com/hrvstack/hrvstack/server/internal/store"
)

// maxBodyBytes bounds an ingest request body. Readings are small; anything
// bigger is not a reading.
const maxBodyBytes = 64 << 10

// Receiver handles POST /api/v1/ingest.
// It validates each incoming reading, stores it, and runs alert evaluation.
type Receiver struct {
	store  *store.Store
	alerts *alerts.Engine
}

// New creates a Receiver that writes accepted readings to st and evaluates
// rules on eng. eng may be nil when alerting is not configured.
func New(st *store.Store, eng *alerts.Engine) *Receiver {
	return &Receiver{store: st, alerts: eng}
}

// ServeHTTP is the ingest handler called by hrvstack-monitor instances.
// Authentication is enforced by the auth middleware before this is called.
func (rc *Receiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var reading types.Reading
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&reading); err != nil {
		jsonErr(w, http.StatusBadRequest, "malformed reading")
		return
	}
	if reading.DeviceID == "" {
		jsonErr(w, http.StatusUnprocessableEntity, "device_id is required")
		return
	}

	rc.store.Put(reading)
	if rc.alerts != nil {
		rc.alerts.Evaluate(reading)
	}

	slog.Debug("receiver: reading stored",
		"device_id", reading.DeviceID,
		"source_type", reading.SourceType,
		"zone", reading.Zone,
		"window_fill", reading.WindowFill,
	)

	jsonResp(w, http.StatusAccepted, map[string]bool{"ok": true})
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, map[string]string{"error": msg})
}
