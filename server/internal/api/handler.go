package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hrvstack/hrvstack/pkg/types"

	"github.com/hrvstack/hrvstack/server/internal/alerts"
	"github.com/hrvstack/hrvstack/server/internal/store"
)

// Handler is the HTTP handler for all read-side /api/v1/* endpoints.
// It reads device state from the reading store and returns JSON responses.
type Handler struct {
	store  *store.Store
	alerts *alerts.Engine
	mux    *http.ServeMux
}

// New creates a Handler wired to the given store and alert engine, and
// registers all routes. eng may be nil when alerting is not configured.
func New(st *store.Store, eng *alerts.Engine) http.Handler {
	h := &Handler{store: st, alerts: eng, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/devices", h.listDevices)
	h.mux.HandleFunc("/api/v1/devices/", h.deviceSubtree) // {id} and {id}/history
	h.mux.HandleFunc("/api/v1/alerts", h.listAlerts)
	h.mux.HandleFunc("/api/v1/certs", h.certs)
	h.mux.HandleFunc("/api/v1/snapshot", h.snapshot)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health — zone counts and the average exponent
// across live devices.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.store.List()
	resp := HealthResponse{
		DeviceCount: len(entries),
	}
	if h.alerts != nil {
		resp.AlertCount = len(h.alerts.Active())
	}

	if len(entries) == 0 {
		resp.State = "idle"
		jsonResp(w, http.StatusOK, resp)
		return
	}

	var sum float64
	var withAlpha int
	for _, e := range entries {
		if e.Reading.Alpha1 != nil {
			sum += *e.Reading.Alpha1
			withAlpha++
		}
		switch e.Reading.Zone {
		case types.ZoneAerobic:
			resp.AerobicCount++
		case types.ZoneTransition:
			resp.TransitionCount++
		case types.ZoneAnaerobic:
			resp.AnaerobicCount++
		default:
			resp.WarmingUpCount++
		}
	}

	if withAlpha > 0 {
		avg := sum / float64(withAlpha)
		resp.AverageAlpha1 = &avg
	}
	resp.State = "ok"
	jsonResp(w, http.StatusOK, resp)
}

// listDevices returns GET /api/v1/devices — all live devices.
func (h *Handler) listDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.liveDevices())
}

// deviceSubtree routes GET /api/v1/devices/{id} and
// GET /api/v1/devices/{id}/history.
func (h *Handler) deviceSubtree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/devices/")
	if rest == "" {
		h.listDevices(w, r)
		return
	}

	if id, ok := strings.CutSuffix(rest, "/history"); ok {
		h.deviceHistory(w, r, id)
		return
	}
	h.getDevice(w, rest)
}

// getDevice serves a single live device; stale entries are treated as not found.
func (h *Handler) getDevice(w http.ResponseWriter, id string) {
	e, ok := h.store.Get(id)
	if !ok || time.Since(e.UpdatedAt) > h.store.TTL() {
		jsonErr(w, http.StatusNotFound, "device not found")
		return
	}
	jsonResp(w, http.StatusOK, toDeviceResponse(e))
}

// deviceHistory serves the recorded exponent trace for one device.
// ?limit=N caps the number of returned points (newest N).
func (h *Handler) deviceHistory(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := h.store.Get(id); !ok {
		jsonErr(w, http.StatusNotFound, "device not found")
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			jsonErr(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	points := h.store.History(id, limit)
	if points == nil {
		points = []store.Point{}
	}
	jsonResp(w, http.StatusOK, points)
}

// listAlerts returns GET /api/v1/alerts — firing and recently resolved alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.alerts == nil {
		jsonResp(w, http.StatusOK, []struct{}{})
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// certs returns GET /api/v1/certs — bridge certificate status per device.
func (h *Handler) certs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.store.List()
	type certEntry struct {
		DeviceID string `json:"device_id"`
		Endpoint string `json:"endpoint"`
		Status   string `json:"status"`
		DaysLeft int    `json:"days_left"`
		Issuer   string `json:"issuer,omitempty"`
		NotAfter string `json:"not_after,omitempty"`
	}
	out := make([]certEntry, 0)
	for _, e := range entries {
		c := e.Reading.BridgeCert
		if c == nil {
			continue
		}
		out = append(out, certEntry{
			DeviceID: e.Reading.DeviceID,
			Endpoint: c.Endpoint,
			Status:   c.Status,
			DaysLeft: c.DaysLeft,
			Issuer:   c.Issuer,
			NotAfter: c.NotAfter,
		})
	}
	jsonResp(w, http.StatusOK, out)
}

// snapshot returns GET /api/v1/snapshot — full JSON dump of all live devices.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildSnapshot(h.store))
}

// BuildSnapshot assembles the full-state payload. Shared with the WebSocket
// hub, which broadcasts the same shape on every tick.
func BuildSnapshot(st *store.Store) SnapshotResponse {
	entries := st.List()
	devices := make([]DeviceResponse, 0, len(entries))
	for _, e := range entries {
		devices = append(devices, toDeviceResponse(e))
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].DeviceID < devices[j].DeviceID })

	return SnapshotResponse{
		Devices:     devices,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// --- helpers ----------------------------------------------------------------

func (h *Handler) liveDevices() []DeviceResponse {
	entries := h.store.List()
	out := make([]DeviceResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toDeviceResponse(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// toDeviceResponse maps a store.Entry to its JSON representation.
func toDeviceResponse(e store.Entry) DeviceResponse {
	rd := e.Reading
	resp := DeviceResponse{
		DeviceID:       rd.DeviceID,
		SourceType:     rd.SourceType,
		HeartRate:      rd.HeartRate,
		Zone:           string(rd.Zone),
		WindowFill:     rd.WindowFill,
		WindowWidth:    rd.WindowWidth,
		CleanedCount:   rd.CleanedCount,
		CorrectedCount: rd.CorrectedCount,
		ArtifactPct:    rd.ArtifactPct,
		ErrorMessage:   rd.ErrorMessage,
		Diagnostics:    computeDiagnostics(rd),
		LastSeen:       e.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if rd.Alpha1 != nil {
		a := *rd.Alpha1
		resp.Alpha1 = &a
	}
	return resp
}
