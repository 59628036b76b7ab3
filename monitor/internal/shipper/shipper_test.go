package shipper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hrvstack/hrvstack/pkg/types"

	"github.com/hrvstack/hrvstack/monitor/internal/config"
	"github.com/hrvstack/hrvstack/monitor/internal/session"
)

func reading(device string, ts int64) types.Reading {
	return types.Reading{DeviceID: device, Timestamp: ts, HeartRate: 70}
}

func newTestShipper(endpoint string, bufferSize int) *Shipper {
	s := New(config.MonitorConfig{
		ServerEndpoint: endpoint,
		BufferSize:     bufferSize,
	})
	s.sleep = func(context.Context, time.Duration) {}
	return s
}

// ingestRecorder collects readings posted to a fake ingest endpoint.
type ingestRecorder struct {
	mu       sync.Mutex
	readings []types.Reading
	fail     int // initial requests to fail with 500
	apiKeys  []string
}

func (rec *ingestRecorder) handler(w http.ResponseWriter, r *http.Request) {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.apiKeys = append(rec.apiKeys, r.Header.Get("x-api-key"))
	if rec.fail > 0 {
		rec.fail--
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	var reading types.Reading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	rec.readings = append(rec.readings, reading)
	w.WriteHeader(http.StatusAccepted)
}

func (rec *ingestRecorder) count() int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return len(rec.readings)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestShipper_Delivers(t *testing.T) {
	rec := &ingestRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	s := newTestShipper(srv.URL, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.Ship(reading("dev0", 100))
	s.Ship(reading("dev0", 101))

	waitFor(t, func() bool { return rec.count() == 2 })
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.readings[0].Timestamp != 100 || rec.readings[1].Timestamp != 101 {
		t.Errorf("delivery order: %+v", rec.readings)
	}
}

func TestShipper_RetriesTransient(t *testing.T) {
	rec := &ingestRecorder{fail: 2}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	s := newTestShipper(srv.URL, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.Ship(reading("dev0", 100))
	waitFor(t, func() bool { return rec.count() == 1 })
}

func TestShipper_DropsPermanent(t *testing.T) {
	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	s := newTestShipper(srv.URL, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.Ship(reading("dev0", 100))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	})
	// Give the loop a chance to (wrongly) retry.
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("permanent failure retried: %d calls", calls)
	}
}

func TestShipper_EvictsOldestWhenFull(t *testing.T) {
	// No Run loop: the queue just fills.
	s := newTestShipper("http://127.0.0.1:1", 3)

	for ts := int64(1); ts <= 5; ts++ {
		s.Ship(reading("dev0", ts))
	}
	if s.Pending() != 3 {
		t.Fatalf("Pending = %d, want 3", s.Pending())
	}
	got := <-s.queue
	if got.Timestamp != 3 {
		t.Errorf("oldest surviving reading ts = %d, want 3", got.Timestamp)
	}
}

func TestShipper_SendsAPIKey(t *testing.T) {
	rec := &ingestRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	defer srv.Close()

	t.Setenv("HRV_TEST_KEY", "sekrit")
	s := New(config.MonitorConfig{
		ServerEndpoint: srv.URL,
		BufferSize:     4,
		ServerAuth: config.AuthConfig{
			Mode:   "apikey",
			KeyEnv: "HRV_TEST_KEY",
		},
	})
	s.sleep = func(context.Context, time.Duration) {}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.Ship(reading("dev0", 1))
	waitFor(t, func() bool { return rec.count() == 1 })

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.apiKeys[0] != "sekrit" {
		t.Errorf("x-api-key = %q", rec.apiKeys[0])
	}
}

func TestFromResult(t *testing.T) {
	alpha := 0.82
	at := time.Unix(1700000000, 0)
	res := session.Result{
		DeviceID:       "dev0",
		SourceType:     "bridge",
		At:             at,
		HeartRate:      64,
		Alpha1:         &alpha,
		Zone:           types.ZoneAerobic,
		WindowFill:     200,
		WindowWidth:    200,
		CleanedCount:   198,
		CorrectedCount: 3,
		ArtifactPct:    1.5151,
	}
	cert := &types.CertStatus{Endpoint: "https://strap:9100", Status: "valid"}

	r := FromResult(res, cert)
	if r.Timestamp != at.Unix() {
		t.Errorf("Timestamp = %d", r.Timestamp)
	}
	if r.Alpha1 == nil || *r.Alpha1 != alpha {
		t.Errorf("Alpha1 = %v", r.Alpha1)
	}
	if r.Alpha1 == res.Alpha1 {
		t.Error("Alpha1 pointer aliases the session result")
	}
	if r.BridgeCert != cert {
		t.Error("cert status not attached")
	}
	if r.Zone != types.ZoneAerobic || r.CorrectedCount != 3 {
		t.Errorf("reading: %+v", r)
	}
}

func TestFromResult_NoEstimate(t *testing.T) {
	r := FromResult(session.Result{DeviceID: "dev0", Zone: types.ZoneUnknown}, nil)
	if r.Alpha1 != nil {
		t.Errorf("Alpha1 = %v, want nil", r.Alpha1)
	}
	if r.BridgeCert != nil {
		t.Error("BridgeCert should be nil")
	}
}
