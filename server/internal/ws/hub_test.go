package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hrvstack/hrvstack/pkg/types"
	"github.com/hrvstack/hrvstack/server/internal/store"
	wsHub "github.com/hrvstack/hrvstack/server/internal/ws"
)

const testInterval = 20 * time.Millisecond

// --- helpers ----------------------------------------------------------------

func newStore(readings ...types.Reading) *store.Store {
	st := store.New(5*time.Minute, 10, 0)
	for _, r := range readings {
		st.Put(r)
	}
	return st
}

func reading(id string, alpha float64) types.Reading {
	a := alpha
	return types.Reading{
		DeviceID:    id,
		SourceType:  "bridge",
		HeartRate:   130,
		Alpha1:      &a,
		Zone:        types.ZoneForAlpha(a, types.DefaultAerobicThreshold, types.DefaultAnaerobicThreshold),
		WindowFill:  200,
		WindowWidth: 200,
	}
}

// startHub starts a test HTTP server with the hub as its handler.
// The hub's Run loop is started with a cancellable context.
// Returns the ws:// URL, the hub, and a cleanup function.
func startHub(t *testing.T, st *store.Store) (wsURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub = wsHub.New(st, testInterval)
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	wsURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return wsURL, hub, cancelFn
}

// dial connects a WebSocket client to wsURL and returns the connection.
func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads one text message from conn with a short deadline.
func readMessage(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	return msg
}

func decodeDevices(t *testing.T, msg []byte) []interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(msg, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["event"] != "snapshot" {
		t.Fatalf("event: got %v, want snapshot", m["event"])
	}
	data, ok := m["data"].(map[string]interface{})
	if !ok {
		t.Fatal("data: missing or wrong type")
	}
	devices, ok := data["devices"].([]interface{})
	if !ok {
		t.Fatal("devices: missing or wrong type")
	}
	return devices
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesImmediateSnapshot(t *testing.T) {
	st := newStore(reading("strap-1", 0.9))
	wsURL, _, _ := startHub(t, st)

	conn := dial(t, wsURL)
	msg := readMessage(t, conn)

	devices := decodeDevices(t, msg)
	if len(devices) != 1 {
		t.Errorf("devices: got %d, want 1", len(devices))
	}
}

func TestHub_MessageContainsAllDevices(t *testing.T) {
	st := newStore(reading("strap-1", 0.9), reading("strap-2", 0.4))
	wsURL, _, _ := startHub(t, st)

	conn := dial(t, wsURL)
	devices := decodeDevices(t, readMessage(t, conn))
	if len(devices) != 2 {
		t.Errorf("devices: got %d, want 2", len(devices))
	}
}

func TestHub_DeviceFilter(t *testing.T) {
	st := newStore(reading("strap-1", 0.9), reading("strap-2", 0.4))
	wsURL, _, _ := startHub(t, st)

	conn := dial(t, wsURL+"?device=strap-2")
	devices := decodeDevices(t, readMessage(t, conn))
	if len(devices) != 1 {
		t.Fatalf("devices: got %d, want 1", len(devices))
	}
	d := devices[0].(map[string]interface{})
	if d["device_id"] != "strap-2" {
		t.Errorf("device_id: got %v, want strap-2", d["device_id"])
	}
}

func TestHub_DeviceFilter_UnknownDeviceEmpty(t *testing.T) {
	st := newStore(reading("strap-1", 0.9))
	wsURL, _, _ := startHub(t, st)

	conn := dial(t, wsURL+"?device=nope")
	devices := decodeDevices(t, readMessage(t, conn))
	if len(devices) != 0 {
		t.Errorf("devices: got %d, want 0", len(devices))
	}
}

func TestHub_EmptyStore_EmptyDevices(t *testing.T) {
	wsURL, _, _ := startHub(t, newStore())
	conn := dial(t, wsURL)
	devices := decodeDevices(t, readMessage(t, conn))
	if len(devices) != 0 {
		t.Errorf("devices: got %d, want 0", len(devices))
	}
}

func TestHub_CountClients_SingleClient(t *testing.T) {
	wsURL, hub, _ := startHub(t, newStore())

	conn := dial(t, wsURL)
	readMessage(t, conn) // consume initial message

	// Give the hub a moment to register the client.
	time.Sleep(10 * time.Millisecond)
	if n := hub.Count(); n != 1 {
		t.Errorf("Count: got %d, want 1", n)
	}
}

func TestHub_CountClients_DecreasesOnDisconnect(t *testing.T) {
	wsURL, hub, _ := startHub(t, newStore())

	conn := dial(t, wsURL)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	if n := hub.Count(); n != 1 {
		t.Errorf("Count before disconnect: got %d, want 1", n)
	}

	conn.Close()
	time.Sleep(50 * time.Millisecond) // let readPump detect the close

	if n := hub.Count(); n != 0 {
		t.Errorf("Count after disconnect: got %d, want 0", n)
	}
}

func TestHub_ReceivesBroadcastOnTick(t *testing.T) {
	st := newStore()
	wsURL, _, _ := startHub(t, st)

	conn := dial(t, wsURL)
	readMessage(t, conn) // consume immediate snapshot (empty store)

	// Add a device after connect.
	st.Put(reading("new-strap", 0.8))

	// The next tick should broadcast a message with the new device.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("waiting for tick broadcast: %v", err)
	}

	devices := decodeDevices(t, msg)
	if len(devices) != 1 {
		t.Fatalf("tick broadcast: got %d devices, want 1", len(devices))
	}
	d := devices[0].(map[string]interface{})
	if d["device_id"] != "new-strap" {
		t.Errorf("device_id: got %v, want new-strap", d["device_id"])
	}
}

func TestHub_AllClientsReceiveBroadcast(t *testing.T) {
	wsURL, _, _ := startHub(t, newStore(reading("strap", 0.9)))

	conns := make([]*websocket.Conn, 3)
	for i := 0; i < 3; i++ {
		conns[i] = dial(t, wsURL)
	}

	// All three should receive the initial snapshot.
	for i, conn := range conns {
		devices := decodeDevices(t, readMessage(t, conn))
		if len(devices) != 1 {
			t.Errorf("client %d: devices: got %d, want 1", i, len(devices))
		}
	}
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	wsURL, hub, cancel := startHub(t, newStore())

	conn := dial(t, wsURL)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	cancel() // signal shutdown

	// After cancel, hub should close all clients.
	time.Sleep(50 * time.Millisecond)
	if n := hub.Count(); n != 0 {
		t.Errorf("Count after cancel: got %d, want 0", n)
	}
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	hub := wsHub.New(newStore(), testInterval)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	// Plain HTTP GET without WebSocket upgrade headers → 400
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}
