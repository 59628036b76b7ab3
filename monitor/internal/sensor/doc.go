// Package sensor provides sources of decoded heart-rate data. Each source
// delivers Batches: an instantaneous heart rate plus zero or more RR
// intervals in milliseconds, in beat order. The session layer feeds these
// into the rolling-window DFA engine; nothing in here touches the math.
//
// Implemented sources: a deterministic simulator (sim.go), a poller for
// BLE heart-rate bridge exporters speaking the Prometheus text format
// (bridge.go), and a recorded-session replayer (replay.go).
// Factory: New(config.Source) returns the correct Source.
//
// Authentication against bridge endpoints (mTLS, API key, bearer token,
// basic) is handled by the shared authRoundTripper in base.go; the bridge
// source receives a pre-configured *http.Client from New().
package sensor
