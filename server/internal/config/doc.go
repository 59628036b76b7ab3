// Package config loads the server-side configuration from the `server:` section
// of config.yaml (the `monitor:` and `engine:` keys are ignored by the server
// binary).
//
// Config fields:
//   - HTTPPort             — port for ingest, REST API and WebSocket hub (default 8080)
//   - Auth.Mode            — "apikey" or "none"
//   - Auth.KeyEnv          — environment variable holding the expected API key
//   - Auth.Header          — HTTP header name (default "x-api-key")
//   - Reading.TTL          — how long a device's latest reading remains live (default 2m)
//   - Reading.HistoryLimit — per-device history ring capacity (default 1800 points)
//   - Reading.RecordEvery  — minimum spacing between recorded history points (default 2s)
//
// Load(path) applies defaults before unmarshalling, then validates.
package config
