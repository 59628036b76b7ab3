// Package config loads and watches the monitor configuration file
// (config.yaml).
//
// Top-level types:
//   - Config{Monitor, Engine} — full config tree parsed from YAML
//   - MonitorConfig — server_endpoint, poll_interval, buffer_size,
//     sources [], server_auth
//   - Source — id, type (sim|bridge|replay), endpoint/path, auth, tls, sim
//   - EngineConfig — every named constant of the numeric core: window width,
//     buffer headroom, minimum samples, interval bounds, jump tolerance,
//     box-size range, and the two display zone thresholds
//   - AuthConfig — mode (mtls|apikey|bearer|basic|none) with env-resolved
//     secrets via Key(), Token(), Password()
//
// Load(path) reads the YAML file, applies defaults (1s poll, 1000 buffer,
// 200/50/50 window policy, 300–1300 ms bounds, 30% jump tolerance, boxes
// 4..16, zone thresholds 0.75/0.50), then validates required fields, enums,
// and the window-vs-box-size relation.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config, surviving the rename→create pattern
// used by atomic-save editors.
package config
