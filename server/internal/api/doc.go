// Package api implements the HTTP REST API for hrvstack-server.
//
// New(store, alerts) returns an http.Handler that serves:
//
//	GET /api/v1/health               — device count, zone counts, average exponent
//	GET /api/v1/devices              — all live devices ([]DeviceResponse)
//	GET /api/v1/devices/{id}         — single device; 404 if unknown or stale
//	GET /api/v1/devices/{id}/history — recorded exponent trace (?limit=N)
//	GET /api/v1/alerts               — firing and recently resolved alerts
//	GET /api/v1/certs                — bridge certificate status per device
//	GET /api/v1/snapshot             — full JSON dump: all live devices + generated_at
//
// All endpoints:
//   - Respond with Content-Type: application/json
//   - Return 405 for non-GET methods
//   - Read live entries from the store (stale entries excluded from lists)
//
// JSON types are defined in types.go. No external HTTP framework is used.
package api
