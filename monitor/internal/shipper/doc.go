// Package shipper buffers computed readings and delivers them to
// hrvstack-server, riding out server outages with bounded memory and
// exponential backoff.
package shipper
