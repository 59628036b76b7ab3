// Package receiver implements the ingest endpoint that accepts readings
// from hrvstack-monitor instances, validates them, and writes them to the
// reading store.
package receiver
