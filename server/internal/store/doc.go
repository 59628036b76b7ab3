// Package store keeps the latest reading and a bounded exponent history for
// every reporting device, in memory, with TTL eviction of silent devices.
package store
