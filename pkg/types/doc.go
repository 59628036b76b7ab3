// Package types defines shared Go types used by both the monitor and server.
// Reading is the canonical wire representation of one DFA-alpha1 computation;
// the zone thresholds and classifier live here so that the display
// classification is defined once and consumed by both sides.
package types
