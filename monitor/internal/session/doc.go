// Package session ties a device's sensor stream to the estimation engine:
// it owns the rolling RR window and turns each sampling cycle into a
// display-ready result.
package session
