// Package sample implements probabilistic admission for telemetry events.
package sample

import "math/rand/v2"

// Admit decides whether an event passes the sampling filter. rate >= 1
// always admits, rate <= 0 never admits. Safe for concurrent use: the
// shared rand source is already synchronized.
func Admit(rate float64) bool {
	if rate >= 1 {
		return true
	}
	if rate <= 0 {
		return false
	}
	return rand.Float64() < rate
}
