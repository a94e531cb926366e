// Copyright 2026 The Outpost Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the time source for testability. Production
// code injects Real(); tests inject a Fake with deterministic control.
//
// The coordination substrate needs only Now — entity timestamps, TTL
// staleness arithmetic, and token expiry all derive from it. Timers and
// tickers are deliberately absent: nothing in this codebase sleeps or
// schedules.
package clock

import "time"

// Clock provides the current time.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// Real returns a Clock backed by the system time.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
