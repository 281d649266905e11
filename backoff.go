// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package jobsys

import (
	"runtime"
	"time"
)

type (
	backoffConfig struct {
		spins    int
		minSleep time.Duration
		maxSleep time.Duration
	}

	// idleBackoff is the no-work strategy of the worker loop and Wait:
	// yield a few times, then sleep, doubling up to a limit.
	// Not thread-safe, each goroutine uses its own.
	idleBackoff struct {
		config   backoffConfig
		attempts int
		sleep    time.Duration
	}
)

func newIdleBackoff(config backoffConfig) idleBackoff {
	return idleBackoff{config: config}
}

// waitBackoff caps sleeps at minSleep, for callers blocked on a result.
func newWaitBackoff(config backoffConfig) idleBackoff {
	config.maxSleep = config.minSleep
	return idleBackoff{config: config}
}

func (x *idleBackoff) reset() {
	x.attempts = 0
	x.sleep = 0
}

func (x *idleBackoff) wait() {
	if x.attempts < x.config.spins {
		x.attempts++
		runtime.Gosched()
		return
	}
	switch {
	case x.sleep == 0:
		x.sleep = x.config.minSleep
	case x.sleep < x.config.maxSleep:
		x.sleep = min(x.sleep*2, x.config.maxSleep)
	}
	time.Sleep(x.sleep)
}
