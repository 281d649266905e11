// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package jobsys

import (
	"sync/atomic"
)

// SystemState represents the lifecycle state of a System.
//
// State Machine:
//
//	StateAwake (0) → StateRunning (1)          [New(), once all queues are published]
//	StateRunning (1) → StateTerminating (2)    [Close() / Shutdown()]
//	StateTerminating (2) → StateTerminated (3) [all workers joined]
//	StateTerminated (3) → (terminal)
//
// Use tryTransition (CAS) to leave Running, so that exactly one caller wins
// the right to stop the workers.
type SystemState uint64

const (
	// StateAwake indicates the System is starting its workers.
	StateAwake SystemState = iota
	// StateRunning indicates workers are processing jobs.
	StateRunning
	// StateTerminating indicates shutdown has been requested, and workers
	// are finishing their current job.
	StateTerminating
	// StateTerminated indicates every worker has exited.
	StateTerminated
)

// String returns a human-readable representation of the state.
func (s SystemState) String() string {
	switch s {
	case StateAwake:
		return "Awake"
	case StateRunning:
		return "Running"
	case StateTerminating:
		return "Terminating"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// fastState is a lock-free state machine with cache-line padding.
//
// It is polled by every worker on every iteration, and written once or twice
// per lifetime, so it gets a cache line to itself.
type fastState struct { // betteralign:ignore
	_ [sizeOfCacheLine]byte                     //nolint:unused
	v atomic.Uint64                             // State value
	_ [sizeOfCacheLine - sizeOfAtomicInt64]byte //nolint:unused
}

func (s *fastState) load() SystemState {
	return SystemState(s.v.Load())
}

// store is only valid for irreversible transitions.
func (s *fastState) store(state SystemState) {
	s.v.Store(uint64(state))
}

func (s *fastState) tryTransition(from, to SystemState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

func (s *fastState) isRunning() bool {
	return s.load() == StateRunning
}
