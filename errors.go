// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package jobsys

import (
	"errors"
)

// Standard errors.
var (
	// ErrCapacityExceeded is returned when the inline arguments of a job are
	// larger than ArgsCapacity. It is raised before anything is allocated.
	ErrCapacityExceeded = errors.New("jobsys: job arguments exceed inline capacity")

	// ErrArgsNotPlain is returned when the inline arguments of a job contain
	// pointers (including strings, slices, maps, channels, funcs, and
	// interfaces). Inline storage is not scanned by the garbage collector.
	ErrArgsNotPlain = errors.New("jobsys: job arguments must be plain data")

	// ErrQueueFull is returned by Queue.Push when the deque is at capacity,
	// and by Schedule when the OverflowReject policy is in effect.
	ErrQueueFull = errors.New("jobsys: queue is full")

	// ErrNoQueueForThread is returned when scheduling from a goroutine that
	// is neither the goroutine that constructed the System, nor one of its
	// workers. It indicates a programming error.
	ErrNoQueueForThread = errors.New("jobsys: no queue registered for the calling goroutine")

	// ErrSystemClosed is returned when scheduling on, or closing, a System
	// that has been closed.
	ErrSystemClosed = errors.New("jobsys: system has been closed")

	// ErrNilFunc is returned when scheduling a nil entry point.
	ErrNilFunc = errors.New("jobsys: nil job func")

	// ErrParentFinished is returned when scheduling a child under a parent
	// that has already finished.
	ErrParentFinished = errors.New("jobsys: parent job has already finished")

	// ErrArenaBusy is returned by ResetArena if any job allocated from the
	// arena is still unfinished.
	ErrArenaBusy = errors.New("jobsys: arena has unfinished jobs")

	// ErrArenaExhausted is returned when every arena slot is held by an
	// unfinished job, and no progress can be made to free one.
	ErrArenaExhausted = errors.New("jobsys: arena exhausted")

	// ErrInvalidThreadCount is returned by New for a negative thread count.
	ErrInvalidThreadCount = errors.New("jobsys: invalid thread count")

	// ErrInvalidCapacity is returned for a queue or arena capacity that is
	// not a positive power of 2.
	ErrInvalidCapacity = errors.New("jobsys: capacity must be a positive power of 2")
)
