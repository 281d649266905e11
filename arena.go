// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package jobsys

import (
	"sync/atomic"
)

// arena is a bump allocator over a fixed ring of Job slots, owned by exactly
// one Queue (and therefore one goroutine).
//
// Reuse rule: a slot is only handed out if the job previously occupying it
// has finished. The cursor wraps around, skipping live slots, so a long-lived
// parent never has its storage overwritten by a later allocation.
//
// Thread Safety: allocate and reset are owner-only. Slots are read by other
// goroutines, but only after a hand-off through the deque.
type arena struct {
	slots []Job
	// next is the bump cursor, masked to index slots
	next uint64
	mask uint64
	// skips counts live slots passed over by allocate, read via stats
	skips atomic.Uint64
}

func newArena(capacity int) (*arena, error) {
	if !isPowerOfTwo(capacity) {
		return nil, ErrInvalidCapacity
	}
	return &arena{
		slots: make([]Job, capacity),
		mask:  uint64(capacity) - 1,
	}, nil
}

// allocate returns the next free slot, or nil if every slot holds an
// unfinished job.
func (x *arena) allocate() *Job {
	for range x.slots {
		job := &x.slots[x.next&x.mask]
		x.next++
		if job.pending.Load() == 0 {
			return job
		}
		x.skips.Add(1)
	}
	return nil
}

// reset rewinds the cursor to the first slot, e.g. at a frame boundary, so
// that the next batch of jobs is laid out contiguously. It fails if any slot
// is still live.
func (x *arena) reset() error {
	if x.live() != 0 {
		return ErrArenaBusy
	}
	x.next = 0
	return nil
}

// live counts the slots that hold unfinished jobs.
func (x *arena) live() (n int) {
	for i := range x.slots {
		if x.slots[i].pending.Load() != 0 {
			n++
		}
	}
	return n
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
