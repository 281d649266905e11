// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package jobsys

import (
	"sync/atomic"
)

// dequePadSize is the padding required after each index, so that head and
// tail start on separate cache lines.
const dequePadSize = sizeOfCacheLine - sizeOfAtomicInt64

// deque is a bounded, lock-free, work-stealing deque of Job pointers
// (Chase-Lev, without growth).
//
// Concurrency Model: single owner, many thieves.
//   - push, pop: ONLY the owner goroutine (LIFO end, tail)
//   - steal: any goroutine (FIFO end, head)
//
// Memory Ordering & Correctness:
// All Go atomics are sequentially consistent, which provides the store-load
// fence the algorithm requires between publishing the decremented tail in
// pop and re-reading head. Slots are atomic so a thief's speculative read
// (discarded if its CAS fails) does not race with the owner overwriting a
// recycled slot.
//
// Algorithm:
//   - push: Write Slot -> Store tail+1 (Release)
//   - pop:  Store tail-1 -> Load head; empty: restore tail; one left: CAS head
//   - steal: Load head -> Load tail -> Read Slot -> CAS head (no retry)
type deque struct { // betteralign:ignore
	_      [sizeOfCacheLine]byte // Cache line padding
	head   atomic.Int64          // Steal index
	_      [dequePadSize]byte    // Pad to cache line
	tail   atomic.Int64          // Owner index
	_      [dequePadSize]byte    // Pad to cache line
	buffer []atomic.Pointer[Job]
	mask   int64
}

func (x *deque) init(capacity int) error {
	if !isPowerOfTwo(capacity) {
		return ErrInvalidCapacity
	}
	x.buffer = make([]atomic.Pointer[Job], capacity)
	x.mask = int64(capacity) - 1
	return nil
}

// push appends the job at the tail, returning false if the deque is full.
func (x *deque) push(job *Job) bool {
	tail := x.tail.Load()
	// a stale head only makes us conservative
	if tail-x.head.Load() >= int64(len(x.buffer)) {
		return false
	}
	x.buffer[tail&x.mask].Store(job)
	x.tail.Store(tail + 1)
	return true
}

// pop removes the most recently pushed job, or returns nil.
func (x *deque) pop() *Job {
	tail := x.tail.Load() - 1
	x.tail.Store(tail)
	head := x.head.Load()

	if head > tail {
		// already empty, undo the decrement
		x.tail.Store(head)
		return nil
	}

	job := x.buffer[tail&x.mask].Load()
	if head != tail {
		// more than one element, thieves cannot reach this slot
		return job
	}

	// last element, race any thieves for it
	if !x.head.CompareAndSwap(head, head+1) {
		job = nil
	}
	x.tail.Store(head + 1)
	return job
}

// steal removes the oldest job, or returns nil if the deque is empty or the
// race for the job was lost. It never retries.
func (x *deque) steal() *Job {
	head := x.head.Load()
	tail := x.tail.Load()
	if head >= tail {
		return nil
	}
	job := x.buffer[head&x.mask].Load()
	if !x.head.CompareAndSwap(head, head+1) {
		return nil
	}
	return job
}

// len is approximate under concurrent modification.
func (x *deque) len() int {
	if n := x.tail.Load() - x.head.Load(); n > 0 {
		return int(n)
	}
	return 0
}
