// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package jobsys

import (
	"math/rand/v2"
	"sync/atomic"
)

type (
	// Queue is the per-worker work-stealing deque, together with the arena
	// that owns storage for every job scheduled by that worker.
	//
	// Each Queue has exactly one owner goroutine, which is the only caller
	// allowed to use Allocate, Push, Pop, GetJob, or ResetArena. Any
	// goroutine may call Steal. Ownership is not checked at runtime.
	Queue struct { // betteralign:ignore
		deque
		arena   *arena
		system  *System
		rng     *rand.Rand
		index   int
		owner   uint64
		stats   queueStats
		latency *latencyRecorder
	}

	// queueStats are only written by the owner of the queue, and read by
	// System.Stats. Steals are charged to the thief.
	queueStats struct {
		scheduled   atomic.Uint64
		executed    atomic.Uint64
		stolen      atomic.Uint64
		stealMisses atomic.Uint64
		overflowed  atomic.Uint64
	}
)

func newQueue(system *System, index int, owner uint64, capacity, arenaCapacity int) (*Queue, error) {
	a, err := newArena(arenaCapacity)
	if err != nil {
		return nil, err
	}
	q := &Queue{
		arena:  a,
		system: system,
		rng:    rand.New(rand.NewPCG(owner, uint64(index))),
		index:  index,
		owner:  owner,
	}
	if err := q.deque.init(capacity); err != nil {
		return nil, err
	}
	if system != nil && system.metrics {
		q.latency = newLatencyRecorder()
	}
	return q, nil
}

// Allocate returns a free job slot from the queue's arena, or nil if every
// slot holds an unfinished job. Owner-only.
//
// Slots are recycled in ring order. A slot is never handed out while the
// job occupying it is unfinished.
func (x *Queue) Allocate() *Job {
	return x.arena.allocate()
}

// Push publishes the job at the owner end of the queue, returning
// ErrQueueFull if the queue is at capacity. Owner-only.
func (x *Queue) Push(job *Job) error {
	if !x.deque.push(job) {
		return ErrQueueFull
	}
	return nil
}

// Pop removes the most recently pushed job, returning nil if there is none.
// Owner-only.
func (x *Queue) Pop() *Job {
	return x.deque.pop()
}

// Steal removes the oldest job, returning nil if the queue is empty, or if
// another goroutine won the race for it. Safe to call from any goroutine.
func (x *Queue) Steal() *Job {
	return x.deque.steal()
}

// GetJob pops from the queue, or on a miss, attempts to steal one job from a
// uniformly random other queue of the same System. Owner-only.
func (x *Queue) GetJob() *Job {
	if job := x.Pop(); job != nil {
		return job
	}
	if x.system == nil {
		return nil
	}
	victim := x.system.victim(x.rng, x.index)
	if victim == nil {
		return nil
	}
	job := victim.Steal()
	if job != nil {
		x.stats.stolen.Add(1)
	} else {
		x.stats.stealMisses.Add(1)
	}
	return job
}

// ResetArena rewinds the arena to its first slot, e.g. once per frame,
// after every job scheduled by the owner has been waited on. It returns
// ErrArenaBusy if any job allocated from this queue is unfinished.
// Owner-only.
func (x *Queue) ResetArena() error {
	return x.arena.reset()
}

// Len returns the approximate number of jobs in the queue.
func (x *Queue) Len() int {
	return x.deque.len()
}

// Cap returns the capacity of the queue.
func (x *Queue) Cap() int {
	return len(x.deque.buffer)
}

// Index returns the worker index of the queue, 0 being the goroutine that
// constructed the System.
func (x *Queue) Index() int {
	return x.index
}
