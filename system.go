// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package jobsys

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// System is a fixed pool of workers, each with its own Queue, which
// cooperatively run jobs, balancing load by work stealing.
//
// The goroutine that calls New is registered as worker 0. It is not locked
// to its OS thread, and only runs jobs while it is inside Schedule (on
// overflow or arena exhaustion) or Wait. Every other worker is a goroutine
// locked to its own OS thread.
//
// Jobs may only be scheduled from registered goroutines, i.e. the
// constructing goroutine, or from within a job. Any goroutine may Wait.
//
// Thread Safety: all methods are safe to call from multiple goroutines.
type System struct { // betteralign:ignore
	state fastState

	logger   *logiface.Logger[logiface.Event]
	warnings *catrate.Limiter
	opts     *systemOptions

	// queues is index-aligned with workers, and immutable after New
	queues []*Queue
	// owners maps goroutine id to queue, and is immutable after New
	owners map[uint64]*Queue

	// external counts work done by unregistered goroutines, inside Wait
	external queueStats

	done    chan struct{}
	wg      sync.WaitGroup
	metrics bool
}

// New creates a System with threadCount workers, including the calling
// goroutine, which becomes worker 0. A threadCount of 0 uses
// runtime.GOMAXPROCS(0).
//
// New returns once every worker has published its queue, with the System in
// the StateRunning state.
func New(threadCount int, opts ...Option) (*System, error) {
	if threadCount < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidThreadCount, threadCount)
	}
	if threadCount == 0 {
		threadCount = runtime.GOMAXPROCS(0)
	}

	cfg, err := resolveSystemOptions(opts)
	if err != nil {
		return nil, err
	}

	warnings, err := newWarningLimiter(cfg.warningRates)
	if err != nil {
		return nil, err
	}

	x := &System{
		logger:   cfg.logger,
		warnings: warnings,
		opts:     cfg,
		queues:   make([]*Queue, threadCount),
		done:     make(chan struct{}),
		metrics:  cfg.metrics,
	}

	if x.queues[0], err = newQueue(x, 0, goroutineID(), cfg.queueCapacity, cfg.arenaCapacity); err != nil {
		return nil, err
	}

	var (
		ready sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, threadCount)
	)
	for i := 1; i < threadCount; i++ {
		ready.Add(1)
		x.wg.Add(1)
		go x.worker(i, &ready, start, &errs[i])
	}
	ready.Wait()

	if err := errors.Join(errs...); err != nil {
		// workers observe the state after start, and exit
		x.state.store(StateTerminated)
		close(start)
		x.wg.Wait()
		close(x.done)
		return nil, err
	}

	owners := make(map[uint64]*Queue, threadCount)
	for _, q := range x.queues {
		owners[q.owner] = q
	}
	x.owners = owners

	x.state.store(StateRunning)
	close(start)

	x.logger.Info().
		Int("workers", threadCount).
		Int("queue_capacity", cfg.queueCapacity).
		Int("arena_capacity", cfg.arenaCapacity).
		Str("overflow", cfg.overflow.String()).
		Log(`job system started`)

	return x, nil
}

// Schedule allocates a job from the calling goroutine's arena, and pushes it
// onto the calling goroutine's queue. If parent is non-nil, it will not
// finish until the new job has finished.
//
// The returned job remains valid until it has finished, see Job.
func (x *System) Schedule(fn func(job *Job), parent *Job) (*Job, error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	q, job, err := x.allocate(invokeFunc, fn, parent)
	if err != nil {
		return nil, err
	}
	return x.submit(q, job)
}

// ScheduleWith is Schedule, for an entry point with inline arguments. The
// args are copied into the job, and must be plain data (no pointers, see
// ErrArgsNotPlain) no larger than ArgsCapacity.
//
// Passing a non-capturing func (e.g. a top-level function) for fn avoids
// any allocation.
func ScheduleWith[T any](s *System, fn Func[T], args T, parent *Job) (*Job, error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	if err := validateArgs[T](); err != nil {
		return nil, err
	}
	q, job, err := s.allocate(invokeArgs[T], fn, parent)
	if err != nil {
		return nil, err
	}
	*jobArgs[T](job) = args
	return s.submit(q, job)
}

// Group allocates a job with no entry point, which is never published to a
// queue. It starts as JobRunning, holding itself open, so children may be
// scheduled under it from the calling goroutine while workers run them.
// Call Finish on the group exactly once, after the last child has been
// scheduled, then Wait on it.
func (x *System) Group(parent *Job) (*Job, error) {
	_, job, err := x.allocate(nil, nil, parent)
	if err != nil {
		return nil, err
	}
	job.state.Store(uint32(JobRunning))
	return job, nil
}

// Wait runs jobs until job has finished. A nil job returns immediately.
//
// Registered goroutines run jobs from their own queue, then steal. Other
// goroutines only steal, and jobs they run cannot schedule (ParallelFor
// falls back to running inline). Wait never blocks on the job itself, so
// waiting on a parent from within a job (or on a single worker System)
// cannot deadlock.
func (x *System) Wait(job *Job) {
	if job.IsFinished() {
		return
	}
	q := x.Queue()
	b := newWaitBackoff(x.opts.idle)
	for !job.IsFinished() {
		var next *Job
		if q != nil {
			next = q.GetJob()
		} else {
			next = x.stealExternal()
		}
		if next == nil {
			b.wait()
			continue
		}
		x.execute(q, next)
		b.reset()
	}
}

// Close stops the workers, see Shutdown.
func (x *System) Close() error {
	return x.Shutdown(context.Background())
}

// Shutdown transitions the System to StateTerminating, and waits for every
// worker to finish its current job and exit. Jobs still queued are not run
// by the workers, though they may still be run by Wait.
//
// If ctx is done before the workers have exited, Shutdown returns ctx.Err(),
// and the workers continue to stop in the background. Calling Shutdown (or
// Close) more than once returns ErrSystemClosed.
//
// When called from within a job, on a worker, Shutdown does not wait for the
// workers, as that would include itself.
func (x *System) Shutdown(ctx context.Context) error {
	if !x.state.tryTransition(StateRunning, StateTerminating) {
		return ErrSystemClosed
	}

	x.logger.Info().Log(`job system stopping`)

	go func() {
		x.wg.Wait()
		x.state.store(StateTerminated)
		close(x.done)
		x.logger.Info().Log(`job system stopped`)
	}()

	if q := x.Queue(); q != nil && q.index != 0 {
		return nil
	}

	select {
	case <-x.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel that is closed once every worker has exited.
func (x *System) Done() <-chan struct{} {
	return x.done
}

// State returns the current lifecycle state.
func (x *System) State() SystemState {
	return x.state.load()
}

// Workers returns the number of workers, including worker 0.
func (x *System) Workers() int {
	return len(x.queues)
}

// Queue returns the queue registered to the calling goroutine, or nil.
func (x *System) Queue() *Queue {
	return x.owners[goroutineID()]
}

// ResetArena calls Queue.ResetArena for the calling goroutine's queue.
func (x *System) ResetArena() error {
	q := x.Queue()
	if q == nil {
		return ErrNoQueueForThread
	}
	return q.ResetArena()
}

// Stats returns a snapshot of the System's statistics.
func (x *System) Stats() Stats {
	s := Stats{
		State:   x.state.load(),
		Workers: len(x.queues),
		Queues:  make([]QueueStats, len(x.queues)),
	}
	for i, q := range x.queues {
		qs := QueueStats{
			Index:         i,
			Queued:        q.Len(),
			QueueCounters: q.stats.counters(q.arena.skips.Load()),
		}
		if q.latency != nil {
			qs.Latency = q.latency.snapshot()
		}
		s.Queues[i] = qs
		s.Queued += qs.Queued
		s.add(qs.QueueCounters)
	}
	s.add(x.external.counters(0))
	if x.metrics {
		s.Latency = mergeLatency(s.Queues)
	}
	return s
}

// allocate returns an initialized (but unpublished) job from the calling
// goroutine's arena, having accounted for it on parent.
func (x *System) allocate(entry func(job *Job), fn any, parent *Job) (*Queue, *Job, error) {
	if !x.state.isRunning() {
		return nil, nil, ErrSystemClosed
	}
	q := x.Queue()
	if q == nil {
		return nil, nil, ErrNoQueueForThread
	}
	job, err := x.allocateFrom(q)
	if err != nil {
		return nil, nil, err
	}
	// the slot is untouched until init, so there is nothing to roll back
	if err := acquireParent(parent); err != nil {
		return nil, nil, err
	}
	job.init(entry, fn, parent)
	return q, job, nil
}

// allocateFrom helps run jobs while the arena is exhausted.
func (x *System) allocateFrom(q *Queue) (*Job, error) {
	if job := q.Allocate(); job != nil {
		return job, nil
	}
	x.warning(warnArenaPressure, q.index).
		Int("capacity", len(q.arena.slots)).
		Log(`arena exhausted, running jobs until a slot is free`)
	b := newWaitBackoff(x.opts.idle)
	for {
		if next := q.GetJob(); next != nil {
			x.execute(q, next)
			b.reset()
		} else if !x.state.isRunning() {
			return nil, ErrArenaExhausted
		} else {
			b.wait()
		}
		if job := q.Allocate(); job != nil {
			return job, nil
		}
	}
}

// submit publishes an allocated job, applying the overflow policy.
func (x *System) submit(q *Queue, job *Job) (*Job, error) {
	if q.deque.push(job) {
		q.stats.scheduled.Add(1)
		return job, nil
	}

	q.stats.overflowed.Add(1)

	if x.opts.overflow == OverflowReject {
		parent := job.parent
		job.release()
		if parent != nil {
			parent.Finish()
		}
		return nil, ErrQueueFull
	}

	q.stats.scheduled.Add(1)
	x.warning(warnOverflow, q.index).
		Int("capacity", q.Cap()).
		Log(`queue full, running job inline`)
	x.execute(q, job)
	return job, nil
}

// execute runs job, charging it to q, which is nil for unregistered
// goroutines.
func (x *System) execute(q *Queue, job *Job) {
	switch {
	case q == nil:
		job.Run()
		x.external.executed.Add(1)
	case q.latency == nil:
		job.Run()
		q.stats.executed.Add(1)
	default:
		start := time.Now()
		job.Run()
		q.latency.record(time.Since(start))
		q.stats.executed.Add(1)
	}
}

// victim picks a uniformly random queue other than self. A negative self
// selects from every queue, and a nil rng uses the global source.
func (x *System) victim(rng *rand.Rand, self int) *Queue {
	n := len(x.queues)
	if self < 0 {
		return x.queues[randIntN(rng, n)]
	}
	if n <= 1 {
		return nil
	}
	i := randIntN(rng, n-1)
	if i >= self {
		i++
	}
	return x.queues[i]
}

// stealExternal is GetJob for unregistered goroutines.
func (x *System) stealExternal() *Job {
	job := x.victim(nil, -1).Steal()
	if job != nil {
		x.external.stolen.Add(1)
	} else {
		x.external.stealMisses.Add(1)
	}
	return job
}

func randIntN(rng *rand.Rand, n int) int {
	if rng == nil {
		return rand.IntN(n)
	}
	return rng.IntN(n)
}
