// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package jobsys implements a work-stealing job scheduler, for short-lived
// jobs submitted in bulk, e.g. per-frame entity updates, terrain generation,
// or parallel loops.
//
// # Architecture
//
// A [System] owns a fixed set of workers. Each worker has a [Queue], which
// pairs a lock-free Chase-Lev deque with an arena of [Job] slots. Workers pop
// from the owner end of their own deque, and steal from the other end of a
// randomly chosen peer's deque when their own is empty.
//
// Jobs are allocated from the scheduling goroutine's arena, and never from
// the heap. A Job is exactly one cache line, including up to [ArgsCapacity]
// bytes of inline arguments, see [ScheduleWith].
//
// # Joins
//
// Every job counts itself plus its unfinished children. A child is
// accounted for on its parent before it is published, and a job finishes
// once its own entry point and every child have completed. [System.Wait]
// runs other jobs until the awaited job has finished, rather than blocking,
// so nested waits cannot deadlock.
//
// To attach children from outside any job, use [System.Group], which holds
// itself open until [Job.Finish] is called. A job scheduled with an empty
// body may be run and finished by a worker before its children are
// attached.
//
// # Thread Safety
//
//   - [System.Schedule] and [ScheduleWith] must be called from a registered
//     goroutine, i.e. the goroutine that called [New], or from within a job.
//     Other goroutines receive [ErrNoQueueForThread].
//   - [System.Wait] may be called from any goroutine. Unregistered
//     goroutines only steal.
//   - [Queue.Steal] is safe from any goroutine. Every other Queue method is
//     owner-only.
//   - Worker goroutines (other than worker 0) are locked to their own OS
//     threads, and may optionally be pinned to CPUs, see [WithCPUAffinity].
//
// # Usage
//
//	sys, err := jobsys.New(0, jobsys.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sys.Close()
//
//	root, err := sys.Schedule(func(job *jobsys.Job) {
//	    for i := range 4 {
//	        _, _ = jobsys.ScheduleWith(sys, update, chunk{Index: i}, job)
//	    }
//	}, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sys.Wait(root)
//
// See also [ParallelFor] and [ParallelForRange].
package jobsys
