// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package jobsys

import (
	"runtime"
	"sync"
)

// worker is the body of every worker goroutine other than worker 0.
//
// Startup: lock the OS thread, optionally pin it, build and publish the
// queue, then wait for every other worker before running anything. The
// queue is built on the worker goroutine, as it is registered under that
// goroutine's id.
func (x *System) worker(index int, ready *sync.WaitGroup, start <-chan struct{}, errp *error) {
	defer x.wg.Done()

	runtime.LockOSThread()

	logger := workerLogger(x.logger, index)

	cpu := -1
	if x.opts.affinity {
		var err error
		if cpu, err = pinThread(index); err != nil {
			logger.Err().Err(err).Log(`failed to pin worker thread`)
		}
	}
	if cpu < 0 {
		// a pinned thread is left locked, so it is discarded on exit
		defer runtime.UnlockOSThread()
	}

	q, err := newQueue(x, index, goroutineID(), x.opts.queueCapacity, x.opts.arenaCapacity)
	if err != nil {
		*errp = err
		ready.Done()
		return
	}
	x.queues[index] = q
	ready.Done()

	<-start
	if !x.state.isRunning() {
		return
	}

	logger.Debug().Int("cpu", cpu).Log(`worker started`)
	defer func() { logger.Debug().Log(`worker stopped`) }()

	x.run(q)
}

// run is the worker loop. The job in flight always completes, and the loop
// exits once the System is no longer running.
func (x *System) run(q *Queue) {
	b := newIdleBackoff(x.opts.idle)
	for x.state.isRunning() {
		if job := q.GetJob(); job != nil {
			x.execute(q, job)
			b.reset()
			continue
		}
		b.wait()
	}
}
