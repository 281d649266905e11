// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package jobsys

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"unsafe"
)

const (
	// ArgsCapacity is the number of bytes available for the inline arguments
	// of a Job, see ScheduleWith.
	ArgsCapacity = sizeOfJob - sizeOfJobHeader

	// argsWords is ArgsCapacity in 8-byte words, which also gives the
	// buffer 8-byte alignment.
	argsWords = ArgsCapacity / 8
)

type (
	// Job is a schedulable unit of work, with inline arguments and a
	// completion counter. Jobs live in the arena of the Queue that allocated
	// them, and are recycled once finished.
	//
	// A *Job stays valid while it is unfinished. Once finished, the slot may
	// be reused by a later job scheduled on the same goroutine, so callers
	// should not retain finished jobs across further scheduling, beyond
	// checking IsFinished.
	Job struct {
		// entry is the type-erased entry point, see invoke
		entry func(job *Job)
		// fn is the user callable, either a func(*Job) or a Func[T]
		fn any
		// parent is a weak reference, it is never owned
		parent *Job
		// pending counts self plus unfinished children
		pending atomic.Int32
		state   atomic.Uint32
		args    [argsWords]uint64
	}

	// Func is the entry point of a job with inline arguments of type T, see
	// ScheduleWith. The args pointer refers to the job's own storage, and
	// must not be retained after the call returns.
	Func[T any] func(job *Job, args *T)

	// JobState models the lifecycle of a Job.
	JobState uint32
)

const (
	// JobFree indicates a slot that has never been allocated.
	JobFree JobState = iota
	// JobScheduled indicates a job that has been allocated, and may have
	// been published to a queue, but has not started.
	JobScheduled
	// JobRunning indicates a job whose entry point has been invoked, and
	// which is not yet finished (its own body, or its children, remain).
	JobRunning
	// JobFinished indicates the job and all of its children have completed.
	JobFinished
)

// String returns a human-readable representation of the state.
func (s JobState) String() string {
	switch s {
	case JobFree:
		return "Free"
	case JobScheduled:
		return "Scheduled"
	case JobRunning:
		return "Running"
	case JobFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// Run invokes the job's entry point, then calls Finish. A job may only be
// run once, and attempting to run it again will panic.
//
// Panics raised by the entry point are not recovered.
func (x *Job) Run() {
	if !x.state.CompareAndSwap(uint32(JobScheduled), uint32(JobRunning)) {
		panic(`jobsys: job run more than once`)
	}
	x.entry(x)
	x.Finish()
}

// Finish decrements the pending counter, and if it reaches zero, finishes
// the parent (transitively). It is called by Run, and must be called once
// to close a group, see System.Group. Calling it any other way breaks the
// job's accounting.
func (x *Job) Finish() {
	for job := x; job != nil; {
		// read before the decrement: the slot may be recycled once it hits zero
		parent := job.parent
		switch n := job.pending.Add(-1); {
		case n > 0:
			return
		case n < 0:
			panic(`jobsys: job finished more than once`)
		}
		job = parent
	}
}

// IsFinished returns true if the job, and all of its children, have
// completed. A nil job is considered finished.
func (x *Job) IsFinished() bool {
	return x == nil || x.pending.Load() == 0
}

// State returns the current state of the job.
func (x *Job) State() JobState {
	if x == nil {
		return JobFree
	}
	state := JobState(x.state.Load())
	if state != JobFree && x.pending.Load() == 0 {
		return JobFinished
	}
	return state
}

// Parent returns the parent given when the job was scheduled, if any.
func (x *Job) Parent() *Job {
	if x == nil {
		return nil
	}
	return x.parent
}

// init prepares a freshly allocated slot, and must happen before the job is
// published to any queue.
func (x *Job) init(entry func(job *Job), fn any, parent *Job) {
	x.entry = entry
	x.fn = fn
	x.parent = parent
	x.pending.Store(1)
	x.state.Store(uint32(JobScheduled))
}

// release returns a slot that was allocated but never published.
func (x *Job) release() {
	x.entry = nil
	x.fn = nil
	x.parent = nil
	x.state.Store(uint32(JobFree))
	x.pending.Store(0)
}

// acquireParent accounts for a new child of parent, before it is published.
// It refuses parents that have already finished.
func acquireParent(parent *Job) error {
	if parent == nil {
		return nil
	}
	for {
		n := parent.pending.Load()
		if n <= 0 {
			return ErrParentFinished
		}
		if parent.pending.CompareAndSwap(n, n+1) {
			return nil
		}
	}
}

func invokeFunc(job *Job) {
	job.fn.(func(job *Job))(job)
}

func invokeArgs[T any](job *Job) {
	job.fn.(Func[T])(job, jobArgs[T](job))
}

func jobArgs[T any](job *Job) *T {
	return (*T)(unsafe.Pointer(&job.args))
}

// argsChecks caches the result of validateArgs, per reflect.Type.
var argsChecks sync.Map

// validateArgs checks that T fits inline, and contains no pointers.
func validateArgs[T any]() error {
	typ := reflect.TypeFor[T]()
	if v, ok := argsChecks.Load(typ); ok {
		err, _ := v.(error)
		return err
	}
	var err error
	switch {
	case typ.Size() > ArgsCapacity:
		err = fmt.Errorf("%w: %s is %d bytes (capacity %d)", ErrCapacityExceeded, typ, typ.Size(), ArgsCapacity)
	case typ.Align() > 8:
		err = fmt.Errorf("%w: %s requires %d byte alignment", ErrCapacityExceeded, typ, typ.Align())
	case !isPlain(typ):
		err = fmt.Errorf("%w: %s", ErrArgsNotPlain, typ)
	}
	argsChecks.Store(typ, err)
	return err
}

// isPlain reports whether values of typ contain no pointers.
func isPlain(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return typ.Len() == 0 || isPlain(typ.Elem())
	case reflect.Struct:
		for i := 0; i < typ.NumField(); i++ {
			if !isPlain(typ.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
