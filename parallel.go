// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package jobsys

import (
	"math"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// DefaultSplitter is used by ParallelFor and ParallelForRange when no
// Splitter is given.
var DefaultSplitter Splitter = DataSizeSplitter{Size: 16 << 10}

type (
	// Splitter decides whether a span of count elements, each of elemSize
	// bytes, should be split in two, the second half becoming a child job.
	// Spans of fewer than two elements are never split.
	Splitter interface {
		Split(count int, elemSize uintptr) bool
	}

	// CountSplitter splits spans of more than Count elements.
	CountSplitter struct {
		Count int
	}

	// DataSizeSplitter splits spans of more than Size bytes, e.g. to fit
	// each leaf in the L1 cache.
	DataSizeSplitter struct {
		Size uintptr
	}

	// SplitterFunc implements Splitter.
	SplitterFunc func(count int, elemSize uintptr) bool

	// parallelFor is the context shared by every job of one call
	parallelFor struct {
		sys      *System
		splitter Splitter
		process  func(lo, hi uint64)
		// entry is the run method value, created once per call
		entry    Func[span]
		elemSize uintptr
	}

	// span is a half-open range of offsets, the inline args of each job
	span struct {
		lo uint64
		hi uint64
	}
)

// Split implements Splitter.
func (x CountSplitter) Split(count int, _ uintptr) bool {
	return count > x.Count
}

// Split implements Splitter.
func (x DataSizeSplitter) Split(count int, elemSize uintptr) bool {
	return uintptr(count)*max(elemSize, 1) > x.Size
}

// Split implements Splitter.
func (x SplitterFunc) Split(count int, elemSize uintptr) bool {
	return x(count, elemSize)
}

// ParallelFor schedules a job which calls fn over data, recursively splitting
// it into child jobs per splitter. Every call to fn receives a non-empty,
// disjoint sub-slice, and together they cover data exactly once. The
// returned job finishes once every call has returned.
//
// Children that cannot be scheduled (e.g. the job was stolen by a goroutine
// that is not a worker, or the queue rejected it) are processed inline.
func ParallelFor[E any](s *System, parent *Job, data []E, splitter Splitter, fn func(data []E)) (*Job, error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	var zero E
	return scheduleParallel(s, parent, uint64(len(data)), splitter, unsafe.Sizeof(zero), func(lo, hi uint64) {
		fn(data[lo:hi])
	})
}

// ParallelForRange is ParallelFor over the half-open integer range
// [begin, end). An empty range still schedules a job, which does nothing.
func ParallelForRange[I constraints.Integer](s *System, parent *Job, begin, end I, splitter Splitter, fn func(begin, end I)) (*Job, error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	var n uint64
	if end > begin {
		n = uint64(end - begin)
	}
	return scheduleParallel(s, parent, n, splitter, unsafe.Sizeof(begin), func(lo, hi uint64) {
		fn(begin+I(lo), begin+I(hi))
	})
}

func scheduleParallel(s *System, parent *Job, n uint64, splitter Splitter, elemSize uintptr, process func(lo, hi uint64)) (*Job, error) {
	if splitter == nil {
		splitter = DefaultSplitter
	}
	x := &parallelFor{
		sys:      s,
		splitter: splitter,
		process:  process,
		elemSize: elemSize,
	}
	x.entry = x.run
	return ScheduleWith(s, x.entry, span{hi: n}, parent)
}

func (x *parallelFor) run(job *Job, args *span) {
	lo, hi := args.lo, args.hi
	for hi-lo > 1 && x.splitter.Split(int(min(hi-lo, math.MaxInt)), x.elemSize) {
		mid := lo + (hi-lo)/2
		if _, err := ScheduleWith(x.sys, x.entry, span{lo: mid, hi: hi}, job); err != nil {
			x.run(job, &span{lo: mid, hi: hi})
		}
		hi = mid
	}
	if lo < hi {
		x.process(lo, hi)
	}
}
