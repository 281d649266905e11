// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package jobsys

import (
	"testing"
	"unsafe"
)

func TestSizeOf_job(t *testing.T) {
	if unsafe.Sizeof(uintptr(0)) != 8 {
		t.Skip(`layout constants assume 64-bit pointers`)
	}
	var job Job
	if v := unsafe.Sizeof(job); v != sizeOfJob {
		t.Fatalf("sizeof(Job) = %d, want %d", v, sizeOfJob)
	}
	if v := unsafe.Offsetof(job.args); v != sizeOfJobHeader {
		t.Fatalf("offsetof(Job.args) = %d, want %d", v, sizeOfJobHeader)
	}
	if v := unsafe.Alignof(job.args); v != 8 {
		t.Fatalf("alignof(Job.args) = %d, want 8", v)
	}
	if ArgsCapacity != 88 {
		t.Fatalf("ArgsCapacity = %d", ArgsCapacity)
	}
}

func TestSizeOf_atomicInt64(t *testing.T) {
	var d deque
	if v := unsafe.Sizeof(d.head); v != sizeOfAtomicInt64 {
		t.Fatalf("sizeof(atomic.Int64) = %d", v)
	}
}

func TestSizeOf_dequePadding(t *testing.T) {
	var d deque
	head, tail := unsafe.Offsetof(d.head), unsafe.Offsetof(d.tail)
	if tail-head < sizeOfCacheLine {
		t.Fatalf("head and tail share a cache line: %d, %d", head, tail)
	}
	if unsafe.Offsetof(d.buffer)-tail < sizeOfCacheLine {
		t.Fatalf("tail shares a cache line with buffer")
	}
}

func TestSizeOf_fastState(t *testing.T) {
	var s fastState
	if v := unsafe.Sizeof(s); v != 2*sizeOfCacheLine {
		t.Fatalf("sizeof(fastState) = %d", v)
	}
}
