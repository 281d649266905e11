// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package jobsys

// These constants are verified via unit tests.
const (
	// sizeOfCacheLine is the size of a CPU cache line.
	// 64 bytes is standard for x86-64.
	// 128 bytes is standard for Apple Silicon (M1/M2/M3) and other ARM64.
	// We use 128 to satisfy the largest common alignment requirement.
	sizeOfCacheLine = 128

	// sizeOfAtomicInt64 is the size of an atomic.Int64 variable.
	sizeOfAtomicInt64 = 8

	// sizeOfJobHeader is the size of every Job field except the inline
	// argument buffer: entry (8) + fn (16) + parent (8) + pending (4) +
	// state (4).
	sizeOfJobHeader = 40

	// sizeOfJob is the size of a Job, one cache line.
	sizeOfJob = sizeOfCacheLine
)
