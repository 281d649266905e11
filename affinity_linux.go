// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package jobsys

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// pinThread restricts the calling OS thread to one of the CPUs available to
// the process, selected round-robin by index. The caller must have locked
// its goroutine to the thread.
func pinThread(index int) (int, error) {
	var available unix.CPUSet
	if err := unix.SchedGetaffinity(0, &available); err != nil {
		return -1, fmt.Errorf("jobsys: sched_getaffinity: %w", err)
	}
	count := available.Count()
	if count == 0 {
		return -1, fmt.Errorf("jobsys: no cpus available")
	}
	target := index % count
	for cpu := 0; cpu < len(available)*int(unsafe.Sizeof(available[0]))*8; cpu++ {
		if !available.IsSet(cpu) {
			continue
		}
		if target != 0 {
			target--
			continue
		}
		var set unix.CPUSet
		set.Set(cpu)
		// pid 0 is the calling thread
		if err := unix.SchedSetaffinity(0, &set); err != nil {
			return -1, fmt.Errorf("jobsys: sched_setaffinity cpu %d: %w", cpu, err)
		}
		return cpu, nil
	}
	return -1, fmt.Errorf("jobsys: cpu for worker %d not found", index)
}
