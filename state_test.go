// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package jobsys

import (
	"sync"
	"testing"
)

func TestSystemState_String(t *testing.T) {
	for _, tc := range [...]struct {
		State SystemState
		Want  string
	}{
		{StateAwake, "Awake"},
		{StateRunning, "Running"},
		{StateTerminating, "Terminating"},
		{StateTerminated, "Terminated"},
		{SystemState(99), "Unknown"},
	} {
		if got := tc.State.String(); got != tc.Want {
			t.Errorf("%d: got %q, want %q", tc.State, got, tc.Want)
		}
	}
}

func TestFastState_transitions(t *testing.T) {
	var s fastState
	if s.load() != StateAwake {
		t.Fatal(s.load())
	}
	if s.isRunning() {
		t.Fatal(`expected not running`)
	}
	s.store(StateRunning)
	if !s.isRunning() {
		t.Fatal(`expected running`)
	}
	if s.tryTransition(StateAwake, StateTerminating) {
		t.Fatal(`transition from wrong state succeeded`)
	}
	if !s.tryTransition(StateRunning, StateTerminating) {
		t.Fatal(`transition failed`)
	}
	if s.load() != StateTerminating {
		t.Fatal(s.load())
	}
}

func TestFastState_tryTransition_singleWinner(t *testing.T) {
	var s fastState
	s.store(StateRunning)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.tryTransition(StateRunning, StateTerminating) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("wins = %d", wins)
	}
}
