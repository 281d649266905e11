// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package jobsys

import (
	"fmt"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

type (
	warningKind int

	// warningCategory is the catrate category, warnings are limited per
	// kind and queue
	warningCategory struct {
		kind  warningKind
		queue int
	}
)

const (
	warnOverflow warningKind = iota
	warnArenaPressure
)

func (k warningKind) String() string {
	switch k {
	case warnOverflow:
		return "overflow"
	case warnArenaPressure:
		return "arena_pressure"
	default:
		return fmt.Sprintf("warningKind(%d)", int(k))
	}
}

// newWarningLimiter returns nil (unlimited) for empty rates.
func newWarningLimiter(rates map[time.Duration]int) (limiter *catrate.Limiter, err error) {
	if len(rates) == 0 {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			limiter = nil
			err = fmt.Errorf("jobsys: invalid warning rates: %v", r)
		}
	}()
	return catrate.NewLimiter(rates), nil
}

// warning returns a builder for a rate-limited warning, or nil if the
// category is currently limited. Builders are nil-safe.
func (x *System) warning(kind warningKind, queue int) *logiface.Builder[logiface.Event] {
	b := x.logger.Warning()
	if !b.Enabled() {
		return nil
	}
	if _, ok := x.warnings.Allow(warningCategory{kind: kind, queue: queue}); !ok {
		b.Release()
		return nil
	}
	return b.Str("kind", kind.String()).Int("queue", queue)
}

// workerLogger returns the logger for the given worker, or nil.
func workerLogger(logger *logiface.Logger[logiface.Event], index int) *logiface.Logger[logiface.Event] {
	return logger.Clone().Int("worker", index).Logger()
}
