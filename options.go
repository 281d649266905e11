// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package jobsys

import (
	"fmt"
	"time"

	"github.com/joeycumines/logiface"
)

const (
	// DefaultQueueCapacity is the default capacity of each worker's deque.
	DefaultQueueCapacity = 4096

	// DefaultArenaCapacity is the default number of job slots in each
	// worker's arena. It exceeds the queue capacity, as jobs remain live
	// after leaving the queue, while running or waiting on children.
	DefaultArenaCapacity = 8192

	defaultIdleSpins    = 64
	defaultIdleMinSleep = 10 * time.Microsecond
	defaultIdleMaxSleep = time.Millisecond
)

// OverflowPolicy controls what Schedule does when the calling goroutine's
// queue is full.
type OverflowPolicy int

const (
	// OverflowInline runs the job on the calling goroutine, before Schedule
	// returns. This is the default.
	OverflowInline OverflowPolicy = iota
	// OverflowReject fails Schedule with ErrQueueFull, leaving the caller to
	// apply backpressure.
	OverflowReject
)

// String returns the name of the policy, as accepted by UnmarshalText.
func (p OverflowPolicy) String() string {
	switch p {
	case OverflowInline:
		return "inline"
	case OverflowReject:
		return "reject"
	default:
		return fmt.Sprintf("OverflowPolicy(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p OverflowPolicy) MarshalText() ([]byte, error) {
	switch p {
	case OverflowInline, OverflowReject:
		return []byte(p.String()), nil
	default:
		return nil, fmt.Errorf("jobsys: invalid overflow policy: %d", int(p))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *OverflowPolicy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "inline":
		*p = OverflowInline
	case "reject":
		*p = OverflowReject
	default:
		return fmt.Errorf("jobsys: invalid overflow policy: %q", text)
	}
	return nil
}

// systemOptions holds configuration options for System creation.
type systemOptions struct {
	logger        *logiface.Logger[logiface.Event]
	warningRates  map[time.Duration]int
	queueCapacity int
	arenaCapacity int
	overflow      OverflowPolicy
	idle          backoffConfig
	metrics       bool
	affinity      bool
}

// --- System Options ---

// Option configures a System instance.
type Option interface {
	applySystem(*systemOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applySystemFunc func(*systemOptions) error
}

func (o *optionImpl) applySystem(opts *systemOptions) error {
	return o.applySystemFunc(opts)
}

// WithQueueCapacity sets the capacity of each worker's deque, which must be
// a power of 2. Defaults to DefaultQueueCapacity.
func WithQueueCapacity(capacity int) Option {
	return &optionImpl{func(opts *systemOptions) error {
		if !isPowerOfTwo(capacity) {
			return fmt.Errorf("%w: queue capacity %d", ErrInvalidCapacity, capacity)
		}
		opts.queueCapacity = capacity
		return nil
	}}
}

// WithArenaCapacity sets the number of job slots in each worker's arena,
// which must be a power of 2. Defaults to DefaultArenaCapacity.
func WithArenaCapacity(capacity int) Option {
	return &optionImpl{func(opts *systemOptions) error {
		if !isPowerOfTwo(capacity) {
			return fmt.Errorf("%w: arena capacity %d", ErrInvalidCapacity, capacity)
		}
		opts.arenaCapacity = capacity
		return nil
	}}
}

// WithOverflowPolicy sets the behavior of Schedule when the calling
// goroutine's queue is full. Defaults to OverflowInline.
func WithOverflowPolicy(policy OverflowPolicy) Option {
	return &optionImpl{func(opts *systemOptions) error {
		if _, err := policy.MarshalText(); err != nil {
			return err
		}
		opts.overflow = policy
		return nil
	}}
}

// WithLogger sets the structured logger. A nil logger (the default)
// disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *systemOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithMetrics enables job latency tracking, exposed via System.Stats.
// Counters are always maintained. Latency tracking adds two clock reads and
// an uncontended lock per job.
func WithMetrics(enabled bool) Option {
	return &optionImpl{func(opts *systemOptions) error {
		opts.metrics = enabled
		return nil
	}}
}

// WithCPUAffinity pins each worker's OS thread to a single CPU, chosen
// round-robin from the CPUs available to the process. Only supported on
// Linux, it is ignored elsewhere. Failure to pin is logged, not fatal.
func WithCPUAffinity(enabled bool) Option {
	return &optionImpl{func(opts *systemOptions) error {
		opts.affinity = enabled
		return nil
	}}
}

// WithIdleBackoff configures how idle workers back off: spins calls to
// runtime.Gosched, followed by sleeps doubling from minSleep to maxSleep.
// Wait uses the same spins, but never sleeps longer than minSleep.
func WithIdleBackoff(spins int, minSleep, maxSleep time.Duration) Option {
	return &optionImpl{func(opts *systemOptions) error {
		if spins < 0 || minSleep <= 0 || maxSleep < minSleep {
			return fmt.Errorf("jobsys: invalid idle backoff: spins=%d minSleep=%s maxSleep=%s", spins, minSleep, maxSleep)
		}
		opts.idle = backoffConfig{spins: spins, minSleep: minSleep, maxSleep: maxSleep}
		return nil
	}}
}

// WithWarningRates sets the rate limits applied to warnings (e.g. queue
// overflow), per kind of warning and worker. See catrate.NewLimiter for the
// format. A nil map disables rate limiting.
func WithWarningRates(rates map[time.Duration]int) Option {
	return &optionImpl{func(opts *systemOptions) error {
		opts.warningRates = rates
		return nil
	}}
}

// resolveSystemOptions applies Option instances to systemOptions.
func resolveSystemOptions(opts []Option) (*systemOptions, error) {
	cfg := &systemOptions{
		queueCapacity: DefaultQueueCapacity,
		arenaCapacity: DefaultArenaCapacity,
		overflow:      OverflowInline,
		idle: backoffConfig{
			spins:    defaultIdleSpins,
			minSleep: defaultIdleMinSleep,
			maxSleep: defaultIdleMaxSleep,
		},
		warningRates: map[time.Duration]int{
			time.Second: 1,
			time.Minute: 10,
		},
	}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.applySystem(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
