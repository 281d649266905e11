// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package jobsys

import (
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSystemOptions_defaults(t *testing.T) {
	opts, err := resolveSystemOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultQueueCapacity, opts.queueCapacity)
	assert.Equal(t, DefaultArenaCapacity, opts.arenaCapacity)
	assert.Equal(t, OverflowInline, opts.overflow)
	assert.Equal(t, backoffConfig{spins: defaultIdleSpins, minSleep: defaultIdleMinSleep, maxSleep: defaultIdleMaxSleep}, opts.idle)
	assert.Nil(t, opts.logger)
	assert.False(t, opts.metrics)
	assert.False(t, opts.affinity)
	assert.NotEmpty(t, opts.warningRates)
}

func TestResolveSystemOptions_nilOption(t *testing.T) {
	opts, err := resolveSystemOptions([]Option{nil, WithMetrics(true), nil})
	require.NoError(t, err)
	assert.True(t, opts.metrics)
}

func TestResolveSystemOptions_all(t *testing.T) {
	var log testLog
	logger := log.logger(logiface.LevelDebug)
	opts, err := resolveSystemOptions([]Option{
		WithQueueCapacity(16),
		WithArenaCapacity(32),
		WithOverflowPolicy(OverflowReject),
		WithLogger(logger),
		WithMetrics(true),
		WithCPUAffinity(true),
		WithIdleBackoff(0, time.Millisecond, time.Millisecond),
		WithWarningRates(nil),
	})
	require.NoError(t, err)
	assert.Equal(t, 16, opts.queueCapacity)
	assert.Equal(t, 32, opts.arenaCapacity)
	assert.Equal(t, OverflowReject, opts.overflow)
	assert.Same(t, logger, opts.logger)
	assert.True(t, opts.metrics)
	assert.True(t, opts.affinity)
	assert.Equal(t, backoffConfig{minSleep: time.Millisecond, maxSleep: time.Millisecond}, opts.idle)
	assert.Nil(t, opts.warningRates)
}

func TestWithIdleBackoff_invalid(t *testing.T) {
	for _, tc := range [...]struct {
		Name               string
		Spins              int
		MinSleep, MaxSleep time.Duration
	}{
		{`negative spins`, -1, time.Microsecond, time.Millisecond},
		{`zero min`, 1, 0, time.Millisecond},
		{`max below min`, 1, time.Millisecond, time.Microsecond},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			_, err := resolveSystemOptions([]Option{WithIdleBackoff(tc.Spins, tc.MinSleep, tc.MaxSleep)})
			assert.Error(t, err)
		})
	}
}

func TestOverflowPolicy_text(t *testing.T) {
	for _, tc := range [...]struct {
		Policy OverflowPolicy
		Text   string
	}{
		{OverflowInline, "inline"},
		{OverflowReject, "reject"},
	} {
		assert.Equal(t, tc.Text, tc.Policy.String())
		b, err := tc.Policy.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, tc.Text, string(b))

		var p OverflowPolicy
		require.NoError(t, p.UnmarshalText([]byte(tc.Text)))
		assert.Equal(t, tc.Policy, p)
	}

	p := OverflowReject
	require.NoError(t, p.UnmarshalText(nil))
	assert.Equal(t, OverflowInline, p)

	assert.Error(t, p.UnmarshalText([]byte("Inline")))
	_, err := OverflowPolicy(5).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "OverflowPolicy(5)", OverflowPolicy(5).String())
}

func TestIdleBackoff(t *testing.T) {
	b := newIdleBackoff(backoffConfig{spins: 2, minSleep: time.Microsecond, maxSleep: 4 * time.Microsecond})
	for range 2 {
		b.wait()
		assert.Zero(t, b.sleep)
	}
	for _, want := range [...]time.Duration{1, 2, 4, 4} {
		b.wait()
		assert.Equal(t, want*time.Microsecond, b.sleep)
	}
	b.reset()
	assert.Zero(t, b.attempts)
	assert.Zero(t, b.sleep)
}

func TestWaitBackoff_capped(t *testing.T) {
	b := newWaitBackoff(backoffConfig{minSleep: time.Microsecond, maxSleep: time.Second})
	for range 5 {
		b.wait()
		assert.Equal(t, time.Microsecond, b.sleep)
	}
}
