// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package jobsys

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
workers: 3
queue_capacity: 64
arena_capacity: 128
overflow: reject
metrics: true
pin_threads: true
idle:
  spins: 8
  min_sleep: 20us
  max_sleep: 2ms
warning_rates:
  1s: 1
  1m: 5
`))
	require.NoError(t, err)
	assert.Equal(t, &Config{
		Idle: &IdleConfig{
			Spins:    8,
			MinSleep: 20 * time.Microsecond,
			MaxSleep: 2 * time.Millisecond,
		},
		WarningRates: map[time.Duration]int{
			time.Second: 1,
			time.Minute: 5,
		},
		Overflow:      OverflowReject,
		Workers:       3,
		QueueCapacity: 64,
		ArenaCapacity: 128,
		Metrics:       true,
		PinThreads:    true,
	}, cfg)

	opts, err := resolveSystemOptions(cfg.Options())
	require.NoError(t, err)
	assert.Equal(t, 64, opts.queueCapacity)
	assert.Equal(t, 128, opts.arenaCapacity)
	assert.Equal(t, OverflowReject, opts.overflow)
	assert.True(t, opts.metrics)
	assert.True(t, opts.affinity)
	assert.Equal(t, backoffConfig{spins: 8, minSleep: 20 * time.Microsecond, maxSleep: 2 * time.Millisecond}, opts.idle)
	assert.Equal(t, cfg.WarningRates, opts.warningRates)
}

func TestParseConfig_empty(t *testing.T) {
	for _, input := range [...]string{``, "\n", `{}`} {
		cfg, err := ParseConfig([]byte(input))
		require.NoError(t, err, input)
		assert.Equal(t, &Config{}, cfg)
		assert.Empty(t, cfg.Options())
	}
}

func TestParseConfig_errors(t *testing.T) {
	for _, tc := range [...]struct {
		Name  string
		Input string
	}{
		{`unknown field`, `workerz: 2`},
		{`bad overflow`, `overflow: sometimes`},
		{`bad duration`, "idle:\n  min_sleep: soon"},
		{`negative workers`, `workers: -1`},
		{`not yaml`, `workers: [1, 2`},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			cfg, err := ParseConfig([]byte(tc.Input))
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte("workers: 2\nqueue_capacity: 16\nmetrics: true\n"))
	require.NoError(t, err)

	sys, err := NewFromConfig(cfg, WithQueueCapacity(32))
	require.NoError(t, err)
	defer func() { _ = sys.Close() }()

	assert.Equal(t, 2, sys.Workers())
	// later options take precedence
	assert.Equal(t, 32, sys.Queue().Cap())
	assert.NotNil(t, sys.Stats().Latency)
}

func TestNewFromConfig_nil(t *testing.T) {
	sys, err := NewFromConfig(nil)
	require.NoError(t, err)
	defer func() { _ = sys.Close() }()
	assert.Positive(t, sys.Workers())
}

func TestNewFromConfig_invalid(t *testing.T) {
	_, err := NewFromConfig(&Config{Workers: 1, ArenaCapacity: 3})
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}
