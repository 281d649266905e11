// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package jobsys

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the file representation of System configuration. Zero values
// select the defaults.
//
// Example:
//
//	workers: 8
//	queue_capacity: 1024
//	arena_capacity: 4096
//	overflow: reject
//	metrics: true
//	pin_threads: true
//	idle:
//	  spins: 32
//	  min_sleep: 20us
//	  max_sleep: 2ms
//	warning_rates:
//	  1s: 1
//	  1m: 5
type Config struct {
	Idle          *IdleConfig           `yaml:"idle,omitempty"`
	WarningRates  map[time.Duration]int `yaml:"warning_rates,omitempty"`
	Overflow      OverflowPolicy        `yaml:"overflow,omitempty"`
	Workers       int                   `yaml:"workers,omitempty"`
	QueueCapacity int                   `yaml:"queue_capacity,omitempty"`
	ArenaCapacity int                   `yaml:"arena_capacity,omitempty"`
	Metrics       bool                  `yaml:"metrics,omitempty"`
	PinThreads    bool                  `yaml:"pin_threads,omitempty"`
}

// IdleConfig is the file representation of WithIdleBackoff.
type IdleConfig struct {
	Spins    int           `yaml:"spins"`
	MinSleep time.Duration `yaml:"min_sleep"`
	MaxSleep time.Duration `yaml:"max_sleep"`
}

// ParseConfig decodes YAML configuration. Unknown fields are rejected.
// Empty input yields the zero Config.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("jobsys: parse config: %w", err)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("jobsys: parse config: %w: %d", ErrInvalidThreadCount, cfg.Workers)
	}
	return &cfg, nil
}

// Options converts the configuration to the equivalent options. Validation
// is deferred to New.
func (x *Config) Options() []Option {
	if x == nil {
		return nil
	}
	var opts []Option
	if x.QueueCapacity != 0 {
		opts = append(opts, WithQueueCapacity(x.QueueCapacity))
	}
	if x.ArenaCapacity != 0 {
		opts = append(opts, WithArenaCapacity(x.ArenaCapacity))
	}
	if x.Overflow != OverflowInline {
		opts = append(opts, WithOverflowPolicy(x.Overflow))
	}
	if x.Metrics {
		opts = append(opts, WithMetrics(true))
	}
	if x.PinThreads {
		opts = append(opts, WithCPUAffinity(true))
	}
	if x.Idle != nil {
		opts = append(opts, WithIdleBackoff(x.Idle.Spins, x.Idle.MinSleep, x.Idle.MaxSleep))
	}
	if x.WarningRates != nil {
		opts = append(opts, WithWarningRates(x.WarningRates))
	}
	return opts
}

// NewFromConfig calls New with the configured worker count and options.
// Any opts are applied after the configuration, and take precedence.
func NewFromConfig(cfg *Config, opts ...Option) (*System, error) {
	var workers int
	if cfg != nil {
		workers = cfg.Workers
	}
	return New(workers, append(cfg.Options(), opts...)...)
}
