// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package otelmetrics exports jobsys statistics as OpenTelemetry metrics.
//
// Every instrument is asynchronous, observed from a single System.Stats
// snapshot per collection, so registering adds no cost to the job path.
//
// Instruments (all per worker, with the attribute "worker"):
//   - jobsys.jobs.scheduled (Int64ObservableCounter)
//   - jobsys.jobs.executed (Int64ObservableCounter)
//   - jobsys.jobs.stolen (Int64ObservableCounter)
//   - jobsys.steal.misses (Int64ObservableCounter)
//   - jobsys.queue.overflowed (Int64ObservableCounter)
//   - jobsys.arena.skips (Int64ObservableCounter)
//   - jobsys.queue.depth (Int64ObservableGauge)
//   - jobsys.job.latency (Float64ObservableGauge, seconds, with the attribute
//     "quantile"), only if the System was created WithMetrics(true)
package otelmetrics

import (
	"context"
	"errors"
	"math"

	"github.com/joeycumines/go-jobsys"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Register creates the instruments on meter, and registers a callback
// observing sys. Call Unregister on the result to stop observing.
func Register(meter metric.Meter, sys *jobsys.System) (metric.Registration, error) {
	if meter == nil || sys == nil {
		return nil, errors.New(`otelmetrics: nil meter or system`)
	}

	var (
		errs    []error
		counter = func(name, desc, unit string) metric.Int64ObservableCounter {
			c, err := meter.Int64ObservableCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
			errs = append(errs, err)
			return c
		}
	)

	scheduled := counter("jobsys.jobs.scheduled", "Jobs scheduled by the worker", "{job}")
	executed := counter("jobsys.jobs.executed", "Jobs run by the worker", "{job}")
	stolen := counter("jobsys.jobs.stolen", "Jobs stolen by the worker", "{job}")
	stealMisses := counter("jobsys.steal.misses", "Steal attempts that found no job", "{attempt}")
	overflowed := counter("jobsys.queue.overflowed", "Jobs that found the worker's queue full", "{job}")
	arenaSkips := counter("jobsys.arena.skips", "Live arena slots skipped during allocation", "{slot}")

	depth, err := meter.Int64ObservableGauge(
		"jobsys.queue.depth",
		metric.WithDescription("Approximate number of jobs in the worker's queue"),
		metric.WithUnit("{job}"),
	)
	errs = append(errs, err)

	latency, err := meter.Float64ObservableGauge(
		"jobsys.job.latency",
		metric.WithDescription("Estimated job run duration quantiles"),
		metric.WithUnit("s"),
	)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return meter.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			stats := sys.Stats()
			for _, q := range stats.Queues {
				attrs := metric.WithAttributes(attribute.Int("worker", q.Index))
				o.ObserveInt64(scheduled, toInt64(q.Scheduled), attrs)
				o.ObserveInt64(executed, toInt64(q.Executed), attrs)
				o.ObserveInt64(stolen, toInt64(q.Stolen), attrs)
				o.ObserveInt64(stealMisses, toInt64(q.StealMisses), attrs)
				o.ObserveInt64(overflowed, toInt64(q.Overflowed), attrs)
				o.ObserveInt64(arenaSkips, toInt64(q.ArenaSkips), attrs)
				o.ObserveInt64(depth, int64(q.Queued), attrs)
				if l := q.Latency; l != nil && l.Count != 0 {
					for _, v := range [...]struct {
						q string
						d float64
					}{
						{"0.5", l.P50.Seconds()},
						{"0.9", l.P90.Seconds()},
						{"0.99", l.P99.Seconds()},
					} {
						o.ObserveFloat64(latency, v.d, metric.WithAttributes(
							attribute.Int("worker", q.Index),
							attribute.String("quantile", v.q),
						))
					}
				}
			}
			return nil
		},
		scheduled, executed, stolen, stealMisses, overflowed, arenaSkips, depth, latency,
	)
}

func toInt64(v uint64) int64 {
	return int64(min(v, math.MaxInt64))
}
