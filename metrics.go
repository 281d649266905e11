// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package jobsys

import (
	"sync"
	"time"
)

type (
	// Stats is a point-in-time snapshot of System statistics, see
	// System.Stats. Counters are monotonic, and summed over every queue.
	//
	// Example:
	//
	//	sys, _ := New(0, WithMetrics(true))
	//	stats := sys.Stats()
	//	fmt.Printf("executed=%d stolen=%d p99=%v\n",
	//		stats.Executed, stats.Stolen, stats.Latency.P99)
	Stats struct {
		// Latency is only populated if WithMetrics(true) was given.
		Latency *LatencyStats
		// Queues holds the per-worker breakdown, index-aligned with workers.
		Queues []QueueStats
		State  SystemState
		// Workers is the number of workers, including the constructing
		// goroutine.
		Workers int
		// Queued is the approximate number of jobs across every queue.
		Queued int
		QueueCounters
	}

	// QueueStats is the per-worker portion of Stats.
	QueueStats struct {
		Latency *LatencyStats
		Index   int
		// Queued is the approximate number of jobs in the queue.
		Queued int
		QueueCounters
	}

	// QueueCounters are the monotonic counters maintained per worker.
	QueueCounters struct {
		// Scheduled counts jobs allocated and published (or run inline).
		Scheduled uint64
		// Executed counts jobs run by the worker, including stolen jobs.
		Executed uint64
		// Stolen counts jobs taken from other workers' queues.
		Stolen uint64
		// StealMisses counts steal attempts that found nothing, or lost a race.
		StealMisses uint64
		// Overflowed counts jobs that found the queue full.
		Overflowed uint64
		// ArenaSkips counts live arena slots passed over when allocating.
		ArenaSkips uint64
	}

	// LatencyStats summarizes job run durations (entry point only, not
	// including children).
	//
	// Percentiles are streaming estimates. When summed over several queues,
	// they are count-weighted averages of the per-queue estimates.
	LatencyStats struct {
		P50   time.Duration
		P90   time.Duration
		P99   time.Duration
		Max   time.Duration
		Mean  time.Duration
		Count int
	}

	// latencyRecorder is written by the owner of a queue, and read by Stats.
	latencyRecorder struct {
		mu  sync.Mutex
		p50 pSquare
		p90 pSquare
		p99 pSquare
		sum time.Duration
		max time.Duration
	}
)

func newLatencyRecorder() *latencyRecorder {
	return &latencyRecorder{
		p50: newPSquare(0.50),
		p90: newPSquare(0.90),
		p99: newPSquare(0.99),
	}
}

func (x *latencyRecorder) record(d time.Duration) {
	x.mu.Lock()
	defer x.mu.Unlock()
	v := float64(d)
	x.p50.observe(v)
	x.p90.observe(v)
	x.p99.observe(v)
	x.sum += d
	if d > x.max {
		x.max = d
	}
}

func (x *latencyRecorder) snapshot() *LatencyStats {
	x.mu.Lock()
	defer x.mu.Unlock()
	s := LatencyStats{
		P50:   time.Duration(x.p50.value()),
		P90:   time.Duration(x.p90.value()),
		P99:   time.Duration(x.p99.value()),
		Max:   x.max,
		Count: x.p50.count,
	}
	if s.Count != 0 {
		s.Mean = x.sum / time.Duration(s.Count)
	}
	return &s
}

func (x *queueStats) counters(skips uint64) QueueCounters {
	return QueueCounters{
		Scheduled:   x.scheduled.Load(),
		Executed:    x.executed.Load(),
		Stolen:      x.stolen.Load(),
		StealMisses: x.stealMisses.Load(),
		Overflowed:  x.overflowed.Load(),
		ArenaSkips:  skips,
	}
}

func (x *QueueCounters) add(o QueueCounters) {
	x.Scheduled += o.Scheduled
	x.Executed += o.Executed
	x.Stolen += o.Stolen
	x.StealMisses += o.StealMisses
	x.Overflowed += o.Overflowed
	x.ArenaSkips += o.ArenaSkips
}

// mergeLatency combines per-queue latency, see LatencyStats.
func mergeLatency(queues []QueueStats) *LatencyStats {
	var (
		total              LatencyStats
		p50, p90, p99, sum float64
		sawLatency         bool
	)
	for _, q := range queues {
		l := q.Latency
		if l == nil {
			continue
		}
		sawLatency = true
		if l.Count == 0 {
			continue
		}
		w := float64(l.Count)
		p50 += w * float64(l.P50)
		p90 += w * float64(l.P90)
		p99 += w * float64(l.P99)
		sum += w * float64(l.Mean)
		total.Count += l.Count
		total.Max = max(total.Max, l.Max)
	}
	if !sawLatency {
		return nil
	}
	if total.Count != 0 {
		n := float64(total.Count)
		total.P50 = time.Duration(p50 / n)
		total.P90 = time.Duration(p90 / n)
		total.P99 = time.Duration(p99 / n)
		total.Mean = time.Duration(sum / n)
	}
	return &total
}
