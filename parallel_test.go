// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package jobsys

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestSplitters(t *testing.T) {
	for _, tc := range [...]struct {
		Name     string
		Splitter Splitter
		Count    int
		ElemSize uintptr
		Want     bool
	}{
		{`count below`, CountSplitter{Count: 8}, 8, 4, false},
		{`count above`, CountSplitter{Count: 8}, 9, 4, true},
		{`size below`, DataSizeSplitter{Size: 64}, 8, 8, false},
		{`size above`, DataSizeSplitter{Size: 64}, 9, 8, true},
		{`size zero elem`, DataSizeSplitter{Size: 4}, 5, 0, true},
		{`func`, SplitterFunc(func(count int, elemSize uintptr) bool { return count == 3 && elemSize == 2 }), 3, 2, true},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Want, tc.Splitter.Split(tc.Count, tc.ElemSize))
		})
	}
}

func TestParallelFor_coverage(t *testing.T) {
	for _, tc := range [...]struct {
		Name     string
		Len      int
		Splitter Splitter
		MaxLeaf  int
	}{
		{`count`, 10_000, CountSplitter{Count: 100}, 100},
		{`data size`, 10_000, DataSizeSplitter{Size: 512}, 64},
		{`default`, 100_000, nil, 2048},
		{`never split`, 1000, SplitterFunc(func(int, uintptr) bool { return false }), 1000},
		{`always split`, 257, SplitterFunc(func(int, uintptr) bool { return true }), 1},
		{`empty`, 0, nil, 0},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			sys := newTestSystem(t, 4)
			data := make([]int64, tc.Len)
			for i := range data {
				data[i] = int64(i)
			}

			var (
				mu      sync.Mutex
				maxLeaf int
				calls   int
			)
			seen := make([]atomic.Int32, tc.Len)
			job, err := ParallelFor(sys, nil, data, tc.Splitter, func(part []int64) {
				if len(part) == 0 {
					t.Error(`empty part`)
				}
				for _, v := range part {
					seen[v].Add(1)
				}
				mu.Lock()
				calls++
				maxLeaf = max(maxLeaf, len(part))
				mu.Unlock()
			})
			require.NoError(t, err)
			sys.Wait(job)

			for i := range seen {
				if n := seen[i].Load(); n != 1 {
					t.Fatalf("element %d visited %d times", i, n)
				}
			}
			assert.LessOrEqual(t, maxLeaf, tc.MaxLeaf)
			if tc.Len == 0 {
				assert.Zero(t, calls)
			}
		})
	}
}

func TestParallelForRange(t *testing.T) {
	for _, tc := range [...]struct {
		Name       string
		Begin, End int32
	}{
		{`positive`, 0, 5000},
		{`negative`, -2500, 2500},
		{`empty`, 10, 10},
		{`reversed`, 10, 0},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			sys := newTestSystem(t, 3)
			var (
				sum   atomic.Int64
				count atomic.Int64
			)
			job, err := ParallelForRange(sys, nil, tc.Begin, tc.End, CountSplitter{Count: 64}, func(begin, end int32) {
				if begin >= end || begin < tc.Begin || end > tc.End {
					t.Errorf("bad span [%d, %d)", begin, end)
				}
				for i := begin; i < end; i++ {
					sum.Add(int64(i))
					count.Add(1)
				}
			})
			require.NoError(t, err)
			sys.Wait(job)

			var wantSum, wantCount int64
			for i := tc.Begin; i < tc.End; i++ {
				wantSum += int64(i)
				wantCount++
			}
			assert.Equal(t, wantCount, count.Load())
			assert.Equal(t, wantSum, sum.Load())
		})
	}
}

func TestParallelForRange_unsigned(t *testing.T) {
	sys := newTestSystem(t, 2)
	var count atomic.Uint64
	job, err := ParallelForRange(sys, nil, uint8(200), uint8(255), nil, func(begin, end uint8) {
		count.Add(uint64(end - begin))
	})
	require.NoError(t, err)
	sys.Wait(job)
	assert.Equal(t, uint64(55), count.Load())
}

func TestParallelFor_withParent(t *testing.T) {
	sys := newTestSystem(t, 4)
	var total atomic.Int64
	root, err := sys.Schedule(func(root *Job) {
		for range 4 {
			_, err := ParallelForRange(sys, root, 0, 1000, CountSplitter{Count: 10}, func(begin, end int) {
				total.Add(int64(end - begin))
			})
			if err != nil {
				t.Error(err)
			}
		}
	}, nil)
	require.NoError(t, err)
	sys.Wait(root)
	assert.Equal(t, int64(4000), total.Load())
}

// splits that cannot be scheduled are processed inline, here because the
// job runs on an unregistered goroutine
func TestParallelFor_stolenByUnregistered(t *testing.T) {
	sys := newTestSystem(t, 1)
	var count atomic.Int64
	job, err := ParallelForRange(sys, nil, 0, 10_000, CountSplitter{Count: 16}, func(begin, end int) {
		count.Add(int64(end - begin))
	})
	require.NoError(t, err)

	var g errgroup.Group
	g.Go(func() error {
		sys.Wait(job)
		return nil
	})
	require.NoError(t, g.Wait())
	assert.Equal(t, int64(10_000), count.Load())
}

func TestParallelFor_errors(t *testing.T) {
	sys := newTestSystem(t, 1)
	_, err := ParallelFor[int](sys, nil, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNilFunc)
	_, err = ParallelForRange[int](sys, nil, 0, 1, nil, nil)
	assert.ErrorIs(t, err, ErrNilFunc)

	var g errgroup.Group
	g.Go(func() error {
		_, err := ParallelFor(sys, nil, []int{1}, nil, func([]int) {})
		return err
	})
	assert.ErrorIs(t, g.Wait(), ErrNoQueueForThread)
}
