// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package jobsys

import (
	"slices"
)

// pSquare estimates a single quantile of a stream in O(1) space, using the
// P-Square algorithm (Jain & Chlamtac, 1985). Five markers track the
// minimum, the maximum, the target quantile, and the midpoints either side.
//
// Thread Safety: NOT thread-safe. Caller must ensure synchronization.
type pSquare struct {
	// heights of the markers
	q [5]float64
	// actual positions of the markers
	n [5]int
	// desired positions of the markers, and their per-observation increments
	want [5]float64
	step [5]float64
	// p is the target quantile, in [0, 1]
	p     float64
	count int
}

func newPSquare(p float64) pSquare {
	p = min(max(p, 0), 1)
	return pSquare{
		p:    p,
		step: [5]float64{0, p / 2, p, (1 + p) / 2, 1},
	}
}

func (x *pSquare) observe(v float64) {
	if x.count < 5 {
		x.q[x.count] = v
		x.count++
		if x.count == 5 {
			slices.Sort(x.q[:])
			for i := range x.n {
				x.n[i] = i
			}
			x.want = [5]float64{0, 2 * x.p, 4 * x.p, 2 + 2*x.p, 4}
		}
		return
	}
	x.count++

	// find the cell containing v, extending the extremes if necessary
	var k int
	switch {
	case v < x.q[0]:
		x.q[0] = v
	case v >= x.q[4]:
		x.q[4] = v
		k = 3
	default:
		for k = 0; k < 3 && v >= x.q[k+1]; k++ {
		}
	}

	for i := k + 1; i < 5; i++ {
		x.n[i]++
	}
	for i := range x.want {
		x.want[i] += x.step[i]
	}

	for i := 1; i < 4; i++ {
		d := x.want[i] - float64(x.n[i])
		if !(d >= 1 && x.n[i+1]-x.n[i] > 1) && !(d <= -1 && x.n[i-1]-x.n[i] < -1) {
			continue
		}
		sign := 1
		if d < 0 {
			sign = -1
		}
		if h := x.parabolic(i, sign); x.q[i-1] < h && h < x.q[i+1] {
			x.q[i] = h
		} else {
			x.q[i] = x.linear(i, sign)
		}
		x.n[i] += sign
	}
}

func (x *pSquare) parabolic(i, sign int) float64 {
	d := float64(sign)
	n0, n1, n2 := float64(x.n[i-1]), float64(x.n[i]), float64(x.n[i+1])
	return x.q[i] + d/(n2-n0)*((n1-n0+d)*(x.q[i+1]-x.q[i])/(n2-n1)+(n2-n1-d)*(x.q[i]-x.q[i-1])/(n1-n0))
}

func (x *pSquare) linear(i, sign int) float64 {
	j := i + sign
	return x.q[i] + float64(sign)*(x.q[j]-x.q[i])/float64(x.n[j]-x.n[i])
}

// value returns the current estimate. Until five observations have been
// made, it is the nearest-rank quantile of those seen so far.
func (x *pSquare) value() float64 {
	switch {
	case x.count == 0:
		return 0
	case x.count < 5:
		seen := slices.Clone(x.q[:x.count])
		slices.Sort(seen)
		return seen[int(float64(x.count-1)*x.p)]
	default:
		return x.q[2]
	}
}
