// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package stats computes intensity histograms of channel planes and their order statistics
package stats

import (
	"fmt"
	"math"

	"github.com/mlnoga/imgedit/internal/grid"
	"github.com/mlnoga/imgedit/internal/qsort"
	"gonum.org/v1/gonum/floats"
)

// Intensity histogram of a channel plane, with one bucket per representable sample value
type Histogram struct {
	Depth grid.Depth `json:"depth"`
	Bins  []int64    `json:"bins"`
}

// Allocates an empty histogram for the given depth
func NewHistogram(depth grid.Depth) *Histogram {
	return &Histogram{Depth: depth, Bins: make([]int64, depth.Levels())}
}

// Computes the histogram of the given plane in a single pass
func Compute(p *grid.Plane) *Histogram {
	h := NewHistogram(p.Depth)
	for _, d := range p.Data {
		h.Bins[d]++
	}
	return h
}

// Computes the histogram of the given plane with partial histograms over row batches,
// merged by elementwise sum. Uses at most maxThreads goroutines
func ComputeParallel(p *grid.Plane, maxThreads int) *Histogram {
	if maxThreads <= 1 {
		return Compute(p)
	}
	h := NewHistogram(p.Depth)
	levels := len(h.Bins)
	partials := make(chan []int64, 8*maxThreads)

	go func() {
		grid.ForEachRowBatch(p.Height, p.Width*2, maxThreads, func(lower, upper int) {
			partial := grid.GetArrayOfInt64FromPool(levels)
			for i := range partial {
				partial[i] = 0
			}
			for _, d := range p.Data[lower*p.Width : upper*p.Width] {
				partial[d]++
			}
			partials <- partial
		})
		close(partials)
	}()

	for partial := range partials {
		for i, n := range partial {
			h.Bins[i] += n
		}
		grid.PutArrayOfInt64IntoPool(partial)
	}
	return h
}

// Total number of samples counted
func (h *Histogram) Sum() int64 {
	s := int64(0)
	for _, n := range h.Bins {
		s += n
	}
	return s
}

// Bucket counts as float64
func (h *Histogram) Counts() []float64 {
	counts := make([]float64, len(h.Bins))
	for i, n := range h.Bins {
		counts[i] = float64(n)
	}
	return counts
}

// Smallest bucket count
func (h *Histogram) Min() int64 {
	return int64(floats.Min(h.Counts()))
}

// Largest bucket count
func (h *Histogram) Max() int64 {
	return int64(floats.Max(h.Counts()))
}

// Cumulative sum of the bucket counts
func (h *Histogram) CumSum() []float64 {
	counts := h.Counts()
	return floats.CumSum(counts, counts)
}

// Lowest and highest sample value present in the plane. Returns -1, -1 for an empty histogram
func (h *Histogram) Range() (lo, hi int) {
	lo, hi = -1, -1
	for i, n := range h.Bins {
		if n > 0 {
			if lo < 0 {
				lo = i
			}
			hi = i
		}
	}
	return lo, hi
}

func (h *Histogram) String() string {
	lo, hi := h.Range()
	return fmt.Sprintf("%d samples in %d bins, range [%d,%d], peak %d", h.Sum(), len(h.Bins), lo, hi, h.Max())
}

// Returns the p-th percentile of the values, for p in [0,100], with linear interpolation
// between the closest ranks: position p/100*(n-1) of the sorted values. Does not modify values.
// Returns NaN for empty input or p outside [0,100]
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 || !(p >= 0 && p <= 100) {
		return math.NaN()
	}
	pos := p / 100 * float64(n-1)
	lower := math.Floor(pos)
	frac := pos - lower

	tmp := grid.GetArrayOfFloat64FromPool(n)
	defer grid.PutArrayOfFloat64IntoPool(tmp)
	copy(tmp, values)

	lo, hi := qsort.QSelectPairFloat64(tmp, int(lower)+1)
	if frac == 0 {
		return lo
	}
	return lo + (hi-lo)*frac
}
