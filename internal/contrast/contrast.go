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

// Package contrast implements histogram based tone correction: percentile clipped
// cumulative stretches and gamma curves, applied through per-intensity lookup tables
package contrast

import (
	"fmt"
	"math"

	"github.com/mlnoga/imgedit/internal/grid"
	"github.com/mlnoga/imgedit/internal/stats"
	"gonum.org/v1/gonum/floats"
	"golang.org/x/sync/errgroup"
)

// Largest fraction of bucket counts that may be ignored at either end of the distribution
const MaxIgnoreRange = 0.5

// Guards truncation of curve values that are integral up to rounding error
const truncationSlack = 1e-9

// A lookup table mapping each sample value of the given depth to a corrected value
type ToneCurve struct {
	Depth grid.Depth `json:"depth"`
	LUT   []uint16   `json:"lut"`
}

// Checks that ignoreRange is a number in [0, MaxIgnoreRange]
func ValidateIgnoreRange(ignoreRange float64) error {
	if !(ignoreRange >= 0 && ignoreRange <= MaxIgnoreRange) { // also rejects NaN
		return fmt.Errorf("%w: ignore range %g not in [0,%g]", grid.ErrOutOfRange, ignoreRange, MaxIgnoreRange)
	}
	return nil
}

// Clips the distribution of bucket counts of the histogram. Determines the ignoreRange and
// 1-ignoreRange percentiles of the counts themselves, the smallest count at or above the lower
// and the largest count at or below the upper one, and stretches counts between these linearly
// onto [min, max] of all counts. Counts outside are set to min and max respectively.
// For ignoreRange==0 returns the counts unchanged
func ClipCounts(h *stats.Histogram, ignoreRange float64) ([]float64, error) {
	if err := ValidateIgnoreRange(ignoreRange); err != nil {
		return nil, err
	}
	counts := h.Counts()
	if ignoreRange == 0 {
		return counts, nil
	}

	qLow := stats.Percentile(counts, ignoreRange*100)
	qHigh := stats.Percentile(counts, (1-ignoreRange)*100)
	aMin, aMax := floats.Min(counts), floats.Max(counts)

	aLow, aHigh := math.Inf(1), math.Inf(-1)
	for _, c := range counts {
		if c >= qLow && c < aLow {
			aLow = c
		}
		if c <= qHigh && c > aHigh {
			aHigh = c
		}
	}
	if !(aHigh > aLow) {
		return nil, fmt.Errorf("%w: degenerate clip bounds [%g,%g] for ignore range %g",
			grid.ErrOutOfRange, aLow, aHigh, ignoreRange)
	}

	scale := (aMax - aMin) / (aHigh - aLow)
	for i, c := range counts {
		switch {
		case c < aLow:
			counts[i] = aMin
		case c > aHigh:
			counts[i] = aMax
		default:
			counts[i] = aMin + (c-aLow)*scale
		}
	}
	return counts, nil
}

// Builds the tone curve from the cumulative sum of the given counts, rescaled so its minimum
// maps to 0 and its maximum to the largest sample value of the depth. Values are truncated.
// Fails if the cumulative sum is constant
func NewToneCurve(counts []float64, depth grid.Depth) (*ToneCurve, error) {
	if !depth.Valid() {
		return nil, fmt.Errorf("%w: depth %d", grid.ErrInvalidSample, depth)
	}
	if len(counts) != depth.Levels() {
		return nil, fmt.Errorf("%w: %d counts for %d levels", grid.ErrInvalidDimension, len(counts), depth.Levels())
	}
	cs := floats.CumSum(make([]float64, len(counts)), counts)
	csMin, csMax := floats.Min(cs), floats.Max(cs)
	if !(csMax > csMin) {
		return nil, fmt.Errorf("%w: constant cumulative histogram", grid.ErrOutOfRange)
	}

	maxVal := float64(depth.MaxValue())
	scale := maxVal / (csMax - csMin)
	tc := &ToneCurve{Depth: depth, LUT: make([]uint16, len(cs))}
	for i, c := range cs {
		v := math.Floor((c-csMin)*scale + truncationSlack)
		if v < 0 {
			v = 0
		} else if v > maxVal {
			v = maxVal
		}
		tc.LUT[i] = uint16(v)
	}
	return tc, nil
}

// Gamma curve mapping normalized value x to x^(1/gamma). Gamma must be positive and finite
func NewGammaCurve(gamma float64, depth grid.Depth) (*ToneCurve, error) {
	if !(gamma > 0) || math.IsInf(gamma, 0) {
		return nil, fmt.Errorf("%w: gamma %g", grid.ErrOutOfRange, gamma)
	}
	if !depth.Valid() {
		return nil, fmt.Errorf("%w: depth %d", grid.ErrInvalidSample, depth)
	}
	maxVal := float64(depth.MaxValue())
	exp := 1 / gamma
	tc := &ToneCurve{Depth: depth, LUT: make([]uint16, depth.Levels())}
	for i := range tc.LUT {
		tc.LUT[i] = uint16(math.Round(maxVal * math.Pow(float64(i)/maxVal, exp)))
	}
	return tc, nil
}

// True if the curve never decreases
func (tc *ToneCurve) Monotonic() bool {
	for i := 1; i < len(tc.LUT); i++ {
		if tc.LUT[i] < tc.LUT[i-1] {
			return false
		}
	}
	return true
}

// Maps every sample of the plane through the curve into a new plane
func (tc *ToneCurve) Apply(p *grid.Plane) (*grid.Plane, error) {
	if p.Depth != tc.Depth {
		return nil, fmt.Errorf("%w: %d bit curve for %d bit plane", grid.ErrInvalidSample, tc.Depth, p.Depth)
	}
	out := &grid.Plane{Width: p.Width, Height: p.Height, Depth: p.Depth, Data: make([]uint16, len(p.Data))}
	for i, d := range p.Data {
		out.Data[i] = tc.LUT[d]
	}
	return out, nil
}

// Corrects the contrast of a single channel plane: histogram, clip, cumulative tone curve
// and lookup. Returns the corrected plane and the curve used
func ApplyPercentileClip(p *grid.Plane, ignoreRange float64) (*grid.Plane, *ToneCurve, error) {
	if err := ValidateIgnoreRange(ignoreRange); err != nil {
		return nil, nil, err
	}
	h := stats.Compute(p)
	counts, err := ClipCounts(h, ignoreRange)
	if err != nil {
		return nil, nil, err
	}
	tc, err := NewToneCurve(counts, p.Depth)
	if err != nil {
		return nil, nil, err
	}
	if !tc.Monotonic() {
		return nil, nil, fmt.Errorf("%w: tone curve not monotonic for ignore range %g", grid.ErrOutOfRange, ignoreRange)
	}
	out, err := tc.Apply(p)
	if err != nil {
		return nil, nil, err
	}
	return out, tc, nil
}

// Corrects every color channel of the grid independently, at most maxThreads channels at a time.
// Alpha is copied unchanged. Returns a new grid only if all channels succeed
func CorrectGrid(g *grid.Grid, ignoreRange float64, maxThreads int) (*grid.Grid, error) {
	if err := ValidateIgnoreRange(ignoreRange); err != nil {
		return nil, err
	}
	in := g.Planes()
	out := make([]*grid.Plane, len(in))
	copy(out[g.ColorChannels():], in[g.ColorChannels():])

	var eg errgroup.Group
	if maxThreads < 1 {
		maxThreads = 1
	}
	eg.SetLimit(maxThreads)
	for c := range in[:g.ColorChannels()] {
		c := c
		eg.Go(func() error {
			p, _, err := ApplyPercentileClip(in[c], ignoreRange)
			if err != nil {
				return fmt.Errorf("channel %d: %w", c, err)
			}
			out[c] = p
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	res, err := grid.NewGridFromPlanes(out)
	if err != nil {
		return nil, err
	}
	res.ID, res.FileName = g.ID, g.FileName
	return res, nil
}

// Applies one curve to every color channel of the grid, returning a new grid. Alpha is kept
func (tc *ToneCurve) ApplyGrid(g *grid.Grid) (*grid.Grid, error) {
	if g.Depth != tc.Depth {
		return nil, fmt.Errorf("%w: %d bit curve for %d bit grid", grid.ErrInvalidSample, tc.Depth, g.Depth)
	}
	res := grid.NewGridFromGrid(g)
	colors := g.ColorChannels()
	for i, d := range g.Data {
		if i%g.Channels < colors {
			res.Data[i] = tc.LUT[d]
		} else {
			res.Data[i] = d
		}
	}
	return res, nil
}
