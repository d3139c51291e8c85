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

// Package resample scales pixel grids to new dimensions with nearest neighbor,
// bilinear, Mitchell-Netravali cubic or Lanczos interpolation
package resample

import (
	"fmt"
	"math"

	"github.com/mlnoga/imgedit/internal/grid"
	"github.com/mlnoga/imgedit/internal/kernel"
)

// Border width of the edge-replicated planes read by the 4-tap kernels
const Padding = 2

// Largest Lanczos radius the fixed 4x4 neighborhood can represent
const MaxLanczosTaps = 2

// Parameters of a resampling operation
type Request struct {
	Width  int         `json:"width"`  // Target width, >0
	Height int         `json:"height"` // Target height, >0
	Kind   kernel.Kind `json:"kernel"`
	B      float64     `json:"b"`    // Mitchell-Netravali B, cubic only
	C      float64     `json:"c"`    // Mitchell-Netravali C, cubic only
	Taps   int         `json:"taps"` // Lanczos radius, 0 selects MaxLanczosTaps
}

// Mitchell filter with B=C=1/3 at the given size
func NewRequest(width, height int, kind kernel.Kind) Request {
	return Request{Width: width, Height: height, Kind: kind, B: 1.0 / 3, C: 1.0 / 3, Taps: MaxLanczosTaps}
}

// Returns the 1D filter for the 4-tap kernels
func (r Request) Filter() kernel.Filter {
	if r.Kind == kernel.Lanczos4 {
		taps := r.Taps
		if taps == 0 {
			taps = MaxLanczosTaps
		}
		return kernel.Lanczos{A: taps}
	}
	return kernel.Mitchell{B: r.B, C: r.C}
}

// Checks the request against the given source grid. Does not allocate
func (r Request) Validate(src *grid.Grid) error {
	if src == nil || src.Width <= 0 || src.Height <= 0 {
		return fmt.Errorf("%w: empty source", grid.ErrInvalidDimension)
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: target %dx%d", grid.ErrInvalidDimension, r.Width, r.Height)
	}
	switch r.Kind {
	case kernel.Nearest, kernel.Bilinear:
	case kernel.Cubic:
		if math.IsNaN(r.B) || math.IsInf(r.B, 0) || math.IsNaN(r.C) || math.IsInf(r.C, 0) {
			return fmt.Errorf("%w: B=%g C=%g", grid.ErrOutOfRange, r.B, r.C)
		}
	case kernel.Lanczos4:
		if r.Taps < 0 || r.Taps > MaxLanczosTaps {
			return fmt.Errorf("%w: lanczos taps %d not in [1,%d]", grid.ErrOutOfRange, r.Taps, MaxLanczosTaps)
		}
	default:
		return fmt.Errorf("%w: kernel %v", grid.ErrOutOfRange, r.Kind)
	}
	if r.Kind.FourTap() && src.Channels != 3 {
		return fmt.Errorf("%w: %v kernel needs 3 channels, have %d", grid.ErrChannelMismatch, r.Kind, src.Channels)
	}
	return nil
}

// Resamples the source grid as requested, dispatching destination rows to at most
// maxThreads goroutines. Returns a new grid with the source's channel count and depth.
// The source is not modified
func Resample(src *grid.Grid, req Request, maxThreads int) (*grid.Grid, error) {
	if err := req.Validate(src); err != nil {
		return nil, err
	}
	dst, err := grid.New(req.Width, req.Height, src.Channels, src.Depth, nil)
	if err != nil {
		return nil, err
	}
	dst.ID, dst.FileName = src.ID, src.FileName

	switch req.Kind {
	case kernel.Nearest:
		nearest(dst, src, maxThreads)
	case kernel.Bilinear:
		bilinear(dst, src, maxThreads)
	default:
		fourTap(dst, src, req.Filter(), maxThreads)
	}
	return dst, nil
}

// Scale factor (n-1)/(t-1) between source and target, 0 for a target of size 1
func ratio(sourceN, targetN int) float64 {
	if targetN <= 1 {
		return 0
	}
	return float64(sourceN-1) / float64(targetN-1)
}

// Clamps to [0, maxVal] and rounds to the nearest integer sample
func toSample(v float64, maxVal uint16) uint16 {
	if !(v > 0) { // also catches NaN
		return 0
	}
	if v >= float64(maxVal) {
		return maxVal
	}
	return uint16(math.Round(v))
}

func nearest(dst, src *grid.Grid, maxThreads int) {
	xScale := float64(src.Width) / float64(dst.Width)
	yScale := float64(src.Height) / float64(dst.Height)
	xs := make([]int, dst.Width)
	for x := range xs {
		xs[x] = kernel.NearestIndex(x, xScale, src.Width)
	}
	ch := src.Channels

	grid.ForEachRowBatch(dst.Height, dst.Width*ch*2, maxThreads, func(lower, upper int) {
		for y := lower; y < upper; y++ {
			srcRow := kernel.NearestIndex(y, yScale, src.Height) * src.Width * ch
			dstRow := y * dst.Width * ch
			for x, sx := range xs {
				copy(dst.Data[dstRow+x*ch:dstRow+(x+1)*ch], src.Data[srcRow+sx*ch:srcRow+(sx+1)*ch])
			}
		}
	})
}

// Per-axis sample positions for the 2-tap case: floor index, ceil index clamped
// to the last valid one, and fractional offset
type axis2 struct {
	lo, hi []int
	frac   []float64
}

func newAxis2(sourceN, targetN int) axis2 {
	r := ratio(sourceN, targetN)
	a := axis2{lo: make([]int, targetN), hi: make([]int, targetN), frac: make([]float64, targetN)}
	for i := 0; i < targetN; i++ {
		pos := r * float64(i)
		f := math.Floor(pos)
		lo := int(f)
		if lo > sourceN-1 {
			lo = sourceN - 1
		}
		hi := int(math.Ceil(pos))
		if hi > sourceN-1 {
			hi = sourceN - 1
		}
		a.lo[i], a.hi[i], a.frac[i] = lo, hi, pos-f
	}
	return a
}

func bilinear(dst, src *grid.Grid, maxThreads int) {
	xa := newAxis2(src.Width, dst.Width)
	ya := newAxis2(src.Height, dst.Height)
	ch := src.Channels
	maxVal := src.MaxValue()
	sd := src.Data

	grid.ForEachRowBatch(dst.Height, dst.Width*ch*2, maxThreads, func(lower, upper int) {
		for y := lower; y < upper; y++ {
			top, bottom := ya.lo[y]*src.Width, ya.hi[y]*src.Width
			fy := ya.frac[y]
			o := y * dst.Width * ch
			for x := 0; x < dst.Width; x++ {
				w := kernel.BilinearWeights(xa.frac[x], fy)
				tl, tr := (top+xa.lo[x])*ch, (top+xa.hi[x])*ch
				bl, br := (bottom+xa.lo[x])*ch, (bottom+xa.hi[x])*ch
				for c := 0; c < ch; c++ {
					v := w[0]*float64(sd[tl+c]) + w[1]*float64(sd[tr+c]) +
						w[2]*float64(sd[bl+c]) + w[3]*float64(sd[br+c])
					dst.Data[o] = toSample(v, maxVal)
					o++
				}
			}
		}
	})
}

// Per-axis sample positions for the 4-tap case: first of four indices into the
// padded plane, and the four weights
type axis4 struct {
	first   []int
	weights [][4]float64
}

func newAxis4(sourceN, targetN int, f kernel.Filter) axis4 {
	r := ratio(sourceN, targetN)
	a := axis4{first: make([]int, targetN), weights: make([][4]float64, targetN)}
	for i := 0; i < targetN; i++ {
		pos := r*float64(i) + Padding
		fl := math.Floor(pos)
		first := int(fl) - 1
		if last := sourceN + 2*Padding - 4; first > last {
			first = last
		}
		a.first[i] = first
		a.weights[i] = kernel.Weights4(f, pos-fl)
	}
	return a
}

// Copies one channel of the grid into a plane with a border of Padding samples
// on each side, replicating edge samples. The result comes from the pool
func padChannel(g *grid.Grid, c int) []float32 {
	pw, ph := g.Width+2*Padding, g.Height+2*Padding
	p := grid.GetArrayOfFloat32FromPool(pw * ph)
	for py := 0; py < ph; py++ {
		sy := clampIndex(py-Padding, g.Height)
		row := sy * g.Width
		for px := 0; px < pw; px++ {
			sx := clampIndex(px-Padding, g.Width)
			p[py*pw+px] = float32(g.Data[(row+sx)*g.Channels+c])
		}
	}
	return p
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func fourTap(dst, src *grid.Grid, f kernel.Filter, maxThreads int) {
	xa := newAxis4(src.Width, dst.Width, f)
	ya := newAxis4(src.Height, dst.Height, f)
	ch := src.Channels
	maxVal := src.MaxValue()
	pw := src.Width + 2*Padding

	planes := make([][]float32, ch)
	for c := range planes {
		planes[c] = padChannel(src, c)
	}
	defer func() {
		for _, p := range planes {
			grid.PutArrayOfFloat32IntoPool(p)
		}
	}()

	grid.ForEachRowBatch(dst.Height, dst.Width*ch*2, maxThreads, func(lower, upper int) {
		for y := lower; y < upper; y++ {
			wy := ya.weights[y]
			rowStart := ya.first[y] * pw
			o := y * dst.Width * ch
			for x := 0; x < dst.Width; x++ {
				wx := xa.weights[x]
				start := rowStart + xa.first[x]
				for c := 0; c < ch; c++ {
					p := planes[c]
					sum := 0.0
					for j := 0; j < 4; j++ {
						r := p[start+j*pw : start+j*pw+4]
						sum += wy[j] * (wx[0]*float64(r[0]) + wx[1]*float64(r[1]) +
							wx[2]*float64(r[2]) + wx[3]*float64(r[3]))
					}
					dst.Data[o] = toSample(sum, maxVal)
					o++
				}
			}
		}
	})
}
