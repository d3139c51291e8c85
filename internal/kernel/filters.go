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

package kernel

// A 1D interpolation filter
type Filter interface {
	Taps() int             // support radius in source samples
	Get(x float64) float64 // weight at signed distance x
}

// Triangle filter, 1-|x| on [-1,1]. The 1D factor of bilinear interpolation
type Tent struct{}

func (Tent) Taps() int { return 1 }

func (Tent) Get(x float64) float64 {
	if x < 0 {
		x = -x
	}
	if x < 1 {
		return 1 - x
	}
	return 0
}

// Mitchell-Netravali cubic filter with shape parameters B and C
type Mitchell struct {
	B, C float64
}

func (Mitchell) Taps() int { return 2 }

func (f Mitchell) Get(x float64) float64 { return CubicWeight(x, f.B, f.C) }

// Lanczos windowed sinc filter with support radius A
type Lanczos struct {
	A int
}

func (f Lanczos) Taps() int { return f.A }

func (f Lanczos) Get(x float64) float64 { return LanczosWeight(x, f.A) }

// Weights of the 4-tap neighborhood floor(x)-1 .. floor(x)+2 for a coordinate with
// fractional part frac, i.e. the filter evaluated at 1+frac, frac, 1-frac and 2-frac
func Weights4(f Filter, frac float64) [4]float64 {
	return [4]float64{
		f.Get(1 + frac),
		f.Get(frac),
		f.Get(1 - frac),
		f.Get(2 - frac),
	}
}
