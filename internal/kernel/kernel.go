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

// Package kernel provides the interpolation weight functions used for resampling.
// All functions are pure and safe for concurrent use.
package kernel

import "math"

// Weight of the box filter: 1 within half a sample of the center, else 0
func BoxWeight(distance float64) float64 {
	if distance > -0.5 && distance <= 0.5 {
		return 1
	}
	return 0
}

// Maps destination index i to a source index for nearest neighbor sampling with the
// given scale (source size / destination size). Rounds up, and substitutes the last
// valid index n-1 where the scaled index reaches n
func NearestIndex(i int, scale float64, n int) int {
	idx := int(math.Ceil(float64(i) * scale))
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// Weights of the 2x2 neighborhood for fractional offsets fx, fy in [0,1).
// Order is top left, top right, bottom left, bottom right
func BilinearWeights(fx, fy float64) [4]float64 {
	return [4]float64{
		(1 - fx) * (1 - fy),
		fx * (1 - fy),
		(1 - fx) * fy,
		fx * fy,
	}
}

// Mitchell-Netravali piecewise cubic with shape parameters b and c, evaluated on |x|.
// Zero outside the support radius 2. B=1/3, C=1/3 is the Mitchell filter,
// B=0, C=0.5 Catmull-Rom, B=1, C=0 the cubic B-spline
func CubicWeight(x, b, c float64) float64 {
	x = math.Abs(x)
	if x < 1 {
		return ((12-9*b-6*c)*x*x*x + (-18+12*b+6*c)*x*x + (6 - 2*b)) / 6
	} else if x < 2 {
		return ((-b-6*c)*x*x*x + (6*b+30*c)*x*x + (-12*b-48*c)*x + (8*b + 24*c)) / 6
	}
	return 0
}

// Normalized sinc, sin(pi t)/(pi t) with Sinc(0)=1
func Sinc(t float64) float64 {
	if t == 0 {
		return 1
	}
	pt := math.Pi * t
	return math.Sin(pt) / pt
}

// Lanczos windowed sinc with support radius a: sinc(x)*sinc(x/a) for |x|<a, else 0
func LanczosWeight(x float64, a int) float64 {
	if a <= 0 {
		return 0
	}
	fa := float64(a)
	if math.Abs(x) >= fa {
		return 0
	}
	return Sinc(x) * Sinc(x/fa)
}
