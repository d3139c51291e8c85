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

package resample

import (
	"errors"
	"math"
	"testing"

	"github.com/mlnoga/imgedit/internal/grid"
	"github.com/mlnoga/imgedit/internal/kernel"
	"github.com/valyala/fastrand"
)

// Creates a grid filled with random samples of the given depth
func randomGrid(t *testing.T, rng *fastrand.RNG, w, h, ch int, depth grid.Depth) *grid.Grid {
	data := make([]uint16, w*h*ch)
	levels := uint32(depth.Levels())
	for i := range data {
		data[i] = uint16(rng.Uint32n(levels))
	}
	g, err := grid.New(w, h, ch, depth, data)
	if err != nil {
		t.Fatalf("random grid: %s", err)
	}
	return g
}

func mustGrid(t *testing.T, w, h, ch int, depth grid.Depth, data []uint16) *grid.Grid {
	g, err := grid.New(w, h, ch, depth, data)
	if err != nil {
		t.Fatalf("grid: %s", err)
	}
	return g
}

var allKinds = []kernel.Kind{kernel.Nearest, kernel.Bilinear, kernel.Cubic, kernel.Lanczos4}

func TestNearestIdentity(t *testing.T) {
	rng := fastrand.RNG{}
	for _, tc := range []struct {
		W, H, Ch int
		Depth    grid.Depth
	}{
		{1, 1, 1, grid.Depth8}, {7, 5, 1, grid.Depth8}, {16, 9, 3, grid.Depth16}, {3, 11, 3, grid.Depth8},
	} {
		src := randomGrid(t, &rng, tc.W, tc.H, tc.Ch, tc.Depth)
		dst, err := Resample(src, NewRequest(tc.W, tc.H, kernel.Nearest), 1)
		if err != nil {
			t.Fatalf("%v: %s", tc, err)
		}
		if !dst.Equal(src) {
			t.Errorf("nearest resample of %s to same size is not the identity", src.DimensionsToString())
		}
	}
}

func TestShapeAndRange(t *testing.T) {
	rng := fastrand.RNG{}
	src := randomGrid(t, &rng, 13, 9, 3, grid.Depth8)
	orig := src.Clone()
	sizes := [][2]int{{1, 1}, {5, 3}, {13, 9}, {26, 18}, {40, 7}, {2, 30}}
	for _, kind := range allKinds {
		for _, sz := range sizes {
			dst, err := Resample(src, NewRequest(sz[0], sz[1], kind), 4)
			if err != nil {
				t.Fatalf("%v to %dx%d: %s", kind, sz[0], sz[1], err)
			}
			if dst.Width != sz[0] || dst.Height != sz[1] || dst.Channels != 3 || dst.Depth != grid.Depth8 {
				t.Errorf("%v to %dx%d gave %s", kind, sz[0], sz[1], dst.DimensionsToString())
			}
			if len(dst.Data) != sz[0]*sz[1]*3 {
				t.Errorf("%v to %dx%d has %d samples", kind, sz[0], sz[1], len(dst.Data))
			}
			for i, v := range dst.Data {
				if v > 255 {
					t.Fatalf("%v to %dx%d sample %d is %d, exceeds 8 bits", kind, sz[0], sz[1], i, v)
				}
			}
		}
	}
	if !src.Equal(orig) {
		t.Errorf("resampling modified its source")
	}
}

func TestBilinearSinglePixelTarget(t *testing.T) {
	src := mustGrid(t, 2, 2, 1, grid.Depth8, []uint16{0, 0, 0, 255})
	dst, err := Resample(src, NewRequest(1, 1, kernel.Bilinear), 1)
	if err != nil {
		t.Fatal(err)
	}
	if dst.Data[0] != 0 {
		t.Errorf("got %d; want 0", dst.Data[0])
	}
}

func TestBilinearUpscale(t *testing.T) {
	src := mustGrid(t, 2, 1, 1, grid.Depth8, []uint16{0, 100})
	dst, err := Resample(src, NewRequest(3, 1, kernel.Bilinear), 1)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint16{0, 50, 100}
	if !grid.EqualUint16Slice(dst.Data, want) {
		t.Errorf("got %v; want %v", dst.Data, want)
	}
}

func TestNearestDownscale(t *testing.T) {
	src := mustGrid(t, 4, 1, 1, grid.Depth8, []uint16{10, 20, 30, 40})
	dst, err := Resample(src, NewRequest(2, 1, kernel.Nearest), 1)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint16{10, 30}
	if !grid.EqualUint16Slice(dst.Data, want) {
		t.Errorf("got %v; want %v", dst.Data, want)
	}

	// upscaling reaches the last column through the boundary clamp
	dst, err = Resample(src, NewRequest(3, 1, kernel.Nearest), 1)
	if err != nil {
		t.Fatal(err)
	}
	want = []uint16{10, 30, 40}
	if !grid.EqualUint16Slice(dst.Data, want) {
		t.Errorf("got %v; want %v", dst.Data, want)
	}
}

func TestFourTapSameSizeIdentity(t *testing.T) {
	rng := fastrand.RNG{}
	src := randomGrid(t, &rng, 11, 8, 3, grid.Depth16)
	reqs := []Request{
		{Width: 11, Height: 8, Kind: kernel.Cubic, B: 0, C: 0.5},
		{Width: 11, Height: 8, Kind: kernel.Cubic, B: 0, C: 0},
		{Width: 11, Height: 8, Kind: kernel.Lanczos4, Taps: 2},
	}
	for _, req := range reqs {
		dst, err := Resample(src, req, 1)
		if err != nil {
			t.Fatalf("%+v: %s", req, err)
		}
		if !dst.Equal(src) {
			t.Errorf("%+v at same size does not reproduce the source", req)
		}
	}
}

func TestConstantStaysConstant(t *testing.T) {
	data := make([]uint16, 6*4*3)
	for i := range data {
		data[i] = 100
	}
	src := mustGrid(t, 6, 4, 3, grid.Depth8, data)
	for _, kind := range []kernel.Kind{kernel.Nearest, kernel.Bilinear, kernel.Cubic} {
		dst, err := Resample(src, NewRequest(17, 9, kind), 2)
		if err != nil {
			t.Fatal(err)
		}
		for i, v := range dst.Data {
			if v != 100 {
				t.Fatalf("%v sample %d is %d; want 100", kind, i, v)
			}
		}
	}
}

func TestParallelEqualsSerial(t *testing.T) {
	rng := fastrand.RNG{}
	src := randomGrid(t, &rng, 37, 29, 3, grid.Depth16)
	for _, kind := range allKinds {
		req := NewRequest(61, 83, kind)
		serial, err := Resample(src, req, 1)
		if err != nil {
			t.Fatal(err)
		}
		parallel, err := Resample(src, req, 8)
		if err != nil {
			t.Fatal(err)
		}
		if !serial.Equal(parallel) {
			t.Errorf("%v: parallel result differs from serial", kind)
		}
	}
}

func TestErrors(t *testing.T) {
	rgb := mustGrid(t, 4, 4, 3, grid.Depth8, nil)
	gray := mustGrid(t, 4, 4, 1, grid.Depth8, nil)
	tcs := []struct {
		Name string
		Src  *grid.Grid
		Req  Request
		Want error
	}{
		{"zero width", rgb, NewRequest(0, 4, kernel.Bilinear), grid.ErrInvalidDimension},
		{"negative height", rgb, NewRequest(4, -1, kernel.Nearest), grid.ErrInvalidDimension},
		{"nil source", nil, NewRequest(4, 4, kernel.Nearest), grid.ErrInvalidDimension},
		{"cubic on gray", gray, NewRequest(8, 8, kernel.Cubic), grid.ErrChannelMismatch},
		{"lanczos on gray", gray, NewRequest(8, 8, kernel.Lanczos4), grid.ErrChannelMismatch},
		{"lanczos taps", rgb, Request{Width: 8, Height: 8, Kind: kernel.Lanczos4, Taps: 3}, grid.ErrOutOfRange},
		{"cubic NaN", rgb, Request{Width: 8, Height: 8, Kind: kernel.Cubic, B: math.NaN()}, grid.ErrOutOfRange},
		{"unknown kernel", rgb, Request{Width: 8, Height: 8, Kind: kernel.Kind(7)}, grid.ErrOutOfRange},
	}
	for _, tc := range tcs {
		dst, err := Resample(tc.Src, tc.Req, 1)
		if !errors.Is(err, tc.Want) {
			t.Errorf("%s: got error %v; want %v", tc.Name, err, tc.Want)
		}
		if dst != nil {
			t.Errorf("%s: got a result alongside the error", tc.Name)
		}
	}

	// bilinear and nearest accept any channel count
	for _, kind := range []kernel.Kind{kernel.Nearest, kernel.Bilinear} {
		if _, err := Resample(gray, NewRequest(3, 5, kind), 1); err != nil {
			t.Errorf("%v on gray: %s", kind, err)
		}
	}
}

func TestToSample(t *testing.T) {
	tcs := []struct {
		V    float64
		Max  uint16
		Want uint16
	}{
		{-3.2, 255, 0}, {0.49, 255, 0}, {0.5, 255, 1}, {254.4, 255, 254}, {300, 255, 255},
		{math.NaN(), 255, 0}, {70000, 65535, 65535},
	}
	for _, tc := range tcs {
		if got := toSample(tc.V, tc.Max); got != tc.Want {
			t.Errorf("toSample(%g, %d)=%d; want %d", tc.V, tc.Max, got, tc.Want)
		}
	}
}

func TestNearestKeepsPalette(t *testing.T) {
	rng := fastrand.RNG{}
	src := randomGrid(t, &rng, 23, 19, 3, grid.Depth8)
	palette := map[uint16]bool{}
	for _, d := range src.Data {
		palette[d] = true
	}

	down, err := Resample(src, NewRequest(7, 5, kernel.Nearest), 2)
	if err != nil {
		t.Fatal(err)
	}
	up, err := Resample(down, NewRequest(23, 19, kernel.Nearest), 2)
	if err != nil {
		t.Fatal(err)
	}
	for _, g := range []*grid.Grid{down, up} {
		for i, d := range g.Data {
			if !palette[d] {
				t.Fatalf("%s: sample %d has value %d not present in the source", g.DimensionsToString(), i, d)
			}
		}
	}
}

// The padded 4-tap path with a tent filter computes bilinear interpolation,
// up to rounding of ties over float32 planes
func TestFourTapTentMatchesBilinear(t *testing.T) {
	rng := fastrand.RNG{}
	src := randomGrid(t, &rng, 23, 19, 3, grid.Depth8)
	for _, size := range [][2]int{{17, 29}, {23, 19}, {9, 4}} {
		want := mustGrid(t, size[0], size[1], 3, grid.Depth8, nil)
		got := mustGrid(t, size[0], size[1], 3, grid.Depth8, nil)
		bilinear(want, src, 1)
		fourTap(got, src, kernel.Tent{}, 1)
		for i := range want.Data {
			if d := int(got.Data[i]) - int(want.Data[i]); d < -1 || d > 1 {
				t.Errorf("%dx%d sample %d: tent %d, bilinear %d", size[0], size[1], i, got.Data[i], want.Data[i])
			}
		}
	}
}
