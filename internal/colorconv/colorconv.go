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

// Package colorconv reduces RGB grids to a single luma plane
package colorconv

import (
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mlnoga/imgedit/internal/grid"
)

// Weighting used to reduce RGB to gray
type LumaMode int

const (
	Rec601 LumaMode = iota // 0.299 R + 0.587 G + 0.114 B, as OpenCV's RGB2GRAY
	Rec709                 // 0.2126 R + 0.7152 G + 0.0722 B
	LStar                  // CIE L* lightness, D65 white point
)

var lumaModeNames = [...]string{"rec601", "rec709", "lstar"}

func (m LumaMode) String() string {
	if m < 0 || int(m) >= len(lumaModeNames) {
		return fmt.Sprintf("LumaMode(%d)", int(m))
	}
	return lumaModeNames[m]
}

func ParseLumaMode(s string) (LumaMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rec601", "601":
		return Rec601, nil
	case "rec709", "709":
		return Rec709, nil
	case "lstar", "l*", "lab":
		return LStar, nil
	}
	return 0, fmt.Errorf("%w: unknown luma mode '%s'", grid.ErrOutOfRange, s)
}

func (m LumaMode) MarshalText() ([]byte, error) {
	if m < 0 || int(m) >= len(lumaModeNames) {
		return nil, fmt.Errorf("unknown luma mode %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *LumaMode) UnmarshalText(text []byte) error {
	parsed, err := ParseLumaMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Luma of normalized r, g, b in [0,1], result in [0,1]
func (m LumaMode) Luma(r, g, b float64) float64 {
	switch m {
	case Rec709:
		return 0.2126*r + 0.7152*g + 0.0722*b
	case LStar:
		l, _, _ := colorful.Color{R: r, G: g, B: b}.Lab()
		return l
	default:
		return 0.299*r + 0.587*g + 0.114*b
	}
}

// Derives a gray plane from the first three channels of the grid, preserving depth.
// A single channel grid yields a copy of its only plane
func GrayPlane(g *grid.Grid, mode LumaMode) (*grid.Plane, error) {
	if g.Channels == 1 {
		return g.Plane(0)
	}
	if g.Channels < 3 {
		return nil, fmt.Errorf("%w: luma needs 3 channels, have %d", grid.ErrChannelMismatch, g.Channels)
	}
	if mode < Rec601 || mode > LStar {
		return nil, fmt.Errorf("%w: luma mode %d", grid.ErrOutOfRange, int(mode))
	}

	maxVal := float64(g.MaxValue())
	scale := 1 / maxVal
	p := &grid.Plane{Width: g.Width, Height: g.Height, Depth: g.Depth, Data: make([]uint16, g.Pixels())}
	for i, o := 0, 0; i < len(p.Data); i, o = i+1, o+g.Channels {
		r := float64(g.Data[o]) * scale
		gr := float64(g.Data[o+1]) * scale
		b := float64(g.Data[o+2]) * scale
		v := math.Round(mode.Luma(r, gr, b) * maxVal)
		if v < 0 {
			v = 0
		} else if v > maxVal {
			v = maxVal
		}
		p.Data[i] = uint16(v)
	}
	return p, nil
}
