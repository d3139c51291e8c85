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

package grid

import (
	"fmt"
	"strings"
)

// Sample depth in bits. Samples are stored as uint16 regardless of depth
type Depth uint8

const (
	Depth8  Depth = 8
	Depth16 Depth = 16
)

// Largest representable sample value for this depth, i.e. 2^depth-1
func (d Depth) MaxValue() uint16 {
	if d == Depth8 {
		return 255
	}
	return 65535
}

// Number of histogram buckets for this depth, i.e. 2^depth
func (d Depth) Levels() int {
	return int(d.MaxValue()) + 1
}

func (d Depth) Valid() bool {
	return d == Depth8 || d == Depth16
}

// A decoded image.
// Samples are stored row-major with interleaved channels, i.e. sample c of pixel (x,y)
// lives at Data[(y*Width+x)*Channels+c]. A grid is never modified once a transform
// has returned it; transforms allocate a new grid instead.
type Grid struct {
	ID       int    // Sequential ID number, for log output
	FileName string // Original file name, if any, for log output

	Width    int      // Number of columns, >0
	Height   int      // Number of rows, >0
	Channels int      // 1 for grayscale, 3 for RGB-family data
	Depth    Depth    // Bits per sample, 8 or 16
	Data     []uint16 // The samples, len(Data)==Width*Height*Channels
}

// Creates a grid from given dimensions. Data is not copied, allocated if nil.
// Returns an error if the dimensions, depth, data length or sample range are invalid
func New(width, height, channels int, depth Depth, data []uint16) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimension, width, height)
	}
	if channels != 1 && channels != 3 && channels != 4 {
		return nil, fmt.Errorf("%w: %d channels", ErrChannelMismatch, channels)
	}
	if !depth.Valid() {
		return nil, fmt.Errorf("%w: depth %d", ErrInvalidSample, depth)
	}
	size := width * height * channels
	if data == nil {
		data = make([]uint16, size)
	} else if len(data) != size {
		return nil, fmt.Errorf("%w: %d samples for %dx%dx%d", ErrInvalidDimension, len(data), width, height, channels)
	} else if depth != Depth16 {
		maxVal := depth.MaxValue()
		for i, d := range data {
			if d > maxVal {
				return nil, fmt.Errorf("%w: sample %d at %d exceeds %d", ErrInvalidSample, d, i, maxVal)
			}
		}
	}
	return &Grid{
		Width:    width,
		Height:   height,
		Channels: channels,
		Depth:    depth,
		Data:     data,
	}, nil
}

// Allocates an empty grid with the same shape and bookkeeping as the given one
func NewGridFromGrid(g *Grid) *Grid {
	return &Grid{
		ID:       g.ID,
		FileName: g.FileName,
		Width:    g.Width,
		Height:   g.Height,
		Channels: g.Channels,
		Depth:    g.Depth,
		Data:     make([]uint16, len(g.Data)),
	}
}

// Deep copy
func (g *Grid) Clone() *Grid {
	c := NewGridFromGrid(g)
	copy(c.Data, g.Data)
	return c
}

// Number of pixels, i.e. Width*Height
func (g *Grid) Pixels() int {
	return g.Width * g.Height
}

// Number of channels carrying color or gray values. A fourth channel is alpha
func (g *Grid) ColorChannels() int {
	if g.Channels == 4 {
		return 3
	}
	return g.Channels
}

func (g *Grid) MaxValue() uint16 {
	return g.Depth.MaxValue()
}

// Returns sample c of pixel (x,y)
func (g *Grid) At(x, y, c int) uint16 {
	return g.Data[(y*g.Width+x)*g.Channels+c]
}

func (g *Grid) DimensionsToString() string {
	b := strings.Builder{}
	fmt.Fprintf(&b, "%dx%d", g.Width, g.Height)
	if g.Channels > 1 {
		fmt.Fprintf(&b, "x%d", g.Channels)
	}
	fmt.Fprintf(&b, "@%dbit", g.Depth)
	return b.String()
}

// True if both grids have the same shape and samples
func (g *Grid) Equal(o *Grid) bool {
	if g.Width != o.Width || g.Height != o.Height || g.Channels != o.Channels || g.Depth != o.Depth {
		return false
	}
	return EqualUint16Slice(g.Data, o.Data)
}

// A single channel of a grid
type Plane struct {
	Width  int
	Height int
	Depth  Depth
	Data   []uint16 // row-major, len(Data)==Width*Height
}

// Creates a plane. Data is not copied, allocated if nil
func NewPlane(width, height int, depth Depth, data []uint16) (*Plane, error) {
	g, err := New(width, height, 1, depth, data)
	if err != nil {
		return nil, err
	}
	return &Plane{Width: g.Width, Height: g.Height, Depth: g.Depth, Data: g.Data}, nil
}

// Extracts the given channel into a new plane
func (g *Grid) Plane(channel int) (*Plane, error) {
	if channel < 0 || channel >= g.Channels {
		return nil, fmt.Errorf("%w: channel %d of %d", ErrChannelMismatch, channel, g.Channels)
	}
	p := &Plane{Width: g.Width, Height: g.Height, Depth: g.Depth, Data: make([]uint16, g.Pixels())}
	for i, o := 0, channel; i < len(p.Data); i, o = i+1, o+g.Channels {
		p.Data[i] = g.Data[o]
	}
	return p, nil
}

// Extracts all channels into planes
func (g *Grid) Planes() []*Plane {
	planes := make([]*Plane, g.Channels)
	for c := range planes {
		planes[c], _ = g.Plane(c)
	}
	return planes
}

// Interleaves the given planes into a new grid. All planes must share dimensions and depth
func NewGridFromPlanes(planes []*Plane) (*Grid, error) {
	if len(planes) == 0 {
		return nil, fmt.Errorf("%w: no planes", ErrChannelMismatch)
	}
	first := planes[0]
	for i, p := range planes[1:] {
		if p.Width != first.Width || p.Height != first.Height || p.Depth != first.Depth {
			return nil, fmt.Errorf("%w: plane %d is %dx%d@%d, plane 0 is %dx%d@%d", ErrInvalidDimension,
				i+1, p.Width, p.Height, p.Depth, first.Width, first.Height, first.Depth)
		}
	}
	g, err := New(first.Width, first.Height, len(planes), first.Depth, nil)
	if err != nil {
		return nil, err
	}
	for c, p := range planes {
		for i, o := 0, c; i < len(p.Data); i, o = i+1, o+g.Channels {
			g.Data[o] = p.Data[i]
		}
	}
	return g, nil
}

// Equal tells whether a and b contain the same elements.
// A nil argument is equivalent to an empty slice.
func EqualUint16Slice(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if v != b[i] {
			return false
		}
	}
	return true
}
