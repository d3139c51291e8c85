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

// Returns a new grid rotated by 90 degrees counter-clockwise
func (g *Grid) Rotate90() *Grid {
	res := NewGridFromGrid(g)
	res.Width, res.Height = g.Height, g.Width
	ch := g.Channels
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			src := (y*g.Width + x) * ch
			dst := ((g.Width-1-x)*res.Width + y) * ch
			copy(res.Data[dst:dst+ch], g.Data[src:src+ch])
		}
	}
	return res
}

// Returns a new grid mirrored left to right
func (g *Grid) FlipHorizontal() *Grid {
	res := NewGridFromGrid(g)
	ch := g.Channels
	for y := 0; y < g.Height; y++ {
		row := y * g.Width
		for x := 0; x < g.Width; x++ {
			src := (row + x) * ch
			dst := (row + g.Width - 1 - x) * ch
			copy(res.Data[dst:dst+ch], g.Data[src:src+ch])
		}
	}
	return res
}
