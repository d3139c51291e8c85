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
	"image"
	"image/color"
)

// Converts a decoded Go image into a grid. Gray images become single channel,
// everything else three channel RGB with alpha dropped. 16-bit color models keep
// 16-bit depth, all others are 8-bit.
func NewGridFromImage(img image.Image) (*Grid, error) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: decoded image is %dx%d", ErrInvalidDimension, width, height)
	}

	switch img.ColorModel() {
	case color.GrayModel:
		g, _ := New(width, height, 1, Depth8, nil)
		if gray, ok := img.(*image.Gray); ok {
			for y := 0; y < height; y++ {
				row := gray.Pix[y*gray.Stride : y*gray.Stride+width]
				for x, v := range row {
					g.Data[y*width+x] = uint16(v)
				}
			}
			return g, nil
		}
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
				g.Data[y*width+x] = uint16(c.Y)
			}
		}
		return g, nil

	case color.Gray16Model:
		g, _ := New(width, height, 1, Depth16, nil)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
				g.Data[y*width+x] = c.Y
			}
		}
		return g, nil

	case color.RGBA64Model, color.NRGBA64Model:
		g, _ := New(width, height, 3, Depth16, nil)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := color.NRGBA64Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
				o := (y*width + x) * 3
				g.Data[o], g.Data[o+1], g.Data[o+2] = c.R, c.G, c.B
			}
		}
		return g, nil
	}

	g, _ := New(width, height, 3, Depth8, nil)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			o := (y*width + x) * 3
			g.Data[o], g.Data[o+1], g.Data[o+2] = uint16(c.R), uint16(c.G), uint16(c.B)
		}
	}
	return g, nil
}

// Converts the grid into a Go image for encoding or display. Single channel grids
// become Gray or Gray16, three channel grids opaque NRGBA or NRGBA64. A fourth
// channel is used as alpha.
func (g *Grid) ToImage() image.Image {
	rect := image.Rect(0, 0, g.Width, g.Height)
	ch := g.Channels

	if ch == 1 {
		if g.Depth == Depth8 {
			img := image.NewGray(rect)
			for i, d := range g.Data {
				img.Pix[i] = uint8(d)
			}
			return img
		}
		img := image.NewGray16(rect)
		for i, d := range g.Data {
			img.Pix[2*i], img.Pix[2*i+1] = uint8(d>>8), uint8(d)
		}
		return img
	}

	if g.Depth == Depth8 {
		img := image.NewNRGBA(rect)
		for i, o := 0, 0; i < len(img.Pix); i, o = i+4, o+ch {
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = uint8(g.Data[o]), uint8(g.Data[o+1]), uint8(g.Data[o+2]), 255
			if ch == 4 {
				img.Pix[i+3] = uint8(g.Data[o+3])
			}
		}
		return img
	}

	img := image.NewNRGBA64(rect)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			o := (y*g.Width + x) * ch
			c := color.NRGBA64{R: g.Data[o], G: g.Data[o+1], B: g.Data[o+2], A: 65535}
			if ch == 4 {
				c.A = g.Data[o+3]
			}
			img.SetNRGBA64(x, y, c)
		}
	}
	return img
}
