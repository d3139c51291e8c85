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

// Set of channel indices to zero out. Bit i set means channel i is cleared
type ChannelMask uint8

// Mask clearing exactly the given channels
func MaskOf(channels ...int) (ChannelMask, error) {
	var m ChannelMask
	for _, c := range channels {
		if c < 0 || c > 3 {
			return 0, fmt.Errorf("%w: channel index %d", ErrChannelMismatch, c)
		}
		m |= 1 << uint(c)
	}
	return m, nil
}

// Parses a keep-list of channel letters such as "r", "gb" or "hl" into the mask which
// clears all other channels of a 3-channel grid. Letters map by position within their
// family, i.e. r/h=0, g/l=1, b/s=2.
func ParseChannelMask(keep string) (ChannelMask, error) {
	keep = strings.ToLower(strings.TrimSpace(keep))
	if keep == "" {
		return 0, fmt.Errorf("%w: empty channel list", ErrChannelMismatch)
	}
	var kept ChannelMask
	for _, r := range keep {
		idx := strings.IndexRune("rgb", r)
		if idx < 0 {
			idx = strings.IndexRune("hls", r)
		}
		if idx < 0 {
			return 0, fmt.Errorf("%w: unknown channel '%c' in '%s'", ErrChannelMismatch, r, keep)
		}
		kept |= 1 << uint(idx)
	}
	return ^kept & 0x7, nil
}

func (m ChannelMask) Clears(c int) bool {
	return m&(1<<uint(c)) != 0
}

func (m ChannelMask) String() string {
	b := strings.Builder{}
	for c := 0; c < 8; c++ {
		if m.Clears(c) {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "%d", c)
		}
	}
	return "[" + b.String() + "]"
}

// Returns a new grid with the masked channels set to zero
func (g *Grid) MaskChannels(m ChannelMask) (*Grid, error) {
	for c := g.Channels; c < 8; c++ {
		if m.Clears(c) {
			return nil, fmt.Errorf("%w: mask %v on %d channels", ErrChannelMismatch, m, g.Channels)
		}
	}
	res := g.Clone()
	for c := 0; c < g.Channels; c++ {
		if !m.Clears(c) {
			continue
		}
		for i := c; i < len(res.Data); i += g.Channels {
			res.Data[i] = 0
		}
	}
	return res, nil
}
