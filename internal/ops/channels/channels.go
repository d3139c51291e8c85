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

package channels

import (
	"encoding/json"
	"fmt"

	"github.com/mlnoga/imgedit/internal/grid"
	"github.com/mlnoga/imgedit/internal/ops"
)

// Zeroes all channels not named in a keep-list such as "r", "gb" or "hl".
// Alternatively, Clear lists channel indices to zero explicitly
type OpChannelMask struct {
	ops.OpBase
	Keep  string `json:"keep,omitempty"`
	Clear []int  `json:"clear,omitempty"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpChannelMaskDefault() }) } // register the operator for JSON decoding

func NewOpChannelMaskDefault() *OpChannelMask { return NewOpChannelMask("") }

func NewOpChannelMask(keep string) *OpChannelMask {
	return &OpChannelMask{
		OpBase: ops.OpBase{Type: "channelMask", Active: keep != ""},
		Keep:   keep,
	}
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpChannelMask) UnmarshalJSON(data []byte) error {
	type defaults OpChannelMask
	def := defaults(*NewOpChannelMaskDefault())
	def.Active = true
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpChannelMask(def)
	return nil
}

// Returns the mask of channels to clear
func (op *OpChannelMask) Mask() (grid.ChannelMask, error) {
	if len(op.Clear) > 0 {
		if op.Keep != "" {
			return 0, fmt.Errorf("%w: both keep and clear given", grid.ErrOutOfRange)
		}
		return grid.MaskOf(op.Clear...)
	}
	return grid.ParseChannelMask(op.Keep)
}

func (op *OpChannelMask) Apply(g *grid.Grid, c *ops.Context) (result *grid.Grid, err error) {
	if !op.Active {
		return g, nil
	}
	if g == nil {
		return nil, ops.ErrNoInput
	}
	m, err := op.Mask()
	if err != nil {
		return nil, fmt.Errorf("%d: %w", g.ID, err)
	}
	if m == 0 {
		return g, nil
	}
	fmt.Fprintf(c.Log, "%d: Clearing channels %v of %s\n", g.ID, m, g.DimensionsToString())
	result, err = g.MaskChannels(m)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", g.ID, err)
	}
	return result, nil
}
