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

package geom

import (
	"encoding/json"
	"fmt"

	"github.com/mlnoga/imgedit/internal/grid"
	"github.com/mlnoga/imgedit/internal/kernel"
	"github.com/mlnoga/imgedit/internal/ops"
	"github.com/mlnoga/imgedit/internal/resample"
)

// Resamples the grid to a new size with the given interpolation kernel
type OpResample struct {
	ops.OpBase
	resample.Request
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpResampleDefault() }) } // register the operator for JSON decoding

func NewOpResampleDefault() *OpResample { return NewOpResample(resample.NewRequest(0, 0, kernel.Cubic)) }

func NewOpResample(req resample.Request) *OpResample {
	return &OpResample{
		OpBase:  ops.OpBase{Type: "resample", Active: true},
		Request: req,
	}
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpResample) UnmarshalJSON(data []byte) error {
	type defaults OpResample
	def := defaults(*NewOpResampleDefault())
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpResample(def)
	return nil
}

func (op *OpResample) Apply(g *grid.Grid, c *ops.Context) (result *grid.Grid, err error) {
	if !op.Active {
		return g, nil
	}
	if g == nil {
		return nil, ops.ErrNoInput
	}
	if err = op.Validate(g); err != nil {
		return nil, fmt.Errorf("%d: %w", g.ID, err)
	}
	if err = c.CheckSize(op.Width, op.Height, g.Channels); err != nil {
		return nil, fmt.Errorf("%d: %w", g.ID, err)
	}
	params := ""
	switch op.Kind {
	case kernel.Cubic:
		params = fmt.Sprintf(" B=%.3g C=%.3g", op.B, op.C)
	case kernel.Lanczos4:
		params = fmt.Sprintf(" taps=%d", op.Filter().Taps())
	}
	fmt.Fprintf(c.Log, "%d: Resampling %s to %dx%d with %v kernel%s\n",
		g.ID, g.DimensionsToString(), op.Width, op.Height, op.Kind, params)
	return resample.Resample(g, op.Request, c.MaxThreads)
}

// Rotates the grid counter-clockwise by a number of quarter turns
type OpRotate struct {
	ops.OpBase
	Turns int `json:"turns"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpRotateDefault() }) } // register the operator for JSON decoding

func NewOpRotateDefault() *OpRotate { return NewOpRotate(1) }

func NewOpRotate(turns int) *OpRotate {
	return &OpRotate{
		OpBase: ops.OpBase{Type: "rotate", Active: true},
		Turns:  turns,
	}
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpRotate) UnmarshalJSON(data []byte) error {
	type defaults OpRotate
	def := defaults(*NewOpRotateDefault())
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpRotate(def)
	return nil
}

func (op *OpRotate) Apply(g *grid.Grid, c *ops.Context) (result *grid.Grid, err error) {
	turns := ((op.Turns % 4) + 4) % 4
	if !op.Active || turns == 0 {
		return g, nil
	}
	if g == nil {
		return nil, ops.ErrNoInput
	}
	fmt.Fprintf(c.Log, "%d: Rotating %s by %d degrees counter-clockwise\n", g.ID, g.DimensionsToString(), 90*turns)
	result = g
	for i := 0; i < turns; i++ {
		result = result.Rotate90()
	}
	return result, nil
}

// Mirrors the grid horizontally
type OpFlip struct {
	ops.OpBase
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpFlipDefault() }) } // register the operator for JSON decoding

func NewOpFlipDefault() *OpFlip { return &OpFlip{OpBase: ops.OpBase{Type: "flip", Active: true}} }

func (op *OpFlip) Apply(g *grid.Grid, c *ops.Context) (result *grid.Grid, err error) {
	if !op.Active {
		return g, nil
	}
	if g == nil {
		return nil, ops.ErrNoInput
	}
	fmt.Fprintf(c.Log, "%d: Flipping %s horizontally\n", g.ID, g.DimensionsToString())
	return g.FlipHorizontal(), nil
}
