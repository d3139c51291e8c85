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

package tone

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mlnoga/imgedit/internal/colorconv"
	"github.com/mlnoga/imgedit/internal/contrast"
	"github.com/mlnoga/imgedit/internal/grid"
	"github.com/mlnoga/imgedit/internal/ops"
	"github.com/mlnoga/imgedit/internal/stats"
)

// Histogram based contrast correction of every channel
type OpContrast struct {
	ops.OpBase
	IgnoreRange float64 `json:"ignoreRange"` // fraction of bucket counts clipped at either end, [0,0.5]
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpContrastDefault() }) } // register the operator for JSON decoding

func NewOpContrastDefault() *OpContrast { return NewOpContrast(0) }

func NewOpContrast(ignoreRange float64) *OpContrast {
	return &OpContrast{
		OpBase:      ops.OpBase{Type: "contrast", Active: true},
		IgnoreRange: ignoreRange,
	}
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpContrast) UnmarshalJSON(data []byte) error {
	type defaults OpContrast
	def := defaults(*NewOpContrastDefault())
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpContrast(def)
	return nil
}

func (op *OpContrast) Apply(g *grid.Grid, c *ops.Context) (result *grid.Grid, err error) {
	if !op.Active {
		return g, nil
	}
	if g == nil {
		return nil, ops.ErrNoInput
	}
	if op.IgnoreRange == 0 {
		fmt.Fprintf(c.Log, "%d: Equalizing histogram of %s\n", g.ID, g.DimensionsToString())
	} else {
		fmt.Fprintf(c.Log, "%d: Correcting contrast of %s ignoring %.2f%% of bucket counts at either end\n",
			g.ID, g.DimensionsToString(), op.IgnoreRange*100)
	}
	result, err = contrast.CorrectGrid(g, op.IgnoreRange, c.MaxThreads)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", g.ID, err)
	}
	return result, nil
}

// Gamma correction of every channel
type OpGamma struct {
	ops.OpBase
	Gamma float64 `json:"gamma"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpGammaDefault() }) } // register the operator for JSON decoding

func NewOpGammaDefault() *OpGamma { return NewOpGamma(1.0) }

func NewOpGamma(gamma float64) *OpGamma {
	return &OpGamma{
		OpBase: ops.OpBase{Type: "gamma", Active: true},
		Gamma:  gamma,
	}
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpGamma) UnmarshalJSON(data []byte) error {
	type defaults OpGamma
	def := defaults(*NewOpGammaDefault())
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpGamma(def)
	return nil
}

func (op *OpGamma) Apply(g *grid.Grid, c *ops.Context) (result *grid.Grid, err error) {
	if !op.Active || op.Gamma == 1.0 {
		return g, nil
	}
	if g == nil {
		return nil, ops.ErrNoInput
	}
	curve, err := contrast.NewGammaCurve(op.Gamma, g.Depth)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", g.ID, err)
	}
	fmt.Fprintf(c.Log, "%d: Applying gamma %.3g\n", g.ID, op.Gamma)
	return curve.ApplyGrid(g)
}

// Channel selector for histograms of the luma plane
const GrayChannel = -1

// Exports the histogram of one channel, or of the luma plane, as CSV with one row per
// sample value: value, count, cumulative count. Returns the unchanged input
type OpHistogram struct {
	ops.OpBase
	FileName string             `json:"fileName"`
	Channel  int                `json:"channel"` // channel index, or -1 for gray
	Luma     colorconv.LumaMode `json:"luma"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpHistogramDefault() }) } // register the operator for JSON decoding

func NewOpHistogramDefault() *OpHistogram { return NewOpHistogram("", 0) }

func NewOpHistogram(fileName string, channel int) *OpHistogram {
	return &OpHistogram{
		OpBase:   ops.OpBase{Type: "histogram", Active: fileName != ""},
		FileName: fileName,
		Channel:  channel,
		Luma:     colorconv.Rec601,
	}
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpHistogram) UnmarshalJSON(data []byte) error {
	type defaults OpHistogram
	def := defaults(*NewOpHistogramDefault())
	def.Active = true
	err := json.Unmarshal(data, &def)
	if err != nil {
		return err
	}
	*op = OpHistogram(def)
	return nil
}

// Parses a channel index, or "gray" for the luma plane. Blank selects gray
func ParseChannel(s string) (int, error) {
	if s == "" || strings.EqualFold(s, "gray") || strings.EqualFold(s, "grey") {
		return GrayChannel, nil
	}
	ch, err := strconv.Atoi(s)
	if err != nil || ch < 0 {
		return 0, fmt.Errorf("%w: invalid channel '%s'", grid.ErrOutOfRange, s)
	}
	return ch, nil
}

// Computes the histogram of the given channel, or of the luma plane for GrayChannel
func ChannelHistogram(g *grid.Grid, channel int, luma colorconv.LumaMode, maxThreads int) (*stats.Histogram, error) {
	var p *grid.Plane
	var err error
	if channel == GrayChannel {
		p, err = colorconv.GrayPlane(g, luma)
	} else {
		p, err = g.Plane(channel)
	}
	if err != nil {
		return nil, err
	}
	return stats.ComputeParallel(p, maxThreads), nil
}

func (op *OpHistogram) Apply(g *grid.Grid, c *ops.Context) (result *grid.Grid, err error) {
	if !op.Active || op.FileName == "" {
		return g, nil
	}
	if g == nil {
		return nil, ops.ErrNoInput
	}
	if err = c.CheckPath(op.FileName); err != nil {
		return nil, err
	}
	h, err := ChannelHistogram(g, op.Channel, op.Luma, c.MaxThreads)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", g.ID, err)
	}
	fmt.Fprintf(c.Log, "%d: Writing histogram with %v to %s\n", g.ID, h, op.FileName)
	if err = WriteHistogramCSV(op.FileName, h); err != nil {
		return nil, fmt.Errorf("%d: Error writing to file %s: %w", g.ID, op.FileName, err)
	}
	return g, nil
}

// Writes value, count and cumulative count per bucket to a CSV file with a header row
func WriteHistogramCSV(fileName string, h *stats.Histogram) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"value", "count", "cumulative"}); err != nil {
		return err
	}
	cs := h.CumSum()
	for i, n := range h.Bins {
		row := []string{strconv.Itoa(i), strconv.FormatInt(n, 10), strconv.FormatInt(int64(cs[i]), 10)}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return file.Close()
}
