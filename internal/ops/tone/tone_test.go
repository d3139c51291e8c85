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
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mlnoga/imgedit/internal/colorconv"
	"github.com/mlnoga/imgedit/internal/grid"
	"github.com/mlnoga/imgedit/internal/ops"
)

func testContext() *ops.Context {
	c := ops.NewContext(&bytes.Buffer{})
	c.MaxThreads = 3
	return c
}

func TestContrastOp(t *testing.T) {
	data := make([]uint16, 4*4*3)
	for i := range data {
		if i%5 == 0 {
			data[i] = 255
		}
	}
	g, _ := grid.New(4, 4, 3, grid.Depth8, data)
	op, err := ops.NewOperatorFromJSON([]byte(`{"type":"contrast","active":true}`))
	if err != nil {
		t.Fatal(err)
	}
	if op.(*OpContrast).IgnoreRange != 0 {
		t.Errorf("default ignore range %g", op.(*OpContrast).IgnoreRange)
	}
	res, err := op.Apply(g, testContext())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Equal(g) {
		t.Errorf("equalizing a two level image changed it: %v", res.Data)
	}

	bad := NewOpContrast(0.7)
	if _, err := bad.Apply(g, testContext()); !errors.Is(err, grid.ErrOutOfRange) {
		t.Errorf("got %v; want ErrOutOfRange", err)
	}
}

func TestGammaOp(t *testing.T) {
	g, _ := grid.New(2, 1, 1, grid.Depth8, []uint16{64, 255})
	op, err := ops.NewOperatorFromJSON([]byte(`{"type":"gamma","active":true,"gamma":2}`))
	if err != nil {
		t.Fatal(err)
	}
	res, err := op.Apply(g, testContext())
	if err != nil {
		t.Fatal(err)
	}
	if !grid.EqualUint16Slice(res.Data, []uint16{128, 255}) {
		t.Errorf("got %v; want [128 255]", res.Data)
	}

	same, _ := NewOpGammaDefault().Apply(g, testContext())
	if same != g {
		t.Errorf("gamma 1 did not pass its input through")
	}
	if _, err := NewOpGamma(-2).Apply(g, testContext()); !errors.Is(err, grid.ErrOutOfRange) {
		t.Errorf("got %v; want ErrOutOfRange", err)
	}
}

func TestHistogramOp(t *testing.T) {
	g, _ := grid.New(2, 2, 3, grid.Depth8, []uint16{
		255, 0, 0, 255, 0, 0,
		0, 0, 0, 255, 255, 255,
	})
	fileName := filepath.Join(t.TempDir(), "hist.csv")
	op, err := ops.NewOperatorFromJSON([]byte(`{"type":"histogram","fileName":"` + filepath.ToSlash(fileName) + `","channel":0}`))
	if err != nil {
		t.Fatal(err)
	}
	op.(*OpHistogram).FileName = fileName
	res, err := op.Apply(g, testContext())
	if err != nil {
		t.Fatal(err)
	}
	if res != g {
		t.Errorf("histogram export did not pass its input through")
	}

	f, err := os.Open(fileName)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 257 {
		t.Fatalf("%d rows; want header plus 256", len(rows))
	}
	if rows[0][0] != "value" || rows[1][1] != "1" || rows[256][1] != "3" || rows[256][2] != "4" || rows[100][2] != "1" {
		t.Errorf("unexpected rows %v %v %v %v", rows[0], rows[1], rows[100], rows[256])
	}
}

func TestChannelHistogram(t *testing.T) {
	g, _ := grid.New(2, 1, 3, grid.Depth8, []uint16{255, 0, 0, 255, 255, 255})
	h, err := ChannelHistogram(g, GrayChannel, colorconv.Rec601, 2)
	if err != nil {
		t.Fatal(err)
	}
	if h.Bins[76] != 1 || h.Bins[255] != 1 || h.Sum() != 2 {
		t.Errorf("unexpected gray histogram: 76->%d 255->%d", h.Bins[76], h.Bins[255])
	}
	if _, err := ChannelHistogram(g, 3, colorconv.Rec601, 2); !errors.Is(err, grid.ErrChannelMismatch) {
		t.Errorf("got %v; want ErrChannelMismatch", err)
	}
}

func TestParseChannel(t *testing.T) {
	for s, want := range map[string]int{"": GrayChannel, "gray": GrayChannel, "Grey": GrayChannel, "0": 0, "2": 2} {
		if got, err := ParseChannel(s); err != nil || got != want {
			t.Errorf("ParseChannel(%q)=%d, %v; want %d", s, got, err, want)
		}
	}
	for _, s := range []string{"-1", "red", "1.5"} {
		if _, err := ParseChannel(s); !errors.Is(err, grid.ErrOutOfRange) {
			t.Errorf("ParseChannel(%q) error %v", s, err)
		}
	}
}

func TestToneWithoutInput(t *testing.T) {
	for _, op := range []ops.Operator{NewOpContrast(0.1), NewOpGamma(2), NewOpHistogram("h.csv", 0)} {
		if _, err := op.Apply(nil, testContext()); !errors.Is(err, ops.ErrNoInput) {
			t.Errorf("%s without input gave %v", op.GetType(), err)
		}
	}
}
