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
	"bytes"
	"errors"
	"testing"

	"github.com/mlnoga/imgedit/internal/grid"
	"github.com/mlnoga/imgedit/internal/ops"
)

func TestChannelMask(t *testing.T) {
	g, _ := grid.New(2, 1, 3, grid.Depth8, []uint16{1, 2, 3, 4, 5, 6})
	c := ops.NewContext(&bytes.Buffer{})

	tcs := []struct {
		JSON string
		Want []uint16
	}{
		{`{"type":"channelMask","keep":"r"}`, []uint16{1, 0, 0, 4, 0, 0}},
		{`{"type":"channelMask","keep":"gb"}`, []uint16{0, 2, 3, 0, 5, 6}},
		{`{"type":"channelMask","keep":"hl"}`, []uint16{1, 2, 0, 4, 5, 0}},
		{`{"type":"channelMask","clear":[1]}`, []uint16{1, 0, 3, 4, 0, 6}},
		{`{"type":"channelMask","keep":"rgb"}`, []uint16{1, 2, 3, 4, 5, 6}},
	}
	for _, tc := range tcs {
		op, err := ops.NewOperatorFromJSON([]byte(tc.JSON))
		if err != nil {
			t.Fatalf("%s: %s", tc.JSON, err)
		}
		res, err := op.Apply(g, c)
		if err != nil {
			t.Fatalf("%s: %s", tc.JSON, err)
		}
		if !grid.EqualUint16Slice(res.Data, tc.Want) {
			t.Errorf("%s: got %v; want %v", tc.JSON, res.Data, tc.Want)
		}
	}
	if !grid.EqualUint16Slice(g.Data, []uint16{1, 2, 3, 4, 5, 6}) {
		t.Errorf("masking modified its input")
	}
}

func TestChannelMaskErrors(t *testing.T) {
	rgb, _ := grid.New(1, 1, 3, grid.Depth8, nil)
	gray, _ := grid.New(1, 1, 1, grid.Depth8, nil)
	c := ops.NewContext(&bytes.Buffer{})

	both := NewOpChannelMask("r")
	both.Clear = []int{2}
	if _, err := both.Apply(rgb, c); !errors.Is(err, grid.ErrOutOfRange) {
		t.Errorf("got %v; want ErrOutOfRange", err)
	}
	if _, err := NewOpChannelMask("x").Apply(rgb, c); !errors.Is(err, grid.ErrChannelMismatch) {
		t.Errorf("got %v; want ErrChannelMismatch", err)
	}
	if _, err := NewOpChannelMask("r").Apply(gray, c); !errors.Is(err, grid.ErrChannelMismatch) {
		t.Errorf("got %v; want ErrChannelMismatch", err)
	}
	inactive := NewOpChannelMaskDefault()
	if res, err := inactive.Apply(rgb, c); err != nil || res != rgb {
		t.Errorf("inactive mask got %v, %v", res, err)
	}
}

func TestChannelMaskWithoutInput(t *testing.T) {
	if _, err := NewOpChannelMask("r").Apply(nil, ops.NewContext(&bytes.Buffer{})); !errors.Is(err, ops.ErrNoInput) {
		t.Errorf("got %v; want ErrNoInput", err)
	}
}
