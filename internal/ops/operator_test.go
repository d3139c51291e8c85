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

package ops

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mlnoga/imgedit/internal/grid"
)

// Adds a constant to every sample. Fails on overflow
type opAdd struct {
	OpBase
	Delta uint16 `json:"delta"`
}

func newOpAdd(delta uint16) *opAdd {
	return &opAdd{OpBase: OpBase{Type: "testAdd", Active: true}, Delta: delta}
}

func init() { SetOperatorFactory(func() Operator { return newOpAdd(0) }) }

func (op *opAdd) Apply(g *grid.Grid, c *Context) (*grid.Grid, error) {
	res := g.Clone()
	for i, d := range res.Data {
		if uint32(d)+uint32(op.Delta) > uint32(g.MaxValue()) {
			return nil, grid.ErrInvalidSample
		}
		res.Data[i] = d + op.Delta
	}
	return res, nil
}

func testContext() *Context {
	c := NewContext(&bytes.Buffer{})
	c.MaxThreads = 2
	return c
}

func TestSequenceApply(t *testing.T) {
	g, _ := grid.New(2, 1, 1, grid.Depth8, []uint16{1, 2})
	inactive := newOpAdd(100)
	inactive.Active = false
	seq := NewOpSequence(newOpAdd(3), inactive, newOpAdd(10))

	res, err := seq.Apply(g, testContext())
	if err != nil {
		t.Fatal(err)
	}
	if !grid.EqualUint16Slice(res.Data, []uint16{14, 15}) {
		t.Errorf("got %v; want [14 15]", res.Data)
	}
	if !grid.EqualUint16Slice(g.Data, []uint16{1, 2}) {
		t.Errorf("sequence modified its input")
	}

	seq.Append(newOpAdd(250))
	if res, err := seq.Apply(g, testContext()); !errors.Is(err, grid.ErrInvalidSample) || res != nil {
		t.Errorf("got %v, %v; want nil and ErrInvalidSample", res, err)
	}
}

func TestSequenceJSON(t *testing.T) {
	seq := NewOpSequence(NewOpLoad(3, "in.png"), newOpAdd(7), NewOpSave("out%d.png"))
	bs, err := json.Marshal(seq)
	if err != nil {
		t.Fatal(err)
	}

	op, err := NewOperatorFromJSON(bs)
	if err != nil {
		t.Fatalf("decoding %s: %s", string(bs), err)
	}
	back, ok := op.(*OpSequence)
	if !ok {
		t.Fatalf("decoded %T; want *OpSequence", op)
	}
	if len(back.Steps) != 3 {
		t.Fatalf("decoded %d steps; want 3", len(back.Steps))
	}
	if l, ok := back.Steps[0].(*OpLoad); !ok || l.ID != 3 || l.FileName != "in.png" {
		t.Errorf("step 0 is %+v", back.Steps[0])
	}
	if a, ok := back.Steps[1].(*opAdd); !ok || a.Delta != 7 {
		t.Errorf("step 1 is %+v", back.Steps[1])
	}
	if s, ok := back.Steps[2].(*OpSave); !ok || s.FilePattern != "out%d.png" || !s.Active {
		t.Errorf("step 2 is %+v", back.Steps[2])
	}

	again, err := json.Marshal(back)
	if err != nil {
		t.Fatal(err)
	}
	if string(again) != string(bs) {
		t.Errorf("re-encoding gave %s; want %s", string(again), string(bs))
	}
}

func TestNewOperatorFromJSONErrors(t *testing.T) {
	for _, raw := range []string{
		`{"type":"noSuchOp"}`,
		`{"type":"seq","steps":[{"type":"noSuchOp"}]}`,
		`not json`,
	} {
		if _, err := NewOperatorFromJSON([]byte(raw)); err == nil {
			t.Errorf("decoding %s succeeded", raw)
		}
	}
}

func TestSequenceDefaultsActive(t *testing.T) {
	op, err := NewOperatorFromJSON([]byte(`{"type":"seq","steps":[{"type":"testAdd","active":true,"delta":1}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if !op.IsActive() {
		t.Errorf("sequence without active flag decoded as inactive")
	}
}

func TestCheckSize(t *testing.T) {
	c := &Context{ImageMemoryMB: 1}
	if err := c.CheckSize(128, 128, 3); err != nil {
		t.Errorf("small grid rejected: %s", err)
	}
	err := c.CheckSize(1024, 1024, 3)
	if !errors.Is(err, grid.ErrTooLarge) {
		t.Errorf("got %v; want ErrTooLarge", err)
	}
	c.ImageMemoryMB = 0
	if err := c.CheckSize(1<<20, 1<<20, 3); err != nil {
		t.Errorf("disabled budget rejected grid: %s", err)
	}
}

func TestPathRestrictions(t *testing.T) {
	allowed := map[string]bool{
		"a.png":        true,
		"dir/b.tif":    true,
		"../up.png":    false,
		"dir/../x.png": false,
		"/etc/passwd":  false,
	}
	c := testContext()
	c.RestrictPaths = true
	for p, want := range allowed {
		if got := isPathAllowed(p); got != want {
			t.Errorf("isPathAllowed(%q)=%v; want %v", p, got, want)
		}
		if err := c.CheckPath(p); (err == nil) != want {
			t.Errorf("CheckPath(%q)=%v", p, err)
		}
	}
	c.RestrictPaths = false
	if err := c.CheckPath("/tmp/x.png"); err != nil {
		t.Errorf("unrestricted context rejected absolute path: %s", err)
	}
}

func TestLoadSave(t *testing.T) {
	dir := t.TempDir()
	g, _ := grid.New(3, 2, 3, grid.Depth8, []uint16{
		0, 10, 20, 30, 40, 50, 60, 70, 80,
		90, 100, 110, 120, 130, 140, 150, 160, 255,
	})
	g.ID = 5
	log := &bytes.Buffer{}
	c := NewContext(log)

	fileName := filepath.Join(dir, "out%d.png")
	res, err := NewOpSave(fileName).Apply(g, c)
	if err != nil {
		t.Fatal(err)
	}
	if res != g {
		t.Errorf("save did not return its input")
	}
	written := filepath.Join(dir, "out5.png")
	if _, err := os.Stat(written); err != nil {
		t.Fatalf("no file written: %s", err)
	}

	loaded, err := NewOpLoad(9, written).Apply(nil, c)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ID != 9 || !grid.EqualUint16Slice(loaded.Data, g.Data) || loaded.Channels != 3 {
		t.Errorf("loaded %s %v; want %v", loaded.DimensionsToString(), loaded.Data, g.Data)
	}
	if !strings.Contains(log.String(), "9: Loaded 3x2x3@8bit") {
		t.Errorf("unexpected log output %q", log.String())
	}

	if _, err := NewOpSave(filepath.Join(dir, "out.xyz")).Apply(g, c); err == nil {
		t.Errorf("saving with unknown suffix succeeded")
	}
}

func TestSaveFromJSON(t *testing.T) {
	dir := t.TempDir()
	g, _ := grid.New(2, 2, 1, grid.Depth8, []uint16{0, 64, 128, 255})
	fileName := filepath.Join(dir, "out.png")
	raw, _ := json.Marshal(map[string]string{"type": "save", "filePattern": fileName})

	op, err := NewOperatorFromJSON(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !op.IsActive() {
		t.Errorf("save without active flag decoded as inactive")
	}
	if _, err := op.Apply(g, testContext()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(fileName); err != nil {
		t.Errorf("no file written: %s", err)
	}

	c := testContext()
	c.RestrictPaths = true
	if _, err := op.Apply(g, c); !errors.Is(err, ErrForbiddenPath) {
		t.Errorf("got %v; want ErrForbiddenPath", err)
	}
}

func TestSequenceWithoutInput(t *testing.T) {
	op, err := NewOperatorFromJSON([]byte(`{"type":"seq","steps":[{"type":"testAdd","delta":1},{"type":"save","filePattern":"x.png"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	res, err := op.Apply(nil, testContext())
	if !errors.Is(err, ErrNoInput) || !errors.Is(err, grid.ErrInvalidDimension) || res != nil {
		t.Errorf("got %v, %v; want ErrNoInput", res, err)
	}
	if _, err := NewOpSave("x.png").Apply(nil, testContext()); !errors.Is(err, ErrNoInput) {
		t.Errorf("save without input gave %v", err)
	}
}
