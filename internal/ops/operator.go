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
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mlnoga/imgedit/internal/grid"
	"github.com/pbnjay/memory"
)

// Returned for file names outside the working directory tree when paths are restricted
var ErrForbiddenPath = errors.New("file name outside current directory tree")

// Returned by operators applied without an input grid, e.g. a sequence not starting with a load step
var ErrNoInput = fmt.Errorf("%w: no input image", grid.ErrInvalidDimension)

// An execution context for operators
type Context struct {
	Log           io.Writer
	MemoryMB      int  // memory.TotalMemory()/1024/1024
	ImageMemoryMB int  // MemoryMB*7/10, upper bound for a single result grid
	MaxThreads    int  `json:"maxThreads"`
	RestrictPaths bool // only allow relative file names within the working directory
}

func NewContext(log io.Writer) *Context {
	memoryMB := int(memory.TotalMemory() / 1024 / 1024)
	return &Context{
		Log:           log,
		MemoryMB:      memoryMB,
		ImageMemoryMB: memoryMB * 7 / 10,
		MaxThreads:    runtime.GOMAXPROCS(0),
	}
}

// Checks that a grid of the given shape, plus float32 scratch planes for each channel,
// fits into the image memory budget. A budget of zero disables the check
func (c *Context) CheckSize(width, height, channels int) error {
	if c.ImageMemoryMB <= 0 {
		return nil
	}
	need := uint64(width) * uint64(height) * uint64(channels) * (2 + 4)
	budget := uint64(c.ImageMemoryMB) * 1024 * 1024
	if need > budget {
		return fmt.Errorf("%w: %dx%dx%d needs %s, budget is %s", grid.ErrTooLarge,
			width, height, channels, humanize.IBytes(need), humanize.IBytes(budget))
	}
	return nil
}

// Checks a file name against the context's path restrictions
func (c *Context) CheckPath(p string) error {
	if c.RestrictPaths && !isPathAllowed(p) {
		return fmt.Errorf("%w: %s", ErrForbiddenPath, p)
	}
	return nil
}

// Returns true if a path is considered safe, i.e. not an absolute path,
// and doesn't contain the ".." characters to change to a parent directory
func isPathAllowed(p string) bool {
	if filepath.IsAbs(p) { // relative paths only
		return false
	}
	if strings.Contains(p, "..") { // no going outside the tree
		return false
	}
	return true
}

// An image transform: takes a grid and returns a new grid or an error.
// Never modifies its input
type Operator interface {
	GetType() string
	IsActive() bool
	Apply(g *grid.Grid, c *Context) (*grid.Grid, error)
}

// Base type for operators, including type information for JSON serializing/deserializing
type OpBase struct {
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

func (op *OpBase) GetType() string { return op.Type }
func (op *OpBase) IsActive() bool  { return op.Active }

// Factory method for operators. For JSON serializing/deserializing
type OperatorFactory func() Operator

// Mapping from operator type strings to factory method for the type
var operatorFactories = map[string]OperatorFactory{}

// Returns the operator factory for a given type string
func GetOperatorFactory(t string) OperatorFactory {
	return operatorFactories[t]
}

// Registers a given type string for a given type of Operator, identified via an exemplar generator
func SetOperatorFactory(f OperatorFactory) {
	op := f()
	t := op.GetType()
	if GetOperatorFactory(t) != nil {
		panic(fmt.Sprintf("error: re-registering operator key %s\n", t))
	}
	operatorFactories[t] = f
}

// Names of all registered operator types
func OperatorTypes() []string {
	types := make([]string, 0, len(operatorFactories))
	for t := range operatorFactories {
		types = append(types, t)
	}
	return types
}

// Decodes a single polymorphic operator from JSON, using the factory registered for its type
func NewOperatorFromJSON(raw []byte) (Operator, error) {
	var base OpBase
	if err := json.Unmarshal(raw, &base); err != nil {
		return nil, err
	}
	factory := GetOperatorFactory(base.Type)
	if factory == nil {
		return nil, fmt.Errorf("Unknown operator type '%s' in raw JSON message '%s'", base.Type, string(raw))
	}
	op := factory()
	if err := json.Unmarshal(raw, op); err != nil {
		return nil, err
	}
	return op, nil
}

// Load a grid from a file name. Ignores the input grid
type OpLoad struct {
	OpBase
	ID       int    `json:"id"`
	FileName string `json:"fileName"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpLoadDefault() }) } // register the operator for JSON decoding

func NewOpLoadDefault() *OpLoad { return NewOpLoad(0, "") }

func NewOpLoad(id int, fileName string) *OpLoad {
	return &OpLoad{
		OpBase:   OpBase{Type: "load", Active: true},
		ID:       id,
		FileName: fileName,
	}
}

func (op *OpLoad) Apply(g *grid.Grid, c *Context) (result *grid.Grid, err error) {
	if err = c.CheckPath(op.FileName); err != nil {
		return nil, err
	}
	result, err = grid.NewGridFromFile(op.FileName, op.ID, c.Log)
	if err != nil {
		return nil, err
	}

	warning := ""
	if lo, hi := sampleRange(result); hi == lo {
		warning = "; WARNING constant image"
	}
	fmt.Fprintf(c.Log, "%d: Loaded %s image (%s) from %s%s\n", result.ID, result.DimensionsToString(),
		humanize.IBytes(uint64(len(result.Data))*2), result.FileName, warning)
	return result, nil
}

func sampleRange(g *grid.Grid) (lo, hi uint16) {
	lo, hi = g.MaxValue(), 0
	for _, d := range g.Data {
		if d < lo {
			lo = d
		}
		if d > hi {
			hi = d
		}
	}
	return lo, hi
}

// Saves the input grid under a given file name, with pattern expansion for %d based on the grid id.
// Returns the unchanged input
type OpSave struct {
	OpBase
	FilePattern string `json:"filePattern"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpSaveDefault() }) } // register the operator for JSON decoding

func NewOpSaveDefault() *OpSave { return NewOpSave("") }

func NewOpSave(filePattern string) *OpSave {
	return &OpSave{
		OpBase:      OpBase{Type: "save", Active: filePattern != ""},
		FilePattern: filePattern,
	}
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpSave) UnmarshalJSON(data []byte) error {
	type defaults OpSave
	def := defaults(*NewOpSaveDefault())
	def.Active = true
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpSave(def)
	return nil
}

func (op *OpSave) Apply(g *grid.Grid, c *Context) (result *grid.Grid, err error) {
	if !op.Active || op.FilePattern == "" {
		return g, nil
	}
	if g == nil {
		return nil, ErrNoInput
	}
	fileName := op.FilePattern
	if strings.Contains(fileName, "%d") {
		fileName = fmt.Sprintf(op.FilePattern, g.ID)
	}
	if err = c.CheckPath(fileName); err != nil {
		return nil, err
	}
	format, err := grid.FormatFromFileName(fileName)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(c.Log, "%d: Writing %s pixel %s to %s\n", g.ID, g.DimensionsToString(), strings.ToUpper(format), fileName)
	if err = g.WriteFile(fileName); err != nil {
		return nil, fmt.Errorf("%d: Error writing to file %s: %w", g.ID, fileName, err)
	}
	return g, nil
}

// Applies a sequence of operators, each to the output of the previous one
type OpSequence struct {
	OpBase
	Steps    []Operator        `json:"-"`     // the actual steps
	StepsRaw []json.RawMessage `json:"steps"` // helper for unmarshaling
}

func init() { SetOperatorFactory(func() Operator { return NewOpSequenceDefault() }) } // register the operator for JSON decoding

func NewOpSequenceDefault() *OpSequence { return NewOpSequence() }

func NewOpSequence(steps ...Operator) *OpSequence {
	return &OpSequence{
		OpBase: OpBase{Type: "seq", Active: len(steps) > 0},
		Steps:  steps,
	}
}

// Unmarshals a sequence of polymorphic operators from JSON.
// Uses temporary op.StepsRaw inspired by https://alexkappa.medium.com/json-polymorphism-in-go-4cade1e58ed1
func (op *OpSequence) UnmarshalJSON(b []byte) error {
	type alias OpSequence
	def := alias(*NewOpSequenceDefault())
	def.Active = true
	if err := json.Unmarshal(b, &def); err != nil {
		return err
	}
	*op = OpSequence(def)

	op.Steps = nil
	for _, raw := range op.StepsRaw {
		step, err := NewOperatorFromJSON(raw)
		if err != nil {
			return err
		}
		op.Steps = append(op.Steps, step)
	}
	op.StepsRaw = nil
	return nil
}

// Appends one or more operators to the existing sequence
func (op *OpSequence) Append(steps ...Operator) {
	op.Steps = append(op.Steps, steps...)
	if len(op.Steps) > 0 {
		op.Active = true
	}
}

// Marshals a sequence with polymorphic operators to JSON.
// Uses the actual op.Steps with label "steps", and ignores op.StepsRaw
func (op *OpSequence) MarshalJSON() (bs []byte, err error) {
	buf := bytes.Buffer{}
	buf.WriteString("{\"type\":")
	inner, err := json.Marshal(op.Type)
	if err != nil {
		return nil, err
	}
	buf.Write(inner)
	fmt.Fprintf(&buf, ", \"active\":%v, \"steps\":", op.Active)
	steps := op.Steps
	if steps == nil {
		steps = []Operator{}
	}
	inner, err = json.Marshal(steps)
	if err != nil {
		return nil, err
	}
	buf.Write(inner)
	buf.WriteRune('}')
	return buf.Bytes(), nil
}

// Loads and nested sequences may start from nothing
func acceptsNoInput(op Operator) bool {
	switch op.(type) {
	case *OpLoad, *OpSequence:
		return true
	}
	return false
}

// Applies the active steps in order. Stops at the first error
func (op *OpSequence) Apply(g *grid.Grid, c *Context) (result *grid.Grid, err error) {
	result = g
	for i, step := range op.Steps {
		if !step.IsActive() {
			continue
		}
		if result == nil && !acceptsNoInput(step) {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.GetType(), ErrNoInput)
		}
		result, err = step.Apply(result, c)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.GetType(), err)
		}
	}
	return result, nil
}
