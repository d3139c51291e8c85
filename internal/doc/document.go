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

// Package doc holds the editable documents: a loaded grid, the current result of the
// transforms applied to it, and a store of documents with a cache of encoded previews
package doc

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mlnoga/imgedit/internal/grid"
	"github.com/mlnoga/imgedit/internal/ops"
)

var (
	ErrBusy     = errors.New("document busy with another transform")
	ErrNotFound = errors.New("document not found")
)

// An editable image. Transforms run one at a time, and replace the current
// grid only when they succeed
type Document struct {
	ID   string
	Name string

	busy atomic.Bool

	mu       sync.RWMutex
	loaded   *grid.Grid // as loaded, target of Stash
	current  *grid.Grid
	version  uint64 // incremented whenever current changes
	created  time.Time
	modified time.Time
	history  []string // operator types applied since load or stash
}

// Summary of a document for listings and API responses
type Info struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Channels int       `json:"channels"`
	Depth    int       `json:"depth"`
	Version  uint64    `json:"version"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
	History  []string  `json:"history"`
}

func NewDocument(id, name string, g *grid.Grid) *Document {
	now := time.Now()
	return &Document{
		ID:       id,
		Name:     name,
		loaded:   g,
		current:  g,
		created:  now,
		modified: now,
	}
}

// Returns the current grid and its version
func (d *Document) Current() (*grid.Grid, uint64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current, d.version
}

func (d *Document) Info() Info {
	d.mu.RLock()
	defer d.mu.RUnlock()
	g := d.current
	return Info{
		ID:       d.ID,
		Name:     d.Name,
		Width:    g.Width,
		Height:   g.Height,
		Channels: g.Channels,
		Depth:    int(g.Depth),
		Version:  d.version,
		Created:  d.created,
		Modified: d.modified,
		History:  append([]string{}, d.history...),
	}
}

// Applies the operator to the current grid. Fails with ErrBusy if another transform
// is in flight. On error the current grid is unchanged
func (d *Document) Apply(op ops.Operator, c *ops.Context) (*grid.Grid, error) {
	if !d.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer d.busy.Store(false)

	in, _ := d.Current()
	out, err := op.Apply(in, c)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("%s operator returned no result", op.GetType())
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if out != d.current {
		d.current = out
		d.version++
		d.modified = time.Now()
	}
	d.history = append(d.history, op.GetType())
	return out, nil
}

// Discards all changes, restoring the grid as loaded. Fails with ErrBusy
// if a transform is in flight
func (d *Document) Stash() error {
	if !d.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer d.busy.Store(false)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current != d.loaded {
		d.current = d.loaded
		d.version++
		d.modified = time.Now()
	}
	d.history = nil
	return nil
}

// True while a transform is running
func (d *Document) Busy() bool {
	return d.busy.Load()
}
