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

package doc

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/coocood/freecache"
	"github.com/dustin/go-humanize"
	"github.com/mlnoga/imgedit/internal/grid"
	"github.com/twinj/uuid"
)

// Seconds an encoded preview stays cached
const PreviewExpirySeconds = 600

// A set of documents addressed by random ids, with a cache of encoded previews
type Store struct {
	Log io.Writer

	mu     sync.RWMutex
	docs   map[string]*Document
	nextID int // sequential grid ids for log output

	cache  *freecache.Cache
	hits   uint64
	misses uint64
}

// Creates an empty store. A cacheBytes of zero disables the preview cache
func NewStore(cacheBytes int, log io.Writer) *Store {
	if log == nil {
		log = io.Discard
	}
	s := &Store{Log: log, docs: make(map[string]*Document)}
	if cacheBytes > 0 {
		s.cache = freecache.NewCache(cacheBytes)
		fmt.Fprintf(log, "Created preview cache of %s\n", humanize.IBytes(uint64(cacheBytes)))
	}
	return s
}

// Adds a grid as a new document and returns it
func (s *Store) Add(name string, g *grid.Grid) *Document {
	id := fmt.Sprintf("%x", uuid.NewV4().Bytes())

	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = s.nextID
	s.nextID++
	d := NewDocument(id, name, g)
	s.docs[id] = d
	return d
}

// Decodes an image stream with the registered codecs and adds it as a new document
func (s *Store) AddFromReader(name string, r io.Reader) (*Document, error) {
	g, format, err := grid.Decode(r)
	if err != nil {
		return nil, err
	}
	g.FileName = name
	d := s.Add(name, g)
	fmt.Fprintf(s.Log, "%d: Decoded %s image %s as document %s\n", g.ID, format, g.DimensionsToString(), d.ID)
	return d, nil
}

func (s *Store) Get(id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d, nil
}

// Removes a document. Cached previews expire on their own
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.docs, id)
	if len(s.docs) == 0 {
		grid.ClearPools() // release scratch buffers once nothing is open
	}
	return nil
}

// Summaries of all documents, ordered by creation time
func (s *Store) List() []Info {
	s.mu.RLock()
	infos := make([]Info, 0, len(s.docs))
	for _, d := range s.docs {
		infos = append(infos, d.Info())
	}
	s.mu.RUnlock()
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Created.Equal(infos[j].Created) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].Created.Before(infos[j].Created)
	})
	return infos
}

// Returns the current grid of the document encoded in the given format, from the
// cache if possible. Also returns the version encoded
func (s *Store) Encoded(id, format string) ([]byte, uint64, error) {
	d, err := s.Get(id)
	if err != nil {
		return nil, 0, err
	}
	g, version := d.Current()
	key := []byte(fmt.Sprintf("%s/%d/%s", id, version, format))

	if s.cache != nil {
		bs, err := s.cache.Get(key)
		if err != nil && err != freecache.ErrNotFound {
			return nil, 0, err
		}
		if bs != nil {
			atomic.AddUint64(&s.hits, 1)
			return bs, version, nil
		}
	}
	atomic.AddUint64(&s.misses, 1)

	buf := bytes.Buffer{}
	if err := g.Encode(&buf, format); err != nil {
		return nil, 0, err
	}
	bs := buf.Bytes()
	if s.cache != nil {
		if err := s.cache.Set(key, bs, PreviewExpirySeconds); err != nil && err != freecache.ErrLargeEntry {
			return nil, 0, err
		}
	}
	return bs, version, nil
}

// Cache hits and misses of Encoded
func (s *Store) CacheStats() (hits, misses uint64) {
	return atomic.LoadUint64(&s.hits), atomic.LoadUint64(&s.misses)
}
