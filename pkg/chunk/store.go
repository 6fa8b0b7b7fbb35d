// This file is part of stakemap (https://github.com/spezifisch/stakemap).
// Copyright (C) 2021-2026 spezifisch <spezifisch-7e6@below.fr> (https://github.com/spezifisch).
//
// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the
// Free Software Foundation, version 3 of the License.
//
// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or FITNESS
// FOR A PARTICULAR PURPOSE. See the GNU Affero General Public License for more
// details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package chunk

import (
	"github.com/spezifisch/stakemap/pkg/poi"
)

// Store is the append-only log of chunks in fetch order.
// A Store value never changes; Append returns the next store.
type Store struct {
	chunks []Chunk
	count  int
}

// NewStore returns an empty store
func NewStore() *Store {
	return &Store{}
}

// Append returns a store with c added at the end. The receiver stays valid and unchanged.
// The chunk is re-indexed to its position in the new store. c must come from
// Merge against the receiver, otherwise ids may repeat.
func (s *Store) Append(c Chunk) *Store {
	if s == nil {
		s = NewStore()
	}
	c.index = len(s.chunks)
	// full slice expression forces a copy so stores sharing a prefix never overwrite each other
	chunks := append(s.chunks[:len(s.chunks):len(s.chunks)], c)
	return &Store{chunks: chunks, count: s.count + c.Len()}
}

// Chunks returns the chunks in insertion order
func (s *Store) Chunks() []Chunk {
	if s == nil {
		return nil
	}
	return s.chunks[:len(s.chunks):len(s.chunks)]
}

// Len returns the number of chunks
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.chunks)
}

// Count returns the number of records over all chunks
func (s *Store) Count() int {
	if s == nil {
		return 0
	}
	return s.count
}

// All returns every record, flattened in chunk order
func (s *Store) All() []poi.Record {
	out := make([]poi.Record, 0, s.Count())
	for _, c := range s.Chunks() {
		out = append(out, c.records...)
	}
	return out
}

// Merge deduplicates fetched against the store and returns the next store.
// If nothing is new the receiver is returned and the bool is false.
func (s *Store) Merge(fetched []poi.Record) (*Store, bool) {
	c, ok := Merge(s.Chunks(), fetched)
	if !ok {
		return s, false
	}
	return s.Append(c), true
}
