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

// Package chunk deduplicates fetched POI records against everything already loaded
// and keeps the loaded records as an append-only log of immutable chunks.
package chunk

import (
	"github.com/spezifisch/stakemap/pkg/poi"
)

// Chunk is the batch of new records found by one synchronization cycle.
// Its records never change once the chunk was created.
type Chunk struct {
	index   int
	records []poi.Record
}

// Index is the position of the chunk in the store, which is also its fetch order
func (c Chunk) Index() int {
	return c.index
}

// Len returns the record count
func (c Chunk) Len() int {
	return len(c.records)
}

// At returns the i-th record
func (c Chunk) At(i int) poi.Record {
	return c.records[i]
}

// Records returns a copy of the chunk records in order
func (c Chunk) Records() []poi.Record {
	out := make([]poi.Record, len(c.records))
	copy(out, c.records)
	return out
}

// Merge returns a chunk with the records of fetched that are not present in existing.
// Records keep their order of first appearance in fetched; later duplicates within
// fetched and records without id are dropped. The bool is false if nothing is new.
// The returned chunk has index len(existing).
func Merge(existing []Chunk, fetched []poi.Record) (Chunk, bool) {
	size := 0
	for _, c := range existing {
		size += c.Len()
	}

	seen := make(map[string]struct{}, size+len(fetched))
	for _, c := range existing {
		for _, rec := range c.records {
			seen[rec.ID] = struct{}{}
		}
	}

	var fresh []poi.Record
	for _, rec := range fetched {
		if rec.ID == "" {
			continue
		}
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		seen[rec.ID] = struct{}{}
		fresh = append(fresh, rec)
	}

	if len(fresh) == 0 {
		return Chunk{}, false
	}
	return Chunk{index: len(existing), records: fresh[:len(fresh):len(fresh)]}, true
}
