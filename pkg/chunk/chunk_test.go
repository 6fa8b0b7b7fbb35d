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
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"

	"github.com/spezifisch/stakemap/pkg/poi"
)

func rec(id string, x float64, val int64) poi.Record {
	return poi.Record{ID: id, Position: orb.Point{x, x}, StakedValue: decimal.NewFromInt(val)}
}

func ids(records []poi.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestMerge(t *testing.T) {
	first := []poi.Record{rec("a", 0, 5), rec("b", 1, 3)}
	c0, ok := Merge(nil, first)
	if !ok {
		t.Fatal("Merge() into empty store returned nothing")
	}
	existing := []Chunk{c0}

	tests := []struct {
		name    string
		fetched []poi.Record
		want    []string
		wantOK  bool
	}{
		{name: "only new record", fetched: []poi.Record{rec("a", 0, 5), rec("c", 2, 1)}, want: []string{"c"}, wantOK: true},
		{name: "identical batch", fetched: first, wantOK: false},
		{name: "empty batch", fetched: nil, wantOK: false},
		{
			name:    "intra-batch duplicates keep first",
			fetched: []poi.Record{rec("d", 4, 1), rec("e", 5, 2), rec("d", 9, 9)},
			want:    []string{"d", "e"},
			wantOK:  true,
		},
		{name: "missing id skipped", fetched: []poi.Record{rec("", 3, 1), rec("f", 6, 1)}, want: []string{"f"}, wantOK: true},
		{
			name:    "order of first appearance",
			fetched: []poi.Record{rec("z", 1, 1), rec("b", 1, 3), rec("y", 1, 1), rec("x", 1, 1)},
			want:    []string{"z", "y", "x"},
			wantOK:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Merge(existing, tt.fetched)
			if ok != tt.wantOK {
				t.Fatalf("Merge() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if !reflect.DeepEqual(ids(got.Records()), tt.want) {
				t.Errorf("Merge() = %v, want %v", ids(got.Records()), tt.want)
			}
			if got.Index() != 1 {
				t.Errorf("Merge() index = %d, want 1", got.Index())
			}
		})
	}
}

func TestMerge_FirstOccurrenceWins(t *testing.T) {
	got, _ := Merge(nil, []poi.Record{rec("d", 4, 1), rec("d", 9, 9)})
	if got.At(0).Position != (orb.Point{4, 4}) || !got.At(0).StakedValue.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Merge() kept %v, want first occurrence", got.At(0))
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	fetched := []poi.Record{rec("a", 0, 1), rec("a", 1, 1), rec("b", 2, 1)}
	before := append([]poi.Record(nil), fetched...)
	c0, _ := Merge(nil, []poi.Record{rec("x", 0, 1)})
	existing := []Chunk{c0}

	got, _ := Merge(existing, fetched)
	if !reflect.DeepEqual(fetched, before) {
		t.Errorf("Merge() mutated fetched: %v", fetched)
	}
	if !reflect.DeepEqual(ids(existing[0].Records()), []string{"x"}) {
		t.Errorf("Merge() mutated existing: %v", existing)
	}

	// the result must not share capacity with anything the caller can append to
	r := got.Records()
	r[0] = rec("mutated", 0, 0)
	if got.At(0).ID != "a" {
		t.Errorf("Records() exposes chunk storage")
	}
}

func TestStore_Scenarios(t *testing.T) {
	s := NewStore()

	s, ok := s.Merge([]poi.Record{rec("a", 0, 5), rec("b", 1, 3)})
	if !ok || !reflect.DeepEqual(ids(s.Chunks()[0].Records()), []string{"a", "b"}) {
		t.Fatalf("scenario A: got %v", ids(s.All()))
	}

	s, ok = s.Merge([]poi.Record{rec("a", 0, 5), rec("c", 2, 1)})
	if !ok || !reflect.DeepEqual(ids(s.Chunks()[1].Records()), []string{"c"}) {
		t.Fatalf("scenario B: got %v", ids(s.All()))
	}

	next, ok := s.Merge([]poi.Record{rec("a", 0, 5), rec("c", 2, 1)})
	if ok || next != s {
		t.Errorf("idempotence: re-merge returned a new chunk")
	}

	if s.Len() != 2 || s.Count() != 3 {
		t.Errorf("Len() = %d, Count() = %d, want 2 and 3", s.Len(), s.Count())
	}
	if !reflect.DeepEqual(ids(s.All()), []string{"a", "b", "c"}) {
		t.Errorf("All() = %v", ids(s.All()))
	}
}

func TestStore_AppendKeepsPrevious(t *testing.T) {
	base := NewStore()
	base, _ = base.Merge([]poi.Record{rec("a", 0, 1)})

	left, _ := base.Merge([]poi.Record{rec("l", 0, 1)})
	right, _ := base.Merge([]poi.Record{rec("r", 0, 1)})

	if base.Len() != 1 {
		t.Errorf("base changed: %v", ids(base.All()))
	}
	if !reflect.DeepEqual(ids(left.All()), []string{"a", "l"}) {
		t.Errorf("left = %v", ids(left.All()))
	}
	if !reflect.DeepEqual(ids(right.All()), []string{"a", "r"}) {
		t.Errorf("right = %v", ids(right.All()))
	}
	for i, c := range right.Chunks() {
		if c.Index() != i {
			t.Errorf("chunk %d has index %d", i, c.Index())
		}
	}
}

func TestStore_Uniqueness(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	s := NewStore()
	merged := 0
	for cycle := 0; cycle < 200; cycle++ {
		batch := make([]poi.Record, rnd.Intn(30))
		for i := range batch {
			batch[i] = rec(fmt.Sprintf("id-%d", rnd.Intn(500)), rnd.Float64(), 1)
		}
		var ok bool
		before := s.Count()
		s, ok = s.Merge(batch)
		if ok {
			merged += s.Count() - before
		}
	}

	seen := map[string]bool{}
	for _, r := range s.All() {
		if seen[r.ID] {
			t.Fatalf("duplicate id %s in store", r.ID)
		}
		seen[r.ID] = true
	}

	total := 0
	for _, c := range s.Chunks() {
		if c.Len() == 0 {
			t.Errorf("empty chunk %d", c.Index())
		}
		total += c.Len()
	}
	if total != s.Count() || total != merged || total != len(seen) {
		t.Errorf("chunk sum %d, Count() %d, merged %d, unique %d", total, s.Count(), merged, len(seen))
	}
}
