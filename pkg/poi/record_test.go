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

package poi

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

func float(v float64) *float64 { return &v }

func TestParseDeposit(t *testing.T) {
	tests := []struct {
		name    string
		hex     string
		want    string
		wantErr bool
	}{
		{name: "one token", hex: "0xde0b6b3a7640000", want: "1"},
		{name: "ten tokens", hex: "0x8ac7230489e80000", want: "10"},
		{name: "no prefix", hex: "de0b6b3a7640000", want: "1"},
		{name: "smallest unit", hex: "0x1", want: "0.000000000000000001"},
		// 2^80 wei exceeds float64 integer precision
		{name: "large amount", hex: "0x100000000000000000000", want: "1208925.819614629174706176"},
		{name: "zero", hex: "0x0", want: "0"},
		{name: "empty", hex: "", wantErr: true},
		{name: "prefix only", hex: "0x", wantErr: true},
		{name: "not hex", hex: "0xzz", wantErr: true},
		{name: "negative", hex: "-0x1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDeposit(tt.hex)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDeposit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedRecord) {
					t.Errorf("ParseDeposit() error = %v, want ErrMalformedRecord", err)
				}
				return
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ParseDeposit() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRawRecord_Parse(t *testing.T) {
	tests := []struct {
		name    string
		raw     RawRecord
		wantPos orb.Point
		wantVal string
		wantErr bool
	}{
		{
			name:    "lon lat",
			raw:     RawRecord{ListingHash: "a", Lon: float(-73.98571234), Lat: float(40.74844321), State: RawState{Deposit: "0xde0b6b3a7640000"}},
			wantPos: orb.Point{-73.9857, 40.7484},
			wantVal: "1",
		},
		{
			name:    "geohash",
			raw:     RawRecord{ListingHash: "b", Geohash: "s00000000000", State: RawState{Deposit: "0x0"}},
			wantPos: orb.Point{0, 0},
			wantVal: "0",
		},
		{
			name:    "missing id",
			raw:     RawRecord{Geohash: "dr5r", State: RawState{Deposit: "0x1"}},
			wantErr: true,
		},
		{
			name:    "missing position",
			raw:     RawRecord{ListingHash: "c", State: RawState{Deposit: "0x1"}},
			wantErr: true,
		},
		{
			name:    "invalid geohash",
			raw:     RawRecord{ListingHash: "d", Geohash: "aaaa", State: RawState{Deposit: "0x1"}},
			wantErr: true,
		},
		{
			name:    "latitude out of range",
			raw:     RawRecord{ListingHash: "e", Lon: float(0), Lat: float(91), State: RawState{Deposit: "0x1"}},
			wantErr: true,
		},
		{
			name:    "missing deposit",
			raw:     RawRecord{ListingHash: "f", Geohash: "dr5r"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.raw.Parse()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedRecord) {
					t.Errorf("Parse() error = %v, want ErrMalformedRecord", err)
				}
				return
			}
			if got.Position != tt.wantPos {
				t.Errorf("Parse() position = %v, want %v", got.Position, tt.wantPos)
			}
			if !got.StakedValue.Equal(decimal.RequireFromString(tt.wantVal)) {
				t.Errorf("Parse() value = %s, want %s", got.StakedValue, tt.wantVal)
			}
		})
	}
}

func TestParseAll(t *testing.T) {
	raws := []RawRecord{
		{ListingHash: "a", Geohash: "dr5r", State: RawState{Deposit: "0x1"}},
		{ListingHash: "", Geohash: "dr5r", State: RawState{Deposit: "0x1"}},
		{ListingHash: "b", Geohash: "dr5r", State: RawState{Deposit: "nope"}},
		{ListingHash: "c", Geohash: "dr5x", State: RawState{Deposit: "0x2"}},
	}

	records, skipped := ParseAll(raws)
	if skipped != 2 {
		t.Errorf("ParseAll() skipped = %d, want 2", skipped)
	}
	if len(records) != 2 || records[0].ID != "a" || records[1].ID != "c" {
		t.Errorf("ParseAll() = %v, want records a and c", records)
	}
}
