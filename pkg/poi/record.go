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
	"math"
	"math/big"
	"strings"

	"github.com/mmcloughlin/geohash"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// DepositExponent is the fixed-point scale of deposit amounts (10^-18).
const DepositExponent = -18

// PositionPrecision is the number of decimals positions are rounded to.
const PositionPrecision = 4

// ErrMalformedRecord is returned for records lacking a usable id, position or value.
var ErrMalformedRecord = errors.New("malformed record")

// Record is a parsed point of interest. Do not modify it after Parse.
type Record struct {
	ID          string
	Position    orb.Point
	StakedValue decimal.Decimal
}

// RawRecord is a POI as returned by the bounding box API
type RawRecord struct {
	ListingHash string   `json:"listingHash"`
	Geohash     string   `json:"geohash,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Name        string   `json:"name,omitempty"`
	State       RawState `json:"state"`
}

// RawState holds the listing state, only the deposit is used
type RawState struct {
	Deposit string `json:"deposit"`
}

// ParseDeposit converts a hex encoded fixed-point amount into a decimal
func ParseDeposit(hex string) (decimal.Decimal, error) {
	s := strings.TrimSpace(hex)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return decimal.Zero, errors.Wrap(ErrMalformedRecord, "empty deposit")
	}

	amount, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return decimal.Zero, errors.Wrapf(ErrMalformedRecord, "invalid deposit %q", hex)
	}
	if amount.Sign() < 0 {
		return decimal.Zero, errors.Wrapf(ErrMalformedRecord, "negative deposit %q", hex)
	}
	return decimal.NewFromBigInt(amount, DepositExponent), nil
}

// Parse validates the raw record and converts it to a Record
func (r RawRecord) Parse() (rec Record, err error) {
	id := strings.TrimSpace(r.ListingHash)
	if id == "" {
		err = errors.Wrap(ErrMalformedRecord, "missing listingHash")
		return
	}

	pos, err := r.position()
	if err != nil {
		err = errors.WithMessagef(err, "record %s", id)
		return
	}

	value, err := ParseDeposit(r.State.Deposit)
	if err != nil {
		err = errors.WithMessagef(err, "record %s", id)
		return
	}

	return Record{ID: id, Position: pos, StakedValue: value}, nil
}

func (r RawRecord) position() (orb.Point, error) {
	var lat, lon float64
	switch {
	case r.Lon != nil && r.Lat != nil:
		lon, lat = *r.Lon, *r.Lat
	case r.Geohash != "":
		if err := geohash.Validate(r.Geohash); err != nil {
			return orb.Point{}, errors.Wrapf(ErrMalformedRecord, "invalid geohash %q", r.Geohash)
		}
		lat, lon = geohash.DecodeCenter(r.Geohash)
	default:
		return orb.Point{}, errors.Wrap(ErrMalformedRecord, "missing position")
	}

	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return orb.Point{}, errors.Wrapf(ErrMalformedRecord, "position out of range (%f, %f)", lon, lat)
	}
	return orb.Point{roundTo(lon, PositionPrecision), roundTo(lat, PositionPrecision)}, nil
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// ParseAll parses a batch, skipping malformed records. It returns the number of skipped records.
func ParseAll(raws []RawRecord) (records []Record, skipped int) {
	records = make([]Record, 0, len(raws))
	for _, raw := range raws {
		rec, err := raw.Parse()
		if err != nil {
			skipped++
			log.WithError(err).Debug("skipping record")
			continue
		}
		records = append(records, rec)
	}
	return
}
