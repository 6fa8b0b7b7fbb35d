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

// Package hover formats the summary shown for a hovered hexagon.
package hover

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/spezifisch/stakemap/pkg/hexbin"
)

// Places is the number of decimals of token and fiat totals
const Places = 2

// Detail is the formatted summary of one bin
type Detail struct {
	Latitude         float64         `json:"latitude"`
	Longitude        float64         `json:"longitude"`
	PointCount       int             `json:"pointCount"`
	TotalStaked      decimal.Decimal `json:"totalStaked"`
	TotalValueInFiat decimal.Decimal `json:"totalValueInFiat"`
}

// State is the current pointer position and what is under it
type State struct {
	X      float64     `json:"x"`
	Y      float64     `json:"y"`
	Bin    *hexbin.Bin `json:"bin,omitempty"`
	Detail *Detail     `json:"detail,omitempty"`
}

// roundHalfUp rounds non-negative amounts half up; decimal rounds half away from zero
func roundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Resolve summarizes bin using the token exchange rate. A nil bin yields nil.
// A rate that is negative, NaN or infinite counts as no rate, the fiat value is then zero.
func Resolve(bin *hexbin.Bin, rate float64) *Detail {
	if bin == nil {
		return nil
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		rate = 0
	}
	staked := roundHalfUp(bin.Sum())
	return &Detail{
		Latitude:         bin.Position.Lat(),
		Longitude:        bin.Position.Lon(),
		PointCount:       bin.Count(),
		TotalStaked:      staked,
		TotalValueInFiat: roundHalfUp(staked.Mul(decimal.NewFromFloat(rate))),
	}
}

// NewState builds the hover state for a pointer event
func NewState(x, y float64, bin *hexbin.Bin, rate float64) State {
	return State{X: x, Y: y, Bin: bin, Detail: Resolve(bin, rate)}
}
