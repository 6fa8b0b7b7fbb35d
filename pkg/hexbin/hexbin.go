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

// Package hexbin groups records into a pointy-top hexagon grid laid over web mercator.
package hexbin

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/shopspring/decimal"

	"github.com/spezifisch/stakemap/pkg/poi"
)

// Bin is one hexagon cell with the records inside it
type Bin struct {
	Col      int          `json:"col"`
	Row      int          `json:"row"`
	Position orb.Point    `json:"position"`
	Points   []poi.Record `json:"-"`
}

// Count is the number of records in the bin
func (b *Bin) Count() int {
	return len(b.Points)
}

// Sum is the total staked value of the records in the bin
func (b *Bin) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range b.Points {
		sum = sum.Add(p.StakedValue)
	}
	return sum
}

// Grid is a hexagon grid whose cells have a fixed ground radius at a reference latitude.
// Cells are regular hexagons in web mercator, so away from the reference latitude their
// ground size follows the mercator scale.
type Grid struct {
	radius float64
	refLat float64

	// size is the circumradius in mercator units
	size   float64
	dx, dy float64
}

// NewGrid returns a grid with the given circumradius in meters at the equator
func NewGrid(radius float64) Grid {
	return NewGridAt(radius, 0)
}

// NewGridAt returns a grid whose hexagons have the given circumradius in ground meters at refLat
func NewGridAt(radius, refLat float64) Grid {
	refLat = math.Max(-maxLatitude, math.Min(maxLatitude, refLat))
	size := radius / math.Cos(refLat*math.Pi/180)
	return Grid{
		radius: radius,
		refLat: refLat,
		size:   size,
		dx:     size * 2 * math.Sin(math.Pi/3),
		dy:     size * 1.5,
	}
}

// GridFor returns the grid for records, referenced at the center latitude of their bounds
func GridFor(records []poi.Record, radius float64) Grid {
	if len(records) == 0 {
		return NewGrid(radius)
	}
	b := records[0].Position.Bound()
	for _, r := range records[1:] {
		b = b.Extend(r.Position)
	}
	return NewGridAt(radius, b.Center().Lat())
}

// Radius returns the hexagon circumradius in ground meters at the reference latitude
func (g Grid) Radius() float64 {
	return g.radius
}

// RefLat returns the latitude at which cells have their nominal ground radius
func (g Grid) RefLat() float64 {
	return g.refLat
}

// maxLatitude is the web mercator latitude limit
const maxLatitude = 85.051129

func jsRound(v float64) float64 {
	return math.Floor(v + 0.5)
}

func odd(row int) float64 {
	return float64(row & 1)
}

// Cell returns column and row of the hexagon containing p (lon/lat)
func (g Grid) Cell(p orb.Point) (col, row int) {
	m := project.WGS84.ToMercator(p)
	x, y := m.X(), m.Y()

	py := y / g.dy
	pj := jsRound(py)
	px := x/g.dx - odd(int(pj))/2
	pi := jsRound(px)
	py1 := py - pj

	if math.Abs(py1)*3 > 1 {
		px1 := px - pi
		pi2 := pi + sign(px-pi)/2
		pj2 := pj + sign(py-pj)
		px2 := px - pi2
		py2 := py - pj2
		if px1*px1+py1*py1 > px2*px2+py2*py2 {
			pi = pi2 + sign(odd(int(pj))-0.5)/2
			pj = pj2
		}
	}
	return int(pi), int(pj)
}

// sign returns -1 for negative v and 1 otherwise
func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// Center returns the lon/lat center of a cell
func (g Grid) Center(col, row int) orb.Point {
	m := orb.Point{(float64(col) + odd(row)/2) * g.dx, float64(row) * g.dy}
	return project.Mercator.ToWGS84(m)
}

// Hexagon returns the closed outline of a cell in lon/lat
func (g Grid) Hexagon(col, row int) orb.Ring {
	cx := (float64(col) + odd(row)/2) * g.dx
	cy := float64(row) * g.dy
	ring := make(orb.Ring, 0, 7)
	for i := 0; i < 6; i++ {
		angle := math.Pi / 3 * float64(i)
		ring = append(ring, project.Mercator.ToWGS84(orb.Point{
			cx + g.size*math.Sin(angle),
			cy + g.size*math.Cos(angle),
		}))
	}
	return append(ring, ring[0])
}

// Aggregate bins the records. Bins come out in order of their first record.
func (g Grid) Aggregate(records []poi.Record) []Bin {
	type key struct{ col, row int }
	index := make(map[key]int)
	var bins []Bin
	for _, r := range records {
		col, row := g.Cell(r.Position)
		k := key{col, row}
		i, ok := index[k]
		if !ok {
			i = len(bins)
			index[k] = i
			bins = append(bins, Bin{Col: col, Row: row, Position: g.Center(col, row)})
		}
		bins[i].Points = append(bins[i].Points, r)
	}
	return bins
}

// Aggregate bins records with a grid of the given ground radius, see GridFor
func Aggregate(records []poi.Record, radius float64) []Bin {
	return GridFor(records, radius).Aggregate(records)
}
