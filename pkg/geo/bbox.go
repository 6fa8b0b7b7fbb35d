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

package geo

import (
	"fmt"

	"github.com/paulmach/orb"
)

// BoundingBox is the southwest/northeast extent of a query
type BoundingBox struct {
	bound orb.Bound
}

// NewBoundingBox creates a box from its corners
func NewBoundingBox(swLng, swLat, neLng, neLat float64) BoundingBox {
	return BoundingBox{bound: orb.Bound{Min: orb.Point{swLng, swLat}, Max: orb.Point{neLng, neLat}}}
}

func (b BoundingBox) SwLng() float64 { return b.bound.Min.Lon() }
func (b BoundingBox) SwLat() float64 { return b.bound.Min.Lat() }
func (b BoundingBox) NeLng() float64 { return b.bound.Max.Lon() }
func (b BoundingBox) NeLat() float64 { return b.bound.Max.Lat() }

// Bound returns the underlying orb bound
func (b BoundingBox) Bound() orb.Bound {
	return b.bound
}

// Contains reports whether p lies inside the box, edges included
func (b BoundingBox) Contains(p orb.Point) bool {
	return b.bound.Contains(p)
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("[%f,%f %f,%f]", b.SwLng(), b.SwLat(), b.NeLng(), b.NeLat())
}
