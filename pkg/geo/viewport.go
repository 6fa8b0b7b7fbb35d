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

// Package geo holds the map viewport and derives the bounding box used for POI queries.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

const (
	// tileSize is the pixel width of one zoom level 0 world, as used by the map renderer
	tileSize = 512
	// maxLatitude is the web mercator latitude limit
	maxLatitude = 85.051129
	// maxPitch beyond which the far edge of the view goes to the horizon
	maxPitch = 85.0

	earthCircumference = 2 * math.Pi * 6378137
)

// Viewport is the current map camera plus the canvas size in pixels
type Viewport struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      float64 `json:"zoom"`
	Pitch     float64 `json:"pitch"`
	Bearing   float64 `json:"bearing"`
	MinZoom   float64 `json:"minZoom"`
	MaxZoom   float64 `json:"maxZoom"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
}

// DefaultViewport is the initial camera, centered on DefaultLocation
func DefaultViewport() Viewport {
	return Viewport{
		Latitude:  DefaultLocation.Lat(),
		Longitude: DefaultLocation.Lon(),
		Zoom:      11.6,
		Pitch:     40.5,
		Bearing:   0,
		MinZoom:   5,
		MaxZoom:   16,
		Width:     1280,
		Height:    720,
	}
}

// Center returns the viewport center as lon/lat point
func (vp Viewport) Center() orb.Point {
	return orb.Point{vp.Longitude, vp.Latitude}
}

// WithCenter returns a copy of vp moved to p
func (vp Viewport) WithCenter(p orb.Point) Viewport {
	vp.Longitude = p.Lon()
	vp.Latitude = p.Lat()
	return vp.Clamp()
}

// Clamp keeps zoom, pitch and latitude inside the ranges the renderer accepts
func (vp Viewport) Clamp() Viewport {
	if vp.MaxZoom < vp.MinZoom {
		vp.MaxZoom = vp.MinZoom
	}
	vp.Zoom = math.Max(vp.MinZoom, math.Min(vp.MaxZoom, vp.Zoom))
	vp.Pitch = math.Max(0, math.Min(maxPitch, vp.Pitch))
	vp.Latitude = math.Max(-maxLatitude, math.Min(maxLatitude, vp.Latitude))
	vp.Longitude = wrapLongitude(vp.Longitude)
	if vp.Width <= 0 {
		vp.Width = 1
	}
	if vp.Height <= 0 {
		vp.Height = 1
	}
	return vp
}

// MetersPerPixel at the viewport zoom, in mercator meters
func (vp Viewport) MetersPerPixel() float64 {
	return earthCircumference / (tileSize * math.Pow(2, vp.Zoom))
}

// BoundsFor derives the bounding box of everything visible in the viewport.
// Pitch stretches the far edge, bearing rotates the view before taking the envelope.
func BoundsFor(vp Viewport) BoundingBox {
	vp = vp.Clamp()
	mpp := vp.MetersPerPixel()
	halfW := float64(vp.Width) / 2 * mpp
	halfH := float64(vp.Height) / 2 * mpp
	farH := halfH / math.Cos(vp.Pitch*math.Pi/180)

	corners := []orb.Point{{-halfW, -halfH}, {halfW, -halfH}, {halfW, farH}, {-halfW, farH}}

	theta := -vp.Bearing * math.Pi / 180
	sin, cos := math.Sin(theta), math.Cos(theta)
	center := project.WGS84.ToMercator(vp.Center())

	bound := orb.Bound{Min: orb.Point{math.Inf(1), math.Inf(1)}, Max: orb.Point{math.Inf(-1), math.Inf(-1)}}
	for _, c := range corners {
		rotated := orb.Point{
			center.X() + c.X()*cos - c.Y()*sin,
			center.Y() + c.X()*sin + c.Y()*cos,
		}
		bound = bound.Extend(rotated)
	}

	sw := project.Mercator.ToWGS84(bound.Min)
	ne := project.Mercator.ToWGS84(bound.Max)
	return NewBoundingBox(
		math.Max(-180, sw.Lon()), math.Max(-maxLatitude, sw.Lat()),
		math.Min(180, ne.Lon()), math.Min(maxLatitude, ne.Lat()),
	)
}

func wrapLongitude(lon float64) float64 {
	if lon >= -180 && lon <= 180 {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}
