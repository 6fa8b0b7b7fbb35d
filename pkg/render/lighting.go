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

// Package render describes how the hexagon layers are lit by the map client.
package render

// RGB is an 8 bit per channel color
type RGB [3]uint8

// White is full intensity white
var White = RGB{255, 255, 255}

// AmbientLight lights every surface evenly
type AmbientLight struct {
	Color     RGB     `json:"color"`
	Intensity float64 `json:"intensity"`
}

// PointLight emits from a geographic position, Position is [lon, lat, altitude meters]
type PointLight struct {
	Color     RGB        `json:"color"`
	Intensity float64    `json:"intensity"`
	Position  [3]float64 `json:"position"`
}

// Lighting is the light setup applied to extruded layers
type Lighting struct {
	Ambient AmbientLight `json:"ambientLight"`
	Point1  PointLight   `json:"pointLight1"`
	Point2  PointLight   `json:"pointLight2"`
}

// DefaultLighting returns an ambient light plus two point lights over western Europe
func DefaultLighting() Lighting {
	return Lighting{
		Ambient: AmbientLight{Color: White, Intensity: 1.0},
		Point1: PointLight{
			Color:     White,
			Intensity: 0.8,
			Position:  [3]float64{-0.144528, 49.739968, 80000},
		},
		Point2: PointLight{
			Color:     White,
			Intensity: 0.8,
			Position:  [3]float64{-3.807751, 54.104682, 8000},
		},
	}
}

