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

// Package layer turns loaded chunks and the user settings into hexagon aggregation layers.
package layer

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/spezifisch/stakemap/pkg/hexbin"
)

// Kind is the metric a layer visualizes
type Kind string

const (
	// KindDensity counts the records per hexagon
	KindDensity Kind = "densityOfPoints"
	// KindStaked sums the staked value per hexagon
	KindStaked Kind = "stakedToken"
)

// ID returns the stable layer id for a chunk index and kind
func ID(chunkIndex int, kind Kind) string {
	return fmt.Sprintf("chunk-%d-%s", chunkIndex, kind)
}

// Props are passed to the renderer unchanged
type Props struct {
	Radius          float64    `json:"radius"`
	Coverage        float64    `json:"coverage"`
	UpperPercentile float64    `json:"upperPercentile"`
	ElevationScale  float64    `json:"elevationScale"`
	Extruded        bool       `json:"extruded"`
	Opacity         float64    `json:"opacity"`
	ElevationRange  [2]float64 `json:"elevationRange"`
	ColorRange      [][3]uint8 `json:"colorRange"`
}

var kindProps = map[Kind]Props{
	KindDensity: {
		Extruded:       true,
		Opacity:        1,
		ElevationRange: [2]float64{0, 3000},
		ColorRange: [][3]uint8{
			{1, 152, 189}, {73, 227, 206}, {216, 254, 181},
			{254, 237, 177}, {254, 173, 84}, {209, 55, 78},
		},
	},
	KindStaked: {
		Extruded:       true,
		Opacity:        0.8,
		ElevationRange: [2]float64{0, 5000},
		ColorRange: [][3]uint8{
			{255, 255, 178}, {254, 217, 118}, {254, 178, 76},
			{253, 141, 60}, {240, 59, 32}, {189, 0, 38},
		},
	},
}

// Hover is delivered to the hover callback. Bin is nil when the pointer left all hexagons.
type Hover struct {
	X       float64
	Y       float64
	LayerID string
	Bin     *hexbin.Bin
}

// HoverFunc receives hover events of every layer
type HoverFunc func(Hover)

// Layer is one hexagon aggregation layer for one chunk
type Layer struct {
	ID         string
	Kind       Kind
	ChunkIndex int
	Visible    bool
	Props      Props

	// Grid is the hexagon grid the bins were computed on
	Grid    hexbin.Grid
	Bins    []hexbin.Bin
	OnHover HoverFunc
}

// Value is the metric of a bin used for both elevation and color
func (l *Layer) Value(bin *hexbin.Bin) float64 {
	if l.Kind == KindStaked {
		f, _ := bin.Sum().Float64()
		return f
	}
	return float64(bin.Count())
}

// Pick reports a hover over the bin at index i. An index outside the layer clears the hover.
func (l *Layer) Pick(i int, x, y float64) {
	if l.OnHover == nil {
		return
	}
	h := Hover{X: x, Y: y, LayerID: l.ID}
	if i >= 0 && i < len(l.Bins) {
		h.Bin = &l.Bins[i]
	}
	l.OnHover(h)
}

type cellJSON struct {
	Index     int       `json:"index"`
	Position  orb.Point `json:"position"`
	Count     int       `json:"count"`
	Elevation float64   `json:"elevationValue"`
	Color     float64   `json:"colorValue"`
}

// MarshalJSON encodes the layer the way the render backend consumes it
func (l *Layer) MarshalJSON() ([]byte, error) {
	cells := make([]cellJSON, len(l.Bins))
	for i := range l.Bins {
		v := l.Value(&l.Bins[i])
		cells[i] = cellJSON{
			Index:     i,
			Position:  l.Bins[i].Position,
			Count:     l.Bins[i].Count(),
			Elevation: v,
			Color:     v,
		}
	}
	return json.Marshal(struct {
		ID          string     `json:"id"`
		Kind        Kind       `json:"kind"`
		ChunkIndex  int        `json:"chunkIndex"`
		Visible     bool       `json:"visible"`
		Props       Props      `json:"props"`
		RefLatitude float64    `json:"refLatitude"`
		Cells       []cellJSON `json:"cells"`
	}{l.ID, l.Kind, l.ChunkIndex, l.Visible, l.Props, l.Grid.RefLat(), cells})
}
