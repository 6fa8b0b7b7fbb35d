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

// Package export writes the visible hexagon layers as KML or GeoJSON.
package export

import (
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
	kml "github.com/twpayne/go-kml/v2"

	"github.com/spezifisch/stakemap/pkg/hexbin"
	"github.com/spezifisch/stakemap/pkg/layer"
)

// visible yields every bin of the visible layers together with its outline
func visible(layers []*layer.Layer, fn func(l *layer.Layer, bin *hexbin.Bin, outline orb.Ring)) {
	for _, l := range layers {
		if l == nil || !l.Visible {
			continue
		}
		for i := range l.Bins {
			bin := &l.Bins[i]
			fn(l, bin, l.Grid.Hexagon(bin.Col, bin.Row))
		}
	}
}

// GeoJSON returns one polygon feature per hexagon of the visible layers
func GeoJSON(layers []*layer.Layer) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	visible(layers, func(l *layer.Layer, bin *hexbin.Bin, outline orb.Ring) {
		f := geojson.NewFeature(orb.Polygon{outline})
		f.ID = fmt.Sprintf("%s-%d-%d", l.ID, bin.Col, bin.Row)
		f.Properties["layer"] = l.ID
		f.Properties["kind"] = string(l.Kind)
		f.Properties["count"] = bin.Count()
		f.Properties["staked"] = bin.Sum().String()
		f.Properties["value"] = l.Value(bin)
		fc.Append(f)
	})
	return fc
}

// WriteGeoJSON encodes GeoJSON(layers) to w
func WriteGeoJSON(w io.Writer, layers []*layer.Layer) error {
	b, err := GeoJSON(layers).MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "encoding geojson")
	}
	_, err = w.Write(b)
	return err
}

// KML returns a document with one folder per visible layer and one placemark per hexagon.
// Coordinates carry the scaled layer value as altitude.
func KML(layers []*layer.Layer) *kml.CompoundElement {
	folders := make(map[string][]kml.Element)
	var order []string
	visible(layers, func(l *layer.Layer, bin *hexbin.Bin, outline orb.Ring) {
		alt := l.Value(bin) * l.Props.ElevationScale
		coords := make([]kml.Coordinate, len(outline))
		for i, p := range outline {
			coords[i] = kml.Coordinate{Lon: p.Lon(), Lat: p.Lat(), Alt: alt}
		}
		if _, ok := folders[l.ID]; !ok {
			order = append(order, l.ID)
			folders[l.ID] = []kml.Element{kml.Name(l.ID)}
		}
		folders[l.ID] = append(folders[l.ID], kml.Placemark(
			kml.Name(fmt.Sprintf("%d/%d", bin.Col, bin.Row)),
			kml.Description(fmt.Sprintf("points: %d, staked: %s", bin.Count(), bin.Sum().String())),
			kml.Polygon(
				kml.OuterBoundaryIs(
					kml.LinearRing(kml.Coordinates(coords...)),
				),
			),
		))
	})

	children := []kml.Element{kml.Name("stakemap")}
	for _, id := range order {
		children = append(children, kml.Folder(folders[id]...))
	}
	return kml.KML(kml.Document(children...))
}

// WriteKML writes KML(layers) indented to w
func WriteKML(w io.Writer, layers []*layer.Layer) error {
	return errors.Wrap(KML(layers).WriteIndent(w, "", "  "), "writing kml")
}
