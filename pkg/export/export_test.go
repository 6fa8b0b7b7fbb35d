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

package export

import (
	"bytes"
	"encoding/xml"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/shopspring/decimal"

	"github.com/spezifisch/stakemap/pkg/chunk"
	"github.com/spezifisch/stakemap/pkg/layer"
	"github.com/spezifisch/stakemap/pkg/poi"
)

func testLayers(t *testing.T, settings layer.Settings) []*layer.Layer {
	t.Helper()
	records := []poi.Record{
		{ID: "a", Position: orb.Point{-73.9857, 40.7484}, StakedValue: decimal.NewFromInt(3)},
		{ID: "b", Position: orb.Point{-73.9858, 40.7485}, StakedValue: decimal.NewFromInt(5)},
		{ID: "c", Position: orb.Point{13.405, 52.52}, StakedValue: decimal.Zero},
	}
	store, _ := chunk.NewStore().Merge(records)
	return layer.NewBuilder(nil).Build(store.Chunks(), settings)
}

func TestGeoJSON(t *testing.T) {
	fc := GeoJSON(testLayers(t, layer.DefaultSettings()))
	if len(fc.Features) != 2 {
		t.Fatalf("GeoJSON() has %d features, want 2", len(fc.Features))
	}
	f := fc.Features[0]
	if f.Properties["kind"] != string(layer.KindDensity) || f.Properties["count"] != 2 || f.Properties["staked"] != "8" {
		t.Errorf("properties = %v", f.Properties)
	}
	poly, ok := f.Geometry.(orb.Polygon)
	if !ok || len(poly) != 1 || len(poly[0]) != 7 || !poly[0].Closed() {
		t.Fatalf("geometry = %v", f.Geometry)
	}
	// opposite vertices are two ground radii apart
	if d := geo.Distance(poly[0][0], poly[0][3]); math.Abs(d-2000) > 20 {
		t.Errorf("hexagon is %.1f m across, want 2000", d)
	}

	var buf bytes.Buffer
	if err := WriteGeoJSON(&buf, testLayers(t, layer.DefaultSettings())); err != nil {
		t.Fatal(err)
	}
	decoded, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	if err != nil {
		t.Fatalf("output is not geojson: %v", err)
	}
	if len(decoded.Features) != 2 {
		t.Errorf("decoded %d features", len(decoded.Features))
	}
}

func TestGeoJSON_OnlyVisible(t *testing.T) {
	s := layer.DefaultSettings()
	s.ShowDensityOfPoints = false
	if fc := GeoJSON(testLayers(t, s)); len(fc.Features) != 0 {
		t.Errorf("hidden layers exported %d features", len(fc.Features))
	}
	s.ShowStakedTokens = true
	fc := GeoJSON(testLayers(t, s))
	if len(fc.Features) != 2 || fc.Features[0].Properties["value"] != 8.0 {
		t.Errorf("staked export = %v", fc.Features)
	}
}

func TestWriteKML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteKML(&buf, testLayers(t, layer.DefaultSettings())); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if n := strings.Count(out, "<Placemark>"); n != 2 {
		t.Errorf("KML has %d placemarks, want 2", n)
	}
	if !strings.Contains(out, "chunk-0-densityOfPoints") || !strings.Contains(out, "points: 2, staked: 8") {
		t.Errorf("KML lacks layer data:\n%s", out)
	}

	dec := xml.NewDecoder(strings.NewReader(out))
	for {
		_, err := dec.Token()
		if err != nil {
			if err != io.EOF {
				t.Fatalf("KML is not well formed: %v", err)
			}
			break
		}
	}
}
