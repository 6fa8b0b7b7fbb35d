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
	"context"
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestBoundsFor(t *testing.T) {
	vp := Viewport{Latitude: 0, Longitude: 0, Zoom: 2, MinZoom: 0, MaxZoom: 20, Width: 512, Height: 512}
	got := BoundsFor(vp)

	// at zoom 2 a 512px canvas spans a quarter of the world width
	if math.Abs(got.SwLng()+45) > 1e-9 || math.Abs(got.NeLng()-45) > 1e-9 {
		t.Errorf("BoundsFor() lng = %f..%f, want -45..45", got.SwLng(), got.NeLng())
	}
	if math.Abs(got.SwLat()+got.NeLat()) > 1e-9 {
		t.Errorf("BoundsFor() lat = %f..%f, want symmetric around 0", got.SwLat(), got.NeLat())
	}
	if !got.Contains(vp.Center()) {
		t.Errorf("BoundsFor() = %v does not contain center", got)
	}
}

func TestBoundsFor_Deterministic(t *testing.T) {
	vp := DefaultViewport()
	a, b := BoundsFor(vp), BoundsFor(vp)
	if a != b {
		t.Errorf("BoundsFor() not deterministic: %v != %v", a, b)
	}

	vp.Zoom++
	zoomed := BoundsFor(vp)
	if zoomed.NeLng()-zoomed.SwLng() >= a.NeLng()-a.SwLng() {
		t.Errorf("zooming in did not shrink the box: %v vs %v", zoomed, a)
	}
}

func TestBoundsFor_Pitch(t *testing.T) {
	vp := DefaultViewport()
	vp.Pitch = 0
	flat := BoundsFor(vp)
	vp.Pitch = 60
	pitched := BoundsFor(vp)
	if pitched.NeLat() <= flat.NeLat() {
		t.Errorf("pitch did not extend the far edge: %v vs %v", pitched, flat)
	}
	if math.Abs(pitched.SwLat()-flat.SwLat()) > 1e-9 {
		t.Errorf("pitch moved the near edge: %v vs %v", pitched, flat)
	}
}

func TestViewport_Clamp(t *testing.T) {
	tests := []struct {
		name string
		in   Viewport
		want Viewport
	}{
		{
			name: "zoom above max",
			in:   Viewport{Zoom: 20, MinZoom: 5, MaxZoom: 16, Width: 10, Height: 10},
			want: Viewport{Zoom: 16, MinZoom: 5, MaxZoom: 16, Width: 10, Height: 10},
		},
		{
			name: "latitude and longitude out of range",
			in:   Viewport{Latitude: 89, Longitude: 190, Zoom: 5, MinZoom: 5, MaxZoom: 16, Width: 10, Height: 10},
			want: Viewport{Latitude: maxLatitude, Longitude: -170, Zoom: 5, MinZoom: 5, MaxZoom: 16, Width: 10, Height: 10},
		},
		{
			name: "empty canvas",
			in:   Viewport{Zoom: 5, MinZoom: 5, MaxZoom: 16, Pitch: 90},
			want: Viewport{Zoom: 5, MinZoom: 5, MaxZoom: 16, Pitch: maxPitch, Width: 1, Height: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Clamp()
			if math.Abs(got.Longitude-tt.want.Longitude) > 1e-9 {
				t.Errorf("Clamp() longitude = %f, want %f", got.Longitude, tt.want.Longitude)
			}
			got.Longitude = tt.want.Longitude
			if got != tt.want {
				t.Errorf("Clamp() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLocate(t *testing.T) {
	user := orb.Point{13.405, 52.52}
	tests := []struct {
		name       string
		provider   GeolocationProvider
		want       orb.Point
		wantLocate bool
	}{
		{name: "user position", provider: StaticLocator{Position: &user}, want: user, wantLocate: true},
		{name: "permission denied", provider: StaticLocator{}, want: DefaultLocation, wantLocate: false},
		{name: "no provider", provider: nil, want: DefaultLocation, wantLocate: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Locate(context.Background(), tt.provider)
			if got != tt.want || ok != tt.wantLocate {
				t.Errorf("Locate() = %v, %v, want %v, %v", got, ok, tt.want, tt.wantLocate)
			}
		})
	}
}
