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

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrPermissionDenied is returned when the user does not share a location
var ErrPermissionDenied = errors.New("geolocation permission denied")

// DefaultLocation is used whenever the user location is unavailable (New York City)
var DefaultLocation = orb.Point{-74.0060, 40.7128}

// GeolocationProvider resolves the current user position
type GeolocationProvider interface {
	CurrentPosition(ctx context.Context) (orb.Point, error)
}

// StaticLocator returns a configured position, or ErrPermissionDenied if there is none
type StaticLocator struct {
	Position *orb.Point
}

// CurrentPosition implements GeolocationProvider
func (l StaticLocator) CurrentPosition(ctx context.Context) (orb.Point, error) {
	if err := ctx.Err(); err != nil {
		return orb.Point{}, err
	}
	if l.Position == nil {
		return orb.Point{}, ErrPermissionDenied
	}
	return *l.Position, nil
}

// Locate asks the provider for the user position and falls back to DefaultLocation on any error.
// The second return value is false when the fallback was used.
func Locate(ctx context.Context, provider GeolocationProvider) (orb.Point, bool) {
	if provider == nil {
		return DefaultLocation, false
	}
	p, err := provider.CurrentPosition(ctx)
	if err != nil {
		log.WithError(err).Info("user location unavailable, using default location")
		return DefaultLocation, false
	}
	return p, true
}
