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

// Package config loads settings from the environment and an optional .env file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Config is the application configuration
type Config struct {
	POIURL       string
	RateURL      string
	Listen       string
	RateTTL      time.Duration
	DiscardStale bool
	// Location is the user position, nil means the user did not share it
	Location  *orb.Point
	LogLevel  string
	LogFormat string
}

// Load reads envFiles (".env" if none given) and then the environment.
// Missing env files are not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(err, "loading %s", f)
		}
	}

	cfg := &Config{
		POIURL:    getenv("STAKEMAP_POI_URL", "https://map-api-direct.foam.space"),
		RateURL:   getenv("STAKEMAP_RATE_URL", "https://poloniex.com/public?command=returnTicker"),
		Listen:    getenv("STAKEMAP_LISTEN", ":8080"),
		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.RateTTL, err = time.ParseDuration(getenv("STAKEMAP_RATE_TTL", "0s")); err != nil {
		return nil, errors.Wrap(err, "STAKEMAP_RATE_TTL")
	}
	if cfg.DiscardStale, err = strconv.ParseBool(getenv("STAKEMAP_DISCARD_STALE", "true")); err != nil {
		return nil, errors.Wrap(err, "STAKEMAP_DISCARD_STALE")
	}
	if cfg.Location, err = parseLocation(os.Getenv("STAKEMAP_LAT"), os.Getenv("STAKEMAP_LON")); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func parseLocation(lat, lon string) (*orb.Point, error) {
	if lat == "" && lon == "" {
		return nil, nil
	}
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil, errors.Wrap(err, "STAKEMAP_LAT")
	}
	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return nil, errors.Wrap(err, "STAKEMAP_LON")
	}
	if la < -90 || la > 90 || lo < -180 || lo > 180 {
		return nil, errors.Errorf("location %f,%f out of range", la, lo)
	}
	return &orb.Point{lo, la}, nil
}

// SetLocation parses a "lat,lon" pair
func (c *Config) SetLocation(s string) error {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return errors.Errorf("location %q is not lat,lon", s)
	}
	p, err := parseLocation(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
	if err != nil {
		return err
	}
	c.Location = p
	return nil
}

// SetupLogging configures the logrus standard logger
func (c *Config) SetupLogging() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	switch strings.ToLower(c.LogFormat) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
