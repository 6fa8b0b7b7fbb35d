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

// Package source talks to the external POI and exchange rate services.
package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/spezifisch/stakemap/pkg/geo"
	"github.com/spezifisch/stakemap/pkg/metrics"
	"github.com/spezifisch/stakemap/pkg/poi"
)

// ErrNetworkFailure wraps every transport, status and decoding failure of a fetch
var ErrNetworkFailure = errors.New("network failure")

// DefaultLimit is the page size requested from the POI API
const DefaultLimit = 10000

// BoundingBoxQueryClient answers bounding box queries with raw POI records
type BoundingBoxQueryClient interface {
	Fetch(ctx context.Context, bbox geo.BoundingBox) ([]poi.RawRecord, error)
}

// HTTPClient queries the POI API at BaseURL
type HTTPClient struct {
	BaseURL string
	Limit   int
	Offset  int
	Client  *http.Client
}

// NewHTTPClient returns a client with the default limit and a 10s timeout
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		Limit:   DefaultLimit,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (c *HTTPClient) requestURL(bbox geo.BoundingBox) (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", err
	}
	u = u.JoinPath("poi", "filtered")

	limit := c.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	q := url.Values{}
	q.Set("swLng", formatCoord(bbox.SwLng()))
	q.Set("swLat", formatCoord(bbox.SwLat()))
	q.Set("neLng", formatCoord(bbox.NeLng()))
	q.Set("neLat", formatCoord(bbox.NeLat()))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(c.Offset))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch implements BoundingBoxQueryClient
func (c *HTTPClient) Fetch(ctx context.Context, bbox geo.BoundingBox) ([]poi.RawRecord, error) {
	var records []poi.RawRecord
	err := getJSON(ctx, c.Client, "poi", func() (string, error) { return c.requestURL(bbox) }, &records)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"bbox": bbox.String(), "records": len(records)}).Debug("fetched bounding box")
	return records, nil
}

func getJSON(ctx context.Context, client *http.Client, service string, buildURL func() (string, error), v interface{}) error {
	u, err := buildURL()
	if err != nil {
		return errors.Wrap(ErrNetworkFailure, err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrap(ErrNetworkFailure, err.Error())
	}
	req.Header.Set("Accept", "application/json")
	if client == nil {
		client = http.DefaultClient
	}

	t0 := time.Now()
	defer func() {
		metrics.FetchDurationMs.WithLabelValues(service).Observe(float64(time.Since(t0).Milliseconds()))
	}()

	resp, err := client.Do(req)
	if err != nil {
		metrics.FetchRequestsTotal.WithLabelValues(service, "error").Inc()
		return errors.Wrapf(ErrNetworkFailure, "%s request: %v", service, err)
	}
	defer resp.Body.Close()

	metrics.FetchRequestsTotal.WithLabelValues(service, strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(ErrNetworkFailure, "%s returned %s", service, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrapf(ErrNetworkFailure, "%s decode: %v", service, err)
	}
	return nil
}
