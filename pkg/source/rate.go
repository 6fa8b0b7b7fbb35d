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

package source

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrRateUnavailable is returned when no exchange rate could be determined
var ErrRateUnavailable = errors.New("exchange rate unavailable")

// DefaultPairs converts the token to USD via BTC
var DefaultPairs = []string{"USDC_BTC", "BTC_FOAM"}

// ExchangeRateProvider returns the fiat value of one token
type ExchangeRateProvider interface {
	Rate(ctx context.Context) (float64, error)
}

// CheckRate returns ErrRateUnavailable unless rate is a finite, non-negative number
func CheckRate(rate float64) error {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		return errors.Wrapf(ErrRateUnavailable, "unusable rate %v", rate)
	}
	return nil
}

type tickerEntry struct {
	Last string `json:"last"`
}

// TickerRateProvider multiplies the last prices of a chain of ticker pairs
type TickerRateProvider struct {
	URL    string
	Pairs  []string
	Client *http.Client
}

// NewTickerRateProvider returns a provider for the default pair chain
func NewTickerRateProvider(url string) *TickerRateProvider {
	return &TickerRateProvider{
		URL:    url,
		Pairs:  DefaultPairs,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Rate implements ExchangeRateProvider
func (p *TickerRateProvider) Rate(ctx context.Context) (float64, error) {
	var ticker map[string]tickerEntry
	err := getJSON(ctx, p.Client, "rate", func() (string, error) { return p.URL, nil }, &ticker)
	if err != nil {
		return 0, errors.Wrap(ErrRateUnavailable, err.Error())
	}

	rate := 1.0
	for _, pair := range p.Pairs {
		entry, ok := ticker[pair]
		if !ok {
			return 0, errors.Wrapf(ErrRateUnavailable, "pair %s missing", pair)
		}
		last, err := strconv.ParseFloat(entry.Last, 64)
		if err != nil || CheckRate(last) != nil {
			return 0, errors.Wrapf(ErrRateUnavailable, "pair %s has invalid price %q", pair, entry.Last)
		}
		rate *= last
	}
	if err := CheckRate(rate); err != nil {
		return 0, err
	}
	log.WithField("rate", rate).Debug("fetched exchange rate")
	return rate, nil
}

// StaticRate is a fixed exchange rate
type StaticRate float64

// Rate implements ExchangeRateProvider
func (r StaticRate) Rate(ctx context.Context) (float64, error) {
	if err := CheckRate(float64(r)); err != nil {
		return 0, err
	}
	return float64(r), nil
}

const rateKey = "rate"

// CachedRateProvider remembers the last successful rate. With a zero TTL the rate
// is fetched once and kept for the whole session.
type CachedRateProvider struct {
	provider ExchangeRateProvider
	cache    *gocache.Cache
	ttl      time.Duration
}

// NewCachedRateProvider wraps provider
func NewCachedRateProvider(provider ExchangeRateProvider, ttl time.Duration) *CachedRateProvider {
	expiration := ttl
	if ttl <= 0 {
		expiration = gocache.NoExpiration
	}
	return &CachedRateProvider{
		provider: provider,
		cache:    gocache.New(expiration, 10*time.Minute),
		ttl:      expiration,
	}
}

// Rate implements ExchangeRateProvider
func (c *CachedRateProvider) Rate(ctx context.Context) (float64, error) {
	if v, ok := c.cache.Get(rateKey); ok {
		return v.(float64), nil
	}
	rate, err := c.provider.Rate(ctx)
	if err == nil {
		err = CheckRate(rate)
	}
	if err != nil {
		return 0, err
	}
	c.cache.Set(rateKey, rate, c.ttl)
	return rate, nil
}
