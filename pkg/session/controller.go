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

package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/spezifisch/stakemap/pkg/chunk"
	"github.com/spezifisch/stakemap/pkg/geo"
	"github.com/spezifisch/stakemap/pkg/hover"
	"github.com/spezifisch/stakemap/pkg/layer"
	"github.com/spezifisch/stakemap/pkg/metrics"
	"github.com/spezifisch/stakemap/pkg/poi"
	"github.com/spezifisch/stakemap/pkg/source"
)

// ErrStopped is returned by calls made after the controller loop ended
var ErrStopped = errors.New("controller stopped")

// Config wires the controller to its collaborators
type Config struct {
	Client   source.BoundingBoxQueryClient
	Rates    source.ExchangeRateProvider
	Locator  geo.GeolocationProvider
	Viewport geo.Viewport
	Settings layer.Settings

	// DiscardStale drops results of superseded fetches
	DiscardStale bool

	// RateRefresh re-reads the exchange rate periodically, zero reads it once at startup
	RateRefresh time.Duration
}

// Snapshot is a consistent read-only view of the session
type Snapshot struct {
	Phase       Phase
	LastOutcome Outcome
	Viewport    geo.Viewport
	Store       *chunk.Store
	Settings    layer.Settings
	Layers      []*layer.Layer
	Hover       hover.State
	Rate        float64
	Seq         uint64
	InFlight    int
}

type settingsMsg struct {
	settings layer.Settings
}

type hoverMsg struct {
	layerID string
	index   int
	x, y    float64
	reply   chan hover.State
}

type rateMsg struct {
	rate float64
}

// Controller is the single writer of the session state. All mutations run on the
// loop started by Run; readers use Snapshot.
type Controller struct {
	client      source.BoundingBoxQueryClient
	rates       source.ExchangeRateProvider
	locator     geo.GeolocationProvider
	rateRefresh time.Duration
	builder     *layer.Builder

	inbox    chan interface{}
	done     chan struct{}
	snapshot atomic.Pointer[Snapshot]

	// fetches counts fetch and rate refresh goroutines
	fetches sync.WaitGroup

	// owned by the loop
	state       State
	settings    layer.Settings
	layers      []*layer.Layer
	hover       hover.State
	rate        float64
	lastOutcome Outcome
}

// NewController returns an idle controller. Call Run to start it.
func NewController(cfg Config) *Controller {
	c := &Controller{
		client:      cfg.Client,
		rates:       cfg.Rates,
		locator:     cfg.Locator,
		rateRefresh: cfg.RateRefresh,
		inbox:       make(chan interface{}, 64),
		done:        make(chan struct{}),
		state:       NewState(cfg.Viewport, cfg.DiscardStale),
		settings:    cfg.Settings,
	}
	c.builder = layer.NewBuilder(c.onHover)
	c.publish()
	return c
}

// Snapshot returns the latest published state
func (c *Controller) Snapshot() *Snapshot {
	return c.snapshot.Load()
}

// Run processes events until ctx is done. In-flight fetches are awaited before returning.
func (c *Controller) Run(ctx context.Context) {
	defer func() {
		close(c.done)
		c.fetches.Wait()
	}()

	c.fetches.Add(1)
	go c.refreshRates(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Debug("session controller stopped")
			return
		case msg := <-c.inbox:
			c.handle(ctx, msg)
			c.publish()
		}
	}
}

func (c *Controller) post(msg interface{}) error {
	select {
	case c.inbox <- msg:
		return nil
	case <-c.done:
		return ErrStopped
	}
}

// Load starts the initial fetch once the map is ready
func (c *Controller) Load() error {
	return c.post(Trigger{Kind: TriggerLoad})
}

// MoveEnd starts a fetch for the viewport reached by a pan or zoom
func (c *Controller) MoveEnd(vp geo.Viewport) error {
	return c.post(Trigger{Kind: TriggerMoveEnd, Viewport: &vp})
}

// Geolocate centers the map on the user, or the default location, and starts a fetch
func (c *Controller) Geolocate(ctx context.Context) error {
	p, _ := geo.Locate(ctx, c.locator)
	return c.post(Trigger{Kind: TriggerGeolocated, Center: &p})
}

// UpdateSettings replaces the layer settings and rebuilds the layers
func (c *Controller) UpdateSettings(s layer.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return c.post(settingsMsg{settings: s})
}

// Hover reports the pointer over bin index of layerID. An unknown layer or index clears the hover.
func (c *Controller) Hover(ctx context.Context, layerID string, index int, x, y float64) (hover.State, error) {
	reply := make(chan hover.State, 1)
	if err := c.post(hoverMsg{layerID: layerID, index: index, x: x, y: y, reply: reply}); err != nil {
		return hover.State{}, err
	}
	select {
	case h := <-reply:
		return h, nil
	case <-ctx.Done():
		return hover.State{}, ctx.Err()
	case <-c.done:
		return hover.State{}, ErrStopped
	}
}

// RefreshRate asks the rate provider once and applies the result
func (c *Controller) RefreshRate(ctx context.Context) error {
	if c.rates == nil {
		return nil
	}
	rate, err := c.rates.Rate(ctx)
	if err == nil {
		err = source.CheckRate(rate)
	}
	if err != nil {
		log.WithError(err).Warn("exchange rate unavailable, keeping previous rate")
		return err
	}
	return c.post(rateMsg{rate: rate})
}

func (c *Controller) refreshRates(ctx context.Context) {
	defer c.fetches.Done()
	c.RefreshRate(ctx)
	if c.rateRefresh <= 0 {
		return
	}
	ticker := time.NewTicker(c.rateRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RefreshRate(ctx)
		}
	}
}

func (c *Controller) handle(ctx context.Context, msg interface{}) {
	switch m := msg.(type) {
	case Event:
		c.step(ctx, m)
	case settingsMsg:
		c.settings = m.settings
		c.rebuild()
		c.hover = hover.State{X: c.hover.X, Y: c.hover.Y}
	case hoverMsg:
		c.hover = hover.State{X: m.x, Y: m.y}
		for _, l := range c.layers {
			if l.ID == m.layerID {
				l.Pick(m.index, m.x, m.y)
				break
			}
		}
		m.reply <- c.hover
	case rateMsg:
		c.rate = m.rate
		log.WithField("rate", m.rate).Info("exchange rate updated")
	}
}

func (c *Controller) step(ctx context.Context, ev Event) {
	var effects []Effect
	c.state, effects = Step(c.state, ev)
	for _, eff := range effects {
		c.apply(ctx, eff)
	}
	c.state, _ = Step(c.state, Settle{})
}

func (c *Controller) apply(ctx context.Context, eff Effect) {
	switch e := eff.(type) {
	case FetchEffect:
		metrics.SyncTriggersTotal.WithLabelValues(string(e.Trigger)).Inc()
		log.WithFields(log.Fields{"seq": e.Seq, "trigger": e.Trigger, "bbox": e.BBox.String()}).Debug("fetching")
		c.fetches.Add(1)
		go c.fetch(ctx, e)
	case RebuildEffect:
		c.rebuild()
		metrics.StoredChunks.Set(float64(e.Store.Len()))
	case OutcomeEffect:
		c.lastOutcome = e.Outcome
		metrics.SyncCyclesTotal.WithLabelValues(string(e.Outcome)).Inc()
		fields := log.Fields{"seq": e.Seq, "outcome": e.Outcome}
		switch e.Outcome {
		case OutcomeFailed:
			log.WithFields(fields).WithError(e.Err).Error("fetch failed, keeping loaded data")
		case OutcomeMerged:
			metrics.MergedRecordsTotal.Add(float64(e.Added))
			log.WithFields(fields).WithField("added", e.Added).Info("merged new records")
		default:
			log.WithFields(fields).Debug("nothing new")
		}
	}
}

func (c *Controller) fetch(ctx context.Context, e FetchEffect) {
	defer c.fetches.Done()
	raws, err := c.client.Fetch(ctx, e.BBox)
	if err != nil {
		c.post(FetchFailed{Seq: e.Seq, Err: err})
		return
	}
	records, skipped := poi.ParseAll(raws)
	if skipped > 0 {
		metrics.SkippedRecordsTotal.Add(float64(skipped))
		log.WithFields(log.Fields{"seq": e.Seq, "skipped": skipped}).Warn("skipped malformed records")
	}
	c.post(FetchDone{Seq: e.Seq, Records: records})
}

func (c *Controller) rebuild() {
	c.layers = c.builder.Build(c.state.Store.Chunks(), c.settings)
}

// onHover is the callback of every layer, it runs on the loop inside Pick
func (c *Controller) onHover(h layer.Hover) {
	c.hover = hover.NewState(h.X, h.Y, h.Bin, c.rate)
}

func (c *Controller) publish() {
	c.snapshot.Store(&Snapshot{
		Phase:       c.state.Phase,
		LastOutcome: c.lastOutcome,
		Viewport:    c.state.Viewport,
		Store:       c.state.Store,
		Settings:    c.settings,
		Layers:      c.layers,
		Hover:       c.hover,
		Rate:        c.rate,
		Seq:         c.state.Seq,
		InFlight:    c.state.InFlight,
	})
}
