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

package layer

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/spezifisch/stakemap/pkg/chunk"
	"github.com/spezifisch/stakemap/pkg/hexbin"
)

type aggregation struct {
	grid hexbin.Grid
	bins []hexbin.Bin
}

type binKey struct {
	index   int
	length  int
	firstID string
}

// Builder creates the aggregation layers. Bins of a chunk are computed once per radius
// and shared by every later build, so unchanged chunks keep their layer data.
type Builder struct {
	onHover HoverFunc

	mu     sync.Mutex
	radius float64
	bins   map[binKey]aggregation
}

// NewBuilder returns a builder whose layers all report hovers to onHover
func NewBuilder(onHover HoverFunc) *Builder {
	return &Builder{
		onHover: onHover,
		bins:    make(map[binKey]aggregation),
	}
}

// Build returns two layers per chunk: all density layers in chunk order, then all
// staked value layers in chunk order. Invisible layers are still returned.
func (b *Builder) Build(chunks []chunk.Chunk, settings Settings) []*Layer {
	density := make([]*Layer, 0, len(chunks))
	staked := make([]*Layer, 0, len(chunks))
	for _, c := range chunks {
		agg := b.binsFor(c, settings.Radius)
		density = append(density, b.newLayer(c.Index(), KindDensity, settings.ShowDensityOfPoints, settings, agg))
		staked = append(staked, b.newLayer(c.Index(), KindStaked, settings.ShowStakedTokens, settings, agg))
	}
	return append(density, staked...)
}

func (b *Builder) newLayer(index int, kind Kind, visible bool, settings Settings, agg aggregation) *Layer {
	props := kindProps[kind]
	props.Radius = settings.Radius
	props.Coverage = settings.Coverage
	props.UpperPercentile = settings.UpperPercentile
	props.ElevationScale = settings.ElevationScale
	return &Layer{
		ID:         ID(index, kind),
		Kind:       kind,
		ChunkIndex: index,
		Visible:    visible,
		Props:      props,
		Grid:       agg.grid,
		Bins:       agg.bins,
		OnHover:    b.onHover,
	}
}

func (b *Builder) binsFor(c chunk.Chunk, radius float64) aggregation {
	b.mu.Lock()
	defer b.mu.Unlock()

	if radius != b.radius {
		b.radius = radius
		b.bins = make(map[binKey]aggregation)
	}

	key := binKey{index: c.Index(), length: c.Len()}
	if c.Len() > 0 {
		key.firstID = c.At(0).ID
	}
	if agg, ok := b.bins[key]; ok {
		return agg
	}

	records := c.Records()
	grid := hexbin.GridFor(records, radius)
	agg := aggregation{grid: grid, bins: grid.Aggregate(records)}
	b.bins[key] = agg
	log.WithFields(log.Fields{
		"chunk":   c.Index(),
		"records": c.Len(),
		"bins":    len(agg.bins),
		"radius":  radius,
		"refLat":  grid.RefLat(),
	}).Debug("aggregated chunk")
	return agg
}
