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

// Package session coordinates when POI fetches start and how their results reach the chunk store.
package session

import (
	"github.com/paulmach/orb"

	"github.com/spezifisch/stakemap/pkg/chunk"
	"github.com/spezifisch/stakemap/pkg/geo"
	"github.com/spezifisch/stakemap/pkg/poi"
)

// Phase of the synchronization cycle
type Phase int

const (
	Idle Phase = iota
	Fetching
	Merged
	NoOp
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Merged:
		return "merged"
	case NoOp:
		return "noop"
	}
	return "unknown"
}

// TriggerKind names what started a fetch
type TriggerKind string

const (
	TriggerLoad       TriggerKind = "load"
	TriggerMoveEnd    TriggerKind = "moveend"
	TriggerGeolocated TriggerKind = "geolocated"
)

// Outcome of a finished fetch
type Outcome string

const (
	OutcomeMerged Outcome = "merged"
	OutcomeNoOp   Outcome = "noop"
	OutcomeStale  Outcome = "stale"
	OutcomeFailed Outcome = "failed"
)

// State is everything the synchronization decides on. Step never modifies a State in place.
type State struct {
	Phase    Phase
	Viewport geo.Viewport
	Store    *chunk.Store

	// Seq is the token of the latest issued fetch
	Seq uint64

	// InFlight counts fetches without a result yet
	InFlight int

	// outstanding holds the seqs counted by InFlight, it is replaced and never changed in place
	outstanding map[uint64]struct{}

	// DiscardStale drops results of fetches that were superseded by a newer trigger
	DiscardStale bool
}

// NewState returns the initial idle state
func NewState(vp geo.Viewport, discardStale bool) State {
	return State{
		Phase:        Idle,
		Viewport:     vp.Clamp(),
		Store:        chunk.NewStore(),
		DiscardStale: discardStale,
	}
}

// Event is an input of Step
type Event interface {
	isEvent()
}

// Trigger starts a new fetch. Viewport replaces the current viewport, Center moves it.
type Trigger struct {
	Kind     TriggerKind
	Viewport *geo.Viewport
	Center   *orb.Point
}

// FetchDone carries the parsed records of fetch Seq
type FetchDone struct {
	Seq     uint64
	Records []poi.Record
}

// FetchFailed reports that fetch Seq did not produce records
type FetchFailed struct {
	Seq uint64
	Err error
}

// Settle ends a Merged or NoOp phase
type Settle struct{}

func (Trigger) isEvent()     {}
func (FetchDone) isEvent()   {}
func (FetchFailed) isEvent() {}
func (Settle) isEvent()      {}

// Effect is an output of Step for the caller to carry out
type Effect interface {
	isEffect()
}

// FetchEffect asks for a bounding box query
type FetchEffect struct {
	Seq     uint64
	Trigger TriggerKind
	BBox    geo.BoundingBox
}

// RebuildEffect asks to rebuild the layers for Store
type RebuildEffect struct {
	Store *chunk.Store
}

// OutcomeEffect reports how a fetch ended
type OutcomeEffect struct {
	Seq     uint64
	Outcome Outcome
	Added   int
	Err     error
}

func (FetchEffect) isEffect()   {}
func (RebuildEffect) isEffect() {}
func (OutcomeEffect) isEffect() {}

// Step is the transition function of the synchronization state machine
func Step(s State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case Trigger:
		if ev.Viewport != nil {
			s.Viewport = ev.Viewport.Clamp()
		}
		if ev.Center != nil {
			s.Viewport = s.Viewport.WithCenter(*ev.Center)
		}
		s.Seq++
		s = s.withOutstanding(s.Seq, true)
		s.Phase = Fetching
		// the box always comes from the viewport as of this trigger
		return s, []Effect{FetchEffect{Seq: s.Seq, Trigger: ev.Kind, BBox: geo.BoundsFor(s.Viewport)}}

	case FetchDone:
		if !s.pending(ev.Seq) {
			return s, nil
		}
		s = s.withOutstanding(ev.Seq, false)
		if s.DiscardStale && ev.Seq != s.Seq {
			s.Phase = NoOp
			return s, []Effect{OutcomeEffect{Seq: ev.Seq, Outcome: OutcomeStale}}
		}
		before := s.Store.Count()
		next, ok := s.Store.Merge(ev.Records)
		if !ok {
			s.Phase = NoOp
			return s, []Effect{OutcomeEffect{Seq: ev.Seq, Outcome: OutcomeNoOp}}
		}
		s.Store = next
		s.Phase = Merged
		return s, []Effect{
			RebuildEffect{Store: next},
			OutcomeEffect{Seq: ev.Seq, Outcome: OutcomeMerged, Added: next.Count() - before},
		}

	case FetchFailed:
		if !s.pending(ev.Seq) {
			return s, nil
		}
		s = s.withOutstanding(ev.Seq, false)
		s.Phase = NoOp
		return s, []Effect{OutcomeEffect{Seq: ev.Seq, Outcome: OutcomeFailed, Err: ev.Err}}

	case Settle:
		if s.Phase == Merged || s.Phase == NoOp {
			s.Phase = Idle
			if s.InFlight > 0 {
				s.Phase = Fetching
			}
		}
		return s, nil
	}
	return s, nil
}

// pending reports whether seq was issued and its result has not arrived yet
func (s State) pending(seq uint64) bool {
	_, ok := s.outstanding[seq]
	return ok
}

// withOutstanding returns s with seq added to or removed from the outstanding fetches
func (s State) withOutstanding(seq uint64, add bool) State {
	next := make(map[uint64]struct{}, len(s.outstanding)+1)
	for k := range s.outstanding {
		next[k] = struct{}{}
	}
	if add {
		next[seq] = struct{}{}
	} else {
		delete(next, seq)
	}
	s.outstanding = next
	s.InFlight = len(next)
	return s
}
