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

// Package metrics holds the prometheus collectors of the synchronization loop and its clients.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SyncCyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stakemap_sync_cycles_total",
		Help: "Finished synchronization cycles by outcome (merged, noop, stale, failed)",
	}, []string{"outcome"})
	SyncTriggersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stakemap_sync_triggers_total",
		Help: "Fetches started by trigger",
	}, []string{"trigger"})
	MergedRecordsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stakemap_merged_records_total",
		Help: "Unique records appended to the chunk store",
	})
	SkippedRecordsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stakemap_skipped_records_total",
		Help: "Malformed records skipped while parsing",
	})
	StoredChunks = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stakemap_stored_chunks",
		Help: "Chunks in the store",
	})
	FetchRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stakemap_fetch_requests_total",
		Help: "Requests to external services by service and status",
	}, []string{"service", "status"})
	FetchDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stakemap_fetch_duration_ms",
		Help:    "External request duration in milliseconds",
		Buckets: []float64{5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000},
	}, []string{"service"})
)

func init() {
	prometheus.MustRegister(SyncCyclesTotal)
	prometheus.MustRegister(SyncTriggersTotal)
	prometheus.MustRegister(MergedRecordsTotal)
	prometheus.MustRegister(SkippedRecordsTotal)
	prometheus.MustRegister(StoredChunks)
	prometheus.MustRegister(FetchRequestsTotal)
	prometheus.MustRegister(FetchDurationMs)
}

// Handler exposes the registered collectors
func Handler() http.Handler { return promhttp.Handler() }
