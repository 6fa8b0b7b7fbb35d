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

// Package server exposes the session over HTTP for the map client.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/spezifisch/stakemap/pkg/export"
	"github.com/spezifisch/stakemap/pkg/geo"
	"github.com/spezifisch/stakemap/pkg/hover"
	"github.com/spezifisch/stakemap/pkg/layer"
	"github.com/spezifisch/stakemap/pkg/metrics"
	"github.com/spezifisch/stakemap/pkg/render"
	"github.com/spezifisch/stakemap/pkg/session"
)

// Session is the part of the session controller the HTTP surface drives
type Session interface {
	Snapshot() *session.Snapshot
	MoveEnd(vp geo.Viewport) error
	UpdateSettings(s layer.Settings) error
	Hover(ctx context.Context, layerID string, index int, x, y float64) (hover.State, error)
}

type hoverRequest struct {
	LayerID string  `json:"layerId" binding:"required"`
	Index   int     `json:"index"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

type layersResponse struct {
	Phase       string         `json:"phase"`
	LastOutcome string         `json:"lastOutcome"`
	Seq         uint64         `json:"seq"`
	InFlight    int            `json:"inFlight"`
	Chunks      int            `json:"chunks"`
	Records     int            `json:"records"`
	Viewport    geo.Viewport   `json:"viewport"`
	Layers      []*layer.Layer `json:"layers"`
}

func success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"data": data})
}

func fail(c *gin.Context, status int, err error) {
	c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, layer.ErrInvalidSettings):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewRouter returns the gin engine with all routes of s
func NewRouter(s Session) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), cors())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api/v1")
	{
		api.GET("/layers", func(c *gin.Context) {
			snap := s.Snapshot()
			layers := snap.Layers
			if layers == nil {
				layers = []*layer.Layer{}
			}
			success(c, http.StatusOK, layersResponse{
				Phase:       snap.Phase.String(),
				LastOutcome: string(snap.LastOutcome),
				Seq:         snap.Seq,
				InFlight:    snap.InFlight,
				Chunks:      snap.Store.Len(),
				Records:     snap.Store.Count(),
				Viewport:    snap.Viewport,
				Layers:      layers,
			})
		})
		api.GET("/controls", func(c *gin.Context) {
			success(c, http.StatusOK, layer.Controls)
		})
		api.GET("/lighting", func(c *gin.Context) {
			success(c, http.StatusOK, render.DefaultLighting())
		})

		api.GET("/settings", func(c *gin.Context) {
			success(c, http.StatusOK, s.Snapshot().Settings.Map())
		})
		api.PUT("/settings", func(c *gin.Context) {
			var m map[string]interface{}
			if err := c.ShouldBindJSON(&m); err != nil {
				fail(c, http.StatusBadRequest, err)
				return
			}
			settings, err := layer.SettingsFromMap(m)
			if err != nil {
				fail(c, http.StatusBadRequest, err)
				return
			}
			if err := s.UpdateSettings(settings); err != nil {
				fail(c, statusFor(err), err)
				return
			}
			success(c, http.StatusAccepted, settings.Map())
		})

		api.POST("/viewport", func(c *gin.Context) {
			vp := s.Snapshot().Viewport
			if err := c.ShouldBindJSON(&vp); err != nil {
				fail(c, http.StatusBadRequest, err)
				return
			}
			vp = vp.Clamp()
			if err := s.MoveEnd(vp); err != nil {
				fail(c, statusFor(err), err)
				return
			}
			success(c, http.StatusAccepted, gin.H{"viewport": vp, "bbox": geo.BoundsFor(vp).String()})
		})

		api.POST("/hover", func(c *gin.Context) {
			var req hoverRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				fail(c, http.StatusBadRequest, err)
				return
			}
			h, err := s.Hover(c.Request.Context(), req.LayerID, req.Index, req.X, req.Y)
			if err != nil {
				fail(c, statusFor(err), err)
				return
			}
			success(c, http.StatusOK, h)
		})

		api.GET("/export.kml", func(c *gin.Context) {
			c.Header("Content-Type", "application/vnd.google-earth.kml+xml")
			if err := export.WriteKML(c.Writer, s.Snapshot().Layers); err != nil {
				c.Error(err)
			}
		})
		api.GET("/export.geojson", func(c *gin.Context) {
			c.Header("Content-Type", "application/geo+json")
			if err := export.WriteGeoJSON(c.Writer, s.Snapshot().Layers); err != nil {
				c.Error(err)
			}
		})
	}

	return r
}

// ListenAndServe serves h on addr until ctx is done, then shuts down gracefully
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "http shutdown")
	}
	log.Info("http server stopped")
	return nil
}
