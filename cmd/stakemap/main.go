// This file is part of stakemap (https://github.com/spezifisch/stakemap).
// Based on pogo-planner (https://github.com/spezifisch/pogo-planner).
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


package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/spezifisch/stakemap/pkg/chunk"
	"github.com/spezifisch/stakemap/pkg/config"
	"github.com/spezifisch/stakemap/pkg/export"
	"github.com/spezifisch/stakemap/pkg/geo"
	"github.com/spezifisch/stakemap/pkg/layer"
	"github.com/spezifisch/stakemap/pkg/poi"
	"github.com/spezifisch/stakemap/pkg/server"
	"github.com/spezifisch/stakemap/pkg/session"
	"github.com/spezifisch/stakemap/pkg/source"
)

// loadConfig reads the environment and applies command line overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env")
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("poi-url") {
		cfg.POIURL, _ = flags.GetString("poi-url")
	}
	if flags.Changed("rate-url") {
		cfg.RateURL, _ = flags.GetString("rate-url")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("location") {
		loc, _ := flags.GetString("location")
		if err := cfg.SetLocation(loc); err != nil {
			return nil, err
		}
	}
	if flags.Lookup("listen") != nil && flags.Changed("listen") {
		cfg.Listen, _ = flags.GetString("listen")
	}
	if flags.Lookup("rate-ttl") != nil && flags.Changed("rate-ttl") {
		cfg.RateTTL, _ = flags.GetDuration("rate-ttl")
	}
	if flags.Lookup("discard-stale") != nil && flags.Changed("discard-stale") {
		cfg.DiscardStale, _ = flags.GetBool("discard-stale")
	}

	if err := cfg.SetupLogging(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// queryClient uses dumped files if given, the remote API otherwise
func queryClient(cmd *cobra.Command, cfg *config.Config) (source.BoundingBoxQueryClient, error) {
	files, _ := cmd.Flags().GetStringArray("file")
	if len(files) > 0 {
		log.WithField("files", files).Info("answering queries from files")
		return source.NewFileClient(files)
	}
	return source.NewHTTPClient(cfg.POIURL), nil
}

// rateProvider uses the --rate value if given, the ticker otherwise
func rateProvider(cmd *cobra.Command, cfg *config.Config) (source.ExchangeRateProvider, error) {
	if cmd.Flags().Changed("rate") {
		rate, _ := cmd.Flags().GetFloat64("rate")
		if err := source.CheckRate(rate); err != nil {
			return nil, errors.WithMessage(err, "--rate")
		}
		return source.StaticRate(rate), nil
	}
	return source.NewCachedRateProvider(source.NewTickerRateProvider(cfg.RateURL), cfg.RateTTL), nil
}

var rootCmd = &cobra.Command{
	Use:   "stakemap",
	Short: "Hexagon density map of staked points of interest",
	Long:  `Fetch points of interest for the visible map area and aggregate them into hexagon layers.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the map session and serve it over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		client, err := queryClient(cmd, cfg)
		if err != nil {
			return errors.Wrap(err, "setting up poi source")
		}
		rates, err := rateProvider(cmd, cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c := session.NewController(session.Config{
			Client:       client,
			Rates:        rates,
			Locator:      geo.StaticLocator{Position: cfg.Location},
			Viewport:     geo.DefaultViewport(),
			Settings:     layer.DefaultSettings(),
			DiscardStale: cfg.DiscardStale,
			RateRefresh:  cfg.RateTTL,
		})
		done := make(chan struct{})
		go func() {
			c.Run(ctx)
			close(done)
		}()

		if err := c.Load(); err != nil {
			return err
		}
		if err := c.Geolocate(ctx); err != nil {
			return err
		}

		err = server.ListenAndServe(ctx, cfg.Listen, server.NewRouter(c))
		stop()
		<-done
		return err
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Fetch one viewport and write its hexagon layers",
	RunE: func(cmd *cobra.Command, args []string) error {
		tStart := time.Now()
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		client, err := queryClient(cmd, cfg)
		if err != nil {
			return errors.Wrap(err, "setting up poi source")
		}

		ctx := context.Background()
		center, _ := geo.Locate(ctx, geo.StaticLocator{Position: cfg.Location})
		vp := geo.DefaultViewport().WithCenter(center)
		if cmd.Flags().Changed("zoom") {
			vp.Zoom, _ = cmd.Flags().GetFloat64("zoom")
			vp = vp.Clamp()
		}
		bbox := geo.BoundsFor(vp)

		raws, err := client.Fetch(ctx, bbox)
		if err != nil {
			return err
		}
		records, skipped := poi.ParseAll(raws)
		store, _ := chunk.NewStore().Merge(records)
		timeTrack(tStart, "fetch")

		settings := layer.DefaultSettings()
		if cmd.Flags().Changed("radius") {
			settings.Radius, _ = cmd.Flags().GetFloat64("radius")
		}
		settings.ShowStakedTokens, _ = cmd.Flags().GetBool("staked")
		if err := settings.Validate(); err != nil {
			return err
		}
		layers := layer.NewBuilder(nil).Build(store.Chunks(), settings)

		bins := 0
		for _, l := range layers {
			if l.Visible {
				bins += len(l.Bins)
			}
		}
		log.Infof("bbox %s: %d records (%d skipped) in %d visible hexagons", bbox, store.Count(), skipped, bins)

		if out, _ := cmd.Flags().GetString("kml"); out != "" {
			if err := writeFile(out, func(f *os.File) error { return export.WriteKML(f, layers) }); err != nil {
				return err
			}
		}
		if out, _ := cmd.Flags().GetString("geojson"); out != "" {
			if err := writeFile(out, func(f *os.File) error { return export.WriteGeoJSON(f, layers) }); err != nil {
				return err
			}
		}
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Validate dumped poi files",
	RunE: func(cmd *cobra.Command, args []string) error {
		tStart := time.Now()
		if _, err := loadConfig(cmd); err != nil {
			return err
		}
		files, _ := cmd.Flags().GetStringArray("file")
		if len(files) == 0 {
			return errors.New("no poi files given, use --file")
		}

		output := make(chan *poi.RawRecord)
		cancel := make(chan bool)
		src, err := poi.NewFileSource(files, output, cancel)
		if err != nil {
			log.WithError(err).Error("got invalid poi files")
			return err
		}

		// let the reader parse all files, outputting records to output
		go src.Run()

		var stats recordStats
		for raw := range output {
			if raw == nil {
				break
			}
			stats.add(raw)
		}

		timeTrack(tStart, "poi parsing")

		log.WithField("bounds", stats.Bounds).Infof("processed %d files with %d records: %d valid, %d skipped, %s staked",
			len(files), stats.Records, stats.Valid, stats.Skipped, stats.Staked.StringFixed(2))
		if src.RunError != nil {
			log.WithError(src.RunError).Error("poi reader failed!")
			return src.RunError
		}
		return nil
	},
}

type recordStats struct {
	Records int
	Valid   int
	Skipped int
	Staked  decimal.Decimal
	Bounds  orb.Bound
}

func (s *recordStats) add(raw *poi.RawRecord) {
	s.Records++
	rec, err := raw.Parse()
	if err != nil {
		s.Skipped++
		log.WithError(err).Debug("skipping record")
		return
	}
	if s.Valid == 0 {
		s.Bounds = rec.Position.Bound()
	} else {
		s.Bounds = s.Bounds.Extend(rec.Position)
	}
	s.Valid++
	s.Staked = s.Staked.Add(rec.StakedValue)
}

func writeFile(name string, write func(f *os.File) error) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", name)
	}
	log.WithField("file", name).Info("written")
	return f.Close()
}

// from: https://coderwall.com/p/cp5fya/measuring-execution-time-in-go
func timeTrack(start time.Time, name string) {
	elapsed := time.Since(start)
	log.Printf("> %s took %s", name, elapsed)
}

func main() {
	rootCmd.PersistentFlags().String("env", ".env", "dotenv file")
	rootCmd.PersistentFlags().String("poi-url", "", "poi API base URL")
	rootCmd.PersistentFlags().String("rate-url", "", "exchange rate ticker URL")
	rootCmd.PersistentFlags().String("log-level", "", "log level")
	rootCmd.PersistentFlags().String("location", "", "user location as lat,lon")
	rootCmd.PersistentFlags().StringArrayP("file", "f", []string{}, "answer queries from poi JSON file(s)")
	rootCmd.PersistentFlags().Float64("rate", 0, "fixed exchange rate instead of the ticker")

	serveCmd.Flags().String("listen", "", "HTTP listen address")
	serveCmd.Flags().Duration("rate-ttl", 0, "exchange rate refresh interval, 0 reads it once")
	serveCmd.Flags().Bool("discard-stale", true, "drop results of superseded fetches")

	snapshotCmd.Flags().Float64("zoom", 0, "map zoom")
	snapshotCmd.Flags().Float64("radius", 0, "hexagon radius in meters")
	snapshotCmd.Flags().Bool("staked", false, "also export the staked token layer")
	snapshotCmd.Flags().String("kml", "", "write visible layers to this KML file")
	snapshotCmd.Flags().String("geojson", "", "write visible layers to this GeoJSON file")

	rootCmd.AddCommand(serveCmd, snapshotCmd, inspectCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
