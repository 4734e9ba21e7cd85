// cmd/aptdb/build.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"time"

	"github.com/airportinfo/aptdb/aviation"
	"github.com/airportinfo/aptdb/log"
	"github.com/airportinfo/aptdb/util"

	"github.com/peterbourgon/ff/v3/ffcli"
	"golang.org/x/sync/errgroup"
)

type buildConfig struct {
	aixm          string
	stations      string
	out           string
	manifest      string
	cycle         string
	skipHeliports bool
	aux           bool
	verify        bool
	strict        bool
	cpuProfile    string
	memProfile    string
}

func buildCommand(g *globals) *ffcli.Command {
	var cfg buildConfig
	fs := newFlagSet("build", g)
	fs.StringVar(&cfg.aixm, "aixm", "", "AIXM airport feed (APT_AIXM.xml, optionally .zst)")
	fs.StringVar(&cfg.stations, "stations", "", "METAR station table file or URL")
	fs.StringVar(&cfg.out, "out", "", "output store; if empty, the store is built but not written")
	fs.StringVar(&cfg.manifest, "manifest", "", "manifest path (default: next to the store)")
	fs.StringVar(&cfg.cycle, "cycle", "", "publication cycle of the feed, e.g. 2025-01-23")
	fs.BoolVar(&cfg.skipHeliports, "skip-heliports", false, "omit heliports from the store")
	fs.BoolVar(&cfg.aux, "aux", false, "include radio channel and supplies service records")
	fs.BoolVar(&cfg.verify, "verify", true, "check the ingested airports for integrity problems")
	fs.BoolVar(&cfg.strict, "strict", false, "fail the build if integrity problems are found")
	fs.StringVar(&cfg.cpuProfile, "cpuprofile", "", "write a CPU profile to this file")
	fs.StringVar(&cfg.memProfile, "memprofile", "", "write a heap profile to this file")

	return &ffcli.Command{
		Name:       "build",
		ShortUsage: "aptdb build -aixm APT_AIXM.xml [-stations metar.txt] [-out airports.db] [flags]",
		ShortHelp:  "Build the airport store from an AIXM feed",
		FlagSet:    fs,
		Options:    options(),
		Exec: g.exec(false, func(ctx context.Context, args []string) error {
			if cfg.aixm == "" {
				return flag.ErrHelp
			}
			return runBuild(ctx, cfg, g.lg)
		}),
	}
}

func runBuild(ctx context.Context, cfg buildConfig, lg *log.Logger) error {
	prof, err := util.CreateProfiler(cfg.cpuProfile, cfg.memProfile)
	if err != nil {
		return err
	}
	defer prof.Cleanup()

	start := time.Now()

	// The station table and the feed's hash don't depend on each other;
	// the feed is large enough that hashing it is worth overlapping.
	var stations aviation.StationTable
	var sourceHash string
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if cfg.stations == "" {
			lg.Warn("no station table given; METAR and TAF flags will not be set")
			return nil
		}
		r, err := util.OpenInput(ctx, cfg.stations, lg)
		if err != nil {
			return err
		}
		defer r.Close()

		stations, err = aviation.ParseStationTable(r)
		if err != nil {
			return fmt.Errorf("%s: %w", cfg.stations, err)
		}
		lg.Infof("%s: loaded %d stations", cfg.stations, len(stations))
		return nil
	})
	eg.Go(func() error {
		var err error
		sourceHash, err = util.HashFile(cfg.aixm)
		return err
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	data, err := aviation.IngestFile(cfg.aixm, stations, lg)
	if err != nil {
		return err
	}
	ingestTime := time.Since(start)

	manifest := aviation.Manifest{
		Cycle:          cfg.cycle,
		Built:          time.Now().UTC(),
		Source:         filepath.Base(cfg.aixm),
		SourceSHA256:   sourceHash,
		Ingest:         data.Stats,
		HeuristicJoins: data.HeuristicJoins,
	}

	if cfg.verify {
		var e util.ErrorLogger
		aviation.VerifyAirports(data.Airports, &e)
		if e.HaveErrors() {
			e.PrintErrors(lg)
			if cfg.strict {
				return fmt.Errorf("%s: %d integrity errors", cfg.aixm, e.Count())
			}
			manifest.IntegrityErrors = e.Errors()
		}
	}

	var aux []aviation.Record
	if cfg.aux {
		aux = data.Auxiliary()
	}
	opts := aviation.StoreOptions{SkipHeliports: cfg.skipHeliports}

	if cfg.out == "" {
		manifest.Stats, err = aviation.WriteStore(&util.SinkWriter{}, data.Airports, aux, opts)
		if err != nil {
			return err
		}
	} else {
		if manifest.Stats, err = aviation.WriteStoreFile(cfg.out, data.Airports, aux, opts); err != nil {
			return err
		}
		if manifest.StoreSHA256, err = util.HashFile(cfg.out); err != nil {
			return err
		}
		manifest.Store = filepath.Base(cfg.out)

		mpath := cfg.manifest
		if mpath == "" {
			mpath = filepath.Join(filepath.Dir(cfg.out), aviation.ManifestFilename)
		}
		if err := manifest.SaveFile(mpath); err != nil {
			return err
		}
	}

	st, is := manifest.Stats, data.Stats
	fmt.Printf("Ingested %d airports, %d heliports, %d runways (%d ends) in %s\n",
		is.Airports, is.Heliports, is.Runways, is.RunwayEnds, ingestTime.Round(time.Millisecond))
	fmt.Printf("Runway ends: %d joined explicitly, %d heuristically; %d annotations, %d unmatched\n",
		is.ExplicitJoins, is.HeuristicJoins, is.Annotations, is.UnmatchedAnnotations)
	if cfg.out != "" {
		fmt.Printf("Wrote %s: %d airports, %d heliports, %d runways, %d other records (%d bytes) in %s\n",
			cfg.out, st.Airports, st.Heliports, st.Runways, st.Other, st.Bytes,
			time.Since(start).Round(time.Millisecond))
	}
	if n := len(manifest.IntegrityErrors); n > 0 {
		fmt.Printf("%d integrity problems found\n", n)
	}

	return nil
}
