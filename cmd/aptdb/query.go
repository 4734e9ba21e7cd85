// cmd/aptdb/query.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/airportinfo/aptdb/aviation"
	"github.com/airportinfo/aptdb/math"
	"github.com/airportinfo/aptdb/util"

	"github.com/goforj/godump"
	"github.com/peterbourgon/ff/v3/ffcli"
)

const defaultStore = "airports.db.zst"

func (g *globals) openDatabase(path string) (*aviation.Database, error) {
	db := aviation.NewDatabase(aviation.CodecOptions{MaxFieldLength: g.maxFieldLength}, g.lg)
	if err := db.Initialize(path); err != nil {
		return nil, err
	}
	return db, nil
}

func printAirports(w io.Writer, pos *math.Point2LL, airports []*aviation.Airport) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	if pos != nil {
		fmt.Fprintln(tw, "DESIG\tNAME\tCITY\tST\tLONGEST\tDIST")
	} else {
		fmt.Fprintln(tw, "DESIG\tNAME\tCITY\tST\tLONGEST")
	}
	for _, ap := range airports {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d", ap.Designator, util.StopShouting(ap.Name),
			util.StopShouting(ap.City), ap.State, ap.LongestRunwayLength())
		if pos != nil {
			fmt.Fprintf(tw, "\t%.1fnm", math.NMDistance2LL(*pos, ap.Location))
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

func nearbyCommand(g *globals) *ffcli.Command {
	fs := newFlagSet("nearby", g)
	dbPath := fs.String("db", defaultStore, "airport store")
	lat := fs.Float64("lat", 1000, "latitude of the query position")
	lon := fs.Float64("lon", 1000, "longitude of the query position")
	radius := fs.Float64("radius", 20, "search radius in nautical miles")
	minRunway := fs.Int("minrwy", 0, "only report airports with a runway longer than this (feet)")

	return &ffcli.Command{
		Name:       "nearby",
		ShortUsage: "aptdb nearby -lat LAT -lon LON [-radius NM] [-minrwy FT]",
		ShortHelp:  "List airports near a position, nearest first",
		FlagSet:    fs,
		Options:    options(),
		Exec: g.exec(false, func(ctx context.Context, args []string) error {
			pos := math.Point2LL{float32(*lon), float32(*lat)}
			if !pos.Valid() {
				return errors.New("-lat and -lon must be given as a valid position")
			}
			db, err := g.openDatabase(*dbPath)
			if err != nil {
				return err
			}

			printAirports(os.Stdout, &pos, db.Nearby(pos, float32(*radius), *minRunway))
			return nil
		}),
	}
}

func lookupCommand(g *globals) *ffcli.Command {
	fs := newFlagSet("lookup", g)
	dbPath := fs.String("db", defaultStore, "airport store")
	dump := fs.Bool("dump", false, "dump the complete airport records")

	return &ffcli.Command{
		Name:       "lookup",
		ShortUsage: "aptdb lookup [-dump] DESIGNATOR...",
		ShortHelp:  "Look up airports by designator or ICAO identifier",
		FlagSet:    fs,
		Options:    options(),
		Exec: g.exec(false, func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return flag.ErrHelp
			}
			db, err := g.openDatabase(*dbPath)
			if err != nil {
				return err
			}

			var missing []string
			for _, code := range args {
				ap, ok := db.LookupByDesignator(code)
				if !ok {
					missing = append(missing, code)
					continue
				}
				if *dump {
					godump.Dump(ap)
					continue
				}
				fmt.Println(ap)
				for _, rwy := range ap.Runways {
					fmt.Printf("  %s\n", rwy)
					for _, rd := range []*aviation.RunwayDirection{rwy.Base, rwy.Reciprocal} {
						if rd != nil {
							fmt.Printf("    %s\n", rd)
						}
					}
				}
			}
			if len(missing) > 0 {
				return fmt.Errorf("%s: %w", strings.Join(missing, ", "), aviation.ErrNoAirport)
			}
			return nil
		}),
	}
}

func cityCommand(g *globals) *ffcli.Command {
	fs := newFlagSet("city", g)
	dbPath := fs.String("db", defaultStore, "airport store")
	noHeliports := fs.Bool("no-heliports", false, "omit heliports")

	return &ffcli.Command{
		Name:       "city",
		ShortUsage: "aptdb city [-no-heliports] NAME",
		ShortHelp:  "List the airports serving a city",
		FlagSet:    fs,
		Options:    options(),
		Exec: g.exec(false, func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return flag.ErrHelp
			}
			db, err := g.openDatabase(*dbPath)
			if err != nil {
				return err
			}

			airports := db.LookupByCity(strings.Join(args, " "))
			if *noHeliports {
				airports = util.FilterSlice(airports, func(ap *aviation.Airport) bool { return !ap.IsHeliport() })
			}
			printAirports(os.Stdout, nil, airports)
			return nil
		}),
	}
}

func infoCommand(g *globals) *ffcli.Command {
	fs := newFlagSet("info", g)
	path := fs.String("manifest", aviation.ManifestFilename, "manifest to report on")
	dump := fs.Bool("dump", false, "dump the complete manifest")

	return &ffcli.Command{
		Name:       "info",
		ShortUsage: "aptdb info [-manifest FILE] [-dump]",
		ShortHelp:  "Describe a built store from its manifest",
		FlagSet:    fs,
		Options:    options(),
		Exec: g.exec(false, func(ctx context.Context, args []string) error {
			f, err := os.Open(*path)
			if err != nil {
				return err
			}
			defer f.Close()

			m, err := aviation.LoadManifest(f)
			if err != nil {
				return fmt.Errorf("%s: %w", *path, err)
			}
			if *dump {
				godump.Dump(m)
				return nil
			}

			fmt.Printf("Cycle:   %s\n", m.Cycle)
			fmt.Printf("Built:   %s\n", m.Built.Format("2006-01-02 15:04:05 MST"))
			fmt.Printf("Source:  %s (sha256 %s)\n", m.Source, m.SourceSHA256)
			if m.Store != "" {
				fmt.Printf("Store:   %s (sha256 %s, %d bytes)\n", m.Store, m.StoreSHA256, m.Stats.Bytes)
			}
			fmt.Printf("Records: %d airports, %d heliports, %d runways, %d runway ends, %d other\n",
				m.Stats.Airports, m.Stats.Heliports, m.Stats.Runways, m.Stats.Directions, m.Stats.Other)
			fmt.Printf("Joins:   %d explicit, %d heuristic\n", m.Ingest.ExplicitJoins, m.Ingest.HeuristicJoins)
			for _, id := range m.HeuristicJoins {
				fmt.Printf("  %s\n", id)
			}
			if n := len(m.IntegrityErrors); n > 0 {
				fmt.Printf("Integrity problems: %d\n", n)
				for _, e := range m.IntegrityErrors {
					fmt.Printf("  %s\n", e)
				}
			}
			return nil
		}),
	}
}

func stationsCommand(g *globals) *ffcli.Command {
	fs := newFlagSet("stations", g)
	in := fs.String("in", "", "full station text file or URL")
	out := fs.String("out", "", "station table to write")

	return &ffcli.Command{
		Name:       "stations",
		ShortUsage: "aptdb stations -in stations.txt -out metar.txt",
		ShortHelp:  "Convert the full METAR station listing to the compact station table",
		FlagSet:    fs,
		Options:    options(),
		Exec: g.exec(false, func(ctx context.Context, args []string) error {
			if *in == "" || *out == "" {
				return flag.ErrHelp
			}
			r, err := util.OpenInput(ctx, *in, g.lg)
			if err != nil {
				return err
			}
			defer r.Close()

			f, err := os.Create(*out)
			if err != nil {
				return err
			}
			n, err := aviation.ConvertStationFile(r, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %d stations to %s\n", n, *out)
			return nil
		}),
	}
}
