// cmd/aptdb/serve.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"context"
	"time"

	"github.com/airportinfo/aptdb/aviation"
	"github.com/airportinfo/aptdb/server"

	"github.com/peterbourgon/ff/v3/ffcli"
	"golang.org/x/sync/errgroup"
)

func serveCommand(g *globals) *ffcli.Command {
	fs := newFlagSet("serve", g)
	dbPath := fs.String("db", defaultStore, "airport store")
	var cfg server.Config
	fs.StringVar(&cfg.Addr, "addr", server.DefaultAddr, "address to listen on")
	fs.IntVar(&cfg.CacheSize, "cache-size", aviation.DefaultNearbyCacheSize, "number of nearby queries to cache")
	fs.DurationVar(&cfg.CacheTTL, "cache-ttl", aviation.DefaultNearbyCacheTTL, "how long cached nearby results are kept")
	maxRadius := fs.Float64("max-radius", server.DefaultMaxRadiusNM, "largest nearby radius accepted (nm)")
	fs.BoolVar(&cfg.LogRequests, "log-requests", false, "log every request")

	return &ffcli.Command{
		Name:       "serve",
		ShortUsage: "aptdb serve [-db FILE] [-addr :8080] [flags]",
		ShortHelp:  "Serve airport queries over HTTP",
		FlagSet:    fs,
		Options:    options(),
		Exec: g.exec(true, func(ctx context.Context, args []string) error {
			cfg.MaxRadiusNM = float32(*maxRadius)

			db := aviation.NewDatabase(aviation.CodecOptions{MaxFieldLength: g.maxFieldLength}, g.lg)
			srv := server.New(db, cfg, g.lg)

			// The server comes up right away and reports the database as
			// loading until it is ready.
			eg, ctx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				start := time.Now()
				if err := db.Initialize(*dbPath); err != nil {
					return err
				}
				st := db.Stats()
				g.lg.Infof("%s: loaded %d airports, %d heliports in %s", *dbPath, st.Airports, st.Heliports,
					time.Since(start).Round(time.Millisecond))
				return nil
			})
			eg.Go(func() error { return srv.Run(ctx) })
			return eg.Wait()
		}),
	}
}
