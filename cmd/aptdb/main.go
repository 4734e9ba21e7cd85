// cmd/aptdb/main.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// aptdb builds the airport store from an AIXM airport feed, answers
// queries against it from the command line, serves it over HTTP, and
// publishes built stores to cloud storage.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/airportinfo/aptdb/log"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

const envPrefix = "APTDB"

// globals are the flags shared by all subcommands.
type globals struct {
	logLevel       string
	logDir         string
	maxFieldLength int

	lg *log.Logger
}

func (g *globals) register(fs *flag.FlagSet) {
	fs.StringVar(&g.logLevel, "loglevel", "info", "logging level: debug, info, warn, error")
	fs.StringVar(&g.logDir, "logdir", "", "log file directory")
	fs.IntVar(&g.maxFieldLength, "maxfield", 0, "maximum store field length (0 for the default)")
}

func newFlagSet(name string, g *globals) *flag.FlagSet {
	fs := flag.NewFlagSet("aptdb "+name, flag.ContinueOnError)
	g.register(fs)
	return fs
}

func options() []ff.Option {
	return []ff.Option{ff.WithEnvVarPrefix(envPrefix)}
}

// exec wraps a subcommand so that it runs with a logger configured from
// the global flags. Service subcommands log to the service log directory.
func (g *globals) exec(service bool, fn func(context.Context, []string) error) func(context.Context, []string) error {
	return func(ctx context.Context, args []string) error {
		g.lg = log.New(service, g.logLevel, g.logDir)
		defer g.lg.CatchAndReportCrash()

		g.lg.Debug("running", "args", args)
		return fn(ctx, args)
	}
}

func main() {
	// A missing .env is fine; it only supplies defaults.
	_ = godotenv.Load()

	g := &globals{}
	rootFS := newFlagSet("", g)
	root := &ffcli.Command{
		Name:       "aptdb",
		ShortUsage: "aptdb [flags] <subcommand> [flags] [args...]",
		ShortHelp:  "Build, query, and serve the airport database",
		FlagSet:    rootFS,
		Options:    options(),
		Subcommands: []*ffcli.Command{
			buildCommand(g),
			nearbyCommand(g),
			lookupCommand(g),
			cityCommand(g),
			infoCommand(g),
			stationsCommand(g),
			serveCommand(g),
			publishCommand(g),
		},
		Exec: func(context.Context, []string) error { return flag.ErrHelp },
	}

	if err := root.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "aptdb: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := root.Run(ctx); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, ffcli.DefaultUsageFunc(root))
			os.Exit(2)
		}
		// Errorf also reports to stderr, even with a nil logger.
		g.lg.Errorf("%v", err)
		os.Exit(1)
	}
}
