// cmd/aptdb/publish.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/airportinfo/aptdb/aviation"
	"github.com/airportinfo/aptdb/util"

	"github.com/peterbourgon/ff/v3/ffcli"
)

type publishConfig struct {
	backend string
	bucket  string
	region  string
	prefix   string
	manifest string
	replace  bool
	dryRun   bool
}

func publishCommand(g *globals) *ffcli.Command {
	var cfg publishConfig
	fs := newFlagSet("publish", g)
	fs.StringVar(&cfg.backend, "backend", "local", "storage backend: local, gcs, or s3")
	fs.StringVar(&cfg.bucket, "bucket", "", "bucket name (or root directory for the local backend)")
	fs.StringVar(&cfg.region, "region", "us-east-1", "S3 region")
	fs.StringVar(&cfg.prefix, "prefix", "", "object name prefix; defaults to the manifest's cycle")
	fs.StringVar(&cfg.manifest, "manifest", "", "build manifest to check the files against and publish last")
	fs.BoolVar(&cfg.replace, "replace", false, "delete objects under the prefix that weren't just published")
	fs.BoolVar(&cfg.dryRun, "dryrun", false, "report what would be uploaded without uploading")

	return &ffcli.Command{
		Name:       "publish",
		ShortUsage: "aptdb publish -backend gcs|s3|local -bucket NAME [-prefix P] [-manifest FILE] FILE...",
		ShortHelp:  "Upload built stores and manifests to storage",
		FlagSet:    fs,
		Options:    options(),
		Exec: g.exec(false, func(ctx context.Context, args []string) error {
			if len(args) == 0 || cfg.bucket == "" {
				return flag.ErrHelp
			}
			return runPublish(ctx, cfg, args, g)
		}),
	}
}

func makeBackend(ctx context.Context, cfg publishConfig) (util.StorageBackend, error) {
	var sb util.StorageBackend
	var err error
	switch strings.ToLower(cfg.backend) {
	case "local":
		sb, err = util.MakeLocalBackend(cfg.bucket)
	case "gcs":
		sb, err = util.MakeGCSBackend(ctx, cfg.bucket)
	case "s3":
		sb, err = util.MakeS3Backend(ctx, cfg.bucket, cfg.region)
	default:
		return nil, fmt.Errorf("%s: unknown storage backend", cfg.backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.dryRun {
		sb = util.MakeDryRunBackend(sb)
	}
	return sb, nil
}

// checkManifest loads the manifest at fn and makes sure that the store it
// describes is among files and hasn't changed since the build.
func checkManifest(fn string, files []string) (*aviation.Manifest, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := aviation.LoadManifest(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}

	for _, file := range files {
		if filepath.Base(file) != m.Store {
			continue
		}
		sum, err := util.HashFile(file)
		if err != nil {
			return nil, err
		}
		if sum != m.StoreSHA256 {
			return nil, fmt.Errorf("%s: %w", file, errStoreMismatch)
		}
		return m, nil
	}
	return nil, fmt.Errorf("%s: store %q not among the files to publish", fn, m.Store)
}

var errStoreMismatch = errors.New("store does not match its manifest")

func runPublish(ctx context.Context, cfg publishConfig, files []string, g *globals) error {
	var manifest *aviation.Manifest
	if cfg.manifest != "" {
		var err error
		if manifest, err = checkManifest(cfg.manifest, files); err != nil {
			return err
		}
		if cfg.prefix == "" {
			cfg.prefix = manifest.Cycle
		}
	}
	if cfg.replace && cfg.prefix == "" {
		return errors.New("-replace requires a prefix")
	}

	sb, err := makeBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer sb.Close()

	published := make(map[string]bool)
	for _, fn := range files {
		f, err := os.Open(fn)
		if err != nil {
			return err
		}

		name := path.Join(cfg.prefix, filepath.Base(fn))
		n, err := sb.Store(name, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		published[name] = true
		g.lg.Infof("%s: stored %d bytes", name, n)
	}

	if manifest != nil {
		// The manifest goes up last; servers that find it can assume the
		// rest of the cycle is in place.
		name := path.Join(cfg.prefix, aviation.ManifestFilename)
		n, err := sb.StoreObject(name, manifest)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		published[name] = true
		g.lg.Infof("%s: stored manifest for cycle %s, %d bytes", name, manifest.Cycle, n)

		if !cfg.dryRun {
			if err := verifyPublishedManifest(sb, name, manifest); err != nil {
				return err
			}
		}
	}

	if cfg.replace {
		stale, err := sb.List(cfg.prefix + "/")
		if err != nil {
			return err
		}
		for _, name := range util.SortedMapKeys(stale) {
			if published[name] {
				continue
			}
			if err := sb.Delete(name); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			g.lg.Infof("%s: deleted stale object", name)
		}
	}

	listing, err := sb.List(cfg.prefix)
	if err != nil {
		return err
	}
	for _, name := range util.SortedMapKeys(listing) {
		fmt.Printf("%10d  %s\n", listing[name], name)
	}
	return nil
}

func verifyPublishedManifest(sb util.StorageBackend, name string, want *aviation.Manifest) error {
	r, err := sb.OpenRead(name)
	if err != nil {
		return err
	}
	defer r.Close()

	var got aviation.Manifest
	if err := util.DecodeObject(r, &got); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if got.Cycle != want.Cycle || got.StoreSHA256 != want.StoreSHA256 {
		return fmt.Errorf("%s: published manifest is for cycle %s, store %s", name, got.Cycle, got.StoreSHA256)
	}
	return nil
}
