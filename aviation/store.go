// aviation/store.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"io"
	"iter"

	"github.com/airportinfo/aptdb/util"

	"github.com/google/renameio/v2"
)

type StoreOptions struct {
	// SkipHeliports omits heliports from the store entirely; by default
	// they are kept so that id lookups can find them.
	SkipHeliports bool
}

// StoreStats summarizes what was written to or read from a store.
type StoreStats struct {
	Airports   int
	Heliports  int
	Runways    int
	Directions int
	Other      int
	Bytes      int64
}

func (s *StoreStats) add(r Record) {
	switch r := r.(type) {
	case *Airport:
		if r.IsHeliport() {
			s.Heliports++
		} else {
			s.Airports++
		}
		for _, rwy := range r.Runways {
			s.Runways++
			if rwy.Base != nil {
				s.Directions++
			}
			if rwy.Reciprocal != nil {
				s.Directions++
			}
		}
	default:
		s.Other++
	}
}

// WriteStore serializes the airports, in order, followed by any auxiliary
// records.
func WriteStore(w io.Writer, airports []*Airport, aux []Record, opts StoreOptions) (StoreStats, error) {
	var stats StoreStats
	cw := &util.CountingWriter{Writer: w}
	e := NewFieldEncoder(cw)

	for _, ap := range airports {
		if opts.SkipHeliports && ap.IsHeliport() {
			continue
		}
		if err := WriteRecord(e, ap); err != nil {
			return stats, fmt.Errorf("%s: %w", ap.Id, err)
		}
		stats.add(ap)
	}
	for _, r := range aux {
		if err := WriteRecord(e, r); err != nil {
			return stats, err
		}
		stats.add(r)
	}

	err := e.Flush()
	stats.Bytes = cw.N
	return stats, err
}

// WriteStoreFile writes a store to path, replacing any existing file
// atomically so that a server never sees a partially written store. Paths
// ending in .zst are compressed.
func WriteStoreFile(path string, airports []*Airport, aux []Record, opts StoreOptions) (StoreStats, error) {
	pf, err := renameio.NewPendingFile(path)
	if err != nil {
		return StoreStats{}, err
	}
	defer pf.Cleanup()

	var stats StoreStats
	if util.IsCompressed(path) {
		zw, err := util.NewCompressingWriter(pf)
		if err != nil {
			return StoreStats{}, err
		}
		if stats, err = WriteStore(zw, airports, aux, opts); err != nil {
			zw.Close()
			return stats, err
		}
		if err := zw.Close(); err != nil {
			return stats, err
		}
	} else if stats, err = WriteStore(pf, airports, aux, opts); err != nil {
		return stats, err
	}

	return stats, pf.CloseAtomicallyReplace()
}

// ReadStore returns an iterator over the records in r. Iteration stops
// after the first error, which is yielded with a nil record.
func ReadStore(r io.Reader, opts CodecOptions) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		d := NewFieldDecoder(r, opts)
		for {
			rec, err := ReadRecord(d)
			if err == io.EOF {
				return
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// ReadAirports decodes an entire store, returning its airports in file
// order; records of other kinds are decoded and skipped.
func ReadAirports(r io.Reader, opts CodecOptions) ([]*Airport, StoreStats, error) {
	var airports []*Airport
	var stats StoreStats
	for rec, err := range ReadStore(r, opts) {
		if err != nil {
			return nil, stats, err
		}
		stats.add(rec)
		if ap, ok := rec.(*Airport); ok {
			airports = append(airports, ap)
		}
	}
	return airports, stats, nil
}
