// aviation/db.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"cmp"
	"fmt"
	"io"
	gomath "math"
	"slices"
	"sync/atomic"
	"time"

	"github.com/airportinfo/aptdb/log"
	"github.com/airportinfo/aptdb/math"
	"github.com/airportinfo/aptdb/util"

	"golang.org/x/text/cases"
)

type DatabaseState int32

const (
	Uninitialized DatabaseState = iota
	Loading
	Ready
)

func (s DatabaseState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("DatabaseState(%d)", int32(s))
	}
}

///////////////////////////////////////////////////////////////////////////
// Database

// Database holds the airports from a store in memory and answers
// proximity and identifier queries. It is loaded exactly once; after it
// is Ready nothing is modified, so queries may be made concurrently
// without locking. Queries made before then return no results.
type Database struct {
	state atomic.Int32
	opts  CodecOptions
	lg    *log.Logger

	// All airports, including heliports, by Id.
	airports map[string]*Airport
	// Non-heliports sorted by latitude.
	byLatitude []*Airport
	// Case-folded designator and ICAO identifier to airport.
	byDesignator map[string]*Airport
	// Case-folded city to its airports, in store order.
	byCity map[string][]*Airport

	stats    StoreStats
	loadTime time.Duration
}

func NewDatabase(opts CodecOptions, lg *log.Logger) *Database {
	return &Database{opts: opts, lg: lg}
}

func (db *Database) State() DatabaseState {
	return DatabaseState(db.state.Load())
}

func (db *Database) ready() bool {
	return db.State() == Ready
}

// Initialize loads the store at path; see Load.
func (db *Database) Initialize(path string) error {
	if !db.state.CompareAndSwap(int32(Uninitialized), int32(Loading)) {
		return ErrAlreadyInitialized
	}

	r, err := util.OpenFile(path)
	if err != nil {
		db.state.Store(int32(Uninitialized))
		return err
	}
	defer r.Close()

	if err := db.load(r); err != nil {
		db.state.Store(int32(Uninitialized))
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Load reads an entire store from r and builds the query indexes. It
// succeeds at most once; later calls return ErrAlreadyInitialized. If
// loading fails, the database returns to Uninitialized and may be loaded
// again.
func (db *Database) Load(r io.Reader) error {
	if !db.state.CompareAndSwap(int32(Uninitialized), int32(Loading)) {
		return ErrAlreadyInitialized
	}

	if err := db.load(r); err != nil {
		db.state.Store(int32(Uninitialized))
		return err
	}
	return nil
}

func (db *Database) load(r io.Reader) error {
	start := time.Now()

	airports, stats, err := ReadAirports(r, db.opts)
	if err != nil {
		return err
	}

	byId := make(map[string]*Airport, len(airports))
	for _, ap := range airports {
		if _, ok := byId[ap.Id]; ok {
			return fmt.Errorf("airport %q: %w", ap.Id, ErrDuplicateId)
		}
		byId[ap.Id] = ap
	}

	byDesignator := make(map[string]*Airport, len(airports))
	byCity := make(map[string][]*Airport)
	var byLatitude []*Airport

	addKey := func(key string, ap *Airport) error {
		key = foldKey(key)
		if other, ok := byDesignator[key]; ok {
			return fmt.Errorf("%q: airports %q and %q: %w", key, other.Id, ap.Id, ErrDuplicateDesignator)
		}
		byDesignator[key] = ap
		return nil
	}

	for _, ap := range airports {
		if ap.IsHeliport() {
			continue
		}

		if err := addKey(ap.Designator, ap); err != nil {
			return err
		}
		if ap.IcaoIdentifier != "" && ap.IcaoIdentifier != ap.Designator {
			if err := addKey(ap.IcaoIdentifier, ap); err != nil {
				return err
			}
		}
		if ap.City != "" {
			c := foldKey(ap.City)
			byCity[c] = append(byCity[c], ap)
		}
		byLatitude = append(byLatitude, ap)
	}

	slices.SortStableFunc(byLatitude, func(a, b *Airport) int {
		return cmp.Compare(a.Location.Latitude(), b.Location.Latitude())
	})

	db.airports = byId
	db.byLatitude = byLatitude
	db.byDesignator = byDesignator
	db.byCity = byCity
	db.stats = stats
	db.loadTime = time.Since(start)

	db.lg.Infof("Loaded %d airports (%d heliports) in %s", stats.Airports, stats.Heliports, db.loadTime)

	db.state.Store(int32(Ready))
	return nil
}

// foldKey returns the form of a designator or city name used as an index
// key, so that lookups are case-insensitive.
func foldKey(s string) string {
	// Casers hold state and can't be shared between goroutines.
	return cases.Fold().String(s)
}

///////////////////////////////////////////////////////////////////////////
// Queries

// Len returns the number of airports, including heliports.
func (db *Database) Len() int {
	if !db.ready() {
		return 0
	}
	return len(db.airports)
}

func (db *Database) Stats() StoreStats {
	if !db.ready() {
		return StoreStats{}
	}
	return db.stats
}

// Airport returns the airport or heliport with the given id.
func (db *Database) Airport(id string) (*Airport, bool) {
	if !db.ready() {
		return nil, false
	}
	ap, ok := db.airports[id]
	return ap, ok
}

// LookupByDesignator returns the airport with the given designator or ICAO
// identifier, ignoring case. Heliports are never returned.
func (db *Database) LookupByDesignator(code string) (*Airport, bool) {
	if !db.ready() {
		return nil, false
	}
	ap, ok := db.byDesignator[foldKey(code)]
	return ap, ok
}

// LookupByCity returns the airports serving the named city, ignoring case,
// in store order. The returned slice must not be modified.
func (db *Database) LookupByCity(city string) []*Airport {
	if !db.ready() {
		return nil
	}
	return db.byCity[foldKey(city)]
}

// NaN fails every comparison, so neither pos.Valid nor radiusNM > 0 lets
// it through.
func validQuery(pos math.Point2LL, radiusNM float32) bool {
	return pos.Valid() && radiusNM > 0 && !gomath.IsInf(float64(radiusNM), 1)
}

// Nearby returns the airports within a box of the given radius around pos
// whose longest runway is longer than minRunwayLength, sorted by
// increasing distance from pos. The box's corners extend beyond the
// radius, so some of the returned airports may be slightly further away
// than radiusNM. Results near the poles or across the antimeridian are
// not reliable. An invalid pos or a radius that isn't finite and positive
// matches nothing.
func (db *Database) Nearby(pos math.Point2LL, radiusNM float32, minRunwayLength int) []*Airport {
	if !db.ready() || len(db.byLatitude) == 0 || !validQuery(pos, radiusNM) {
		return nil
	}

	box := math.BoundingBoxAround(pos, radiusNM)
	accept := func(ap *Airport) bool {
		return box.Inside(ap.Location) && ap.LongestRunwayLength() > minRunwayLength
	}

	center := db.latitudeSearch(pos.Latitude())
	n := len(db.byLatitude)

	// Walk north and south from the center; each walk stops once it leaves
	// the box's latitude band or the end of the array.
	const northDone, southDone = 1, 2
	var result []*Airport
	done := 0
	for i := 0; done != northDone|southDone; i++ {
		if done&northDone == 0 {
			if idx := center + i; idx >= n || db.byLatitude[idx].Location.Latitude() > box.P1[1] {
				done |= northDone
			} else if ap := db.byLatitude[idx]; accept(ap) {
				result = append(result, ap)
			}
		}

		if done&southDone == 0 {
			if idx := center - i; idx < 0 || db.byLatitude[idx].Location.Latitude() < box.P0[1] {
				done |= southDone
			} else if ap := db.byLatitude[idx]; i > 0 && accept(ap) {
				// The center was already visited by the north walk.
				result = append(result, ap)
			}
		}
	}

	slices.SortStableFunc(result, func(a, b *Airport) int {
		return cmp.Compare(math.NMDistance2LL(pos, a.Location), math.NMDistance2LL(pos, b.Location))
	})
	return result
}

// latitudeSearch returns the index of the airport in byLatitude whose
// latitude is closest to lat; byLatitude must not be empty.
func (db *Database) latitudeSearch(lat float32) int {
	i, found := slices.BinarySearchFunc(db.byLatitude, lat, func(ap *Airport, lat float32) int {
		return cmp.Compare(ap.Location.Latitude(), lat)
	})
	if found {
		return i
	}
	if i == len(db.byLatitude) {
		return i - 1
	}
	if i > 0 && lat-db.byLatitude[i-1].Location.Latitude() < db.byLatitude[i].Location.Latitude()-lat {
		return i - 1
	}
	return i
}
