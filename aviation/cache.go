// aviation/cache.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"time"

	"github.com/airportinfo/aptdb/math"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultNearbyCacheSize = 4096
	DefaultNearbyCacheTTL  = 10 * time.Minute
)

type nearbyKey struct {
	pos             math.Point2LL
	radiusNM        float32
	minRunwayLength int
}

// NearbyCache memoizes Database.Nearby for clients that repeat the same
// query, e.g. a device polling from a fixed position. Nothing is cached
// until the database is Ready, and queries that can't match anything are
// never cached; a NaN key would never be found again.
type NearbyCache struct {
	db  *Database
	lru *expirable.LRU[nearbyKey, []*Airport]
}

func NewNearbyCache(db *Database, size int, ttl time.Duration) *NearbyCache {
	if size <= 0 {
		size = DefaultNearbyCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultNearbyCacheTTL
	}
	return &NearbyCache{
		db:  db,
		lru: expirable.NewLRU[nearbyKey, []*Airport](size, nil, ttl),
	}
}

// Nearby returns the same result as Database.Nearby. The returned slice is
// shared with other callers and must not be modified.
func (c *NearbyCache) Nearby(pos math.Point2LL, radiusNM float32, minRunwayLength int) []*Airport {
	if !c.db.ready() || !validQuery(pos, radiusNM) {
		return nil
	}

	k := nearbyKey{pos: pos, radiusNM: radiusNM, minRunwayLength: minRunwayLength}
	if r, ok := c.lru.Get(k); ok {
		return r
	}

	r := c.db.Nearby(pos, radiusNM, minRunwayLength)
	c.lru.Add(k, r)
	return r
}

func (c *NearbyCache) Len() int {
	return c.lru.Len()
}

func (c *NearbyCache) Purge() {
	c.lru.Purge()
}
