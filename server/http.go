// server/http.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	gomath "math"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/airportinfo/aptdb/aviation"
	"github.com/airportinfo/aptdb/math"
	"github.com/airportinfo/aptdb/util"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

func (s *Server) routes() {
	s.router.GET("/health", s.healthHandler())

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/nearby", s.nearbyHandler())
		v1.GET("/airports/:designator", s.airportHandler())
		v1.GET("/cities/:city", s.cityHandler())
		v1.GET("/stats", s.statsHandler())
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}

func (s *Server) healthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		state := s.db.State()
		status := http.StatusOK
		if state != aviation.Ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "database": state.String()})
	}
}

// NearbyAirport is an airport along with its distance from the query
// position.
type NearbyAirport struct {
	*aviation.Airport
	DistanceNM float32
}

type nearbyParams struct {
	pos       math.Point2LL
	radiusNM  float32
	minRunway int
}

// parseFloat is strconv.ParseFloat without "NaN" and "Inf", which
// would otherwise slip past the range checks below.
func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil || gomath.IsNaN(v) || gomath.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func (s *Server) parseNearby(c *gin.Context) (nearbyParams, error) {
	p := nearbyParams{radiusNM: DefaultRadiusNM}

	lat, ok := parseFloat(c.Query("lat"))
	if !ok || lat < -90 || lat > 90 {
		return p, ErrInvalidLatitude
	}
	lon, ok := parseFloat(c.Query("lon"))
	if !ok || lon < -180 || lon > 180 {
		return p, ErrInvalidLongitude
	}
	p.pos = math.Point2LL{float32(lon), float32(lat)}

	if r := c.Query("radius"); r != "" {
		radius, ok := parseFloat(r)
		if !ok || radius <= 0 || float32(radius) > s.cfg.MaxRadiusNM {
			return p, ErrInvalidRadius
		}
		p.radiusNM = float32(radius)
	}
	if m := c.Query("minrwy"); m != "" {
		minRunway, err := strconv.Atoi(m)
		if err != nil || minRunway < 0 {
			return p, ErrInvalidRunwayLimit
		}
		p.minRunway = minRunway
	}
	return p, nil
}

func (s *Server) nearbyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.db.State() != aviation.Ready {
			s.fail(c, ErrDatabaseNotReady)
			return
		}
		p, err := s.parseNearby(c)
		if err != nil {
			s.fail(c, err)
			return
		}
		s.queries.Add(1)

		result := util.MapSlice(s.cache.Nearby(p.pos, p.radiusNM, p.minRunway),
			func(ap *aviation.Airport) NearbyAirport {
				return NearbyAirport{Airport: ap, DistanceNM: math.NMDistance2LL(p.pos, ap.Location)}
			})
		if result == nil {
			result = []NearbyAirport{}
		}
		c.JSON(http.StatusOK, gin.H{"count": len(result), "airports": result})
	}
}

func (s *Server) airportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.db.State() != aviation.Ready {
			s.fail(c, ErrDatabaseNotReady)
			return
		}
		s.queries.Add(1)

		ap, ok := s.db.LookupByDesignator(c.Param("designator"))
		if !ok {
			s.fail(c, aviation.ErrNoAirport)
			return
		}
		c.JSON(http.StatusOK, ap)
	}
}

func (s *Server) cityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.db.State() != aviation.Ready {
			s.fail(c, ErrDatabaseNotReady)
			return
		}
		s.queries.Add(1)

		airports := s.db.LookupByCity(c.Param("city"))
		if airports == nil {
			airports = []*aviation.Airport{}
		}
		c.JSON(http.StatusOK, gin.H{"count": len(airports), "airports": airports})
	}
}

type serverStats struct {
	Uptime           time.Duration
	AllocMemory      uint64
	TotalAllocMemory uint64
	SysMemory        uint64
	HostMemoryUsed   float64
	NumGC            uint32
	NumGoRoutines    int
	CPUUsage         int

	DatabaseState string
	Database      aviation.StoreStats
	Queries       int64
	CacheEntries  int
}

func (s *Server) statsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		// A zero interval compares against the previous call so that the
		// handler doesn't block.
		usage, _ := cpu.Percent(0, false)

		stats := serverStats{
			Uptime:           time.Since(s.startTime).Round(time.Second),
			AllocMemory:      m.Alloc / (1024 * 1024),
			TotalAllocMemory: m.TotalAlloc / (1024 * 1024),
			SysMemory:        m.Sys / (1024 * 1024),
			NumGC:            m.NumGC,
			NumGoRoutines:    runtime.NumGoroutine(),
			DatabaseState:    s.db.State().String(),
			Database:         s.db.Stats(),
			Queries:          s.queries.Load(),
			CacheEntries:     s.cache.Len(),
		}
		if len(usage) > 0 {
			stats.CPUUsage = int(usage[0] + 0.5)
		}
		if vm, err := mem.VirtualMemory(); err == nil {
			stats.HostMemoryUsed = vm.UsedPercent
		}

		c.JSON(http.StatusOK, stats)
	}
}
