// server/server_test.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/airportinfo/aptdb/aviation"
	"github.com/airportinfo/aptdb/math"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func airport(id, desig, city string, lat, lon float32, rwyLength int) *aviation.Airport {
	return &aviation.Airport{
		Id:         id,
		Designator: desig,
		Name:       desig + " Muni",
		City:       city,
		Location:   math.Point2LL{lon, lat},
		Type:       "AD",
		Runways: []*aviation.Runway{{
			Id:         "RWY_" + id,
			Designator: "16/34",
			AirportId:  id,
			Length:     rwyLength,
			Width:      100,
			Base:       aviation.NewRunwayDirection("RWY_BASE_END_"+id, "16"),
			Reciprocal: aviation.NewRunwayDirection("RWY_RECIPROCAL_END_"+id, "34"),
		}},
	}
}

func testServer(t *testing.T, load bool) *Server {
	t.Helper()

	db := aviation.NewDatabase(aviation.CodecOptions{}, nil)
	if load {
		airports := []*aviation.Airport{
			airport("AH_0000001", "AAA", "SEATTLE", 47.50, -122.30, 3000),
			airport("AH_0000002", "BBB", "SEATTLE", 47.60, -122.20, 6000),
			airport("AH_0000003", "CCC", "WENATCHEE", 48.50, -120.00, 3000),
		}
		var buf bytes.Buffer
		if _, err := aviation.WriteStore(&buf, airports, nil, aviation.StoreOptions{}); err != nil {
			t.Fatalf("WriteStore() error = %v", err)
		}
		if err := db.Load(&buf); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
	}
	return New(db, Config{CacheSize: 16, CacheTTL: time.Minute}, nil)
}

func get(t *testing.T, s *Server, url string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

type nearbyResponse struct {
	Count    int
	Airports []struct {
		Designator string
		DistanceNM float32
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		load       bool
		wantStatus int
		wantState  string
	}{
		{name: "Ready", load: true, wantStatus: http.StatusOK, wantState: "ready"},
		{name: "NotLoaded", load: false, wantStatus: http.StatusServiceUnavailable, wantState: "uninitialized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, testServer(t, tt.load), "/health")
			if w.Code != tt.wantStatus {
				t.Errorf("GET /health status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if body["database"] != tt.wantState {
				t.Errorf("GET /health database = %q, want %q", body["database"], tt.wantState)
			}
		})
	}
}

func TestNearby(t *testing.T) {
	s := testServer(t, true)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		want       []string
	}{
		{name: "DefaultRadius", query: "lat=47.5&lon=-122.3", wantStatus: http.StatusOK, want: []string{"AAA", "BBB"}},
		{name: "Small", query: "lat=47.5&lon=-122.3&radius=1", wantStatus: http.StatusOK, want: []string{"AAA"}},
		{name: "Large", query: "lat=47.5&lon=-122.3&radius=200", wantStatus: http.StatusOK,
			want: []string{"AAA", "BBB", "CCC"}},
		{name: "MinRunway", query: "lat=47.5&lon=-122.3&minrwy=5000", wantStatus: http.StatusOK, want: []string{"BBB"}},
		{name: "Empty", query: "lat=0&lon=0", wantStatus: http.StatusOK},
		{name: "MissingLat", query: "lon=-122.3", wantStatus: http.StatusBadRequest},
		{name: "BadLon", query: "lat=47.5&lon=west", wantStatus: http.StatusBadRequest},
		{name: "LatRange", query: "lat=91&lon=0", wantStatus: http.StatusBadRequest},
		{name: "ZeroRadius", query: "lat=47.5&lon=-122.3&radius=0", wantStatus: http.StatusBadRequest},
		{name: "HugeRadius", query: "lat=47.5&lon=-122.3&radius=5000", wantStatus: http.StatusBadRequest},
		{name: "NegativeRunway", query: "lat=47.5&lon=-122.3&minrwy=-1", wantStatus: http.StatusBadRequest},
		{name: "NaNLat", query: "lat=NaN&lon=-122.3", wantStatus: http.StatusBadRequest},
		{name: "NaNLon", query: "lat=47.5&lon=nan", wantStatus: http.StatusBadRequest},
		{name: "InfLon", query: "lat=47.5&lon=-Inf", wantStatus: http.StatusBadRequest},
		{name: "NaNRadius", query: "lat=47.5&lon=-122.3&radius=NaN", wantStatus: http.StatusBadRequest},
		{name: "InfRadius", query: "lat=47.5&lon=-122.3&radius=Infinity", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, s, "/api/v1/nearby?"+tt.query)
			if w.Code != tt.wantStatus {
				t.Fatalf("GET nearby?%s status = %d, want %d: %s", tt.query, w.Code, tt.wantStatus, w.Body.String())
			}
			if w.Code != http.StatusOK {
				return
			}
			if len(tt.want) == 0 && !strings.Contains(w.Body.String(), `"airports":[]`) {
				t.Errorf("GET nearby?%s = %s, want an empty airports array", tt.query, w.Body.String())
			}

			var resp nearbyResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.Count != len(tt.want) || len(resp.Airports) != len(tt.want) {
				t.Fatalf("GET nearby?%s returned %d airports, want %d", tt.query, len(resp.Airports), len(tt.want))
			}
			for i, ap := range resp.Airports {
				if ap.Designator != tt.want[i] {
					t.Errorf("airport[%d] = %s, want %s", i, ap.Designator, tt.want[i])
				}
				if i > 0 && ap.DistanceNM < resp.Airports[i-1].DistanceNM {
					t.Errorf("airport[%d] distance %f is less than previous %f", i, ap.DistanceNM,
						resp.Airports[i-1].DistanceNM)
				}
			}
		})
	}
}

func TestRejectedQueriesNotCached(t *testing.T) {
	s := testServer(t, true)

	for _, q := range []string{"lat=NaN&lon=NaN", "lat=47.5&lon=-122.3&radius=NaN", "lat=47.5&lon=-122.3&radius=Inf"} {
		for range 3 {
			if w := get(t, s, "/api/v1/nearby?"+q); w.Code != http.StatusBadRequest {
				t.Errorf("GET nearby?%s status = %d, want %d", q, w.Code, http.StatusBadRequest)
			}
		}
	}
	if n := s.cache.Len(); n != 0 {
		t.Errorf("cache has %d entries after rejected queries, want 0", n)
	}
	if q := s.queries.Load(); q != 0 {
		t.Errorf("queries = %d after rejected queries, want 0", q)
	}
}

func TestAirportLookup(t *testing.T) {
	s := testServer(t, true)

	tests := []struct {
		designator string
		wantStatus int
		wantId     string
	}{
		{"AAA", http.StatusOK, "AH_0000001"},
		{"bbb", http.StatusOK, "AH_0000002"},
		{"ZZZ", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		w := get(t, s, "/api/v1/airports/"+tt.designator)
		if w.Code != tt.wantStatus {
			t.Errorf("GET airports/%s status = %d, want %d", tt.designator, w.Code, tt.wantStatus)
			continue
		}

		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if tt.wantId == "" {
			if body["error"] != aviation.ErrNoAirport.Error() {
				t.Errorf("GET airports/%s error = %v, want %q", tt.designator, body["error"], aviation.ErrNoAirport)
			}
		} else if body["Id"] != tt.wantId {
			t.Errorf("GET airports/%s Id = %v, want %s", tt.designator, body["Id"], tt.wantId)
		} else {
			var ap struct {
				Runways []struct {
					Base, Reciprocal struct{ TrafficDirection string }
				}
			}
			if err := json.Unmarshal(w.Body.Bytes(), &ap); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(ap.Runways) != 1 || ap.Runways[0].Base.TrafficDirection != "L" ||
				ap.Runways[0].Reciprocal.TrafficDirection != "L" {
				t.Errorf("GET airports/%s runways = %+v, want traffic direction \"L\"", tt.designator, ap.Runways)
			}
		}
	}
}

func TestCityLookup(t *testing.T) {
	s := testServer(t, true)

	tests := []struct {
		city string
		want int
	}{
		{"SEATTLE", 2},
		{"wenatchee", 1},
		{"PORTLAND", 0},
	}

	for _, tt := range tests {
		w := get(t, s, "/api/v1/cities/"+tt.city)
		if w.Code != http.StatusOK {
			t.Errorf("GET cities/%s status = %d, want 200", tt.city, w.Code)
			continue
		}
		var resp nearbyResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if resp.Count != tt.want || len(resp.Airports) != tt.want {
			t.Errorf("GET cities/%s count = %d, want %d", tt.city, resp.Count, tt.want)
		}
		if tt.want == 0 && !strings.Contains(w.Body.String(), `"airports":[]`) {
			t.Errorf("GET cities/%s = %s, want an empty airports array", tt.city, w.Body.String())
		}
	}
}

func TestQueriesBeforeLoad(t *testing.T) {
	s := testServer(t, false)

	for _, url := range []string{
		"/api/v1/nearby?lat=47.5&lon=-122.3",
		"/api/v1/airports/AAA",
		"/api/v1/cities/SEATTLE",
	} {
		if w := get(t, s, url); w.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s status = %d, want %d", url, w.Code, http.StatusServiceUnavailable)
		}
	}
}

func TestStats(t *testing.T) {
	s := testServer(t, true)
	get(t, s, "/api/v1/nearby?lat=47.5&lon=-122.3")
	get(t, s, "/api/v1/airports/AAA")

	w := get(t, s, "/api/v1/stats")
	if w.Code != http.StatusOK {
		t.Fatalf("GET stats status = %d, want 200", w.Code)
	}
	var stats serverStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if stats.DatabaseState != "ready" {
		t.Errorf("DatabaseState = %q, want ready", stats.DatabaseState)
	}
	if stats.Database.Airports != 3 {
		t.Errorf("Database.Airports = %d, want 3", stats.Database.Airports)
	}
	if stats.Queries != 2 {
		t.Errorf("Queries = %d, want 2", stats.Queries)
	}
	if stats.CacheEntries != 1 {
		t.Errorf("CacheEntries = %d, want 1", stats.CacheEntries)
	}
	if stats.NumGoRoutines == 0 {
		t.Errorf("NumGoRoutines = 0")
	}
}

func TestRunShutdown(t *testing.T) {
	db := aviation.NewDatabase(aviation.CodecOptions{}, nil)
	s := New(db, Config{Addr: "127.0.0.1:0"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run() did not return after cancel")
	}
}
