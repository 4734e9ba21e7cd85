// math/latlong.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"fmt"
	gomath "math"
	"strconv"
	"strings"
)

const NMPerLatitude = 60

// EarthRadiusNM is the mean radius of the Earth used for great-circle
// distances.
const EarthRadiusNM = 3440

///////////////////////////////////////////////////////////////////////////
// Point2LL

// Point2LL represents a 2D point on the Earth in latitude-longitude.
// Important: 0 (x) is longitude, 1 (y) is latitude
type Point2LL [2]float32

func (p Point2LL) Longitude() float32 {
	return p[0]
}

func (p Point2LL) Latitude() float32 {
	return p[1]
}

// DDString returns the position in decimal degrees, e.g.:
// (39.860901, -75.274864)
func (p Point2LL) DDString() string {
	return fmt.Sprintf("(%f, %f)", p[1], p[0]) // latitude, longitude
}

// Valid reports whether the point is a plausible position on the Earth.
func (p Point2LL) Valid() bool {
	return p[1] >= -90 && p[1] <= 90 && p[0] >= -180 && p[0] <= 180
}

// ParseLonLat parses a whitespace-separated "longitude latitude" pair of
// decimal degrees, as found in GML pos elements.
func ParseLonLat(s string) (Point2LL, error) {
	f := strings.Fields(s)
	if len(f) != 2 {
		return Point2LL{}, fmt.Errorf("%q: expected longitude and latitude", s)
	}
	lon, err := strconv.ParseFloat(f[0], 32)
	if err != nil {
		return Point2LL{}, fmt.Errorf("%q: %w", s, err)
	}
	lat, err := strconv.ParseFloat(f[1], 32)
	if err != nil {
		return Point2LL{}, fmt.Errorf("%q: %w", s, err)
	}
	return Point2LL{float32(lon), float32(lat)}, nil
}

// NMDistance2LL returns the great-circle distance in nautical miles
// between two provided lat-long coordinates, using the haversine formula
// on a sphere of radius EarthRadiusNM.
func NMDistance2LL(a Point2LL, b Point2LL) float32 {
	rad := func(d float32) float64 { return float64(d) / 180 * gomath.Pi }
	lat1, lon1 := rad(a[1]), rad(a[0])
	lat2, lon2 := rad(b[1]), rad(b[0])
	dlat, dlon := lat2-lat1, lon2-lon1

	h := Sqr(gomath.Sin(dlat/2)) + gomath.Cos(lat1)*gomath.Cos(lat2)*Sqr(gomath.Sin(dlon/2))
	c := 2 * gomath.Asin(gomath.Min(1, gomath.Sqrt(h)))

	return float32(EarthRadiusNM * c)
}

// NMPerLongitudeAt returns the number of nautical miles spanned by one
// degree of longitude at the given latitude.
func NMPerLongitudeAt(p Point2LL) float32 {
	return NMPerLatitude * Cos(Radians(p.Latitude()))
}
