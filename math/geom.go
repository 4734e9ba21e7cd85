// math/geom.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

///////////////////////////////////////////////////////////////////////////
// Extent2D

// Extent2D represents a 2D bounding box with the two vertices at its
// opposite minimum and maximum corners.
type Extent2D struct {
	P0, P1 [2]float32
}

// BoundingBoxAround returns the lat-long box that circumscribes the
// circle of the given radius (in nautical miles) around p. The longitude
// extent is widened by 1/cos(latitude); the result is not meaningful near
// the poles or across the antimeridian.
func BoundingBoxAround(p Point2LL, radiusNM float32) Extent2D {
	dlat := radiusNM / NMPerLatitude
	dlon := radiusNM / NMPerLongitudeAt(p)
	return Extent2D{
		P0: [2]float32{p[0] - dlon, p[1] - dlat},
		P1: [2]float32{p[0] + dlon, p[1] + dlat},
	}
}

func (e Extent2D) Inside(p [2]float32) bool {
	return p[0] >= e.P0[0] && p[0] <= e.P1[0] && p[1] >= e.P0[1] && p[1] <= e.P1[1]
}
