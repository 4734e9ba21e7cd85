// aviation/integrity.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"strings"

	"github.com/airportinfo/aptdb/math"
	"github.com/airportinfo/aptdb/util"
)

const (
	minIdLength         = 6
	minDesignatorLength = 3
	minFieldElevation   = -250 // feet; the Dead Sea is not in the feed
	maxBearingMismatch  = 10   // degrees
)

// VerifyAirports checks ingested airports for problems that don't stop
// them from being stored but that suggest the source data or the runway
// end join went wrong. Problems are reported to e. Heliports, helipad
// runways, and closed runways (designators like "16X") get only the id
// checks.
func VerifyAirports(airports []*Airport, e *util.ErrorLogger) {
	ids := make(map[string]string)
	designators := make(map[string]string)

	for _, ap := range airports {
		e.Push("Airport " + ap.Designator)

		if len(ap.Id) < minIdLength {
			e.ErrorString("id %q is too short", ap.Id)
		}
		if other, ok := ids[ap.Id]; ok {
			e.ErrorString("id %q also used by airport %s", ap.Id, other)
		}
		ids[ap.Id] = ap.Designator

		if !ap.IsHeliport() {
			if other, ok := designators[ap.Designator]; ok {
				e.ErrorString("designator also used by airport %q", other)
			} else {
				designators[ap.Designator] = ap.Id
			}
			verifyAirport(ap, e)
		}

		e.Pop()
	}
}

func verifyAirport(ap *Airport, e *util.ErrorLogger) {
	checked := false
	for _, rwy := range ap.Runways {
		if heliportTypes[rwy.Designator] || isClosedRunway(rwy.Designator) {
			continue
		}

		e.Push("Runway " + rwy.Designator)
		verifyRunway(ap, rwy, e)
		e.Pop()

		// The airport itself is checked once, if it has at least one
		// regular runway.
		if !checked {
			checked = true
			if ap.City == "" {
				e.ErrorString("no city")
			}
			if ap.FieldElevation < minFieldElevation {
				e.ErrorString("field elevation %.0fft too low", ap.FieldElevation)
			}
			if math.Abs(ap.MagneticVariation) > 90 {
				e.ErrorString("magnetic variation %.1f out of range", ap.MagneticVariation)
			}
			if lat, lon := ap.Location.Latitude(), ap.Location.Longitude(); lat <= -90 || lat >= 90 || lon <= -180 || lon >= 180 {
				e.ErrorString("location %s out of range", ap.Location.DDString())
			}
			if len(ap.Designator) < minDesignatorLength {
				e.ErrorString("designator too short")
			}
		}
	}

	if ap.HasTaf && !ap.HasMetarStation {
		e.ErrorString("has TAF but no METAR station")
	}
}

// Closed runways have an X in place of their second end.
func isClosedRunway(desig string) bool {
	return len(desig) == 3 && desig[2] == 'X'
}

func verifyRunway(ap *Airport, rwy *Runway, e *util.ErrorLogger) {
	if rwy.AirportId != ap.Id {
		e.ErrorString("belongs to airport %q", rwy.AirportId)
	}

	base, recip, _ := strings.Cut(rwy.Designator, "/")
	for _, end := range []struct {
		name, want string
		rd         *RunwayDirection
	}{{"base", base, rwy.Base}, {"reciprocal", recip, rwy.Reciprocal}} {
		if end.rd == nil {
			e.ErrorString("no %s end", end.name)
			continue
		}
		if end.want != "" && end.rd.Designator != end.want {
			e.ErrorString("end %q attached where %q was expected", end.rd.Designator, end.want)
		}
		if end.rd.TrafficDirection != LeftTraffic && end.rd.TrafficDirection != RightTraffic {
			e.ErrorString("end %s: traffic direction %q", end.rd.Designator, end.rd.TrafficDirection)
		}
	}

	if rwy.Base != nil && rwy.Reciprocal != nil &&
		rwy.Base.TrueBearing != UnknownBearing && rwy.Reciprocal.TrueBearing != UnknownBearing {
		opp := math.OppositeHeading(float32(rwy.Base.TrueBearing))
		if math.HeadingDifference(opp, float32(rwy.Reciprocal.TrueBearing)) > maxBearingMismatch {
			e.ErrorString("end bearings %d and %d are not reciprocal", rwy.Base.TrueBearing, rwy.Reciprocal.TrueBearing)
		}
	}
}
