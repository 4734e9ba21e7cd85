// aviation/join.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"strings"
)

// RunwayEnd identifies one of the two directions of a runway.
type RunwayEnd int

const (
	BaseEnd RunwayEnd = iota
	ReciprocalEnd
)

func (e RunwayEnd) String() string {
	if e == BaseEnd {
		return "base"
	}
	return "reciprocal"
}

// Runway end records carry their role in the prefix of their id.
const (
	baseEndPrefix       = "RWY_BASE_END"
	reciprocalEndPrefix = "RWY_RECIPROCAL_END"
)

func runwayEndFromId(id string) (RunwayEnd, bool) {
	switch {
	case strings.HasPrefix(id, baseEndPrefix):
		return BaseEnd, true
	case strings.HasPrefix(id, reciprocalEndPrefix):
		return ReciprocalEnd, true
	default:
		return 0, false
	}
}

type runwayEndKey struct {
	AirportId  string
	Designator string // runway end designator, e.g. "16L"
}

// RunwaySlot is where a runway end attaches.
type RunwaySlot struct {
	Runway *Runway
	End    RunwayEnd
}

func (s RunwaySlot) Direction() *RunwayDirection {
	if s.End == BaseEnd {
		return s.Runway.Base
	}
	return s.Runway.Reciprocal
}

func (s RunwaySlot) set(rd *RunwayDirection) {
	if s.End == BaseEnd {
		s.Runway.Base = rd
	} else {
		s.Runway.Reciprocal = rd
	}
}

// RunwayJoin matches runway end records to their runways. Each runway
// with designator "A/B" registers A as its base end and B as its
// reciprocal end under its airport, so that an end can be found by airport
// and end designator. Ends that aren't registered fall back to matching
// any runway of the airport whose designator starts or ends with the end
// designator.
type RunwayJoin struct {
	slots   map[runwayEndKey]RunwaySlot
	runways map[string][]*Runway // airport id -> runways, in source order
}

func NewRunwayJoin() *RunwayJoin {
	return &RunwayJoin{
		slots:   make(map[runwayEndKey]RunwaySlot),
		runways: make(map[string][]*Runway),
	}
}

// AddRunway registers both ends of rwy. It returns false if one of its
// end designators was already registered for the airport, in which case
// the first registration is kept.
func (j *RunwayJoin) AddRunway(rwy *Runway) bool {
	j.runways[rwy.AirportId] = append(j.runways[rwy.AirportId], rwy)

	unique := true
	base, recip, _ := strings.Cut(rwy.Designator, "/")
	for _, end := range []struct {
		desig string
		end   RunwayEnd
	}{{base, BaseEnd}, {recip, ReciprocalEnd}} {
		desig := strings.TrimSpace(end.desig)
		if desig == "" {
			continue
		}
		k := runwayEndKey{AirportId: rwy.AirportId, Designator: desig}
		if _, ok := j.slots[k]; ok {
			unique = false
			continue
		}
		j.slots[k] = RunwaySlot{Runway: rwy, End: end.end}
	}
	return unique
}

// Resolve finds the runway for the end with the given designator at the
// given airport. explicit is false if the designator heuristic had to be
// used; ok is false if nothing matched.
func (j *RunwayJoin) Resolve(airportId, endDesignator string) (slot RunwaySlot, explicit bool, ok bool) {
	if s, found := j.slots[runwayEndKey{AirportId: airportId, Designator: endDesignator}]; found {
		return s, true, true
	}

	if endDesignator == "" {
		return RunwaySlot{}, false, false
	}
	for _, rwy := range j.runways[airportId] {
		if strings.HasPrefix(rwy.Designator, endDesignator) {
			return RunwaySlot{Runway: rwy, End: BaseEnd}, false, true
		} else if strings.HasSuffix(rwy.Designator, endDesignator) {
			return RunwaySlot{Runway: rwy, End: ReciprocalEnd}, false, true
		}
	}
	return RunwaySlot{}, false, false
}

// Direction returns the attached runway end with the given designator at
// the airport, if any.
func (j *RunwayJoin) Direction(airportId, endDesignator string) (*RunwayDirection, bool) {
	for _, rwy := range j.runways[airportId] {
		for _, rd := range []*RunwayDirection{rwy.Base, rwy.Reciprocal} {
			if rd != nil && rd.Designator == endDesignator {
				return rd, true
			}
		}
	}
	return nil, false
}
