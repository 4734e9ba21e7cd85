// aviation/airport.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"strconv"

	"github.com/airportinfo/aptdb/math"
)

// Airport is a single airport or heliport. After the database is loaded
// airports are shared by all readers and must not be modified; see
// WithWeather for attaching observations.
type Airport struct {
	Id                 string
	IcaoIdentifier     string // may be empty
	Designator         string
	Name               string
	Location           math.Point2LL
	State              string
	ControlledAirport  bool
	MagneticVariation  float32 // degrees
	FieldElevation     float32 // feet
	Ownership          string
	City               string
	TransitionAltitude int
	Type               string
	HasTaf             bool
	HasMetarStation    bool
	Runways            []*Runway

	// Weather is never persisted.
	Weather *WeatherOverlay `json:"-" msgpack:"-"`
}

type Runway struct {
	Id          string
	Designator  string // e.g. "16/34"
	AirportId   string
	Length      int // feet
	Width       int // feet
	Composition string
	Base        *RunwayDirection
	Reciprocal  *RunwayDirection
}

type RunwayDirection struct {
	Id               string
	Designator       string // e.g. "16"
	TrafficDirection TrafficDirection
	TrueBearing      int // degrees; -1 if unknown
}

// TrafficDirection is the side of the runway end the traffic pattern is
// flown on. It is encoded in JSON as "L" or "R".
type TrafficDirection byte

const (
	LeftTraffic  TrafficDirection = 'L'
	RightTraffic TrafficDirection = 'R'
)

func (td TrafficDirection) MarshalJSON() ([]byte, error) {
	switch td {
	case LeftTraffic:
		return []byte(`"L"`), nil
	case RightTraffic:
		return []byte(`"R"`), nil
	default:
		return nil, fmt.Errorf("unhandled traffic direction %q in MarshalJSON()", byte(td))
	}
}

func (td *TrafficDirection) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case `"L"`:
		*td = LeftTraffic
		return nil
	case `"R"`:
		*td = RightTraffic
		return nil
	default:
		return fmt.Errorf("%s: unknown traffic direction", string(b))
	}
}

// UnknownBearing is the TrueBearing of a runway end whose heading was not
// given in the source data.
const UnknownBearing = -1

func NewRunwayDirection(id, designator string) *RunwayDirection {
	return &RunwayDirection{
		Id:               id,
		Designator:       designator,
		TrafficDirection: LeftTraffic,
		TrueBearing:      UnknownBearing,
	}
}

var heliportTypes = map[string]bool{
	"HP": true, "HI": true, "H1": true, "H2": true, "H3": true, "H4": true, "H5": true,
	"H6": true, "H7": true, "H8": true, "H9": true, "H10": true, "B1": true,
	"H-A": true, "H-B": true, "H-C": true, "H-D": true, "H-E": true, "H-F": true,
	"HB": true, "HF": true,
}

// IsHeliport reports whether the airport's facility type code is one of
// the heliport codes; heliports are excluded from all query indexes.
func (ap *Airport) IsHeliport() bool {
	return heliportTypes[ap.Type]
}

// LongestRunwayLength returns the length in feet of the airport's longest
// runway, or 0 if it has none.
func (ap *Airport) LongestRunwayLength() int {
	l := 0
	for _, rwy := range ap.Runways {
		l = max(l, rwy.Length)
	}
	return l
}

func (ap *Airport) String() string {
	return fmt.Sprintf("%s (%s) %s, %s %sft Var=%s Ownership=%s", ap.Designator, ap.Type, ap.City, ap.State,
		strconv.FormatFloat(float64(ap.FieldElevation), 'f', -1, 32),
		strconv.FormatFloat(float64(ap.MagneticVariation), 'f', -1, 32), ap.Ownership)
}

func (rwy *Runway) String() string {
	return fmt.Sprintf("%s, %s %dft x %dft", rwy.Id, rwy.Designator, rwy.Length, rwy.Width)
}

func (rd *RunwayDirection) String() string {
	return fmt.Sprintf("%s, %c-Traffic %d°", rd.Designator, rd.TrafficDirection, rd.TrueBearing)
}

///////////////////////////////////////////////////////////////////////////
// Record encoding

func (ap *Airport) Kind() RecordKind { return AirportRecord }

func (ap *Airport) EncodeFields(e *FieldEncoder) {
	e.String(ap.Id)
	e.String(ap.IcaoIdentifier)
	e.String(ap.Designator)
	e.String(ap.Name)
	e.Float(ap.Location.Latitude())
	e.Float(ap.Location.Longitude())
	e.String(ap.State)
	e.Bool(ap.ControlledAirport)
	e.Float(ap.MagneticVariation)
	e.Float(ap.FieldElevation)
	e.String(ap.Ownership)
	e.String(ap.City)
	e.Int(ap.TransitionAltitude)
	e.String(ap.Type)
	e.Bool(ap.HasTaf)
	e.Bool(ap.HasMetarStation)
	e.Int(len(ap.Runways))
	for _, rwy := range ap.Runways {
		rwy.EncodeFields(e)
	}
}

func (ap *Airport) DecodeFields(d *FieldDecoder) {
	ap.Id = d.String()
	ap.IcaoIdentifier = d.String()
	ap.Designator = d.String()
	ap.Name = d.String()
	lat := d.Float()
	lon := d.Float()
	ap.Location = math.Point2LL{lon, lat}
	ap.State = d.String()
	ap.ControlledAirport = d.Bool()
	ap.MagneticVariation = d.Float()
	ap.FieldElevation = d.Float()
	ap.Ownership = d.String()
	ap.City = d.String()
	ap.TransitionAltitude = d.Int()
	ap.Type = d.String()
	ap.HasTaf = d.Bool()
	ap.HasMetarStation = d.Bool()

	n := d.Int()
	if d.Err() != nil {
		return
	}
	if n < 0 {
		d.badField("runway count", []byte(strconv.Itoa(n)), nil)
		return
	}
	ap.Runways = nil
	for range n {
		rwy := &Runway{}
		rwy.DecodeFields(d)
		if d.Err() != nil {
			return
		}
		ap.Runways = append(ap.Runways, rwy)
	}
}

func (rwy *Runway) Kind() RecordKind { return RunwayRecord }

// Tags that introduce an optional runway end.
const (
	absentTag     = 0
	baseTag       = 'B'
	reciprocalTag = 'R'
)

func (rwy *Runway) EncodeFields(e *FieldEncoder) {
	e.String(rwy.Id)
	e.String(rwy.Designator)
	e.String(rwy.AirportId)
	e.Int(rwy.Length)
	e.Int(rwy.Width)
	e.String(rwy.Composition)

	for _, end := range []struct {
		tag byte
		dir *RunwayDirection
	}{{baseTag, rwy.Base}, {reciprocalTag, rwy.Reciprocal}} {
		if end.dir == nil {
			e.Char(absentTag)
		} else {
			e.Char(end.tag)
			end.dir.EncodeFields(e)
		}
	}
}

func (rwy *Runway) DecodeFields(d *FieldDecoder) {
	rwy.Id = d.String()
	rwy.Designator = d.String()
	rwy.AirportId = d.String()
	rwy.Length = d.Int()
	rwy.Width = d.Int()
	rwy.Composition = d.String()

	// The tag, not the slot position, says which end follows.
	for range 2 {
		tag := d.Char()
		if d.Err() != nil {
			return
		}

		switch tag {
		case absentTag:
			continue
		case baseTag, reciprocalTag:
		default:
			d.badField("runway end tag", []byte{tag}, nil)
			return
		}

		dir := &RunwayDirection{}
		dir.DecodeFields(d)
		if tag == baseTag {
			rwy.Base = dir
		} else {
			rwy.Reciprocal = dir
		}
	}
}

func (rd *RunwayDirection) Kind() RecordKind { return RunwayDirectionRecord }

func (rd *RunwayDirection) EncodeFields(e *FieldEncoder) {
	e.String(rd.Id)
	e.String(rd.Designator)
	e.Char(byte(rd.TrafficDirection))
	e.Int(rd.TrueBearing)
}

func (rd *RunwayDirection) DecodeFields(d *FieldDecoder) {
	rd.Id = d.String()
	rd.Designator = d.String()
	rd.TrafficDirection = TrafficDirection(d.Char())
	if d.err == nil && rd.TrafficDirection != LeftTraffic && rd.TrafficDirection != RightTraffic {
		d.badField("traffic direction", []byte{byte(rd.TrafficDirection)}, nil)
		return
	}
	rd.TrueBearing = d.Int()
}
