// aviation/aixm.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/airportinfo/aptdb/log"
	"github.com/airportinfo/aptdb/math"
	"github.com/airportinfo/aptdb/util"
)

// The FAA AIXM airport feed is a few hundred megabytes of XML. Rather
// than declaring types for the full schema, the parser walks the token
// stream and decodes only the handful of feature types we care about,
// each into a small struct that picks out the fields that are needed.

type xlinkRef struct {
	Href string `xml:"href,attr"`
}

type aixmAirportHeliport struct {
	Id    string `xml:"id,attr"`
	Slice struct {
		Designator         string   `xml:"designator"`
		Name               string   `xml:"name"`
		ICAO               string   `xml:"locationIndicatorICAO"`
		Type               string   `xml:"type"`
		FieldElevation     string   `xml:"fieldElevation"`
		MagneticVariation  string   `xml:"magneticVariation"`
		ServedCity         []string `xml:"servedCity>City>name"`
		Position           string   `xml:"ARP>ElevatedPoint>pos"`
		TransitionAltitude string   `xml:"transitionAltitude"`
		Extension          struct {
			AdministrativeArea string `xml:"administativeArea"` // sic
			Ownership          string `xml:"ownershipType"`
			Tower              string `xml:"trafficControlTowerOnAirport"`
		} `xml:"extension>AirportHeliportExtension"`
	} `xml:"timeSlice>AirportHeliportTimeSlice"`
}

type aixmRunway struct {
	Id    string `xml:"id,attr"`
	Slice struct {
		Designator  string   `xml:"designator"`
		LengthStrip string   `xml:"lengthStrip"`
		WidthStrip  string   `xml:"widthStrip"`
		Composition string   `xml:"surfaceProperties>SurfaceCharacteristics>composition"`
		Airport     xlinkRef `xml:"associatedAirportHeliport"`
	} `xml:"timeSlice>RunwayTimeSlice"`
}

type aixmNote struct {
	Id    string   `xml:"id,attr"`
	Notes []string `xml:"translatedNote>LinguisticNote>note"`
}

type aixmTouchDownLiftOff struct {
	Id    string `xml:"id,attr"`
	Slice struct {
		Designator  string     `xml:"designator"`
		Airport     xlinkRef   `xml:"associatedAirportHeliport"`
		Annotations []aixmNote `xml:"annotation>Note"`
	} `xml:"timeSlice>TouchDownLiftOffTimeSlice"`
}

type aixmRadioChannel struct {
	Id    string `xml:"id,attr"`
	Slice struct {
		Frequency string `xml:"frequencyTransmission"`
	} `xml:"timeSlice>RadioCommunicationChannelTimeSlice"`
}

type aixmSuppliesService struct {
	Id    string `xml:"id,attr"`
	Slice struct {
		Fuel []string `xml:"fuelSupply>Fuel>category"`
	} `xml:"timeSlice>AirportSuppliesServiceTimeSlice"`
}

// Feature types that are recognized but not kept.
var ignoredFeatures = map[string]bool{
	"OrganisationAuthority":    true,
	"Unit":                     true,
	"AirTrafficControlService": true,
	"RunwayMarking":            true,
	"RunwayDirection":          true,
	"Glidepath":                true,
	"ApproachLightingSystem":   true,
}

// IngestStats counts what the parser saw and how cross references were
// resolved.
type IngestStats struct {
	Airports             int
	Heliports            int
	Runways              int
	RunwayEnds           int
	ExplicitJoins        int
	HeuristicJoins       int
	Annotations          int
	UnmatchedAnnotations int
	RadioChannels        int
	SuppliesServices     int
	Ignored              int
}

// AIXMData is the result of ingesting an AIXM feed.
type AIXMData struct {
	Airports         []*Airport // in source order
	RadioChannels    []*RadioChannel
	SuppliesServices []*SuppliesService
	// Ids of runway ends that were matched to their runway heuristically.
	HeuristicJoins []string
	Stats          IngestStats
}

// Auxiliary returns the non-airport records, for writing after the
// airports in a store.
func (a *AIXMData) Auxiliary() []Record {
	var r []Record
	for _, rc := range a.RadioChannels {
		r = append(r, rc)
	}
	for _, ss := range a.SuppliesServices {
		r = append(r, ss)
	}
	return r
}

type runwayEndRecord struct {
	id         string
	designator string
	airportId  string
	end        RunwayEnd
}

type annotationRecord struct {
	tdloId     string
	designator string
	airportId  string
	note       aixmNote
}

type aixmParser struct {
	lg       *log.Logger
	stations StationTable

	data        AIXMData
	runways     []*Runway
	ends        []runwayEndRecord
	annotations []annotationRecord
}

// ParseAIXM reads an AIXM airport feed from r. Airports are finalized
// against the provided METAR station table. Runways, runway ends, and
// runway end annotations are collected during the stream and attached to
// their airports once it has been fully read, so their order in the feed
// doesn't matter. Missing mandatory fields and references that can't be
// resolved are errors.
func ParseAIXM(r io.Reader, stations StationTable, lg *log.Logger) (*AIXMData, error) {
	p := &aixmParser{lg: lg, stations: stations}
	if err := p.scan(r); err != nil {
		return nil, err
	}
	if err := p.resolve(); err != nil {
		return nil, err
	}
	return &p.data, nil
}

// IngestFile opens and parses the AIXM feed at path; see OpenSource.
func IngestFile(path string, stations StationTable, lg *log.Logger) (*AIXMData, error) {
	r, err := OpenSource(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := ParseAIXM(r, stations, lg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

func (p *aixmParser) scan(r io.Reader) error {
	decoder := xml.NewDecoder(r)

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("offset %d: %w", decoder.InputOffset(), err)
		}

		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "AirportHeliport":
			var ah aixmAirportHeliport
			if err := decoder.DecodeElement(&ah, &se); err != nil {
				return err
			}
			if err := p.addAirport(ah); err != nil {
				return err
			}

		case "Runway":
			var rwy aixmRunway
			if err := decoder.DecodeElement(&rwy, &se); err != nil {
				return err
			}
			if err := p.addRunway(rwy); err != nil {
				return err
			}

		case "TouchDownLiftOff":
			var tdlo aixmTouchDownLiftOff
			if err := decoder.DecodeElement(&tdlo, &se); err != nil {
				return err
			}
			if err := p.addTouchDownLiftOff(tdlo); err != nil {
				return err
			}

		case "RadioCommunicationChannel":
			var rc aixmRadioChannel
			if err := decoder.DecodeElement(&rc, &se); err != nil {
				return err
			}
			freq, err := parseOptionalFloat(rc.Slice.Frequency)
			if err != nil {
				return fmt.Errorf("%s: frequency: %w", rc.Id, err)
			}
			p.data.RadioChannels = append(p.data.RadioChannels, &RadioChannel{
				Id:        util.ASCIIField(rc.Id),
				Frequency: freq,
			})
			p.data.Stats.RadioChannels++

		case "AirportSuppliesService":
			var ss aixmSuppliesService
			if err := decoder.DecodeElement(&ss, &se); err != nil {
				return err
			}
			p.data.SuppliesServices = append(p.data.SuppliesServices, &SuppliesService{
				Id:   util.ASCIIField(ss.Id),
				Fuel: util.ASCIIField(strings.Join(ss.Slice.Fuel, ",")),
			})
			p.data.Stats.SuppliesServices++

		default:
			if ignoredFeatures[se.Name.Local] {
				if err := decoder.Skip(); err != nil {
					return err
				}
				p.data.Stats.Ignored++
			}
		}
	}
}

func missing(id, kind, field string) error {
	return fmt.Errorf("%s %q: %s: %w", kind, id, field, ErrMissingField)
}

func parseOptionalFloat(s string) (float32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, ErrBadField)
	}
	return float32(v), nil
}

func parseOptionalInt(s string) (int, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	v, err := util.AtoiRounded(s)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, ErrBadField)
	}
	return v, nil
}

func (p *aixmParser) addAirport(ah aixmAirportHeliport) error {
	s := ah.Slice
	ap := &Airport{
		Id:             util.ASCIIField(ah.Id),
		IcaoIdentifier: util.ASCIIField(s.ICAO),
		Designator:     util.ASCIIField(s.Designator),
		Name:           util.ASCIIField(s.Name),
		Type:           util.ASCIIField(s.Type),
		State:          util.ASCIIField(s.Extension.AdministrativeArea),
		Ownership:      util.ASCIIField(s.Extension.Ownership),
	}
	if len(s.ServedCity) > 0 {
		ap.City = util.ASCIIField(s.ServedCity[0])
	}
	if tower := strings.TrimSpace(s.Extension.Tower); tower != "" {
		ap.ControlledAirport = tower != "NO"
	}

	if ap.Id == "" {
		return missing(ap.Designator, "airport", "gml:id")
	}
	if ap.Designator == "" {
		return missing(ap.Id, "airport", "designator")
	}
	if strings.TrimSpace(s.Position) == "" {
		return missing(ap.Id, "airport", "ARP position")
	}

	var err error
	if ap.Location, err = math.ParseLonLat(s.Position); err != nil {
		return fmt.Errorf("airport %q: %v: %w", ap.Id, err, ErrBadField)
	}
	if ap.FieldElevation, err = parseOptionalFloat(s.FieldElevation); err != nil {
		return fmt.Errorf("airport %q: field elevation: %w", ap.Id, err)
	}
	if ap.MagneticVariation, err = parseOptionalFloat(s.MagneticVariation); err != nil {
		return fmt.Errorf("airport %q: magnetic variation: %w", ap.Id, err)
	}
	if ap.TransitionAltitude, err = parseOptionalInt(s.TransitionAltitude); err != nil {
		return fmt.Errorf("airport %q: transition altitude: %w", ap.Id, err)
	}

	if ap.IsHeliport() {
		p.data.Stats.Heliports++
	} else {
		p.data.Stats.Airports++
	}
	p.data.Airports = append(p.data.Airports, ap)
	return nil
}

// airportIdFromHref extracts the gml:id from an xlink:href of the form
// "...[@gml:id='AH_0000001']" (with the closing bracket possibly
// URL-encoded).
func airportIdFromHref(href string) (string, bool) {
	const marker = "id='"
	start := strings.Index(href, marker)
	if start == -1 {
		return "", false
	}
	start += len(marker)

	for _, suffix := range []string{"'%5D", "']"} {
		if end := strings.Index(href[start:], suffix); end != -1 {
			return href[start : start+end], end > 0
		}
	}
	return "", false
}

func (p *aixmParser) addRunway(ar aixmRunway) error {
	s := ar.Slice
	id := util.ASCIIField(ar.Id)
	if id == "" {
		return missing(s.Designator, "runway", "gml:id")
	}
	desig := util.ASCIIField(s.Designator)
	if desig == "" {
		return missing(id, "runway", "designator")
	}
	airportId, ok := airportIdFromHref(s.Airport.Href)
	if !ok {
		return missing(id, "runway", "associatedAirportHeliport")
	}

	if end, ok := runwayEndFromId(id); ok {
		p.ends = append(p.ends, runwayEndRecord{
			id:         id,
			designator: desig,
			airportId:  airportId,
			end:        end,
		})
		p.data.Stats.RunwayEnds++
		return nil
	}

	rwy := &Runway{
		Id:          id,
		Designator:  desig,
		AirportId:   airportId,
		Composition: util.ASCIIField(s.Composition),
	}
	var err error
	if rwy.Length, err = parseOptionalInt(s.LengthStrip); err != nil {
		return fmt.Errorf("runway %q: length: %w", id, err)
	}
	if rwy.Width, err = parseOptionalInt(s.WidthStrip); err != nil {
		return fmt.Errorf("runway %q: width: %w", id, err)
	}

	p.runways = append(p.runways, rwy)
	p.data.Stats.Runways++
	return nil
}

func (p *aixmParser) addTouchDownLiftOff(tdlo aixmTouchDownLiftOff) error {
	s := tdlo.Slice
	if len(s.Annotations) == 0 {
		return nil
	}

	desig := util.ASCIIField(s.Designator)
	if desig == "" {
		return missing(tdlo.Id, "touchdown/liftoff area", "designator")
	}
	airportId, ok := airportIdFromHref(s.Airport.Href)
	if !ok {
		return missing(tdlo.Id, "touchdown/liftoff area", "associatedAirportHeliport")
	}

	for _, note := range s.Annotations {
		p.annotations = append(p.annotations, annotationRecord{
			tdloId:     tdlo.Id,
			designator: desig,
			airportId:  airportId,
			note:       note,
		})
	}
	return nil
}

// Airport feature ids embed a 7 digit site number that the ids of the
// services at that airport share.
var siteNumberRegexp = regexp.MustCompile(`\d{7}`)

// resolve attaches everything that refers to an airport once all
// airports are known.
func (p *aixmParser) resolve() error {
	airports := make(map[string]*Airport)
	bySite := make(map[string]*Airport)
	for _, ap := range p.data.Airports {
		if _, ok := airports[ap.Id]; ok {
			return fmt.Errorf("airport %q: %w", ap.Id, ErrDuplicateId)
		}
		airports[ap.Id] = ap
		if site := siteNumberRegexp.FindString(ap.Id); site != "" {
			bySite[site] = ap
		}
	}

	join := NewRunwayJoin()
	for _, rwy := range p.runways {
		ap, ok := airports[rwy.AirportId]
		if !ok {
			return fmt.Errorf("runway %q: airport %q: %w", rwy.Id, rwy.AirportId, ErrUnresolvedReference)
		}
		ap.Runways = append(ap.Runways, rwy)
		if !join.AddRunway(rwy) {
			p.lg.Warnf("%s: runway %s: end designator already used at this airport", ap.Designator, rwy.Designator)
		}
	}

	for _, end := range p.ends {
		ap, ok := airports[end.airportId]
		if !ok {
			return fmt.Errorf("runway end %q: airport %q: %w", end.id, end.airportId, ErrUnresolvedReference)
		}

		slot, explicit, ok := join.Resolve(end.airportId, end.designator)
		if !ok {
			return fmt.Errorf("%s: runway end %q (%s): %w", ap.Designator, end.id, end.designator, ErrNoRunwayMatch)
		}

		if explicit {
			p.data.Stats.ExplicitJoins++
			if slot.End != end.end {
				p.lg.Warnf("%s: runway end %s is the %s end of %s but is labeled %s", ap.Designator,
					end.designator, slot.End, slot.Runway.Designator, end.end)
			}
		} else {
			p.data.Stats.HeuristicJoins++
			p.data.HeuristicJoins = append(p.data.HeuristicJoins, end.id)
			p.lg.Warnf("%s: runway end %s (%s) matched to runway %s by designator", ap.Designator,
				end.designator, end.id, slot.Runway.Designator)
		}

		// The record's id says which end it is.
		slot.End = end.end
		if slot.Direction() != nil {
			p.lg.Warnf("%s: runway %s: %s end given more than once", ap.Designator, slot.Runway.Designator, slot.End)
		}
		slot.set(NewRunwayDirection(end.id, end.designator))
	}

	for _, an := range p.annotations {
		if _, ok := airports[an.airportId]; !ok {
			return fmt.Errorf("touchdown/liftoff area %q: airport %q: %w", an.tdloId, an.airportId, ErrUnresolvedReference)
		}
		if err := p.applyAnnotation(join, an); err != nil {
			return err
		}
	}

	for _, rc := range p.data.RadioChannels {
		if ap, ok := bySite[siteNumberRegexp.FindString(rc.Id)]; ok {
			rc.AirportId = ap.Id
		}
	}
	for _, ss := range p.data.SuppliesServices {
		if ap, ok := bySite[siteNumberRegexp.FindString(ss.Id)]; ok {
			ss.AirportId = ap.Id
		}
	}

	for _, ap := range p.data.Airports {
		if st, ok := p.stations.Lookup(ap.IcaoIdentifier); ok {
			ap.HasMetarStation = true
			ap.HasTaf = st.HasTaf()
		}
	}

	p.lg.Infof("AIXM: %d airports, %d heliports, %d runways, %d runway ends (%d heuristic joins), %d annotations",
		p.data.Stats.Airports, p.data.Stats.Heliports, p.data.Stats.Runways, p.data.Stats.RunwayEnds,
		p.data.Stats.HeuristicJoins, p.data.Stats.Annotations)

	return nil
}

func (p *aixmParser) applyAnnotation(join *RunwayJoin, an annotationRecord) error {
	var apply func(rd *RunwayDirection) error
	switch {
	case strings.Contains(an.note.Id, "RIGHTHANDTRAFFICPATTERN"):
		apply = func(rd *RunwayDirection) error {
			if firstNote(an.note) == "NO" {
				rd.TrafficDirection = LeftTraffic
			} else {
				rd.TrafficDirection = RightTraffic
			}
			return nil
		}
	case strings.Contains(an.note.Id, "TRUE_BEARING"):
		apply = func(rd *RunwayDirection) error {
			b, err := util.AtoiRounded(firstNote(an.note))
			if err != nil {
				return fmt.Errorf("%s: true bearing %q: %w", an.note.Id, firstNote(an.note), ErrBadField)
			}
			rd.TrueBearing = b
			return nil
		}
	default:
		return nil
	}

	rd, ok := join.Direction(an.airportId, an.designator)
	if !ok {
		p.data.Stats.UnmatchedAnnotations++
		p.lg.Warnf("%s: no runway end %s at airport %s for annotation", an.note.Id, an.designator, an.airportId)
		return nil
	}
	if err := apply(rd); err != nil {
		return err
	}
	p.data.Stats.Annotations++
	return nil
}

func firstNote(n aixmNote) string {
	if len(n.Notes) == 0 {
		return ""
	}
	return strings.TrimSpace(n.Notes[0])
}
