// aviation/stations.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/airportinfo/aptdb/util"
)

// Station is one line of the compact METAR station table: a four letter
// ICAO identifier, a space, and a one character capability flag.
type Station struct {
	ICAO string
	Flag byte // 'T' = TAF, 'U' = TAF plus AIRMET/SIGMET, 'A' = ARTCC, ' ' = METAR only
}

func (s Station) HasTaf() bool {
	return s.Flag == 'T' || s.Flag == 'U'
}

// StationTable maps ICAO identifiers to their weather reporting
// capabilities. Any airport whose ICAO identifier is present has a METAR
// station.
type StationTable map[string]Station

// Field offsets in the compact station table.
const (
	stationIdLength   = 4
	stationFlagOffset = 5
)

// ParseStationTable reads the compact station table. When a station is
// listed more than once, a later line replaces the earlier one unless its
// flag is blank.
func ParseStationTable(r io.Reader) (StationTable, error) {
	st := make(StationTable)
	sc := bufio.NewScanner(r)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(line) < stationIdLength {
			return nil, fmt.Errorf("line %d: %q: station line too short", lineno, line)
		}

		s := Station{ICAO: line[:stationIdLength], Flag: ' '}
		if len(line) > stationFlagOffset {
			s.Flag = line[stationFlagOffset]
		}

		if _, ok := st[s.ICAO]; ok && s.Flag == ' ' {
			continue
		}
		st[s.ICAO] = s
	}
	return st, sc.Err()
}

// Lookup returns the station for the given ICAO identifier; the empty
// identifier never matches.
func (st StationTable) Lookup(icao string) (Station, bool) {
	if icao == "" {
		return Station{}, false
	}
	s, ok := st[icao]
	return s, ok
}

// Layout of the full station list published by aviationweather.gov.
const (
	fullStationLineLength = 83
	fullStationICAOOffset = 20
	fullStationFlagOffset = 68
)

// ConvertStationFile converts the aviationweather.gov stations.txt list
// into the compact table read by ParseStationTable, keeping only stations
// with alphabetic ICAO identifiers. It returns the number of stations
// written.
func ConvertStationFile(r io.Reader, w io.Writer) (int, error) {
	sc := bufio.NewScanner(r)
	bw := bufio.NewWriter(w)
	n := 0
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if len(line) != fullStationLineLength {
			continue
		}

		station := line[fullStationICAOOffset : fullStationICAOOffset+stationIdLength]
		if !util.IsAllUpperLetters(station) {
			continue
		}
		if _, err := fmt.Fprintf(bw, "%s %c\n", station, line[fullStationFlagOffset]); err != nil {
			return n, err
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return n, err
	}
	return n, bw.Flush()
}
