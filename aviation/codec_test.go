// aviation/codec_test.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/airportinfo/aptdb/math"

	"github.com/go-test/deep"
)

func randomString(r *rand.Rand, n int) string {
	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ abcdefghijklmnopqrstuvwxyz0123456789-/.,'"
	var sb strings.Builder
	for range r.IntN(n + 1) {
		sb.WriteByte(chars[r.IntN(len(chars))])
	}
	return sb.String()
}

func randomDirection(r *rand.Rand, id, desig string) *RunwayDirection {
	rd := NewRunwayDirection(id, desig)
	if r.IntN(2) == 0 {
		rd.TrafficDirection = RightTraffic
	}
	if r.IntN(3) != 0 {
		rd.TrueBearing = r.IntN(360)
	}
	return rd
}

func randomAirport(r *rand.Rand, i int) *Airport {
	ap := &Airport{
		Id:                 fmt.Sprintf("AH_%07d", i),
		IcaoIdentifier:     randomString(r, 4),
		Designator:         fmt.Sprintf("X%02d", i),
		Name:               randomString(r, 40),
		Location:           math.Point2LL{float32(r.IntN(360000)-180000) / 1000, float32(r.IntN(180000)-90000) / 1000},
		State:              randomString(r, 2),
		ControlledAirport:  r.IntN(2) == 0,
		MagneticVariation:  float32(r.IntN(400)-200) / 10,
		FieldElevation:     float32(r.IntN(120000)-2000) / 10,
		Ownership:          randomString(r, 3),
		City:               randomString(r, 20),
		TransitionAltitude: r.IntN(18000),
		Type:               []string{"AD", "AH", "HP", "LS", "H2"}[r.IntN(5)],
		HasTaf:             r.IntN(2) == 0,
		HasMetarStation:    r.IntN(2) == 0,
	}

	for j := range r.IntN(5) {
		rwy := &Runway{
			Id:          fmt.Sprintf("RWY_%07d_%d", i, j),
			Designator:  fmt.Sprintf("%02d/%02d", j+1, j+19),
			AirportId:   ap.Id,
			Length:      r.IntN(12000),
			Width:       r.IntN(200),
			Composition: randomString(r, 8),
		}
		switch r.IntN(3) {
		case 1:
			rwy.Base = randomDirection(r, "RWY_BASE_END_"+rwy.Id, fmt.Sprintf("%02d", j+1))
		case 2:
			rwy.Base = randomDirection(r, "RWY_BASE_END_"+rwy.Id, fmt.Sprintf("%02d", j+1))
			rwy.Reciprocal = randomDirection(r, "RWY_RECIPROCAL_END_"+rwy.Id, fmt.Sprintf("%02d", j+19))
		}
		ap.Runways = append(ap.Runways, rwy)
	}
	return ap
}

func TestRecordRoundTrip(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))

	var airports []*Airport
	for i := range 200 {
		airports = append(airports, randomAirport(r, i))
	}
	aux := []Record{
		&RadioChannel{Id: "RCC_0000001_1", AirportId: "AH_0000001", Frequency: 118.3},
		&SuppliesService{Id: "ASS_0000002", AirportId: "AH_0000002", Fuel: "100LL,A"},
		&NullRecord{Id: "UNIT_7"},
	}

	var buf bytes.Buffer
	stats, err := WriteStore(&buf, airports, aux, StoreOptions{})
	if err != nil {
		t.Fatalf("WriteStore() error = %v", err)
	}
	if stats.Airports+stats.Heliports != len(airports) {
		t.Errorf("WriteStore() wrote %d airports, want %d", stats.Airports+stats.Heliports, len(airports))
	}
	if stats.Other != len(aux) {
		t.Errorf("WriteStore() wrote %d other records, want %d", stats.Other, len(aux))
	}
	if stats.Bytes != int64(buf.Len()) {
		t.Errorf("WriteStore() Bytes = %d, want %d", stats.Bytes, buf.Len())
	}

	var records []Record
	for rec, err := range ReadStore(&buf, CodecOptions{}) {
		if err != nil {
			t.Fatalf("ReadStore() error = %v", err)
		}
		records = append(records, rec)
	}

	var want []Record
	for _, ap := range airports {
		want = append(want, ap)
	}
	want = append(want, aux...)

	if diff := deep.Equal(records, want); diff != nil {
		t.Errorf("round trip mismatch: %v", diff)
	}
}

func TestZeroRunwayAirport(t *testing.T) {
	ap := &Airport{
		Id:         "AH_0000123",
		Designator: "ZZZ",
		Name:       "No Runways",
		Location:   math.Point2LL{-122.25, 47.5},
		Type:       "AD",
	}

	var buf bytes.Buffer
	if _, err := WriteStore(&buf, []*Airport{ap}, nil, StoreOptions{}); err != nil {
		t.Fatalf("WriteStore() error = %v", err)
	}

	want := "AAH_0000123||ZZZ|No Runways|47.5|-122.25||0|0|0|||0|AD|0|0|0|"
	if buf.String() != want {
		t.Errorf("encoded = %q, want %q", buf.String(), want)
	}

	airports, _, err := ReadAirports(&buf, CodecOptions{})
	if err != nil {
		t.Fatalf("ReadAirports() error = %v", err)
	}
	if diff := deep.Equal(airports, []*Airport{ap}); diff != nil {
		t.Errorf("round trip mismatch: %v", diff)
	}
	if airports[0].LongestRunwayLength() != 0 {
		t.Errorf("LongestRunwayLength() = %d, want 0", airports[0].LongestRunwayLength())
	}
}

func TestRunwayEndTags(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		wantBase       string
		wantReciprocal string
	}{
		{name: "Both", input: "R1|16/34|A1|5000|100|ASPH|B|E16|16|L|160|R|E34|34|R|340|",
			wantBase: "16", wantReciprocal: "34"},
		{name: "Swapped", input: "R1|16/34|A1|5000|100|ASPH|R|E34|34|R|340|B|E16|16|L|160|",
			wantBase: "16", wantReciprocal: "34"},
		{name: "ReciprocalOnly", input: "R1|16/34|A1|5000|100|ASPH|\x00|R|E34|34|R|340|",
			wantReciprocal: "34"},
		{name: "Neither", input: "R1|16/34|A1|5000|100|ASPH|\x00|\x00|"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewFieldDecoder(strings.NewReader(tt.input), CodecOptions{})
			var rwy Runway
			rwy.DecodeFields(d)
			if err := d.Err(); err != nil {
				t.Fatalf("DecodeFields() error = %v", err)
			}

			desig := func(rd *RunwayDirection) string {
				if rd == nil {
					return ""
				}
				return rd.Designator
			}
			if got := desig(rwy.Base); got != tt.wantBase {
				t.Errorf("Base = %q, want %q", got, tt.wantBase)
			}
			if got := desig(rwy.Reciprocal); got != tt.wantReciprocal {
				t.Errorf("Reciprocal = %q, want %q", got, tt.wantReciprocal)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  CodecOptions
		want  error
	}{
		{name: "TruncatedField", input: "AAH_1|K", want: ErrTruncatedRecord},
		{name: "TruncatedRecord", input: "AAH_1|KRNT|RNT|Renton|", want: ErrTruncatedRecord},
		{name: "FieldTooLong", input: "A" + strings.Repeat("x", 64) + "|", opts: CodecOptions{MaxFieldLength: 32},
			want: ErrFieldTooLong},
		{name: "BadInteger", input: "AAH_1|||n|1|2||0|0|0|||zz|", want: ErrBadField},
		{name: "BadBool", input: "AAH_1|||n|1|2||2|", want: ErrBadField},
		{name: "UnknownKind", input: "Qxyz|", want: ErrUnknownRecordKind},
		{name: "BadRunwayEndTag", input: "WR1|16/34|A1|5000|100|ASPH|X|", want: ErrBadField},
		{name: "LongCharField", input: "WR1|16/34|A1|5000|100|ASPH|BB|", want: ErrBadField},
		{name: "BadTrafficDirection", input: "WR1|16/34|A1|5000|100|ASPH|B|E1|16|X|160|", want: ErrBadField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			for _, e := range ReadStore(strings.NewReader(tt.input), tt.opts) {
				if e != nil {
					err = e
				}
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("ReadStore() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFieldTooLongExcerpt(t *testing.T) {
	long := strings.Repeat("0123456789", 30)
	d := NewFieldDecoder(strings.NewReader(long+"|"), CodecOptions{MaxFieldLength: 128})
	_ = d.String()

	err := d.Err()
	if !errors.Is(err, ErrFieldTooLong) {
		t.Fatalf("String() error = %v, want %v", err, ErrFieldTooLong)
	}
	if !strings.Contains(err.Error(), long[:excerptLength]) {
		t.Errorf("error %q does not include the first %d characters", err, excerptLength)
	}
	if strings.Contains(err.Error(), long[:excerptLength+1]) {
		t.Errorf("error %q includes more than %d characters", err, excerptLength)
	}
}

func TestFieldLengthLimit(t *testing.T) {
	// The buffer holds the field and its delimiter.
	d := NewFieldDecoder(strings.NewReader(strings.Repeat("a", 15)+"|"), CodecOptions{MaxFieldLength: 16})
	if s := d.String(); len(s) != 15 || d.Err() != nil {
		t.Errorf("String() = %q, %v; want 15 characters, nil", s, d.Err())
	}

	d = NewFieldDecoder(strings.NewReader(strings.Repeat("a", 16)+"|"), CodecOptions{MaxFieldLength: 16})
	if _ = d.String(); !errors.Is(d.Err(), ErrFieldTooLong) {
		t.Errorf("String() error = %v, want %v", d.Err(), ErrFieldTooLong)
	}
}

func TestEncodeDelimiter(t *testing.T) {
	ap := &Airport{Id: "AH_1", Designator: "ABC", Name: "Left|Right"}
	_, err := WriteStore(io.Discard, []*Airport{ap}, nil, StoreOptions{})
	if !errors.Is(err, ErrDelimiterInField) {
		t.Errorf("WriteStore() error = %v, want %v", err, ErrDelimiterInField)
	}
}

func TestEmptyStore(t *testing.T) {
	airports, stats, err := ReadAirports(strings.NewReader(""), CodecOptions{})
	if err != nil {
		t.Errorf("ReadAirports() error = %v", err)
	}
	if len(airports) != 0 || stats != (StoreStats{}) {
		t.Errorf("ReadAirports() = %d airports, %+v; want none", len(airports), stats)
	}
}

func TestSkipHeliports(t *testing.T) {
	airports := []*Airport{
		{Id: "AH_1", Designator: "AAA", Type: "AD"},
		{Id: "AH_2", Designator: "HHH", Type: "HP"},
		{Id: "AH_3", Designator: "BBB", Type: "AD"},
	}

	for _, skip := range []bool{false, true} {
		var buf bytes.Buffer
		stats, err := WriteStore(&buf, airports, nil, StoreOptions{SkipHeliports: skip})
		if err != nil {
			t.Fatalf("WriteStore() error = %v", err)
		}

		wantHeliports := 1
		if skip {
			wantHeliports = 0
		}
		if stats.Airports != 2 || stats.Heliports != wantHeliports {
			t.Errorf("SkipHeliports=%v: stats = %+v, want 2 airports, %d heliports", skip, stats, wantHeliports)
		}

		read, _, err := ReadAirports(&buf, CodecOptions{})
		if err != nil {
			t.Fatalf("ReadAirports() error = %v", err)
		}
		if len(read) != 2+wantHeliports {
			t.Errorf("SkipHeliports=%v: read %d airports, want %d", skip, len(read), 2+wantHeliports)
		}
	}
}

func TestTrafficDirectionJSON(t *testing.T) {
	rd := NewRunwayDirection("RWY_BASE_END_1", "16")
	rd.TrafficDirection = RightTraffic

	b, err := json.Marshal(rd)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if !strings.Contains(string(b), `"TrafficDirection":"R"`) {
		t.Errorf("json.Marshal() = %s, want TrafficDirection \"R\"", b)
	}

	var back RunwayDirection
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if diff := deep.Equal(*rd, back); diff != nil {
		t.Errorf("JSON round trip differs: %v", diff)
	}

	for _, s := range []string{`"X"`, `82`, `""`} {
		var td TrafficDirection
		if err := json.Unmarshal([]byte(s), &td); err == nil {
			t.Errorf("json.Unmarshal(%s) = %c, want error", s, td)
		}
	}

	rd.TrafficDirection = 'X'
	if _, err := json.Marshal(rd); err == nil {
		t.Errorf("json.Marshal() with traffic direction 'X' succeeded, want error")
	}
}
