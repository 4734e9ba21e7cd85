// aviation/records.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"io"
)

// RecordKind is the one-character tag that starts every top-level record
// in a store.
type RecordKind byte

const (
	AirportRecord         RecordKind = 'A'
	RunwayRecord          RecordKind = 'W'
	RunwayDirectionRecord RecordKind = 'D'
	RadioChannelRecord    RecordKind = 'C'
	SuppliesServiceRecord RecordKind = 'S'
	NullRecordKind        RecordKind = 'N'
)

func (k RecordKind) String() string {
	switch k {
	case AirportRecord:
		return "airport"
	case RunwayRecord:
		return "runway"
	case RunwayDirectionRecord:
		return "runway direction"
	case RadioChannelRecord:
		return "radio channel"
	case SuppliesServiceRecord:
		return "supplies service"
	case NullRecordKind:
		return "null"
	default:
		return fmt.Sprintf("unknown (%q)", byte(k))
	}
}

// Record is implemented by every kind of entity that can be persisted.
// DecodeFields reports failures through the decoder's sticky error.
type Record interface {
	Kind() RecordKind
	EncodeFields(e *FieldEncoder)
	DecodeFields(d *FieldDecoder)
}

// NewRecord returns an empty record of the given kind.
func NewRecord(k RecordKind) (Record, error) {
	switch k {
	case AirportRecord:
		return &Airport{}, nil
	case RunwayRecord:
		return &Runway{}, nil
	case RunwayDirectionRecord:
		return &RunwayDirection{}, nil
	case RadioChannelRecord:
		return &RadioChannel{}, nil
	case SuppliesServiceRecord:
		return &SuppliesService{}, nil
	case NullRecordKind:
		return &NullRecord{}, nil
	default:
		return nil, fmt.Errorf("%s: %w", k, ErrUnknownRecordKind)
	}
}

// WriteRecord writes r as a top-level record: its kind tag followed by
// its fields.
func WriteRecord(e *FieldEncoder, r Record) error {
	e.kind(r.Kind())
	r.EncodeFields(e)
	return e.Err()
}

// ReadRecord reads the next top-level record. It returns io.EOF only when
// the stream ends exactly at a record boundary.
func ReadRecord(d *FieldDecoder) (Record, error) {
	k, err := d.kind()
	if err == io.EOF {
		return nil, io.EOF
	} else if err != nil {
		return nil, err
	}

	r, err := NewRecord(k)
	if err != nil {
		return nil, fmt.Errorf("offset %d: %w", d.Offset()-1, err)
	}
	r.DecodeFields(d)
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%s record: %w", k, err)
	}
	return r, nil
}

///////////////////////////////////////////////////////////////////////////
// Auxiliary records

// RadioChannel is a communications frequency published in the feed.
type RadioChannel struct {
	Id        string
	AirportId string  // empty if it couldn't be tied to an airport
	Frequency float32 // MHz
}

func (rc *RadioChannel) Kind() RecordKind { return RadioChannelRecord }

func (rc *RadioChannel) EncodeFields(e *FieldEncoder) {
	e.String(rc.Id)
	e.String(rc.AirportId)
	e.Float(rc.Frequency)
}

func (rc *RadioChannel) DecodeFields(d *FieldDecoder) {
	rc.Id = d.String()
	rc.AirportId = d.String()
	rc.Frequency = d.Float()
}

// SuppliesService records the fuel available at an airport.
type SuppliesService struct {
	Id        string
	AirportId string
	Fuel      string // comma-separated fuel categories
}

func (ss *SuppliesService) Kind() RecordKind { return SuppliesServiceRecord }

func (ss *SuppliesService) EncodeFields(e *FieldEncoder) {
	e.String(ss.Id)
	e.String(ss.AirportId)
	e.String(ss.Fuel)
}

func (ss *SuppliesService) DecodeFields(d *FieldDecoder) {
	ss.Id = d.String()
	ss.AirportId = d.String()
	ss.Fuel = d.String()
}

// NullRecord stands in for feed members that are recognized but carry
// nothing worth keeping.
type NullRecord struct {
	Id string
}

func (n *NullRecord) Kind() RecordKind { return NullRecordKind }

func (n *NullRecord) EncodeFields(e *FieldEncoder) {
	e.String(n.Id)
}

func (n *NullRecord) DecodeFields(d *FieldDecoder) {
	n.Id = d.String()
}
