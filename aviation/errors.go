// aviation/errors.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import "errors"

var (
	ErrAlreadyInitialized  = errors.New("Airport database already initialized")
	ErrBadField            = errors.New("Malformed field value")
	ErrDelimiterInField    = errors.New("Field contains the field delimiter")
	ErrDuplicateDesignator = errors.New("Duplicate airport designator")
	ErrDuplicateId         = errors.New("Duplicate record id")
	ErrFieldTooLong        = errors.New("Field exceeds the decoder buffer")
	ErrMissingField        = errors.New("Mandatory field missing")
	ErrNoAirport           = errors.New("No airport with that designator")
	ErrNoRunwayMatch       = errors.New("No runway matches runway end")
	ErrTruncatedRecord     = errors.New("Stream ended inside a record")
	ErrUnknownRecordKind   = errors.New("Unknown record kind")
	ErrUnresolvedReference = errors.New("Unresolved cross-reference")
)
