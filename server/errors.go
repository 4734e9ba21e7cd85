// server/errors.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"errors"
	"net/http"

	"github.com/airportinfo/aptdb/aviation"
)

var (
	ErrDatabaseNotReady   = errors.New("Airport database is not loaded")
	ErrInvalidLatitude    = errors.New("Invalid or missing latitude")
	ErrInvalidLongitude   = errors.New("Invalid or missing longitude")
	ErrInvalidRadius      = errors.New("Invalid radius")
	ErrInvalidRunwayLimit = errors.New("Invalid minimum runway length")
)

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrDatabaseNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, aviation.ErrNoAirport):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
