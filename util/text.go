// util/text.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/anyascii/go"
)

// StopShouting turns text of the form "RENTON MUNI" to "Renton Muni"
func StopShouting(orig string) string {
	var s strings.Builder
	wsLast := true
	for _, ch := range orig {
		if unicode.IsSpace(ch) {
			wsLast = true
		} else if unicode.IsLetter(ch) {
			if wsLast {
				// leave it alone
				wsLast = false
			} else {
				ch = unicode.ToLower(ch)
			}
		}

		// otherwise leave it alone

		s.WriteRune(ch)
	}
	return s.String()
}

// AtoiRounded parses an integer that may have been written with a
// fractional part ("3000.0"), rounding to the nearest integer.
func AtoiRounded(s string) (int, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return int(f - 0.5), nil
	}
	return int(f + 0.5), nil
}

// IsAllUpperLetters reports whether s is non-empty and consists only of
// the ASCII letters A-Z.
func IsAllUpperLetters(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if ch < 'A' || ch > 'Z' {
			return false
		}
	}
	return true
}

// ASCIIField transliterates s to ASCII and replaces the characters that
// cannot appear inside a '|'-delimited field.
func ASCIIField(s string) string {
	s = anyascii.Transliterate(strings.TrimSpace(s))
	return strings.Map(func(ch rune) rune {
		switch {
		case ch == '|':
			return '/'
		case ch < ' ' || ch == 0x7f:
			return ' '
		default:
			return ch
		}
	}, s)
}
