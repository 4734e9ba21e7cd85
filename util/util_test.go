// util/util_test.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestStopShouting(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"RENTON MUNI", "Renton Muni"},
		{"SEATTLE-TACOMA INTL", "Seattle-tacoma Intl"},
		{"", ""},
		{"O'HARE", "O'hare"},
	}
	for _, tt := range tests {
		if got := StopShouting(tt.in); got != tt.want {
			t.Errorf("StopShouting(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAtoiRounded(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"3000", 3000, false},
		{" 3000.0 ", 3000, false},
		{"157.6", 158, false},
		{"-12.5", -13, false},
		{"", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := AtoiRounded(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("AtoiRounded(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		} else if got != tt.want {
			t.Errorf("AtoiRounded(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestIsAllUpperLetters(t *testing.T) {
	for s, want := range map[string]bool{
		"KSEA": true,
		"K0S9": false,
		"ksea": false,
		"":     false,
		"PAÑ":  false,
	} {
		if got := IsAllUpperLetters(s); got != want {
			t.Errorf("IsAllUpperLetters(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestASCIIField(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"SAN JUAN", "SAN JUAN"},
		{"  PEÑUELAS ", "PENUELAS"},
		{"A|B", "A/B"},
		{"TAB\tHERE", "TAB HERE"},
		{"MÜNCHEN", "MUNCHEN"},
	}
	for _, tt := range tests {
		got := ASCIIField(tt.in)
		if got != tt.want {
			t.Errorf("ASCIIField(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if strings.ContainsRune(got, '|') {
			t.Errorf("ASCIIField(%q) still contains a delimiter", tt.in)
		}
	}
}

func TestErrorLogger(t *testing.T) {
	var e ErrorLogger
	if e.HaveErrors() {
		t.Fatalf("fresh ErrorLogger has errors")
	}

	e.Push("KRNT")
	e.Push("runway 16/34")
	e.ErrorString("missing %s end", "base")
	e.Pop()
	if d := e.CurrentDepth(); d != 1 {
		t.Errorf("CurrentDepth() = %d, want 1", d)
	}
	e.ErrorString("no city")
	e.Pop()

	want := []string{"KRNT / runway 16/34: missing base end", "KRNT: no city"}
	if !slices.Equal(e.Errors(), want) {
		t.Errorf("Errors() = %q, want %q", e.Errors(), want)
	}
	if e.Count() != 2 || !e.HaveErrors() {
		t.Errorf("Count() = %d, HaveErrors() = %v", e.Count(), e.HaveErrors())
	}
	if s := e.String(); s != strings.Join(want, "\n") {
		t.Errorf("String() = %q", s)
	}
}

func TestOpenFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("KSEA T\nKRNT  \n")

	plain := filepath.Join(dir, "stations.txt")
	if err := os.WriteFile(plain, content, 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	zw.Write(content)
	zw.Close()
	compressed := filepath.Join(dir, "stations.txt.zst")
	if err := os.WriteFile(compressed, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, fn := range []string{plain, compressed} {
		t.Run(filepath.Base(fn), func(t *testing.T) {
			r, err := OpenFile(fn)
			if err != nil {
				t.Fatal(err)
			}
			defer r.Close()

			b, err := io.ReadAll(r)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(b, content) {
				t.Errorf("read %q, want %q", b, content)
			}
		})
	}

	if _, err := OpenFile(filepath.Join(dir, "missing")); err == nil {
		t.Errorf("expected error opening missing file")
	}
}

func TestHashFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "x")
	if err := os.WriteFile(fn, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	h, err := HashFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if h != want {
		t.Errorf("HashFile() = %s, want %s", h, want)
	}
}

func TestGenerics(t *testing.T) {
	keys := SortedMapKeys(map[string]int{"KSEA": 1, "KBFI": 2, "KRNT": 3})
	if !slices.Equal(keys, []string{"KBFI", "KRNT", "KSEA"}) {
		t.Errorf("SortedMapKeys() = %v", keys)
	}

	lens := MapSlice([]string{"a", "bb", "ccc"}, func(s string) int { return len(s) })
	if !slices.Equal(lens, []int{1, 2, 3}) {
		t.Errorf("MapSlice() = %v", lens)
	}

	odd := FilterSlice([]int{1, 2, 3, 4, 5}, func(i int) bool { return i%2 == 1 })
	if !slices.Equal(odd, []int{1, 3, 5}) {
		t.Errorf("FilterSlice() = %v", odd)
	}
}
