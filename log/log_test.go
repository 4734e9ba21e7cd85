// log/log_test.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package log

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type record struct {
	Level     string
	Msg       string
	Callstack []StackFrame `json:"callstack"`
	Airports  int          `json:"airports"`
}

func readRecords(t *testing.T, fn string) []record {
	t.Helper()

	f, err := os.Open(fn)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var recs []record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("%s: %v", sc.Text(), err)
		}
		recs = append(recs, r)
	}
	return recs
}

func TestLoggerWritesRecords(t *testing.T) {
	dir := t.TempDir()
	lg := New(false, "info", dir)
	if lg.LogFile != filepath.Join(dir, "aptdb.slog") {
		t.Errorf("LogFile = %s, want aptdb.slog in %s", lg.LogFile, dir)
	}

	lg.Debug("dropped")
	lg.Info("loaded", "airports", 12)
	lg.Warnf("%d unmatched", 3)

	recs := readRecords(t, lg.LogFile)
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2: %+v", len(recs), recs)
	}
	if recs[0].Msg != "loaded" || recs[0].Level != "INFO" || recs[0].Airports != 12 {
		t.Errorf("record[0] = %+v", recs[0])
	}
	if recs[1].Msg != "3 unmatched" || recs[1].Level != "WARN" {
		t.Errorf("record[1] = %+v", recs[1])
	}
	for i, r := range recs {
		if len(r.Callstack) == 0 || !strings.HasSuffix(r.Callstack[0].Function, "TestLoggerWritesRecords") {
			t.Errorf("record[%d] callstack = %v, want it to start at the caller", i, r.Callstack)
		}
	}
}

func TestServiceLogFile(t *testing.T) {
	dir := t.TempDir()
	lg := New(true, "debug", dir)
	lg.Debugf("request %s", "/health")

	if lg.LogFile != filepath.Join(dir, "aptdb-server.slog") {
		t.Errorf("LogFile = %s, want aptdb-server.slog in %s", lg.LogFile, dir)
	}
	if recs := readRecords(t, lg.LogFile); len(recs) != 1 || recs[0].Msg != "request /health" {
		t.Errorf("records = %+v, want the one debug record", recs)
	}
}

func TestNilLogger(t *testing.T) {
	var lg *Logger
	lg.Debug("x")
	lg.Infof("%d", 1)
	lg.Warn("warning goes to the default logger")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"chatty", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCatchAndReportCrash(t *testing.T) {
	dir := t.TempDir()
	lg := New(false, "info", dir)

	func() {
		defer func() {
			if r := recover(); r != "store corrupt" {
				t.Errorf("recovered %v, want the original panic", r)
			}
		}()
		defer lg.CatchAndReportCrash()
		panic("store corrupt")
	}()

	reports, err := filepath.Glob(filepath.Join(dir, "crash-*.txt"))
	if err != nil || len(reports) != 1 {
		t.Fatalf("crash reports = %v (%v), want 1", reports, err)
	}
	b, err := os.ReadFile(reports[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(b), "Crashed: store corrupt\n") || !strings.Contains(string(b), "goroutine") {
		t.Errorf("crash report = %q", b)
	}

	recs := readRecords(t, lg.LogFile)
	if len(recs) != 1 || recs[0].Level != "ERROR" {
		t.Errorf("records = %+v, want one error", recs)
	}
}
