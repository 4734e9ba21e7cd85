// log/stack.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package log

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

const maxStackFrames = 16

type StackFrame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

func (f StackFrame) String() string {
	return f.File + ":" + strconv.Itoa(f.Line) + ":" + f.Function
}

// callstack returns the frames above the skip'th caller, with skip
// counted as for runtime.Callers, stopping at main.main.
func callstack(skip int) []StackFrame {
	var pcs [maxStackFrames]uintptr
	n := runtime.Callers(skip, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	fr := make([]StackFrame, 0, n)
	for {
		frame, more := frames.Next()
		if frame.Function == "" {
			break
		}
		fn := strings.TrimPrefix(frame.Function, "github.com/airportinfo/aptdb/")
		fr = append(fr, StackFrame{
			File:     filepath.Base(frame.File),
			Line:     frame.Line,
			Function: strings.TrimPrefix(fn, "main."),
		})
		if !more || frame.Function == "main.main" {
			break
		}
	}
	return fr
}
