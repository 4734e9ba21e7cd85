// log/log.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger writes JSON records with the caller's stack attached. A nil
// *Logger is usable: debug and info records are dropped and warnings and
// errors go to the default slog logger.
type Logger struct {
	*slog.Logger
	LogFile string
}

// New returns a Logger that writes to a rotating log file in dir. Long
// running services (the HTTP query server) get larger, compressed logs
// that are kept for two weeks; one-shot commands keep a single backup.
func New(service bool, level string, dir string) *Logger {
	if dir == "" {
		dir = defaultDir(service)
	}

	w := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "aptdb.slog"),
		MaxSize:    32, // MB
		MaxBackups: 1,
	}
	if service {
		w = &lumberjack.Logger{
			Filename: filepath.Join(dir, "aptdb-server.slog"),
			MaxSize:  64, // MB
			MaxAge:   14,
			Compress: true,
		}
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return &Logger{Logger: slog.New(h), LogFile: w.Filename}
}

func defaultDir(service bool) string {
	if service {
		return "aptdb-logs"
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to find user config dir: %v\n", err)
		return "."
	}
	return filepath.Join(dir, "aptdb")
}

// ParseLevel maps the level names accepted on the command line to slog
// levels; unknown names are reported and treated as "info".
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		fmt.Fprintf(os.Stderr, "%s: invalid log level\n", level)
		return slog.LevelInfo
	}
}

// Only records at or above warning level are sent anywhere when l is nil.
func (l *Logger) log(level slog.Level, msg string, args []any) {
	if l == nil && level < slog.LevelWarn {
		return
	}
	if l != nil && !l.Logger.Enabled(context.Background(), level) {
		return
	}

	// Skip the frames of log and its exported wrapper.
	args = append([]any{slog.Any("callstack", callstack(4))}, args...)
	if l == nil || level >= slog.LevelError {
		slog.Log(context.Background(), level, msg, args...)
	}
	if l != nil {
		l.Logger.Log(context.Background(), level, msg, args...)
	}
}

func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args) }
func (l *Logger) Info(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args) }

// Error also reports to the default slog logger, i.e. stderr, so that
// failures are seen even when the log file isn't.
func (l *Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args) }

func (l *Logger) Debugf(msg string, args ...any) { l.log(slog.LevelDebug, fmt.Sprintf(msg, args...), nil) }
func (l *Logger) Infof(msg string, args ...any)  { l.log(slog.LevelInfo, fmt.Sprintf(msg, args...), nil) }
func (l *Logger) Warnf(msg string, args ...any)  { l.log(slog.LevelWarn, fmt.Sprintf(msg, args...), nil) }
func (l *Logger) Errorf(msg string, args ...any) { l.log(slog.LevelError, fmt.Sprintf(msg, args...), nil) }

// CatchAndReportCrash should be deferred at the top of a command; if a
// panic unwinds that far, the report is logged and saved next to the log
// file before the panic continues.
func (l *Logger) CatchAndReportCrash() {
	err := recover()
	if err == nil {
		return
	}

	report := crashReport(err, debug.Stack())
	l.Errorf("Crashed: %v", err)
	if l != nil {
		fn := filepath.Join(filepath.Dir(l.LogFile), "crash-"+time.Now().UTC().Format("20060102T150405")+".txt")
		if werr := os.WriteFile(fn, []byte(report), 0o600); werr == nil {
			fmt.Fprintf(os.Stderr, "aptdb crashed; report saved in %s\n", fn)
		}
	}
	panic(err)
}

func crashReport(err any, stack []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Crashed: %v\n", err)
	fmt.Fprintf(&b, "Sys: %s/%s %s\n", runtime.GOOS, runtime.GOARCH, runtime.Version())
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range bi.Settings {
			if strings.HasPrefix(setting.Key, "vcs.") {
				fmt.Fprintf(&b, "%s: %s\n", setting.Key, setting.Value)
			}
		}
	}
	b.Write(stack)
	return b.String()
}
