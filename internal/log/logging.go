// Package log builds the slog logger and the sample trace used by keyscan.
//
// Without a log file, records below error go to stdout and errors go to
// stderr. With a log file, everything goes to stderr and to the file.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelTrace sits below debug and also enables the per-tick sample trace.
const LevelTrace slog.Level = -8

// Config holds the logging flags.
type Config struct {
	Level     string `help:"Log level" enum:"trace,debug,info,warn,error" default:"info" env:"KEYSCAN_LOG_LEVEL"`
	File      string `help:"Also write logs to this file" env:"KEYSCAN_LOG_FILE"`
	TraceFile string `help:"Write the per-tick sample trace to this file" env:"KEYSCAN_LOG_TRACE_FILE"`
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// fanout sends every record to all handlers that accept it.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}
	return nil
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// levelRange passes records whose level lies in [min, max) to h.
type levelRange struct {
	min, max slog.Level
	h        slog.Handler
}

func (l levelRange) in(level slog.Level) bool { return level >= l.min && level < l.max }

func (l levelRange) Enabled(ctx context.Context, level slog.Level) bool {
	return l.in(level) && l.h.Enabled(ctx, level)
}

func (l levelRange) Handle(ctx context.Context, r slog.Record) error {
	if !l.in(r.Level) {
		return nil
	}
	return l.h.Handle(ctx, r)
}

func (l levelRange) WithAttrs(attrs []slog.Attr) slog.Handler {
	return levelRange{min: l.min, max: l.max, h: l.h.WithAttrs(attrs)}
}

func (l levelRange) WithGroup(name string) slog.Handler {
	return levelRange{min: l.min, max: l.max, h: l.h.WithGroup(name)}
}

// NewLogger builds a logger writing text records to stdout/stderr as
// described in the package comment, plus file when it is not nil.
func NewLogger(level slog.Level, stdout, stderr, file io.Writer) *slog.Logger {
	var hs fanout
	if file == nil {
		hs = append(hs,
			levelRange{min: level, max: slog.LevelError, h: slog.NewTextHandler(stdout, &slog.HandlerOptions{Level: level})},
			slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: max(level, slog.LevelError)}),
		)
	} else {
		hs = append(hs,
			slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}),
			slog.NewTextHandler(file, &slog.HandlerOptions{Level: level}),
		)
	}
	return slog.New(hs)
}

// Setup opens the configured files and returns the logger, the sample
// trace and the files to close on exit.
func Setup(cfg Config) (*slog.Logger, *Trace, []io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, nil, err
	}

	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	var file io.Writer
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, nil, err
		}
		closers = append(closers, f)
		file = f
	}
	logger := NewLogger(level, os.Stdout, os.Stderr, file)

	var trace *Trace
	switch {
	case cfg.TraceFile != "":
		f, err := os.OpenFile(cfg.TraceFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		closers = append(closers, f)
		trace = NewTrace(f)
	case level <= LevelTrace:
		trace = NewTrace(os.Stdout)
	default:
		trace = NewTrace(nil)
	}
	return logger, trace, closers, nil
}
