package logging

// runlog.go opens the per-run log file written next to the import data.
//
// Every decision the reconciliation makes is written to the run log at debug
// level, independent of the process log level, so that per-record problems
// stay discoverable after the run. Records are also forwarded to the process
// logger, which applies its own level.

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// RunLogPrefix prefixes every run log file name.
const RunLogPrefix = "import_"

// RunLog is an open run log file.
type RunLog struct {
	Path   string
	Logger *slog.Logger
	file   *os.File
}

// OpenRunLog creates import_<timestamp>.log inside folder and returns a logger
// writing to both that file and parent. parent may be nil.
func OpenRunLog(folder string, parent *slog.Logger, now time.Time) (*RunLog, error) {
	path := filepath.Join(folder, RunLogPrefix+now.Format("20060102150405")+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}

	fileHandler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})

	var handler slog.Handler = fileHandler
	if parent != nil {
		handler = teeHandler{handlers: []slog.Handler{fileHandler, parent.Handler()}}
	}

	return &RunLog{Path: path, Logger: slog.New(handler), file: f}, nil
}

// Close flushes and closes the run log file.
func (l *RunLog) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}

// teeHandler forwards each record to every handler that accepts its level.
type teeHandler struct {
	handlers []slog.Handler
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return teeHandler{handlers: next}
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithGroup(name)
	}
	return teeHandler{handlers: next}
}
