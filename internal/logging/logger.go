// Package logging provides leveled logging and decision tracing for ternkit.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A TraceLogger for structured JSONL decision traces (fusion outcomes,
//     mode transitions, solver search events)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug for per-tick logging.
// At this level, every fusion pass and solver decision is included.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w. Format selects the
// handler: "json" emits one JSON record per line, anything else is text.
func NewLogger(level, format string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Label the custom trace level
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// TraceLogger writes structured decision events to a JSONL stream.
// It is safe for concurrent use. A nil TraceLogger is safe to use;
// all methods are no-ops on nil receiver.
type TraceLogger struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// NewTraceLogger creates a trace logger writing to dir/trace.jsonl.
// At "info" level (the default), returns nil so no file is created.
// At "debug" or "trace" level, the file is opened for append.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewTraceLogger(dir string, level string) *TraceLogger {
	lvl := ParseLevel(level)
	if lvl == slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, "trace.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &TraceLogger{w: f, closer: f}
}

// NewTraceWriter creates a trace logger writing to an arbitrary writer.
// Close does not close the writer.
func NewTraceWriter(w io.Writer) *TraceLogger {
	if w == nil {
		return nil
	}
	return &TraceLogger{w: w}
}

// Record writes one event as a single JSONL line. The event name lands in
// the "event" field and a "time" field is added automatically; the caller's
// map is not mutated. Safe to call on nil receiver.
func (tl *TraceLogger) Record(event string, fields map[string]any) {
	if tl == nil {
		return
	}

	// Copy to avoid mutating caller's map
	entry := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		entry[k] = v
	}
	entry["event"] = event
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	// The writer check must happen under the lock; Close nils it out.
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tl.w == nil {
		return
	}
	_, _ = tl.w.Write(data)
}

// Close closes the underlying file, if any. Safe to call on nil receiver.
func (tl *TraceLogger) Close() {
	if tl == nil {
		return
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()

	if tl.closer != nil {
		tl.closer.Close()
	}
	tl.w = nil
	tl.closer = nil
}
