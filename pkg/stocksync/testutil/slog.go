// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// LogRecord is a captured log record with attributes flattened.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// BufferedHandler captures records for assertions. Loggers derived with
// With share the parent's buffer.
type BufferedHandler struct {
	store *recordStore
	attrs []slog.Attr
}

type recordStore struct {
	mu      sync.Mutex
	records []LogRecord
}

func NewBufferedHandler() *BufferedHandler {
	return &BufferedHandler{store: &recordStore{}}
}

// NewLogger returns a logger writing to a fresh BufferedHandler.
func NewLogger() (*slog.Logger, *BufferedHandler) {
	h := NewBufferedHandler()
	return slog.New(h), h
}

func (h *BufferedHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *BufferedHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})
	h.store.mu.Lock()
	h.store.records = append(h.store.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	h.store.mu.Unlock()
	return nil
}

func (h *BufferedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	all := append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &BufferedHandler{store: h.store, attrs: all}
}

// WithGroup is not needed by the code under test; groups are flattened.
func (h *BufferedHandler) WithGroup(string) slog.Handler { return h }

// Records returns a copy of everything captured.
func (h *BufferedHandler) Records() []LogRecord {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return append([]LogRecord(nil), h.store.records...)
}

// Find returns records whose message contains msg.
func (h *BufferedHandler) Find(msg string) []LogRecord {
	var out []LogRecord
	for _, r := range h.Records() {
		if strings.Contains(r.Message, msg) {
			out = append(out, r)
		}
	}
	return out
}

// ByLevel returns records logged at level.
func (h *BufferedHandler) ByLevel(level slog.Level) []LogRecord {
	var out []LogRecord
	for _, r := range h.Records() {
		if r.Level == level {
			out = append(out, r)
		}
	}
	return out
}
