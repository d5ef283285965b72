package pipeline

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

type EventKind string

const (
	EventSymbolDone   EventKind = "symbol_done"
	EventSymbolFailed EventKind = "symbol_failed"
	EventDestination  EventKind = "destination"
	EventSummary      EventKind = "summary"
)

// Event is one progress message. Done counts symbols processed so far,
// failures included, out of Total.
type Event struct {
	Kind    EventKind
	RunID   string
	Symbol  string
	Company string
	Message string
	Done    int
	Total   int
	Err     error
}

// Sink receives events from the worker running a pass. Emit must not block
// for long.
type Sink interface {
	Emit(Event)
}

type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// LogSink writes events as structured log records.
type LogSink struct {
	Log *slog.Logger
}

func (s LogSink) Emit(e Event) {
	attrs := []any{slog.String("run_id", e.RunID), slog.Int("done", e.Done), slog.Int("total", e.Total)}
	if e.Symbol != "" {
		attrs = append(attrs, slog.String("symbol", e.Symbol), slog.String("company", e.Company))
	}
	switch e.Kind {
	case EventSymbolFailed:
		attrs = append(attrs, slog.String("error", errString(e.Err)))
		s.Log.Error(e.Message, attrs...)
	case EventDestination:
		if e.Err != nil {
			attrs = append(attrs, slog.String("error", e.Err.Error()))
			s.Log.Error(e.Message, attrs...)
			return
		}
		s.Log.Info(e.Message, attrs...)
	default:
		s.Log.Info(e.Message, attrs...)
	}
}

// WriterSink prints one human-readable line per event.
type WriterSink struct {
	mu sync.Mutex
	W  io.Writer
}

func (s *WriterSink) Emit(e Event) {
	var line string
	switch e.Kind {
	case EventSymbolDone:
		line = fmt.Sprintf("[%d/%d] ok   %s | %s", e.Done, e.Total, e.Symbol, e.Company)
	case EventSymbolFailed:
		line = fmt.Sprintf("[%d/%d] fail %s | %s: %s", e.Done, e.Total, e.Symbol, e.Company, errString(e.Err))
	case EventDestination:
		line = e.Message
		if e.Err != nil {
			line += ": " + e.Err.Error()
		}
	case EventSummary:
		line = e.Message
	default:
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.W, line)
}

// Multi fans an event out to several sinks.
type Multi []Sink

func (m Multi) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
