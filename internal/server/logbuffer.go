package server

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultLogBufferSize is used when NewLogBuffer is given a non-positive size.
const DefaultLogBufferSize = 500

// LogEntry represents a single captured log line.
type LogEntry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// LogBuffer is a ring-buffer slog.Handler that keeps the most recent
// entries (gateway attempts, request logs) for GET /api/logs while
// forwarding every record to a wrapped handler. Handlers derived through
// WithAttrs or WithGroup share the same ring.
type LogBuffer struct {
	inner slog.Handler
	ring  *ring
}

type ring struct {
	mu      sync.Mutex
	entries []LogEntry
	pos     int
	full    bool
}

// NewLogBuffer creates a LogBuffer wrapping inner, retaining up to maxSize entries.
func NewLogBuffer(inner slog.Handler, maxSize int) *LogBuffer {
	if maxSize <= 0 {
		maxSize = DefaultLogBufferSize
	}
	return &LogBuffer{inner: inner, ring: &ring{entries: make([]LogEntry, maxSize)}}
}

// Enabled delegates to the inner handler.
func (lb *LogBuffer) Enabled(ctx context.Context, level slog.Level) bool {
	return lb.inner.Enabled(ctx, level)
}

// Handle captures the record and forwards it to the inner handler.
func (lb *LogBuffer) Handle(ctx context.Context, r slog.Record) error {
	entry := LogEntry{
		Time:    r.Time,
		Level:   r.Level.String(),
		Message: r.Message,
	}
	if r.NumAttrs() > 0 {
		entry.Attrs = make(map[string]any, r.NumAttrs())
		r.Attrs(func(a slog.Attr) bool {
			entry.Attrs[a.Key] = a.Value.Resolve().Any()
			return true
		})
	}
	lb.ring.add(entry)
	return lb.inner.Handle(ctx, r)
}

func (lb *LogBuffer) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogBuffer{inner: lb.inner.WithAttrs(attrs), ring: lb.ring}
}

func (lb *LogBuffer) WithGroup(name string) slog.Handler {
	return &LogBuffer{inner: lb.inner.WithGroup(name), ring: lb.ring}
}

// Entries returns the buffered entries, oldest first.
func (lb *LogBuffer) Entries() []LogEntry {
	return lb.ring.snapshot()
}

func (r *ring) add(e LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.pos] = e
	r.pos++
	if r.pos == len(r.entries) {
		r.pos = 0
		r.full = true
	}
}

func (r *ring) snapshot() []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append(make([]LogEntry, 0, r.pos), r.entries[:r.pos]...)
	}
	out := make([]LogEntry, 0, len(r.entries))
	out = append(out, r.entries[r.pos:]...)
	return append(out, r.entries[:r.pos]...)
}
