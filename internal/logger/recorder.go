package logger

import (
	"context"
	"log/slog"
	"sync"
)

// Record is a captured log entry
type Record struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// Recorder is a slog.Handler that keeps every record in memory.
// Tests use it to assert on warnings emitted by a component.
type Recorder struct {
	mu      sync.Mutex
	records []Record
	attrs   []slog.Attr
	root    *Recorder
}

// NewRecorder returns an empty recorder
func NewRecorder() *Recorder {
	r := &Recorder{}
	r.root = r
	return r
}

// Logger returns a logger writing into the recorder
func (r *Recorder) Logger() *slog.Logger {
	return slog.New(r)
}

func (r *Recorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *Recorder) Handle(_ context.Context, rec slog.Record) error {
	attrs := make(map[string]any, len(r.attrs)+rec.NumAttrs())
	for _, a := range r.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	rec.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	root := r.root
	root.mu.Lock()
	root.records = append(root.records, Record{Level: rec.Level, Message: rec.Message, Attrs: attrs})
	root.mu.Unlock()
	return nil
}

func (r *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(r.attrs)+len(attrs))
	merged = append(merged, r.attrs...)
	merged = append(merged, attrs...)
	return &Recorder{attrs: merged, root: r.root}
}

// Groups are flattened; nothing in this module logs with groups.
func (r *Recorder) WithGroup(string) slog.Handler { return r }

// Records returns a copy of everything logged so far
func (r *Recorder) Records() []Record {
	root := r.root
	root.mu.Lock()
	defer root.mu.Unlock()
	out := make([]Record, len(root.records))
	copy(out, root.records)
	return out
}

// Count returns how many records were logged at exactly lvl
func (r *Recorder) Count(lvl slog.Level) int {
	n := 0
	for _, rec := range r.Records() {
		if rec.Level == lvl {
			n++
		}
	}
	return n
}
