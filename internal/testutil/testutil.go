// Package testutil provides shared test helpers for editor sessions.
package testutil

import (
	"io"
	"log/slog"
	"sync"
)

// Published is one event captured by a Recorder.
type Published struct {
	Session string
	Type    string
	Data    any
}

// Recorder is a session publisher that keeps every event in memory.
type Recorder struct {
	mu  sync.Mutex
	got []Published
}

// PublishSession records the event.
func (r *Recorder) PublishSession(sessionID, eventType string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, Published{Session: sessionID, Type: eventType, Data: data})
}

// Events returns the events recorded for sessionID in publish order.
func (r *Recorder) Events(sessionID string) []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Published
	for _, p := range r.got {
		if p.Session == sessionID {
			out = append(out, p)
		}
	}
	return out
}

// Types returns the event types recorded for sessionID.
func (r *Recorder) Types(sessionID string) []string {
	var out []string
	for _, p := range r.Events(sessionID) {
		out = append(out, p.Type)
	}
	return out
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
