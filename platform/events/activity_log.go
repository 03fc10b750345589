package events

import (
	"sync"
	"time"
)

// ActivityKind groups activity entries.
type ActivityKind string

const (
	ActivityQuery   ActivityKind = "query"
	ActivityItem    ActivityKind = "item"
	ActivityStorage ActivityKind = "storage"
)

const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// ActivityEntry is one line of the activity feed.
type ActivityEntry struct {
	Kind      ActivityKind `json:"kind"`
	Level     string       `json:"level"`
	ListName  string       `json:"list"`
	Message   string       `json:"message"`
	Timestamp time.Time    `json:"timestamp"`
}

// ActivityLog keeps the most recent entries in memory.
type ActivityLog struct {
	mu      sync.RWMutex
	entries []ActivityEntry
	limit   int
}

// NewActivityLog creates a log holding at most limit entries.
func NewActivityLog(limit int) *ActivityLog {
	if limit <= 0 {
		limit = 100
	}
	return &ActivityLog{limit: limit}
}

// Record implements ActivitySink.
func (l *ActivityLog) Record(entry ActivityEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if over := len(l.entries) - l.limit; over > 0 {
		l.entries = append([]ActivityEntry(nil), l.entries[over:]...)
	}
}

// Recent returns up to n entries, newest first.
func (l *ActivityLog) Recent(n int) []ActivityEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]ActivityEntry, 0, n)
	for i := len(l.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

// Len returns the number of stored entries.
func (l *ActivityLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Fanout records every entry in each of its sinks, in order.
type Fanout []ActivitySink

// Record implements ActivitySink.
func (f Fanout) Record(entry ActivityEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	for _, sink := range f {
		if sink != nil {
			sink.Record(entry)
		}
	}
}
