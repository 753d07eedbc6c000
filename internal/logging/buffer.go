package logging

import (
	"strings"
	"sync"
	"time"
)

// Entry is one log line kept in the history buffer.
type Entry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer is a thread-safe circular buffer of log entries. The newest
// entry overwrites the oldest once full.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []Entry
	head    int
	count   int
}

// NewRingBuffer creates a buffer holding up to size entries.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{entries: make([]Entry, size)}
}

// Write appends an entry, evicting the oldest if the buffer is full.
func (rb *RingBuffer) Write(e Entry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.entries[rb.head] = e
	rb.head = (rb.head + 1) % len(rb.entries)
	if rb.count < len(rb.entries) {
		rb.count++
	}
}

// ReadAll returns the buffered entries in chronological order.
func (rb *RingBuffer) ReadAll() []Entry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.count == 0 {
		return nil
	}
	out := make([]Entry, 0, rb.count)
	start := 0
	if rb.count == len(rb.entries) {
		start = rb.head
	}
	for i := 0; i < rb.count; i++ {
		out = append(out, rb.entries[(start+i)%len(rb.entries)])
	}
	return out
}

// Count returns the number of buffered entries.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}

// FormatLine renders an entry as a single display line.
func FormatLine(e Entry) string {
	var sb strings.Builder
	sb.WriteString(e.Timestamp.Format(time.RFC3339Nano))
	sb.WriteString(" [")
	sb.WriteString(strings.ToUpper(e.Level))
	sb.WriteString("] [")
	sb.WriteString(e.Module)
	sb.WriteString("] ")
	sb.WriteString(e.Message)
	return sb.String()
}
