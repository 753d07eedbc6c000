package video

import (
	"context"
	"sync"
	"sync/atomic"
)

// session is one capture session: the resolved window, the ring geometry,
// and the per-field results. The polling loop (caller thread for bounded
// dumps, monitor worker for continuous ones) is the single writer of
// hashes, histograms, and lastField; readers must not index past
// lastField, which is the only synchronization signal.
type session struct {
	window      Window
	fieldWidth  int
	fieldHeight int
	dualPixel   bool
	alignedSize uint32     // page-aligned bytes per field per path
	maxFields   int        // ring capacity in fields
	units       []DumpUnit // the units this session programmed and started
	hashLimit   int
	hashes      []FieldHash
	histograms  []Histogram
	lastField   atomic.Int64
	worker      *monitor
}

// observed returns the exclusive upper bound of readable field indices.
func (s *session) observed() int {
	return int(s.lastField.Load())
}

// record stores the results for field index and publishes it to readers.
// Single writer only.
func (s *session) record(index int, hash FieldHash, histogram Histogram) {
	s.hashes[index] = hash
	s.histograms[index] = histogram
	s.lastField.Store(int64(index + 1))
}

// monitor is the handle of a detached capture worker. stop is the only
// cancellation primitive: it forces termination and joins before
// returning, so no further writes to session state can happen afterwards.
type monitor struct {
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

func newMonitor(cancel context.CancelFunc) *monitor {
	return &monitor{cancel: cancel, done: make(chan struct{})}
}

// stop cancels the worker and blocks until it has exited.
func (m *monitor) stop() {
	m.stopOnce.Do(m.cancel)
	<-m.done
}
