// Package link brings the per-port receiver chips into a locked, known
// pixel mode. Each connector type (DP, HDMI, VGA) has its own FSM variant
// over a shared stabilization skeleton and hysteresis helper.
package link

import "sync"

// State is the per-port link state. Mutated only by the port's FSM; read
// by the capture path to choose active dump units and field geometry.
type State struct {
	mu            sync.RWMutex
	dualPixel     bool
	interlaced    bool
	locked        bool
	pixelClockMHz float64
}

// DualPixel reports whether both pixel paths are active.
func (s *State) DualPixel() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dualPixel
}

// Interlaced reports whether the source is interlaced.
func (s *State) Interlaced() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.interlaced
}

// Locked reports whether the last stabilization pass reached locked.
func (s *State) Locked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locked
}

// PixelClockMHz returns the last measured pixel clock.
func (s *State) PixelClockMHz() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pixelClockMHz
}

func (s *State) setMode(dual bool) {
	s.mu.Lock()
	s.dualPixel = dual
	s.mu.Unlock()
}

func (s *State) setInterlaced(interlaced bool) {
	s.mu.Lock()
	s.interlaced = interlaced
	s.mu.Unlock()
}

func (s *State) setClock(mhz float64) {
	s.mu.Lock()
	s.pixelClockMHz = mhz
	s.mu.Unlock()
}

func (s *State) setLocked(locked bool) {
	s.mu.Lock()
	s.locked = locked
	s.mu.Unlock()
}
