package link

// Hysteresis decides the dual-pixel flag from a measured pixel clock. The
// flag changes only when the clock fully crosses past the threshold
// opposite its current side; clocks strictly inside (Low, High) never
// change it, so measurement jitter around one threshold cannot thrash the
// mode.
type Hysteresis struct {
	LowMHz  float64
	HighMHz float64
}

// Next returns the flag after observing clockMHz with the flag currently
// at dual.
func (h Hysteresis) Next(dual bool, clockMHz float64) bool {
	if dual {
		return clockMHz >= h.LowMHz
	}
	return clockMHz > h.HighMHz
}
