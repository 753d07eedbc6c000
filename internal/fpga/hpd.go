package fpga

import "time"

// HPDLine controls one port's hot-plug-detect output and reads back the
// DUT-side status bits from the I/O control window.
type HPDLine struct {
	mem  MemoryBus
	base uint32
	mask uint32
}

// NewHPDLine creates a driver for the HPD line selected by mask in the
// I/O control window at base.
func NewHPDLine(mem MemoryBus, base, mask uint32) *HPDLine {
	return &HPDLine{mem: mem, base: base, mask: mask}
}

// Assert drives HPD high, announcing the emulated monitor to the DUT.
func (l *HPDLine) Assert() error {
	return SetMask(l.mem, l.base+regHPDControl, l.mask)
}

// Deassert drives HPD low.
func (l *HPDLine) Deassert() error {
	return ClearMask(l.mem, l.base+regHPDControl, l.mask)
}

// IsAsserted reports whether the line is currently driven high.
func (l *HPDLine) IsAsserted() (bool, error) {
	v, err := l.mem.Read(l.base + regHPDControl)
	if err != nil {
		return false, err
	}
	return v&l.mask != 0, nil
}

// Pulse drives HPD low for width, then high again. Used to provoke the
// source into re-reading EDID and restarting link training.
func (l *HPDLine) Pulse(width time.Duration) error {
	if err := l.Deassert(); err != nil {
		return err
	}
	time.Sleep(width)
	return l.Assert()
}

// PowerDetected reads the port's power sense bit. On DisplayPort this is
// the physical power pin; absence means no cable.
func (l *HPDLine) PowerDetected() (bool, error) {
	v, err := l.mem.Read(l.base + regPowerSense)
	if err != nil {
		return false, err
	}
	return v&l.mask != 0, nil
}
