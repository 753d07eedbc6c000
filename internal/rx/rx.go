// Package rx contains the register-level drivers for the board's receiver
// chips, one per connector type. All access goes through the retried
// register bus; the link FSMs consume these through the interfaces in
// internal/link.
package rx

import (
	"time"

	"github.com/smazurov/chameleond/internal/fpga"
	"github.com/smazurov/chameleond/internal/link"
)

// Shared register layout of the receiver chips. The three chips expose
// the same status/timing window; chip-specific registers sit above 0x08.
const (
	regStatus  = 0x00
	regControl = 0x01
	regPclkLo  = 0x02 // pixel clock, 10 kHz units, little endian
	regPclkHi  = 0x03
	regWidthLo = 0x04
	regWidthHi = 0x05
	regHeight  = 0x06 // two bytes, little endian
)

// Status bits.
const (
	statusVideoStable = 1 << 0
	statusInterlaced  = 1 << 1
	statusResetNeeded = 1 << 2 // HDMI only
)

// Control bits.
const (
	controlSoftReset = 1 << 0
	controlDualPixel = 1 << 1
)

// resetSettle is how long the chips need after a soft reset before
// accepting further writes.
const resetSettle = 20 * time.Millisecond

// base implements the operations common to all three chips.
type base struct {
	bus fpga.RegisterBus
}

func (r *base) readByte(offset byte) (byte, error) {
	data, err := r.bus.Get(offset, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

func (r *base) readWord(offset byte) (uint16, error) {
	data, err := r.bus.Get(offset, 2)
	if err != nil {
		return 0, err
	}
	return uint16(data[0]) | uint16(data[1])<<8, nil
}

func (r *base) statusBit(mask byte) (bool, error) {
	status, err := r.readByte(regStatus)
	if err != nil {
		return false, err
	}
	return status&mask != 0, nil
}

// Initialize soft-resets the chip and waits for it to settle.
func (r *base) Initialize() error {
	if err := r.bus.Set(regControl, []byte{controlSoftReset}); err != nil {
		return err
	}
	time.Sleep(resetSettle)
	return r.bus.Set(regControl, []byte{0})
}

// IsVideoStable reports whether the chip trusts its measured timings.
func (r *base) IsVideoStable() (bool, error) {
	return r.statusBit(statusVideoStable)
}

// IsInterlaced reports whether the incoming video is interlaced.
func (r *base) IsInterlaced() (bool, error) {
	return r.statusBit(statusInterlaced)
}

// PixelClockMHz measures the incoming pixel clock.
func (r *base) PixelClockMHz() (float64, error) {
	raw, err := r.readWord(regPclkLo)
	if err != nil {
		return 0, err
	}
	return float64(raw) / 100, nil
}

// Resolution reads the active resolution the chip reports.
func (r *base) Resolution() (width, height int, err error) {
	w, err := r.readWord(regWidthLo)
	if err != nil {
		return 0, 0, err
	}
	h, err := r.readWord(regHeight)
	if err != nil {
		return 0, 0, err
	}
	return int(w), int(h), nil
}

// SetDualPixel configures the output bus for one or two pixels per clock.
func (r *base) SetDualPixel(dual bool) error {
	ctrl, err := r.readByte(regControl)
	if err != nil {
		return err
	}
	if dual {
		ctrl |= controlDualPixel
	} else {
		ctrl &^= controlDualPixel
	}
	return r.bus.Set(regControl, []byte{ctrl})
}

// DP is the DisplayPort receiver.
type DP struct {
	base
}

// NewDP creates the DisplayPort receiver driver.
func NewDP(bus fpga.RegisterBus) *DP {
	return &DP{base{bus: bus}}
}

// HDMI is the HDMI receiver.
type HDMI struct {
	base
}

// NewHDMI creates the HDMI receiver driver.
func NewHDMI(bus fpga.RegisterBus) *HDMI {
	return &HDMI{base{bus: bus}}
}

// ResetNeeded reports whether the chip is asking for a reset.
func (r *HDMI) ResetNeeded() (bool, error) {
	return r.statusBit(statusResetNeeded)
}

// VGA-specific registers.
const (
	regVGAPlug   = 0x09
	regVGAFormat = 0x0a
)

const vgaPlugForced = 1 << 0

// VGA is the VGA receiver.
type VGA struct {
	base
}

// NewVGA creates the VGA receiver driver.
func NewVGA(bus fpga.RegisterBus) *VGA {
	return &VGA{base{bus: bus}}
}

// IsPlugged reads the emulated plug state.
func (r *VGA) IsPlugged() (bool, error) {
	plug, err := r.readByte(regVGAPlug)
	if err != nil {
		return false, err
	}
	return plug&vgaPlugForced != 0, nil
}

// SetPlugged forces the emulated plug state.
func (r *VGA) SetPlugged(plugged bool) error {
	var v byte
	if plugged {
		v = vgaPlugForced
	}
	return r.bus.Set(regVGAPlug, []byte{v})
}

// vgaFormats maps the chip's format enum to known formats.
var vgaFormats = map[byte]link.VGAFormat{
	0x01: link.VGAFormat640x480,
	0x02: link.VGAFormat800x600,
	0x03: link.VGAFormat1024x768,
	0x04: link.VGAFormat1280x1024,
	0x05: link.VGAFormat1920x1080,
}

// DetectedFormat returns the chip's reported format enum.
func (r *VGA) DetectedFormat() (link.VGAFormat, error) {
	raw, err := r.readByte(regVGAFormat)
	if err != nil {
		return link.VGAFormatNone, err
	}
	return vgaFormats[raw], nil
}
