package link

import (
	"context"
	"errors"
	"testing"

	"github.com/smazurov/chameleond/internal/fpga"
)

// fakeReceiver implements Receiver, HDMIReceiver and VGAReceiver.
type fakeReceiver struct {
	stable      bool
	clock       float64
	width       int
	height      int
	interlaced  bool
	resetNeeded bool
	plugged     bool
	format      VGAFormat

	initCalls int
	setDual   []bool
	setPlug   []bool
}

func (r *fakeReceiver) Initialize() error {
	r.initCalls++
	r.stable = true
	return nil
}

func (r *fakeReceiver) IsVideoStable() (bool, error) { return r.stable, nil }
func (r *fakeReceiver) PixelClockMHz() (float64, error) { return r.clock, nil }
func (r *fakeReceiver) Resolution() (int, int, error) { return r.width, r.height, nil }
func (r *fakeReceiver) IsInterlaced() (bool, error) { return r.interlaced, nil }
func (r *fakeReceiver) ResetNeeded() (bool, error) { return r.resetNeeded, nil }
func (r *fakeReceiver) IsPlugged() (bool, error) { return r.plugged, nil }
func (r *fakeReceiver) DetectedFormat() (VGAFormat, error) { return r.format, nil }

func (r *fakeReceiver) SetDualPixel(dual bool) error {
	r.setDual = append(r.setDual, dual)
	return nil
}

func (r *fakeReceiver) SetPlugged(plugged bool) error {
	r.setPlug = append(r.setPlug, plugged)
	r.plugged = plugged
	return nil
}

// fakeRes reports a fixed FPGA-side resolution.
type fakeRes struct {
	width  int
	height int
}

func (f *fakeRes) Resolution() (int, int, error) { return f.width, f.height, nil }

// fakeMem is an in-memory register file for the HPD line.
type fakeMem struct {
	regs map[uint32]uint32
}

func newFakeMem() *fakeMem { return &fakeMem{regs: make(map[uint32]uint32)} }

func (m *fakeMem) Read(addr uint32) (uint32, error) { return m.regs[addr], nil }
func (m *fakeMem) Write(addr, value uint32) error { m.regs[addr] = value; return nil }

func TestDPFSMLocksStableInput(t *testing.T) {
	rx := &fakeReceiver{stable: true, clock: 150, width: 1920, height: 1080}
	mem := newFakeMem()
	hpd := fpga.NewHPDLine(mem, fpga.IOControlBase, 1)

	var pathCalls []bool
	fsm := NewDPFSM("dp", rx, hpd, &fakeRes{1920, 1080}, func(dual bool) error {
		pathCalls = append(pathCalls, dual)
		return nil
	})

	if err := fsm.Stabilize(context.Background()); err != nil {
		t.Fatalf("Stabilize failed: %v", err)
	}

	state := fsm.State()
	if !state.Locked() {
		t.Errorf("expected locked state after stabilization")
	}
	if state.DualPixel() {
		t.Errorf("150 MHz must stay single-pixel (thresholds 180/200)")
	}
	if state.PixelClockMHz() != 150 {
		t.Errorf("expected recorded clock 150, got %v", state.PixelClockMHz())
	}
	if len(pathCalls) != 0 {
		t.Errorf("path must not be reselected when the mode did not change, got %v", pathCalls)
	}
	if rx.initCalls != 0 {
		t.Errorf("stable input must not be reinitialized, got %d init calls", rx.initCalls)
	}
}

func TestDPFSMReinitializesUnstableInput(t *testing.T) {
	// Initialize flips the fake to stable, so the pass recovers without
	// an HPD pulse.
	rx := &fakeReceiver{stable: false, clock: 220, width: 1280, height: 720}
	mem := newFakeMem()
	hpd := fpga.NewHPDLine(mem, fpga.IOControlBase, 1)

	fsm := NewDPFSM("dp", rx, hpd, &fakeRes{1280, 720}, func(bool) error { return nil })
	if err := fsm.Stabilize(context.Background()); err != nil {
		t.Fatalf("Stabilize failed: %v", err)
	}
	if rx.initCalls != 1 {
		t.Errorf("expected 1 reinitialization, got %d", rx.initCalls)
	}
	if !fsm.State().DualPixel() {
		t.Errorf("220 MHz must select dual-pixel mode")
	}
}

func TestDPFSMClassifyFailure(t *testing.T) {
	const mask = 1
	base := fpga.IOControlBase
	powerReg := base + 0x08
	controlReg := base + 0x00

	tests := []struct {
		name     string
		power    bool
		asserted bool
		want     FailureCode
	}{
		{"no power pin means no cable", false, false, CodeCableDisconnected},
		{"power but no HPD means unplugged", true, false, CodePortNotPlugged},
		{"powered and asserted is generic", true, true, CodeGenericFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := newFakeMem()
			if tt.power {
				mem.regs[powerReg] = mask
			}
			if tt.asserted {
				mem.regs[controlReg] = mask
			}
			hpd := fpga.NewHPDLine(mem, base, mask)
			fsm := NewDPFSM("dp", &fakeReceiver{}, hpd, &fakeRes{}, func(bool) error { return nil })

			err := fsm.classifyFailure()
			if err == nil {
				t.Fatalf("expected a failure")
			}
			if got := CodeOf(err); got != tt.want {
				t.Errorf("expected code %q, got %q (%v)", tt.want, got, err)
			}
		})
	}
}

func TestSelectModeHysteresis(t *testing.T) {
	rx := &fakeReceiver{clock: 205}
	state := &State{}
	var pathCalls []bool
	selectPath := func(dual bool) error {
		pathCalls = append(pathCalls, dual)
		return nil
	}
	h := Hysteresis{LowMHz: 180, HighMHz: 200}

	changed, err := selectMode("dp", state, rx, h, selectPath)
	if err != nil {
		t.Fatalf("selectMode failed: %v", err)
	}
	if !changed || !state.DualPixel() {
		t.Fatalf("205 MHz must flip to dual, changed=%v dual=%v", changed, state.DualPixel())
	}
	if len(rx.setDual) != 1 || !rx.setDual[0] {
		t.Errorf("expected receiver reconfigured to dual, got %v", rx.setDual)
	}
	if len(pathCalls) != 1 || !pathCalls[0] {
		t.Errorf("expected path reselected to dual, got %v", pathCalls)
	}

	// Inside the band nothing moves.
	rx.clock = 190
	changed, err = selectMode("dp", state, rx, h, selectPath)
	if err != nil {
		t.Fatalf("selectMode failed: %v", err)
	}
	if changed || !state.DualPixel() {
		t.Errorf("190 MHz inside the band must not change the flag")
	}
	if len(rx.setDual) != 1 || len(pathCalls) != 1 {
		t.Errorf("no reconfiguration expected inside the band")
	}
	if state.PixelClockMHz() != 190 {
		t.Errorf("clock must still be recorded, got %v", state.PixelClockMHz())
	}
}

func TestVerifyLockTimeoutCarriesType(t *testing.T) {
	rx := &fakeReceiver{width: 1920, height: 1080}
	err := verifyLock(context.Background(), "dp", 0, &fakeRes{1280, 720}, rx)
	var te *fpga.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected TimeoutError for disagreeing resolutions, got %v", err)
	}
}

func TestHDMIFSMLocksWithoutReset(t *testing.T) {
	rx := &fakeReceiver{stable: true, clock: 74, width: 1280, height: 720, interlaced: true}
	fsm := NewHDMIFSM("hdmi", rx, &fakeRes{1280, 720}, func(bool) error { return nil })

	if err := fsm.Stabilize(context.Background()); err != nil {
		t.Fatalf("Stabilize failed: %v", err)
	}
	if rx.initCalls != 0 {
		t.Errorf("reset must only happen on request, got %d init calls", rx.initCalls)
	}
	state := fsm.State()
	if !state.Locked() || !state.Interlaced() {
		t.Errorf("expected locked interlaced state, locked=%v interlaced=%v",
			state.Locked(), state.Interlaced())
	}
}

func TestHDMIFSMResetsOnRequest(t *testing.T) {
	rx := &fakeReceiver{stable: true, resetNeeded: true, clock: 74, width: 1280, height: 720}
	fsm := NewHDMIFSM("hdmi", rx, &fakeRes{1280, 720}, func(bool) error { return nil })

	if err := fsm.Stabilize(context.Background()); err != nil {
		t.Fatalf("Stabilize failed: %v", err)
	}
	if rx.initCalls != 1 {
		t.Errorf("expected exactly one reset, got %d", rx.initCalls)
	}
}

func TestHDMIFSMModeChange(t *testing.T) {
	rx := &fakeReceiver{stable: true, clock: 135, width: 2560, height: 1440}
	fsm := NewHDMIFSM("hdmi", rx, &fakeRes{2560, 1440}, func(bool) error { return nil })

	if err := fsm.Stabilize(context.Background()); err != nil {
		t.Fatalf("Stabilize failed: %v", err)
	}
	if !fsm.State().DualPixel() {
		t.Errorf("135 MHz must flip to dual (thresholds 126/130)")
	}

	// A second pass at 128 MHz sits inside the band and keeps dual.
	rx.clock = 128
	if err := fsm.Stabilize(context.Background()); err != nil {
		t.Fatalf("second Stabilize failed: %v", err)
	}
	if !fsm.State().DualPixel() {
		t.Errorf("128 MHz inside the band must keep dual-pixel mode")
	}
}

func TestVGAFSMPinnedFormat(t *testing.T) {
	rx := &fakeReceiver{stable: true, clock: 65, width: 1024, height: 768}
	fsm := NewVGAFSM("vga", rx, &fakeRes{1024, 768}, VGAFormat1024x768)

	if err := fsm.Stabilize(context.Background()); err != nil {
		t.Fatalf("Stabilize failed: %v", err)
	}
	if !fsm.State().Locked() {
		t.Errorf("expected locked state")
	}
	// Plug was off: the probe forces it on and restores it.
	if len(rx.setPlug) != 2 || !rx.setPlug[0] || rx.setPlug[1] {
		t.Errorf("expected plug forced on then restored off, got %v", rx.setPlug)
	}
}

func TestVGAFSMNoDetectedFormat(t *testing.T) {
	rx := &fakeReceiver{stable: true, plugged: true, format: VGAFormatNone}
	fsm := NewVGAFSM("vga", rx, &fakeRes{}, VGAFormatNone)

	err := fsm.Stabilize(context.Background())
	if err == nil {
		t.Fatalf("expected failure without a detected format")
	}
	if got := CodeOf(err); got != CodeGenericFailure {
		t.Errorf("expected %q, got %q (%v)", CodeGenericFailure, got, err)
	}
}
