package link

import (
	"context"
	"time"

	"github.com/smazurov/chameleond/internal/logging"
	"github.com/smazurov/chameleond/internal/metrics"
)

// VGA lock is declared when two resolution reads this far apart agree and
// are both non-zero; there is no lock bit to read.
const vgaLockInterval = 50 * time.Millisecond

const vgaLockTimeout = 5 * time.Second

// VGAFSM stabilizes a VGA receiver. VGA has no hot-plug signal, so
// physical presence is inferred by forcing the emulated plug on, sampling
// input stability, and restoring the prior plug state. VGA always runs
// single-pixel; the format is either pinned by the caller or derived from
// the receiver's detected-format enum.
type VGAFSM struct {
	port    string
	rx      VGAReceiver
	fpgaRes FPGAResolution
	pinned  VGAFormat
	state   *State
	logger  logging.Logger
}

// NewVGAFSM creates the VGA variant for port. A non-empty pinned format
// overrides auto-detection.
func NewVGAFSM(port string, rx VGAReceiver, fpgaRes FPGAResolution, pinned VGAFormat) *VGAFSM {
	return &VGAFSM{
		port:    port,
		rx:      rx,
		fpgaRes: fpgaRes,
		pinned:  pinned,
		state:   &State{},
		logger:  logging.GetLogger("link").With("port", port),
	}
}

// State returns the port's link state.
func (f *VGAFSM) State() *State { return f.state }

// Stabilize runs one stabilization pass.
func (f *VGAFSM) Stabilize(ctx context.Context) error {
	f.state.setLocked(false)
	metrics.SetLinkLocked(f.port, false)

	plugged, err := f.probePlugged(ctx)
	if err != nil {
		return err
	}
	if !plugged {
		return failuref(f.port, CodeCableDisconnected, "no stable input while plug forced")
	}

	format := f.pinned
	if format == VGAFormatNone {
		if format, err = f.rx.DetectedFormat(); err != nil {
			return err
		}
		if format == VGAFormatNone {
			return failuref(f.port, CodeGenericFailure, "receiver detected no known format")
		}
	}
	f.logger.Info("format selected", "format", string(format), "pinned", f.pinned != VGAFormatNone)

	clock, err := f.rx.PixelClockMHz()
	if err != nil {
		return err
	}
	f.state.setClock(clock)
	metrics.SetPixelClock(f.port, clock)

	if err := f.verifySteadyResolution(ctx); err != nil {
		return err
	}
	return finishLock(f.port, f.state, f.rx)
}

// probePlugged forces the emulated plug on, samples stability, and
// restores the prior plug state.
func (f *VGAFSM) probePlugged(ctx context.Context) (bool, error) {
	prior, err := f.rx.IsPlugged()
	if err != nil {
		return false, err
	}
	if !prior {
		if err := f.rx.SetPlugged(true); err != nil {
			return false, err
		}
		defer func() {
			if err := f.rx.SetPlugged(prior); err != nil {
				f.logger.Warn("failed to restore plug state", "error", err)
			}
		}()
	}

	deadline := time.Now().Add(stableTimeout)
	for {
		stable, err := f.rx.IsVideoStable()
		if err != nil {
			return false, err
		}
		if stable {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(fsmPollPeriod):
		}
	}
}

// verifySteadyResolution declares lock when two FPGA resolution reads
// vgaLockInterval apart agree and are both non-zero.
func (f *VGAFSM) verifySteadyResolution(ctx context.Context) error {
	return pollUntil(ctx, vgaLockTimeout, f.port+" steady resolution", func() (bool, error) {
		w1, h1, err := f.fpgaRes.Resolution()
		if err != nil {
			return false, err
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(vgaLockInterval):
		}
		w2, h2, err := f.fpgaRes.Resolution()
		if err != nil {
			return false, err
		}
		return w1 == w2 && h1 == h2 && w1 != 0 && h1 != 0, nil
	}, nil)
}
