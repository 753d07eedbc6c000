package link

import (
	"context"
	"time"

	"github.com/smazurov/chameleond/internal/fpga"
	"github.com/smazurov/chameleond/internal/logging"
	"github.com/smazurov/chameleond/internal/metrics"
)

// HDMI pixel-mode thresholds.
var hdmiHysteresis = Hysteresis{LowMHz: 126, HighMHz: 130}

// The HDMI receiver needs this long after a reset or bus-width change
// before its timing registers read back truthfully. Empirical.
const hdmiSettleDelay = 500 * time.Millisecond

// HDMIFSM stabilizes an HDMI receiver. Unlike DP the chip reports when it
// wants a reset, so resets happen only on request.
type HDMIFSM struct {
	port       string
	rx         HDMIReceiver
	fpgaRes    FPGAResolution
	selectPath func(dual bool) error
	state      *State
	logger     logging.Logger
}

// NewHDMIFSM creates the HDMI variant for port.
func NewHDMIFSM(port string, rx HDMIReceiver, fpgaRes FPGAResolution, selectPath func(dual bool) error) *HDMIFSM {
	return &HDMIFSM{
		port:       port,
		rx:         rx,
		fpgaRes:    fpgaRes,
		selectPath: selectPath,
		state:      &State{},
		logger:     logging.GetLogger("link").With("port", port),
	}
}

// State returns the port's link state.
func (f *HDMIFSM) State() *State { return f.state }

// Stabilize runs one stabilization pass.
func (f *HDMIFSM) Stabilize(ctx context.Context) error {
	f.state.setLocked(false)
	metrics.SetLinkLocked(f.port, false)

	settle := false
	resetNeeded, err := f.rx.ResetNeeded()
	if err != nil {
		return err
	}
	if resetNeeded {
		f.logger.Info("receiver requests reset")
		if err := f.rx.Initialize(); err != nil {
			return err
		}
		settle = true
	}

	if err := pollUntil(ctx, stableTimeout, f.port+" video stable", f.rx.IsVideoStable, nil); err != nil {
		var te *fpga.TimeoutError
		if asTimeout(err, &te) {
			return failuref(f.port, CodeGenericFailure, "video input did not stabilize: %v", te)
		}
		return err
	}

	changed, err := selectMode(f.port, f.state, f.rx, hdmiHysteresis, f.selectPath)
	if err != nil {
		return err
	}
	if changed {
		f.logger.Info("pixel mode changed", "dual", f.state.DualPixel(),
			"pixel_clock_mhz", f.state.PixelClockMHz())
		settle = true
	}

	if settle {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(hdmiSettleDelay):
		}
	}

	if err := verifyLock(ctx, f.port, hdmiLockTimeout, f.fpgaRes, f.rx); err != nil {
		return err
	}
	return finishLock(f.port, f.state, f.rx)
}
