package link

import (
	"context"
	"time"

	"github.com/smazurov/chameleond/internal/fpga"
	"github.com/smazurov/chameleond/internal/logging"
	"github.com/smazurov/chameleond/internal/metrics"
)

// DisplayPort pixel-mode thresholds.
var dpHysteresis = Hysteresis{LowMHz: 180, HighMHz: 200}

const dpHPDPulseWidth = 100 * time.Millisecond

// DPFSM stabilizes a DisplayPort receiver. An unstable input gets one
// reinitialization and, failing that, one HPD low-to-high pulse before
// the pass is declared failed.
type DPFSM struct {
	port       string
	rx         Receiver
	hpd        *fpga.HPDLine
	fpgaRes    FPGAResolution
	selectPath func(dual bool) error
	state      *State
	logger     logging.Logger
}

// NewDPFSM creates the DisplayPort variant for port.
func NewDPFSM(port string, rx Receiver, hpd *fpga.HPDLine, fpgaRes FPGAResolution, selectPath func(dual bool) error) *DPFSM {
	return &DPFSM{
		port:       port,
		rx:         rx,
		hpd:        hpd,
		fpgaRes:    fpgaRes,
		selectPath: selectPath,
		state:      &State{},
		logger:     logging.GetLogger("link").With("port", port),
	}
}

// State returns the port's link state.
func (f *DPFSM) State() *State { return f.state }

// Stabilize runs one stabilization pass.
func (f *DPFSM) Stabilize(ctx context.Context) error {
	f.state.setLocked(false)
	metrics.SetLinkLocked(f.port, false)

	stable, err := f.rx.IsVideoStable()
	if err != nil {
		return err
	}
	if !stable {
		f.logger.Info("input unstable, reinitializing receiver")
		if err := f.rx.Initialize(); err != nil {
			return err
		}
		if stable, err = f.waitStable(ctx); err != nil {
			return err
		}
	}
	if !stable {
		// A source that missed the initial hot plug sometimes needs a
		// fresh HPD edge to start link training.
		f.logger.Info("still unstable, pulsing HPD")
		if err := f.hpd.Pulse(dpHPDPulseWidth); err != nil {
			return err
		}
		if stable, err = f.waitStable(ctx); err != nil {
			return err
		}
	}
	if !stable {
		return f.classifyFailure()
	}

	changed, err := selectMode(f.port, f.state, f.rx, dpHysteresis, f.selectPath)
	if err != nil {
		return err
	}
	if changed {
		f.logger.Info("pixel mode changed", "dual", f.state.DualPixel(),
			"pixel_clock_mhz", f.state.PixelClockMHz())
	}

	if err := verifyLock(ctx, f.port, dpLockTimeout, f.fpgaRes, f.rx); err != nil {
		return err
	}
	return finishLock(f.port, f.state, f.rx)
}

func (f *DPFSM) waitStable(ctx context.Context) (bool, error) {
	err := pollUntil(ctx, stableTimeout, f.port+" video stable", f.rx.IsVideoStable, nil)
	if err != nil {
		var te *fpga.TimeoutError
		if asTimeout(err, &te) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// classifyFailure disambiguates why the input never stabilized: no power
// pin means no cable, no HPD means the port is not plugged, anything else
// is a generic FSM failure.
func (f *DPFSM) classifyFailure() error {
	powered, err := f.hpd.PowerDetected()
	if err != nil {
		return err
	}
	if !powered {
		return failuref(f.port, CodeCableDisconnected, "power pin not detected")
	}
	asserted, err := f.hpd.IsAsserted()
	if err != nil {
		return err
	}
	if !asserted {
		return failuref(f.port, CodePortNotPlugged, "HPD not asserted")
	}
	return failuref(f.port, CodeGenericFailure, "video input did not stabilize")
}
