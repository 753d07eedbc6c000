package link

import (
	"context"
	"errors"
	"time"

	"github.com/smazurov/chameleond/internal/fpga"
	"github.com/smazurov/chameleond/internal/metrics"
)

// FSM brings a port's receiver into a locked pixel mode. Stabilize runs
// one pass through needs_reset, stabilizing_input, selecting_pixel_mode,
// selecting_path and verifying_lock; it either locks or returns a typed
// failure. There is no FSM-level retry.
type FSM interface {
	Stabilize(ctx context.Context) error
	State() *State
}

// FPGAResolution reads back the resolution the FPGA's input pipeline is
// seeing, satisfied by the port's FieldManager.
type FPGAResolution interface {
	Resolution() (width, height int, err error)
}

const (
	fsmPollPeriod   = 50 * time.Millisecond
	stableTimeout   = 3 * time.Second
	dpLockTimeout   = 5 * time.Second
	hdmiLockTimeout = 10 * time.Second
)

// pollUntil polls fn at fsmPollPeriod until it returns true or timeout
// elapses. On timeout the returned error carries snapshot's registers.
func pollUntil(ctx context.Context, timeout time.Duration, op string, fn func() (bool, error), snapshot func() fpga.RegisterSnapshot) error {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := fn()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			var regs fpga.RegisterSnapshot
			if snapshot != nil {
				regs = snapshot()
			}
			return &fpga.TimeoutError{Op: op, Registers: regs}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(fsmPollPeriod):
		}
	}
}

// asTimeout reports whether err is an expired hardware wait.
func asTimeout(err error, target **fpga.TimeoutError) bool {
	return errors.As(err, target)
}

// verifyLock waits until the FPGA-reported resolution equals the
// receiver's. Both must agree before a capture is trustworthy.
func verifyLock(ctx context.Context, port string, timeout time.Duration, fpgaRes FPGAResolution, rx Receiver) error {
	return pollUntil(ctx, timeout, port+" resolution lock", func() (bool, error) {
		fw, fh, err := fpgaRes.Resolution()
		if err != nil {
			return false, err
		}
		rw, rh, err := rx.Resolution()
		if err != nil {
			return false, err
		}
		return fw == rw && fh == rh && rw != 0 && rh != 0, nil
	}, nil)
}

// finishLock records the locked state shared by all variants.
func finishLock(port string, state *State, rx Receiver) error {
	interlaced, err := rx.IsInterlaced()
	if err != nil {
		return err
	}
	state.setInterlaced(interlaced)
	state.setLocked(true)
	metrics.SetLinkLocked(port, true)
	return nil
}

// selectMode applies hysteresis to the measured clock and, when the mode
// flips, reconfigures the receiver and the FPGA path. Returns whether the
// mode changed.
func selectMode(port string, state *State, rx Receiver, h Hysteresis, selectPath func(dual bool) error) (bool, error) {
	clock, err := rx.PixelClockMHz()
	if err != nil {
		return false, err
	}
	state.setClock(clock)
	metrics.SetPixelClock(port, clock)

	dual := h.Next(state.DualPixel(), clock)
	if dual == state.DualPixel() {
		return false, nil
	}
	if err := rx.SetDualPixel(dual); err != nil {
		return false, err
	}
	if err := selectPath(dual); err != nil {
		return false, err
	}
	state.setMode(dual)
	return true, nil
}
