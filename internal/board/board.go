// Package board assembles the per-port capture paths and exposes the
// operations the RPC surface dispatches to. It owns session exclusivity:
// one active capture per port, and any prior worker is stopped and joined
// before hardware is reprogrammed.
package board

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/smazurov/chameleond/internal/audio"
	"github.com/smazurov/chameleond/internal/events"
	"github.com/smazurov/chameleond/internal/fpga"
	"github.com/smazurov/chameleond/internal/link"
	"github.com/smazurov/chameleond/internal/logging"
	"github.com/smazurov/chameleond/internal/video"
)

// Port is one connector's capture path.
type Port struct {
	ID     int
	Name   string
	FSM    link.FSM
	Fields *video.FieldManager
	Frames *video.FrameManager
	Mux    *fpga.InputMux
	Rx     link.Receiver

	// HPD is nil for VGA, which has no hot-plug line.
	HPD *fpga.HPDLine
	// VGARx is set only for VGA ports, for plug emulation.
	VGARx link.VGAReceiver
}

// Board is the fixture's port registry and the audio capture owner.
type Board struct {
	mu     sync.Mutex
	ports  map[int]*Port
	audio  *audio.MemoryDumper
	bus    *events.Bus
	logger logging.Logger

	// active is the port currently owning the shared dump units. All
	// ports capture through the same two hardware dumpers, so at most
	// one port may hold a capture session at a time.
	active *Port
}

// New creates an empty board.
func New(audioDumper *audio.MemoryDumper, bus *events.Bus) *Board {
	return &Board{
		ports:  make(map[int]*Port),
		audio:  audioDumper,
		bus:    bus,
		logger: logging.GetLogger("board"),
	}
}

// AddPort registers a port.
func (b *Board) AddPort(p *Port) {
	b.ports[p.ID] = p
}

// Ports returns the registered ports ordered by ID.
func (b *Board) Ports() []*Port {
	out := make([]*Port, 0, len(b.ports))
	for _, p := range b.ports {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Port looks up a port by ID.
func (b *Board) Port(id int) (*Port, error) {
	p, ok := b.ports[id]
	if !ok {
		return nil, fmt.Errorf("no port %d on this board", id)
	}
	return p, nil
}

// Plug asserts the port's HPD line (or forces the VGA plug).
func (b *Board) Plug(id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.Port(id)
	if err != nil {
		return err
	}
	if p.HPD != nil {
		err = p.HPD.Assert()
	} else if p.VGARx != nil {
		err = p.VGARx.SetPlugged(true)
	}
	if err != nil {
		return err
	}
	b.bus.Publish(events.PortPluggedEvent{Port: p.Name, Timestamp: timestamp()})
	return nil
}

// Unplug deasserts the port's HPD line (or releases the VGA plug).
func (b *Board) Unplug(id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.Port(id)
	if err != nil {
		return err
	}
	if p.HPD != nil {
		err = p.HPD.Deassert()
	} else if p.VGARx != nil {
		err = p.VGARx.SetPlugged(false)
	}
	if err != nil {
		return err
	}
	b.bus.Publish(events.PortUnpluggedEvent{Port: p.Name, Timestamp: timestamp()})
	return nil
}

// IsPlugged reads the port's plug state.
func (b *Board) IsPlugged(id int) (bool, error) {
	p, err := b.Port(id)
	if err != nil {
		return false, err
	}
	if p.HPD != nil {
		return p.HPD.IsAsserted()
	}
	if p.VGARx != nil {
		return p.VGARx.IsPlugged()
	}
	return false, nil
}

// WaitVideoInputStable polls the port's receiver until it reports stable
// video or timeout elapses.
func (b *Board) WaitVideoInputStable(ctx context.Context, id int, timeout time.Duration) (bool, error) {
	p, err := b.Port(id)
	if err != nil {
		return false, err
	}
	deadline := time.Now().Add(timeout)
	for {
		stable, err := p.Rx.IsVideoStable()
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
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// claimPipeline makes p the owner of the shared dump units, forcibly
// ending any other port's capture session first. The prior session's
// monitor worker is stopped and joined before p touches the hardware.
// Callers hold b.mu.
func (b *Board) claimPipeline(p *Port) {
	if b.active != nil && b.active != p {
		b.logger.Info("capture pipeline taken over",
			"from", b.active.Name, "to", p.Name)
		b.active.Fields.EndSession()
	}
	b.active = p
}

// Stabilize selects the port into the capture pipeline and runs one link
// FSM pass. Selecting destroys any prior capture session, on this port
// or any other.
func (b *Board) Stabilize(ctx context.Context, id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.Port(id)
	if err != nil {
		return err
	}
	b.claimPipeline(p)
	p.Fields.EndSession()
	if err := p.Mux.Select(); err != nil {
		return err
	}
	if err := p.FSM.Stabilize(ctx); err != nil {
		if code := link.CodeOf(err); code != "" {
			b.bus.Publish(events.LinkFailedEvent{Port: p.Name, Reason: string(code), Timestamp: timestamp()})
		}
		return err
	}
	w, h, err := p.Fields.Resolution()
	if err != nil {
		return err
	}
	state := p.FSM.State()
	b.bus.Publish(events.LinkLockedEvent{
		Port:          p.Name,
		Width:         w,
		Height:        h,
		PixelClockMHz: state.PixelClockMHz(),
		DualPixel:     state.DualPixel(),
		Timestamp:     timestamp(),
	})
	return nil
}

// DumpFramesToLimit captures limit frames synchronously on the port.
func (b *Board) DumpFramesToLimit(ctx context.Context, id, limit int, window video.Window, timeout time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.Port(id)
	if err != nil {
		return err
	}
	b.claimPipeline(p)
	b.bus.Publish(events.CaptureStartedEvent{Port: p.Name, Continuous: false, Timestamp: timestamp()})
	err = p.Frames.DumpFramesToLimit(ctx, limit, window, timeout)
	b.bus.Publish(events.CaptureStoppedEvent{Port: p.Name, Fields: p.Fields.GetDumpedFieldCount(), Timestamp: timestamp()})
	return err
}

// StartDumpingFrames begins continuous capture on the port.
func (b *Board) StartDumpingFrames(id, bufferLimit int, window video.Window, hashLimit int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.Port(id)
	if err != nil {
		return err
	}
	b.claimPipeline(p)
	if err := p.Frames.StartDumpingFrames(bufferLimit, window, hashLimit); err != nil {
		return err
	}
	b.bus.Publish(events.CaptureStartedEvent{Port: p.Name, Continuous: true, Timestamp: timestamp()})
	return nil
}

// StopDumpingFrames stops a continuous capture on the port.
func (b *Board) StopDumpingFrames(id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, err := b.Port(id)
	if err != nil {
		return err
	}
	if err := p.Frames.StopDumpingFrames(); err != nil {
		return err
	}
	b.bus.Publish(events.CaptureStoppedEvent{Port: p.Name, Fields: p.Fields.GetDumpedFieldCount(), Timestamp: timestamp()})
	return nil
}

// StartCapturingAudio begins the background ring drain to path.
func (b *Board) StartCapturingAudio(path string) error {
	return b.audio.Start(path)
}

// StopCapturingAudio stops the drain and returns the WAV path.
func (b *Board) StopCapturingAudio() (string, error) {
	return b.audio.Stop()
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
