package board

import (
	"github.com/smazurov/chameleond/internal/audio"
	"github.com/smazurov/chameleond/internal/events"
	"github.com/smazurov/chameleond/internal/fpga"
	"github.com/smazurov/chameleond/internal/link"
	"github.com/smazurov/chameleond/internal/rx"
	"github.com/smazurov/chameleond/internal/tools"
	"github.com/smazurov/chameleond/internal/video"
)

// Per-port bit masks in the I/O control window.
const (
	maskDP   uint32 = 1 << 0
	maskHDMI uint32 = 1 << 1
	maskVGA  uint32 = 1 << 2
)

// Port IDs, fixed by the connector layout.
const (
	PortDP = iota + 1
	PortHDMI
	PortVGA
)

// HardwareConfig locates the fixture's device nodes and helper binaries.
type HardwareConfig struct {
	DevMemPath     string
	I2CAdapterPath string
	DPAddr         int
	HDMIAddr       int
	VGAAddr        int
	PixeldumpBin   string
	HistogramBin   string
	AudioRingPages int
	// VGAPinnedFormat pins the VGA mode instead of auto-detecting it.
	VGAPinnedFormat link.VGAFormat
	// StrictDualPixel escalates pixel-path resolution disagreement to
	// an error.
	StrictDualPixel bool
}

// Hardware owns the device handles behind an assembled Board.
type Hardware struct {
	Board *Board

	mem  *fpga.DevMem
	i2cs []*fpga.I2CDev
}

// resolutionProbe defers the FSM's FPGA-resolution dependency until the
// port's capture path exists. FSM and capture path reference each other;
// the probe breaks the construction cycle.
type resolutionProbe struct {
	fm *video.FieldManager
}

func (p *resolutionProbe) Resolution() (width, height int, err error) {
	return p.fm.Resolution()
}

// registerWindowSize covers the dumper and I/O control register banks.
const registerWindowSize = fpga.IOControlBase + fpga.PageSize - fpga.VideoDumperPrimaryBase

// Assemble opens the hardware and builds the full capture board: one
// DP, one HDMI and one VGA port over the shared dumper units, plus the
// audio ring drain.
func Assemble(cfg HardwareConfig, bus *events.Bus) (*Hardware, error) {
	mem, err := fpga.OpenDevMem(cfg.DevMemPath, fpga.VideoDumperPrimaryBase, registerWindowSize)
	if err != nil {
		return nil, err
	}
	hw := &Hardware{mem: mem}

	openBus := func(addr int) (fpga.RegisterBus, error) {
		dev, err := fpga.OpenI2C(cfg.I2CAdapterPath, addr)
		if err != nil {
			return nil, err
		}
		hw.i2cs = append(hw.i2cs, dev)
		return fpga.NewRetryingBus(dev), nil
	}

	dpBus, err := openBus(cfg.DPAddr)
	if err != nil {
		hw.Close()
		return nil, err
	}
	hdmiBus, err := openBus(cfg.HDMIAddr)
	if err != nil {
		hw.Close()
		return nil, err
	}
	vgaBus, err := openBus(cfg.VGAAddr)
	if err != nil {
		hw.Close()
		return nil, err
	}

	primary := fpga.NewVideoDumpUnit("primary", mem,
		fpga.VideoDumperPrimaryBase, fpga.VideoBufferPrimaryStart, fpga.VideoBufferPrimaryEnd)
	secondary := fpga.NewVideoDumpUnit("secondary", mem,
		fpga.VideoDumperSecondaryBase, fpga.VideoBufferSecondaryStart, fpga.VideoBufferSecondaryEnd)
	runner := tools.NewRunner(cfg.PixeldumpBin, cfg.HistogramBin)
	opts := video.Options{StrictDualPixel: cfg.StrictDualPixel}

	ringPages := cfg.AudioRingPages
	if ringPages <= 0 {
		ringPages = fpga.DefaultAudioRingPages
	}
	audioUnit := fpga.NewAudioDumpUnit(mem, fpga.AudioDumperBase, fpga.AudioBufferStart, ringPages)
	audioDumper := audio.NewMemoryDumper(audioUnit, runner, bus)

	b := New(audioDumper, bus)
	hw.Board = b

	// DP
	{
		mux := fpga.NewInputMux(mem, fpga.IOControlBase, maskDP)
		hpd := fpga.NewHPDLine(mem, fpga.IOControlBase, maskDP)
		recv := rx.NewDP(dpBus)
		probe := &resolutionProbe{}
		fsm := link.NewDPFSM("dp", recv, hpd, probe, mux.SetDualPath)
		fields := video.NewFieldManager("dp", primary, secondary, fsm.State(), runner, runner, opts)
		probe.fm = fields
		b.AddPort(&Port{
			ID:     PortDP,
			Name:   "dp",
			FSM:    fsm,
			Fields: fields,
			Frames: video.NewFrameManager(fields, fsm.State()),
			Mux:    mux,
			Rx:     recv,
			HPD:    hpd,
		})
	}

	// HDMI
	{
		mux := fpga.NewInputMux(mem, fpga.IOControlBase, maskHDMI)
		hpd := fpga.NewHPDLine(mem, fpga.IOControlBase, maskHDMI)
		recv := rx.NewHDMI(hdmiBus)
		probe := &resolutionProbe{}
		fsm := link.NewHDMIFSM("hdmi", recv, probe, mux.SetDualPath)
		fields := video.NewFieldManager("hdmi", primary, secondary, fsm.State(), runner, runner, opts)
		probe.fm = fields
		b.AddPort(&Port{
			ID:     PortHDMI,
			Name:   "hdmi",
			FSM:    fsm,
			Fields: fields,
			Frames: video.NewFrameManager(fields, fsm.State()),
			Mux:    mux,
			Rx:     recv,
			HPD:    hpd,
		})
	}

	// VGA
	{
		mux := fpga.NewInputMux(mem, fpga.IOControlBase, maskVGA)
		recv := rx.NewVGA(vgaBus)
		probe := &resolutionProbe{}
		fsm := link.NewVGAFSM("vga", recv, probe, cfg.VGAPinnedFormat)
		fields := video.NewFieldManager("vga", primary, secondary, fsm.State(), runner, runner, opts)
		probe.fm = fields
		b.AddPort(&Port{
			ID:     PortVGA,
			Name:   "vga",
			FSM:    fsm,
			Fields: fields,
			Frames: video.NewFrameManager(fields, fsm.State()),
			Mux:    mux,
			Rx:     recv,
			VGARx:  recv,
		})
	}

	return hw, nil
}

// Close releases the device handles.
func (hw *Hardware) Close() error {
	var first error
	for _, dev := range hw.i2cs {
		if err := dev.Close(); err != nil && first == nil {
			first = err
		}
	}
	if hw.mem != nil {
		if err := hw.mem.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
