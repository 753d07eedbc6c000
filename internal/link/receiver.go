package link

// Receiver is the register-level surface of a port's receiver chip,
// reached over the retried I2C bus.
type Receiver interface {
	// Initialize performs a full reinitialization of the chip.
	Initialize() error
	// IsVideoStable reports whether the incoming video is stable enough
	// to trust the measured timings.
	IsVideoStable() (bool, error)
	// PixelClockMHz measures the incoming pixel clock.
	PixelClockMHz() (float64, error)
	// Resolution reads the active resolution the chip reports.
	Resolution() (width, height int, err error)
	// IsInterlaced reports whether the incoming video is interlaced.
	IsInterlaced() (bool, error)
	// SetDualPixel configures the chip's output bus for one or two
	// pixels per clock.
	SetDualPixel(dual bool) error
}

// HDMIReceiver adds the HDMI chip's self-reported reset request.
type HDMIReceiver interface {
	Receiver
	// ResetNeeded reports whether the chip is asking for a reset.
	ResetNeeded() (bool, error)
}

// VGAReceiver adds plug emulation and format detection. VGA has no
// hot-plug signal, so presence is probed by forcing the plug state and
// sampling stability.
type VGAReceiver interface {
	Receiver
	// IsPlugged reads the emulated plug state.
	IsPlugged() (bool, error)
	// SetPlugged forces the emulated plug state.
	SetPlugged(plugged bool) error
	// DetectedFormat returns the chip's reported format enum, mapping
	// to a known resolution, or "" if none is recognized.
	DetectedFormat() (VGAFormat, error)
}

// VGAFormat is the VGA receiver's detected-format enum.
type VGAFormat string

// Known VGA formats.
const (
	VGAFormatNone      VGAFormat = ""
	VGAFormat640x480   VGAFormat = "640x480"
	VGAFormat800x600   VGAFormat = "800x600"
	VGAFormat1024x768  VGAFormat = "1024x768"
	VGAFormat1280x1024 VGAFormat = "1280x1024"
	VGAFormat1920x1080 VGAFormat = "1920x1080"
)

// Size returns the format's resolution, or (0, 0) for VGAFormatNone.
func (f VGAFormat) Size() (width, height int) {
	switch f {
	case VGAFormat640x480:
		return 640, 480
	case VGAFormat800x600:
		return 800, 600
	case VGAFormat1024x768:
		return 1024, 768
	case VGAFormat1280x1024:
		return 1280, 1024
	case VGAFormat1920x1080:
		return 1920, 1080
	default:
		return 0, 0
	}
}
