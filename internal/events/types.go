package events

// Event type constants for kelindar/event.
const (
	TypePortPlugged uint32 = iota + 1
	TypePortUnplugged
	TypeLinkLocked
	TypeLinkFailed
	TypeCaptureStarted
	TypeCaptureStopped
	TypeAudioOverflow
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// PortPluggedEvent fires when a port's HPD line is asserted.
type PortPluggedEvent struct {
	Port      string `json:"port"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for PortPluggedEvent.
func (e PortPluggedEvent) Type() uint32 { return TypePortPlugged }

// PortUnpluggedEvent fires when a port's HPD line is deasserted.
type PortUnpluggedEvent struct {
	Port      string `json:"port"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for PortUnpluggedEvent.
func (e PortUnpluggedEvent) Type() uint32 { return TypePortUnplugged }

// LinkLockedEvent fires when a port's link FSM reaches locked.
type LinkLockedEvent struct {
	Port          string  `json:"port"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	PixelClockMHz float64 `json:"pixel_clock_mhz"`
	DualPixel     bool    `json:"dual_pixel"`
	Timestamp     string  `json:"timestamp"`
}

// Type returns the event type identifier for LinkLockedEvent.
func (e LinkLockedEvent) Type() uint32 { return TypeLinkLocked }

// LinkFailedEvent fires when a stabilization pass ends in a typed failure.
type LinkFailedEvent struct {
	Port      string `json:"port"`
	Reason    string `json:"reason"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for LinkFailedEvent.
func (e LinkFailedEvent) Type() uint32 { return TypeLinkFailed }

// CaptureStartedEvent fires when a video capture session starts.
type CaptureStartedEvent struct {
	Port       string `json:"port"`
	Continuous bool   `json:"continuous"`
	Timestamp  string `json:"timestamp"`
}

// Type returns the event type identifier for CaptureStartedEvent.
func (e CaptureStartedEvent) Type() uint32 { return TypeCaptureStarted }

// CaptureStoppedEvent fires when a video capture session ends.
type CaptureStoppedEvent struct {
	Port      string `json:"port"`
	Fields    int    `json:"fields"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for CaptureStoppedEvent.
func (e CaptureStoppedEvent) Type() uint32 { return TypeCaptureStopped }

// AudioOverflowEvent fires when the audio ring drain detects imminent
// overwrite and aborts.
type AudioOverflowEvent struct {
	BufferedPages int    `json:"buffered_pages"`
	RingPages     int    `json:"ring_pages"`
	Timestamp     string `json:"timestamp"`
}

// Type returns the event type identifier for AudioOverflowEvent.
func (e AudioOverflowEvent) Type() uint32 { return TypeAudioOverflow }
