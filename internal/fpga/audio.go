package fpga

// AudioDumpUnit owns the audio dumper's register window. The dumper writes
// fixed-size pages into a ring and exposes a monotonically increasing page
// counter; it never stalls, so a slow reader loses data silently unless the
// drain worker notices in time.
type AudioDumpUnit struct {
	mem  MemoryBus
	base uint32

	bufStart  uint32
	ringPages int
}

// NewAudioDumpUnit creates a driver for the audio dumper at base, with a
// ring of ringPages pages starting at bufStart.
func NewAudioDumpUnit(mem MemoryBus, base, bufStart uint32, ringPages int) *AudioDumpUnit {
	return &AudioDumpUnit{mem: mem, base: base, bufStart: bufStart, ringPages: ringPages}
}

// BufferBase returns the physical start address of the audio ring.
func (u *AudioDumpUnit) BufferBase() uint32 { return u.bufStart }

// RingPages returns the ring capacity in pages.
func (u *AudioDumpUnit) RingPages() int { return u.ringPages }

// Start raises the run bit. The page counter resets to zero on the rising
// edge.
func (u *AudioDumpUnit) Start() error {
	return SetMask(u.mem, u.base+regAudioCtrl, audioCtrlRun)
}

// Stop drops the run bit.
func (u *AudioDumpUnit) Stop() error {
	return ClearMask(u.mem, u.base+regAudioCtrl, audioCtrlRun)
}

// PageCount reads the total pages written since Start. Monotonic while
// running; a decrease indicates a hardware fault.
func (u *AudioDumpUnit) PageCount() (uint32, error) {
	return u.mem.Read(u.base + regAudioPageCount)
}
