package fpga

// FPGA address map. One 4 KiB register window per dumper unit, a shared
// I/O control window for HPD lines and power sense, and the capture rings
// in DDR behind them.
const (
	VideoDumperPrimaryBase   uint32 = 0xff212000
	VideoDumperSecondaryBase uint32 = 0xff213000
	AudioDumperBase          uint32 = 0xff214000
	IOControlBase            uint32 = 0xff21e000

	// PageSize is the dumper's DMA granularity. Field sizes and ring
	// addresses are aligned to it.
	PageSize = 4096
)

// Video dumper register offsets.
const (
	regVideoCtrl      = 0x00
	regVideoStartAddr = 0x04
	regVideoEndAddr   = 0x08
	regVideoLimit     = 0x0c
	regVideoCropXY    = 0x10
	regVideoCropWH    = 0x14
	regVideoWidth     = 0x18
	regVideoHeight    = 0x1c
	regVideoCount     = 0x20
	regVideoHashBase  = 0x400
)

// Video dumper control bits.
const (
	ctrlRun        uint32 = 1 << 0
	ctrlLoop       uint32 = 1 << 1
	ctrlHashEnable uint32 = 1 << 2
	ctrlCropEnable uint32 = 1 << 3
)

// hashSlots is the depth of the per-unit hash readback window. The
// hardware overwrites slot i%hashSlots, so readers must stay within one
// ring revolution of the writer.
const hashSlots = 64

// Audio dumper register offsets.
const (
	regAudioCtrl      = 0x00
	regAudioPageCount = 0x04
)

const audioCtrlRun uint32 = 1 << 0

// I/O control offsets (from IOControlBase) and per-port bit masks.
const (
	regHPDControl = 0x00
	regHPDStatus  = 0x04
	regPowerSense = 0x08
)

// Capture ring placement in DDR. The video dumpers each own half of the
// capture region; the audio ring sits above them.
const (
	VideoBufferPrimaryStart   uint32 = 0xc0000000
	VideoBufferPrimaryEnd     uint32 = 0xd8000000
	VideoBufferSecondaryStart uint32 = 0xd8000000
	VideoBufferSecondaryEnd   uint32 = 0xf0000000
	AudioBufferStart          uint32 = 0xf0000000

	// DefaultAudioRingPages is the audio ring depth in DMA pages.
	DefaultAudioRingPages = 4096
)
