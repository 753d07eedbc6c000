package fpga

import (
	"fmt"
)

// VideoDumpUnit owns one hardware dumper's register window. The board has
// two ("primary" and "secondary"); in dual-pixel mode they run in lockstep,
// the primary carrying odd pixels and the secondary even pixels.
type VideoDumpUnit struct {
	name string
	mem  MemoryBus
	base uint32

	bufStart uint32
	bufEnd   uint32
}

// NewVideoDumpUnit creates a driver for the dumper at base, dumping into
// the ring [bufStart, bufEnd).
func NewVideoDumpUnit(name string, mem MemoryBus, base, bufStart, bufEnd uint32) *VideoDumpUnit {
	return &VideoDumpUnit{name: name, mem: mem, base: base, bufStart: bufStart, bufEnd: bufEnd}
}

// Name returns the unit's name ("primary" or "secondary").
func (u *VideoDumpUnit) Name() string { return u.name }

// BufferBase returns the physical start address of the unit's ring.
func (u *VideoDumpUnit) BufferBase() uint32 { return u.bufStart }

// BufferSize returns the ring capacity in bytes.
func (u *VideoDumpUnit) BufferSize() uint32 { return u.bufEnd - u.bufStart }

// Start programs the ring bounds and raises the run bit. With loop set the
// dumper wraps past the limit and keeps writing until stopped.
func (u *VideoDumpUnit) Start(loop bool) error {
	if err := u.mem.Write(u.base+regVideoStartAddr, u.bufStart); err != nil {
		return err
	}
	if err := u.mem.Write(u.base+regVideoEndAddr, u.bufEnd); err != nil {
		return err
	}
	ctrl := ctrlRun | ctrlHashEnable
	if loop {
		ctrl |= ctrlLoop
	}
	return u.mem.Write(u.base+regVideoCtrl, ctrl)
}

// Stop drops the run bit. The dumper finishes the in-flight page and halts.
func (u *VideoDumpUnit) Stop() error {
	return ClearMask(u.mem, u.base+regVideoCtrl, ctrlRun|ctrlLoop)
}

// SetLimit programs the field-count limit for a bounded dump.
func (u *VideoDumpUnit) SetLimit(fields int) error {
	return u.mem.Write(u.base+regVideoLimit, uint32(fields))
}

// SetCrop programs the crop window. Alignment is validated by the caller
// before this write; the hardware silently truncates misaligned values.
func (u *VideoDumpUnit) SetCrop(x, y, w, h int) error {
	if err := u.mem.Write(u.base+regVideoCropXY, uint32(x)<<16|uint32(y)&0xffff); err != nil {
		return err
	}
	if err := u.mem.Write(u.base+regVideoCropWH, uint32(w)<<16|uint32(h)&0xffff); err != nil {
		return err
	}
	return SetMask(u.mem, u.base+regVideoCtrl, ctrlCropEnable)
}

// ClearCrop disables cropping; the dumper captures the full frame.
func (u *VideoDumpUnit) ClearCrop() error {
	return ClearMask(u.mem, u.base+regVideoCtrl, ctrlCropEnable)
}

// Resolution reads back the width and height the dumper is seeing from
// the FPGA's input pipeline.
func (u *VideoDumpUnit) Resolution() (width, height int, err error) {
	w, err := u.mem.Read(u.base + regVideoWidth)
	if err != nil {
		return 0, 0, err
	}
	h, err := u.mem.Read(u.base + regVideoHeight)
	if err != nil {
		return 0, 0, err
	}
	return int(w), int(h), nil
}

// FieldCount reads the number of fields dumped since Start.
func (u *VideoDumpUnit) FieldCount() (uint32, error) {
	return u.mem.Read(u.base + regVideoCount)
}

// FieldHash reads the 64-bit content hash for field index as four 16-bit
// words, most significant first. The hash window holds hashSlots entries;
// index beyond one revolution reads back a newer field's hash.
func (u *VideoDumpUnit) FieldHash(index int) ([4]uint16, error) {
	var hash [4]uint16
	slot := u.base + regVideoHashBase + uint32(index%hashSlots)*8
	hi, err := u.mem.Read(slot)
	if err != nil {
		return hash, err
	}
	lo, err := u.mem.Read(slot + 4)
	if err != nil {
		return hash, err
	}
	hash[0] = uint16(hi >> 16)
	hash[1] = uint16(hi)
	hash[2] = uint16(lo >> 16)
	hash[3] = uint16(lo)
	return hash, nil
}

// RegisterSnapshot reads the unit's control and status registers for
// timeout diagnostics. Read errors leave the entry at zero; a snapshot is
// best-effort by nature.
func (u *VideoDumpUnit) RegisterSnapshot() RegisterSnapshot {
	snap := RegisterSnapshot{}
	regs := map[string]uint32{
		"ctrl":   regVideoCtrl,
		"start":  regVideoStartAddr,
		"end":    regVideoEndAddr,
		"limit":  regVideoLimit,
		"width":  regVideoWidth,
		"height": regVideoHeight,
		"count":  regVideoCount,
	}
	for name, off := range regs {
		v, err := u.mem.Read(u.base + off)
		if err != nil {
			continue
		}
		snap[fmt.Sprintf("%s.%s", u.name, name)] = v
	}
	return snap
}
