package fpga

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// fakeMem is an in-memory register file.
type fakeMem struct {
	regs map[uint32]uint32
}

func newFakeMem() *fakeMem { return &fakeMem{regs: make(map[uint32]uint32)} }

func (m *fakeMem) Read(addr uint32) (uint32, error) { return m.regs[addr], nil }
func (m *fakeMem) Write(addr, value uint32) error { m.regs[addr] = value; return nil }

// flakyBus fails a configurable number of transfers before succeeding.
type flakyBus struct {
	failures int
	gets     int
	sets     int
	resets   int
}

func (b *flakyBus) Get(offset byte, size int) ([]byte, error) {
	b.gets++
	if b.gets <= b.failures {
		return nil, fmt.Errorf("transfer error %d", b.gets)
	}
	return make([]byte, size), nil
}

func (b *flakyBus) Set(offset byte, data []byte) error {
	b.sets++
	if b.sets <= b.failures {
		return fmt.Errorf("transfer error %d", b.sets)
	}
	return nil
}

func (b *flakyBus) Reset() error {
	b.resets++
	return nil
}

func TestRetryingBusRecovers(t *testing.T) {
	inner := &flakyBus{failures: 1}
	bus := NewRetryingBus(inner)

	data, err := bus.Get(0x10, 2)
	if err != nil {
		t.Fatalf("Get failed despite retry: %v", err)
	}
	if len(data) != 2 {
		t.Errorf("got %d bytes, want 2", len(data))
	}
	if inner.gets != 2 {
		t.Errorf("expected 2 attempts, got %d", inner.gets)
	}
	if inner.resets != 0 {
		t.Errorf("reset must wait until the final attempt, got %d resets", inner.resets)
	}
}

func TestRetryingBusResetsBeforeFinalAttempt(t *testing.T) {
	inner := &flakyBus{failures: 2}
	bus := NewRetryingBus(inner)

	if err := bus.Set(0x20, []byte{1}); err != nil {
		t.Fatalf("Set failed despite retries: %v", err)
	}
	if inner.sets != 3 {
		t.Errorf("expected 3 attempts, got %d", inner.sets)
	}
	if inner.resets != 1 {
		t.Errorf("expected 1 reset before the final attempt, got %d", inner.resets)
	}
}

func TestRetryingBusEscalatesBusError(t *testing.T) {
	inner := &flakyBus{failures: 10}
	bus := NewRetryingBus(inner)

	_, err := bus.Get(0x30, 1)
	var busErr *BusError
	if !errors.As(err, &busErr) {
		t.Fatalf("expected BusError after exhausted retries, got %v", err)
	}
	if busErr.Op != "get" || busErr.Offset != 0x30 || busErr.Attempts != 3 {
		t.Errorf("BusError = %+v, want op=get offset=0x30 attempts=3", busErr)
	}
	if inner.gets != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", inner.gets)
	}
}

func TestVideoDumpUnitStartStop(t *testing.T) {
	mem := newFakeMem()
	u := NewVideoDumpUnit("primary", mem, VideoDumperPrimaryBase,
		VideoBufferPrimaryStart, VideoBufferPrimaryEnd)

	if err := u.Start(true); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if got := mem.regs[VideoDumperPrimaryBase+regVideoStartAddr]; got != VideoBufferPrimaryStart {
		t.Errorf("ring start = 0x%08x, want 0x%08x", got, VideoBufferPrimaryStart)
	}
	if got := mem.regs[VideoDumperPrimaryBase+regVideoEndAddr]; got != VideoBufferPrimaryEnd {
		t.Errorf("ring end = 0x%08x, want 0x%08x", got, VideoBufferPrimaryEnd)
	}
	ctrl := mem.regs[VideoDumperPrimaryBase+regVideoCtrl]
	if ctrl&ctrlRun == 0 || ctrl&ctrlLoop == 0 || ctrl&ctrlHashEnable == 0 {
		t.Errorf("ctrl = 0x%x, want run, loop and hash bits set", ctrl)
	}

	if err := u.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	ctrl = mem.regs[VideoDumperPrimaryBase+regVideoCtrl]
	if ctrl&(ctrlRun|ctrlLoop) != 0 {
		t.Errorf("ctrl = 0x%x after Stop, run and loop bits must be clear", ctrl)
	}
	if ctrl&ctrlHashEnable == 0 {
		t.Errorf("Stop must not disturb the hash enable bit")
	}
}

func TestVideoDumpUnitCropEncoding(t *testing.T) {
	mem := newFakeMem()
	u := NewVideoDumpUnit("primary", mem, VideoDumperPrimaryBase,
		VideoBufferPrimaryStart, VideoBufferPrimaryEnd)

	if err := u.SetCrop(64, 32, 640, 480); err != nil {
		t.Fatalf("SetCrop failed: %v", err)
	}
	if got := mem.regs[VideoDumperPrimaryBase+regVideoCropXY]; got != 64<<16|32 {
		t.Errorf("crop xy = 0x%08x, want 0x%08x", got, 64<<16|32)
	}
	if got := mem.regs[VideoDumperPrimaryBase+regVideoCropWH]; got != 640<<16|480 {
		t.Errorf("crop wh = 0x%08x, want 0x%08x", got, 640<<16|480)
	}
	if mem.regs[VideoDumperPrimaryBase+regVideoCtrl]&ctrlCropEnable == 0 {
		t.Errorf("crop enable bit must be set")
	}

	if err := u.ClearCrop(); err != nil {
		t.Fatalf("ClearCrop failed: %v", err)
	}
	if mem.regs[VideoDumperPrimaryBase+regVideoCtrl]&ctrlCropEnable != 0 {
		t.Errorf("crop enable bit must be clear after ClearCrop")
	}
}

func TestFieldHashWordOrder(t *testing.T) {
	mem := newFakeMem()
	u := NewVideoDumpUnit("primary", mem, VideoDumperPrimaryBase,
		VideoBufferPrimaryStart, VideoBufferPrimaryEnd)

	slot := VideoDumperPrimaryBase + regVideoHashBase + 5*8
	mem.regs[slot] = 0x11223344
	mem.regs[slot+4] = 0x55667788

	hash, err := u.FieldHash(5)
	if err != nil {
		t.Fatalf("FieldHash failed: %v", err)
	}
	want := [4]uint16{0x1122, 0x3344, 0x5566, 0x7788}
	if hash != want {
		t.Errorf("hash = %04x, want %04x", hash, want)
	}

	// Indices wrap at the hash window depth.
	wrapped, err := u.FieldHash(5 + hashSlots)
	if err != nil {
		t.Fatalf("FieldHash failed: %v", err)
	}
	if wrapped != want {
		t.Errorf("index %d must read slot 5, got %04x", 5+hashSlots, wrapped)
	}
}

func TestRegisterSnapshotString(t *testing.T) {
	snap := RegisterSnapshot{
		"primary.count": 7,
		"primary.ctrl":  3,
	}
	s := snap.String()
	if !strings.Contains(s, "primary.count") || !strings.Contains(s, "primary.ctrl") {
		t.Errorf("snapshot string missing registers: %q", s)
	}
	// Sorted output keeps diagnostics diffable.
	if strings.Index(s, "primary.count") > strings.Index(s, "primary.ctrl") {
		t.Errorf("snapshot keys must be sorted: %q", s)
	}
}
