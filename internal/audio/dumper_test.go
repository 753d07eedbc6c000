package audio

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smazurov/chameleond/internal/fpga"
)

const (
	testBase     = uint32(0xff214000)
	testBufStart = uint32(0xf0000000)
	pageCountReg = testBase + 0x04
)

// fakeMem is an in-memory register file for the audio dump unit.
type fakeMem struct {
	regs map[uint32]uint32
}

func newFakeMem() *fakeMem { return &fakeMem{regs: make(map[uint32]uint32)} }

func (m *fakeMem) Read(addr uint32) (uint32, error) { return m.regs[addr], nil }
func (m *fakeMem) Write(addr, value uint32) error { m.regs[addr] = value; return nil }

// fakePages records page reads and emits zeroed PCM.
type fakePages struct {
	calls [][2]uint32 // addr, count
}

func (p *fakePages) DumpPages(_ context.Context, addr uint32, count int, w io.Writer) error {
	p.calls = append(p.calls, [2]uint32{addr, uint32(count)})
	_, err := w.Write(make([]byte, count*fpga.PageSize))
	return err
}

func newTestDumper(ringPages int) (*MemoryDumper, *fakeMem, *fakePages) {
	mem := newFakeMem()
	unit := fpga.NewAudioDumpUnit(mem, testBase, testBufStart, ringPages)
	pages := &fakePages{}
	return NewMemoryDumper(unit, pages, nil), mem, pages
}

func TestAudioCaptureWritesWAV(t *testing.T) {
	d, mem, pages := newTestDumper(16)
	path := filepath.Join(t.TempDir(), "out.wav")

	if err := d.Start(path); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	mem.regs[pageCountReg] = 3

	got, err := d.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if got != path {
		t.Errorf("Stop returned path %q, want %q", got, path)
	}

	if len(pages.calls) != 1 || pages.calls[0] != [2]uint32{testBufStart, 3} {
		t.Errorf("expected one read of 3 pages at ring start, got %v", pages.calls)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("output file missing: %v", err)
	}
	// 3 pages of PCM plus the WAV header.
	if info.Size() <= 3*fpga.PageSize {
		t.Errorf("WAV file is %d bytes, want more than %d", info.Size(), 3*fpga.PageSize)
	}
}

func TestAudioCaptureTempPath(t *testing.T) {
	d, _, _ := newTestDumper(16)
	if err := d.Start(""); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	path, err := d.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	defer os.Remove(path)
	if !strings.HasSuffix(path, ".wav") {
		t.Errorf("temp capture path %q does not end in .wav", path)
	}
}

func TestAudioDoubleStartFails(t *testing.T) {
	d, _, _ := newTestDumper(16)
	if err := d.Start(filepath.Join(t.TempDir(), "a.wav")); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := d.Start(filepath.Join(t.TempDir(), "b.wav")); err == nil {
		t.Errorf("second Start must fail while capture is active")
	}
	if _, err := d.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if _, err := d.Stop(); err == nil {
		t.Errorf("Stop without an active capture must fail")
	}
}

func TestAudioOverflowDetectedBeforeDrain(t *testing.T) {
	d, mem, pages := newTestDumper(4)
	if err := d.Start(filepath.Join(t.TempDir(), "overflow.wav")); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// Five pages landed into a four-page ring before the first drain.
	mem.regs[pageCountReg] = 5

	_, err := d.Stop()
	var overflow *OverflowError
	if !errors.As(err, &overflow) {
		t.Fatalf("expected OverflowError, got %v", err)
	}
	if overflow.BufferedPages != 5 || overflow.RingPages != 4 {
		t.Errorf("overflow reported %d/%d, want 5/4", overflow.BufferedPages, overflow.RingPages)
	}
	// The check fires before any byte is appended.
	if len(pages.calls) != 0 {
		t.Errorf("no pages may be drained from an overflowed ring, got %v", pages.calls)
	}
}

func TestAudioCounterRegression(t *testing.T) {
	d, mem, _ := newTestDumper(16)
	if err := d.Start(filepath.Join(t.TempDir(), "regress.wav")); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	mem.regs[pageCountReg] = 3
	d.mu.Lock()
	err := d.drainOnce(context.Background())
	d.mu.Unlock()
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}

	mem.regs[pageCountReg] = 2
	d.mu.Lock()
	err = d.drainOnce(context.Background())
	d.mu.Unlock()
	if err == nil {
		t.Fatalf("expected error for a counter that went backwards")
	}

	mem.regs[pageCountReg] = 3
	if _, err := d.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestAudioDrainWrapsRing(t *testing.T) {
	d, mem, pages := newTestDumper(16)
	if err := d.Start(filepath.Join(t.TempDir(), "wrap.wav")); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	drain := func(counter uint32) {
		mem.regs[pageCountReg] = counter
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.drainOnce(context.Background()); err != nil {
			t.Fatalf("drain at counter %d failed: %v", counter, err)
		}
	}
	drain(4)
	drain(8)
	drain(12)
	drain(18)

	// The final period covers pages 12..17: slots 12..15, then 0..1
	// after the wrap.
	n := len(pages.calls)
	if n < 2 {
		t.Fatalf("expected split reads, got %v", pages.calls)
	}
	wantTail := [][2]uint32{
		{testBufStart + 12*fpga.PageSize, 4},
		{testBufStart + 0*fpga.PageSize, 2},
	}
	for i, want := range wantTail {
		if got := pages.calls[n-2+i]; got != want {
			t.Errorf("wrap read %d = %v, want %v", i, got, want)
		}
	}

	if _, err := d.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}
