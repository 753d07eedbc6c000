package video

import (
	"context"
	"testing"
	"time"
)

func TestComputeResolution(t *testing.T) {
	mode := &fakeMode{}
	fm, _, _, _ := newTestManager(1920, 1080, mode, Options{})
	frames := NewFrameManager(fm, mode)

	w, h, err := frames.ComputeResolution()
	if err != nil {
		t.Fatalf("ComputeResolution failed: %v", err)
	}
	if w != 1920 || h != 1080 {
		t.Errorf("progressive resolution %dx%d, want 1920x1080", w, h)
	}

	imode := &fakeMode{interlaced: true}
	ifm, _, _, _ := newTestManager(1920, 540, imode, Options{})
	iframes := NewFrameManager(ifm, imode)
	w, h, err = iframes.ComputeResolution()
	if err != nil {
		t.Fatalf("ComputeResolution failed: %v", err)
	}
	if w != 1920 || h != 1080 {
		t.Errorf("interlaced resolution %dx%d, want 1920x1080 from 540-line fields", w, h)
	}
}

func TestInterlacedFieldParams(t *testing.T) {
	mode := &fakeMode{interlaced: true}
	fm, _, _, _ := newTestManager(1920, 540, mode, Options{})
	frames := NewFrameManager(fm, mode)

	limit, window, err := frames.toFieldParams(5, Crop(0, 100, 640, 200))
	if err != nil {
		t.Fatalf("toFieldParams failed: %v", err)
	}
	if limit != 10 {
		t.Errorf("field limit %d, want 10 (two fields per frame)", limit)
	}
	if window.Y != 50 || window.Height != 100 {
		t.Errorf("field window y=%d h=%d, want y=50 h=100", window.Y, window.Height)
	}

	if _, _, err := frames.toFieldParams(1, Crop(0, 101, 640, 200)); err == nil {
		t.Errorf("odd crop y must be rejected for interlaced sources")
	}
	if _, _, err := frames.toFieldParams(1, Crop(0, 100, 640, 201)); err == nil {
		t.Errorf("odd crop height must be rejected for interlaced sources")
	}
}

func TestInterlacedFrameCapture(t *testing.T) {
	mode := &fakeMode{interlaced: true}
	fm, _, _, _ := newTestManager(64, 16, mode, Options{})
	frames := NewFrameManager(fm, mode)

	if err := frames.DumpFramesToLimit(context.Background(), 2, FullField(), time.Second); err != nil {
		t.Fatalf("DumpFramesToLimit failed: %v", err)
	}
	if got := fm.GetDumpedFieldCount(); got != 4 {
		t.Errorf("2 interlaced frames need 4 fields, got %d", got)
	}
	if got := frames.GetDumpedFrameCount(); got != 2 {
		t.Errorf("expected 2 complete frames, got %d", got)
	}

	frame, err := frames.ReadDumpedFrame(context.Background(), 1)
	if err != nil {
		t.Fatalf("ReadDumpedFrame failed: %v", err)
	}
	if want := 64 * 32 * BytesPerPixel; len(frame) != want {
		t.Fatalf("frame is %d bytes, want %d", len(frame), want)
	}

	// Frame 1 interleaves fields 2 (even rows) and 3 (odd rows). The
	// fake fills each field's bytes with its ring index.
	rowBytes := 64 * BytesPerPixel
	for row := 0; row < 32; row++ {
		want := byte(2 + row%2)
		if got := frame[row*rowBytes]; got != want {
			t.Errorf("row %d came from field %d, want field %d", row, got, want)
		}
	}

	if _, err := frames.GetFrameHashes(0, 2); err == nil {
		t.Errorf("frame hashes must be unsupported for interlaced sources")
	}

	histograms, err := frames.GetHistograms(0, 2)
	if err != nil {
		t.Fatalf("GetHistograms failed: %v", err)
	}
	if len(histograms) != 4 {
		t.Errorf("expected one histogram per field (4), got %d", len(histograms))
	}
}

func TestGetMaxFrameLimit(t *testing.T) {
	mode := &fakeMode{interlaced: true}
	fm, _, _, _ := newTestManager(1920, 540, mode, Options{})
	frames := NewFrameManager(fm, mode)

	fieldLimit := fm.GetMaxFieldLimit(1920, 540)
	if got := frames.GetMaxFrameLimit(1920, 1080); got != fieldLimit/2 {
		t.Errorf("interlaced frame limit %d, want %d", got, fieldLimit/2)
	}
}
