package video

import (
	"context"
	"fmt"
	"time"
)

// FrameManager translates frame-level requests into field-level ones. For
// progressive sources a frame is a field; for interlaced sources a frame
// is two fields with interleaved scanlines.
type FrameManager struct {
	fields *FieldManager
	mode   PixelMode
}

// NewFrameManager wraps a FieldManager.
func NewFrameManager(fields *FieldManager, mode PixelMode) *FrameManager {
	return &FrameManager{fields: fields, mode: mode}
}

// ComputeResolution returns the frame resolution: the field resolution,
// with height doubled for interlaced sources.
func (m *FrameManager) ComputeResolution() (width, height int, err error) {
	width, height, err = m.fields.Resolution()
	if err != nil {
		return 0, 0, err
	}
	if m.mode.Interlaced() {
		height *= 2
	}
	return width, height, nil
}

// GetMaxFrameLimit returns how many frames of the given resolution the
// ring can hold.
func (m *FrameManager) GetMaxFrameLimit(width, height int) int {
	if m.mode.Interlaced() {
		return m.fields.GetMaxFieldLimit(width, height/2) / 2
	}
	return m.fields.GetMaxFieldLimit(width, height)
}

// toFieldParams converts frame geometry to field geometry. For interlaced
// sources the vertical crop must land on field boundaries.
func (m *FrameManager) toFieldParams(limit int, window Window) (int, Window, error) {
	if !m.mode.Interlaced() {
		return limit, window, nil
	}
	if !window.Full {
		if window.Y%2 != 0 || window.Height%2 != 0 {
			return 0, Window{}, fmt.Errorf("interlaced crop y %d and height %d must be even", window.Y, window.Height)
		}
		window.Y /= 2
		window.Height /= 2
	}
	return limit * 2, window, nil
}

// DumpFramesToLimit captures exactly limit frames synchronously.
func (m *FrameManager) DumpFramesToLimit(ctx context.Context, limit int, window Window, timeout time.Duration) error {
	fieldLimit, fieldWindow, err := m.toFieldParams(limit, window)
	if err != nil {
		return err
	}
	return m.fields.DumpFieldsToLimit(ctx, fieldLimit, fieldWindow, timeout)
}

// StartDumpingFrames begins continuous frame capture.
func (m *FrameManager) StartDumpingFrames(bufferLimit int, window Window, hashLimit int) error {
	fieldBuffer, fieldWindow, err := m.toFieldParams(bufferLimit, window)
	if err != nil {
		return err
	}
	fieldHashes := hashLimit
	if m.mode.Interlaced() {
		fieldHashes *= 2
	}
	return m.fields.StartDumpingFields(fieldBuffer, fieldWindow, fieldHashes)
}

// StopDumpingFrames stops a continuous capture.
func (m *FrameManager) StopDumpingFrames() error {
	return m.fields.StopDumpingFields()
}

// GetDumpedFrameCount returns the number of complete frames captured.
func (m *FrameManager) GetDumpedFrameCount() int {
	count := m.fields.GetDumpedFieldCount()
	if m.mode.Interlaced() {
		return count / 2
	}
	return count
}

// ReadDumpedFrame reads back frame index. Interlaced frames are
// reconstructed by interleaving the scanlines of fields 2i (even lines)
// and 2i+1 (odd lines).
func (m *FrameManager) ReadDumpedFrame(ctx context.Context, index int) ([]byte, error) {
	if !m.mode.Interlaced() {
		return m.fields.ReadDumpedField(ctx, index)
	}

	even, err := m.fields.ReadDumpedField(ctx, 2*index)
	if err != nil {
		return nil, err
	}
	odd, err := m.fields.ReadDumpedField(ctx, 2*index+1)
	if err != nil {
		return nil, err
	}

	width, height, err := m.fields.FieldGeometry()
	if err != nil {
		return nil, err
	}
	rowBytes := width * BytesPerPixel
	frame := make([]byte, len(even)+len(odd))
	for row := 0; row < height; row++ {
		copy(frame[(2*row)*rowBytes:], even[row*rowBytes:(row+1)*rowBytes])
		copy(frame[(2*row+1)*rowBytes:], odd[row*rowBytes:(row+1)*rowBytes])
	}
	return frame, nil
}

// GetFrameHashes returns the saved hashes for frames [start, stop).
// Unsupported for interlaced sources: the per-field hashes do not
// compose into a frame hash.
func (m *FrameManager) GetFrameHashes(start, stop int) ([]FieldHash, error) {
	if m.mode.Interlaced() {
		return nil, fmt.Errorf("frame hashes are not supported for interlaced sources")
	}
	return m.fields.GetFieldHashes(start, stop)
}

// GetHistograms returns the saved histograms for frames [start, stop).
func (m *FrameManager) GetHistograms(start, stop int) ([]Histogram, error) {
	if m.mode.Interlaced() {
		start *= 2
		stop *= 2
	}
	return m.fields.GetHistograms(start, stop)
}
