package video

import (
	"context"
	"fmt"
	"time"

	"github.com/smazurov/chameleond/internal/fpga"
	"github.com/smazurov/chameleond/internal/logging"
	"github.com/smazurov/chameleond/internal/metrics"
	"github.com/smazurov/chameleond/internal/tools"
)

// The hardware advances the field counter at the source's field rate, so
// polling faster than twice 60 Hz gains nothing.
const pollPeriod = time.Second / 120

// BytesPerPixel is the dumper's fixed raw pixel format (RGB, 8 bits per
// channel).
const BytesPerPixel = 3

// DumpUnit is the register-level surface of one hardware dumper,
// satisfied by *fpga.VideoDumpUnit.
type DumpUnit interface {
	Name() string
	Start(loop bool) error
	Stop() error
	SetLimit(fields int) error
	SetCrop(x, y, w, h int) error
	ClearCrop() error
	Resolution() (width, height int, err error)
	FieldCount() (uint32, error)
	FieldHash(index int) ([4]uint16, error)
	BufferBase() uint32
	BufferSize() uint32
	RegisterSnapshot() fpga.RegisterSnapshot
}

// PixelTool reads raw pixels out of FPGA-mapped memory.
type PixelTool interface {
	DumpPixels(ctx context.Context, addrs []uint32, width, height, bytesPerPixel int, crop *tools.CropRect) ([]byte, error)
}

// HistogramTool samples color histograms of dumped fields.
type HistogramTool interface {
	SampleHistograms(ctx context.Context, width, height, gridSize, samplesPerCell int, offsets []uint32) ([][]float64, error)
}

// PixelMode reports the link state the capture path depends on. Mutated
// only by the link FSM; read here to choose the active dump units.
type PixelMode interface {
	DualPixel() bool
	Interlaced() bool
}

// Options tunes FieldManager behavior.
type Options struct {
	// StrictDualPixel escalates a resolution disagreement between the
	// two pixel paths to an error instead of a warning.
	StrictDualPixel bool
}

// FieldManager drives one or two dump units as a single logical capture
// path and owns the per-port capture session.
type FieldManager struct {
	port      string
	primary   DumpUnit
	secondary DumpUnit
	mode      PixelMode
	pixels    PixelTool
	histo     HistogramTool
	opts      Options
	logger    logging.Logger

	session *session
}

// NewFieldManager creates a capture path for port over the two dump
// units. All exported methods must be called from the port's RPC
// dispatcher thread; only the monitor worker runs concurrently.
func NewFieldManager(port string, primary, secondary DumpUnit, mode PixelMode, pixels PixelTool, histo HistogramTool, opts Options) *FieldManager {
	return &FieldManager{
		port:      port,
		primary:   primary,
		secondary: secondary,
		mode:      mode,
		pixels:    pixels,
		histo:     histo,
		opts:      opts,
		logger:    logging.GetLogger("video").With("port", port),
	}
}

// activeUnits returns the dump units the current pixel mode drives.
func (f *FieldManager) activeUnits() []DumpUnit {
	if f.mode.DualPixel() {
		return []DumpUnit{f.primary, f.secondary}
	}
	return []DumpUnit{f.primary}
}

// Resolution returns the field resolution the FPGA is seeing; in dual
// mode the two paths each carry half the width.
func (f *FieldManager) Resolution() (width, height int, err error) {
	w, h, err := f.primary.Resolution()
	if err != nil {
		return 0, 0, err
	}
	if f.mode.DualPixel() {
		sw, sh, err := f.secondary.Resolution()
		if err != nil {
			return 0, 0, err
		}
		if sw != w || sh != h {
			if f.opts.StrictDualPixel {
				return 0, 0, fmt.Errorf("pixel paths disagree: primary %dx%d, secondary %dx%d", w, h, sw, sh)
			}
			f.logger.Warn("pixel paths disagree on resolution",
				"primary_width", w, "primary_height", h,
				"secondary_width", sw, "secondary_height", sh)
		}
		w *= 2
	}
	return w, h, nil
}

// alignedFieldSize returns the page-aligned byte size of one field on one
// path for the given full-field width.
func alignedFieldSize(width, height int, dualPixel bool) uint32 {
	if dualPixel {
		width /= 2
	}
	size := uint32(width * height * BytesPerPixel)
	if rem := size % fpga.PageSize; rem != 0 {
		size += fpga.PageSize - rem
	}
	return size
}

// GetMaxFieldLimit returns the number of fields of the given resolution
// the ring can hold.
func (f *FieldManager) GetMaxFieldLimit(width, height int) int {
	size := alignedFieldSize(width, height, f.mode.DualPixel())
	if size == 0 {
		return 0
	}
	return int(f.primary.BufferSize() / size)
}

// startSession tears down any prior session and programs the hardware for
// a new dump. The prior monitor worker, if any, is forcibly stopped and
// joined first; no two workers may drive the same dump units.
func (f *FieldManager) startSession(window Window, fieldLimit, hashLimit int, loop bool) (*session, error) {
	f.teardown()

	width, height, err := f.Resolution()
	if err != nil {
		return nil, err
	}
	dual := f.mode.DualPixel()

	resolved, err := window.resolve(width, height, BytesPerPixel, dual)
	if err != nil {
		return nil, err
	}

	maxFields := f.GetMaxFieldLimit(resolved.Width, resolved.Height)
	if maxFields == 0 {
		return nil, fmt.Errorf("field %dx%d exceeds ring capacity", resolved.Width, resolved.Height)
	}
	if fieldLimit > maxFields {
		return nil, fmt.Errorf("field limit %d exceeds ring capacity %d", fieldLimit, maxFields)
	}

	s := &session{
		window:      resolved,
		fieldWidth:  resolved.Width,
		fieldHeight: resolved.Height,
		dualPixel:   dual,
		alignedSize: alignedFieldSize(resolved.Width, resolved.Height, dual),
		maxFields:   maxFields,
		units:       f.activeUnits(),
		hashLimit:   hashLimit,
		hashes:      make([]FieldHash, hashLimit),
		histograms:  make([]Histogram, hashLimit),
	}

	for _, u := range s.units {
		if err := f.program(u, s, fieldLimit, width, height); err != nil {
			return nil, err
		}
	}
	for _, u := range s.units {
		if err := u.Start(loop); err != nil {
			return nil, err
		}
	}

	f.session = s
	return s, nil
}

// program writes one unit's window and limit registers. Crop coordinates
// are per path: in dual mode each path carries every other pixel, so x
// and width halve.
func (f *FieldManager) program(u DumpUnit, s *session, fieldLimit, fullWidth, fullHeight int) error {
	if err := u.SetLimit(fieldLimit); err != nil {
		return err
	}
	w := s.window
	if w.X == 0 && w.Y == 0 && w.Width == fullWidth && w.Height == fullHeight {
		return u.ClearCrop()
	}
	x, width := w.X, w.Width
	if s.dualPixel {
		x /= 2
		width /= 2
	}
	return u.SetCrop(x, w.Y, width, w.Height)
}

// teardown forcibly ends the current session: stop and join the monitor
// worker if one is running, then halt the dumpers. The units stopped are
// the ones the session started, not the ones the live pixel mode would
// pick; the mode may have flipped since.
func (f *FieldManager) teardown() {
	if f.session == nil {
		return
	}
	if f.session.worker != nil {
		f.session.worker.stop()
		f.session.worker = nil
	}
	for _, u := range f.session.units {
		if err := u.Stop(); err != nil {
			f.logger.Warn("failed to stop dump unit", "unit", u.Name(), "error", err)
		}
	}
}

// EndSession destroys the current capture session, if any: the monitor
// worker is forcibly stopped and joined, the session's dump units halted,
// and all saved results discarded. Called when another port takes over
// the shared dump units or the input is re-selected.
func (f *FieldManager) EndSession() {
	f.teardown()
	f.session = nil
}

// DumpFieldsToLimit captures exactly limit fields synchronously, hashing
// and histogramming each as it completes. The caller blocks until the
// limit is reached or timeout elapses; on timeout the error carries a
// register dump.
func (f *FieldManager) DumpFieldsToLimit(ctx context.Context, limit int, window Window, timeout time.Duration) error {
	if limit <= 0 {
		return fmt.Errorf("field limit must be positive, got %d", limit)
	}
	s, err := f.startSession(window, limit, limit, false)
	if err != nil {
		return err
	}
	defer func() {
		for _, u := range s.units {
			if err := u.Stop(); err != nil {
				f.logger.Warn("failed to stop dump unit", "unit", u.Name(), "error", err)
			}
		}
	}()

	deadline := time.Now().Add(timeout)
	for s.observed() < limit {
		if time.Now().After(deadline) {
			metrics.CaptureTimeout(f.port)
			return &fpga.TimeoutError{
				Op:        fmt.Sprintf("%d fields on %s", limit, f.port),
				Registers: registerSnapshot(s.units),
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f.pollOnce(ctx, s); err != nil {
			return err
		}
		time.Sleep(pollPeriod)
	}
	f.logger.Info("dump complete", "fields", limit)
	return nil
}

// StartDumpingFields begins continuous looped capture and returns
// immediately. A detached monitor worker hashes fields as they complete,
// up to hashLimit, then exits on its own; the hardware keeps looping
// until StopDumpingFields.
func (f *FieldManager) StartDumpingFields(bufferLimit int, window Window, hashLimit int) error {
	if bufferLimit <= 0 || hashLimit <= 0 {
		return fmt.Errorf("limits must be positive, got buffer %d hash %d", bufferLimit, hashLimit)
	}
	s, err := f.startSession(window, bufferLimit, hashLimit, true)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.worker = newMonitor(cancel)
	go f.monitorFields(ctx, s)
	f.logger.Info("continuous dump started", "buffer_limit", bufferLimit, "hash_limit", hashLimit)
	return nil
}

// monitorFields is the detached worker loop behind StartDumpingFields.
func (f *FieldManager) monitorFields(ctx context.Context, s *session) {
	defer close(s.worker.done)
	for s.observed() < s.hashLimit {
		select {
		case <-ctx.Done():
			return
		case <-time.After(pollPeriod):
		}
		if err := f.pollOnce(ctx, s); err != nil {
			if ctx.Err() == nil {
				f.logger.Error("monitor worker failed", "error", err)
			}
			return
		}
	}
	f.logger.Debug("monitor worker reached hash limit", "fields", s.observed())
}

// StopDumpingFields forcibly terminates and joins the monitor worker,
// then halts the dumpers. Stopping with no active continuous session is
// an error.
func (f *FieldManager) StopDumpingFields() error {
	if f.session == nil || f.session.worker == nil {
		return fmt.Errorf("no continuous dump in progress on %s", f.port)
	}
	f.session.worker.stop()
	f.session.worker = nil
	for _, u := range f.session.units {
		if err := u.Stop(); err != nil {
			return err
		}
	}
	f.logger.Info("continuous dump stopped", "fields", f.session.observed())
	return nil
}

// pollOnce reads the hardware field counter and hashes/histograms every
// newly completed field. Single writer of session results.
func (f *FieldManager) pollOnce(ctx context.Context, s *session) error {
	count, err := f.primary.FieldCount()
	if err != nil {
		return err
	}
	completed := int(count)
	if completed > s.hashLimit {
		completed = s.hashLimit
	}
	newFields := completed - s.observed()
	for i := s.observed(); i < completed; i++ {
		hash, err := f.fieldHash(s, i)
		if err != nil {
			return err
		}
		histogram, err := f.fieldHistogram(ctx, s, i)
		if err != nil {
			return err
		}
		s.record(i, hash, histogram)
	}
	if newFields > 0 {
		metrics.FieldsCaptured(f.port, newFields)
	}
	return nil
}

// fieldHash reads the content hash for field index, combining the two
// per-path hashes when the session captures in dual mode.
func (f *FieldManager) fieldHash(s *session, index int) (FieldHash, error) {
	odd, err := f.primary.FieldHash(index)
	if err != nil {
		return FieldHash{}, err
	}
	if !s.dualPixel {
		return FieldHash(odd), nil
	}
	even, err := f.secondary.FieldHash(index)
	if err != nil {
		return FieldHash{}, err
	}
	return combineDualHash(odd, even), nil
}

// fieldHistogram samples the histogram for field index via the external
// tool.
func (f *FieldManager) fieldHistogram(ctx context.Context, s *session, index int) (Histogram, error) {
	width := s.fieldWidth
	if s.dualPixel {
		width /= 2
	}
	vectors, err := f.histo.SampleHistograms(ctx, width, s.fieldHeight,
		histogramGridSize, histogramSamples, []uint32{f.fieldAddress(f.primary, s, index)})
	if err != nil {
		return nil, err
	}
	if len(vectors[0]) != histogramLen {
		return nil, fmt.Errorf("histogram has %d values, want %d", len(vectors[0]), histogramLen)
	}
	return Histogram(vectors[0]), nil
}

// fieldAddress computes the physical address of field index in a unit's
// ring.
func (f *FieldManager) fieldAddress(u DumpUnit, s *session, index int) uint32 {
	return u.BufferBase() + uint32(index%s.maxFields)*s.alignedSize
}

// GetDumpedFieldCount returns the number of fields hashed so far.
func (f *FieldManager) GetDumpedFieldCount() int {
	if f.session == nil {
		return 0
	}
	return f.session.observed()
}

// GetFieldHashes returns the saved hashes for fields [start, stop).
func (f *FieldManager) GetFieldHashes(start, stop int) ([]FieldHash, error) {
	s, err := f.checkRange(start, stop)
	if err != nil {
		return nil, err
	}
	out := make([]FieldHash, stop-start)
	copy(out, s.hashes[start:stop])
	return out, nil
}

// GetHistograms returns the saved histograms for fields [start, stop).
func (f *FieldManager) GetHistograms(start, stop int) ([]Histogram, error) {
	s, err := f.checkRange(start, stop)
	if err != nil {
		return nil, err
	}
	out := make([]Histogram, stop-start)
	copy(out, s.histograms[start:stop])
	return out, nil
}

// checkRange validates a query range against the last observed field.
func (f *FieldManager) checkRange(start, stop int) (*session, error) {
	s := f.session
	if s == nil {
		return nil, fmt.Errorf("no capture session on %s", f.port)
	}
	if start < 0 || start >= stop {
		return nil, fmt.Errorf("invalid field range [%d, %d)", start, stop)
	}
	if observed := s.observed(); stop > observed {
		return nil, fmt.Errorf("field range [%d, %d) beyond last observed field %d", start, stop, observed)
	}
	return s, nil
}

// ReadDumpedField reads back the raw pixels of field index from the ring.
// In dual mode the read splits across the two paths and the pixel tool
// re-pairs the columns.
func (f *FieldManager) ReadDumpedField(ctx context.Context, index int) ([]byte, error) {
	s, err := f.checkRange(index, index+1)
	if err != nil {
		return nil, err
	}
	addrs := []uint32{f.fieldAddress(f.primary, s, index)}
	width := s.fieldWidth
	if s.dualPixel {
		addrs = append(addrs, f.fieldAddress(f.secondary, s, index))
		width /= 2
	}
	data, err := f.pixels.DumpPixels(ctx, addrs, width, s.fieldHeight, BytesPerPixel, nil)
	if err != nil {
		return nil, err
	}
	if want := s.fieldWidth * s.fieldHeight * BytesPerPixel; len(data) != want {
		return nil, fmt.Errorf("field %d read %d bytes, want %d", index, len(data), want)
	}
	return data, nil
}

// FieldGeometry returns the resolved field dimensions of the current
// session.
func (f *FieldManager) FieldGeometry() (width, height int, err error) {
	if f.session == nil {
		return 0, 0, fmt.Errorf("no capture session on %s", f.port)
	}
	return f.session.fieldWidth, f.session.fieldHeight, nil
}

// registerSnapshot merges the given units' register dumps.
func registerSnapshot(units []DumpUnit) fpga.RegisterSnapshot {
	snap := fpga.RegisterSnapshot{}
	for _, u := range units {
		for k, v := range u.RegisterSnapshot() {
			snap[k] = v
		}
	}
	return snap
}
