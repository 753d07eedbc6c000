// Package audio drains the hardware audio ring buffer to a WAV file in
// the background. The dumper hardware never stalls, so the drain worker
// must stay ahead of it; an imminent overwrite is detected one period
// before data would be lost and aborts the capture.
package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/smazurov/chameleond/internal/events"
	"github.com/smazurov/chameleond/internal/fpga"
	"github.com/smazurov/chameleond/internal/logging"
	"github.com/smazurov/chameleond/internal/metrics"
)

// Capture format of the audio dumper: interleaved signed 32-bit LE
// stereo at 48 kHz.
const (
	sampleRate  = 48000
	bitDepth    = 32
	numChannels = 2
)

const drainPeriod = time.Second

// PageDumper copies whole ring pages out of FPGA-mapped memory, satisfied
// by *tools.Runner.
type PageDumper interface {
	DumpPages(ctx context.Context, addr uint32, count int, w io.Writer) error
}

// OverflowError reports that the ring was about to be (or was)
// overwritten before the drain caught up. Fatal: it signals a mismatch
// between ring size and consumption rate, not a transient.
type OverflowError struct {
	BufferedPages int
	RingPages     int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("audio ring overflow: %d pages buffered, capacity %d", e.BufferedPages, e.RingPages)
}

// ringCursor tracks three monotonically increasing page counters. The
// two-period-old counter bounds the pages that may still be unread in the
// ring; by checking against it the worker notices an overflow one full
// period before the hardware actually overwrites unread data.
type ringCursor struct {
	current       int64
	onePeriodOld  int64
	twoPeriodsOld int64
}

// roll advances the cursor window after a successful drain to current.
func (c *ringCursor) roll(current int64) {
	c.twoPeriodsOld = c.onePeriodOld
	c.onePeriodOld = c.current
	c.current = current
}

// MemoryDumper is the background worker draining the audio ring.
type MemoryDumper struct {
	unit   *fpga.AudioDumpUnit
	pages  PageDumper
	bus    *events.Bus
	logger logging.Logger

	mu      sync.Mutex
	cursor  ringCursor
	file    *os.File
	encoder *wav.Encoder
	path    string
	cancel  context.CancelFunc
	done    chan struct{}
	fatal   error
}

// NewMemoryDumper creates a dumper for the audio ring.
func NewMemoryDumper(unit *fpga.AudioDumpUnit, pages PageDumper, bus *events.Bus) *MemoryDumper {
	return &MemoryDumper{
		unit:   unit,
		pages:  pages,
		bus:    bus,
		logger: logging.GetLogger("audio"),
	}
}

// Start begins capture to a WAV file at path and spawns the drain worker.
// An empty path captures to a temp file. Starting while a capture is
// active is an error.
func (d *MemoryDumper) Start(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done != nil {
		return fmt.Errorf("audio capture already in progress to %s", d.path)
	}

	var file *os.File
	var err error
	if path == "" {
		file, err = os.CreateTemp("", "audio-*.wav")
	} else {
		file, err = os.Create(path)
	}
	if err != nil {
		return err
	}
	path = file.Name()
	d.file = file
	d.encoder = wav.NewEncoder(file, sampleRate, bitDepth, numChannels, 1)
	d.path = path
	d.cursor = ringCursor{}
	d.fatal = nil

	if err := d.unit.Start(); err != nil {
		file.Close()
		os.Remove(path)
		d.file = nil
		d.encoder = nil
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})
	go d.drainLoop(ctx)
	d.logger.Info("audio capture started", "path", path, "ring_pages", d.unit.RingPages())
	return nil
}

// Stop terminates and joins the worker, drains the tail, halts the
// hardware, and finalizes the WAV header. It returns the output path and
// any fatal error the worker hit (OverflowError included).
func (d *MemoryDumper) Stop() (string, error) {
	d.mu.Lock()
	if d.done == nil {
		d.mu.Unlock()
		return "", fmt.Errorf("no audio capture in progress")
	}
	cancel, done := d.cancel, d.done
	d.mu.Unlock()

	cancel()
	<-done

	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancel = nil
	d.done = nil

	if d.fatal == nil {
		// Pick up whatever landed in the ring since the last period.
		if err := d.drainOnce(context.Background()); err != nil {
			d.fatal = err
		}
	}
	if err := d.unit.Stop(); err != nil && d.fatal == nil {
		d.fatal = err
	}
	if err := d.encoder.Close(); err != nil && d.fatal == nil {
		d.fatal = err
	}
	if err := d.file.Close(); err != nil && d.fatal == nil {
		d.fatal = err
	}
	d.file = nil
	d.encoder = nil

	d.logger.Info("audio capture stopped", "path", d.path, "pages", d.cursor.current, "error", d.fatal)
	return d.path, d.fatal
}

// drainLoop runs until cancelled or a fatal error.
func (d *MemoryDumper) drainLoop(ctx context.Context) {
	defer close(d.done)
	ticker := time.NewTicker(drainPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		d.mu.Lock()
		err := d.drainOnce(ctx)
		if err != nil {
			d.fatal = err
		}
		d.mu.Unlock()
		if err != nil {
			d.logger.Error("audio drain failed", "error", err)
			return
		}
	}
}

// drainOnce processes one period: read the page counter, check for
// regression and imminent overflow, then drain the new pages. The
// overflow check runs before any byte is appended; a period that would
// overwrite unread data produces no partial output. Caller holds mu.
func (d *MemoryDumper) drainOnce(ctx context.Context) error {
	count, err := d.unit.PageCount()
	if err != nil {
		return err
	}
	current := int64(count)

	delta := current - d.cursor.current
	if delta == 0 {
		return nil
	}
	if delta < 0 {
		return fmt.Errorf("audio page counter went backwards: %d -> %d", d.cursor.current, current)
	}

	ringPages := int64(d.unit.RingPages())
	if buffered := current - d.cursor.twoPeriodsOld; buffered > ringPages {
		metrics.AudioOverflow()
		if d.bus != nil {
			d.bus.Publish(events.AudioOverflowEvent{
				BufferedPages: int(buffered),
				RingPages:     int(ringPages),
				Timestamp:     time.Now().UTC().Format(time.RFC3339),
			})
		}
		return &OverflowError{BufferedPages: int(buffered), RingPages: int(ringPages)}
	}

	if err := d.drainRange(ctx, d.cursor.current, current, ringPages); err != nil {
		return err
	}
	metrics.AudioPagesDrained(int(delta))
	d.cursor.roll(current)
	return nil
}

// drainRange copies pages [from, to) out of the ring, splitting into two
// tool calls when the physical range wraps past the end.
func (d *MemoryDumper) drainRange(ctx context.Context, from, to, ringPages int64) error {
	var raw bytes.Buffer
	for from < to {
		slot := from % ringPages
		count := to - from
		if slot+count > ringPages {
			count = ringPages - slot
		}
		addr := d.unit.BufferBase() + uint32(slot)*fpga.PageSize
		if err := d.pages.DumpPages(ctx, addr, int(count), &raw); err != nil {
			return err
		}
		from += count
	}
	return d.appendSamples(raw.Bytes())
}

// appendSamples converts raw little-endian PCM to the encoder's buffer
// format and appends it to the WAV output.
func (d *MemoryDumper) appendSamples(raw []byte) error {
	samples := make([]int, len(raw)/4)
	for i := range samples {
		samples[i] = int(int32(binary.LittleEndian.Uint32(raw[i*4:])))
	}
	return d.encoder.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: numChannels, SampleRate: sampleRate},
		SourceBitDepth: bitDepth,
		Data:           samples,
	})
}
