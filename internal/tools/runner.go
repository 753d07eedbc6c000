// Package tools invokes the board's external capture utilities: the
// pixeldump binary that copies raw pixel bytes out of FPGA-mapped memory,
// and the histogram binary that samples downscaled color statistics. Both
// are short-lived subprocesses; output is captured, not streamed.
package tools

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/smazurov/chameleond/internal/logging"
)

// CropRect is an optional crop rectangle passed to the pixeldump tool.
type CropRect struct {
	X, Y, Width, Height int
}

// Runner executes the external tools.
type Runner struct {
	pixeldumpBin string
	histogramBin string
	logger       logging.Logger
}

// NewRunner creates a Runner using the given binary paths.
func NewRunner(pixeldumpBin, histogramBin string) *Runner {
	return &Runner{
		pixeldumpBin: pixeldumpBin,
		histogramBin: histogramBin,
		logger:       logging.GetLogger("tools"),
	}
}

// DumpPixels reads one field's pixels from memory. With two base addresses
// the tool de-interleaves the dual-pixel paths and re-pairs columns itself.
func (r *Runner) DumpPixels(ctx context.Context, addrs []uint32, width, height, bytesPerPixel int, crop *CropRect) ([]byte, error) {
	args := make([]string, 0, 12)
	for _, a := range addrs {
		args = append(args, fmt.Sprintf("0x%x", a))
	}
	args = append(args,
		strconv.Itoa(width),
		strconv.Itoa(height),
		strconv.Itoa(bytesPerPixel))
	if crop != nil {
		args = append(args, "--crop",
			strconv.Itoa(crop.X), strconv.Itoa(crop.Y),
			strconv.Itoa(crop.Width), strconv.Itoa(crop.Height))
	}

	out, err := r.run(ctx, r.pixeldumpBin, args)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DumpPages copies count pages starting at addr to w. Used by the audio
// ring drain; addr must be page-granular.
func (r *Runner) DumpPages(ctx context.Context, addr uint32, count int, w io.Writer) error {
	args := []string{
		"--pages",
		fmt.Sprintf("0x%x", addr),
		strconv.Itoa(count),
	}
	out, err := r.run(ctx, r.pixeldumpBin, args)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// SampleHistograms runs the histogram tool against a list of field base
// offsets and returns one float vector per offset.
func (r *Runner) SampleHistograms(ctx context.Context, width, height, gridSize, samplesPerCell int, offsets []uint32) ([][]float64, error) {
	args := []string{
		strconv.Itoa(width),
		strconv.Itoa(height),
		strconv.Itoa(gridSize),
		strconv.Itoa(samplesPerCell),
	}
	for _, off := range offsets {
		args = append(args, fmt.Sprintf("0x%x", off))
	}

	out, err := r.run(ctx, r.histogramBin, args)
	if err != nil {
		return nil, err
	}

	vectors, err := parseFloatLines(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("histogram output: %w", err)
	}
	if len(vectors) != len(offsets) {
		return nil, fmt.Errorf("histogram output: got %d lines for %d offsets", len(vectors), len(offsets))
	}
	return vectors, nil
}

func (r *Runner) run(ctx context.Context, bin string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if stderr.Len() > 0 {
			r.logger.Error("tool failed", "bin", bin, "stderr", strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("%s: %w", bin, err)
	}
	return out, nil
}

// parseFloatLines parses whitespace-separated floats, one vector per line.
// Blank lines are skipped.
func parseFloatLines(r io.Reader) ([][]float64, error) {
	var vectors [][]float64
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		vec := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("bad float %q: %w", f, err)
			}
			vec[i] = v
		}
		vectors = append(vectors, vec)
	}
	return vectors, scanner.Err()
}
