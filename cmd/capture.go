// Package cmd holds the standalone subcommands of the daemon binary.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/smazurov/chameleond/internal/board"
	"github.com/smazurov/chameleond/internal/config"
	"github.com/smazurov/chameleond/internal/events"
	"github.com/smazurov/chameleond/internal/link"
	"github.com/smazurov/chameleond/internal/logging"
	"github.com/smazurov/chameleond/internal/video"
	"github.com/spf13/cobra"
)

// captureOptions mirrors the daemon's hardware configuration so the
// one-shot command reads the same TOML file.
type captureOptions struct {
	Config string

	DevMem          string `toml:"hardware.devmem" env:"HARDWARE_DEVMEM"`
	I2CAdapter      string `toml:"hardware.i2c_adapter" env:"HARDWARE_I2C_ADAPTER"`
	DPAddr          int    `toml:"hardware.dp_addr" env:"HARDWARE_DP_ADDR"`
	HDMIAddr        int    `toml:"hardware.hdmi_addr" env:"HARDWARE_HDMI_ADDR"`
	VGAAddr         int    `toml:"hardware.vga_addr" env:"HARDWARE_VGA_ADDR"`
	AudioRingPages  int    `toml:"hardware.audio_ring_pages" env:"HARDWARE_AUDIO_RING_PAGES"`
	PixeldumpBin    string `toml:"tools.pixeldump" env:"TOOLS_PIXELDUMP"`
	HistogramBin    string `toml:"tools.histogram" env:"TOOLS_HISTOGRAM"`
	StrictDualPixel bool   `toml:"capture.strict_dual_pixel" env:"CAPTURE_STRICT_DUAL_PIXEL"`
	VGAFormat       string `toml:"capture.vga_format" env:"CAPTURE_VGA_FORMAT"`
}

// CreateCaptureCmd creates the capture command: stabilize one port and
// dump a fixed number of frames to disk, without the HTTP server.
func CreateCaptureCmd() *cobra.Command {
	opts := captureOptions{
		DevMem:       "/dev/mem",
		I2CAdapter:   "/dev/i2c-1",
		DPAddr:       0x58,
		HDMIAddr:     0x48,
		VGAAddr:      0x4c,
		PixeldumpBin: "/usr/bin/pixeldump",
		HistogramBin: "/usr/bin/histogram",
	}
	var count int
	var outputDir string
	var timeoutSec float64
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "capture [port]",
		Short: "Capture frames from one port to disk",
		Long: `Stabilizes the named port (dp, hdmi or vga), captures the requested ` +
			`number of frames and writes each as raw bottom-up BGR to the output directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			portName := args[0]

			loggingConfig := logging.Config{Level: "info", Format: "text"}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("capture").With("port", portName)

			if err := config.Load(&opts, c); err != nil {
				logger.Warn("Failed to load config", "error", err)
			}

			id, err := portID(portName)
			if err != nil {
				return err
			}

			bus := events.New()
			hw, err := board.Assemble(board.HardwareConfig{
				DevMemPath:      opts.DevMem,
				I2CAdapterPath:  opts.I2CAdapter,
				DPAddr:          opts.DPAddr,
				HDMIAddr:        opts.HDMIAddr,
				VGAAddr:         opts.VGAAddr,
				PixeldumpBin:    opts.PixeldumpBin,
				HistogramBin:    opts.HistogramBin,
				AudioRingPages:  opts.AudioRingPages,
				VGAPinnedFormat: link.VGAFormat(opts.VGAFormat),
				StrictDualPixel: opts.StrictDualPixel,
			}, bus)
			if err != nil {
				return err
			}
			defer func() { _ = hw.Close() }()
			b := hw.Board

			ctx := c.Context()
			logger.Info("Stabilizing link")
			if err := b.Stabilize(ctx, id); err != nil {
				return fmt.Errorf("stabilize %s: %w", portName, err)
			}

			p, err := b.Port(id)
			if err != nil {
				return err
			}
			width, height, err := p.Frames.ComputeResolution()
			if err != nil {
				return err
			}
			logger.Info("Link locked", "width", width, "height", height)

			timeout := time.Duration(timeoutSec * float64(time.Second))
			if err := b.DumpFramesToLimit(ctx, id, count, video.FullField(), timeout); err != nil {
				return fmt.Errorf("dump frames: %w", err)
			}

			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return err
			}
			for i := 0; i < count; i++ {
				pixels, err := p.Frames.ReadDumpedFrame(ctx, i)
				if err != nil {
					return fmt.Errorf("read frame %d: %w", i, err)
				}
				name := filepath.Join(outputDir, fmt.Sprintf("frame-%03d-%dx%d.bgr", i, width, height))
				if err := os.WriteFile(name, pixels, 0o644); err != nil {
					return err
				}
				logger.Info("Wrote frame", "path", name, "bytes", len(pixels))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "chameleond.toml", "Path to configuration file")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of frames to capture")
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Output directory")
	cmd.Flags().Float64Var(&timeoutSec, "timeout", 5, "Capture timeout in seconds")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")

	return cmd
}

func portID(name string) (int, error) {
	switch name {
	case "dp":
		return board.PortDP, nil
	case "hdmi":
		return board.PortHDMI, nil
	case "vga":
		return board.PortVGA, nil
	}
	return 0, fmt.Errorf("unknown port %q (expected dp, hdmi or vga)", name)
}
