package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/chameleond/cmd"
	"github.com/smazurov/chameleond/internal/api"
	"github.com/smazurov/chameleond/internal/board"
	"github.com/smazurov/chameleond/internal/config"
	"github.com/smazurov/chameleond/internal/events"
	"github.com/smazurov/chameleond/internal/link"
	"github.com/smazurov/chameleond/internal/logging"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"chameleond.toml"`

	// Server settings
	Port string `help:"Address to listen on" short:"p" default:":9992" toml:"server.port" env:"SERVER_PORT"`

	// Hardware settings
	DevMem         string `help:"Physical memory device node" default:"/dev/mem" toml:"hardware.devmem" env:"HARDWARE_DEVMEM"`
	I2CAdapter     string `help:"I2C adapter device node" default:"/dev/i2c-1" toml:"hardware.i2c_adapter" env:"HARDWARE_I2C_ADAPTER"`
	DPAddr         int    `help:"DP receiver I2C address" default:"88" toml:"hardware.dp_addr" env:"HARDWARE_DP_ADDR"`
	HDMIAddr       int    `help:"HDMI receiver I2C address" default:"72" toml:"hardware.hdmi_addr" env:"HARDWARE_HDMI_ADDR"`
	VGAAddr        int    `help:"VGA receiver I2C address" default:"76" toml:"hardware.vga_addr" env:"HARDWARE_VGA_ADDR"`
	AudioRingPages int    `help:"Audio ring depth in pages" default:"4096" toml:"hardware.audio_ring_pages" env:"HARDWARE_AUDIO_RING_PAGES"`

	// Tool settings
	PixeldumpBin string `help:"Pixel dump helper binary" default:"/usr/bin/pixeldump" toml:"tools.pixeldump" env:"TOOLS_PIXELDUMP"`
	HistogramBin string `help:"Histogram helper binary" default:"/usr/bin/histogram" toml:"tools.histogram" env:"TOOLS_HISTOGRAM"`

	// Capture settings
	StrictDualPixel bool   `help:"Fail capture setup when pixel paths disagree on resolution" default:"false" toml:"capture.strict_dual_pixel" env:"CAPTURE_STRICT_DUAL_PIXEL"`
	VGAFormat       string `help:"Pin the VGA input format (e.g. 1024x768), auto-detect when empty" default:"" toml:"capture.vga_format" env:"CAPTURE_VGA_FORMAT"`

	// Logging settings
	LoggingLevel  string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingFPGA   string `help:"FPGA logging level" default:"info" toml:"logging.fpga" env:"LOGGING_FPGA"`
	LoggingVideo  string `help:"Video capture logging level" default:"info" toml:"logging.video" env:"LOGGING_VIDEO"`
	LoggingLink   string `help:"Link FSM logging level" default:"info" toml:"logging.link" env:"LOGGING_LINK"`
	LoggingAudio  string `help:"Audio capture logging level" default:"info" toml:"logging.audio" env:"LOGGING_AUDIO"`
	LoggingBoard  string `help:"Board logging level" default:"info" toml:"logging.board" env:"LOGGING_BOARD"`
	LoggingAPI    string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingConfig string `help:"Config logging level" default:"info" toml:"logging.config" env:"LOGGING_CONFIG"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.Load(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"fpga":   opts.LoggingFPGA,
				"video":  opts.LoggingVideo,
				"link":   opts.LoggingLink,
				"audio":  opts.LoggingAudio,
				"board":  opts.LoggingBoard,
				"api":    opts.LoggingAPI,
				"config": opts.LoggingConfig,
			},
		})
		logger := logging.GetLogger("main")

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
			logger.Error("Failed to open capture hardware", "error", err)
			os.Exit(1)
		}

		server := api.NewServer(hw.Board, opts.Port)

		// Hot-reload logging levels when the config file changes.
		watcher := config.NewWatcher(opts.Config, func(path string) (logging.Config, error) {
			return config.LoadLogging(path), nil
		})
		watcher.OnReload(func(cfg logging.Config) {
			logger.Info("Reloading logging configuration")
			logging.Reconfigure(cfg)
		})

		hooks.OnStart(func() {
			if startErr := watcher.Start(); startErr != nil {
				logger.Warn("Config watcher unavailable, hot-reload disabled", "error", startErr)
			}
			logger.Info("Starting HTTP server", "addr", opts.Port)
			if startErr := server.Start(); startErr != nil {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			_ = watcher.Stop()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if stopErr := server.Shutdown(ctx); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			if stopErr := hw.Close(); stopErr != nil {
				logger.Error("Error closing hardware", "error", stopErr)
			}
		})
	})

	cli.Root().AddCommand(cmd.CreateCaptureCmd())

	cli.Run()
}
