package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

const historySize = 2000

// Logger is a duck-typed interface satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config controls the global level, output format, and per-module levels.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

var (
	mu            sync.RWMutex
	cfg           Config
	initialized   bool
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevels  = make(map[string]*slog.LevelVar)
	history       = NewRingBuffer(historySize)
)

// Initialize applies config and rebuilds all module loggers. Safe to call
// again with new config.
func Initialize(config Config) {
	mu.Lock()
	defer mu.Unlock()

	cfg = config
	initialized = true

	for module, levelVar := range moduleLevels {
		levelVar.Set(moduleLevel(module))
		moduleLoggers[module] = slog.New(newHandler(cfg.Format, levelVar)).With("module", module)
	}

	global := &slog.LevelVar{}
	global.Set(moduleLevel(""))
	slog.SetDefault(slog.New(newHandler(cfg.Format, global)))
}

// Reconfigure re-applies levels without rebuilding handlers. Used for
// runtime level changes from the config watcher.
func Reconfigure(config Config) {
	mu.Lock()
	defer mu.Unlock()
	cfg = config
	for module, levelVar := range moduleLevels {
		levelVar.Set(moduleLevel(module))
	}
}

// History returns the ring buffer of recent log entries, serving the
// daemon's log readback call.
func History() *RingBuffer {
	return history
}

// GetLogger returns the named module logger, creating it on first use.
func GetLogger(module string) *slog.Logger {
	mu.RLock()
	if l, ok := moduleLoggers[module]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := moduleLoggers[module]; ok {
		return l
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(moduleLevel(module))

	format := cfg.Format
	if !initialized {
		format = "text"
	}
	l := slog.New(newHandler(format, levelVar)).With("module", module)
	moduleLoggers[module] = l
	moduleLevels[module] = levelVar
	return l
}

// moduleLevel resolves the effective level for a module under the current
// config. Caller holds mu.
func moduleLevel(module string) slog.Level {
	level := slog.LevelInfo
	if parsed, ok := parseLevel(cfg.Level); ok {
		level = parsed
	}
	if s, ok := cfg.Modules[module]; ok {
		if parsed, ok := parseLevel(s); ok {
			level = parsed
		}
	}
	return level
}

// newHandler builds the handler chain: stdout (text or json), journal when
// running under systemd, and the history buffer.
func newHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdout slog.Handler
	if format == "json" {
		stdout = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdout = slog.NewTextHandler(os.Stdout, opts)
	}

	handlers := []slog.Handler{stdout}
	if journalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}
	handlers = append(handlers, NewBufferHandler(history, level))

	return NewMultiHandler(handlers...)
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
