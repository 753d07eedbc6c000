package config

import (
	"os"
	"path/filepath"
	"testing"
)

// testOptions mirrors the daemon options shape.
type testOptions struct {
	Config string

	Port       string `toml:"server.port" env:"SERVER_PORT"`
	DevMem     string `toml:"hardware.devmem" env:"HARDWARE_DEVMEM"`
	DPAddr     int    `toml:"hardware.dp_addr" env:"HARDWARE_DP_ADDR"`
	StrictDual bool   `toml:"capture.strict_dual_pixel" env:"CAPTURE_STRICT_DUAL_PIXEL"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chameleond.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadFromTOML(t *testing.T) {
	path := writeConfig(t, `
[server]
port = ":9000"

[hardware]
devmem = "/dev/fake-mem"
dp_addr = 90

[capture]
strict_dual_pixel = true
`)

	opts := &testOptions{Config: path}
	if err := Load(opts, nil); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if opts.Port != ":9000" {
		t.Errorf("Port = %q, want :9000", opts.Port)
	}
	if opts.DevMem != "/dev/fake-mem" {
		t.Errorf("DevMem = %q, want /dev/fake-mem", opts.DevMem)
	}
	if opts.DPAddr != 90 {
		t.Errorf("DPAddr = %d, want 90", opts.DPAddr)
	}
	if !opts.StrictDual {
		t.Errorf("StrictDual = false, want true")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CHAMELEOND_SERVER_PORT", ":9500")
	t.Setenv("CHAMELEOND_HARDWARE_DP_ADDR", "100")
	t.Setenv("CHAMELEOND_CAPTURE_STRICT_DUAL_PIXEL", "true")

	opts := &testOptions{}
	if err := Load(opts, nil); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if opts.Port != ":9500" {
		t.Errorf("Port = %q, want :9500", opts.Port)
	}
	if opts.DPAddr != 100 {
		t.Errorf("DPAddr = %d, want 100", opts.DPAddr)
	}
	if !opts.StrictDual {
		t.Errorf("StrictDual = false, want true")
	}
}

func TestEnvOverridesTOML(t *testing.T) {
	path := writeConfig(t, `
[server]
port = ":9000"
`)
	t.Setenv("CHAMELEOND_SERVER_PORT", ":9500")

	opts := &testOptions{Config: path}
	if err := Load(opts, nil); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if opts.Port != ":9500" {
		t.Errorf("Port = %q, environment must override the file", opts.Port)
	}
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	opts := &testOptions{Config: "/nonexistent/chameleond.toml", Port: ":9992"}
	if err := Load(opts, nil); err != nil {
		t.Fatalf("Load must tolerate a missing file: %v", err)
	}
	if opts.Port != ":9992" {
		t.Errorf("Port = %q, want the untouched default", opts.Port)
	}
}

func TestLoadLogging(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "warn"
format = "json"
video = "debug"
link = "error"
`)

	cfg := LoadLogging(path)
	if cfg.Level != "warn" || cfg.Format != "json" {
		t.Errorf("global config = %q/%q, want warn/json", cfg.Level, cfg.Format)
	}
	if cfg.Modules["video"] != "debug" || cfg.Modules["link"] != "error" {
		t.Errorf("module levels = %v", cfg.Modules)
	}
}

func TestLoadLoggingDefaults(t *testing.T) {
	cfg := LoadLogging("/nonexistent/chameleond.toml")
	if cfg.Level != "info" || cfg.Format != "text" {
		t.Errorf("defaults = %q/%q, want info/text", cfg.Level, cfg.Format)
	}
}

func TestFlagName(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"Port", "port"},
		{"DevMem", "dev-mem"},
		{"LoggingLevel", "logging-level"},
	}
	for _, tt := range tests {
		if got := flagName(tt.field); got != tt.want {
			t.Errorf("flagName(%q) = %q, want %q", tt.field, got, tt.want)
		}
	}
}
