// Package config loads daemon configuration with precedence
// CLI flags > environment > TOML file.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/chameleond/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Load fills opts from the TOML file named by its Config field and from
// CHAMELEOND_* environment variables. Fields explicitly set via CLI flags
// on cmd are left untouched.
func Load(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changed := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changed[f.Name] = true
			}
		})
	}

	var configPath string
	for i := 0; i < v.NumField(); i++ {
		if t.Field(i).Name == "Config" {
			configPath = v.Field(i).String()
			break
		}
	}

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			var file map[string]any
			if err := toml.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("parse %s: %w", configPath, err)
			}
			for i := 0; i < v.NumField(); i++ {
				field := v.Field(i)
				ft := t.Field(i)
				if changed[flagName(ft.Name)] {
					continue
				}
				if path := ft.Tag.Get("toml"); path != "" {
					if value := nestedValue(file, path); value != nil {
						setField(field, value)
					}
				}
			}
		}
	}

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		ft := t.Field(i)
		if changed[flagName(ft.Name)] {
			continue
		}
		if key := ft.Tag.Get("env"); key != "" {
			if env := os.Getenv("CHAMELEOND_" + key); env != "" {
				setFieldString(field, env)
			}
		}
	}

	return nil
}

// LoadLogging reads the [logging] table from the config file. Missing or
// unreadable files yield the defaults.
func LoadLogging(configPath string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}
	if configPath == "" {
		return cfg
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg
	}

	var raw struct {
		Logging map[string]string `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return cfg
	}

	for key, value := range raw.Logging {
		switch key {
		case "level":
			cfg.Level = value
		case "format":
			cfg.Format = value
		default:
			cfg.Modules[key] = value
		}
	}
	return cfg
}

// flagName converts a struct field name to its CLI flag:
// "LoggingLevel" -> "logging-level".
func flagName(field string) string {
	var out []rune
	for i, r := range field {
		if i > 0 && unicode.IsUpper(r) {
			out = append(out, '-')
		}
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}

// nestedValue resolves a dotted path in a parsed TOML tree.
func nestedValue(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := data
	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}

func setField(field reflect.Value, value any) {
	if !field.CanSet() {
		return
	}
	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		switch n := value.(type) {
		case int64:
			field.SetInt(n)
		case int:
			field.SetInt(int64(n))
		}
	case reflect.Uint32, reflect.Uint64:
		if n, ok := value.(int64); ok && n >= 0 {
			field.SetUint(uint64(n))
		}
	}
}

func setFieldString(field reflect.Value, value string) {
	if !field.CanSet() {
		return
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		if b, err := strconv.ParseBool(value); err == nil {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			field.SetInt(n)
		}
	case reflect.Uint32, reflect.Uint64:
		if n, err := strconv.ParseUint(value, 0, 64); err == nil {
			field.SetUint(n)
		}
	}
}
