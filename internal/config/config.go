// Package config loads the gate's whitelist configuration. The file
// is read once at startup; validators never re-read it per call.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ModeEnvVar overrides [process].mode when set. It is resolved once
// inside Load, never consulted again afterwards.
const ModeEnvVar = "SANDGUARD_MODE"

// Config is the root configuration. TOML is the primary format;
// .yaml/.yml files are accepted too.
type Config struct {
	Files   FilesConfig   `toml:"files" yaml:"files"`
	URLs    URLsConfig    `toml:"urls" yaml:"urls"`
	Process ProcessConfig `toml:"process" yaml:"process"`
	Audit   AuditConfig   `toml:"audit" yaml:"audit"`
}

// FilesConfig controls the file-path validator.
type FilesConfig struct {
	ReadOnlyRoot      string   `toml:"read_only_root" yaml:"read_only_root"`
	ReadWriteRoot     string   `toml:"read_write_root" yaml:"read_write_root"`
	AllowedExtensions []string `toml:"allowed_extensions" yaml:"allowed_extensions"`
	MaxPathLength     int      `toml:"max_path_length" yaml:"max_path_length"`
}

// URLsConfig controls the URL validator. An absent or empty host list
// denies every URL; there is deliberately no way to configure
// "allow all".
type URLsConfig struct {
	AllowedHosts []string `toml:"allowed_hosts" yaml:"allowed_hosts"`
}

// ProcessConfig controls the process-execution validator.
type ProcessConfig struct {
	Mode            string   `toml:"mode" yaml:"mode"` // "normal", "secure", "test"
	AllowedCommands []string `toml:"allowed_commands" yaml:"allowed_commands"`
}

// AuditConfig controls the audit trail.
type AuditConfig struct {
	Dir           string `toml:"dir" yaml:"dir"`
	Prefix        string `toml:"prefix" yaml:"prefix"`
	RetainDays    int    `toml:"retain_days" yaml:"retain_days"`
	SweepSchedule string `toml:"sweep_schedule" yaml:"sweep_schedule"`
	SQLitePath    string `toml:"sqlite_path" yaml:"sqlite_path"` // empty disables the store sink
	Sign          bool   `toml:"sign" yaml:"sign"`
	KeyPath       string `toml:"key_path" yaml:"key_path"`
}

// Default returns the fail-closed baseline: no hosts, no commands,
// default roots and extensions.
func Default() Config {
	return Config{
		Files: FilesConfig{
			ReadOnlyRoot:      "res://",
			ReadWriteRoot:     "user://",
			AllowedExtensions: []string{".json", ".save", ".dat", ".cfg", ".txt"},
			MaxPathLength:     260,
		},
		URLs:    URLsConfig{},
		Process: ProcessConfig{Mode: "normal"},
		Audit: AuditConfig{
			Dir:           "audit",
			Prefix:        "sandguard",
			RetainDays:    30,
			SweepSchedule: "30 3 * * *",
		},
	}
}

// Load reads the file at path over the defaults. A missing file is not
// an error: the defaults alone are a valid (deny-everything) setup.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyModeEnv(&cfg)
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse yaml config: %w", err)
		}
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse toml config: %w", err)
		}
	}

	applyModeEnv(&cfg)
	return cfg, nil
}

// applyModeEnv resolves the one ambient input (the mode flag) into the
// config value, so everything downstream is a pure function of Config.
func applyModeEnv(cfg *Config) {
	if mode := os.Getenv(ModeEnvVar); mode != "" {
		cfg.Process.Mode = strings.ToLower(mode)
	}
}

// ResolvedKeyPath returns the signing key location, defaulting next
// to the logs.
func (a AuditConfig) ResolvedKeyPath() string {
	if a.KeyPath != "" {
		return a.KeyPath
	}
	return filepath.Join(a.Dir, "audit.key")
}
