// Package config loads and saves the LC-3 toolchain's TOML configuration
// file (SPEC_FULL.md §3 "Ambient stack"), mirroring the teacher's
// per-tool Config-struct-plus-TOML-tags shape, pruned of the debugger
// table (out of scope, spec.md §1) and with an edition-compatibility
// table wired to vm.Edition.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"

	"lc3/vm"
)

// Config is the toolchain-wide configuration: emulator execution limits
// and edition compatibility, plus the assembler/disassembler display
// conventions.
type Config struct {
	Execution struct {
		MaxCycles uint64 `toml:"max_cycles"`
		Edition   string `toml:"edition"` // "second" or "third", spec.md §9
	} `toml:"execution"`

	Display struct {
		NumberFormat string `toml:"number_format"` // "hex" or "dec"
		ShowOrigin   bool   `toml:"show_origin"`
	} `toml:"display"`

	Trace struct {
		Enabled    bool   `toml:"enabled"`
		OutputFile string `toml:"output_file"`
	} `toml:"trace"`

	Statistics struct {
		Enabled    bool   `toml:"enabled"`
		OutputFile string `toml:"output_file"`
	} `toml:"statistics"`
}

// DefaultConfig returns a Config with the toolchain's default values:
// unbounded execution, second-edition semantics, hex display.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Execution.MaxCycles = 0
	cfg.Execution.Edition = "second"
	cfg.Display.NumberFormat = "hex"
	cfg.Display.ShowOrigin = true
	cfg.Trace.Enabled = false
	cfg.Trace.OutputFile = "trace.log"
	cfg.Statistics.Enabled = false
	cfg.Statistics.OutputFile = "stats.json"
	return cfg
}

// Edition returns the vm.Edition named by Execution.Edition, defaulting
// to EditionSecond for any value other than "third" (SPEC_FULL.md §6.8
// "Third-edition compatibility flag plumbing").
func (c *Config) Edition() vm.Edition {
	if c.Execution.Edition == "third" {
		return vm.EditionThird
	}
	return vm.EditionSecond
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "lc3")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "lc3")

	default:
		return "config.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "config.toml"
	}
	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the given file, returning defaults if
// it does not exist.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the given path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
