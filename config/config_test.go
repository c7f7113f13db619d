package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lc3/vm"
)

func TestDefaultConfig_Edition(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.Edition(); got != vm.EditionSecond {
		t.Fatalf("Edition() = %v, want EditionSecond", got)
	}
}

func TestLoadFrom_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Execution.Edition != "second" {
		t.Fatalf("Execution.Edition = %q, want %q", cfg.Execution.Edition, "second")
	}
}

func TestSaveToThenLoadFromRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.Execution.Edition = "third"
	cfg.Execution.MaxCycles = 5000

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	loaded, err := LoadFrom(path)
	require.NoError(t, err, "LoadFrom() after SaveTo()")
	assert.Equal(t, "third", loaded.Execution.Edition)
	assert.Equal(t, uint64(5000), loaded.Execution.MaxCycles)
	assert.Equal(t, vm.EditionThird, loaded.Edition())
}
