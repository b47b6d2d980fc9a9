package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != DefaultAddr || cfg.Port != DefaultPort || cfg.Signal != DefaultSignal {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	data := "port: 9999\nsources:\n  - /src/a\n  - /src/b\n"
	if err := os.WriteFile(filepath.Join(dir, "ldbg.yaml"), []byte(data), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9999 {
		t.Errorf("Port = %d, want 9999", cfg.Port)
	}
	if cfg.Addr != DefaultAddr {
		t.Errorf("Addr = %q, want default %q (unset field should keep default)", cfg.Addr, DefaultAddr)
	}
	if len(cfg.Sources) != 2 || cfg.Sources[0] != "/src/a" || cfg.Sources[1] != "/src/b" {
		t.Errorf("Sources = %v, want [/src/a /src/b]", cfg.Sources)
	}
}

func TestApplyEnvOverridesFile(t *testing.T) {
	cfg := Default()
	t.Setenv("LDB_PORT", "4000")
	t.Setenv("LDB_SIG", "10")
	cfg.ApplyEnv()
	if cfg.Port != 4000 {
		t.Errorf("Port = %d, want 4000", cfg.Port)
	}
	if cfg.Signal != 10 {
		t.Errorf("Signal = %d, want 10", cfg.Signal)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{Addr: "10.0.0.1", Port: 1234, Sources: []string{"/a"}, Signal: 2}
	if err := Save(dir, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Addr != cfg.Addr || got.Port != cfg.Port || got.Signal != cfg.Signal {
		t.Fatalf("got = %+v, want %+v", got, cfg)
	}
}
