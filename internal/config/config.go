// Package config loads ldbg's persisted settings: default connection
// address/port, default source search directories, the attach signal, and
// a handful of controller UI preferences.
//
// Grounded on the teacher's internal/config/wing.go (YAML file under a
// user config dir, env vars override) and internal/config/paths.go (config
// dir resolution).
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultPort is the TCP port an agent connects to and a controller
// listens on when nothing else configures one (spec.md §6).
const DefaultPort = 2679

// DefaultAddr is the loopback address both peers default to.
const DefaultAddr = "127.0.0.1"

// DefaultSignal is the POSIX signal number armed for attach when LDB_SIG
// and the config file are both silent: SIGUSR2.
const DefaultSignal = 12

// Config is ldbg's persisted settings, read from ~/.config/ldbg/ldbg.yaml.
type Config struct {
	Addr    string   `yaml:"addr,omitempty"`
	Port    int      `yaml:"port,omitempty"`
	Sources []string `yaml:"sources,omitempty"`
	Signal  int      `yaml:"signal,omitempty"`

	// Theme is kept for parity with the shape of configuration structs in
	// this style of project; ldbg's controller has no themed rendering, so
	// nothing reads it (see DESIGN.md).
	Theme string `yaml:"theme,omitempty"`
}

// Default returns the built-in defaults used when no config file exists.
func Default() *Config {
	return &Config{
		Addr:   DefaultAddr,
		Port:   DefaultPort,
		Signal: DefaultSignal,
	}
}

// UserConfigDir returns the directory ldbg's config file lives in,
// creating no files itself.
func UserConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "ldbg"), nil
}

// Load reads ldbg.yaml from dir, falling back to Default() if the file
// does not exist. A present file is merged on top of the defaults field by
// field, so a config specifying only `port` still gets the default addr.
func Load(dir string) (*Config, error) {
	cfg := Default()
	path := filepath.Join(dir, "ldbg.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	var onDisk Config
	if err := yaml.Unmarshal(data, &onDisk); err != nil {
		return nil, err
	}
	if onDisk.Addr != "" {
		cfg.Addr = onDisk.Addr
	}
	if onDisk.Port != 0 {
		cfg.Port = onDisk.Port
	}
	if len(onDisk.Sources) > 0 {
		cfg.Sources = onDisk.Sources
	}
	if onDisk.Signal != 0 {
		cfg.Signal = onDisk.Signal
	}
	if onDisk.Theme != "" {
		cfg.Theme = onDisk.Theme
	}
	return cfg, nil
}

// Save writes cfg to dir/ldbg.yaml, creating dir if needed.
func Save(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "ldbg.yaml"), data, 0644)
}

// ApplyEnv overrides cfg's fields from LDB_PORT and LDB_SIG, matching
// spec.md §6: environment variables always win over the config file.
// LDB_STARTUP is read separately by cmd/ldbgd (it gates synchronous
// connect-at-install, not a Config field).
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LDB_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Port = n
		}
	}
	if v := os.Getenv("LDB_SIG"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Signal = n
		}
	}
}

// Startup reports whether LDB_STARTUP=1 is set, per spec.md §6.
func Startup() bool {
	return os.Getenv("LDB_STARTUP") == "1"
}
