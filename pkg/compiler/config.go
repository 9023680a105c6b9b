package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the optional gocc.toml project configuration. Missing fields
// fall back to the defaults; CLI flags override whatever is loaded.
type Config struct {
	Output OutputConfig `toml:"output"`
	Build  BuildConfig  `toml:"build"`
}

// OutputConfig names the artefact directories.
type OutputConfig struct {
	Asm string `toml:"asm"`
	Bin string `toml:"bin"`
}

// BuildConfig configures the include search path and the external
// assemble-and-link step.
type BuildConfig struct {
	Include   []string `toml:"include"`
	Assembler string   `toml:"assembler"`
	Verbose   bool     `toml:"verbose"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{Asm: "output/asm", Bin: "output/bin"},
		Build:  BuildConfig{Include: []string{"include"}, Assembler: "gcc"},
	}
}

// LoadConfig reads gocc.toml from dir, returning the defaults when the
// file does not exist.
func LoadConfig(dir string) (*Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(dir, "gocc.toml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if cfg.Output.Asm == "" {
		cfg.Output.Asm = "output/asm"
	}
	if cfg.Output.Bin == "" {
		cfg.Output.Bin = "output/bin"
	}
	if cfg.Build.Assembler == "" {
		cfg.Build.Assembler = "gcc"
	}
	return cfg, nil
}
