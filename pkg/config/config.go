// Package config loads the optimizer's on-disk configuration, following
// this codebase's convention of a flat TOML file decoded straight into a
// tagged struct via BurntSushi/toml, with CLI flags layered on top of
// whatever the file provides.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config holds every tunable the driver exposes. Zero values mean "not set
// in the file"; Resolve layers CLI overrides on top and fills in the
// remaining defaults.
type Config struct {
	OptimizationLevel  int   `toml:"optimization_level"`
	DisabledFlags      []int `toml:"disabled_flags"`
	MaxPasses          int   `toml:"max_passes"`
	MaxRewritesPerUnit int   `toml:"max_rewrites_per_unit"`
	Trace              bool  `toml:"trace"`
	RulesDir           string `toml:"rules_dir"`
}

// Defaults matches the driver package's own DefaultConfig, duplicated here
// (rather than imported) so this package has no dependency on peephole.
var Defaults = Config{
	OptimizationLevel:  1,
	MaxPasses:          32,
	MaxRewritesPerUnit: 10000,
	RulesDir:           "rules",
}

// Load decodes a TOML file at path into a Config. A missing file is an
// error here; callers that want "file optional" behavior should stat path
// themselves before calling Load, matching the CLI's own flag-precedence
// logic rather than hiding it inside this package.
func Load(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config file %s: %w", path, err)
	}
	return cfg, nil
}

// Overrides carries the subset of settings the CLI may have set explicitly
// via flags; a nil pointer field means "flag not passed, don't override".
type Overrides struct {
	OptimizationLevel  *int
	MaxPasses          *int
	MaxRewritesPerUnit *int
	Trace              *bool
	RulesDir           *string
}

// Resolve layers file values over Defaults, then CLI overrides over the
// file, per the precedence the CLI documents: flags > file > defaults.
func Resolve(file Config, over Overrides) Config {
	out := Defaults
	if file.OptimizationLevel != 0 {
		out.OptimizationLevel = file.OptimizationLevel
	}
	if len(file.DisabledFlags) > 0 {
		out.DisabledFlags = file.DisabledFlags
	}
	if file.MaxPasses != 0 {
		out.MaxPasses = file.MaxPasses
	}
	if file.MaxRewritesPerUnit != 0 {
		out.MaxRewritesPerUnit = file.MaxRewritesPerUnit
	}
	out.Trace = file.Trace
	if file.RulesDir != "" {
		out.RulesDir = file.RulesDir
	}

	if over.OptimizationLevel != nil {
		out.OptimizationLevel = *over.OptimizationLevel
	}
	if over.MaxPasses != nil {
		out.MaxPasses = *over.MaxPasses
	}
	if over.MaxRewritesPerUnit != nil {
		out.MaxRewritesPerUnit = *over.MaxRewritesPerUnit
	}
	if over.Trace != nil {
		out.Trace = *over.Trace
	}
	if over.RulesDir != nil {
		out.RulesDir = *over.RulesDir
	}
	return out
}

// DisabledFlagSet converts the slice form (convenient in TOML) into the
// map form the driver consumes.
func (c Config) DisabledFlagSet() map[int]bool {
	if len(c.DisabledFlags) == 0 {
		return nil
	}
	out := make(map[int]bool, len(c.DisabledFlags))
	for _, f := range c.DisabledFlags {
		out[f] = true
	}
	return out
}
