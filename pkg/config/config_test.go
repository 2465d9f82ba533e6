package config

import "testing"

func TestResolvePrecedenceFileOverDefaults(t *testing.T) {
	file := Config{OptimizationLevel: 2, MaxPasses: 10}
	got := Resolve(file, Overrides{})
	if got.OptimizationLevel != 2 {
		t.Fatalf("file value should override default, got %d", got.OptimizationLevel)
	}
	if got.MaxRewritesPerUnit != Defaults.MaxRewritesPerUnit {
		t.Fatalf("unset file field should fall back to default")
	}
}

func TestResolvePrecedenceFlagsOverFile(t *testing.T) {
	file := Config{OptimizationLevel: 2}
	level := 5
	got := Resolve(file, Overrides{OptimizationLevel: &level})
	if got.OptimizationLevel != 5 {
		t.Fatalf("CLI flag should win over file value, got %d", got.OptimizationLevel)
	}
}

func TestDisabledFlagSet(t *testing.T) {
	c := Config{DisabledFlags: []int{18, 19}}
	set := c.DisabledFlagSet()
	if !set[18] || !set[19] || len(set) != 2 {
		t.Fatalf("unexpected disabled flag set: %v", set)
	}
	var empty Config
	if empty.DisabledFlagSet() != nil {
		t.Fatalf("empty DisabledFlags should produce a nil set")
	}
}
