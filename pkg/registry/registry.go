// Package registry loads and freezes the set of optimization rules used by
// a driver run: parse every rule file in a directory, enforce unique
// OFLAG values, and index by first-pattern-line mnemonic for fast
// candidate lookup.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/boriel/boriel-basic/pkg/rule"
)

// Registry is an immutable, read-only-after-construction index over a
// loaded rule set. It is safe for concurrent use by multiple driver
// instances optimizing separate compilation units, since nothing here is
// ever mutated after New returns.
type Registry struct {
	rules   []*rule.Rule
	byMnem  map[string][]*rule.Rule // mnemonic -> candidates, pre-sorted
	varMnem []*rule.Rule            // rules whose first pattern slot is a variable: candidates for every mnemonic
}

// New parses every `*.rule` file in dir into a Rule, enforces unique
// OFLAG (I3), and builds the mnemonic index. A duplicate flag is reported
// naming both source paths, per the spec's concrete duplicate-flag test
// scenario.
func New(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading rule directory %s: %w", dir, err)
	}

	seenFlags := map[int]string{}
	var rules []*rule.Rule

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".rule") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths) // deterministic load order regardless of directory iteration order

	for _, path := range paths {
		contents, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading rule file %s: %w", path, err)
		}
		r, err := rule.ParseFile(path, string(contents))
		if err != nil {
			return nil, err
		}
		if prior, dup := seenFlags[r.Flag]; dup {
			return nil, &rule.LoadError{
				Source: path,
				Reason: fmt.Sprintf("OFLAG %d already declared in %s", r.Flag, prior),
				Err:    rule.ErrDuplicateFlag,
			}
		}
		seenFlags[r.Flag] = path
		rules = append(rules, r)
	}

	return build(rules), nil
}

// FromRules builds a Registry directly from an already-parsed rule slice,
// used by tests to validate a set without touching a directory layout.
func FromRules(rules []*rule.Rule) (*Registry, error) {
	seenFlags := map[int]string{}
	for _, r := range rules {
		if prior, dup := seenFlags[r.Flag]; dup {
			return nil, &rule.LoadError{
				Source: r.Source,
				Reason: fmt.Sprintf("OFLAG %d already declared in %s", r.Flag, prior),
				Err:    rule.ErrDuplicateFlag,
			}
		}
		seenFlags[r.Flag] = r.Source
	}
	return build(rules), nil
}

func build(rules []*rule.Rule) *Registry {
	reg := &Registry{rules: rules, byMnem: map[string][]*rule.Rule{}}
	for _, r := range rules {
		first := r.Pattern[0].Mnemonic
		if first.Kind == rule.TermVariable {
			reg.varMnem = append(reg.varMnem, r)
			continue
		}
		reg.byMnem[first.Text] = append(reg.byMnem[first.Text], r)
	}
	// Stable order within each bucket: descending OLEVEL, then ascending
	// OFLAG, so candidate selection is deterministic (spec §4.6).
	less := func(rs []*rule.Rule) func(i, j int) bool {
		return func(i, j int) bool {
			if rs[i].Level != rs[j].Level {
				return rs[i].Level > rs[j].Level
			}
			return rs[i].Flag < rs[j].Flag
		}
	}
	for m := range reg.byMnem {
		sort.SliceStable(reg.byMnem[m], less(reg.byMnem[m]))
	}
	sort.SliceStable(reg.varMnem, less(reg.varMnem))
	return reg
}

// Candidates returns the rules whose first pattern line could match an
// instruction with the given mnemonic, enabled at level and not in
// disabledFlags, in driver-application order (descending OLEVEL then
// ascending OFLAG).
func (reg *Registry) Candidates(mnemonic string, level int, disabledFlags map[int]bool) []*rule.Rule {
	mnemonic = strings.ToLower(mnemonic)
	var out []*rule.Rule
	merge := func(rs []*rule.Rule) {
		for _, r := range rs {
			if r.Level > level {
				continue
			}
			if disabledFlags != nil && disabledFlags[r.Flag] {
				continue
			}
			out = append(out, r)
		}
	}
	merge(reg.byMnem[mnemonic])
	merge(reg.varMnem)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level > out[j].Level
		}
		return out[i].Flag < out[j].Flag
	})
	return out
}

// MaxPatternLen is the length of the longest loaded rule's pattern, used by
// the driver to size MAX_BACKSCAN.
func (reg *Registry) MaxPatternLen() int {
	max := 0
	for _, r := range reg.rules {
		if len(r.Pattern) > max {
			max = len(r.Pattern)
		}
	}
	return max
}

// All returns every loaded rule, in load order, for `rules list`.
func (reg *Registry) All() []*rule.Rule {
	out := make([]*rule.Rule, len(reg.rules))
	copy(out, reg.rules)
	return out
}
