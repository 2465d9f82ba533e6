// Package trace is the optimizer's instrumentation layer: an in-process
// collector of structured rewrite records, following this codebase's own
// diagnostic-collector pattern (a struct holding a slice of records plus
// an enabled flag, rather than an external logging dependency).
package trace

import "fmt"

// Record is one rewrite event: the rule that fired, its position in the
// instruction sequence, and the before/after text, matching the spec's
// diagnostics-output shape exactly.
type Record struct {
	RuleFlag    int
	Position    int
	BeforeLines []string
	AfterLines  []string
}

// Collector accumulates Records for one driver run when tracing is
// enabled; when disabled, Collect keeps only the per-rule application
// counts and stores no before/after records.
type Collector struct {
	Enabled bool
	records []Record

	// applications counts rewrites per rule flag, used by the thrashing
	// warning to name the most-applied rule.
	applications map[int]int
}

// NewCollector returns a Collector, enabled or not per the caller's
// `--trace` / config setting.
func NewCollector(enabled bool) *Collector {
	return &Collector{Enabled: enabled, applications: map[int]int{}}
}

// Collect records one rewrite event. Always tallies the per-rule
// application count (needed for the thrashing warning regardless of
// tracing), but only retains the full before/after record when Enabled.
func (c *Collector) Collect(flag, position int, before, after []string) {
	c.applications[flag]++
	if !c.Enabled {
		return
	}
	c.records = append(c.records, Record{
		RuleFlag:    flag,
		Position:    position,
		BeforeLines: append([]string{}, before...),
		AfterLines:  append([]string{}, after...),
	})
}

// Records returns the accumulated trace records, in application order.
func (c *Collector) Records() []Record { return c.records }

// TotalRewrites returns the number of rewrites collected so far, across all
// rules, regardless of whether full tracing is enabled.
func (c *Collector) TotalRewrites() int {
	total := 0
	for _, n := range c.applications {
		total += n
	}
	return total
}

// MostApplied returns the rule flag with the highest application count and
// its count, used when reporting a thrashing warning (spec §7).
func (c *Collector) MostApplied() (flag, count int) {
	for f, n := range c.applications {
		if n > count {
			flag, count = f, n
		}
	}
	return
}

// WriteLines renders the collected records as one line per rewrite, for
// the CLI's --trace stderr output.
func (c *Collector) WriteLines() []string {
	out := make([]string, 0, len(c.records))
	for _, r := range c.records {
		out = append(out, fmt.Sprintf("rule %d @ %d: %v -> %v", r.RuleFlag, r.Position, r.BeforeLines, r.AfterLines))
	}
	return out
}
