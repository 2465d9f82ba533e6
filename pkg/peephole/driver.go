package peephole

import (
	"context"
	"fmt"

	"github.com/boriel/boriel-basic/pkg/asm"
	"github.com/boriel/boriel-basic/pkg/registry"
	"github.com/boriel/boriel-basic/pkg/rule"
	"github.com/boriel/boriel-basic/pkg/trace"
	"github.com/boriel/boriel-basic/pkg/z80"
)

// Config is the set of driver options enumerated in the spec's
// Configuration section: optimization level, a set of explicitly disabled
// rule flags, and the two resource bounds that guarantee termination.
type Config struct {
	Level              int
	DisabledFlags      map[int]bool
	MaxPasses          int
	MaxRewritesPerUnit int
}

// DefaultConfig mirrors the spec's stated defaults: level 1, no disabled
// flags, a conservative pass cap, and a generous rewrite cap.
func DefaultConfig() Config {
	return Config{Level: 1, MaxPasses: 32, MaxRewritesPerUnit: 10000}
}

// ThrashingError reports that a unit exceeded its rewrite or pass budget;
// it is a recoverable warning (spec §7) — the driver still returns the
// current state of the instruction sequence alongside this error, rather
// than discarding work.
type ThrashingError struct {
	MostAppliedFlag  int
	ApplicationCount int
	ExceededPasses   bool
}

func (e *ThrashingError) Error() string {
	if e.ExceededPasses {
		return fmt.Sprintf("exceeded max passes; most-applied rule was OFLAG %d (%d applications)", e.MostAppliedFlag, e.ApplicationCount)
	}
	return fmt.Sprintf("exceeded max rewrites per unit; most-applied rule was OFLAG %d (%d applications)", e.MostAppliedFlag, e.ApplicationCount)
}

// InvariantError reports a rewrite that produced ill-formed assembly — a
// programming error in the rule that produced it, not a recoverable
// condition. The engine refuses to emit and names the offending rule.
type InvariantError struct {
	RuleFlag int
	Reason   string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("rule OFLAG %d produced malformed assembly: %s", e.RuleFlag, e.Reason)
}

// Driver owns one compilation unit's instruction sequence for the duration
// of Optimize and applies the registry's rules to fixed point. A Driver is
// not reused across units; construct one per unit, matching the spec's
// single-threaded-cooperative-per-unit concurrency model.
type Driver struct {
	Registry *registry.Registry
	Oracle   *z80.Oracle
	Config   Config
}

// NewDriver constructs a Driver over an already-loaded, frozen Registry.
// The Registry itself is safe to share across concurrently running Driver
// instances; nothing here mutates it.
func NewDriver(reg *registry.Registry, cfg Config) *Driver {
	return &Driver{Registry: reg, Oracle: z80.New(), Config: cfg}
}

// Optimize drives source to fixed point, collecting trace records into
// collector (which may have tracing disabled, in which case only the
// per-rule application tally is kept). It returns the rewritten assembly
// text. A *ThrashingError return is non-fatal: the returned text is still
// the best-effort result up to the point optimization was aborted.
func (d *Driver) Optimize(ctx context.Context, source string, collector *trace.Collector) (string, error) {
	buf := asm.NewBuffer(source)
	maxBackscan := d.Registry.MaxPatternLen() - 1
	if maxBackscan < 0 {
		maxBackscan = 0
	}

	for pass := 0; pass < d.Config.MaxPasses; pass++ {
		if err := ctx.Err(); err != nil {
			return buf.Render(), err
		}

		changed, thrash, err := d.onePass(buf, maxBackscan, collector)
		if err != nil {
			return buf.Render(), err
		}
		if thrash {
			flag, count := collector.MostApplied()
			return buf.Render(), &ThrashingError{MostAppliedFlag: flag, ApplicationCount: count}
		}
		if !changed {
			return buf.Render(), nil
		}
	}

	flag, count := collector.MostApplied()
	return buf.Render(), &ThrashingError{MostAppliedFlag: flag, ApplicationCount: count, ExceededPasses: true}
}

// onePass performs one complete left-to-right walk, firing at most one
// rule per position before restarting from the back-scan point, and
// reports whether any rewrite occurred and whether the rewrite budget was
// exceeded mid-pass.
func (d *Driver) onePass(buf *asm.Buffer, maxBackscan int, collector *trace.Collector) (changed, thrash bool, err error) {
	i := 0
	for i < len(buf.Lines) {
		line := buf.Lines[i]
		if line.Kind != asm.LineInstruction {
			i++
			continue
		}

		applied := false
		for _, r := range d.Registry.Candidates(line.Instr.Mnemonic, d.Config.Level, d.Config.DisabledFlags) {
			w, ok := buf.WindowAt(i, len(r.Pattern))
			if !ok {
				continue
			}
			bindings, ok := Match(r, w.Instr)
			if !ok {
				continue
			}

			env := &rule.Env{Bindings: bindings, Window: w.Instr, Oracle: d.Oracle}
			final, fire, err := rule.Evaluate(r, env)
			if err != nil {
				// A validated rule's DEFINE/IF should never fail to
				// evaluate at runtime; treat it as the silent
				// "predicate-evaluation anomaly" the spec calls for
				// rather than aborting the whole unit over one rule.
				continue
			}
			if !fire {
				continue
			}

			lines, err := Render(r, final)
			if err != nil {
				continue
			}
			if verr := validateLines(lines); verr != nil {
				return changed, false, &InvariantError{RuleFlag: r.Flag, Reason: verr.Error()}
			}

			before := sourceTextOf(w)
			buf.Splice(w, lines)
			collector.Collect(r.Flag, i, before, lines)

			if collector.TotalRewrites() > d.Config.MaxRewritesPerUnit {
				return true, true, nil
			}

			changed = true
			applied = true
			i -= maxBackscan
			if i < 0 {
				i = 0
			}
			break
		}
		if !applied {
			i++
		}
	}
	return changed, false, nil
}

func sourceTextOf(w asm.Window) []string {
	out := make([]string, len(w.Instr))
	for i, instr := range w.Instr {
		out[i] = instr.Source
	}
	return out
}

// validateLines is the internal-invariant check: every rendered
// replacement line must itself re-parse as a plain instruction line, never
// as a directive, label, blank, or comment — a rule whose WITH block
// produces something else is a programming error in the rule.
func validateLines(lines []string) error {
	for _, l := range lines {
		parsed := asm.ParseLine(l)
		if parsed.Kind != asm.LineInstruction {
			return fmt.Errorf("replacement line %q parsed as %s, not an instruction", l, parsed.Kind)
		}
	}
	return nil
}
