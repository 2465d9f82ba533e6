package peephole

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/boriel/boriel-basic/pkg/rule"
)

// Render substitutes every $N in a rule's replacement block with its bound
// value's canonical rendering and returns the resulting assembly lines, one
// per ReplacementLine.
func Render(r *rule.Rule, bindings map[int]rule.Value) ([]string, error) {
	lines := make([]string, 0, len(r.Replacement))
	for _, rl := range r.Replacement {
		mnem, err := renderTerm(rl.Mnemonic, bindings)
		if err != nil {
			return nil, fmt.Errorf("rendering replacement mnemonic: %w", err)
		}
		var operands []string
		for _, t := range rl.Operands {
			s, err := renderTerm(t, bindings)
			if err != nil {
				return nil, fmt.Errorf("rendering replacement operand: %w", err)
			}
			operands = append(operands, s)
		}
		line := strings.ToLower(mnem)
		if len(operands) > 0 {
			line += " " + strings.Join(operands, ", ")
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func renderTerm(t rule.Term, bindings map[int]rule.Value) (string, error) {
	if t.Kind == rule.TermLiteral {
		return t.Text, nil
	}
	v, ok := bindings[t.Var]
	if !ok {
		// I2 guarantees this cannot happen for a loaded rule, but a
		// malformed in-memory Rule (e.g. hand-built in a test) should
		// fail loudly rather than silently render "undefined" assembly.
		return "", fmt.Errorf("%w: $%d has no binding at render time", rule.ErrUnboundVariable, t.Var)
	}
	return renderValue(v), nil
}

// renderValue renders a bound value's canonical on-disk spelling: a value
// bound from a matched operand preserves the operand's original source
// text verbatim (so `(hl)` stays `(hl)` rather than being rewritten to a
// normalized form); a DEFINE-computed integer preserves the original
// literal's radix when one was recorded, and otherwise renders decimal.
func renderValue(v rule.Value) string {
	if v.Op != nil {
		return v.Op.Raw
	}
	switch v.Kind {
	case rule.KindInt:
		switch v.Radix {
		case 16:
			return "$" + strconv.FormatInt(v.Int, 16)
		case 2:
			return "%" + strconv.FormatInt(v.Int, 2)
		default:
			return strconv.FormatInt(v.Int, 10)
		}
	default:
		return v.String()
	}
}
