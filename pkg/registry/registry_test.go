package registry

import (
	"errors"
	"testing"

	"github.com/boriel/boriel-basic/pkg/rule"
)

func parseOrFail(t *testing.T, path, src string) *rule.Rule {
	t.Helper()
	r, err := rule.ParseFile(path, src)
	if err != nil {
		t.Fatalf("ParseFile(%s): %v", path, err)
	}
	return r
}

func TestFromRulesRejectsDuplicateFlag(t *testing.T) {
	a := parseOrFail(t, "a.rule", "OLEVEL: 1\nOFLAG: 18\nREPLACE {{ nop }}\nWITH {{ nop }}\n")
	b := parseOrFail(t, "b.rule", "OLEVEL: 1\nOFLAG: 18\nREPLACE {{ halt }}\nWITH {{ halt }}\n")

	_, err := FromRules([]*rule.Rule{a, b})
	if !errors.Is(err, rule.ErrDuplicateFlag) {
		t.Fatalf("expected ErrDuplicateFlag, got %v", err)
	}
	var le *rule.LoadError
	if errors.As(err, &le) {
		if le.Reason == "" {
			t.Fatalf("duplicate flag error should name both source paths in its reason")
		}
	}
}

func TestCandidatesOrderingByLevelThenFlag(t *testing.T) {
	low := parseOrFail(t, "low.rule", "OLEVEL: 1\nOFLAG: 5\nREPLACE {{ nop }}\nWITH {{ nop }}\n")
	high := parseOrFail(t, "high.rule", "OLEVEL: 2\nOFLAG: 1\nREPLACE {{ nop }}\nWITH {{ nop }}\n")
	mid := parseOrFail(t, "mid.rule", "OLEVEL: 1\nOFLAG: 2\nREPLACE {{ nop }}\nWITH {{ nop }}\n")

	reg, err := FromRules([]*rule.Rule{low, high, mid})
	if err != nil {
		t.Fatalf("FromRules: %v", err)
	}
	cands := reg.Candidates("nop", 2, nil)
	if len(cands) != 3 {
		t.Fatalf("expected all 3 rules enabled at level 2, got %d", len(cands))
	}
	if cands[0].Flag != 1 || cands[1].Flag != 2 || cands[2].Flag != 5 {
		t.Fatalf("expected order [1,2,5] (level desc, flag asc), got [%d,%d,%d]", cands[0].Flag, cands[1].Flag, cands[2].Flag)
	}
}

func TestCandidatesFiltersByLevel(t *testing.T) {
	r := parseOrFail(t, "r.rule", "OLEVEL: 3\nOFLAG: 9\nREPLACE {{ nop }}\nWITH {{ nop }}\n")
	reg, err := FromRules([]*rule.Rule{r})
	if err != nil {
		t.Fatalf("FromRules: %v", err)
	}
	if len(reg.Candidates("nop", 1, nil)) != 0 {
		t.Fatalf("a level-3 rule must not be a candidate at session level 1")
	}
	if len(reg.Candidates("nop", 3, nil)) != 1 {
		t.Fatalf("a level-3 rule must be a candidate at session level 3")
	}
}

func TestCandidatesRespectsDisabledFlags(t *testing.T) {
	r := parseOrFail(t, "r.rule", "OLEVEL: 1\nOFLAG: 9\nREPLACE {{ nop }}\nWITH {{ nop }}\n")
	reg, err := FromRules([]*rule.Rule{r})
	if err != nil {
		t.Fatalf("FromRules: %v", err)
	}
	if len(reg.Candidates("nop", 1, map[int]bool{9: true})) != 0 {
		t.Fatalf("a disabled flag must not be a candidate")
	}
}

func TestVariableMnemonicMatchesAnyOpcode(t *testing.T) {
	r := parseOrFail(t, "r.rule", "OLEVEL: 1\nOFLAG: 7\nREPLACE {{ $1 a }}\nWITH {{ nop }}\n")
	reg, err := FromRules([]*rule.Rule{r})
	if err != nil {
		t.Fatalf("FromRules: %v", err)
	}
	if len(reg.Candidates("or", 1, nil)) != 1 {
		t.Fatalf("a variable-mnemonic rule should be a candidate for any opcode")
	}
	if len(reg.Candidates("and", 1, nil)) != 1 {
		t.Fatalf("a variable-mnemonic rule should be a candidate for any opcode")
	}
}

func TestMaxPatternLen(t *testing.T) {
	short := parseOrFail(t, "s.rule", "OLEVEL: 1\nOFLAG: 1\nREPLACE {{ nop }}\nWITH {{ nop }}\n")
	long := parseOrFail(t, "l.rule", "OLEVEL: 1\nOFLAG: 2\nREPLACE {{\n call __EQ16\n or a\n jp nz, L1\n}}\nWITH {{ nop }}\n")
	reg, err := FromRules([]*rule.Rule{short, long})
	if err != nil {
		t.Fatalf("FromRules: %v", err)
	}
	if reg.MaxPatternLen() != 3 {
		t.Fatalf("expected max pattern length 3, got %d", reg.MaxPatternLen())
	}
}
