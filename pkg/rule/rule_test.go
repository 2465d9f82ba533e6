package rule

import (
	"errors"
	"strings"
	"testing"

	"github.com/boriel/boriel-basic/pkg/asm"
	"github.com/boriel/boriel-basic/pkg/z80"
)

const eq16Source = `
OLEVEL: 1
OFLAG: 18
REPLACE {{
  call __EQ16
  $1 a
  jp $2, $3
}}
DEFINE {{ $4 = (($2 == nz) && z) || nz }}
IF {{ ($1 == or) || ($1 == and) }}
WITH {{
  or a
  sbc hl, de
  jp $4, $3
}}
`

func mustParse(t *testing.T, src string) *Rule {
	t.Helper()
	r, err := ParseFile("test.rule", src)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	return r
}

func TestParseFileEQ16Shape(t *testing.T) {
	r := mustParse(t, eq16Source)
	if r.Level != 1 || r.Flag != 18 {
		t.Fatalf("got level=%d flag=%d, want 1/18", r.Level, r.Flag)
	}
	if len(r.Pattern) != 3 {
		t.Fatalf("expected 3 pattern lines, got %d", len(r.Pattern))
	}
	if r.Pattern[1].Mnemonic.Kind != TermVariable || r.Pattern[1].Mnemonic.Var != 1 {
		t.Fatalf("second pattern line's mnemonic should be variable $1")
	}
	if len(r.Defines) != 1 || r.Defines[0].Var != 4 {
		t.Fatalf("expected one DEFINE assigning $4")
	}
	if r.Predicate == nil {
		t.Fatalf("expected an IF predicate")
	}
}

func TestParseFileRejectsUnknownSection(t *testing.T) {
	_, err := ParseFile("bad.rule", `
OLEVEL: 1
OFLAG: 1
REPLACE {{ nop }}
WITH {{ nop }}
BOGUS {{ x }}
`)
	if err == nil {
		t.Fatalf("expected an error for an unknown section")
	}
	if !errors.Is(err, ErrUnknownSection) {
		t.Fatalf("expected ErrUnknownSection, got %v", err)
	}
}

func TestParseFileRejectsUnboundVariable(t *testing.T) {
	_, err := ParseFile("bad.rule", `
OLEVEL: 1
OFLAG: 1
REPLACE {{ nop }}
WITH {{ ld a, $9 }}
`)
	if !errors.Is(err, ErrUnboundVariable) {
		t.Fatalf("expected ErrUnboundVariable, got %v", err)
	}
}

func TestParseFileRejectsUnknownBuiltin(t *testing.T) {
	_, err := ParseFile("bad.rule", `
OLEVEL: 1
OFLAG: 1
REPLACE {{ ld $1, $2 }}
IF {{ NOT_A_REAL_FUNCTION($1) }}
WITH {{ ld $1, $2 }}
`)
	if !errors.Is(err, ErrUnknownBuiltin) {
		t.Fatalf("expected ErrUnknownBuiltin, got %v", err)
	}
}

func TestParseFileRejectsArityMismatch(t *testing.T) {
	_, err := ParseFile("bad.rule", `
OLEVEL: 1
OFLAG: 1
REPLACE {{ ld $1, $2 }}
IF {{ IS_REGISTER($1, $2) }}
WITH {{ ld $1, $2 }}
`)
	if !errors.Is(err, ErrArityMismatch) {
		t.Fatalf("expected ErrArityMismatch, got %v", err)
	}
}

func TestParseFileRejectsEmptyPattern(t *testing.T) {
	_, err := ParseFile("bad.rule", `
OLEVEL: 1
OFLAG: 1
REPLACE {{ }}
WITH {{ nop }}
`)
	if !errors.Is(err, ErrEmptyPattern) {
		t.Fatalf("expected ErrEmptyPattern, got %v", err)
	}
}

func bindings(t *testing.T, r *Rule, instrs ...string) map[int]Value {
	t.Helper()
	window := make([]*asm.Instruction, len(instrs))
	for i, s := range instrs {
		l := asm.ParseLine(s)
		if l.Kind != asm.LineInstruction {
			t.Fatalf("fixture %q is not an instruction", s)
		}
		window[i] = l.Instr
	}
	b := map[int]Value{}
	for idx, pl := range r.Pattern {
		instr := window[idx]
		if pl.Mnemonic.Kind == TermVariable {
			b[pl.Mnemonic.Var] = Value{Kind: KindToken, Str: strings.ToLower(instr.Mnemonic), Instr: instr, WindowIndex: idx}
		}
		for oi, t2 := range pl.Operands {
			if t2.Kind != TermVariable {
				continue
			}
			op := instr.Operands[oi]
			v := Value{Instr: instr, WindowIndex: idx, Op: &op}
			if op.Kind == asm.OperandImmediate {
				v.Kind, v.Int = KindInt, op.Int
			} else {
				v.Kind, v.Str = KindToken, op.Text
			}
			b[t2.Var] = v
		}
	}
	return b
}

func TestEvaluateEQ16Fires(t *testing.T) {
	r := mustParse(t, eq16Source)
	b := bindings(t, r, "call __EQ16", "or a", "jp nz, L1")
	env := &Env{Bindings: b, Oracle: z80.New()}
	out, fire, err := Evaluate(r, env)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !fire {
		t.Fatalf("expected rule to fire on 'or a' / jp nz")
	}
	if out[4].Str != "z" {
		t.Fatalf("expected $4 to bind to z, got %v", out[4])
	}
}

func TestEvaluateEQ16RejectsXor(t *testing.T) {
	r := mustParse(t, eq16Source)
	b := bindings(t, r, "call __EQ16", "xor a", "jp nz, L1")
	env := &Env{Bindings: b, Oracle: z80.New()}
	_, fire, err := Evaluate(r, env)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if fire {
		t.Fatalf("rule must not fire when $1 is xor")
	}
}

func TestTruthinessAndEqualityAcrossTags(t *testing.T) {
	r := mustParse(t, `
OLEVEL: 1
OFLAG: 2
REPLACE {{ $1 $2 }}
DEFINE {{ $3 = ($2 == 0) || $2 }}
WITH {{ nop }}
`)
	// $2 bound to a token "hl" (not an int): ($2 == 0) is false (differing
	// tags), so || falls through to returning $2 itself.
	tokenBinding := Value{Kind: KindToken, Str: "hl", WindowIndex: -1}
	env := &Env{Bindings: map[int]Value{1: Token("ld"), 2: tokenBinding}, Oracle: z80.New()}
	out, fire, err := Evaluate(r, env)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !fire {
		t.Fatalf("rule with no IF block should always fire")
	}
	if out[3].Kind != KindToken || out[3].Str != "hl" {
		t.Fatalf("expected $3 to fall through to $2's token value, got %v", out[3])
	}
}
