package rule

import (
	"fmt"

	"github.com/boriel/boriel-basic/pkg/asm"
)

// Kind tags the dynamic type of a Value: integer, boolean, token (a
// mnemonic or operand spelling), string, or the undefined sentinel that
// stands for "no such binding" / "could not evaluate".
type Kind uint8

const (
	KindUndefined Kind = iota
	KindInt
	KindBool
	KindToken
	KindString
)

// Value is the tagged-value union the pattern matcher binds variables to
// and the expression evaluator computes with. It is the Go rendering of
// this DSL's dynamically-typed expression values: a closed discriminated
// union rather than an interface{}, so every dispatch site is exhaustive.
type Value struct {
	Kind  Kind
	Int   int64
	Bool  bool
	Str   string // used for both KindToken and KindString
	Radix int    // 0 = decimal, 16 = hex, 2 = binary; preserved for KindInt so the rewriter can re-render in the original radix

	// Provenance, populated only for values bound directly from a matched
	// pattern line (never for DEFINE-computed or literal values). These let
	// the oracle-backed builtins (IS_REGISTER, OP_NARGS, ...) answer
	// questions about the operand or instruction a variable came from
	// without the evaluator needing its own copy of the window.
	Op          *asm.Operand
	Instr       *asm.Instruction
	WindowIndex int // index of Instr within the matched window; -1 if Instr == nil
}

// Undefined is the sentinel value produced by a failed lookup or a runtime
// type-mismatch in a required position.
var Undefined = Value{Kind: KindUndefined, WindowIndex: -1}

func Int(n int64) Value                 { return Value{Kind: KindInt, Int: n, WindowIndex: -1} }
func IntRadix(n int64, radix int) Value { return Value{Kind: KindInt, Int: n, Radix: radix, WindowIndex: -1} }
func Bool(b bool) Value                 { return Value{Kind: KindBool, Bool: b, WindowIndex: -1} }
func Token(s string) Value              { return Value{Kind: KindToken, Str: s, WindowIndex: -1} }
func String(s string) Value             { return Value{Kind: KindString, Str: s, WindowIndex: -1} }

// Truthy implements this DSL's truthiness rule: undefined and boolean false
// are falsy, every other value (including integer zero and the empty
// string) is truthy. See the expression evaluator's design note for why
// zero is deliberately not falsy here.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindUndefined:
		return false
	case KindBool:
		return v.Bool
	default:
		return true
	}
}

// Equal implements this DSL's `==`/`!=` rule: comparisons between differing
// tags yield false rather than an error, so a pattern probing "is this
// token the symbol `or`?" against an integer binding simply fails closed.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindUndefined:
		return true
	case KindInt:
		return v.Int == other.Int
	case KindBool:
		return v.Bool == other.Bool
	case KindToken, KindString:
		return v.Str == other.Str
	default:
		return false
	}
}

// String renders a Value for diagnostics and for the rewriter's rendering of
// values that carry no source operand.
func (v Value) String() string {
	switch v.Kind {
	case KindUndefined:
		return "undefined"
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindToken, KindString:
		return v.Str
	default:
		return "?"
	}
}
