package asm

import (
	"strconv"
	"strings"
)

// OperandKind tags the shape of a parsed instruction operand.
type OperandKind uint8

const (
	OperandNone OperandKind = iota
	OperandRegister
	OperandRegisterPair
	OperandImmediate
	OperandSymbol
	OperandIndirect
	OperandCondition
)

// Operand is a single tagged operand term, register name, register pair,
// immediate integer, immediate symbol, indirect expression, or condition
// code. Raw carries the original source spelling so the rewriter can
// preserve it verbatim when emitting an unmodified binding.
type Operand struct {
	Kind  OperandKind
	Text  string // normalized (lower-case) rendering used for comparisons
	Raw   string // original source spelling
	Int   int64  // populated when Kind == OperandImmediate and the value parses as a number
	Inner *Operand
}

var registerNames = map[string]bool{
	"a": true, "b": true, "c": true, "d": true, "e": true, "h": true, "l": true,
	"i": true, "r": true,
	"ixh": true, "ixl": true, "iyh": true, "iyl": true,
}

var registerPairNames = map[string]bool{
	"bc": true, "de": true, "hl": true, "af": true, "sp": true, "ix": true, "iy": true,
}

var conditionNames = map[string]bool{
	"nz": true, "z": true, "nc": true, "c": true, "po": true, "pe": true, "p": true, "m": true,
}

// ParseOperand classifies a single raw operand string into a tagged Operand.
// The classification is purely syntactic: `c` is ambiguous between register
// and condition, and is resolved by the caller from positional context
// (ParseLine passes mnemonic-aware hints for jp/jr/call/ret).
func ParseOperand(raw string) Operand {
	trimmed := strings.TrimSpace(raw)
	norm := strings.ToLower(collapseSpace(trimmed))

	if strings.HasPrefix(trimmed, "(") && strings.HasSuffix(trimmed, ")") {
		inner := ParseOperand(trimmed[1 : len(trimmed)-1])
		return Operand{Kind: OperandIndirect, Text: "(" + inner.Text + ")", Raw: trimmed, Inner: &inner}
	}

	if registerPairNames[norm] {
		return Operand{Kind: OperandRegisterPair, Text: norm, Raw: trimmed}
	}
	if registerNames[norm] {
		return Operand{Kind: OperandRegister, Text: norm, Raw: trimmed}
	}
	if conditionNames[norm] {
		return Operand{Kind: OperandCondition, Text: norm, Raw: trimmed}
	}
	if n, ok := parseIntLiteral(norm); ok {
		return Operand{Kind: OperandImmediate, Text: strconv.FormatInt(n, 10), Raw: trimmed, Int: n}
	}
	return Operand{Kind: OperandSymbol, Text: norm, Raw: trimmed}
}

// ParseOperandAs resolves register/condition ambiguity for operands such as
// bare `c`, which is a register in `ld a, c` but a condition in `jp c, L`.
func ParseOperandAs(raw string, preferCondition bool) Operand {
	op := ParseOperand(raw)
	if preferCondition && op.Kind == OperandRegister && conditionNames[op.Text] {
		op.Kind = OperandCondition
	}
	return op
}

// Equal reports structural equality per the matcher's normalization rules:
// register case is folded, whitespace inside indirect expressions is
// collapsed, and numeric operands compare by value rather than by literal
// spelling (e.g. 0x10 == 16).
func (o Operand) Equal(other Operand) bool {
	if o.Kind != other.Kind {
		return false
	}
	switch o.Kind {
	case OperandImmediate:
		return o.Int == other.Int
	case OperandIndirect:
		if o.Inner == nil || other.Inner == nil {
			return o.Text == other.Text
		}
		return o.Inner.Equal(*other.Inner)
	default:
		return o.Text == other.Text
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// parseIntLiteral accepts decimal, 0x/$ hex, 0b binary, and trailing-o octal,
// matching the numeric-literal grammar the rule DSL shares with instruction
// operands.
func parseIntLiteral(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var v int64
	var err error
	switch {
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		var u uint64
		u, err = strconv.ParseUint(s[2:], 16, 64)
		v = int64(u)
	case strings.HasPrefix(s, "$"):
		var u uint64
		u, err = strconv.ParseUint(s[1:], 16, 64)
		v = int64(u)
	case strings.HasPrefix(s, "0b"), strings.HasPrefix(s, "0B"):
		var u uint64
		u, err = strconv.ParseUint(s[2:], 2, 64)
		v = int64(u)
	case strings.HasSuffix(s, "o") || strings.HasSuffix(s, "O"):
		var u uint64
		u, err = strconv.ParseUint(s[:len(s)-1], 8, 64)
		v = int64(u)
	default:
		v, err = strconv.ParseInt(s, 10, 64)
	}
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}
