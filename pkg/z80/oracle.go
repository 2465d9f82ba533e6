package z80

import (
	"strings"

	"github.com/boriel/boriel-basic/pkg/asm"
)

// Oracle answers semantic questions about individual Instruction values. It
// holds no mutable state; every method is a pure function of its argument,
// so a single Oracle is safe to share across concurrently optimized
// compilation units without synchronization.
type Oracle struct{}

// New returns a ready-to-use Oracle. There is no configuration: the oracle's
// answers are fixed facts about the Z80 instruction set.
func New() *Oracle { return &Oracle{} }

// Opcode returns the instruction's normalized (lower-case) mnemonic.
func (o *Oracle) Opcode(i *asm.Instruction) string {
	return strings.ToLower(i.Mnemonic)
}

// Operands returns the instruction's ordered operand list.
func (o *Oracle) Operands(i *asm.Instruction) []asm.Operand {
	return i.Operands
}

// flagDefiners maps a mnemonic to the flags it always defines, independent
// of operands. inc, whose flag behavior depends on its operand, is
// special-cased in DefinesFlags below.
var flagDefiners = map[string]FlagSet{
	"add": FlagSet(FlagS | FlagZ | FlagH | FlagP | FlagN | FlagC),
	"adc": FlagSet(FlagS | FlagZ | FlagH | FlagP | FlagN | FlagC),
	"sub": AllFlags,
	"sbc": AllFlags,
	"cp":  AllFlags,
	"and": FlagSet(FlagS | FlagZ | FlagH | FlagP | FlagN | FlagC),
	"or":  FlagSet(FlagS | FlagZ | FlagH | FlagP | FlagN | FlagC),
	"xor": FlagSet(FlagS | FlagZ | FlagH | FlagP | FlagN | FlagC),
	"dec": FlagSet(FlagS | FlagZ | FlagH | FlagP | FlagN),
	"neg": AllFlags,
	"cpl": FlagSet(FlagH | FlagN),
	"daa": FlagSet(FlagS | FlagZ | FlagH | FlagP | FlagC),
	"rla": FlagSet(FlagH | FlagN | FlagC),
	"rra": FlagSet(FlagH | FlagN | FlagC),
	"rlca": FlagSet(FlagH | FlagN | FlagC),
	"rrca": FlagSet(FlagH | FlagN | FlagC),
	"scf": FlagSet(FlagH | FlagN | FlagC),
	"ccf": FlagSet(FlagH | FlagN | FlagC),
	"bit": FlagSet(FlagS | FlagZ | FlagH | FlagP | FlagN),
	// ld, push, pop, jp, jr, call, ret, ex, exx, nop, di, ei, halt, ldi, ldir,
	// cpi, cpir, in, out, rst, im define no flags for this oracle's purposes
	// (ldi/cpi technically touch P/V but no rule file in this corpus
	// consults it, so it is intentionally omitted rather than guessed at).
}

// DefinesFlags returns the set of flags the instruction always defines
// (clobbers with a new value), e.g. sub defines all six; ld defines none;
// inc a defines S, Z, H, P/V, N but not C; or a defines S, Z, P/V and
// clears H, N, C (still "defined" — the oracle does not distinguish set
// from cleared, only touched from untouched).
func (o *Oracle) DefinesFlags(i *asm.Instruction) FlagSet {
	mnemonic := o.Opcode(i)
	switch mnemonic {
	case "inc":
		if len(i.Operands) == 1 && i.Operands[0].Kind == asm.OperandRegister {
			return FlagSet(FlagS | FlagZ | FlagH | FlagP | FlagN)
		}
		return 0 // inc on a 16-bit register pair defines nothing
	}
	return flagDefiners[mnemonic]
}

// pairHalves maps a register pair to its two eight-bit halves, used to
// resolve a register-pair access (e.g. `inc hl`) into its constituent
// eight-bit registers for UsesRegister/ChangesRegister queries.
var pairHalves = map[string][2]string{
	"bc": {"b", "c"},
	"de": {"d", "e"},
	"hl": {"h", "l"},
}

// UsesRegister reports whether the instruction reads register r (case
// insensitive; accepts either an 8-bit register name or a 16-bit pair).
func (o *Oracle) UsesRegister(i *asm.Instruction, r string) bool {
	r = strings.ToLower(r)
	mnemonic := o.Opcode(i)

	switch mnemonic {
	case "ld":
		if len(i.Operands) == 2 {
			return operandReads(i.Operands[1], r) || indirectReads(i.Operands[0], r)
		}
	case "push":
		if len(i.Operands) == 1 {
			return operandReads(i.Operands[0], r)
		}
	}

	for n, op := range i.Operands {
		// The destination operand of a two-operand arithmetic instruction
		// (add/adc/sub/sbc/and/or/xor/cp with an explicit accumulator) is
		// also a source; only `ld`'s first operand is write-only, handled
		// above.
		if mnemonic == "ld" && n == 0 {
			continue
		}
		if operandReads(op, r) {
			return true
		}
	}
	return false
}

func operandReads(op asm.Operand, r string) bool {
	switch op.Kind {
	case asm.OperandRegister:
		return op.Text == r
	case asm.OperandRegisterPair:
		if op.Text == r {
			return true
		}
		if halves, ok := pairHalves[op.Text]; ok {
			return halves[0] == r || halves[1] == r
		}
		return false
	case asm.OperandIndirect:
		if op.Inner != nil {
			return operandReads(*op.Inner, r)
		}
	}
	return false
}

func indirectReads(op asm.Operand, r string) bool {
	return op.Kind == asm.OperandIndirect && op.Inner != nil && operandReads(*op.Inner, r)
}

// ChangesRegister reports whether the instruction writes register r.
func (o *Oracle) ChangesRegister(i *asm.Instruction, r string) bool {
	r = strings.ToLower(r)
	mnemonic := o.Opcode(i)

	switch mnemonic {
	case "ld", "inc", "dec", "pop":
		if len(i.Operands) >= 1 {
			return operandReads(i.Operands[0], r) && i.Operands[0].Kind != asm.OperandIndirect
		}
	case "add", "adc", "sub", "sbc", "and", "or", "xor":
		// Single-operand forms (sub n, and r) always target A; two-operand
		// forms (add hl, bc) target the explicit first operand.
		if len(i.Operands) == 1 {
			return r == "a"
		}
		if len(i.Operands) == 2 {
			return operandReads(i.Operands[0], r)
		}
	case "ex":
		if len(i.Operands) == 2 {
			return operandReads(i.Operands[0], r) || operandReads(i.Operands[1], r)
		}
	case "exx":
		return r == "bc" || r == "de" || r == "hl" ||
			r == "b" || r == "c" || r == "d" || r == "e" || r == "h" || r == "l"
	}
	return false
}

// unconditionalJumps and friends classify control-flow instructions.
var unconditionalJumpMnemonics = map[string]bool{"jp": true, "jr": true}
var callMnemonics = map[string]bool{"call": true}
var returnMnemonics = map[string]bool{"ret": true, "reti": true, "retn": true}

// IsUnconditionalJump reports whether the instruction is a jp/jr with no
// condition operand.
func (o *Oracle) IsUnconditionalJump(i *asm.Instruction) bool {
	if !unconditionalJumpMnemonics[o.Opcode(i)] {
		return false
	}
	return len(i.Operands) == 1 || (len(i.Operands) > 0 && i.Operands[0].Kind != asm.OperandCondition)
}

// IsConditionalJump reports whether the instruction is a jp/jr/call/ret
// carrying a condition code operand (ret nz etc. has exactly one operand,
// the condition).
func (o *Oracle) IsConditionalJump(i *asm.Instruction) bool {
	m := o.Opcode(i)
	if !unconditionalJumpMnemonics[m] && !callMnemonics[m] && m != "ret" {
		return false
	}
	return len(i.Operands) > 0 && i.Operands[0].Kind == asm.OperandCondition
}

// IsCall reports whether the instruction is any form of call.
func (o *Oracle) IsCall(i *asm.Instruction) bool { return callMnemonics[o.Opcode(i)] }

// IsReturn reports whether the instruction is any form of ret.
func (o *Oracle) IsReturn(i *asm.Instruction) bool { return returnMnemonics[o.Opcode(i)] }

// ConditionOf returns the condition code for a conditional branch/call/ret,
// or "" if the instruction carries none.
func (o *Oracle) ConditionOf(i *asm.Instruction) string {
	if len(i.Operands) == 0 || i.Operands[0].Kind != asm.OperandCondition {
		return ""
	}
	return i.Operands[0].Text
}

// invertedCondition pairs each condition code with its logical negation.
var invertedCondition = map[string]string{
	"nz": "z", "z": "nz",
	"nc": "c", "c": "nc",
	"po": "pe", "pe": "po",
	"p": "m", "m": "p",
}

// carryDependentMnemonics read the carry flag as an input, not merely
// redefine it.
var carryDependentMnemonics = map[string]bool{"adc": true, "sbc": true, "rla": true, "rra": true}

// ConsumesFlags reports whether the instruction reads the flag register as
// an input: every conditional jump/call/ret, and the carry-dependent
// arithmetic/rotate instructions. Used by the IS_FLAG_UNUSED_BEFORE and
// OP_FLAGS_UNUSED_AT builtins to decide whether an upstream instruction's
// flag output is dead within the remainder of a matched window.
func (o *Oracle) ConsumesFlags(i *asm.Instruction) bool {
	if o.IsConditionalJump(i) {
		return true
	}
	if o.IsReturn(i) && len(i.Operands) > 0 && i.Operands[0].Kind == asm.OperandCondition {
		return true
	}
	return carryDependentMnemonics[o.Opcode(i)]
}

// InvertCondition returns the logical negation of a condition code. It is
// a Go-level helper only: no rule DSL builtin calls it, and the EQ16 rule
// derives its flipped condition with a DEFINE expression instead.
func InvertCondition(cond string) (string, bool) {
	inv, ok := invertedCondition[strings.ToLower(cond)]
	return inv, ok
}
