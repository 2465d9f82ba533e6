// Package peephole implements the pattern matcher, rewriter, and fixed-
// point driver that together apply a loaded rule registry to an assembly
// instruction stream.
package peephole

import (
	"github.com/boriel/boriel-basic/pkg/asm"
	"github.com/boriel/boriel-basic/pkg/rule"
	"github.com/boriel/boriel-basic/pkg/z80"
)

// Match attempts to unify r's pattern against window, a contiguous slice of
// executable instructions of exactly len(r.Pattern) length. On success it
// returns the binding environment; on failure it returns (nil, false) with
// no partial binding ever leaking out, matching the matcher's "no partial
// binding" invariant.
func Match(r *rule.Rule, window []*asm.Instruction) (map[int]rule.Value, bool) {
	if len(window) != len(r.Pattern) {
		return nil, false
	}

	bindings := map[int]rule.Value{}
	for idx, pl := range r.Pattern {
		instr := window[idx]

		if !matchMnemonic(pl.Mnemonic, instr, idx, bindings) {
			return nil, false
		}
		if len(pl.Operands) != len(instr.Operands) {
			return nil, false
		}
		for opIdx, term := range pl.Operands {
			if !matchOperand(term, instr, idx, opIdx, bindings) {
				return nil, false
			}
		}
	}
	return bindings, true
}

func matchMnemonic(term rule.Term, instr *asm.Instruction, windowIdx int, bindings map[int]rule.Value) bool {
	mnemonic := lowerMnemonic(instr)
	if term.Kind == rule.TermLiteral {
		return term.Text == mnemonic
	}
	v := rule.Value{Kind: rule.KindToken, Str: mnemonic, Instr: instr, WindowIndex: windowIdx}
	return bindOrCheck(bindings, term.Var, v)
}

func matchOperand(term rule.Term, instr *asm.Instruction, windowIdx, opIdx int, bindings map[int]rule.Value) bool {
	op := instr.Operands[opIdx]
	if term.Kind == rule.TermLiteral {
		lit := asm.ParseOperand(term.Text)
		if op.Kind == asm.OperandCondition {
			lit = asm.ParseOperandAs(term.Text, true)
		}
		return lit.Equal(op)
	}
	v := operandToValue(op, instr, windowIdx)
	return bindOrCheck(bindings, term.Var, v)
}

// bindOrCheck implements "first occurrence binds, subsequent occurrences
// require identity": the first time $N is seen it is recorded verbatim;
// every later occurrence must compare equal (by Value, not by Go identity)
// to the original binding.
func bindOrCheck(bindings map[int]rule.Value, n int, v rule.Value) bool {
	existing, seen := bindings[n]
	if !seen {
		bindings[n] = v
		return true
	}
	return existing.Equal(v)
}

func operandToValue(op asm.Operand, instr *asm.Instruction, windowIdx int) rule.Value {
	base := rule.Value{Instr: instr, WindowIndex: windowIdx, Op: &op}
	switch op.Kind {
	case asm.OperandImmediate:
		base.Kind = rule.KindInt
		base.Int = op.Int
	default:
		base.Kind = rule.KindToken
		base.Str = op.Text
	}
	return base
}

func lowerMnemonic(instr *asm.Instruction) string {
	return z80.New().Opcode(instr)
}
