package rule

import (
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/boriel/boriel-basic/pkg/asm"
	"github.com/boriel/boriel-basic/pkg/z80"
)

// registerBuiltins installs `__binding` (the variable-lookup primitive the
// transpiler emits for ordinary operand positions) plus the oracle-backed
// and string builtin functions as globals on a freshly created Lua state,
// all closing over the current match Env. Builtins that need provenance
// (IS_REGISTER, OP_NARGS, ...) receive the variable's number directly
// rather than its converted Lua value, since converting to a Lua primitive
// first would discard the Operand/Instruction metadata those builtins
// inspect.
func registerBuiltins(L *lua.LState, env *Env) {
	lookup := func(n int) Value {
		v, ok := env.Bindings[n]
		if !ok {
			return Undefined
		}
		return v
	}

	L.SetGlobal("__binding", L.NewFunction(func(L *lua.LState) int {
		n := int(L.CheckNumber(1))
		L.Push(toLua(L, lookup(n)))
		return 1
	}))

	reg := func(name string, fn func(int) bool) {
		L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
			n := int(L.CheckNumber(1))
			L.Push(lua.LBool(fn(n)))
			return 1
		}))
	}

	reg("IS_REGISTER", func(n int) bool {
		v := lookup(n)
		return v.Op != nil && (v.Op.Kind == asm.OperandRegister || v.Op.Kind == asm.OperandRegisterPair)
	})
	reg("IS_INDIR", func(n int) bool {
		v := lookup(n)
		return v.Op != nil && v.Op.Kind == asm.OperandIndirect
	})
	reg("IS_LABEL", func(n int) bool {
		v := lookup(n)
		return v.Op != nil && v.Op.Kind == asm.OperandSymbol
	})
	reg("IS_NUMERIC", func(n int) bool {
		v := lookup(n)
		return v.Kind == KindInt || (v.Op != nil && v.Op.Kind == asm.OperandImmediate)
	})
	reg("IS_INT", func(n int) bool {
		return lookup(n).Kind == KindInt
	})
	reg("IS_REQUIRED", func(n int) bool {
		return lookup(n).Kind != KindUndefined
	})

	L.SetGlobal("OP_NARGS", L.NewFunction(func(L *lua.LState) int {
		n := int(L.CheckNumber(1))
		v := lookup(n)
		if v.Instr == nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LNumber(len(v.Instr.Operands)))
		return 1
	}))

	L.SetGlobal("OP_FLAGS_UNUSED_AT", L.NewFunction(func(L *lua.LState) int {
		n := int(L.CheckNumber(1))
		v := lookup(n)
		if v.Instr == nil || env.Oracle == nil {
			L.Push(lua.LBool(false))
			return 1
		}
		defined := env.Oracle.DefinesFlags(v.Instr)
		allDead := true
		for _, f := range []z80.Flag{z80.FlagS, z80.FlagZ, z80.FlagH, z80.FlagP, z80.FlagN, z80.FlagC} {
			if defined.Has(f) && !flagDeadForward(env, v.WindowIndex, f) {
				allDead = false
			}
		}
		L.Push(lua.LBool(allDead))
		return 1
	}))

	L.SetGlobal("IS_FLAG_UNUSED_BEFORE", L.NewFunction(func(L *lua.LState) int {
		n := int(L.CheckNumber(1))
		flagName := strings.ToLower(L.CheckString(2))
		v := lookup(n)
		if v.Instr == nil || env.Oracle == nil {
			L.Push(lua.LBool(false))
			return 1
		}
		flag, ok := flagByName[flagName]
		if !ok {
			L.Push(lua.LBool(false))
			return 1
		}
		L.Push(lua.LBool(flagDeadForward(env, v.WindowIndex, flag)))
		return 1
	}))

	L.SetGlobal("LOWER", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(strings.ToLower(L.CheckString(1))))
		return 1
	}))
	L.SetGlobal("UPPER", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(strings.ToUpper(L.CheckString(1))))
		return 1
	}))
	L.SetGlobal("CONCAT", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(L.CheckString(1) + L.CheckString(2)))
		return 1
	}))
}

var flagByName = map[string]z80.Flag{
	"c": z80.FlagC, "z": z80.FlagZ, "s": z80.FlagS,
	"h": z80.FlagH, "p": z80.FlagP, "pv": z80.FlagP, "n": z80.FlagN,
}

// flagDeadForward reports whether flag is dead (unused) from the
// instruction immediately after fromIndex to the end of the matched
// window: scanning forward, an instruction that consumes flags before any
// instruction redefines this one means it is NOT dead; an instruction that
// redefines this flag first means it is dead from that point on. Reaching
// the end of the window without either is treated as dead, since nothing
// outside the matched window is visible to this analysis.
func flagDeadForward(env *Env, fromIndex int, flag z80.Flag) bool {
	if env.Oracle == nil {
		return false
	}
	for idx := fromIndex + 1; idx < len(env.Window); idx++ {
		instr := env.Window[idx]
		if env.Oracle.ConsumesFlags(instr) {
			return false
		}
		if env.Oracle.DefinesFlags(instr).Has(flag) {
			return true
		}
	}
	return true
}
