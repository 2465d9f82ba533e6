package rule

import (
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/boriel/boriel-basic/pkg/asm"
	"github.com/boriel/boriel-basic/pkg/z80"
)

// Env is the per-match context the expression evaluator runs against: the
// binding environment produced by the pattern matcher and the oracle/window
// the builtins consult. Evaluate adds DEFINE results, in declaration order,
// to a copy of Bindings that it returns; Env.Bindings itself is not changed.
type Env struct {
	Bindings map[int]Value
	Window   []*asm.Instruction
	Oracle   *z80.Oracle
}

// Evaluate runs a rule's DEFINE assignments in order and then its
// predicate, returning the extended binding environment and whether the
// rule fires. A false return with a nil error means the predicate (or a
// DEFINE expression feeding it) evaluated to a falsy value or hit an
// undefined variable in a required position — both are the "match
// failure" / "predicate-evaluation anomaly" error kinds (spec §7), which
// are silent by design and never surface as a Go error.
func Evaluate(r *Rule, env *Env) (map[int]Value, bool, error) {
	bindings := make(map[int]Value, len(env.Bindings)+len(r.Defines))
	for k, v := range env.Bindings {
		bindings[k] = v
	}
	scoped := &Env{Bindings: bindings, Window: env.Window, Oracle: env.Oracle}

	for _, d := range r.Defines {
		v, err := evalExpr(d.Expr, scoped)
		if err != nil {
			return nil, false, fmt.Errorf("evaluating DEFINE $%d: %w", d.Var, err)
		}
		bindings[d.Var] = v
	}

	if r.Predicate == nil {
		return bindings, true, nil
	}
	v, err := evalExpr(r.Predicate, scoped)
	if err != nil {
		return nil, false, fmt.Errorf("evaluating IF predicate: %w", err)
	}
	return bindings, v.Truthy(), nil
}

// evalExpr transpiles the validated AST into a literal Lua expression and
// evaluates it in a fresh, short-lived *lua.LState, mirroring this
// codebase's own EvaluateExpression entry point. A new state per call
// keeps the evaluator free of cross-match state leakage and matches the
// single-threaded-cooperative-per-unit concurrency model: nothing here is
// shared across driver instances.
func evalExpr(e Expr, env *Env) (Value, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	lua.OpenBase(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	src, err := transpile(e)
	if err != nil {
		return Undefined, err
	}

	registerBuiltins(L, env)

	if err := L.DoString("return (" + src + ")"); err != nil {
		return Undefined, err
	}
	result := L.Get(-1)
	L.Pop(1)
	return fromLua(result), nil
}

// transpile renders a validated expression AST as Lua source. Variable
// references become calls into a `__binding(n)` helper (registered per
// evaluation by registerBuiltins) rather than literal Lua values, so a
// Token-kind binding transpiles to the *value itself* being looked up at
// evaluation time — never as a bare Lua identifier, which would otherwise
// collide with Lua keywords or builtins.
func transpile(e Expr) (string, error) {
	switch n := e.(type) {
	case LiteralExpr:
		return literalLua(n.Value), nil
	case VarRefExpr:
		return fmt.Sprintf("__binding(%d)", n.Var), nil
	case UnaryExpr:
		x, err := transpile(n.X)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(not %s)", x), nil
	case BinaryExpr:
		left, err := transpile(n.Left)
		if err != nil {
			return "", err
		}
		right, err := transpile(n.Right)
		if err != nil {
			return "", err
		}
		switch n.Op {
		case "&&":
			return fmt.Sprintf("(%s and %s)", left, right), nil
		case "||":
			return fmt.Sprintf("(%s or %s)", left, right), nil
		case "==":
			// Lua's own `==` already returns false for differing Lua types
			// (a string never equals a number or nil), which is exactly
			// this DSL's "differing tag yields false" comparison rule.
			return fmt.Sprintf("(%s == %s)", left, right), nil
		case "!=":
			return fmt.Sprintf("(%s ~= %s)", left, right), nil
		}
		return "", fmt.Errorf("%w: unknown binary operator %q", ErrMalformedExpression, n.Op)
	case CallExpr:
		return transpileCall(n)
	}
	return "", fmt.Errorf("%w: unknown expression node", ErrMalformedExpression)
}

// rawVarBuiltins take the *variable number* of their provenance-bearing
// argument(s) rather than its converted Lua value, so the builtin closure
// can consult the original binding's Op/Instr metadata (see
// registerBuiltins). The map values are 1-based argument positions.
var rawVarBuiltins = map[string][]int{
	"IS_REGISTER":           {1},
	"IS_INDIR":              {1},
	"IS_LABEL":              {1},
	"IS_NUMERIC":            {1},
	"IS_INT":                {1},
	"IS_REQUIRED":           {1},
	"OP_NARGS":              {1},
	"OP_FLAGS_UNUSED_AT":    {1},
	"IS_FLAG_UNUSED_BEFORE": {1},
}

func transpileCall(n CallExpr) (string, error) {
	raw := rawVarBuiltins[n.Name]
	isRaw := func(pos int) bool {
		for _, p := range raw {
			if p == pos {
				return true
			}
		}
		return false
	}

	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		if isRaw(i + 1) {
			vr, ok := a.(VarRefExpr)
			if !ok {
				return "", fmt.Errorf("%w: %s argument %d must be a variable reference", ErrMalformedExpression, n.Name, i+1)
			}
			args[i] = fmt.Sprintf("%d", vr.Var)
			continue
		}
		s, err := transpile(a)
		if err != nil {
			return "", err
		}
		args[i] = s
	}
	return fmt.Sprintf("%s(%s)", n.Name, strings.Join(args, ", ")), nil
}

func literalLua(v Value) string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindToken, KindString:
		return fmt.Sprintf("%q", v.Str)
	default:
		return "nil"
	}
}

// toLua converts a tagged Value to its Lua representation for passing into
// the embedded interpreter. Tokens and strings both become LString: Lua's
// native `==` already implements this DSL's "differing tag equals false"
// rule for the case that matters at runtime (token vs number), since a
// Lua string never equals a Lua number.
func toLua(L *lua.LState, v Value) lua.LValue {
	switch v.Kind {
	case KindInt:
		return lua.LNumber(v.Int)
	case KindBool:
		return lua.LBool(v.Bool)
	case KindToken, KindString:
		return lua.LString(v.Str)
	default:
		return lua.LNil
	}
}

func fromLua(lv lua.LValue) Value {
	switch v := lv.(type) {
	case lua.LNumber:
		return Int(int64(v))
	case lua.LBool:
		return Bool(bool(v))
	case lua.LString:
		return Token(string(v))
	default:
		return Undefined
	}
}
