package rule

import "fmt"

// checkBindings enforces I2: every variable referenced in DEFINE, IF, or
// WITH must be introduced either by the pattern or by an earlier DEFINE.
// This walks the rule exactly once at load time, in declaration order, so
// a DEFINE that references a later DEFINE's variable is rejected too.
func checkBindings(r *Rule) error {
	bound := map[int]bool{}
	for _, pl := range r.Pattern {
		if pl.Mnemonic.Kind == TermVariable {
			bound[pl.Mnemonic.Var] = true
		}
		for _, t := range pl.Operands {
			if t.Kind == TermVariable {
				bound[t.Var] = true
			}
		}
	}

	for _, d := range r.Defines {
		for _, v := range Variables(d.Expr) {
			if !bound[v] {
				return fmt.Errorf("DEFINE $%d references unbound variable $%d", d.Var, v)
			}
		}
		bound[d.Var] = true
	}

	if r.Predicate != nil {
		for _, v := range Variables(r.Predicate) {
			if !bound[v] {
				return fmt.Errorf("IF predicate references unbound variable $%d", v)
			}
		}
	}

	for _, rl := range r.Replacement {
		if rl.Mnemonic.Kind == TermVariable && !bound[rl.Mnemonic.Var] {
			return fmt.Errorf("WITH block references unbound variable $%d", rl.Mnemonic.Var)
		}
		for _, t := range rl.Operands {
			if t.Kind == TermVariable && !bound[t.Var] {
				return fmt.Errorf("WITH block references unbound variable $%d", t.Var)
			}
		}
	}

	return nil
}

// checkBuiltins enforces the load-time arity and unknown-function checks
// over every CallExpr reachable from DEFINE and IF.
func checkBuiltins(r *Rule) error {
	check := func(e Expr) error {
		var err error
		var walk func(Expr)
		walk = func(e Expr) {
			if err != nil {
				return
			}
			switch n := e.(type) {
			case CallExpr:
				arity, ok := KnownBuiltin(n.Name)
				if !ok {
					err = loadErr(r.Source, ErrUnknownBuiltin, "call to unknown function %s", n.Name)
					return
				}
				if len(n.Args) != arity {
					err = loadErr(r.Source, ErrArityMismatch, "%s expects %d argument(s), got %d", n.Name, arity, len(n.Args))
					return
				}
				for pos, a := range n.Args {
					for _, rawPos := range rawVarBuiltins[n.Name] {
						if rawPos == pos+1 {
							if _, ok := a.(VarRefExpr); !ok {
								err = loadErr(r.Source, ErrMalformedExpression, "%s argument %d must be a variable reference", n.Name, pos+1)
								return
							}
						}
					}
				}
				for _, a := range n.Args {
					walk(a)
				}
			case UnaryExpr:
				walk(n.X)
			case BinaryExpr:
				walk(n.Left)
				walk(n.Right)
			}
		}
		walk(e)
		return err
	}

	for _, d := range r.Defines {
		if err := check(d.Expr); err != nil {
			return err
		}
	}
	if r.Predicate != nil {
		if err := check(r.Predicate); err != nil {
			return err
		}
	}
	return nil
}
