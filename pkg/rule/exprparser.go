package rule

import "fmt"

// exprParser is a hand-written recursive-descent parser for IF/DEFINE
// expressions, following the precedence order `!` > `==`/`!=` > `&&` >
// `||` with short-circuit evaluation semantics (enforced later, at
// transpilation time, by Lua's own operators). No parser-generator
// dependency is used here, matching this codebase's own hand-parsed
// assembler-expression grammar.
type exprParser struct {
	lex *exprLexer
	tok exprToken
}

// ParseExpression parses a complete IF/DEFINE expression string into an
// Expr AST. It does not check variable-boundedness or builtin arity; that
// is the caller's job (performed once per rule by ParseFile, see
// checkBindings and checkBuiltins) so the first rejection always happens
// before the rule is ever matched against a window.
func ParseExpression(src string) (Expr, error) {
	p := &exprParser{lex: newExprLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, fmt.Errorf("%w: trailing input after expression", ErrMalformedExpression)
	}
	return e, nil
}

func (p *exprParser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *exprParser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "||", Left: left, Right: right}
	}
	return left, nil
}

func (p *exprParser) parseAnd() (Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "&&", Left: left, Right: right}
	}
	return left, nil
}

func (p *exprParser) parseEquality() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokEq || p.tok.kind == tokNeq {
		op := "=="
		if p.tok.kind == tokNeq {
			op = "!="
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *exprParser) parseUnary() (Expr, error) {
	if p.tok.kind == tokNot {
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: "!", X: x}, nil
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (Expr, error) {
	switch p.tok.kind {
	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, fmt.Errorf("%w: expected ')'", ErrMalformedExpression)
		}
		return e, p.advance()
	case tokVar:
		v := int(p.tok.n)
		return v2(v), p.advance()
	case tokInt:
		n := p.tok.n
		return finishLiteral(LiteralExpr{Value: Int(n)}, p)
	case tokString:
		s := p.tok.text
		return finishLiteral(LiteralExpr{Value: String(s)}, p)
	case tokIdent:
		name := p.tok.text
		switch name {
		case "true":
			return finishLiteral(LiteralExpr{Value: Bool(true)}, p)
		case "false":
			return finishLiteral(LiteralExpr{Value: Bool(false)}, p)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind == tokLParen {
			return p.parseCall(name)
		}
		// A bare identifier outside of a call is a token literal (e.g. the
		// `or`/`and`/`nz` symbols compared against in the EQ16 example's
		// predicate and DEFINE expressions).
		return LiteralExpr{Value: Token(name)}, nil
	}
	return nil, fmt.Errorf("%w: unexpected token in expression", ErrMalformedExpression)
}

func v2(n int) Expr { return VarRefExpr{Var: n} }

func finishLiteral(e Expr, p *exprParser) (Expr, error) {
	return e, p.advance()
}

func (p *exprParser) parseCall(name string) (Expr, error) {
	if err := p.advance(); err != nil { // consume '('
		return nil, err
	}
	var args []Expr
	if p.tok.kind != tokRParen {
		for {
			a, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.tok.kind == tokComma {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	if p.tok.kind != tokRParen {
		return nil, fmt.Errorf("%w: expected ')' closing call to %s", ErrMalformedExpression, name)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return CallExpr{Name: name, Args: args}, nil
}
