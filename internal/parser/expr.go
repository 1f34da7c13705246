// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package parser

import (
	"strings"

	"github.com/playbymail/yini/internal/arith"
	"github.com/playbymail/yini/internal/ast"
	"github.com/playbymail/yini/internal/token"
	"github.com/playbymail/yini/internal/yerrors"
)

// parseExpression implements `expression := term (('+'|'-') term)*`.
func (p *Parser) parseExpression() ast.Expr {
	if !p.enterNesting() {
		return nil
	}
	defer p.exitNesting()

	left := p.parseTerm()
	for p.err == nil && (p.cur.Kind == token.Plus || p.cur.Kind == token.Minus) {
		line, col := p.cur.Line, p.cur.Column
		op := ast.OpAdd
		if p.cur.Kind == token.Minus {
			op = ast.OpSub
		}
		p.advance()
		right := p.parseTerm()
		if p.err != nil {
			return nil
		}
		left = p.foldOrBuild(line, col, op, left, right)
	}
	return left
}

// parseTerm implements `term := factor (('*'|'/'|'%') factor)*`.
func (p *Parser) parseTerm() ast.Expr {
	left := p.parseFactor()
	for p.err == nil && (p.cur.Kind == token.Star || p.cur.Kind == token.Slash || p.cur.Kind == token.Percent) {
		line, col := p.cur.Line, p.cur.Column
		var op ast.BinaryOp
		switch p.cur.Kind {
		case token.Star:
			op = ast.OpMul
		case token.Slash:
			op = ast.OpDiv
		case token.Percent:
			op = ast.OpMod
		}
		p.advance()
		right := p.parseFactor()
		if p.err != nil {
			return nil
		}
		left = p.foldOrBuild(line, col, op, left, right)
	}
	return left
}

// parseFactor implements `factor := ('-')? primary`.
func (p *Parser) parseFactor() ast.Expr {
	if p.cur.Kind == token.Minus {
		line, col := p.cur.Line, p.cur.Column
		p.advance()
		operand := p.parsePrimary()
		if p.err != nil {
			return nil
		}
		if lit, ok := operand.(*ast.IntLit); ok {
			neg, overflow := arith.NegateInt(lit.Value)
			if overflow {
				p.failAt(yerrors.KindArithmeticOverflow, line, col, "negation of %d overflows 64 bits", lit.Value)
				return nil
			}
			return ast.NewInt(line, col, neg)
		}
		if lit, ok := operand.(*ast.FloatLit); ok {
			return ast.NewFloat(line, col, -lit.Value)
		}
		return ast.NewUnary(line, col, operand)
	}
	return p.parsePrimary()
}

// parsePrimary implements the `primary` production.
func (p *Parser) parsePrimary() ast.Expr {
	line, col := p.cur.Line, p.cur.Column
	switch p.cur.Kind {
	case token.Integer:
		v := p.cur.Payload.Int
		p.advance()
		return ast.NewInt(line, col, v)
	case token.Float:
		v := p.cur.Payload.Float
		p.advance()
		return ast.NewFloat(line, col, v)
	case token.Boolean:
		v := p.cur.Payload.Bool
		p.advance()
		return ast.NewBool(line, col, v)
	case token.String:
		v := p.cur.Payload.Text
		p.advance()
		return ast.NewString(line, col, v)
	case token.Color:
		hex := p.cur.Payload.Text
		p.advance()
		return ast.NewColor(line, col, hex)
	case token.LParen:
		return p.parseParenOrTuple()
	case token.LBracket:
		return p.parseArray()
	case token.LBrace:
		return p.parseMap()
	case token.At:
		p.advance()
		name := p.expectIdentifierText("define name after '@'")
		if p.err != nil {
			return nil
		}
		return ast.NewReference(line, col, name, false)
	case token.AtBrace:
		p.advance()
		// The lexer treats '.' as an identifier character, so "Section.Key"
		// arrives as a single dotted Identifier token.
		path := p.expectIdentifierText("section.key path in '@{...}'")
		if p.err != nil {
			return nil
		}
		if !strings.Contains(path, ".") {
			p.failAt(yerrors.KindExpectedValue, line, col, "expected a %q path in '@{...}', got %q", "section.key", path)
			return nil
		}
		p.expect(token.RBrace, "}")
		if p.err != nil {
			return nil
		}
		return ast.NewReference(line, col, path, true)
	case token.DollarBrace:
		p.advance()
		name := p.expectIdentifierText("environment variable name in '${...}'")
		if p.err != nil {
			return nil
		}
		p.expect(token.RBrace, "}")
		if p.err != nil {
			return nil
		}
		return ast.NewEnv(line, col, name)
	case token.Identifier:
		text := p.cur.Payload.Text
		p.advance()
		if p.cur.Kind == token.LParen {
			if !token.IsBuiltinCallee(text) {
				p.fail(yerrors.KindUnknownCallee, "unknown constructor %q", text)
				return nil
			}
			return p.parseCall(line, col, token.NormalizeCallee(text))
		}
		// A bare identifier that is not a constructor call is treated as
		// an implicit string literal (a "bareword"), the simplest reading
		// of the grammar's otherwise-unexplained `identifier` primary.
		return ast.NewString(line, col, text)
	default:
		p.fail(yerrors.KindExpectedValue, "expected a value, got %s", p.cur.Kind)
		return nil
	}
}

// parseCall parses a built-in constructor call's argument list. The caller
// has already consumed the callee identifier and confirmed it names a
// recognized builtin and that the current token is '('.
func (p *Parser) parseCall(line, col int, callee string) ast.Expr {
	p.expect(token.LParen, "(")
	if p.err != nil {
		return nil
	}

	if callee == "map" {
		if p.cur.Kind == token.LBrace {
			m := p.parseMap().(*ast.MapExpr)
			p.expect(token.RParen, ")")
			if p.err != nil {
				return nil
			}
			return ast.NewCall(line, col, callee, nil, m)
		}
	}

	var args []ast.Expr
	if p.cur.Kind != token.RParen {
		args = append(args, p.parseExpression())
		for p.err == nil && p.cur.Kind == token.Comma {
			p.advance()
			if p.cur.Kind == token.RParen {
				break // trailing comma
			}
			args = append(args, p.parseExpression())
		}
	}
	if p.err != nil {
		return nil
	}
	p.expect(token.RParen, ")")
	if p.err != nil {
		return nil
	}
	return ast.NewCall(line, col, callee, args, nil)
}

func (p *Parser) parseParenOrTuple() ast.Expr {
	line, col := p.cur.Line, p.cur.Column
	if !p.enterNesting() {
		return nil
	}
	defer p.exitNesting()
	p.advance() // consume '('

	var elems []ast.Expr
	trailingComma := false
	if p.cur.Kind != token.RParen {
		elems = append(elems, p.parseExpression())
		for p.err == nil && p.cur.Kind == token.Comma {
			p.advance()
			if p.cur.Kind == token.RParen {
				trailingComma = true
				break
			}
			elems = append(elems, p.parseExpression())
		}
	}
	if p.err != nil {
		return nil
	}
	p.expect(token.RParen, ")")
	if p.err != nil {
		return nil
	}
	if len(elems) == 1 && !trailingComma {
		return ast.NewGroup(line, col, elems[0])
	}
	return ast.NewTuple(line, col, elems)
}

func (p *Parser) parseArray() ast.Expr {
	line, col := p.cur.Line, p.cur.Column
	if !p.enterNesting() {
		return nil
	}
	defer p.exitNesting()
	p.advance() // consume '['

	var elems []ast.Expr
	if p.cur.Kind != token.RBracket {
		elems = append(elems, p.parseExpression())
		for p.err == nil && p.cur.Kind == token.Comma {
			p.advance()
			if p.cur.Kind == token.RBracket {
				break
			}
			elems = append(elems, p.parseExpression())
			if len(elems) > p.maxArraySize {
				p.failAt(yerrors.KindCollectionTooLarge, line, col, "array exceeds %d elements", p.maxArraySize)
				return nil
			}
		}
	}
	if p.err != nil {
		return nil
	}
	p.expect(token.RBracket, "]")
	if p.err != nil {
		return nil
	}
	return ast.NewArray(line, col, elems)
}

func (p *Parser) parseMap() ast.Expr {
	line, col := p.cur.Line, p.cur.Column
	if !p.enterNesting() {
		return nil
	}
	defer p.exitNesting()
	p.advance() // consume '{'

	var keys []string
	var vals []ast.Expr
	if p.cur.Kind != token.RBrace {
		k, v := p.parseMapPair()
		if p.err != nil {
			return nil
		}
		keys, vals = append(keys, k), append(vals, v)
		for p.err == nil && p.cur.Kind == token.Comma {
			p.advance()
			if p.cur.Kind == token.RBrace {
				break
			}
			k, v := p.parseMapPair()
			if p.err != nil {
				return nil
			}
			keys, vals = append(keys, k), append(vals, v)
		}
	}
	if p.err != nil {
		return nil
	}
	p.expect(token.RBrace, "}")
	if p.err != nil {
		return nil
	}
	return ast.NewMap(line, col, keys, vals)
}

func (p *Parser) parseMapPair() (string, ast.Expr) {
	key := p.expectIdentifierText("map key")
	if p.err != nil {
		return "", nil
	}
	p.expect(token.Colon, ":")
	if p.err != nil {
		return "", nil
	}
	return key, p.parseExpression()
}

// foldOrBuild constant-folds integer-integer and any-float arithmetic at
// parse time (spec §4.C); when either operand is not a literal (e.g. it is
// a reference, env var, or call) it builds a deferred BinaryExpr node for
// the evaluator to finish once operands are resolved.
func (p *Parser) foldOrBuild(line, col int, op ast.BinaryOp, left, right ast.Expr) ast.Expr {
	li, lok := left.(*ast.IntLit)
	ri, rok := right.(*ast.IntLit)
	if lok && rok {
		result, overflow, divZero, modZero := foldInts(op, li.Value, ri.Value)
		if divZero {
			p.failAt(yerrors.KindDivideByZero, line, col, "division by zero")
			return nil
		}
		if modZero {
			p.failAt(yerrors.KindModuloByZero, line, col, "modulo by zero")
			return nil
		}
		if overflow {
			p.failAt(yerrors.KindArithmeticOverflow, line, col, "%d %s %d overflows 64 bits", li.Value, op, ri.Value)
			return nil
		}
		return ast.NewInt(line, col, result)
	}

	lf, lIsFloat := asFloatLit(left)
	rf, rIsFloat := asFloatLit(right)
	if (lok || lIsFloat) && (rok || rIsFloat) {
		a := lf
		if lok {
			a = float64(li.Value)
		}
		b := rf
		if rok {
			b = float64(ri.Value)
		}
		return ast.NewFloat(line, col, foldFloats(op, a, b))
	}

	return ast.NewBinary(line, col, op, left, right)
}

func asFloatLit(e ast.Expr) (float64, bool) {
	if f, ok := e.(*ast.FloatLit); ok {
		return f.Value, true
	}
	return 0, false
}

func foldInts(op ast.BinaryOp, a, b int64) (result int64, overflow, divZero, modZero bool) {
	switch op {
	case ast.OpAdd:
		result, overflow = arith.AddInt(a, b)
	case ast.OpSub:
		result, overflow = arith.SubInt(a, b)
	case ast.OpMul:
		result, overflow = arith.MulInt(a, b)
	case ast.OpDiv:
		if b == 0 {
			return 0, false, true, false
		}
		result, overflow = arith.DivInt(a, b)
	case ast.OpMod:
		if b == 0 {
			return 0, false, false, true
		}
		result, overflow = arith.ModInt(a, b)
	}
	return result, overflow, false, false
}

func foldFloats(op ast.BinaryOp, a, b float64) float64 {
	switch op {
	case ast.OpAdd:
		return a + b
	case ast.OpSub:
		return a - b
	case ast.OpMul:
		return a * b
	case ast.OpDiv:
		return a / b
	case ast.OpMod:
		return float64(int64(a) % int64(b))
	}
	return 0
}

func (p *Parser) failAt(kind yerrors.Kind, line, col int, format string, args ...any) {
	if p.err == nil {
		p.err = yerrors.New(kind, line, col, format, args...)
	}
}
