// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package parser

import (
	"strings"

	"github.com/playbymail/yini/internal/ast"
	"github.com/playbymail/yini/internal/token"
	"github.com/playbymail/yini/internal/yerrors"
)

var schemaTypes = map[string]bool{
	"int": true, "float": true, "bool": true, "string": true, "array": true,
}

// parseSchemaBody parses the body of a `[#schema.SectionName]` block: zero
// or more `key = requirement, type[, options...]` lines, where type may be
// `array[element]` (spec
// §4.D). The explicit per-section dotted header is this parser's resolution
// of the grammar's otherwise-unspecified schema nesting: the lexer already
// treats a dot as an identifier separator (spec §4.A), so "schema.Section"
// reads naturally as a path.
func (p *Parser) parseSchemaBody(doc *ast.Document, sectionName string, headerLine, headerCol int) {
	sec := ast.SchemaSection{Name: sectionName, Line: headerLine, Col: headerCol}

	for p.err == nil && p.cur.Kind == token.Identifier {
		rule := ast.SchemaRule{Line: p.cur.Line, Col: p.cur.Column}
		rule.Key = p.cur.Payload.Text
		p.advance()
		p.expect(token.Equal, "=")
		if p.err != nil {
			return
		}

		switch p.cur.Kind {
		case token.Bang:
			rule.Required = true
			p.advance()
		case token.Question:
			rule.Required = false
			p.advance()
		default:
			p.fail(yerrors.KindExpectedValue, "expected '!' or '?', got %s", p.cur.Kind)
			return
		}
		p.expect(token.Comma, ",")
		if p.err != nil {
			return
		}

		typeName := p.expectIdentifierText("a schema type (int, float, bool, string, array)")
		if p.err != nil {
			return
		}
		typeName = strings.ToLower(typeName)
		if !schemaTypes[typeName] {
			p.fail(yerrors.KindExpectedValue, "unknown schema type %q", typeName)
			return
		}
		rule.Type = typeName

		if typeName == "array" && p.cur.Kind == token.LBracket {
			p.advance()
			elem := p.expectIdentifierText("array element type")
			if p.err != nil {
				return
			}
			rule.ElementType = strings.ToLower(elem)
			p.expect(token.RBracket, "]")
			if p.err != nil {
				return
			}
		}

		for p.err == nil && p.cur.Kind == token.Comma {
			p.advance()
			if p.err = p.parseSchemaOption(&rule); p.err != nil {
				return
			}
		}

		sec.Rules = append(sec.Rules, rule)
	}

	doc.Schema = append(doc.Schema, sec)
}

// parseSchemaOption parses one `name=value` option clause appended to a
// schema rule: min=, max=, default=, or on_empty=.
func (p *Parser) parseSchemaOption(rule *ast.SchemaRule) *yerrors.Error {
	name := p.expectIdentifierText("schema option name")
	if p.err != nil {
		return p.err
	}
	p.expect(token.Equal, "=")
	if p.err != nil {
		return p.err
	}

	switch strings.ToLower(name) {
	case "min", "max":
		line, col := p.cur.Line, p.cur.Column
		expr := p.parseExpression()
		if p.err != nil {
			return p.err
		}
		n, ok := numericLiteralValue(expr)
		if !ok {
			p.failAt(yerrors.KindExpectedValue, line, col, "%s= requires a numeric literal", name)
			return p.err
		}
		if strings.ToLower(name) == "min" {
			rule.Min = &n
		} else {
			rule.Max = &n
		}
	case "default":
		rule.Default = p.parseExpression()
		if p.err != nil {
			return p.err
		}
	case "on_empty":
		text := p.expectIdentifierText("on_empty value (ignore, default, or error)")
		if p.err != nil {
			return p.err
		}
		switch strings.ToLower(text) {
		case "ignore", "default", "error":
			rule.OnEmpty = strings.ToLower(text)
		default:
			p.fail(yerrors.KindExpectedValue, "on_empty must be ignore, default, or error, got %q", text)
			return p.err
		}
	default:
		p.fail(yerrors.KindExpectedToken, "unknown schema option %q", name)
		return p.err
	}
	return nil
}

func numericLiteralValue(e ast.Expr) (float64, bool) {
	switch n := e.(type) {
	case *ast.IntLit:
		return float64(n.Value), true
	case *ast.FloatLit:
		return n.Value, true
	default:
		return 0, false
	}
}
