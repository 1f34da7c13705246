// Copyright (c) 2024 Michael D Henderson. All rights reserved.

// Package parser implements the recursive-descent, operator-precedence
// parser that turns a YINI token stream into an AST (spec §4.C). Like the
// teacher's report parser, it fails fast: the first error encountered is
// recorded and parsing stops, returning no partial document.
package parser

import (
	"strings"

	"github.com/playbymail/yini/internal/ast"
	"github.com/playbymail/yini/internal/config"
	"github.com/playbymail/yini/internal/lexer"
	"github.com/playbymail/yini/internal/token"
	"github.com/playbymail/yini/internal/yerrors"
)

// Resource caps (spec §5). These are the defaults New/Parse enforce; a
// caller wanting an override should use NewWithConfig/ParseWithConfig
// instead (spec §9: configure limits per parse call, not via globals).
const (
	MaxRecursionDepth = 100
	MaxArraySize      = 100000
)

// Parser walks a token stream emitted by internal/lexer and builds an
// *ast.Document.
type Parser struct {
	lex   *lexer.Lexer
	cur   token.Token
	err   *yerrors.Error
	depth int

	maxRecursionDepth int
	maxArraySize      int
}

// New creates a Parser over src enforcing the default spec §5 resource
// caps. It starts scanning immediately so that p.cur always holds a valid
// lookahead token.
func New(src []byte) *Parser {
	return NewWithConfig(src, config.Default())
}

// NewWithConfig creates a Parser over src, enforcing cfg.Resources' caps
// (falling back to the spec §5 defaults for any field left at zero) across
// both the parser and the lexer feeding it.
func NewWithConfig(src []byte, cfg *config.Config) *Parser {
	if cfg == nil {
		cfg = config.Default()
	}
	p := &Parser{
		lex:               lexer.NewWithLimits(src, cfg.Resources.StringLengthLimit(), cfg.Resources.IdentifierLengthLimit()),
		maxRecursionDepth: cfg.Resources.RecursionDepthLimit(),
		maxArraySize:      cfg.Resources.ArraySizeLimit(),
	}
	p.advance()
	return p
}

// Parse consumes the entire token stream and returns the root document
// node, or the first error encountered.
func Parse(src []byte) (*ast.Document, *yerrors.Error) {
	return New(src).Parse()
}

// ParseWithConfig is Parse with caller-supplied resource caps (spec §9).
func ParseWithConfig(src []byte, cfg *config.Config) (*ast.Document, *yerrors.Error) {
	return NewWithConfig(src, cfg).Parse()
}

func (p *Parser) Parse() (*ast.Document, *yerrors.Error) {
	doc := &ast.Document{}
	seenSections := map[string]bool{}
	seenSpecial := map[string]bool{}

	for p.err == nil && p.cur.Kind != token.EOF {
		if p.cur.Kind == token.PlusEqual {
			p.fail(yerrors.KindExpectedToken, "'+=' is not allowed at document top level")
			break
		}
		if p.cur.Kind != token.LBracket {
			p.fail(yerrors.KindExpectedToken, "expected '[' to start a section, got %s", p.cur.Kind)
			break
		}
		line, col := p.cur.Line, p.cur.Column
		p.advance()

		if p.cur.Kind == token.Hash {
			p.advance()
			name := p.expectIdentifierText("directive name")
			if p.err != nil {
				break
			}
			switch {
			case name == "define":
				p.expect(token.RBracket, "]")
				if p.err != nil {
					break
				}
				if seenSpecial["define"] {
					p.fail(yerrors.KindDuplicateSectionName, "duplicate [#define] section")
					break
				}
				seenSpecial["define"] = true
				p.parseDefineBody(doc)
			case name == "include":
				p.expect(token.RBracket, "]")
				if p.err != nil {
					break
				}
				if seenSpecial["include"] {
					p.fail(yerrors.KindDuplicateSectionName, "duplicate [#include] section")
					break
				}
				seenSpecial["include"] = true
				p.parseIncludeBody(doc)
			case strings.HasPrefix(name, "schema."):
				sectionName := strings.TrimPrefix(name, "schema.")
				p.expect(token.RBracket, "]")
				if p.err != nil {
					break
				}
				if seenSpecial["schema."+sectionName] {
					p.fail(yerrors.KindDuplicateSectionName, "duplicate [#schema.%s] section", sectionName)
					break
				}
				seenSpecial["schema."+sectionName] = true
				p.parseSchemaBody(doc, sectionName, line, col)
			default:
				p.fail(yerrors.KindExpectedToken, "unknown directive %q", name)
			}
			continue
		}

		name := p.expectIdentifierText("section name")
		if p.err != nil {
			break
		}
		var parents []string
		if p.cur.Kind == token.Colon {
			p.advance()
			parents = append(parents, p.expectIdentifierText("parent section name"))
			for p.err == nil && p.cur.Kind == token.Comma {
				p.advance()
				parents = append(parents, p.expectIdentifierText("parent section name"))
			}
		}
		p.expect(token.RBracket, "]")
		if p.err != nil {
			break
		}
		if parents == nil && p.cur.Kind == token.Colon {
			// parents may also follow the brackets: [Name]:P1, P2
			p.advance()
			parents = append(parents, p.expectIdentifierText("parent section name"))
			for p.err == nil && p.cur.Kind == token.Comma {
				p.advance()
				parents = append(parents, p.expectIdentifierText("parent section name"))
			}
			if p.err != nil {
				break
			}
		}
		if seenSections[name] {
			p.fail(yerrors.KindDuplicateSectionName, "duplicate section %q", name)
			break
		}
		seenSections[name] = true

		sec := ast.Section{Name: name, Parents: parents, Line: line, Col: col}
		p.parseSectionBody(&sec)
		doc.Sections = append(doc.Sections, sec)
	}

	if p.err != nil {
		return nil, p.err
	}
	return doc, nil
}

func (p *Parser) parseDefineBody(doc *ast.Document) {
	for p.err == nil && p.cur.Kind == token.Identifier {
		line, col := p.cur.Line, p.cur.Column
		key := p.cur.Payload.Text
		p.advance()
		p.expect(token.Equal, "=")
		if p.err != nil {
			return
		}
		expr := p.parseExpression()
		if p.err != nil {
			return
		}
		doc.Defines = append(doc.Defines, ast.DefineEntry{Key: key, Value: expr, Line: line, Col: col})
	}
}

func (p *Parser) parseIncludeBody(doc *ast.Document) {
	for p.err == nil && p.cur.Kind == token.PlusEqual {
		line, col := p.cur.Line, p.cur.Column
		p.advance()
		if p.cur.Kind != token.String {
			p.fail(yerrors.KindExpectedValue, "expected a quoted filename after '+=' in [#include]")
			return
		}
		filename := p.cur.Payload.Text
		p.advance()
		doc.Includes = append(doc.Includes, ast.IncludeEntry{Filename: filename, Line: line, Col: col})
	}
}

func (p *Parser) parseSectionBody(sec *ast.Section) {
	for p.err == nil {
		switch p.cur.Kind {
		case token.Identifier:
			line, col := p.cur.Line, p.cur.Column
			key := p.cur.Payload.Text
			p.advance()
			p.expect(token.Equal, "=")
			if p.err != nil {
				return
			}
			expr := p.parseExpression()
			if p.err != nil {
				return
			}
			sec.Entries = append(sec.Entries, ast.Entry{Key: key, Value: expr, Line: line, Col: col})
		case token.PlusEqual:
			p.advance()
			expr := p.parseExpression()
			if p.err != nil {
				return
			}
			sec.Registrations = append(sec.Registrations, expr)
		default:
			return
		}
	}
}

// advance pulls the next token from the lexer, propagating a lexical
// error if one occurred.
func (p *Parser) advance() {
	if p.err != nil {
		return
	}
	p.cur = p.lex.Next()
	if lerr := p.lex.Err(); lerr != nil {
		p.err = lerr
	}
}

func (p *Parser) fail(kind yerrors.Kind, format string, args ...any) {
	if p.err == nil {
		p.err = yerrors.New(kind, p.cur.Line, p.cur.Column, format, args...)
	}
}

func (p *Parser) expect(kind token.Kind, human string) {
	if p.err != nil {
		return
	}
	if p.cur.Kind != kind {
		p.fail(yerrors.KindExpectedToken, "expected %q, got %s", human, p.cur.Kind)
		return
	}
	p.advance()
}

// expectIdentifierText consumes an Identifier token and returns its text,
// or records an ExpectedToken error naming what was being parsed.
func (p *Parser) expectIdentifierText(what string) string {
	if p.err != nil {
		return ""
	}
	if p.cur.Kind != token.Identifier {
		p.fail(yerrors.KindExpectedToken, "expected %s, got %s", what, p.cur.Kind)
		return ""
	}
	text := p.cur.Payload.Text
	p.advance()
	return text
}

func (p *Parser) enterNesting() bool {
	p.depth++
	if p.depth > p.maxRecursionDepth {
		p.fail(yerrors.KindNestingTooDeep, "nesting exceeds %d levels", p.maxRecursionDepth)
		return false
	}
	return true
}

func (p *Parser) exitNesting() { p.depth-- }
