// Copyright (c) 2024 Michael D Henderson. All rights reserved.

// Package token defines the tagged token kind and the token/value types
// shared by the lexer and the parser.
package token

import "fmt"

// Kind enumerates the token kinds produced by the lexer (spec §3, §4.A).
type Kind int

const (
	EOF Kind = iota

	Integer
	Float
	Boolean
	String
	Identifier

	// Section punctuation
	LBracket // [
	RBracket // ]

	// Structural punctuation
	Comma  // ,
	Colon  // :
	LParen // (
	RParen // )
	LBrace // {
	RBrace // }

	// Operators
	Equal      // =
	PlusEqual  // +=
	Plus       // +
	Minus      // -
	Star       // *
	Slash      // /
	Percent    // %

	// Sigils
	At        // @
	AtBrace   // @{
	DollarBrace // ${
	Hash      // #
	Bang      // !
	Question  // ?
	Tilde     // ~

	// A hex color literal: # followed by exactly six hex digits.
	Color
)

//go:generate stringer -type=Kind

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Integer:
		return "Integer"
	case Float:
		return "Float"
	case Boolean:
		return "Boolean"
	case String:
		return "String"
	case Identifier:
		return "Identifier"
	case LBracket:
		return "LBracket"
	case RBracket:
		return "RBracket"
	case Comma:
		return "Comma"
	case Colon:
		return "Colon"
	case LParen:
		return "LParen"
	case RParen:
		return "RParen"
	case LBrace:
		return "LBrace"
	case RBrace:
		return "RBrace"
	case Equal:
		return "Equal"
	case PlusEqual:
		return "PlusEqual"
	case Plus:
		return "Plus"
	case Minus:
		return "Minus"
	case Star:
		return "Star"
	case Slash:
		return "Slash"
	case Percent:
		return "Percent"
	case At:
		return "At"
	case AtBrace:
		return "AtBrace"
	case DollarBrace:
		return "DollarBrace"
	case Hash:
		return "Hash"
	case Bang:
		return "Bang"
	case Question:
		return "Question"
	case Tilde:
		return "Tilde"
	case Color:
		return "Color"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Payload is the tagged value carried by literal tokens. At most one of
// the fields is meaningful; which one is determined by the token Kind.
type Payload struct {
	Int    int64
	Float  float64
	Bool   bool
	Text   string // text of a String/Identifier/Color token (a copy, not a view of the source)
	IsSet  bool
}

// Token is a single lexical unit with its 1-based source position.
type Token struct {
	Kind    Kind
	Payload Payload
	Line    int
	Column  int
}

func (t Token) String() string {
	if t.Payload.IsSet {
		return fmt.Sprintf("%s(%v)@%d:%d", t.Kind, t.Payload.Text, t.Line, t.Column)
	}
	return fmt.Sprintf("%s@%d:%d", t.Kind, t.Line, t.Column)
}

// IsBuiltinCallee reports whether text (case-insensitively) names one of
// the built-in value constructors recognized in value position.
func IsBuiltinCallee(text string) bool {
	switch normalizeCallee(text) {
	case "color", "coord", "path", "list", "array", "map", "set", "dyna":
		return true
	}
	return false
}

func normalizeCallee(text string) string {
	b := []byte(text)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// NormalizeCallee exports the lower-cased constructor name for callers in
// the parser/evaluator that need to switch on it.
func NormalizeCallee(text string) string { return normalizeCallee(text) }
