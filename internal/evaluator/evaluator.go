// Copyright (c) 2024 Michael D Henderson. All rights reserved.

// Package evaluator walks the AST internal/parser produces and builds the
// DOM (spec §4.D): it merges inherited sections, resolves `@name`,
// `@{section.key}`, and `${NAME}` values, and validates the result against
// the embedded schema.
//
// The four passes spec §4.D describes (declare, evaluate, merge+resolve,
// validate) collapse here into one recursive, memoized, lazy evaluation:
// resolveEntry and mergeSection cache their results and detect cycles with
// a visit set, so every entry is still evaluated exactly once and every
// observable failure mode (UnknownParent, CircularInheritance,
// UnresolvedReference, CircularReference) is preserved without the
// ceremony of materializing and re-walking intermediate passes.
package evaluator

import (
	"os"
	"strings"

	"github.com/playbymail/yini/internal/arith"
	"github.com/playbymail/yini/internal/ast"
	"github.com/playbymail/yini/internal/config"
	"github.com/playbymail/yini/internal/dom"
	"github.com/playbymail/yini/internal/value"
	"github.com/playbymail/yini/internal/yerrors"
)

// Evaluate builds a dom.Document from a parsed AST.
func Evaluate(doc *ast.Document, cfg *config.Config) (*dom.Document, *yerrors.Error) {
	if cfg == nil {
		cfg = config.Default()
	}
	ev := &evaluator{
		cfg:            cfg,
		astSections:    map[string]*ast.Section{},
		astDefines:     map[string]ast.Expr{},
		mergedEntries:  map[string]map[string]ast.Expr{},
		mergingStack:   nil,
		resolvedEntry:  map[string]value.Value{},
		resolvingEntry: map[string]bool{},
		resolvedDefine: map[string]value.Value{},
		out:            dom.NewDocument(),
	}

	for i := range doc.Sections {
		sec := &doc.Sections[i]
		ev.astSections[sec.Name] = sec
	}
	for _, d := range doc.Defines {
		ev.astDefines[d.Key] = d.Value
	}
	for _, inc := range doc.Includes {
		ev.out.Includes = append(ev.out.Includes, inc.Filename)
	}

	for i := range doc.Sections {
		sec := &doc.Sections[i]
		ev.out.AddSection(sec.Name, sec.Parents)
	}

	for i := range doc.Sections {
		sec := &doc.Sections[i]
		merged, err := ev.mergeSection(sec.Name)
		if err != nil {
			return nil, err
		}
		outSec, _ := ev.out.Section(sec.Name)
		for _, key := range sortedKeysStable(merged, ev.entryOrder(sec.Name)) {
			v, err := ev.resolveEntry(sec.Name, key, merged[key])
			if err != nil {
				return nil, err
			}
			outSec.AddEntry(key, v)
		}
		for _, regExpr := range sec.Registrations {
			v, err := ev.evalExpr(regExpr, map[string]bool{})
			if err != nil {
				return nil, err
			}
			outSec.Registrations = append(outSec.Registrations, v)
		}
	}

	for _, schemaSec := range doc.Schema {
		rules := map[string]dom.SchemaRule{}
		for _, r := range schemaSec.Rules {
			dr := dom.SchemaRule{Required: r.Required, Type: r.Type, ElementType: r.ElementType, Min: r.Min, Max: r.Max, OnEmpty: r.OnEmpty}
			if r.Default != nil {
				v, err := ev.evalExpr(r.Default, map[string]bool{})
				if err != nil {
					return nil, err
				}
				dr.Default = &v
			}
			rules[r.Key] = dr
		}
		ev.out.Schema[schemaSec.Name] = rules
	}

	if err := validateSchema(ev.out); err != nil {
		return nil, err
	}

	return ev.out, nil
}

type evaluator struct {
	cfg *config.Config
	out *dom.Document

	astSections map[string]*ast.Section
	astDefines  map[string]ast.Expr

	mergedEntries map[string]map[string]ast.Expr
	mergingStack  []string

	resolvedEntry  map[string]value.Value
	resolvingEntry map[string]bool

	resolvedDefine map[string]value.Value
}

// entryOrder returns the declared entry order for a section so resolved
// entries land in the DOM in the same order the source declared them,
// independent of map iteration over the merged-entries set.
func (ev *evaluator) entryOrder(name string) []string {
	sec := ev.astSections[name]
	seen := map[string]bool{}
	var order []string
	// own entries first in source order, then any inherited-only keys
	// appended in the order mergeSection discovers them is unnecessary:
	// merged already contains the full key set, we just need a stable
	// order and the child's own declaration order satisfies the common
	// case.
	for _, e := range sec.Entries {
		if !seen[e.Key] {
			seen[e.Key] = true
			order = append(order, e.Key)
		}
	}
	return order
}

// sortedKeysStable returns every key in merged, preferring preferredOrder
// for keys it names and falling back to a deterministic lexical order for
// the rest (inherited-only keys the child never mentions).
func sortedKeysStable(merged map[string]ast.Expr, preferredOrder []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, k := range preferredOrder {
		if _, ok := merged[k]; ok && !seen[k] {
			out = append(out, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range merged {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sortStrings(rest)
	return append(out, rest...)
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// mergeSection returns the fully inheritance-merged key->expr map for a
// section: parents are merged left to right (later parent overwrites
// earlier), then the section's own entries overwrite all of that (spec
// §4.D "child's own key wins, later parent wins over earlier parent").
func (ev *evaluator) mergeSection(name string) (map[string]ast.Expr, *yerrors.Error) {
	if m, ok := ev.mergedEntries[name]; ok {
		return m, nil
	}
	for _, visiting := range ev.mergingStack {
		if visiting == name {
			path := append(append([]string{}, ev.mergingStack...), name)
			return nil, yerrors.Unpositioned(yerrors.KindCircularInheritance, "circular inheritance: %s", strings.Join(path, " -> "))
		}
	}
	sec, ok := ev.astSections[name]
	if !ok {
		return nil, yerrors.Unpositioned(yerrors.KindUnknownParent, "unknown section %q", name)
	}

	ev.mergingStack = append(ev.mergingStack, name)
	result := map[string]ast.Expr{}
	for _, parent := range sec.Parents {
		if _, ok := ev.astSections[parent]; !ok {
			ev.mergingStack = ev.mergingStack[:len(ev.mergingStack)-1]
			return nil, yerrors.New(yerrors.KindUnknownParent, sec.Line, sec.Col, "section %q inherits from unknown parent %q", name, parent)
		}
		parentMerged, err := ev.mergeSection(parent)
		if err != nil {
			return nil, err
		}
		for k, v := range parentMerged {
			result[k] = v
		}
	}
	for _, entry := range sec.Entries {
		result[entry.Key] = entry.Value
	}
	ev.mergingStack = ev.mergingStack[:len(ev.mergingStack)-1]
	ev.mergedEntries[name] = result
	return result, nil
}

// resolveEntry evaluates and fully resolves one section.key, memoizing the
// result. ev.resolvingEntry is the in-progress cycle-detection set shared
// by every resolution chain, so a reference reached through nested
// containers or through another section's lookup still detects cycles
// across the whole chain.
func (ev *evaluator) resolveEntry(section, key string, expr ast.Expr) (value.Value, *yerrors.Error) {
	full := section + "." + key
	if v, ok := ev.resolvedEntry[full]; ok {
		return v, nil
	}
	if ev.resolvingEntry[full] {
		return value.Value{}, yerrors.Unpositioned(yerrors.KindCircularReference, "circular reference involving %q", full)
	}
	ev.resolvingEntry[full] = true
	v, err := ev.evalExpr(expr, map[string]bool{full: true})
	ev.resolvingEntry[full] = false
	if err != nil {
		return value.Value{}, err
	}
	ev.resolvedEntry[full] = v
	return v, nil
}

// evalExpr evaluates expr to a fully resolved Value, recursing into
// containers and following references/env vars on demand.
func (ev *evaluator) evalExpr(expr ast.Expr, visiting map[string]bool) (value.Value, *yerrors.Error) {
	v := exprVisitor{ev: ev, visiting: visiting}
	result := expr.Accept(&v)
	if v.err != nil {
		return value.Value{}, v.err
	}
	return result.(value.Value), nil
}

type exprVisitor struct {
	ev       *evaluator
	visiting map[string]bool
	err      *yerrors.Error
}

func (v *exprVisitor) fail(err *yerrors.Error) value.Value {
	if v.err == nil {
		v.err = err
	}
	return value.Value{}
}

func (v *exprVisitor) eval(e ast.Expr) value.Value {
	if v.err != nil {
		return value.Value{}
	}
	r := e.Accept(v)
	return r.(value.Value)
}

func (v *exprVisitor) VisitInt(n *ast.IntLit) any     { return value.IntValue(n.Value) }
func (v *exprVisitor) VisitFloat(n *ast.FloatLit) any { return value.FloatValue(n.Value) }
func (v *exprVisitor) VisitBool(n *ast.BoolLit) any   { return value.BoolValue(n.Value) }
func (v *exprVisitor) VisitString(n *ast.StringLit) any {
	return value.StringValue(n.Value)
}

func (v *exprVisitor) VisitColor(n *ast.ColorLit) any {
	c, err := parseHexColor(n.Hex)
	if err != nil {
		line, col := n.Pos()
		return v.fail(yerrors.New(yerrors.KindExpectedValue, line, col, "invalid color literal #%s", n.Hex))
	}
	return value.ColorValue(c)
}

func (v *exprVisitor) VisitBinary(n *ast.BinaryExpr) any {
	left := v.eval(n.Left)
	right := v.eval(n.Right)
	if v.err != nil {
		return value.Value{}
	}
	line, col := n.Pos()
	if left.Kind == value.Int && right.Kind == value.Int {
		result, overflow, divZero, modZero := foldInts(n.Op, left.Int, right.Int)
		if divZero {
			return v.fail(yerrors.New(yerrors.KindDivideByZero, line, col, "division by zero"))
		}
		if modZero {
			return v.fail(yerrors.New(yerrors.KindModuloByZero, line, col, "modulo by zero"))
		}
		if overflow {
			return v.fail(yerrors.New(yerrors.KindArithmeticOverflow, line, col, "arithmetic overflow"))
		}
		return value.IntValue(result)
	}
	if left.IsNumeric() && right.IsNumeric() {
		return value.FloatValue(foldFloats(n.Op, left.AsFloat(), right.AsFloat()))
	}
	return v.fail(yerrors.New(yerrors.KindExpectedValue, line, col, "arithmetic requires numeric operands"))
}

func (v *exprVisitor) VisitUnary(n *ast.UnaryExpr) any {
	operand := v.eval(n.Operand)
	if v.err != nil {
		return value.Value{}
	}
	switch operand.Kind {
	case value.Int:
		neg, overflow := arith.NegateInt(operand.Int)
		if overflow {
			line, col := n.Pos()
			return v.fail(yerrors.New(yerrors.KindArithmeticOverflow, line, col, "negation overflows 64 bits"))
		}
		return value.IntValue(neg)
	case value.Float:
		return value.FloatValue(-operand.Float)
	default:
		line, col := n.Pos()
		return v.fail(yerrors.New(yerrors.KindExpectedValue, line, col, "unary minus requires a numeric operand"))
	}
}

func (v *exprVisitor) VisitGroup(n *ast.GroupExpr) any { return v.eval(n.Inner) }

func (v *exprVisitor) VisitTuple(n *ast.TupleExpr) any {
	return value.TupleValue(v.evalAll(n.Elements))
}

func (v *exprVisitor) VisitArray(n *ast.ArrayExpr) any {
	return value.ArrayValue(v.evalAll(n.Elements))
}

func (v *exprVisitor) VisitMap(n *ast.MapExpr) any {
	vals := v.evalAll(n.Values)
	if v.err != nil {
		return value.Value{}
	}
	return value.MapValue(n.Keys, vals)
}

func (v *exprVisitor) evalAll(exprs []ast.Expr) []value.Value {
	out := make([]value.Value, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, v.eval(e))
		if v.err != nil {
			return out
		}
	}
	return out
}

func (v *exprVisitor) VisitReference(n *ast.ReferenceExpr) any {
	line, col := n.Pos()
	if n.Scoped {
		section, key, ok := strings.Cut(n.Name, ".")
		if !ok {
			return v.fail(yerrors.New(yerrors.KindUnresolvedReference, line, col, "malformed reference %q", n.Name))
		}
		full := section + "." + key
		if v.visiting[full] {
			return v.fail(yerrors.New(yerrors.KindCircularReference, line, col, "circular reference involving %q", full))
		}
		merged, err := v.ev.mergeSection(section)
		if err != nil {
			return v.fail(err)
		}
		expr, ok := merged[key]
		if !ok {
			return v.fail(yerrors.New(yerrors.KindUnresolvedReference, line, col, "unresolved reference %q", full))
		}
		if cached, ok := v.ev.resolvedEntry[full]; ok {
			return cached
		}
		nested := map[string]bool{}
		for k := range v.visiting {
			nested[k] = true
		}
		nested[full] = true
		val, err := v.ev.evalExpr(expr, nested)
		if err != nil {
			return v.fail(err)
		}
		v.ev.resolvedEntry[full] = val
		return val
	}

	if v.visiting["define:"+n.Name] {
		return v.fail(yerrors.New(yerrors.KindCircularReference, line, col, "circular reference involving define %q", n.Name))
	}
	expr, ok := v.ev.astDefines[n.Name]
	if !ok {
		return v.fail(yerrors.New(yerrors.KindUnresolvedReference, line, col, "undefined name %q", n.Name))
	}
	if cached, ok := v.ev.resolvedDefine[n.Name]; ok {
		return cached
	}
	nested := map[string]bool{}
	for k := range v.visiting {
		nested[k] = true
	}
	nested["define:"+n.Name] = true
	val, err := v.ev.evalExpr(expr, nested)
	if err != nil {
		return v.fail(err)
	}
	v.ev.resolvedDefine[n.Name] = val
	return val
}

func (v *exprVisitor) VisitEnv(n *ast.EnvExpr) any {
	if !v.ev.cfg.IsAllowed(n.Name) {
		line, col := n.Pos()
		return v.fail(yerrors.New(yerrors.KindEnvNotAllowed, line, col, "environment variable %q is not on the allow-list", n.Name))
	}
	return value.StringValue(os.Getenv(n.Name))
}

func (v *exprVisitor) VisitCall(n *ast.CallExpr) any {
	line, col := n.Pos()
	switch n.Callee {
	case "color":
		args := v.evalAll(n.Args)
		if v.err != nil {
			return value.Value{}
		}
		if len(args) != 3 && len(args) != 4 {
			return v.fail(yerrors.New(yerrors.KindInvalidCallArguments, line, col, "Color requires 3 or 4 arguments"))
		}
		c := value.Color{}
		bytes := make([]uint8, 0, 4)
		for _, a := range args {
			if a.Kind != value.Int {
				return v.fail(yerrors.New(yerrors.KindInvalidCallArguments, line, col, "Color arguments must be integers"))
			}
			bytes = append(bytes, uint8(a.Int))
		}
		c.R, c.G, c.B = bytes[0], bytes[1], bytes[2]
		if len(bytes) == 4 {
			a := bytes[3]
			c.A = &a
		}
		return value.ColorValue(c)
	case "coord":
		args := v.evalAll(n.Args)
		if v.err != nil {
			return value.Value{}
		}
		if len(args) != 2 && len(args) != 3 {
			return v.fail(yerrors.New(yerrors.KindInvalidCallArguments, line, col, "Coord requires 2 or 3 arguments"))
		}
		nums := make([]float64, 0, 3)
		for _, a := range args {
			if !a.IsNumeric() {
				return v.fail(yerrors.New(yerrors.KindInvalidCallArguments, line, col, "Coord arguments must be numeric"))
			}
			nums = append(nums, a.AsFloat())
		}
		c := value.Coord{X: nums[0], Y: nums[1]}
		if len(nums) == 3 {
			z := nums[2]
			c.Z = &z
		}
		return value.CoordValue(c)
	case "path":
		args := v.evalAll(n.Args)
		if v.err != nil {
			return value.Value{}
		}
		if len(args) != 1 || args[0].Kind != value.Str {
			return v.fail(yerrors.New(yerrors.KindInvalidCallArguments, line, col, "Path requires exactly one string argument"))
		}
		return value.PathValue(args[0].Str)
	case "list":
		return value.ListValue(v.evalAll(n.Args))
	case "array":
		return value.ArrayValue(v.evalAll(n.Args))
	case "set":
		return value.SetValue(v.evalAll(n.Args))
	case "map":
		if n.MapArg == nil {
			return v.fail(yerrors.New(yerrors.KindInvalidCallArguments, line, col, "Map requires a {key: value, ...} argument"))
		}
		r := v.VisitMap(n.MapArg)
		return r
	case "dyna":
		args := v.evalAll(n.Args)
		if v.err != nil {
			return value.Value{}
		}
		if len(args) != 1 {
			return v.fail(yerrors.New(yerrors.KindInvalidCallArguments, line, col, "Dyna requires exactly one argument"))
		}
		return value.DynamicValue(args[0])
	default:
		return v.fail(yerrors.New(yerrors.KindUnknownCallee, line, col, "unknown constructor %q", n.Callee))
	}
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

func parseHexColor(hex string) (value.Color, error) {
	var bytes [3]uint8
	for i := 0; i < 3; i++ {
		hi, err := hexDigit(hex[i*2])
		if err != nil {
			return value.Color{}, err
		}
		lo, err := hexDigit(hex[i*2+1])
		if err != nil {
			return value.Color{}, err
		}
		bytes[i] = hi<<4 | lo
	}
	return value.Color{R: bytes[0], G: bytes[1], B: bytes[2]}, nil
}

func hexDigit(b byte) (uint8, error) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', nil
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, nil
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, nil
	default:
		return 0, yerrors.Unpositioned(yerrors.KindExpectedValue, "invalid hex digit %q", b)
	}
}
