// Copyright (c) 2024 Michael D Henderson. All rights reserved.

// Package value implements the tagged Value model shared by the parser,
// evaluator, DOM, and every serializer (spec §3 Value).
package value

import (
	"fmt"
	"math"
	"sort"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	Nil Kind = iota
	Int
	Float
	Bool
	Str
	Array
	List
	Tuple
	Set
	Map
	ColorKind
	CoordKind
	PathKind
	Dynamic
	Reference
	Env
)

func (k Kind) String() string {
	switch k {
	case Nil:
		return "nil"
	case Int:
		return "integer"
	case Float:
		return "float"
	case Bool:
		return "boolean"
	case Str:
		return "string"
	case Array:
		return "array"
	case List:
		return "list"
	case Tuple:
		return "tuple"
	case Set:
		return "set"
	case Map:
		return "map"
	case ColorKind:
		return "color"
	case CoordKind:
		return "coord"
	case PathKind:
		return "path"
	case Dynamic:
		return "dynamic"
	case Reference:
		return "reference"
	case Env:
		return "env"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Color is the r,g,b[,a] domain type.
type Color struct {
	R, G, B uint8
	A       *uint8
}

// Coord is the x,y[,z] domain type.
type Coord struct {
	X, Y float64
	Z    *float64
}

// Value is a tagged union over every variant spec §3 lists. Only the field
// matching Kind is meaningful. Plain assignment and the container
// constructors share the underlying slices and maps; DeepCopy copies every
// child so the result aliases nothing of its source.
type Value struct {
	Kind Kind

	Int   int64
	Float float64
	Bool  bool
	Str   string // also backs Path

	Items []Value // Array, List, Tuple, Set

	// Map supports O(1) lookup; SortedKeys gives the deterministic (sorted)
	// iteration used on output.
	Map map[string]Value

	Color Color
	Coord Coord

	// Dynamic wraps exactly one inner value.
	Inner *Value

	// Reference/Env carry the unresolved name until evaluation replaces
	// the Value in place.
	RefName string
}

func NilValue() Value                  { return Value{Kind: Nil} }
func IntValue(v int64) Value           { return Value{Kind: Int, Int: v} }
func FloatValue(v float64) Value       { return Value{Kind: Float, Float: v} }
func BoolValue(v bool) Value           { return Value{Kind: Bool, Bool: v} }
func StringValue(v string) Value       { return Value{Kind: Str, Str: v} }
func PathValue(v string) Value         { return Value{Kind: PathKind, Str: v} }
func ArrayValue(items []Value) Value   { return Value{Kind: Array, Items: items} }
func ListValue(items []Value) Value    { return Value{Kind: List, Items: items} }
func TupleValue(items []Value) Value   { return Value{Kind: Tuple, Items: items} }
func ColorValue(c Color) Value         { return Value{Kind: ColorKind, Color: c} }
func CoordValue(c Coord) Value         { return Value{Kind: CoordKind, Coord: c} }
func ReferenceValue(name string) Value { return Value{Kind: Reference, RefName: name} }
func EnvValue(name string) Value       { return Value{Kind: Env, RefName: name} }

func DynamicValue(inner Value) Value {
	cp := inner.DeepCopy()
	return Value{Kind: Dynamic, Inner: &cp}
}

// SetValue builds a Set value, de-duplicating by structural equality and
// preserving first-seen order (text output keeps that order).
func SetValue(items []Value) Value {
	var out []Value
	for _, it := range items {
		dup := false
		for _, existing := range out {
			if Equal(existing, it) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, it)
		}
	}
	return Value{Kind: Set, Items: out}
}

// MapValue builds a Map value from key/value pairs; later duplicate keys
// overwrite earlier ones, matching ordinary map-literal semantics.
func MapValue(keys []string, vals []Value) Value {
	m := make(map[string]Value, len(keys))
	for i, k := range keys {
		m[k] = vals[i]
	}
	return Value{Kind: Map, Map: m}
}

// SortedKeys returns the Map's keys in sorted order, the deterministic
// iteration order spec §3 requires for Map output.
func (v Value) SortedKeys() []string {
	keys := make([]string, 0, len(v.Map))
	for k := range v.Map {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsNumeric reports whether the value is an Int or Float.
func (v Value) IsNumeric() bool { return v.Kind == Int || v.Kind == Float }

// IsContainer reports whether the value is one of the ordered/keyed
// container kinds that reference resolution must recurse into.
func (v Value) IsContainer() bool {
	switch v.Kind {
	case Array, List, Tuple, Set, Map:
		return true
	default:
		return false
	}
}

// AsFloat widens an Int to Float; callers must check IsNumeric first.
func (v Value) AsFloat() float64 {
	if v.Kind == Int {
		return float64(v.Int)
	}
	return v.Float
}

// DeepCopy returns a Value whose containers share no storage with the
// receiver.
func (v Value) DeepCopy() Value {
	cp := v
	if len(v.Items) > 0 {
		cp.Items = make([]Value, len(v.Items))
		for i, it := range v.Items {
			cp.Items[i] = it.DeepCopy()
		}
	}
	if v.Map != nil {
		cp.Map = make(map[string]Value, len(v.Map))
		for k, mv := range v.Map {
			cp.Map[k] = mv.DeepCopy()
		}
	}
	if v.Color.A != nil {
		a := *v.Color.A
		cp.Color.A = &a
	}
	if v.Coord.Z != nil {
		z := *v.Coord.Z
		cp.Coord.Z = &z
	}
	if v.Inner != nil {
		inner := v.Inner.DeepCopy()
		cp.Inner = &inner
	}
	return cp
}

// Equal implements the structural equality spec §3 requires.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		// numeric cross-kind equality is not structural equality; a
		// Color/Coord alpha/z optionality difference still matters.
		return false
	}
	switch a.Kind {
	case Nil:
		return true
	case Int:
		return a.Int == b.Int
	case Float:
		return a.Float == b.Float || (math.IsNaN(a.Float) && math.IsNaN(b.Float))
	case Bool:
		return a.Bool == b.Bool
	case Str, PathKind:
		return a.Str == b.Str
	case Array, List, Tuple, Set:
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !Equal(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	case Map:
		if len(a.Map) != len(b.Map) {
			return false
		}
		for k, av := range a.Map {
			bv, ok := b.Map[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case ColorKind:
		if a.Color.R != b.Color.R || a.Color.G != b.Color.G || a.Color.B != b.Color.B {
			return false
		}
		return optionalByteEqual(a.Color.A, b.Color.A)
	case CoordKind:
		if a.Coord.X != b.Coord.X || a.Coord.Y != b.Coord.Y {
			return false
		}
		return optionalFloatEqual(a.Coord.Z, b.Coord.Z)
	case Dynamic:
		if (a.Inner == nil) != (b.Inner == nil) {
			return false
		}
		if a.Inner == nil {
			return true
		}
		return Equal(*a.Inner, *b.Inner)
	case Reference, Env:
		return a.RefName == b.RefName
	default:
		return false
	}
}

func optionalByteEqual(a, b *uint8) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func optionalFloatEqual(a, b *float64) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}
