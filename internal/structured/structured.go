// Copyright (c) 2024 Michael D Henderson. All rights reserved.

// Package structured implements the tagged structured codec of spec §4.G: a
// symmetric mapping between a dom.Document (or a single value.Value) and a
// tree of the common structured-data shapes, with domain and wrapper types
// carried as `{"__type__": "<Tag>", "value": ...}` envelopes so a generic
// YAML/JSON encoder can carry them without losing the distinction between,
// say, a List and a plain Array.
package structured

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/playbymail/yini/internal/dom"
	"github.com/playbymail/yini/internal/value"
)

const (
	tagList  = "List"
	tagSet   = "Set"
	tagTuple = "Tuple"
	tagMap   = "Map"
	tagDyna  = "Dyna"
	tagCoord = "Coord"
	tagColor = "Color"
	tagPath  = "Path"
)

// ToTree converts a Value into the envelope tree spec §4.G describes. Array
// is a primitive here (a plain slice); Tuple carries a `__type__` tag like
// List/Set so it round-trips back to a Tuple instead of decoding as an
// Array.
func ToTree(v value.Value) any {
	switch v.Kind {
	case value.Nil:
		return nil
	case value.Int:
		return v.Int
	case value.Float:
		return v.Float
	case value.Bool:
		return v.Bool
	case value.Str:
		return v.Str
	case value.Array:
		return treeSlice(v.Items)
	case value.Tuple:
		return envelope(tagTuple, treeSlice(v.Items))
	case value.List:
		return envelope(tagList, treeSlice(v.Items))
	case value.Set:
		return envelope(tagSet, treeSlice(v.Items))
	case value.Map:
		m := make(map[string]any, len(v.Map))
		for k, item := range v.Map {
			m[k] = ToTree(item)
		}
		return envelope(tagMap, m)
	case value.PathKind:
		return envelope(tagPath, v.Str)
	case value.ColorKind:
		fields := map[string]any{"r": v.Color.R, "g": v.Color.G, "b": v.Color.B}
		if v.Color.A != nil {
			fields["a"] = *v.Color.A
		}
		return envelope(tagColor, fields)
	case value.CoordKind:
		fields := map[string]any{"x": v.Coord.X, "y": v.Coord.Y, "is_3d": v.Coord.Z != nil}
		if v.Coord.Z != nil {
			fields["z"] = *v.Coord.Z
		}
		return envelope(tagCoord, fields)
	case value.Dynamic:
		if v.Inner == nil {
			return envelope(tagDyna, nil)
		}
		return envelope(tagDyna, ToTree(*v.Inner))
	default:
		return nil
	}
}

func envelope(tag string, val any) map[string]any {
	return map[string]any{"__type__": tag, "value": val}
}

func treeSlice(items []value.Value) []any {
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = ToTree(it)
	}
	return out
}

// FromTree reconstructs a Value from a tree produced by ToTree (or an
// equivalent untagged tree decoded from JSON/YAML). Untagged objects become
// Map values, per spec §4.G.
func FromTree(t any) (value.Value, error) {
	switch n := t.(type) {
	case nil:
		return value.NilValue(), nil
	case bool:
		return value.BoolValue(n), nil
	case string:
		return value.StringValue(n), nil
	case int:
		return value.IntValue(int64(n)), nil
	case int64:
		return value.IntValue(n), nil
	case uint64:
		return value.IntValue(int64(n)), nil
	case float64:
		return value.FloatValue(n), nil
	case []any:
		items, err := fromTreeSlice(n)
		if err != nil {
			return value.Value{}, err
		}
		return value.ArrayValue(items), nil
	case map[string]any:
		if tag, ok := n["__type__"].(string); ok {
			return fromTagged(tag, n["value"])
		}
		return fromUntaggedMap(n)
	default:
		return value.Value{}, fmt.Errorf("structured: unsupported node type %T", t)
	}
}

func fromTreeSlice(items []any) ([]value.Value, error) {
	out := make([]value.Value, len(items))
	for i, it := range items {
		v, err := FromTree(it)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func fromUntaggedMap(n map[string]any) (value.Value, error) {
	keys := make([]string, 0, len(n))
	for k := range n {
		keys = append(keys, k)
	}
	vals := make([]value.Value, len(keys))
	for i, k := range keys {
		v, err := FromTree(n[k])
		if err != nil {
			return value.Value{}, err
		}
		vals[i] = v
	}
	return value.MapValue(keys, vals), nil
}

func fromTagged(tag string, raw any) (value.Value, error) {
	switch tag {
	case tagList:
		items, err := fromTreeSlice(asSlice(raw))
		if err != nil {
			return value.Value{}, err
		}
		return value.ListValue(items), nil
	case tagSet:
		items, err := fromTreeSlice(asSlice(raw))
		if err != nil {
			return value.Value{}, err
		}
		return value.SetValue(items), nil
	case tagTuple:
		items, err := fromTreeSlice(asSlice(raw))
		if err != nil {
			return value.Value{}, err
		}
		return value.TupleValue(items), nil
	case tagMap:
		m, ok := raw.(map[string]any)
		if !ok {
			return value.Value{}, fmt.Errorf("structured: Map envelope value must be an object")
		}
		return fromUntaggedMap(m)
	case tagPath:
		s, ok := raw.(string)
		if !ok {
			return value.Value{}, fmt.Errorf("structured: Path envelope value must be a string")
		}
		return value.PathValue(s), nil
	case tagColor:
		fields, ok := raw.(map[string]any)
		if !ok {
			return value.Value{}, fmt.Errorf("structured: Color envelope value must be an object")
		}
		c := value.Color{R: byteField(fields, "r"), G: byteField(fields, "g"), B: byteField(fields, "b")}
		if a, ok := fields["a"]; ok {
			ab := byteField(map[string]any{"a": a}, "a")
			c.A = &ab
		}
		return value.ColorValue(c), nil
	case tagCoord:
		fields, ok := raw.(map[string]any)
		if !ok {
			return value.Value{}, fmt.Errorf("structured: Coord envelope value must be an object")
		}
		c := value.Coord{X: floatField(fields, "x"), Y: floatField(fields, "y")}
		if is3d, _ := fields["is_3d"].(bool); is3d {
			z := floatField(fields, "z")
			c.Z = &z
		}
		return value.CoordValue(c), nil
	case tagDyna:
		inner, err := FromTree(raw)
		if err != nil {
			return value.Value{}, err
		}
		return value.DynamicValue(inner), nil
	default:
		return value.Value{}, fmt.Errorf("structured: unknown tag %q", tag)
	}
}

func asSlice(raw any) []any {
	if s, ok := raw.([]any); ok {
		return s
	}
	return nil
}

func byteField(m map[string]any, key string) uint8 {
	switch n := m[key].(type) {
	case int:
		return uint8(n)
	case int64:
		return uint8(n)
	case uint64:
		return uint8(n)
	case float64:
		return uint8(n)
	default:
		return 0
	}
}

func floatField(m map[string]any, key string) float64 {
	switch n := m[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	default:
		return 0
	}
}

// docTree is the whole-document shape Encode/Decode exchange.
type docTree struct {
	Defines  map[string]any `yaml:"defines,omitempty"`
	Includes []string       `yaml:"includes,omitempty"`
	Sections []sectionTree  `yaml:"sections"`
}

type sectionTree struct {
	Name          string         `yaml:"name"`
	Parents       []string       `yaml:"parents,omitempty"`
	Entries       map[string]any `yaml:"entries,omitempty"`
	Registrations []any          `yaml:"registrations,omitempty"`
}

// Encode renders a dom.Document as structured-codec bytes (spec §4.G).
func Encode(d *dom.Document) ([]byte, error) {
	tree := docTree{Defines: map[string]any{}, Includes: append([]string{}, d.Includes...)}
	for k, v := range d.Defines {
		tree.Defines[k] = ToTree(v)
	}
	for _, sec := range d.Sections() {
		st := sectionTree{Name: sec.Name, Parents: sec.InheritedNames, Entries: map[string]any{}}
		for _, key := range sec.Keys() {
			v, _ := sec.Get(key)
			st.Entries[key] = ToTree(v)
		}
		for _, reg := range sec.Registrations {
			st.Registrations = append(st.Registrations, ToTree(reg))
		}
		tree.Sections = append(tree.Sections, st)
	}
	return yaml.Marshal(tree)
}

// Decode rebuilds a dom.Document from structured-codec bytes.
func Decode(data []byte) (*dom.Document, error) {
	var tree docTree
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("structured: decode: %w", err)
	}
	out := dom.NewDocument()
	out.Includes = append(out.Includes, tree.Includes...)
	for k, raw := range tree.Defines {
		v, err := FromTree(raw)
		if err != nil {
			return nil, fmt.Errorf("structured: define %q: %w", k, err)
		}
		out.Defines[k] = v
	}
	for _, st := range tree.Sections {
		sec := out.AddSection(st.Name, st.Parents)
		for k, raw := range st.Entries {
			v, err := FromTree(raw)
			if err != nil {
				return nil, fmt.Errorf("structured: %s.%s: %w", st.Name, k, err)
			}
			sec.AddEntry(k, v)
		}
		for _, raw := range st.Registrations {
			v, err := FromTree(raw)
			if err != nil {
				return nil, fmt.Errorf("structured: %s registration: %w", st.Name, err)
			}
			sec.Registrations = append(sec.Registrations, v)
		}
	}
	return out, nil
}
