// Copyright (c) 2024 Michael D Henderson. All rights reserved.

// Package textfmt renders a dom.Document back to canonical YINI text (spec
// §4.F): `[#define]` first, then `[#include]`, then user sections in
// declaration order, with entries ordered by insertion and constructor-typed
// values rendered in constructor form.
package textfmt

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/playbymail/yini/internal/dom"
	"github.com/playbymail/yini/internal/value"
)

// Format renders doc as canonical YINI text.
func Format(doc *dom.Document) string {
	var b strings.Builder

	if len(doc.Defines) > 0 {
		b.WriteString("[#define]\n")
		keys := make([]string, 0, len(doc.Defines))
		for k := range doc.Defines {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s = %s\n", k, FormatValue(doc.Defines[k]))
		}
		b.WriteString("\n")
	}

	if len(doc.Includes) > 0 {
		b.WriteString("[#include]\n")
		for _, filename := range doc.Includes {
			fmt.Fprintf(&b, "+= %s\n", strconv.Quote(filename))
		}
		b.WriteString("\n")
	}

	for _, sec := range doc.Sections() {
		b.WriteString("[")
		b.WriteString(sec.Name)
		if len(sec.InheritedNames) > 0 {
			b.WriteString(" : ")
			b.WriteString(strings.Join(sec.InheritedNames, ", "))
		}
		b.WriteString("]\n")

		for _, key := range sec.Keys() {
			v, _ := sec.Get(key)
			fmt.Fprintf(&b, "%s = %s\n", key, FormatValue(v))
		}
		for _, reg := range sec.Registrations {
			fmt.Fprintf(&b, "+= %s\n", FormatValue(reg))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// FormatValue renders a single Value in its canonical textual form.
func FormatValue(v value.Value) string {
	switch v.Kind {
	case value.Nil:
		return "nil"
	case value.Int:
		return strconv.FormatInt(v.Int, 10)
	case value.Float:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case value.Bool:
		if v.Bool {
			return "true"
		}
		return "false"
	case value.Str:
		return strconv.Quote(v.Str)
	case value.PathKind:
		return "Path(" + strconv.Quote(v.Str) + ")"
	case value.Array:
		return "[" + formatElements(v.Items) + "]"
	case value.List:
		return "List(" + formatElements(v.Items) + ")"
	case value.Tuple:
		return "(" + formatElements(v.Items) + ")"
	case value.Set:
		return "Set(" + formatElements(v.Items) + ")"
	case value.Map:
		return formatMap(v)
	case value.ColorKind:
		return formatColor(v.Color)
	case value.CoordKind:
		return formatCoord(v.Coord)
	case value.Dynamic:
		if v.Inner == nil {
			return "Dyna()"
		}
		return "Dyna(" + FormatValue(*v.Inner) + ")"
	case value.Reference:
		if strings.Contains(v.RefName, ".") {
			return "@{" + v.RefName + "}"
		}
		return "@" + v.RefName
	case value.Env:
		return "${" + v.RefName + "}"
	default:
		return ""
	}
}

func formatElements(items []value.Value) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = FormatValue(it)
	}
	return strings.Join(parts, ", ")
}

func formatMap(v value.Value) string {
	keys := v.SortedKeys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + FormatValue(v.Map[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatColor(c value.Color) string {
	if c.A != nil {
		return fmt.Sprintf("Color(%d, %d, %d, %d)", c.R, c.G, c.B, *c.A)
	}
	return fmt.Sprintf("Color(%d, %d, %d)", c.R, c.G, c.B)
}

func formatCoord(c value.Coord) string {
	if c.Z != nil {
		return fmt.Sprintf("Coord(%s, %s, %s)", trimFloat(c.X), trimFloat(c.Y), trimFloat(*c.Z))
	}
	return fmt.Sprintf("Coord(%s, %s)", trimFloat(c.X), trimFloat(c.Y))
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
