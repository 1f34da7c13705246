// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package structured_test

import (
	"testing"

	"github.com/playbymail/yini/internal/evaluator"
	"github.com/playbymail/yini/internal/parser"
	"github.com/playbymail/yini/internal/structured"
	"github.com/playbymail/yini/internal/value"
)

func TestToFromTreeRoundTrip(t *testing.T) {
	cases := []value.Value{
		value.IntValue(42),
		value.FloatValue(3.25),
		value.BoolValue(true),
		value.StringValue("hello"),
		value.ArrayValue([]value.Value{value.IntValue(1), value.IntValue(2)}),
		value.TupleValue([]value.Value{value.IntValue(1), value.IntValue(2)}),
		value.ListValue([]value.Value{value.StringValue("a"), value.StringValue("b")}),
		value.SetValue([]value.Value{value.IntValue(1), value.IntValue(2)}),
		value.MapValue([]string{"x", "y"}, []value.Value{value.IntValue(1), value.IntValue(2)}),
		value.PathValue("assets/icon.png"),
		value.ColorValue(value.Color{R: 10, G: 20, B: 30}),
		value.CoordValue(value.Coord{X: 1.5, Y: 2.5}),
		value.DynamicValue(value.IntValue(7)),
	}
	for _, v := range cases {
		tree := structured.ToTree(v)
		back, err := structured.FromTree(tree)
		if err != nil {
			t.Fatalf("FromTree(%+v): %v", v, err)
		}
		if !value.Equal(v, back) {
			t.Errorf("round trip mismatch: %+v -> %+v -> %+v", v, tree, back)
		}
	}
}

func TestTaggedEnvelopeShape(t *testing.T) {
	tree := structured.ToTree(value.ListValue([]value.Value{value.IntValue(1)}))
	m, ok := tree.(map[string]any)
	if !ok {
		t.Fatalf("expected a map envelope, got %T", tree)
	}
	if m["__type__"] != "List" {
		t.Errorf("__type__ = %v, want List", m["__type__"])
	}
}

func TestTupleDoesNotDecodeAsArray(t *testing.T) {
	tuple := value.TupleValue([]value.Value{value.IntValue(1), value.IntValue(2)})
	back, err := structured.FromTree(structured.ToTree(tuple))
	if err != nil {
		t.Fatalf("FromTree: %v", err)
	}
	if back.Kind != value.Tuple {
		t.Fatalf("Tuple round-tripped as %s, want Tuple", back.Kind)
	}
}

func TestUntaggedObjectBecomesMap(t *testing.T) {
	v, err := structured.FromTree(map[string]any{"a": int64(1), "b": "two"})
	if err != nil {
		t.Fatalf("FromTree: %v", err)
	}
	if v.Kind != value.Map {
		t.Fatalf("expected Map, got %s", v.Kind)
	}
}

func TestEncodeDecodeDocument(t *testing.T) {
	src := "[#define]\nBASE=1920\n[Graphics]\nw=@BASE\ntheme=Color(1, 2, 3)\n"
	ast, perr := parser.Parse([]byte(src))
	if perr != nil {
		t.Fatalf("parse: %v", perr)
	}
	doc, eerr := evaluator.Evaluate(ast, nil)
	if eerr != nil {
		t.Fatalf("evaluate: %v", eerr)
	}

	data, err := structured.Encode(doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	doc2, err := structured.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	sec, ok := doc2.Section("Graphics")
	if !ok {
		t.Fatal("expected section Graphics")
	}
	w, ok := sec.Get("w")
	if !ok || w.Kind != value.Int || w.Int != 1920 {
		t.Errorf("w = %+v, ok=%v, want Int(1920)", w, ok)
	}
	theme, ok := sec.Get("theme")
	if !ok || theme.Kind != value.ColorKind {
		t.Fatalf("theme = %+v, ok=%v, want ColorKind", theme, ok)
	}
}
