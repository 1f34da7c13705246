// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package cache_test

import (
	"testing"

	"github.com/playbymail/yini/internal/cache"
	"github.com/playbymail/yini/internal/evaluator"
	"github.com/playbymail/yini/internal/parser"
	"github.com/playbymail/yini/internal/value"
)

func mustBuild(t *testing.T, src string) *cache.File {
	t.Helper()
	ast, perr := parser.Parse([]byte(src))
	if perr != nil {
		t.Fatalf("parse: %v", perr)
	}
	doc, eerr := evaluator.Evaluate(ast, nil)
	if eerr != nil {
		t.Fatalf("evaluate: %v", eerr)
	}
	raw, err := cache.Build(doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	f, err := cache.OpenBytes(raw)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return f
}

func TestBuildAndLookupScalars(t *testing.T) {
	f := mustBuild(t, "[Config]\nkey1 = 123\nkey2 = \"value\"\nkey3 = true\npi = 3.5\n")

	v, ok, err := f.Lookup("Config", "key1")
	if err != nil || !ok || v.Kind != value.Int || v.Int != 123 {
		t.Fatalf("key1 = %+v ok=%v err=%v", v, ok, err)
	}
	v, ok, err = f.Lookup("Config", "key2")
	if err != nil || !ok || v.Kind != value.Str || v.Str != "value" {
		t.Fatalf("key2 = %+v ok=%v err=%v", v, ok, err)
	}
	v, ok, err = f.Lookup("Config", "key3")
	if err != nil || !ok || v.Kind != value.Bool || !v.Bool {
		t.Fatalf("key3 = %+v ok=%v err=%v", v, ok, err)
	}
	v, ok, err = f.Lookup("Config", "pi")
	if err != nil || !ok || v.Kind != value.Float || v.Float != 3.5 {
		t.Fatalf("pi = %+v ok=%v err=%v", v, ok, err)
	}

	_, ok, err = f.Lookup("Config", "missing")
	if err != nil || ok {
		t.Fatalf("missing key should not be found: ok=%v err=%v", ok, err)
	}

	_, ok, err = f.Lookup("Config", "")
	if err != nil || !ok {
		t.Fatalf("section-only key should be found: ok=%v err=%v", ok, err)
	}
}

func TestBuildAndLookupConstructorsAndArrays(t *testing.T) {
	f := mustBuild(t, "[Theme]\nbg = Color(255, 128, 0)\norigin = Coord(1.5, 2.5, 9.0)\nscores = [1, 2, 3]\nnames = [\"a\", \"b\"]\n")

	v, ok, err := f.Lookup("Theme", "bg")
	if err != nil || !ok || v.Kind != value.ColorKind || v.Color.R != 255 || v.Color.G != 128 || v.Color.B != 0 {
		t.Fatalf("bg = %+v ok=%v err=%v", v, ok, err)
	}
	v, ok, err = f.Lookup("Theme", "origin")
	if err != nil || !ok || v.Kind != value.CoordKind || v.Coord.X != 1.5 || v.Coord.Y != 2.5 || v.Coord.Z == nil || *v.Coord.Z != 9.0 {
		t.Fatalf("origin = %+v ok=%v err=%v", v, ok, err)
	}
	v, ok, err = f.Lookup("Theme", "scores")
	if err != nil || !ok || v.Kind != value.Array || len(v.Items) != 3 || v.Items[1].Int != 2 {
		t.Fatalf("scores = %+v ok=%v err=%v", v, ok, err)
	}
	v, ok, err = f.Lookup("Theme", "names")
	if err != nil || !ok || v.Kind != value.Array || len(v.Items) != 2 || v.Items[0].Str != "a" {
		t.Fatalf("names = %+v ok=%v err=%v", v, ok, err)
	}
}

func TestBuildAndLookupBlobFallback(t *testing.T) {
	f := mustBuild(t, "[Data]\nmapping = {x: 1, y: 2}\nbag = Set(1, 2, 3)\n")

	v, ok, err := f.Lookup("Data", "mapping")
	if err != nil || !ok || v.Kind != value.Map || len(v.Map) != 2 {
		t.Fatalf("mapping = %+v ok=%v err=%v", v, ok, err)
	}
	v, ok, err = f.Lookup("Data", "bag")
	if err != nil || !ok || v.Kind != value.Set || len(v.Items) != 3 {
		t.Fatalf("bag = %+v ok=%v err=%v", v, ok, err)
	}
}

func TestBuildAndLookupTupleKeepsItsKind(t *testing.T) {
	f := mustBuild(t, "[A]\npair = (1, 2)\n")

	v, ok, err := f.Lookup("A", "pair")
	if err != nil || !ok || v.Kind != value.Tuple || len(v.Items) != 2 || v.Items[0].Int != 1 || v.Items[1].Int != 2 {
		t.Fatalf("pair = %+v ok=%v err=%v, want Tuple(1, 2)", v, ok, err)
	}
}

func TestOpenBytesRejectsBadMagic(t *testing.T) {
	bad := make([]byte, 64)
	copy(bad, "NOPE")
	if _, err := cache.OpenBytes(bad); err == nil {
		t.Fatal("expected an error for bad magic")
	}
}

func TestOpenBytesRejectsTooShort(t *testing.T) {
	if _, err := cache.OpenBytes([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected an error for a too-short file")
	}
}
