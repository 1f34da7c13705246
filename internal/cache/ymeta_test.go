// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package cache_test

import (
	"testing"

	"github.com/playbymail/yini/internal/cache"
	"github.com/playbymail/yini/internal/dom"
	"github.com/playbymail/yini/internal/evaluator"
	"github.com/playbymail/yini/internal/parser"
	"github.com/playbymail/yini/internal/value"
)

func TestYMETAFullRoundTrip(t *testing.T) {
	src := "[#define]\nBASE=10\n[A]\nx=1\n[B]:A\ny=2\n"
	ast, perr := parser.Parse([]byte(src))
	if perr != nil {
		t.Fatalf("parse: %v", perr)
	}
	doc, eerr := evaluator.Evaluate(ast, nil)
	if eerr != nil {
		t.Fatalf("evaluate: %v", eerr)
	}

	blob, err := cache.SaveYMETA(doc, cache.ContentFull)
	if err != nil {
		t.Fatalf("SaveYMETA: %v", err)
	}
	out, err := cache.LoadYMETA(blob)
	if err != nil {
		t.Fatalf("LoadYMETA: %v", err)
	}

	sec, ok := out.Section("B")
	if !ok {
		t.Fatal("expected section B")
	}
	y, ok := sec.Get("y")
	if !ok || y.Kind != value.Int || y.Int != 2 {
		t.Fatalf("y = %+v ok=%v", y, ok)
	}
	x, ok := sec.Get("x")
	if !ok || x.Kind != value.Int || x.Int != 1 {
		t.Fatalf("x = %+v ok=%v", x, ok)
	}
}

func TestYMETADynamicOnlyRoundTrip(t *testing.T) {
	doc := dom.NewDocument()
	doc.DynamicHistory["GameState.level"] = []value.Value{
		value.IntValue(8), value.IntValue(7), value.IntValue(6),
	}

	blob, err := cache.SaveYMETA(doc, cache.ContentDynamicOnly)
	if err != nil {
		t.Fatalf("SaveYMETA: %v", err)
	}
	out, err := cache.LoadYMETA(blob)
	if err != nil {
		t.Fatalf("LoadYMETA: %v", err)
	}

	history, ok := out.DynamicHistory["GameState.level"]
	if !ok || len(history) != 3 || history[0].Int != 8 {
		t.Fatalf("history = %+v ok=%v", history, ok)
	}
	if len(out.Sections()) != 0 {
		t.Fatalf("expected no sections for a dynamic-only blob, got %d", len(out.Sections()))
	}
}

func TestYMETABothFlags(t *testing.T) {
	src := "[GameState]\nlevel = Dyna(1)\n"
	ast, perr := parser.Parse([]byte(src))
	if perr != nil {
		t.Fatalf("parse: %v", perr)
	}
	doc, eerr := evaluator.Evaluate(ast, nil)
	if eerr != nil {
		t.Fatalf("evaluate: %v", eerr)
	}
	doc.DynamicHistory["GameState.level"] = []value.Value{value.IntValue(1)}

	blob, err := cache.SaveYMETA(doc, cache.ContentFull|cache.ContentDynamicOnly)
	if err != nil {
		t.Fatalf("SaveYMETA: %v", err)
	}
	out, err := cache.LoadYMETA(blob)
	if err != nil {
		t.Fatalf("LoadYMETA: %v", err)
	}
	if _, ok := out.Section("GameState"); !ok {
		t.Fatal("expected section GameState from CONTENT_FULL")
	}
	if _, ok := out.DynamicHistory["GameState.level"]; !ok {
		t.Fatal("expected dynamic history from CONTENT_DYNAMIC_ONLY")
	}
}
