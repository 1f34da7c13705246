// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package dynamic_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/playbymail/yini/internal/dom"
	"github.com/playbymail/yini/internal/dynamic"
	"github.com/playbymail/yini/internal/value"
)

func TestUpdateBoundsHistoryAndOrdersMostRecentFirst(t *testing.T) {
	doc := dom.NewDocument()
	for i := int64(1); i <= 8; i++ {
		dynamic.Update(doc, "GameState", "level", value.IntValue(i))
	}
	history := doc.DynamicHistory["GameState.level"]
	if len(history) != dynamic.MaxHistory {
		t.Fatalf("history length = %d, want %d", len(history), dynamic.MaxHistory)
	}
	want := []int64{8, 7, 6, 5, 4}
	for i, v := range want {
		if history[i].Int != v {
			t.Fatalf("history[%d] = %d, want %d", i, history[i].Int, v)
		}
	}
	head, ok := dynamic.Head(doc, "GameState", "level")
	if !ok || head.Int != 8 {
		t.Fatalf("Head = %+v ok=%v", head, ok)
	}
}

func TestUpdateWithLimitRespectsOverriddenBound(t *testing.T) {
	doc := dom.NewDocument()
	for i := int64(1); i <= 5; i++ {
		dynamic.UpdateWithLimit(doc, "GameState", "level", value.IntValue(i), 2)
	}
	history := doc.DynamicHistory["GameState.level"]
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Int != 5 || history[1].Int != 4 {
		t.Fatalf("history = %v, want [5, 4]", history)
	}
}

func TestMergeUpdatesIntoSourcePreservesUnrewrittenLines(t *testing.T) {
	dir := t.TempDir()
	src := "# a comment\n\n[GameState]\n; another comment\nlevel = 1\nname = \"hero\"\n\n[Other]\nlevel = 99\n"
	srcPath := filepath.Join(dir, "source.yini")
	if err := os.WriteFile(srcPath, []byte(src), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	doc := dom.NewDocument()
	dynamic.Update(doc, "GameState", "level", value.IntValue(7))

	outPath := filepath.Join(dir, "out.yini")
	if err := dynamic.MergeUpdatesIntoSource(doc, srcPath, outPath); err != nil {
		t.Fatalf("MergeUpdatesIntoSource: %v", err)
	}
	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}

	want := "# a comment\n\n[GameState]\n; another comment\nlevel = 7\nname = \"hero\"\n\n[Other]\nlevel = 99\n"
	if string(got) != want {
		t.Fatalf("output mismatch:\ngot:  %q\nwant: %q", string(got), want)
	}
}

func TestMergeUpdatesIntoSourceLeavesEmptyHistoryUntouched(t *testing.T) {
	dir := t.TempDir()
	src := "[A]\nx = 1\n"
	srcPath := filepath.Join(dir, "source.yini")
	if err := os.WriteFile(srcPath, []byte(src), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	doc := dom.NewDocument()
	outPath := filepath.Join(dir, "out.yini")
	if err := dynamic.MergeUpdatesIntoSource(doc, srcPath, outPath); err != nil {
		t.Fatalf("MergeUpdatesIntoSource: %v", err)
	}
	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(got) != src {
		t.Fatalf("output mismatch:\ngot:  %q\nwant: %q", string(got), src)
	}
}

func TestMergeUpdatesIntoSourceMissingSourceFails(t *testing.T) {
	dir := t.TempDir()
	doc := dom.NewDocument()
	err := dynamic.MergeUpdatesIntoSource(doc, filepath.Join(dir, "missing.yini"), filepath.Join(dir, "out.yini"))
	if err == nil {
		t.Fatal("expected an error for a missing source file")
	}
}
