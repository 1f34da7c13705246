// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package yini_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/playbymail/yini"
	"github.com/playbymail/yini/internal/config"
	"github.com/playbymail/yini/internal/value"
)

func TestParseAndLookup(t *testing.T) {
	doc, err := yini.Parse([]byte("[A]\nx = 1\ny = \"hi\"\n"), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	v, ok := doc.Lookup("A", "x")
	if !ok || v.Kind != value.Int || v.Int != 1 {
		t.Fatalf("x = %+v ok=%v", v, ok)
	}
}

func TestSetIntOnDynamicEntryUpdatesHistory(t *testing.T) {
	doc, err := yini.Parse([]byte("[GameState]\nlevel = Dyna(1)\n"), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	doc.SetInt("GameState", "level", 2)

	v, ok := doc.Lookup("GameState", "level")
	if !ok || v.Kind != value.Dynamic || v.Inner.Int != 2 {
		t.Fatalf("level = %+v ok=%v", v, ok)
	}
	if history := doc.DOM().DynamicHistory["GameState.level"]; len(history) != 1 || history[0].Int != 2 {
		t.Fatalf("history = %v, want [2]", history)
	}
}

func TestSetIntOnDynamicEntryRespectsConfiguredHistoryLimit(t *testing.T) {
	cfg := config.Default()
	cfg.Resources.MaxDynamicHistory = 2

	doc, err := yini.Parse([]byte("[GameState]\nlevel = Dyna(1)\n"), cfg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for i := int64(2); i <= 5; i++ {
		doc.SetInt("GameState", "level", i)
	}
	history := doc.DOM().DynamicHistory["GameState.level"]
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2 under MaxDynamicHistory=2", len(history))
	}
	if history[0].Int != 5 || history[1].Int != 4 {
		t.Fatalf("history = %v, want [5, 4]", history)
	}
}

func TestSaveAndLoadBinaryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	doc, err := yini.Parse([]byte("[A]\nx = 42\n"), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cachePath := filepath.Join(dir, "a.ycache")
	if err := doc.SaveBinary(cachePath); err != nil {
		t.Fatalf("SaveBinary: %v", err)
	}

	f, err := yini.LoadBinary(cachePath)
	if err != nil {
		t.Fatalf("LoadBinary: %v", err)
	}
	defer f.Close()

	v, ok, err := f.Lookup("A", "x")
	if err != nil || !ok || v.Int != 42 {
		t.Fatalf("x = %+v ok=%v err=%v", v, ok, err)
	}
}

func TestMergeIntoSourceLeavesNonDynamicEntryUnchanged(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src.yini")
	if err := os.WriteFile(srcPath, []byte("[GameState]\nlevel = 1\n"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	doc, err := yini.ParseFile(srcPath, nil)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	doc.SetInt("GameState", "level", 1) // not a Dyna() entry: history stays empty, rewrite is a no-op

	outPath := filepath.Join(dir, "out.yini")
	if err := doc.MergeIntoSource(srcPath, outPath); err != nil {
		t.Fatalf("MergeIntoSource: %v", err)
	}
	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(got) != "[GameState]\nlevel = 1\n" {
		t.Fatalf("got %q", string(got))
	}
}

func TestOpenManagerFallsBackToSourceWhenNoCache(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src.yini")
	if err := os.WriteFile(srcPath, []byte("[A]\nx = 7\n"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	m, err := yini.OpenManager(srcPath, nil)
	if err != nil {
		t.Fatalf("OpenManager: %v", err)
	}
	if !m.IsLoaded() {
		t.Fatal("expected manager to report loaded")
	}
	v, ok := m.Document().Lookup("A", "x")
	if !ok || v.Int != 7 {
		t.Fatalf("x = %+v ok=%v", v, ok)
	}
}

func TestManagerSetIntRefreshesYMETACache(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src.yini")
	if err := os.WriteFile(srcPath, []byte("[A]\nx = 1\n"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	m, err := yini.OpenManager(srcPath, nil)
	if err != nil {
		t.Fatalf("OpenManager: %v", err)
	}
	if err := m.SetInt("A", "x", 9); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	if _, err := os.Stat(srcPath + ".ymeta"); err != nil {
		t.Fatalf("expected a .ymeta cache file to be written: %v", err)
	}

	m2, err := yini.OpenManager(srcPath, nil)
	if err != nil {
		t.Fatalf("OpenManager (reload): %v", err)
	}
	v, ok := m2.Document().Lookup("A", "x")
	if !ok || v.Int != 9 {
		t.Fatalf("expected reload from cache to see x=9, got %+v ok=%v", v, ok)
	}
}
