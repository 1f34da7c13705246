// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package token_test

import (
	"testing"

	"github.com/playbymail/yini/internal/token"
)

func TestIsBuiltinCalleeIsCaseInsensitive(t *testing.T) {
	for _, name := range []string{"Color", "COORD", "path", "List", "Array", "map", "Set", "dyna"} {
		if !token.IsBuiltinCallee(name) {
			t.Errorf("expected %q to be recognized as a builtin callee", name)
		}
	}
	if token.IsBuiltinCallee("NotACallee") {
		t.Error("expected NotACallee to be rejected")
	}
}

func TestNormalizeCalleeLowercases(t *testing.T) {
	if got := token.NormalizeCallee("CoLoR"); got != "color" {
		t.Errorf("NormalizeCallee(CoLoR) = %q, want color", got)
	}
}

func TestKindStringIsStable(t *testing.T) {
	if token.Integer.String() != "Integer" || token.PlusEqual.String() != "PlusEqual" {
		t.Errorf("unexpected Kind.String() output: %s, %s", token.Integer, token.PlusEqual)
	}
}
