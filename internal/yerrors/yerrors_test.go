// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package yerrors_test

import (
	"strings"
	"testing"

	"github.com/playbymail/yini/internal/yerrors"
)

func TestErrorIncludesPositionWhenKnown(t *testing.T) {
	err := yerrors.New(yerrors.KindUnexpectedCharacter, 3, 7, "unexpected %q", '$')
	msg := err.Error()
	if !strings.HasPrefix(msg, "3:7:") {
		t.Fatalf("expected message to start with line:col, got %q", msg)
	}
	if !strings.Contains(msg, string(yerrors.KindUnexpectedCharacter)) {
		t.Fatalf("expected message to include the kind, got %q", msg)
	}
}

func TestErrorOmitsPositionWhenZero(t *testing.T) {
	err := yerrors.New(yerrors.KindCorruptCache, 0, 0, "bad header")
	msg := err.Error()
	if strings.Contains(msg, "0:0") {
		t.Fatalf("expected no zero position prefix, got %q", msg)
	}
}
