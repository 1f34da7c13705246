// Copyright (c) 2024 Michael D Henderson. All rights reserved.

// Package dynamic implements the bounded update history and line-preserving
// source rewrite of spec §4.I: every `Dyna(...)` entry keeps a short deque
// of its past values, and that history can be merged back into the original
// source file without disturbing any line that was not itself rewritten.
package dynamic

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/playbymail/yini/cerrs"
	"github.com/playbymail/yini/internal/dom"
	"github.com/playbymail/yini/internal/textfmt"
	"github.com/playbymail/yini/internal/value"
)

// MaxHistory is the per-key history bound (spec §5 MAX_DYNAMIC_HISTORY).
const MaxHistory = 5

// Update prepends newValue to doc's history for "section.key" and truncates
// to MaxHistory, most recent first (spec §4.I, §8 property 7).
func Update(doc *dom.Document, section, key string, newValue value.Value) {
	UpdateWithLimit(doc, section, key, newValue, MaxHistory)
}

// UpdateWithLimit is Update with a caller-supplied history bound (spec §9:
// an embedder's config.Resources.MaxDynamicHistory override), instead of
// the package default MaxHistory.
func UpdateWithLimit(doc *dom.Document, section, key string, newValue value.Value, maxHistory int) {
	fullKey := section + "." + key
	history := append([]value.Value{newValue}, doc.DynamicHistory[fullKey]...)
	if len(history) > maxHistory {
		history = history[:maxHistory]
	}
	doc.DynamicHistory[fullKey] = history
}

// Head returns the most recent update for "section.key", if any.
func Head(doc *dom.Document, section, key string) (value.Value, bool) {
	history := doc.DynamicHistory[section+"."+key]
	if len(history) == 0 {
		return value.Value{}, false
	}
	return history[0], true
}

// MergeUpdatesIntoSource rewrites sourcePath line by line into outPath,
// replacing only lines that assign a key with a non-empty dynamic history
// (spec §4.I). Every other line — comments, blanks, section headers,
// unmatched entries, and their original indentation — is copied verbatim.
func MergeUpdatesIntoSource(doc *dom.Document, sourcePath, outPath string) error {
	in, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("%w: %v", cerrs.ErrCannotOpenSource, err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("%w: %v", cerrs.ErrCannotOpenTarget, err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	currentSection := ""

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if name, ok := sectionHeader(line); ok {
			currentSection = name
			fmt.Fprintln(w, line)
			continue
		}
		if key, eqIdx, ok := keyAssignment(line); ok {
			fullKey := currentSection + "." + key
			if history := doc.DynamicHistory[fullKey]; len(history) > 0 {
				fmt.Fprintln(w, line[:eqIdx+1]+" "+textfmt.FormatValue(history[0]))
				continue
			}
		}
		fmt.Fprintln(w, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: %v", cerrs.ErrCannotOpenSource, err)
	}
	return w.Flush()
}

// sectionHeader reports whether line is a `[Name ...]` or `[Name]:...`
// section header and, if so, the bare section name (ignoring any
// inheritance list).
func sectionHeader(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	end := strings.Index(trimmed, "]")
	if !strings.HasPrefix(trimmed, "[") || end < 0 {
		return "", false
	}
	if rest := strings.TrimSpace(trimmed[end+1:]); rest != "" && !strings.HasPrefix(rest, ":") {
		return "", false
	}
	body := trimmed[1:end]
	if name, _, found := strings.Cut(body, ":"); found {
		return strings.TrimSpace(name), true
	}
	return strings.TrimSpace(body), true
}

// keyAssignment reports whether line's first non-whitespace content matches
// `identifier =`, returning the identifier and the index of the `=` in the
// original (untrimmed) line.
func keyAssignment(line string) (string, int, bool) {
	i := 0
	for i < len(line) && unicode.IsSpace(rune(line[i])) {
		i++
	}
	start := i
	for i < len(line) && isKeyRune(rune(line[i])) {
		i++
	}
	if i == start {
		return "", 0, false
	}
	key := line[start:i]
	for i < len(line) && line[i] == ' ' {
		i++
	}
	if i >= len(line) || line[i] != '=' {
		return "", 0, false
	}
	return key, i, true
}

func isKeyRune(ch rune) bool {
	return ch == '_' || ch == '.' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}
