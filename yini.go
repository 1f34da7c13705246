// Copyright (c) 2024 Michael D Henderson. All rights reserved.

// Package yini is the consumer-facing API of spec §6: parse source text,
// look up and set values on the resulting document, save and load a binary
// cache of it, and merge dynamic-value updates back into the original
// source. Every mutating call is synchronous and every failure is returned
// as an error, never a panic, matching the library-surface contract of
// §6 and the fail-fast propagation policy of §7.
package yini

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/playbymail/yini/cerrs"
	"github.com/playbymail/yini/internal/cache"
	"github.com/playbymail/yini/internal/config"
	"github.com/playbymail/yini/internal/dom"
	"github.com/playbymail/yini/internal/dynamic"
	"github.com/playbymail/yini/internal/evaluator"
	"github.com/playbymail/yini/internal/parser"
	"github.com/playbymail/yini/internal/structured"
	"github.com/playbymail/yini/internal/textfmt"
	"github.com/playbymail/yini/internal/value"
	"github.com/playbymail/yini/internal/yerrors"
)

// Document is the opaque handle spec §6 names: a parsed and evaluated DOM
// plus the config it was evaluated under, so later mutations (e.g. Dyna
// updates) can be written back under the same safe-mode policy.
type Document struct {
	dom *dom.Document
	cfg *config.Config
}

// Parse evaluates source under cfg (nil selects config.Default()) and
// returns the resulting Document, or the first diagnostic encountered by
// the lexer, parser, or evaluator.
func Parse(source []byte, cfg *config.Config) (*Document, *yerrors.Error) {
	if cfg == nil {
		cfg = config.Default()
	}
	ast, perr := parser.ParseWithConfig(source, cfg)
	if perr != nil {
		return nil, perr
	}
	d, eerr := evaluator.Evaluate(ast, cfg)
	if eerr != nil {
		return nil, eerr
	}
	return &Document{dom: d, cfg: cfg}, nil
}

// ParseFile reads path and parses it (spec §6 `parse`).
func ParseFile(path string, cfg *config.Config) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cerrs.ErrCannotOpenSource, err)
	}
	doc, perr := Parse(data, cfg)
	if perr != nil {
		return nil, perr
	}
	return doc, nil
}

// Lookup resolves "section.key" to its evaluated value (spec §6 `lookup`).
func (d *Document) Lookup(section, key string) (value.Value, bool) {
	return d.dom.Lookup(section, key)
}

// SetString, SetInt, SetFloat, and SetBool implement the `set_*` family of
// spec §6. If the targeted entry holds a Dyna(...) value, the new value is
// also pushed onto its dynamic history (spec §4.I) so a later
// MergeIntoSource call can write it back.
func (d *Document) SetString(section, key, v string) { d.set(section, key, value.StringValue(v)) }
func (d *Document) SetInt(section, key string, v int64) { d.set(section, key, value.IntValue(v)) }
func (d *Document) SetFloat(section, key string, v float64) {
	d.set(section, key, value.FloatValue(v))
}
func (d *Document) SetBool(section, key string, v bool) { d.set(section, key, value.BoolValue(v)) }

func (d *Document) set(section, key string, v value.Value) {
	if existing, ok := d.dom.Lookup(section, key); ok && existing.Kind == value.Dynamic {
		dynamic.UpdateWithLimit(d.dom, section, key, v, d.cfg.Resources.DynamicHistoryLimit())
		d.dom.AddEntry(section, key, value.DynamicValue(v))
		return
	}
	d.dom.AddEntry(section, key, v)
}

// Text renders the document as canonical YINI text (spec §4.F).
func (d *Document) Text() string { return textfmt.Format(d.dom) }

// ToStructured converts the document to the tagged-envelope tree of spec
// §4.G, suitable for JSON/YAML export.
func (d *Document) ToStructured() (any, error) {
	data, err := structured.Encode(d.dom)
	if err != nil {
		return nil, err
	}
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("yini: structured: %w", err)
	}
	return tree, nil
}

// SaveBinary writes the document's binary cache to path (spec §6
// `save_binary`, §4.H).
func (d *Document) SaveBinary(path string) error {
	raw, err := cache.Build(d.dom)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("%w: %v", cerrs.ErrCannotOpenTarget, err)
	}
	return nil
}

// LoadBinary memory-maps the cache file at path (spec §6 `load_binary`,
// §4.H). The returned handle is read-only: it supports Lookup but not the
// set_* or write-back APIs, since a cache file carries no original-source
// path to merge updates back into.
func LoadBinary(path string) (*cache.File, error) {
	return cache.Open(path)
}

// MergeIntoSource rewrites sourcePath's dynamic-value lines into outPath
// based on this document's update history (spec §6 `merge_into_source`,
// §4.I).
func (d *Document) MergeIntoSource(sourcePath, outPath string) error {
	return dynamic.MergeUpdatesIntoSource(d.dom, sourcePath, outPath)
}

// DOM exposes the underlying evaluated document for callers that need the
// lower-level dom.Document API (iterating sections, reading Defines, …).
func (d *Document) DOM() *dom.Document { return d.dom }
