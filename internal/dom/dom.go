// Copyright (c) 2024 Michael D Henderson. All rights reserved.

// Package dom implements the document object model the evaluator builds
// and every serializer consumes (spec §3 Document/Section, §4.E).
package dom

import (
	"sync"

	"github.com/playbymail/yini/internal/value"
)

// Section is one `[Name]` block after evaluation: its own entries plus the
// ordered parent names it was declared with (kept for diagnostics even
// though inheritance has already been merged into Entries by the time a
// Document is returned to a caller).
type Section struct {
	Name           string
	InheritedNames []string
	Entries        map[string]value.Value
	// order preserves insertion order of Entries for iteration and text
	// serialization (spec §4.F "entries ordered by insertion").
	order         []string
	Registrations []value.Value
}

func newSection(name string, parents []string) *Section {
	return &Section{Name: name, InheritedNames: parents, Entries: map[string]value.Value{}}
}

// Keys returns entry keys in insertion order.
func (s *Section) Keys() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Get looks up a key within the section.
func (s *Section) Get(key string) (value.Value, bool) {
	v, ok := s.Entries[key]
	return v, ok
}

// AddEntry inserts or overwrites a key directly on the section, bypassing
// the Document's lock. The evaluator uses this while building a freshly
// constructed Document that is not yet shared with any reader; callers
// mutating a Document that may already have concurrent readers must go
// through Document.AddEntry instead.
func (s *Section) AddEntry(key string, v value.Value) { s.set(key, v) }

// set inserts or overwrites a key, recording insertion order only the
// first time the key appears.
func (s *Section) set(key string, v value.Value) {
	if _, exists := s.Entries[key]; !exists {
		s.order = append(s.order, key)
	}
	s.Entries[key] = v
}

// Document is the evaluated DOM: sections in declaration order, the define
// map, the include list, the schema, and the dynamic-value history (spec
// §3 Document).
type Document struct {
	mu sync.Mutex

	sectionOrder []string
	sections     map[string]*Section

	Defines  map[string]value.Value
	Includes []string

	Schema map[string]map[string]SchemaRule

	// DynamicHistory maps "section.key" to a bounded deque, most recent
	// first (spec §4.I). internal/dynamic owns the update/trim logic; this
	// field is the storage it reads and writes.
	DynamicHistory map[string][]value.Value
}

// SchemaRule is the evaluated form of ast.SchemaRule (spec §3 SchemaRule).
type SchemaRule struct {
	Required    bool
	Type        string
	ElementType string
	Min, Max    *float64
	Default     *value.Value
	OnEmpty     string
}

func NewDocument() *Document {
	return &Document{
		sections:       map[string]*Section{},
		Defines:        map[string]value.Value{},
		Schema:         map[string]map[string]SchemaRule{},
		DynamicHistory: map[string][]value.Value{},
	}
}

// AddSection registers a new, empty section in declaration order. It is the
// evaluator's job to call this once per parsed section before populating
// entries.
func (d *Document) AddSection(name string, parents []string) *Section {
	d.mu.Lock()
	defer d.mu.Unlock()
	sec := newSection(name, parents)
	d.sections[name] = sec
	d.sectionOrder = append(d.sectionOrder, name)
	return sec
}

// Section looks up a section by name.
func (d *Document) Section(name string) (*Section, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sections[name]
	return s, ok
}

// Sections returns every section in declaration order. The returned slice
// is a snapshot; mutating the Document afterward does not affect it.
func (d *Document) Sections() []*Section {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Section, len(d.sectionOrder))
	for i, name := range d.sectionOrder {
		out[i] = d.sections[name]
	}
	return out
}

// Lookup returns the value at section.key (spec §6 `lookup`).
func (d *Document) Lookup(section, key string) (value.Value, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sec, ok := d.sections[section]
	if !ok {
		return value.Value{}, false
	}
	return sec.Get(key)
}

// SetString/SetInt/SetFloat/SetBool implement the mutation APIs of spec
// §4.E: a single exclusive lock around the read-modify-write so no
// observer ever sees a torn write.
func (d *Document) SetString(section, key, v string) { d.set(section, key, value.StringValue(v)) }
func (d *Document) SetInt(section, key string, v int64) { d.set(section, key, value.IntValue(v)) }
func (d *Document) SetFloat(section, key string, v float64) {
	d.set(section, key, value.FloatValue(v))
}
func (d *Document) SetBool(section, key string, v bool) { d.set(section, key, value.BoolValue(v)) }

func (d *Document) set(section, key string, v value.Value) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sec, ok := d.sections[section]
	if !ok {
		sec = newSection(section, nil)
		d.sections[section] = sec
		d.sectionOrder = append(d.sectionOrder, section)
	}
	sec.set(key, v)
}

// AddEntry is the general add-a-key-value-pair mutation API.
func (d *Document) AddEntry(section, key string, v value.Value) { d.set(section, key, v) }

// MergeFrom implements the "merge of another document" operation of
// §4.E/§4.I: other's entries overwrite this document's, registration
// lists are extended (not replaced), and sections appearing only in other
// are appended in other's declaration order.
func (d *Document) MergeFrom(other *Document) {
	d.mu.Lock()
	defer d.mu.Unlock()
	other.mu.Lock()
	defer other.mu.Unlock()

	for _, name := range other.sectionOrder {
		osec := other.sections[name]
		sec, ok := d.sections[name]
		if !ok {
			sec = newSection(name, osec.InheritedNames)
			d.sections[name] = sec
			d.sectionOrder = append(d.sectionOrder, name)
		}
		for _, key := range osec.order {
			sec.set(key, osec.Entries[key])
		}
		sec.Registrations = append(sec.Registrations, osec.Registrations...)
	}
	for k, v := range other.Defines {
		d.Defines[k] = v
	}
	for k, history := range other.DynamicHistory {
		d.DynamicHistory[k] = history
	}
}
