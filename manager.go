// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package yini

import (
	"os"
	"sync"

	"github.com/playbymail/yini/internal/cache"
	"github.com/playbymail/yini/internal/config"
)

// Manager owns the full lifecycle of one YINI file the way
// original_source's YiniManager does: load from its `.ymeta` cache when
// one exists, fall back to parsing the `.yini` source otherwise, and
// track every set_* call so Close can write dynamic-value updates back
// into a copy of the source.
type Manager struct {
	mu   sync.Mutex
	path string
	doc  *Document
}

// OpenManager loads path, preferring path+".ymeta" if it exists, falling
// back to parsing path itself.
func OpenManager(path string, cfg *config.Config) (*Manager, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	m := &Manager{path: path}
	if err := m.load(cfg); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load(cfg *config.Config) error {
	ymetaPath := m.path + ".ymeta"
	if raw, err := os.ReadFile(ymetaPath); err == nil {
		if dom, loadErr := cache.LoadYMETA(raw); loadErr == nil {
			m.doc = &Document{dom: dom, cfg: cfg}
			return nil
		}
	}
	doc, err := ParseFile(m.path, cfg)
	if err != nil {
		return err
	}
	m.doc = doc
	return nil
}

// IsLoaded reports whether a document was successfully loaded.
func (m *Manager) IsLoaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc != nil
}

// Document returns the managed document handle.
func (m *Manager) Document() *Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc
}

// SetString, SetInt, SetFloat, and SetBool mirror YiniManager's
// setStringValue/setIntValue/setDoubleValue/setBoolValue: they update the
// in-memory document (pushing onto the dynamic history when the entry is
// a Dyna(...)) and refresh the on-disk `.ymeta` cache immediately.
func (m *Manager) SetString(section, key, v string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc.SetString(section, key, v)
	return m.save()
}

func (m *Manager) SetInt(section, key string, v int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc.SetInt(section, key, v)
	return m.save()
}

func (m *Manager) SetFloat(section, key string, v float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc.SetFloat(section, key, v)
	return m.save()
}

func (m *Manager) SetBool(section, key string, v bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc.SetBool(section, key, v)
	return m.save()
}

func (m *Manager) save() error {
	raw, err := cache.SaveYMETA(m.doc.dom, cache.ContentFull|cache.ContentDynamicOnly)
	if err != nil {
		return err
	}
	return os.WriteFile(m.path+".ymeta", raw, 0o644)
}

// Close writes any pending dynamic-value updates back into a copy of the
// original source file (YiniManager's writeBackDynaValues, run on
// destruction; Go has no destructors, so callers call Close explicitly,
// typically via defer).
func (m *Manager) Close(outPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return nil
	}
	return m.doc.MergeIntoSource(m.path, outPath)
}
