// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/playbymail/yini/internal/config"
)

func TestLoad(t *testing.T) {
	t.Run("non-existent file returns defaults", func(t *testing.T) {
		cfg, err := config.Load("non-existent-file.json", false)
		if err != nil {
			t.Fatalf("expected no error for non-existent file, got %v", err)
		}
		if !cfg.SafeMode.Enabled {
			t.Errorf("expected safe mode enabled by default")
		}
		if cfg.Resources.MaxArraySize != config.DefaultMaxArraySize {
			t.Errorf("expected default MaxArraySize, got %d", cfg.Resources.MaxArraySize)
		}
	})

	t.Run("directory error", func(t *testing.T) {
		tmpDir := t.TempDir()
		_, err := config.Load(tmpDir, false)
		if err == nil {
			t.Fatal("expected error for directory, got nil")
		}
	})

	t.Run("empty config file keeps defaults", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.json")
		if err := os.WriteFile(configFile, []byte("{}"), 0644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}
		cfg, err := config.Load(configFile, false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Resources.MaxRecursionDepth != config.DefaultMaxRecursionDepth {
			t.Errorf("expected default MaxRecursionDepth, got %d", cfg.Resources.MaxRecursionDepth)
		}
	})

	t.Run("partial config overrides only what it names", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.json")

		testConfig := config.Config{
			Resources: config.Resources_t{MaxArraySize: 10},
		}
		data, err := json.Marshal(testConfig)
		if err != nil {
			t.Fatalf("failed to marshal test config: %v", err)
		}
		if err = os.WriteFile(configFile, data, 0644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		cfg, err := config.Load(configFile, false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Resources.MaxArraySize != 10 {
			t.Errorf("expected MaxArraySize 10, got %d", cfg.Resources.MaxArraySize)
		}
		if cfg.Resources.MaxRecursionDepth != config.DefaultMaxRecursionDepth {
			t.Errorf("expected MaxRecursionDepth to remain default, got %d", cfg.Resources.MaxRecursionDepth)
		}
	})

	t.Run("safe mode allow-list override", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.json")

		testConfig := config.Config{
			SafeMode: config.SafeMode_t{Enabled: true, AllowList: []string{"CUSTOM_VAR"}},
		}
		data, err := json.Marshal(testConfig)
		if err != nil {
			t.Fatalf("failed to marshal test config: %v", err)
		}
		if err = os.WriteFile(configFile, data, 0644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		cfg, err := config.Load(configFile, false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !cfg.IsAllowed("CUSTOM_VAR") {
			t.Errorf("expected CUSTOM_VAR to be allowed")
		}
		if cfg.IsAllowed("PATH") {
			t.Errorf("expected PATH to remain disallowed")
		}
	})

	t.Run("invalid JSON falls back to defaults", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.json")
		if err := os.WriteFile(configFile, []byte("not json"), 0644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}
		cfg, err := config.Load(configFile, true)
		if err != nil {
			t.Fatalf("expected no error for invalid JSON, got %v", err)
		}
		if cfg.Resources.MaxStringLength != config.DefaultMaxStringLength {
			t.Errorf("expected default MaxStringLength, got %d", cfg.Resources.MaxStringLength)
		}
	})
}

func TestResourcesLimitAccessorsFallBackToDefaults(t *testing.T) {
	var zero config.Resources_t
	if got := zero.StringLengthLimit(); got != config.DefaultMaxStringLength {
		t.Errorf("StringLengthLimit() = %d, want default %d", got, config.DefaultMaxStringLength)
	}
	if got := zero.IdentifierLengthLimit(); got != config.DefaultMaxIdentifierLength {
		t.Errorf("IdentifierLengthLimit() = %d, want default %d", got, config.DefaultMaxIdentifierLength)
	}
	if got := zero.ArraySizeLimit(); got != config.DefaultMaxArraySize {
		t.Errorf("ArraySizeLimit() = %d, want default %d", got, config.DefaultMaxArraySize)
	}
	if got := zero.RecursionDepthLimit(); got != config.DefaultMaxRecursionDepth {
		t.Errorf("RecursionDepthLimit() = %d, want default %d", got, config.DefaultMaxRecursionDepth)
	}
	if got := zero.DynamicHistoryLimit(); got != config.DefaultMaxDynamicHistory {
		t.Errorf("DynamicHistoryLimit() = %d, want default %d", got, config.DefaultMaxDynamicHistory)
	}

	overridden := config.Resources_t{MaxArraySize: 3}
	if got := overridden.ArraySizeLimit(); got != 3 {
		t.Errorf("ArraySizeLimit() = %d, want overridden value 3", got)
	}
}

func TestDefaultIsAllowed(t *testing.T) {
	cfg := config.Default()
	for _, name := range config.DefaultAllowList {
		if !cfg.IsAllowed(name) {
			t.Errorf("expected %s to be allowed by default", name)
		}
	}
	if cfg.IsAllowed("NOT_ON_THE_LIST") {
		t.Errorf("expected NOT_ON_THE_LIST to be disallowed by default")
	}

	cfg.SafeMode.Enabled = false
	if !cfg.IsAllowed("ANYTHING") {
		t.Errorf("expected any name to be allowed when safe mode is disabled")
	}
}
