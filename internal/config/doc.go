// Copyright (c) 2024 Michael D Henderson. All rights reserved.

// Package config manages JSON configuration loading for the YINI core. It
// holds the evaluator's environment-variable safe-mode allow-list and the
// resource-cap overrides described in spec §4.D and §5. Configuration is
// loaded from a JSON file with sensible defaults when the file is absent.
package config
