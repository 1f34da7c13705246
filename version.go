// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package yini

import "github.com/maloquacious/semver"

// Version is this module's semantic version.
var Version = semver.Version{
	Major: 0,
	Minor: 1,
	Patch: 0,
	Build: semver.Commit(),
}
