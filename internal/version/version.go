// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package version provides build version information for apvault.
// Values are injected at build time via -ldflags.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set at build time via -ldflags.
// Example: go build -ldflags "-X github.com/aplane-algo/apvault/internal/version.Version=0.1.0"
var (
	// Version is the semantic version (e.g., "0.1.0" or "0.1.0-dev")
	Version = "dev"

	// GitCommit is the git commit hash (short form)
	GitCommit = "unknown"

	// BuildTime is the build timestamp in RFC3339 format
	BuildTime = "unknown"
)

// Commit returns GitCommit, falling back to the VCS revision recorded by the
// Go toolchain when no ldflags were given.
func Commit() string {
	if GitCommit != "unknown" {
		return GitCommit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				return s.Value[:7]
			}
		}
	}
	return GitCommit
}

// String returns a formatted version string suitable for -version output.
func String() string {
	return fmt.Sprintf("apvault %s (commit: %s, built: %s, %s/%s)",
		Version, Commit(), BuildTime, runtime.GOOS, runtime.GOARCH)
}
