// Copyright (c) 2026 Inbound Team
// Inbound - federation inbox processor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package buildvars contains variables injected at build time, e.g.
// -ldflags "-X github.com/toeirei/inbound/buildvars.Version=1.2.3".
package buildvars

var (
	// Version is empty for local or development builds.
	Version string
	// Commit is the short commit SHA.
	Commit string
	// Date is the build date (RFC3339).
	Date string
)

// VersionOrDefault returns Version if set, otherwise def.
func VersionOrDefault(def string) string {
	if len(Version) > 0 {
		return Version
	}
	return def
}

// CommitOrDefault returns Commit if set, otherwise def.
func CommitOrDefault(def string) string {
	if len(Commit) > 0 {
		return Commit
	}
	return def
}
