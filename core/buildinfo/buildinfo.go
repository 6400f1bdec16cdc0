// Package buildinfo carries version metadata stamped at link time.
package buildinfo

import "strings"

// These variables are intended to be set via -ldflags at build time:
//
//	-X 'github.com/m3rciful/studiobot/core/buildinfo.Version=v1.2.3'
//	-X 'github.com/m3rciful/studiobot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/studiobot/core/buildinfo.Date=2025-08-30T12:00:00Z'
var (
	// Version reports the semantic version or tag of the build.
	Version = "dev"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

// String renders the build for --version and the health probe, e.g.
// "v1.2.3 (abcdef0, 2025-08-30T12:00:00Z)".
func String() string {
	meta := []string{Commit}
	if Date != "" {
		meta = append(meta, Date)
	}
	return Version + " (" + strings.Join(meta, ", ") + ")"
}
