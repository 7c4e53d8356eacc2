// Package version provides build-time version information for the
// command-line tools.
package version

// Set at build time via -ldflags.
var (
	// Version is the semantic version.
	Version = "0.1.0"

	// GitCommit is the git commit hash of the build.
	GitCommit = "unknown"
)

// String returns the full version string.
func String() string {
	return Version + " (" + GitCommit + ")"
}
