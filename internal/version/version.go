// Package version carries build-time version information for the CLIs.
package version

// Set at build time via -ldflags "-X jitreg/internal/version.Version=...".
var (
	// Version is the semantic version reported by --version.
	Version = "0.1.0"

	// GitCommit is the git commit hash of the build.
	GitCommit = "unknown"
)
