// Package version exposes build-time version information.
package version

// Set at build time via -ldflags.
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
