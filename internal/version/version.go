// Package version provides version information for go-script-runner.
// The Version variable is set at build time via ldflags.
package version

// Version is the current version of go-script-runner.
// Set at build time via: -ldflags "-X github.com/randomizedcoder/go-script-runner/internal/version.Version=v1.0.0"
// Defaults to "dev" for development builds.
var Version = "dev"
