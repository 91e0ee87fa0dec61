// Package version holds build metadata injected at link time.
package version

// Set via -ldflags "-X github.com/tandemplan/mailroom/internal/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)
