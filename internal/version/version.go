// Package version provides build-time version information for the
// fetcher binaries.
package version

import (
	"strings"

	"github.com/philbudne/rss-fetcher/internal/tools"
)

var (
	// Version is the release version, set via ldflags at build time.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// Summary returns a human-friendly version string for CLI output.
func Summary() string {
	return Version
}

// Resolve returns the version string for deployment tracking. Release
// builds carry it in Version; dev builds derive it from the working
// tree the way the deploy scripts did, by shelling out to git.
func Resolve(runner tools.Runner) string {
	if Version != "dev" {
		return Version
	}
	if runner == nil {
		runner = tools.LocalRunner{}
	}
	out, err := runner.Run("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		return Version
	}
	derived := strings.TrimSpace(out)
	if derived == "" {
		return Version
	}
	return derived
}
