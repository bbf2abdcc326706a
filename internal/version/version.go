// Package version holds build metadata injected with
// -ldflags "-X github.com/bissquit/barber-queue/internal/version.Version=...".
package version

import "fmt"

var (
	Version   = "0.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// String formats the build metadata for `barberqueue --version`.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate)
}
