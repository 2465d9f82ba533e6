// Package version holds build-time identity, populated via -ldflags at
// release build time and left at sensible development defaults otherwise.
package version

import (
	"fmt"
	"runtime"
)

var (
	Version     = "dev"
	GitCommit   = "unknown"
	BuildDate   = "unknown"
	GoVersion   = runtime.Version()
	Platform    = fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
)

// String returns the one-line identity string the CLI prints for
// `zxbopt version` and appends to the root command's short description.
func String() string {
	return fmt.Sprintf("zxbopt %s (%s) built %s with %s for %s", Version, GitCommit, BuildDate, GoVersion, Platform)
}
