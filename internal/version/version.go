// Package version provides build-time version information.
//
// Variables are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/agenthands/genecompare/internal/version.Version=1.0.0 \
//	                   -X github.com/agenthands/genecompare/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

var (
	Version = "v1.0.0"
	Commit  = "unknown"
)

// String returns a formatted version string.
func String() string {
	return Version + " (" + Commit + ")"
}
