// Package buildinfo exposes the version stamped into relnet binaries.
//
// Release builds set the variables through the linker:
//
//	go build -ldflags "-X github.com/matzehuels/relnet/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/relnet/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/matzehuels/relnet/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)" \
//	    ./cmd/relnet
package buildinfo

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release tag, or "dev" for local builds.
	Version = "dev"

	// Commit is the abbreviated git revision.
	Commit = "none"

	// Date is the UTC build timestamp.
	Date = "unknown"
)

// String returns the multi-line build summary printed by `relnet version`.
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s\ngo: %s", Version, Commit, Date, runtime.Version())
}

// Template returns the version template string for cobra.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}

// UserAgent identifies relnet to remote image sources.
func UserAgent() string {
	return "relnet/" + Version + " (+https://github.com/matzehuels/relnet)"
}
