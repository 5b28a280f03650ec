// Package version reports the build version of hyperdata binaries and the
// User-Agent the transport sends.
//
// Version and Commit are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/hyperdata/version.Version=1.2.0" ./cmd/halctl
package version
