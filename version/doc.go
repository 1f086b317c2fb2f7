// Package version reports the syncfs build version.
//
// Version, Commit and Date can be injected at link time:
//
//	-ldflags "-X github.com/dendrascience/syncfs/version.Version=v1.0.0 -X github.com/dendrascience/syncfs/version.Commit=abc123"
//
// Otherwise the module version and VCS settings recorded by the Go toolchain
// are used, falling back to development defaults.
package version
