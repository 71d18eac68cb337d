// Package version exposes build metadata of the medalarm binary.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags; commit and build time otherwise come from the VCS stamp the
// Go toolchain embeds.
package version
