package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// shortCommitLength is how much of a VCS revision is shown.
const shortCommitLength = 7

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit, build time and
// Go version. Commit and build time fall back to the VCS stamp of the binary
// when ldflags did not set them.
func Full() string {
	commit, built := Commit, BuildTime

	if info, ok := debug.ReadBuildInfo(); ok {
		commit, built = fromBuildInfo(info.Settings, commit, built)
	}

	return fmt.Sprintf("medalarm version: %s, commit: %s, built at: %s, %s",
		Version, commit, built, runtime.Version())
}

// fromBuildInfo fills unset commit and build time from vcs.* settings.
func fromBuildInfo(settings []debug.BuildSetting, commit, built string) (string, string) {
	var dirty bool

	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			if commit == "none" && setting.Value != "" {
				commit = setting.Value[:min(len(setting.Value), shortCommitLength)]
			}
		case "vcs.time":
			if built == "unknown" && setting.Value != "" {
				built = setting.Value
			}
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}

	if dirty && commit != "none" {
		commit += "-dirty"
	}

	return commit, built
}
