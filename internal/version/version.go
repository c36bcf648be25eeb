package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

const (
	unsetCommit    = "none"
	unsetBuildTime = "unknown"
	shortCommitLen = 12
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = unsetCommit
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = unsetBuildTime
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns the version with commit, build time and Go toolchain.
// Commit and build time fall back to the VCS stamp of the binary when ldflags left them unset.
func Full() string {
	commit, built := Commit, BuildTime

	if info, ok := debug.ReadBuildInfo(); ok {
		commit, built = fromBuildSettings(info.Settings, commit, built)
	}

	return fmt.Sprintf("version: %s, commit: %s, built at: %s, go: %s", Version, commit, built, runtime.Version())
}

// UserAgent returns the User-Agent header value sent to the release feed.
func UserAgent() string {
	return "datachannels-prebuild/" + Version
}

// fromBuildSettings fills unset values from the vcs.* build settings.
func fromBuildSettings(settings []debug.BuildSetting, commit, built string) (string, string) {
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			if commit == unsetCommit && setting.Value != "" {
				commit = setting.Value
				if len(commit) > shortCommitLen {
					commit = commit[:shortCommitLen]
				}
			}
		case "vcs.time":
			if built == unsetBuildTime && setting.Value != "" {
				built = setting.Value
			}
		}
	}

	return commit, built
}
