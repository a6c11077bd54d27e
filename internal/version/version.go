// Package version exposes the build information of the alarm clock binaries.
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

// Info is the build information of the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get returns the build information. Without ldflags the commit and build time
// are taken from the VCS stamp the Go toolchain embeds.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}

	build, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	for _, setting := range build.Settings {
		switch {
		case setting.Key == "vcs.revision" && info.Commit == "none" && setting.Value != "":
			info.Commit = setting.Value[:min(len(setting.Value), shortSHA)]
		case setting.Key == "vcs.time" && info.BuildTime == "unknown" && setting.Value != "":
			info.BuildTime = setting.Value
		}
	}

	return info
}

const shortSHA = 7

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	info := Get()

	return fmt.Sprintf("version: %s, commit: %s, built at: %s, %s",
		info.Version, info.Commit, info.BuildTime, info.GoVersion)
}
