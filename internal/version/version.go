// Package version reports the tatum build version. Release builds set the
// variables below with -ldflags; other builds fall back to the module and
// VCS information embedded by the Go toolchain.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/conneroisu/tatum/internal/version.Version=v1.2.0"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// BuildInfo contains version and build information.
type BuildInfo struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit"`
	BuildTime time.Time `json:"build_time"`
	GoVersion string    `json:"go_version"`
	Platform  string    `json:"platform"`
	Dirty     bool      `json:"dirty,omitempty"`
}

// GetBuildInfo collects the build information of the running binary.
func GetBuildInfo() BuildInfo {
	return resolve(Version, GitCommit, BuildTime, readBuildInfo())
}

// GetShortVersion returns a one line version such as "v1.2.0 (abc1234)".
func GetShortVersion() string {
	return GetBuildInfo().Short()
}

// GetDetailedVersion returns one "Key: value" line per known field.
func GetDetailedVersion() string {
	return GetBuildInfo().Detailed()
}

// Short formats the version with an abbreviated commit.
func (b BuildInfo) Short() string {
	if b.GitCommit == "unknown" || len(b.GitCommit) < 7 {
		return b.Version
	}

	commit := b.GitCommit[:7]
	if b.Dirty {
		commit += "-dirty"
	}
	if b.Version == "dev" {
		return "dev-" + commit
	}
	return fmt.Sprintf("%s (%s)", b.Version, commit)
}

// Detailed formats every field that is known.
func (b BuildInfo) Detailed() string {
	lines := []string{"Version: " + b.Version}
	if b.GitCommit != "unknown" {
		lines = append(lines, "Commit: "+b.GitCommit)
	}
	if !b.BuildTime.IsZero() {
		lines = append(lines, "Built: "+b.BuildTime.Format(time.RFC3339))
	}
	lines = append(lines, "Go: "+b.GoVersion, "Platform: "+b.Platform)

	return strings.Join(lines, "\n")
}

func readBuildInfo() *debug.BuildInfo {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	return info
}

func resolve(version, commit, built string, info *debug.BuildInfo) BuildInfo {
	b := BuildInfo{
		Version:   version,
		GitCommit: commit,
		BuildTime: parseTime(built),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if b.Version == "" {
		b.Version = "dev"
	}
	if b.GitCommit == "" {
		b.GitCommit = "unknown"
	}
	if info == nil {
		return b
	}

	if b.Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		b.Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.GitCommit == "unknown" {
				b.GitCommit = s.Value
			}
		case "vcs.time":
			if b.BuildTime.IsZero() {
				b.BuildTime = parseTime(s.Value)
			}
		case "vcs.modified":
			b.Dirty = s.Value == "true"
		}
	}

	return b
}

// parseTime accepts RFC3339 and the common layouts used by build scripts.
// Anything else yields the zero time.
func parseTime(s string) time.Time {
	if s == "" || s == "unknown" {
		return time.Time{}
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	return time.Time{}
}
