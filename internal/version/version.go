// Package version reports build information for nescore
package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"time"
)

var (
	// Set at build time via -ldflags "-X nescore/internal/version.Version=..."
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// BuildInfo contains detailed build information
type BuildInfo struct {
	Version    string `json:"version"`
	GitCommit  string `json:"git_commit"`
	BuildTime  string `json:"build_time"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
	Arch       string `json:"arch"`
	CGOEnabled bool   `json:"cgo_enabled"`
}

// GetBuildInfo merges the ldflags values with the VCS stamps of the binary
func GetBuildInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range bi.Settings {
			switch setting.Key {
			case "vcs.revision":
				if GitCommit == "unknown" {
					info.GitCommit = setting.Value
				}
			case "vcs.time":
				if BuildTime == "unknown" {
					info.BuildTime = setting.Value
				}
			case "CGO_ENABLED":
				info.CGOEnabled = setting.Value == "1"
			}
		}
	}

	return info
}

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}

// GetVersion returns the version, or dev-<commit> for untagged builds
func GetVersion() string {
	if Version == "dev" {
		if commit := GetBuildInfo().GitCommit; commit != "unknown" && len(commit) >= 7 {
			return "dev-" + shortCommit(commit)
		}
	}
	return Version
}

// GetDetailedVersion returns a one-line description of the build
func GetDetailedVersion() string {
	info := GetBuildInfo()

	s := fmt.Sprintf("nescore version %s", info.Version)
	if info.GitCommit != "unknown" {
		s += fmt.Sprintf(" (commit %s)", shortCommit(info.GitCommit))
	}
	if info.BuildTime != "unknown" {
		if t, err := time.Parse(time.RFC3339, info.BuildTime); err == nil {
			s += " built on " + t.Format("2006-01-02 15:04:05")
		} else {
			s += " built on " + info.BuildTime
		}
	}
	return s + fmt.Sprintf(" with %s for %s/%s", info.GoVersion, info.Platform, info.Arch)
}

// WriteBuildInfo prints the build information table to w
func WriteBuildInfo(w io.Writer) {
	info := GetBuildInfo()

	fmt.Fprintf(w, "nescore - cycle-accurate NES core\n")
	fmt.Fprintf(w, "Version:     %s\n", info.Version)
	fmt.Fprintf(w, "Git Commit:  %s\n", info.GitCommit)
	fmt.Fprintf(w, "Build Time:  %s\n", info.BuildTime)
	fmt.Fprintf(w, "Go Version:  %s\n", info.GoVersion)
	fmt.Fprintf(w, "Platform:    %s/%s\n", info.Platform, info.Arch)
	fmt.Fprintf(w, "CGO Enabled: %t\n", info.CGOEnabled)
}
