package contracts

import (
	"fmt"
	"runtime"
)

const (
	// Version is the release of the survdash binaries
	Version = "0.3.0"

	// APIVersion is the version of the REST API and WebSocket messages
	APIVersion = "v1"

	RepoURL = "https://github.com/survdash/survdash"
)

// Set with -ldflags "-X survdash/pkg/contracts.BuildTime=... -X survdash/pkg/contracts.GitCommit=..."
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo describes the running binary
type VersionInfo struct {
	Version    string `json:"version"`
	APIVersion string `json:"api_version"`
	BuildTime  string `json:"build_time"`
	GitCommit  string `json:"git_commit"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// GetVersionInfo returns the build and runtime details of this binary
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:    Version,
		APIVersion: APIVersion,
		BuildTime:  BuildTime,
		GitCommit:  GitCommit,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (v VersionInfo) String() string {
	return fmt.Sprintf("%s (api %s, commit %s, built %s, %s %s)",
		v.Version, v.APIVersion, v.GitCommit, v.BuildTime, v.GoVersion, v.Platform)
}
