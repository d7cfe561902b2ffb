package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/kbukum/streamkit/version.Version=v1.2.0 -X github.com/kbukum/streamkit/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	IsDirty   bool   `json:"is_dirty"`
}

// Get returns the build information, falling back to the VCS stamps of the
// Go toolchain when no ldflags were given.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == "" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.IsDirty = s.Value == "true"
		}
	}
	if len(info.GitCommit) > 7 {
		info.GitCommit = info.GitCommit[:7]
	}
	return info
}

// String returns "version (commit[, dirty], built time)".
func (i Info) String() string {
	var meta []string
	if i.GitCommit != "" {
		commit := i.GitCommit
		if i.IsDirty {
			commit += ", dirty"
		}
		meta = append(meta, commit)
	}
	if i.BuildTime != "" {
		meta = append(meta, "built "+i.BuildTime)
	}
	if len(meta) == 0 {
		return i.Version
	}
	return fmt.Sprintf("%s (%s)", i.Version, strings.Join(meta, ", "))
}

// String returns the formatted version of the running binary.
func String() string {
	return Get().String()
}
