package version

import (
	"fmt"
	"runtime/debug"
)

// Set with -ldflags.
var (
	Version = "dev"
	Commit  = ""
)

// Info is the version of the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	GoVersion string `json:"go_version"`
	Modified  bool   `json:"modified,omitempty"`
}

// Get combines the link-time variables with the module build info. A commit
// from -ldflags wins over the VCS stamp.
func Get() Info {
	info := Info{Version: Version, Commit: Commit}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	if len(info.Commit) > 7 {
		info.Commit = info.Commit[:7]
	}
	return info
}

// String renders "version (commit)" with a "-dirty" suffix on modified trees.
func (i Info) String() string {
	s := i.Version
	if i.Commit != "" {
		s = fmt.Sprintf("%s (%s)", s, i.Commit)
	}
	if i.Modified {
		s += "-dirty"
	}
	return s
}

// UserAgent is the User-Agent header the transport sends by default.
func UserAgent() string {
	return "hyperdata/" + Get().Version
}
