// Package version reports the build version of tvstream.
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/holtholcomb/tvstream/internal/version.Version=v1.2.3 \
//	                   -X github.com/holtholcomb/tvstream/internal/version.Commit=abc123"
//
// Unset values are filled from the VCS stamp in the build info, then from a
// dev timestamp.
var (
	Version = ""
	Commit  = ""
)

func init() {
	if Version == "" || Commit == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			v, c := fromBuildInfo(info)
			if Version == "" {
				Version = v
			}
			if Commit == "" {
				Commit = c
			}
		}
	}

	if Version == "" {
		Version = "dev-" + time.Now().Format("20060102-150405")
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromBuildInfo derives a dev version from the commit date and a short,
// dirty-marked commit hash. Either may be empty.
func fromBuildInfo(info *debug.BuildInfo) (ver, commit string) {
	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}

	if rev := settings["vcs.revision"]; rev != "" {
		if len(rev) > 7 {
			rev = rev[:7]
		}
		commit = rev
		if settings["vcs.modified"] == "true" {
			commit += "-dirty"
		}
	}

	if ts := settings["vcs.time"]; ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			ver = "dev-" + t.Format("20060102")
		}
	}
	return ver, commit
}

// Full returns the version with its commit.
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// UserAgent is sent with the Upgrade request.
func UserAgent() string {
	return "tvstream/" + Version
}
