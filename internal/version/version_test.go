package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFromBuildInfo(t *testing.T) {
	tests := []struct {
		name       string
		settings   map[string]string
		wantVer    string
		wantCommit string
	}{
		{
			name:     "none",
			settings: nil,
		},
		{
			name: "clean",
			settings: map[string]string{
				"vcs.revision": "0123456789abcdef",
				"vcs.time":     "2026-03-04T05:06:07Z",
				"vcs.modified": "false",
			},
			wantVer:    "dev-20260304",
			wantCommit: "0123456",
		},
		{
			name: "dirty short hash",
			settings: map[string]string{
				"vcs.revision": "abc",
				"vcs.modified": "true",
			},
			wantCommit: "abc-dirty",
		},
		{
			name: "bad time",
			settings: map[string]string{
				"vcs.time": "yesterday",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := &debug.BuildInfo{}
			for k, v := range tt.settings {
				info.Settings = append(info.Settings, debug.BuildSetting{Key: k, Value: v})
			}
			ver, commit := fromBuildInfo(info)
			if ver != tt.wantVer {
				t.Errorf("version = %q, want %q", ver, tt.wantVer)
			}
			if commit != tt.wantCommit {
				t.Errorf("commit = %q, want %q", commit, tt.wantCommit)
			}
		})
	}
}

func TestFullAndUserAgent(t *testing.T) {
	if Version == "" || Commit == "" {
		t.Fatalf("Version = %q, Commit = %q, want both set after init", Version, Commit)
	}
	if got := Full(); !strings.Contains(got, Version) || !strings.Contains(got, "commit: "+Commit) {
		t.Errorf("Full() = %q", got)
	}
	if got, want := UserAgent(), "tvstream/"+Version; got != want {
		t.Errorf("UserAgent() = %q, want %q", got, want)
	}
}
