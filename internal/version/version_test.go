package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"
)

func pinBuild(t *testing.T, version, commit, date string) {
	t.Helper()
	originalVersion, originalCommit, originalDate := Version, Commit, Date
	t.Cleanup(func() {
		Version, Commit, Date = originalVersion, originalCommit, originalDate
	})
	Version, Commit, Date = version, commit, date
}

func TestStringPrefersInjectedCommit(t *testing.T) {
	pinBuild(t, "0.4.0", "abc123", "2026-10-18")

	got := String()
	require.Contains(t, got, "lampwake 0.4.0 (commit=abc123, date=2026-10-18, go=")
}

func TestUserAgentCarriesVersion(t *testing.T) {
	pinBuild(t, "0.4.0", "none", "unknown")
	require.Equal(t, "lampwake/0.4.0", UserAgent())
}

func TestVCSRevision(t *testing.T) {
	stamped := func(settings ...debug.BuildSetting) func() (*debug.BuildInfo, bool) {
		return func() (*debug.BuildInfo, bool) {
			return &debug.BuildInfo{Settings: settings}, true
		}
	}

	tests := []struct {
		name string
		read func() (*debug.BuildInfo, bool)
		want string
	}{
		{
			name: "no build info",
			read: func() (*debug.BuildInfo, bool) { return nil, false },
			want: "none",
		},
		{
			name: "no vcs stamp",
			read: stamped(debug.BuildSetting{Key: "GOOS", Value: "linux"}),
			want: "none",
		},
		{
			name: "clean tree shortened",
			read: stamped(
				debug.BuildSetting{Key: "vcs.revision", Value: "0123456789abcdef0123"},
				debug.BuildSetting{Key: "vcs.modified", Value: "false"},
			),
			want: "0123456789ab",
		},
		{
			name: "dirty tree",
			read: stamped(
				debug.BuildSetting{Key: "vcs.revision", Value: "feedbeef"},
				debug.BuildSetting{Key: "vcs.modified", Value: "true"},
			),
			want: "feedbeef-dirty",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, vcsRevision(tc.read))
		})
	}
}
