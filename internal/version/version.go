package version

import (
	"runtime"
	"runtime/debug"
)

// Build metadata, overridden with -ldflags at release time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the build metadata line printed by `lampwake version`.
func String() string {
	return "lampwake " + Version + " (commit=" + revision() + ", date=" + Date + ", go=" + runtime.Version() + ")"
}

// UserAgent identifies lampwake to the recognizer.
func UserAgent() string {
	return "lampwake/" + Version
}

// revision falls back to the VCS stamp of a plain `go build` when no commit
// was injected.
func revision() string {
	if Commit != "none" && Commit != "" {
		return Commit
	}
	return vcsRevision(debug.ReadBuildInfo)
}

func vcsRevision(read func() (*debug.BuildInfo, bool)) string {
	info, ok := read()
	if !ok || info == nil {
		return "none"
	}
	modified := false
	rev := ""
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			rev = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if rev == "" {
		return "none"
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if modified {
		rev += "-dirty"
	}
	return rev
}
