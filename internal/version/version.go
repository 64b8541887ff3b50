// Package version exposes build metadata for the server binary.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set via ldflags at build time; Version falls back to "dev" and the
// commit hash to the embedded VCS info.
var (
	Version    = "dev"
	CommitHash = ""
	BuildTime  = ""
)

// GetInfo returns "<version> (<short commit>)" when a commit is known.
func GetInfo() string {
	if CommitHash == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs.revision":
					CommitHash = setting.Value
				case "vcs.time":
					BuildTime = setting.Value
				}
			}
		}
	}

	out := Version
	if CommitHash != "" {
		short := CommitHash
		if len(short) > 7 {
			short = short[:7]
		}
		out = fmt.Sprintf("%s (%s)", out, short)
	}
	return out
}
