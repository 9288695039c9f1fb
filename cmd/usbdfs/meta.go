package main

import (
	"fmt"
	"runtime/debug"
)

// Build metadata, set with -ldflags "-X main.Version=..." or read from the
// module build information.
var (
	Version = ""
	Commit  = ""
)

func description() string {
	return fmt.Sprintf("USB full-speed device engine tools\n  Version: %s (%s)", Version, Commit)
}

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		if Version == "" && info.Main.Version != "(devel)" {
			Version = info.Main.Version
		}
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && Commit == "" {
				Commit = s.Value[:min(len(s.Value), 7)]
			}
		}
	}
	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
}
