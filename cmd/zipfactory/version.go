package main

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/infracollect/zipfactory/pkg/zipfactory"
	"github.com/urfave/cli/v3"
)

// Build information populated at init() from debug.ReadBuildInfo().
var (
	Version   = "unknown"
	GoVersion = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
	Modified  bool
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	Version = info.Main.Version
	GoVersion = info.GoVersion

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			Commit = setting.Value
		case "vcs.time":
			BuildTime = setting.Value
		case "vcs.modified":
			Modified = setting.Value == "true"
		}
	}
}

var versionCommand = &cli.Command{
	Name:  "version",
	Usage: "Print version and engine information",
	Action: func(ctx context.Context, command *cli.Command) error {
		fmt.Printf("version: %s\n", Version)
		fmt.Printf("go: %s\n", GoVersion)
		if Commit != "unknown" {
			dirty := ""
			if Modified {
				dirty = " (dirty)"
			}
			fmt.Printf("commit: %s%s\n", Commit, dirty)
		}
		if BuildTime != "unknown" {
			fmt.Printf("built: %s\n", BuildTime)
		}

		native := zipfactory.NativeAvailable() && !command.Root().Bool("no-native")
		fmt.Printf("preferred engine: %s\n", map[bool]string{true: "native", false: "fallback"}[native])
		return nil
	},
}
