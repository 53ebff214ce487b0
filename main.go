package main

import (
	"db-snapshot/cmd"
	"db-snapshot/internal/application"
)

// Version information (set by build flags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GoVersion = "unknown"
)

func main() {
	cmd.SetVersionInfo(Version, BuildTime, GitCommit, GoVersion)
	application.Exit(cmd.Execute())
}
