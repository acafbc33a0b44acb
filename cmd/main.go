package main

import "feedfloat/internal/cli"

// Version information, set with -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	cli.SetVersion(Version, Commit)
	cli.Execute()
}
