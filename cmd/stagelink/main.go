// Stagelink - encrypted object staging for external cloud storage.
package main

import (
	"os"

	"github.com/stagelink/stagelink/internal/cli"
)

// Version information, overridable via -ldflags at release build time.
var (
	Version   = "v1.2.0"
	BuildTime = "2026-08-23"
)

func main() {
	cli.Version = Version
	cli.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
