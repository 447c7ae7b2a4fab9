// DriveBridge - terminal browser and bulk downloader for a cloud drive
package main

import (
	"fmt"
	"os"

	"github.com/drivebridge/drivebridge/internal/cli"
)

// Version information - overridden by the Makefile via LDFLAGS
var (
	Version   = "v1.2.0-dev"
	BuildTime = "2026-08-29"
)

func main() {
	// Propagate version to the CLI package (shown in --version and help)
	cli.Version = Version
	cli.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
