package main

import (
	"os"

	"github.com/jwwelbor/taskflow/internal/cli"
	_ "github.com/jwwelbor/taskflow/internal/cli/commands" // registers subcommands for side effects
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	cli.SetVersion(Version)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
