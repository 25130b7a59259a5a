// Package main provides the conceptpipe binary entry point.
package main

import (
	"fmt"
	"os"

	"github.com/c360studio/conceptpipe/commands"
)

// Version is stamped at build time via -ldflags.
var Version = "0.1.0"

func main() {
	if err := commands.NewRoot(Version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
