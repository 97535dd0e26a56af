// Command schemaguard runs the validating gateway and checks documents
// against schemas from the command line.
package main

import (
	"os"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
