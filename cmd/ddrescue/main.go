// Command ddrescue is a fault-tolerant block-level copier: it tries hard
// to recover as much data as possible from a failing source before giving
// up on any single region, recording progress in a mapfile so a later
// invocation can resume exactly where the last one stopped.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ddrescue: %s\n", err)
		os.Exit(exitCodeFor(err))
	}
}
