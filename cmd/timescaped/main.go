// Command timescaped runs the Timescape demo server and operational
// tooling: an HTTP host exercising the versioning core end to end, plus
// snapshot and schema maintenance subcommands.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
