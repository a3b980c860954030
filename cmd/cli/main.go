// Command cairo-vm is the CLI surface spec §6 treats as an
// external-collaborator concern: loading a compiled cairo0 program,
// running it through pkg/runners/zero in one of its run modes, and
// persisting the relocated trace/memory artifacts. Built with
// spf13/cobra, matching the pack's CLI-bearing Go repos.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
