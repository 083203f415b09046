// Package main implements the leftright CLI tool.
//
// The tool exercises the leftright engine from the outside:
//
//	leftright verify <scenario.yaml>...   # run declarative conformance scenarios
//	leftright stress                      # hammer a pair and report consistency
//	leftright version                     # print the library version
//
// Scenario files script writes, refreshes, and reads with expected
// snapshots; the stress command runs one writer against many readers and
// counts torn or out-of-order observations, which a correct build never
// produces.
package main

import (
	"fmt"
	"os"

	"github.com/kolkov/leftright/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
