// Command mate evaluates anchor-based assembly scripts.
package main

import (
	"fmt"
	"os"

	"github.com/chazu/mate/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersion(version, commit, date)
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mate:", err)
		os.Exit(1)
	}
}
