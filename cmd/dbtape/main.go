// Command dbtape inspects record/replay snapshots and checks scenarios.
package main

import (
	"os"

	"github.com/roach88/dbtape/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
