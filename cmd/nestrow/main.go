// Command nestrow decodes flat SQL rows into nested results.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/nestrow/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
