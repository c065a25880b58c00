// Command jersey is the self-service jersey registration client.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/jersey/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
