// Command molder compiles declarative models to JSON Schema and validates
// payloads against them.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/molder/internal/cli"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cmd := cli.NewRootCommand()
	cmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate)

	err := cmd.ExecuteContext(context.Background())
	if err != nil && !cli.IsReported(err) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
