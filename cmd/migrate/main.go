// Command migrate manages the engine's database schema. It is the migrate
// subcommand of ecactl packaged as its own binary for deployment jobs.
package main

import (
	"fmt"
	"os"

	"github.com/erp/eca/internal/interfaces/cli"
)

func main() {
	cmd := cli.NewMigrateCommand(&cli.RootOptions{Format: cli.FormatText})
	cmd.Use = "migrate"
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
