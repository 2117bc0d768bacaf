// Command ecactl is the operator command line of the ECA engine.
package main

import (
	"fmt"
	"os"

	"github.com/erp/eca/internal/interfaces/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
