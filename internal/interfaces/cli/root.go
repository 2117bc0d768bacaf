// Package cli implements the ecactl command line: offline payload
// processing, action listing and schema migrations.
package cli

import (
	"fmt"
	"slices"

	"github.com/erp/eca/internal/infrastructure/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ValidFormats defines the allowed output formats
var ValidFormats = []string{FormatText, FormatJSON}

// RootOptions holds global flags for all commands
type RootOptions struct {
	Verbose bool
	Format  string
}

// Logger returns the diagnostics logger. Diagnostics go to stderr so that
// stdout carries only command output.
func (o *RootOptions) Logger() (*zap.Logger, error) {
	level := "warn"
	if o.Verbose {
		level = "debug"
	}
	return logger.New(logger.Config{Level: level, Format: "console", Output: "stderr"})
}

// NewRootCommand creates the root command of ecactl
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ecactl",
		Short: "Operate the ECA business event engine",
		Long: `ecactl processes ECA webhook payloads offline against an in-memory
store, lists the supported actions and manages the database schema.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", FormatText, "output format (text|json)")

	cmd.AddCommand(NewProcessCommand(opts))
	cmd.AddCommand(NewActionsCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}
