package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	ecaapp "github.com/erp/eca/internal/application/eca"
	"github.com/erp/eca/internal/interfaces/http/dto"
	"github.com/spf13/cobra"
)

// ActionsOptions holds flags for the actions command
type ActionsOptions struct {
	*RootOptions
	StrictActions []string
}

// NewActionsCommand creates the actions command
func NewActionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ActionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List the supported webhook actions and their lifecycles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listActions(opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringSliceVar(&opts.StrictActions, "strict", nil, "actions to report with the strict failure policy")

	return cmd
}

func listActions(opts *ActionsOptions, out io.Writer) error {
	processor := ecaapp.NewProcessor(ecaapp.Dependencies{}, ecaapp.DefaultOptions().WithStrictActions(opts.StrictActions...))
	resp := dto.NewActionsResponse(processor.Actions())

	if opts.Format == FormatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTION\tTYPE\tINITIAL\tSTATES\tPOLICY")
	for _, a := range resp.Actions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.Action, a.TransactionType, a.InitialState, strings.Join(a.States, ","), a.Policy)
	}
	return tw.Flush()
}
