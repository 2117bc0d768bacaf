package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	ecaapp "github.com/erp/eca/internal/application/eca"
	"github.com/erp/eca/internal/domain/eca"
	"github.com/erp/eca/internal/infrastructure/audit"
	"github.com/erp/eca/internal/infrastructure/cache"
	"github.com/erp/eca/internal/infrastructure/persistence/memory"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// ProcessOptions holds flags for the process command
type ProcessOptions struct {
	*RootOptions
	Tenants       []string
	AutoTenant    bool
	StrictActions []string
	ShowState     bool
}

// NewProcessCommand creates the process command
func NewProcessCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProcessOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "process <file>...",
		Short: "Process webhook payloads against an in-memory store",
		Long: `Process webhook payloads against an in-memory store.

Each file holds one payload object or a JSON array of payloads. Payloads
run in order within one session, so later payloads see the transactions
created by earlier ones. Use "-" to read from stdin.

Example:
  ecactl process purchase.json confirm.json --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd.Context(), opts, args, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringSliceVar(&opts.Tenants, "tenant", nil, "organization id to register as an active tenant (repeatable)")
	cmd.Flags().BoolVar(&opts.AutoTenant, "auto-tenant", true, "register every organization id found in the payloads")
	cmd.Flags().StringSliceVar(&opts.StrictActions, "strict", nil, "actions that reject the whole payload on any invalid item")
	cmd.Flags().BoolVar(&opts.ShowState, "show-state", true, "print the resulting transactions (text format)")

	return cmd
}

type payloadSource struct {
	name string
	raw  []byte
}

func runProcess(ctx context.Context, opts *ProcessOptions, files []string, stdin io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log, err := opts.Logger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	var payloads []payloadSource
	for _, name := range files {
		loaded, err := loadPayloads(name, stdin)
		if err != nil {
			return err
		}
		payloads = append(payloads, loaded...)
	}

	tenants := memory.NewTenantRegistry()
	for _, raw := range opts.Tenants {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid --tenant %q: %w", raw, err)
		}
		tenants.Put(eca.Tenant{ID: id, Name: raw})
	}
	orgs := make([]uuid.UUID, 0)
	seen := make(map[uuid.UUID]bool)
	for _, p := range payloads {
		id, ok := organizationOf(p.raw)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		orgs = append(orgs, id)
		if opts.AutoTenant {
			if _, err := tenants.Resolve(ctx, id); err != nil {
				tenants.Put(eca.Tenant{ID: id, Name: id.String()})
			}
		}
	}

	store := memory.NewStore()
	ledger := cache.NewInMemoryEventLedger(0)
	defer func() { _ = ledger.Close() }()

	processor := ecaapp.NewProcessor(ecaapp.Dependencies{
		Tenants:       tenants,
		Entities:      store,
		Relationships: store,
		Transactions:  store,
		Ledger:        ledger,
		Audit:         audit.NewLogSink(log),
		Logger:        log,
	}, ecaapp.DefaultOptions().WithStrictActions(opts.StrictActions...))

	failed := 0
	enc := json.NewEncoder(out)
	for i, p := range payloads {
		resp := processor.Process(ctx, p.raw)
		if !resp.Success {
			failed++
		}
		if opts.Format == FormatJSON {
			if err := enc.Encode(resp); err != nil {
				return fmt.Errorf("failed to write response: %w", err)
			}
			continue
		}
		writeResponseLine(out, i+1, p.name, resp)
	}

	if opts.Format == FormatText && opts.ShowState {
		writeState(out, store, orgs)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d payloads failed", failed, len(payloads))
	}
	return nil
}

func loadPayloads(name string, stdin io.Reader) ([]payloadSource, error) {
	var (
		raw []byte
		err error
	)
	if name == "-" {
		raw, err = io.ReadAll(stdin)
		name = "stdin"
	} else {
		raw, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return []payloadSource{{name: name, raw: raw}}, nil
	}
	var batch []json.RawMessage
	if err := json.Unmarshal(trimmed, &batch); err != nil {
		return nil, fmt.Errorf("failed to parse payload array in %s: %w", name, err)
	}
	out := make([]payloadSource, len(batch))
	for i, item := range batch {
		out[i] = payloadSource{name: fmt.Sprintf("%s[%d]", name, i), raw: item}
	}
	return out, nil
}

func organizationOf(raw []byte) (uuid.UUID, bool) {
	var env struct {
		OrganizationID string `json:"organization_id"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(env.OrganizationID)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func writeResponseLine(out io.Writer, n int, name string, resp *ecaapp.ECAWebhookResponse) {
	summary := resp.Attributes.Summary
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s action=%s", n, name, resp.Action)
	if !resp.Success {
		fmt.Fprintf(&b, " FAILED %s: %s", resp.Error.Code, resp.Error.Message)
		fmt.Fprintln(out, b.String())
		return
	}
	switch st := resp.StateTransition; {
	case st == nil:
	case st.From == nil:
		fmt.Fprintf(&b, " state=%s", st.To)
	default:
		fmt.Fprintf(&b, " state=%s->%s", *st.From, st.To)
	}
	fmt.Fprintf(&b, " records=%d ok=%d failed=%d", summary.RecordsProcessed, summary.RecordsSuccessful, summary.RecordsFailed)
	if resp.Metadata.Replayed {
		b.WriteString(" replayed")
	}
	fmt.Fprintln(out, b.String())
	for _, re := range summary.RecordErrors {
		fmt.Fprintf(out, "    %s: %s\n", re.Code, re.Message)
	}
}

func writeState(out io.Writer, store *memory.Store, orgs []uuid.UUID) {
	for _, org := range orgs {
		txs := store.Transactions(org)
		if len(txs) == 0 {
			continue
		}
		fmt.Fprintf(out, "organization %s: %d transactions, %d entities\n", org, len(txs), len(store.Entities(org)))
		sortTransactions(txs)
		for _, tx := range txs {
			ext := "-"
			if tx.ExternalID != nil {
				ext = *tx.ExternalID
			}
			fmt.Fprintf(out, "  %-22s %-16s %s\n", tx.TransactionType, ext, tx.Status)
		}
	}
}

func sortTransactions(txs []eca.BusinessTransaction) {
	slices.SortFunc(txs, func(a, b eca.BusinessTransaction) int {
		if c := strings.Compare(string(a.TransactionType), string(b.TransactionType)); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}
