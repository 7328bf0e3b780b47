// Package cli is the command-line adapter over app.ApplicationService.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"bizbiller/internal/app"
	"bizbiller/internal/config"
	"bizbiller/internal/core"
)

var version = "0.1.0"

// Options carries what the commands need from main.
type Options struct {
	Config *config.Config
	Log    zerolog.Logger
	// Open builds the application. Defaults to app.New; tests substitute their own.
	Open func(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app.App, error)
}

// runner holds per-invocation state shared by every subcommand.
type runner struct {
	opts       Options
	businessID int64
	user       string
	jsonOut    bool

	app *app.App
}

// NewRootCommand builds the bizbiller command tree.
func NewRootCommand(opts Options) *cobra.Command {
	root, _ := newRoot(opts)
	return root
}

func newRoot(opts Options) (*cobra.Command, *runner) {
	if opts.Open == nil {
		opts.Open = app.New
	}
	r := &runner{opts: opts}

	root := &cobra.Command{
		Use:   "bizbiller",
		Short: "Billing, stock and ledgers for small businesses",
		Long: `bizbiller keeps invoices, stock, party balances and cash/bank accounts
of one or more businesses consistent with each other.

Every invoice operation moves all affected ledgers in one transaction:
either everything changes or nothing does.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			r.close()
		},
	}
	root.PersistentFlags().Int64VarP(&r.businessID, "business", "b", opts.Config.BusinessID, "business to operate on (env BUSINESS_ID)")
	root.PersistentFlags().StringVar(&r.user, "user", "", "user recorded on the session")
	root.PersistentFlags().BoolVar(&r.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		r.migrateCommand(),
		r.businessCommand(),
		r.settingCommand(),
		r.partyCommand(),
		r.itemCommand(),
		r.accountCommand(),
		r.stockCommand(),
		r.ledgerCommand(),
		r.invoiceCommand(),
		r.expenseCommand(),
		r.reportCommand(),
	)
	return root, r
}

// Execute runs the command tree against os.Args and logs failures.
func Execute(ctx context.Context, opts Options) error {
	root, r := newRoot(opts)
	defer r.close()
	if err := root.ExecuteContext(ctx); err != nil {
		opts.Log.Error().Err(err).Msg("command failed")
		return err
	}
	return nil
}

func (r *runner) service(ctx context.Context) (app.ApplicationService, error) {
	if r.app == nil {
		a, err := r.opts.Open(ctx, r.opts.Config, r.opts.Log)
		if err != nil {
			return nil, fmt.Errorf("failed to open application: %w", err)
		}
		r.app = a
	}
	return r.app.Service, nil
}

func (r *runner) close() {
	if r.app != nil {
		r.app.Close()
		r.app = nil
	}
}

func (r *runner) session() (core.Session, error) {
	if r.businessID <= 0 {
		return core.Session{}, fmt.Errorf("no business selected: pass --business or set BUSINESS_ID")
	}
	return core.Session{BusinessID: r.businessID, User: r.user}, nil
}

// withSession resolves the service and session before calling fn.
func (r *runner) withSession(fn func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		sess, err := r.session()
		if err != nil {
			return err
		}
		svc, err := r.service(cmd.Context())
		if err != nil {
			return err
		}
		return fn(cmd, svc, sess, args)
	}
}

func (r *runner) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Migrate(cmd.Context(), r.opts.Config, r.opts.Log); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
			return nil
		},
	}
}

// ── Output helpers ───────────────────────────────────────────────────────────

// emit prints v as JSON when --json is set, otherwise through the text printer.
func (r *runner) emit(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	if r.jsonOut || text == nil {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func rule(w io.Writer, ch string) {
	fmt.Fprintln(w, strings.Repeat(ch, 72))
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// ── Flag helpers ─────────────────────────────────────────────────────────────

func decimalFlag(cmd *cobra.Command, name string) (decimal.Decimal, error) {
	raw, err := cmd.Flags().GetString(name)
	if err != nil {
		return decimal.Zero, err
	}
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid --%s %q: %w", name, raw, err)
	}
	return d, nil
}

// changedString returns nil when the flag was not given.
func changedString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

// changedDecimal returns nil when the flag was not given.
func changedDecimal(cmd *cobra.Command, name string) (*decimal.Decimal, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	v, err := decimalFlag(cmd, name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// optionalID returns nil when the flag was not given.
func optionalID(cmd *cobra.Command, name string) (*int64, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	id, err := cmd.Flags().GetInt64(name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseID(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, raw)
	}
	return id, nil
}

func dateRangeFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "first day, YYYY-MM-DD")
	cmd.Flags().String("to", "", "last day, YYYY-MM-DD")
}

func dateRange(cmd *cobra.Command) core.DateRange {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	return core.DateRange{From: from, To: to}
}
