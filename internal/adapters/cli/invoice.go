package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"bizbiller/internal/app"
	"bizbiller/internal/core"
)

const lineHelp = `Each --line is a comma separated list of key=value pairs:
  item=<id>      catalog item; name, unit, rate and GST default from it
  name=<text>    free-text line when no item is given
  qty=<decimal>  quantity (required)
  rate=<decimal> overrides the catalog rate
  gst=<decimal>  overrides the catalog GST percentage
  unit=<text>    unit of measure`

func (r *runner) invoiceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "invoice",
		Aliases: []string{"inv"},
		Short:   "Create, change, pay and delete billing documents",
	}
	cmd.AddCommand(
		r.invoiceCreateCommand(),
		r.invoiceUpdateCommand(),
		r.invoicePayCommand(),
		r.invoiceDeleteCommand(),
		r.invoiceShowCommand(),
		r.invoiceListCommand(),
		r.invoicePendingCommand(),
		r.invoiceConvertCommand(),
	)
	return cmd
}

func (r *runner) invoiceCreateCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "create",
		Short: "Create a sale, purchase, estimate, proforma or challan",
		Long:  "Create a billing document and post it to stock, party and cash ledgers.\n\n" + lineHelp,
		Example: `  bizbiller invoice create --type sale --party 3 --gst --line item=1,qty=2 --paid 100
  bizbiller invoice create --type purchase --party 7 --line item=4,qty=10,rate=80`,
		Args: cobra.NoArgs,
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			in := core.CreateInvoiceInput{}
			t, _ := cmd.Flags().GetString("type")
			in.Type = core.DocumentType(t)
			in.Date, _ = cmd.Flags().GetString("date")
			in.IsGST, _ = cmd.Flags().GetBool("gst")
			in.PaymentMode, _ = cmd.Flags().GetString("mode")
			in.Notes, _ = cmd.Flags().GetString("notes")

			var err error
			if in.PartyID, err = optionalID(cmd, "party"); err != nil {
				return err
			}
			if in.AccountID, err = optionalID(cmd, "account"); err != nil {
				return err
			}
			if in.Paid, err = decimalFlag(cmd, "paid"); err != nil {
				return err
			}
			if in.DiscountPercent, err = decimalFlag(cmd, "discount-percent"); err != nil {
				return err
			}
			if in.DiscountAmount, err = decimalFlag(cmd, "discount"); err != nil {
				return err
			}
			raw, _ := cmd.Flags().GetStringArray("line")
			if in.Lines, err = parseLines(raw); err != nil {
				return err
			}

			res, err := svc.CreateInvoice(cmd.Context(), sess, in)
			if err != nil {
				return err
			}
			return r.emit(cmd, res, func(w io.Writer) { printInvoice(w, res) })
		}),
	}
	c.Flags().String("type", string(core.DocSale), "sale, purchase, estimate, proforma or challan")
	c.Flags().String("date", "", "document date, YYYY-MM-DD (default today)")
	c.Flags().Int64("party", 0, "party id")
	c.Flags().Bool("gst", false, "charge GST on lines")
	c.Flags().StringArray("line", nil, "line item, repeatable")
	c.Flags().String("discount-percent", "", "discount as a percentage of subtotal")
	c.Flags().String("discount", "", "flat discount amount")
	c.Flags().String("paid", "", "amount paid at creation")
	c.Flags().String("mode", "", "payment mode, e.g. cash or upi")
	c.Flags().Int64("account", 0, "account receiving the payment (default cash)")
	c.Flags().String("notes", "", "free-text notes")
	return c
}

func (r *runner) invoiceUpdateCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "update <invoice-id>",
		Short: "Change an invoice and re-post its ledger effects",
		Long:  "Only the flags given are changed. --line replaces every line.\n\n" + lineHelp,
		Args:  cobra.ExactArgs(1),
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			id, err := parseID(args[0], "invoice")
			if err != nil {
				return err
			}
			in := core.UpdateInvoiceInput{}
			flags := cmd.Flags()
			in.Date = changedString(cmd, "date")
			if in.PartyID, err = optionalID(cmd, "party"); err != nil {
				return err
			}
			in.ClearParty, _ = flags.GetBool("clear-party")
			if flags.Changed("gst") {
				v, _ := flags.GetBool("gst")
				in.IsGST = &v
			}
			if in.DiscountPercent, err = changedDecimal(cmd, "discount-percent"); err != nil {
				return err
			}
			if in.DiscountAmount, err = changedDecimal(cmd, "discount"); err != nil {
				return err
			}
			in.PaymentMode = changedString(cmd, "mode")
			in.Notes = changedString(cmd, "notes")
			if raw, _ := flags.GetStringArray("line"); len(raw) > 0 {
				if in.Lines, err = parseLines(raw); err != nil {
					return err
				}
			}

			res, err := svc.UpdateInvoice(cmd.Context(), sess, id, in)
			if err != nil {
				return err
			}
			return r.emit(cmd, res, func(w io.Writer) { printInvoice(w, res) })
		}),
	}
	c.Flags().String("date", "", "document date, YYYY-MM-DD")
	c.Flags().Int64("party", 0, "party id")
	c.Flags().Bool("clear-party", false, "remove the party")
	c.Flags().Bool("gst", false, "charge GST on lines")
	c.Flags().StringArray("line", nil, "line item, repeatable; replaces all lines")
	c.Flags().String("discount-percent", "", "discount as a percentage of subtotal")
	c.Flags().String("discount", "", "flat discount amount")
	c.Flags().String("mode", "", "payment mode")
	c.Flags().String("notes", "", "free-text notes")
	return c
}

func (r *runner) invoicePayCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "pay <invoice-id> <amount>",
		Short: "Record a payment against a sale or purchase",
		Args:  cobra.ExactArgs(2),
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			id, err := parseID(args[0], "invoice")
			if err != nil {
				return err
			}
			amt, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			in := core.PaymentInput{Amount: amt}
			in.Mode, _ = cmd.Flags().GetString("mode")
			in.Date, _ = cmd.Flags().GetString("date")
			in.Reference, _ = cmd.Flags().GetString("ref")
			in.IdempotencyKey, _ = cmd.Flags().GetString("key")
			if in.AccountID, err = optionalID(cmd, "account"); err != nil {
				return err
			}
			res, err := svc.RecordPayment(cmd.Context(), sess, id, in)
			if err != nil {
				return err
			}
			return r.emit(cmd, res, func(w io.Writer) { printInvoice(w, res) })
		}),
	}
	c.Flags().String("mode", "", "payment mode")
	c.Flags().String("date", "", "payment date, YYYY-MM-DD (default today)")
	c.Flags().String("ref", "", "reference, e.g. a UPI transaction id")
	c.Flags().String("key", "", "idempotency key; a repeated key is not paid twice")
	c.Flags().Int64("account", 0, "account moved by the payment (default cash)")
	return c
}

func (r *runner) invoiceDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <invoice-id>",
		Short: "Delete an invoice, reversing its payments and ledger effects",
		Args:  cobra.ExactArgs(1),
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			id, err := parseID(args[0], "invoice")
			if err != nil {
				return err
			}
			if err := svc.DeleteInvoice(cmd.Context(), sess, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted invoice %d.\n", id)
			return nil
		}),
	}
}

func (r *runner) invoiceShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <invoice-id>",
		Short: "Show an invoice with its payments",
		Args:  cobra.ExactArgs(1),
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			id, err := parseID(args[0], "invoice")
			if err != nil {
				return err
			}
			res, err := svc.GetInvoice(cmd.Context(), sess, id)
			if err != nil {
				return err
			}
			return r.emit(cmd, res, func(w io.Writer) { printInvoice(w, res) })
		}),
	}
}

func (r *runner) invoiceListCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "list",
		Short: "List invoices",
		Args:  cobra.NoArgs,
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			t, _ := cmd.Flags().GetString("type")
			f := core.InvoiceFilter{Type: core.DocumentType(t)}
			dr := dateRange(cmd)
			f.From, f.To = dr.From, dr.To
			var err error
			if f.PartyID, err = optionalID(cmd, "party"); err != nil {
				return err
			}
			invoices, err := svc.ListInvoices(cmd.Context(), sess, f)
			if err != nil {
				return err
			}
			return r.emit(cmd, invoices, func(w io.Writer) {
				fmt.Fprintf(w, "%-6s %-10s %-12s %-10s %-24s %12s %12s %-8s\n", "ID", "TYPE", "NUMBER", "DATE", "PARTY", "TOTAL", "DUE", "STATUS")
				for _, inv := range invoices {
					fmt.Fprintf(w, "%-6d %-10s %-12s %-10s %-24s %12s %12s %-8s\n",
						inv.ID, inv.Type, inv.Number, inv.Date, inv.PartyName, money(inv.GrandTotal), money(inv.Due), inv.Status)
				}
			})
		}),
	}
	c.Flags().String("type", "", "document type")
	c.Flags().Int64("party", 0, "party id")
	dateRangeFlags(c)
	return c
}

func (r *runner) invoicePendingCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "pending",
		Short: "List unpaid and partially paid sales and purchases",
		Args:  cobra.NoArgs,
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			t, _ := cmd.Flags().GetString("type")
			invoices, err := svc.PendingInvoices(cmd.Context(), sess, core.DocumentType(t))
			if err != nil {
				return err
			}
			return r.emit(cmd, invoices, func(w io.Writer) {
				fmt.Fprintf(w, "%-6s %-12s %-10s %-24s %12s %12s %-8s\n", "ID", "NUMBER", "DATE", "PARTY", "TOTAL", "DUE", "STATUS")
				due := decimal.Zero
				for _, inv := range invoices {
					fmt.Fprintf(w, "%-6d %-12s %-10s %-24s %12s %12s %-8s\n",
						inv.ID, inv.Number, inv.Date, inv.PartyName, money(inv.GrandTotal), money(inv.Due), inv.Status)
					due = due.Add(inv.Due)
				}
				fmt.Fprintf(w, "%d pending, %s due\n", len(invoices), money(due))
			})
		}),
	}
	c.Flags().String("type", "", "sale or purchase")
	return c
}

func (r *runner) invoiceConvertCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "convert <estimate-id>",
		Short: "Convert an estimate into a sale",
		Args:  cobra.ExactArgs(1),
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			id, err := parseID(args[0], "estimate")
			if err != nil {
				return err
			}
			date, _ := cmd.Flags().GetString("date")
			res, err := svc.ConvertEstimate(cmd.Context(), sess, id, date)
			if err != nil {
				return err
			}
			return r.emit(cmd, res, func(w io.Writer) { printInvoice(w, res) })
		}),
	}
	c.Flags().String("date", "", "sale date, YYYY-MM-DD (default today)")
	return c
}

// ── Parsing ──────────────────────────────────────────────────────────────────

func parseLines(raw []string) ([]core.LineInput, error) {
	lines := make([]core.LineInput, 0, len(raw))
	for i, s := range raw {
		l, err := parseLine(s)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		lines = append(lines, l)
	}
	return lines, nil
}

// parseLine reads "item=3,qty=2,rate=10,gst=18" style line specs.
func parseLine(s string) (core.LineInput, error) {
	var l core.LineInput
	for _, part := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return l, fmt.Errorf("expected key=value, got %q", part)
		}
		key, value = strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value)
		switch key {
		case "item":
			id, err := parseID(value, "item")
			if err != nil {
				return l, err
			}
			l.ItemID = &id
		case "name":
			l.Name = value
		case "unit":
			l.Unit = value
		case "qty", "quantity":
			d, err := parseAmount(value)
			if err != nil {
				return l, err
			}
			l.Quantity = d
		case "rate":
			d, err := parseAmount(value)
			if err != nil {
				return l, err
			}
			l.Rate = &d
		case "gst":
			d, err := parseAmount(value)
			if err != nil {
				return l, err
			}
			l.GSTRate = &d
		default:
			return l, fmt.Errorf("unknown key %q", key)
		}
	}
	if l.Quantity.IsZero() {
		return l, fmt.Errorf("qty is required")
	}
	return l, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

// ── Printing ─────────────────────────────────────────────────────────────────

func printInvoice(w io.Writer, res *app.InvoiceResult) {
	inv := res.Invoice
	rule(w, "=")
	fmt.Fprintf(w, "  %s %s   date %s   status %s\n", strings.ToUpper(string(inv.Type)), inv.Number, inv.Date, inv.Status)
	if inv.PartyName != "" {
		fmt.Fprintf(w, "  Party : %s\n", inv.PartyName)
	}
	rule(w, "=")
	fmt.Fprintf(w, "  %-30s %10s %12s %6s %12s\n", "ITEM", "QTY", "RATE", "GST%", "AMOUNT")
	rule(w, "-")
	for _, l := range inv.Lines {
		fmt.Fprintf(w, "  %-30s %10s %12s %6s %12s\n", l.Name, l.Quantity, money(l.Rate), l.GSTRate, money(l.Quantity.Mul(l.Rate)))
	}
	rule(w, "-")
	total := func(label string, d decimal.Decimal) {
		fmt.Fprintf(w, "  %-56s %12s\n", label, money(d))
	}
	total("Subtotal", inv.Subtotal)
	if !inv.Discount.IsZero() {
		total("Discount", inv.Discount.Neg())
	}
	if inv.IsGST {
		total("CGST", inv.CGST)
		total("SGST", inv.SGST)
	}
	if !inv.RoundOff.IsZero() {
		total("Round off", inv.RoundOff)
	}
	total("GRAND TOTAL", inv.GrandTotal)
	total("Paid", inv.Paid)
	total("Due", inv.Due)
	if len(res.Payments) > 0 {
		rule(w, "-")
		for _, p := range res.Payments {
			fmt.Fprintf(w, "  %-10s %-12s %-33s %12s\n", p.Date, p.Type, p.Mode, money(p.Amount))
		}
	}
	rule(w, "=")
}
