package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"bizbiller/internal/app"
	"bizbiller/internal/core"
)

func (r *runner) expenseCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "expense", Short: "Record money paid out that is not a purchase"}

	add := &cobra.Command{
		Use:   "add <category> <amount>",
		Short: "Record an expense",
		Args:  cobra.ExactArgs(2),
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			amt, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			in := core.AddExpenseInput{Category: args[0], Amount: amt}
			in.Date, _ = cmd.Flags().GetString("date")
			in.PaymentMode, _ = cmd.Flags().GetString("mode")
			in.Notes, _ = cmd.Flags().GetString("notes")
			if in.AccountID, err = optionalID(cmd, "account"); err != nil {
				return err
			}
			e, err := svc.AddExpense(cmd.Context(), sess, in)
			if err != nil {
				return err
			}
			return r.emit(cmd, e, func(w io.Writer) {
				fmt.Fprintf(w, "Recorded expense %d: %s %s\n", e.ID, e.Category, money(e.Amount))
			})
		}),
	}
	add.Flags().String("date", "", "expense date, YYYY-MM-DD (default today)")
	add.Flags().String("mode", "", "payment mode")
	add.Flags().String("notes", "", "free-text notes")
	add.Flags().Int64("account", 0, "account the expense was paid from")

	update := &cobra.Command{
		Use:   "update <expense-id>",
		Short: "Change an expense, moving its account by the difference",
		Args:  cobra.ExactArgs(1),
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			id, err := parseID(args[0], "expense")
			if err != nil {
				return err
			}
			in := core.UpdateExpenseInput{
				Category:    changedString(cmd, "category"),
				Date:        changedString(cmd, "date"),
				PaymentMode: changedString(cmd, "mode"),
				Notes:       changedString(cmd, "notes"),
			}
			in.ClearAccount, _ = cmd.Flags().GetBool("no-account")
			if in.Amount, err = changedDecimal(cmd, "amount"); err != nil {
				return err
			}
			if in.AccountID, err = optionalID(cmd, "account"); err != nil {
				return err
			}
			e, err := svc.UpdateExpense(cmd.Context(), sess, id, in)
			if err != nil {
				return err
			}
			return r.emit(cmd, e, func(w io.Writer) {
				fmt.Fprintf(w, "Updated expense %d: %s %s\n", e.ID, e.Category, money(e.Amount))
			})
		}),
	}
	update.Flags().String("category", "", "expense category")
	update.Flags().String("amount", "", "amount paid")
	update.Flags().String("date", "", "expense date, YYYY-MM-DD")
	update.Flags().String("mode", "", "payment mode")
	update.Flags().String("notes", "", "free-text notes")
	update.Flags().Int64("account", 0, "account the expense was paid from")
	update.Flags().Bool("no-account", false, "detach the expense from its account")

	del := &cobra.Command{
		Use:   "delete <expense-id>",
		Short: "Delete an expense, crediting its account back",
		Args:  cobra.ExactArgs(1),
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			id, err := parseID(args[0], "expense")
			if err != nil {
				return err
			}
			if err := svc.DeleteExpense(cmd.Context(), sess, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted expense %d.\n", id)
			return nil
		}),
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List expenses",
		Args:  cobra.NoArgs,
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			expenses, err := svc.ListExpenses(cmd.Context(), sess, dateRange(cmd))
			if err != nil {
				return err
			}
			return r.emit(cmd, expenses, func(w io.Writer) {
				fmt.Fprintf(w, "%-6s %-10s %-24s %12s\n", "ID", "DATE", "CATEGORY", "AMOUNT")
				for _, e := range expenses {
					fmt.Fprintf(w, "%-6d %-10s %-24s %12s\n", e.ID, e.Date, e.Category, money(e.Amount))
				}
			})
		}),
	}
	dateRangeFlags(list)

	cmd.AddCommand(add, update, del, list)
	return cmd
}

func (r *runner) reportCommand() *cobra.Command {
	kinds := make([]string, len(app.ReportKinds))
	for i, k := range app.ReportKinds {
		kinds[i] = string(k)
	}
	c := &cobra.Command{
		Use:       "report <kind>",
		Short:     "Run a report",
		Long:      "Run a report. Kinds: " + strings.Join(kinds, ", ") + ".\nsales, purchases, gst, stock and outstanding can be written to Excel with --xlsx.",
		Example:   "  bizbiller report gst --from 2024-04-01 --to 2024-04-30 --xlsx gst-april.xlsx",
		Args:      cobra.ExactArgs(1),
		ValidArgs: kinds,
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			dr := dateRange(cmd)
			req := app.ReportRequest{Kind: app.ReportKind(args[0]), From: dr.From, To: dr.To}
			req.Date, _ = cmd.Flags().GetString("date")
			req.Limit, _ = cmd.Flags().GetInt("limit")

			if path, _ := cmd.Flags().GetString("xlsx"); path != "" {
				return exportReport(cmd, svc, sess, req, path)
			}
			res, err := svc.Report(cmd.Context(), sess, req)
			if err != nil {
				return err
			}
			return r.emit(cmd, res, reportPrinter(res))
		}),
	}
	dateRangeFlags(c)
	c.Flags().String("date", "", "day for the daybook, YYYY-MM-DD (default today)")
	c.Flags().Int("limit", 10, "number of items for top-items")
	c.Flags().String("xlsx", "", "write the report to this Excel file")
	return c
}

func exportReport(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, req app.ReportRequest, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := svc.ExportReport(cmd.Context(), sess, req, f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s report to %s\n", req.Kind, path)
	return nil
}

// reportPrinter returns a text printer for the summary reports and nil
// (JSON output) for the ones with long listings.
func reportPrinter(res *app.ReportResult) func(io.Writer) {
	line := func(w io.Writer, label, value string) {
		fmt.Fprintf(w, "  %-30s %18s\n", label, value)
	}
	switch {
	case res.Documents != nil:
		d := res.Documents
		return func(w io.Writer) {
			rule(w, "=")
			fmt.Fprintf(w, "  %s REGISTER  %s .. %s\n", strings.ToUpper(string(d.Type)), d.From, d.To)
			rule(w, "=")
			line(w, "Documents", fmt.Sprint(d.Count))
			line(w, "Taxable", money(d.Taxable))
			line(w, "Tax", money(d.Tax))
			line(w, "Total", money(d.Total))
			line(w, "Paid", money(d.Paid))
			line(w, "Due", money(d.Due))
		}
	case res.PL != nil:
		p := res.PL
		return func(w io.Writer) {
			rule(w, "=")
			fmt.Fprintf(w, "  PROFIT AND LOSS  %s .. %s\n", p.From, p.To)
			rule(w, "=")
			line(w, "Revenue", money(p.Revenue))
			line(w, "Purchases", money(p.Purchases))
			line(w, "Gross profit", money(p.GrossProfit))
			line(w, "Expenses", money(p.Expenses))
			line(w, "Net profit", money(p.NetProfit))
			line(w, "Margin %", money(p.ProfitMargin))
		}
	case res.GST != nil:
		g := res.GST
		return func(w io.Writer) {
			rule(w, "=")
			fmt.Fprintf(w, "  GST SUMMARY  %s .. %s\n", g.From, g.To)
			rule(w, "=")
			fmt.Fprintf(w, "  %6s %14s %12s %12s %12s\n", "RATE", "TAXABLE", "CGST", "SGST", "TAX")
			for _, s := range g.Slabs {
				fmt.Fprintf(w, "  %6s %14s %12s %12s %12s\n", s.Rate, money(s.Taxable), money(s.CGST), money(s.SGST), money(s.Total))
			}
			rule(w, "-")
			line(w, "Output tax", money(g.OutputTax))
			line(w, "Input tax", money(g.InputTax))
			line(w, "Net payable", money(g.NetPayable))
		}
	case res.Outstanding != nil:
		o := res.Outstanding
		return func(w io.Writer) {
			rule(w, "=")
			fmt.Fprintln(w, "  OUTSTANDING")
			rule(w, "=")
			for _, p := range o.Receivables {
				line(w, p.Name+" (receivable)", money(p.Balance))
			}
			for _, p := range o.Payables {
				line(w, p.Name+" (payable)", money(p.Balance.Neg()))
			}
			rule(w, "-")
			line(w, "Total receivable", money(o.TotalReceivable))
			line(w, "Total payable", money(o.TotalPayable))
			line(w, "Net position", money(o.NetPosition))
		}
	case res.CashFlow != nil:
		c := res.CashFlow
		return func(w io.Writer) {
			rule(w, "=")
			fmt.Fprintf(w, "  CASH FLOW  %s .. %s\n", c.From, c.To)
			rule(w, "=")
			line(w, "Inflow", money(c.Inflow))
			line(w, "Payments out", money(c.PaymentsOut))
			line(w, "Expenses", money(c.Expenses))
			line(w, "Net", money(c.Net))
		}
	}
	return nil
}
