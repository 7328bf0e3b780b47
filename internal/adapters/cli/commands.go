package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"bizbiller/internal/app"
	"bizbiller/internal/core"
)

// ── Businesses and settings ──────────────────────────────────────────────────

func (r *runner) businessCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "business", Short: "Create and list businesses"}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a business with default settings and a cash account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.service(cmd.Context())
			if err != nil {
				return err
			}
			in := core.CreateBusinessInput{Name: args[0]}
			in.Phone, _ = cmd.Flags().GetString("phone")
			in.Email, _ = cmd.Flags().GetString("email")
			in.Address, _ = cmd.Flags().GetString("address")
			in.GSTIN, _ = cmd.Flags().GetString("gstin")
			in.State, _ = cmd.Flags().GetString("state")
			b, err := svc.CreateBusiness(cmd.Context(), in)
			if err != nil {
				return err
			}
			return r.emit(cmd, b, func(w io.Writer) {
				fmt.Fprintf(w, "Created business %d: %s\n", b.ID, b.Name)
			})
		},
	}
	create.Flags().String("phone", "", "contact phone")
	create.Flags().String("email", "", "contact email")
	create.Flags().String("address", "", "postal address")
	create.Flags().String("gstin", "", "15-character GSTIN")
	create.Flags().String("state", "", "state name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List businesses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.service(cmd.Context())
			if err != nil {
				return err
			}
			bs, err := svc.ListBusinesses(cmd.Context())
			if err != nil {
				return err
			}
			return r.emit(cmd, bs, func(w io.Writer) {
				fmt.Fprintf(w, "%-6s %-40s %-16s\n", "ID", "NAME", "GSTIN")
				for _, b := range bs {
					fmt.Fprintf(w, "%-6d %-40s %-16s\n", b.ID, b.Name, b.GSTIN)
				}
			})
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}

func (r *runner) settingCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "setting", Short: "Read and change business settings"}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print a setting",
		Args:  cobra.ExactArgs(1),
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			v, err := svc.GetSetting(cmd.Context(), sess, args[0])
			if err != nil {
				return err
			}
			return r.emit(cmd, map[string]string{args[0]: v}, func(w io.Writer) { fmt.Fprintln(w, v) })
		}),
	}, &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a setting, e.g. invoicePrefix or lowStockAlert",
		Args:  cobra.ExactArgs(2),
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			if err := svc.SetSetting(cmd.Context(), sess, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
			return nil
		}),
	})
	return cmd
}

// ── Master data ──────────────────────────────────────────────────────────────

func (r *runner) partyCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "party", Short: "Manage customers and suppliers"}

	add := &cobra.Command{
		Use:   "add <customer|supplier> <name>",
		Short: "Add a party",
		Args:  cobra.ExactArgs(2),
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			opening, err := decimalFlag(cmd, "opening-balance")
			if err != nil {
				return err
			}
			in := core.CreatePartyInput{Type: core.PartyType(args[0]), Name: args[1], OpeningBalance: opening}
			in.Phone, _ = cmd.Flags().GetString("phone")
			in.Email, _ = cmd.Flags().GetString("email")
			in.GSTIN, _ = cmd.Flags().GetString("gstin")
			in.State, _ = cmd.Flags().GetString("state")
			p, err := svc.CreateParty(cmd.Context(), sess, in)
			if err != nil {
				return err
			}
			return r.emit(cmd, p, func(w io.Writer) {
				fmt.Fprintf(w, "Added %s %d: %s (balance %s)\n", p.Type, p.ID, p.Name, money(p.Balance))
			})
		}),
	}
	add.Flags().String("phone", "", "contact phone")
	add.Flags().String("email", "", "contact email")
	add.Flags().String("gstin", "", "15-character GSTIN")
	add.Flags().String("state", "", "state name")
	add.Flags().String("opening-balance", "", "signed opening balance; positive means the party owes us")

	list := &cobra.Command{
		Use:   "list",
		Short: "List parties with their balances",
		Args:  cobra.NoArgs,
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			t, _ := cmd.Flags().GetString("type")
			parties, err := svc.ListParties(cmd.Context(), sess, core.PartyType(t))
			if err != nil {
				return err
			}
			return r.emit(cmd, parties, func(w io.Writer) {
				fmt.Fprintf(w, "%-6s %-9s %-32s %15s\n", "ID", "TYPE", "NAME", "BALANCE")
				for _, p := range parties {
					fmt.Fprintf(w, "%-6d %-9s %-32s %15s\n", p.ID, p.Type, p.Name, money(p.Balance))
				}
			})
		}),
	}
	list.Flags().String("type", "", "customer or supplier")

	statement := &cobra.Command{
		Use:   "statement <party-id>",
		Short: "Show a party's movements with running balance",
		Args:  cobra.ExactArgs(1),
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			id, err := parseID(args[0], "party")
			if err != nil {
				return err
			}
			st, err := svc.PartyStatement(cmd.Context(), sess, id, dateRange(cmd))
			if err != nil {
				return err
			}
			return r.emit(cmd, st, func(w io.Writer) { printStatement(w, st) })
		}),
	}
	dateRangeFlags(statement)

	update := &cobra.Command{
		Use:   "update <party-id>",
		Short: "Change a party's contact details",
		Args:  cobra.ExactArgs(1),
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			id, err := parseID(args[0], "party")
			if err != nil {
				return err
			}
			p, err := svc.UpdateParty(cmd.Context(), sess, id, core.UpdatePartyInput{
				Name:    changedString(cmd, "name"),
				Phone:   changedString(cmd, "phone"),
				Email:   changedString(cmd, "email"),
				Address: changedString(cmd, "address"),
				GSTIN:   changedString(cmd, "gstin"),
				State:   changedString(cmd, "state"),
			})
			if err != nil {
				return err
			}
			return r.emit(cmd, p, func(w io.Writer) {
				fmt.Fprintf(w, "Updated %s %d: %s\n", p.Type, p.ID, p.Name)
			})
		}),
	}
	update.Flags().String("name", "", "party name")
	update.Flags().String("phone", "", "contact phone")
	update.Flags().String("email", "", "contact email")
	update.Flags().String("address", "", "postal address")
	update.Flags().String("gstin", "", "15-character GSTIN")
	update.Flags().String("state", "", "state name")

	del := &cobra.Command{
		Use:   "delete <party-id>",
		Short: "Delete a party without documents or balance",
		Args:  cobra.ExactArgs(1),
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			id, err := parseID(args[0], "party")
			if err != nil {
				return err
			}
			if err := svc.DeleteParty(cmd.Context(), sess, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted party %d.\n", id)
			return nil
		}),
	}

	search := &cobra.Command{
		Use:   "search <text>",
		Short: "Find parties by name or phone",
		Args:  cobra.ExactArgs(1),
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			parties, err := svc.SearchParties(cmd.Context(), sess, args[0])
			if err != nil {
				return err
			}
			return r.emit(cmd, parties, func(w io.Writer) {
				fmt.Fprintf(w, "%-6s %-9s %-32s %-16s %15s\n", "ID", "TYPE", "NAME", "PHONE", "BALANCE")
				for _, p := range parties {
					fmt.Fprintf(w, "%-6d %-9s %-32s %-16s %15s\n", p.ID, p.Type, p.Name, p.Phone, money(p.Balance))
				}
			})
		}),
	}

	cmd.AddCommand(add, list, statement, update, del, search)
	return cmd
}

func printStatement(w io.Writer, st *core.PartyStatement) {
	rule(w, "=")
	fmt.Fprintf(w, "  STATEMENT : %s (%s)\n", st.Party.Name, st.Party.Type)
	rule(w, "=")
	fmt.Fprintf(w, "  %-10s %-12s %-14s %12s %12s %12s\n", "DATE", "KIND", "REF", "DEBIT", "CREDIT", "BALANCE")
	rule(w, "-")
	fmt.Fprintf(w, "  %-10s %-12s %-14s %12s %12s %12s\n", "", "opening", "", "", "", money(st.OpeningBalance))
	for _, l := range st.Lines {
		fmt.Fprintf(w, "  %-10s %-12s %-14s %12s %12s %12s\n", l.Date, l.Kind, l.Reference, money(l.Debit), money(l.Credit), money(l.Balance))
	}
	rule(w, "=")
	fmt.Fprintf(w, "  %-62s %12s\n", "CLOSING", money(st.ClosingBalance))
}

func (r *runner) itemCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "item", Short: "Manage the item catalog"}

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an item",
		Args:  cobra.ExactArgs(1),
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			in := core.CreateItemInput{Name: args[0]}
			var err error
			if in.SalePrice, err = decimalFlag(cmd, "sale-price"); err != nil {
				return err
			}
			if in.PurchasePrice, err = decimalFlag(cmd, "purchase-price"); err != nil {
				return err
			}
			if in.GSTRate, err = decimalFlag(cmd, "gst"); err != nil {
				return err
			}
			if in.OpeningStock, err = decimalFlag(cmd, "stock"); err != nil {
				return err
			}
			in.SKU, _ = cmd.Flags().GetString("sku")
			in.HSN, _ = cmd.Flags().GetString("hsn")
			in.Unit, _ = cmd.Flags().GetString("unit")
			in.Category, _ = cmd.Flags().GetString("category")
			it, err := svc.CreateItem(cmd.Context(), sess, in)
			if err != nil {
				return err
			}
			return r.emit(cmd, it, func(w io.Writer) {
				fmt.Fprintf(w, "Added item %d: %s (stock %s %s)\n", it.ID, it.Name, it.Stock, it.Unit)
			})
		}),
	}
	add.Flags().String("sale-price", "", "default sale rate")
	add.Flags().String("purchase-price", "", "default purchase rate")
	add.Flags().String("gst", "", "GST percentage")
	add.Flags().String("stock", "", "opening stock")
	add.Flags().String("sku", "", "stock keeping unit")
	add.Flags().String("hsn", "", "HSN code")
	add.Flags().String("unit", "", "unit of measure (default pcs)")
	add.Flags().String("category", "", "category")

	list := &cobra.Command{
		Use:   "list",
		Short: "List items with stock",
		Args:  cobra.NoArgs,
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			items, err := svc.ListItems(cmd.Context(), sess)
			if err != nil {
				return err
			}
			return r.emit(cmd, items, func(w io.Writer) {
				fmt.Fprintf(w, "%-6s %-32s %12s %-6s %12s %6s\n", "ID", "NAME", "STOCK", "UNIT", "RATE", "GST%")
				for _, it := range items {
					fmt.Fprintf(w, "%-6d %-32s %12s %-6s %12s %6s\n", it.ID, it.Name, it.Stock, it.Unit, money(it.SalePrice), it.GSTRate)
				}
			})
		}),
	}

	update := &cobra.Command{
		Use:   "update <item-id>",
		Short: "Change an item's catalog details",
		Long:  "Only the flags given are changed. Existing documents keep the rates they were billed at.",
		Args:  cobra.ExactArgs(1),
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			id, err := parseID(args[0], "item")
			if err != nil {
				return err
			}
			in := core.UpdateItemInput{
				Name:     changedString(cmd, "name"),
				SKU:      changedString(cmd, "sku"),
				HSN:      changedString(cmd, "hsn"),
				Category: changedString(cmd, "category"),
				Unit:     changedString(cmd, "unit"),
			}
			if in.SalePrice, err = changedDecimal(cmd, "sale-price"); err != nil {
				return err
			}
			if in.PurchasePrice, err = changedDecimal(cmd, "purchase-price"); err != nil {
				return err
			}
			if in.GSTRate, err = changedDecimal(cmd, "gst"); err != nil {
				return err
			}
			it, err := svc.UpdateItem(cmd.Context(), sess, id, in)
			if err != nil {
				return err
			}
			return r.emit(cmd, it, func(w io.Writer) {
				fmt.Fprintf(w, "Updated item %d: %s (rate %s, GST %s%%)\n", it.ID, it.Name, money(it.SalePrice), it.GSTRate)
			})
		}),
	}
	update.Flags().String("name", "", "item name")
	update.Flags().String("sale-price", "", "default sale rate")
	update.Flags().String("purchase-price", "", "default purchase rate")
	update.Flags().String("gst", "", "GST percentage")
	update.Flags().String("sku", "", "stock keeping unit")
	update.Flags().String("hsn", "", "HSN code")
	update.Flags().String("unit", "", "unit of measure")
	update.Flags().String("category", "", "category")

	del := &cobra.Command{
		Use:   "delete <item-id>",
		Short: "Delete an item that no document uses",
		Args:  cobra.ExactArgs(1),
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			id, err := parseID(args[0], "item")
			if err != nil {
				return err
			}
			if err := svc.DeleteItem(cmd.Context(), sess, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted item %d.\n", id)
			return nil
		}),
	}

	search := &cobra.Command{
		Use:   "search <text>",
		Short: "Find items by name, SKU or HSN code",
		Args:  cobra.ExactArgs(1),
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			items, err := svc.SearchItems(cmd.Context(), sess, args[0])
			if err != nil {
				return err
			}
			return r.emit(cmd, items, func(w io.Writer) {
				fmt.Fprintf(w, "%-6s %-32s %-12s %12s %12s\n", "ID", "NAME", "SKU", "STOCK", "RATE")
				for _, it := range items {
					fmt.Fprintf(w, "%-6d %-32s %-12s %12s %12s\n", it.ID, it.Name, it.SKU, it.Stock, money(it.SalePrice))
				}
			})
		}),
	}

	cmd.AddCommand(add, list, update, del, search)
	return cmd
}

func (r *runner) accountCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "account", Short: "Manage cash and bank accounts"}

	add := &cobra.Command{
		Use:   "add <cash|bank> <name>",
		Short: "Add an account",
		Args:  cobra.ExactArgs(2),
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			opening, err := decimalFlag(cmd, "opening-balance")
			if err != nil {
				return err
			}
			in := core.CreateAccountInput{Type: core.AccountType(args[0]), Name: args[1], OpeningBalance: opening}
			in.BankName, _ = cmd.Flags().GetString("bank")
			in.AccountNumber, _ = cmd.Flags().GetString("number")
			a, err := svc.CreateAccount(cmd.Context(), sess, in)
			if err != nil {
				return err
			}
			return r.emit(cmd, a, func(w io.Writer) {
				fmt.Fprintf(w, "Added %s account %d: %s\n", a.Type, a.ID, a.Name)
			})
		}),
	}
	add.Flags().String("bank", "", "bank name, required for bank accounts")
	add.Flags().String("number", "", "account number")
	add.Flags().String("opening-balance", "", "opening balance")

	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts with balances",
		Args:  cobra.NoArgs,
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			accounts, err := svc.ListAccounts(cmd.Context(), sess)
			if err != nil {
				return err
			}
			return r.emit(cmd, accounts, func(w io.Writer) {
				fmt.Fprintf(w, "%-6s %-6s %-32s %15s\n", "ID", "TYPE", "NAME", "BALANCE")
				for _, a := range accounts {
					fmt.Fprintf(w, "%-6d %-6s %-32s %15s\n", a.ID, a.Type, a.Name, money(a.Balance))
				}
			})
		}),
	}

	cmd.AddCommand(add, list)
	return cmd
}

// ── Manual ledger adjustments ────────────────────────────────────────────────

func (r *runner) stockCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "stock", Short: "Adjust item stock outside invoices"}

	adjust := &cobra.Command{
		Use:   "adjust <item-id> <increase|decrease> <quantity>",
		Short: "Increase or decrease an item's stock",
		Args:  cobra.ExactArgs(3),
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			id, err := parseID(args[0], "item")
			if err != nil {
				return err
			}
			qty, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			it, err := svc.AdjustStock(cmd.Context(), sess, app.AdjustStockRequest{
				ItemID: id, Quantity: qty, Direction: core.StockDirection(args[1]),
			})
			if err != nil {
				return err
			}
			return r.emit(cmd, it, func(w io.Writer) {
				fmt.Fprintf(w, "%s: stock %s %s\n", it.Name, it.Stock, it.Unit)
			})
		}),
	}
	cmd.AddCommand(adjust)
	return cmd
}

func (r *runner) ledgerCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "ledger", Short: "Adjust party and account balances outside invoices"}

	party := &cobra.Command{
		Use:   "party <party-id> <increase|decrease> <amount>",
		Short: "Move a party balance",
		Args:  cobra.ExactArgs(3),
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			id, err := parseID(args[0], "party")
			if err != nil {
				return err
			}
			amt, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			res, err := svc.AdjustPartyBalance(cmd.Context(), sess, app.AdjustPartyBalanceRequest{
				PartyID: id, Amount: amt, Direction: core.BalanceDirection(args[1]),
			})
			if err != nil {
				return err
			}
			return r.emit(cmd, res, func(w io.Writer) {
				fmt.Fprintf(w, "Party %d balance: %s\n", res.ID, money(res.Balance))
			})
		}),
	}

	account := &cobra.Command{
		Use:   "account <account-id> <credit|debit> <amount>",
		Short: "Credit or debit a cash or bank account",
		Args:  cobra.ExactArgs(3),
		RunE: r.withSession(func(cmd *cobra.Command, svc app.ApplicationService, sess core.Session, args []string) error {
			id, err := parseID(args[0], "account")
			if err != nil {
				return err
			}
			amt, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			res, err := svc.AdjustAccountBalance(cmd.Context(), sess, app.AdjustAccountBalanceRequest{
				AccountID: id, Amount: amt, Direction: core.CashDirection(args[1]),
			})
			if err != nil {
				return err
			}
			return r.emit(cmd, res, func(w io.Writer) {
				fmt.Fprintf(w, "Account %d balance: %s\n", res.ID, money(res.Balance))
			})
		}),
	}

	cmd.AddCommand(party, account)
	return cmd
}
