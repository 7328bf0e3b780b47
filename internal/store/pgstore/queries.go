package pgstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"bizbiller/internal/core"
)

type queries struct {
	q querier
}

const (
	businessColumns = `id, name, phone, email, address, gstin, state, created_at`
	partyColumns    = `id, business_id, type, name, phone, email, address, gstin, state,
		opening_balance, balance, created_at`
	itemColumns = `id, business_id, name, sku, hsn, category, unit, sale_price, purchase_price,
		gst_rate, opening_stock, stock, created_at`
	accountColumns = `id, business_id, type, name, bank_name, account_number,
		opening_balance, balance, created_at`
	invoiceColumns = `id, business_id, type, number, date::text, party_id, party_name, is_gst,
		discount_percent, discount_amount, subtotal, discount, taxable_amount, cgst, sgst,
		total_tax, round_off, grand_total, paid, due, status, payment_mode, notes, source_id,
		created_at, updated_at`
	transactionColumns = `id, business_id, type, invoice_id, party_id, account_id, amount, mode,
		date::text, reference, idempotency_key, created_at`
	expenseColumns = `id, business_id, category, amount, date::text, account_id, payment_mode,
		notes, created_at`
)

// ── Scanners ──

func scanBusiness(row pgx.Row) (core.Business, error) {
	var b core.Business
	err := row.Scan(&b.ID, &b.Name, &b.Phone, &b.Email, &b.Address, &b.GSTIN, &b.State, &b.CreatedAt)
	return b, err
}

func scanParty(row pgx.Row) (core.Party, error) {
	var p core.Party
	err := row.Scan(&p.ID, &p.BusinessID, &p.Type, &p.Name, &p.Phone, &p.Email, &p.Address,
		&p.GSTIN, &p.State, &p.OpeningBalance, &p.Balance, &p.CreatedAt)
	return p, err
}

func scanItem(row pgx.Row) (core.Item, error) {
	var it core.Item
	err := row.Scan(&it.ID, &it.BusinessID, &it.Name, &it.SKU, &it.HSN, &it.Category, &it.Unit,
		&it.SalePrice, &it.PurchasePrice, &it.GSTRate, &it.OpeningStock, &it.Stock, &it.CreatedAt)
	return it, err
}

func scanAccount(row pgx.Row) (core.Account, error) {
	var a core.Account
	err := row.Scan(&a.ID, &a.BusinessID, &a.Type, &a.Name, &a.BankName, &a.AccountNumber,
		&a.OpeningBalance, &a.Balance, &a.CreatedAt)
	return a, err
}

func scanInvoice(row pgx.Row) (core.Invoice, error) {
	var inv core.Invoice
	err := row.Scan(&inv.ID, &inv.BusinessID, &inv.Type, &inv.Number, &inv.Date, &inv.PartyID,
		&inv.PartyName, &inv.IsGST, &inv.DiscountPercent, &inv.DiscountAmount, &inv.Subtotal,
		&inv.Discount, &inv.TaxableAmount, &inv.CGST, &inv.SGST, &inv.TotalTax, &inv.RoundOff,
		&inv.GrandTotal, &inv.Paid, &inv.Due, &inv.Status, &inv.PaymentMode, &inv.Notes,
		&inv.SourceID, &inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var t core.Transaction
	err := row.Scan(&t.ID, &t.BusinessID, &t.Type, &t.InvoiceID, &t.PartyID, &t.AccountID,
		&t.Amount, &t.Mode, &t.Date, &t.Reference, &t.IdempotencyKey, &t.CreatedAt)
	return t, err
}

func scanExpense(row pgx.Row) (core.Expense, error) {
	var e core.Expense
	err := row.Scan(&e.ID, &e.BusinessID, &e.Category, &e.Amount, &e.Date, &e.AccountID,
		&e.PaymentMode, &e.Notes, &e.CreatedAt)
	return e, err
}

// collect runs query and scans every row with scan.
func collect[T any](ctx context.Context, q querier, op string, scan func(pgx.Row) (T, error), query string, args ...any) ([]T, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, core.WrapPersistence(op, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, core.WrapPersistence(op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapPersistence(op, err)
	}
	return out, nil
}

// where accumulates AND conditions with numbered placeholders.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *where) dates(from, to string) {
	if from != "" {
		w.add("date >= $%d::date", from)
	}
	if to != "" {
		w.add("date <= $%d::date", to)
	}
}

func (w *where) String() string {
	return strings.Join(w.conds, " AND ")
}

// ── Businesses & settings ──

func (q queries) GetBusiness(ctx context.Context, businessID int64) (*core.Business, error) {
	b, err := scanBusiness(q.q.QueryRow(ctx, `SELECT `+businessColumns+` FROM businesses WHERE id = $1`, businessID))
	if err != nil {
		return nil, notFound(err, "business", businessID)
	}
	return &b, nil
}

func (q queries) ListBusinesses(ctx context.Context) ([]core.Business, error) {
	return collect(ctx, q.q, "list businesses", scanBusiness, `SELECT `+businessColumns+` FROM businesses ORDER BY id`)
}

func (q queries) GetSetting(ctx context.Context, businessID int64, key string) (string, bool, error) {
	var v string
	err := q.q.QueryRow(ctx, `SELECT value FROM settings WHERE business_id = $1 AND key = $2`, businessID, key).Scan(&v)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, core.WrapPersistence("get setting", err)
	}
	return v, true, nil
}

// ── Parties, items, accounts ──

func (q queries) GetParty(ctx context.Context, businessID, partyID int64) (*core.Party, error) {
	p, err := scanParty(q.q.QueryRow(ctx,
		`SELECT `+partyColumns+` FROM parties WHERE business_id = $1 AND id = $2`, businessID, partyID))
	if err != nil {
		return nil, notFound(err, "party", partyID)
	}
	return &p, nil
}

func (q queries) ListParties(ctx context.Context, businessID int64, partyType core.PartyType) ([]core.Party, error) {
	w := &where{}
	w.add("business_id = $%d", businessID)
	if partyType != "" {
		w.add("type = $%d", string(partyType))
	}
	return collect(ctx, q.q, "list parties", scanParty,
		`SELECT `+partyColumns+` FROM parties WHERE `+w.String()+` ORDER BY id`, w.args...)
}

func (q queries) GetItem(ctx context.Context, businessID, itemID int64) (*core.Item, error) {
	it, err := scanItem(q.q.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM items WHERE business_id = $1 AND id = $2`, businessID, itemID))
	if err != nil {
		return nil, notFound(err, "item", itemID)
	}
	return &it, nil
}

func (q queries) ListItems(ctx context.Context, businessID int64) ([]core.Item, error) {
	return collect(ctx, q.q, "list items", scanItem,
		`SELECT `+itemColumns+` FROM items WHERE business_id = $1 ORDER BY id`, businessID)
}

func (q queries) ItemInUse(ctx context.Context, businessID, itemID int64) (bool, error) {
	var used bool
	err := q.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM invoice_lines l JOIN invoices i ON i.id = l.invoice_id
			WHERE i.business_id = $1 AND l.item_id = $2
		)
	`, businessID, itemID).Scan(&used)
	return used, core.WrapPersistence("check item use", err)
}

func (q queries) GetAccount(ctx context.Context, businessID, accountID int64) (*core.Account, error) {
	a, err := scanAccount(q.q.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE business_id = $1 AND id = $2`, businessID, accountID))
	if err != nil {
		return nil, notFound(err, "account", accountID)
	}
	return &a, nil
}

func (q queries) ListAccounts(ctx context.Context, businessID int64) ([]core.Account, error) {
	return collect(ctx, q.q, "list accounts", scanAccount,
		`SELECT `+accountColumns+` FROM accounts WHERE business_id = $1 ORDER BY id`, businessID)
}

// ── Invoices ──

func (q queries) GetInvoice(ctx context.Context, businessID, invoiceID int64) (*core.Invoice, error) {
	inv, err := scanInvoice(q.q.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE business_id = $1 AND id = $2`, businessID, invoiceID))
	if err != nil {
		return nil, notFound(err, "invoice", invoiceID)
	}
	invoices := []core.Invoice{inv}
	if err := q.attachLines(ctx, invoices); err != nil {
		return nil, err
	}
	return &invoices[0], nil
}

func (q queries) ListInvoices(ctx context.Context, businessID int64, f core.InvoiceFilter) ([]core.Invoice, error) {
	w := &where{}
	w.add("business_id = $%d", businessID)
	if f.Type != "" {
		w.add("type = $%d", string(f.Type))
	}
	if f.PartyID != nil {
		w.add("party_id = $%d", *f.PartyID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		w.add("status = ANY($%d)", statuses)
	}
	w.dates(f.From, f.To)

	invoices, err := collect(ctx, q.q, "list invoices", scanInvoice,
		`SELECT `+invoiceColumns+` FROM invoices WHERE `+w.String()+` ORDER BY id`, w.args...)
	if err != nil {
		return nil, err
	}
	if err := q.attachLines(ctx, invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (q queries) attachLines(ctx context.Context, invoices []core.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	ids := make([]int64, len(invoices))
	index := make(map[int64]int, len(invoices))
	for i := range invoices {
		ids[i] = invoices[i].ID
		index[invoices[i].ID] = i
		invoices[i].Lines = []core.LineItem{}
	}

	rows, err := q.q.Query(ctx, `
		SELECT invoice_id, item_id, name, unit, quantity, rate, gst_rate
		FROM invoice_lines
		WHERE invoice_id = ANY($1)
		ORDER BY invoice_id, position
	`, ids)
	if err != nil {
		return core.WrapPersistence("load invoice lines", err)
	}
	defer rows.Close()

	for rows.Next() {
		var invoiceID int64
		var l core.LineItem
		if err := rows.Scan(&invoiceID, &l.ItemID, &l.Name, &l.Unit, &l.Quantity, &l.Rate, &l.GSTRate); err != nil {
			return core.WrapPersistence("load invoice lines", err)
		}
		i := index[invoiceID]
		invoices[i].Lines = append(invoices[i].Lines, l)
	}
	return core.WrapPersistence("load invoice lines", rows.Err())
}

// ── Transactions & expenses ──

func (q queries) ListTransactions(ctx context.Context, businessID int64, f core.TransactionFilter) ([]core.Transaction, error) {
	w := &where{}
	w.add("business_id = $%d", businessID)
	if f.InvoiceID != nil {
		w.add("invoice_id = $%d", *f.InvoiceID)
	}
	if f.PartyID != nil {
		w.add("party_id = $%d", *f.PartyID)
	}
	if f.AccountID != nil {
		w.add("account_id = $%d", *f.AccountID)
	}
	w.dates(f.From, f.To)
	return collect(ctx, q.q, "list transactions", scanTransaction,
		`SELECT `+transactionColumns+` FROM transactions WHERE `+w.String()+` ORDER BY id`, w.args...)
}

func (q queries) FindTransactionByKey(ctx context.Context, businessID int64, key string) (*core.Transaction, error) {
	t, err := scanTransaction(q.q.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE business_id = $1 AND idempotency_key = $2`,
		businessID, key))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, core.WrapPersistence("find transaction", err)
	}
	return &t, nil
}

func (q queries) GetExpense(ctx context.Context, businessID, expenseID int64) (*core.Expense, error) {
	e, err := scanExpense(q.q.QueryRow(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE business_id = $1 AND id = $2`, businessID, expenseID))
	if err != nil {
		return nil, notFound(err, "expense", expenseID)
	}
	return &e, nil
}

func (q queries) ListExpenses(ctx context.Context, businessID int64, r core.DateRange) ([]core.Expense, error) {
	w := &where{}
	w.add("business_id = $%d", businessID)
	w.dates(r.From, r.To)
	return collect(ctx, q.q, "list expenses", scanExpense,
		`SELECT `+expenseColumns+` FROM expenses WHERE `+w.String()+` ORDER BY id`, w.args...)
}
