package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"bizbiller/internal/core"
)

func (t *tx) InsertBusiness(ctx context.Context, b *core.Business) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `
		INSERT INTO businesses (name, phone, email, address, gstin, state)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, b.Name, b.Phone, b.Email, b.Address, b.GSTIN, b.State).Scan(&id)
	return id, core.WrapPersistence("insert business", err)
}

func (t *tx) SetSetting(ctx context.Context, businessID int64, key, value string) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO settings (business_id, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (business_id, key) DO UPDATE SET value = EXCLUDED.value
	`, businessID, key, value)
	return core.WrapPersistence("set setting", err)
}

func (t *tx) InsertParty(ctx context.Context, p *core.Party) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `
		INSERT INTO parties (business_id, type, name, phone, email, address, gstin, state, opening_balance, balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, p.BusinessID, string(p.Type), p.Name, p.Phone, p.Email, p.Address, p.GSTIN, p.State,
		p.OpeningBalance, p.Balance).Scan(&id)
	return id, core.WrapPersistence("insert party", err)
}

func (t *tx) UpdateParty(ctx context.Context, p *core.Party) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE parties SET name = $3, phone = $4, email = $5, address = $6, gstin = $7, state = $8
		WHERE business_id = $1 AND id = $2
	`, p.BusinessID, p.ID, p.Name, p.Phone, p.Email, p.Address, p.GSTIN, p.State)
	return affected(tag, err, "update party", "party", p.ID)
}

func (t *tx) DeleteParty(ctx context.Context, businessID, partyID int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM parties WHERE business_id = $1 AND id = $2`, businessID, partyID)
	return affected(tag, err, "delete party", "party", partyID)
}

func (t *tx) InsertItem(ctx context.Context, it *core.Item) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `
		INSERT INTO items (business_id, name, sku, hsn, category, unit, sale_price, purchase_price,
		                   gst_rate, opening_stock, stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, it.BusinessID, it.Name, it.SKU, it.HSN, it.Category, it.Unit, it.SalePrice, it.PurchasePrice,
		it.GSTRate, it.OpeningStock, it.Stock).Scan(&id)
	return id, core.WrapPersistence("insert item", err)
}

func (t *tx) UpdateItem(ctx context.Context, it *core.Item) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE items SET name = $3, sku = $4, hsn = $5, category = $6, unit = $7,
			sale_price = $8, purchase_price = $9, gst_rate = $10
		WHERE business_id = $1 AND id = $2
	`, it.BusinessID, it.ID, it.Name, it.SKU, it.HSN, it.Category, it.Unit,
		it.SalePrice, it.PurchasePrice, it.GSTRate)
	return affected(tag, err, "update item", "item", it.ID)
}

func (t *tx) DeleteItem(ctx context.Context, businessID, itemID int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM items WHERE business_id = $1 AND id = $2`, businessID, itemID)
	return affected(tag, err, "delete item", "item", itemID)
}

func (t *tx) InsertAccount(ctx context.Context, a *core.Account) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `
		INSERT INTO accounts (business_id, type, name, bank_name, account_number, opening_balance, balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, a.BusinessID, string(a.Type), a.Name, a.BankName, a.AccountNumber, a.OpeningBalance, a.Balance).Scan(&id)
	return id, core.WrapPersistence("insert account", err)
}

// ── Invoices ──

func (t *tx) InsertInvoice(ctx context.Context, inv *core.Invoice) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `
		INSERT INTO invoices (business_id, type, number, date, party_id, party_name, is_gst,
			discount_percent, discount_amount, subtotal, discount, taxable_amount, cgst, sgst,
			total_tax, round_off, grand_total, paid, due, status, payment_mode, notes, source_id)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23)
		RETURNING id
	`, inv.BusinessID, string(inv.Type), inv.Number, inv.Date, inv.PartyID, inv.PartyName, inv.IsGST,
		inv.DiscountPercent, inv.DiscountAmount, inv.Subtotal, inv.Discount, inv.TaxableAmount,
		inv.CGST, inv.SGST, inv.TotalTax, inv.RoundOff, inv.GrandTotal, inv.Paid, inv.Due,
		string(inv.Status), inv.PaymentMode, inv.Notes, inv.SourceID).Scan(&id)
	if err != nil {
		return 0, core.WrapPersistence("insert invoice", err)
	}
	if err := t.insertLines(ctx, id, inv.Lines); err != nil {
		return 0, err
	}
	return id, nil
}

func (t *tx) UpdateInvoice(ctx context.Context, inv *core.Invoice) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE invoices SET
			date = $3::date, party_id = $4, party_name = $5, is_gst = $6,
			discount_percent = $7, discount_amount = $8, subtotal = $9, discount = $10,
			taxable_amount = $11, cgst = $12, sgst = $13, total_tax = $14, round_off = $15,
			grand_total = $16, paid = $17, due = $18, status = $19, payment_mode = $20,
			notes = $21, updated_at = now()
		WHERE business_id = $1 AND id = $2
	`, inv.BusinessID, inv.ID, inv.Date, inv.PartyID, inv.PartyName, inv.IsGST,
		inv.DiscountPercent, inv.DiscountAmount, inv.Subtotal, inv.Discount, inv.TaxableAmount,
		inv.CGST, inv.SGST, inv.TotalTax, inv.RoundOff, inv.GrandTotal, inv.Paid, inv.Due,
		string(inv.Status), inv.PaymentMode, inv.Notes)
	if err != nil {
		return core.WrapPersistence("update invoice", err)
	}
	if tag.RowsAffected() == 0 {
		return &core.NotFoundError{Entity: "invoice", ID: inv.ID}
	}
	if _, err := t.q.Exec(ctx, `DELETE FROM invoice_lines WHERE invoice_id = $1`, inv.ID); err != nil {
		return core.WrapPersistence("replace invoice lines", err)
	}
	return t.insertLines(ctx, inv.ID, inv.Lines)
}

func (t *tx) insertLines(ctx context.Context, invoiceID int64, lines []core.LineItem) error {
	if len(lines) == 0 {
		return nil
	}
	for i, l := range lines {
		if _, err := t.q.Exec(ctx, `
			INSERT INTO invoice_lines (invoice_id, position, item_id, name, unit, quantity, rate, gst_rate)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, invoiceID, i, l.ItemID, l.Name, l.Unit, l.Quantity, l.Rate, l.GSTRate); err != nil {
			return core.WrapPersistence("insert invoice lines", err)
		}
	}
	return nil
}

func (t *tx) DeleteInvoice(ctx context.Context, businessID, invoiceID int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM invoices WHERE business_id = $1 AND id = $2`, businessID, invoiceID)
	if err != nil {
		return core.WrapPersistence("delete invoice", err)
	}
	if tag.RowsAffected() == 0 {
		return &core.NotFoundError{Entity: "invoice", ID: invoiceID}
	}
	return nil
}

// ── Transactions & expenses ──

func (t *tx) InsertTransaction(ctx context.Context, tr *core.Transaction) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `
		INSERT INTO transactions (business_id, type, invoice_id, party_id, account_id, amount, mode,
		                          date, reference, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date, $9, $10)
		RETURNING id
	`, tr.BusinessID, string(tr.Type), tr.InvoiceID, tr.PartyID, tr.AccountID, tr.Amount, tr.Mode,
		tr.Date, tr.Reference, tr.IdempotencyKey).Scan(&id)
	return id, core.WrapPersistence("insert transaction", err)
}

func (t *tx) DeleteInvoiceTransactions(ctx context.Context, businessID, invoiceID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM transactions WHERE business_id = $1 AND invoice_id = $2`, businessID, invoiceID)
	return core.WrapPersistence("delete invoice transactions", err)
}

func (t *tx) InsertExpense(ctx context.Context, e *core.Expense) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `
		INSERT INTO expenses (business_id, category, amount, date, account_id, payment_mode, notes)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7)
		RETURNING id
	`, e.BusinessID, e.Category, e.Amount, e.Date, e.AccountID, e.PaymentMode, e.Notes).Scan(&id)
	return id, core.WrapPersistence("insert expense", err)
}

func (t *tx) UpdateExpense(ctx context.Context, e *core.Expense) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE expenses SET category = $3, amount = $4, date = $5::date, account_id = $6,
			payment_mode = $7, notes = $8
		WHERE business_id = $1 AND id = $2
	`, e.BusinessID, e.ID, e.Category, e.Amount, e.Date, e.AccountID, e.PaymentMode, e.Notes)
	return affected(tag, err, "update expense", "expense", e.ID)
}

func (t *tx) DeleteExpense(ctx context.Context, businessID, expenseID int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM expenses WHERE business_id = $1 AND id = $2`, businessID, expenseID)
	if err != nil {
		return core.WrapPersistence("delete expense", err)
	}
	if tag.RowsAffected() == 0 {
		return &core.NotFoundError{Entity: "expense", ID: expenseID}
	}
	return nil
}

// ── Balance increments ──

func (t *tx) AddPartyBalance(ctx context.Context, businessID, partyID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := t.q.QueryRow(ctx, `
		UPDATE parties SET balance = balance + $3
		WHERE business_id = $1 AND id = $2
		RETURNING balance
	`, businessID, partyID, delta).Scan(&balance)
	if err != nil {
		return decimal.Zero, notFound(err, "party", partyID)
	}
	return balance, nil
}

// AddItemStock applies delta only while the result stays non-negative. When
// no row changes it distinguishes a missing item from a refused decrease.
func (t *tx) AddItemStock(ctx context.Context, businessID, itemID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var stock decimal.Decimal
	err := t.q.QueryRow(ctx, `
		UPDATE items SET stock = stock + $3
		WHERE business_id = $1 AND id = $2 AND stock + $3 >= 0
		RETURNING stock
	`, businessID, itemID, delta).Scan(&stock)
	if err == nil {
		return stock, nil
	}
	if err != pgx.ErrNoRows {
		return decimal.Zero, core.WrapPersistence("update stock", err)
	}
	if _, err := t.GetItem(ctx, businessID, itemID); err != nil {
		return decimal.Zero, err
	}
	return decimal.Zero, core.ErrInsufficientStock
}

func (t *tx) AddAccountBalance(ctx context.Context, businessID, accountID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := t.q.QueryRow(ctx, `
		UPDATE accounts SET balance = balance + $3
		WHERE business_id = $1 AND id = $2
		RETURNING balance
	`, businessID, accountID, delta).Scan(&balance)
	if err != nil {
		return decimal.Zero, notFound(err, "account", accountID)
	}
	return balance, nil
}

func (t *tx) NextSequence(ctx context.Context, businessID int64, series string) (int64, error) {
	var n int64
	err := t.q.QueryRow(ctx, `
		INSERT INTO sequences (business_id, series, value) VALUES ($1, $2, 1)
		ON CONFLICT (business_id, series) DO UPDATE SET value = sequences.value + 1
		RETURNING value
	`, businessID, series).Scan(&n)
	return n, core.WrapPersistence("next sequence", err)
}
