package sqlitestore

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bizbiller/internal/core"
)

func (t *tx) InsertBusiness(ctx context.Context, b *core.Business) (int64, error) {
	row := businessRow{
		Name: b.Name, Phone: b.Phone, Email: b.Email, Address: b.Address,
		GSTIN: b.GSTIN, State: b.State, CreatedAt: b.CreatedAt,
	}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, core.WrapPersistence("insert business", err)
	}
	return row.ID, nil
}

func (t *tx) SetSetting(ctx context.Context, businessID int64, key, value string) error {
	row := settingRow{BusinessID: businessID, Key: key, Value: value}
	err := t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "business_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&row).Error
	return core.WrapPersistence("set setting", err)
}

func (t *tx) InsertParty(ctx context.Context, p *core.Party) (int64, error) {
	row := partyRow{
		BusinessID: p.BusinessID, Type: string(p.Type), Name: p.Name, Phone: p.Phone,
		Email: p.Email, Address: p.Address, GSTIN: p.GSTIN, State: p.State,
		OpeningBalance: p.OpeningBalance, Balance: p.Balance, CreatedAt: p.CreatedAt,
	}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, core.WrapPersistence("insert party", err)
	}
	return row.ID, nil
}

func (t *tx) UpdateParty(ctx context.Context, p *core.Party) error {
	res := t.db.WithContext(ctx).
		Model(&partyRow{}).
		Where("business_id = ? AND id = ?", p.BusinessID, p.ID).
		Updates(map[string]any{
			"name": p.Name, "phone": p.Phone, "email": p.Email,
			"address": p.Address, "gstin": p.GSTIN, "state": p.State,
		})
	return affected(res, "update party", "party", p.ID)
}

func (t *tx) DeleteParty(ctx context.Context, businessID, partyID int64) error {
	res := t.db.WithContext(ctx).Where("business_id = ? AND id = ?", businessID, partyID).Delete(&partyRow{})
	return affected(res, "delete party", "party", partyID)
}

func (t *tx) InsertItem(ctx context.Context, it *core.Item) (int64, error) {
	row := itemRow{
		BusinessID: it.BusinessID, Name: it.Name, SKU: it.SKU, HSN: it.HSN,
		Category: it.Category, Unit: it.Unit, SalePrice: it.SalePrice,
		PurchasePrice: it.PurchasePrice, GSTRate: it.GSTRate,
		OpeningStock: it.OpeningStock, Stock: it.Stock, CreatedAt: it.CreatedAt,
	}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, core.WrapPersistence("insert item", err)
	}
	return row.ID, nil
}

func (t *tx) UpdateItem(ctx context.Context, it *core.Item) error {
	res := t.db.WithContext(ctx).
		Model(&itemRow{}).
		Where("business_id = ? AND id = ?", it.BusinessID, it.ID).
		Updates(map[string]any{
			"name": it.Name, "sku": it.SKU, "hsn": it.HSN, "category": it.Category, "unit": it.Unit,
			"sale_price": it.SalePrice, "purchase_price": it.PurchasePrice, "gst_rate": it.GSTRate,
		})
	return affected(res, "update item", "item", it.ID)
}

func (t *tx) DeleteItem(ctx context.Context, businessID, itemID int64) error {
	res := t.db.WithContext(ctx).Where("business_id = ? AND id = ?", businessID, itemID).Delete(&itemRow{})
	return affected(res, "delete item", "item", itemID)
}

func (t *tx) InsertAccount(ctx context.Context, a *core.Account) (int64, error) {
	row := accountRow{
		BusinessID: a.BusinessID, Type: string(a.Type), Name: a.Name,
		BankName: a.BankName, AccountNumber: a.AccountNumber,
		OpeningBalance: a.OpeningBalance, Balance: a.Balance, CreatedAt: a.CreatedAt,
	}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, core.WrapPersistence("insert account", err)
	}
	return row.ID, nil
}

// ── Invoices ──

func (t *tx) InsertInvoice(ctx context.Context, inv *core.Invoice) (int64, error) {
	row := invoiceToRow(inv)
	row.ID = 0
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, core.WrapPersistence("insert invoice", err)
	}
	if err := t.insertLines(ctx, row.ID, inv.Lines); err != nil {
		return 0, err
	}
	return row.ID, nil
}

func (t *tx) UpdateInvoice(ctx context.Context, inv *core.Invoice) error {
	row := invoiceToRow(inv)
	row.UpdatedAt = time.Now()
	res := t.db.WithContext(ctx).
		Model(&invoiceRow{}).
		Where("business_id = ? AND id = ?", inv.BusinessID, inv.ID).
		Select("*").Omit("id", "business_id", "created_at").
		Updates(&row)
	if res.Error != nil {
		return core.WrapPersistence("update invoice", res.Error)
	}
	if res.RowsAffected == 0 {
		return &core.NotFoundError{Entity: "invoice", ID: inv.ID}
	}
	if err := t.db.WithContext(ctx).Where("invoice_id = ?", inv.ID).Delete(&invoiceLineRow{}).Error; err != nil {
		return core.WrapPersistence("replace invoice lines", err)
	}
	return t.insertLines(ctx, inv.ID, inv.Lines)
}

func (t *tx) insertLines(ctx context.Context, invoiceID int64, lines []core.LineItem) error {
	if len(lines) == 0 {
		return nil
	}
	rows := linesToRows(invoiceID, lines)
	return core.WrapPersistence("insert invoice lines", t.db.WithContext(ctx).Create(&rows).Error)
}

func (t *tx) DeleteInvoice(ctx context.Context, businessID, invoiceID int64) error {
	if _, err := t.GetInvoice(ctx, businessID, invoiceID); err != nil {
		return err
	}
	if err := t.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).Delete(&invoiceLineRow{}).Error; err != nil {
		return core.WrapPersistence("delete invoice lines", err)
	}
	err := t.db.WithContext(ctx).Where("business_id = ? AND id = ?", businessID, invoiceID).Delete(&invoiceRow{}).Error
	return core.WrapPersistence("delete invoice", err)
}

// ── Transactions & expenses ──

func (t *tx) InsertTransaction(ctx context.Context, tr *core.Transaction) (int64, error) {
	row := transactionRow{
		BusinessID: tr.BusinessID, Type: string(tr.Type), InvoiceID: tr.InvoiceID,
		PartyID: tr.PartyID, AccountID: tr.AccountID, Amount: tr.Amount, Mode: tr.Mode,
		Date: tr.Date, Reference: tr.Reference, IdempotencyKey: tr.IdempotencyKey,
		CreatedAt: tr.CreatedAt,
	}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, core.WrapPersistence("insert transaction", err)
	}
	return row.ID, nil
}

func (t *tx) DeleteInvoiceTransactions(ctx context.Context, businessID, invoiceID int64) error {
	err := t.db.WithContext(ctx).
		Where("business_id = ? AND invoice_id = ?", businessID, invoiceID).
		Delete(&transactionRow{}).Error
	return core.WrapPersistence("delete invoice transactions", err)
}

func (t *tx) InsertExpense(ctx context.Context, e *core.Expense) (int64, error) {
	row := expenseRow{
		BusinessID: e.BusinessID, Category: e.Category, Amount: e.Amount, Date: e.Date,
		AccountID: e.AccountID, PaymentMode: e.PaymentMode, Notes: e.Notes, CreatedAt: e.CreatedAt,
	}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, core.WrapPersistence("insert expense", err)
	}
	return row.ID, nil
}

func (t *tx) UpdateExpense(ctx context.Context, e *core.Expense) error {
	res := t.db.WithContext(ctx).
		Model(&expenseRow{}).
		Where("business_id = ? AND id = ?", e.BusinessID, e.ID).
		Updates(map[string]any{
			"category": e.Category, "amount": e.Amount, "date": e.Date, "account_id": e.AccountID,
			"payment_mode": e.PaymentMode, "notes": e.Notes,
		})
	return affected(res, "update expense", "expense", e.ID)
}

func (t *tx) DeleteExpense(ctx context.Context, businessID, expenseID int64) error {
	res := t.db.WithContext(ctx).Where("business_id = ? AND id = ?", businessID, expenseID).Delete(&expenseRow{})
	if res.Error != nil {
		return core.WrapPersistence("delete expense", res.Error)
	}
	if res.RowsAffected == 0 {
		return &core.NotFoundError{Entity: "expense", ID: expenseID}
	}
	return nil
}

// ── Balance increments ──
//
// SQLite has no exact decimal arithmetic, so each increment reads, adds in Go
// and writes back. The transaction was opened with BEGIN IMMEDIATE and holds
// the write lock, so nothing can interleave between the read and the write.

func (t *tx) AddPartyBalance(ctx context.Context, businessID, partyID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	p, err := t.GetParty(ctx, businessID, partyID)
	if err != nil {
		return decimal.Zero, err
	}
	next := p.Balance.Add(delta)
	if err := t.setColumn(ctx, &partyRow{}, "balance", businessID, partyID, next); err != nil {
		return decimal.Zero, err
	}
	return next, nil
}

func (t *tx) AddItemStock(ctx context.Context, businessID, itemID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	it, err := t.GetItem(ctx, businessID, itemID)
	if err != nil {
		return decimal.Zero, err
	}
	next := it.Stock.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, core.ErrInsufficientStock
	}
	if err := t.setColumn(ctx, &itemRow{}, "stock", businessID, itemID, next); err != nil {
		return decimal.Zero, err
	}
	return next, nil
}

func (t *tx) AddAccountBalance(ctx context.Context, businessID, accountID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	a, err := t.GetAccount(ctx, businessID, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	next := a.Balance.Add(delta)
	if err := t.setColumn(ctx, &accountRow{}, "balance", businessID, accountID, next); err != nil {
		return decimal.Zero, err
	}
	return next, nil
}

func (t *tx) setColumn(ctx context.Context, model any, column string, businessID, id int64, v decimal.Decimal) error {
	err := t.db.WithContext(ctx).Model(model).
		Where("business_id = ? AND id = ?", businessID, id).
		Update(column, v).Error
	return core.WrapPersistence(fmt.Sprintf("update %s", column), err)
}

// NextSequence bumps the counter with a single upsert. The first call for a
// series inserts 1.
func (t *tx) NextSequence(ctx context.Context, businessID int64, series string) (int64, error) {
	var n int64
	err := t.db.WithContext(ctx).Raw(`
		INSERT INTO sequences (business_id, series, value) VALUES (?, ?, 1)
		ON CONFLICT (business_id, series) DO UPDATE SET value = value + 1
		RETURNING value
	`, businessID, series).Scan(&n).Error
	if err != nil {
		return 0, core.WrapPersistence("next sequence", err)
	}
	if n == 0 {
		return 0, core.WrapPersistence("next sequence", gorm.ErrInvalidValue)
	}
	return n, nil
}
