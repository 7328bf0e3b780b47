package sqlitestore

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"bizbiller/internal/core"
)

// queries runs the read side against either the root handle or an open
// transaction.
type queries struct {
	db *gorm.DB
}

func (q queries) first(ctx context.Context, dest any, entity string, id int64, where string, args ...any) error {
	err := q.db.WithContext(ctx).Where(where, args...).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &core.NotFoundError{Entity: entity, ID: id}
	}
	return core.WrapPersistence("get "+entity, err)
}

// ── Businesses & settings ──

func (q queries) GetBusiness(ctx context.Context, businessID int64) (*core.Business, error) {
	var row businessRow
	if err := q.first(ctx, &row, "business", businessID, "id = ?", businessID); err != nil {
		return nil, err
	}
	b := businessFromRow(row)
	return &b, nil
}

func (q queries) ListBusinesses(ctx context.Context) ([]core.Business, error) {
	var rows []businessRow
	if err := q.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, core.WrapPersistence("list businesses", err)
	}
	out := make([]core.Business, len(rows))
	for i, r := range rows {
		out[i] = businessFromRow(r)
	}
	return out, nil
}

func (q queries) GetSetting(ctx context.Context, businessID int64, key string) (string, bool, error) {
	var rows []settingRow
	err := q.db.WithContext(ctx).
		Where("business_id = ? AND `key` = ?", businessID, key).
		Limit(1).Find(&rows).Error
	if err != nil {
		return "", false, core.WrapPersistence("get setting", err)
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	return rows[0].Value, true, nil
}

// ── Parties, items, accounts ──

func (q queries) GetParty(ctx context.Context, businessID, partyID int64) (*core.Party, error) {
	var row partyRow
	if err := q.first(ctx, &row, "party", partyID, "business_id = ? AND id = ?", businessID, partyID); err != nil {
		return nil, err
	}
	p := partyFromRow(row)
	return &p, nil
}

func (q queries) ListParties(ctx context.Context, businessID int64, partyType core.PartyType) ([]core.Party, error) {
	tx := q.db.WithContext(ctx).Where("business_id = ?", businessID)
	if partyType != "" {
		tx = tx.Where("type = ?", string(partyType))
	}
	var rows []partyRow
	if err := tx.Order("id").Find(&rows).Error; err != nil {
		return nil, core.WrapPersistence("list parties", err)
	}
	out := make([]core.Party, len(rows))
	for i, r := range rows {
		out[i] = partyFromRow(r)
	}
	return out, nil
}

func (q queries) GetItem(ctx context.Context, businessID, itemID int64) (*core.Item, error) {
	var row itemRow
	if err := q.first(ctx, &row, "item", itemID, "business_id = ? AND id = ?", businessID, itemID); err != nil {
		return nil, err
	}
	it := itemFromRow(row)
	return &it, nil
}

func (q queries) ItemInUse(ctx context.Context, businessID, itemID int64) (bool, error) {
	var n int64
	err := q.db.WithContext(ctx).
		Model(&invoiceLineRow{}).
		Joins("JOIN invoices ON invoices.id = invoice_lines.invoice_id").
		Where("invoices.business_id = ? AND invoice_lines.item_id = ?", businessID, itemID).
		Count(&n).Error
	if err != nil {
		return false, core.WrapPersistence("check item use", err)
	}
	return n > 0, nil
}

func (q queries) ListItems(ctx context.Context, businessID int64) ([]core.Item, error) {
	var rows []itemRow
	if err := q.db.WithContext(ctx).Where("business_id = ?", businessID).Order("id").Find(&rows).Error; err != nil {
		return nil, core.WrapPersistence("list items", err)
	}
	out := make([]core.Item, len(rows))
	for i, r := range rows {
		out[i] = itemFromRow(r)
	}
	return out, nil
}

func (q queries) GetAccount(ctx context.Context, businessID, accountID int64) (*core.Account, error) {
	var row accountRow
	if err := q.first(ctx, &row, "account", accountID, "business_id = ? AND id = ?", businessID, accountID); err != nil {
		return nil, err
	}
	a := accountFromRow(row)
	return &a, nil
}

func (q queries) ListAccounts(ctx context.Context, businessID int64) ([]core.Account, error) {
	var rows []accountRow
	if err := q.db.WithContext(ctx).Where("business_id = ?", businessID).Order("id").Find(&rows).Error; err != nil {
		return nil, core.WrapPersistence("list accounts", err)
	}
	out := make([]core.Account, len(rows))
	for i, r := range rows {
		out[i] = accountFromRow(r)
	}
	return out, nil
}

// ── Invoices ──

func (q queries) GetInvoice(ctx context.Context, businessID, invoiceID int64) (*core.Invoice, error) {
	var row invoiceRow
	if err := q.first(ctx, &row, "invoice", invoiceID, "business_id = ? AND id = ?", businessID, invoiceID); err != nil {
		return nil, err
	}
	lines, err := q.loadLines(ctx, []int64{row.ID})
	if err != nil {
		return nil, err
	}
	inv := invoiceFromRow(row, lines[row.ID])
	return &inv, nil
}

func (q queries) ListInvoices(ctx context.Context, businessID int64, f core.InvoiceFilter) ([]core.Invoice, error) {
	tx := q.db.WithContext(ctx).Where("business_id = ?", businessID)
	if f.Type != "" {
		tx = tx.Where("type = ?", string(f.Type))
	}
	if f.PartyID != nil {
		tx = tx.Where("party_id = ?", *f.PartyID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		tx = tx.Where("status IN ?", statuses)
	}
	tx = dateBounds(tx, f.From, f.To)

	var rows []invoiceRow
	if err := tx.Order("id").Find(&rows).Error; err != nil {
		return nil, core.WrapPersistence("list invoices", err)
	}
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	lines, err := q.loadLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]core.Invoice, len(rows))
	for i, r := range rows {
		out[i] = invoiceFromRow(r, lines[r.ID])
	}
	return out, nil
}

func (q queries) loadLines(ctx context.Context, invoiceIDs []int64) (map[int64][]invoiceLineRow, error) {
	byInvoice := make(map[int64][]invoiceLineRow, len(invoiceIDs))
	if len(invoiceIDs) == 0 {
		return byInvoice, nil
	}
	var rows []invoiceLineRow
	err := q.db.WithContext(ctx).
		Where("invoice_id IN ?", invoiceIDs).
		Order("invoice_id, position").
		Find(&rows).Error
	if err != nil {
		return nil, core.WrapPersistence("load invoice lines", err)
	}
	for _, r := range rows {
		byInvoice[r.InvoiceID] = append(byInvoice[r.InvoiceID], r)
	}
	return byInvoice, nil
}

// ── Transactions & expenses ──

func (q queries) ListTransactions(ctx context.Context, businessID int64, f core.TransactionFilter) ([]core.Transaction, error) {
	tx := q.db.WithContext(ctx).Where("business_id = ?", businessID)
	if f.InvoiceID != nil {
		tx = tx.Where("invoice_id = ?", *f.InvoiceID)
	}
	if f.PartyID != nil {
		tx = tx.Where("party_id = ?", *f.PartyID)
	}
	if f.AccountID != nil {
		tx = tx.Where("account_id = ?", *f.AccountID)
	}
	tx = dateBounds(tx, f.From, f.To)

	var rows []transactionRow
	if err := tx.Order("id").Find(&rows).Error; err != nil {
		return nil, core.WrapPersistence("list transactions", err)
	}
	out := make([]core.Transaction, len(rows))
	for i, r := range rows {
		out[i] = transactionFromRow(r)
	}
	return out, nil
}

func (q queries) FindTransactionByKey(ctx context.Context, businessID int64, key string) (*core.Transaction, error) {
	var rows []transactionRow
	err := q.db.WithContext(ctx).
		Where("business_id = ? AND idempotency_key = ?", businessID, key).
		Limit(1).Find(&rows).Error
	if err != nil {
		return nil, core.WrapPersistence("find transaction", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	t := transactionFromRow(rows[0])
	return &t, nil
}

func (q queries) GetExpense(ctx context.Context, businessID, expenseID int64) (*core.Expense, error) {
	var row expenseRow
	if err := q.first(ctx, &row, "expense", expenseID, "business_id = ? AND id = ?", businessID, expenseID); err != nil {
		return nil, err
	}
	e := expenseFromRow(row)
	return &e, nil
}

func (q queries) ListExpenses(ctx context.Context, businessID int64, r core.DateRange) ([]core.Expense, error) {
	tx := dateBounds(q.db.WithContext(ctx).Where("business_id = ?", businessID), r.From, r.To)
	var rows []expenseRow
	if err := tx.Order("id").Find(&rows).Error; err != nil {
		return nil, core.WrapPersistence("list expenses", err)
	}
	out := make([]core.Expense, len(rows))
	for i, row := range rows {
		out[i] = expenseFromRow(row)
	}
	return out, nil
}

// dateBounds filters on the TEXT date column; YYYY-MM-DD sorts lexically.
func dateBounds(tx *gorm.DB, from, to string) *gorm.DB {
	if from != "" {
		tx = tx.Where("date >= ?", from)
	}
	if to != "" {
		tx = tx.Where("date <= ?", to)
	}
	return tx
}
