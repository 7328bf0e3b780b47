package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// InvoiceFilter narrows ListInvoices. Zero values mean "any".
// From and To are inclusive YYYY-MM-DD dates.
type InvoiceFilter struct {
	Type     DocumentType
	PartyID  *int64
	From     string
	To       string
	Statuses []InvoiceStatus
}

// TransactionFilter narrows ListTransactions. Zero values mean "any".
type TransactionFilter struct {
	InvoiceID *int64
	PartyID   *int64
	AccountID *int64
	From      string
	To        string
}

// DateRange is an inclusive YYYY-MM-DD range; empty bounds are open.
type DateRange struct {
	From string
	To   string
}

// Queries is the read side of the storage contract. Every method is scoped to
// one business. Single-record getters return *NotFoundError when nothing matches.
// List methods return records ordered by id.
type Queries interface {
	GetBusiness(ctx context.Context, businessID int64) (*Business, error)
	ListBusinesses(ctx context.Context) ([]Business, error)
	GetSetting(ctx context.Context, businessID int64, key string) (value string, ok bool, err error)

	GetParty(ctx context.Context, businessID, partyID int64) (*Party, error)
	ListParties(ctx context.Context, businessID int64, partyType PartyType) ([]Party, error)

	GetItem(ctx context.Context, businessID, itemID int64) (*Item, error)
	ListItems(ctx context.Context, businessID int64) ([]Item, error)
	// ItemInUse reports whether any document line references the item.
	ItemInUse(ctx context.Context, businessID, itemID int64) (bool, error)

	GetAccount(ctx context.Context, businessID, accountID int64) (*Account, error)
	ListAccounts(ctx context.Context, businessID int64) ([]Account, error)

	GetInvoice(ctx context.Context, businessID, invoiceID int64) (*Invoice, error)
	ListInvoices(ctx context.Context, businessID int64, f InvoiceFilter) ([]Invoice, error)

	ListTransactions(ctx context.Context, businessID int64, f TransactionFilter) ([]Transaction, error)
	// FindTransactionByKey returns nil, nil when no transaction carries key.
	FindTransactionByKey(ctx context.Context, businessID int64, key string) (*Transaction, error)

	GetExpense(ctx context.Context, businessID, expenseID int64) (*Expense, error)
	ListExpenses(ctx context.Context, businessID int64, r DateRange) ([]Expense, error)
}

// Tx is one all-or-nothing storage transaction. Insert methods return the
// identifier assigned by storage. The Add* methods are atomic increments and
// return the value after the change.
type Tx interface {
	Queries

	InsertBusiness(ctx context.Context, b *Business) (int64, error)
	SetSetting(ctx context.Context, businessID int64, key, value string) error

	InsertParty(ctx context.Context, p *Party) (int64, error)
	// UpdateParty writes the profile fields. Type, opening balance and balance are kept.
	UpdateParty(ctx context.Context, p *Party) error
	DeleteParty(ctx context.Context, businessID, partyID int64) error
	InsertItem(ctx context.Context, it *Item) (int64, error)
	// UpdateItem writes the catalog fields. Opening stock and stock are kept.
	UpdateItem(ctx context.Context, it *Item) error
	DeleteItem(ctx context.Context, businessID, itemID int64) error
	InsertAccount(ctx context.Context, a *Account) (int64, error)

	InsertInvoice(ctx context.Context, inv *Invoice) (int64, error)
	UpdateInvoice(ctx context.Context, inv *Invoice) error
	DeleteInvoice(ctx context.Context, businessID, invoiceID int64) error

	InsertTransaction(ctx context.Context, t *Transaction) (int64, error)
	DeleteInvoiceTransactions(ctx context.Context, businessID, invoiceID int64) error

	InsertExpense(ctx context.Context, e *Expense) (int64, error)
	UpdateExpense(ctx context.Context, e *Expense) error
	DeleteExpense(ctx context.Context, businessID, expenseID int64) error

	AddPartyBalance(ctx context.Context, businessID, partyID int64, delta decimal.Decimal) (decimal.Decimal, error)
	// AddItemStock refuses with ErrInsufficientStock, changing nothing, when the
	// result would be negative.
	AddItemStock(ctx context.Context, businessID, itemID int64, delta decimal.Decimal) (decimal.Decimal, error)
	AddAccountBalance(ctx context.Context, businessID, accountID int64, delta decimal.Decimal) (decimal.Decimal, error)

	// NextSequence increments and returns the counter for series. The first call returns 1.
	NextSequence(ctx context.Context, businessID int64, series string) (int64, error)

	Commit(ctx context.Context) error
	// Rollback is a no-op after Commit, so callers can always defer it.
	Rollback(ctx context.Context) error
}

// Store is the persistence collaborator.
type Store interface {
	Queries
	Begin(ctx context.Context) (Tx, error)
}
