package app

import (
	"context"
	"io"

	"bizbiller/internal/core"
)

// ApplicationService is the single interface the CLI calls. It decouples
// presentation from business logic: implementations contain no printing and
// no display logic of any kind.
type ApplicationService interface {
	// ── Businesses and settings ──

	CreateBusiness(ctx context.Context, in core.CreateBusinessInput) (*core.Business, error)
	ListBusinesses(ctx context.Context) ([]core.Business, error)
	GetSetting(ctx context.Context, sess core.Session, key string) (string, error)
	SetSetting(ctx context.Context, sess core.Session, key, value string) error

	// ── Master data ──

	CreateParty(ctx context.Context, sess core.Session, in core.CreatePartyInput) (*core.Party, error)
	UpdateParty(ctx context.Context, sess core.Session, partyID int64, in core.UpdatePartyInput) (*core.Party, error)
	DeleteParty(ctx context.Context, sess core.Session, partyID int64) error
	ListParties(ctx context.Context, sess core.Session, partyType core.PartyType) ([]core.Party, error)
	SearchParties(ctx context.Context, sess core.Session, query string) ([]core.Party, error)
	// PartyStatement returns the party's movements in the range with running balances.
	PartyStatement(ctx context.Context, sess core.Session, partyID int64, r core.DateRange) (*core.PartyStatement, error)

	CreateItem(ctx context.Context, sess core.Session, in core.CreateItemInput) (*core.Item, error)
	UpdateItem(ctx context.Context, sess core.Session, itemID int64, in core.UpdateItemInput) (*core.Item, error)
	DeleteItem(ctx context.Context, sess core.Session, itemID int64) error
	ListItems(ctx context.Context, sess core.Session) ([]core.Item, error)
	SearchItems(ctx context.Context, sess core.Session, query string) ([]core.Item, error)

	CreateAccount(ctx context.Context, sess core.Session, in core.CreateAccountInput) (*core.Account, error)
	ListAccounts(ctx context.Context, sess core.Session) ([]core.Account, error)

	// ── Manual ledger adjustments ──

	AdjustStock(ctx context.Context, sess core.Session, req AdjustStockRequest) (*core.Item, error)
	AdjustPartyBalance(ctx context.Context, sess core.Session, req AdjustPartyBalanceRequest) (*BalanceResult, error)
	AdjustAccountBalance(ctx context.Context, sess core.Session, req AdjustAccountBalanceRequest) (*BalanceResult, error)

	// ── Invoices ──

	CreateInvoice(ctx context.Context, sess core.Session, in core.CreateInvoiceInput) (*InvoiceResult, error)
	UpdateInvoice(ctx context.Context, sess core.Session, invoiceID int64, in core.UpdateInvoiceInput) (*InvoiceResult, error)
	DeleteInvoice(ctx context.Context, sess core.Session, invoiceID int64) error
	RecordPayment(ctx context.Context, sess core.Session, invoiceID int64, in core.PaymentInput) (*InvoiceResult, error)
	// ConvertEstimate creates a sale from an estimate. date may be empty for today.
	ConvertEstimate(ctx context.Context, sess core.Session, estimateID int64, date string) (*InvoiceResult, error)
	GetInvoice(ctx context.Context, sess core.Session, invoiceID int64) (*InvoiceResult, error)
	ListInvoices(ctx context.Context, sess core.Session, f core.InvoiceFilter) ([]core.Invoice, error)
	// PendingInvoices lists unpaid and partially paid sales and purchases.
	PendingInvoices(ctx context.Context, sess core.Session, docType core.DocumentType) ([]core.Invoice, error)

	// ── Expenses ──

	AddExpense(ctx context.Context, sess core.Session, in core.AddExpenseInput) (*core.Expense, error)
	UpdateExpense(ctx context.Context, sess core.Session, expenseID int64, in core.UpdateExpenseInput) (*core.Expense, error)
	DeleteExpense(ctx context.Context, sess core.Session, expenseID int64) error
	ListExpenses(ctx context.Context, sess core.Session, r core.DateRange) ([]core.Expense, error)

	// ── Reports ──

	// Report runs the report named by req.Kind. Exactly one field of the result is set.
	Report(ctx context.Context, sess core.Session, req ReportRequest) (*ReportResult, error)
	// ExportReport writes the report as an Excel workbook. Only kinds listed in
	// ExportableReports are supported.
	ExportReport(ctx context.Context, sess core.Session, req ReportRequest, w io.Writer) error
}
