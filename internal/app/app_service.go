package app

import (
	"context"
	"fmt"
	"io"

	"bizbiller/internal/core"
	"bizbiller/internal/export"
)

type appService struct {
	businesses core.BusinessService
	settings   core.SettingsService
	parties    core.PartyService
	items      core.ItemService
	accounts   core.AccountService
	stock      core.StockLedger
	partyLedg  core.PartyLedger
	cashLedg   core.AccountLedger
	invoices   core.InvoiceService
	expenses   core.ExpenseService
	reports    core.ReportingService
}

// Services bundles the core services an ApplicationService delegates to.
type Services struct {
	Businesses    core.BusinessService
	Settings      core.SettingsService
	Parties       core.PartyService
	Items         core.ItemService
	Accounts      core.AccountService
	StockLedger   core.StockLedger
	PartyLedger   core.PartyLedger
	AccountLedger core.AccountLedger
	Invoices      core.InvoiceService
	Expenses      core.ExpenseService
	Reports       core.ReportingService
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(s Services) ApplicationService {
	return &appService{
		businesses: s.Businesses,
		settings:   s.Settings,
		parties:    s.Parties,
		items:      s.Items,
		accounts:   s.Accounts,
		stock:      s.StockLedger,
		partyLedg:  s.PartyLedger,
		cashLedg:   s.AccountLedger,
		invoices:   s.Invoices,
		expenses:   s.Expenses,
		reports:    s.Reports,
	}
}

func (s *appService) CreateBusiness(ctx context.Context, in core.CreateBusinessInput) (*core.Business, error) {
	return s.businesses.Create(ctx, in)
}

func (s *appService) ListBusinesses(ctx context.Context) ([]core.Business, error) {
	return s.businesses.List(ctx)
}

func (s *appService) GetSetting(ctx context.Context, sess core.Session, key string) (string, error) {
	return s.settings.Get(ctx, sess, key)
}

func (s *appService) SetSetting(ctx context.Context, sess core.Session, key, value string) error {
	return s.settings.Set(ctx, sess, key, value)
}

func (s *appService) CreateParty(ctx context.Context, sess core.Session, in core.CreatePartyInput) (*core.Party, error) {
	return s.parties.Create(ctx, sess, in)
}

func (s *appService) UpdateParty(ctx context.Context, sess core.Session, partyID int64, in core.UpdatePartyInput) (*core.Party, error) {
	return s.parties.Update(ctx, sess, partyID, in)
}

func (s *appService) DeleteParty(ctx context.Context, sess core.Session, partyID int64) error {
	return s.parties.Delete(ctx, sess, partyID)
}

func (s *appService) SearchParties(ctx context.Context, sess core.Session, query string) ([]core.Party, error) {
	return s.parties.Search(ctx, sess, query)
}

func (s *appService) ListParties(ctx context.Context, sess core.Session, partyType core.PartyType) ([]core.Party, error) {
	return s.parties.List(ctx, sess, partyType)
}

func (s *appService) PartyStatement(ctx context.Context, sess core.Session, partyID int64, r core.DateRange) (*core.PartyStatement, error) {
	return s.parties.Statement(ctx, sess, partyID, r)
}

func (s *appService) CreateItem(ctx context.Context, sess core.Session, in core.CreateItemInput) (*core.Item, error) {
	return s.items.Create(ctx, sess, in)
}

func (s *appService) UpdateItem(ctx context.Context, sess core.Session, itemID int64, in core.UpdateItemInput) (*core.Item, error) {
	return s.items.Update(ctx, sess, itemID, in)
}

func (s *appService) DeleteItem(ctx context.Context, sess core.Session, itemID int64) error {
	return s.items.Delete(ctx, sess, itemID)
}

func (s *appService) SearchItems(ctx context.Context, sess core.Session, query string) ([]core.Item, error) {
	return s.items.Search(ctx, sess, query)
}

func (s *appService) ListItems(ctx context.Context, sess core.Session) ([]core.Item, error) {
	return s.items.List(ctx, sess)
}

func (s *appService) CreateAccount(ctx context.Context, sess core.Session, in core.CreateAccountInput) (*core.Account, error) {
	return s.accounts.Create(ctx, sess, in)
}

func (s *appService) ListAccounts(ctx context.Context, sess core.Session) ([]core.Account, error) {
	return s.accounts.List(ctx, sess)
}

func (s *appService) AdjustStock(ctx context.Context, sess core.Session, req AdjustStockRequest) (*core.Item, error) {
	return s.stock.AdjustStock(ctx, sess, req.ItemID, req.Quantity, req.Direction)
}

func (s *appService) AdjustPartyBalance(ctx context.Context, sess core.Session, req AdjustPartyBalanceRequest) (*BalanceResult, error) {
	bal, err := s.partyLedg.AdjustBalance(ctx, sess, req.PartyID, req.Amount, req.Direction)
	if err != nil {
		return nil, err
	}
	return &BalanceResult{ID: req.PartyID, Balance: bal}, nil
}

func (s *appService) AdjustAccountBalance(ctx context.Context, sess core.Session, req AdjustAccountBalanceRequest) (*BalanceResult, error) {
	bal, err := s.cashLedg.AdjustBalance(ctx, sess, req.AccountID, req.Amount, req.Direction)
	if err != nil {
		return nil, err
	}
	return &BalanceResult{ID: req.AccountID, Balance: bal}, nil
}

// ── Invoices ─────────────────────────────────────────────────────────────────

func (s *appService) CreateInvoice(ctx context.Context, sess core.Session, in core.CreateInvoiceInput) (*InvoiceResult, error) {
	inv, err := s.invoices.Create(ctx, sess, in)
	if err != nil {
		return nil, err
	}
	return s.withPayments(ctx, sess, inv)
}

func (s *appService) UpdateInvoice(ctx context.Context, sess core.Session, invoiceID int64, in core.UpdateInvoiceInput) (*InvoiceResult, error) {
	inv, err := s.invoices.Update(ctx, sess, invoiceID, in)
	if err != nil {
		return nil, err
	}
	return s.withPayments(ctx, sess, inv)
}

func (s *appService) DeleteInvoice(ctx context.Context, sess core.Session, invoiceID int64) error {
	return s.invoices.Delete(ctx, sess, invoiceID)
}

func (s *appService) RecordPayment(ctx context.Context, sess core.Session, invoiceID int64, in core.PaymentInput) (*InvoiceResult, error) {
	inv, err := s.invoices.RecordPayment(ctx, sess, invoiceID, in)
	if err != nil {
		return nil, err
	}
	return s.withPayments(ctx, sess, inv)
}

func (s *appService) ConvertEstimate(ctx context.Context, sess core.Session, estimateID int64, date string) (*InvoiceResult, error) {
	inv, err := s.invoices.ConvertEstimate(ctx, sess, estimateID, date)
	if err != nil {
		return nil, err
	}
	return s.withPayments(ctx, sess, inv)
}

func (s *appService) GetInvoice(ctx context.Context, sess core.Session, invoiceID int64) (*InvoiceResult, error) {
	inv, err := s.invoices.Get(ctx, sess, invoiceID)
	if err != nil {
		return nil, err
	}
	return s.withPayments(ctx, sess, inv)
}

func (s *appService) ListInvoices(ctx context.Context, sess core.Session, f core.InvoiceFilter) ([]core.Invoice, error) {
	return s.invoices.List(ctx, sess, f)
}

func (s *appService) PendingInvoices(ctx context.Context, sess core.Session, docType core.DocumentType) ([]core.Invoice, error) {
	return s.invoices.Pending(ctx, sess, docType)
}

func (s *appService) withPayments(ctx context.Context, sess core.Session, inv *core.Invoice) (*InvoiceResult, error) {
	payments, err := s.invoices.Payments(ctx, sess, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments for %s: %w", inv.Number, err)
	}
	return &InvoiceResult{Invoice: inv, Payments: payments}, nil
}

// ── Expenses ─────────────────────────────────────────────────────────────────

func (s *appService) AddExpense(ctx context.Context, sess core.Session, in core.AddExpenseInput) (*core.Expense, error) {
	return s.expenses.Add(ctx, sess, in)
}

func (s *appService) UpdateExpense(ctx context.Context, sess core.Session, expenseID int64, in core.UpdateExpenseInput) (*core.Expense, error) {
	return s.expenses.Update(ctx, sess, expenseID, in)
}

func (s *appService) DeleteExpense(ctx context.Context, sess core.Session, expenseID int64) error {
	return s.expenses.Delete(ctx, sess, expenseID)
}

func (s *appService) ListExpenses(ctx context.Context, sess core.Session, r core.DateRange) ([]core.Expense, error) {
	return s.expenses.List(ctx, sess, r)
}

// ── Reports ──────────────────────────────────────────────────────────────────

func (s *appService) Report(ctx context.Context, sess core.Session, req ReportRequest) (*ReportResult, error) {
	res := &ReportResult{Kind: req.Kind}
	var err error
	switch req.Kind {
	case ReportSales:
		res.Documents, err = s.reports.Sales(ctx, sess, req.dateRange())
	case ReportPurchases:
		res.Documents, err = s.reports.Purchases(ctx, sess, req.dateRange())
	case ReportPL:
		res.PL, err = s.reports.ProfitAndLoss(ctx, sess, req.dateRange())
	case ReportGST:
		res.GST, err = s.reports.GST(ctx, sess, req.dateRange())
	case ReportStock:
		res.Stock, err = s.reports.Stock(ctx, sess)
	case ReportOutstanding:
		res.Outstanding, err = s.reports.Outstanding(ctx, sess)
	case ReportDayBook:
		res.DayBook, err = s.reports.DayBook(ctx, sess, req.Date)
	case ReportTopItems:
		res.TopItems, err = s.reports.TopSellingItems(ctx, sess, req.dateRange(), req.Limit)
	case ReportCashFlow:
		res.CashFlow, err = s.reports.CashFlow(ctx, sess, req.dateRange())
	default:
		return nil, &core.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown report %q", req.Kind)}
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *appService) ExportReport(ctx context.Context, sess core.Session, req ReportRequest, w io.Writer) error {
	res, err := s.Report(ctx, sess, req)
	if err != nil {
		return err
	}
	switch req.Kind {
	case ReportSales, ReportPurchases:
		return export.Documents(w, res.Documents)
	case ReportGST:
		return export.GST(w, res.GST)
	case ReportStock:
		return export.Stock(w, res.Stock)
	case ReportOutstanding:
		return export.Outstanding(w, res.Outstanding)
	default:
		return &core.ValidationError{Field: "kind", Message: fmt.Sprintf("report %q cannot be exported", req.Kind)}
	}
}
