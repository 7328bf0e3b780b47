package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ── Report types ──────────────────────────────────────────────────────────────

// DocumentReport summarises sale or purchase invoices in a period.
type DocumentReport struct {
	Type     DocumentType    `json:"type"`
	From     string          `json:"from"`
	To       string          `json:"to"`
	Invoices []Invoice       `json:"invoices"`
	Count    int             `json:"count"`
	Taxable  decimal.Decimal `json:"taxable"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
	Paid     decimal.Decimal `json:"paid"`
	Due      decimal.Decimal `json:"due"`
}

// PLReport is profit and loss for a period. Revenue and Purchases are taxable
// amounts: GST collected or paid is not income or cost.
type PLReport struct {
	From          string          `json:"from"`
	To            string          `json:"to"`
	Revenue       decimal.Decimal `json:"revenue"`
	Purchases     decimal.Decimal `json:"purchases"`
	GrossProfit   decimal.Decimal `json:"gross_profit"`
	Expenses      decimal.Decimal `json:"expenses"`
	NetProfit     decimal.Decimal `json:"net_profit"`
	ProfitMargin  decimal.Decimal `json:"profit_margin"` // percent of revenue, 2 places
	SalesCount    int             `json:"sales_count"`
	PurchaseCount int             `json:"purchase_count"`
	ExpenseCount  int             `json:"expense_count"`
}

// GSTSlab aggregates line amounts taxed at one rate.
type GSTSlab struct {
	Rate    decimal.Decimal `json:"rate"`
	Taxable decimal.Decimal `json:"taxable"`
	CGST    decimal.Decimal `json:"cgst"`
	SGST    decimal.Decimal `json:"sgst"`
	Total   decimal.Decimal `json:"total"`
}

// GSTReport is output tax on GST sales by slab, against input tax on GST purchases.
type GSTReport struct {
	From         string          `json:"from"`
	To           string          `json:"to"`
	Slabs        []GSTSlab       `json:"slabs"`
	TotalTaxable decimal.Decimal `json:"total_taxable"`
	OutputTax    decimal.Decimal `json:"output_tax"`
	InputTax     decimal.Decimal `json:"input_tax"`
	NetPayable   decimal.Decimal `json:"net_payable"`
	InvoiceCount int             `json:"invoice_count"`
}

// StandardGSTRates are always present in a GSTReport, in this order.
var StandardGSTRates = []int64{0, 5, 12, 18, 28}

type StockLine struct {
	Item  Item            `json:"item"`
	Value decimal.Decimal `json:"value"` // stock at purchase price
}

type StockReport struct {
	Items      []StockLine     `json:"items"`
	TotalItems int             `json:"total_items"`
	TotalValue decimal.Decimal `json:"total_value"`
	Threshold  decimal.Decimal `json:"threshold"`
	LowStock   []Item          `json:"low_stock"`
}

// OutstandingReport splits parties by the sign of their balance.
// TotalPayable is reported as a positive amount.
type OutstandingReport struct {
	Receivables     []Party         `json:"receivables"`
	Payables        []Party         `json:"payables"`
	TotalReceivable decimal.Decimal `json:"total_receivable"`
	TotalPayable    decimal.Decimal `json:"total_payable"`
	NetPosition     decimal.Decimal `json:"net_position"`
}

type DayBook struct {
	Date         string          `json:"date"`
	Invoices     []Invoice       `json:"invoices"`
	Transactions []Transaction   `json:"transactions"`
	Expenses     []Expense       `json:"expenses"`
	MoneyIn      decimal.Decimal `json:"money_in"`
	MoneyOut     decimal.Decimal `json:"money_out"`
}

type ItemSales struct {
	ItemID   int64           `json:"item_id"`
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type CashFlowReport struct {
	From        string          `json:"from"`
	To          string          `json:"to"`
	Inflow      decimal.Decimal `json:"inflow"`
	PaymentsOut decimal.Decimal `json:"payments_out"`
	Expenses    decimal.Decimal `json:"expenses"`
	Outflow     decimal.Decimal `json:"outflow"`
	Net         decimal.Decimal `json:"net"`
}

// ── Interface ─────────────────────────────────────────────────────────────────

// ReportingService provides read-only aggregations over persisted records.
// It never writes. Date ranges are inclusive and empty bounds are open.
type ReportingService interface {
	Sales(ctx context.Context, sess Session, r DateRange) (*DocumentReport, error)
	Purchases(ctx context.Context, sess Session, r DateRange) (*DocumentReport, error)
	ProfitAndLoss(ctx context.Context, sess Session, r DateRange) (*PLReport, error)
	GST(ctx context.Context, sess Session, r DateRange) (*GSTReport, error)
	Stock(ctx context.Context, sess Session) (*StockReport, error)
	Outstanding(ctx context.Context, sess Session) (*OutstandingReport, error)
	DayBook(ctx context.Context, sess Session, date string) (*DayBook, error)
	// TopSellingItems ranks catalog items by sale revenue (quantity × rate).
	TopSellingItems(ctx context.Context, sess Session, r DateRange, limit int) ([]ItemSales, error)
	CashFlow(ctx context.Context, sess Session, r DateRange) (*CashFlowReport, error)
}

// ── Implementation ────────────────────────────────────────────────────────────

type reportingService struct {
	store Queries
}

func NewReportingService(store Queries) ReportingService {
	return &reportingService{store: store}
}

func (s *reportingService) Sales(ctx context.Context, sess Session, r DateRange) (*DocumentReport, error) {
	return s.documentReport(ctx, sess, DocSale, r)
}

func (s *reportingService) Purchases(ctx context.Context, sess Session, r DateRange) (*DocumentReport, error) {
	return s.documentReport(ctx, sess, DocPurchase, r)
}

func (s *reportingService) documentReport(ctx context.Context, sess Session, t DocumentType, r DateRange) (*DocumentReport, error) {
	if err := sess.validate(); err != nil {
		return nil, err
	}
	invoices, err := s.store.ListInvoices(ctx, sess.BusinessID, InvoiceFilter{Type: t, From: r.From, To: r.To})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s invoices: %w", t, err)
	}

	rep := &DocumentReport{Type: t, From: r.From, To: r.To, Invoices: invoices, Count: len(invoices)}
	if rep.Invoices == nil {
		rep.Invoices = []Invoice{}
	}
	for _, inv := range invoices {
		rep.Taxable = rep.Taxable.Add(inv.TaxableAmount)
		rep.Tax = rep.Tax.Add(inv.TotalTax)
		rep.Total = rep.Total.Add(inv.GrandTotal)
		rep.Paid = rep.Paid.Add(inv.Paid)
		rep.Due = rep.Due.Add(inv.Due)
	}
	return rep, nil
}

func (s *reportingService) ProfitAndLoss(ctx context.Context, sess Session, r DateRange) (*PLReport, error) {
	sales, err := s.Sales(ctx, sess, r)
	if err != nil {
		return nil, err
	}
	purchases, err := s.Purchases(ctx, sess, r)
	if err != nil {
		return nil, err
	}
	expenses, err := s.store.ListExpenses(ctx, sess.BusinessID, r)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	rep := &PLReport{
		From:          r.From,
		To:            r.To,
		Revenue:       sales.Taxable,
		Purchases:     purchases.Taxable,
		SalesCount:    sales.Count,
		PurchaseCount: purchases.Count,
		ExpenseCount:  len(expenses),
	}
	for _, e := range expenses {
		rep.Expenses = rep.Expenses.Add(e.Amount)
	}
	rep.GrossProfit = rep.Revenue.Sub(rep.Purchases)
	rep.NetProfit = rep.GrossProfit.Sub(rep.Expenses)
	if rep.Revenue.IsPositive() {
		rep.ProfitMargin = rep.NetProfit.Mul(hundred).DivRound(rep.Revenue, 2)
	}
	return rep, nil
}

func (s *reportingService) GST(ctx context.Context, sess Session, r DateRange) (*GSTReport, error) {
	if err := sess.validate(); err != nil {
		return nil, err
	}
	sales, err := s.store.ListInvoices(ctx, sess.BusinessID, InvoiceFilter{Type: DocSale, From: r.From, To: r.To})
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	purchases, err := s.store.ListInvoices(ctx, sess.BusinessID, InvoiceFilter{Type: DocPurchase, From: r.From, To: r.To})
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}

	rep := &GSTReport{From: r.From, To: r.To}
	slabs := make(map[string]*GSTSlab)
	var order []string
	slabFor := func(rate decimal.Decimal) *GSTSlab {
		key := rate.String()
		if sl, ok := slabs[key]; ok {
			return sl
		}
		sl := &GSTSlab{Rate: rate}
		slabs[key] = sl
		order = append(order, key)
		return sl
	}
	for _, rate := range StandardGSTRates {
		slabFor(decimal.NewFromInt(rate))
	}

	for _, inv := range sales {
		if !inv.IsGST {
			continue
		}
		rep.InvoiceCount++
		totals := ComputeTotals(inv.Lines, true, decimal.Zero, decimal.Zero)
		for i, l := range inv.Lines {
			lt := totals.Lines[i]
			sl := slabFor(l.GSTRate)
			sl.Taxable = sl.Taxable.Add(lt.Amount)
			sl.CGST = sl.CGST.Add(lt.CGST)
			sl.SGST = sl.SGST.Add(lt.SGST)
			sl.Total = sl.Total.Add(lt.Tax)
			rep.TotalTaxable = rep.TotalTaxable.Add(lt.Amount)
			rep.OutputTax = rep.OutputTax.Add(lt.Tax)
		}
	}
	for _, inv := range purchases {
		if inv.IsGST {
			rep.InputTax = rep.InputTax.Add(inv.TotalTax)
		}
	}

	for _, key := range order {
		rep.Slabs = append(rep.Slabs, *slabs[key])
	}
	sort.SliceStable(rep.Slabs, func(i, j int) bool { return rep.Slabs[i].Rate.LessThan(rep.Slabs[j].Rate) })
	rep.NetPayable = rep.OutputTax.Sub(rep.InputTax)
	return rep, nil
}

func (s *reportingService) Stock(ctx context.Context, sess Session) (*StockReport, error) {
	if err := sess.validate(); err != nil {
		return nil, err
	}
	threshold, err := resolveLowStockThreshold(ctx, s.store, sess.BusinessID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListItems(ctx, sess.BusinessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	rep := &StockReport{TotalItems: len(items), Threshold: threshold, Items: []StockLine{}, LowStock: []Item{}}
	for _, it := range items {
		value := it.Stock.Mul(it.PurchasePrice)
		rep.Items = append(rep.Items, StockLine{Item: it, Value: value})
		rep.TotalValue = rep.TotalValue.Add(value)
		if it.Stock.LessThanOrEqual(threshold) {
			rep.LowStock = append(rep.LowStock, it)
		}
	}
	return rep, nil
}

func (s *reportingService) Outstanding(ctx context.Context, sess Session) (*OutstandingReport, error) {
	if err := sess.validate(); err != nil {
		return nil, err
	}
	parties, err := s.store.ListParties(ctx, sess.BusinessID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list parties: %w", err)
	}

	rep := &OutstandingReport{Receivables: []Party{}, Payables: []Party{}}
	for _, p := range parties {
		switch {
		case p.Balance.IsPositive():
			rep.Receivables = append(rep.Receivables, p)
			rep.TotalReceivable = rep.TotalReceivable.Add(p.Balance)
		case p.Balance.IsNegative():
			rep.Payables = append(rep.Payables, p)
			rep.TotalPayable = rep.TotalPayable.Add(p.Balance.Neg())
		}
	}
	rep.NetPosition = rep.TotalReceivable.Sub(rep.TotalPayable)
	return rep, nil
}

func (s *reportingService) DayBook(ctx context.Context, sess Session, date string) (*DayBook, error) {
	if err := sess.validate(); err != nil {
		return nil, err
	}
	date = dateOrToday(date)
	day := DateRange{From: date, To: date}

	invoices, err := s.store.ListInvoices(ctx, sess.BusinessID, InvoiceFilter{From: date, To: date})
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	txns, err := s.store.ListTransactions(ctx, sess.BusinessID, TransactionFilter{From: date, To: date})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	expenses, err := s.store.ListExpenses(ctx, sess.BusinessID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	book := &DayBook{Date: date, Invoices: invoices, Transactions: txns, Expenses: expenses}
	for _, t := range txns {
		if t.Type == TxnPaymentIn {
			book.MoneyIn = book.MoneyIn.Add(t.Amount)
		} else {
			book.MoneyOut = book.MoneyOut.Add(t.Amount)
		}
	}
	for _, e := range expenses {
		book.MoneyOut = book.MoneyOut.Add(e.Amount)
	}
	return book, nil
}

func (s *reportingService) TopSellingItems(ctx context.Context, sess Session, r DateRange, limit int) ([]ItemSales, error) {
	if err := sess.validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	sales, err := s.store.ListInvoices(ctx, sess.BusinessID, InvoiceFilter{Type: DocSale, From: r.From, To: r.To})
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}

	byItem := make(map[int64]*ItemSales)
	for _, inv := range sales {
		for _, l := range inv.Lines {
			if l.ItemID == nil {
				continue
			}
			agg, ok := byItem[*l.ItemID]
			if !ok {
				agg = &ItemSales{ItemID: *l.ItemID, Name: l.Name}
				byItem[*l.ItemID] = agg
			}
			agg.Quantity = agg.Quantity.Add(l.Quantity)
			agg.Revenue = agg.Revenue.Add(l.Quantity.Mul(l.Rate))
		}
	}

	ranked := make([]ItemSales, 0, len(byItem))
	for _, agg := range byItem {
		ranked = append(ranked, *agg)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if c := ranked[i].Revenue.Cmp(ranked[j].Revenue); c != 0 {
			return c > 0
		}
		return ranked[i].ItemID < ranked[j].ItemID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (s *reportingService) CashFlow(ctx context.Context, sess Session, r DateRange) (*CashFlowReport, error) {
	if err := sess.validate(); err != nil {
		return nil, err
	}
	txns, err := s.store.ListTransactions(ctx, sess.BusinessID, TransactionFilter{From: r.From, To: r.To})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	expenses, err := s.store.ListExpenses(ctx, sess.BusinessID, r)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	rep := &CashFlowReport{From: r.From, To: r.To}
	for _, t := range txns {
		if t.Type == TxnPaymentIn {
			rep.Inflow = rep.Inflow.Add(t.Amount)
		} else {
			rep.PaymentsOut = rep.PaymentsOut.Add(t.Amount)
		}
	}
	for _, e := range expenses {
		rep.Expenses = rep.Expenses.Add(e.Amount)
	}
	rep.Outflow = rep.PaymentsOut.Add(rep.Expenses)
	rep.Net = rep.Inflow.Sub(rep.Outflow)
	return rep, nil
}
