package app

import (
	"github.com/shopspring/decimal"

	"bizbiller/internal/core"
)

// AdjustStockRequest is a manual stock correction outside any invoice.
type AdjustStockRequest struct {
	ItemID    int64
	Quantity  decimal.Decimal
	Direction core.StockDirection
}

// AdjustPartyBalanceRequest moves a party balance outside any invoice.
type AdjustPartyBalanceRequest struct {
	PartyID   int64
	Amount    decimal.Decimal
	Direction core.BalanceDirection
}

// AdjustAccountBalanceRequest credits or debits a cash or bank account directly.
type AdjustAccountBalanceRequest struct {
	AccountID int64
	Amount    decimal.Decimal
	Direction core.CashDirection
}

// ReportKind names a report the application can run.
type ReportKind string

const (
	ReportSales       ReportKind = "sales"
	ReportPurchases   ReportKind = "purchases"
	ReportPL          ReportKind = "pl"
	ReportGST         ReportKind = "gst"
	ReportStock       ReportKind = "stock"
	ReportOutstanding ReportKind = "outstanding"
	ReportDayBook     ReportKind = "daybook"
	ReportTopItems    ReportKind = "top-items"
	ReportCashFlow    ReportKind = "cashflow"
)

// ReportKinds lists every kind in help order.
var ReportKinds = []ReportKind{
	ReportSales, ReportPurchases, ReportPL, ReportGST, ReportStock,
	ReportOutstanding, ReportDayBook, ReportTopItems, ReportCashFlow,
}

// ExportableReports are the kinds ExportReport can write as a workbook.
var ExportableReports = []ReportKind{ReportSales, ReportPurchases, ReportGST, ReportStock, ReportOutstanding}

// ReportRequest selects a report. From/To bound period reports, Date picks
// the day for the day book and Limit caps top-items.
type ReportRequest struct {
	Kind  ReportKind
	From  string
	To    string
	Date  string
	Limit int
}

func (r ReportRequest) dateRange() core.DateRange {
	return core.DateRange{From: r.From, To: r.To}
}
