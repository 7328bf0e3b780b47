package app

import (
	"github.com/shopspring/decimal"

	"bizbiller/internal/core"
)

// InvoiceResult is returned by invoice lifecycle operations.
type InvoiceResult struct {
	Invoice  *core.Invoice      `json:"invoice"`
	Payments []core.Transaction `json:"payments"`
}

// BalanceResult is returned by the manual party and account adjustments.
type BalanceResult struct {
	ID      int64           `json:"id"`
	Balance decimal.Decimal `json:"balance"`
}

// ReportResult carries the output of Report. Only the field for the requested kind is set.
type ReportResult struct {
	Kind        ReportKind              `json:"kind"`
	Documents   *core.DocumentReport    `json:"documents,omitempty"`
	PL          *core.PLReport          `json:"pl,omitempty"`
	GST         *core.GSTReport         `json:"gst,omitempty"`
	Stock       *core.StockReport       `json:"stock,omitempty"`
	Outstanding *core.OutstandingReport `json:"outstanding,omitempty"`
	DayBook     *core.DayBook           `json:"day_book,omitempty"`
	TopItems    []core.ItemSales        `json:"top_items,omitempty"`
	CashFlow    *core.CashFlowReport    `json:"cash_flow,omitempty"`
}
