// Package export renders reports as Excel workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"bizbiller/internal/core"
)

const defaultSheet = "Sheet1"

// Documents writes a sale or purchase register, one row per invoice, followed by a totals row.
func Documents(w io.Writer, rep *core.DocumentReport) error {
	headers := []string{"Number", "Date", "Party", "Taxable", "Tax", "Total", "Paid", "Due", "Status"}
	rows := make([][]any, 0, len(rep.Invoices)+1)
	for _, inv := range rep.Invoices {
		rows = append(rows, []any{
			inv.Number, inv.Date, inv.PartyName, money(inv.TaxableAmount), money(inv.TotalTax),
			money(inv.GrandTotal), money(inv.Paid), money(inv.Due), string(inv.Status),
		})
	}
	rows = append(rows, []any{"Total", "", fmt.Sprintf("%d invoices", rep.Count),
		money(rep.Taxable), money(rep.Tax), money(rep.Total), money(rep.Paid), money(rep.Due), ""})
	return writeBook(w, titleFor(rep.Type), headers, rows)
}

func Stock(w io.Writer, rep *core.StockReport) error {
	headers := []string{"Item", "SKU", "Unit", "Stock", "Purchase Price", "Value", "Low"}
	rows := make([][]any, 0, len(rep.Items)+1)
	for _, l := range rep.Items {
		low := ""
		if l.Item.Stock.LessThanOrEqual(rep.Threshold) {
			low = "yes"
		}
		rows = append(rows, []any{
			l.Item.Name, l.Item.SKU, l.Item.Unit, money(l.Item.Stock),
			money(l.Item.PurchasePrice), money(l.Value), low,
		})
	}
	rows = append(rows, []any{"Total", "", "", "", "", money(rep.TotalValue), len(rep.LowStock)})
	return writeBook(w, "Stock", headers, rows)
}

func Outstanding(w io.Writer, rep *core.OutstandingReport) error {
	headers := []string{"Party", "Type", "Phone", "Receivable", "Payable"}
	rows := make([][]any, 0, len(rep.Receivables)+len(rep.Payables)+2)
	for _, p := range rep.Receivables {
		rows = append(rows, []any{p.Name, string(p.Type), p.Phone, money(p.Balance), ""})
	}
	for _, p := range rep.Payables {
		rows = append(rows, []any{p.Name, string(p.Type), p.Phone, "", money(p.Balance.Neg())})
	}
	rows = append(rows,
		[]any{"Total", "", "", money(rep.TotalReceivable), money(rep.TotalPayable)},
		[]any{"Net position", "", "", money(rep.NetPosition), ""},
	)
	return writeBook(w, "Outstanding", headers, rows)
}

func GST(w io.Writer, rep *core.GSTReport) error {
	headers := []string{"Rate %", "Taxable", "CGST", "SGST", "Total Tax"}
	rows := make([][]any, 0, len(rep.Slabs)+3)
	for _, s := range rep.Slabs {
		rows = append(rows, []any{money(s.Rate), money(s.Taxable), money(s.CGST), money(s.SGST), money(s.Total)})
	}
	rows = append(rows,
		[]any{"Output tax", money(rep.TotalTaxable), "", "", money(rep.OutputTax)},
		[]any{"Input tax", "", "", "", money(rep.InputTax)},
		[]any{"Net payable", "", "", "", money(rep.NetPayable)},
	)
	return writeBook(w, "GST", headers, rows)
}

func writeBook(w io.Writer, sheet string, headers []string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(defaultSheet, sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	for c, h := range headers {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header %s: %w", h, err)
		}
	}
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// money converts to float64 for a numeric cell; spreadsheets hold doubles.
func money(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func titleFor(t core.DocumentType) string {
	if t == core.DocPurchase {
		return "Purchases"
	}
	return "Sales"
}
