package export_test

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"bizbiller/internal/core"
	"bizbiller/internal/export"
)

func TestDocuments(t *testing.T) {
	rep := &core.DocumentReport{
		Type:  core.DocSale,
		Count: 1,
		Invoices: []core.Invoice{{
			Number: "INV00001", Date: "2024-01-10", PartyName: "Ravi",
			Totals: core.Totals{TaxableAmount: decimal.NewFromInt(1000), TotalTax: decimal.NewFromInt(180), GrandTotal: decimal.NewFromInt(1180)},
			Paid:   decimal.NewFromInt(500), Due: decimal.NewFromInt(680), Status: core.StatusPartial,
		}},
		Taxable: decimal.NewFromInt(1000), Tax: decimal.NewFromInt(180), Total: decimal.NewFromInt(1180),
		Paid: decimal.NewFromInt(500), Due: decimal.NewFromInt(680),
	}

	var buf bytes.Buffer
	if err := export.Documents(&buf, rep); err != nil {
		t.Fatalf("Documents: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sales")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header, one invoice and totals rows, got %d", len(rows))
	}
	if rows[0][0] != "Number" || rows[1][0] != "INV00001" || rows[2][0] != "Total" {
		t.Errorf("unexpected first column: %q %q %q", rows[0][0], rows[1][0], rows[2][0])
	}
	if rows[1][5] != "1180" {
		t.Errorf("grand total cell = %q, want 1180", rows[1][5])
	}
	if rows[1][8] != "partial" {
		t.Errorf("status cell = %q", rows[1][8])
	}
}

func TestOutstanding(t *testing.T) {
	rep := &core.OutstandingReport{
		Receivables:     []core.Party{{Name: "Asha", Type: core.PartyCustomer, Balance: decimal.NewFromInt(300)}},
		Payables:        []core.Party{{Name: "Metro Supplies", Type: core.PartySupplier, Balance: decimal.NewFromInt(-120)}},
		TotalReceivable: decimal.NewFromInt(300),
		TotalPayable:    decimal.NewFromInt(120),
		NetPosition:     decimal.NewFromInt(180),
	}

	var buf bytes.Buffer
	if err := export.Outstanding(&buf, rep); err != nil {
		t.Fatalf("Outstanding: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	payable, err := f.GetCellValue("Outstanding", "E3")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if payable != "120" {
		t.Errorf("payable cell = %q, want 120 (shown positive)", payable)
	}
	net, err := f.GetCellValue("Outstanding", "D5")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if net != "180" {
		t.Errorf("net position = %q, want 180", net)
	}
}
