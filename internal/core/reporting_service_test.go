package core_test

import (
	"context"
	"testing"

	"bizbiller/internal/core"
)

// seedApril books two sales, a purchase, a payment and an expense:
//
//	2024-04-01 sale GST    Rice 2×100 @5%, Oil 1×200 @18%  = 446, paid 100
//	2024-04-02 sale        Oil 3×200                       = 600, paid 200 later
//	2024-04-02 purchase GST Rice 10×80 @5%                 = 840
//	2024-04-02 expense     Rent 150 from cash
func seedApril(t *testing.T, h *harness) (rice, oil *core.Item, cust, supp *core.Party) {
	t.Helper()
	ctx := context.Background()
	rice = h.item(t, "Rice 1kg", "100", "5", "50")
	oil = h.item(t, "Mustard Oil 1L", "200", "18", "20")
	cust = h.customer(t, "Anil Traders")
	supp = h.supplier(t, "Krishna Mills")

	if _, err := h.invoices.Create(ctx, h.sess, core.CreateInvoiceInput{
		Type: core.DocSale, Date: "2024-04-01", PartyID: &cust.ID, IsGST: true,
		Lines: []core.LineInput{catalogLine(rice.ID, "2"), catalogLine(oil.ID, "1")},
		Paid:  d("100"),
	}); err != nil {
		t.Fatalf("create GST sale: %v", err)
	}
	plain, err := h.invoices.Create(ctx, h.sess, core.CreateInvoiceInput{
		Type: core.DocSale, Date: "2024-04-02", PartyID: &cust.ID,
		Lines: []core.LineInput{catalogLine(oil.ID, "3")},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if _, err := h.invoices.Create(ctx, h.sess, core.CreateInvoiceInput{
		Type: core.DocPurchase, Date: "2024-04-02", PartyID: &supp.ID, IsGST: true,
		Lines: []core.LineInput{ratedLine(rice.ID, "10", "80", "5")},
	}); err != nil {
		t.Fatalf("create purchase: %v", err)
	}
	if _, err := h.invoices.RecordPayment(ctx, h.sess, plain.ID, core.PaymentInput{Amount: d("200"), Date: "2024-04-02"}); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if _, err := h.expenses.Add(ctx, h.sess, core.AddExpenseInput{
		Category: "Rent", Amount: d("150"), Date: "2024-04-02", AccountID: &h.cashID,
	}); err != nil {
		t.Fatalf("add expense: %v", err)
	}
	return rice, oil, cust, supp
}

var april = core.DateRange{From: "2024-04-01", To: "2024-04-30"}

func TestReportingService_SalesAndPurchases(t *testing.T) {
	h := newHarness(t)
	seedApril(t, h)
	ctx := context.Background()

	sales, err := h.reports.Sales(ctx, h.sess, april)
	if err != nil {
		t.Fatalf("Sales: %v", err)
	}
	if sales.Count != 2 {
		t.Errorf("sales count = %d, want 2", sales.Count)
	}
	assertDecimal(t, "sales taxable", sales.Taxable, "1000")
	assertDecimal(t, "sales tax", sales.Tax, "46")
	assertDecimal(t, "sales total", sales.Total, "1046")
	assertDecimal(t, "sales paid", sales.Paid, "300")
	assertDecimal(t, "sales due", sales.Due, "746")

	firstDay, err := h.reports.Sales(ctx, h.sess, core.DateRange{From: "2024-04-01", To: "2024-04-01"})
	if err != nil {
		t.Fatalf("Sales: %v", err)
	}
	if firstDay.Count != 1 {
		t.Errorf("sales on 2024-04-01 = %d, want 1", firstDay.Count)
	}

	purchases, err := h.reports.Purchases(ctx, h.sess, april)
	if err != nil {
		t.Fatalf("Purchases: %v", err)
	}
	if purchases.Count != 1 {
		t.Errorf("purchase count = %d, want 1", purchases.Count)
	}
	assertDecimal(t, "purchase taxable", purchases.Taxable, "800")
	assertDecimal(t, "purchase total", purchases.Total, "840")

	empty, err := h.reports.Sales(ctx, h.sess, core.DateRange{From: "2023-01-01", To: "2023-12-31"})
	if err != nil {
		t.Fatalf("Sales: %v", err)
	}
	if empty.Count != 0 || empty.Invoices == nil {
		t.Errorf("expected an empty non-nil report, got %+v", empty)
	}
}

func TestReportingService_ProfitAndLoss(t *testing.T) {
	h := newHarness(t)
	seedApril(t, h)

	pl, err := h.reports.ProfitAndLoss(context.Background(), h.sess, april)
	if err != nil {
		t.Fatalf("ProfitAndLoss: %v", err)
	}
	assertDecimal(t, "revenue", pl.Revenue, "1000")
	assertDecimal(t, "purchases", pl.Purchases, "800")
	assertDecimal(t, "gross profit", pl.GrossProfit, "200")
	assertDecimal(t, "expenses", pl.Expenses, "150")
	assertDecimal(t, "net profit", pl.NetProfit, "50")
	assertDecimal(t, "margin", pl.ProfitMargin, "5")
	if pl.SalesCount != 2 || pl.PurchaseCount != 1 || pl.ExpenseCount != 1 {
		t.Errorf("unexpected counts: %+v", pl)
	}
}

func TestReportingService_GST(t *testing.T) {
	h := newHarness(t)
	seedApril(t, h)

	rep, err := h.reports.GST(context.Background(), h.sess, april)
	if err != nil {
		t.Fatalf("GST: %v", err)
	}
	if len(rep.Slabs) != len(core.StandardGSTRates) {
		t.Fatalf("expected %d slabs, got %d", len(core.StandardGSTRates), len(rep.Slabs))
	}
	for i, rate := range core.StandardGSTRates {
		if rep.Slabs[i].Rate.IntPart() != rate {
			t.Errorf("slab %d rate = %s, want %d", i, rep.Slabs[i].Rate, rate)
		}
	}

	five, eighteen := rep.Slabs[1], rep.Slabs[3]
	assertDecimal(t, "5% taxable", five.Taxable, "200")
	assertDecimal(t, "5% CGST", five.CGST, "5")
	assertDecimal(t, "5% total", five.Total, "10")
	assertDecimal(t, "18% taxable", eighteen.Taxable, "200")
	assertDecimal(t, "18% SGST", eighteen.SGST, "18")
	assertDecimal(t, "12% slab is empty", rep.Slabs[2].Taxable, "0")

	assertDecimal(t, "total taxable", rep.TotalTaxable, "400")
	assertDecimal(t, "output tax", rep.OutputTax, "46")
	assertDecimal(t, "input tax", rep.InputTax, "40")
	assertDecimal(t, "net payable", rep.NetPayable, "6")
	if rep.InvoiceCount != 1 {
		t.Errorf("GST invoice count = %d, want 1", rep.InvoiceCount)
	}
}

func TestReportingService_GSTNonStandardRate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	gold := h.item(t, "Gold coin", "1000", "3", "5")
	if _, err := h.invoices.Create(ctx, h.sess, core.CreateInvoiceInput{
		Type: core.DocSale, IsGST: true, Lines: []core.LineInput{catalogLine(gold.ID, "1")},
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rep, err := h.reports.GST(ctx, h.sess, core.DateRange{})
	if err != nil {
		t.Fatalf("GST: %v", err)
	}
	if len(rep.Slabs) != 6 {
		t.Fatalf("expected 6 slabs, got %d", len(rep.Slabs))
	}
	// Slabs stay sorted by rate: 0, 3, 5, ...
	assertDecimal(t, "second slab rate", rep.Slabs[1].Rate, "3")
	assertDecimal(t, "3% tax", rep.Slabs[1].Total, "30")
}

func TestReportingService_StockAndOutstanding(t *testing.T) {
	h := newHarness(t)
	_, _, cust, supp := seedApril(t, h)
	ctx := context.Background()

	stock, err := h.reports.Stock(ctx, h.sess)
	if err != nil {
		t.Fatalf("Stock: %v", err)
	}
	if stock.TotalItems != 2 {
		t.Errorf("total items = %d, want 2", stock.TotalItems)
	}
	// Rice 58 × 100 + Oil 16 × 200
	assertDecimal(t, "stock value", stock.TotalValue, "9000")
	if len(stock.LowStock) != 0 {
		t.Errorf("expected no low stock, got %+v", stock.LowStock)
	}

	out, err := h.reports.Outstanding(ctx, h.sess)
	if err != nil {
		t.Fatalf("Outstanding: %v", err)
	}
	if len(out.Receivables) != 1 || out.Receivables[0].ID != cust.ID {
		t.Errorf("unexpected receivables: %+v", out.Receivables)
	}
	if len(out.Payables) != 1 || out.Payables[0].ID != supp.ID {
		t.Errorf("unexpected payables: %+v", out.Payables)
	}
	assertDecimal(t, "receivable", out.TotalReceivable, "746")
	assertDecimal(t, "payable", out.TotalPayable, "840")
	assertDecimal(t, "net position", out.NetPosition, "-94")
}

func TestReportingService_DayBookAndCashFlow(t *testing.T) {
	h := newHarness(t)
	seedApril(t, h)
	ctx := context.Background()

	book, err := h.reports.DayBook(ctx, h.sess, "2024-04-02")
	if err != nil {
		t.Fatalf("DayBook: %v", err)
	}
	if len(book.Invoices) != 2 || len(book.Transactions) != 1 || len(book.Expenses) != 1 {
		t.Errorf("unexpected day book contents: %d invoices, %d transactions, %d expenses",
			len(book.Invoices), len(book.Transactions), len(book.Expenses))
	}
	assertDecimal(t, "money in", book.MoneyIn, "200")
	assertDecimal(t, "money out", book.MoneyOut, "150")

	flow, err := h.reports.CashFlow(ctx, h.sess, april)
	if err != nil {
		t.Fatalf("CashFlow: %v", err)
	}
	assertDecimal(t, "inflow", flow.Inflow, "300")
	assertDecimal(t, "payments out", flow.PaymentsOut, "0")
	assertDecimal(t, "outflow", flow.Outflow, "150")
	assertDecimal(t, "net", flow.Net, "150")
	assertDecimal(t, "net matches cash account", h.cashBalance(t), "150")
}

func TestReportingService_TopSellingItems(t *testing.T) {
	h := newHarness(t)
	_, oil, _, _ := seedApril(t, h)
	ctx := context.Background()

	top, err := h.reports.TopSellingItems(ctx, h.sess, april, 0)
	if err != nil {
		t.Fatalf("TopSellingItems: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 items, got %d", len(top))
	}
	if top[0].ItemID != oil.ID {
		t.Errorf("top item = %d, want oil %d", top[0].ItemID, oil.ID)
	}
	assertDecimal(t, "oil quantity", top[0].Quantity, "4")
	assertDecimal(t, "oil revenue", top[0].Revenue, "800")
	assertDecimal(t, "rice revenue", top[1].Revenue, "200")

	one, err := h.reports.TopSellingItems(ctx, h.sess, april, 1)
	if err != nil {
		t.Fatalf("TopSellingItems: %v", err)
	}
	if len(one) != 1 {
		t.Errorf("limit 1 returned %d items", len(one))
	}
}
