package core_test

import (
	"context"
	"errors"
	"testing"

	"bizbiller/internal/core"
)

func TestBusinessService_CreateWritesDefaults(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	b, err := h.businesses.Create(ctx, core.CreateBusinessInput{
		Name:  "Patel Hardware",
		Phone: "98765 43210",
		GSTIN: "27ABCDE1234F1Z5",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.Phone != "+919876543210" {
		t.Errorf("phone = %q, want E.164", b.Phone)
	}
	sess := core.Session{BusinessID: b.ID}

	for _, docType := range core.DocumentTypes {
		if _, err := h.settings.Prefix(ctx, sess, docType); err != nil {
			t.Errorf("prefix for %s: %v", docType, err)
		}
	}
	accounts, err := h.accountSvc.List(ctx, sess)
	if err != nil {
		t.Fatalf("List accounts: %v", err)
	}
	if len(accounts) != 1 || accounts[0].Type != core.AccountCash || accounts[0].Name != core.DefaultCashAccountName {
		t.Errorf("unexpected default accounts: %+v", accounts)
	}

	all, err := h.businesses.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 businesses, got %d", len(all))
	}
}

func TestBusinessService_CreateValidation(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name string
		in   core.CreateBusinessInput
	}{
		{"missing name", core.CreateBusinessInput{}},
		{"bad email", core.CreateBusinessInput{Name: "X", Email: "not-an-email"}},
		{"short gstin", core.CreateBusinessInput{Name: "X", GSTIN: "27ABC"}},
		{"bad phone", core.CreateBusinessInput{Name: "X", Phone: "12"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.businesses.Create(context.Background(), tt.in); !errors.Is(err, core.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestPartyService(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p, err := h.partySvc.Create(ctx, h.sess, core.CreatePartyInput{
		Type:           core.PartyCustomer,
		Name:           "Gupta Stores",
		Phone:          "+91 98200 12345",
		OpeningBalance: d("250"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	assertDecimal(t, "balance starts at opening", p.Balance, "250")
	h.supplier(t, "Metro Wholesale")

	customers, err := h.partySvc.List(ctx, h.sess, core.PartyCustomer)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(customers) != 1 || customers[0].ID != p.ID {
		t.Errorf("unexpected customers: %+v", customers)
	}
	all, err := h.partySvc.List(ctx, h.sess, "")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 parties, got %d", len(all))
	}

	if _, err := h.partySvc.Create(ctx, h.sess, core.CreatePartyInput{Type: "vendor", Name: "X"}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected ErrValidation for unknown party type, got %v", err)
	}
	if _, err := h.partySvc.Get(ctx, h.sess, p.ID+100); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPartyService_Statement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cust, err := h.partySvc.Create(ctx, h.sess, core.CreatePartyInput{Type: core.PartyCustomer, Name: "Lata", OpeningBalance: d("100")})
	if err != nil {
		t.Fatalf("Create party: %v", err)
	}
	it := h.item(t, "Bulb", "50", "0", "100")

	first, err := h.invoices.Create(ctx, h.sess, core.CreateInvoiceInput{
		Type: core.DocSale, Date: "2024-01-05", PartyID: &cust.ID,
		Lines: []core.LineInput{catalogLine(it.ID, "4")},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := h.invoices.RecordPayment(ctx, h.sess, first.ID, core.PaymentInput{Amount: d("150"), Date: "2024-01-20"}); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if _, err := h.invoices.Create(ctx, h.sess, core.CreateInvoiceInput{
		Type: core.DocSale, Date: "2024-02-02", PartyID: &cust.ID,
		Lines: []core.LineInput{catalogLine(it.ID, "1")},
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	st, err := h.partySvc.Statement(ctx, h.sess, cust.ID, core.DateRange{})
	if err != nil {
		t.Fatalf("Statement: %v", err)
	}
	if len(st.Lines) != 3 {
		t.Fatalf("expected 3 statement lines, got %d", len(st.Lines))
	}
	assertDecimal(t, "opening", st.OpeningBalance, "100")
	assertDecimal(t, "after first sale", st.Lines[0].Balance, "300")
	assertDecimal(t, "after payment", st.Lines[1].Balance, "150")
	assertDecimal(t, "closing", st.ClosingBalance, "200")
	assertDecimal(t, "closing matches ledger", h.partyBalance(t, cust.ID), "200")

	feb, err := h.partySvc.Statement(ctx, h.sess, cust.ID, core.DateRange{From: "2024-02-01", To: "2024-02-29"})
	if err != nil {
		t.Fatalf("Statement Feb: %v", err)
	}
	if len(feb.Lines) != 1 {
		t.Fatalf("expected 1 line in February, got %d", len(feb.Lines))
	}
	assertDecimal(t, "February opening", feb.OpeningBalance, "150")
	assertDecimal(t, "February closing", feb.ClosingBalance, "200")
}

func TestItemService(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	it, err := h.itemSvc.Create(ctx, h.sess, core.CreateItemInput{Name: "Stapler", SalePrice: d("75"), OpeningStock: d("4")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if it.Unit != "pcs" {
		t.Errorf("unit = %q, want default pcs", it.Unit)
	}
	assertDecimal(t, "stock starts at opening", it.Stock, "4")
	h.item(t, "Printer Paper", "300", "12", "40")

	low, threshold, err := h.itemSvc.LowStock(ctx, h.sess)
	if err != nil {
		t.Fatalf("LowStock: %v", err)
	}
	assertDecimal(t, "threshold", threshold, "10")
	if len(low) != 1 || low[0].ID != it.ID {
		t.Errorf("unexpected low stock list: %+v", low)
	}

	tests := []struct {
		name string
		in   core.CreateItemInput
	}{
		{"missing name", core.CreateItemInput{SalePrice: d("1")}},
		{"negative price", core.CreateItemInput{Name: "X", SalePrice: d("-1")}},
		{"negative opening stock", core.CreateItemInput{Name: "X", OpeningStock: d("-2")}},
		{"gst above 100", core.CreateItemInput{Name: "X", GSTRate: d("118")}},
		{"non-numeric hsn", core.CreateItemInput{Name: "X", HSN: "84AB"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.itemSvc.Create(ctx, h.sess, tt.in); !errors.Is(err, core.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestAccountService(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	bank, err := h.accountSvc.Create(ctx, h.sess, core.CreateAccountInput{
		Type: core.AccountBank, Name: "Current A/c", BankName: "SBI", AccountNumber: "00112233", OpeningBalance: d("5000"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	assertDecimal(t, "bank balance", bank.Balance, "5000")

	if _, err := h.accountSvc.Create(ctx, h.sess, core.CreateAccountInput{Type: core.AccountBank, Name: "No bank"}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected ErrValidation for bank account without bank name, got %v", err)
	}

	// Payments default to the cash account even when a bank account exists.
	it := h.item(t, "Fan", "1500", "0", "5")
	inv, err := h.invoices.Create(ctx, h.sess, core.CreateInvoiceInput{
		Type: core.DocSale, Lines: []core.LineInput{catalogLine(it.ID, "1")}, Paid: d("1500"),
	})
	if err != nil {
		t.Fatalf("Create invoice: %v", err)
	}
	assertDecimal(t, "cash", h.cashBalance(t), "1500")

	if err := h.invoices.Delete(ctx, h.sess, inv.ID); err != nil {
		t.Fatalf("Delete invoice: %v", err)
	}
	assertDecimal(t, "cash after delete", h.cashBalance(t), "0")
	bank, err = h.accountSvc.Get(ctx, h.sess, bank.ID)
	if err != nil {
		t.Fatalf("Get bank: %v", err)
	}
	assertDecimal(t, "bank untouched", bank.Balance, "5000")
}

func TestExpenseService(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	e, err := h.expenses.Add(ctx, h.sess, core.AddExpenseInput{
		Category: "Rent", Amount: d("8000"), Date: "2024-03-01", AccountID: &h.cashID,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	assertDecimal(t, "cash after expense", h.cashBalance(t), "-8000")

	if _, err := h.expenses.Add(ctx, h.sess, core.AddExpenseInput{Category: "Tea", Amount: d("60"), Date: "2024-03-02"}); err != nil {
		t.Fatalf("Add without account: %v", err)
	}
	assertDecimal(t, "cash untouched by unpaid-from-account expense", h.cashBalance(t), "-8000")

	march, err := h.expenses.List(ctx, h.sess, core.DateRange{From: "2024-03-01", To: "2024-03-01"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(march) != 1 || march[0].ID != e.ID {
		t.Errorf("unexpected expenses on 2024-03-01: %+v", march)
	}

	if err := h.expenses.Delete(ctx, h.sess, e.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	assertDecimal(t, "cash after delete", h.cashBalance(t), "0")
	if err := h.expenses.Delete(ctx, h.sess, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}

	if _, err := h.expenses.Add(ctx, h.sess, core.AddExpenseInput{Category: "Rent", Amount: d("0")}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected ErrValidation for zero amount, got %v", err)
	}
}

func TestPartyService_UpdateDeleteSearch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p, err := h.partySvc.Create(ctx, h.sess, core.CreatePartyInput{
		Type: core.PartyCustomer, Name: "Gupta Stores", Phone: "+91 98200 12345",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	h.supplier(t, "Metro Wholesale")

	updated, err := h.partySvc.Update(ctx, h.sess, p.ID, core.UpdatePartyInput{
		Name: ptr("Gupta & Sons"), Email: ptr("accounts@gupta.example"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Gupta & Sons" || updated.Email != "accounts@gupta.example" || updated.Phone != p.Phone {
		t.Errorf("unexpected party after update: %+v", updated)
	}
	stored, err := h.partySvc.Get(ctx, h.sess, p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Name != "Gupta & Sons" || stored.Type != core.PartyCustomer {
		t.Errorf("update not stored: %+v", stored)
	}

	if _, err := h.partySvc.Update(ctx, h.sess, p.ID, core.UpdatePartyInput{Email: ptr("not-an-email")}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected ErrValidation for bad email, got %v", err)
	}
	if _, err := h.partySvc.Update(ctx, h.sess, p.ID+100, core.UpdatePartyInput{Name: ptr("X")}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	searches := []struct {
		query string
		want  int
	}{
		{"gupta", 1},
		{"98200", 1},
		{"WHOLESALE", 1},
		{"", 2},
		{"kolkata", 0},
	}
	for _, tt := range searches {
		found, err := h.partySvc.Search(ctx, h.sess, tt.query)
		if err != nil {
			t.Fatalf("Search %q: %v", tt.query, err)
		}
		if len(found) != tt.want {
			t.Errorf("Search %q found %d parties, want %d", tt.query, len(found), tt.want)
		}
	}

	// A party with documents stays; once the document is gone it can be deleted.
	pen := h.item(t, "Pen", "10", "0", "100")
	inv, err := h.invoices.Create(ctx, h.sess, core.CreateInvoiceInput{
		Type: core.DocSale, PartyID: &p.ID, Lines: []core.LineInput{catalogLine(pen.ID, "3")},
	})
	if err != nil {
		t.Fatalf("Create invoice: %v", err)
	}
	if err := h.partySvc.Delete(ctx, h.sess, p.ID); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected ErrValidation deleting a party with documents, got %v", err)
	}
	if err := h.invoices.Delete(ctx, h.sess, inv.ID); err != nil {
		t.Fatalf("Delete invoice: %v", err)
	}
	if err := h.partySvc.Delete(ctx, h.sess, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := h.partySvc.Get(ctx, h.sess, p.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	owed, err := h.partySvc.Create(ctx, h.sess, core.CreatePartyInput{Type: core.PartySupplier, Name: "Old Creditor", OpeningBalance: d("-40")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := h.partySvc.Delete(ctx, h.sess, owed.ID); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected ErrValidation deleting a party with a balance, got %v", err)
	}
}

func TestItemService_UpdateDeleteSearch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	it, err := h.itemSvc.Create(ctx, h.sess, core.CreateItemInput{
		Name: "Stapler", SKU: "ST-01", HSN: "8472", SalePrice: d("75"), OpeningStock: d("4"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	h.item(t, "Printer Paper", "300", "12", "40")

	updated, err := h.itemSvc.Update(ctx, h.sess, it.ID, core.UpdateItemInput{SalePrice: ptr(d("80")), Category: ptr("Office")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	assertDecimal(t, "sale price", updated.SalePrice, "80")
	assertDecimal(t, "stock kept", updated.Stock, "4")
	if updated.Name != "Stapler" || updated.SKU != "ST-01" || updated.Category != "Office" {
		t.Errorf("unexpected item after update: %+v", updated)
	}

	invalid := []struct {
		name string
		in   core.UpdateItemInput
	}{
		{"empty name", core.UpdateItemInput{Name: ptr("")}},
		{"negative price", core.UpdateItemInput{PurchasePrice: ptr(d("-5"))}},
		{"gst above 100", core.UpdateItemInput{GSTRate: ptr(d("120"))}},
		{"non-numeric hsn", core.UpdateItemInput{HSN: ptr("84AB")}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.itemSvc.Update(ctx, h.sess, it.ID, tt.in); !errors.Is(err, core.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}

	searches := []struct {
		query string
		want  int
	}{
		{"stap", 1},
		{"st-01", 1},
		{"8472", 1},
		{"paper", 1},
		{"toner", 0},
	}
	for _, tt := range searches {
		found, err := h.itemSvc.Search(ctx, h.sess, tt.query)
		if err != nil {
			t.Fatalf("Search %q: %v", tt.query, err)
		}
		if len(found) != tt.want {
			t.Errorf("Search %q found %d items, want %d", tt.query, len(found), tt.want)
		}
	}

	if _, err := h.invoices.Create(ctx, h.sess, core.CreateInvoiceInput{
		Type: core.DocEstimate, Lines: []core.LineInput{catalogLine(it.ID, "1")},
	}); err != nil {
		t.Fatalf("Create estimate: %v", err)
	}
	if err := h.itemSvc.Delete(ctx, h.sess, it.ID); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected ErrValidation deleting an item on a document, got %v", err)
	}

	unused := h.item(t, "Glue", "20", "18", "3")
	if err := h.itemSvc.Delete(ctx, h.sess, unused.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := h.itemSvc.Get(ctx, h.sess, unused.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := h.itemSvc.Delete(ctx, h.sess, unused.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestItemService_PriceChangeLeavesDocumentsAlone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cust := h.customer(t, "Farah")
	bag := h.item(t, "Bag", "250", "12", "10")

	inv, err := h.invoices.Create(ctx, h.sess, core.CreateInvoiceInput{
		Type: core.DocSale, PartyID: &cust.ID, IsGST: true, Lines: []core.LineInput{catalogLine(bag.ID, "2")},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	assertDecimal(t, "grand total", inv.GrandTotal, "560")

	if _, err := h.itemSvc.Update(ctx, h.sess, bag.ID, core.UpdateItemInput{SalePrice: ptr(d("300")), GSTRate: ptr(d("18"))}); err != nil {
		t.Fatalf("Update item: %v", err)
	}

	check := func(t *testing.T, got *core.Invoice) {
		t.Helper()
		if len(got.Lines) != 1 {
			t.Fatalf("expected 1 line, got %d", len(got.Lines))
		}
		assertDecimal(t, "line rate", got.Lines[0].Rate, "250")
		assertDecimal(t, "line gst", got.Lines[0].GSTRate, "12")
		assertDecimal(t, "grand total", got.GrandTotal, "560")
		assertDecimal(t, "tax", got.TotalTax, "60")
	}

	stored, err := h.invoices.Get(ctx, h.sess, inv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	check(t, stored)

	// An edit that leaves the lines alone keeps the billed rates.
	edited, err := h.invoices.Update(ctx, h.sess, inv.ID, core.UpdateInvoiceInput{Notes: ptr("deliver Monday")})
	if err != nil {
		t.Fatalf("Update invoice: %v", err)
	}
	check(t, edited)
	stored, err = h.invoices.Get(ctx, h.sess, inv.ID)
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	check(t, stored)
	assertDecimal(t, "party balance", h.partyBalance(t, cust.ID), "560")
	assertDecimal(t, "stock", h.stockOf(t, bag.ID), "8")
}

func TestExpenseService_Update(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	bank, err := h.accountSvc.Create(ctx, h.sess, core.CreateAccountInput{
		Type: core.AccountBank, Name: "Current A/c", BankName: "HDFC", OpeningBalance: d("5000"),
	})
	if err != nil {
		t.Fatalf("Create bank: %v", err)
	}
	assertBank := func(what, want string) {
		t.Helper()
		a, err := h.accountSvc.Get(ctx, h.sess, bank.ID)
		if err != nil {
			t.Fatalf("Get bank: %v", err)
		}
		assertDecimal(t, what, a.Balance, want)
	}

	e, err := h.expenses.Add(ctx, h.sess, core.AddExpenseInput{Category: "Rent", Amount: d("8000"), Date: "2024-03-01", AccountID: &h.cashID})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	steps := []struct {
		name     string
		in       core.UpdateExpenseInput
		wantCash string
		wantBank string
	}{
		{"raise amount", core.UpdateExpenseInput{Amount: ptr(d("9000"))}, "-9000", "5000"},
		{"lower amount", core.UpdateExpenseInput{Amount: ptr(d("7500"))}, "-7500", "5000"},
		{"move to bank", core.UpdateExpenseInput{AccountID: &bank.ID}, "0", "-2500"},
		{"notes only", core.UpdateExpenseInput{Notes: ptr("March rent")}, "0", "-2500"},
		{"detach account", core.UpdateExpenseInput{ClearAccount: true}, "0", "5000"},
	}
	for _, tt := range steps {
		if _, err := h.expenses.Update(ctx, h.sess, e.ID, tt.in); err != nil {
			t.Fatalf("%s: Update: %v", tt.name, err)
		}
		assertDecimal(t, tt.name+": cash", h.cashBalance(t), tt.wantCash)
		assertBank(tt.name+": bank", tt.wantBank)
	}

	stored, err := h.expenses.List(ctx, h.sess, core.DateRange{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(stored) != 1 || stored[0].Notes != "March rent" || stored[0].AccountID != nil || !stored[0].Amount.Equal(d("7500")) {
		t.Errorf("unexpected stored expense: %+v", stored)
	}

	if _, err := h.expenses.Update(ctx, h.sess, e.ID, core.UpdateExpenseInput{Amount: ptr(d("0"))}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected ErrValidation for zero amount, got %v", err)
	}
	if _, err := h.expenses.Update(ctx, h.sess, e.ID, core.UpdateExpenseInput{AccountID: &h.cashID, ClearAccount: true}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected ErrValidation setting and clearing the account, got %v", err)
	}
	if _, err := h.expenses.Update(ctx, h.sess, e.ID+100, core.UpdateExpenseInput{Notes: ptr("x")}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
