package sqlitestore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bizbiller/internal/core"
	"bizbiller/internal/store/sqlitestore"
)

func openStore(t *testing.T) *sqlitestore.Store {
	t.Helper()
	s, err := sqlitestore.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedBusiness(t *testing.T, s *sqlitestore.Store) int64 {
	t.Helper()
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)
	id, err := tx.InsertBusiness(ctx, &core.Business{Name: "Test Traders"})
	if err != nil {
		t.Fatalf("insert business: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return id
}

func TestNextSequence(t *testing.T) {
	s := openStore(t)
	bid := seedBusiness(t, s)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	for want := int64(1); want <= 3; want++ {
		n, err := tx.NextSequence(ctx, bid, "sale")
		if err != nil {
			t.Fatalf("NextSequence: %v", err)
		}
		if n != want {
			t.Errorf("sale sequence = %d, want %d", n, want)
		}
	}
	n, err := tx.NextSequence(ctx, bid, "purchase")
	if err != nil {
		t.Fatalf("NextSequence: %v", err)
	}
	if n != 1 {
		t.Errorf("purchase sequence = %d, want 1 (series are independent)", n)
	}
}

func TestRollbackDiscardsWrites(t *testing.T) {
	s := openStore(t)
	bid := seedBusiness(t, s)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.NextSequence(ctx, bid, "sale"); err != nil {
		t.Fatalf("NextSequence: %v", err)
	}
	if _, err := tx.InsertParty(ctx, &core.Party{BusinessID: bid, Type: core.PartyCustomer, Name: "Ravi"}); err != nil {
		t.Fatalf("InsertParty: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	parties, err := s.ListParties(ctx, bid, "")
	if err != nil {
		t.Fatalf("ListParties: %v", err)
	}
	if len(parties) != 0 {
		t.Errorf("expected no parties after rollback, got %d", len(parties))
	}

	tx, err = s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)
	n, err := tx.NextSequence(ctx, bid, "sale")
	if err != nil {
		t.Fatalf("NextSequence: %v", err)
	}
	if n != 1 {
		t.Errorf("sequence after rollback = %d, want 1", n)
	}
}

func TestAddItemStock(t *testing.T) {
	s := openStore(t)
	bid := seedBusiness(t, s)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	id, err := tx.InsertItem(ctx, &core.Item{BusinessID: bid, Name: "Rice", Stock: decimal.RequireFromString("2.5")})
	if err != nil {
		t.Fatalf("InsertItem: %v", err)
	}

	got, err := tx.AddItemStock(ctx, bid, id, decimal.RequireFromString("0.1"))
	if err != nil {
		t.Fatalf("AddItemStock: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("2.6")) {
		t.Errorf("stock = %s, want 2.6", got)
	}

	_, err = tx.AddItemStock(ctx, bid, id, decimal.RequireFromString("-3"))
	if !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	it, err := tx.GetItem(ctx, bid, id)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if !it.Stock.Equal(decimal.RequireFromString("2.6")) {
		t.Errorf("stock changed on refused decrease: %s", it.Stock)
	}
}

func TestGetScopedToBusiness(t *testing.T) {
	s := openStore(t)
	a := seedBusiness(t, s)
	b := seedBusiness(t, s)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	id, err := tx.InsertAccount(ctx, &core.Account{BusinessID: a, Type: core.AccountCash, Name: "Cash"})
	if err != nil {
		t.Fatalf("InsertAccount: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if _, err := s.GetAccount(ctx, a, id); err != nil {
		t.Fatalf("GetAccount own business: %v", err)
	}
	_, err = s.GetAccount(ctx, b, id)
	var nf *core.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError for other business, got %v", err)
	}
	if nf.Entity != "account" || nf.ID != id {
		t.Errorf("unexpected not-found detail: %+v", nf)
	}
}

func TestInvoiceRoundTrip(t *testing.T) {
	s := openStore(t)
	bid := seedBusiness(t, s)
	ctx := context.Background()

	itemID := int64(7)
	inv := &core.Invoice{
		BusinessID: bid,
		Type:       core.DocSale,
		Number:     "INV00001",
		Date:       "2024-03-15",
		PartyName:  "Walk-in",
		IsGST:      true,
		Lines: []core.LineItem{
			{ItemID: &itemID, Name: "Pen", Unit: "pcs", Quantity: decimal.NewFromInt(2), Rate: decimal.RequireFromString("10.50"), GSTRate: decimal.NewFromInt(18)},
			{Name: "Service", Unit: "hr", Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(100)},
		},
		Totals: core.Totals{GrandTotal: decimal.RequireFromString("124.78")},
		Status: core.StatusUnpaid,
		Due:    decimal.RequireFromString("124.78"),
	}

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	id, err := tx.InsertInvoice(ctx, inv)
	if err != nil {
		t.Fatalf("InsertInvoice: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := s.GetInvoice(ctx, bid, id)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if got.Number != "INV00001" || got.Date != "2024-03-15" || !got.IsGST {
		t.Errorf("header mismatch: %+v", got)
	}
	if !got.GrandTotal.Equal(decimal.RequireFromString("124.78")) {
		t.Errorf("grand total = %s", got.GrandTotal)
	}
	if len(got.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(got.Lines))
	}
	if got.Lines[0].ItemID == nil || *got.Lines[0].ItemID != itemID {
		t.Errorf("line 0 item id lost")
	}
	if got.Lines[1].ItemID != nil {
		t.Errorf("line 1 should be free-form")
	}
	if !got.Lines[0].Rate.Equal(decimal.RequireFromString("10.5")) {
		t.Errorf("line 0 rate = %s", got.Lines[0].Rate)
	}

	list, err := s.ListInvoices(ctx, bid, core.InvoiceFilter{Type: core.DocSale, From: "2024-03-01", To: "2024-03-31"})
	if err != nil {
		t.Fatalf("ListInvoices: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 invoice in range, got %d", len(list))
	}
	list, err = s.ListInvoices(ctx, bid, core.InvoiceFilter{From: "2024-04-01"})
	if err != nil {
		t.Fatalf("ListInvoices: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected 0 invoices after range, got %d", len(list))
	}
}

func TestDuplicateInvoiceNumberRejected(t *testing.T) {
	s := openStore(t)
	bid := seedBusiness(t, s)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	inv := &core.Invoice{BusinessID: bid, Type: core.DocSale, Number: "INV00001", Date: "2024-01-01"}
	if _, err := tx.InsertInvoice(ctx, inv); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err = tx.InsertInvoice(ctx, inv)
	if !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("expected persistence error on duplicate number, got %v", err)
	}
}
