package pgstore_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"bizbiller/internal/core"
	"bizbiller/internal/db"
	"bizbiller/internal/store/pgstore"
)

// setupTestDB connects to TEST_DATABASE_URL and applies migrations.
// Tests that call it are skipped when the variable is unset.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := pgstore.Migrate(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return pool
}

func seedBusiness(t *testing.T, s *pgstore.Store) int64 {
	t.Helper()
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)
	id, err := tx.InsertBusiness(ctx, &core.Business{Name: fmt.Sprintf("pgstore-test-%d", time.Now().UnixNano())})
	if err != nil {
		t.Fatalf("insert business: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return id
}

func TestPGStore_MigrateIsIdempotent(t *testing.T) {
	pool := setupTestDB(t)
	if err := pgstore.Migrate(context.Background(), pool, zerolog.Nop()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestPGStore_SequenceAndStock(t *testing.T) {
	s := pgstore.New(setupTestDB(t))
	bid := seedBusiness(t, s)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	for want := int64(1); want <= 2; want++ {
		n, err := tx.NextSequence(ctx, bid, "sale")
		if err != nil {
			t.Fatalf("NextSequence: %v", err)
		}
		if n != want {
			t.Errorf("sequence = %d, want %d", n, want)
		}
	}

	itemID, err := tx.InsertItem(ctx, &core.Item{BusinessID: bid, Name: "Sugar", Unit: "kg", Stock: decimal.RequireFromString("1.25")})
	if err != nil {
		t.Fatalf("InsertItem: %v", err)
	}
	stock, err := tx.AddItemStock(ctx, bid, itemID, decimal.RequireFromString("-1.25"))
	if err != nil {
		t.Fatalf("AddItemStock to zero: %v", err)
	}
	if !stock.IsZero() {
		t.Errorf("stock = %s, want 0", stock)
	}
	if _, err := tx.AddItemStock(ctx, bid, itemID, decimal.RequireFromString("-0.01")); !errors.Is(err, core.ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got %v", err)
	}
	if _, err := tx.AddItemStock(ctx, bid, itemID+1_000_000, decimal.NewFromInt(1)); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing item, got %v", err)
	}
}

func TestPGStore_InvoiceWithLines(t *testing.T) {
	s := pgstore.New(setupTestDB(t))
	bid := seedBusiness(t, s)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	id, err := tx.InsertInvoice(ctx, &core.Invoice{
		BusinessID: bid, Type: core.DocSale, Number: "INV00001", Date: "2024-05-01",
		Lines: []core.LineItem{
			{Name: "Pen", Quantity: decimal.NewFromInt(3), Rate: decimal.RequireFromString("12.5"), GSTRate: decimal.NewFromInt(12)},
		},
		Totals: core.Totals{GrandTotal: decimal.NewFromInt(42)},
		Due:    decimal.NewFromInt(42),
		Status: core.StatusUnpaid,
	})
	if err != nil {
		t.Fatalf("InsertInvoice: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	inv, err := s.GetInvoice(ctx, bid, id)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if inv.Date != "2024-05-01" {
		t.Errorf("date = %q", inv.Date)
	}
	if len(inv.Lines) != 1 || !inv.Lines[0].Rate.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("unexpected lines: %+v", inv.Lines)
	}
}
