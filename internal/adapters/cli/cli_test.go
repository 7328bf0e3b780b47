package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"bizbiller/internal/app"
	"bizbiller/internal/config"
	"bizbiller/internal/core"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		in       string
		wantItem int64
		wantName string
		wantQty  string
		wantRate string
		wantErr  bool
	}{
		{in: "item=3,qty=2", wantItem: 3, wantQty: "2"},
		{in: "item=3, qty=1.5, rate=99.90, gst=18", wantItem: 3, wantQty: "1.5", wantRate: "99.9"},
		{in: "name=Labour,qty=1,rate=500", wantName: "Labour", wantQty: "1", wantRate: "500"},
		{in: "item=3", wantErr: true},
		{in: "item=abc,qty=1", wantErr: true},
		{in: "item=3,qty=two", wantErr: true},
		{in: "colour=red,qty=1", wantErr: true},
		{in: "qty", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			l, err := parseLine(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", l)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseLine: %v", err)
			}
			if tt.wantItem != 0 && (l.ItemID == nil || *l.ItemID != tt.wantItem) {
				t.Errorf("item = %v, want %d", l.ItemID, tt.wantItem)
			}
			if l.Name != tt.wantName {
				t.Errorf("name = %q, want %q", l.Name, tt.wantName)
			}
			if !l.Quantity.Equal(decimal.RequireFromString(tt.wantQty)) {
				t.Errorf("qty = %s, want %s", l.Quantity, tt.wantQty)
			}
			if tt.wantRate != "" && (l.Rate == nil || !l.Rate.Equal(decimal.RequireFromString(tt.wantRate))) {
				t.Errorf("rate = %v, want %s", l.Rate, tt.wantRate)
			}
		})
	}
}

// cliHarness runs commands against one in-memory database shared across invocations.
type cliHarness struct {
	shared *app.App
	cfg    *config.Config
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	cfg := &config.Config{
		DBDriver:    config.DriverSQLite,
		SQLitePath:  "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		PhoneRegion: "IN",
	}
	shared, err := app.New(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	t.Cleanup(shared.Close)
	return &cliHarness{shared: shared, cfg: cfg}
}

func (h *cliHarness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(Options{
		Config: h.cfg,
		Log:    zerolog.Nop(),
		// The shared app outlives each command, so hand out a copy without closers.
		Open: func(context.Context, *config.Config, zerolog.Logger) (*app.App, error) {
			return &app.App{Service: h.shared.Service, Store: h.shared.Store}, nil
		},
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *cliHarness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := h.run(t, args...)
	if err != nil {
		t.Fatalf("bizbiller %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func decodeJSON[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	return v
}

func TestCLI_InvoiceLifecycle(t *testing.T) {
	h := newCLIHarness(t)

	b := decodeJSON[core.Business](t, h.mustRun(t, "--json", "business", "create", "Rao Stationers"))
	bid := "--business=" + strconv.FormatInt(b.ID, 10)

	party := decodeJSON[core.Party](t, h.mustRun(t, bid, "--json", "party", "add", "customer", "Kavya"))
	item := decodeJSON[core.Item](t, h.mustRun(t, bid, "--json", "item", "add", "Notebook",
		"--sale-price", "40", "--gst", "12", "--stock", "100"))

	inv := decodeJSON[app.InvoiceResult](t, h.mustRun(t, bid, "--json", "invoice", "create",
		"--party", strconv.FormatInt(party.ID, 10), "--gst", "--date", "2024-07-01",
		"--line", "item="+strconv.FormatInt(item.ID, 10)+",qty=10"))
	// 10 × 40 = 400, 12% GST = 48
	if !inv.Invoice.GrandTotal.Equal(decimal.NewFromInt(448)) {
		t.Errorf("grand total = %s, want 448", inv.Invoice.GrandTotal)
	}
	if inv.Invoice.Number != "INV00001" {
		t.Errorf("number = %q, want INV00001", inv.Invoice.Number)
	}
	invID := strconv.FormatInt(inv.Invoice.ID, 10)

	paid := decodeJSON[app.InvoiceResult](t, h.mustRun(t, bid, "--json", "invoice", "pay", invID, "148", "--key", "till-7"))
	if paid.Invoice.Status != core.StatusPartial || !paid.Invoice.Due.Equal(decimal.NewFromInt(300)) {
		t.Errorf("after payment: status %s due %s", paid.Invoice.Status, paid.Invoice.Due)
	}
	// Same key again does not pay twice.
	again := decodeJSON[app.InvoiceResult](t, h.mustRun(t, bid, "--json", "invoice", "pay", invID, "148", "--key", "till-7"))
	if !again.Invoice.Paid.Equal(decimal.NewFromInt(148)) {
		t.Errorf("paid after replay = %s, want 148", again.Invoice.Paid)
	}

	text := h.mustRun(t, bid, "invoice", "show", invID)
	if !strings.Contains(text, "SALE INV00001") || !strings.Contains(text, "448.00") {
		t.Errorf("unexpected invoice text:\n%s", text)
	}

	out := h.mustRun(t, bid, "report", "outstanding")
	if !strings.Contains(out, "Kavya (receivable)") || !strings.Contains(out, "300.00") {
		t.Errorf("unexpected outstanding report:\n%s", out)
	}

	h.mustRun(t, bid, "invoice", "delete", invID)
	items := decodeJSON[[]core.Item](t, h.mustRun(t, bid, "--json", "item", "list"))
	if len(items) != 1 || !items[0].Stock.Equal(decimal.NewFromInt(100)) {
		t.Errorf("stock not restored after delete: %+v", items)
	}
}

func TestCLI_Errors(t *testing.T) {
	h := newCLIHarness(t)

	if _, err := h.run(t, "item", "list"); err == nil || !strings.Contains(err.Error(), "no business selected") {
		t.Errorf("expected missing business error, got %v", err)
	}
	b := decodeJSON[core.Business](t, h.mustRun(t, "--json", "business", "create", "Singh Auto Parts"))
	bid := "--business=" + strconv.FormatInt(b.ID, 10)

	if _, err := h.run(t, bid, "invoice", "show", "abc"); err == nil {
		t.Error("expected error for a non-numeric invoice id")
	}
	if _, err := h.run(t, bid, "report", "balance-sheet"); err == nil {
		t.Error("expected error for an unknown report")
	}
	if _, err := h.run(t, bid, "stock", "adjust", "1", "decrease", "5"); err == nil {
		t.Error("expected error adjusting a missing item")
	}
}

func TestCLI_CatalogEditsAndPending(t *testing.T) {
	h := newCLIHarness(t)

	b := decodeJSON[core.Business](t, h.mustRun(t, "--json", "business", "create", "Iyer Electricals"))
	bid := "--business=" + strconv.FormatInt(b.ID, 10)

	party := decodeJSON[core.Party](t, h.mustRun(t, bid, "--json", "party", "add", "customer", "Meena"))
	item := decodeJSON[core.Item](t, h.mustRun(t, bid, "--json", "item", "add", "LED Bulb",
		"--sale-price", "120", "--stock", "50"))
	itemID := strconv.FormatInt(item.ID, 10)

	inv := decodeJSON[app.InvoiceResult](t, h.mustRun(t, bid, "--json", "invoice", "create",
		"--party", strconv.FormatInt(party.ID, 10), "--line", "item="+itemID+",qty=5"))

	updated := decodeJSON[core.Item](t, h.mustRun(t, bid, "--json", "item", "update", itemID, "--sale-price", "150"))
	if !updated.SalePrice.Equal(decimal.NewFromInt(150)) || updated.Name != "LED Bulb" {
		t.Errorf("unexpected item after update: %+v", updated)
	}
	if !updated.Stock.Equal(decimal.NewFromInt(45)) {
		t.Errorf("stock = %s, want 45", updated.Stock)
	}

	found := decodeJSON[[]core.Item](t, h.mustRun(t, bid, "--json", "item", "search", "led"))
	if len(found) != 1 || found[0].ID != item.ID {
		t.Errorf("unexpected search result: %+v", found)
	}

	if _, err := h.run(t, bid, "item", "delete", itemID); err == nil {
		t.Error("expected error deleting an item used on an invoice")
	}

	out := h.mustRun(t, bid, "invoice", "pending")
	if !strings.Contains(out, inv.Invoice.Number) || !strings.Contains(out, "1 pending, 600.00 due") {
		t.Errorf("unexpected pending output:\n%s", out)
	}
}
