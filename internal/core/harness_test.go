package core_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"bizbiller/internal/core"
	"bizbiller/internal/store/sqlitestore"
)

// recordingNotifier keeps every low-stock event it receives.
type recordingNotifier struct {
	mu     sync.Mutex
	events []core.LowStockEvent
}

func (n *recordingNotifier) LowStock(_ context.Context, ev core.LowStockEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) Events() []core.LowStockEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]core.LowStockEvent(nil), n.events...)
}

// harness wires every service over a private in-memory database with one business.
type harness struct {
	store    *sqlitestore.Store
	sess     core.Session
	notifier *recordingNotifier

	businesses core.BusinessService
	settings   core.SettingsService
	seq        core.SequenceAllocator
	stock      core.StockLedger
	parties    core.PartyLedger
	accounts   core.AccountLedger
	invoices   core.InvoiceService
	partySvc   core.PartyService
	itemSvc    core.ItemService
	accountSvc core.AccountService
	expenses   core.ExpenseService
	reports    core.ReportingService

	cashID int64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := sqlitestore.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	locker := core.NewLocalLocker()
	notifier := &recordingNotifier{}
	log := zerolog.Nop()

	h := &harness{store: store, notifier: notifier}
	h.businesses = core.NewBusinessService(store, "IN")
	h.settings = core.NewSettingsService(store, locker)
	h.seq = core.NewSequenceAllocator(store, locker)
	h.stock = core.NewStockLedger(store, locker, notifier)
	h.parties = core.NewPartyLedger(store, locker)
	h.accounts = core.NewAccountLedger(store, locker)
	h.invoices = core.NewInvoiceService(store, locker, h.seq, h.stock, h.parties, h.accounts, notifier, log)
	h.partySvc = core.NewPartyService(store, locker, "IN")
	h.itemSvc = core.NewItemService(store, locker)
	h.accountSvc = core.NewAccountService(store, locker)
	h.expenses = core.NewExpenseService(store, locker, h.accounts, log)
	h.reports = core.NewReportingService(store)

	ctx := context.Background()
	b, err := h.businesses.Create(ctx, core.CreateBusinessInput{Name: "Sharma General Store"})
	if err != nil {
		t.Fatalf("failed to create business: %v", err)
	}
	h.sess = core.Session{BusinessID: b.ID, User: "test"}

	accounts, err := h.accountSvc.List(ctx, h.sess)
	if err != nil || len(accounts) == 0 {
		t.Fatalf("expected default cash account, got %v (err %v)", accounts, err)
	}
	h.cashID = accounts[0].ID
	return h
}

func (h *harness) customer(t *testing.T, name string) *core.Party {
	t.Helper()
	p, err := h.partySvc.Create(context.Background(), h.sess, core.CreatePartyInput{Type: core.PartyCustomer, Name: name})
	if err != nil {
		t.Fatalf("failed to create customer: %v", err)
	}
	return p
}

func (h *harness) supplier(t *testing.T, name string) *core.Party {
	t.Helper()
	p, err := h.partySvc.Create(context.Background(), h.sess, core.CreatePartyInput{Type: core.PartySupplier, Name: name})
	if err != nil {
		t.Fatalf("failed to create supplier: %v", err)
	}
	return p
}

func (h *harness) item(t *testing.T, name string, salePrice, gst, stock string) *core.Item {
	t.Helper()
	it, err := h.itemSvc.Create(context.Background(), h.sess, core.CreateItemInput{
		Name:          name,
		SalePrice:     d(salePrice),
		PurchasePrice: d(salePrice),
		GSTRate:       d(gst),
		OpeningStock:  d(stock),
	})
	if err != nil {
		t.Fatalf("failed to create item: %v", err)
	}
	return it
}

func (h *harness) partyBalance(t *testing.T, id int64) decimal.Decimal {
	t.Helper()
	p, err := h.store.GetParty(context.Background(), h.sess.BusinessID, id)
	if err != nil {
		t.Fatalf("GetParty: %v", err)
	}
	return p.Balance
}

func (h *harness) stockOf(t *testing.T, id int64) decimal.Decimal {
	t.Helper()
	it, err := h.store.GetItem(context.Background(), h.sess.BusinessID, id)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	return it.Stock
}

func (h *harness) cashBalance(t *testing.T) decimal.Decimal {
	t.Helper()
	a, err := h.store.GetAccount(context.Background(), h.sess.BusinessID, h.cashID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	return a.Balance
}

func catalogLine(itemID int64, qty string) core.LineInput {
	id := itemID
	return core.LineInput{ItemID: &id, Quantity: d(qty)}
}

func ratedLine(itemID int64, qty, rate, gst string) core.LineInput {
	l := catalogLine(itemID, qty)
	r, g := d(rate), d(gst)
	l.Rate, l.GSTRate = &r, &g
	return l
}

func ptr[T any](v T) *T { return &v }

func assertDecimal(t *testing.T, what string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Errorf("%s = %s, want %s", what, got, want)
	}
}
