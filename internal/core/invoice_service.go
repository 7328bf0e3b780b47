package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LineInput is a line as submitted by a caller. Lines that reference a catalog
// item take name, unit, rate and GST rate from it unless overridden here.
type LineInput struct {
	ItemID   *int64           `json:"item_id,omitempty" validate:"omitempty,gt=0"`
	Name     string           `json:"name" validate:"required_without=ItemID,max=200"`
	Unit     string           `json:"unit" validate:"max=20"`
	Quantity decimal.Decimal  `json:"quantity"`
	Rate     *decimal.Decimal `json:"rate,omitempty"`
	GSTRate  *decimal.Decimal `json:"gst_rate,omitempty"`
}

type CreateInvoiceInput struct {
	Type            DocumentType    `json:"type" validate:"required,oneof=sale purchase estimate proforma challan"`
	Date            string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	PartyID         *int64          `json:"party_id,omitempty" validate:"omitempty,gt=0"`
	IsGST           bool            `json:"is_gst"`
	Lines           []LineInput     `json:"lines" validate:"required,min=1,dive"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	Paid            decimal.Decimal `json:"paid"`
	PaymentMode     string          `json:"payment_mode" validate:"max=30"`
	AccountID       *int64          `json:"account_id,omitempty" validate:"omitempty,gt=0"` // account receiving Paid
	Notes           string          `json:"notes" validate:"max=2000"`
}

// UpdateInvoiceInput changes an invoice. Nil fields are left as they are.
type UpdateInvoiceInput struct {
	Date            *string          `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PartyID         *int64           `json:"party_id,omitempty" validate:"omitempty,gt=0"`
	ClearParty      bool             `json:"clear_party"`
	IsGST           *bool            `json:"is_gst,omitempty"`
	Lines           []LineInput      `json:"lines,omitempty" validate:"omitempty,min=1,dive"`
	DiscountPercent *decimal.Decimal `json:"discount_percent,omitempty"`
	DiscountAmount  *decimal.Decimal `json:"discount_amount,omitempty"`
	PaymentMode     *string          `json:"payment_mode,omitempty" validate:"omitempty,max=30"`
	Notes           *string          `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type PaymentInput struct {
	Amount    decimal.Decimal `json:"amount"`
	Mode      string          `json:"mode" validate:"max=30"`
	Date      string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Reference string          `json:"reference" validate:"max=100"`
	AccountID *int64          `json:"account_id,omitempty" validate:"omitempty,gt=0"`
	// IdempotencyKey makes resubmission safe: a key already recorded for the
	// same invoice returns the invoice without paying again. Generated when empty.
	IdempotencyKey string `json:"idempotency_key" validate:"max=64"`
}

// InvoiceService owns the invoice lifecycle and is the only caller that moves
// several ledgers at once. Every mutation holds the business lock and runs in
// one storage transaction.
type InvoiceService interface {
	Create(ctx context.Context, sess Session, in CreateInvoiceInput) (*Invoice, error)
	Update(ctx context.Context, sess Session, invoiceID int64, in UpdateInvoiceInput) (*Invoice, error)
	Delete(ctx context.Context, sess Session, invoiceID int64) error
	RecordPayment(ctx context.Context, sess Session, invoiceID int64, in PaymentInput) (*Invoice, error)
	// ConvertEstimate creates a sale carrying the estimate's lines and discount.
	ConvertEstimate(ctx context.Context, sess Session, estimateID int64, date string) (*Invoice, error)

	Get(ctx context.Context, sess Session, invoiceID int64) (*Invoice, error)
	List(ctx context.Context, sess Session, f InvoiceFilter) ([]Invoice, error)
	// Pending lists unpaid and partially paid sales and purchases, or only
	// those of docType when it is set.
	Pending(ctx context.Context, sess Session, docType DocumentType) ([]Invoice, error)
	Payments(ctx context.Context, sess Session, invoiceID int64) ([]Transaction, error)
}

type invoiceService struct {
	store    Store
	locker   BusinessLocker
	seq      SequenceAllocator
	stock    StockLedger
	parties  PartyLedger
	accounts AccountLedger
	notifier Notifier
	log      zerolog.Logger
}

func NewInvoiceService(store Store, locker BusinessLocker, seq SequenceAllocator, stock StockLedger,
	parties PartyLedger, accounts AccountLedger, notifier Notifier, log zerolog.Logger) InvoiceService {
	return &invoiceService{
		store:    store,
		locker:   locker,
		seq:      seq,
		stock:    stock,
		parties:  parties,
		accounts: accounts,
		notifier: notifier,
		log:      log,
	}
}

// ── Create ──────────────────────────────────────────────────────────────────

func (s *invoiceService) Create(ctx context.Context, sess Session, in CreateInvoiceInput) (*Invoice, error) {
	if err := validateCreateInput(in); err != nil {
		return nil, err
	}

	unlock, err := lockBusiness(ctx, s.locker, sess)
	if err != nil {
		return nil, err
	}
	defer unlock()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inv, events, err := s.createTx(ctx, tx, sess, in, nil)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit invoice creation: %w", err)
	}

	notifyAll(ctx, s.notifier, events)
	s.log.Info().
		Int64("business_id", sess.BusinessID).
		Int64("invoice_id", inv.ID).
		Str("number", inv.Number).
		Str("type", string(inv.Type)).
		Str("grand_total", inv.GrandTotal.String()).
		Str("status", string(inv.Status)).
		Msg("invoice created")
	return inv, nil
}

func (s *invoiceService) createTx(ctx context.Context, tx Tx, sess Session, in CreateInvoiceInput, sourceID *int64) (*Invoice, []LowStockEvent, error) {
	inv := &Invoice{
		BusinessID:      sess.BusinessID,
		Type:            in.Type,
		Date:            dateOrToday(in.Date),
		IsGST:           in.IsGST,
		DiscountPercent: in.DiscountPercent,
		DiscountAmount:  in.DiscountAmount,
		PaymentMode:     in.PaymentMode,
		Notes:           in.Notes,
		SourceID:        sourceID,
	}

	if err := s.assignParty(ctx, tx, sess, inv, in.PartyID); err != nil {
		return nil, nil, err
	}

	lines, err := snapshotLines(ctx, tx, sess.BusinessID, in.Type, in.Lines)
	if err != nil {
		return nil, nil, err
	}
	inv.Lines = lines
	if err := applyTotals(inv); err != nil {
		return nil, nil, err
	}
	if err := checkStockAvailable(ctx, tx, sess.BusinessID, inv); err != nil {
		return nil, nil, err
	}

	number, err := s.seq.NextNumberTx(ctx, tx, sess, in.Type)
	if err != nil {
		return nil, nil, err
	}
	inv.Number = number

	now := time.Now().UTC()
	inv.CreatedAt, inv.UpdatedAt = now, now
	id, err := tx.InsertInvoice(ctx, inv)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert invoice: %w", err)
	}
	inv.ID = id

	events, err := s.applyDocumentEffects(ctx, tx, sess, inv, false)
	if err != nil {
		return nil, nil, err
	}

	if in.Paid.IsPositive() {
		payment := PaymentInput{
			Amount:    in.Paid,
			Mode:      in.PaymentMode,
			Date:      inv.Date,
			AccountID: in.AccountID,
		}
		if _, err := s.recordPaymentTx(ctx, tx, sess, inv, payment); err != nil {
			return nil, nil, err
		}
	}
	return inv, events, nil
}

// ── Update ──────────────────────────────────────────────────────────────────

// Update recomputes totals from scratch and moves the ledgers by the
// difference between the stored document and the new one, in the same
// transaction. Payments stay attached and are not replayed.
func (s *invoiceService) Update(ctx context.Context, sess Session, invoiceID int64, in UpdateInvoiceInput) (*Invoice, error) {
	if err := validateUpdateInput(in); err != nil {
		return nil, err
	}

	unlock, err := lockBusiness(ctx, s.locker, sess)
	if err != nil {
		return nil, err
	}
	defer unlock()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	old, err := tx.GetInvoice(ctx, sess.BusinessID, invoiceID)
	if err != nil {
		return nil, err
	}

	next := *old
	if in.Date != nil {
		next.Date = *in.Date
	}
	if in.IsGST != nil {
		next.IsGST = *in.IsGST
	}
	if in.DiscountPercent != nil {
		next.DiscountPercent = *in.DiscountPercent
	}
	if in.DiscountAmount != nil {
		next.DiscountAmount = *in.DiscountAmount
	}
	if in.PaymentMode != nil {
		next.PaymentMode = *in.PaymentMode
	}
	if in.Notes != nil {
		next.Notes = *in.Notes
	}

	switch {
	case in.ClearParty:
		next.PartyID, next.PartyName = nil, ""
	case in.PartyID != nil:
		if err := s.assignParty(ctx, tx, sess, &next, in.PartyID); err != nil {
			return nil, err
		}
	}
	if !sameRef(old.PartyID, next.PartyID) && old.Paid.IsPositive() {
		return nil, newValidationError("party_id", "cannot change the party of invoice %s: payments are recorded against it", old.Number)
	}

	if in.Lines != nil {
		lines, err := snapshotLines(ctx, tx, sess.BusinessID, next.Type, in.Lines)
		if err != nil {
			return nil, err
		}
		next.Lines = lines
	}
	if err := applyTotals(&next); err != nil {
		return nil, err
	}

	events, err := s.applyUpdateEffects(ctx, tx, sess, old, &next)
	if err != nil {
		return nil, err
	}

	next.UpdatedAt = time.Now().UTC()
	if err := tx.UpdateInvoice(ctx, &next); err != nil {
		return nil, fmt.Errorf("failed to update invoice: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit invoice update: %w", err)
	}

	notifyAll(ctx, s.notifier, events)
	s.log.Info().
		Int64("business_id", sess.BusinessID).
		Int64("invoice_id", next.ID).
		Str("number", next.Number).
		Str("grand_total", next.GrandTotal.String()).
		Msg("invoice updated")
	return &next, nil
}

// ── Delete ──────────────────────────────────────────────────────────────────

// Delete reverses every payment and the document's own effects, then removes
// the invoice and its transactions.
func (s *invoiceService) Delete(ctx context.Context, sess Session, invoiceID int64) error {
	unlock, err := lockBusiness(ctx, s.locker, sess)
	if err != nil {
		return err
	}
	defer unlock()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inv, err := tx.GetInvoice(ctx, sess.BusinessID, invoiceID)
	if err != nil {
		return err
	}
	if inv.Type == DocEstimate {
		sale, err := convertedSale(ctx, tx, sess.BusinessID, inv.ID)
		if err != nil {
			return err
		}
		if sale != nil {
			return newValidationError("invoice", "estimate %s was converted to %s; delete the sale first", inv.Number, sale.Number)
		}
	}

	payments, err := tx.ListTransactions(ctx, sess.BusinessID, TransactionFilter{InvoiceID: &inv.ID})
	if err != nil {
		return fmt.Errorf("failed to load payments of invoice %s: %w", inv.Number, err)
	}
	for _, p := range payments {
		if err := s.reversePayment(ctx, tx, sess, inv, p); err != nil {
			return err
		}
	}

	events, err := s.applyDocumentEffects(ctx, tx, sess, inv, true)
	if err != nil {
		return fmt.Errorf("failed to reverse effects of invoice %s: %w", inv.Number, err)
	}

	if err := tx.DeleteInvoiceTransactions(ctx, sess.BusinessID, inv.ID); err != nil {
		return fmt.Errorf("failed to delete payments: %w", err)
	}
	if err := tx.DeleteInvoice(ctx, sess.BusinessID, inv.ID); err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit invoice deletion: %w", err)
	}

	notifyAll(ctx, s.notifier, events)
	s.log.Info().
		Int64("business_id", sess.BusinessID).
		Int64("invoice_id", inv.ID).
		Str("number", inv.Number).
		Int("payments_reversed", len(payments)).
		Msg("invoice deleted")
	return nil
}

// ── Payments ────────────────────────────────────────────────────────────────

func (s *invoiceService) RecordPayment(ctx context.Context, sess Session, invoiceID int64, in PaymentInput) (*Invoice, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := requirePositive("amount", in.Amount); err != nil {
		return nil, err
	}

	unlock, err := lockBusiness(ctx, s.locker, sess)
	if err != nil {
		return nil, err
	}
	defer unlock()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if in.IdempotencyKey != "" {
		prior, err := tx.FindTransactionByKey(ctx, sess.BusinessID, in.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if prior != nil {
			if prior.InvoiceID == nil || *prior.InvoiceID != invoiceID {
				return nil, newValidationError("idempotency_key", "key %q was already used for another payment", in.IdempotencyKey)
			}
			s.log.Debug().Str("idempotency_key", in.IdempotencyKey).Msg("payment already recorded")
			return tx.GetInvoice(ctx, sess.BusinessID, invoiceID)
		}
	}

	inv, err := tx.GetInvoice(ctx, sess.BusinessID, invoiceID)
	if err != nil {
		return nil, err
	}
	txn, err := s.recordPaymentTx(ctx, tx, sess, inv, in)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}

	s.log.Info().
		Int64("business_id", sess.BusinessID).
		Int64("invoice_id", inv.ID).
		Int64("transaction_id", txn.ID).
		Str("amount", txn.Amount.String()).
		Str("status", string(inv.Status)).
		Msg("payment recorded")
	return inv, nil
}

func (s *invoiceService) recordPaymentTx(ctx context.Context, tx Tx, sess Session, inv *Invoice, in PaymentInput) (*Transaction, error) {
	if !inv.Type.IsFinancial() {
		return nil, newValidationError("invoice", "%s %s cannot take payments", inv.Type, inv.Number)
	}

	accountID, err := resolvePaymentAccount(ctx, tx, sess.BusinessID, in.AccountID)
	if err != nil {
		return nil, err
	}

	key := in.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	now := time.Now().UTC()
	txn := &Transaction{
		BusinessID:     sess.BusinessID,
		Type:           paymentType(inv.Type),
		InvoiceID:      &inv.ID,
		PartyID:        inv.PartyID,
		AccountID:      accountID,
		Amount:         in.Amount,
		Mode:           in.Mode,
		Date:           dateOrToday(in.Date),
		Reference:      in.Reference,
		IdempotencyKey: key,
		CreatedAt:      now,
	}

	if accountID != nil {
		if _, err := s.accounts.AdjustBalanceTx(ctx, tx, sess, *accountID, txn.Amount, paymentCashDirection(txn.Type)); err != nil {
			return nil, err
		}
	}
	if inv.PartyID != nil {
		if _, err := s.parties.AdjustBalanceTx(ctx, tx, sess, *inv.PartyID, txn.Amount, settlementDirection(inv.Type)); err != nil {
			return nil, err
		}
	}

	inv.Paid = inv.Paid.Add(txn.Amount)
	applyPaymentState(inv)
	if in.Mode != "" {
		inv.PaymentMode = in.Mode
	}
	inv.UpdatedAt = now
	if err := tx.UpdateInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to update invoice after payment: %w", err)
	}

	id, err := tx.InsertTransaction(ctx, txn)
	if err != nil {
		return nil, fmt.Errorf("failed to insert payment transaction: %w", err)
	}
	txn.ID = id
	return txn, nil
}

func (s *invoiceService) reversePayment(ctx context.Context, tx Tx, sess Session, inv *Invoice, p Transaction) error {
	if p.AccountID != nil {
		dir := oppositeCash(paymentCashDirection(p.Type))
		if _, err := s.accounts.AdjustBalanceTx(ctx, tx, sess, *p.AccountID, p.Amount, dir); err != nil {
			return fmt.Errorf("failed to reverse payment %d: %w", p.ID, err)
		}
	}
	if p.PartyID != nil {
		dir := opposite(settlementDirection(inv.Type))
		if _, err := s.parties.AdjustBalanceTx(ctx, tx, sess, *p.PartyID, p.Amount, dir); err != nil {
			return fmt.Errorf("failed to reverse payment %d: %w", p.ID, err)
		}
	}
	return nil
}

// ── Conversion ──────────────────────────────────────────────────────────────

func (s *invoiceService) ConvertEstimate(ctx context.Context, sess Session, estimateID int64, date string) (*Invoice, error) {
	unlock, err := lockBusiness(ctx, s.locker, sess)
	if err != nil {
		return nil, err
	}
	defer unlock()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	est, err := tx.GetInvoice(ctx, sess.BusinessID, estimateID)
	if err != nil {
		return nil, err
	}
	if est.Type != DocEstimate {
		return nil, newValidationError("type", "only estimates can be converted, %s is a %s", est.Number, est.Type)
	}
	prior, err := convertedSale(ctx, tx, sess.BusinessID, est.ID)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		return nil, newValidationError("estimate", "estimate %s was already converted to %s", est.Number, prior.Number)
	}

	in := CreateInvoiceInput{
		Type:            DocSale,
		Date:            date,
		PartyID:         est.PartyID,
		IsGST:           est.IsGST,
		Lines:           linesToInput(est.Lines),
		DiscountPercent: est.DiscountPercent,
		DiscountAmount:  est.DiscountAmount,
		Notes:           est.Notes,
	}
	if err := validateCreateInput(in); err != nil {
		return nil, err
	}

	inv, events, err := s.createTx(ctx, tx, sess, in, &est.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit estimate conversion: %w", err)
	}

	notifyAll(ctx, s.notifier, events)
	s.log.Info().
		Int64("business_id", sess.BusinessID).
		Str("estimate", est.Number).
		Str("number", inv.Number).
		Msg("estimate converted")
	return inv, nil
}

// convertedSale returns the sale created from estimateID, or nil.
func convertedSale(ctx context.Context, q Queries, businessID, estimateID int64) (*Invoice, error) {
	sales, err := q.ListInvoices(ctx, businessID, InvoiceFilter{Type: DocSale})
	if err != nil {
		return nil, fmt.Errorf("failed to check conversions: %w", err)
	}
	for i := range sales {
		if sales[i].SourceID != nil && *sales[i].SourceID == estimateID {
			return &sales[i], nil
		}
	}
	return nil, nil
}

// ── Queries ─────────────────────────────────────────────────────────────────

func (s *invoiceService) Get(ctx context.Context, sess Session, invoiceID int64) (*Invoice, error) {
	if err := sess.validate(); err != nil {
		return nil, err
	}
	return s.store.GetInvoice(ctx, sess.BusinessID, invoiceID)
}

func (s *invoiceService) List(ctx context.Context, sess Session, f InvoiceFilter) ([]Invoice, error) {
	if err := sess.validate(); err != nil {
		return nil, err
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, newValidationError("type", "unknown document type %q", f.Type)
	}
	return s.store.ListInvoices(ctx, sess.BusinessID, f)
}

func (s *invoiceService) Pending(ctx context.Context, sess Session, docType DocumentType) ([]Invoice, error) {
	if docType != "" && !docType.IsFinancial() {
		return nil, newValidationError("type", "only sales and purchases can be pending, got %q", docType)
	}
	all, err := s.List(ctx, sess, InvoiceFilter{
		Type:     docType,
		Statuses: []InvoiceStatus{StatusUnpaid, StatusPartial},
	})
	if err != nil {
		return nil, err
	}
	pending := []Invoice{}
	for _, inv := range all {
		if inv.Type.IsFinancial() {
			pending = append(pending, inv)
		}
	}
	return pending, nil
}

func (s *invoiceService) Payments(ctx context.Context, sess Session, invoiceID int64) ([]Transaction, error) {
	if err := sess.validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetInvoice(ctx, sess.BusinessID, invoiceID); err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, sess.BusinessID, TransactionFilter{InvoiceID: &invoiceID})
}

// ── Effects ─────────────────────────────────────────────────────────────────

// applyDocumentEffects posts (or, with reverse, un-posts) the document's own
// effects: the full grand total on the party and every catalog line on stock.
// Non-financial documents have none.
func (s *invoiceService) applyDocumentEffects(ctx context.Context, tx Tx, sess Session, inv *Invoice, reverse bool) ([]LowStockEvent, error) {
	if !inv.Type.IsFinancial() {
		return nil, nil
	}

	if inv.PartyID != nil {
		dir := postingDirection(inv.Type)
		if reverse {
			dir = opposite(dir)
		}
		if _, err := s.parties.AdjustBalanceTx(ctx, tx, sess, *inv.PartyID, inv.GrandTotal, dir); err != nil {
			return nil, err
		}
	}

	stockDir := StockDecrease
	if (inv.Type == DocPurchase) != reverse {
		stockDir = StockIncrease
	}

	var events []LowStockEvent
	for _, l := range inv.Lines {
		if l.ItemID == nil {
			continue
		}
		ev, err := s.stock.AdjustStockTx(ctx, tx, sess, *l.ItemID, l.Quantity, stockDir)
		if err != nil {
			return nil, err
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}
	return events, nil
}

// applyUpdateEffects posts only the net change between old and next: the
// grand total difference on the party (or a full move when the party changed)
// and, per catalog item, the quantity difference on stock. An edit that leaves
// lines, party and totals alone touches no ledger.
func (s *invoiceService) applyUpdateEffects(ctx context.Context, tx Tx, sess Session, old, next *Invoice) ([]LowStockEvent, error) {
	if !next.Type.IsFinancial() {
		return nil, nil
	}

	if sameRef(old.PartyID, next.PartyID) {
		if next.PartyID != nil {
			if err := s.postPartyDelta(ctx, tx, sess, *next.PartyID, next.Type, next.GrandTotal.Sub(old.GrandTotal)); err != nil {
				return nil, err
			}
		}
	} else {
		if old.PartyID != nil {
			if err := s.postPartyDelta(ctx, tx, sess, *old.PartyID, old.Type, old.GrandTotal.Neg()); err != nil {
				return nil, err
			}
		}
		if next.PartyID != nil {
			if err := s.postPartyDelta(ctx, tx, sess, *next.PartyID, next.Type, next.GrandTotal); err != nil {
				return nil, err
			}
		}
	}

	order, delta := stockDelta(next.Type, old.Lines, next.Lines)
	for _, id := range order {
		if !delta[id].IsNegative() {
			continue
		}
		item, err := tx.GetItem(ctx, sess.BusinessID, id)
		if err != nil {
			return nil, err
		}
		if item.Stock.LessThan(delta[id].Neg()) {
			return nil, &InsufficientStockError{
				ItemID:    item.ID,
				ItemName:  item.Name,
				Available: item.Stock,
				Requested: delta[id].Neg(),
			}
		}
	}

	var events []LowStockEvent
	for _, id := range order {
		qty, dir := delta[id], StockIncrease
		switch {
		case qty.IsZero():
			continue
		case qty.IsNegative():
			qty, dir = qty.Neg(), StockDecrease
		}
		ev, err := s.stock.AdjustStockTx(ctx, tx, sess, id, qty, dir)
		if err != nil {
			return nil, err
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}
	return events, nil
}

// postPartyDelta moves a party by a signed change in a document's grand total.
func (s *invoiceService) postPartyDelta(ctx context.Context, tx Tx, sess Session, partyID int64, docType DocumentType, change decimal.Decimal) error {
	if change.IsZero() {
		return nil
	}
	dir := postingDirection(docType)
	if change.IsNegative() {
		dir, change = opposite(dir), change.Neg()
	}
	_, err := s.parties.AdjustBalanceTx(ctx, tx, sess, partyID, change, dir)
	return err
}

// stockDelta returns, per catalog item in first-seen order, the signed stock
// change that turns the old lines' effect into the new lines' effect.
func stockDelta(docType DocumentType, oldLines, newLines []LineItem) ([]int64, map[int64]decimal.Decimal) {
	sign := decimal.NewFromInt(-1)
	if docType == DocPurchase {
		sign = decimal.NewFromInt(1)
	}
	delta := make(map[int64]decimal.Decimal)
	var order []int64
	add := func(lines []LineItem, factor decimal.Decimal) {
		for _, l := range lines {
			if l.ItemID == nil {
				continue
			}
			if _, seen := delta[*l.ItemID]; !seen {
				order = append(order, *l.ItemID)
			}
			delta[*l.ItemID] = delta[*l.ItemID].Add(l.Quantity.Mul(factor))
		}
	}
	add(oldLines, sign.Neg())
	add(newLines, sign)
	return order, delta
}

func (s *invoiceService) assignParty(ctx context.Context, q Queries, sess Session, inv *Invoice, partyID *int64) error {
	if partyID == nil {
		return nil
	}
	party, err := q.GetParty(ctx, sess.BusinessID, *partyID)
	if err != nil {
		return err
	}
	id := party.ID
	inv.PartyID = &id
	inv.PartyName = party.Name
	return nil
}

// ── Helpers ─────────────────────────────────────────────────────────────────

// snapshotLines copies catalog data into each line so later catalog edits
// never touch this document.
func snapshotLines(ctx context.Context, q Queries, businessID int64, docType DocumentType, inputs []LineInput) ([]LineItem, error) {
	lines := make([]LineItem, 0, len(inputs))
	for i, in := range inputs {
		l := LineItem{Name: in.Name, Unit: in.Unit, Quantity: in.Quantity}
		if in.ItemID != nil {
			item, err := q.GetItem(ctx, businessID, *in.ItemID)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			id := item.ID
			l.ItemID = &id
			if l.Name == "" {
				l.Name = item.Name
			}
			if l.Unit == "" {
				l.Unit = item.Unit
			}
			l.Rate = item.SalePrice
			if docType == DocPurchase {
				l.Rate = item.PurchasePrice
			}
			l.GSTRate = item.GSTRate
		}
		if in.Rate != nil {
			l.Rate = *in.Rate
		}
		if in.GSTRate != nil {
			l.GSTRate = *in.GSTRate
		}
		lines = append(lines, l)
	}
	return lines, nil
}

func linesToInput(lines []LineItem) []LineInput {
	out := make([]LineInput, len(lines))
	for i, l := range lines {
		rate, gst := l.Rate, l.GSTRate
		out[i] = LineInput{
			ItemID:   l.ItemID,
			Name:     l.Name,
			Unit:     l.Unit,
			Quantity: l.Quantity,
			Rate:     &rate,
			GSTRate:  &gst,
		}
	}
	return out
}

func applyTotals(inv *Invoice) error {
	inv.Totals = ComputeTotals(inv.Lines, inv.IsGST, inv.DiscountPercent, inv.DiscountAmount)
	if inv.TaxableAmount.IsNegative() {
		return newValidationError("discount_amount", "discount %s exceeds subtotal %s", inv.Discount, inv.Subtotal)
	}
	applyPaymentState(inv)
	return nil
}

// checkStockAvailable verifies every catalog item of a sale has enough stock
// for all its lines together, before any ledger effect is applied.
func checkStockAvailable(ctx context.Context, q Queries, businessID int64, inv *Invoice) error {
	if inv.Type != DocSale {
		return nil
	}
	need := make(map[int64]decimal.Decimal)
	var order []int64
	for _, l := range inv.Lines {
		if l.ItemID == nil {
			continue
		}
		if _, seen := need[*l.ItemID]; !seen {
			order = append(order, *l.ItemID)
		}
		need[*l.ItemID] = need[*l.ItemID].Add(l.Quantity)
	}
	for _, id := range order {
		item, err := q.GetItem(ctx, businessID, id)
		if err != nil {
			return err
		}
		if item.Stock.LessThan(need[id]) {
			return &InsufficientStockError{
				ItemID:    item.ID,
				ItemName:  item.Name,
				Available: item.Stock,
				Requested: need[id],
			}
		}
	}
	return nil
}

func resolvePaymentAccount(ctx context.Context, q Queries, businessID int64, accountID *int64) (*int64, error) {
	if accountID != nil {
		acc, err := q.GetAccount(ctx, businessID, *accountID)
		if err != nil {
			return nil, err
		}
		id := acc.ID
		return &id, nil
	}
	accounts, err := q.ListAccounts(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	for _, a := range accounts {
		if a.Type == AccountCash {
			id := a.ID
			return &id, nil
		}
	}
	return nil, nil
}

func paymentType(t DocumentType) TransactionType {
	if t == DocPurchase {
		return TxnPaymentOut
	}
	return TxnPaymentIn
}

func paymentCashDirection(t TransactionType) CashDirection {
	if t == TxnPaymentOut {
		return CashDebit
	}
	return CashCredit
}

func sameRef(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func validateCreateInput(in CreateInvoiceInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	if err := validateLines(in.Lines); err != nil {
		return err
	}
	if err := requirePercent("discount_percent", in.DiscountPercent); err != nil {
		return err
	}
	if err := requireNonNegative("discount_amount", in.DiscountAmount); err != nil {
		return err
	}
	if err := requireNonNegative("paid", in.Paid); err != nil {
		return err
	}
	if !in.Type.IsFinancial() && in.Paid.IsPositive() {
		return newValidationError("paid", "%s documents cannot carry payments", in.Type)
	}
	return nil
}

func validateUpdateInput(in UpdateInvoiceInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	if in.ClearParty && in.PartyID != nil {
		return newValidationError("party_id", "cannot set and clear the party at once")
	}
	if in.Lines != nil {
		if err := validateLines(in.Lines); err != nil {
			return err
		}
	}
	if in.DiscountPercent != nil {
		if err := requirePercent("discount_percent", *in.DiscountPercent); err != nil {
			return err
		}
	}
	if in.DiscountAmount != nil {
		if err := requireNonNegative("discount_amount", *in.DiscountAmount); err != nil {
			return err
		}
	}
	return nil
}

func validateLines(lines []LineInput) error {
	hasCatalogLine := false
	for i, l := range lines {
		if err := requirePositive(lineField(i, "quantity"), l.Quantity); err != nil {
			return err
		}
		switch {
		case l.Rate != nil:
			if err := requireNonNegative(lineField(i, "rate"), *l.Rate); err != nil {
				return err
			}
		case l.ItemID == nil:
			return newValidationError(lineField(i, "rate"), "required for lines without item_id")
		}
		if l.GSTRate != nil {
			if err := requirePercent(lineField(i, "gst_rate"), *l.GSTRate); err != nil {
				return err
			}
		}
		if l.ItemID != nil {
			hasCatalogLine = true
		}
	}
	if !hasCatalogLine {
		return newValidationError("lines", "at least one line must reference a catalog item")
	}
	return nil
}
