package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CreatePartyInput struct {
	Type    PartyType `json:"type" validate:"required,oneof=customer supplier"`
	Name    string    `json:"name" validate:"required,max=200"`
	Phone   string    `json:"phone" validate:"max=20"`
	Email   string    `json:"email" validate:"omitempty,email"`
	Address string    `json:"address" validate:"max=500"`
	GSTIN   string    `json:"gstin" validate:"omitempty,len=15,alphanum"`
	State   string    `json:"state" validate:"max=100"`
	// OpeningBalance is signed like Party.Balance.
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// UpdatePartyInput changes profile fields. Nil fields are left as they are.
// The balance moves only through the party ledger.
type UpdatePartyInput struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=500"`
	GSTIN   *string `json:"gstin,omitempty" validate:"omitempty,len=15,alphanum"`
	State   *string `json:"state,omitempty" validate:"omitempty,max=100"`
}

// StatementLine is one movement on a party's account. Debit raises what the
// party owes, Credit lowers it.
type StatementLine struct {
	Date      string          `json:"date"`
	Kind      string          `json:"kind"`
	Reference string          `json:"reference"`
	InvoiceID *int64          `json:"invoice_id,omitempty"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Balance   decimal.Decimal `json:"balance"`
}

// PartyStatement lists the movements in a date range with running balances.
type PartyStatement struct {
	Party          Party           `json:"party"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Lines          []StatementLine `json:"lines"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

type PartyService interface {
	Create(ctx context.Context, sess Session, in CreatePartyInput) (*Party, error)
	Update(ctx context.Context, sess Session, partyID int64, in UpdatePartyInput) (*Party, error)
	// Delete refuses parties with documents, payments or a non-zero balance.
	Delete(ctx context.Context, sess Session, partyID int64) error
	Get(ctx context.Context, sess Session, partyID int64) (*Party, error)
	// List returns all parties, or only those of partyType when it is set.
	List(ctx context.Context, sess Session, partyType PartyType) ([]Party, error)
	// Search matches query against name (case-insensitive) and phone.
	Search(ctx context.Context, sess Session, query string) ([]Party, error)
	Statement(ctx context.Context, sess Session, partyID int64, r DateRange) (*PartyStatement, error)
}

type partyService struct {
	store       Store
	locker      BusinessLocker
	phoneRegion string
}

func NewPartyService(store Store, locker BusinessLocker, phoneRegion string) PartyService {
	return &partyService{store: store, locker: locker, phoneRegion: phoneRegion}
}

func (s *partyService) Create(ctx context.Context, sess Session, in CreatePartyInput) (*Party, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := validatePhone(in.Phone, s.phoneRegion); err != nil {
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

	if _, err := tx.GetBusiness(ctx, sess.BusinessID); err != nil {
		return nil, err
	}

	p := &Party{
		BusinessID:     sess.BusinessID,
		Type:           in.Type,
		Name:           in.Name,
		Phone:          normalizePhone(in.Phone, s.phoneRegion),
		Email:          in.Email,
		Address:        in.Address,
		GSTIN:          in.GSTIN,
		State:          in.State,
		OpeningBalance: in.OpeningBalance,
		Balance:        in.OpeningBalance,
		CreatedAt:      time.Now().UTC(),
	}
	id, err := tx.InsertParty(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to create party %q: %w", in.Name, err)
	}
	p.ID = id

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit party creation: %w", err)
	}
	return p, nil
}

func (s *partyService) Update(ctx context.Context, sess Session, partyID int64, in UpdatePartyInput) (*Party, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, newValidationError("name", "name cannot be empty")
	}
	if in.Phone != nil {
		if err := validatePhone(*in.Phone, s.phoneRegion); err != nil {
			return nil, err
		}
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

	p, err := tx.GetParty(ctx, sess.BusinessID, partyID)
	if err != nil {
		return nil, err
	}
	setIfPresent(&p.Name, in.Name)
	if in.Phone != nil {
		p.Phone = normalizePhone(*in.Phone, s.phoneRegion)
	}
	setIfPresent(&p.Email, in.Email)
	setIfPresent(&p.Address, in.Address)
	setIfPresent(&p.GSTIN, in.GSTIN)
	setIfPresent(&p.State, in.State)

	if err := tx.UpdateParty(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update party %d: %w", partyID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit party update: %w", err)
	}
	return p, nil
}

func (s *partyService) Delete(ctx context.Context, sess Session, partyID int64) error {
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

	p, err := tx.GetParty(ctx, sess.BusinessID, partyID)
	if err != nil {
		return err
	}
	if !p.Balance.IsZero() {
		return newValidationError("party", "%s has a balance of %s; settle it before deleting", p.Name, p.Balance.StringFixed(2))
	}
	invoices, err := tx.ListInvoices(ctx, sess.BusinessID, InvoiceFilter{PartyID: &partyID})
	if err != nil {
		return fmt.Errorf("failed to list invoices for party %d: %w", partyID, err)
	}
	payments, err := tx.ListTransactions(ctx, sess.BusinessID, TransactionFilter{PartyID: &partyID})
	if err != nil {
		return fmt.Errorf("failed to list payments for party %d: %w", partyID, err)
	}
	if len(invoices) > 0 || len(payments) > 0 {
		return newValidationError("party", "%s has %d documents and %d payments and cannot be deleted", p.Name, len(invoices), len(payments))
	}

	if err := tx.DeleteParty(ctx, sess.BusinessID, partyID); err != nil {
		return fmt.Errorf("failed to delete party %d: %w", partyID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit party deletion: %w", err)
	}
	return nil
}

func (s *partyService) Get(ctx context.Context, sess Session, partyID int64) (*Party, error) {
	if err := sess.validate(); err != nil {
		return nil, err
	}
	return s.store.GetParty(ctx, sess.BusinessID, partyID)
}

func (s *partyService) List(ctx context.Context, sess Session, partyType PartyType) ([]Party, error) {
	if err := sess.validate(); err != nil {
		return nil, err
	}
	return s.store.ListParties(ctx, sess.BusinessID, partyType)
}

func (s *partyService) Search(ctx context.Context, sess Session, query string) ([]Party, error) {
	parties, err := s.List(ctx, sess, "")
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	found := []Party{}
	for _, p := range parties {
		if strings.Contains(strings.ToLower(p.Name), needle) || (p.Phone != "" && strings.Contains(p.Phone, needle)) {
			found = append(found, p)
		}
	}
	return found, nil
}

// Statement replays every invoice posting and payment of the party on top of
// its opening balance.
func (s *partyService) Statement(ctx context.Context, sess Session, partyID int64, r DateRange) (*PartyStatement, error) {
	if err := sess.validate(); err != nil {
		return nil, err
	}
	party, err := s.store.GetParty(ctx, sess.BusinessID, partyID)
	if err != nil {
		return nil, err
	}

	invoices, err := s.store.ListInvoices(ctx, sess.BusinessID, InvoiceFilter{PartyID: &partyID})
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices for party %d: %w", partyID, err)
	}
	payments, err := s.store.ListTransactions(ctx, sess.BusinessID, TransactionFilter{PartyID: &partyID})
	if err != nil {
		return nil, fmt.Errorf("failed to list payments for party %d: %w", partyID, err)
	}

	type movement struct {
		line    StatementLine
		created time.Time
	}
	var moves []movement
	docType := make(map[int64]DocumentType, len(invoices))
	for _, inv := range invoices {
		docType[inv.ID] = inv.Type
		if !inv.Type.IsFinancial() {
			continue
		}
		id := inv.ID
		l := StatementLine{Date: inv.Date, Kind: string(inv.Type), Reference: inv.Number, InvoiceID: &id}
		if postingDirection(inv.Type) == BalanceIncrease {
			l.Debit = inv.GrandTotal
		} else {
			l.Credit = inv.GrandTotal
		}
		moves = append(moves, movement{line: l, created: inv.CreatedAt})
	}
	for _, p := range payments {
		l := StatementLine{Date: p.Date, Kind: string(p.Type), Reference: p.Reference, InvoiceID: p.InvoiceID}
		t := DocSale
		if p.InvoiceID != nil {
			t = docType[*p.InvoiceID]
		}
		if settlementDirection(t) == BalanceIncrease {
			l.Debit = p.Amount
		} else {
			l.Credit = p.Amount
		}
		moves = append(moves, movement{line: l, created: p.CreatedAt})
	}
	sort.SliceStable(moves, func(i, j int) bool {
		if moves[i].line.Date != moves[j].line.Date {
			return moves[i].line.Date < moves[j].line.Date
		}
		return moves[i].created.Before(moves[j].created)
	})

	st := &PartyStatement{Party: *party, Lines: []StatementLine{}}
	balance := party.OpeningBalance
	st.OpeningBalance = balance
	for _, m := range moves {
		if r.To != "" && m.line.Date > r.To {
			break
		}
		balance = balance.Add(m.line.Debit).Sub(m.line.Credit)
		if r.From != "" && m.line.Date < r.From {
			st.OpeningBalance = balance
			continue
		}
		m.line.Balance = balance
		st.Lines = append(st.Lines, m.line)
	}
	st.ClosingBalance = balance
	return st, nil
}
