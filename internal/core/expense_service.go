package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type AddExpenseInput struct {
	Category    string          `json:"category" validate:"required,max=100"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	AccountID   *int64          `json:"account_id,omitempty" validate:"omitempty,gt=0"`
	PaymentMode string          `json:"payment_mode" validate:"max=30"`
	Notes       string          `json:"notes" validate:"max=1000"`
}

// UpdateExpenseInput changes an expense. Nil fields are left as they are;
// ClearAccount detaches it from its account.
type UpdateExpenseInput struct {
	Category     *string          `json:"category,omitempty" validate:"omitempty,min=1,max=100"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	Date         *string          `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	AccountID    *int64           `json:"account_id,omitempty" validate:"omitempty,gt=0"`
	ClearAccount bool             `json:"clear_account"`
	PaymentMode  *string          `json:"payment_mode,omitempty" validate:"omitempty,max=30"`
	Notes        *string          `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// ExpenseService records money paid out that is not tied to an invoice.
// An expense paid from an account debits it; deleting the expense credits it back.
type ExpenseService interface {
	Add(ctx context.Context, sess Session, in AddExpenseInput) (*Expense, error)
	// Update credits the old account with the old amount and debits the new
	// account with the new amount.
	Update(ctx context.Context, sess Session, expenseID int64, in UpdateExpenseInput) (*Expense, error)
	Delete(ctx context.Context, sess Session, expenseID int64) error
	List(ctx context.Context, sess Session, r DateRange) ([]Expense, error)
}

type expenseService struct {
	store    Store
	locker   BusinessLocker
	accounts AccountLedger
	log      zerolog.Logger
}

func NewExpenseService(store Store, locker BusinessLocker, accounts AccountLedger, log zerolog.Logger) ExpenseService {
	return &expenseService{store: store, locker: locker, accounts: accounts, log: log}
}

func (s *expenseService) Add(ctx context.Context, sess Session, in AddExpenseInput) (*Expense, error) {
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

	e := &Expense{
		BusinessID:  sess.BusinessID,
		Category:    in.Category,
		Amount:      in.Amount,
		Date:        dateOrToday(in.Date),
		PaymentMode: in.PaymentMode,
		Notes:       in.Notes,
		CreatedAt:   time.Now().UTC(),
	}
	if in.AccountID != nil {
		if _, err := s.accounts.AdjustBalanceTx(ctx, tx, sess, *in.AccountID, in.Amount, CashDebit); err != nil {
			return nil, err
		}
		id := *in.AccountID
		e.AccountID = &id
	}

	id, err := tx.InsertExpense(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("failed to insert expense: %w", err)
	}
	e.ID = id

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit expense: %w", err)
	}
	s.log.Info().
		Int64("business_id", sess.BusinessID).
		Int64("expense_id", e.ID).
		Str("category", e.Category).
		Str("amount", e.Amount.String()).
		Msg("expense recorded")
	return e, nil
}

func (s *expenseService) Update(ctx context.Context, sess Session, expenseID int64, in UpdateExpenseInput) (*Expense, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Category != nil && strings.TrimSpace(*in.Category) == "" {
		return nil, newValidationError("category", "category cannot be empty")
	}
	if in.ClearAccount && in.AccountID != nil {
		return nil, newValidationError("account_id", "cannot set and clear the account at once")
	}
	if in.Amount != nil {
		if err := requirePositive("amount", *in.Amount); err != nil {
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

	old, err := tx.GetExpense(ctx, sess.BusinessID, expenseID)
	if err != nil {
		return nil, err
	}
	e := *old
	setIfPresent(&e.Category, in.Category)
	setIfPresent(&e.Amount, in.Amount)
	setIfPresent(&e.Date, in.Date)
	setIfPresent(&e.PaymentMode, in.PaymentMode)
	setIfPresent(&e.Notes, in.Notes)
	switch {
	case in.ClearAccount:
		e.AccountID = nil
	case in.AccountID != nil:
		id := *in.AccountID
		e.AccountID = &id
	}

	if err := s.moveAccounts(ctx, tx, sess, old, &e); err != nil {
		return nil, err
	}
	if err := tx.UpdateExpense(ctx, &e); err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit expense update: %w", err)
	}
	s.log.Info().
		Int64("business_id", sess.BusinessID).
		Int64("expense_id", e.ID).
		Str("amount", e.Amount.String()).
		Msg("expense updated")
	return &e, nil
}

// moveAccounts posts the account difference between old and next. When the
// account stays the same only the amount difference is posted.
func (s *expenseService) moveAccounts(ctx context.Context, tx Tx, sess Session, old, next *Expense) error {
	if sameRef(old.AccountID, next.AccountID) {
		if next.AccountID == nil {
			return nil
		}
		diff := next.Amount.Sub(old.Amount)
		switch {
		case diff.IsPositive():
			_, err := s.accounts.AdjustBalanceTx(ctx, tx, sess, *next.AccountID, diff, CashDebit)
			return err
		case diff.IsNegative():
			_, err := s.accounts.AdjustBalanceTx(ctx, tx, sess, *next.AccountID, diff.Neg(), CashCredit)
			return err
		}
		return nil
	}
	if old.AccountID != nil {
		if _, err := s.accounts.AdjustBalanceTx(ctx, tx, sess, *old.AccountID, old.Amount, CashCredit); err != nil {
			return err
		}
	}
	if next.AccountID != nil {
		if _, err := s.accounts.AdjustBalanceTx(ctx, tx, sess, *next.AccountID, next.Amount, CashDebit); err != nil {
			return err
		}
	}
	return nil
}

func (s *expenseService) Delete(ctx context.Context, sess Session, expenseID int64) error {
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

	e, err := tx.GetExpense(ctx, sess.BusinessID, expenseID)
	if err != nil {
		return err
	}
	if e.AccountID != nil {
		if _, err := s.accounts.AdjustBalanceTx(ctx, tx, sess, *e.AccountID, e.Amount, CashCredit); err != nil {
			return err
		}
	}
	if err := tx.DeleteExpense(ctx, sess.BusinessID, e.ID); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit expense deletion: %w", err)
	}
	s.log.Info().Int64("business_id", sess.BusinessID).Int64("expense_id", e.ID).Msg("expense deleted")
	return nil
}

func (s *expenseService) List(ctx context.Context, sess Session, r DateRange) ([]Expense, error) {
	if err := sess.validate(); err != nil {
		return nil, err
	}
	return s.store.ListExpenses(ctx, sess.BusinessID, r)
}
