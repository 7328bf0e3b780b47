package core

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type CreateAccountInput struct {
	Type           AccountType     `json:"type" validate:"required,oneof=cash bank"`
	Name           string          `json:"name" validate:"required,max=100"`
	BankName       string          `json:"bank_name" validate:"required_if=Type bank,max=100"`
	AccountNumber  string          `json:"account_number" validate:"omitempty,max=34,alphanum"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

type AccountService interface {
	Create(ctx context.Context, sess Session, in CreateAccountInput) (*Account, error)
	Get(ctx context.Context, sess Session, accountID int64) (*Account, error)
	List(ctx context.Context, sess Session) ([]Account, error)
}

type accountService struct {
	store  Store
	locker BusinessLocker
}

func NewAccountService(store Store, locker BusinessLocker) AccountService {
	return &accountService{store: store, locker: locker}
}

func (s *accountService) Create(ctx context.Context, sess Session, in CreateAccountInput) (*Account, error) {
	if err := validateStruct(in); err != nil {
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

	a := &Account{
		BusinessID:     sess.BusinessID,
		Type:           in.Type,
		Name:           in.Name,
		BankName:       in.BankName,
		AccountNumber:  in.AccountNumber,
		OpeningBalance: in.OpeningBalance,
		Balance:        in.OpeningBalance,
		CreatedAt:      time.Now().UTC(),
	}
	id, err := tx.InsertAccount(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("failed to create account %q: %w", in.Name, err)
	}
	a.ID = id

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit account creation: %w", err)
	}
	return a, nil
}

func (s *accountService) Get(ctx context.Context, sess Session, accountID int64) (*Account, error) {
	if err := sess.validate(); err != nil {
		return nil, err
	}
	return s.store.GetAccount(ctx, sess.BusinessID, accountID)
}

func (s *accountService) List(ctx context.Context, sess Session) ([]Account, error) {
	if err := sess.validate(); err != nil {
		return nil, err
	}
	return s.store.ListAccounts(ctx, sess.BusinessID)
}
