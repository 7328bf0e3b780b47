package core

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// AccountLedger is the only writer of Account.Balance. Credit adds, debit subtracts.
// Balances may go negative.
type AccountLedger interface {
	AdjustBalance(ctx context.Context, sess Session, accountID int64, amount decimal.Decimal, dir CashDirection) (decimal.Decimal, error)
	AdjustBalanceTx(ctx context.Context, tx Tx, sess Session, accountID int64, amount decimal.Decimal, dir CashDirection) (decimal.Decimal, error)
}

type accountLedger struct {
	store  Store
	locker BusinessLocker
}

func NewAccountLedger(store Store, locker BusinessLocker) AccountLedger {
	return &accountLedger{store: store, locker: locker}
}

func (l *accountLedger) AdjustBalance(ctx context.Context, sess Session, accountID int64, amount decimal.Decimal, dir CashDirection) (decimal.Decimal, error) {
	unlock, err := lockBusiness(ctx, l.locker, sess)
	if err != nil {
		return decimal.Zero, err
	}
	defer unlock()

	tx, err := l.store.Begin(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	balance, err := l.AdjustBalanceTx(ctx, tx, sess, accountID, amount, dir)
	if err != nil {
		return decimal.Zero, err
	}
	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("failed to commit account adjustment: %w", err)
	}
	return balance, nil
}

func (l *accountLedger) AdjustBalanceTx(ctx context.Context, tx Tx, sess Session, accountID int64, amount decimal.Decimal, dir CashDirection) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, newValidationError("amount", "account adjustment must not be negative, got %s", amount)
	}

	delta := amount
	switch dir {
	case CashCredit:
	case CashDebit:
		delta = amount.Neg()
	default:
		return decimal.Zero, newValidationError("direction", "unknown cash direction %q", dir)
	}

	balance, err := tx.AddAccountBalance(ctx, sess.BusinessID, accountID, delta)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to update balance for account %d: %w", accountID, err)
	}
	return balance, nil
}

func oppositeCash(dir CashDirection) CashDirection {
	if dir == CashCredit {
		return CashDebit
	}
	return CashCredit
}
