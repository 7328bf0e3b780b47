package core

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// PartyLedger is the only writer of Party.Balance. The scale is receivable-positive:
// BalanceIncrease means the party owes the business more.
type PartyLedger interface {
	AdjustBalance(ctx context.Context, sess Session, partyID int64, amount decimal.Decimal, dir BalanceDirection) (decimal.Decimal, error)
	AdjustBalanceTx(ctx context.Context, tx Tx, sess Session, partyID int64, amount decimal.Decimal, dir BalanceDirection) (decimal.Decimal, error)
}

type partyLedger struct {
	store  Store
	locker BusinessLocker
}

func NewPartyLedger(store Store, locker BusinessLocker) PartyLedger {
	return &partyLedger{store: store, locker: locker}
}

func (l *partyLedger) AdjustBalance(ctx context.Context, sess Session, partyID int64, amount decimal.Decimal, dir BalanceDirection) (decimal.Decimal, error) {
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

	balance, err := l.AdjustBalanceTx(ctx, tx, sess, partyID, amount, dir)
	if err != nil {
		return decimal.Zero, err
	}
	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("failed to commit balance adjustment: %w", err)
	}
	return balance, nil
}

func (l *partyLedger) AdjustBalanceTx(ctx context.Context, tx Tx, sess Session, partyID int64, amount decimal.Decimal, dir BalanceDirection) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, newValidationError("amount", "balance adjustment must not be negative, got %s", amount)
	}

	delta := amount
	switch dir {
	case BalanceIncrease:
	case BalanceDecrease:
		delta = amount.Neg()
	default:
		return decimal.Zero, newValidationError("direction", "unknown balance direction %q", dir)
	}

	balance, err := tx.AddPartyBalance(ctx, sess.BusinessID, partyID, delta)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to update balance for party %d: %w", partyID, err)
	}
	return balance, nil
}

// postingDirection is the party-balance direction of a financial document's
// own posting: a sale makes the customer owe more, a purchase makes the
// business owe the supplier more.
func postingDirection(t DocumentType) BalanceDirection {
	if t == DocPurchase {
		return BalanceDecrease
	}
	return BalanceIncrease
}

// settlementDirection is the direction of a payment against a document:
// always towards zero outstanding.
func settlementDirection(t DocumentType) BalanceDirection {
	return opposite(postingDirection(t))
}

func opposite(dir BalanceDirection) BalanceDirection {
	if dir == BalanceIncrease {
		return BalanceDecrease
	}
	return BalanceIncrease
}
