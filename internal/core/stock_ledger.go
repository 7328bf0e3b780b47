package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// StockLedger is the only writer of Item.Stock.
type StockLedger interface {
	// AdjustStock runs in its own transaction and returns the updated item.
	AdjustStock(ctx context.Context, sess Session, itemID int64, qty decimal.Decimal, dir StockDirection) (*Item, error)
	// AdjustStockTx works inside the caller's transaction. A non-nil event must be
	// handed to a Notifier once the transaction commits.
	AdjustStockTx(ctx context.Context, tx Tx, sess Session, itemID int64, qty decimal.Decimal, dir StockDirection) (*LowStockEvent, error)
}

type stockLedger struct {
	store    Store
	locker   BusinessLocker
	notifier Notifier
}

func NewStockLedger(store Store, locker BusinessLocker, notifier Notifier) StockLedger {
	return &stockLedger{store: store, locker: locker, notifier: notifier}
}

func (s *stockLedger) AdjustStock(ctx context.Context, sess Session, itemID int64, qty decimal.Decimal, dir StockDirection) (*Item, error) {
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

	ev, err := s.AdjustStockTx(ctx, tx, sess, itemID, qty, dir)
	if err != nil {
		return nil, err
	}
	item, err := tx.GetItem(ctx, sess.BusinessID, itemID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit stock adjustment: %w", err)
	}

	if ev != nil {
		notifyAll(ctx, s.notifier, []LowStockEvent{*ev})
	}
	return item, nil
}

func (s *stockLedger) AdjustStockTx(ctx context.Context, tx Tx, sess Session, itemID int64, qty decimal.Decimal, dir StockDirection) (*LowStockEvent, error) {
	if !qty.IsPositive() {
		return nil, newValidationError("quantity", "stock adjustment must be positive, got %s", qty)
	}

	delta := qty
	switch dir {
	case StockIncrease:
	case StockDecrease:
		delta = qty.Neg()
	default:
		return nil, newValidationError("direction", "unknown stock direction %q", dir)
	}

	item, err := tx.GetItem(ctx, sess.BusinessID, itemID)
	if err != nil {
		return nil, err
	}

	stock, err := tx.AddItemStock(ctx, sess.BusinessID, itemID, delta)
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			return nil, &InsufficientStockError{
				ItemID:    item.ID,
				ItemName:  item.Name,
				Available: item.Stock,
				Requested: qty,
			}
		}
		return nil, fmt.Errorf("failed to update stock for item %d: %w", itemID, err)
	}

	if dir != StockDecrease {
		return nil, nil
	}
	threshold, err := resolveLowStockThreshold(ctx, tx, sess.BusinessID)
	if err != nil {
		return nil, err
	}
	if stock.GreaterThan(threshold) {
		return nil, nil
	}
	return &LowStockEvent{
		BusinessID: sess.BusinessID,
		ItemID:     item.ID,
		ItemName:   item.Name,
		Stock:      stock,
		Threshold:  threshold,
	}, nil
}
