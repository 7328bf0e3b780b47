package core

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LowStockEvent is emitted after a decrease leaves an item at or below the
// business's low-stock threshold.
type LowStockEvent struct {
	BusinessID int64           `json:"business_id"`
	ItemID     int64           `json:"item_id"`
	ItemName   string          `json:"item_name"`
	Stock      decimal.Decimal `json:"stock"`
	Threshold  decimal.Decimal `json:"threshold"`
}

// Notifier receives informational events. Events are delivered after the
// owning transaction commits. Implementations must return promptly.
type Notifier interface {
	LowStock(ctx context.Context, ev LowStockEvent)
}

type logNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier reports events as warnings on the given logger.
func NewLogNotifier(log zerolog.Logger) Notifier {
	return &logNotifier{log: log}
}

func (n *logNotifier) LowStock(_ context.Context, ev LowStockEvent) {
	n.log.Warn().
		Int64("business_id", ev.BusinessID).
		Int64("item_id", ev.ItemID).
		Str("item", ev.ItemName).
		Str("stock", ev.Stock.String()).
		Str("threshold", ev.Threshold.String()).
		Msg("item stock is low")
}

func notifyAll(ctx context.Context, n Notifier, events []LowStockEvent) {
	if n == nil {
		return
	}
	for _, ev := range events {
		n.LowStock(ctx, ev)
	}
}
