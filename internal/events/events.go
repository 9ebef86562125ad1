// Package events defines the stock-change notification emitted by the
// inventory service when a quantity is mutated.
package events

import (
	"context"
	"log/slog"
)

// StockChangedEvent carries the observable facts of a quantity mutation.
type StockChangedEvent struct {
	ProductID        int64 `json:"producto_id"`
	PreviousQuantity int32 `json:"cantidad_anterior"`
	NewQuantity      int32 `json:"cantidad_nueva"`
}

// Notifier publishes stock-change events. The notification is a side effect
// only; it never influences the outcome of the mutation that produced it.
type Notifier interface {
	StockChanged(ctx context.Context, event StockChangedEvent)
}

// LogNotifier emits stock-change events as structured log records.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a Notifier backed by the given logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "events")}
}

// StockChanged logs the event.
func (n *LogNotifier) StockChanged(ctx context.Context, event StockChangedEvent) {
	n.logger.InfoContext(ctx, "Inventory changed",
		"producto_id", event.ProductID,
		"cantidad_anterior", event.PreviousQuantity,
		"cantidad_nueva", event.NewQuantity,
	)
}
