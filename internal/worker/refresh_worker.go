package worker

import (
	"context"
	"fmt"
	"log/slog"

	"cartera/internal/amqp"
	"cartera/internal/report"
)

// RefreshWorker rebuilds cached monthly summaries when refresh messages
// arrive: one message invalidates and recomputes a full route-year.
type RefreshWorker struct {
	ledger report.LedgerReader
	store  report.CacheStore
}

func NewRefreshWorker(ledger report.LedgerReader, store report.CacheStore) *RefreshWorker {
	return &RefreshWorker{ledger: ledger, store: store}
}

// HandleRefreshMessage processes a single cache refresh message.
func (w *RefreshWorker) HandleRefreshMessage(ctx context.Context, msg *amqp.RefreshMessage) error {
	slog.InfoContext(ctx, "Processing refresh message",
		"route_id", msg.RouteID,
		"year", msg.Year)

	if err := w.RefreshRouteYear(ctx, msg.RouteID, msg.Year); err != nil {
		return fmt.Errorf("refresh %s/%d: %w", msg.RouteID, msg.Year, err)
	}

	slog.InfoContext(ctx, "Route-year refreshed",
		"route_id", msg.RouteID,
		"year", msg.Year)
	return nil
}

// RefreshRouteYear clears every stored month of the route-year and recomputes
// the twelve months from the ledger. Failures leave the route-year empty; the
// next report request recomputes on demand.
func (w *RefreshWorker) RefreshRouteYear(ctx context.Context, routeID string, year int) error {
	plan, err := report.PlanYear(ctx, w.store, routeID, year, true)
	if err != nil {
		return fmt.Errorf("invalidate route-year: %w", err)
	}
	if _, err := report.ComputeYear(ctx, w.ledger, w.store, routeID, year, plan); err != nil {
		return fmt.Errorf("recompute route-year: %w", err)
	}
	return nil
}
