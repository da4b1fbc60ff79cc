package report

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"cartera/internal/core"
)

// Aggregator composes multi-route views out of single-route cache entries.
// Combinations are never stored: each route's month is obtained (or computed
// and persisted) independently, then summed field by field.
type Aggregator struct {
	ledger      LedgerReader
	store       CacheStore
	concurrency int
}

func NewAggregator(ledger LedgerReader, store CacheStore, concurrency int) *Aggregator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Aggregator{ledger: ledger, store: store, concurrency: concurrency}
}

// MonthForRoute returns the single-route entry for one month, computing and
// persisting it on a cache miss.
func (a *Aggregator) MonthForRoute(ctx context.Context, routeID string, year, month int) (core.MonthlyData, error) {
	data, ok, err := a.store.Get(ctx, routeID, year, month)
	if err != nil {
		return core.MonthlyData{}, fmt.Errorf("get cached month: %w", err)
	}
	if ok {
		return data, nil
	}

	data, err = ComputeMonth(ctx, a.ledger, []string{routeID}, year, month)
	if err != nil {
		return core.MonthlyData{}, err
	}
	if err := a.store.Put(ctx, routeID, year, month, data); err != nil {
		return core.MonthlyData{}, fmt.Errorf("store computed month: %w", err)
	}
	return data, nil
}

// CombineYear produces twelve months of combined activity for the route set.
// Per-route fetches fan out with bounded concurrency; completion order does
// not matter because summation is commutative, and the two ratio fields are
// recomputed from the summed totals afterwards.
func (a *Aggregator) CombineYear(ctx context.Context, routeIDs []string, year int) (map[int]core.MonthlyData, error) {
	var mu sync.Mutex
	months := make(map[int]core.MonthlyData, 12)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for month := 1; month <= 12; month++ {
		for _, routeID := range routeIDs {
			month, routeID := month, routeID
			g.Go(func() error {
				data, err := a.MonthForRoute(ctx, routeID, year, month)
				if err != nil {
					return err
				}
				mu.Lock()
				months[month] = months[month].Add(data)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for month, data := range months {
		months[month] = data.RecomputeRatios()
	}
	return months, nil
}
