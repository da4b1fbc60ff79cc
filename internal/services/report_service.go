package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"cartera/internal/cache"
	"cartera/internal/core"
	"cartera/internal/report"
)

var (
	ErrNoRoutes    = errors.New("at least one route is required")
	ErrInvalidYear = errors.New("year must have four digits")
)

// RefreshPublisher emits route-year refresh events. Satisfied by
// *amqp.Client; nil disables publishing.
type RefreshPublisher interface {
	PublishCacheRefresh(ctx context.Context, routeID string, year int) error
}

// ReportService produces yearly reports: single-route requests run the cache
// policy, multi-route requests go through the aggregator. A memory cache
// layer fronts the persistent summary store for both paths.
type ReportService struct {
	ledger    report.LedgerReader
	store     *cachingStore
	routes    report.RouteDirectory
	agg       *report.Aggregator
	publisher RefreshPublisher
	closer    io.Closer
}

func NewReportService(
	ledger report.LedgerReader,
	store report.CacheStore,
	routes report.RouteDirectory,
	memory *cache.SummaryCache,
	publisher RefreshPublisher,
	concurrency int,
	closer io.Closer,
) *ReportService {
	cached := &cachingStore{memory: memory, store: store}
	return &ReportService{
		ledger:    ledger,
		store:     cached,
		routes:    routes,
		agg:       report.NewAggregator(ledger, cached, concurrency),
		publisher: publisher,
		closer:    closer,
	}
}

// YearlyReport returns twelve months of data for the requested route set.
// Force clears the stored route-years first and recomputes everything.
func (s *ReportService) YearlyReport(ctx context.Context, routeIDs []string, year int, force bool) (report.YearlyReport, error) {
	routeIDs = dedupe(routeIDs)
	if len(routeIDs) == 0 {
		return report.YearlyReport{}, ErrNoRoutes
	}
	if year < 1000 || year > 9999 {
		return report.YearlyReport{}, ErrInvalidYear
	}

	routes, err := s.routes.ListRoutes(ctx, routeIDs)
	if err != nil {
		return report.YearlyReport{}, fmt.Errorf("list routes: %w", err)
	}

	var months map[int]core.MonthlyData
	if len(routeIDs) == 1 {
		months, err = s.singleRouteYear(ctx, routeIDs[0], year, force)
	} else {
		months, err = s.multiRouteYear(ctx, routeIDs, year, force)
	}
	if err != nil {
		return report.YearlyReport{}, err
	}

	return report.Assemble(routes, year, months), nil
}

func (s *ReportService) singleRouteYear(ctx context.Context, routeID string, year int, force bool) (map[int]core.MonthlyData, error) {
	plan, err := report.PlanYear(ctx, s.store, routeID, year, force)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Yearly report planned",
		"route_id", routeID,
		"year", year,
		"force", force,
		"cache_hits", len(plan.Cached),
		"recomputed", len(plan.Recompute))

	return report.ComputeYear(ctx, s.ledger, s.store, routeID, year, plan)
}

func (s *ReportService) multiRouteYear(ctx context.Context, routeIDs []string, year int, force bool) (map[int]core.MonthlyData, error) {
	if force {
		for _, routeID := range routeIDs {
			if err := s.store.DeleteAll(ctx, routeID, year); err != nil {
				return nil, fmt.Errorf("invalidate route %s: %w", routeID, err)
			}
		}
	}
	return s.agg.CombineYear(ctx, routeIDs, year)
}

// RequestRefresh invalidates a route-year asynchronously through the refresh
// queue. Without a publisher it invalidates the store directly.
func (s *ReportService) RequestRefresh(ctx context.Context, routeID string, year int) error {
	if s.publisher == nil {
		return s.store.DeleteAll(ctx, routeID, year)
	}
	if err := s.publisher.PublishCacheRefresh(ctx, routeID, year); err != nil {
		return fmt.Errorf("publish refresh: %w", err)
	}
	return nil
}

// Close releases the underlying resources.
func (s *ReportService) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// cachingStore reads through the in-process summary cache before hitting the
// persistent store. Writes and invalidations keep both layers in step.
type cachingStore struct {
	memory *cache.SummaryCache
	store  report.CacheStore
}

func (c *cachingStore) Get(ctx context.Context, routeID string, year, month int) (core.MonthlyData, bool, error) {
	if c.memory != nil {
		if data, ok := c.memory.Get(cache.Key(routeID, year, month)); ok {
			return data, true, nil
		}
	}

	data, ok, err := c.store.Get(ctx, routeID, year, month)
	if err != nil || !ok {
		return core.MonthlyData{}, ok, err
	}
	if c.memory != nil {
		c.memory.Set(cache.Key(routeID, year, month), data)
	}
	return data, true, nil
}

func (c *cachingStore) Put(ctx context.Context, routeID string, year, month int, data core.MonthlyData) error {
	if err := c.store.Put(ctx, routeID, year, month, data); err != nil {
		return err
	}
	if c.memory != nil {
		c.memory.Set(cache.Key(routeID, year, month), data)
	}
	return nil
}

func (c *cachingStore) DeleteAll(ctx context.Context, routeID string, year int) error {
	if err := c.store.DeleteAll(ctx, routeID, year); err != nil {
		return err
	}
	if c.memory != nil {
		c.memory.DeleteRouteYear(routeID, year)
	}
	return nil
}
