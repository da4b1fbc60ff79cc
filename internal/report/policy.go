package report

import (
	"context"
	"fmt"

	"cartera/internal/core"
)

// YearPlan is the outcome of the invalidation policy for one route-year:
// months that can be served from the store as-is, and months that must be
// recomputed.
type YearPlan struct {
	Cached    map[int]core.MonthlyData
	Recompute []int
}

// PlanYear decides, per stored entry, whether it is missing, stale or
// structurally empty and must be recomputed.
//
// Rules, in order: a force request clears the route-year and recomputes all
// twelve months; no stored rows at all recomputes all twelve; a stored row
// with all core activity fields at zero is suspect and recomputed; a missing
// month is recomputed; everything else is served from the store.
func PlanYear(ctx context.Context, store CacheStore, routeID string, year int, force bool) (YearPlan, error) {
	plan := YearPlan{Cached: make(map[int]core.MonthlyData)}

	if force {
		if err := store.DeleteAll(ctx, routeID, year); err != nil {
			return YearPlan{}, fmt.Errorf("delete cached year: %w", err)
		}
		plan.Recompute = allMonths()
		return plan, nil
	}

	for month := 1; month <= 12; month++ {
		data, ok, err := store.Get(ctx, routeID, year, month)
		if err != nil {
			return YearPlan{}, fmt.Errorf("get cached month %d: %w", month, err)
		}
		if !ok || data.Inactive() {
			plan.Recompute = append(plan.Recompute, month)
			continue
		}
		plan.Cached[month] = data
	}

	// No usable rows at all behaves the same as an empty cache.
	if len(plan.Cached) == 0 {
		plan.Recompute = allMonths()
	}
	return plan, nil
}

// ComputeYear executes a plan: recomputed months overwrite the stored entry
// if present, or create a new one. Returns the full twelve months keyed 1-12.
func ComputeYear(ctx context.Context, ledger LedgerReader, store CacheStore, routeID string, year int, plan YearPlan) (map[int]core.MonthlyData, error) {
	months := make(map[int]core.MonthlyData, 12)
	for m, data := range plan.Cached {
		months[m] = data
	}
	for _, m := range plan.Recompute {
		data, err := ComputeMonth(ctx, ledger, []string{routeID}, year, m)
		if err != nil {
			return nil, fmt.Errorf("compute %s %d-%02d: %w", routeID, year, m, err)
		}
		if err := store.Put(ctx, routeID, year, m, data); err != nil {
			return nil, fmt.Errorf("store %s %d-%02d: %w", routeID, year, m, err)
		}
		months[m] = data
	}
	return months, nil
}

func allMonths() []int {
	months := make([]int, 12)
	for i := range months {
		months[i] = i + 1
	}
	return months
}
