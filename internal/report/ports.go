package report

import (
	"context"
	"time"

	"cartera/internal/core"
)

// Ports for the engine's collaborators. The engine stays a pure function of
// its declared inputs: every data dependency is passed in explicitly instead
// of living on an ambient context object.
type (
	// LedgerReader is a read-only view over the immutable transaction and
	// loan records.
	LedgerReader interface {
		// ListTransactions returns every ledger entry for the routes dated
		// within [start, end].
		ListTransactions(ctx context.Context, routeIDs []string, start, end time.Time) ([]core.Transaction, error)

		// ListBadDebtLoans returns loans whose bad-debt marking date falls
		// within [start, end] for the given routes.
		ListBadDebtLoans(ctx context.Context, routeIDs []string, start, end time.Time) ([]core.Loan, error)

		// ListLoanCollections returns all recorded payments of a loan plus
		// the profit-bearing transactions linked to those payments.
		ListLoanCollections(ctx context.Context, loanID string) ([]core.Payment, []core.Transaction, error)
	}

	// CacheStore persists one MonthlyData per (single route, year, month).
	// Multi-route combinations are never stored; that asymmetry keeps the
	// cache linear in the number of routes.
	CacheStore interface {
		Get(ctx context.Context, routeID string, year, month int) (core.MonthlyData, bool, error)
		Put(ctx context.Context, routeID string, year, month int, data core.MonthlyData) error
		DeleteAll(ctx context.Context, routeID string, year int) error
	}

	// RouteDirectory resolves route metadata for report responses.
	RouteDirectory interface {
		ListRoutes(ctx context.Context, routeIDs []string) ([]core.Route, error)
	}
)
