package report

import (
	"context"
	"errors"
	"time"

	"cartera/internal/core"
)

// fakeLedger is an in-memory LedgerReader for engine tests.
type fakeLedger struct {
	txs      []core.Transaction
	loans    []core.Loan
	payments map[string][]core.Payment
	profits  map[string][]core.Transaction
	fail     error
}

func (f *fakeLedger) ListTransactions(_ context.Context, routeIDs []string, start, end time.Time) ([]core.Transaction, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	var out []core.Transaction
	for _, tx := range f.txs {
		if !inRoutes(routeIDs, tx.RouteID) {
			continue
		}
		if tx.Date.Before(start) || tx.Date.After(end) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (f *fakeLedger) ListBadDebtLoans(_ context.Context, routeIDs []string, start, end time.Time) ([]core.Loan, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	var out []core.Loan
	for _, l := range f.loans {
		if l.BadDebtDate == nil || !inRoutes(routeIDs, l.RouteID) {
			continue
		}
		if l.BadDebtDate.Before(start) || l.BadDebtDate.After(end) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeLedger) ListLoanCollections(_ context.Context, loanID string) ([]core.Payment, []core.Transaction, error) {
	if f.fail != nil {
		return nil, nil, f.fail
	}
	return f.payments[loanID], f.profits[loanID], nil
}

func inRoutes(routeIDs []string, id string) bool {
	for _, r := range routeIDs {
		if r == id {
			return true
		}
	}
	return false
}

type cacheKey struct {
	routeID     string
	year, month int
}

// fakeStore is an in-memory CacheStore.
type fakeStore struct {
	entries map[cacheKey]core.MonthlyData
	puts    int
	fail    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[cacheKey]core.MonthlyData)}
}

func (f *fakeStore) Get(_ context.Context, routeID string, year, month int) (core.MonthlyData, bool, error) {
	if f.fail != nil {
		return core.MonthlyData{}, false, f.fail
	}
	data, ok := f.entries[cacheKey{routeID, year, month}]
	return data, ok, nil
}

func (f *fakeStore) Put(_ context.Context, routeID string, year, month int, data core.MonthlyData) error {
	if f.fail != nil {
		return f.fail
	}
	f.puts++
	f.entries[cacheKey{routeID, year, month}] = data
	return nil
}

func (f *fakeStore) DeleteAll(_ context.Context, routeID string, year int) error {
	if f.fail != nil {
		return f.fail
	}
	for k := range f.entries {
		if k.routeID == routeID && k.year == year {
			delete(f.entries, k)
		}
	}
	return nil
}

var errLedgerDown = errors.New("ledger unavailable")
