package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"cartera/internal/core"
)

var errStoreDown = errors.New("store unavailable")

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.Local)
}

// fakeLedger serves a fixed transaction set, filtered by route and window.
type fakeLedger struct {
	transactions []core.Transaction
}

func (f *fakeLedger) ListTransactions(_ context.Context, routeIDs []string, start, end time.Time) ([]core.Transaction, error) {
	wanted := make(map[string]bool, len(routeIDs))
	for _, id := range routeIDs {
		wanted[id] = true
	}
	var out []core.Transaction
	for _, tx := range f.transactions {
		if wanted[tx.RouteID] && !tx.Date.Before(start) && !tx.Date.After(end) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeLedger) ListBadDebtLoans(context.Context, []string, time.Time, time.Time) ([]core.Loan, error) {
	return nil, nil
}

func (f *fakeLedger) ListLoanCollections(context.Context, string) ([]core.Payment, []core.Transaction, error) {
	return nil, nil, nil
}

type storeKey struct {
	routeID     string
	year, month int
}

// fakeStore is an in-memory CacheStore with call counters.
type fakeStore struct {
	mu      sync.Mutex
	data    map[storeKey]core.MonthlyData
	gets    int
	puts    int
	deletes int
	fail    bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[storeKey]core.MonthlyData)}
}

func (f *fakeStore) Get(_ context.Context, routeID string, year, month int) (core.MonthlyData, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return core.MonthlyData{}, false, errStoreDown
	}
	f.gets++
	d, ok := f.data[storeKey{routeID, year, month}]
	return d, ok, nil
}

func (f *fakeStore) Put(_ context.Context, routeID string, year, month int, d core.MonthlyData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStoreDown
	}
	f.puts++
	f.data[storeKey{routeID, year, month}] = d
	return nil
}

func (f *fakeStore) DeleteAll(_ context.Context, routeID string, year int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStoreDown
	}
	f.deletes++
	for k := range f.data {
		if k.routeID == routeID && k.year == year {
			delete(f.data, k)
		}
	}
	return nil
}

// fakeDirectory echoes back one Route per requested ID.
type fakeDirectory struct {
	err error
}

func (f *fakeDirectory) ListRoutes(_ context.Context, routeIDs []string) ([]core.Route, error) {
	if f.err != nil {
		return nil, f.err
	}
	routes := make([]core.Route, 0, len(routeIDs))
	for _, id := range routeIDs {
		routes = append(routes, core.Route{ID: id, Name: "Ruta " + id})
	}
	return routes, nil
}

type publishedRefresh struct {
	routeID string
	year    int
}

type fakePublisher struct {
	mu        sync.Mutex
	published []publishedRefresh
	err       error
}

func (f *fakePublisher) PublishCacheRefresh(_ context.Context, routeID string, year int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, publishedRefresh{routeID, year})
	return nil
}

// fakeWriter records ledger writes for LedgerService tests.
type fakeWriter struct {
	transactions []core.Transaction
	loans        []core.Loan
	payments     []core.Payment
	badDebtRoute string
	badDebtErr   error
	markedLoanID string
	markedDate   time.Time
}

func (f *fakeWriter) CreateTransaction(_ context.Context, tx core.Transaction) error {
	f.transactions = append(f.transactions, tx)
	return nil
}

func (f *fakeWriter) CreateLoan(_ context.Context, loan core.Loan) error {
	f.loans = append(f.loans, loan)
	return nil
}

func (f *fakeWriter) CreatePayment(_ context.Context, p core.Payment) error {
	f.payments = append(f.payments, p)
	return nil
}

func (f *fakeWriter) MarkLoanBadDebt(_ context.Context, loanID string, d time.Time) (string, error) {
	if f.badDebtErr != nil {
		return "", f.badDebtErr
	}
	f.markedLoanID = loanID
	f.markedDate = d
	return f.badDebtRoute, nil
}
