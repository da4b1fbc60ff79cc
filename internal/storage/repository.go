package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cartera/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the single persistence layer: the transaction ledger,
// the loan book, the route directory, and the month-summary cache table.
// It implements report.LedgerReader, report.CacheStore and
// report.RouteDirectory.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListTransactions implements report.LedgerReader.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, routeIDs []string, start, end time.Time) ([]core.Transaction, error) {
	if len(routeIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, route_id, account, kind, source, amount, profit_amount, tx_date, COALESCE(loan_payment_id, '')
		FROM transactions
		WHERE route_id IN (%s) AND tx_date >= ? AND tx_date <= ?
		ORDER BY tx_date, id`, placeholders(len(routeIDs)))

	args := inArgs(routeIDs)
	args = append(args, start.UnixNano(), end.UnixNano())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			tx                     core.Transaction
			amount, profit         string
			account, kind, source  string
			dateNanos              int64
		)
		if err := rows.Scan(&tx.ID, &tx.RouteID, &account, &kind, &source, &amount, &profit, &dateNanos, &tx.LoanPaymentID); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Account = core.AccountKind(account)
		tx.Kind = core.TransactionKind(kind)
		tx.Source = core.TransactionSource(source)
		tx.Date = time.Unix(0, dateNanos)
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount of transaction %s: %w", tx.ID, err)
		}
		if tx.ProfitAmount, err = decimal.NewFromString(profit); err != nil {
			return nil, fmt.Errorf("parse profit of transaction %s: %w", tx.ID, err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// ListBadDebtLoans implements report.LedgerReader.
func (r *SQLiteRepository) ListBadDebtLoans(ctx context.Context, routeIDs []string, start, end time.Time) ([]core.Loan, error) {
	if len(routeIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, route_id, principal, rate, bad_debt_date
		FROM loans
		WHERE route_id IN (%s) AND bad_debt_date IS NOT NULL AND bad_debt_date >= ? AND bad_debt_date <= ?`,
		placeholders(len(routeIDs)))

	args := inArgs(routeIDs)
	args = append(args, start.UnixNano(), end.UnixNano())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bad-debt loans: %w", err)
	}
	defer rows.Close()

	var out []core.Loan
	for rows.Next() {
		var (
			loan            core.Loan
			principal, rate string
			badDebtNanos    sql.NullInt64
		)
		if err := rows.Scan(&loan.ID, &loan.RouteID, &principal, &rate, &badDebtNanos); err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		if loan.Principal, err = decimal.NewFromString(principal); err != nil {
			return nil, fmt.Errorf("parse principal of loan %s: %w", loan.ID, err)
		}
		if loan.Rate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("parse rate of loan %s: %w", loan.ID, err)
		}
		if badDebtNanos.Valid {
			t := time.Unix(0, badDebtNanos.Int64)
			loan.BadDebtDate = &t
		}
		out = append(out, loan)
	}
	return out, rows.Err()
}

// ListLoanCollections implements report.LedgerReader: all recorded payments
// of the loan plus the profit-bearing transactions linked to those payments.
func (r *SQLiteRepository) ListLoanCollections(ctx context.Context, loanID string) ([]core.Payment, []core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, loan_id, amount, paid_at FROM payments WHERE loan_id = ? ORDER BY paid_at, id`, loanID)
	if err != nil {
		return nil, nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var payments []core.Payment
	for rows.Next() {
		var (
			p         core.Payment
			amount    string
			paidNanos int64
		)
		if err := rows.Scan(&p.ID, &p.LoanID, &amount, &paidNanos); err != nil {
			return nil, nil, fmt.Errorf("scan payment: %w", err)
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, nil, fmt.Errorf("parse amount of payment %s: %w", p.ID, err)
		}
		p.Date = time.Unix(0, paidNanos)
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	txRows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.route_id, t.account, t.kind, t.source, t.amount, t.profit_amount, t.tx_date, t.loan_payment_id
		FROM transactions t
		JOIN payments p ON p.id = t.loan_payment_id
		WHERE p.loan_id = ?`, loanID)
	if err != nil {
		return nil, nil, fmt.Errorf("query payment transactions: %w", err)
	}
	defer txRows.Close()

	var txs []core.Transaction
	for txRows.Next() {
		var (
			tx                    core.Transaction
			amount, profit        string
			account, kind, source string
			dateNanos             int64
		)
		if err := txRows.Scan(&tx.ID, &tx.RouteID, &account, &kind, &source, &amount, &profit, &dateNanos, &tx.LoanPaymentID); err != nil {
			return nil, nil, fmt.Errorf("scan payment transaction: %w", err)
		}
		tx.Account = core.AccountKind(account)
		tx.Kind = core.TransactionKind(kind)
		tx.Source = core.TransactionSource(source)
		tx.Date = time.Unix(0, dateNanos)
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, nil, fmt.Errorf("parse amount of transaction %s: %w", tx.ID, err)
		}
		if tx.ProfitAmount, err = decimal.NewFromString(profit); err != nil {
			return nil, nil, fmt.Errorf("parse profit of transaction %s: %w", tx.ID, err)
		}
		txs = append(txs, tx)
	}
	return payments, txs, txRows.Err()
}

// Get implements report.CacheStore.
func (r *SQLiteRepository) Get(ctx context.Context, routeID string, year, month int) (core.MonthlyData, bool, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM month_summaries WHERE route_id = ? AND year = ? AND month = ?`,
		routeID, year, month).Scan(&raw)
	if err == sql.ErrNoRows {
		return core.MonthlyData{}, false, nil
	}
	if err != nil {
		return core.MonthlyData{}, false, fmt.Errorf("query month summary: %w", err)
	}

	var data core.MonthlyData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return core.MonthlyData{}, false, fmt.Errorf("decode month summary %s %d-%02d: %w", routeID, year, month, err)
	}
	return data, true, nil
}

// Put implements report.CacheStore: created on first computation, overwritten
// on recomputation.
func (r *SQLiteRepository) Put(ctx context.Context, routeID string, year, month int, data core.MonthlyData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode month summary: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO month_summaries (route_id, year, month, data, computed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (route_id, year, month) DO UPDATE SET data = excluded.data, computed_at = excluded.computed_at`,
		routeID, year, month, string(raw), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("store month summary: %w", err)
	}

	slog.DebugContext(ctx, "Month summary stored",
		"route_id", routeID, "year", year, "month", month)
	return nil
}

// DeleteAll implements report.CacheStore: full invalidation of a route-year.
func (r *SQLiteRepository) DeleteAll(ctx context.Context, routeID string, year int) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM month_summaries WHERE route_id = ? AND year = ?`, routeID, year)
	if err != nil {
		return fmt.Errorf("delete month summaries: %w", err)
	}

	slog.InfoContext(ctx, "Cached route-year invalidated", "route_id", routeID, "year", year)
	return nil
}

// ListRoutes implements report.RouteDirectory.
func (r *SQLiteRepository) ListRoutes(ctx context.Context, routeIDs []string) ([]core.Route, error) {
	if len(routeIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT id, name FROM routes WHERE id IN (%s) ORDER BY name`, placeholders(len(routeIDs)))
	rows, err := r.db.QueryContext(ctx, query, inArgs(routeIDs)...)
	if err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}
	defer rows.Close()

	var out []core.Route
	for rows.Next() {
		var route core.Route
		if err := rows.Scan(&route.ID, &route.Name); err != nil {
			return nil, fmt.Errorf("scan route: %w", err)
		}
		out = append(out, route)
	}
	return out, rows.Err()
}

// AllRoutes returns every registered route ordered by name.
func (r *SQLiteRepository) AllRoutes(ctx context.Context) ([]core.Route, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM routes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query all routes: %w", err)
	}
	defer rows.Close()

	var out []core.Route
	for rows.Next() {
		var route core.Route
		if err := rows.Scan(&route.ID, &route.Name); err != nil {
			return nil, fmt.Errorf("scan route: %w", err)
		}
		out = append(out, route)
	}
	return out, rows.Err()
}

// UpsertRoute creates or renames a route.
func (r *SQLiteRepository) UpsertRoute(ctx context.Context, route core.Route) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO routes (id, name) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
		route.ID, route.Name)
	if err != nil {
		return fmt.Errorf("upsert route: %w", err)
	}
	return nil
}

// CreateTransaction appends an immutable ledger entry.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) error {
	var loanPaymentID any
	if tx.LoanPaymentID != "" {
		loanPaymentID = tx.LoanPaymentID
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, route_id, account, kind, source, amount, profit_amount, tx_date, loan_payment_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.RouteID, string(tx.Account), string(tx.Kind), string(tx.Source),
		tx.Amount.String(), tx.ProfitAmount.String(), tx.Date.UnixNano(), loanPaymentID)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", tx.ID,
		"route_id", tx.RouteID,
		"kind", string(tx.Kind),
		"source", string(tx.Source),
		"amount", tx.Amount.String())
	return nil
}

// CreateLoan registers a loan aggregate.
func (r *SQLiteRepository) CreateLoan(ctx context.Context, loan core.Loan) error {
	var badDebt any
	if loan.BadDebtDate != nil {
		badDebt = loan.BadDebtDate.UnixNano()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO loans (id, route_id, principal, rate, bad_debt_date) VALUES (?, ?, ?, ?, ?)`,
		loan.ID, loan.RouteID, loan.Principal.String(), loan.Rate.String(), badDebt)
	if err != nil {
		return fmt.Errorf("create loan: %w", err)
	}
	return nil
}

// CreatePayment records a loan payment.
func (r *SQLiteRepository) CreatePayment(ctx context.Context, p core.Payment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (id, loan_id, amount, paid_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.LoanID, p.Amount.String(), p.Date.UnixNano())
	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// MarkLoanBadDebt sets the uncollectible marking date on a loan. Returns the
// loan's route id so callers can invalidate the affected cache.
func (r *SQLiteRepository) MarkLoanBadDebt(ctx context.Context, loanID string, date time.Time) (string, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE loans SET bad_debt_date = ? WHERE id = ?`, date.UnixNano(), loanID)
	if err != nil {
		return "", fmt.Errorf("mark loan bad debt: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("mark loan bad debt: %w", err)
	}
	if affected == 0 {
		return "", sql.ErrNoRows
	}

	var routeID string
	if err := r.db.QueryRowContext(ctx, `SELECT route_id FROM loans WHERE id = ?`, loanID).Scan(&routeID); err != nil {
		return "", fmt.Errorf("load loan route: %w", err)
	}

	slog.InfoContext(ctx, "Loan marked as bad debt", "loan_id", loanID, "route_id", routeID)
	return routeID, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func inArgs(ids []string) []any {
	args := make([]any, 0, len(ids)+2)
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}
