package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"cartera/internal/cache"
	"cartera/internal/core"
)

// LedgerWriter is the persistence surface the ledger service needs.
type LedgerWriter interface {
	CreateTransaction(ctx context.Context, tx core.Transaction) error
	CreateLoan(ctx context.Context, loan core.Loan) error
	CreatePayment(ctx context.Context, p core.Payment) error
	MarkLoanBadDebt(ctx context.Context, loanID string, date time.Time) (string, error)
}

// LedgerService records ledger movements and keeps cached summaries honest:
// every write invalidates the affected route-year, locally right away and
// through the refresh queue when a publisher is configured.
type LedgerService struct {
	writer    LedgerWriter
	memory    *cache.SummaryCache
	publisher RefreshPublisher
}

func NewLedgerService(writer LedgerWriter, memory *cache.SummaryCache, publisher RefreshPublisher) *LedgerService {
	return &LedgerService{writer: writer, memory: memory, publisher: publisher}
}

// RecordTransaction validates and persists a transaction, assigning an ID
// when the caller did not supply one. Returns the stored transaction ID.
func (s *LedgerService) RecordTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if err := tx.Validate(); err != nil {
		return "", err
	}
	if err := s.writer.CreateTransaction(ctx, tx); err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}

	s.invalidate(ctx, tx.RouteID, tx.Date.Year())
	return tx.ID, nil
}

// RecordLoan persists a new loan.
func (s *LedgerService) RecordLoan(ctx context.Context, loan core.Loan) (string, error) {
	if loan.ID == "" {
		loan.ID = uuid.New().String()
	}
	if err := loan.Validate(); err != nil {
		return "", err
	}
	if err := s.writer.CreateLoan(ctx, loan); err != nil {
		return "", fmt.Errorf("create loan: %w", err)
	}
	return loan.ID, nil
}

// RecordPayment persists a loan payment row. The matching ledger transaction
// is recorded separately through RecordTransaction.
func (s *LedgerService) RecordPayment(ctx context.Context, p core.Payment) (string, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if err := p.Validate(); err != nil {
		return "", err
	}
	if err := s.writer.CreatePayment(ctx, p); err != nil {
		return "", fmt.Errorf("create payment: %w", err)
	}
	return p.ID, nil
}

// MarkLoanBadDebt stamps the loan with the marking date and invalidates the
// route-year the date falls in.
func (s *LedgerService) MarkLoanBadDebt(ctx context.Context, loanID string, date time.Time) error {
	if loanID == "" {
		return core.ErrEmptyLoanID
	}
	if date.IsZero() {
		date = time.Now()
	}

	routeID, err := s.writer.MarkLoanBadDebt(ctx, loanID, date)
	if err != nil {
		return fmt.Errorf("mark bad debt: %w", err)
	}

	s.invalidate(ctx, routeID, date.Year())
	return nil
}

// invalidate drops the in-process entries immediately and hands the durable
// invalidation to the refresh worker. Publish failures are logged, never
// surfaced: the write already succeeded.
func (s *LedgerService) invalidate(ctx context.Context, routeID string, year int) {
	if s.memory != nil {
		s.memory.DeleteRouteYear(routeID, year)
	}

	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping refresh message",
			"route_id", routeID, "year", year)
		return
	}
	if err := s.publisher.PublishCacheRefresh(ctx, routeID, year); err != nil {
		slog.ErrorContext(ctx, "Failed to publish refresh message",
			"route_id", routeID, "year", year, "error", err)
	}
}
