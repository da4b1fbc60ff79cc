package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionKind = "INCOME"
	Expense TransactionKind = "EXPENSE"
)

const (
	SourceGasoline          TransactionSource = "GASOLINE"
	SourceSalaryInternal    TransactionSource = "SALARY_INTERNAL"
	SourceSalaryExternal    TransactionSource = "SALARY_EXTERNAL"
	SourcePerDiem           TransactionSource = "PER_DIEM"
	SourceTravel            TransactionSource = "TRAVEL"
	SourceCommissionPayment TransactionSource = "COMMISSION_PAYMENT"
	SourceCommissionGrant   TransactionSource = "COMMISSION_GRANT"
	SourceCommissionLeader  TransactionSource = "COMMISSION_LEADER"
	SourceLoanDisbursement  TransactionSource = "LOAN_DISBURSEMENT"
	SourceLoanPaymentCash   TransactionSource = "LOAN_PAYMENT_CASH"
	SourceLoanPaymentBank   TransactionSource = "LOAN_PAYMENT_BANK"
	SourceOtherIncome       TransactionSource = "OTHER_INCOME"
	SourceOther             TransactionSource = "OTHER"
)

const (
	AccountPrepaidGasoline AccountKind = "PREPAID_GASOLINE"
	AccountCashFund        AccountKind = "CASH_FUND"
	AccountBank            AccountKind = "BANK"
	AccountOffice          AccountKind = "OFFICE"
)

type (
	TransactionKind   string
	TransactionSource string
	AccountKind       string

	// Route is an operational territory under one field leader, the
	// partitioning key for all reporting.
	Route struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	// Transaction is an immutable ledger entry. ProfitAmount carries the
	// interest portion of a loan payment and is zero for everything else.
	Transaction struct {
		ID            string
		RouteID       string
		Account       AccountKind
		Kind          TransactionKind
		Source        TransactionSource
		Amount        decimal.Decimal
		ProfitAmount  decimal.Decimal
		Date          time.Time
		LoanPaymentID string // set when the entry derives from a loan payment
	}

	// Loan is read-only from the reporting engine's perspective.
	Loan struct {
		ID          string
		RouteID     string
		Principal   decimal.Decimal
		Rate        decimal.Decimal
		BadDebtDate *time.Time
	}

	Payment struct {
		ID     string
		LoanID string
		Amount decimal.Decimal
		Date   time.Time
	}
)

var (
	ErrEmptyRouteID   = errors.New("empty route id")
	ErrInvalidKind    = errors.New("invalid transaction kind")
	ErrInvalidSource  = errors.New("invalid transaction source")
	ErrInvalidAccount = errors.New("invalid account kind")
	ErrNegativeAmount = errors.New("negative amount")
	ErrProfitExceeds  = errors.New("profit portion exceeds amount")
	ErrZeroDate       = errors.New("date cannot be zero")
	ErrInvalidRate    = errors.New("invalid interest rate")
	ErrEmptyLoanID    = errors.New("empty loan id")
	ErrEmptyRouteName = errors.New("empty route name")
)

var expenseSources = map[TransactionSource]bool{
	SourceGasoline:          true,
	SourceSalaryInternal:    true,
	SourceSalaryExternal:    true,
	SourcePerDiem:           true,
	SourceTravel:            true,
	SourceCommissionPayment: true,
	SourceCommissionGrant:   true,
	SourceCommissionLeader:  true,
	SourceLoanDisbursement:  true,
	SourceOther:             true,
}

var incomeSources = map[TransactionSource]bool{
	SourceLoanPaymentCash: true,
	SourceLoanPaymentBank: true,
	SourceOtherIncome:     true,
	SourceOther:           true,
}

// IsLoanPayment reports whether the source is a cash or bank loan payment,
// the two sources whose amounts split into capital and profit portions.
func (s TransactionSource) IsLoanPayment() bool {
	return s == SourceLoanPaymentCash || s == SourceLoanPaymentBank
}

func (k AccountKind) Valid() bool {
	switch k {
	case AccountPrepaidGasoline, AccountCashFund, AccountBank, AccountOffice:
		return true
	}
	return false
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.RouteID) == "" {
		return ErrEmptyRouteID
	}
	if t.Date.IsZero() {
		return ErrZeroDate
	}
	if !t.Account.Valid() {
		return ErrInvalidAccount
	}
	if t.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if t.ProfitAmount.IsNegative() {
		return ErrNegativeAmount
	}
	if t.ProfitAmount.GreaterThan(t.Amount) {
		return ErrProfitExceeds
	}
	switch t.Kind {
	case Expense:
		if !expenseSources[t.Source] {
			return ErrInvalidSource
		}
	case Income:
		if !incomeSources[t.Source] {
			return ErrInvalidSource
		}
	default:
		return ErrInvalidKind
	}
	return nil
}

func (l Loan) Validate() error {
	if strings.TrimSpace(l.ID) == "" {
		return ErrEmptyLoanID
	}
	if strings.TrimSpace(l.RouteID) == "" {
		return ErrEmptyRouteID
	}
	if l.Principal.IsNegative() {
		return ErrNegativeAmount
	}
	if l.Rate.IsNegative() {
		return ErrInvalidRate
	}
	return nil
}

func (p Payment) Validate() error {
	if strings.TrimSpace(p.LoanID) == "" {
		return ErrEmptyLoanID
	}
	if p.Date.IsZero() {
		return ErrZeroDate
	}
	if p.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

func (r Route) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrEmptyRouteID
	}
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyRouteName
	}
	return nil
}

// MonthWindow returns the inclusive boundaries of a calendar month: local
// midnight of the first day through the last instant of the last day.
func MonthWindow(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}
