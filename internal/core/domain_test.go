package core

import (
	"testing"
	"time"
)

func validTx() Transaction {
	return Transaction{
		ID:      "t1",
		RouteID: "r1",
		Account: AccountCashFund,
		Kind:    Expense,
		Source:  SourceGasoline,
		Amount:  d("100"),
		Date:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local),
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := validTx().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"empty route", func(tx *Transaction) { tx.RouteID = " " }, ErrEmptyRouteID},
		{"zero date", func(tx *Transaction) { tx.Date = time.Time{} }, ErrZeroDate},
		{"bad account", func(tx *Transaction) { tx.Account = "PIGGY_BANK" }, ErrInvalidAccount},
		{"negative amount", func(tx *Transaction) { tx.Amount = d("-1") }, ErrNegativeAmount},
		{"negative profit", func(tx *Transaction) { tx.ProfitAmount = d("-1") }, ErrNegativeAmount},
		{"profit over amount", func(tx *Transaction) { tx.ProfitAmount = d("101") }, ErrProfitExceeds},
		{"bad kind", func(tx *Transaction) { tx.Kind = "TRANSFER" }, ErrInvalidKind},
		{"income source on expense", func(tx *Transaction) { tx.Source = SourceLoanPaymentCash }, ErrInvalidSource},
		{"expense source on income", func(tx *Transaction) {
			tx.Kind = Income
			tx.Source = SourceGasoline
		}, ErrInvalidSource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTx()
			tt.mutate(&tx)
			if err := tx.Validate(); err != tt.want {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoanValidate(t *testing.T) {
	good := Loan{ID: "l1", RouteID: "r1", Principal: d("1000"), Rate: d("0.4")}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Loan{
		{ID: "", RouteID: "r1", Principal: d("1"), Rate: d("0.1")},
		{ID: "l1", RouteID: "", Principal: d("1"), Rate: d("0.1")},
		{ID: "l1", RouteID: "r1", Principal: d("-1"), Rate: d("0.1")},
		{ID: "l1", RouteID: "r1", Principal: d("1"), Rate: d("-0.1")},
	}
	for i, l := range bads {
		if err := l.Validate(); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestRouteValidate(t *testing.T) {
	if err := (Route{ID: "r1", Name: "Ruta Norte"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Route{ID: "", Name: "x"}).Validate(); err != ErrEmptyRouteID {
		t.Fatalf("got %v", err)
	}
	if err := (Route{ID: "r1", Name: "  "}).Validate(); err != ErrEmptyRouteName {
		t.Fatalf("got %v", err)
	}
}

func TestMonthWindow(t *testing.T) {
	start, end := MonthWindow(2025, 2)
	if start.Day() != 1 || start.Month() != time.February || start.Hour() != 0 {
		t.Errorf("start = %v", start)
	}
	if end.Day() != 28 || end.Month() != time.February {
		t.Errorf("end = %v", end)
	}
	if !end.After(start) {
		t.Errorf("end must follow start")
	}
	// End is the last instant of the month: one nanosecond before March 1.
	if next := end.Add(time.Nanosecond); next.Month() != time.March || next.Day() != 1 {
		t.Errorf("end+1ns = %v, want March 1", next)
	}
}
