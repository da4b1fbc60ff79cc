package report

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cartera/internal/core"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.Local)
}

func TestComputeMonthEmpty(t *testing.T) {
	ledger := &fakeLedger{}
	data, err := ComputeMonth(context.Background(), ledger, []string{"r1"}, 2025, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !data.TotalExpenses.IsZero() || !data.TotalIncomes.IsZero() || !data.NetCash.IsZero() ||
		!data.BadDebt.IsZero() || !data.OperationalProfit.IsZero() || !data.ProfitPercentage.IsZero() ||
		!data.GainPerPayment.IsZero() || !data.WeeklyIncome.IsZero() || data.PaymentCount != 0 {
		t.Fatalf("expected all-zero summary, got %+v", data)
	}
	if data.OperationalWeeks < 4 || data.OperationalWeeks > 6 {
		t.Fatalf("operational weeks out of range: %d", data.OperationalWeeks)
	}
}

func TestComputeMonthWorkedExample(t *testing.T) {
	// One gasoline expense of 1000 on the prepaid card and one cash loan
	// payment of 1500 with a 500 profit portion.
	ledger := &fakeLedger{txs: []core.Transaction{
		{
			ID: "t1", RouteID: "r1", Account: core.AccountPrepaidGasoline,
			Kind: core.Expense, Source: core.SourceGasoline,
			Amount: dec("1000"), Date: date(2025, 5, 10),
		},
		{
			ID: "t2", RouteID: "r1", Account: core.AccountCashFund,
			Kind: core.Income, Source: core.SourceLoanPaymentCash,
			Amount: dec("1500"), ProfitAmount: dec("500"), Date: date(2025, 5, 12),
		},
	}}

	data, err := ComputeMonth(context.Background(), ledger, []string{"r1"}, 2025, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"gasoline prepaid", data.GasolinePrepaid, "1000"},
		{"gasoline total", data.GasolineTotal, "1000"},
		{"general expenses", data.GeneralExpenses, "1000"},
		{"operational expenses", data.OperationalExpenses, "1000"},
		{"total expenses", data.TotalExpenses, "1000"},
		{"incomes", data.TotalIncomes, "500"},
		{"capital returned", data.CapitalReturned, "1000"},
		{"profit returned", data.ProfitReturned, "500"},
		{"balance", data.Balance, "-500"},
		{"net cash", data.NetCash, "500"},
		{"total incoming cash", data.TotalIncomingCash, "1500"},
		{"total cash used", data.TotalCashUsed, "1000"},
		{"total investment", data.TotalInvestment, "1000"},
	}
	for _, c := range checks {
		if !c.got.Equal(dec(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
	if data.PaymentCount != 1 {
		t.Errorf("payment count = %d, want 1", data.PaymentCount)
	}
}

func TestComputeMonthBucketClassification(t *testing.T) {
	mk := func(src core.TransactionSource, acct core.AccountKind, amount string) core.Transaction {
		return core.Transaction{
			RouteID: "r1", Account: acct, Kind: core.Expense, Source: src,
			Amount: dec(amount), Date: date(2025, 7, 15),
		}
	}
	ledger := &fakeLedger{txs: []core.Transaction{
		mk(core.SourceGasoline, core.AccountPrepaidGasoline, "100"),
		mk(core.SourceGasoline, core.AccountCashFund, "50"),
		mk(core.SourceSalaryInternal, core.AccountOffice, "300"),
		mk(core.SourceSalaryExternal, core.AccountOffice, "200"),
		mk(core.SourcePerDiem, core.AccountCashFund, "80"),
		mk(core.SourceTravel, core.AccountCashFund, "40"),
		mk(core.SourceCommissionPayment, core.AccountCashFund, "10"),
		mk(core.SourceCommissionGrant, core.AccountCashFund, "20"),
		mk(core.SourceCommissionLeader, core.AccountCashFund, "30"),
		mk(core.SourceLoanDisbursement, core.AccountCashFund, "1000"),
		mk(core.SourceOther, core.AccountOffice, "25"),
	}}

	data, err := ComputeMonth(context.Background(), ledger, []string{"r1"}, 2025, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Totals must equal the sum of their declared constituents.
	if !data.GasolineTotal.Equal(data.GasolinePrepaid.Add(data.GasolineCash)) {
		t.Errorf("gasoline total %s != prepaid %s + cash %s", data.GasolineTotal, data.GasolinePrepaid, data.GasolineCash)
	}
	if !data.PayrollTotal.Equal(data.Salaries.Add(data.ExternalSalaries).Add(data.PerDiems)) {
		t.Errorf("payroll total %s does not sum", data.PayrollTotal)
	}
	if !data.OperationalExpenses.Equal(data.GeneralExpenses.Add(data.PayrollTotal).Add(data.Commissions)) {
		t.Errorf("operational expenses %s does not sum", data.OperationalExpenses)
	}
	if !data.TotalExpenses.Equal(data.OperationalExpenses) {
		t.Errorf("total expenses %s != operational %s", data.TotalExpenses, data.OperationalExpenses)
	}
	if !data.UIExpensesTotal.Equal(data.OperationalExpenses.Add(data.BadDebt).Add(data.TravelExpenses)) {
		t.Errorf("ui expenses total %s does not sum", data.UIExpensesTotal)
	}

	wants := map[string]struct {
		got  decimal.Decimal
		want string
	}{
		"gasoline prepaid": {data.GasolinePrepaid, "100"},
		"gasoline cash":    {data.GasolineCash, "50"},
		"general":          {data.GeneralExpenses, "175"}, // gasoline 150 + other 25
		"salaries":         {data.Salaries, "300"},
		"external":         {data.ExternalSalaries, "200"},
		"per diems":        {data.PerDiems, "80"},
		"payroll":          {data.PayrollTotal, "580"},
		"travel":           {data.TravelExpenses, "40"},
		"commissions":      {data.Commissions, "60"},
		"disbursements":    {data.Disbursements, "1000"},
		"cash used":        {data.TotalCashUsed, "1855"},
		"investment":       {data.TotalInvestment, "855"}, // everything but the disbursement
	}
	for name, c := range wants {
		if !c.got.Equal(dec(c.want)) {
			t.Errorf("%s = %s, want %s", name, c.got, c.want)
		}
	}
	if !data.BalanceWithReinvest.Equal(data.Balance.Sub(data.Disbursements)) {
		t.Errorf("balance with reinvest %s != balance %s - disbursements %s",
			data.BalanceWithReinvest, data.Balance, data.Disbursements)
	}
}

func TestComputeMonthBadDebt(t *testing.T) {
	bd := date(2025, 6, 20)
	tests := []struct {
		name      string
		principal string
		rate      string
		paid      string
		collected string
		want      string
	}{
		// principal 1000, rate 0.4, paid 200, no profit collected:
		// pendingProfit 400, owed 1400, pendingDebt 1200, exposure 800.
		{"worked example", "1000", "0.4", "200", "0", "800"},
		{"nothing paid", "1000", "0.4", "0", "0", "1000"},
		{"overpaid clamps to zero", "1000", "0.4", "2000", "400", "0"},
		{"profit fully collected", "1000", "0.4", "400", "400", "1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &fakeLedger{
				loans: []core.Loan{{
					ID: "l1", RouteID: "r1",
					Principal: dec(tt.principal), Rate: dec(tt.rate), BadDebtDate: &bd,
				}},
				payments: map[string][]core.Payment{},
				profits:  map[string][]core.Transaction{},
			}
			if tt.paid != "0" {
				ledger.payments["l1"] = []core.Payment{{ID: "p1", LoanID: "l1", Amount: dec(tt.paid)}}
			}
			if tt.collected != "0" {
				ledger.profits["l1"] = []core.Transaction{{ProfitAmount: dec(tt.collected)}}
			}

			data, err := ComputeMonth(context.Background(), ledger, []string{"r1"}, 2025, 6)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !data.BadDebt.Equal(dec(tt.want)) {
				t.Fatalf("bad debt = %s, want %s", data.BadDebt, tt.want)
			}
			if data.BadDebt.IsNegative() {
				t.Fatalf("bad debt must never be negative")
			}
		})
	}
}

func TestComputeMonthBadDebtOutsideMonthIgnored(t *testing.T) {
	bd := date(2025, 4, 1)
	ledger := &fakeLedger{loans: []core.Loan{{
		ID: "l1", RouteID: "r1", Principal: dec("1000"), Rate: dec("0.4"), BadDebtDate: &bd,
	}}}

	data, err := ComputeMonth(context.Background(), ledger, []string{"r1"}, 2025, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !data.BadDebt.IsZero() {
		t.Fatalf("loan marked outside the month must not count, got %s", data.BadDebt)
	}
}

func TestComputeMonthProfitRatios(t *testing.T) {
	ledger := &fakeLedger{txs: []core.Transaction{
		{
			RouteID: "r1", Account: core.AccountCashFund, Kind: core.Income,
			Source: core.SourceLoanPaymentCash, Amount: dec("1000"),
			ProfitAmount: dec("400"), Date: date(2025, 9, 3),
		},
		{
			RouteID: "r1", Account: core.AccountCashFund, Kind: core.Expense,
			Source: core.SourceOther, Amount: dec("100"), Date: date(2025, 9, 4),
		},
	}}

	data, err := ComputeMonth(context.Background(), ledger, []string{"r1"}, 2025, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantProfit := dec("300") // gains 400 - expenses 100
	if !data.OperationalProfit.Equal(wantProfit) {
		t.Fatalf("operational profit = %s, want %s", data.OperationalProfit, wantProfit)
	}
	wantPct := wantProfit.Div(dec("400")).Mul(dec("100"))
	if !data.ProfitPercentage.Equal(wantPct) {
		t.Fatalf("profit percentage = %s, want %s", data.ProfitPercentage, wantPct)
	}
	if !data.GainPerPayment.Equal(wantProfit) {
		t.Fatalf("gain per payment = %s, want %s (single payment)", data.GainPerPayment, wantProfit)
	}

	weeks := decimal.NewFromInt(int64(data.OperationalWeeks))
	if !data.WeeklyIncome.Equal(data.TotalIncomes.Div(weeks)) {
		t.Errorf("weekly income not normalized")
	}
	if !data.WeeklyExpenses.Equal(data.TotalExpenses.Div(weeks)) {
		t.Errorf("weekly expenses not normalized")
	}
	if !data.WeeklyProfit.Equal(data.OperationalProfit.Div(weeks)) {
		t.Errorf("weekly profit not normalized")
	}
}

func TestComputeMonthProfitPercentageZeroGains(t *testing.T) {
	ledger := &fakeLedger{txs: []core.Transaction{{
		RouteID: "r1", Account: core.AccountCashFund, Kind: core.Expense,
		Source: core.SourceOther, Amount: dec("100"), Date: date(2025, 2, 10),
	}}}

	data, err := ComputeMonth(context.Background(), ledger, []string{"r1"}, 2025, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !data.ProfitPercentage.IsZero() {
		t.Fatalf("profit percentage must be zero when gains are zero, got %s", data.ProfitPercentage)
	}
	if !data.GainPerPayment.IsZero() {
		t.Fatalf("gain per payment must be zero without payments, got %s", data.GainPerPayment)
	}
}

func TestComputeMonthIdempotent(t *testing.T) {
	bd := date(2025, 5, 20)
	ledger := &fakeLedger{
		txs: []core.Transaction{{
			RouteID: "r1", Account: core.AccountCashFund, Kind: core.Income,
			Source: core.SourceLoanPaymentBank, Amount: dec("750.50"),
			ProfitAmount: dec("250.50"), Date: date(2025, 5, 6),
		}},
		loans: []core.Loan{{
			ID: "l1", RouteID: "r1", Principal: dec("500"), Rate: dec("0.3"), BadDebtDate: &bd,
		}},
	}

	first, err := ComputeMonth(context.Background(), ledger, []string{"r1"}, 2025, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ComputeMonth(context.Background(), ledger, []string{"r1"}, 2025, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.PaymentCount != second.PaymentCount ||
		!first.TotalIncomes.Equal(second.TotalIncomes) ||
		!first.BadDebt.Equal(second.BadDebt) ||
		!first.ProfitPercentage.Equal(second.ProfitPercentage) ||
		!first.WeeklyIncome.Equal(second.WeeklyIncome) {
		t.Fatalf("recomputation diverged:\nfirst  %+v\nsecond %+v", first, second)
	}
}

func TestComputeMonthLedgerFaultPropagates(t *testing.T) {
	ledger := &fakeLedger{fail: errLedgerDown}
	if _, err := ComputeMonth(context.Background(), ledger, []string{"r1"}, 2025, 1); err == nil {
		t.Fatal("ledger fault must surface, not be masked as a zeroed report")
	}
}

func TestComputeMonthRouteFiltering(t *testing.T) {
	ledger := &fakeLedger{txs: []core.Transaction{
		{RouteID: "r1", Account: core.AccountCashFund, Kind: core.Income,
			Source: core.SourceOtherIncome, Amount: dec("100"), Date: date(2025, 8, 1)},
		{RouteID: "r2", Account: core.AccountCashFund, Kind: core.Income,
			Source: core.SourceOtherIncome, Amount: dec("40"), Date: date(2025, 8, 1)},
	}}

	data, err := ComputeMonth(context.Background(), ledger, []string{"r1"}, 2025, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !data.TotalIncomes.Equal(dec("100")) {
		t.Fatalf("expected only r1 activity, got incomes %s", data.TotalIncomes)
	}

	both, err := ComputeMonth(context.Background(), ledger, []string{"r1", "r2"}, 2025, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !both.TotalIncomes.Equal(dec("140")) {
		t.Fatalf("expected combined incomes 140, got %s", both.TotalIncomes)
	}
}
