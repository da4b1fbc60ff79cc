package core

import "github.com/shopspring/decimal"

// MonthlyData is the per-route-month financial summary. One instance is
// cached per (route, year, month); multi-route views are produced by summing
// single-route instances field by field.
//
// Invariants: every total equals the sum of its constituent buckets, and
// every Weekly* field equals its monthly counterpart divided by
// OperationalWeeks (zero when the week count is zero).
type MonthlyData struct {
	// Raw totals
	TotalExpenses     decimal.Decimal `json:"totalExpenses"`
	TotalIncomes      decimal.Decimal `json:"totalIncomes"`
	NetCash           decimal.Decimal `json:"netCash"`
	TotalCashUsed     decimal.Decimal `json:"totalCashUsed"`
	TotalIncomingCash decimal.Decimal `json:"totalIncomingCash"`
	TotalInvestment   decimal.Decimal `json:"totalInvestment"`

	// Expense buckets
	GeneralExpenses     decimal.Decimal `json:"generalExpenses"`
	OperationalExpenses decimal.Decimal `json:"operationalExpenses"`
	Salaries            decimal.Decimal `json:"salaries"`
	ExternalSalaries    decimal.Decimal `json:"externalSalaries"`
	PerDiems            decimal.Decimal `json:"perDiems"`
	PayrollTotal        decimal.Decimal `json:"payrollTotal"`
	TravelExpenses      decimal.Decimal `json:"travelExpenses"`
	Commissions         decimal.Decimal `json:"commissions"`
	GasolinePrepaid     decimal.Decimal `json:"gasolinePrepaid"`
	GasolineCash        decimal.Decimal `json:"gasolineCash"`
	GasolineTotal       decimal.Decimal `json:"gasolineTotal"`

	// Loan economics
	CapitalReturned decimal.Decimal `json:"capitalReturned"`
	ProfitReturned  decimal.Decimal `json:"profitReturned"`
	Disbursements   decimal.Decimal `json:"disbursements"`
	BadDebt         decimal.Decimal `json:"badDebt"`
	PaymentCount    int64           `json:"paymentCount"`

	// Derived
	Balance             decimal.Decimal `json:"balance"`
	BalanceWithReinvest decimal.Decimal `json:"balanceWithReinvest"`
	UIExpensesTotal     decimal.Decimal `json:"uiExpensesTotal"`
	UIGainsTotal        decimal.Decimal `json:"uiGainsTotal"`
	OperationalProfit   decimal.Decimal `json:"operationalProfit"`
	ProfitPercentage    decimal.Decimal `json:"profitPercentage"`
	GainPerPayment      decimal.Decimal `json:"gainPerPayment"`

	// Weekly run-rates
	OperationalWeeks   int             `json:"operationalWeeks"`
	WeeklyIncome       decimal.Decimal `json:"weeklyIncome"`
	WeeklyExpenses     decimal.Decimal `json:"weeklyExpenses"`
	WeeklyProfit       decimal.Decimal `json:"weeklyProfit"`
	WeeklyPaymentCount decimal.Decimal `json:"weeklyPaymentCount"`
}

// Add returns the field-by-field sum of two summaries. Every additive field
// is summed; the ratio fields (ProfitPercentage, GainPerPayment) are NOT
// meaningful on the result until RecomputeRatios is called, since averaging
// per-route ratios would weight low-volume routes unfairly.
// OperationalWeeks is kept, not summed: both operands describe the same
// calendar month.
func (m MonthlyData) Add(o MonthlyData) MonthlyData {
	sum := MonthlyData{
		TotalExpenses:     m.TotalExpenses.Add(o.TotalExpenses),
		TotalIncomes:      m.TotalIncomes.Add(o.TotalIncomes),
		NetCash:           m.NetCash.Add(o.NetCash),
		TotalCashUsed:     m.TotalCashUsed.Add(o.TotalCashUsed),
		TotalIncomingCash: m.TotalIncomingCash.Add(o.TotalIncomingCash),
		TotalInvestment:   m.TotalInvestment.Add(o.TotalInvestment),

		GeneralExpenses:     m.GeneralExpenses.Add(o.GeneralExpenses),
		OperationalExpenses: m.OperationalExpenses.Add(o.OperationalExpenses),
		Salaries:            m.Salaries.Add(o.Salaries),
		ExternalSalaries:    m.ExternalSalaries.Add(o.ExternalSalaries),
		PerDiems:            m.PerDiems.Add(o.PerDiems),
		PayrollTotal:        m.PayrollTotal.Add(o.PayrollTotal),
		TravelExpenses:      m.TravelExpenses.Add(o.TravelExpenses),
		Commissions:         m.Commissions.Add(o.Commissions),
		GasolinePrepaid:     m.GasolinePrepaid.Add(o.GasolinePrepaid),
		GasolineCash:        m.GasolineCash.Add(o.GasolineCash),
		GasolineTotal:       m.GasolineTotal.Add(o.GasolineTotal),

		CapitalReturned: m.CapitalReturned.Add(o.CapitalReturned),
		ProfitReturned:  m.ProfitReturned.Add(o.ProfitReturned),
		Disbursements:   m.Disbursements.Add(o.Disbursements),
		BadDebt:         m.BadDebt.Add(o.BadDebt),
		PaymentCount:    m.PaymentCount + o.PaymentCount,

		Balance:             m.Balance.Add(o.Balance),
		BalanceWithReinvest: m.BalanceWithReinvest.Add(o.BalanceWithReinvest),
		UIExpensesTotal:     m.UIExpensesTotal.Add(o.UIExpensesTotal),
		UIGainsTotal:        m.UIGainsTotal.Add(o.UIGainsTotal),
		OperationalProfit:   m.OperationalProfit.Add(o.OperationalProfit),

		OperationalWeeks:   m.OperationalWeeks,
		WeeklyIncome:       m.WeeklyIncome.Add(o.WeeklyIncome),
		WeeklyExpenses:     m.WeeklyExpenses.Add(o.WeeklyExpenses),
		WeeklyProfit:       m.WeeklyProfit.Add(o.WeeklyProfit),
		WeeklyPaymentCount: m.WeeklyPaymentCount.Add(o.WeeklyPaymentCount),
	}
	if sum.OperationalWeeks == 0 {
		sum.OperationalWeeks = o.OperationalWeeks
	}
	return sum
}

// RecomputeRatios rebuilds ProfitPercentage and GainPerPayment from the
// current totals. Used after summing routes so the ratios reflect combined
// volume instead of an average of per-route ratios.
func (m MonthlyData) RecomputeRatios() MonthlyData {
	hundred := decimal.NewFromInt(100)
	if m.UIGainsTotal.IsZero() {
		m.ProfitPercentage = decimal.Zero
	} else {
		m.ProfitPercentage = m.OperationalProfit.Div(m.UIGainsTotal).Mul(hundred)
	}
	if m.PaymentCount == 0 {
		m.GainPerPayment = decimal.Zero
	} else {
		m.GainPerPayment = m.OperationalProfit.Div(decimal.NewFromInt(m.PaymentCount))
	}
	return m
}

// NormalizeWeekly fills the Weekly* fields from the monthly figures and the
// given operational-week count. A zero week count zeroes every weekly field.
func (m MonthlyData) NormalizeWeekly(weeks int) MonthlyData {
	m.OperationalWeeks = weeks
	if weeks == 0 {
		m.WeeklyIncome = decimal.Zero
		m.WeeklyExpenses = decimal.Zero
		m.WeeklyProfit = decimal.Zero
		m.WeeklyPaymentCount = decimal.Zero
		return m
	}
	w := decimal.NewFromInt(int64(weeks))
	m.WeeklyIncome = m.TotalIncomes.Div(w)
	m.WeeklyExpenses = m.TotalExpenses.Div(w)
	m.WeeklyProfit = m.OperationalProfit.Div(w)
	m.WeeklyPaymentCount = decimal.NewFromInt(m.PaymentCount).Div(w)
	return m
}

// Inactive reports whether the core activity fields are simultaneously zero.
// The cache policy treats such stored rows as structurally suspect: the shape
// cannot distinguish a dormant route-month from a corrupted cache row, so it
// recomputes either way.
func (m MonthlyData) Inactive() bool {
	return m.TotalExpenses.IsZero() &&
		m.TotalIncomes.IsZero() &&
		m.PaymentCount == 0 &&
		m.Disbursements.IsZero() &&
		m.TotalIncomingCash.IsZero()
}
