// Package report turns the raw transaction ledger into per-route, per-month
// financial summaries, cached per route-month and composed for multi-route
// views.
package report

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"cartera/internal/core"
)

// ComputeMonth summarizes all ledger activity for the route set within the
// given calendar month. Absence of transactions or loans is not an error:
// every field resolves to zero. Ledger faults propagate unmodified.
func ComputeMonth(ctx context.Context, ledger LedgerReader, routeIDs []string, year, month int) (core.MonthlyData, error) {
	start, end := core.MonthWindow(year, month)

	txs, err := ledger.ListTransactions(ctx, routeIDs, start, end)
	if err != nil {
		return core.MonthlyData{}, fmt.Errorf("list transactions: %w", err)
	}

	var data core.MonthlyData
	for _, tx := range txs {
		data = accumulate(data, tx)
	}

	badDebt, err := badDebtExposure(ctx, ledger, routeIDs, year, month)
	if err != nil {
		return core.MonthlyData{}, err
	}
	data.BadDebt = badDebt

	data = derive(data)
	return data.NormalizeWeekly(core.OperationalWeeks(year, month)), nil
}

// accumulate folds one ledger entry into the summary. The accumulator is a
// value, returned rather than mutated in place, so two computations over the
// same snapshot always produce identical results.
func accumulate(m core.MonthlyData, tx core.Transaction) core.MonthlyData {
	switch tx.Kind {
	case core.Expense:
		return accumulateExpense(m, tx)
	case core.Income:
		return accumulateIncome(m, tx)
	}
	return m
}

func accumulateExpense(m core.MonthlyData, tx core.Transaction) core.MonthlyData {
	amount := tx.Amount

	switch tx.Source {
	case core.SourceGasoline:
		if tx.Account == core.AccountPrepaidGasoline {
			m.GasolinePrepaid = m.GasolinePrepaid.Add(amount)
		} else {
			m.GasolineCash = m.GasolineCash.Add(amount)
		}
		m.GasolineTotal = m.GasolineTotal.Add(amount)
		m.GeneralExpenses = m.GeneralExpenses.Add(amount)
	case core.SourceSalaryInternal:
		m.Salaries = m.Salaries.Add(amount)
		m.PayrollTotal = m.PayrollTotal.Add(amount)
	case core.SourceSalaryExternal:
		m.ExternalSalaries = m.ExternalSalaries.Add(amount)
		m.PayrollTotal = m.PayrollTotal.Add(amount)
	case core.SourcePerDiem:
		m.PerDiems = m.PerDiems.Add(amount)
		m.PayrollTotal = m.PayrollTotal.Add(amount)
	case core.SourceTravel:
		m.TravelExpenses = m.TravelExpenses.Add(amount)
	case core.SourceCommissionPayment, core.SourceCommissionGrant, core.SourceCommissionLeader:
		m.Commissions = m.Commissions.Add(amount)
	case core.SourceLoanDisbursement:
		// Disbursed principal is not an operating cost: it counts toward
		// disbursements only, excluded from investment and general expenses.
		m.Disbursements = m.Disbursements.Add(amount)
	default:
		m.GeneralExpenses = m.GeneralExpenses.Add(amount)
	}

	m.NetCash = m.NetCash.Sub(amount)
	m.TotalCashUsed = m.TotalCashUsed.Add(amount)
	if tx.Source != core.SourceLoanDisbursement {
		m.TotalInvestment = m.TotalInvestment.Add(amount)
	}
	return m
}

func accumulateIncome(m core.MonthlyData, tx core.Transaction) core.MonthlyData {
	amount := tx.Amount

	if tx.Source.IsLoanPayment() {
		profit := tx.ProfitAmount
		capital := amount.Sub(profit)
		m.ProfitReturned = m.ProfitReturned.Add(profit)
		m.TotalIncomes = m.TotalIncomes.Add(profit)
		m.CapitalReturned = m.CapitalReturned.Add(capital)
		m.PaymentCount++
	} else {
		m.TotalIncomes = m.TotalIncomes.Add(amount)
		m.ProfitReturned = m.ProfitReturned.Add(amount)
	}

	m.NetCash = m.NetCash.Add(amount)
	m.TotalIncomingCash = m.TotalIncomingCash.Add(amount)
	return m
}

// badDebtExposure sums the capital-at-risk portion of every loan marked
// uncollectible within the month: the unpaid balance minus the profit not
// yet earned, clamped at zero per loan.
func badDebtExposure(ctx context.Context, ledger LedgerReader, routeIDs []string, year, month int) (decimal.Decimal, error) {
	start, end := core.MonthWindow(year, month)

	loans, err := ledger.ListBadDebtLoans(ctx, routeIDs, start, end)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list bad-debt loans: %w", err)
	}

	total := decimal.Zero
	for _, loan := range loans {
		payments, profitTxs, err := ledger.ListLoanCollections(ctx, loan.ID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("list collections for loan %s: %w", loan.ID, err)
		}

		totalPaid := decimal.Zero
		for _, p := range payments {
			totalPaid = totalPaid.Add(p.Amount)
		}
		profitCollected := decimal.Zero
		for _, tx := range profitTxs {
			profitCollected = profitCollected.Add(tx.ProfitAmount)
		}

		expectedProfit := loan.Principal.Mul(loan.Rate)
		pendingProfit := core.ClampZero(expectedProfit.Sub(profitCollected))
		totalOwed := loan.Principal.Add(expectedProfit)
		pendingDebt := core.ClampZero(totalOwed.Sub(totalPaid))

		total = total.Add(core.ClampZero(pendingDebt.Sub(pendingProfit)))
	}
	return total, nil
}

// derive fills every field computed from the accumulated buckets.
func derive(m core.MonthlyData) core.MonthlyData {
	m.OperationalExpenses = m.GeneralExpenses.Add(m.PayrollTotal).Add(m.Commissions)
	m.TotalExpenses = m.OperationalExpenses
	m.Balance = m.TotalIncomes.Sub(m.OperationalExpenses)
	m.BalanceWithReinvest = m.Balance.Sub(m.Disbursements)
	m.UIExpensesTotal = m.OperationalExpenses.Add(m.BadDebt).Add(m.TravelExpenses)
	m.UIGainsTotal = m.TotalIncomes
	m.OperationalProfit = m.UIGainsTotal.Sub(m.UIExpensesTotal)
	return m.RecomputeRatios()
}
