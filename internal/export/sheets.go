package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"cartera/internal/core"
	"cartera/internal/report"
)

// ReportWriter exports an assembled yearly report to an external sheet and
// returns a reference to the written range.
type ReportWriter interface {
	WriteYearly(ctx context.Context, rep report.YearlyReport) (string, error)
}

// GoogleClient writes yearly reports into a Google spreadsheet, one tab per
// year named "<year> <base>".
type GoogleClient struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
}

var _ ReportWriter = (*GoogleClient)(nil)

// NewGoogleClient builds a Sheets client from service account credentials.
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE,
// or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func NewGoogleClient(ctx context.Context, spreadsheetID, sheetBase string) (*GoogleClient, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if strings.TrimSpace(sheetBase) == "" {
		sheetBase = "Reporte"
	}

	credentialsJSON, err := loadCredentials()
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &GoogleClient{svc: svc, spreadsheetID: spreadsheetID, sheetBase: sheetBase}, nil
}

func loadCredentials() ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		return []byte(inline), nil
	}

	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	credentialsJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return credentialsJSON, nil
}

// WriteYearly replaces the year tab's contents with the report grid: one
// column per month, one row per metric.
func (c *GoogleClient) WriteYearly(ctx context.Context, rep report.YearlyReport) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheetName := fmt.Sprintf("%d %s", rep.Year, c.sheetBase)
	rows := BuildRows(rep)

	clearRange := fmt.Sprintf("%s!A1:N%d", sheetName, len(rows)+10)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear sheet %s: %w", sheetName, err)
	}

	writeRange := fmt.Sprintf("%s!A1", sheetName)
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, writeRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("update sheet %s: %w", sheetName, err)
	}

	return fmt.Sprintf("%s!A1:M%d", sheetName, len(rows)), nil
}

type metricRow struct {
	label string
	value func(core.MonthlyData) any
}

// metricRows fixes the export row order. Money values go out as strings so
// the spreadsheet receives exact decimals, counts as integers.
var metricRows = []metricRow{
	{"Gastos generales", func(m core.MonthlyData) any { return m.GeneralExpenses.String() }},
	{"Nomina", func(m core.MonthlyData) any { return m.PayrollTotal.String() }},
	{"Comisiones", func(m core.MonthlyData) any { return m.Commissions.String() }},
	{"Gastos operativos", func(m core.MonthlyData) any { return m.OperationalExpenses.String() }},
	{"Viaticos de viaje", func(m core.MonthlyData) any { return m.TravelExpenses.String() }},
	{"Cartera muerta", func(m core.MonthlyData) any { return m.BadDebt.String() }},
	{"Gastos totales", func(m core.MonthlyData) any { return m.UIExpensesTotal.String() }},
	{"Ingresos totales", func(m core.MonthlyData) any { return m.UIGainsTotal.String() }},
	{"Capital recuperado", func(m core.MonthlyData) any { return m.CapitalReturned.String() }},
	{"Prestamos otorgados", func(m core.MonthlyData) any { return m.Disbursements.String() }},
	{"Inversion total", func(m core.MonthlyData) any { return m.TotalInvestment.String() }},
	{"Balance", func(m core.MonthlyData) any { return m.Balance.String() }},
	{"Balance con reinversion", func(m core.MonthlyData) any { return m.BalanceWithReinvest.String() }},
	{"Utilidad operativa", func(m core.MonthlyData) any { return m.OperationalProfit.String() }},
	{"Porcentaje de utilidad", func(m core.MonthlyData) any { return m.ProfitPercentage.StringFixed(2) }},
	{"Pagos recibidos", func(m core.MonthlyData) any { return m.PaymentCount }},
	{"Utilidad por pago", func(m core.MonthlyData) any { return m.GainPerPayment.StringFixed(2) }},
	{"Semanas operativas", func(m core.MonthlyData) any { return m.OperationalWeeks }},
	{"Ingreso semanal", func(m core.MonthlyData) any { return m.WeeklyIncome.StringFixed(2) }},
	{"Gasto semanal", func(m core.MonthlyData) any { return m.WeeklyExpenses.StringFixed(2) }},
	{"Utilidad semanal", func(m core.MonthlyData) any { return m.WeeklyProfit.StringFixed(2) }},
}

// BuildRows lays the report out as a grid: a title row with the route names,
// a header row with the month labels, then one row per metric with twelve
// month columns.
func BuildRows(rep report.YearlyReport) [][]any {
	names := make([]string, 0, len(rep.Routes))
	for _, r := range rep.Routes {
		names = append(names, r.Name)
	}

	title := []any{fmt.Sprintf("%d - %s", rep.Year, strings.Join(names, ", "))}
	header := make([]any, 0, 13)
	header = append(header, "")
	for _, label := range rep.MonthLabels {
		header = append(header, label)
	}

	rows := [][]any{title, header}
	for _, metric := range metricRows {
		row := make([]any, 0, 13)
		row = append(row, metric.label)
		for m := 1; m <= 12; m++ {
			row = append(row, metric.value(rep.Months[report.MonthKey(m)]))
		}
		rows = append(rows, row)
	}
	return rows
}
