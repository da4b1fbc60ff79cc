package export

import (
	"testing"

	"github.com/shopspring/decimal"

	"cartera/internal/core"
	"cartera/internal/report"
)

func sampleReport() report.YearlyReport {
	months := map[int]core.MonthlyData{
		3: {
			GeneralExpenses:   decimal.RequireFromString("1250.50"),
			OperationalProfit: decimal.RequireFromString("300"),
			ProfitPercentage:  decimal.RequireFromString("12.5"),
			PaymentCount:      42,
			OperationalWeeks:  4,
		},
	}
	routes := []core.Route{
		{ID: "r1", Name: "Ruta Centro"},
		{ID: "r2", Name: "Ruta Norte"},
	}
	return report.Assemble(routes, 2025, months)
}

func TestBuildRows(t *testing.T) {
	rows := BuildRows(sampleReport())

	if len(rows) != 2+len(metricRows) {
		t.Fatalf("rows: got %d, want %d", len(rows), 2+len(metricRows))
	}

	title := rows[0][0].(string)
	if title != "2025 - Ruta Centro, Ruta Norte" {
		t.Errorf("title: %q", title)
	}

	header := rows[1]
	if len(header) != 13 {
		t.Fatalf("header columns: got %d, want 13", len(header))
	}
	if header[1] != "enero" || header[12] != "diciembre" {
		t.Errorf("month labels: %v .. %v", header[1], header[12])
	}

	var generalRow, countRow []any
	for _, row := range rows[2:] {
		if len(row) != 13 {
			t.Fatalf("metric row columns: got %d, want 13", len(row))
		}
		switch row[0] {
		case "Gastos generales":
			generalRow = row
		case "Pagos recibidos":
			countRow = row
		}
	}
	if generalRow == nil || countRow == nil {
		t.Fatal("expected metric rows missing")
	}

	// March is column index 3 (label + enero + febrero + marzo).
	if generalRow[3] != "1250.5" {
		t.Errorf("march general expenses: %v", generalRow[3])
	}
	if generalRow[1] != "0" {
		t.Errorf("empty january must export as zero, got %v", generalRow[1])
	}
	if countRow[3] != int64(42) {
		t.Errorf("march payment count: %v", countRow[3])
	}
	if countRow[1] != int64(0) {
		t.Errorf("empty january payment count: %v", countRow[1])
	}
}
