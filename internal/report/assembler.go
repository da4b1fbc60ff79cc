package report

import (
	"fmt"

	"cartera/internal/core"
)

// MonthLabels are the ordered report column labels, in the operation's
// locale.
var MonthLabels = [12]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// YearlyReport is the response returned to callers: route metadata for each
// requested route, the year, the ordered month labels, and one MonthlyData
// per zero-padded month number ("01".."12").
type YearlyReport struct {
	Routes      []core.Route                `json:"routes"`
	Year        int                         `json:"year"`
	MonthLabels []string                    `json:"monthLabels"`
	Months      map[string]core.MonthlyData `json:"months"`
}

// Assemble packages twelve months of data plus route metadata. Months absent
// from the input appear as zero-valued entries so callers always receive the
// full "01".."12" key set.
func Assemble(routes []core.Route, year int, months map[int]core.MonthlyData) YearlyReport {
	rep := YearlyReport{
		Routes:      routes,
		Year:        year,
		MonthLabels: MonthLabels[:],
		Months:      make(map[string]core.MonthlyData, 12),
	}
	for m := 1; m <= 12; m++ {
		rep.Months[MonthKey(m)] = months[m]
	}
	return rep
}

// MonthKey formats a 1-indexed month as its zero-padded map key.
func MonthKey(month int) string {
	return fmt.Sprintf("%02d", month)
}
