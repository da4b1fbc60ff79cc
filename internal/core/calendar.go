package core

import "time"

// OperationalWeeks returns the number of Monday–Saturday collection cycles
// that belong to the given 1-indexed month. A week is attributed to the month
// holding the strict majority (>3) of its first six days; a three-three split
// goes to the month containing the week's Monday.
//
// The result is always between 4 and 6 inclusive.
func OperationalWeeks(year, month int) int {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	last := first.AddDate(0, 1, -1)

	// Most recent Monday on or before the first of the month.
	monday := first
	for monday.Weekday() != time.Monday {
		monday = monday.AddDate(0, 0, -1)
	}

	target := time.Month(month)
	weeks := 0
	for !monday.After(last) {
		inMonth := 0
		for i := 0; i < 6; i++ {
			day := monday.AddDate(0, 0, i)
			if day.Month() == target && day.Year() == year {
				inMonth++
			}
		}
		if inMonth > 3 || (inMonth == 3 && monday.Month() == target && monday.Year() == year) {
			weeks++
		}
		monday = monday.AddDate(0, 0, 7)
	}
	return weeks
}
