package model

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	quarterPattern = regexp.MustCompile(`Q(\d)`)
	yearPattern    = regexp.MustCompile(`\d{4}`)
)

// QuarterOf returns the calendar quarter (1-4) and year of t in UTC.
func QuarterOf(t time.Time) (int, int) {
	t = t.UTC()
	return (int(t.Month())-1)/3 + 1, t.Year()
}

// QuarterLabel formats a quarter as "Q1 2026".
func QuarterLabel(q, year int) string {
	return fmt.Sprintf("Q%d %d", q, year)
}

// QuarterEnd returns midnight UTC on the last day of the quarter.
func QuarterEnd(q, year int) (time.Time, error) {
	var month time.Month
	var day int
	switch q {
	case 1:
		month, day = time.March, 31
	case 2:
		month, day = time.June, 30
	case 3:
		month, day = time.September, 30
	case 4:
		month, day = time.December, 31
	default:
		return time.Time{}, fmt.Errorf("invalid quarter %d", q)
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}

// ParseQuarterLabel extracts the quarter digit and four-digit year from a
// free-form label such as "Q3 2024" or "2024 - Q3 totals".
func ParseQuarterLabel(label string) (int, int, bool) {
	qm := quarterPattern.FindStringSubmatch(label)
	if qm == nil {
		return 0, 0, false
	}
	ym := yearPattern.FindString(label)
	if ym == "" {
		return 0, 0, false
	}

	q, _ := strconv.Atoi(qm[1])
	year, _ := strconv.Atoi(ym)
	if q < 1 || q > 4 {
		return 0, 0, false
	}
	return q, year, true
}
