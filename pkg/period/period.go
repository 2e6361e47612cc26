// Package period turns the month arguments of the review commands into
// half-open date ranges.
package period

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MonthRange returns [first of month, first of next month) in now's year.
// Month 0 means the current month.
func MonthRange(now time.Time, month int) (time.Time, time.Time, error) {
	if month == 0 {
		month = int(now.Month())
	}
	if month < 1 || month > 12 {
		return time.Time{}, time.Time{}, fmt.Errorf("month must be between 1 and 12, got %d", month)
	}

	start := time.Date(now.Year(), time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, StartOfNextMonth(now.Year(), time.Month(month)), nil
}

func StartOfNextMonth(year int, month time.Month) time.Time {
	if month == time.December {
		return time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
}

// ParseMonth reads a month argument; an empty string is the current month.
func ParseMonth(arg string) (int, bool) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return 0, true
	}
	m, err := strconv.Atoi(arg)
	if err != nil || m < 1 || m > 12 {
		return 0, false
	}
	return m, true
}
