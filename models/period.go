// Package models defines data structures for the order-history crawler.
package models

import (
	"fmt"
	"slices"
	"time"
)

// Period is a calendar year-month, the unit of crawl granularity.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod parses the YYYY-MM form used in snapshot keys and history URLs.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("parse period %q: %w", s, err)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// String renders the period as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Start returns midnight UTC on the first day of the period.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Before reports whether p is chronologically before other.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// SortPeriods orders periods ascending by (year, month) in place.
func SortPeriods(periods []Period) {
	slices.SortFunc(periods, func(a, b Period) int {
		if a.Year != b.Year {
			return a.Year - b.Year
		}
		return int(a.Month) - int(b.Month)
	})
}
