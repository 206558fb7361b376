package core

import (
	"fmt"
	"sort"
	"time"
)

// YearMonth identifies one calendar month.
type YearMonth struct {
	Year  int
	Month int // 1-12
}

// MonthOf returns the month d falls in.
func MonthOf(d Date) YearMonth {
	return YearMonth{Year: d.Year(), Month: d.Month()}
}

// ParseYearMonth parses "YYYY-MM".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: month %q", ErrInvalidDate, s)
	}
	return YearMonth{Year: t.Year(), Month: int(t.Month())}, nil
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

// Valid reports whether the month number is in range.
func (ym YearMonth) Valid() bool {
	return ym.Month >= 1 && ym.Month <= 12 && ym.Year > 0
}

// Prev returns the month before ym.
func (ym YearMonth) Prev() YearMonth {
	y, m := PreviousMonth(ym.Year, ym.Month)
	return YearMonth{Year: y, Month: m}
}

// Before reports whether ym precedes other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// LastMonths returns the n months ending with the one containing now,
// oldest first.
func LastMonths(now time.Time, n int) []YearMonth {
	if n < 1 {
		return nil
	}
	out := make([]YearMonth, n)
	cur := MonthOf(DateOf(now))
	for i := n - 1; i >= 0; i-- {
		out[i] = cur
		cur = cur.Prev()
	}
	return out
}

// UniqueMonths sorts and de-duplicates months, dropping invalid ones.
func UniqueMonths(months []YearMonth) []YearMonth {
	seen := make(map[YearMonth]struct{}, len(months))
	var out []YearMonth
	for _, m := range months {
		if !m.Valid() {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
