package core

import (
	"math"
	"time"
)

// Polarity tells whether an increase of a statistic is good or bad news.
type Polarity int

const (
	HigherIsGood Polarity = iota
	HigherIsBad
)

// Trend is the display classification of a statistic's change.
type Trend int

const (
	TrendFlat Trend = iota
	TrendGood
	TrendBad
)

func (t Trend) String() string {
	switch t {
	case TrendGood:
		return "good"
	case TrendBad:
		return "bad"
	default:
		return "flat"
	}
}

// PeriodStats sums one calendar month.
type PeriodStats struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Balance float64 `json:"balance"`
}

// Statistic compares one metric between the current and previous month.
type Statistic struct {
	Name     string   `json:"name"`
	Current  float64  `json:"current"`
	Previous float64  `json:"previous"`
	Change   float64  `json:"change"`
	Polarity Polarity `json:"polarity"`
}

// MonthComparison is the current-vs-previous month summary.
type MonthComparison struct {
	Year     int         `json:"year"`
	Month    int         `json:"month"` // 1-12
	Current  PeriodStats `json:"current"`
	Previous PeriodStats `json:"previous"`
	Income   Statistic   `json:"income"`
	Expense  Statistic   `json:"expense"`
	Balance  Statistic   `json:"balance"`
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int              `json:"year"`
	Month      int              `json:"month"` // 1-12
	Stats      PeriodStats      `json:"stats"`
	ByCategory []CategoryAmount `json:"byCategory"`
}

// Totals are the all-time dashboard figures.
type Totals struct {
	Income         float64 `json:"income"`
	Expense        float64 `json:"expense"`
	Balance        float64 `json:"balance"`
	AccountBalance float64 `json:"accountBalance"`
}

// InMonth reports whether d falls in the given UTC year and month (1-12).
func InMonth(d Date, year, month int) bool {
	return d.Year() == year && d.Month() == month
}

// FilterMonth returns the transactions dated in the given year and month.
func FilterMonth(txs []Transaction, year, month int) []Transaction {
	var out []Transaction
	for _, t := range txs {
		if InMonth(t.Date, year, month) {
			out = append(out, t)
		}
	}
	return out
}

// StatsForPeriod sums income and expense of the transactions dated in the
// given year and month; balance is income minus expense.
func StatsForPeriod(txs []Transaction, year, month int) PeriodStats {
	var s PeriodStats
	for _, t := range txs {
		if !InMonth(t.Date, year, month) {
			continue
		}
		switch t.Type {
		case Income:
			s.Income += t.Amount
		case Expense:
			s.Expense += t.Amount
		}
	}
	s.Balance = s.Income - s.Expense
	return s
}

// PercentageChange returns the change from previous to current in percent.
// A zero baseline reports +100 for a positive current value and 0
// otherwise; a drop to zero reports -100.
func PercentageChange(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	if current == 0 {
		return -100
	}
	return (current - previous) / math.Abs(previous) * 100
}

// NewStatistic builds a Statistic with its change computed.
func NewStatistic(name string, current, previous float64, polarity Polarity) Statistic {
	return Statistic{
		Name:     name,
		Current:  current,
		Previous: previous,
		Change:   PercentageChange(current, previous),
		Polarity: polarity,
	}
}

// Trend classifies the change according to the statistic's polarity.
func (s Statistic) Trend() Trend {
	if s.Change == 0 || math.IsNaN(s.Change) || math.IsInf(s.Change, 0) {
		return TrendFlat
	}
	up := s.Change > 0
	if (s.Polarity == HigherIsGood) == up {
		return TrendGood
	}
	return TrendBad
}

// PreviousMonth returns the calendar month before year/month.
func PreviousMonth(year, month int) (int, int) {
	t := time.Date(year, time.Month(month)-1, 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), int(t.Month())
}

// CompareMonths summarises year/month against the month before it.
func CompareMonths(txs []Transaction, year, month int) MonthComparison {
	py, pm := PreviousMonth(year, month)
	cur := StatsForPeriod(txs, year, month)
	prev := StatsForPeriod(txs, py, pm)
	return MonthComparison{
		Year:     year,
		Month:    month,
		Current:  cur,
		Previous: prev,
		Income:   NewStatistic("income", cur.Income, prev.Income, HigherIsGood),
		Expense:  NewStatistic("expense", cur.Expense, prev.Expense, HigherIsBad),
		Balance:  NewStatistic("balance", cur.Balance, prev.Balance, HigherIsGood),
	}
}

// MonthlySummary compares the UTC month containing now with the one before.
func MonthlySummary(txs []Transaction, now time.Time) MonthComparison {
	d := DateOf(now)
	return CompareMonths(txs, d.Year(), d.Month())
}

// ExpensesByCategory totals expenses per category in first-seen order.
func ExpensesByCategory(txs []Transaction) []CategoryAmount {
	index := map[string]int{}
	var out []CategoryAmount
	for _, t := range txs {
		if t.Type != Expense {
			continue
		}
		i, ok := index[t.Category]
		if !ok {
			i = len(out)
			index[t.Category] = i
			out = append(out, CategoryAmount{Name: t.Category})
		}
		out[i].Amount += t.Amount
	}
	return out
}

// Overview builds the MonthOverview of year/month.
func Overview(txs []Transaction, year, month int) MonthOverview {
	inMonth := FilterMonth(txs, year, month)
	return MonthOverview{
		Year:       year,
		Month:      month,
		Stats:      StatsForPeriod(inMonth, year, month),
		ByCategory: ExpensesByCategory(inMonth),
	}
}

// ComputeTotals sums every transaction. The account balance only counts
// transactions that reference an account.
func ComputeTotals(txs []Transaction) Totals {
	var tot Totals
	for _, t := range txs {
		switch t.Type {
		case Income:
			tot.Income += t.Amount
			if t.AccountID != "" {
				tot.AccountBalance += t.Amount
			}
		case Expense:
			tot.Expense += t.Amount
			if t.AccountID != "" {
				tot.AccountBalance -= t.Amount
			}
		}
	}
	tot.Balance = tot.Income - tot.Expense
	return tot
}
