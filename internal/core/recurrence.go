package core

import (
	"fmt"
	"time"
)

// occurrenceHour is the fixed time of day every occurrence is normalised to,
// far enough from midnight that no UTC offset moves it to another day.
const occurrenceHour = 12

// DerivedID is the de-duplication key of the occurrence of rule ruleID in
// the given year and month (1-12). The month index in the key is
// zero-based, matching identifiers already present in stored data.
func DerivedID(ruleID string, year, month int) string {
	return fmt.Sprintf("recurring-%s-%d-%d", ruleID, year, month-1)
}

// ExpandRecurring returns the virtual transactions implied by rules: one
// expense per calendar month from each rule's start through the month of
// min(end date, now), both bounds inclusive at day granularity. Occurrences
// whose derived identifier already belongs to a persisted transaction, or to
// an occurrence generated earlier in the same call, are skipped.
//
// The result depends only on its arguments; nothing is written anywhere.
func ExpandRecurring(rules []RecurringTransaction, persisted []Transaction, now time.Time) []Transaction {
	seen := make(map[string]struct{}, len(persisted))
	for _, t := range persisted {
		seen[t.ID] = struct{}{}
	}

	var out []Transaction
	for _, rt := range rules {
		for _, d := range Occurrences(rt, now) {
			id := DerivedID(rt.ID, d.Year(), d.Month())
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, Transaction{
				ID:              id,
				Description:     rt.Description,
				Amount:          rt.Amount,
				Date:            d,
				Type:            Expense,
				Category:        rt.Category,
				CardID:          rt.CardID,
				AccountID:       rt.AccountID,
				IsFromRecurring: true,
			})
		}
	}
	return out
}

// Occurrences lists the dates rule rt falls on up to now. A rule without an
// end date runs until now; a reversed range or a start after now yields none.
func Occurrences(rt RecurringTransaction, now time.Time) []Date {
	if rt.StartDate.IsZero() {
		return nil
	}
	start := atNoon(rt.StartDate)
	limit := atNoon(DateOf(now))
	if !rt.EndDate.IsZero() {
		if end := atNoon(rt.EndDate); end.Before(limit) {
			limit = end
		}
	}

	var out []Date
	for k := 0; ; k++ {
		cur := addMonths(start, k)
		if cur.After(limit) {
			break
		}
		out = append(out, DateOf(cur))
	}
	return out
}

// CombineTransactions returns the persisted transactions followed by the
// virtual ones derived from rules.
func CombineTransactions(persisted []Transaction, rules []RecurringTransaction, now time.Time) []Transaction {
	virtual := ExpandRecurring(rules, persisted, now)
	out := make([]Transaction, 0, len(persisted)+len(virtual))
	out = append(out, persisted...)
	return append(out, virtual...)
}

// MonthsBetween counts the whole calendar-month steps from a that stay on or
// before b, so a rule running from a to b has MonthsBetween(a, b)+1
// occurrences. It returns -1 when b precedes a.
func MonthsBetween(a, b Date) int {
	if b.Before(a.Time) {
		return -1
	}
	n := (b.Year()-a.Year())*12 + b.Month() - a.Month()
	if addMonths(atNoon(a), n).After(atNoon(b)) {
		n--
	}
	return n
}

func atNoon(d Date) time.Time {
	return time.Date(d.Year(), d.Time.Month(), d.Day(), occurrenceHour, 0, 0, 0, time.UTC)
}

// addMonths steps t forward by k calendar months keeping its day of month,
// clamped to the last day of shorter months.
func addMonths(t time.Time, k int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(k), 1, t.Hour(), 0, 0, 0, time.UTC)
	day := t.Day()
	if last := daysIn(first); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), 0, 0, 0, time.UTC)
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
