package http

import (
	"strings"

	"fintrack/internal/core"
)

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func sanitizeTransaction(t core.Transaction) core.Transaction {
	t.ID = sanitizeInput(t.ID)
	t.Description = sanitizeInput(t.Description)
	t.Category = sanitizeInput(t.Category)
	t.CardID = sanitizeInput(t.CardID)
	t.AccountID = sanitizeInput(t.AccountID)
	return t
}

func sanitizeRecurring(rt core.RecurringTransaction) core.RecurringTransaction {
	rt.ID = sanitizeInput(rt.ID)
	rt.Description = sanitizeInput(rt.Description)
	rt.Category = sanitizeInput(rt.Category)
	rt.CardID = sanitizeInput(rt.CardID)
	rt.AccountID = sanitizeInput(rt.AccountID)
	return rt
}
