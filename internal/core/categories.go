package core

import "strings"

const (
	// CategorySalary is reserved for income entries.
	CategorySalary = "Salary"
	// CategoryOther is the fallback for unknown or failed suggestions.
	CategoryOther = "Other"
)

// Categories is the fixed, ordered category enumeration shared by the
// suggestion validator and every category input.
var Categories = []string{
	"Food",
	"Groceries",
	"Transport",
	"Housing",
	"Utilities",
	"Health",
	"Education",
	"Leisure",
	"Shopping",
	"Subscriptions",
	"Travel",
	CategorySalary,
	CategoryOther,
}

// ExpenseCategories returns the enumeration without the income-only label.
func ExpenseCategories() []string {
	out := make([]string, 0, len(Categories)-1)
	for _, c := range Categories {
		if c == CategorySalary {
			continue
		}
		out = append(out, c)
	}
	return out
}

// NormalizeCategory maps a free-form answer onto the enumeration, ignoring
// case, surrounding quotes and a trailing period. Unknown values become
// CategoryOther.
func NormalizeCategory(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'`")
	s = strings.TrimSuffix(s, ".")
	s = strings.TrimSpace(s)
	for _, c := range ExpenseCategories() {
		if strings.EqualFold(c, s) {
			return c
		}
	}
	return CategoryOther
}
