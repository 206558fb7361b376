package core

import "encoding/json"

// WidgetKey names one dashboard panel.
type WidgetKey string

const (
	WidgetMonthlySummary        WidgetKey = "monthlySummary"
	WidgetCategoryChart         WidgetKey = "categoryChart"
	WidgetAccounts              WidgetKey = "accounts"
	WidgetCards                 WidgetKey = "cards"
	WidgetRecurringTransactions WidgetKey = "recurringTransactions"
	WidgetTransactionList       WidgetKey = "transactionList"
)

// WidgetKeys lists every known panel in display order.
var WidgetKeys = []WidgetKey{
	WidgetMonthlySummary,
	WidgetCategoryChart,
	WidgetAccounts,
	WidgetCards,
	WidgetRecurringTransactions,
	WidgetTransactionList,
}

// VisibleWidgets controls which dashboard panels are shown.
type VisibleWidgets map[WidgetKey]bool

// DefaultWidgets enables every panel.
func DefaultWidgets() VisibleWidgets {
	w := make(VisibleWidgets, len(WidgetKeys))
	for _, k := range WidgetKeys {
		w[k] = true
	}
	return w
}

// Normalize drops unknown keys and fills missing ones with true.
func (w VisibleWidgets) Normalize() VisibleWidgets {
	out := DefaultWidgets()
	for _, k := range WidgetKeys {
		if v, ok := w[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Visible reports whether panel k is shown. Unknown panels are hidden.
func (w VisibleWidgets) Visible(k WidgetKey) bool {
	v, ok := w[k]
	if !ok {
		for _, known := range WidgetKeys {
			if known == k {
				return true
			}
		}
		return false
	}
	return v
}

// UnmarshalJSON normalises whatever map is stored.
func (w *VisibleWidgets) UnmarshalJSON(data []byte) error {
	var raw map[WidgetKey]bool
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*w = VisibleWidgets(raw).Normalize()
	return nil
}
