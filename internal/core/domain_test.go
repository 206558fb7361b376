package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2024, 3, 5))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-03-05"` {
		t.Fatalf("marshal = %s", b)
	}

	var d Date
	if err := json.Unmarshal([]byte(`"2024-02-29"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.Year() != 2024 || d.Month() != 2 || d.Day() != 29 {
		t.Fatalf("unexpected date %v", d)
	}

	if err := json.Unmarshal([]byte(`"2024-01-31T23:30:00-03:00"`), &d); err != nil {
		t.Fatalf("unmarshal timestamp: %v", err)
	}
	if d.String() != "2024-02-01" {
		t.Fatalf("timestamp should reduce to UTC date, got %s", d)
	}

	if err := json.Unmarshal([]byte(`"31/01/2024"`), &d); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		ID:          "t1",
		Description: "Groceries",
		Amount:      120.5,
		Date:        NewDate(2025, 1, 1),
		Type:        Expense,
		Category:    "Groceries",
		CardID:      "c1",
		Installments: &Installment{
			Current: 1,
			Total:   3,
		},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
		{"empty description", func(tx *Transaction) { tx.Description = " " }, ErrEmptyDescription},
		{"negative amount", func(tx *Transaction) { tx.Amount = -1 }, ErrInvalidAmount},
		{"bad type", func(tx *Transaction) { tx.Type = "transfer" }, ErrInvalidType},
		{"empty category", func(tx *Transaction) { tx.Category = "" }, ErrEmptyCategory},
		{"both sources", func(tx *Transaction) { tx.AccountID = "a1" }, ErrPaymentSourceConflict},
		{"installment without card", func(tx *Transaction) { tx.CardID = "" }, ErrInstallmentWithoutCard},
		{"installment out of range", func(tx *Transaction) { tx.Installments = &Installment{Current: 4, Total: 3} }, ErrInvalidInstallment},
		{"income with card", func(tx *Transaction) {
			tx.Type = Income
			tx.Installments = nil
		}, ErrIncomeCard},
		{"income without account", func(tx *Transaction) {
			tx.Type = Income
			tx.CardID = ""
			tx.Installments = nil
		}, ErrIncomeRequiresAccount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := good
			tt.mutate(&tx)
			if err := tx.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRecurringTransactionValidate(t *testing.T) {
	rt := RecurringTransaction{
		ID:          "r1",
		Description: "Rent",
		Amount:      1500,
		Category:    "Housing",
		StartDate:   NewDate(2024, 1, 5),
		EndDate:     NewDate(2024, 12, 5),
		AccountID:   "a1",
	}
	if err := rt.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	reversed := rt
	reversed.StartDate, reversed.EndDate = rt.EndDate, rt.StartDate
	if err := reversed.Validate(); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}

	both := rt
	both.CardID = "c1"
	if err := both.Validate(); !errors.Is(err, ErrPaymentSourceConflict) {
		t.Fatalf("expected ErrPaymentSourceConflict, got %v", err)
	}
}

func TestCardValidate(t *testing.T) {
	if err := (Card{Name: "Visa", Limit: 5000, ClosingDay: 10}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Card{Name: "Visa", Limit: 5000, ClosingDay: 32}).Validate(); !errors.Is(err, ErrInvalidClosingDay) {
		t.Fatalf("expected ErrInvalidClosingDay, got %v", err)
	}
	if err := (Account{Name: "  "}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestPaymentSource(t *testing.T) {
	tx := Transaction{CardID: "c1", Installments: &Installment{Current: 1, Total: 2}}
	if got := tx.PaymentSource(); got.Kind() != PayCard || got.ID() != "c1" {
		t.Fatalf("unexpected source %v", got)
	}

	tx = tx.WithPaymentSource(AccountSource("a1"))
	if tx.CardID != "" || tx.AccountID != "a1" {
		t.Fatalf("switching source must clear the card: %+v", tx)
	}
	if tx.Installments != nil {
		t.Fatalf("installments must be dropped without a card")
	}

	tx = tx.WithPaymentSource(NoPayment)
	if tx.CardID != "" || tx.AccountID != "" {
		t.Fatalf("NoPayment must clear both references: %+v", tx)
	}
	if CardSource("").Kind() != PayNone {
		t.Fatalf("empty card id should be NoPayment")
	}
}

func TestCategories(t *testing.T) {
	for _, c := range ExpenseCategories() {
		if c == CategorySalary {
			t.Fatalf("salary must not be an expense category")
		}
	}
	cases := map[string]string{
		"Food":          "Food",
		" transport. ":  "Transport",
		"\"Health\"":    "Health",
		"Salary":        CategoryOther,
		"Entertainment": CategoryOther,
		"":              CategoryOther,
	}
	for in, want := range cases {
		if got := NormalizeCategory(in); got != want {
			t.Errorf("NormalizeCategory(%q) = %q, want %q", in, got, want)
		}
	}
}
