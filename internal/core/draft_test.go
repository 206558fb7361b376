package core

import (
	"errors"
	"testing"
	"time"
)

var draftNow = time.Date(2024, 3, 20, 15, 0, 0, 0, time.UTC)

func TestNewDraft(t *testing.T) {
	d := NewDraft(draftNow)
	if d.Type != Expense || d.Date != NewDate(2024, 3, 20) || d.Payment != NoPayment {
		t.Fatalf("unexpected fresh draft %+v", d)
	}
}

func TestDraft_IncomeForcesAccount(t *testing.T) {
	d := NewDraft(draftNow).
		Apply(SelectPayment{Source: CardSource("card-1")}).
		Apply(ToggleInstallments{Enabled: true}).
		Apply(SetType{Value: Income})

	if d.Payment.Kind() == PayCard {
		t.Fatalf("income draft still references a card")
	}
	if d.Installments != nil {
		t.Fatalf("income draft kept installments")
	}

	// Income cannot switch to a card afterwards.
	d = d.Apply(SelectPayment{Source: CardSource("card-1")})
	if d.Payment.Kind() == PayCard {
		t.Fatalf("card accepted on income draft")
	}
	d = d.Apply(SelectPayment{Source: AccountSource("acc-1")})
	if d.Payment.AccountID() != "acc-1" {
		t.Fatalf("account not selected: %v", d.Payment)
	}
}

func TestDraft_PaymentSwitchClearsInstallments(t *testing.T) {
	d := NewDraft(draftNow).
		Apply(SelectPayment{Source: CardSource("card-1")}).
		Apply(ToggleInstallments{Enabled: true}).
		Apply(SetInstallment{Current: 2, Total: 10})
	if d.Installments == nil || *d.Installments != (Installment{Current: 2, Total: 10}) {
		t.Fatalf("installments not set: %+v", d.Installments)
	}

	d = d.Apply(SelectPayment{Source: AccountSource("acc-1")})
	if d.Payment.CardID() != "" || d.Payment.AccountID() != "acc-1" {
		t.Fatalf("payment = %v", d.Payment)
	}
	if d.Installments != nil {
		t.Fatalf("installments survived switch to account")
	}
}

func TestDraft_InstallmentsRequireCard(t *testing.T) {
	d := NewDraft(draftNow).Apply(ToggleInstallments{Enabled: true})
	if d.Installments != nil {
		t.Fatalf("installments enabled without a card")
	}
	d = d.Apply(SetInstallment{Current: 1, Total: 3})
	if d.Installments != nil {
		t.Fatalf("installment set while disabled")
	}
}

func TestDraft_SuggestionRespectsManualCategory(t *testing.T) {
	d := NewDraft(draftNow).Apply(SetDescription{Value: "Supermarket weekly"})
	if !d.NeedsSuggestion() {
		t.Fatalf("expected draft to need a suggestion")
	}
	d = d.Apply(ApplySuggestion{Category: "Groceries"})
	if d.Category != "Groceries" {
		t.Fatalf("suggestion not applied: %q", d.Category)
	}

	d = d.Apply(SetCategory{Value: "Food"}).Apply(ApplySuggestion{Category: "Shopping"})
	if d.Category != "Food" {
		t.Fatalf("suggestion overwrote manual category: %q", d.Category)
	}
	if d.NeedsSuggestion() {
		t.Fatalf("manually categorised draft should not ask for suggestions")
	}
}

func TestDraft_NeedsSuggestion(t *testing.T) {
	tests := []struct {
		name string
		desc string
		typ  TransactionType
		want bool
	}{
		{"five chars", "Lunch", Expense, false},
		{"six chars", "Lunch!", Expense, true},
		{"padded short", "  Bus  ", Expense, false},
		{"income", "Monthly salary", Income, false},
		{"multibyte", "Açaí", Expense, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDraft(draftNow).Apply(SetType{Value: tt.typ}).Apply(SetDescription{Value: tt.desc})
			if got := d.NeedsSuggestion(); got != tt.want {
				t.Fatalf("NeedsSuggestion(%q) = %v, want %v", tt.desc, got, tt.want)
			}
		})
	}
}

func TestDraft_Build(t *testing.T) {
	d := NewDraft(draftNow).
		Apply(SetDescription{Value: "  New headphones "}).
		Apply(SetAmount{Value: "299,90"}).
		Apply(SetCategory{Value: "Shopping"}).
		Apply(SelectPayment{Source: CardSource("card-1")}).
		Apply(ToggleInstallments{Enabled: true}).
		Apply(SetInstallment{Current: 1, Total: 3})

	tx, err := d.Build("tx-1")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tx.ID != "tx-1" || tx.Description != "New headphones" || tx.Amount != 299.9 {
		t.Errorf("unexpected transaction %+v", tx)
	}
	if tx.CardID != "card-1" || tx.AccountID != "" || tx.Installments == nil || tx.Installments.Total != 3 {
		t.Errorf("unexpected payment fields %+v", tx)
	}
}

func TestDraft_BuildIncomeUsesSalary(t *testing.T) {
	d := NewDraft(draftNow).
		Apply(SetType{Value: Income}).
		Apply(SetDescription{Value: "March salary"}).
		Apply(SetAmount{Value: "5000"}).
		Apply(SelectPayment{Source: AccountSource("acc-1")})

	tx, err := d.Build("tx-2")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tx.Category != CategorySalary || tx.AccountID != "acc-1" {
		t.Fatalf("unexpected income %+v", tx)
	}
}

func TestDraft_BuildErrors(t *testing.T) {
	tests := []struct {
		name    string
		actions []DraftAction
		want    error
	}{
		{"bad amount", []DraftAction{SetDescription{Value: "Coffee"}, SetAmount{Value: "abc"}, SetCategory{Value: "Food"}}, ErrInvalidAmount},
		{"no description", []DraftAction{SetAmount{Value: "3"}, SetCategory{Value: "Food"}}, ErrEmptyDescription},
		{"no category", []DraftAction{SetDescription{Value: "Coffee"}, SetAmount{Value: "3"}}, ErrEmptyCategory},
		{"income without account", []DraftAction{SetType{Value: Income}, SetDescription{Value: "Bonus"}, SetAmount{Value: "10"}}, ErrIncomeRequiresAccount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDraft(draftNow)
			for _, a := range tt.actions {
				d = d.Apply(a)
			}
			if _, err := d.Build("x"); !errors.Is(err, tt.want) {
				t.Fatalf("Build error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDraft_LoadAndReset(t *testing.T) {
	tx := Transaction{
		ID:           "t9",
		Description:  "Laptop",
		Amount:       4500.5,
		Date:         NewDate(2024, 1, 2),
		Type:         Expense,
		Category:     "Shopping",
		CardID:       "card-1",
		Installments: &Installment{Current: 1, Total: 10},
	}
	d := NewDraft(draftNow).Apply(LoadTransaction{Transaction: tx})
	if d.ID != "t9" || d.Amount != "4500.5" || d.Payment.CardID() != "card-1" || !d.CategoryTouched {
		t.Fatalf("unexpected loaded draft %+v", d)
	}
	d.Installments.Total = 12
	if tx.Installments.Total != 10 {
		t.Fatalf("draft shares installment pointer with source")
	}

	rebuilt, err := d.Apply(SetInstallment{Current: 1, Total: 10}).Build("")
	if err != nil || rebuilt.ID != "t9" {
		t.Fatalf("rebuild = %+v, %v", rebuilt, err)
	}

	d = d.Apply(ResetDraft{Now: draftNow})
	if d.ID != "" || d.Description != "" || d.Type != Expense {
		t.Fatalf("reset draft = %+v", d)
	}
}
