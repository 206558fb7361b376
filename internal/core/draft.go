package core

import (
	"strconv"
	"strings"
	"time"
)

// TransactionDraft is the in-progress state of a transaction being entered
// or edited. It only changes through Apply, which keeps the related fields
// consistent with each other.
type TransactionDraft struct {
	ID              string
	Description     string
	Amount          string
	Date            Date
	Type            TransactionType
	Category        string
	CategoryTouched bool
	Payment         PaymentSource
	Installments    *Installment
}

// DraftAction is one update applied to a draft.
type DraftAction interface {
	apply(TransactionDraft) TransactionDraft
}

type (
	SetDescription     struct{ Value string }
	SetAmount          struct{ Value string }
	SetDate            struct{ Value Date }
	SetType            struct{ Value TransactionType }
	SetCategory        struct{ Value string }
	ApplySuggestion    struct{ Category string }
	SelectPayment      struct{ Source PaymentSource }
	ToggleInstallments struct{ Enabled bool }
	SetInstallment     struct{ Current, Total int }
	LoadTransaction    struct{ Transaction Transaction }
	ResetDraft         struct{ Now time.Time }
)

// NewDraft returns an empty expense draft dated on now's UTC calendar day.
func NewDraft(now time.Time) TransactionDraft {
	return TransactionDraft{Date: DateOf(now), Type: Expense}
}

// Apply returns the draft updated by a.
func (d TransactionDraft) Apply(a DraftAction) TransactionDraft {
	return a.apply(d)
}

func (a SetDescription) apply(d TransactionDraft) TransactionDraft {
	d.Description = a.Value
	return d
}

func (a SetAmount) apply(d TransactionDraft) TransactionDraft {
	d.Amount = a.Value
	return d
}

func (a SetDate) apply(d TransactionDraft) TransactionDraft {
	d.Date = a.Value
	return d
}

func (a SetType) apply(d TransactionDraft) TransactionDraft {
	d.Type = a.Value
	if a.Value == Income {
		// Income is always credited to an account.
		d.Payment = AccountSource(d.Payment.AccountID())
		d.Installments = nil
	}
	return d
}

// A manual category choice wins over any later suggestion.
func (a SetCategory) apply(d TransactionDraft) TransactionDraft {
	d.Category = a.Value
	d.CategoryTouched = true
	return d
}

func (a ApplySuggestion) apply(d TransactionDraft) TransactionDraft {
	if d.CategoryTouched || d.Type != Expense {
		return d
	}
	d.Category = a.Category
	return d
}

func (a SelectPayment) apply(d TransactionDraft) TransactionDraft {
	if d.Type == Income && a.Source.Kind() == PayCard {
		return d
	}
	d.Payment = a.Source
	if a.Source.Kind() != PayCard {
		d.Installments = nil
	}
	return d
}

func (a ToggleInstallments) apply(d TransactionDraft) TransactionDraft {
	if !a.Enabled || d.Payment.Kind() != PayCard {
		d.Installments = nil
		return d
	}
	if d.Installments == nil {
		d.Installments = &Installment{Current: 1, Total: 1}
	}
	return d
}

func (a SetInstallment) apply(d TransactionDraft) TransactionDraft {
	if d.Installments == nil {
		return d
	}
	d.Installments = &Installment{Current: a.Current, Total: a.Total}
	return d
}

func (a LoadTransaction) apply(_ TransactionDraft) TransactionDraft {
	t := a.Transaction
	d := TransactionDraft{
		ID:              t.ID,
		Description:     t.Description,
		Amount:          strconv.FormatFloat(t.Amount, 'f', -1, 64),
		Date:            t.Date,
		Type:            t.Type,
		Category:        t.Category,
		CategoryTouched: t.Category != "",
		Payment:         t.PaymentSource(),
	}
	if t.Installments != nil {
		inst := *t.Installments
		d.Installments = &inst
	}
	return d
}

func (a ResetDraft) apply(_ TransactionDraft) TransactionDraft {
	return NewDraft(a.Now)
}

// NeedsSuggestion reports whether the draft qualifies for a category
// suggestion: an expense whose category was not chosen by hand and whose
// description is longer than five characters.
func (d TransactionDraft) NeedsSuggestion() bool {
	return d.Type == Expense && !d.CategoryTouched &&
		len([]rune(strings.TrimSpace(d.Description))) > 5
}

// Build converts the draft into a validated transaction. An empty id keeps
// the draft's own id.
func (d TransactionDraft) Build(id string) (Transaction, error) {
	if id == "" {
		id = d.ID
	}
	amount, err := ParseAmount(d.Amount)
	if err != nil {
		return Transaction{}, err
	}
	t := Transaction{
		ID:          id,
		Description: strings.TrimSpace(d.Description),
		Amount:      amount,
		Date:        d.Date,
		Type:        d.Type,
		Category:    d.Category,
	}
	if t.Type == Income {
		t.Category = CategorySalary
	}
	t = t.WithPaymentSource(d.Payment)
	if d.Payment.Kind() == PayCard && d.Installments != nil {
		inst := *d.Installments
		t.Installments = &inst
	}
	if err := t.Validate(); err != nil {
		return Transaction{}, err
	}
	return t, nil
}
