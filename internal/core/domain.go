package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const dateLayout = "2006-01-02"

type (
	TransactionType string

	// Date is a calendar date without time component, always in UTC.
	Date struct {
		time.Time
	}

	Installment struct {
		Current int `json:"current"`
		Total   int `json:"total"`
	}

	Account struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	Card struct {
		ID         string  `json:"id"`
		Name       string  `json:"name"`
		Limit      float64 `json:"limit"`
		ClosingDay int     `json:"closingDay"`
	}

	Transaction struct {
		ID              string          `json:"id"`
		Description     string          `json:"description"`
		Amount          float64         `json:"amount"`
		Date            Date            `json:"date"`
		Type            TransactionType `json:"type"`
		Category        string          `json:"category"`
		CardID          string          `json:"cardId,omitempty"`
		AccountID       string          `json:"accountId,omitempty"`
		Installments    *Installment    `json:"installments,omitempty"`
		IsFromRecurring bool            `json:"isFromRecurring,omitempty"`
	}

	RecurringTransaction struct {
		ID          string  `json:"id"`
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
		Category    string  `json:"category"`
		StartDate   Date    `json:"startDate"`
		EndDate     Date    `json:"endDate"`
		CardID      string  `json:"cardId,omitempty"`
		AccountID   string  `json:"accountId,omitempty"`
	}
)

var (
	ErrInvalidDate            = errors.New("invalid date")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrEmptyDescription       = errors.New("empty description")
	ErrDescriptionTooLong     = errors.New("description too long (max 200 characters)")
	ErrEmptyCategory          = errors.New("empty category")
	ErrEmptyName              = errors.New("empty name")
	ErrInvalidType            = errors.New("invalid transaction type")
	ErrInvalidInstallment     = errors.New("invalid installment")
	ErrInvalidClosingDay      = errors.New("closing day must be between 1 and 31")
	ErrInvalidRange           = errors.New("end date must not be before start date")
	ErrPaymentSourceConflict  = errors.New("card and account are mutually exclusive")
	ErrIncomeRequiresAccount  = errors.New("income must reference an account")
	ErrIncomeCard             = errors.New("income cannot reference a card")
	ErrInstallmentWithoutCard = errors.New("installments require a card")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) Date {
	t = t.UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// MarshalJSON writes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "YYYY-MM-DD" and full RFC 3339 timestamps; the
// latter are reduced to their UTC calendar date.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	if parsed, err := ParseDate(s); err == nil {
		*d = parsed
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	*d = DateOf(t)
	return nil
}

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

func (i Installment) Validate() error {
	if i.Current < 1 || i.Total < 1 || i.Current > i.Total {
		return fmt.Errorf("%w: %d/%d", ErrInvalidInstallment, i.Current, i.Total)
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (c Card) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.Limit < 0 {
		return ErrInvalidAmount
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return ErrInvalidClosingDay
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if t.Amount < 0 {
		return ErrInvalidAmount
	}
	if !t.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, t.Type)
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.CardID != "" && t.AccountID != "" {
		return ErrPaymentSourceConflict
	}
	if t.Type == Income {
		if t.CardID != "" {
			return ErrIncomeCard
		}
		if t.AccountID == "" {
			return ErrIncomeRequiresAccount
		}
	}
	if t.Installments != nil {
		if t.CardID == "" {
			return ErrInstallmentWithoutCard
		}
		if err := t.Installments.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (rt RecurringTransaction) Validate() error {
	if err := rt.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	if err := rt.EndDate.Validate(); err != nil {
		return fmt.Errorf("invalid end date: %w", err)
	}
	if rt.EndDate.Before(rt.StartDate.Time) {
		return ErrInvalidRange
	}
	if len(strings.TrimSpace(rt.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(rt.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if rt.Amount < 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(rt.Category) == "" {
		return ErrEmptyCategory
	}
	if rt.CardID != "" && rt.AccountID != "" {
		return ErrPaymentSourceConflict
	}
	return nil
}
