package core

import "fmt"

// PaymentKind tags which reference a PaymentSource carries.
type PaymentKind int

const (
	PayNone PaymentKind = iota
	PayCard
	PayAccount
)

// PaymentSource is the account or card funding an entry. Exactly one
// variant is active, so an entry can never reference both.
type PaymentSource struct {
	kind PaymentKind
	id   string
}

// NoPayment is the empty payment source (cash or unspecified).
var NoPayment = PaymentSource{}

func CardSource(cardID string) PaymentSource {
	if cardID == "" {
		return NoPayment
	}
	return PaymentSource{kind: PayCard, id: cardID}
}

func AccountSource(accountID string) PaymentSource {
	if accountID == "" {
		return NoPayment
	}
	return PaymentSource{kind: PayAccount, id: accountID}
}

func (p PaymentSource) Kind() PaymentKind { return p.kind }

func (p PaymentSource) ID() string { return p.id }

// CardID returns the card reference, empty unless the source is a card.
func (p PaymentSource) CardID() string {
	if p.kind == PayCard {
		return p.id
	}
	return ""
}

// AccountID returns the account reference, empty unless the source is an account.
func (p PaymentSource) AccountID() string {
	if p.kind == PayAccount {
		return p.id
	}
	return ""
}

func (p PaymentSource) String() string {
	switch p.kind {
	case PayCard:
		return fmt.Sprintf("card(%s)", p.id)
	case PayAccount:
		return fmt.Sprintf("account(%s)", p.id)
	default:
		return "none"
	}
}

// paymentFromFields maps stored optional references to a variant. A record
// holding both (only possible in hand-edited data) resolves to the account.
func paymentFromFields(cardID, accountID string) PaymentSource {
	if accountID != "" {
		return AccountSource(accountID)
	}
	return CardSource(cardID)
}

func (t Transaction) PaymentSource() PaymentSource {
	return paymentFromFields(t.CardID, t.AccountID)
}

// WithPaymentSource returns a copy of t funded by p. Installments are
// dropped when the new source is not a card.
func (t Transaction) WithPaymentSource(p PaymentSource) Transaction {
	t.CardID = p.CardID()
	t.AccountID = p.AccountID()
	if p.Kind() != PayCard {
		t.Installments = nil
	}
	return t
}

func (rt RecurringTransaction) PaymentSource() PaymentSource {
	return paymentFromFields(rt.CardID, rt.AccountID)
}

func (rt RecurringTransaction) WithPaymentSource(p PaymentSource) RecurringTransaction {
	rt.CardID = p.CardID()
	rt.AccountID = p.AccountID()
	return rt
}
