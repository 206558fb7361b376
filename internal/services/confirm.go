package services

import "context"

// Confirmer asks the user to approve a destructive action. A false answer
// turns the action into a no-op.
type Confirmer func(ctx context.Context, prompt string) bool

// AlwaysConfirm approves every prompt.
func AlwaysConfirm(context.Context, string) bool { return true }

// NeverConfirm rejects every prompt.
func NeverConfirm(context.Context, string) bool { return false }

const (
	promptDeleteTransaction = "Delete this transaction?"
	promptDeleteCard        = "Delete this card? Transactions and recurring rules that use it keep their data but lose the card reference."
	promptDeleteAccount     = "Delete this account? Transactions and recurring rules that use it keep their data but lose the account reference."
	promptDeleteRecurring   = "Delete this recurring rule? None of its occurrences will be shown anymore."
)

func confirmed(ctx context.Context, confirm Confirmer, prompt string) bool {
	if confirm == nil {
		return false
	}
	return confirm(ctx, prompt)
}
