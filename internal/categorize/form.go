package categorize

import (
	"context"
	"sync"
	"time"

	"fintrack/internal/core"
)

// Form is a transaction draft being edited, with category suggestions
// requested in the background as the description settles.
type Form struct {
	mu          sync.Mutex
	draft       core.TransactionDraft
	categorizer *Categorizer
	debouncer   *Debouncer
	settled     chan struct{} // closed while no suggestion is pending
	closed      bool
}

// NewForm starts editing draft. A nil categorizer disables suggestions.
func NewForm(draft core.TransactionDraft, c *Categorizer, delay time.Duration) *Form {
	settled := make(chan struct{})
	close(settled)
	return &Form{
		draft:       draft,
		categorizer: c,
		debouncer:   NewDebouncer(delay),
		settled:     settled,
	}
}

// Draft returns the current state.
func (f *Form) Draft() core.TransactionDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Dispatch applies a and, when the description or type changed, schedules
// or cancels a suggestion.
func (f *Form) Dispatch(ctx context.Context, a core.DraftAction) core.TransactionDraft {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev := f.draft
	f.draft = f.draft.Apply(a)
	next := f.draft

	if f.categorizer == nil || f.closed {
		return next
	}
	if prev.Description == next.Description && prev.Type == next.Type {
		return next
	}
	if !next.NeedsSuggestion() {
		f.debouncer.Cancel()
		f.settle()
		return next
	}

	// Scheduling under f.mu keeps generations in the order actions applied.
	f.unsettle()
	ctx = context.WithoutCancel(ctx)
	description := next.Description
	f.debouncer.Trigger(func(gen uint64) { f.suggest(ctx, gen, description) })
	return next
}

func (f *Form) suggest(ctx context.Context, gen uint64, description string) {
	cat, ok := f.categorizer.Suggest(ctx, core.Expense, description)

	f.mu.Lock()
	defer f.mu.Unlock()
	// Trigger and Cancel only run under f.mu, so a newer action has either
	// bumped the generation already or waits for this delivery.
	f.debouncer.Deliver(gen, func() {
		if ok {
			f.draft = f.draft.Apply(core.ApplySuggestion{Category: cat})
		}
		f.settle()
	})
}

func (f *Form) unsettle() {
	select {
	case <-f.settled:
		f.settled = make(chan struct{})
	default:
	}
}

func (f *Form) settle() {
	select {
	case <-f.settled:
	default:
		close(f.settled)
	}
}

// Settled returns a channel that is closed once no suggestion is pending
// for the current description. It is already closed when none was asked for.
func (f *Form) Settled() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settled
}

// Close drops any pending suggestion. Later actions no longer request one.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.debouncer.Cancel()
	f.settle()
}
