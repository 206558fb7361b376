package categorize

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

type fakeSuggester struct {
	calls  atomic.Int32
	answer string
	err    error
	gate   chan struct{}
}

func (f *fakeSuggester) Suggest(ctx context.Context, _ string) (string, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.answer, f.err
}

func TestEligible(t *testing.T) {
	tests := []struct {
		txType core.TransactionType
		desc   string
		want   bool
	}{
		{core.Expense, "Coffee", true},
		{core.Expense, "  Bus  ", false},
		{core.Expense, "12345", false},
		{core.Expense, "açaí b", true},
		{core.Income, "Monthly salary", false},
	}
	for _, tt := range tests {
		if got := Eligible(tt.txType, tt.desc); got != tt.want {
			t.Errorf("Eligible(%s, %q) = %v, want %v", tt.txType, tt.desc, got, tt.want)
		}
	}
}

func TestCategorizer_Suggest(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		err    error
		want   string
	}{
		{"exact category", "Transport", nil, "Transport"},
		{"normalised answer", " \"groceries.\" ", nil, "Groceries"},
		{"unknown answer", "Pets", nil, core.CategoryOther},
		{"income label refused", core.CategorySalary, nil, core.CategoryOther},
		{"suggester error", "", errors.New("quota"), core.CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCategorizer(&fakeSuggester{answer: tt.answer, err: tt.err}, Config{}, log.Discard())
			got, ok := c.Suggest(context.Background(), core.Expense, "Something long")
			if !ok || got != tt.want {
				t.Errorf("Suggest = %q, %v, want %q", got, ok, tt.want)
			}
		})
	}
}

func TestCategorizer_Ineligible(t *testing.T) {
	s := &fakeSuggester{answer: "Food"}
	c := NewCategorizer(s, Config{}, log.Discard())
	if _, ok := c.Suggest(context.Background(), core.Expense, "Bus"); ok {
		t.Error("short description should not be categorised")
	}
	if _, ok := c.Suggest(context.Background(), core.Income, "Monthly salary"); ok {
		t.Error("income should not be categorised")
	}
	if s.calls.Load() != 0 {
		t.Errorf("suggester called %d times", s.calls.Load())
	}
}

func TestCategorizer_NoSuggester(t *testing.T) {
	c := NewCategorizer(nil, Config{}, log.Discard())
	got, ok := c.Suggest(context.Background(), core.Expense, "Dinner out")
	if !ok || got != core.CategoryOther {
		t.Errorf("Suggest = %q, %v", got, ok)
	}
}

func TestCategorizer_MemoisesSuccessOnly(t *testing.T) {
	s := &fakeSuggester{answer: "Food"}
	c := NewCategorizer(s, Config{}, log.Discard())
	ctx := context.Background()

	c.Suggest(ctx, core.Expense, "Pizza night")
	c.Suggest(ctx, core.Expense, "  PIZZA NIGHT ")
	if s.calls.Load() != 1 {
		t.Errorf("expected one call for equal descriptions, got %d", s.calls.Load())
	}

	failing := &fakeSuggester{err: errors.New("down")}
	c = NewCategorizer(failing, Config{}, log.Discard())
	c.Suggest(ctx, core.Expense, "Pizza night")
	c.Suggest(ctx, core.Expense, "Pizza night")
	if failing.calls.Load() != 2 {
		t.Errorf("failures must not be cached, got %d calls", failing.calls.Load())
	}
}

func TestCategorizer_Timeout(t *testing.T) {
	s := &fakeSuggester{answer: "Food", gate: make(chan struct{})}
	c := NewCategorizer(s, Config{Timeout: 20 * time.Millisecond}, log.Discard())

	start := time.Now()
	got, _ := c.Suggest(context.Background(), core.Expense, "Slow answer")
	if got != core.CategoryOther {
		t.Errorf("Suggest = %q, want %q", got, core.CategoryOther)
	}
	if time.Since(start) > time.Second {
		t.Error("timeout not applied")
	}
}

func TestCategorizer_CollapsesConcurrentRequests(t *testing.T) {
	s := &fakeSuggester{answer: "Travel", gate: make(chan struct{})}
	c := NewCategorizer(s, Config{}, log.Discard())

	const n = 5
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Suggest(context.Background(), core.Expense, "Flight to Rome")
		}(i)
	}

	deadline := time.Now().Add(time.Second)
	for s.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	// Give the other callers time to join the in-flight request.
	time.Sleep(20 * time.Millisecond)
	close(s.gate)
	wg.Wait()

	for i, r := range results {
		if r != "Travel" {
			t.Errorf("result %d = %q", i, r)
		}
	}
	if s.calls.Load() != 1 {
		t.Errorf("expected a single upstream call, got %d", s.calls.Load())
	}
}
