package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// Collections gives typed access to the five top-level documents. A key
// that was never written, or holds a value that does not decode, reads as
// the collection's default.
type Collections struct {
	store  Store
	logger *log.Logger
}

func NewCollections(store Store, logger *log.Logger) *Collections {
	if logger == nil {
		logger = log.Discard()
	}
	return &Collections{store: store, logger: logger.WithComponent(log.ComponentStorage)}
}

// Store returns the underlying store.
func (c *Collections) Store() Store { return c.store }

func load[T any](ctx context.Context, c *Collections, key string, def func() T) (T, error) {
	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("load %s: %w", key, err)
	}
	if !found || len(raw) == 0 {
		return def(), nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.WarnContext(ctx, "Malformed stored value, using default",
			log.FieldKey, key,
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeDatabase)
		return def(), nil
	}
	return v, nil
}

func save[T any](ctx context.Context, c *Collections, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func loadList[T any](ctx context.Context, c *Collections, key string) ([]T, error) {
	v, err := load(ctx, c, key, func() []T { return []T{} })
	if err != nil {
		return nil, err
	}
	return nonNil(v), nil
}

func (c *Collections) Transactions(ctx context.Context) ([]core.Transaction, error) {
	txs, err := loadList[core.Transaction](ctx, c, KeyTransactions)
	if err != nil {
		return nil, err
	}
	// Virtual occurrences are never persisted; drop any that slipped in.
	out := txs[:0]
	for _, t := range txs {
		if !t.IsFromRecurring {
			out = append(out, t)
		}
	}
	return out, nil
}

func (c *Collections) SetTransactions(ctx context.Context, txs []core.Transaction) error {
	return save(ctx, c, KeyTransactions, nonNil(txs))
}

func (c *Collections) Cards(ctx context.Context) ([]core.Card, error) {
	return loadList[core.Card](ctx, c, KeyCards)
}

func (c *Collections) SetCards(ctx context.Context, cards []core.Card) error {
	return save(ctx, c, KeyCards, nonNil(cards))
}

func (c *Collections) Accounts(ctx context.Context) ([]core.Account, error) {
	return loadList[core.Account](ctx, c, KeyAccounts)
}

func (c *Collections) SetAccounts(ctx context.Context, accounts []core.Account) error {
	return save(ctx, c, KeyAccounts, nonNil(accounts))
}

func (c *Collections) Recurring(ctx context.Context) ([]core.RecurringTransaction, error) {
	return loadList[core.RecurringTransaction](ctx, c, KeyRecurring)
}

func (c *Collections) SetRecurring(ctx context.Context, rules []core.RecurringTransaction) error {
	return save(ctx, c, KeyRecurring, nonNil(rules))
}

func (c *Collections) Widgets(ctx context.Context) (core.VisibleWidgets, error) {
	w, err := load(ctx, c, KeyWidgets, core.DefaultWidgets)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return core.DefaultWidgets(), nil
	}
	return w, nil
}

func (c *Collections) SetWidgets(ctx context.Context, w core.VisibleWidgets) error {
	return save(ctx, c, KeyWidgets, w.Normalize())
}

// Batch stages collection writes that Commit applies together.
type Batch struct {
	c      *Collections
	values map[string][]byte
	err    error
}

// Batch starts an empty set of writes.
func (c *Collections) Batch() *Batch {
	return &Batch{c: c, values: make(map[string][]byte)}
}

func (b *Batch) put(key string, v any) *Batch {
	if b.err != nil {
		return b
	}
	raw, err := json.Marshal(v)
	if err != nil {
		b.err = fmt.Errorf("encode %s: %w", key, err)
		return b
	}
	b.values[key] = raw
	return b
}

func (b *Batch) Transactions(txs []core.Transaction) *Batch {
	return b.put(KeyTransactions, nonNil(txs))
}

func (b *Batch) Recurring(rules []core.RecurringTransaction) *Batch {
	return b.put(KeyRecurring, nonNil(rules))
}

func (b *Batch) Cards(cards []core.Card) *Batch {
	return b.put(KeyCards, nonNil(cards))
}

func (b *Batch) Accounts(accounts []core.Account) *Batch {
	return b.put(KeyAccounts, nonNil(accounts))
}

// Commit writes the staged collections, atomically when the store
// supports it.
func (b *Batch) Commit(ctx context.Context) error {
	if b.err != nil {
		return b.err
	}
	if len(b.values) == 0 {
		return nil
	}
	if err := SetMany(ctx, b.c.store, b.values); err != nil {
		return fmt.Errorf("save %s: %w", strings.Join(sortedKeys(b.values), ", "), err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
