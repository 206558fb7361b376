// Package storage persists the ledger as whole JSON documents in a flat
// string-keyed store.
package storage

import (
	"context"
	"errors"
	"sort"
)

// Keys of the top-level collections.
const (
	KeyTransactions = "transactions"
	KeyCards        = "cards"
	KeyAccounts     = "accounts"
	KeyRecurring    = "recurringTransactions"
	KeyWidgets      = "widgets"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("store closed")

// Store is the persistence collaborator: a string-keyed document store.
// Get reports found=false for a key that was never written.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Pinger is implemented by stores that can report their own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks s when it supports health checks and succeeds otherwise.
func Ping(ctx context.Context, s Store) error {
	if p, ok := s.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Batcher is implemented by stores that write several keys atomically.
type Batcher interface {
	SetMany(ctx context.Context, values map[string][]byte) error
}

// SetMany writes values in one step when s is a Batcher. Other stores get
// the keys one by one in lexical order and may be left partly written.
func SetMany(ctx context.Context, s Store, values map[string][]byte) error {
	if b, ok := s.(Batcher); ok {
		return b.SetMany(ctx, values)
	}
	for _, k := range sortedKeys(values) {
		if err := s.Set(ctx, k, values[k]); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(values map[string][]byte) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
