package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// EventPublisher receives a notification after every committed mutation.
type EventPublisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// Snapshot is the full persisted state.
type Snapshot struct {
	Transactions []core.Transaction          `json:"transactions"`
	Cards        []core.Card                 `json:"cards"`
	Accounts     []core.Account              `json:"accounts"`
	Recurring    []core.RecurringTransaction `json:"recurringTransactions"`
	Widgets      core.VisibleWidgets         `json:"widgets"`
}

// TransactionView is one row of the combined transaction list.
type TransactionView struct {
	core.Transaction
	CardName        string `json:"cardName,omitempty"`
	AccountName     string `json:"accountName,omitempty"`
	FormattedAmount string `json:"formattedAmount"`
}

// Dashboard holds the data of every visible dashboard panel. Panels hidden
// by the widget settings are left empty.
type Dashboard struct {
	Totals       core.Totals                 `json:"totals"`
	Month        core.MonthOverview          `json:"month"`
	Widgets      core.VisibleWidgets         `json:"widgets"`
	Summary      *core.MonthComparison       `json:"monthlySummary,omitempty"`
	Categories   []core.CategoryAmount       `json:"categoryChart,omitempty"`
	Transactions []TransactionView           `json:"transactionList,omitempty"`
	Recurring    []core.RecurringTransaction `json:"recurringTransactions,omitempty"`
	Accounts     []core.Account              `json:"accounts,omitempty"`
	Cards        []core.Card                 `json:"cards,omitempty"`
}

// LedgerService owns the persisted collections. Every mutation rewrites the
// affected collections as a whole; mutations are serialised.
type LedgerService struct {
	mu        sync.Mutex
	data      *storage.Collections
	publisher EventPublisher
	logger    *log.Logger
	audit     *log.StructuredLogger
	newID     func() string
}

type Option func(*LedgerService)

// WithPublisher sends change events to p.
func WithPublisher(p EventPublisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

// WithIDGenerator replaces the UUID generator used for new records.
func WithIDGenerator(f func() string) Option {
	return func(s *LedgerService) { s.newID = f }
}

func NewLedgerService(data *storage.Collections, logger *log.Logger, opts ...Option) *LedgerService {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentLedger)
	s := &LedgerService{
		data:   data,
		logger: logger,
		audit:  log.NewStructuredLogger(logger),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks that the underlying store is reachable.
func (s *LedgerService) Ping(ctx context.Context) error {
	return storage.Ping(ctx, s.data.Store())
}

// Snapshot loads every collection.
func (s *LedgerService) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var err error
	if snap.Transactions, err = s.data.Transactions(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Cards, err = s.data.Cards(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Accounts, err = s.data.Accounts(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Recurring, err = s.data.Recurring(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Widgets, err = s.data.Widgets(ctx); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Combined returns persisted plus virtual transactions as of now.
func (snap Snapshot) Combined(now time.Time) []core.Transaction {
	return core.CombineTransactions(snap.Transactions, snap.Recurring, now)
}

// View returns the combined transactions, newest first, with card and
// account names resolved.
func (s *LedgerService) View(ctx context.Context, now time.Time) ([]TransactionView, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return buildView(snap, snap.Combined(now)), nil
}

func buildView(snap Snapshot, txs []core.Transaction) []TransactionView {
	cardNames := make(map[string]string, len(snap.Cards))
	for _, c := range snap.Cards {
		cardNames[c.ID] = c.Name
	}
	accountNames := make(map[string]string, len(snap.Accounts))
	for _, a := range snap.Accounts {
		accountNames[a.ID] = a.Name
	}

	out := make([]TransactionView, 0, len(txs))
	for _, t := range txs {
		out = append(out, TransactionView{
			Transaction:     t,
			CardName:        cardNames[t.CardID],
			AccountName:     accountNames[t.AccountID],
			FormattedAmount: core.FormatAmount(t.Amount),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	return out
}

// MonthTransactions returns the combined transactions dated in ym, oldest
// first.
func (s *LedgerService) MonthTransactions(ctx context.Context, ym core.YearMonth, now time.Time) ([]core.Transaction, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	txs := core.FilterMonth(snap.Combined(now), ym.Year, ym.Month)
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.Before(txs[j].Date.Time)
	})
	return txs, nil
}

// MonthViews groups the combined view by month for each of months, oldest
// first within a month, from a single snapshot. Months without entries map
// to an empty slice.
func (s *LedgerService) MonthViews(ctx context.Context, months []core.YearMonth, now time.Time) (map[core.YearMonth][]TransactionView, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	combined := snap.Combined(now)
	out := make(map[core.YearMonth][]TransactionView, len(months))
	for _, ym := range core.UniqueMonths(months) {
		rows := buildView(snap, core.FilterMonth(combined, ym.Year, ym.Month))
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Date.Before(rows[j].Date.Time)
		})
		out[ym] = rows
	}
	return out, nil
}

// Summary compares ym with the month before it over the combined view.
func (s *LedgerService) Summary(ctx context.Context, ym core.YearMonth, now time.Time) (core.MonthComparison, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return core.MonthComparison{}, err
	}
	return core.CompareMonths(snap.Combined(now), ym.Year, ym.Month), nil
}

// Dashboard computes the all-time totals and the data of every visible panel.
func (s *LedgerService) Dashboard(ctx context.Context, now time.Time) (Dashboard, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	combined := snap.Combined(now)
	w := snap.Widgets

	d := Dashboard{
		Totals:  core.ComputeTotals(combined),
		Month:   core.Overview(combined, now.UTC().Year(), int(now.UTC().Month())),
		Widgets: w,
	}
	if w.Visible(core.WidgetMonthlySummary) {
		summary := core.MonthlySummary(combined, now)
		d.Summary = &summary
	}
	if w.Visible(core.WidgetCategoryChart) {
		d.Categories = core.ExpensesByCategory(combined)
	}
	if w.Visible(core.WidgetTransactionList) {
		d.Transactions = buildView(snap, combined)
	}
	if w.Visible(core.WidgetRecurringTransactions) {
		d.Recurring = snap.Recurring
	}
	if w.Visible(core.WidgetAccounts) {
		d.Accounts = snap.Accounts
	}
	if w.Visible(core.WidgetCards) {
		d.Cards = snap.Cards
	}
	return d, nil
}

// SaveTransaction inserts tx, or replaces the stored transaction with the
// same id. An empty id gets a fresh one. Income without a category is
// filed under the salary category.
func (s *LedgerService) SaveTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.IsFromRecurring {
		return core.Transaction{}, ErrVirtualTransaction
	}
	tx.Description = strings.TrimSpace(tx.Description)
	if tx.Type == core.Income && strings.TrimSpace(tx.Category) == "" {
		tx.Category = core.CategorySalary
	}
	if tx.ID == "" {
		tx.ID = s.newID()
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("invalid transaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.data.Transactions(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	months := []core.YearMonth{core.MonthOf(tx.Date)}
	op := log.OpCreate
	if i := indexOf(txs, tx.ID, transactionID); i >= 0 {
		months = append(months, core.MonthOf(txs[i].Date))
		txs[i] = tx
		op = log.OpUpdate
	} else {
		txs = append(txs, tx)
	}
	if err := s.data.SetTransactions(ctx, txs); err != nil {
		return core.Transaction{}, err
	}

	s.logger.DebugContext(ctx, "Transaction stored",
		log.NewFields().WithTransaction(string(tx.Type), tx.Description, tx.Amount, tx.Category).ToSlice()...)
	s.committed(ctx, op, storage.KeyTransactions, tx.ID, months...)
	return tx, nil
}

// DeleteTransaction removes a persisted transaction after confirmation.
// Occurrences derived from a recurring rule are refused with
// ErrDeleteVirtual. It reports whether anything was deleted.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id string, now time.Time, confirm Confirmer) (bool, error) {
	s.mu.Lock()
	snap, err := s.Snapshot(ctx)
	s.mu.Unlock()
	if err != nil {
		return false, err
	}

	if indexOf(snap.Transactions, id, transactionID) < 0 {
		for _, v := range core.ExpandRecurring(snap.Recurring, snap.Transactions, now) {
			if v.ID == id {
				return false, ErrDeleteVirtual
			}
		}
		return false, fmt.Errorf("transaction %q: %w", id, ErrNotFound)
	}

	if !confirmed(ctx, confirm, promptDeleteTransaction) {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.data.Transactions(ctx)
	if err != nil {
		return false, err
	}
	i := indexOf(txs, id, transactionID)
	if i < 0 {
		return false, fmt.Errorf("transaction %q: %w", id, ErrNotFound)
	}
	month := core.MonthOf(txs[i].Date)
	txs = append(txs[:i], txs[i+1:]...)
	if err := s.data.SetTransactions(ctx, txs); err != nil {
		return false, err
	}

	s.committed(ctx, log.OpDelete, storage.KeyTransactions, id, month)
	return true, nil
}

func (s *LedgerService) SaveCard(ctx context.Context, c core.Card) (core.Card, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.ID == "" {
		c.ID = s.newID()
	}
	if err := c.Validate(); err != nil {
		return core.Card{}, fmt.Errorf("invalid card: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cards, err := s.data.Cards(ctx)
	if err != nil {
		return core.Card{}, err
	}
	cards, op := upsert(cards, c, cardID)
	if err := s.data.SetCards(ctx, cards); err != nil {
		return core.Card{}, err
	}
	s.committed(ctx, op, storage.KeyCards, c.ID)
	return c, nil
}

// DeleteCard removes a card after confirmation. Transactions and rules
// paying with it are kept with the card reference cleared; installment
// plans on those transactions are dropped with it.
func (s *LedgerService) DeleteCard(ctx context.Context, id string, confirm Confirmer) (bool, error) {
	if err := s.requireExists(ctx, id, storage.KeyCards); err != nil {
		return false, err
	}
	if !confirmed(ctx, confirm, promptDeleteCard) {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cards, err := s.data.Cards(ctx)
	if err != nil {
		return false, err
	}
	i := indexOf(cards, id, cardID)
	if i < 0 {
		return false, fmt.Errorf("card %q: %w", id, ErrNotFound)
	}

	batch := s.data.Batch()
	err = s.detach(ctx, batch,
		func(t *core.Transaction) bool {
			if t.CardID != id {
				return false
			}
			t.CardID = ""
			t.Installments = nil
			return true
		},
		func(rt *core.RecurringTransaction) bool {
			if rt.CardID != id {
				return false
			}
			rt.CardID = ""
			return true
		})
	if err != nil {
		return false, err
	}

	cards = append(cards[:i], cards[i+1:]...)
	if err := batch.Cards(cards).Commit(ctx); err != nil {
		return false, err
	}
	s.committed(ctx, log.OpDelete, storage.KeyCards, id)
	return true, nil
}

func (s *LedgerService) SaveAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a.Name = strings.TrimSpace(a.Name)
	if a.ID == "" {
		a.ID = s.newID()
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, fmt.Errorf("invalid account: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.data.Accounts(ctx)
	if err != nil {
		return core.Account{}, err
	}
	accounts, op := upsert(accounts, a, accountID)
	if err := s.data.SetAccounts(ctx, accounts); err != nil {
		return core.Account{}, err
	}
	s.committed(ctx, op, storage.KeyAccounts, a.ID)
	return a, nil
}

// DeleteAccount removes an account after confirmation. Transactions and
// rules referencing it are kept with the account reference cleared.
func (s *LedgerService) DeleteAccount(ctx context.Context, id string, confirm Confirmer) (bool, error) {
	if err := s.requireExists(ctx, id, storage.KeyAccounts); err != nil {
		return false, err
	}
	if !confirmed(ctx, confirm, promptDeleteAccount) {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.data.Accounts(ctx)
	if err != nil {
		return false, err
	}
	i := indexOf(accounts, id, accountID)
	if i < 0 {
		return false, fmt.Errorf("account %q: %w", id, ErrNotFound)
	}

	batch := s.data.Batch()
	err = s.detach(ctx, batch,
		func(t *core.Transaction) bool {
			if t.AccountID != id {
				return false
			}
			t.AccountID = ""
			return true
		},
		func(rt *core.RecurringTransaction) bool {
			if rt.AccountID != id {
				return false
			}
			rt.AccountID = ""
			return true
		})
	if err != nil {
		return false, err
	}

	accounts = append(accounts[:i], accounts[i+1:]...)
	if err := batch.Accounts(accounts).Commit(ctx); err != nil {
		return false, err
	}
	s.committed(ctx, log.OpDelete, storage.KeyAccounts, id)
	return true, nil
}

// detach stages into batch the transactions and rules for which the given
// functions report a change. The caller adds the owner list and commits, so
// references are cleared in the same write that removes the owner. Callers
// hold s.mu.
func (s *LedgerService) detach(ctx context.Context, batch *storage.Batch, fixTx func(*core.Transaction) bool, fixRule func(*core.RecurringTransaction) bool) error {
	txs, err := s.data.Transactions(ctx)
	if err != nil {
		return err
	}
	changed := 0
	for i := range txs {
		if fixTx(&txs[i]) {
			changed++
		}
	}
	if changed > 0 {
		batch.Transactions(txs)
	}

	rules, err := s.data.Recurring(ctx)
	if err != nil {
		return err
	}
	changedRules := 0
	for i := range rules {
		if fixRule(&rules[i]) {
			changedRules++
		}
	}
	if changedRules > 0 {
		batch.Recurring(rules)
	}

	s.logger.DebugContext(ctx, "References staged for clearing",
		log.FieldCount, changed+changedRules)
	return nil
}

// SaveRecurring inserts or replaces a recurring rule.
func (s *LedgerService) SaveRecurring(ctx context.Context, rt core.RecurringTransaction) (core.RecurringTransaction, error) {
	rt.Description = strings.TrimSpace(rt.Description)
	if rt.ID == "" {
		rt.ID = s.newID()
	}
	if err := rt.Validate(); err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("invalid recurring rule: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rules, err := s.data.Recurring(ctx)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	rules, op := upsert(rules, rt, ruleID)
	if err := s.data.SetRecurring(ctx, rules); err != nil {
		return core.RecurringTransaction{}, err
	}
	s.committed(ctx, op, storage.KeyRecurring, rt.ID)
	return rt, nil
}

// DeleteRecurring removes a rule after confirmation. Its occurrences stop
// being derived; transactions persisted under a derived id are kept.
func (s *LedgerService) DeleteRecurring(ctx context.Context, id string, confirm Confirmer) (bool, error) {
	if err := s.requireExists(ctx, id, storage.KeyRecurring); err != nil {
		return false, err
	}
	if !confirmed(ctx, confirm, promptDeleteRecurring) {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rules, err := s.data.Recurring(ctx)
	if err != nil {
		return false, err
	}
	i := indexOf(rules, id, ruleID)
	if i < 0 {
		return false, fmt.Errorf("recurring rule %q: %w", id, ErrNotFound)
	}
	rules = append(rules[:i], rules[i+1:]...)
	if err := s.data.SetRecurring(ctx, rules); err != nil {
		return false, err
	}
	s.committed(ctx, log.OpDelete, storage.KeyRecurring, id)
	return true, nil
}

func (s *LedgerService) Widgets(ctx context.Context) (core.VisibleWidgets, error) {
	return s.data.Widgets(ctx)
}

// SetWidgets stores the widget visibility map, normalised to known keys.
func (s *LedgerService) SetWidgets(ctx context.Context, w core.VisibleWidgets) (core.VisibleWidgets, error) {
	w = w.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.data.SetWidgets(ctx, w); err != nil {
		return nil, err
	}
	s.audit.LogMutation(ctx, log.OpUpdate, storage.KeyWidgets, "")
	return w, nil
}

func (s *LedgerService) requireExists(ctx context.Context, id, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found bool
	switch collection {
	case storage.KeyCards:
		cards, err := s.data.Cards(ctx)
		if err != nil {
			return err
		}
		found = indexOf(cards, id, cardID) >= 0
	case storage.KeyAccounts:
		accounts, err := s.data.Accounts(ctx)
		if err != nil {
			return err
		}
		found = indexOf(accounts, id, accountID) >= 0
	case storage.KeyRecurring:
		rules, err := s.data.Recurring(ctx)
		if err != nil {
			return err
		}
		found = indexOf(rules, id, ruleID) >= 0
	}
	if !found {
		return fmt.Errorf("%s %q: %w", collection, id, ErrNotFound)
	}
	return nil
}

// committed logs a mutation and announces it. Publishing never fails the
// mutation, which is already stored.
func (s *LedgerService) committed(ctx context.Context, op, collection, id string, months ...core.YearMonth) {
	s.audit.LogMutation(ctx, op, collection, id)

	if s.publisher == nil {
		return
	}
	msg := amqp.NewLedgerChangedMessage(collection, op, id, months...)
	if err := s.publisher.PublishLedgerChanged(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger change",
			log.FieldCollection, collection,
			log.FieldEntityID, id,
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeNetwork)
	}
}

func transactionID(t core.Transaction) string    { return t.ID }
func cardID(c core.Card) string                  { return c.ID }
func accountID(a core.Account) string            { return a.ID }
func ruleID(rt core.RecurringTransaction) string { return rt.ID }

func indexOf[T any](items []T, id string, key func(T) string) int {
	for i, item := range items {
		if key(item) == id {
			return i
		}
	}
	return -1
}

// upsert replaces the item with the same id or appends it, reporting which
// happened as a log operation name.
func upsert[T any](items []T, item T, key func(T) string) ([]T, string) {
	if i := indexOf(items, key(item), key); i >= 0 {
		items[i] = item
		return items, log.OpUpdate
	}
	return append(items, item), log.OpCreate
}
