package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/sheets"
)

// MonthSource provides the combined view of a set of months.
type MonthSource interface {
	MonthViews(ctx context.Context, months []core.YearMonth, now time.Time) (map[core.YearMonth][]services.TransactionView, error)
}

// ExportConfig holds configuration for the export worker
type ExportConfig struct {
	// Months is how many months, ending with the current one, a full
	// reconcile exports (default: 12)
	Months int

	// ReconcileInterval is how often the full range is re-exported, as a
	// backstop for lost messages (default: 1h)
	ReconcileInterval time.Duration

	// Concurrency caps the number of months exported at once (default: 4)
	Concurrency int
}

// DefaultExportConfig returns sensible defaults
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		Months:            12,
		ReconcileInterval: time.Hour,
		Concurrency:       4,
	}
}

// ExportWorker mirrors the combined monthly view into a spreadsheet.
type ExportWorker struct {
	source   MonthSource
	exporter sheets.MonthExporter
	config   ExportConfig
	logger   *log.Logger
	now      func() time.Time

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewExportWorker(source MonthSource, exporter sheets.MonthExporter, config ExportConfig, logger *log.Logger) *ExportWorker {
	def := DefaultExportConfig()
	if config.Months < 1 {
		config.Months = def.Months
	}
	if config.ReconcileInterval <= 0 {
		config.ReconcileInterval = def.ReconcileInterval
	}
	if config.Concurrency < 1 {
		config.Concurrency = def.Concurrency
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		source:   source,
		exporter: exporter,
		config:   config,
		logger:   logger.WithComponent(log.ComponentWorker),
		now:      time.Now,
	}
}

// WithClock replaces the reference clock used to expand recurring rules.
func (w *ExportWorker) WithClock(now func() time.Time) *ExportWorker {
	w.now = now
	return w
}

// HandleLedgerChanged exports the months a change touched. A message that
// names no month, or names one that cannot be parsed, triggers a full
// reconcile.
func (w *ExportWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	months, err := msg.AffectedMonths()
	if err != nil {
		w.logger.WarnContext(ctx, "Ignoring malformed months in change message",
			log.FieldCollection, msg.Collection,
			log.FieldEntityID, msg.ID,
			log.FieldError, err)
		months = nil
	}
	if len(months) == 0 {
		months = core.LastMonths(w.now(), w.config.Months)
	}

	w.logger.InfoContext(ctx, "Processing ledger change",
		log.FieldCollection, msg.Collection,
		log.FieldOperation, msg.Op,
		log.FieldEntityID, msg.ID,
		log.FieldCount, len(months))

	return w.ExportRange(ctx, months)
}

// ExportRange exports each month concurrently. Every month is attempted;
// the first failure is returned.
func (w *ExportWorker) ExportRange(ctx context.Context, months []core.YearMonth) error {
	months = core.UniqueMonths(months)
	if len(months) == 0 {
		return nil
	}

	views, err := w.source.MonthViews(ctx, months, w.now())
	if err != nil {
		return fmt.Errorf("load months: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(w.config.Concurrency)
	for _, ym := range months {
		rows := Rows(views[ym])
		g.Go(func() error {
			if err := w.exporter.ExportMonth(ctx, ym, rows); err != nil {
				w.logger.ErrorContext(ctx, "Failed to export month",
					log.FieldOperation, log.OpExport,
					log.FieldYear, ym.Year,
					log.FieldMonth, ym.Month,
					log.FieldError, err)
				return fmt.Errorf("export %s: %w", ym, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Rows converts the combined view into spreadsheet rows.
func Rows(views []services.TransactionView) []sheets.Row {
	out := make([]sheets.Row, 0, len(views))
	for _, v := range views {
		payment := v.CardName
		if payment == "" {
			payment = v.AccountName
		}
		out = append(out, sheets.Row{
			Date:         v.Date,
			Description:  v.Description,
			Type:         v.Type,
			Category:     v.Category,
			Amount:       v.Amount,
			Payment:      payment,
			Installments: v.Installments,
			Recurring:    v.IsFromRecurring,
		})
	}
	return out
}

// Reconcile re-exports the configured range ending with the current month.
func (w *ExportWorker) Reconcile(ctx context.Context) error {
	months := core.LastMonths(w.now(), w.config.Months)
	if err := w.ExportRange(ctx, months); err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "Reconcile completed", log.FieldCount, len(months))
	return nil
}

// Start begins the reconcile loop. Returns an error if already running.
func (w *ExportWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("export worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	go w.runLoop(ctx, stopCh, doneCh)

	w.logger.InfoContext(ctx, "Export worker started",
		log.FieldOperation, log.OpStartup,
		"reconcile_interval", w.config.ReconcileInterval,
		"months", w.config.Months)
	return nil
}

// Stop gracefully stops the loop and waits for completion.
func (w *ExportWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.running = false
	w.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		w.logger.InfoContext(ctx, "Export worker stopped gracefully", log.FieldOperation, log.OpShutdown)
		return nil
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Export worker stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the reconcile loop is active
func (w *ExportWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *ExportWorker) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.config.ReconcileInterval)
	defer ticker.Stop()

	// Reconcile immediately on startup
	w.reconcile(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.reconcile(ctx)
		}
	}
}

func (w *ExportWorker) reconcile(ctx context.Context) {
	if err := w.Reconcile(ctx); err != nil && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "Reconcile failed", log.FieldError, err)
	}
}
