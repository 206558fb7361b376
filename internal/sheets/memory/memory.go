package memory

import (
	"context"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

// Exporter keeps exported months in memory. It backs local runs without a
// spreadsheet and the worker tests.
type Exporter struct {
	mu     sync.Mutex
	months map[core.YearMonth][]sheets.Row
	calls  int
}

var _ sheets.MonthExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{months: make(map[core.YearMonth][]sheets.Row)}
}

// ExportMonth replaces the rows stored for ym.
func (e *Exporter) ExportMonth(ctx context.Context, ym core.YearMonth, rows []sheets.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := make([]sheets.Row, len(rows))
	copy(cp, rows)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.months[ym] = cp
	e.calls++
	return nil
}

// Month returns the last rows exported for ym.
func (e *Exporter) Month(ym core.YearMonth) ([]sheets.Row, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rows, ok := e.months[ym]
	if !ok {
		return nil, false
	}
	cp := make([]sheets.Row, len(rows))
	copy(cp, rows)
	return cp, true
}

// Months lists every exported month, oldest first.
func (e *Exporter) Months() []core.YearMonth {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]core.YearMonth, 0, len(e.months))
	for ym := range e.months {
		out = append(out, ym)
	}
	return core.UniqueMonths(out)
}

// Calls counts ExportMonth invocations.
func (e *Exporter) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
