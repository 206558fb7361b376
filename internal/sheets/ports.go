package sheets

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// MonthExporter mirrors the combined view of one month into an external
	// spreadsheet. Each call replaces whatever was exported for that month.
	MonthExporter interface {
		ExportMonth(ctx context.Context, ym core.YearMonth, rows []Row) error
	}

	// Row is one exported transaction with its payment source resolved to a
	// display name.
	Row struct {
		Date         core.Date
		Description  string
		Type         core.TransactionType
		Category     string
		Amount       float64
		Payment      string
		Installments *core.Installment
		Recurring    bool
	}
)

// Header is the first row of every exported month.
var Header = []any{"Date", "Description", "Type", "Category", "Amount", "Payment", "Installments", "Recurring"}

// TabName returns the sheet tab a month is exported to.
func TabName(ym core.YearMonth) string {
	return ym.String()
}

// Values renders r in Header order. Amounts stay numeric so that sheet
// formulas can sum them.
func (r Row) Values() []any {
	installments := ""
	if r.Installments != nil {
		installments = fmt.Sprintf("%d/%d", r.Installments.Current, r.Installments.Total)
	}
	recurring := ""
	if r.Recurring {
		recurring = "yes"
	}
	return []any{
		r.Date.String(),
		r.Description,
		string(r.Type),
		r.Category,
		core.RoundCents(r.Amount),
		r.Payment,
		installments,
		recurring,
	}
}
