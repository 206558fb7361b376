package memory

import (
	"context"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

func TestExporterReplacesMonth(t *testing.T) {
	ctx := context.Background()
	e := New()
	march := core.YearMonth{Year: 2024, Month: 3}

	first := []sheets.Row{{Description: "a"}, {Description: "b"}}
	if err := e.ExportMonth(ctx, march, first); err != nil {
		t.Fatalf("ExportMonth: %v", err)
	}
	first[0].Description = "mutated"

	rows, ok := e.Month(march)
	if !ok || len(rows) != 2 || rows[0].Description != "a" {
		t.Fatalf("Month = %+v, %v", rows, ok)
	}

	if err := e.ExportMonth(ctx, march, nil); err != nil {
		t.Fatalf("ExportMonth: %v", err)
	}
	rows, ok = e.Month(march)
	if !ok || len(rows) != 0 {
		t.Fatalf("expected month to be emptied, got %+v", rows)
	}
	if e.Calls() != 2 {
		t.Errorf("Calls = %d, want 2", e.Calls())
	}
}

func TestExporterMonthsSorted(t *testing.T) {
	ctx := context.Background()
	e := New()
	for _, ym := range []core.YearMonth{{Year: 2024, Month: 2}, {Year: 2023, Month: 12}, {Year: 2024, Month: 1}} {
		if err := e.ExportMonth(ctx, ym, nil); err != nil {
			t.Fatalf("ExportMonth: %v", err)
		}
	}
	got := e.Months()
	want := []core.YearMonth{{Year: 2023, Month: 12}, {Year: 2024, Month: 1}, {Year: 2024, Month: 2}}
	if len(got) != len(want) {
		t.Fatalf("Months = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Months[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if _, ok := e.Month(core.YearMonth{Year: 2020, Month: 1}); ok {
		t.Error("unexpected month")
	}
}

func TestExporterCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := New().ExportMonth(ctx, core.YearMonth{Year: 2024, Month: 1}, nil); err == nil {
		t.Fatal("expected context error")
	}
}
