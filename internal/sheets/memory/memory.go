// Package memory keeps exported month reports in memory. It stands in for
// the spreadsheet in local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"bilancio/internal/core"
	"bilancio/internal/sheets"
)

type Writer struct {
	mu      sync.Mutex
	reports map[core.MonthKey]core.MonthReport
	writes  int
}

var _ sheets.ReportWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{reports: make(map[core.MonthKey]core.MonthReport)}
}

// WriteMonthReport stores a copy of r, replacing any earlier report for the
// same month.
func (w *Writer) WriteMonthReport(_ context.Context, r core.MonthReport) (string, error) {
	r.Expenses = append([]core.Occurrence(nil), r.Expenses...)
	r.Income = append([]core.Occurrence(nil), r.Income...)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.reports[r.Summary.Month] = r
	w.writes++
	return fmt.Sprintf("mem:%s", r.Summary.Month), nil
}

// Report returns the last report written for m.
func (w *Writer) Report(m core.MonthKey) (core.MonthReport, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.reports[m]
	return r, ok
}

// Writes counts WriteMonthReport calls.
func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}
