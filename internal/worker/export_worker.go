package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/sheets"
)

// ReportSource computes the full ledger of a month.
type ReportSource interface {
	Report(ctx context.Context, month core.MonthKey) (core.MonthReport, error)
}

// ExportWorker keeps the spreadsheet copy of the ledger in step with the
// store: it rewrites a month whenever an override in it changes, and the
// current month on a fixed interval.
type ExportWorker struct {
	reports ReportSource
	writer  sheets.ReportWriter
	now     func() time.Time
}

func NewExportWorker(reports ReportSource, writer sheets.ReportWriter) *ExportWorker {
	return &ExportWorker{
		reports: reports,
		writer:  writer,
		now:     time.Now,
	}
}

// HandleOverrideChanged re-exports the month named by msg, or the current
// month when the publisher did not know it.
func (w *ExportWorker) HandleOverrideChanged(ctx context.Context, msg *amqp.OverrideChangedMessage) error {
	slog.InfoContext(ctx, "Processing override change",
		"transaction_id", msg.TransactionID,
		"occurrence_index", msg.OccurrenceIndex,
		"month", msg.Month)

	month, ok, err := msg.ReferenceMonth()
	if err != nil {
		return fmt.Errorf("override message month: %w", err)
	}
	if !ok {
		month = w.currentMonth()
		slog.DebugContext(ctx, "Override message without month, exporting current month",
			"month", month.String())
	}
	return w.ExportMonth(ctx, month)
}

// ExportMonth recomputes month and replaces its sheet.
func (w *ExportWorker) ExportMonth(ctx context.Context, month core.MonthKey) error {
	report, err := w.reports.Report(ctx, month)
	if err != nil {
		return fmt.Errorf("compute report %s: %w", month, err)
	}

	ref, err := w.writer.WriteMonthReport(ctx, report)
	if err != nil {
		return fmt.Errorf("write report %s: %w", month, err)
	}

	slog.InfoContext(ctx, "Month exported",
		"month", month.String(),
		"ref", ref,
		"expenses", len(report.Expenses),
		"income", len(report.Income),
		"net", core.FormatAmount(report.Summary.Net))
	return nil
}

func (w *ExportWorker) ExportCurrentMonth(ctx context.Context) error {
	return w.ExportMonth(ctx, w.currentMonth())
}

// Run exports the current month once and then every interval until ctx is
// done. Failed exports are logged and retried on the next tick.
func (w *ExportWorker) Run(ctx context.Context, interval time.Duration) {
	if err := w.ExportCurrentMonth(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup export failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Periodic export stopped")
			return
		case <-ticker.C:
			if err := w.ExportCurrentMonth(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic export failed", "error", err)
			}
		}
	}
}

func (w *ExportWorker) currentMonth() core.MonthKey {
	return core.MonthKeyFromTime(w.now())
}
