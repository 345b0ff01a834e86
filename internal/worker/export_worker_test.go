package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	sheetsmem "bilancio/internal/sheets/memory"

	"github.com/shopspring/decimal"
)

type fakeReports struct {
	mu    sync.Mutex
	asked []core.MonthKey
	err   error
}

func (f *fakeReports) Report(_ context.Context, month core.MonthKey) (core.MonthReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = append(f.asked, month)
	if f.err != nil {
		return core.MonthReport{}, f.err
	}
	return core.MonthReport{
		Summary: core.MonthSummary{Month: month, Net: decimal.NewFromInt(int64(month.Month))},
	}, nil
}

func (f *fakeReports) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.asked)
}

type failingWriter struct{}

func (failingWriter) WriteMonthReport(context.Context, core.MonthReport) (string, error) {
	return "", errors.New("quota exceeded")
}

func fixedClock(y int, m time.Month) func() time.Time {
	return func() time.Time { return time.Date(y, m, 17, 9, 0, 0, 0, time.UTC) }
}

func TestHandleOverrideChanged(t *testing.T) {
	tests := []struct {
		name      string
		month     string
		wantMonth core.MonthKey
		wantErr   bool
	}{
		{"explicit month", "03/2025", core.MonthKey{Year: 2025, Month: 3}, false},
		{"missing month uses clock", "", core.MonthKey{Year: 2026, Month: 10}, false},
		{"malformed month", "3/2025", core.MonthKey{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reports := &fakeReports{}
			writer := sheetsmem.New()
			w := NewExportWorker(reports, writer)
			w.now = fixedClock(2026, time.October)

			msg := &amqp.OverrideChangedMessage{TransactionID: "gym", OccurrenceIndex: 2, Month: tt.month}
			err := w.HandleOverrideChanged(context.Background(), msg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if writer.Writes() != 0 {
					t.Errorf("wrote %d reports on error", writer.Writes())
				}
				return
			}
			if err != nil {
				t.Fatalf("HandleOverrideChanged: %v", err)
			}
			if _, ok := writer.Report(tt.wantMonth); !ok {
				t.Errorf("no report written for %s", tt.wantMonth)
			}
		})
	}
}

func TestExportMonth_Errors(t *testing.T) {
	feb := core.MonthKey{Year: 2025, Month: 2}

	w := NewExportWorker(&fakeReports{err: errors.New("db down")}, sheetsmem.New())
	if err := w.ExportMonth(context.Background(), feb); err == nil {
		t.Error("expected report error")
	}

	w = NewExportWorker(&fakeReports{}, failingWriter{})
	if err := w.ExportMonth(context.Background(), feb); err == nil {
		t.Error("expected writer error")
	}
}

func TestRun_ExportsUntilCancelled(t *testing.T) {
	reports := &fakeReports{}
	writer := sheetsmem.New()
	w := NewExportWorker(reports, writer)
	w.now = fixedClock(2025, time.February)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for reports.calls() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d exports before deadline", reports.calls())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	if _, ok := writer.Report(core.MonthKey{Year: 2025, Month: 2}); !ok {
		t.Error("current month not exported")
	}
}
