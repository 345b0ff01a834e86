package sheets

import (
	"context"

	"bilancio/internal/core"
)

// ReportWriter publishes a computed month to a spreadsheet-like sink.
// Writing the same month twice replaces the earlier copy.
type ReportWriter interface {
	WriteMonthReport(ctx context.Context, r core.MonthReport) (ref string, err error)
}
