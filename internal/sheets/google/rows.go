package google

import (
	"fmt"
	"strings"

	"bilancio/internal/core"
)

var header = []interface{}{"Side", "Date", "Description", "Amount", "Overridden", "Source", "Transaction", "Index"}

// sheetName is "<prefix> MM-yyyy"; a slash would clash with A1 notation.
func sheetName(prefix string, m core.MonthKey) string {
	return fmt.Sprintf("%s %02d-%04d", strings.TrimSpace(prefix), m.Month, m.Year)
}

// quoteSheet quotes a sheet name for use in an A1 range.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// buildRows lays out a report: header, expense occurrences, income
// occurrences, a blank separator and the summary lines. Amounts are written
// as fixed two-decimal strings so the sheet parses them as numbers.
func buildRows(r core.MonthReport) [][]interface{} {
	rows := make([][]interface{}, 0, len(r.Expenses)+len(r.Income)+8)
	rows = append(rows, header)
	for _, o := range r.Expenses {
		rows = append(rows, occurrenceRow(core.SideExpense, o))
	}
	for _, o := range r.Income {
		rows = append(rows, occurrenceRow(core.SideIncome, o))
	}

	s := r.Summary
	rows = append(rows,
		[]interface{}{},
		summaryRow("Expenses", core.FormatAmount(s.Expenses)),
		summaryRow("Income", core.FormatAmount(s.Income)),
		summaryRow("Net", core.FormatAmount(s.Net)),
		summaryRow("Expenses (adjusted)", core.FormatAmount(s.AdjustedExpenses)),
		summaryRow("Income (adjusted)", core.FormatAmount(s.AdjustedIncome)),
		summaryRow("Net (adjusted)", core.FormatAmount(s.AdjustedNet)),
	)
	return rows
}

func occurrenceRow(side core.Side, o core.Occurrence) []interface{} {
	overridden := ""
	if o.IsOverridden {
		overridden = "yes"
	}
	return []interface{}{
		string(side),
		o.EffectiveDate.String(),
		o.Description,
		core.FormatAmount(o.Amount),
		overridden,
		string(o.Source),
		o.TransactionID,
		o.OccurrenceIndex,
	}
}

func summaryRow(label, amount string) []interface{} {
	return []interface{}{"Total", "", label, amount}
}
