package core

import "github.com/shopspring/decimal"

// MonthSummary is the compact two-sided view of one reference month.
//
// The plain totals are computed from template amounts; the Adjusted
// totals from the amounts shown after overrides. They differ whenever an
// override applies to the month.
type MonthSummary struct {
	Month    MonthKey        `json:"month"`
	Expenses decimal.Decimal `json:"expenses"` // negative or zero
	Income   decimal.Decimal `json:"income"`
	Net      decimal.Decimal `json:"net"`

	AdjustedExpenses decimal.Decimal `json:"adjusted_expenses"`
	AdjustedIncome   decimal.Decimal `json:"adjusted_income"`
	AdjustedNet      decimal.Decimal `json:"adjusted_net"`
}

// MonthReport carries both sides of a month for export.
type MonthReport struct {
	Summary  MonthSummary `json:"summary"`
	Expenses []Occurrence `json:"expenses"`
	Income   []Occurrence `json:"income"`
}
