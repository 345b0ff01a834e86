package ledger

import (
	"context"
	"fmt"
	"sort"

	"bilancio/internal/core"

	"github.com/shopspring/decimal"
)

// MonthResult is the ledger for one reference month.
//
// Total sums the template amounts of the month's occurrences and ignores
// overrides; AdjustedTotal sums the amounts in Occurrences, overrides
// included. Both are reported so callers can see when they disagree.
type MonthResult struct {
	Month         core.MonthKey
	Occurrences   []core.Occurrence
	Total         decimal.Decimal
	AdjustedTotal decimal.Decimal
}

// Overridden counts the occurrences whose amount came from an override.
func (r MonthResult) Overridden() int {
	n := 0
	for _, o := range r.Occurrences {
		if o.IsOverridden {
			n++
		}
	}
	return n
}

// ForMonth expands every transaction into target, applies overrides to the
// occurrences of recurring series, and sums the month.
//
// Non-recurring transactions are never looked up in the store. A nil store
// means no overrides. The only error is a failing store lookup; temporal
// edge cases in the transactions never abort the pass. Occurrences are
// sorted with SortOccurrences.
func ForMonth(ctx context.Context, txs []core.Transaction, target core.MonthKey, overrides OverrideStore) (MonthResult, error) {
	result := MonthResult{
		Month:         target,
		Occurrences:   make([]core.Occurrence, 0, len(txs)),
		Total:         decimal.Zero,
		AdjustedTotal: decimal.Zero,
	}

	for _, t := range txs {
		occ, ok := OccurrenceFor(t, target)
		if !ok {
			continue
		}
		result.Total = result.Total.Add(occ.Amount)

		if t.IsRecurring && overrides != nil {
			key := core.OverrideKey{TransactionID: t.ID, OccurrenceIndex: occ.OccurrenceIndex}
			o, found, err := overrides.Lookup(ctx, key)
			if err != nil {
				return MonthResult{}, fmt.Errorf("lookup override %s#%d: %w", key.TransactionID, key.OccurrenceIndex, err)
			}
			if found {
				occ.Amount = o.Amount
				if !o.EffectiveDate.IsZero() {
					occ.EffectiveDate = o.EffectiveDate
				}
				occ.IsOverridden = true
			}
		}

		result.AdjustedTotal = result.AdjustedTotal.Add(occ.Amount)
		result.Occurrences = append(result.Occurrences, occ)
	}

	SortOccurrences(result.Occurrences)
	return result, nil
}

// SortOccurrences orders by effective date, then transaction id, then
// index, so display order does not depend on merge order.
func SortOccurrences(occs []core.Occurrence) {
	sort.SliceStable(occs, func(i, j int) bool {
		a, b := occs[i], occs[j]
		if !a.EffectiveDate.Equal(b.EffectiveDate.Time) {
			return a.EffectiveDate.Before(b.EffectiveDate.Time)
		}
		if a.TransactionID != b.TransactionID {
			return a.TransactionID < b.TransactionID
		}
		return a.OccurrenceIndex < b.OccurrenceIndex
	})
}

// Summarize combines the two sides of a month.
func Summarize(expenses, income MonthResult) core.MonthSummary {
	return core.MonthSummary{
		Month:            expenses.Month,
		Expenses:         expenses.Total,
		Income:           income.Total,
		Net:              core.SumAmounts(income.Total, expenses.Total),
		AdjustedExpenses: expenses.AdjustedTotal,
		AdjustedIncome:   income.AdjustedTotal,
		AdjustedNet:      core.SumAmounts(income.AdjustedTotal, expenses.AdjustedTotal),
	}
}
