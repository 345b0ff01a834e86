// Package ledger expands transaction templates into monthly occurrences,
// merges ad-hoc and bill records into one stream, and aggregates a
// reference month with per-occurrence overrides applied.
//
// Everything here is a pure function of its inputs. The only state lives in
// the OverrideStore the caller passes in.
package ledger

import "bilancio/internal/core"

// OccurrenceFor decides whether t produces an occurrence in target.
//
// A non-recurring transaction occurs once, in its anchor month, at index 0.
// A recurring one occurs at index Distance(anchor, target) when that is not
// negative and, for bounded series, below RecurrenceMonths. A bounded series
// with RecurrenceMonths <= 0 never occurs.
//
// The returned amount is always the template amount; overrides are applied
// by ForMonth.
func OccurrenceFor(t core.Transaction, target core.MonthKey) (core.Occurrence, bool) {
	anchor := core.MonthKeyFromDate(t.AnchorDate)

	if !t.IsRecurring {
		if !anchor.Equal(target) {
			return core.Occurrence{}, false
		}
		return newOccurrence(t, 0, t.AnchorDate), true
	}

	d := core.Distance(anchor, target)
	if d < 0 {
		return core.Occurrence{}, false
	}
	if t.RecurrenceMonths != nil && d >= *t.RecurrenceMonths {
		return core.Occurrence{}, false
	}
	return newOccurrence(t, d, t.AnchorDate.AddMonthsClamped(d)), true
}

// Occurrences lists the occurrences of t in every month from from to to,
// both inclusive, in month order.
func Occurrences(t core.Transaction, from, to core.MonthKey) []core.Occurrence {
	var out []core.Occurrence
	for m := from; !m.After(to); m = m.Next() {
		if occ, ok := OccurrenceFor(t, m); ok {
			out = append(out, occ)
		}
	}
	return out
}

// LastMonth returns the final month t occurs in. It reports false for
// unbounded series and for series that never occur.
func LastMonth(t core.Transaction) (core.MonthKey, bool) {
	anchor := core.MonthKeyFromDate(t.AnchorDate)
	if !t.IsRecurring {
		return anchor, true
	}
	if t.RecurrenceMonths == nil || *t.RecurrenceMonths <= 0 {
		return core.MonthKey{}, false
	}
	return anchor.AddMonths(*t.RecurrenceMonths - 1), true
}

func newOccurrence(t core.Transaction, index int, effective core.Date) core.Occurrence {
	return core.Occurrence{
		TransactionID:   t.ID,
		OccurrenceIndex: index,
		EffectiveDate:   effective,
		Amount:          t.Amount,
		Description:     t.Description,
		CategoryID:      t.CategoryID,
		Source:          t.Source,
	}
}
