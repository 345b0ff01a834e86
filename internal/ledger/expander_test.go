package ledger

import (
	"testing"
	"testing/quick"

	"bilancio/internal/core"

	"github.com/shopspring/decimal"
)

func intPtr(n int) *int { return &n }

func month(t *testing.T, s string) core.MonthKey {
	t.Helper()
	m, err := core.ParseMonthKey(s)
	if err != nil {
		t.Fatalf("parse month %q: %v", s, err)
	}
	return m
}

func recurringExpense(id string, anchor core.Date, months *int) core.Transaction {
	return core.Transaction{
		ID:               id,
		Description:      "Gym",
		Amount:           decimal.NewFromInt(-100),
		AnchorDate:       anchor,
		IsRecurring:      true,
		RecurrenceMonths: months,
		Source:           core.SourceAdHoc,
	}
}

func TestOccurrenceFor_NonRecurring(t *testing.T) {
	tx := core.Transaction{
		ID:         "t1",
		Amount:     decimal.NewFromInt(-42),
		AnchorDate: core.NewDate(2025, 3, 18),
		Source:     core.SourceAdHoc,
	}

	tests := []struct {
		name   string
		target string
		want   bool
	}{
		{"previous month", "02/2025", false},
		{"anchor month", "03/2025", true},
		{"next month", "04/2025", false},
		{"same month other year", "03/2026", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			occ, ok := OccurrenceFor(tx, month(t, tt.target))
			if ok != tt.want {
				t.Fatalf("OccurrenceFor(%s) present = %v, want %v", tt.target, ok, tt.want)
			}
			if !ok {
				return
			}
			if occ.OccurrenceIndex != 0 {
				t.Errorf("index = %d, want 0", occ.OccurrenceIndex)
			}
			if !occ.EffectiveDate.Equal(tx.AnchorDate.Time) {
				t.Errorf("effective date = %s, want %s", occ.EffectiveDate, tx.AnchorDate)
			}
			if !occ.Amount.Equal(tx.Amount) || occ.IsOverridden {
				t.Errorf("unexpected amount %s overridden=%v", occ.Amount, occ.IsOverridden)
			}
		})
	}
}

func TestOccurrenceFor_NonRecurringIgnoresRecurrenceMonths(t *testing.T) {
	tx := core.Transaction{ID: "t1", AnchorDate: core.NewDate(2025, 3, 1), RecurrenceMonths: intPtr(0)}
	if _, ok := OccurrenceFor(tx, core.MonthKey{Year: 2025, Month: 3}); !ok {
		t.Fatalf("non-recurring transaction must occur in its anchor month")
	}
}

// Scenario A: bounded recurring expense anchored mid-January for 3 months.
func TestOccurrenceFor_BoundedScenario(t *testing.T) {
	tx := recurringExpense("gym", core.NewDate(2025, 1, 15), intPtr(3))

	tests := []struct {
		target    string
		present   bool
		index     int
		effective core.Date
	}{
		{"12/2024", false, 0, core.Date{}},
		{"01/2025", true, 0, core.NewDate(2025, 1, 15)},
		{"02/2025", true, 1, core.NewDate(2025, 2, 15)},
		{"03/2025", true, 2, core.NewDate(2025, 3, 15)},
		{"04/2025", false, 0, core.Date{}},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			occ, ok := OccurrenceFor(tx, month(t, tt.target))
			if ok != tt.present {
				t.Fatalf("present = %v, want %v", ok, tt.present)
			}
			if !ok {
				return
			}
			if occ.OccurrenceIndex != tt.index {
				t.Errorf("index = %d, want %d", occ.OccurrenceIndex, tt.index)
			}
			if !occ.EffectiveDate.Equal(tt.effective.Time) {
				t.Errorf("effective = %s, want %s", occ.EffectiveDate, tt.effective)
			}
			if !occ.Amount.Equal(decimal.NewFromInt(-100)) {
				t.Errorf("amount = %s, want -100", occ.Amount)
			}
			if occ.TransactionID != "gym" || occ.Description != "Gym" || occ.Source != core.SourceAdHoc {
				t.Errorf("template fields not copied: %+v", occ)
			}
		})
	}
}

func TestOccurrenceFor_Unbounded(t *testing.T) {
	tx := recurringExpense("rent", core.NewDate(2020, 6, 1), nil)

	if _, ok := OccurrenceFor(tx, core.MonthKey{Year: 2020, Month: 5}); ok {
		t.Fatalf("no occurrence expected before the anchor month")
	}
	occ, ok := OccurrenceFor(tx, core.MonthKey{Year: 2030, Month: 6})
	if !ok {
		t.Fatalf("unbounded series must occur ten years later")
	}
	if occ.OccurrenceIndex != 120 {
		t.Fatalf("index = %d, want 120", occ.OccurrenceIndex)
	}
}

func TestOccurrenceFor_ZeroOrNegativeRecurrenceNeverOccurs(t *testing.T) {
	for _, n := range []int{0, -1, -12} {
		tx := recurringExpense("broken", core.NewDate(2025, 1, 1), intPtr(n))
		for _, m := range []core.MonthKey{{Year: 2024, Month: 12}, {Year: 2025, Month: 1}, {Year: 2025, Month: 2}} {
			if _, ok := OccurrenceFor(tx, m); ok {
				t.Fatalf("recurrenceMonths=%d produced an occurrence in %s", n, m)
			}
		}
	}
}

func TestOccurrenceFor_Clamping(t *testing.T) {
	tests := []struct {
		name   string
		anchor core.Date
		target core.MonthKey
		want   core.Date
	}{
		{"jan 31 to non-leap feb", core.NewDate(2025, 1, 31), core.MonthKey{Year: 2025, Month: 2}, core.NewDate(2025, 2, 28)},
		{"jan 31 to leap feb", core.NewDate(2024, 1, 31), core.MonthKey{Year: 2024, Month: 2}, core.NewDate(2024, 2, 29)},
		{"31st to april", core.NewDate(2025, 1, 31), core.MonthKey{Year: 2025, Month: 4}, core.NewDate(2025, 4, 30)},
		{"31st back to march", core.NewDate(2025, 1, 31), core.MonthKey{Year: 2025, Month: 3}, core.NewDate(2025, 3, 31)},
		{"feb 29 to next feb", core.NewDate(2024, 2, 29), core.MonthKey{Year: 2025, Month: 2}, core.NewDate(2025, 2, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := recurringExpense("clamp", tt.anchor, nil)
			occ, ok := OccurrenceFor(tx, tt.target)
			if !ok {
				t.Fatalf("expected an occurrence in %s", tt.target)
			}
			if !occ.EffectiveDate.Equal(tt.want.Time) {
				t.Fatalf("effective = %s, want %s", occ.EffectiveDate, tt.want)
			}
		})
	}
}

func TestOccurrences_Range(t *testing.T) {
	tx := recurringExpense("gym", core.NewDate(2025, 1, 15), intPtr(3))
	got := Occurrences(tx, core.MonthKey{Year: 2024, Month: 10}, core.MonthKey{Year: 2025, Month: 12})
	if len(got) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(got))
	}
	for i, occ := range got {
		if occ.OccurrenceIndex != i {
			t.Errorf("occurrence %d has index %d", i, occ.OccurrenceIndex)
		}
	}
	if got := Occurrences(tx, core.MonthKey{Year: 2025, Month: 5}, core.MonthKey{Year: 2025, Month: 1}); len(got) != 0 {
		t.Fatalf("inverted range should be empty, got %d", len(got))
	}
}

func TestLastMonth(t *testing.T) {
	tests := []struct {
		name   string
		tx     core.Transaction
		want   core.MonthKey
		wantOK bool
	}{
		{"single", core.Transaction{AnchorDate: core.NewDate(2025, 3, 1)}, core.MonthKey{Year: 2025, Month: 3}, true},
		{"bounded", recurringExpense("b", core.NewDate(2025, 11, 1), intPtr(3)), core.MonthKey{Year: 2026, Month: 1}, true},
		{"unbounded", recurringExpense("u", core.NewDate(2025, 11, 1), nil), core.MonthKey{}, false},
		{"never", recurringExpense("n", core.NewDate(2025, 11, 1), intPtr(0)), core.MonthKey{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LastMonth(tt.tx)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("LastMonth = %s, %v; want %s, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// quickAnchor maps arbitrary generated values onto a date; out of range
// days roll over into the next month.
func quickAnchor(year uint8, month, day uint8) core.Date {
	return core.NewDate(2000+int(year%50), int(month%12)+1, int(day%31)+1)
}

func quickTarget(anchor core.Date, offset int8) core.MonthKey {
	return core.MonthKeyFromDate(anchor).AddMonths(int(offset))
}

func TestOccurrenceFor_Properties(t *testing.T) {
	nonRecurring := func(year, mo, day uint8, offset int8) bool {
		anchor := quickAnchor(year, mo, day)
		tx := core.Transaction{ID: "x", AnchorDate: anchor}
		target := quickTarget(anchor, offset)
		occ, ok := OccurrenceFor(tx, target)
		want := core.MonthKeyFromDate(anchor).Equal(target)
		return ok == want && (!ok || occ.OccurrenceIndex == 0)
	}
	if err := quick.Check(nonRecurring, nil); err != nil {
		t.Errorf("non-recurring inclusion: %v", err)
	}

	unbounded := func(year, mo, day uint8, offset int8) bool {
		anchor := quickAnchor(year, mo, day)
		tx := recurringExpense("u", anchor, nil)
		target := quickTarget(anchor, offset)
		d := core.Distance(core.MonthKeyFromDate(anchor), target)
		occ, ok := OccurrenceFor(tx, target)
		if d < 0 {
			return !ok
		}
		return ok && occ.OccurrenceIndex == d
	}
	if err := quick.Check(unbounded, nil); err != nil {
		t.Errorf("unbounded monotonicity: %v", err)
	}

	bounded := func(year, mo, day uint8, n uint8) bool {
		anchor := quickAnchor(year, mo, day)
		count := int(n % 40)
		tx := recurringExpense("b", anchor, intPtr(count))
		start := core.MonthKeyFromDate(anchor)
		got := Occurrences(tx, start.AddMonths(-12), start.AddMonths(count+12))
		if len(got) != count {
			return false
		}
		for i, occ := range got {
			if occ.OccurrenceIndex != i || !core.MonthKeyFromDate(occ.EffectiveDate).Equal(start.AddMonths(i)) {
				return false
			}
		}
		return true
	}
	if err := quick.Check(bounded, nil); err != nil {
		t.Errorf("bounded window: %v", err)
	}

	effectiveDay := func(year, mo, day uint8, offset uint8) bool {
		anchor := quickAnchor(year, mo, day)
		tx := recurringExpense("d", anchor, nil)
		target := core.MonthKeyFromDate(anchor).AddMonths(int(offset))
		occ, ok := OccurrenceFor(tx, target)
		if !ok {
			return false
		}
		wantDay := anchor.Day()
		if last := target.DaysIn(); wantDay > last {
			wantDay = last
		}
		return occ.EffectiveDate.Day() == wantDay && core.MonthKeyFromDate(occ.EffectiveDate).Equal(target)
	}
	if err := quick.Check(effectiveDay, nil); err != nil {
		t.Errorf("effective date clamping: %v", err)
	}
}
