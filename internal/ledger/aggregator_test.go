package ledger

import (
	"context"
	"errors"
	"testing"
	"testing/quick"

	"bilancio/internal/core"

	"github.com/shopspring/decimal"
)

type failingStore struct{ err error }

func (f failingStore) Upsert(context.Context, core.OverrideKey, decimal.Decimal, core.Date) error {
	return f.err
}

func (f failingStore) Lookup(context.Context, core.OverrideKey) (core.Override, bool, error) {
	return core.Override{}, false, f.err
}

// countingStore records which keys were looked up.
type countingStore struct {
	*MemoryOverrideStore
	lookups []core.OverrideKey
}

func (c *countingStore) Lookup(ctx context.Context, key core.OverrideKey) (core.Override, bool, error) {
	c.lookups = append(c.lookups, key)
	return c.MemoryOverrideStore.Lookup(ctx, key)
}

func gymSeries() []core.Transaction {
	return []core.Transaction{recurringExpense("gym", core.NewDate(2025, 1, 15), intPtr(3))}
}

func TestForMonth_BoundedSeriesWithoutOverrides(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		month string
		count int
		total string
	}{
		{"01/2025", 1, "-100"},
		{"02/2025", 1, "-100"},
		{"03/2025", 1, "-100"},
		{"04/2025", 0, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.month, func(t *testing.T) {
			res, err := ForMonth(ctx, gymSeries(), month(t, tt.month), NewMemoryOverrideStore())
			if err != nil {
				t.Fatal(err)
			}
			if len(res.Occurrences) != tt.count {
				t.Fatalf("occurrences = %d, want %d", len(res.Occurrences), tt.count)
			}
			if !res.Total.Equal(decimal.RequireFromString(tt.total)) {
				t.Errorf("total = %s, want %s", res.Total, tt.total)
			}
			if !res.AdjustedTotal.Equal(res.Total) {
				t.Errorf("adjusted total %s differs without overrides", res.AdjustedTotal)
			}
		})
	}
}

// Scenario B: an override on the second occurrence changes what is displayed
// but not the template total.
func TestForMonth_OverrideReplacesDisplayedAmount(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryOverrideStore()
	if err := store.Upsert(ctx, core.OverrideKey{TransactionID: "gym", OccurrenceIndex: 1}, decimal.NewFromInt(-40), core.Date{}); err != nil {
		t.Fatal(err)
	}

	res, err := ForMonth(ctx, gymSeries(), core.MonthKey{Year: 2025, Month: 2}, store)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Occurrences) != 1 {
		t.Fatalf("occurrences = %d, want 1", len(res.Occurrences))
	}
	occ := res.Occurrences[0]
	if !occ.IsOverridden || !occ.Amount.Equal(decimal.NewFromInt(-40)) {
		t.Errorf("occurrence = %+v, want overridden -40", occ)
	}
	if !occ.EffectiveDate.Equal(core.NewDate(2025, 2, 15).Time) {
		t.Errorf("effective date = %s, want computed date kept", occ.EffectiveDate)
	}
	if !res.Total.Equal(decimal.NewFromInt(-100)) {
		t.Errorf("total = %s, want template sum -100", res.Total)
	}
	if !res.AdjustedTotal.Equal(decimal.NewFromInt(-40)) {
		t.Errorf("adjusted total = %s, want -40", res.AdjustedTotal)
	}
	if res.Overridden() != 1 {
		t.Errorf("Overridden = %d, want 1", res.Overridden())
	}

	// neighbouring occurrences of the same series are unaffected
	for _, m := range []core.MonthKey{{Year: 2025, Month: 1}, {Year: 2025, Month: 3}} {
		other, err := ForMonth(ctx, gymSeries(), m, store)
		if err != nil {
			t.Fatal(err)
		}
		if other.Occurrences[0].IsOverridden || !other.Occurrences[0].Amount.Equal(decimal.NewFromInt(-100)) {
			t.Errorf("%s: occurrence changed by a foreign override: %+v", m, other.Occurrences[0])
		}
	}

	// the expander never sees overrides
	raw, _ := OccurrenceFor(gymSeries()[0], core.MonthKey{Year: 2025, Month: 2})
	if raw.IsOverridden || !raw.Amount.Equal(decimal.NewFromInt(-100)) {
		t.Errorf("OccurrenceFor applied an override: %+v", raw)
	}
}

func TestForMonth_OverrideEffectiveDate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryOverrideStore()
	moved := core.NewDate(2025, 2, 3)
	_ = store.Upsert(ctx, core.OverrideKey{TransactionID: "gym", OccurrenceIndex: 1}, decimal.NewFromInt(-90), moved)

	res, err := ForMonth(ctx, gymSeries(), core.MonthKey{Year: 2025, Month: 2}, store)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Occurrences[0].EffectiveDate.Equal(moved.Time) {
		t.Errorf("effective date = %s, want %s", res.Occurrences[0].EffectiveDate, moved)
	}
}

// Scenario C: a paid payable and a paid receivable in the same month.
func TestForMonth_MergedBills(t *testing.T) {
	ctx := context.Background()
	bills := []core.BillRecord{
		{ID: "power", Title: "Power", Type: core.Payable, Amount: decimal.NewFromInt(300), Status: core.BillPaid, DueDate: core.NewDate(2025, 6, 5)},
		{ID: "invoice", Title: "Invoice", Type: core.Receivable, Amount: decimal.NewFromInt(1000), Status: core.BillPaid, DueDate: core.NewDate(2025, 6, 20)},
		{ID: "water", Title: "Water", Type: core.Payable, Amount: decimal.NewFromInt(70), Status: core.BillPending, DueDate: core.NewDate(2025, 6, 8)},
	}
	june := core.MonthKey{Year: 2025, Month: 6}

	expenses, err := ForMonth(ctx, MergeSide(core.SideExpense, nil, bills), june, nil)
	if err != nil {
		t.Fatal(err)
	}
	income, err := ForMonth(ctx, MergeSide(core.SideIncome, nil, bills), june, nil)
	if err != nil {
		t.Fatal(err)
	}

	if !expenses.Total.Equal(decimal.NewFromInt(-300)) {
		t.Errorf("expense total = %s, want -300", expenses.Total)
	}
	if !income.Total.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("income total = %s, want 1000", income.Total)
	}

	sum := Summarize(expenses, income)
	if !sum.Net.Equal(decimal.NewFromInt(700)) || !sum.AdjustedNet.Equal(decimal.NewFromInt(700)) {
		t.Errorf("summary = %+v, want net 700", sum)
	}
	if sum.Month != june {
		t.Errorf("summary month = %s", sum.Month)
	}
}

func TestForMonth_OverrideForUnknownTransactionIsInert(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryOverrideStore()
	if err := store.Upsert(ctx, core.OverrideKey{TransactionID: "ghost", OccurrenceIndex: 1}, decimal.NewFromInt(-1), core.Date{}); err != nil {
		t.Fatalf("upsert for unknown id must succeed: %v", err)
	}

	res, err := ForMonth(ctx, gymSeries(), core.MonthKey{Year: 2025, Month: 2}, store)
	if err != nil {
		t.Fatal(err)
	}
	if res.Overridden() != 0 || !res.AdjustedTotal.Equal(res.Total) {
		t.Errorf("ghost override leaked into ledger: %+v", res)
	}
}

func TestForMonth_NonRecurringSkipsLookup(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{MemoryOverrideStore: NewMemoryOverrideStore()}
	once := core.Transaction{ID: "once", Amount: decimal.NewFromInt(-5), AnchorDate: core.NewDate(2025, 2, 1)}
	_ = store.Upsert(ctx, core.OverrideKey{TransactionID: "once", OccurrenceIndex: 0}, decimal.NewFromInt(-999), core.Date{})

	txs := append(gymSeries(), once)
	res, err := ForMonth(ctx, txs, core.MonthKey{Year: 2025, Month: 2}, store)
	if err != nil {
		t.Fatal(err)
	}
	if len(store.lookups) != 1 || store.lookups[0].TransactionID != "gym" {
		t.Fatalf("lookups = %+v, want only the recurring series", store.lookups)
	}
	if !res.AdjustedTotal.Equal(decimal.NewFromInt(-105)) {
		t.Errorf("adjusted total = %s, want -105", res.AdjustedTotal)
	}
}

func TestForMonth_StoreErrorAborts(t *testing.T) {
	boom := errors.New("store down")
	_, err := ForMonth(context.Background(), gymSeries(), core.MonthKey{Year: 2025, Month: 1}, failingStore{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped %v", err, boom)
	}

	// no recurring occurrence in the month means no lookup and no error
	if _, err := ForMonth(context.Background(), gymSeries(), core.MonthKey{Year: 2026, Month: 1}, failingStore{err: boom}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestForMonth_EmptyInput(t *testing.T) {
	res, err := ForMonth(context.Background(), nil, core.MonthKey{Year: 2025, Month: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Occurrences) != 0 || !res.Total.IsZero() || !res.AdjustedTotal.IsZero() {
		t.Errorf("empty month = %+v", res)
	}
}

func TestSortOccurrences(t *testing.T) {
	occs := []core.Occurrence{
		{TransactionID: "b", EffectiveDate: core.NewDate(2025, 1, 10)},
		{TransactionID: "a", EffectiveDate: core.NewDate(2025, 1, 10)},
		{TransactionID: "c", EffectiveDate: core.NewDate(2025, 1, 2)},
	}
	SortOccurrences(occs)
	got := []string{occs[0].TransactionID, occs[1].TransactionID, occs[2].TransactionID}
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestForMonth_TotalMatchesTemplateSum(t *testing.T) {
	ctx := context.Background()
	prop := func(amounts []int16, overrideAll bool) bool {
		store := NewMemoryOverrideStore()
		txs := make([]core.Transaction, 0, len(amounts))
		want := decimal.Zero
		for i, a := range amounts {
			id := string(rune('a'+i%26)) + string(rune('A'+i/26%26))
			tx := recurringExpense(id, core.NewDate(2024, 1+i%12, 1), nil)
			tx.Amount = decimal.NewFromInt(int64(a))
			txs = append(txs, tx)
			want = want.Add(tx.Amount)
			if overrideAll {
				idx := core.Distance(core.MonthKeyFromDate(tx.AnchorDate), core.MonthKey{Year: 2025, Month: 1})
				_ = store.Upsert(ctx, core.OverrideKey{TransactionID: id, OccurrenceIndex: idx}, decimal.NewFromInt(7), core.Date{})
			}
		}
		res, err := ForMonth(ctx, txs, core.MonthKey{Year: 2025, Month: 1}, store)
		if err != nil || !res.Total.Equal(want) {
			return false
		}
		if overrideAll {
			return res.AdjustedTotal.Equal(decimal.NewFromInt(int64(7 * len(amounts))))
		}
		return res.AdjustedTotal.Equal(want)
	}
	if err := quick.Check(prop, nil); err != nil {
		t.Error(err)
	}
}
