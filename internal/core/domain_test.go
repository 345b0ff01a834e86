package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func intPtr(n int) *int { return &n }

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateAddMonthsClamped(t *testing.T) {
	tests := []struct {
		name string
		from Date
		n    int
		want Date
	}{
		{"same month", NewDate(2025, 1, 15), 0, NewDate(2025, 1, 15)},
		{"next month keeps day", NewDate(2025, 1, 15), 1, NewDate(2025, 2, 15)},
		{"jan 31 to non-leap feb", NewDate(2025, 1, 31), 1, NewDate(2025, 2, 28)},
		{"jan 31 to leap feb", NewDate(2024, 1, 31), 1, NewDate(2024, 2, 29)},
		{"31st into 30-day month", NewDate(2025, 3, 31), 1, NewDate(2025, 4, 30)},
		{"clamping does not stick", NewDate(2025, 1, 31), 2, NewDate(2025, 3, 31)},
		{"year rollover", NewDate(2024, 11, 30), 3, NewDate(2025, 2, 28)},
		{"backwards", NewDate(2025, 3, 31), -1, NewDate(2025, 2, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.from.AddMonthsClamped(tt.n)
			if !got.Equal(tt.want.Time) {
				t.Errorf("AddMonthsClamped(%d) = %s, want %s", tt.n, got, tt.want)
			}
		})
	}
}

func TestDateJSON(t *testing.T) {
	type wrapper struct {
		D Date `json:"d"`
	}
	b, err := json.Marshal(wrapper{D: NewDate(2025, 2, 15)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"d":"2025-02-15"}` {
		t.Fatalf("unexpected json %s", b)
	}

	var w wrapper
	if err := json.Unmarshal([]byte(`{"d":"2024-02-29"}`), &w); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !w.D.Equal(NewDate(2024, 2, 29).Time) {
		t.Fatalf("unexpected date %s", w.D)
	}
	if err := json.Unmarshal([]byte(`{"d":"2024-02-30"}`), &w); err == nil {
		t.Fatalf("expected error for impossible date")
	}
}

func TestParseSide(t *testing.T) {
	tests := []struct {
		in      string
		want    Side
		wantErr bool
	}{
		{"expense", SideExpense, false},
		{"INCOME", SideIncome, false},
		{" income ", SideIncome, false},
		{"savings", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseSide(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseSide(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseSide(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if SideExpense.BillType() != Payable || SideIncome.BillType() != Receivable {
		t.Fatalf("side to bill type mapping is wrong")
	}
}

func TestAdHocRecordValidate(t *testing.T) {
	good := AdHocRecord{
		ID:          "a1",
		Description: "Rent",
		Amount:      decimal.NewFromInt(-800),
		Date:        NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []AdHocRecord{
		{Description: "a", Amount: decimal.NewFromInt(1)},                           // zero date
		{Description: "", Amount: decimal.NewFromInt(1), Date: NewDate(2025, 1, 1)}, // empty description
		{Description: "a", Amount: decimal.Zero, Date: NewDate(2025, 1, 1)},         // zero amount
		{Description: "a", Amount: decimal.NewFromInt(1), Date: NewDate(2025, 1, 1), IsRecurring: true, RecurrenceMonths: intPtr(0)},
	}
	for i, r := range bads {
		if err := r.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestBillRecordValidate(t *testing.T) {
	good := BillRecord{
		Title:   "Electricity",
		Type:    Payable,
		Amount:  decimal.NewFromInt(120),
		DueDate: NewDate(2025, 3, 10),
		Status:  BillPaid,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	negativePaid := decimal.NewFromInt(-1)
	bads := []func(b *BillRecord){
		func(b *BillRecord) { b.Type = "transfer" },
		func(b *BillRecord) { b.Status = "cancelled" },
		func(b *BillRecord) { b.Amount = decimal.NewFromInt(-5) },
		func(b *BillRecord) { b.PaidAmount = &negativePaid },
		func(b *BillRecord) { b.Title = " " },
		func(b *BillRecord) { b.DueDate = Date{} },
	}
	for i, mutate := range bads {
		b := good
		mutate(&b)
		if err := b.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestBillTypeSign(t *testing.T) {
	if !Payable.Sign().Equal(decimal.NewFromInt(-1)) {
		t.Fatalf("payable sign should be -1")
	}
	if !Receivable.Sign().Equal(decimal.NewFromInt(1)) {
		t.Fatalf("receivable sign should be +1")
	}
}

func TestOverrideKeyValidate(t *testing.T) {
	if err := (OverrideKey{TransactionID: "t", OccurrenceIndex: 0}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (OverrideKey{TransactionID: "", OccurrenceIndex: 0}).Validate(); err != ErrEmptyTransaction {
		t.Fatalf("expected ErrEmptyTransaction, got %v", err)
	}
	if err := (OverrideKey{TransactionID: "t", OccurrenceIndex: -1}).Validate(); err != ErrInvalidIndex {
		t.Fatalf("expected ErrInvalidIndex, got %v", err)
	}
}

func TestIsValidation(t *testing.T) {
	bill := BillRecord{Title: "Rent", Type: Payable, Status: BillPaid, Amount: decimal.NewFromInt(1)}
	if err := bill.Validate(); !IsValidation(err) || !errors.Is(err, ErrZeroDate) {
		t.Errorf("zero due date error = %v, want wrapped ErrZeroDate", err)
	}
	if !IsValidation(fmt.Errorf("save: %w", ErrInvalidRecurrence)) {
		t.Error("wrapped recurrence error not recognised")
	}
	if IsValidation(errors.New("database is locked")) {
		t.Error("storage error classified as validation")
	}
	if IsValidation(nil) {
		t.Error("nil classified as validation")
	}
}
