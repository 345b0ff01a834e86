package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	SourceAdHoc Source = "ad_hoc"
	SourceBill  Source = "bill"
)

const (
	SideExpense Side = "expense"
	SideIncome  Side = "income"
)

const (
	Payable    BillType = "payable"
	Receivable BillType = "receivable"
)

const (
	BillPending BillStatus = "pending"
	BillPaid    BillStatus = "paid"
	BillOverdue BillStatus = "overdue"
)

const dateLayout = "2006-01-02"

type (
	// Source records where a merged transaction came from.
	Source string

	// Side is one half of the ledger: money going out or coming in.
	Side string

	BillType   string
	BillStatus string

	Date struct {
		time.Time
	}

	// AdHocRecord is a cash expense or income as authored by its form.
	// The amount sign is whatever the form stored.
	AdHocRecord struct {
		ID               string          `json:"id"`
		Description      string          `json:"description"`
		Amount           decimal.Decimal `json:"amount"`
		Date             Date            `json:"date"`
		IsRecurring      bool            `json:"is_recurring"`
		RecurrenceMonths *int            `json:"recurrence_months,omitempty"`
		CategoryID       *string         `json:"category_id,omitempty"`
	}

	BillRecord struct {
		ID               string           `json:"id"`
		Title            string           `json:"title"`
		Type             BillType         `json:"type"`
		Amount           decimal.Decimal  `json:"amount"`
		PaidAmount       *decimal.Decimal `json:"paid_amount,omitempty"`
		DueDate          Date             `json:"due_date"`
		PaidDate         *Date            `json:"paid_date,omitempty"`
		Status           BillStatus       `json:"status"`
		IsRecurring      bool             `json:"is_recurring"`
		RecurrenceMonths *int             `json:"recurrence_months,omitempty"`
		CategoryID       *string          `json:"category_id,omitempty"`
	}

	// Transaction is the source-agnostic shape every record is normalized to.
	Transaction struct {
		ID               string          `json:"id"`
		Description      string          `json:"description"`
		Amount           decimal.Decimal `json:"amount"` // expenses negative, incomes positive
		AnchorDate       Date            `json:"anchor_date"`
		IsRecurring      bool            `json:"is_recurring"`
		RecurrenceMonths *int            `json:"recurrence_months,omitempty"` // nil means unbounded
		CategoryID       *string         `json:"category_id,omitempty"`
		Source           Source          `json:"source"`
	}

	// Occurrence is one dated instance of a transaction in a given month.
	Occurrence struct {
		TransactionID   string          `json:"transaction_id"`
		OccurrenceIndex int             `json:"occurrence_index"`
		EffectiveDate   Date            `json:"effective_date"`
		Amount          decimal.Decimal `json:"amount"`
		IsOverridden    bool            `json:"is_overridden"`

		Description string  `json:"description"`
		CategoryID  *string `json:"category_id,omitempty"`
		Source      Source  `json:"source"`
	}

	OverrideKey struct {
		TransactionID   string `json:"transaction_id"`
		OccurrenceIndex int    `json:"occurrence_index"`
	}

	Override struct {
		Key           OverrideKey     `json:"key"`
		Amount        decimal.Decimal `json:"amount"`
		EffectiveDate Date            `json:"effective_date"`
	}
)

var (
	ErrInvalidDay        = errors.New("invalid day")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyDescription  = errors.New("empty description")
	ErrInvalidSide       = errors.New("invalid ledger side")
	ErrInvalidBillType   = errors.New("invalid bill type")
	ErrInvalidBillStatus = errors.New("invalid bill status")
	ErrInvalidRecurrence = errors.New("recurrence months must be positive")
	ErrInvalidIndex      = errors.New("occurrence index must not be negative")
	ErrEmptyTransaction  = errors.New("empty transaction id")
	ErrZeroDate          = errors.New("date cannot be zero")
	ErrDescriptionLength = errors.New("description too long (max 200 characters)")
	ErrMissingMonth      = errors.New("reference month or effective date required")
)

// ValidationErrors lists the sentinels record and key validation can
// return; callers use it to tell bad input from storage failures.
var ValidationErrors = []error{
	ErrInvalidDay, ErrInvalidMonth, ErrInvalidAmount, ErrEmptyDescription,
	ErrInvalidSide, ErrInvalidBillType, ErrInvalidBillStatus, ErrInvalidRecurrence,
	ErrInvalidIndex, ErrEmptyTransaction, ErrZeroDate, ErrDescriptionLength,
	ErrMissingMonth,
}

// IsValidation reports whether err wraps one of ValidationErrors.
func IsValidation(err error) bool {
	for _, target := range ValidationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// AddMonthsClamped moves the date n calendar months, keeping the day of
// month unless the target month is shorter, in which case the last day of
// that month is used (Jan 31 + 1 = Feb 28 or 29).
func (d Date) AddMonthsClamped(n int) Date {
	target := MonthKeyFromDate(d).AddMonths(n)
	day := d.Day()
	if last := target.DaysIn(); day > last {
		day = last
	}
	return NewDate(target.Year, target.Month, day)
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// MarshalJSON shadows the embedded time.Time encoder so dates travel as
// YYYY-MM-DD.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*d = Date{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return errors.New("date must be a YYYY-MM-DD string")
	}
	return d.UnmarshalText([]byte(s[1 : len(s)-1]))
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseSide accepts "expense" or "income" (case-insensitive).
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideExpense:
		return SideExpense, nil
	case SideIncome:
		return SideIncome, nil
	default:
		return "", ErrInvalidSide
	}
}

// BillType returns the kind of bill that belongs to this side of the ledger.
func (s Side) BillType() BillType {
	if s == SideIncome {
		return Receivable
	}
	return Payable
}

func (s Side) Valid() bool {
	return s == SideExpense || s == SideIncome
}

// Sign is -1 for payables and +1 for receivables.
func (t BillType) Sign() decimal.Decimal {
	if t == Receivable {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(-1)
}

func (t BillType) Valid() bool {
	return t == Payable || t == Receivable
}

func (s BillStatus) Valid() bool {
	switch s {
	case BillPending, BillPaid, BillOverdue:
		return true
	default:
		return false
	}
}

func (k OverrideKey) Validate() error {
	if strings.TrimSpace(k.TransactionID) == "" {
		return ErrEmptyTransaction
	}
	if k.OccurrenceIndex < 0 {
		return ErrInvalidIndex
	}
	return nil
}

func validateDescription(desc string) error {
	if len(strings.TrimSpace(desc)) == 0 {
		return ErrEmptyDescription
	}
	if len(desc) > 200 {
		return ErrDescriptionLength
	}
	return nil
}

func validateRecurrence(isRecurring bool, months *int) error {
	if isRecurring && months != nil && *months <= 0 {
		return ErrInvalidRecurrence
	}
	return nil
}

// Validate checks a record before it is written to a store. The ledger
// itself tolerates records that fail these checks.
func (r AdHocRecord) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if err := validateDescription(r.Description); err != nil {
		return err
	}
	if r.Amount.IsZero() {
		return ErrInvalidAmount
	}
	return validateRecurrence(r.IsRecurring, r.RecurrenceMonths)
}

func (b BillRecord) Validate() error {
	if err := b.DueDate.Validate(); err != nil {
		return fmt.Errorf("invalid due date: %w", err)
	}
	if err := validateDescription(b.Title); err != nil {
		return err
	}
	if !b.Type.Valid() {
		return ErrInvalidBillType
	}
	if !b.Status.Valid() {
		return ErrInvalidBillStatus
	}
	if !b.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if b.PaidAmount != nil && b.PaidAmount.IsNegative() {
		return ErrInvalidAmount
	}
	return validateRecurrence(b.IsRecurring, b.RecurrenceMonths)
}
