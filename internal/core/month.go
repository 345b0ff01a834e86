package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrFormat is matched by every month key parsing failure.
var ErrFormat = errors.New("format error")

// FormatError reports a month key string that is not MM/yyyy.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid month key %q: %s", e.Input, e.Reason)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// MonthKey identifies a calendar month. Its canonical form is MM/yyyy.
type MonthKey struct {
	Year  int
	Month int // 1-12
}

// ParseMonthKey parses "MM/yyyy" with month in 1..12.
func ParseMonthKey(s string) (MonthKey, error) {
	if len(s) != 7 || s[2] != '/' {
		return MonthKey{}, &FormatError{Input: s, Reason: "expected MM/yyyy"}
	}
	month, ok := atoiDigits(s[:2])
	if !ok {
		return MonthKey{}, &FormatError{Input: s, Reason: "month is not numeric"}
	}
	year, ok := atoiDigits(s[3:])
	if !ok {
		return MonthKey{}, &FormatError{Input: s, Reason: "year is not numeric"}
	}
	if month < 1 || month > 12 {
		return MonthKey{}, &FormatError{Input: s, Reason: "month out of range"}
	}
	return MonthKey{Year: year, Month: month}, nil
}

func atoiDigits(s string) (int, bool) {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// MonthKeyFromDate drops the day.
func MonthKeyFromDate(d Date) MonthKey {
	return MonthKey{Year: d.Year(), Month: d.Month()}
}

// MonthKeyFromTime drops day and time of day, using t's location.
func MonthKeyFromTime(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: int(t.Month())}
}

// Distance is the signed number of months from a to b.
func Distance(a, b MonthKey) int {
	return (b.Year-a.Year)*12 + (b.Month - a.Month)
}

func (m MonthKey) index() int {
	return m.Year*12 + m.Month - 1
}

// AddMonths returns the month n months after m (n may be negative).
func (m MonthKey) AddMonths(n int) MonthKey {
	return monthKeyFromIndex(m.index() + n)
}

func monthKeyFromIndex(idx int) MonthKey {
	year := idx / 12
	month := idx % 12
	if month < 0 {
		month += 12
		year--
	}
	return MonthKey{Year: year, Month: month + 1}
}

func (m MonthKey) Next() MonthKey { return m.AddMonths(1) }
func (m MonthKey) Prev() MonthKey { return m.AddMonths(-1) }

// Compare returns -1, 0 or +1.
func (m MonthKey) Compare(o MonthKey) int {
	switch a, b := m.index(), o.index(); {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (m MonthKey) Before(o MonthKey) bool { return m.Compare(o) < 0 }
func (m MonthKey) After(o MonthKey) bool  { return m.Compare(o) > 0 }
func (m MonthKey) Equal(o MonthKey) bool  { return m.Compare(o) == 0 }

func (m MonthKey) IsZero() bool { return m.Year == 0 && m.Month == 0 }

// DaysIn is the number of days in the month.
func (m MonthKey) DaysIn() int {
	return time.Date(m.Year, time.Month(m.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FirstDay is day 1 of the month.
func (m MonthKey) FirstDay() Date {
	return NewDate(m.Year, m.Month, 1)
}

func (m MonthKey) String() string {
	return fmt.Sprintf("%02d/%04d", m.Month, m.Year)
}

func (m MonthKey) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *MonthKey) UnmarshalText(b []byte) error {
	parsed, err := ParseMonthKey(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
