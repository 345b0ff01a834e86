package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/services"

	"github.com/shopspring/decimal"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// errBadRequest marks request shape errors (malformed JSON, bad query
// parameters) that are not domain validation failures.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// parseMonth reads the month query parameter as MM/yyyy, defaulting to the
// month of now when it is absent.
func parseMonth(q url.Values, now time.Time) (core.MonthKey, error) {
	v := strings.TrimSpace(q.Get("month"))
	if v == "" {
		return core.MonthKeyFromTime(now), nil
	}
	return core.ParseMonthKey(v)
}

// parseOptionalMonth is parseMonth without the default; absent yields zero.
func parseOptionalMonth(q url.Values) (core.MonthKey, error) {
	v := strings.TrimSpace(q.Get("month"))
	if v == "" {
		return core.MonthKey{}, nil
	}
	return core.ParseMonthKey(v)
}

// parseSide returns the side parameter; an empty value means both sides.
func parseSide(q url.Values) (core.Side, bool, error) {
	v := strings.TrimSpace(q.Get("side"))
	if v == "" {
		return "", false, nil
	}
	side, err := core.ParseSide(v)
	if err != nil {
		return "", false, err
	}
	return side, true, nil
}

// parseOverrideKey reads transaction_id and occurrence_index from the query.
func parseOverrideKey(q url.Values) (core.OverrideKey, error) {
	key := core.OverrideKey{TransactionID: sanitizeInput(q.Get("transaction_id"))}
	raw := strings.TrimSpace(q.Get("occurrence_index"))
	if raw == "" {
		return core.OverrideKey{}, badRequest("occurrence_index is required")
	}
	idx, err := strconv.Atoi(raw)
	if err != nil {
		return core.OverrideKey{}, badRequest("occurrence_index must be an integer")
	}
	key.OccurrenceIndex = idx
	if err := key.Validate(); err != nil {
		return core.OverrideKey{}, err
	}
	return key, nil
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields
// and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return badRequest("body larger than %d bytes", maxErr.Limit)
		}
		if errors.Is(err, io.EOF) {
			return badRequest("empty body")
		}
		return badRequest("invalid JSON: %v", err)
	}
	if dec.More() {
		return badRequest("body must contain a single JSON object")
	}
	return nil
}

// sanitizeInput trims whitespace and drops control characters other than
// tab, newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// amountField holds a decimal amount sent as a JSON string ("12.30") or
// number (12.3).
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*a = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = str
	}
	*a = amountField(s)
	return nil
}

type overrideRequest struct {
	TransactionID   string      `json:"transaction_id"`
	OccurrenceIndex *int        `json:"occurrence_index"`
	Amount          amountField `json:"amount"`
	EffectiveDate   core.Date   `json:"effective_date"`
	Month           string      `json:"month,omitempty"`
}

type transactionRequest struct {
	Side             string      `json:"side"`
	ID               string      `json:"id,omitempty"`
	Description      string      `json:"description"`
	Amount           amountField `json:"amount"`
	Date             core.Date   `json:"date"`
	IsRecurring      bool        `json:"is_recurring"`
	RecurrenceMonths *int        `json:"recurrence_months,omitempty"`
	CategoryID       *string     `json:"category_id,omitempty"`
}

type billRequest struct {
	ID               string       `json:"id,omitempty"`
	Title            string       `json:"title"`
	Type             string       `json:"type"`
	Amount           amountField  `json:"amount"`
	PaidAmount       *amountField `json:"paid_amount,omitempty"`
	DueDate          core.Date    `json:"due_date"`
	PaidDate         *core.Date   `json:"paid_date,omitempty"`
	Status           string       `json:"status"`
	IsRecurring      bool         `json:"is_recurring"`
	RecurrenceMonths *int         `json:"recurrence_months,omitempty"`
	CategoryID       *string      `json:"category_id,omitempty"`
}

func (req overrideRequest) toChange() (services.OverrideChange, error) {
	if req.OccurrenceIndex == nil {
		return services.OverrideChange{}, badRequest("occurrence_index is required")
	}
	key := core.OverrideKey{
		TransactionID:   sanitizeInput(req.TransactionID),
		OccurrenceIndex: *req.OccurrenceIndex,
	}
	if err := key.Validate(); err != nil {
		return services.OverrideChange{}, err
	}
	amount, err := parseOverrideAmount(string(req.Amount))
	if err != nil {
		return services.OverrideChange{}, err
	}
	var month core.MonthKey
	if m := strings.TrimSpace(req.Month); m != "" {
		if month, err = core.ParseMonthKey(m); err != nil {
			return services.OverrideChange{}, err
		}
	}
	return services.OverrideChange{
		Key:           key,
		Amount:        amount,
		EffectiveDate: req.EffectiveDate,
		Month:         month,
	}, nil
}

// parseOverrideAmount is core.ParseAmount that also accepts zero, which
// blanks out a single occurrence.
func parseOverrideAmount(s string) (decimal.Decimal, error) {
	amount, err := core.ParseAmount(s)
	if err == nil {
		return amount, nil
	}
	if d, zerr := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ".")); zerr == nil && d.IsZero() {
		return decimal.Zero, nil
	}
	return decimal.Zero, err
}

func (req transactionRequest) toRecord() (core.Side, core.AdHocRecord, error) {
	side, err := core.ParseSide(req.Side)
	if err != nil {
		return "", core.AdHocRecord{}, err
	}
	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		return "", core.AdHocRecord{}, err
	}
	return side, core.AdHocRecord{
		ID:               sanitizeInput(req.ID),
		Description:      sanitizeInput(req.Description),
		Amount:           amount,
		Date:             req.Date,
		IsRecurring:      req.IsRecurring,
		RecurrenceMonths: req.RecurrenceMonths,
		CategoryID:       req.CategoryID,
	}, nil
}

func (req billRequest) toRecord() (core.BillRecord, error) {
	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		return core.BillRecord{}, err
	}
	b := core.BillRecord{
		ID:               sanitizeInput(req.ID),
		Title:            sanitizeInput(req.Title),
		Type:             core.BillType(strings.ToLower(strings.TrimSpace(req.Type))),
		Amount:           amount,
		DueDate:          req.DueDate,
		PaidDate:         req.PaidDate,
		Status:           core.BillStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		IsRecurring:      req.IsRecurring,
		RecurrenceMonths: req.RecurrenceMonths,
		CategoryID:       req.CategoryID,
	}
	if req.PaidAmount != nil && *req.PaidAmount != "" {
		paid, err := core.ParseAmount(string(*req.PaidAmount))
		if err != nil {
			return core.BillRecord{}, err
		}
		b.PaidAmount = &paid
	}
	return b, nil
}
