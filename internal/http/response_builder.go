package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"bilancio/internal/core"
	"bilancio/internal/ledger"

	"github.com/shopspring/decimal"
)

type errorResponse struct {
	Error string `json:"error"`
}

// sideResponse is one side of a month's ledger.
type sideResponse struct {
	Month         core.MonthKey     `json:"month"`
	Side          core.Side         `json:"side"`
	Occurrences   []core.Occurrence `json:"occurrences"`
	Total         decimal.Decimal   `json:"total"`
	AdjustedTotal decimal.Decimal   `json:"adjusted_total"`
	Overridden    int               `json:"overridden"`
}

func newSideResponse(side core.Side, res ledger.MonthResult) sideResponse {
	occs := res.Occurrences
	if occs == nil {
		occs = []core.Occurrence{}
	}
	return sideResponse{
		Month:         res.Month,
		Side:          side,
		Occurrences:   occs,
		Total:         res.Total,
		AdjustedTotal: res.AdjustedTotal,
		Overridden:    res.Overridden(),
	}
}

type createdResponse struct {
	ID string `json:"id"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps an error to its HTTP status: malformed input is 400,
// well-formed but invalid records 422, anything else 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, core.ErrFormat), errors.Is(err, core.ErrInvalidSide):
		return http.StatusBadRequest
	case core.IsValidation(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as JSON. Server errors are logged and their text
// is not sent to the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logErr(r, op, err)
		msg = "internal error"
	}
	writeJSONError(w, status, msg)
}
