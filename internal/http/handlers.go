package http

import (
	"context"
	"net/http"

	"bilancio/internal/core"
	applog "bilancio/internal/log"
)

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}

// handleLedger returns one side of the month when side is given, else the
// full report.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	month, err := parseMonth(q, s.now())
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	side, hasSide, err := parseSide(q)
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	if hasSide {
		res, err := s.ledger.Month(ctx, side, month)
		if err != nil {
			s.writeError(w, r, applog.OpRead, err)
			return
		}
		writeJSON(w, http.StatusOK, newSideResponse(side, res))
		return
	}

	report, err := s.ledger.Report(ctx, month)
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	if report.Expenses == nil {
		report.Expenses = []core.Occurrence{}
	}
	if report.Income == nil {
		report.Income = []core.Occurrence{}
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonth(r.URL.Query(), s.now())
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	summary, err := s.ledger.Summary(ctx, month)
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleListOverrides(w http.ResponseWriter, r *http.Request) {
	txID := sanitizeInput(r.URL.Query().Get("transaction_id"))
	if txID == "" {
		s.writeError(w, r, applog.OpList, badRequest("transaction_id is required"))
		return
	}

	overrides, err := s.ledger.Overrides(r.Context(), txID)
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	if overrides == nil {
		overrides = []core.Override{}
	}
	writeJSON(w, http.StatusOK, overrides)
}

func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}
	change, err := req.toChange()
	if err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}

	if err := s.ledger.SetOverride(r.Context(), change); err != nil {
		s.writeError(w, r, applog.OpUpdate, err)
		return
	}

	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogOverrideSet(r.Context(),
		change.Key.TransactionID, change.Key.OccurrenceIndex,
		core.FormatAmount(change.Amount), change.Month.String())
	writeJSON(w, http.StatusOK, core.Override{
		Key:           change.Key,
		Amount:        change.Amount,
		EffectiveDate: change.EffectiveDate,
	})
}

func (s *Server) handleDeleteOverride(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key, err := parseOverrideKey(q)
	if err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}
	month, err := parseOptionalMonth(q)
	if err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}

	if err := s.ledger.DeleteOverride(r.Context(), key, month); err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	side, rec, err := req.toRecord()
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}

	id, err := s.ledger.RecordTransaction(r.Context(), side, rec)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	w.Header().Set("Location", "/api/ledger?month="+core.MonthKeyFromDate(rec.Date).String()+"&side="+string(side))
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	bill, err := req.toRecord()
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}

	id, err := s.ledger.RecordBill(r.Context(), bill)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (s *Server) logErr(r *http.Request, op string, err error) {
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, op, nil)
}
