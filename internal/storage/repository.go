package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"bilancio/internal/core"
	"bilancio/internal/store"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ store.Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateTransaction implements store.TransactionWriter
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, side core.Side, rec core.AdHocRecord) error {
	if !side.Valid() {
		return core.ErrInvalidSide
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	err := r.queries.CreateTransaction(ctx, TransactionRow{
		ID:               rec.ID,
		Side:             string(side),
		Description:      rec.Description,
		Amount:           rec.Amount,
		Date:             rec.Date.String(),
		IsRecurring:      rec.IsRecurring,
		RecurrenceMonths: nullInt(rec.RecurrenceMonths),
		CategoryID:       nullString(rec.CategoryID),
	})
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", rec.ID,
		"side", side,
		"amount", rec.Amount.String(),
		"date", rec.Date.String(),
		"recurring", rec.IsRecurring)
	return nil
}

// ListTransactions implements store.TransactionReader
func (r *SQLiteRepository) ListTransactions(ctx context.Context, side core.Side, until core.MonthKey) ([]core.AdHocRecord, error) {
	if !side.Valid() {
		return nil, core.ErrInvalidSide
	}
	rows, err := r.queries.ListTransactionsBefore(ctx, string(side), until.Next().FirstDay().String())
	if err != nil {
		return nil, fmt.Errorf("list %s transactions: %w", side, err)
	}

	out := make([]core.AdHocRecord, 0, len(rows))
	for _, row := range rows {
		date, err := core.ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: parse date %q: %w", row.ID, row.Date, err)
		}
		out = append(out, core.AdHocRecord{
			ID:               row.ID,
			Description:      row.Description,
			Amount:           row.Amount,
			Date:             date,
			IsRecurring:      row.IsRecurring,
			RecurrenceMonths: intPtr(row.RecurrenceMonths),
			CategoryID:       stringPtr(row.CategoryID),
		})
	}
	return out, nil
}

// CreateBill implements store.BillWriter
func (r *SQLiteRepository) CreateBill(ctx context.Context, b core.BillRecord) error {
	if err := b.Validate(); err != nil {
		return err
	}
	row := BillRow{
		ID:               b.ID,
		Title:            b.Title,
		Type:             string(b.Type),
		Amount:           b.Amount,
		DueDate:          b.DueDate.String(),
		Status:           string(b.Status),
		IsRecurring:      b.IsRecurring,
		RecurrenceMonths: nullInt(b.RecurrenceMonths),
		CategoryID:       nullString(b.CategoryID),
	}
	if b.PaidAmount != nil {
		row.PaidAmount = decimal.NewNullDecimal(*b.PaidAmount)
	}
	if b.PaidDate != nil && !b.PaidDate.IsZero() {
		row.PaidDate = sql.NullString{String: b.PaidDate.String(), Valid: true}
	}
	if err := r.queries.CreateBill(ctx, row); err != nil {
		return fmt.Errorf("create bill: %w", err)
	}

	slog.InfoContext(ctx, "Bill saved to SQLite",
		"id", b.ID,
		"type", b.Type,
		"status", b.Status,
		"due_date", b.DueDate.String())
	return nil
}

// ListBills implements store.BillReader
func (r *SQLiteRepository) ListBills(ctx context.Context, until core.MonthKey) ([]core.BillRecord, error) {
	rows, err := r.queries.ListBillsBefore(ctx, until.Next().FirstDay().String())
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}

	out := make([]core.BillRecord, 0, len(rows))
	for _, row := range rows {
		due, err := core.ParseDate(row.DueDate)
		if err != nil {
			return nil, fmt.Errorf("bill %s: parse due date %q: %w", row.ID, row.DueDate, err)
		}
		b := core.BillRecord{
			ID:               row.ID,
			Title:            row.Title,
			Type:             core.BillType(row.Type),
			Amount:           row.Amount,
			DueDate:          due,
			Status:           core.BillStatus(row.Status),
			IsRecurring:      row.IsRecurring,
			RecurrenceMonths: intPtr(row.RecurrenceMonths),
			CategoryID:       stringPtr(row.CategoryID),
		}
		if row.PaidAmount.Valid {
			paid := row.PaidAmount.Decimal
			b.PaidAmount = &paid
		}
		if row.PaidDate.Valid {
			paidDate, err := core.ParseDate(row.PaidDate.String)
			if err != nil {
				return nil, fmt.Errorf("bill %s: parse paid date %q: %w", row.ID, row.PaidDate.String, err)
			}
			b.PaidDate = &paidDate
		}
		out = append(out, b)
	}
	return out, nil
}

// Upsert implements ledger.OverrideStore. The write is a single
// INSERT ... ON CONFLICT statement.
func (r *SQLiteRepository) Upsert(ctx context.Context, key core.OverrideKey, amount decimal.Decimal, effective core.Date) error {
	if err := key.Validate(); err != nil {
		return err
	}
	row := OverrideRow{
		TransactionID:   key.TransactionID,
		OccurrenceIndex: int64(key.OccurrenceIndex),
		Amount:          amount,
	}
	if !effective.IsZero() {
		row.EffectiveDate = sql.NullString{String: effective.String(), Valid: true}
	}
	if err := r.queries.UpsertOverride(ctx, row); err != nil {
		return fmt.Errorf("upsert override: %w", err)
	}

	slog.InfoContext(ctx, "Override saved",
		"transaction_id", key.TransactionID,
		"occurrence_index", key.OccurrenceIndex,
		"amount", amount.String())
	return nil
}

// Lookup implements ledger.OverrideStore
func (r *SQLiteRepository) Lookup(ctx context.Context, key core.OverrideKey) (core.Override, bool, error) {
	row, err := r.queries.GetOverride(ctx, key.TransactionID, int64(key.OccurrenceIndex))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Override{}, false, nil
	}
	if err != nil {
		return core.Override{}, false, fmt.Errorf("get override: %w", err)
	}
	o, err := overrideFromRow(row)
	if err != nil {
		return core.Override{}, false, err
	}
	return o, true, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key core.OverrideKey) error {
	if err := r.queries.DeleteOverride(ctx, key.TransactionID, int64(key.OccurrenceIndex)); err != nil {
		return fmt.Errorf("delete override: %w", err)
	}
	slog.InfoContext(ctx, "Override deleted",
		"transaction_id", key.TransactionID,
		"occurrence_index", key.OccurrenceIndex)
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, transactionID string) ([]core.Override, error) {
	rows, err := r.queries.ListOverrides(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	out := make([]core.Override, 0, len(rows))
	for _, row := range rows {
		o, err := overrideFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func overrideFromRow(row OverrideRow) (core.Override, error) {
	o := core.Override{
		Key: core.OverrideKey{
			TransactionID:   row.TransactionID,
			OccurrenceIndex: int(row.OccurrenceIndex),
		},
		Amount: row.Amount,
	}
	if row.EffectiveDate.Valid {
		d, err := core.ParseDate(row.EffectiveDate.String)
		if err != nil {
			return core.Override{}, fmt.Errorf("override %s#%d: parse effective date: %w", row.TransactionID, row.OccurrenceIndex, err)
		}
		o.EffectiveDate = d
	}
	return o, nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
