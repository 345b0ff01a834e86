package storage

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the statements of the schema in migrations/.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Row types mirror the tables one to one. Dates are YYYY-MM-DD text and
// amounts decimal text.
type (
	TransactionRow struct {
		ID               string
		Side             string
		Description      string
		Amount           decimal.Decimal
		Date             string
		IsRecurring      bool
		RecurrenceMonths sql.NullInt64
		CategoryID       sql.NullString
	}

	BillRow struct {
		ID               string
		Title            string
		Type             string
		Amount           decimal.Decimal
		PaidAmount       decimal.NullDecimal
		DueDate          string
		PaidDate         sql.NullString
		Status           string
		IsRecurring      bool
		RecurrenceMonths sql.NullInt64
		CategoryID       sql.NullString
	}

	OverrideRow struct {
		TransactionID   string
		OccurrenceIndex int64
		Amount          decimal.Decimal
		EffectiveDate   sql.NullString
	}
)

const createTransaction = `
INSERT INTO transactions (id, side, description, amount, date, is_recurring, recurrence_months, category_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateTransaction(ctx context.Context, r TransactionRow) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		r.ID, r.Side, r.Description, r.Amount, r.Date, r.IsRecurring, r.RecurrenceMonths, r.CategoryID)
	return err
}

const listTransactionsBefore = `
SELECT id, side, description, amount, date, is_recurring, recurrence_months, category_id
FROM transactions
WHERE side = ? AND date < ?
ORDER BY date, id
`

// ListTransactionsBefore returns the rows of side dated strictly before
// the given YYYY-MM-DD bound.
func (q *Queries) ListTransactionsBefore(ctx context.Context, side, before string) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsBefore, side, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TransactionRow
	for rows.Next() {
		var i TransactionRow
		if err := rows.Scan(&i.ID, &i.Side, &i.Description, &i.Amount, &i.Date,
			&i.IsRecurring, &i.RecurrenceMonths, &i.CategoryID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createBill = `
INSERT INTO bills (id, title, type, amount, paid_amount, due_date, paid_date, status, is_recurring, recurrence_months, category_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateBill(ctx context.Context, b BillRow) error {
	_, err := q.db.ExecContext(ctx, createBill,
		b.ID, b.Title, b.Type, b.Amount, b.PaidAmount, b.DueDate, b.PaidDate,
		b.Status, b.IsRecurring, b.RecurrenceMonths, b.CategoryID)
	return err
}

const listBillsBefore = `
SELECT id, title, type, amount, paid_amount, due_date, paid_date, status, is_recurring, recurrence_months, category_id
FROM bills
WHERE due_date < ?
ORDER BY due_date, id
`

func (q *Queries) ListBillsBefore(ctx context.Context, before string) ([]BillRow, error) {
	rows, err := q.db.QueryContext(ctx, listBillsBefore, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []BillRow
	for rows.Next() {
		var i BillRow
		if err := rows.Scan(&i.ID, &i.Title, &i.Type, &i.Amount, &i.PaidAmount, &i.DueDate,
			&i.PaidDate, &i.Status, &i.IsRecurring, &i.RecurrenceMonths, &i.CategoryID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const upsertOverride = `
INSERT INTO overrides (transaction_id, occurrence_index, amount, effective_date, updated_at)
VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (transaction_id, occurrence_index) DO UPDATE SET
    amount = excluded.amount,
    effective_date = excluded.effective_date,
    updated_at = CURRENT_TIMESTAMP
`

func (q *Queries) UpsertOverride(ctx context.Context, o OverrideRow) error {
	_, err := q.db.ExecContext(ctx, upsertOverride, o.TransactionID, o.OccurrenceIndex, o.Amount, o.EffectiveDate)
	return err
}

const getOverride = `
SELECT transaction_id, occurrence_index, amount, effective_date
FROM overrides
WHERE transaction_id = ? AND occurrence_index = ?
`

func (q *Queries) GetOverride(ctx context.Context, transactionID string, index int64) (OverrideRow, error) {
	var i OverrideRow
	err := q.db.QueryRowContext(ctx, getOverride, transactionID, index).
		Scan(&i.TransactionID, &i.OccurrenceIndex, &i.Amount, &i.EffectiveDate)
	return i, err
}

const deleteOverride = `
DELETE FROM overrides WHERE transaction_id = ? AND occurrence_index = ?
`

func (q *Queries) DeleteOverride(ctx context.Context, transactionID string, index int64) error {
	_, err := q.db.ExecContext(ctx, deleteOverride, transactionID, index)
	return err
}

const listOverrides = `
SELECT transaction_id, occurrence_index, amount, effective_date
FROM overrides
WHERE transaction_id = ?
ORDER BY occurrence_index
`

func (q *Queries) ListOverrides(ctx context.Context, transactionID string) ([]OverrideRow, error) {
	rows, err := q.db.QueryContext(ctx, listOverrides, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OverrideRow
	for rows.Next() {
		var i OverrideRow
		if err := rows.Scan(&i.TransactionID, &i.OccurrenceIndex, &i.Amount, &i.EffectiveDate); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
