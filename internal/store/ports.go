// Package store defines the ports the ledger service reads records and
// overrides through.
package store

import (
	"context"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
)

// Ports for record sources.
type (
	// TransactionReader returns the ad-hoc records of one side whose anchor
	// month is not after until. Later records cannot occur in until.
	TransactionReader interface {
		ListTransactions(ctx context.Context, side core.Side, until core.MonthKey) ([]core.AdHocRecord, error)
	}

	// BillReader returns every bill whose due month is not after until,
	// regardless of status; the ledger decides what to keep.
	BillReader interface {
		ListBills(ctx context.Context, until core.MonthKey) ([]core.BillRecord, error)
	}

	TransactionWriter interface {
		CreateTransaction(ctx context.Context, side core.Side, r core.AdHocRecord) error
	}

	BillWriter interface {
		CreateBill(ctx context.Context, b core.BillRecord) error
	}

	// OverrideRepository is a persistent ledger.OverrideStore.
	OverrideRepository interface {
		ledger.OverrideStore
		Delete(ctx context.Context, key core.OverrideKey) error
		List(ctx context.Context, transactionID string) ([]core.Override, error)
	}

	// Repository is everything a backend provides.
	Repository interface {
		TransactionReader
		BillReader
		TransactionWriter
		BillWriter
		OverrideRepository
	}
)
