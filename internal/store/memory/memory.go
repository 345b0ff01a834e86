// Package memory is an in-process record store, used for local runs and
// tests. It can be seeded from a JSON file.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
	"bilancio/internal/store"
)

type Store struct {
	*ledger.MemoryOverrideStore

	mu       sync.RWMutex
	expenses []core.AdHocRecord
	income   []core.AdHocRecord
	bills    []core.BillRecord
}

var _ store.Repository = (*Store)(nil)

// Seed is the on-disk layout read by NewFromFile.
type Seed struct {
	Expenses  []core.AdHocRecord `json:"expenses"`
	Income    []core.AdHocRecord `json:"income"`
	Bills     []core.BillRecord  `json:"bills"`
	Overrides []core.Override    `json:"overrides"`
}

func New() *Store {
	return &Store{MemoryOverrideStore: ledger.NewMemoryOverrideStore()}
}

// NewFromFile loads a seed file. A missing file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	if err := s.Load(context.Background(), seed); err != nil {
		return nil, err
	}
	return s, nil
}

// Load adds the seed's records and overrides to the store. Records are not
// validated; the ledger tolerates odd data and seeds are trusted input.
func (s *Store) Load(ctx context.Context, seed Seed) error {
	s.mu.Lock()
	s.expenses = append(s.expenses, seed.Expenses...)
	s.income = append(s.income, seed.Income...)
	s.bills = append(s.bills, seed.Bills...)
	s.mu.Unlock()

	for _, o := range seed.Overrides {
		if err := s.Upsert(ctx, o.Key, o.Amount, o.EffectiveDate); err != nil {
			return fmt.Errorf("seed override %s#%d: %w", o.Key.TransactionID, o.Key.OccurrenceIndex, err)
		}
	}
	return nil
}

func (s *Store) ListTransactions(_ context.Context, side core.Side, until core.MonthKey) ([]core.AdHocRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var src []core.AdHocRecord
	switch side {
	case core.SideExpense:
		src = s.expenses
	case core.SideIncome:
		src = s.income
	default:
		return nil, core.ErrInvalidSide
	}

	out := make([]core.AdHocRecord, 0, len(src))
	for _, r := range src {
		if core.MonthKeyFromDate(r.Date).After(until) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) ListBills(_ context.Context, until core.MonthKey) ([]core.BillRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.BillRecord, 0, len(s.bills))
	for _, b := range s.bills {
		if core.MonthKeyFromDate(b.DueDate).After(until) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *Store) CreateTransaction(_ context.Context, side core.Side, r core.AdHocRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch side {
	case core.SideExpense:
		s.expenses = append(s.expenses, r)
	case core.SideIncome:
		s.income = append(s.income, r)
	default:
		return core.ErrInvalidSide
	}
	return nil
}

func (s *Store) CreateBill(_ context.Context, b core.BillRecord) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bills = append(s.bills, b)
	return nil
}

// Close is a no-op; the memory store holds no resources.
func (s *Store) Close() error { return nil }
