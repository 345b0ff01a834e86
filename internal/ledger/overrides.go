package ledger

import (
	"context"
	"sort"
	"sync"

	"bilancio/internal/core"

	"github.com/shopspring/decimal"
)

// OverrideStore holds per-occurrence replacements of a series amount.
//
// Upsert replaces any previous value for the key and accepts keys whose
// transaction does not exist; such entries are simply never matched.
// Implementations must make Upsert atomic with respect to concurrent
// Upsert and Lookup on the same key.
type OverrideStore interface {
	Upsert(ctx context.Context, key core.OverrideKey, amount decimal.Decimal, effective core.Date) error
	Lookup(ctx context.Context, key core.OverrideKey) (core.Override, bool, error)
}

// MemoryOverrideStore is an OverrideStore backed by a map. The zero value
// is ready to use.
type MemoryOverrideStore struct {
	mu    sync.RWMutex
	items map[core.OverrideKey]core.Override
}

var _ OverrideStore = (*MemoryOverrideStore)(nil)

func NewMemoryOverrideStore() *MemoryOverrideStore {
	return &MemoryOverrideStore{items: make(map[core.OverrideKey]core.Override)}
}

func (s *MemoryOverrideStore) Upsert(_ context.Context, key core.OverrideKey, amount decimal.Decimal, effective core.Date) error {
	if err := key.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items == nil {
		s.items = make(map[core.OverrideKey]core.Override)
	}
	s.items[key] = core.Override{Key: key, Amount: amount, EffectiveDate: effective}
	return nil
}

func (s *MemoryOverrideStore) Lookup(_ context.Context, key core.OverrideKey) (core.Override, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.items[key]
	return o, ok, nil
}

// Delete removes the override for key, if any. The series and its other
// occurrences are not touched.
func (s *MemoryOverrideStore) Delete(_ context.Context, key core.OverrideKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// List returns the overrides of one series ordered by occurrence index.
func (s *MemoryOverrideStore) List(_ context.Context, transactionID string) ([]core.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Override
	for k, o := range s.items {
		if k.TransactionID == transactionID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.OccurrenceIndex < out[j].Key.OccurrenceIndex
	})
	return out, nil
}

func (s *MemoryOverrideStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
