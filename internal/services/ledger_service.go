package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/ledger"
	"bilancio/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// OverridePublisher announces override changes to other processes.
type OverridePublisher interface {
	PublishOverrideChanged(ctx context.Context, key core.OverrideKey, month core.MonthKey) error
}

// OverrideChange is a request to set the amount of one occurrence. Month
// is the reference month the occurrence was shown in; when zero it is
// taken from EffectiveDate, and left zero if that is zero too.
type OverrideChange struct {
	Key           core.OverrideKey
	Amount        decimal.Decimal
	EffectiveDate core.Date
	Month         core.MonthKey
}

// LedgerService computes month ledgers from a record store and keeps the
// override store, the report cache and the event bus in step.
type LedgerService struct {
	repo      store.Repository
	publisher OverridePublisher
	reports   cache.Cache[ledger.MonthResult]
	logger    *slog.Logger
	group     singleflight.Group

	// generation counts cache invalidations. A month computed under an
	// older generation is returned but not cached.
	invalidation sync.Mutex
	generation   uint64
}

// maxMonthInvalidations bounds the per-month cache eviction done when a
// record is created; longer series purge the whole cache.
const maxMonthInvalidations = 36

// NewLedgerService wires the service. publisher and reports may be nil.
func NewLedgerService(repo store.Repository, publisher OverridePublisher, reports cache.Cache[ledger.MonthResult], logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{
		repo:      repo,
		publisher: publisher,
		reports:   reports,
		logger:    logger,
	}
}

func cacheKey(side core.Side, month core.MonthKey) string {
	return month.String() + ":" + string(side)
}

// Month returns one side of the ledger for month. Identical concurrent
// calls share a single computation.
func (s *LedgerService) Month(ctx context.Context, side core.Side, month core.MonthKey) (ledger.MonthResult, error) {
	if !side.Valid() {
		return ledger.MonthResult{}, core.ErrInvalidSide
	}
	key := cacheKey(side, month)

	if s.reports != nil {
		if res, ok := s.reports.Get(key); ok {
			return cloneResult(res), nil
		}
	}

	gen := s.currentGeneration()
	flight := key + "@" + strconv.FormatUint(gen, 10)
	v, err, shared := s.group.Do(flight, func() (interface{}, error) {
		res, err := s.computeMonth(ctx, side, month)
		if err != nil {
			return nil, err
		}
		s.cacheIfCurrent(key, gen, res)
		return res, nil
	})
	if err != nil {
		return ledger.MonthResult{}, err
	}
	if shared {
		s.logger.DebugContext(ctx, "Month computation shared", "month", month.String(), "side", side)
	}
	return cloneResult(v.(ledger.MonthResult)), nil
}

func (s *LedgerService) currentGeneration() uint64 {
	s.invalidation.Lock()
	defer s.invalidation.Unlock()
	return s.generation
}

func (s *LedgerService) cacheIfCurrent(key string, gen uint64, res ledger.MonthResult) {
	if s.reports == nil {
		return
	}
	s.invalidation.Lock()
	defer s.invalidation.Unlock()
	if s.generation != gen {
		s.logger.Debug("Discarding month computed before an invalidation", "key", key)
		return
	}
	s.reports.Set(key, res)
}

// invalidate starts a new generation and runs drop against the cache while
// holding the lock cacheIfCurrent takes.
func (s *LedgerService) invalidate(drop func(c cache.Cache[ledger.MonthResult])) {
	s.invalidation.Lock()
	defer s.invalidation.Unlock()
	s.generation++
	if s.reports != nil {
		drop(s.reports)
	}
}

func (s *LedgerService) computeMonth(ctx context.Context, side core.Side, month core.MonthKey) (ledger.MonthResult, error) {
	var (
		adHoc []core.AdHocRecord
		bills []core.BillRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		adHoc, err = s.repo.ListTransactions(gctx, side, month)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		bills, err = s.repo.ListBills(gctx, month)
		if err != nil {
			return fmt.Errorf("list bills: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return ledger.MonthResult{}, err
	}

	txs := ledger.MergeSide(side, adHoc, bills)
	res, err := ledger.ForMonth(ctx, txs, month, s.repo)
	if err != nil {
		return ledger.MonthResult{}, err
	}

	s.logger.InfoContext(ctx, "Month ledger computed",
		"month", month.String(),
		"side", side,
		"transactions", len(txs),
		"occurrences", len(res.Occurrences),
		"overridden", res.Overridden(),
		"total", res.Total.String(),
		"adjusted_total", res.AdjustedTotal.String())
	return res, nil
}

// Report returns both sides of month with their summary.
func (s *LedgerService) Report(ctx context.Context, month core.MonthKey) (core.MonthReport, error) {
	var expenses, income ledger.MonthResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = s.Month(gctx, core.SideExpense, month)
		return err
	})
	g.Go(func() error {
		var err error
		income, err = s.Month(gctx, core.SideIncome, month)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.MonthReport{}, err
	}

	return core.MonthReport{
		Summary:  ledger.Summarize(expenses, income),
		Expenses: expenses.Occurrences,
		Income:   income.Occurrences,
	}, nil
}

func (s *LedgerService) Summary(ctx context.Context, month core.MonthKey) (core.MonthSummary, error) {
	r, err := s.Report(ctx, month)
	if err != nil {
		return core.MonthSummary{}, err
	}
	return r.Summary, nil
}

// SetOverride stores an override and announces it. The change must name
// the month it applies to, directly or through EffectiveDate, so the event
// carries it. Publishing failures are logged, not returned; the override
// is already saved.
func (s *LedgerService) SetOverride(ctx context.Context, c OverrideChange) error {
	if err := c.Key.Validate(); err != nil {
		return err
	}
	if c.Month.IsZero() {
		if c.EffectiveDate.IsZero() {
			return core.ErrMissingMonth
		}
		c.Month = core.MonthKeyFromDate(c.EffectiveDate)
	}
	if err := s.repo.Upsert(ctx, c.Key, c.Amount, c.EffectiveDate); err != nil {
		return fmt.Errorf("save override: %w", err)
	}
	s.overridesChanged(ctx, c.Key, c.Month)
	return nil
}

// DeleteOverride removes an override. Without month the stored effective
// date gives the month; an override stored without one needs month.
// Deleting a missing override changes nothing and announces nothing.
func (s *LedgerService) DeleteOverride(ctx context.Context, key core.OverrideKey, month core.MonthKey) error {
	if err := key.Validate(); err != nil {
		return err
	}
	existing, found, err := s.repo.Lookup(ctx, key)
	if err != nil {
		return fmt.Errorf("lookup override: %w", err)
	}
	if !found {
		return nil
	}
	if month.IsZero() {
		if existing.EffectiveDate.IsZero() {
			return core.ErrMissingMonth
		}
		month = core.MonthKeyFromDate(existing.EffectiveDate)
	}
	if err := s.repo.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete override: %w", err)
	}
	s.overridesChanged(ctx, key, month)
	return nil
}

func (s *LedgerService) Overrides(ctx context.Context, transactionID string) ([]core.Override, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, core.ErrEmptyTransaction
	}
	return s.repo.List(ctx, transactionID)
}

// overridesChanged drops every cached month, since an override key does
// not say which month it lands in, and publishes the change.
func (s *LedgerService) overridesChanged(ctx context.Context, key core.OverrideKey, month core.MonthKey) {
	s.invalidate(func(c cache.Cache[ledger.MonthResult]) { c.Purge() })
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No publisher configured, skipping override event")
		return
	}
	if err := s.publisher.PublishOverrideChanged(ctx, key, month); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish override change",
			"transaction_id", key.TransactionID,
			"occurrence_index", key.OccurrenceIndex,
			"error", err)
	}
}

// RecordTransaction stores an ad-hoc record, assigning an ID when it has
// none, and returns the ID.
func (s *LedgerService) RecordTransaction(ctx context.Context, side core.Side, r core.AdHocRecord) (string, error) {
	if !side.Valid() {
		return "", core.ErrInvalidSide
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := r.Validate(); err != nil {
		return "", err
	}
	if err := s.repo.CreateTransaction(ctx, side, r); err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}
	s.recordsChanged(ledger.NormalizeAdHoc(r))
	return r.ID, nil
}

func (s *LedgerService) RecordBill(ctx context.Context, b core.BillRecord) (string, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if err := b.Validate(); err != nil {
		return "", err
	}
	if err := s.repo.CreateBill(ctx, b); err != nil {
		return "", fmt.Errorf("save bill: %w", err)
	}
	if t, ok := ledger.NormalizeBill(b); ok {
		s.recordsChanged(t)
	}
	return b.ID, nil
}

// recordsChanged invalidates the months a new record occurs in. Unbounded
// series and series longer than maxMonthInvalidations drop everything.
func (s *LedgerService) recordsChanged(t core.Transaction) {
	first := core.MonthKeyFromDate(t.AnchorDate)
	last, bounded := ledger.LastMonth(t)
	s.invalidate(func(c cache.Cache[ledger.MonthResult]) {
		if !bounded || core.Distance(first, last) >= maxMonthInvalidations {
			c.Purge()
			return
		}
		for m := first; !m.After(last); m = m.Next() {
			c.DeletePrefix(m.String() + ":")
		}
	})
}

// Ping checks the backing store when it supports it.
func (s *LedgerService) Ping(ctx context.Context) error {
	if p, ok := s.repo.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the store and the publisher.
func (s *LedgerService) Close() error {
	var errs []error
	if c, ok := s.repo.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close ledger service: %w", err)
	}
	return nil
}

func cloneResult(r ledger.MonthResult) ledger.MonthResult {
	occs := make([]core.Occurrence, len(r.Occurrences))
	copy(occs, r.Occurrences)
	r.Occurrences = occs
	return r
}
