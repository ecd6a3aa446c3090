package report

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nile-pay/nile_pay/internal/ledger"
)

// MemoryStore is an in-memory report store for unit tests. Movement sums are
// derived from a ledger MemoryStore so the aggregator sees the same data the
// engine wrote.
type MemoryStore struct {
	ledger *ledger.MemoryStore

	mu      sync.Mutex
	reports []Report
	seen    map[string]bool // accountID + period day
}

// NewMemoryStore builds a report store reading movements from mem.
func NewMemoryStore(mem *ledger.MemoryStore) *MemoryStore {
	return &MemoryStore{ledger: mem, seen: make(map[string]bool)}
}

func reportKey(accountID string, period time.Time) string {
	return accountID + "|" + period.UTC().Format("2006-01-02")
}

// SumMovements groups the window's movements by account.
func (s *MemoryStore) SumMovements(ctx context.Context, from, to time.Time) ([]AccountSums, error) {
	movements, err := s.ledger.Movements(ctx, ledger.MovementFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}

	byAccount := make(map[string]*AccountSums)
	for _, m := range movements {
		sums, ok := byAccount[m.AccountID]
		if !ok {
			sums = &AccountSums{AccountID: m.AccountID, CreditSum: decimal.Zero, DebitSum: decimal.Zero}
			byAccount[m.AccountID] = sums
		}
		switch m.Kind {
		case ledger.KindCredit:
			sums.CreditSum = sums.CreditSum.Add(m.Amount)
		case ledger.KindDebit:
			sums.DebitSum = sums.DebitSum.Add(m.Amount)
		}
	}

	out := make([]AccountSums, 0, len(byAccount))
	for _, sums := range byAccount {
		out = append(out, *sums)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

// SaveReports appends rows, skipping account+period pairs already stored.
func (s *MemoryStore) SaveReports(_ context.Context, reports []Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range reports {
		key := reportKey(r.AccountID, r.Period)
		if s.seen[key] {
			continue
		}
		s.seen[key] = true
		s.reports = append(s.reports, r)
	}
	return nil
}

// List returns stored reports, newest period first.
func (s *MemoryStore) List(_ context.Context, limit, offset int) ([]Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Report, len(s.reports))
	copy(out, s.reports)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Period.Equal(out[j].Period) {
			return out[i].Period.After(out[j].Period)
		}
		return out[i].AccountID < out[j].AccountID
	})

	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
