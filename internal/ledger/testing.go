package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// SeedBalance sets an account balance directly on an in-memory store without
// recording a movement. This is the administrative seed path and lives
// outside the ledger's normal-operation contract; tests only.
func SeedBalance(s *MemoryStore, accountID string, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.accounts[accountID]; ok {
		acct.Balance = balance
		s.accounts[accountID] = acct
	}
}

// SetClock overrides the in-memory store's movement timestamp source so
// tests can place movements on specific days.
func SetClock(s *MemoryStore, now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
