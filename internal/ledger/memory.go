package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore is a concurrency-safe in-memory Store. It mirrors the Postgres
// store's semantics for unit tests: per-account locks serialize conflicting
// operations while transfers between disjoint account pairs proceed in
// parallel. Locks are always acquired in account-ID order to avoid deadlock.
// The store mutex guards only the maps and the movement log, never a whole
// operation; an account's balance may only change under that account's lock.
type MemoryStore struct {
	mu        sync.RWMutex
	accounts  map[string]Account // by ID
	byName    map[string]string  // name -> ID
	movements []Movement
	now       func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewMemoryStore creates an empty in-memory ledger store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]Account),
		byName:   make(map[string]string),
		locks:    make(map[string]*sync.Mutex),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) accountLock(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	if _, ok := s.locks[id]; !ok {
		s.locks[id] = &sync.Mutex{}
	}
	return s.locks[id]
}

// CreateAccount registers a new account. The caller-supplied balance is a
// seed/import path outside the ledger contract; the account service always
// passes zero.
func (s *MemoryStore) CreateAccount(_ context.Context, acct Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byName[acct.Name]; taken {
		return ErrAccountExists
	}
	if _, taken := s.accounts[acct.ID]; taken {
		return ErrAccountExists
	}
	s.accounts[acct.ID] = acct
	s.byName[acct.Name] = acct.ID
	return nil
}

// AccountByName returns the account registered under name.
func (s *MemoryStore) AccountByName(_ context.Context, name string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[name]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return s.accounts[id], nil
}

// AccountsByHolder returns all accounts owned by holderID, newest first.
func (s *MemoryStore) AccountsByHolder(_ context.Context, holderID string) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Account
	for _, acct := range s.accounts {
		if acct.HolderID == holderID {
			out = append(out, acct)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Balance returns the committed balance for accountID.
func (s *MemoryStore) Balance(_ context.Context, accountID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[accountID]
	if !ok {
		return decimal.Zero, ErrAccountNotFound
	}
	return acct.Balance, nil
}

// ApplyDeposit increments the account balance and appends one CREDIT
// movement with no sender, as a single unit under the account's lock.
func (s *MemoryStore) ApplyDeposit(_ context.Context, accountID string, amount decimal.Decimal) (DepositReceipt, error) {
	lock := s.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	acct, ok := s.accounts[accountID]
	s.mu.RUnlock()
	if !ok {
		return DepositReceipt{}, ErrAccountNotFound
	}

	before := acct.Balance
	after := before.Add(amount)
	acct.Balance = after

	movement := Movement{
		ID:            uuid.NewString(),
		AccountID:     accountID,
		RecipientID:   accountID,
		Amount:        amount,
		Kind:          KindCredit,
		BalanceBefore: before,
		BalanceAfter:  after,
		Timestamp:     s.now(),
	}

	s.mu.Lock()
	s.accounts[accountID] = acct
	s.movements = append(s.movements, movement)
	s.mu.Unlock()

	return DepositReceipt{Movement: movement, Balance: after}, nil
}

// ApplyTransfer performs the conditional decrement on the sender, the
// increment on the recipient, and appends the DEBIT/CREDIT pair, all under
// both account locks so no partial state is observable.
func (s *MemoryStore) ApplyTransfer(_ context.Context, senderID, recipientID string, amount decimal.Decimal) (TransferReceipt, error) {
	first, second := senderID, recipientID
	if second < first {
		first, second = second, first
	}
	firstLock, secondLock := s.accountLock(first), s.accountLock(second)
	firstLock.Lock()
	defer firstLock.Unlock()
	secondLock.Lock()
	defer secondLock.Unlock()

	s.mu.RLock()
	sender, senderOK := s.accounts[senderID]
	recipient, recipientOK := s.accounts[recipientID]
	s.mu.RUnlock()
	if !senderOK {
		return TransferReceipt{}, ErrAccountNotFound
	}
	if !recipientOK {
		return TransferReceipt{}, ErrRecipientNotFound
	}
	if sender.Balance.LessThan(amount) {
		return TransferReceipt{}, ErrInsufficientFunds
	}

	senderBefore := sender.Balance
	recipientBefore := recipient.Balance
	sender.Balance = senderBefore.Sub(amount)
	recipient.Balance = recipientBefore.Add(amount)

	ts := s.now()
	debit := Movement{
		ID:            uuid.NewString(),
		AccountID:     senderID,
		SenderID:      senderID,
		RecipientID:   recipientID,
		Amount:        amount,
		Kind:          KindDebit,
		BalanceBefore: senderBefore,
		BalanceAfter:  sender.Balance,
		Timestamp:     ts,
	}
	credit := Movement{
		ID:            uuid.NewString(),
		AccountID:     recipientID,
		SenderID:      senderID,
		RecipientID:   recipientID,
		Amount:        amount,
		Kind:          KindCredit,
		BalanceBefore: recipientBefore,
		BalanceAfter:  recipient.Balance,
		Timestamp:     ts,
	}
	s.mu.Lock()
	s.accounts[senderID] = sender
	s.accounts[recipientID] = recipient
	s.movements = append(s.movements, debit, credit)
	s.mu.Unlock()

	return TransferReceipt{
		Debit:            debit,
		Credit:           credit,
		SenderBalance:    sender.Balance,
		RecipientBalance: recipient.Balance,
	}, nil
}

// Movements returns the committed movements matching filter.
func (s *MemoryStore) Movements(_ context.Context, filter MovementFilter) ([]Movement, error) {
	s.mu.RLock()
	matched := make([]Movement, 0, len(s.movements))
	for _, m := range s.movements {
		if filter.AccountID != "" && m.AccountID != filter.AccountID {
			continue
		}
		if !filter.From.IsZero() && m.Timestamp.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !m.Timestamp.Before(filter.To) {
			continue
		}
		if filter.Kind != "" && m.Kind != filter.Kind {
			continue
		}
		matched = append(matched, m)
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if filter.Desc {
			a, b = b, a
		}
		if filter.OrderBy == "amount" {
			return a.Amount.LessThan(b.Amount)
		}
		return a.Timestamp.Before(b.Timestamp)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}
