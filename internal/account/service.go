package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nile-pay/nile_pay/internal/ledger"
)

// Service exposes wallet account operations backed by the ledger store. All
// balance mutation goes through the ledger engine; this service only creates
// and reads accounts and their movement history.
type Service struct {
	store ledger.Store
}

// NewService builds an account service instance.
func NewService(store ledger.Store) *Service {
	return &Service{store: store}
}

// CreateInput captures data required to open an account.
type CreateInput struct {
	Name     string
	HolderID string
}

// Create opens an account with a zero balance. Name and holder are immutable
// after creation.
func (s *Service) Create(ctx context.Context, input CreateInput) (ledger.Account, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return ledger.Account{}, fmt.Errorf("account name is required")
	}
	if strings.TrimSpace(input.HolderID) == "" {
		return ledger.Account{}, fmt.Errorf("holder is required")
	}

	acct := ledger.Account{
		ID:        uuid.NewString(),
		Name:      name,
		HolderID:  input.HolderID,
		Balance:   decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateAccount(ctx, acct); err != nil {
		return ledger.Account{}, err
	}
	return acct, nil
}

// Get retrieves an account by its unique name.
func (s *Service) Get(ctx context.Context, name string) (ledger.Account, error) {
	return s.store.AccountByName(ctx, name)
}

// ListByHolder returns the holder's accounts.
func (s *Service) ListByHolder(ctx context.Context, holderID string) ([]ledger.Account, error) {
	return s.store.AccountsByHolder(ctx, holderID)
}

// Balance reads the current committed balance for the named account.
func (s *Service) Balance(ctx context.Context, name string) (decimal.Decimal, error) {
	acct, err := s.store.AccountByName(ctx, name)
	if err != nil {
		return decimal.Zero, err
	}
	return s.store.Balance(ctx, acct.ID)
}

// History returns the account's movements narrowed by filter. This is the
// read-only reporting path; it never affects ledger invariants.
func (s *Service) History(ctx context.Context, name string, filter ledger.MovementFilter) ([]ledger.Movement, error) {
	acct, err := s.store.AccountByName(ctx, name)
	if err != nil {
		return nil, err
	}
	filter.AccountID = acct.ID
	return s.store.Movements(ctx, filter)
}
